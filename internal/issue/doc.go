// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// ActionableError carries operation, resource and remediation hints. The
// catalog in issue.go holds longer Markdown guides rendered with glamour.
package issue
