// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the smce command tree.
//
// Every command receives an *App holding the configuration provider and
// output streams; handlers load configuration, wire a runner and render
// results with the shared lipgloss styles.
package cmd
