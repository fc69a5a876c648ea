// SPDX-License-Identifier: MPL-2.0

// Package metrics exports runner lifecycle events as Prometheus metrics.
//
// A Collector implements runner.Observer. Server exposes a registry on
// /metrics for scraping while `smce run` is alive.
package metrics
