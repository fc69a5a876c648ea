// SPDX-License-Identifier: MPL-2.0

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"smce-runner/internal/runner"
	"smce-runner/pkg/types"
)

const namespace = "smce"

var allStatuses = []runner.Status{
	runner.StatusClean,
	runner.StatusConfigured,
	runner.StatusBuilt,
	runner.StatusRunning,
	runner.StatusSuspended,
	runner.StatusStopped,
}

// Collector records runner events. Register it with a registry through
// NewCollector; the zero value is not usable.
type Collector struct {
	status        *prometheus.GaugeVec
	transitions   *prometheus.CounterVec
	builds        *prometheus.CounterVec
	buildDuration prometheus.Histogram
	exits         *prometheus.CounterVec
	lastExitCode  prometheus.Gauge
}

var _ runner.Observer = (*Collector)(nil)

// NewCollector creates the runner metrics and registers them with reg.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		status: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "runner",
			Name:      "status",
			Help:      "1 for the runner's current lifecycle status, 0 otherwise",
		}, []string{"status"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "runner",
			Name:      "transitions_total",
			Help:      "Lifecycle transitions by source and target status",
		}, []string{"from", "to"}),
		builds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "build",
			Name:      "total",
			Help:      "Sketch builds by result",
		}, []string{"result"}),
		buildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "build",
			Name:      "duration_seconds",
			Help:      "Wall time of sketch builds in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
		exits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sketch",
			Name:      "exits_total",
			Help:      "Sketch processes that exited on their own, by exit code",
		}, []string{"code"}),
		lastExitCode: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sketch",
			Name:      "last_exit_code",
			Help:      "Exit code of the most recent sketch exit, -1 when signaled",
		}),
	}

	for _, col := range []prometheus.Collector{c.status, c.transitions, c.builds, c.buildDuration, c.exits, c.lastExitCode} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	c.setStatus(runner.StatusClean)
	return c, nil
}

// StatusChanged implements runner.Observer.
func (c *Collector) StatusChanged(from, to runner.Status) {
	c.transitions.WithLabelValues(from.String(), to.String()).Inc()
	c.setStatus(to)
}

// BuildFinished implements runner.Observer.
func (c *Collector) BuildFinished(d time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	c.builds.WithLabelValues(result).Inc()
	c.buildDuration.Observe(d.Seconds())
}

// SketchExited implements runner.Observer.
func (c *Collector) SketchExited(code types.ExitCode) {
	c.exits.WithLabelValues(strconv.Itoa(int(code))).Inc()
	c.lastExitCode.Set(float64(code))
}

func (c *Collector) setStatus(current runner.Status) {
	for _, s := range allStatuses {
		v := 0.0
		if s == current {
			v = 1
		}
		c.status.WithLabelValues(s.String()).Set(v)
	}
}
