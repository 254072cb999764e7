// Invariants are conditions in code that must hold; otherwise, there is a bug in code.
// Think of what you'd `panic()` on, but you don't want to take the cache process down because of it. A violated
// invariant is logged as an error and counted in the `invariants_total` metric, which is what alerts are built on.
// The caller still has to handle the erroneous case itself, e.g. by clamping the bad value or returning early.
//
// Do not use invariants for conditions that depend on external factors; a graph file missing from disk is a normal
// error, not an invariant violation. A negative cache capacity reaching a constructor is one.
//
// Test-mode builds (`-X ...utils.TestMode=true`) panic on violations so they can't go unnoticed.

package utils

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	promclient "github.com/prometheus/client_model/go"
)

var invariantsMetric = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "invariants_total",
	Help: "The total number of invariant violations",
}, []string{
	"module", // The module in which this invariant occurred.
	"type",   // The type of the invariant that occurred.
})

// RaiseInvariant records a violated invariant of `invariantType` inside `module`. `msg` and `args` are logged as with
// slog.Error.
func RaiseInvariant(module, invariantType, msg string, args ...any) {
	invariantsMetric.WithLabelValues(module, invariantType).Inc()
	slog.With("invariant", invariantType, "module", module).Error(msg, args...)
	if IsTestMode {
		panic("invariant violated: " + invariantType)
	}
}

// GetMetricValue returns how many times the invariant `invariantType` of `module` has been raised.
func GetMetricValue(module, invariantType string) int {
	var metric = &promclient.Metric{}
	if err := invariantsMetric.WithLabelValues(module, invariantType).Write(metric); err != nil {
		slog.Error(err.Error())
		return 0
	}
	return int(metric.Counter.GetValue())
}
