package validation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var oracleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "cimshacl",
	Subsystem: "validation",
	Name:      "oracle_seconds",
	Help:      "time spent in the external validator",
	Buckets:   []float64{.1, .5, 1, 5, 15, 60, 300, 900, 1800},
})
