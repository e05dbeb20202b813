package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	leavesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cimshacl",
		Subsystem: "ingest",
		Name:      "leaves_total",
		Help:      "instance leaves processed by outcome",
	}, []string{"format", "outcome"})

	triplesMerged = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cimshacl",
		Subsystem: "ingest",
		Name:      "triples_merged_total",
		Help:      "distinct triples added to the instance graph",
	})

	leafDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "cimshacl",
		Subsystem: "ingest",
		Name:      "leaf_parse_seconds",
		Help:      "time to parse and retype one leaf",
		Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10, 30},
	}, []string{"format"})
)
