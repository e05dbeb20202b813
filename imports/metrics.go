package imports

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cimshacl",
		Subsystem: "imports",
		Name:      "fetch_total",
		Help:      "import documents fetched by source and outcome",
	}, []string{"source", "outcome"})

	fetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "cimshacl",
		Subsystem: "imports",
		Name:      "fetch_seconds",
		Help:      "time to fetch and parse one import document",
		Buckets:   prometheus.DefBuckets,
	}, []string{"source"})

	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cimshacl",
		Subsystem: "imports",
		Name:      "cache_hits_total",
		Help:      "remote imports served from the document cache",
	})
)
