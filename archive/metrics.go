package archive

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	inflatedBytes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cimshacl",
		Subsystem: "archive",
		Name:      "inflated_bytes_total",
		Help:      "bytes read out of archive members",
	})

	entriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cimshacl",
		Subsystem: "archive",
		Name:      "entries_total",
		Help:      "archive entries by outcome",
	}, []string{"outcome"})

	containersOpened = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cimshacl",
		Subsystem: "archive",
		Name:      "containers_opened_total",
		Help:      "zip and gzip containers opened, including nested ones",
	})
)
