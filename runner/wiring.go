package runner

import (
	"github.com/geoknoesis/cimshacl/archive"
	"github.com/geoknoesis/cimshacl/config"
	"github.com/geoknoesis/cimshacl/datatype"
	"github.com/geoknoesis/cimshacl/imports"
	"github.com/geoknoesis/cimshacl/ingest"
	"github.com/geoknoesis/cimshacl/rdf"
	"github.com/geoknoesis/cimshacl/validation"
)

// IngestConfig maps the instance section onto the ingest pipeline.
func IngestConfig(c config.InstanceConfig) ingest.Config {
	return ingest.Config{
		BaseIRI:           c.BaseIRI,
		Workers:           c.Workers,
		QueueSize:         c.QueueSize,
		Extensions:        c.ArchiveExtensions,
		MaxTriplesPerLeaf: c.MaxTriplesPerLeaf,
		Limits: archive.Limits{
			MaxDepth:      c.MaxArchiveDepth,
			MaxEntryBytes: c.MaxEntryBytes,
			MaxTotalBytes: c.MaxTotalBytes,
		},
	}
}

// ImportsConfig maps the imports section onto the resolver.
func ImportsConfig(c config.ImportsConfig) imports.Config {
	format, ok := rdf.ParseFormat(c.DefaultFormat)
	if !ok {
		format = rdf.FormatTurtle
	}
	return imports.Config{
		HTTP: imports.HTTPConfig{
			Timeout:       c.Timeout,
			Retries:       c.Retries,
			RatePerSecond: c.RatePerSecond,
			Burst:         c.Burst,
			UserAgent:     c.UserAgent,
			CacheEntries:  c.CacheEntries,
		},
		Concurrency:   c.Concurrency,
		DefaultFormat: format,
		Ignore:        c.Ignore,
	}
}

// TableOptions maps the datatypes section onto table loading.
func TableOptions(c config.DatatypesConfig) []datatype.LoadOption {
	return []datatype.LoadOption{
		datatype.WithSheet(c.Sheet),
		datatype.WithColumns(c.PropertyColumn, c.DatatypeColumn),
	}
}

// ExecOracle builds the command line validator from the oracle section.
func ExecOracle(c config.OracleConfig) *validation.ExecOracle {
	return &validation.ExecOracle{
		Command:   c.Command,
		Args:      c.Args,
		Inference: c.Inference,
		Timeout:   c.Timeout,
	}
}
