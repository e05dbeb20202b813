// Package ingest expands instance inputs, parses every leaf on a worker pool,
// retypes literals and merges the results into one graph.
package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/geoknoesis/cimshacl/archive"
	"github.com/geoknoesis/cimshacl/datatype"
	log "github.com/geoknoesis/cimshacl/internal/logging"
	"github.com/geoknoesis/cimshacl/rdf"
)

// ErrNoLeaves is returned when no leaf of any input parsed successfully.
var ErrNoLeaves = errors.New("ingest: no instance data parsed")

// Config tunes a Pipeline. Zero values select defaults.
type Config struct {
	// BaseIRI resolves rdf:ID and relative references.
	BaseIRI    string
	Workers    int
	QueueSize  int
	Extensions []string
	Limits     archive.Limits
	// MaxTriplesPerLeaf aborts a leaf that yields more triples (0 = unlimited).
	MaxTriplesPerLeaf int64
}

// Warning records input that was skipped.
type Warning struct {
	Path string
	// Reason is "corrupt", "depth", "size", "parse" or "input".
	Reason string
	Err    error
}

func (w Warning) String() string {
	return fmt.Sprintf("%s (%s): %v", w.Path, w.Reason, w.Err)
}

// LeafReport describes one parsed or failed leaf.
type LeafReport struct {
	Path       string
	Format     rdf.Format
	Bytes      int
	Triples    int
	Added      int
	Relabelled int64
	Duration   time.Duration
	Err        error
}

// Result is the outcome of Pipeline.Run.
type Result struct {
	Graph    *rdf.Graph
	Leaves   []LeafReport
	Warnings []Warning
	Archive  archive.Stats
}

// Parsed counts leaves folded into the graph.
func (r *Result) Parsed() int {
	n := 0
	for _, leaf := range r.Leaves {
		if leaf.Err == nil {
			n++
		}
	}
	return n
}

// Pipeline turns instance inputs into one retyped, deduplicated graph.
type Pipeline struct {
	table  *datatype.Table
	config Config
}

// New returns a pipeline applying table to every literal.
func New(table *datatype.Table, config Config) *Pipeline {
	if config.Workers <= 0 {
		config.Workers = runtime.GOMAXPROCS(0)
	}
	if config.QueueSize <= 0 {
		config.QueueSize = config.Workers
	}
	return &Pipeline{table: table, config: config}
}

// Run ingests inputs into a fresh graph.
func (p *Pipeline) Run(ctx context.Context, inputs ...string) (*Result, error) {
	return p.RunInto(ctx, rdf.NewGraph(), inputs...)
}

// RunInto ingests inputs into graph. Only leaves that parse completely are
// folded in. When nothing parses the partial result is returned together
// with ErrNoLeaves.
func (p *Pipeline) RunInto(ctx context.Context, graph *rdf.Graph, inputs ...string) (*Result, error) {
	res := &Result{Graph: graph}
	var mu sync.Mutex

	warn := func(w Warning) {
		log.Ctx(ctx).Warn().Str("entry", w.Path).Str("reason", w.Reason).Err(w.Err).Msg("skipping instance input")
		mu.Lock()
		res.Warnings = append(res.Warnings, w)
		mu.Unlock()
	}

	expander := &archive.Expander{
		Extensions: p.config.Extensions,
		Limits:     p.config.Limits,
		OnEntryError: func(ee *archive.EntryError) error {
			warn(Warning{Path: ee.Path, Reason: ee.Reason(), Err: ee})
			return nil
		},
	}

	g, gctx := errgroup.WithContext(ctx)
	leaves := make(chan archive.Entry, p.config.QueueSize)

	g.Go(func() error {
		defer close(leaves)
		for _, input := range inputs {
			stats, err := expander.ExpandFile(gctx, input, func(e archive.Entry) error {
				select {
				case leaves <- e:
					return nil
				case <-gctx.Done():
					return gctx.Err()
				}
			})
			mu.Lock()
			res.Archive.Add(stats)
			mu.Unlock()
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				warn(Warning{Path: input, Reason: "input", Err: err})
			}
		}
		return nil
	})

	for range p.config.Workers {
		g.Go(func() error {
			for e := range leaves {
				report := p.leaf(gctx, graph, e)
				if errors.Is(report.Err, context.Canceled) || errors.Is(report.Err, context.DeadlineExceeded) {
					return report.Err
				}
				if report.Err != nil {
					warn(Warning{Path: e.Path, Reason: "parse", Err: report.Err})
				}
				mu.Lock()
				res.Leaves = append(res.Leaves, report)
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return res, err
	}

	sort.Slice(res.Leaves, func(i, j int) bool { return res.Leaves[i].Path < res.Leaves[j].Path })
	sort.SliceStable(res.Warnings, func(i, j int) bool { return res.Warnings[i].Path < res.Warnings[j].Path })

	log.Ctx(ctx).Info().
		Int("leaves", res.Parsed()).
		Int("skipped", len(res.Warnings)).
		Int("triples", graph.Len()).
		Str("inflated", humanize.IBytes(uint64(res.Archive.Bytes))).
		Msg("instance data merged")

	if res.Parsed() == 0 {
		return res, ErrNoLeaves
	}
	return res, nil
}

// leaf parses e into a private graph and folds it into graph on success.
func (p *Pipeline) leaf(ctx context.Context, graph *rdf.Graph, e archive.Entry) LeafReport {
	start := time.Now()
	report := LeafReport{Path: e.Path, Bytes: len(e.Content)}

	format, ok := rdf.FormatForPath(e.Name)
	if !ok {
		report.Err = fmt.Errorf("%s: %w", e.Path, rdf.ErrUnsupportedFormat)
		return report
	}
	report.Format = format

	local := rdf.NewGraph()
	typing := datatype.NewRetyper(p.table, local)
	opts := []rdf.Option{
		rdf.OptBase(p.config.BaseIRI),
		rdf.OptBlankNodeScope(Scope(e.Path)),
	}
	if p.config.MaxTriplesPerLeaf > 0 {
		opts = append(opts, rdf.OptMaxTriples(p.config.MaxTriplesPerLeaf))
	}

	err := rdf.Parse(ctx, bytes.NewReader(e.Content), format, typing, opts...)
	report.Duration = time.Since(start)
	leafDuration.WithLabelValues(string(format)).Observe(report.Duration.Seconds())
	if err != nil {
		if ctx.Err() != nil {
			report.Err = ctx.Err()
			return report
		}
		report.Err = rdf.WithEntry(err, format, e.Path)
		leavesTotal.WithLabelValues(string(format), "failed").Inc()
		return report
	}

	report.Triples = local.Len()
	report.Relabelled = typing.Relabelled()
	report.Added = graph.Union(local)
	triplesMerged.Add(float64(report.Added))
	leavesTotal.WithLabelValues(string(format), "parsed").Inc()

	log.Ctx(ctx).Debug().
		Str("entry", e.Path).
		Str("format", string(format)).
		Int("triples", report.Triples).
		Int64("relabelled", report.Relabelled).
		Dur("took", report.Duration).
		Msg("leaf merged")
	if n := typing.LanguageDropped(); n > 0 {
		log.Ctx(ctx).Debug().Str("entry", e.Path).Int64("literals", n).Msg("language tags dropped by datatype override")
	}
	return report
}

// Scope derives the blank node scope for a document from its logical path.
// Equal paths map to equal scopes so merges do not depend on scheduling.
func Scope(logicalPath string) string {
	return "d" + strconv.FormatUint(xxhash.Sum64String(logicalPath), 36)
}
