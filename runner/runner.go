// Package runner ties one validation run together: datatype table, instance
// ingestion, constraint resolution and the external validator.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/geoknoesis/cimshacl/config"
	"github.com/geoknoesis/cimshacl/datatype"
	"github.com/geoknoesis/cimshacl/imports"
	"github.com/geoknoesis/cimshacl/ingest"
	log "github.com/geoknoesis/cimshacl/internal/logging"
	"github.com/geoknoesis/cimshacl/rdf"
	"github.com/geoknoesis/cimshacl/validation"
)

// Inputs names the files of one run.
type Inputs struct {
	// Instances are instance data files or archives.
	Instances []string
	// Shapes are the constraint roots.
	Shapes []string
	// DatatypeTable is optional; without it literals keep their parsed datatype.
	DatatypeTable string
}

// Skipped is one leaf, archive entry or import edge left out of a run.
type Skipped struct {
	// Kind is "instance" or "import".
	Kind   string
	Path   string
	Reason string
	Err    error
}

func (s Skipped) String() string {
	return fmt.Sprintf("%s %s (%s): %v", s.Kind, s.Path, s.Reason, s.Err)
}

// Timings are the wall clock durations of each phase.
type Timings struct {
	Table      time.Duration
	Prepare    time.Duration
	Validation time.Duration
	Total      time.Duration
}

// Status summarizes a report for exit codes and console output.
type Status int

const (
	StatusConforms Status = iota
	// StatusConformsIncomplete is a pass over input that lost data on the way.
	StatusConformsIncomplete
	StatusViolations
)

func (s Status) String() string {
	switch s {
	case StatusConforms:
		return "conforms"
	case StatusConformsIncomplete:
		return "conforms (incomplete input)"
	default:
		return "does not conform"
	}
}

// Report is everything a run produced.
type Report struct {
	RunID     string
	StartedAt time.Time
	Table     *datatype.Table
	Instance  *ingest.Result
	Shapes    *imports.Result
	Verdict   *validation.Verdict
	Results   []validation.Result
	Skipped   []Skipped
	Timings   Timings
}

// Complete reports whether every leaf and import edge made it into the graphs.
func (r *Report) Complete() bool { return len(r.Skipped) == 0 }

// Status derives the overall outcome.
func (r *Report) Status() Status {
	switch {
	case r.Verdict == nil || !r.Verdict.Conforms:
		return StatusViolations
	case !r.Complete():
		return StatusConformsIncomplete
	default:
		return StatusConforms
	}
}

// Runner executes validation runs.
type Runner struct {
	Config *config.Config
	Oracle validation.Oracle
	// Resolver is shared across runs so its remote document cache survives
	// between watch iterations. Nil builds one from Config.
	Resolver *imports.Resolver
}

// New returns a runner using the command line validator from cfg.
func New(cfg *config.Config) *Runner {
	return &Runner{
		Config:   cfg,
		Oracle:   ExecOracle(cfg.Oracle),
		Resolver: imports.New(ImportsConfig(cfg.Imports)),
	}
}

// LoadTable loads the datatype table, or returns an empty one when path is empty.
func (r *Runner) LoadTable(path string) (*datatype.Table, error) {
	if path == "" {
		return datatype.NewTable(nil), nil
	}
	return datatype.Load(path, TableOptions(r.Config.Datatypes)...)
}

// Merge ingests instance inputs into one graph.
func (r *Runner) Merge(ctx context.Context, table *datatype.Table, instances ...string) (*ingest.Result, error) {
	return ingest.New(table, IngestConfig(r.Config.Instance)).Run(ctx, instances...)
}

// Constraints resolves the shapes roots into one graph.
func (r *Runner) Constraints(ctx context.Context, roots ...string) (*imports.Result, error) {
	resolver := r.Resolver
	if resolver == nil {
		resolver = imports.New(ImportsConfig(r.Config.Imports))
	}
	return resolver.Resolve(ctx, roots...)
}

// Run performs one validation. Run-level failures (unreadable table, no
// instance data, no constraints, validator failure) are returned as errors
// together with whatever part of the report was built.
func (r *Runner) Run(ctx context.Context, in Inputs) (*Report, error) {
	report := &Report{RunID: uuid.NewString(), StartedAt: time.Now()}
	ctx = log.WithRun(ctx, report.RunID)
	logger := log.Ctx(ctx)

	start := time.Now()
	table, err := r.LoadTable(in.DatatypeTable)
	if err != nil {
		return report, err
	}
	report.Table = table
	report.Timings.Table = time.Since(start)

	prepare := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := r.Merge(gctx, table, in.Instances...)
		report.Instance = res
		return err
	})
	g.Go(func() error {
		res, err := r.Constraints(gctx, in.Shapes...)
		report.Shapes = res
		return err
	})
	err = g.Wait()
	report.collectSkipped()
	report.Timings.Prepare = time.Since(prepare)
	if err != nil {
		return report, err
	}
	logger.Info().
		Int("instanceTriples", report.Instance.Graph.Len()).
		Int("shapeTriples", report.Shapes.Graph.Len()).
		Int("skipped", len(report.Skipped)).
		Dur("took", report.Timings.Prepare).
		Msg("graphs prepared")

	validate := time.Now()
	verdict, err := r.Oracle.Validate(ctx, report.Instance.Graph, report.Shapes.Graph)
	report.Timings.Validation = time.Since(validate)
	report.Timings.Total = time.Since(start)
	if err != nil {
		return report, err
	}
	report.Verdict = verdict
	report.Results = validation.Results(verdict.Diagnostics)

	logger.Info().
		Bool("conforms", verdict.Conforms).
		Bool("complete", report.Complete()).
		Int("results", len(report.Results)).
		Dur("took", report.Timings.Validation).
		Msg("validation finished")
	return report, nil
}

func (r *Report) collectSkipped() {
	r.Skipped = nil
	if r.Instance != nil {
		for _, w := range r.Instance.Warnings {
			r.Skipped = append(r.Skipped, Skipped{Kind: "instance", Path: w.Path, Reason: w.Reason, Err: w.Err})
		}
	}
	if r.Shapes != nil {
		for _, doc := range r.Shapes.Failed() {
			r.Skipped = append(r.Skipped, Skipped{Kind: "import", Path: doc.Target, Reason: "fetch", Err: doc.Err})
		}
	}
}

// WriteOutputs writes the diagnostics and the optional graph dumps named in
// out. The serialization follows each file's extension, defaulting to JSON-LD.
func (r *Report) WriteOutputs(out config.OutputConfig) error {
	var errs []error
	if out.Diagnostics != "" && r.Verdict != nil {
		errs = append(errs, writeFile(out.Diagnostics, func(f *os.File, format rdf.Format) error {
			return validation.WriteDiagnostics(f, r.Verdict, format)
		}))
	}
	if out.DataDump != "" && r.Instance != nil {
		errs = append(errs, writeFile(out.DataDump, func(f *os.File, format rdf.Format) error {
			return rdf.WriteGraph(f, r.Instance.Graph, format)
		}))
	}
	if out.ShapesDump != "" && r.Shapes != nil {
		errs = append(errs, writeFile(out.ShapesDump, func(f *os.File, format rdf.Format) error {
			return rdf.WriteGraph(f, r.Shapes.Graph, format)
		}))
	}
	return errors.Join(errs...)
}

func writeFile(path string, write func(*os.File, rdf.Format) error) error {
	format, ok := rdf.FormatForPath(path)
	if !ok || format == rdf.FormatRDFXML {
		format = rdf.FormatJSONLD
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f, format); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// Watch runs once and then again whenever a local input changes. Each
// outcome is handed to each; Watch returns when ctx is done.
func (r *Runner) Watch(ctx context.Context, in Inputs, each func(*Report, error)) error {
	each(r.Run(ctx, in))
	w := &Watcher{
		Paths:    in.localPaths(),
		Debounce: r.Config.Watch.Debounce,
		OnChange: func(ctx context.Context, changed []string) {
			log.Ctx(ctx).Info().Strs("changed", changed).Msg("rerunning validation")
			each(r.Run(ctx, in))
		},
	}
	return w.Watch(ctx)
}

func (in Inputs) localPaths() []string {
	paths := slices.Clone(in.Instances)
	for _, root := range in.Shapes {
		if !imports.IsRemote(root) {
			paths = append(paths, strings.TrimPrefix(root, "file://"))
		}
	}
	if in.DatatypeTable != "" {
		paths = append(paths, in.DatatypeTable)
	}
	return paths
}
