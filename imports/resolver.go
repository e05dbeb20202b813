// Package imports assembles a constraint graph by following owl:imports from
// one or more root documents, fetching every distinct target at most once.
package imports

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	log "github.com/geoknoesis/cimshacl/internal/logging"
	"github.com/geoknoesis/cimshacl/rdf"
)

// Config configures New.
type Config struct {
	HTTP HTTPConfig
	// Concurrency bounds documents fetched and parsed at once.
	Concurrency int
	// DefaultFormat parses documents whose extension and content type say nothing.
	DefaultFormat rdf.Format
	// Ignore lists extra targets that are never fetched.
	Ignore []string
}

// Resolver follows owl:imports edges. The SHACL core namespace is never
// treated as a document.
type Resolver struct {
	Local         Fetcher
	Remote        Fetcher
	Concurrency   int
	DefaultFormat rdf.Format
	Ignore        []string
}

// New returns a resolver reading local files and fetching remote targets over HTTP.
func New(cfg Config) *Resolver {
	return &Resolver{
		Local:         FileFetcher{},
		Remote:        NewHTTPFetcher(cfg.HTTP),
		Concurrency:   cfg.Concurrency,
		DefaultFormat: cfg.DefaultFormat,
		Ignore:        cfg.Ignore,
	}
}

// Result is the assembled constraint graph and the record of every target.
type Result struct {
	Graph *rdf.Graph
	// Documents is sorted by target.
	Documents []Document
	// Ignored lists import targets that were deliberately not fetched.
	Ignored []string
}

// Failed returns the documents that ended in StateFailed.
func (r *Result) Failed() []Document {
	var out []Document
	for _, doc := range r.Documents {
		if doc.State == StateFailed {
			out = append(out, doc)
		}
	}
	return out
}

// Document returns the record for a canonical target.
func (r *Result) Document(target string) (Document, bool) {
	i := sort.Search(len(r.Documents), func(i int) bool { return r.Documents[i].Target >= target })
	if i < len(r.Documents) && r.Documents[i].Target == target {
		return r.Documents[i], true
	}
	return Document{}, false
}

// Resolve assembles the constraint graph reachable from roots with a fresh
// visited set.
func (r *Resolver) Resolve(ctx context.Context, roots ...string) (*Result, error) {
	return r.ResolveWith(ctx, NewVisitedSet(), roots...)
}

// ResolveWith is Resolve with a caller-owned visited set. Targets already in
// visited are neither fetched nor folded again. A failing import is recorded
// and its siblings continue; ErrNoConstraints is returned when none of the
// claimed roots could be resolved.
func (r *Resolver) ResolveWith(ctx context.Context, visited *VisitedSet, roots ...string) (*Result, error) {
	run := &resolution{
		r:       r,
		visited: visited,
		graph:   rdf.NewGraph(),
		docs:    make(map[string]*Document),
		ignored: make(map[string]struct{}),
		skip:    r.ignoreKeys(),
		sem:     semaphore.NewWeighted(int64(max(r.Concurrency, 1))),
	}
	run.g, run.ctx = errgroup.WithContext(ctx)

	var claimedRoots []string
	for _, root := range roots {
		target, err := Canonical(root)
		if err != nil {
			run.record(&Document{Target: root, State: StateFailed, Err: &FetchError{Target: root, Err: err}})
			continue
		}
		if run.isIgnored(target) {
			run.markIgnored(target)
			continue
		}
		if !visited.Claim(target) {
			log.Ctx(ctx).Debug().Str("target", target).Msg("root already visited")
			continue
		}
		claimedRoots = append(claimedRoots, target)
		run.spawn(target, "")
	}

	err := run.g.Wait()
	res := run.result()
	if err != nil {
		return res, err
	}

	resolvedRoot := false
	for _, target := range claimedRoots {
		if doc, ok := res.Document(target); ok && doc.State == StateVisited {
			resolvedRoot = true
			break
		}
	}
	if len(roots) == 0 || (len(claimedRoots) > 0 && !resolvedRoot) {
		return res, ErrNoConstraints
	}

	log.Ctx(ctx).Info().
		Int("documents", len(res.Documents)).
		Int("failed", len(res.Failed())).
		Int("triples", res.Graph.Len()).
		Msg("constraint graph assembled")
	return res, nil
}

func (r *Resolver) ignoreKeys() map[string]struct{} {
	keys := map[string]struct{}{shaclKey: {}}
	for _, target := range r.Ignore {
		if canonical, err := Canonical(target); err == nil {
			keys[namespaceKey(canonical)] = struct{}{}
		}
	}
	return keys
}

type resolution struct {
	r       *Resolver
	visited *VisitedSet
	graph   *rdf.Graph
	skip    map[string]struct{}
	sem     *semaphore.Weighted
	g       *errgroup.Group
	ctx     context.Context

	mu      sync.Mutex
	docs    map[string]*Document
	ignored map[string]struct{}
}

func (run *resolution) isIgnored(target string) bool {
	_, ok := run.skip[namespaceKey(target)]
	return ok
}

func (run *resolution) markIgnored(target string) {
	run.mu.Lock()
	run.ignored[target] = struct{}{}
	run.mu.Unlock()
	log.Ctx(run.ctx).Debug().Str("target", target).Msg("import target ignored")
}

func (run *resolution) record(doc *Document) {
	run.mu.Lock()
	run.docs[doc.Target] = doc
	run.mu.Unlock()
}

// spawn resolves a claimed target on its own goroutine.
func (run *resolution) spawn(target, parent string) {
	doc := &Document{Target: target, Parent: parent, State: StatePending}
	run.record(doc)
	run.g.Go(func() error {
		return run.visit(doc)
	})
}

func (run *resolution) visit(doc *Document) error {
	local, err := run.load(doc)
	if err != nil {
		if ctxErr := run.ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		run.transition(doc, StateFailed)
		doc.Err = asFetchError(doc.Target, err)
		log.Ctx(run.ctx).Warn().Err(doc.Err).Str("target", doc.Target).Str("parent", doc.Parent).Msg("import skipped")
		return nil
	}
	run.transition(doc, StateParsed)

	base := baseIRI(doc.Target)
	owlImports := rdf.IRI{Value: rdf.OWLImports}
	for _, t := range local.Match(nil, &owlImports, nil) {
		var ref string
		switch o := t.O.(type) {
		case rdf.IRI:
			ref = o.Value
		case rdf.Literal:
			ref = o.Lexical
		default:
			continue
		}
		child, err := Canonical(rdf.ResolveIRI(base, ref))
		if err != nil {
			log.Ctx(run.ctx).Warn().Err(err).Str("import", ref).Str("target", doc.Target).Msg("unusable import reference")
			continue
		}
		if run.isIgnored(child) {
			run.markIgnored(child)
			continue
		}
		if !slices.Contains(doc.Imports, child) {
			doc.Imports = append(doc.Imports, child)
		}
		if run.visited.Claim(child) {
			run.spawn(child, doc.Target)
		}
	}
	sort.Strings(doc.Imports)

	run.graph.Union(local)
	run.transition(doc, StateVisited)
	return nil
}

// load fetches and parses doc into a graph of its own.
func (run *resolution) load(doc *Document) (*rdf.Graph, error) {
	if err := run.sem.Acquire(run.ctx, 1); err != nil {
		return nil, err
	}
	defer run.sem.Release(1)

	run.transition(doc, StateFetching)
	source, fetcher := "local", run.r.Local
	if IsRemote(doc.Target) {
		source, fetcher = "remote", run.r.Remote
	}
	if fetcher == nil {
		fetcher = FileFetcher{}
	}

	start := time.Now()
	defer func() { fetchDuration.WithLabelValues(source).Observe(time.Since(start).Seconds()) }()

	payload, err := fetcher.Fetch(run.ctx, doc.Target)
	if err != nil {
		fetchTotal.WithLabelValues(source, "failed").Inc()
		return nil, err
	}

	fallback := run.r.DefaultFormat
	if fallback == "" {
		fallback = rdf.FormatTurtle
	}
	doc.Format = formatFor(doc.Target, payload.ContentType, fallback)
	base := baseIRI(doc.Target)
	if payload.Location != "" && IsRemote(payload.Location) {
		base = payload.Location
	}

	local := rdf.NewGraph()
	err = rdf.Parse(run.ctx, bytes.NewReader(payload.Content), doc.Format, local,
		rdf.OptBase(base),
		rdf.OptBlankNodeScope(scope(doc.Target)),
	)
	if err != nil {
		fetchTotal.WithLabelValues(source, "invalid").Inc()
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, &FetchError{Target: doc.Target, Err: rdf.WithEntry(err, doc.Format, doc.Target)}
	}
	fetchTotal.WithLabelValues(source, "ok").Inc()
	doc.Triples = local.Len()
	return local, nil
}

func (run *resolution) transition(doc *Document, next State) {
	log.Ctx(run.ctx).Trace().Str("target", doc.Target).Stringer("from", doc.State).Stringer("to", next).Msg("import state")
	run.mu.Lock()
	doc.State = next
	run.mu.Unlock()
}

func (run *resolution) result() *Result {
	run.mu.Lock()
	defer run.mu.Unlock()
	res := &Result{Graph: run.graph}
	for _, doc := range run.docs {
		res.Documents = append(res.Documents, *doc)
	}
	sort.Slice(res.Documents, func(i, j int) bool { return res.Documents[i].Target < res.Documents[j].Target })
	for target := range run.ignored {
		res.Ignored = append(res.Ignored, target)
	}
	sort.Strings(res.Ignored)
	return res
}

func scope(target string) string {
	return "i" + strconv.FormatUint(xxhash.Sum64String(target), 36)
}
