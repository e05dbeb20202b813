package rdf

import (
	"context"
	"io"
	"iter"
	"slices"
	"sync"

	"github.com/puzpuzpuz/xsync/v4"
)

// Graph is a set of triples. It is safe for concurrent use; Add, Union and
// Merge may be called from several goroutines at once.
type Graph struct {
	triples   *xsync.Map[string, Triple]
	bySubject *xsync.Map[string, *subjectBucket]
}

// subjectBucket holds the distinct triples of one subject. It only grows.
type subjectBucket struct {
	mu      sync.Mutex
	triples []Triple
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		triples:   xsync.NewMap[string, Triple](),
		bySubject: xsync.NewMap[string, *subjectBucket](),
	}
}

// Add inserts t and reports whether it was not already present.
func (g *Graph) Add(t Triple) bool {
	if _, loaded := g.triples.LoadOrStore(t.Key(), t); loaded {
		return false
	}
	b := g.bucket(renderTerm(t.S))
	b.mu.Lock()
	b.triples = append(b.triples, t)
	b.mu.Unlock()
	return true
}

func (g *Graph) bucket(subject string) *subjectBucket {
	if b, ok := g.bySubject.Load(subject); ok {
		return b
	}
	b, _ := g.bySubject.LoadOrStore(subject, &subjectBucket{})
	return b
}

// subjectTriples returns a snapshot of the triples of s.
func (g *Graph) subjectTriples(s Term) []Triple {
	b, ok := g.bySubject.Load(renderTerm(s))
	if !ok {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.triples)
}

// HandleTriple adds t, letting a graph act as a parse sink.
func (g *Graph) HandleTriple(t Triple) error {
	g.Add(t)
	return nil
}

// Has reports whether t is in the graph.
func (g *Graph) Has(t Triple) bool {
	_, ok := g.triples.Load(t.Key())
	return ok
}

// Len returns the number of distinct triples.
func (g *Graph) Len() int {
	return g.triples.Size()
}

// All iterates the triples in no particular order.
func (g *Graph) All() iter.Seq[Triple] {
	return func(yield func(Triple) bool) {
		g.triples.Range(func(_ string, t Triple) bool {
			return yield(t)
		})
	}
}

// Sorted returns the triples in a deterministic order.
func (g *Graph) Sorted() []Triple {
	out := make([]Triple, 0, g.Len())
	for t := range g.All() {
		out = append(out, t)
	}
	sortTriples(out)
	return out
}

// Union adds every triple of other to g and returns the number added.
func (g *Graph) Union(other *Graph) int {
	if other == nil || other == g {
		return 0
	}
	added := 0
	for t := range other.All() {
		if g.Add(t) {
			added++
		}
	}
	return added
}

// Clone returns an independent copy of g.
func (g *Graph) Clone() *Graph {
	out := NewGraph()
	out.Union(g)
	return out
}

// Equal reports whether both graphs hold the same triples. Blank nodes are
// compared by identifier, not by isomorphism.
func (g *Graph) Equal(other *Graph) bool {
	if g.Len() != other.Len() {
		return false
	}
	for t := range g.All() {
		if !other.Has(t) {
			return false
		}
	}
	return true
}

// Match returns the triples whose subject, predicate and object match the
// non-nil arguments, sorted. A bound subject reads only that subject's triples.
func (g *Graph) Match(s Term, p *IRI, o Term) []Triple {
	candidates := g.All()
	if s != nil {
		candidates = slices.Values(g.subjectTriples(s))
	}
	var out []Triple
	for t := range candidates {
		if p != nil && t.P != *p {
			continue
		}
		if o != nil && !termEqual(t.O, o) {
			continue
		}
		out = append(out, t)
	}
	sortTriples(out)
	return out
}

// Objects returns the objects of (s, p, *).
func (g *Graph) Objects(s Term, p IRI) []Term {
	matches := g.Match(s, &p, nil)
	out := make([]Term, len(matches))
	for i, t := range matches {
		out[i] = t.O
	}
	return out
}

// Merge folds a lazy sequence of triples into a graph and returns it. A nil
// graph starts a new one. Memory grows only with the number of distinct triples.
func Merge(into *Graph, triples iter.Seq[Triple]) *Graph {
	if into == nil {
		into = NewGraph()
	}
	for t := range triples {
		into.Add(t)
	}
	return into
}

// Decode returns the decoder's triples as a sequence. Iteration stops at the
// first error, which is stored in *errp.
func Decode(dec TripleDecoder, errp *error) iter.Seq[Triple] {
	return func(yield func(Triple) bool) {
		for {
			t, err := dec.Next()
			if err == io.EOF {
				return
			}
			if err != nil {
				*errp = err
				return
			}
			if !yield(t) {
				return
			}
		}
	}
}

// ReadGraph decodes r into a new graph.
func ReadGraph(ctx context.Context, r io.Reader, format Format, opts ...Option) (*Graph, error) {
	g := NewGraph()
	if err := Parse(ctx, r, format, g, opts...); err != nil {
		return nil, err
	}
	return g, nil
}

// WriteGraph encodes g in a deterministic order.
func WriteGraph(w io.Writer, g *Graph, format Format, opts ...Option) error {
	enc, err := NewEncoder(w, format, opts...)
	if err != nil {
		return err
	}
	for _, t := range g.Sorted() {
		if err := enc.Write(t); err != nil {
			_ = enc.Close()
			return err
		}
	}
	return enc.Close()
}
