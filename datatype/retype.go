package datatype

import (
	"sync/atomic"

	"github.com/geoknoesis/cimshacl/rdf"
)

// Retype applies the table to the object of t. A mapped literal keeps its
// lexical form and takes the mapped datatype; any language tag is dropped.
// Unmapped literals keep what the parser declared, defaulting to xsd:string.
func Retype(t rdf.Triple, table *Table) rdf.Triple {
	lit, ok := t.O.(rdf.Literal)
	if !ok {
		return t
	}
	if dt, ok := table.Lookup(t.P.Value); ok {
		t.O = rdf.Literal{Lexical: lit.Lexical, Datatype: rdf.IRI{Value: dt}}
		return t
	}
	if lit.Lang == "" && lit.Datatype.Value == "" {
		lit.Datatype = rdf.IRI{Value: rdf.XSDString}
		t.O = lit
	}
	return t
}

// Retyper runs Retype inline in front of another handler.
type Retyper struct {
	Table *Table
	Next  rdf.TripleHandler

	relabelled atomic.Int64
	langDrops  atomic.Int64
}

// NewRetyper returns a Retyper feeding next.
func NewRetyper(table *Table, next rdf.TripleHandler) *Retyper {
	return &Retyper{Table: table, Next: next}
}

// HandleTriple implements rdf.TripleHandler.
func (r *Retyper) HandleTriple(t rdf.Triple) error {
	if lit, ok := t.O.(rdf.Literal); ok {
		if _, mapped := r.Table.Lookup(t.P.Value); mapped {
			r.relabelled.Add(1)
			if lit.Lang != "" {
				r.langDrops.Add(1)
			}
		}
	}
	return r.Next.HandleTriple(Retype(t, r.Table))
}

// Relabelled reports how many literals took a datatype from the table.
func (r *Retyper) Relabelled() int64 { return r.relabelled.Load() }

// LanguageDropped reports how many relabelled literals lost a language tag.
func (r *Retyper) LanguageDropped() int64 { return r.langDrops.Load() }
