package rdf

import (
	"fmt"
	"strings"
)

// TermKind identifies RDF term types.
type TermKind uint8

const (
	// TermIRI represents an IRI term.
	TermIRI TermKind = iota
	// TermBlankNode represents a blank node term.
	TermBlankNode
	// TermLiteral represents a literal term.
	TermLiteral
)

// Term is a value that can appear in RDF statements.
type Term interface {
	Kind() TermKind
	String() string
}

// IRI represents an RDF IRI.
type IRI struct {
	// Value is the IRI string value.
	Value string
}

// Kind returns TermIRI.
func (i IRI) Kind() TermKind { return TermIRI }

// String returns the IRI value.
func (i IRI) String() string { return i.Value }

// BlankNode represents an RDF blank node.
type BlankNode struct {
	// ID is the blank node identifier, unique within the graph it was parsed into.
	ID string
}

// Kind returns TermBlankNode.
func (b BlankNode) Kind() TermKind { return TermBlankNode }

// String returns the blank node identifier prefixed with "_:".
func (b BlankNode) String() string { return "_:" + b.ID }

// Literal represents an RDF literal.
type Literal struct {
	// Lexical is the lexical form of the literal.
	Lexical string
	// Datatype is the datatype IRI, if any.
	Datatype IRI
	// Lang is the language tag, if any.
	Lang string
}

// Kind returns TermLiteral.
func (l Literal) Kind() TermKind { return TermLiteral }

// String returns a string representation of the literal.
func (l Literal) String() string {
	if l.Lang != "" {
		return fmt.Sprintf("%q@%s", l.Lexical, l.Lang)
	}
	if l.Datatype.Value != "" {
		return fmt.Sprintf("%q^^<%s>", l.Lexical, l.Datatype.Value)
	}
	return fmt.Sprintf("%q", l.Lexical)
}

// EffectiveDatatype returns the datatype the literal denotes under RDF 1.1:
// rdf:langString for tagged literals and xsd:string for plain ones.
func (l Literal) EffectiveDatatype() IRI {
	if l.Lang != "" {
		return IRI{Value: RDFLangString}
	}
	if l.Datatype.Value == "" {
		return IRI{Value: XSDString}
	}
	return l.Datatype
}

// Triple is an RDF triple.
type Triple struct {
	// S is the subject, an IRI or a blank node.
	S Term
	// P is the predicate.
	P IRI
	// O is the object.
	O Term
}

// String renders the triple as an N-Triples statement without the trailing newline.
func (t Triple) String() string {
	return renderTerm(t.S) + " " + renderIRI(t.P) + " " + renderTerm(t.O) + " ."
}

// Key returns the canonical identity of the triple. Two triples with equal keys
// denote the same RDF statement: plain literals and xsd:string literals compare
// equal and language tags compare case-insensitively.
func (t Triple) Key() string {
	var b strings.Builder
	b.Grow(len(t.P.Value) + 64)
	writeKeyTerm(&b, t.S)
	b.WriteByte(' ')
	b.WriteString(renderIRI(t.P))
	b.WriteByte(' ')
	writeKeyTerm(&b, t.O)
	return b.String()
}

// IsValid reports whether the triple has a usable subject, predicate and object.
func (t Triple) IsValid() bool {
	if t.S == nil || t.O == nil || t.P.Value == "" {
		return false
	}
	return t.S.Kind() != TermLiteral
}

func writeKeyTerm(b *strings.Builder, term Term) {
	lit, ok := term.(Literal)
	if !ok {
		b.WriteString(renderTerm(term))
		return
	}
	b.WriteString(quoteLexical(lit.Lexical))
	if lit.Lang != "" {
		b.WriteByte('@')
		b.WriteString(strings.ToLower(lit.Lang))
		return
	}
	b.WriteString("^^")
	b.WriteString(renderIRI(lit.EffectiveDatatype()))
}
