package rdf

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"
)

// turtleEncoder buffers triples and writes them grouped by subject on Close.
type turtleEncoder struct {
	writer   *bufio.Writer
	prefixes map[string]string
	triples  []Triple
	err      error
	finished bool
}

func newTurtleEncoder(w io.Writer, opts Options) (TripleEncoder, error) {
	return &turtleEncoder{writer: bufio.NewWriter(w), prefixes: opts.Prefixes}, nil
}

func (e *turtleEncoder) Write(t Triple) error {
	if e.err != nil {
		return e.err
	}
	if e.finished {
		return fmt.Errorf("turtle: write after close")
	}
	if !t.IsValid() {
		return fmt.Errorf("turtle: missing statement fields")
	}
	e.triples = append(e.triples, t)
	return nil
}

// Flush is a no-op; grouping requires every triple, so output happens on Close.
func (e *turtleEncoder) Flush() error { return e.err }

func (e *turtleEncoder) Close() error {
	if e.err != nil || e.finished {
		return e.err
	}
	e.finished = true
	e.err = e.writeAll()
	return e.err
}

func (e *turtleEncoder) writeAll() error {
	names := make([]string, 0, len(e.prefixes))
	for prefix := range e.prefixes {
		names = append(names, prefix)
	}
	sort.Strings(names)
	for _, prefix := range names {
		fmt.Fprintf(e.writer, "@prefix %s: <%s> .\n", prefix, e.prefixes[prefix])
	}
	if len(names) > 0 && len(e.triples) > 0 {
		e.writer.WriteByte('\n')
	}

	sortTriples(e.triples)
	for i := 0; i < len(e.triples); {
		subject := e.triples[i].S
		e.writer.WriteString(e.term(subject))
		j := i
		for ; j < len(e.triples) && termEqual(e.triples[j].S, subject); j++ {
			t := e.triples[j]
			switch {
			case j == i:
				fmt.Fprintf(e.writer, " %s %s", e.predicate(t.P), e.term(t.O))
			case t.P == e.triples[j-1].P:
				fmt.Fprintf(e.writer, ", %s", e.term(t.O))
			default:
				fmt.Fprintf(e.writer, " ;\n    %s %s", e.predicate(t.P), e.term(t.O))
			}
		}
		e.writer.WriteString(" .\n")
		i = j
	}
	return e.writer.Flush()
}

func (e *turtleEncoder) predicate(p IRI) string {
	if p.Value == RDFType {
		return "a"
	}
	return e.term(p)
}

func (e *turtleEncoder) term(t Term) string {
	switch v := t.(type) {
	case IRI:
		if name, ok := e.compact(v.Value); ok {
			return name
		}
		return renderIRI(v)
	case Literal:
		if v.Lang == "" && (v.Datatype.Value == "" || v.Datatype.Value == XSDString) {
			return quoteLexical(v.Lexical)
		}
		if v.Lang == "" {
			if name, ok := e.compact(v.Datatype.Value); ok {
				return quoteLexical(v.Lexical) + "^^" + name
			}
		}
		return renderTerm(v)
	default:
		return renderTerm(t)
	}
}

// compact returns a prefixed name for iri when its local part needs no escaping.
func (e *turtleEncoder) compact(iri string) (string, bool) {
	best, bestNS := "", ""
	for prefix, namespace := range e.prefixes {
		if strings.HasPrefix(iri, namespace) && len(namespace) > len(bestNS) {
			best, bestNS = prefix, namespace
		}
	}
	if bestNS == "" {
		return "", false
	}
	local := iri[len(bestNS):]
	for i := 0; i < len(local); i++ {
		ch := local[i]
		if !(ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || isDigit(ch) || ch == '_' || ch == '-' && i > 0 || ch == '.' && i > 0 && i < len(local)-1) {
			return "", false
		}
	}
	return best + ":" + local, true
}

func termEqual(a, b Term) bool {
	return renderTerm(a) == renderTerm(b)
}

// sortTriples orders triples by subject, predicate and object rendering.
func sortTriples(triples []Triple) {
	sort.Slice(triples, func(i, j int) bool {
		a, b := triples[i], triples[j]
		if sa, sb := renderTerm(a.S), renderTerm(b.S); sa != sb {
			return sa < sb
		}
		if a.P.Value != b.P.Value {
			return a.P.Value < b.P.Value
		}
		return renderTerm(a.O) < renderTerm(b.O)
	})
}
