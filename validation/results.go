package validation

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/geoknoesis/cimshacl/rdf"
)

const (
	shResultSeverity            = rdf.SHACLNamespace + "resultSeverity"
	shFocusNode                 = rdf.SHACLNamespace + "focusNode"
	shResultPath                = rdf.SHACLNamespace + "resultPath"
	shValue                     = rdf.SHACLNamespace + "value"
	shResultMessage             = rdf.SHACLNamespace + "resultMessage"
	shSourceShape               = rdf.SHACLNamespace + "sourceShape"
	shSourceConstraintComponent = rdf.SHACLNamespace + "sourceConstraintComponent"
)

// Result is one sh:ValidationResult flattened into a report row.
type Result struct {
	Node        rdf.Term
	Severity    string
	Focus       rdf.Term
	Path        rdf.Term
	Value       rdf.Term
	Messages    []string
	SourceShape rdf.Term
	Constraint  rdf.Term
}

// SeverityName is the local name of the severity IRI, e.g. "Violation".
func (r Result) SeverityName() string {
	if i := strings.LastIndexAny(r.Severity, "#/"); i >= 0 {
		return r.Severity[i+1:]
	}
	return r.Severity
}

// Results extracts one row per sh:ValidationResult in diag, ordered by
// focus node, path and source shape. The graph is read once.
func Results(diag *rdf.Graph) []Result {
	if diag == nil {
		return nil
	}
	bySubject := make(map[string][]rdf.Triple)
	var nodes []rdf.Term
	for t := range diag.All() {
		key := termKey(t.S)
		bySubject[key] = append(bySubject[key], t)
		if iri, ok := t.O.(rdf.IRI); ok && t.P.Value == rdf.RDFType && iri.Value == rdf.SHACLValResult {
			nodes = append(nodes, t.S)
		}
	}

	out := make([]Result, 0, len(nodes))
	for _, node := range nodes {
		out = append(out, resultOf(node, bySubject[termKey(node)]))
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if ka, kb := termKey(a.Focus), termKey(b.Focus); ka != kb {
			return ka < kb
		}
		if ka, kb := termKey(a.Path), termKey(b.Path); ka != kb {
			return ka < kb
		}
		if ka, kb := termKey(a.SourceShape), termKey(b.SourceShape); ka != kb {
			return ka < kb
		}
		return strings.Join(a.Messages, "\n") < strings.Join(b.Messages, "\n")
	})
	return out
}

// resultOf builds a row from the triples of one result node. Where a
// predicate repeats, the smallest object wins so output is deterministic.
func resultOf(node rdf.Term, triples []rdf.Triple) Result {
	r := Result{Node: node}
	keep := func(dst *rdf.Term, o rdf.Term) {
		if *dst == nil || termKey(o) < termKey(*dst) {
			*dst = o
		}
	}
	var severity rdf.Term
	for _, t := range triples {
		switch t.P.Value {
		case shFocusNode:
			keep(&r.Focus, t.O)
		case shResultPath:
			keep(&r.Path, t.O)
		case shValue:
			keep(&r.Value, t.O)
		case shSourceShape:
			keep(&r.SourceShape, t.O)
		case shSourceConstraintComponent:
			keep(&r.Constraint, t.O)
		case shResultSeverity:
			keep(&severity, t.O)
		case shResultMessage:
			if lit, ok := t.O.(rdf.Literal); ok {
				r.Messages = append(r.Messages, lit.Lexical)
			} else {
				r.Messages = append(r.Messages, t.O.String())
			}
		}
	}
	if severity != nil {
		r.Severity = severity.String()
	}
	sort.Strings(r.Messages)
	return r
}

// CountBySeverity tallies results per severity local name.
func CountBySeverity(results []Result) map[string]int {
	counts := make(map[string]int)
	for _, r := range results {
		counts[r.SeverityName()]++
	}
	return counts
}

// WriteText renders results in a plain, line oriented form.
func WriteText(w io.Writer, conforms bool, results []Result) error {
	if _, err := fmt.Fprintf(w, "Validation Report\nConforms: %t\n", conforms); err != nil {
		return err
	}
	if len(results) > 0 {
		if _, err := fmt.Fprintf(w, "Results (%d):\n", len(results)); err != nil {
			return err
		}
	}
	for _, r := range results {
		lines := []string{
			fmt.Sprintf("%s: %s", r.SeverityName(), termText(r.Constraint)),
			"\tFocus Node: " + termText(r.Focus),
		}
		if r.Path != nil {
			lines = append(lines, "\tResult Path: "+termText(r.Path))
		}
		if r.Value != nil {
			lines = append(lines, "\tValue Node: "+termText(r.Value))
		}
		lines = append(lines, "\tSource Shape: "+termText(r.SourceShape))
		for _, msg := range r.Messages {
			lines = append(lines, "\tMessage: "+msg)
		}
		if _, err := io.WriteString(w, strings.Join(lines, "\n")+"\n"); err != nil {
			return err
		}
	}
	return nil
}

// Prefixes compact diagnostics output.
var Prefixes = map[string]string{
	"sh":  rdf.SHACLNamespace,
	"rdf": rdf.RDFNamespace,
	"xsd": rdf.XSDNamespace,
}

// WriteDiagnostics serializes the diagnostics graph. JSON-LD is compacted
// with Prefixes.
func WriteDiagnostics(w io.Writer, v *Verdict, format rdf.Format) error {
	diag := v.Diagnostics
	if diag == nil {
		diag = rdf.NewGraph()
	}
	return rdf.WriteGraph(w, diag, format, rdf.OptPrefixes(Prefixes))
}

func termKey(t rdf.Term) string {
	if t == nil {
		return ""
	}
	return t.String()
}

func termText(t rdf.Term) string {
	switch v := t.(type) {
	case nil:
		return "-"
	case rdf.Literal:
		return v.Lexical
	default:
		return v.String()
	}
}
