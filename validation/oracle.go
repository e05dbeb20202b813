// Package validation hands merged graphs to an external SHACL engine and
// reads back its verdict and diagnostics.
package validation

import (
	"context"
	"errors"

	"github.com/geoknoesis/cimshacl/rdf"
)

// ErrOracleFailed is returned when the engine could not produce a verdict.
var ErrOracleFailed = errors.New("validation: oracle failed")

// Verdict is the engine's answer for one data graph against one shapes graph.
type Verdict struct {
	Conforms    bool
	Diagnostics *rdf.Graph
	Text        string
}

// Oracle checks data against shapes. Implementations do not modify either graph.
type Oracle interface {
	Validate(ctx context.Context, data, shapes *rdf.Graph) (*Verdict, error)
}

// OracleFunc adapts a function to Oracle.
type OracleFunc func(ctx context.Context, data, shapes *rdf.Graph) (*Verdict, error)

// Validate calls f(ctx, data, shapes).
func (f OracleFunc) Validate(ctx context.Context, data, shapes *rdf.Graph) (*Verdict, error) {
	return f(ctx, data, shapes)
}

// Conforms reads sh:conforms from the validation report in diag. ok is false
// when the graph carries no report.
func Conforms(diag *rdf.Graph) (conforms, ok bool) {
	if diag == nil {
		return false, false
	}
	conformsIRI := rdf.IRI{Value: rdf.SHACLConforms}
	for _, t := range diag.Match(nil, &conformsIRI, nil) {
		if lit, isLit := t.O.(rdf.Literal); isLit {
			return lit.Lexical == "true" || lit.Lexical == "1", true
		}
	}
	return false, false
}
