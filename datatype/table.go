// Package datatype loads the predicate-to-datatype table and applies it to
// literals during ingestion.
package datatype

import (
	"errors"
	"fmt"
	"sort"
)

// ErrSourceUnreadable is returned when a datatype table cannot be built from its source.
var ErrSourceUnreadable = errors.New("datatype: table source unreadable")

// SourceError describes why a table source could not be loaded.
type SourceError struct {
	Path   string
	Reason string
	Err    error
}

func (e *SourceError) Error() string {
	msg := fmt.Sprintf("datatype: cannot load table from %s: %s", e.Path, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SourceError) Unwrap() error { return e.Err }

// Is matches ErrSourceUnreadable.
func (e *SourceError) Is(target error) bool { return target == ErrSourceUnreadable }

// Row maps one predicate IRI to a datatype IRI.
type Row struct {
	Predicate string
	Datatype  string
}

// Table is an immutable predicate-to-datatype mapping. The zero value and a
// nil *Table are empty tables.
type Table struct {
	byPredicate map[string]string
	overridden  []string
	source      string
}

// NewTable builds a table from rows. When a predicate appears more than once
// the last row wins; such predicates are reported by Overridden.
func NewTable(rows []Row) *Table {
	t := &Table{byPredicate: make(map[string]string, len(rows))}
	seen := make(map[string]bool)
	for _, row := range rows {
		if _, ok := t.byPredicate[row.Predicate]; ok && !seen[row.Predicate] {
			seen[row.Predicate] = true
			t.overridden = append(t.overridden, row.Predicate)
		}
		t.byPredicate[row.Predicate] = row.Datatype
	}
	sort.Strings(t.overridden)
	return t
}

// Lookup returns the datatype mapped to predicate.
func (t *Table) Lookup(predicate string) (string, bool) {
	if t == nil {
		return "", false
	}
	dt, ok := t.byPredicate[predicate]
	return dt, ok
}

// Len returns the number of mapped predicates.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.byPredicate)
}

// Overridden lists predicates that had more than one row in the source.
func (t *Table) Overridden() []string {
	if t == nil {
		return nil
	}
	return append([]string(nil), t.overridden...)
}

// Source returns the path the table was loaded from, if any.
func (t *Table) Source() string {
	if t == nil {
		return ""
	}
	return t.source
}
