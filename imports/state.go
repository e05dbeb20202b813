package imports

import "github.com/geoknoesis/cimshacl/rdf"

// State is the resolution state of one import target.
type State int

const (
	StatePending State = iota
	StateFetching
	StateParsed
	StateVisited
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateFetching:
		return "fetching"
	case StateParsed:
		return "parsed"
	case StateVisited:
		return "visited"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool { return s == StateVisited || s == StateFailed }

// Document is the record of one resolved target.
type Document struct {
	// Target is the canonical identity: an absolute path or a URL without fragment.
	Target string
	// Parent is the document whose owl:imports led here; empty for roots.
	Parent  string
	State   State
	Format  rdf.Format
	Triples int
	// Imports lists the canonical targets this document imports.
	Imports []string
	Err     error
}
