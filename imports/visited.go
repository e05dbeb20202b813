package imports

import (
	"sort"

	"github.com/puzpuzpuz/xsync/v4"
)

// VisitedSet tracks claimed import targets. It is safe for concurrent use.
type VisitedSet struct {
	targets *xsync.Map[string, struct{}]
}

// NewVisitedSet returns an empty set.
func NewVisitedSet() *VisitedSet {
	return &VisitedSet{targets: xsync.NewMap[string, struct{}]()}
}

// Claim marks target as visited and reports whether the caller is the first
// to do so. Check and insert happen as one step.
func (v *VisitedSet) Claim(target string) bool {
	_, loaded := v.targets.LoadOrStore(target, struct{}{})
	return !loaded
}

// Has reports whether target has been claimed.
func (v *VisitedSet) Has(target string) bool {
	_, ok := v.targets.Load(target)
	return ok
}

// Len returns the number of claimed targets.
func (v *VisitedSet) Len() int { return v.targets.Size() }

// Targets returns the claimed targets in sorted order.
func (v *VisitedSet) Targets() []string {
	out := make([]string, 0, v.targets.Size())
	v.targets.Range(func(target string, _ struct{}) bool {
		out = append(out, target)
		return true
	})
	sort.Strings(out)
	return out
}
