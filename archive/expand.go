// Package archive flattens nested zip and gzip containers into a stream of
// leaf entries.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"

	log "github.com/geoknoesis/cimshacl/internal/logging"
	"github.com/geoknoesis/cimshacl/rdf"
)

// DefaultExtensions are the zip-format container extensions. ".gz" is always
// treated as a single-member wrapper.
var DefaultExtensions = []string{".zip", ".cimx"}

// Entry is one leaf produced by expansion.
type Entry struct {
	// Name is the member name inside its immediate container.
	Name string
	// Path is the full nesting chain joined with "!/".
	Path string
	// Depth is the number of containers enclosing the entry.
	Depth   int
	Content []byte
}

// Limits bound expansion of untrusted input.
type Limits struct {
	MaxDepth      int
	MaxEntryBytes int64
	// MaxTotalBytes caps the inflated bytes of one top-level input.
	MaxTotalBytes int64
}

// DefaultLimits apply to any zero field of Expander.Limits.
var DefaultLimits = Limits{
	MaxDepth:      8,
	MaxEntryBytes: 1 << 30,
	MaxTotalBytes: 8 << 30,
}

func (l Limits) withDefaults() Limits {
	if l.MaxDepth <= 0 {
		l.MaxDepth = DefaultLimits.MaxDepth
	}
	if l.MaxEntryBytes <= 0 {
		l.MaxEntryBytes = DefaultLimits.MaxEntryBytes
	}
	if l.MaxTotalBytes <= 0 {
		l.MaxTotalBytes = DefaultLimits.MaxTotalBytes
	}
	return l
}

// Stats summarizes one expansion.
type Stats struct {
	Leaves     int
	Skipped    int
	Failed     int
	Containers int
	Bytes      int64
}

// Add accumulates other into s.
func (s *Stats) Add(other Stats) {
	s.Leaves += other.Leaves
	s.Skipped += other.Skipped
	s.Failed += other.Failed
	s.Containers += other.Containers
	s.Bytes += other.Bytes
}

// Expander walks containers depth first and hands every accepted leaf to a
// visit function. Members are read one at a time; a container's bytes are
// released once its members have been visited.
type Expander struct {
	// Extensions lists zip-format container extensions. Nil means DefaultExtensions.
	Extensions []string
	Limits     Limits
	// Accept reports whether a leaf is worth visiting. Nil accepts names with
	// a recognized RDF extension.
	Accept func(name string) bool
	// OnEntryError decides what happens to a failing entry: nil skips it and
	// continues, an error aborts the expansion. A nil hook aborts.
	OnEntryError func(*EntryError) error
}

// ExpandFile expands the file at filePath. Zip inputs are read through the
// file rather than loaded into memory.
func (x *Expander) ExpandFile(ctx context.Context, filePath string, visit func(Entry) error) (Stats, error) {
	w := x.walker(ctx, visit)
	name := filepath.Base(filePath)
	k := x.kind(name)
	if k == kindSkip {
		w.skip(filePath)
		return w.stats, nil
	}

	f, err := os.Open(filePath)
	if err != nil {
		return w.stats, fmt.Errorf("archive: open %s: %w", filePath, err)
	}
	defer f.Close()

	switch k {
	case kindZip:
		info, err := f.Stat()
		if err != nil {
			return w.stats, fmt.Errorf("archive: stat %s: %w", filePath, err)
		}
		zr, err := zip.NewReader(f, info.Size())
		if err != nil {
			return w.stats, w.fail(&EntryError{Path: filePath, Err: ErrCorrupt, Cause: err})
		}
		w.stats.Containers++
		containersOpened.Inc()
		err = w.members(zr, filePath, 0)
		return w.stats, err
	case kindGzip:
		err = w.gunzip(f, name, filePath, 0)
		return w.stats, err
	default:
		content, ee := w.read(f, filePath)
		if ee != nil {
			return w.stats, w.fail(ee)
		}
		err = w.leaf(Entry{Name: name, Path: filePath, Content: content})
		return w.stats, err
	}
}

// Expand expands an in-memory input named name.
func (x *Expander) Expand(ctx context.Context, name string, content []byte, visit func(Entry) error) (Stats, error) {
	w := x.walker(ctx, visit)
	err := w.dispatch(x.kind(name), path.Base(name), name, 0, content)
	return w.stats, err
}

type entryKind int

const (
	kindSkip entryKind = iota
	kindLeaf
	kindZip
	kindGzip
)

func (x *Expander) kind(name string) entryKind {
	ext := strings.ToLower(path.Ext(name))
	if ext == ".gz" {
		return kindGzip
	}
	extensions := x.Extensions
	if extensions == nil {
		extensions = DefaultExtensions
	}
	if slices.ContainsFunc(extensions, func(e string) bool { return strings.EqualFold(e, ext) }) {
		return kindZip
	}
	accept := x.Accept
	if accept == nil {
		accept = func(name string) bool {
			_, ok := rdf.FormatForPath(name)
			return ok
		}
	}
	if accept(name) {
		return kindLeaf
	}
	return kindSkip
}

type walker struct {
	x      *Expander
	ctx    context.Context
	visit  func(Entry) error
	limits Limits
	stats  Stats
	halted bool
}

func (x *Expander) walker(ctx context.Context, visit func(Entry) error) *walker {
	return &walker{x: x, ctx: ctx, visit: visit, limits: x.Limits.withDefaults()}
}

func (w *walker) members(zr *zip.Reader, parent string, depth int) error {
	for _, f := range zr.File {
		if err := w.ctx.Err(); err != nil {
			return err
		}
		if w.halted {
			return nil
		}
		if f.FileInfo().IsDir() {
			continue
		}
		if err := w.member(f, parent+"!/"+f.Name, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) member(f *zip.File, entryPath string, depth int) error {
	k := w.x.kind(f.Name)
	if k == kindSkip {
		w.skip(entryPath)
		return nil
	}
	if f.UncompressedSize64 > uint64(w.limits.MaxEntryBytes) {
		return w.fail(&EntryError{
			Path: entryPath,
			Err:  ErrSizeExceeded,
			Cause: fmt.Errorf("declares %s, limit %s",
				humanize.IBytes(f.UncompressedSize64), humanize.IBytes(uint64(w.limits.MaxEntryBytes))),
		})
	}
	rc, err := f.Open()
	if err != nil {
		return w.fail(&EntryError{Path: entryPath, Err: ErrCorrupt, Cause: err})
	}
	content, ee := w.read(rc, entryPath)
	rc.Close()
	if ee != nil {
		return w.fail(ee)
	}
	return w.dispatch(k, f.Name, entryPath, depth, content)
}

// dispatch handles an entry whose bytes are already in memory.
func (w *walker) dispatch(k entryKind, name, entryPath string, depth int, content []byte) error {
	switch k {
	case kindZip:
		if depth+1 > w.limits.MaxDepth {
			return w.fail(&EntryError{Path: entryPath, Err: ErrDepthExceeded})
		}
		zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
		if err != nil {
			return w.fail(&EntryError{Path: entryPath, Err: ErrCorrupt, Cause: err})
		}
		w.stats.Containers++
		containersOpened.Inc()
		return w.members(zr, entryPath, depth)
	case kindGzip:
		return w.gunzip(bytes.NewReader(content), name, entryPath, depth)
	case kindLeaf:
		return w.leaf(Entry{Name: name, Path: entryPath, Depth: depth, Content: content})
	default:
		w.skip(entryPath)
		return nil
	}
}

func (w *walker) gunzip(r io.Reader, name, entryPath string, depth int) error {
	if depth+1 > w.limits.MaxDepth {
		return w.fail(&EntryError{Path: entryPath, Err: ErrDepthExceeded})
	}
	innerName := strings.TrimSuffix(path.Base(name), path.Ext(name))
	innerPath := entryPath + "!/" + innerName
	k := w.x.kind(innerName)
	if k == kindSkip {
		w.skip(innerPath)
		return nil
	}
	zr, err := gzip.NewReader(r)
	if err != nil {
		return w.fail(&EntryError{Path: entryPath, Err: ErrCorrupt, Cause: err})
	}
	defer zr.Close()
	w.stats.Containers++
	containersOpened.Inc()

	content, ee := w.read(zr, innerPath)
	if ee != nil {
		return w.fail(ee)
	}
	return w.dispatch(k, innerName, innerPath, depth+1, content)
}

// read inflates r within the per-entry and per-input limits.
func (w *walker) read(r io.Reader, entryPath string) ([]byte, *EntryError) {
	limit := w.limits.MaxEntryBytes
	remaining := w.limits.MaxTotalBytes - w.stats.Bytes
	total := remaining < limit
	if total {
		limit = remaining
	}
	content, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, &EntryError{Path: entryPath, Err: ErrCorrupt, Cause: err}
	}
	if int64(len(content)) > limit {
		if total {
			w.halted = true
			return nil, &EntryError{
				Path:  entryPath,
				Err:   ErrSizeExceeded,
				Cause: fmt.Errorf("input inflates past %s", humanize.IBytes(uint64(w.limits.MaxTotalBytes))),
			}
		}
		return nil, &EntryError{
			Path:  entryPath,
			Err:   ErrSizeExceeded,
			Cause: fmt.Errorf("member inflates past %s", humanize.IBytes(uint64(limit))),
		}
	}
	w.stats.Bytes += int64(len(content))
	inflatedBytes.Add(float64(len(content)))
	return content, nil
}

func (w *walker) leaf(e Entry) error {
	w.stats.Leaves++
	entriesTotal.WithLabelValues("leaf").Inc()
	return w.visit(e)
}

func (w *walker) skip(entryPath string) {
	w.stats.Skipped++
	entriesTotal.WithLabelValues("skipped").Inc()
	log.Debug().Str("entry", entryPath).Msg("skipping unsupported entry")
}

func (w *walker) fail(ee *EntryError) error {
	w.stats.Failed++
	entriesTotal.WithLabelValues(ee.Reason()).Inc()
	if w.x.OnEntryError == nil {
		return ee
	}
	return w.x.OnEntryError(ee)
}
