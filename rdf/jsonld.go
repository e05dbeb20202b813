package rdf

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/piprate/json-gold/ld"
)

// newJSONLDDecoder converts the document to N-Quads with json-gold and then
// reads the result through the N-Triples decoder. Named graphs are folded into
// the default graph.
func newJSONLDDecoder(r io.Reader, opts Options) (TripleDecoder, error) {
	if err := checkDecodeContext(opts.Context); err != nil {
		return nil, err
	}
	doc, err := ld.DocumentFromReader(r)
	if err != nil {
		return nil, &ParseError{Format: FormatJSONLD, Offset: -1, Err: err}
	}
	proc := ld.NewJsonLdProcessor()
	result, err := proc.ToRDF(doc, ld.NewJsonLdOptions(opts.Base))
	if err != nil {
		return nil, &ParseError{Format: FormatJSONLD, Offset: -1, Err: err}
	}
	dataset, ok := result.(*ld.RDFDataset)
	if !ok {
		return nil, fmt.Errorf("jsonld: unexpected ToRDF result %T", result)
	}
	serializer := &ld.NQuadRDFSerializer{}
	serialized, err := serializer.Serialize(dataset)
	if err != nil {
		return nil, err
	}
	nquads, ok := serialized.(string)
	if !ok {
		return nil, fmt.Errorf("jsonld: unexpected N-Quads result %T", serialized)
	}
	inner, err := newNTriplesDecoder(strings.NewReader(nquads), opts)
	if err != nil {
		return nil, err
	}
	return &jsonldDecoder{inner: inner}, nil
}

type jsonldDecoder struct {
	inner TripleDecoder
}

func (d *jsonldDecoder) Next() (Triple, error) {
	t, err := d.inner.Next()
	if err != nil && err != io.EOF {
		return Triple{}, WithEntry(err, FormatJSONLD, "")
	}
	return t, err
}

func (d *jsonldDecoder) Err() error   { return d.inner.Err() }
func (d *jsonldDecoder) Close() error { return d.inner.Close() }

// jsonldEncoder buffers triples and renders them as one JSON-LD document on
// Close. Prefixes, when set, become the compaction context.
type jsonldEncoder struct {
	w        io.Writer
	opts     Options
	nt       bytes.Buffer
	inner    TripleEncoder
	err      error
	finished bool
}

func newJSONLDEncoder(w io.Writer, opts Options) (TripleEncoder, error) {
	e := &jsonldEncoder{w: w, opts: opts}
	inner, err := newNTriplesEncoder(&e.nt, opts)
	if err != nil {
		return nil, err
	}
	e.inner = inner
	return e, nil
}

func (e *jsonldEncoder) Write(t Triple) error {
	if e.err != nil {
		return e.err
	}
	if e.finished {
		return fmt.Errorf("jsonld: write after close")
	}
	if err := e.inner.Write(t); err != nil {
		e.err = err
	}
	return e.err
}

// Flush is a no-op; the document is only complete once Close is called.
func (e *jsonldEncoder) Flush() error { return e.err }

func (e *jsonldEncoder) Close() error {
	if e.err != nil || e.finished {
		return e.err
	}
	e.finished = true
	if err := e.inner.Close(); err != nil {
		e.err = err
		return err
	}
	proc := ld.NewJsonLdProcessor()
	goldOpts := ld.NewJsonLdOptions(e.opts.Base)
	goldOpts.Format = "application/n-quads"
	out, err := proc.FromRDF(e.nt.String(), goldOpts)
	if err != nil {
		e.err = fmt.Errorf("jsonld: %w", err)
		return e.err
	}
	if len(e.opts.Prefixes) > 0 {
		context := make(map[string]interface{}, len(e.opts.Prefixes))
		for prefix, namespace := range e.opts.Prefixes {
			context[prefix] = namespace
		}
		out, err = proc.Compact(out, map[string]interface{}{"@context": context}, ld.NewJsonLdOptions(e.opts.Base))
		if err != nil {
			e.err = fmt.Errorf("jsonld: %w", err)
			return e.err
		}
	}
	enc := json.NewEncoder(e.w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		e.err = err
	}
	return e.err
}
