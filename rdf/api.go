package rdf

import (
	"context"
	"fmt"
	"io"
	"strconv"
)

const (
	DefaultMaxDepth     = 256
	DefaultMaxLineBytes = 16 << 20
)

// TripleDecoder streams triples from an input. Next returns io.EOF once the
// input is exhausted.
type TripleDecoder interface {
	Next() (Triple, error)
	Err() error
	Close() error
}

// TripleEncoder streams triples to an output.
type TripleEncoder interface {
	Write(Triple) error
	Flush() error
	Close() error
}

// TripleHandler processes triples in push mode.
type TripleHandler interface {
	HandleTriple(Triple) error
}

// TripleHandlerFunc adapts a function to TripleHandler.
type TripleHandlerFunc func(Triple) error

// HandleTriple calls f(t).
func (f TripleHandlerFunc) HandleTriple(t Triple) error { return f(t) }

// Option configures decoder/encoder behavior.
type Option func(*Options)

// Options configures decoder/encoder behavior.
type Options struct {
	// Context provides cancellation for decoding work.
	Context context.Context
	// Base is the IRI relative references resolve against.
	Base string
	// BlankNodeScope prefixes every blank node minted for the document so
	// labels from different documents never collide when graphs are merged.
	BlankNodeScope string

	// Security limits for untrusted input
	MaxDepth     int
	MaxTriples   int64
	MaxLineBytes int

	// Prefixes are emitted by encoders that support them (Turtle).
	Prefixes map[string]string
}

func defaultOptions() Options {
	return Options{
		Context:      context.Background(),
		MaxDepth:     DefaultMaxDepth,
		MaxLineBytes: DefaultMaxLineBytes,
	}
}

func buildOptions(opts []Option) Options {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	if options.Context == nil {
		options.Context = context.Background()
	}
	return options
}

// OptContext sets the context for cancellation and timeouts.
func OptContext(ctx context.Context) Option {
	return func(opts *Options) {
		opts.Context = ctx
	}
}

// OptBase sets the base IRI.
func OptBase(base string) Option {
	return func(opts *Options) {
		opts.Base = base
	}
}

// OptBlankNodeScope sets the blank node scope of the document.
func OptBlankNodeScope(scope string) Option {
	return func(opts *Options) {
		opts.BlankNodeScope = scope
	}
}

// OptMaxDepth sets the maximum nesting depth limit.
func OptMaxDepth(maxDepth int) Option {
	return func(opts *Options) {
		opts.MaxDepth = maxDepth
	}
}

// OptMaxTriples sets the maximum number of triples to decode.
func OptMaxTriples(maxTriples int64) Option {
	return func(opts *Options) {
		opts.MaxTriples = maxTriples
	}
}

// OptMaxLineBytes sets the maximum line size for line-oriented formats.
func OptMaxLineBytes(maxBytes int) Option {
	return func(opts *Options) {
		opts.MaxLineBytes = maxBytes
	}
}

// OptPrefixes sets the prefix map used by encoders.
func OptPrefixes(prefixes map[string]string) Option {
	return func(opts *Options) {
		opts.Prefixes = prefixes
	}
}

type decoderFactory func(r io.Reader, opts Options) (TripleDecoder, error)

type encoderFactory func(w io.Writer, opts Options) (TripleEncoder, error)

var decoders = map[Format]decoderFactory{
	FormatRDFXML:   newRDFXMLDecoder,
	FormatTurtle:   newTurtleDecoder,
	FormatNTriples: newNTriplesDecoder,
	FormatJSONLD:   newJSONLDDecoder,
}

var encoders = map[Format]encoderFactory{
	FormatTurtle:   newTurtleEncoder,
	FormatNTriples: newNTriplesEncoder,
	FormatJSONLD:   newJSONLDEncoder,
}

// NewDecoder creates a decoder for the specified format.
func NewDecoder(r io.Reader, format Format, opts ...Option) (TripleDecoder, error) {
	factory, ok := decoders[format]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	options := buildOptions(opts)
	dec, err := factory(r, options)
	if err != nil {
		return nil, err
	}
	return &limitedDecoder{inner: dec, ctx: options.Context, max: options.MaxTriples}, nil
}

// NewEncoder creates an encoder for the specified format.
func NewEncoder(w io.Writer, format Format, opts ...Option) (TripleEncoder, error) {
	factory, ok := encoders[format]
	if !ok {
		return nil, fmt.Errorf("%w: %q (encoding)", ErrUnsupportedFormat, format)
	}
	return factory(w, buildOptions(opts))
}

// Parse decodes r and streams each triple to the handler.
// If ctx is nil, context.Background() is used.
func Parse(ctx context.Context, r io.Reader, format Format, handler TripleHandler, opts ...Option) error {
	if ctx == nil {
		ctx = context.Background()
	}
	opts = append(opts, OptContext(ctx))
	dec, err := NewDecoder(r, format, opts...)
	if err != nil {
		return err
	}
	defer dec.Close()

	for {
		t, err := dec.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := handler.HandleTriple(t); err != nil {
			return err
		}
	}
}

type limitedDecoder struct {
	inner TripleDecoder
	ctx   context.Context
	max   int64
	count int64
}

func (d *limitedDecoder) Next() (Triple, error) {
	if err := checkDecodeContext(d.ctx); err != nil {
		return Triple{}, err
	}
	t, err := d.inner.Next()
	if err != nil {
		return Triple{}, err
	}
	d.count++
	if d.max > 0 && d.count > d.max {
		return Triple{}, ErrTripleLimitExceeded
	}
	return t, nil
}

func (d *limitedDecoder) Err() error   { return d.inner.Err() }
func (d *limitedDecoder) Close() error { return d.inner.Close() }

func checkDecodeContext(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// blankNodes mints document-scoped blank node identifiers. Labels found in the
// source are mapped to fresh identifiers on first sight.
type blankNodes struct {
	scope  string
	labels map[string]string
	next   int
}

func newBlankNodes(scope string) *blankNodes {
	return &blankNodes{scope: scope, labels: make(map[string]string)}
}

func (b *blankNodes) fresh() BlankNode {
	b.next++
	id := "b" + strconv.Itoa(b.next)
	if b.scope != "" {
		id = b.scope + "_" + id
	}
	return BlankNode{ID: id}
}

func (b *blankNodes) labelled(label string) BlankNode {
	if id, ok := b.labels[label]; ok {
		return BlankNode{ID: id}
	}
	node := b.fresh()
	b.labels[label] = node.ID
	return node
}
