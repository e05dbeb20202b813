package rdf

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ntDecoder reads N-Triples line by line. A fourth graph term, as produced by
// N-Quads serializers, is accepted and folded into the default graph.
type ntDecoder struct {
	reader  *bufio.Reader
	blanks  *blankNodes
	maxLine int
	line    int
	offset  int64
	err     error
}

func newNTriplesDecoder(r io.Reader, opts Options) (TripleDecoder, error) {
	return &ntDecoder{
		reader:  bufio.NewReader(r),
		blanks:  newBlankNodes(opts.BlankNodeScope),
		maxLine: opts.MaxLineBytes,
	}, nil
}

func (d *ntDecoder) Next() (Triple, error) {
	if d.err != nil {
		return Triple{}, d.err
	}
	for {
		raw, err := d.readLine()
		if err != nil {
			if err != io.EOF {
				d.err = err
			}
			return Triple{}, err
		}
		d.line++
		start := d.offset
		d.offset += int64(len(raw))
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		triple, err := d.parseLine(line)
		if err != nil {
			d.err = wrapParseError(FormatNTriples, d.line, 0, start, err)
			return Triple{}, d.err
		}
		return triple, nil
	}
}

func (d *ntDecoder) Err() error   { return d.err }
func (d *ntDecoder) Close() error { return nil }

func (d *ntDecoder) readLine() (string, error) {
	var b strings.Builder
	for {
		chunk, isPrefix, err := d.reader.ReadLine()
		if err != nil {
			if err == io.EOF && b.Len() > 0 {
				return b.String(), nil
			}
			return "", err
		}
		b.Write(chunk)
		if d.maxLine > 0 && b.Len() > d.maxLine {
			return "", &ParseError{Format: FormatNTriples, Line: d.line + 1, Offset: d.offset, Err: ErrLineTooLong}
		}
		if !isPrefix {
			b.WriteByte('\n')
			return b.String(), nil
		}
	}
}

func (d *ntDecoder) parseLine(line string) (Triple, error) {
	cursor := &ntCursor{input: line, blanks: d.blanks}
	subject, err := cursor.parseTerm(false)
	if err != nil {
		return Triple{}, err
	}
	predicate, err := cursor.parseIRI()
	if err != nil {
		return Triple{}, err
	}
	object, err := cursor.parseTerm(true)
	if err != nil {
		return Triple{}, err
	}
	cursor.skipWS()
	if cursor.pos < len(cursor.input) && cursor.input[cursor.pos] != '.' {
		if _, err := cursor.parseTerm(false); err != nil {
			return Triple{}, err
		}
	}
	if !cursor.consume('.') {
		return Triple{}, cursor.errorf("expected '.' at end of statement")
	}
	cursor.skipWS()
	if cursor.pos < len(cursor.input) && cursor.input[cursor.pos] != '#' {
		return Triple{}, cursor.errorf("unexpected content after '.'")
	}
	return Triple{S: subject, P: predicate, O: object}, nil
}

type ntCursor struct {
	input  string
	pos    int
	blanks *blankNodes
}

func (c *ntCursor) skipWS() {
	for c.pos < len(c.input) {
		switch c.input[c.pos] {
		case ' ', '\t', '\r', '\n':
			c.pos++
		default:
			return
		}
	}
}

func (c *ntCursor) consume(ch byte) bool {
	c.skipWS()
	if c.pos < len(c.input) && c.input[c.pos] == ch {
		c.pos++
		return true
	}
	return false
}

func (c *ntCursor) parseTerm(allowLiteral bool) (Term, error) {
	c.skipWS()
	if c.pos >= len(c.input) {
		return nil, c.errorf("unexpected end of line")
	}
	switch {
	case c.input[c.pos] == '<':
		return c.parseIRI()
	case strings.HasPrefix(c.input[c.pos:], "_:"):
		return c.parseBlankNode()
	case c.input[c.pos] == '"':
		if !allowLiteral {
			return nil, c.errorf("literal not allowed here")
		}
		return c.parseLiteral()
	default:
		return nil, c.errorf("unexpected token %q", c.input[c.pos])
	}
}

func (c *ntCursor) parseIRI() (IRI, error) {
	if !c.consume('<') {
		return IRI{}, c.errorf("expected IRI")
	}
	var b strings.Builder
	for c.pos < len(c.input) {
		ch := c.input[c.pos]
		switch ch {
		case '>':
			c.pos++
			return IRI{Value: b.String()}, nil
		case '\\':
			r, width, err := decodeUnicodeEscape(c.input[c.pos:])
			if err != nil {
				return IRI{}, c.errorf("%v", err)
			}
			b.WriteRune(r)
			c.pos += width
		case ' ', '\t', '\n', '"', '{', '}', '|', '^', '`':
			return IRI{}, c.errorf("invalid character %q in IRI", ch)
		default:
			b.WriteByte(ch)
			c.pos++
		}
	}
	return IRI{}, c.errorf("unterminated IRI")
}

func (c *ntCursor) parseBlankNode() (BlankNode, error) {
	c.pos += 2
	start := c.pos
	for c.pos < len(c.input) && !isTermDelimiter(c.input[c.pos]) {
		c.pos++
	}
	// A label may contain '.', but never end with one.
	for c.pos > start && c.input[c.pos-1] == '.' {
		c.pos--
	}
	if start == c.pos {
		return BlankNode{}, c.errorf("blank node id missing")
	}
	return c.blanks.labelled(c.input[start:c.pos]), nil
}

func (c *ntCursor) parseLiteral() (Literal, error) {
	c.pos++ // opening quote
	var b strings.Builder
	closed := false
	for c.pos < len(c.input) {
		ch := c.input[c.pos]
		if ch == '"' {
			c.pos++
			closed = true
			break
		}
		if ch == '\\' {
			r, width, err := decodeEscape(c.input[c.pos:])
			if err != nil {
				return Literal{}, c.errorf("%v", err)
			}
			b.WriteRune(r)
			c.pos += width
			continue
		}
		b.WriteByte(ch)
		c.pos++
	}
	if !closed {
		return Literal{}, c.errorf("unterminated literal")
	}
	lexical := b.String()
	if c.pos < len(c.input) && c.input[c.pos] == '@' {
		c.pos++
		start := c.pos
		for c.pos < len(c.input) && isLangChar(c.input[c.pos]) {
			c.pos++
		}
		if start == c.pos {
			return Literal{}, c.errorf("empty language tag")
		}
		return Literal{Lexical: lexical, Lang: c.input[start:c.pos]}, nil
	}
	if strings.HasPrefix(c.input[c.pos:], "^^") {
		c.pos += 2
		dt, err := c.parseIRI()
		if err != nil {
			return Literal{}, err
		}
		return Literal{Lexical: lexical, Datatype: dt}, nil
	}
	return Literal{Lexical: lexical}, nil
}

func (c *ntCursor) errorf(format string, args ...interface{}) error {
	return &ParseError{
		Format: FormatNTriples,
		Column: c.pos + 1,
		Offset: -1,
		Err:    fmt.Errorf(format, args...),
	}
}

func isTermDelimiter(ch byte) bool {
	switch ch {
	case ' ', '\t', '\r', '\n', '<', '"':
		return true
	default:
		return false
	}
}

func isLangChar(ch byte) bool {
	return ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch >= '0' && ch <= '9' || ch == '-'
}

var errBadEscape = errors.New("invalid escape sequence")

// decodeEscape decodes a string escape starting at s[0] == '\\'.
func decodeEscape(s string) (rune, int, error) {
	if len(s) < 2 {
		return 0, 0, errBadEscape
	}
	switch s[1] {
	case 't':
		return '\t', 2, nil
	case 'b':
		return '\b', 2, nil
	case 'n':
		return '\n', 2, nil
	case 'r':
		return '\r', 2, nil
	case 'f':
		return '\f', 2, nil
	case '"':
		return '"', 2, nil
	case '\'':
		return '\'', 2, nil
	case '\\':
		return '\\', 2, nil
	case 'u', 'U':
		return decodeUnicodeEscape(s)
	default:
		return 0, 0, fmt.Errorf("%w: \\%c", errBadEscape, s[1])
	}
}

// decodeUnicodeEscape decodes \uXXXX or \UXXXXXXXX starting at s[0] == '\\'.
func decodeUnicodeEscape(s string) (rune, int, error) {
	if len(s) < 2 {
		return 0, 0, errBadEscape
	}
	digits := 0
	switch s[1] {
	case 'u':
		digits = 4
	case 'U':
		digits = 8
	default:
		return 0, 0, fmt.Errorf("%w: \\%c", errBadEscape, s[1])
	}
	if len(s) < 2+digits {
		return 0, 0, errBadEscape
	}
	value, err := strconv.ParseUint(s[2:2+digits], 16, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %s", errBadEscape, s[:2+digits])
	}
	return rune(value), 2 + digits, nil
}

type ntEncoder struct {
	writer *bufio.Writer
	err    error
}

func newNTriplesEncoder(w io.Writer, _ Options) (TripleEncoder, error) {
	return &ntEncoder{writer: bufio.NewWriter(w)}, nil
}

func (e *ntEncoder) Write(t Triple) error {
	if e.err != nil {
		return e.err
	}
	if !t.IsValid() {
		return fmt.Errorf("ntriples: missing statement fields")
	}
	_, err := e.writer.WriteString(t.String() + "\n")
	if err != nil {
		e.err = err
	}
	return err
}

func (e *ntEncoder) Flush() error {
	if e.err != nil {
		return e.err
	}
	return e.writer.Flush()
}

func (e *ntEncoder) Close() error {
	return e.Flush()
}

func renderIRI(iri IRI) string {
	return "<" + iri.Value + ">"
}

func renderTerm(term Term) string {
	switch value := term.(type) {
	case IRI:
		return renderIRI(value)
	case BlankNode:
		return value.String()
	case Literal:
		if value.Lang != "" {
			return quoteLexical(value.Lexical) + "@" + value.Lang
		}
		if value.Datatype.Value != "" {
			return quoteLexical(value.Lexical) + "^^" + renderIRI(value.Datatype)
		}
		return quoteLexical(value.Lexical)
	default:
		return ""
	}
}

func quoteLexical(lexical string) string {
	var b strings.Builder
	b.Grow(len(lexical) + 2)
	b.WriteByte('"')
	for _, r := range lexical {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&b, `\u%04X`, r)
				continue
			}
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
