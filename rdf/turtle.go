package rdf

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// turtleDecoder parses one statement per refill of its queue.
type turtleDecoder struct {
	cursor *turtleCursor
	queue  []Triple
	head   int
	err    error
}

func newTurtleDecoder(r io.Reader, opts Options) (TripleDecoder, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	input := string(data)
	input = strings.TrimPrefix(input, "\ufeff")
	return &turtleDecoder{cursor: &turtleCursor{
		input:    input,
		base:     opts.Base,
		prefixes: make(map[string]string),
		blanks:   newBlankNodes(opts.BlankNodeScope),
		maxDepth: opts.MaxDepth,
	}}, nil
}

func (d *turtleDecoder) Next() (Triple, error) {
	for {
		if d.head < len(d.queue) {
			next := d.queue[d.head]
			d.head++
			return next, nil
		}
		d.queue = d.queue[:0]
		d.head = 0
		if d.err != nil {
			return Triple{}, d.err
		}
		d.cursor.emit = func(t Triple) { d.queue = append(d.queue, t) }
		if err := d.cursor.statement(); err != nil {
			d.err = err
		}
	}
}

func (d *turtleDecoder) Err() error {
	if d.err == io.EOF {
		return nil
	}
	return d.err
}

func (d *turtleDecoder) Close() error { return nil }

type turtleCursor struct {
	input    string
	pos      int
	base     string
	prefixes map[string]string
	blanks   *blankNodes
	emit     func(Triple)
	depth    int
	maxDepth int
}

// statement parses a directive or a triples block. It returns io.EOF once the
// input is exhausted.
func (c *turtleCursor) statement() error {
	c.skipWS()
	if c.eof() {
		return io.EOF
	}
	switch {
	case c.hasPrefix("@prefix"):
		c.pos += len("@prefix")
		return c.prefixDirective(true)
	case c.hasPrefix("@base"):
		c.pos += len("@base")
		return c.baseDirective(true)
	case c.hasKeyword("PREFIX"):
		c.pos += len("PREFIX")
		return c.prefixDirective(false)
	case c.hasKeyword("BASE"):
		c.pos += len("BASE")
		return c.baseDirective(false)
	}
	return c.triples()
}

func (c *turtleCursor) prefixDirective(dotted bool) error {
	c.skipWS()
	start := c.pos
	for !c.eof() && c.peek() != ':' {
		if isWS(c.peek()) {
			return c.errorf("expected ':' in prefix declaration")
		}
		c.pos++
	}
	if c.eof() {
		return c.errorf("unterminated prefix declaration")
	}
	prefix := c.input[start:c.pos]
	c.pos++
	iri, err := c.iriRef()
	if err != nil {
		return err
	}
	c.prefixes[prefix] = iri.Value
	return c.directiveEnd(dotted)
}

func (c *turtleCursor) baseDirective(dotted bool) error {
	iri, err := c.iriRef()
	if err != nil {
		return err
	}
	c.base = iri.Value
	return c.directiveEnd(dotted)
}

func (c *turtleCursor) directiveEnd(dotted bool) error {
	if !dotted {
		return nil
	}
	if !c.consume('.') {
		return c.errorf("expected '.' after directive")
	}
	return nil
}

func (c *turtleCursor) triples() error {
	c.skipWS()
	var subject Term
	var err error
	switch {
	case c.peek() == '[':
		subject, err = c.blankNodePropertyList()
		if err != nil {
			return err
		}
		c.skipWS()
		if c.peek() == '.' {
			c.pos++
			return nil
		}
	case c.peek() == '(':
		subject, err = c.collection()
	default:
		subject, err = c.subjectTerm()
	}
	if err != nil {
		return err
	}
	if err := c.predicateObjectList(subject); err != nil {
		return err
	}
	if !c.consume('.') {
		return c.errorf("expected '.' at end of statement")
	}
	return nil
}

func (c *turtleCursor) subjectTerm() (Term, error) {
	c.skipWS()
	switch {
	case c.peek() == '<':
		return c.iriRef()
	case c.hasPrefix("_:"):
		return c.blankNodeLabel()
	default:
		return c.prefixedName()
	}
}

func (c *turtleCursor) predicateObjectList(subject Term) error {
	for {
		c.skipWS()
		predicate, err := c.verb()
		if err != nil {
			return err
		}
		if err := c.objectList(subject, predicate); err != nil {
			return err
		}
		c.skipWS()
		if c.peek() != ';' {
			return nil
		}
		for c.peek() == ';' {
			c.pos++
			c.skipWS()
		}
		// A trailing ';' may close the list.
		if c.eof() || c.peek() == '.' || c.peek() == ']' {
			return nil
		}
	}
}

func (c *turtleCursor) verb() (IRI, error) {
	if c.peek() == 'a' && (c.pos+1 >= len(c.input) || !isNameChar(c.input[c.pos+1]) && c.input[c.pos+1] != ':') {
		c.pos++
		return IRI{Value: RDFType}, nil
	}
	if c.peek() == '<' {
		return c.iriRef()
	}
	return c.prefixedName()
}

func (c *turtleCursor) objectList(subject Term, predicate IRI) error {
	for {
		object, err := c.object()
		if err != nil {
			return err
		}
		c.emit(Triple{S: subject, P: predicate, O: object})
		if !c.consume(',') {
			return nil
		}
	}
}

func (c *turtleCursor) object() (Term, error) {
	c.skipWS()
	if c.eof() {
		return nil, c.errorf("unexpected end of input, expected object")
	}
	ch := c.peek()
	switch {
	case ch == '<':
		return c.iriRef()
	case c.hasPrefix("_:"):
		return c.blankNodeLabel()
	case ch == '[':
		return c.blankNodePropertyList()
	case ch == '(':
		return c.collection()
	case ch == '"' || ch == '\'':
		return c.literal()
	case ch == '+' || ch == '-' || ch == '.' || isDigit(ch):
		return c.numeric()
	case c.hasKeyword("true"):
		c.pos += 4
		return Literal{Lexical: "true", Datatype: IRI{Value: XSDBoolean}}, nil
	case c.hasKeyword("false"):
		c.pos += 5
		return Literal{Lexical: "false", Datatype: IRI{Value: XSDBoolean}}, nil
	default:
		return c.prefixedName()
	}
}

func (c *turtleCursor) blankNodePropertyList() (Term, error) {
	if err := c.enter(); err != nil {
		return nil, err
	}
	defer c.leave()
	c.pos++ // '['
	node := c.blanks.fresh()
	c.skipWS()
	if c.peek() == ']' {
		c.pos++
		return node, nil
	}
	if err := c.predicateObjectList(node); err != nil {
		return nil, err
	}
	if !c.consume(']') {
		return nil, c.errorf("expected ']'")
	}
	return node, nil
}

func (c *turtleCursor) collection() (Term, error) {
	if err := c.enter(); err != nil {
		return nil, err
	}
	defer c.leave()
	c.pos++ // '('
	var items []Term
	for {
		c.skipWS()
		if c.eof() {
			return nil, c.errorf("unterminated collection")
		}
		if c.peek() == ')' {
			c.pos++
			break
		}
		item, err := c.object()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		return IRI{Value: RDFNil}, nil
	}
	nodes := make([]BlankNode, len(items))
	for i := range items {
		nodes[i] = c.blanks.fresh()
	}
	for i, item := range items {
		c.emit(Triple{S: nodes[i], P: IRI{Value: RDFFirst}, O: item})
		var rest Term = IRI{Value: RDFNil}
		if i+1 < len(nodes) {
			rest = nodes[i+1]
		}
		c.emit(Triple{S: nodes[i], P: IRI{Value: RDFRest}, O: rest})
	}
	return nodes[0], nil
}

func (c *turtleCursor) iriRef() (IRI, error) {
	c.skipWS()
	if c.peek() != '<' {
		return IRI{}, c.errorf("expected IRI")
	}
	c.pos++
	var b strings.Builder
	for !c.eof() {
		ch := c.peek()
		switch ch {
		case '>':
			c.pos++
			return IRI{Value: ResolveIRI(c.base, b.String())}, nil
		case '\\':
			r, width, err := decodeUnicodeEscape(c.input[c.pos:])
			if err != nil {
				return IRI{}, c.errorf("%v", err)
			}
			b.WriteRune(r)
			c.pos += width
		case ' ', '\t', '\n', '\r', '"', '{', '}', '|', '^', '`':
			return IRI{}, c.errorf("invalid character %q in IRI", ch)
		default:
			b.WriteByte(ch)
			c.pos++
		}
	}
	return IRI{}, c.errorf("unterminated IRI")
}

func (c *turtleCursor) prefixedName() (IRI, error) {
	start := c.pos
	for !c.eof() && c.peek() != ':' && isNameChar(c.peek()) {
		c.pos++
	}
	if c.eof() || c.peek() != ':' {
		c.pos = start
		return IRI{}, c.errorf("expected IRI or prefixed name")
	}
	prefix := c.input[start:c.pos]
	namespace, ok := c.prefixes[prefix]
	if !ok {
		c.pos = start
		return IRI{}, c.errorf("undefined prefix %q", prefix)
	}
	c.pos++
	local, err := c.localName()
	if err != nil {
		return IRI{}, err
	}
	return IRI{Value: namespace + local}, nil
}

func (c *turtleCursor) localName() (string, error) {
	var b strings.Builder
	for !c.eof() {
		ch := c.peek()
		switch {
		case ch == '\\':
			if c.pos+1 >= len(c.input) || !strings.ContainsRune("_~.-!$&'()*+,;=/?#@%", rune(c.input[c.pos+1])) {
				return "", c.errorf("invalid escape in local name")
			}
			b.WriteByte(c.input[c.pos+1])
			c.pos += 2
		case ch == '%':
			if c.pos+2 >= len(c.input) || !isHex(c.input[c.pos+1]) || !isHex(c.input[c.pos+2]) {
				return "", c.errorf("invalid percent escape in local name")
			}
			b.WriteString(c.input[c.pos : c.pos+3])
			c.pos += 3
		case isNameChar(ch) || ch == ':' || ch == '.':
			b.WriteByte(ch)
			c.pos++
		default:
			return trimTrailingDots(c, &b), nil
		}
	}
	return trimTrailingDots(c, &b), nil
}

// trimTrailingDots gives a final '.' back to the statement terminator.
func trimTrailingDots(c *turtleCursor, b *strings.Builder) string {
	local := b.String()
	for strings.HasSuffix(local, ".") {
		local = local[:len(local)-1]
		c.pos--
	}
	return local
}

func (c *turtleCursor) blankNodeLabel() (BlankNode, error) {
	c.pos += 2
	start := c.pos
	for !c.eof() && (isNameChar(c.peek()) || c.peek() == '.') {
		c.pos++
	}
	for c.pos > start && c.input[c.pos-1] == '.' {
		c.pos--
	}
	if c.pos == start {
		return BlankNode{}, c.errorf("blank node label missing")
	}
	return c.blanks.labelled(c.input[start:c.pos]), nil
}

func (c *turtleCursor) literal() (Term, error) {
	lexical, err := c.quotedString()
	if err != nil {
		return nil, err
	}
	switch {
	case c.peek() == '@':
		c.pos++
		start := c.pos
		for !c.eof() && isLangChar(c.peek()) {
			c.pos++
		}
		if start == c.pos {
			return nil, c.errorf("empty language tag")
		}
		return Literal{Lexical: lexical, Lang: c.input[start:c.pos]}, nil
	case c.hasPrefix("^^"):
		c.pos += 2
		var datatype IRI
		if c.peek() == '<' {
			datatype, err = c.iriRef()
		} else {
			datatype, err = c.prefixedName()
		}
		if err != nil {
			return nil, err
		}
		return Literal{Lexical: lexical, Datatype: datatype}, nil
	}
	return Literal{Lexical: lexical}, nil
}

func (c *turtleCursor) quotedString() (string, error) {
	quote := c.peek()
	long := c.hasPrefix(strings.Repeat(string(quote), 3))
	if long {
		c.pos += 3
	} else {
		c.pos++
	}
	var b strings.Builder
	for !c.eof() {
		ch := c.peek()
		switch {
		case ch == '\\':
			r, width, err := decodeEscape(c.input[c.pos:])
			if err != nil {
				return "", c.errorf("%v", err)
			}
			b.WriteRune(r)
			c.pos += width
		case long && c.hasPrefix(strings.Repeat(string(quote), 3)):
			c.pos += 3
			return b.String(), nil
		case !long && ch == quote:
			c.pos++
			return b.String(), nil
		case !long && (ch == '\n' || ch == '\r'):
			return "", c.errorf("line break in short string")
		default:
			b.WriteByte(ch)
			c.pos++
		}
	}
	return "", c.errorf("unterminated string")
}

func (c *turtleCursor) numeric() (Term, error) {
	start := c.pos
	if c.peek() == '+' || c.peek() == '-' {
		c.pos++
	}
	digits := c.digits()
	datatype := XSDInteger
	if c.peek() == '.' && c.pos+1 < len(c.input) && isDigit(c.input[c.pos+1]) {
		c.pos++
		digits += c.digits()
		datatype = XSDDecimal
	}
	if c.peek() == 'e' || c.peek() == 'E' {
		c.pos++
		if c.peek() == '+' || c.peek() == '-' {
			c.pos++
		}
		if c.digits() == 0 {
			return nil, c.errorf("malformed exponent")
		}
		datatype = XSDDouble
	}
	if digits == 0 {
		c.pos = start
		return nil, c.errorf("malformed number")
	}
	return Literal{Lexical: c.input[start:c.pos], Datatype: IRI{Value: datatype}}, nil
}

func (c *turtleCursor) digits() int {
	n := 0
	for !c.eof() && isDigit(c.peek()) {
		c.pos++
		n++
	}
	return n
}

func (c *turtleCursor) enter() error {
	c.depth++
	if c.maxDepth > 0 && c.depth > c.maxDepth {
		return c.wrap(ErrDepthExceeded)
	}
	return nil
}

func (c *turtleCursor) leave() { c.depth-- }

func (c *turtleCursor) skipWS() {
	for !c.eof() {
		switch c.peek() {
		case ' ', '\t', '\r', '\n':
			c.pos++
		case '#':
			for !c.eof() && c.peek() != '\n' {
				c.pos++
			}
		default:
			return
		}
	}
}

func (c *turtleCursor) consume(ch byte) bool {
	c.skipWS()
	if !c.eof() && c.peek() == ch {
		c.pos++
		return true
	}
	return false
}

func (c *turtleCursor) eof() bool { return c.pos >= len(c.input) }

func (c *turtleCursor) peek() byte {
	if c.eof() {
		return 0
	}
	return c.input[c.pos]
}

func (c *turtleCursor) hasPrefix(s string) bool {
	return strings.HasPrefix(c.input[c.pos:], s)
}

// hasKeyword matches a case-insensitive keyword followed by a delimiter.
func (c *turtleCursor) hasKeyword(keyword string) bool {
	end := c.pos + len(keyword)
	if end > len(c.input) || !strings.EqualFold(c.input[c.pos:end], keyword) {
		return false
	}
	return end == len(c.input) || !isNameChar(c.input[end]) && c.input[end] != ':'
}

func (c *turtleCursor) errorf(format string, args ...interface{}) error {
	return c.wrap(fmt.Errorf(format, args...))
}

func (c *turtleCursor) wrap(err error) error {
	line, column := 1, 1
	for i := 0; i < c.pos && i < len(c.input); {
		r, width := utf8.DecodeRuneInString(c.input[i:])
		if r == '\n' {
			line++
			column = 1
		} else {
			column++
		}
		i += width
	}
	return &ParseError{Format: FormatTurtle, Line: line, Column: column, Offset: int64(c.pos), Err: err}
}

func isWS(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n'
}

func isDigit(ch byte) bool { return ch >= '0' && ch <= '9' }

func isHex(ch byte) bool {
	return isDigit(ch) || ch >= 'a' && ch <= 'f' || ch >= 'A' && ch <= 'F'
}

// isNameChar accepts PN_CHARS; any non-ASCII byte is treated as a name character.
func isNameChar(ch byte) bool {
	return ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || isDigit(ch) || ch == '_' || ch == '-' || ch >= 0x80
}
