package rdf

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"
)

// rdfxmlDecoder walks the XML token stream one top-level node element at a
// time, queueing the triples each element produces.
type rdfxmlDecoder struct {
	dec    *xml.Decoder
	opts   Options
	blanks *blankNodes
	root   xmlScope
	queue  []Triple
	head   int
	err    error
}

type xmlScope struct {
	base string
	lang string
}

func newRDFXMLDecoder(r io.Reader, opts Options) (TripleDecoder, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charsetReader
	return &rdfxmlDecoder{
		dec:    dec,
		opts:   opts,
		blanks: newBlankNodes(opts.BlankNodeScope),
		root:   xmlScope{base: opts.Base},
	}, nil
}

func (d *rdfxmlDecoder) Next() (Triple, error) {
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
		if err := d.advance(); err != nil {
			if err != io.EOF {
				err = d.positioned(err)
			}
			d.err = err
		}
	}
}

func (d *rdfxmlDecoder) Err() error {
	if d.err == io.EOF {
		return nil
	}
	return d.err
}

func (d *rdfxmlDecoder) Close() error { return nil }

// advance consumes tokens until at least one node element has been decoded.
func (d *rdfxmlDecoder) advance() error {
	for {
		tok, err := d.dec.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if isRDFName(t.Name, "RDF") {
				d.root = scopeFor(t, d.root)
				continue
			}
			if _, err := d.nodeElement(t, d.root, 1); err != nil {
				return err
			}
			return nil
		case xml.CharData:
			if len(bytes.TrimSpace(t)) > 0 {
				return fmt.Errorf("rdfxml: unexpected text outside of node elements")
			}
		}
	}
}

func (d *rdfxmlDecoder) nodeElement(start xml.StartElement, parent xmlScope, depth int) (Term, error) {
	if d.opts.MaxDepth > 0 && depth > d.opts.MaxDepth {
		return nil, ErrDepthExceeded
	}
	if start.Name.Space == "" {
		return nil, fmt.Errorf("rdfxml: element %q has no namespace", start.Name.Local)
	}
	scope := scopeFor(start, parent)
	subject, err := d.subjectOf(start, scope)
	if err != nil {
		return nil, err
	}
	if !isRDFName(start.Name, "Description") {
		d.emit(subject, IRI{Value: RDFType}, IRI{Value: start.Name.Space + start.Name.Local})
	}
	for _, attr := range start.Attr {
		if isSyntaxAttr(attr.Name) {
			continue
		}
		if isRDFName(attr.Name, "type") {
			d.emit(subject, IRI{Value: RDFType}, IRI{Value: ResolveIRI(scope.base, attr.Value)})
			continue
		}
		d.emit(subject, IRI{Value: attr.Name.Space + attr.Name.Local}, Literal{Lexical: attr.Value, Lang: scope.lang})
	}
	if err := d.propertyElements(subject, scope, depth); err != nil {
		return nil, err
	}
	return subject, nil
}

// propertyElements reads property elements until the enclosing end element.
func (d *rdfxmlDecoder) propertyElements(subject Term, scope xmlScope, depth int) error {
	li := 0
	for {
		tok, err := d.dec.Token()
		if err != nil {
			return unexpectedEOF(err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if err := d.propertyElement(subject, t, scope, depth+1, &li); err != nil {
				return err
			}
		case xml.EndElement:
			return nil
		case xml.CharData:
			if len(bytes.TrimSpace(t)) > 0 {
				return fmt.Errorf("rdfxml: unexpected text %q between property elements", truncate(string(t)))
			}
		}
	}
}

func (d *rdfxmlDecoder) propertyElement(subject Term, start xml.StartElement, parent xmlScope, depth int, li *int) error {
	if d.opts.MaxDepth > 0 && depth > d.opts.MaxDepth {
		return ErrDepthExceeded
	}
	if start.Name.Space == "" {
		return fmt.Errorf("rdfxml: property %q has no namespace", start.Name.Local)
	}
	scope := scopeFor(start, parent)
	predicate := IRI{Value: start.Name.Space + start.Name.Local}
	if isRDFName(start.Name, "li") {
		*li++
		predicate = IRI{Value: RDFNamespace + "_" + strconv.Itoa(*li)}
	}

	var (
		resource, nodeID, datatype, parseType, reifyID string
		hasResource, hasNodeID, ownLang                  bool
		propertyAttrs                                    []xml.Attr
	)
	for _, attr := range start.Attr {
		switch {
		case isRDFName(attr.Name, "resource"):
			resource, hasResource = attr.Value, true
		case isRDFName(attr.Name, "nodeID"):
			nodeID, hasNodeID = attr.Value, true
		case isRDFName(attr.Name, "datatype"):
			datatype = attr.Value
		case isRDFName(attr.Name, "parseType"):
			parseType = attr.Value
		case isRDFName(attr.Name, "ID"):
			reifyID = attr.Value
		case attr.Name.Space == XMLNamespace && attr.Name.Local == "lang":
			ownLang = attr.Value != ""
		case isSyntaxAttr(attr.Name):
		default:
			propertyAttrs = append(propertyAttrs, attr)
		}
	}

	emit := func(object Term) {
		d.emit(subject, predicate, object)
		if reifyID != "" {
			d.reify(IRI{Value: ResolveIRI(scope.base, "#"+reifyID)}, subject, predicate, object)
		}
	}

	switch parseType {
	case "":
	case "Resource":
		object := d.blanks.fresh()
		emit(object)
		return d.propertyElements(object, scope, depth)
	case "Collection":
		return d.collection(emit, scope, depth)
	default:
		lexical, err := d.captureXML()
		if err != nil {
			return err
		}
		emit(Literal{Lexical: lexical, Datatype: IRI{Value: RDFXMLLiteral}})
		return nil
	}

	if hasResource || hasNodeID {
		var object Term
		if hasResource {
			object = IRI{Value: ResolveIRI(scope.base, resource)}
		} else {
			object = d.blanks.labelled(nodeID)
		}
		emit(object)
		d.attributeTriples(object, propertyAttrs, scope)
		return d.expectEmpty(start)
	}

	var text strings.Builder
	for {
		tok, err := d.dec.Token()
		if err != nil {
			return unexpectedEOF(err)
		}
		switch t := tok.(type) {
		case xml.CharData:
			text.Write(t)
		case xml.StartElement:
			if strings.TrimSpace(text.String()) != "" {
				return fmt.Errorf("rdfxml: mixed content in property %s", predicate.Value)
			}
			object, err := d.nodeElement(t, scope, depth+1)
			if err != nil {
				return err
			}
			emit(object)
			return d.expectEmpty(start)
		case xml.EndElement:
			if len(propertyAttrs) > 0 && strings.TrimSpace(text.String()) == "" {
				object := d.blanks.fresh()
				emit(object)
				d.attributeTriples(object, propertyAttrs, scope)
				return nil
			}
			// A language declared on the element itself beats rdf:datatype;
			// an inherited one does not.
			literal := Literal{Lexical: text.String()}
			if datatype != "" && !ownLang {
				literal.Datatype = IRI{Value: ResolveIRI(scope.base, datatype)}
			} else {
				literal.Lang = scope.lang
			}
			emit(literal)
			return nil
		}
	}
}

func (d *rdfxmlDecoder) collection(emit func(Term), scope xmlScope, depth int) error {
	var items []Term
	for {
		tok, err := d.dec.Token()
		if err != nil {
			return unexpectedEOF(err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			item, err := d.nodeElement(t, scope, depth+1)
			if err != nil {
				return err
			}
			items = append(items, item)
		case xml.CharData:
			if len(bytes.TrimSpace(t)) > 0 {
				return fmt.Errorf("rdfxml: unexpected text in collection")
			}
		case xml.EndElement:
			emit(d.list(items))
			return nil
		}
	}
}

// list emits an rdf:first/rdf:rest chain and returns its head.
func (d *rdfxmlDecoder) list(items []Term) Term {
	if len(items) == 0 {
		return IRI{Value: RDFNil}
	}
	nodes := make([]BlankNode, len(items))
	for i := range items {
		nodes[i] = d.blanks.fresh()
	}
	for i, item := range items {
		d.emit(nodes[i], IRI{Value: RDFFirst}, item)
		var rest Term = IRI{Value: RDFNil}
		if i+1 < len(nodes) {
			rest = nodes[i+1]
		}
		d.emit(nodes[i], IRI{Value: RDFRest}, rest)
	}
	return nodes[0]
}

func (d *rdfxmlDecoder) attributeTriples(subject Term, attrs []xml.Attr, scope xmlScope) {
	for _, attr := range attrs {
		if isRDFName(attr.Name, "type") {
			d.emit(subject, IRI{Value: RDFType}, IRI{Value: ResolveIRI(scope.base, attr.Value)})
			continue
		}
		d.emit(subject, IRI{Value: attr.Name.Space + attr.Name.Local}, Literal{Lexical: attr.Value, Lang: scope.lang})
	}
}

func (d *rdfxmlDecoder) reify(statement IRI, s Term, p IRI, o Term) {
	d.emit(statement, IRI{Value: RDFType}, IRI{Value: RDFStatement})
	d.emit(statement, IRI{Value: RDFSubject}, s)
	d.emit(statement, IRI{Value: RDFPredicate}, p)
	d.emit(statement, IRI{Value: RDFObject}, o)
}

func (d *rdfxmlDecoder) subjectOf(start xml.StartElement, scope xmlScope) (Term, error) {
	var subject Term
	for _, attr := range start.Attr {
		var next Term
		switch {
		case isRDFName(attr.Name, "about"):
			next = IRI{Value: ResolveIRI(scope.base, attr.Value)}
		case isRDFName(attr.Name, "ID"):
			next = IRI{Value: ResolveIRI(scope.base, "#"+attr.Value)}
		case isRDFName(attr.Name, "nodeID"):
			next = d.blanks.labelled(attr.Value)
		default:
			continue
		}
		if subject != nil {
			return nil, fmt.Errorf("rdfxml: node element %s has more than one of rdf:about, rdf:ID and rdf:nodeID", start.Name.Local)
		}
		subject = next
	}
	if subject == nil {
		subject = d.blanks.fresh()
	}
	return subject, nil
}

// expectEmpty consumes the rest of an element that may only hold whitespace.
func (d *rdfxmlDecoder) expectEmpty(start xml.StartElement) error {
	for {
		tok, err := d.dec.Token()
		if err != nil {
			return unexpectedEOF(err)
		}
		switch t := tok.(type) {
		case xml.EndElement:
			return nil
		case xml.StartElement:
			return fmt.Errorf("rdfxml: property %s must be empty", start.Name.Local)
		case xml.CharData:
			if len(bytes.TrimSpace(t)) > 0 {
				return fmt.Errorf("rdfxml: property %s must be empty", start.Name.Local)
			}
		}
	}
}

// captureXML re-serializes the content of the current element for
// rdf:parseType="Literal".
func (d *rdfxmlDecoder) captureXML() (string, error) {
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	depth := 0
	for {
		tok, err := d.dec.Token()
		if err != nil {
			return "", unexpectedEOF(err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			t.Attr = stripNamespaceAttrs(t.Attr)
			tok = t
		case xml.EndElement:
			if depth == 0 {
				if err := enc.Flush(); err != nil {
					return "", err
				}
				return buf.String(), nil
			}
			depth--
		}
		if err := enc.EncodeToken(xml.CopyToken(tok)); err != nil {
			return "", err
		}
	}
}

func (d *rdfxmlDecoder) emit(s Term, p IRI, o Term) {
	d.queue = append(d.queue, Triple{S: s, P: p, O: o})
}

func (d *rdfxmlDecoder) positioned(err error) error {
	line, column := d.dec.InputPos()
	return wrapParseError(FormatRDFXML, line, column, d.dec.InputOffset(), err)
}

func scopeFor(start xml.StartElement, parent xmlScope) xmlScope {
	scope := parent
	for _, attr := range start.Attr {
		if attr.Name.Space != XMLNamespace {
			continue
		}
		switch attr.Name.Local {
		case "base":
			scope.base = ResolveIRI(parent.base, attr.Value)
		case "lang":
			scope.lang = attr.Value
		}
	}
	return scope
}

func isRDFName(name xml.Name, local string) bool {
	return name.Space == RDFNamespace && name.Local == local
}

// isSyntaxAttr reports attributes that never become property triples.
func isSyntaxAttr(name xml.Name) bool {
	switch {
	case name.Space == "", name.Space == "xmlns", name.Space == XMLNamespace:
		return true
	case strings.HasPrefix(name.Local, "xml") && name.Space != RDFNamespace:
		return true
	case name.Space == RDFNamespace:
		switch name.Local {
		case "about", "ID", "nodeID", "resource", "datatype", "parseType", "aboutEach", "aboutEachPrefix", "bagID":
			return true
		}
	}
	return false
}

func stripNamespaceAttrs(attrs []xml.Attr) []xml.Attr {
	kept := attrs[:0:0]
	for _, attr := range attrs {
		if attr.Name.Space == "xmlns" || attr.Name.Space == "" && attr.Name.Local == "xmlns" {
			continue
		}
		kept = append(kept, attr)
	}
	return kept
}

func unexpectedEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 40 {
		return s[:40] + "..."
	}
	return s
}

// charsetReader accepts the single-byte encodings older CIM exports declare.
func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(charset) {
	case "utf-8", "utf8", "us-ascii", "ascii":
		return input, nil
	case "iso-8859-1", "latin1", "latin-1", "windows-1252", "cp1252":
		raw, err := io.ReadAll(input)
		if err != nil {
			return nil, err
		}
		out := make([]byte, 0, len(raw)+len(raw)/8)
		for _, b := range raw {
			out = utf8.AppendRune(out, rune(b))
		}
		return bytes.NewReader(out), nil
	default:
		return nil, fmt.Errorf("rdfxml: unsupported charset %q", charset)
	}
}
