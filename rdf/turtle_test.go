package rdf

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

const shapesSample = `@prefix sh: <http://www.w3.org/ns/shacl#> .
@prefix xsd: <http://www.w3.org/2001/XMLSchema#> .
@prefix owl: <http://www.w3.org/2002/07/owl#> .
@prefix ex: <http://example.org/shapes#> .

<http://example.org/shapes> a owl:Ontology ;
    owl:imports <http://example.org/common> , <http://www.w3.org/ns/shacl#> .

ex:NameShape a sh:NodeShape ;
    sh:targetClass ex:Thing ;
    sh:property [
        sh:path ex:name ;
        sh:datatype xsd:string ;
        sh:minCount 1 ;
        sh:message "name is required"@en ;
    ] .
`

func decodeTurtle(t *testing.T, input string, opts ...Option) *Graph {
	t.Helper()
	g, err := ReadGraph(context.Background(), strings.NewReader(input), FormatTurtle, opts...)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return g
}

func TestTurtleDecodesShapes(t *testing.T) {
	g := decodeTurtle(t, shapesSample)
	if g.Len() != 10 {
		for _, tr := range g.Sorted() {
			t.Log(tr)
		}
		t.Fatalf("expected 10 triples, got %d", g.Len())
	}
	ontology := IRI{Value: "http://example.org/shapes"}
	imports := g.Objects(ontology, IRI{Value: OWLImports})
	if len(imports) != 2 {
		t.Fatalf("expected 2 imports, got %v", imports)
	}
	shape := IRI{Value: "http://example.org/shapes#NameShape"}
	props := g.Objects(shape, IRI{Value: SHACLNamespace + "property"})
	if len(props) != 1 || props[0].Kind() != TermBlankNode {
		t.Fatalf("expected a blank property shape, got %v", props)
	}
	minCount := g.Objects(props[0], IRI{Value: SHACLNamespace + "minCount"})
	if len(minCount) != 1 || minCount[0] != (Literal{Lexical: "1", Datatype: IRI{Value: XSDInteger}}) {
		t.Fatalf("unexpected minCount %v", minCount)
	}
	msg := g.Objects(props[0], IRI{Value: SHACLNamespace + "message"})
	if len(msg) != 1 || msg[0] != (Literal{Lexical: "name is required", Lang: "en"}) {
		t.Fatalf("unexpected message %v", msg)
	}
}

func TestTurtleLiteralForms(t *testing.T) {
	input := `PREFIX ex: <http://example.org/>
ex:s ex:int -5 ; ex:dec 1.50 ; ex:dbl 1e3 ; ex:bool true ;
    ex:long """multi
line""" ; ex:single 'it' ; ex:typed "7"^^ex:custom ; ex:esc "a\tbé" .
ex:s ex:end 3.`
	g := decodeTurtle(t, input)
	s := IRI{Value: "http://example.org/s"}
	cases := map[string]Literal{
		"int":    {Lexical: "-5", Datatype: IRI{Value: XSDInteger}},
		"dec":    {Lexical: "1.50", Datatype: IRI{Value: XSDDecimal}},
		"dbl":    {Lexical: "1e3", Datatype: IRI{Value: XSDDouble}},
		"bool":   {Lexical: "true", Datatype: IRI{Value: XSDBoolean}},
		"long":   {Lexical: "multi\nline"},
		"typed":  {Lexical: "7", Datatype: IRI{Value: "http://example.org/custom"}},
		"esc":    {Lexical: "a\tbé"},
		"end":    {Lexical: "3", Datatype: IRI{Value: XSDInteger}},
		"single": {Lexical: "it"},
	}
	for name, want := range cases {
		got := g.Objects(s, IRI{Value: "http://example.org/" + name})
		if len(got) != 1 || got[0] != want {
			t.Errorf("%s: got %v, want %v", name, got, want)
		}
	}
}

func TestTurtleCollectionsAndBase(t *testing.T) {
	input := `@base <http://example.org/dir/> .
@prefix : <http://example.org/ns#> .
<doc> :list ( :a "b" [ :c :d ] ) ; :empty () .
_:x :knows _:x .`
	g := decodeTurtle(t, input, OptBlankNodeScope("t"))
	doc := IRI{Value: "http://example.org/dir/doc"}
	head := g.Objects(doc, IRI{Value: "http://example.org/ns#list"})
	if len(head) != 1 {
		t.Fatalf("expected list head, got %v", head)
	}
	first := g.Objects(head[0], IRI{Value: RDFFirst})
	if len(first) != 1 || first[0] != (IRI{Value: "http://example.org/ns#a"}) {
		t.Fatalf("unexpected first %v", first)
	}
	empty := g.Objects(doc, IRI{Value: "http://example.org/ns#empty"})
	if len(empty) != 1 || empty[0] != (IRI{Value: RDFNil}) {
		t.Fatalf("empty collection should be rdf:nil, got %v", empty)
	}
	knows := g.Match(nil, &IRI{Value: "http://example.org/ns#knows"}, nil)
	if len(knows) != 1 || knows[0].S != knows[0].O {
		t.Fatalf("labelled blank nodes should be stable within a document: %v", knows)
	}
	if id := knows[0].S.(BlankNode).ID; !strings.HasPrefix(id, "t_") {
		t.Fatalf("blank node not scoped: %s", id)
	}
}

func TestTurtleErrorsCarryLine(t *testing.T) {
	input := "@prefix ex: <http://example.org/> .\nex:s ex:p ex:o .\nex:s missing:p ex:o .\n"
	dec, err := NewDecoder(strings.NewReader(input), FormatTurtle)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := dec.Next(); err != nil {
		t.Fatalf("first statement should decode: %v", err)
	}
	_, err = dec.Next()
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if parseErr.Line != 3 {
		t.Fatalf("expected line 3, got %d (%v)", parseErr.Line, err)
	}
	if !strings.Contains(err.Error(), "undefined prefix") {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestTurtleRejectsMalformed(t *testing.T) {
	inputs := []string{
		"<urn:s> <urn:p> <urn:o>",
		"<urn:s> <urn:p> \"open .",
		"<urn:s> <urn:p> [ <urn:q> <urn:o> .",
		"<urn:s> <urn:p> ( <urn:o> .",
		"@prefix ex <urn:x> .",
	}
	for _, input := range inputs {
		if _, err := ReadGraph(context.Background(), strings.NewReader(input), FormatTurtle); err == nil {
			t.Errorf("expected error for %q", input)
		}
	}
}

func TestTurtleEncodeRoundTrip(t *testing.T) {
	g := decodeTurtle(t, shapesSample)
	var buf bytes.Buffer
	prefixes := map[string]string{
		"sh":  SHACLNamespace,
		"xsd": XSDNamespace,
		"owl": OWLNamespace,
		"ex":  "http://example.org/shapes#",
	}
	if err := WriteGraph(&buf, g, FormatTurtle, OptPrefixes(prefixes)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !strings.Contains(buf.String(), "@prefix sh: <http://www.w3.org/ns/shacl#> .") {
		t.Fatalf("missing prefix declaration:\n%s", buf.String())
	}
	back := decodeTurtle(t, buf.String())
	if back.Len() != g.Len() {
		t.Fatalf("round trip changed size: %d != %d\n%s", back.Len(), g.Len(), buf.String())
	}
}
