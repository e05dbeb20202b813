package rdf

import (
	"context"
	"errors"
	"strings"
	"testing"
)

const cimBase = "http://iec.ch/TC57/2013/CIM-schema-cim16#"

const cimSample = `<?xml version="1.0" encoding="UTF-8"?>
<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#"
         xmlns:cim="http://iec.ch/TC57/2013/CIM-schema-cim16#"
         xmlns:md="http://iec.ch/TC57/61970-552/ModelDescription/1#">
  <md:FullModel rdf:about="urn:uuid:0f1c">
    <md:Model.created>2020-01-01T00:00:00Z</md:Model.created>
  </md:FullModel>
  <cim:ACLineSegment rdf:ID="_L1">
    <cim:IdentifiedObject.name>Line 1</cim:IdentifiedObject.name>
    <cim:ACLineSegment.r>0.5</cim:ACLineSegment.r>
  </cim:ACLineSegment>
  <cim:Terminal rdf:ID="_T1">
    <cim:Terminal.ConductingEquipment rdf:resource="#_L1"/>
  </cim:Terminal>
</rdf:RDF>`

func decodeRDFXML(t *testing.T, input string, opts ...Option) *Graph {
	t.Helper()
	g, err := ReadGraph(context.Background(), strings.NewReader(input), FormatRDFXML, opts...)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return g
}

func TestRDFXMLDecodesCIMInstance(t *testing.T) {
	g := decodeRDFXML(t, cimSample, OptBase(cimBase))
	if g.Len() != 7 {
		for _, tr := range g.Sorted() {
			t.Log(tr)
		}
		t.Fatalf("expected 7 triples, got %d", g.Len())
	}
	line := IRI{Value: cimBase + "_L1"}
	want := []Triple{
		{S: line, P: IRI{Value: RDFType}, O: IRI{Value: cimBase + "ACLineSegment"}},
		{S: line, P: IRI{Value: cimBase + "IdentifiedObject.name"}, O: Literal{Lexical: "Line 1"}},
		{S: line, P: IRI{Value: cimBase + "ACLineSegment.r"}, O: Literal{Lexical: "0.5"}},
		{S: IRI{Value: cimBase + "_T1"}, P: IRI{Value: cimBase + "Terminal.ConductingEquipment"}, O: line},
		{S: IRI{Value: "urn:uuid:0f1c"}, P: IRI{Value: RDFType}, O: IRI{Value: "http://iec.ch/TC57/61970-552/ModelDescription/1#FullModel"}},
	}
	for _, tr := range want {
		if !g.Has(tr) {
			t.Errorf("missing %s", tr)
		}
	}
}

func TestRDFXMLLanguageAndDatatype(t *testing.T) {
	input := `<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#" xmlns:ex="http://example.org/" xml:lang="en">
  <rdf:Description rdf:about="http://example.org/s">
    <ex:label>hello</ex:label>
    <ex:label xml:lang="de">hallo</ex:label>
    <ex:count rdf:datatype="http://www.w3.org/2001/XMLSchema#integer">3</ex:count>
  </rdf:Description>
</rdf:RDF>`
	g := decodeRDFXML(t, input)
	s := IRI{Value: "http://example.org/s"}
	for _, tr := range []Triple{
		{S: s, P: IRI{Value: "http://example.org/label"}, O: Literal{Lexical: "hello", Lang: "en"}},
		{S: s, P: IRI{Value: "http://example.org/label"}, O: Literal{Lexical: "hallo", Lang: "de"}},
		{S: s, P: IRI{Value: "http://example.org/count"}, O: Literal{Lexical: "3", Datatype: IRI{Value: XSDInteger}}},
	} {
		if !g.Has(tr) {
			t.Errorf("missing %s", tr)
		}
	}
	if g.Len() != 3 {
		t.Fatalf("expected 3 triples, got %d", g.Len())
	}
}

func TestRDFXMLOwnLanguageBeatsDatatype(t *testing.T) {
	input := `<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#" xmlns:ex="urn:ex#" xml:lang="de">
  <rdf:Description rdf:about="urn:s">
    <ex:p xml:lang="en" rdf:datatype="http://www.w3.org/2001/XMLSchema#string">x</ex:p>
    <ex:q rdf:datatype="http://www.w3.org/2001/XMLSchema#string">y</ex:q>
    <ex:r xml:lang="" rdf:datatype="http://www.w3.org/2001/XMLSchema#integer">1</ex:r>
  </rdf:Description>
</rdf:RDF>`
	g := decodeRDFXML(t, input)
	s := IRI{Value: "urn:s"}
	cases := map[string]Literal{
		"p": {Lexical: "x", Lang: "en"},
		"q": {Lexical: "y", Datatype: IRI{Value: XSDString}},
		"r": {Lexical: "1", Datatype: IRI{Value: XSDInteger}},
	}
	for name, want := range cases {
		got := g.Objects(s, IRI{Value: "urn:ex#" + name})
		if len(got) != 1 || got[0] != want {
			t.Errorf("%s: got %v, want %v", name, got, want)
		}
	}
}

func TestRDFXMLNestedAndParseTypes(t *testing.T) {
	input := `<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#" xmlns:ex="http://example.org/">
  <ex:Thing rdf:about="http://example.org/a" ex:code="A1">
    <ex:part>
      <ex:Part rdf:about="http://example.org/p"/>
    </ex:part>
    <ex:address rdf:parseType="Resource">
      <ex:city>Oslo</ex:city>
    </ex:address>
    <ex:list rdf:parseType="Collection">
      <rdf:Description rdf:about="http://example.org/x"/>
      <rdf:Description rdf:about="http://example.org/y"/>
    </ex:list>
    <ex:ref rdf:nodeID="n1"/>
  </ex:Thing>
  <rdf:Description rdf:nodeID="n1">
    <ex:name>node</ex:name>
  </rdf:Description>
</rdf:RDF>`
	g := decodeRDFXML(t, input)
	a := IRI{Value: "http://example.org/a"}
	if !g.Has(Triple{S: a, P: IRI{Value: "http://example.org/code"}, O: Literal{Lexical: "A1"}}) {
		t.Error("missing property attribute triple")
	}
	if !g.Has(Triple{S: a, P: IRI{Value: "http://example.org/part"}, O: IRI{Value: "http://example.org/p"}}) {
		t.Error("missing nested node element triple")
	}
	if !g.Has(Triple{S: IRI{Value: "http://example.org/p"}, P: IRI{Value: RDFType}, O: IRI{Value: "http://example.org/Part"}}) {
		t.Error("missing nested node type")
	}

	address := g.Objects(a, IRI{Value: "http://example.org/address"})
	if len(address) != 1 || address[0].Kind() != TermBlankNode {
		t.Fatalf("expected one blank node address, got %v", address)
	}
	if !g.Has(Triple{S: address[0], P: IRI{Value: "http://example.org/city"}, O: Literal{Lexical: "Oslo"}}) {
		t.Error("missing parseType=Resource content")
	}

	list := g.Objects(a, IRI{Value: "http://example.org/list"})
	if len(list) != 1 {
		t.Fatalf("expected one list head, got %v", list)
	}
	first := g.Objects(list[0], IRI{Value: RDFFirst})
	if len(first) != 1 || first[0] != (IRI{Value: "http://example.org/x"}) {
		t.Fatalf("unexpected first element %v", first)
	}
	rest := g.Objects(list[0], IRI{Value: RDFRest})
	if len(rest) != 1 || len(g.Objects(rest[0], IRI{Value: RDFRest})) != 1 || g.Objects(rest[0], IRI{Value: RDFRest})[0] != (IRI{Value: RDFNil}) {
		t.Fatalf("collection is not terminated by rdf:nil")
	}

	ref := g.Objects(a, IRI{Value: "http://example.org/ref"})
	if len(ref) != 1 {
		t.Fatalf("expected one ref, got %v", ref)
	}
	if !g.Has(Triple{S: ref[0], P: IRI{Value: "http://example.org/name"}, O: Literal{Lexical: "node"}}) {
		t.Error("rdf:nodeID labels should resolve to the same blank node")
	}
}

func TestRDFXMLContainerMembership(t *testing.T) {
	input := `<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">
  <rdf:Seq rdf:about="http://example.org/seq">
    <rdf:li>one</rdf:li>
    <rdf:li>two</rdf:li>
  </rdf:Seq>
</rdf:RDF>`
	g := decodeRDFXML(t, input)
	seq := IRI{Value: "http://example.org/seq"}
	if !g.Has(Triple{S: seq, P: IRI{Value: RDFNamespace + "_1"}, O: Literal{Lexical: "one"}}) {
		t.Error("missing rdf:_1")
	}
	if !g.Has(Triple{S: seq, P: IRI{Value: RDFNamespace + "_2"}, O: Literal{Lexical: "two"}}) {
		t.Error("missing rdf:_2")
	}
}

func TestRDFXMLBaseResolution(t *testing.T) {
	input := `<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#" xmlns:ex="http://example.org/" xml:base="http://example.org/base/">
  <rdf:Description rdf:about="doc">
    <ex:see rdf:resource="../other"/>
  </rdf:Description>
</rdf:RDF>`
	g := decodeRDFXML(t, input)
	if !g.Has(Triple{S: IRI{Value: "http://example.org/base/doc"}, P: IRI{Value: "http://example.org/see"}, O: IRI{Value: "http://example.org/other"}}) {
		for _, tr := range g.Sorted() {
			t.Log(tr)
		}
		t.Fatal("relative references should resolve against xml:base")
	}
}

func TestRDFXMLMalformedReportsPosition(t *testing.T) {
	input := "<rdf:RDF xmlns:rdf=\"http://www.w3.org/1999/02/22-rdf-syntax-ns#\" xmlns:ex=\"http://example.org/\">\n" +
		"  <rdf:Description rdf:about=\"http://example.org/s\">\n" +
		"    <ex:p>value</ex:q>\n" +
		"</rdf:RDF>"
	_, err := ReadGraph(context.Background(), strings.NewReader(input), FormatRDFXML)
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if parseErr.Format != FormatRDFXML || parseErr.Line == 0 {
		t.Fatalf("expected positioned RDF/XML error, got %+v", parseErr)
	}
}

func TestRDFXMLMixedContentRejected(t *testing.T) {
	input := `<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#" xmlns:ex="http://example.org/">
  <rdf:Description rdf:about="http://example.org/s">
    <ex:p>text<ex:Node/></ex:p>
  </rdf:Description>
</rdf:RDF>`
	if _, err := ReadGraph(context.Background(), strings.NewReader(input), FormatRDFXML); err == nil {
		t.Fatal("expected mixed content error")
	}
}

func TestRDFXMLDepthLimit(t *testing.T) {
	var b strings.Builder
	b.WriteString(`<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#" xmlns:ex="http://example.org/">`)
	for i := 0; i < 10; i++ {
		b.WriteString(`<ex:N><ex:p>`)
	}
	for i := 0; i < 10; i++ {
		b.WriteString(`</ex:p></ex:N>`)
	}
	b.WriteString(`</rdf:RDF>`)
	_, err := ReadGraph(context.Background(), strings.NewReader(b.String()), FormatRDFXML, OptMaxDepth(5))
	if !errors.Is(err, ErrDepthExceeded) {
		t.Fatalf("expected ErrDepthExceeded, got %v", err)
	}
}

func TestRDFXMLLatin1Charset(t *testing.T) {
	input := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n" +
		"<rdf:RDF xmlns:rdf=\"http://www.w3.org/1999/02/22-rdf-syntax-ns#\" xmlns:ex=\"http://example.org/\">" +
		"<rdf:Description rdf:about=\"http://example.org/s\"><ex:name>Tr\xf8ndelag</ex:name></rdf:Description></rdf:RDF>"
	g := decodeRDFXML(t, input)
	if !g.Has(Triple{S: IRI{Value: "http://example.org/s"}, P: IRI{Value: "http://example.org/name"}, O: Literal{Lexical: "Trøndelag"}}) {
		t.Fatalf("latin-1 content not decoded: %v", g.Sorted())
	}
}
