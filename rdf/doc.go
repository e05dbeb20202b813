// Package rdf provides the RDF model, streaming parsers/encoders and the
// concurrent triple set used by the ingestion pipeline.
//
// Copyright 2026 Geoknoesis LLC (www.geoknoesis.com)
//
// Formats are chosen explicitly; FormatForPath maps a file extension to a
// format and never looks at content:
//   - .xml, .rdf: RDF/XML
//   - .ttl: Turtle
//   - .nt: N-Triples
//   - .jsonld: JSON-LD (decoded through json-gold)
//
// Decoders are pull-style and lazy: RDF/XML yields triples per node element,
// Turtle per statement and N-Triples per line. Blank node labels are scoped per
// document with OptBlankNodeScope so graphs from different files can be merged
// without identifier collisions.
//
// Example (decoding into a graph):
//
//	g := rdf.NewGraph()
//	err := rdf.Parse(ctx, f, rdf.FormatRDFXML, g,
//	    rdf.OptBase("http://iec.ch/TC57/2013/CIM-schema-cim16#"),
//	    rdf.OptBlankNodeScope("eq"))
//	if err != nil {
//	    // handle error
//	}
//
// Example (pull decoding):
//
//	dec, err := rdf.NewDecoder(strings.NewReader(input), rdf.FormatTurtle)
//	if err != nil {
//	    // handle error
//	}
//	defer dec.Close()
//
//	for {
//	    triple, err := dec.Next()
//	    if err == io.EOF {
//	        break
//	    }
//	    if err != nil {
//	        // handle error
//	    }
//	    // process triple.S, triple.P, triple.O
//	}
package rdf
