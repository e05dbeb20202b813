package rdf

import (
	"mime"
	"path/filepath"
	"strings"
)

// Format identifies RDF serialization formats.
type Format string

const (
	FormatRDFXML   Format = "rdfxml"
	FormatTurtle   Format = "turtle"
	FormatNTriples Format = "ntriples"
	FormatJSONLD   Format = "jsonld"
)

// Formats lists every supported format.
var Formats = []Format{FormatRDFXML, FormatTurtle, FormatNTriples, FormatJSONLD}

// ParseFormat normalizes a format string.
func ParseFormat(value string) (Format, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "rdfxml", "rdf", "xml", "rdf/xml":
		return FormatRDFXML, true
	case "turtle", "ttl":
		return FormatTurtle, true
	case "ntriples", "nt", "n-triples":
		return FormatNTriples, true
	case "jsonld", "json-ld":
		return FormatJSONLD, true
	default:
		return "", false
	}
}

// FormatForPath resolves the format of a file from its extension only.
// Content is never inspected.
func FormatForPath(name string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xml", ".rdf":
		return FormatRDFXML, true
	case ".ttl":
		return FormatTurtle, true
	case ".nt":
		return FormatNTriples, true
	case ".jsonld":
		return FormatJSONLD, true
	default:
		return "", false
	}
}

// FormatForContentType resolves the format from a MIME type such as an HTTP
// Content-Type header. Parameters are ignored.
func FormatForContentType(contentType string) (Format, bool) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}
	switch mediaType {
	case "application/rdf+xml":
		return FormatRDFXML, true
	case "text/turtle", "application/x-turtle":
		return FormatTurtle, true
	case "application/n-triples":
		return FormatNTriples, true
	case "application/ld+json":
		return FormatJSONLD, true
	default:
		return "", false
	}
}

// Extension returns the canonical file extension for the format.
func (f Format) Extension() string {
	switch f {
	case FormatRDFXML:
		return ".rdf"
	case FormatTurtle:
		return ".ttl"
	case FormatNTriples:
		return ".nt"
	case FormatJSONLD:
		return ".jsonld"
	default:
		return ""
	}
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	switch f {
	case FormatRDFXML:
		return "application/rdf+xml"
	case FormatTurtle:
		return "text/turtle"
	case FormatNTriples:
		return "application/n-triples"
	case FormatJSONLD:
		return "application/ld+json"
	default:
		return ""
	}
}
