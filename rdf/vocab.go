package rdf

// Namespaces used across the ingestion and validation pipeline.
const (
	RDFNamespace   = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	RDFSNamespace  = "http://www.w3.org/2000/01/rdf-schema#"
	XSDNamespace   = "http://www.w3.org/2001/XMLSchema#"
	OWLNamespace   = "http://www.w3.org/2002/07/owl#"
	SHACLNamespace = "http://www.w3.org/ns/shacl#"
	XMLNamespace   = "http://www.w3.org/XML/1998/namespace"
)

// Frequently used IRIs.
const (
	RDFType        = RDFNamespace + "type"
	RDFFirst       = RDFNamespace + "first"
	RDFRest        = RDFNamespace + "rest"
	RDFNil         = RDFNamespace + "nil"
	RDFLangString  = RDFNamespace + "langString"
	RDFXMLLiteral  = RDFNamespace + "XMLLiteral"
	RDFSubject     = RDFNamespace + "subject"
	RDFPredicate   = RDFNamespace + "predicate"
	RDFObject      = RDFNamespace + "object"
	RDFStatement   = RDFNamespace + "Statement"
	RDFSRange      = RDFSNamespace + "range"
	OWLImports     = OWLNamespace + "imports"
	XSDString      = XSDNamespace + "string"
	XSDBoolean     = XSDNamespace + "boolean"
	XSDInteger     = XSDNamespace + "integer"
	XSDDecimal     = XSDNamespace + "decimal"
	XSDDouble      = XSDNamespace + "double"
	SHACLConforms  = SHACLNamespace + "conforms"
	SHACLResult    = SHACLNamespace + "result"
	SHACLValResult = SHACLNamespace + "ValidationResult"
	SHACLReport    = SHACLNamespace + "ValidationReport"
)
