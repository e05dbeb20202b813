package rdf

import (
	"net/url"
	"strings"
)

// ResolveIRI resolves a relative reference against a base IRI according to
// RFC 3986. An empty base leaves the reference untouched.
func ResolveIRI(base, ref string) string {
	if base == "" || isAbsoluteIRI(ref) {
		return ref
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return concatIRI(base, ref)
	}
	if ref == "" {
		baseURL.Fragment = ""
		baseURL.RawFragment = ""
		return baseURL.String()
	}
	if strings.HasPrefix(ref, "#") {
		// net/url would re-escape the fragment; keep it verbatim.
		return stripFragment(base) + ref
	}
	relURL, err := url.Parse(ref)
	if err != nil {
		return concatIRI(base, ref)
	}
	return baseURL.ResolveReference(relURL).String()
}

func isAbsoluteIRI(value string) bool {
	colon := strings.IndexByte(value, ':')
	if colon <= 0 {
		return false
	}
	for i := 0; i < colon; i++ {
		ch := value[i]
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z':
		case i > 0 && (ch >= '0' && ch <= '9' || ch == '+' || ch == '-' || ch == '.'):
		default:
			return false
		}
	}
	return true
}

func stripFragment(iri string) string {
	if i := strings.IndexByte(iri, '#'); i >= 0 {
		return iri[:i]
	}
	return iri
}

func concatIRI(base, ref string) string {
	if strings.HasSuffix(base, "/") || strings.HasSuffix(base, "#") {
		return base + ref
	}
	if lastSlash := strings.LastIndex(base, "/"); lastSlash >= 0 {
		return base[:lastSlash+1] + ref
	}
	return base + "/" + ref
}
