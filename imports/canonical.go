package imports

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/geoknoesis/cimshacl/rdf"
)

// Canonical returns the identity used for visited-set membership: a lower-cased
// scheme and host URL without fragment for http(s) targets, otherwise a clean
// absolute local path. file: URIs resolve to their path; an opaque one such as
// file:shapes.ttl is relative to the working directory.
func Canonical(target string) (string, error) {
	target = strings.TrimSpace(target)
	if u, err := url.Parse(target); err == nil {
		switch strings.ToLower(u.Scheme) {
		case "http", "https":
			u.Scheme = strings.ToLower(u.Scheme)
			u.Host = strings.ToLower(u.Host)
			u.Fragment = ""
			u.RawFragment = ""
			return u.String(), nil
		case "file":
			path := u.Path
			if path == "" {
				// file:shapes.ttl
				path = u.Opaque
			}
			if path == "" {
				return "", fmt.Errorf("file URI %q names no path", target)
			}
			return filepath.Abs(filepath.FromSlash(path))
		}
	}
	return filepath.Abs(target)
}

// IsRemote reports whether a canonical target is fetched over the network.
func IsRemote(target string) bool {
	return strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://")
}

// baseIRI is the IRI relative references inside target resolve against.
func baseIRI(target string) string {
	if IsRemote(target) {
		return target
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(target)}).String()
}

// namespaceKey folds the "#" and "/" spellings of a namespace together.
func namespaceKey(target string) string {
	return strings.TrimRight(target, "#/")
}

// shaclKey is the SHACL core vocabulary, implicit in every validator.
var shaclKey = namespaceKey(rdf.SHACLNamespace)

// formatFor picks the parser for a fetched document: extension first, then
// the response content type, then fallback.
func formatFor(target, contentType string, fallback rdf.Format) rdf.Format {
	name := target
	if IsRemote(target) {
		if u, err := url.Parse(target); err == nil {
			name = u.Path
		}
	}
	if f, ok := rdf.FormatForPath(name); ok {
		return f
	}
	if f, ok := rdf.FormatForContentType(contentType); ok {
		return f
	}
	return fallback
}
