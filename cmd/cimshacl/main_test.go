package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoknoesis/cimshacl/config"
)

const reportTemplate = `_:r <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <http://www.w3.org/ns/shacl#ValidationReport> .
_:r <http://www.w3.org/ns/shacl#conforms> "%t"^^<http://www.w3.org/2001/XMLSchema#boolean> .
`

type workspace struct {
	t      *testing.T
	dir    string
	config string
}

func newWorkspace(t *testing.T) *workspace {
	t.Helper()
	w := &workspace{t: t, dir: t.TempDir()}
	w.config = w.write("cimshacl.yaml", "log:\n  level: error\n  format: json\n")
	w.write("data/a.nt", "<urn:s> <urn:p> \"5\" .\n")
	w.write("shapes/root.ttl", "<urn:shapes> <http://www.w3.org/2002/07/owl#imports> <common.ttl> .\n")
	w.write("shapes/common.ttl", "<urn:Shape> a <http://www.w3.org/ns/shacl#NodeShape> .\n")
	w.write("types.csv", "Property,Datatype\nurn:p,http://www.w3.org/2001/XMLSchema#integer\n")
	return w
}

func (w *workspace) path(name string) string { return filepath.Join(w.dir, name) }

func (w *workspace) write(name, content string) string {
	w.t.Helper()
	path := w.path(name)
	require.NoError(w.t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(w.t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// engine writes a stand-in SHACL engine that emits a fixed report.
func (w *workspace) engine(conforms bool, status int) string {
	w.t.Helper()
	if runtime.GOOS == "windows" {
		w.t.Skip("shell script engine")
	}
	report := w.write(fmt.Sprintf("report-%t.nt", conforms), fmt.Sprintf(reportTemplate, conforms))
	script := fmt.Sprintf(`#!/bin/sh
out=""
while [ $# -gt 0 ]; do
  if [ "$1" = "-o" ]; then out="$2"; shift; fi
  shift
done
cp %q "$out"
exit %d
`, report, status)
	path := w.path(fmt.Sprintf("engine-%t.sh", conforms))
	require.NoError(w.t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func (w *workspace) run(args ...string) (code int, stdout, stderr string) {
	var out, errb bytes.Buffer
	args = append([]string{args[0], "--config", w.config}, args[1:]...)
	code = run(context.Background(), args, &out, &errb)
	return code, out.String(), errb.String()
}

func TestVersion(t *testing.T) {
	var out bytes.Buffer
	code := run(context.Background(), []string{"version"}, &out, &out)
	assert.Equal(t, exitConforms, code)
	assert.Contains(t, out.String(), "cimshacl ")
}

func TestValidateExitCodes(t *testing.T) {
	w := newWorkspace(t)
	diagnostics := w.path("out/results.jsonld")

	code, stdout, stderr := w.run("validate",
		"--shapes", w.path("shapes/root.ttl"),
		"--datatypes", w.path("types.csv"),
		"--oracle-command", w.engine(true, 0),
		"--output", diagnostics,
		w.path("data/*.nt"))
	require.Equal(t, exitConforms, code, stderr)
	assert.Contains(t, stdout, "validation: conforms")
	assert.Contains(t, stdout, "instance: 1 leaves parsed, 0 skipped, 1 triples")
	assert.Contains(t, stdout, "shapes: 2 documents, 0 failed")
	assert.FileExists(t, diagnostics)

	code, stdout, _ = w.run("validate",
		"-s", w.path("shapes/root.ttl"),
		"--oracle-command", w.engine(false, 1),
		"--output", diagnostics,
		w.path("data/a.nt"))
	assert.Equal(t, exitViolations, code)
	assert.Contains(t, stdout, "validation: does not conform")

	w.write("data/broken.ttl", "<urn:x> <urn:p> .\n")
	code, stdout, _ = w.run("validate",
		"-s", w.path("shapes/root.ttl"),
		"--oracle-command", w.engine(true, 0),
		"--output", diagnostics,
		w.path("data/**"))
	assert.Equal(t, exitConforms, code)
	assert.Contains(t, stdout, "conforms (incomplete input)")
	assert.Contains(t, stdout, "skipped:")
}

func TestValidateErrors(t *testing.T) {
	w := newWorkspace(t)

	code, _, stderr := w.run("validate",
		"-s", w.path("shapes/root.ttl"),
		"--oracle-command", w.path("no-such-engine"),
		"--output", w.path("out/results.jsonld"),
		w.path("data/a.nt"))
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr, "oracle failed")

	code, _, stderr = w.run("validate", "-s", w.path("shapes/root.ttl"), "--inference", "magic", w.path("data/a.nt"))
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr, "inference")

	code, _, stderr = w.run("validate", "-s", w.path("shapes/root.ttl"), w.path("nothing/*.xml"))
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr, "matched no files")

	code, _, _ = w.run("validate", w.path("data/a.nt"))
	assert.Equal(t, exitError, code, "shapes are required")
}

func TestMerge(t *testing.T) {
	w := newWorkspace(t)

	code, stdout, stderr := w.run("merge", "--datatypes", w.path("types.csv"), w.path("data/a.nt"))
	require.Equal(t, exitConforms, code, stderr)
	assert.Equal(t, "<urn:s> <urn:p> \"5\"^^<http://www.w3.org/2001/XMLSchema#integer> .\n", stdout)

	out := w.path("merged.ttl")
	code, _, stderr = w.run("merge", "-o", out, w.path("data/a.nt"))
	require.Equal(t, exitConforms, code, stderr)
	assert.FileExists(t, out)

	code, _, stderr = w.run("merge", w.path("data/missing.nt"))
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr, "no instance")
}

func TestImports(t *testing.T) {
	w := newWorkspace(t)

	code, stdout, stderr := w.run("imports", w.path("shapes/root.ttl"))
	require.Equal(t, exitConforms, code, stderr)
	assert.Contains(t, stdout, "visited")
	assert.Contains(t, stdout, w.path("shapes/common.ttl"))

	w.write("shapes/root.ttl", "<urn:shapes> <http://www.w3.org/2002/07/owl#imports> <missing.ttl> .\n")
	code, stdout, stderr = w.run("imports", w.path("shapes/root.ttl"))
	assert.Equal(t, exitViolations, code)
	assert.Contains(t, stdout, "failed")
	assert.Contains(t, stderr, "missing.ttl")
}

func TestConfigCmd(t *testing.T) {
	w := newWorkspace(t)

	code, stdout, stderr := w.run("config", "--log-level", "warn")
	require.Equal(t, exitConforms, code, stderr)
	assert.Contains(t, stdout, "level: warn")
	assert.Contains(t, stdout, "maxTriplesPerLeaf: 0")

	out := w.path("saved/cimshacl.yaml")
	code, _, stderr = w.run("config", "--log-level", "warn", "--write", out)
	require.Equal(t, exitConforms, code, stderr)
	saved, err := config.LoadFromFile(out)
	require.NoError(t, err)
	assert.Equal(t, "warn", saved.Log.Level)
	assert.Equal(t, "json", saved.Log.Format)
}

func TestExpandPaths(t *testing.T) {
	w := newWorkspace(t)
	w.write("data/nested/b.xml", "<x/>")

	got, err := expandPaths([]string{w.path("data/**/*.{nt,xml}"), w.path("data/a.nt"), "https://example.org/shapes.ttl", w.path("plain.nt")})
	require.NoError(t, err)
	assert.Equal(t, []string{
		w.path("data/a.nt"),
		w.path("data/nested/b.xml"),
		"https://example.org/shapes.ttl",
		w.path("plain.nt"),
	}, got)

	_, err = expandPaths([]string{w.path("data/*.zip")})
	assert.Error(t, err)
}
