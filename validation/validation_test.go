package validation

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoknoesis/cimshacl/rdf"
)

const reportTurtle = `@prefix sh: <http://www.w3.org/ns/shacl#> .
@prefix ex: <http://ex.org/> .
[] a sh:ValidationReport ;
  sh:conforms false ;
  sh:result [
    a sh:ValidationResult ;
    sh:resultSeverity sh:Violation ;
    sh:focusNode ex:L1 ;
    sh:resultPath ex:r ;
    sh:value "abc" ;
    sh:resultMessage "Value is not Literal with datatype xsd:decimal" ;
    sh:sourceShape ex:RShape ;
    sh:sourceConstraintComponent sh:DatatypeConstraintComponent
  ], [
    a sh:ValidationResult ;
    sh:resultSeverity sh:Warning ;
    sh:focusNode ex:A0 ;
    sh:sourceShape ex:NameShape ;
    sh:sourceConstraintComponent sh:MinCountConstraintComponent ;
    sh:resultMessage "Less than 1 values on ex:A0->ex:name"
  ] .
`

func reportGraph(t *testing.T) *rdf.Graph {
	t.Helper()
	g, err := rdf.ReadGraph(context.Background(), strings.NewReader(reportTurtle), rdf.FormatTurtle)
	require.NoError(t, err)
	return g
}

func TestResults(t *testing.T) {
	results := Results(reportGraph(t))
	require.Len(t, results, 2)

	warning := results[0]
	assert.Equal(t, rdf.IRI{Value: "http://ex.org/A0"}, warning.Focus)
	assert.Equal(t, "Warning", warning.SeverityName())
	assert.Nil(t, warning.Path)
	assert.Nil(t, warning.Value)

	violation := results[1]
	assert.Equal(t, rdf.SHACLNamespace+"Violation", violation.Severity)
	assert.Equal(t, rdf.IRI{Value: "http://ex.org/r"}, violation.Path)
	assert.Equal(t, rdf.Literal{Lexical: "abc"}, violation.Value)
	assert.Equal(t, rdf.IRI{Value: "http://ex.org/RShape"}, violation.SourceShape)
	assert.Equal(t, rdf.IRI{Value: rdf.SHACLNamespace + "DatatypeConstraintComponent"}, violation.Constraint)
	assert.Equal(t, []string{"Value is not Literal with datatype xsd:decimal"}, violation.Messages)

	assert.Equal(t, map[string]int{"Violation": 1, "Warning": 1}, CountBySeverity(results))
	assert.Empty(t, Results(nil))
}

func TestResultsLargeReport(t *testing.T) {
	const n = 5000
	g := rdf.NewGraph()
	for i := n - 1; i >= 0; i-- {
		node := rdf.BlankNode{ID: fmt.Sprintf("r%d", i)}
		for _, tr := range []rdf.Triple{
			{S: node, P: rdf.IRI{Value: rdf.RDFType}, O: rdf.IRI{Value: rdf.SHACLValResult}},
			{S: node, P: rdf.IRI{Value: shResultSeverity}, O: rdf.IRI{Value: rdf.SHACLNamespace + "Violation"}},
			{S: node, P: rdf.IRI{Value: shFocusNode}, O: rdf.IRI{Value: fmt.Sprintf("http://ex.org/n%05d", i)}},
			{S: node, P: rdf.IRI{Value: shResultPath}, O: rdf.IRI{Value: "http://ex.org/p"}},
			{S: node, P: rdf.IRI{Value: shValue}, O: rdf.Literal{Lexical: fmt.Sprint(i)}},
			{S: node, P: rdf.IRI{Value: shResultMessage}, O: rdf.Literal{Lexical: "bad value"}},
			{S: node, P: rdf.IRI{Value: shSourceShape}, O: rdf.IRI{Value: "http://ex.org/PShape"}},
		} {
			g.Add(tr)
		}
	}

	start := time.Now()
	results := Results(g)
	elapsed := time.Since(start)

	require.Len(t, results, n)
	assert.Less(t, elapsed, 5*time.Second)
	for i, r := range results {
		require.Equal(t, rdf.IRI{Value: fmt.Sprintf("http://ex.org/n%05d", i)}, r.Focus)
		require.Equal(t, rdf.Literal{Lexical: fmt.Sprint(i)}, r.Value)
		require.Equal(t, []string{"bad value"}, r.Messages)
	}
	assert.Equal(t, map[string]int{"Violation": n}, CountBySeverity(results))
}

func TestConforms(t *testing.T) {
	conforms, ok := Conforms(reportGraph(t))
	assert.True(t, ok)
	assert.False(t, conforms)

	_, ok = Conforms(rdf.NewGraph())
	assert.False(t, ok)
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, false, Results(reportGraph(t))))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "Validation Report\nConforms: false\nResults (2):\n"))
	assert.Contains(t, out, "Violation: "+rdf.SHACLNamespace+"DatatypeConstraintComponent\n")
	assert.Contains(t, out, "\tValue Node: abc\n")
	assert.Contains(t, out, "\tMessage: Less than 1 values on ex:A0->ex:name\n")
}

func TestWriteDiagnosticsJSONLD(t *testing.T) {
	diag := reportGraph(t)
	var buf bytes.Buffer
	require.NoError(t, WriteDiagnostics(&buf, &Verdict{Diagnostics: diag}, rdf.FormatJSONLD))
	assert.Contains(t, buf.String(), `"sh:`)

	back, err := rdf.ReadGraph(context.Background(), &buf, rdf.FormatJSONLD)
	require.NoError(t, err)
	assert.Equal(t, diag.Len(), back.Len())
	assert.Len(t, Results(back), 2)
}

func TestOracleFunc(t *testing.T) {
	called := false
	var o Oracle = OracleFunc(func(ctx context.Context, data, shapes *rdf.Graph) (*Verdict, error) {
		called = true
		return &Verdict{Conforms: data.Len() == 0}, nil
	})
	v, err := o.Validate(context.Background(), rdf.NewGraph(), rdf.NewGraph())
	require.NoError(t, err)
	assert.True(t, called)
	assert.True(t, v.Conforms)
}

// fakeValidator writes a script that records its arguments, copies report to
// the -o target and exits with status.
func fakeValidator(t *testing.T, report *rdf.Graph, status int, sleep string) (command, argsFile string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script validator")
	}
	dir := t.TempDir()
	reportFile := filepath.Join(dir, "report.src")
	var buf bytes.Buffer
	require.NoError(t, rdf.WriteGraph(&buf, report, rdf.FormatNTriples))
	require.NoError(t, os.WriteFile(reportFile, buf.Bytes(), 0o644))

	argsFile = filepath.Join(dir, "args.txt")
	script := fmt.Sprintf(`#!/bin/sh
echo "$@" > %q
out=""
while [ $# -gt 0 ]; do
  if [ "$1" = "-o" ]; then out="$2"; shift; fi
  shift
done
%s
cp %q "$out"
echo "validator failed" >&2
exit %d
`, argsFile, sleep, reportFile, status)
	command = filepath.Join(dir, "pyshacl")
	require.NoError(t, os.WriteFile(command, []byte(script), 0o755))
	return command, argsFile
}

func sampleGraphs() (data, shapes *rdf.Graph) {
	data = rdf.NewGraph()
	data.Add(rdf.Triple{S: rdf.IRI{Value: "http://ex.org/L1"}, P: rdf.IRI{Value: "http://ex.org/r"}, O: rdf.Literal{Lexical: "abc"}})
	shapes = rdf.NewGraph()
	shapes.Add(rdf.Triple{S: rdf.IRI{Value: "http://ex.org/RShape"}, P: rdf.IRI{Value: rdf.RDFType}, O: rdf.IRI{Value: rdf.SHACLNamespace + "NodeShape"}})
	return data, shapes
}

func TestExecOracleViolations(t *testing.T) {
	command, argsFile := fakeValidator(t, reportGraph(t), 1, "")
	o := &ExecOracle{Command: command, Args: []string{"--allow-warnings"}, Timeout: 10 * time.Second}
	data, shapes := sampleGraphs()

	v, err := o.Validate(context.Background(), data, shapes)
	require.NoError(t, err)
	assert.False(t, v.Conforms)
	assert.Len(t, Results(v.Diagnostics), 2)
	assert.Contains(t, v.Text, "Conforms: false")

	args, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	assert.Regexp(t, `^--allow-warnings -s \S+shapes\.nt -sf nt -df nt -i none -f nt -o \S+report\.nt \S+data\.nt`, string(args))
}

func TestExecOracleTrustsReportOverExitStatus(t *testing.T) {
	conforming := rdf.NewGraph()
	conforming.Add(rdf.Triple{S: rdf.BlankNode{ID: "r"}, P: rdf.IRI{Value: rdf.RDFType}, O: rdf.IRI{Value: rdf.SHACLReport}})
	conforming.Add(rdf.Triple{S: rdf.BlankNode{ID: "r"}, P: rdf.IRI{Value: rdf.SHACLConforms}, O: rdf.Literal{Lexical: "true", Datatype: rdf.IRI{Value: rdf.XSDBoolean}}})
	command, _ := fakeValidator(t, conforming, 1, "")

	data, shapes := sampleGraphs()
	v, err := (&ExecOracle{Command: command}).Validate(context.Background(), data, shapes)
	require.NoError(t, err)
	assert.True(t, v.Conforms)
}

func TestExecOracleFailures(t *testing.T) {
	data, shapes := sampleGraphs()

	t.Run("error status", func(t *testing.T) {
		command, _ := fakeValidator(t, reportGraph(t), 2, "")
		_, err := (&ExecOracle{Command: command}).Validate(context.Background(), data, shapes)
		require.ErrorIs(t, err, ErrOracleFailed)
		assert.Contains(t, err.Error(), "validator failed")
	})

	t.Run("missing command", func(t *testing.T) {
		_, err := (&ExecOracle{Command: filepath.Join(t.TempDir(), "nope")}).Validate(context.Background(), data, shapes)
		assert.ErrorIs(t, err, ErrOracleFailed)
	})

	t.Run("timeout", func(t *testing.T) {
		command, _ := fakeValidator(t, reportGraph(t), 0, "exec sleep 5")
		start := time.Now()
		_, err := (&ExecOracle{Command: command, Timeout: 100 * time.Millisecond}).Validate(context.Background(), data, shapes)
		require.ErrorIs(t, err, ErrOracleFailed)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Less(t, time.Since(start), 4*time.Second)
	})
}
