package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/geoknoesis/cimshacl/imports"
	"github.com/geoknoesis/cimshacl/ingest"
	"github.com/geoknoesis/cimshacl/runner"
	"github.com/geoknoesis/cimshacl/validation"
)

func statusColor(s runner.Status) *color.Color {
	switch s {
	case runner.StatusConforms:
		return color.New(color.FgGreen, color.Bold)
	case runner.StatusConformsIncomplete:
		return color.New(color.FgYellow, color.Bold)
	default:
		return color.New(color.FgRed, color.Bold)
	}
}

func writeInstanceSummary(w io.Writer, res *ingest.Result) {
	if res == nil {
		return
	}
	fmt.Fprintf(w, "instance: %d leaves parsed, %d skipped, %s triples (%s inflated)\n",
		res.Parsed(), len(res.Warnings), humanize.Comma(int64(res.Graph.Len())),
		humanize.IBytes(uint64(res.Archive.Bytes)))
}

func writeShapesSummary(w io.Writer, res *imports.Result) {
	if res == nil {
		return
	}
	fmt.Fprintf(w, "shapes: %d documents, %d failed, %d ignored, %s triples\n",
		len(res.Documents), len(res.Failed()), len(res.Ignored), humanize.Comma(int64(res.Graph.Len())))
}

func writeReport(w io.Writer, report *runner.Report) {
	fmt.Fprintf(w, "run %s\n", report.RunID)
	writeInstanceSummary(w, report.Instance)
	writeShapesSummary(w, report.Shapes)
	if len(report.Skipped) > 0 {
		warn := color.New(color.FgYellow)
		fmt.Fprintln(w, "skipped:")
		for _, s := range report.Skipped {
			warn.Fprintf(w, "  %s\n", s)
		}
	}
	if report.Verdict == nil {
		return
	}
	status := report.Status()
	fmt.Fprintf(w, "validation: %s", statusColor(status).Sprint(status))
	if counts := validation.CountBySeverity(report.Results); len(counts) > 0 {
		fmt.Fprintf(w, " (%s)", severitySummary(counts))
	}
	fmt.Fprintf(w, " in %s\n", report.Timings.Validation.Round(time.Millisecond))
	if len(report.Results) > 0 && report.Verdict.Text != "" {
		fmt.Fprintln(w)
		fmt.Fprint(w, report.Verdict.Text)
	}
}

func severitySummary(counts map[string]int) string {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%d %s", counts[name], strings.ToLower(name))
	}
	return strings.Join(parts, ", ")
}

func exitFor(report *runner.Report) error {
	if report.Status() == runner.StatusViolations {
		return &exitCodeError{code: exitViolations, msg: "data does not conform"}
	}
	return nil
}
