package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/geoknoesis/cimshacl/imports"
	"github.com/geoknoesis/cimshacl/runner"
)

func registerImportsCmd(rootCmd *cobra.Command, a *app) {
	var out string
	importsCmd := &cobra.Command{
		Use:   "imports [flags] ROOT...",
		Short: "resolve the owl:imports closure of constraint files",
		Long:  "imports lists every document reached from the roots. Exit status is 1 when an import failed.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			roots, err := expandPaths(args)
			if err != nil {
				return err
			}
			res, err := runner.New(a.cfg).Constraints(cmd.Context(), roots...)
			if res != nil {
				writeDocuments(a, res)
			}
			if err != nil {
				return err
			}
			if out != "" {
				if err := writeGraph(a.stdout, out, res.Graph); err != nil {
					return err
				}
			}
			if failed := len(res.Failed()); failed > 0 {
				return &exitCodeError{code: exitViolations, msg: fmt.Sprintf("%d imports failed", failed)}
			}
			return nil
		},
	}
	importsCmd.Flags().StringVarP(&out, "out", "o", "", "write the merged constraint graph here")
	registerImportsFlags(importsCmd)
	rootCmd.AddCommand(importsCmd)
}

func writeDocuments(a *app, res *imports.Result) {
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STATE\tTRIPLES\tTARGET\tIMPORTED BY")
	for _, doc := range res.Documents {
		state := doc.State.String()
		if doc.State == imports.StateFailed {
			state = color.RedString(state)
		}
		parent := doc.Parent
		if parent == "" {
			parent = "-"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", state, doc.Triples, doc.Target, parent)
	}
	tw.Flush()
	for _, doc := range res.Failed() {
		fmt.Fprintf(a.stderr, "%s: %v\n", doc.Target, doc.Err)
	}
	for _, target := range res.Ignored {
		fmt.Fprintf(a.stdout, "ignored %s\n", target)
	}
	writeShapesSummary(a.stdout, res)
}
