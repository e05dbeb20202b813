package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/geoknoesis/cimshacl/rdf"
	"github.com/geoknoesis/cimshacl/runner"
)

func registerMergeCmd(rootCmd *cobra.Command, a *app) {
	var datatypes, out string
	mergeCmd := &cobra.Command{
		Use:   "merge [flags] INSTANCE...",
		Short: "merge and retype instance data without validating it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs, err := expandPaths(args)
			if err != nil {
				return err
			}
			r := runner.New(a.cfg)
			table, err := r.LoadTable(datatypes)
			if err != nil {
				return err
			}
			res, err := r.Merge(cmd.Context(), table, inputs...)
			if res != nil {
				writeInstanceSummary(a.stderr, res)
				for _, w := range res.Warnings {
					fmt.Fprintf(a.stderr, "  skipped %s\n", w)
				}
			}
			if err != nil {
				return err
			}
			return writeGraph(a.stdout, out, res.Graph)
		},
	}
	mergeCmd.Flags().StringVarP(&datatypes, "datatypes", "d", "", "datatype table (.xlsx, .csv or an RDFS file)")
	mergeCmd.Flags().StringVarP(&out, "out", "o", "", "output file; the extension picks the serialization (default: N-Triples on stdout)")
	registerInstanceFlags(mergeCmd)
	rootCmd.AddCommand(mergeCmd)
}

// writeGraph writes g to path, or as N-Triples to stdout when path is empty.
func writeGraph(stdout io.Writer, path string, g *rdf.Graph) error {
	if path == "" {
		return rdf.WriteGraph(stdout, g, rdf.FormatNTriples)
	}
	format, ok := rdf.FormatForPath(path)
	if !ok || format == rdf.FormatRDFXML {
		return fmt.Errorf("cannot write %s: use .ttl, .nt or .jsonld", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := rdf.WriteGraph(f, g, format); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
