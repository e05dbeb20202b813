package main

import (
	"github.com/spf13/cobra"

	"github.com/geoknoesis/cimshacl/runner"
)

func registerValidateCmd(rootCmd *cobra.Command, a *app) {
	var in inputFlags
	validateCmd := &cobra.Command{
		Use:   "validate [flags] INSTANCE...",
		Short: "validate instance files and archives against SHACL constraints",
		Long: "validate merges the instance inputs, resolves the constraint imports and runs the SHACL engine.\n" +
			"Exit status is 0 when the data conforms, 1 when it does not and 2 on errors.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs, err := in.resolve(args)
			if err != nil {
				return err
			}
			defer a.serveMetrics()()

			report, err := runner.New(a.cfg).Run(cmd.Context(), inputs)
			if report != nil {
				writeReport(a.stdout, report)
			}
			if err != nil {
				return err
			}
			if err := report.WriteOutputs(a.cfg.Output); err != nil {
				return err
			}
			return exitFor(report)
		},
	}
	registerInputFlags(validateCmd, &in)
	registerInstanceFlags(validateCmd)
	registerImportsFlags(validateCmd)
	registerOracleFlags(validateCmd)
	rootCmd.AddCommand(validateCmd)
}

func (in inputFlags) resolve(args []string) (runner.Inputs, error) {
	instances, err := expandPaths(args)
	if err != nil {
		return runner.Inputs{}, err
	}
	shapes, err := expandPaths(in.shapes)
	if err != nil {
		return runner.Inputs{}, err
	}
	return runner.Inputs{Instances: instances, Shapes: shapes, DatatypeTable: in.datatypes}, nil
}
