package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/geoknoesis/cimshacl/runner"
)

func registerWatchCmd(rootCmd *cobra.Command, a *app) {
	var in inputFlags
	watchCmd := &cobra.Command{
		Use:   "watch [flags] INSTANCE...",
		Short: "validate and revalidate whenever an input changes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs, err := in.resolve(args)
			if err != nil {
				return err
			}
			defer a.serveMetrics()()

			r := runner.New(a.cfg)
			return r.Watch(cmd.Context(), inputs, func(report *runner.Report, err error) {
				if cmd.Context().Err() != nil {
					return
				}
				if report != nil {
					writeReport(a.stdout, report)
				}
				if err == nil {
					err = report.WriteOutputs(a.cfg.Output)
				}
				if err != nil {
					fmt.Fprintf(a.stderr, "cimshacl: %v\n", err)
				}
				fmt.Fprintln(a.stdout)
			})
		},
	}
	registerInputFlags(watchCmd, &in)
	registerInstanceFlags(watchCmd)
	registerImportsFlags(watchCmd)
	registerOracleFlags(watchCmd)
	watchCmd.Flags().Duration("debounce", 0, "delay before rerunning after a change")
	rootCmd.AddCommand(watchCmd)
}
