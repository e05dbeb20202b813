package main

import (
	"github.com/spf13/cobra"

	"github.com/geoknoesis/cimshacl/config"
)

// inputFlags are the run inputs shared by validate and watch.
type inputFlags struct {
	shapes    []string
	datatypes string
}

func registerInputFlags(cmd *cobra.Command, in *inputFlags) {
	cmd.Flags().StringSliceVarP(&in.shapes, "shapes", "s", nil, "SHACL constraint root (file, glob or URL); repeatable")
	cmd.Flags().StringVarP(&in.datatypes, "datatypes", "d", "", "datatype table (.xlsx, .csv or an RDFS file)")
	_ = cmd.MarkFlagRequired("shapes")
}

func registerInstanceFlags(cmd *cobra.Command) {
	cmd.Flags().String("base-iri", "", "base IRI for rdf:ID and relative references in instance data")
	cmd.Flags().Int("workers", 0, "leaves parsed concurrently (0 = one per CPU)")
	cmd.Flags().Int("max-archive-depth", 0, "maximum archive nesting")
	cmd.Flags().String("sheet", "", "spreadsheet tab holding the datatype table")
}

func registerImportsFlags(cmd *cobra.Command) {
	cmd.Flags().Duration("import-timeout", 0, "timeout of each remote import fetch")
	cmd.Flags().Int("import-retries", 0, "retries after a failed remote import fetch")
	cmd.Flags().StringSlice("ignore-import", nil, "import target that is never fetched; repeatable")
}

func registerOracleFlags(cmd *cobra.Command) {
	cmd.Flags().String("oracle-command", "", "SHACL engine executable")
	cmd.Flags().String("inference", "", `inference regime ("none", "rdfs", "owlrl", "both")`)
	cmd.Flags().Duration("oracle-timeout", 0, "timeout of one validation")
	cmd.Flags().StringP("output", "o", "", "diagnostics file; the extension picks the serialization")
	cmd.Flags().String("data-dump", "", "also write the merged instance graph here")
	cmd.Flags().String("shapes-dump", "", "also write the merged constraint graph here")
}

// applyOverrides copies explicitly set flags over the loaded config.
func applyOverrides(cmd *cobra.Command, cfg *config.Config) {
	overrideString(cmd, "log-level", &cfg.Log.Level)
	overrideString(cmd, "log-format", &cfg.Log.Format)
	overrideString(cmd, "metrics-listen", &cfg.Metrics.Listen)

	overrideString(cmd, "base-iri", &cfg.Instance.BaseIRI)
	overrideInt(cmd, "workers", &cfg.Instance.Workers)
	overrideInt(cmd, "max-archive-depth", &cfg.Instance.MaxArchiveDepth)
	overrideString(cmd, "sheet", &cfg.Datatypes.Sheet)

	if cmd.Flags().Changed("import-timeout") {
		cfg.Imports.Timeout, _ = cmd.Flags().GetDuration("import-timeout")
	}
	overrideInt(cmd, "import-retries", &cfg.Imports.Retries)
	if cmd.Flags().Changed("ignore-import") {
		ignore, _ := cmd.Flags().GetStringSlice("ignore-import")
		cfg.Imports.Ignore = append(cfg.Imports.Ignore, ignore...)
	}

	overrideString(cmd, "oracle-command", &cfg.Oracle.Command)
	overrideString(cmd, "inference", &cfg.Oracle.Inference)
	if cmd.Flags().Changed("oracle-timeout") {
		cfg.Oracle.Timeout, _ = cmd.Flags().GetDuration("oracle-timeout")
	}
	overrideString(cmd, "output", &cfg.Output.Diagnostics)
	overrideString(cmd, "data-dump", &cfg.Output.DataDump)
	overrideString(cmd, "shapes-dump", &cfg.Output.ShapesDump)

	if cmd.Flags().Changed("debounce") {
		cfg.Watch.Debounce, _ = cmd.Flags().GetDuration("debounce")
	}
}

func overrideString(cmd *cobra.Command, name string, dst *string) {
	if cmd.Flags().Changed(name) {
		*dst, _ = cmd.Flags().GetString(name)
	}
}

func overrideInt(cmd *cobra.Command, name string, dst *int) {
	if cmd.Flags().Changed(name) {
		*dst, _ = cmd.Flags().GetInt(name)
	}
}
