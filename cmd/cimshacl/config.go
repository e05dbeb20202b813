package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	log "github.com/geoknoesis/cimshacl/internal/logging"
)

func registerConfigCmd(rootCmd *cobra.Command, a *app) {
	var writePath string
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "prints the effective configuration",
		Long: "config prints the configuration after defaults, the config file and flag " +
			"overrides are applied. With --write it is saved as YAML instead.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if writePath != "" {
				if err := a.cfg.SaveToFile(writePath); err != nil {
					return err
				}
				log.Info().Str("path", writePath).Msg("configuration written")
				return nil
			}
			data, err := yaml.Marshal(a.cfg)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	configCmd.Flags().StringVar(&writePath, "write", "", "save the effective configuration to this file")
	rootCmd.AddCommand(configCmd)
}
