package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ayusman/chikitsa/internal/config"
)

func newConfigCommand(configFlag *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a sample configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := *configFlag
			if path == "" {
				var err error
				path, err = config.DefaultConfigPath()
				if err != nil {
					return err
				}
			}
			if err := config.CreateSample(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sample configuration written to %s\n", path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load(*configFlag)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if exists {
				fmt.Fprintf(out, "Configuration: %s\n", path)
			} else {
				fmt.Fprintf(out, "Configuration: defaults (no file at %s)\n", path)
			}
			fmt.Fprintf(out, "Bind:       %s\n", cfg.Server.Bind)
			fmt.Fprintf(out, "Camera:     device %d, %d-%d fps\n", cfg.Camera.DeviceID, cfg.Camera.IdleFPS, cfg.Camera.ActiveFPS)
			fmt.Fprintf(out, "Database:   %s\n", cfg.DatabasePath())
			fmt.Fprintf(out, "Plugins:    %s\n", cfg.Feedback.PluginDir)
			if cfg.LLM.APIKey != "" {
				fmt.Fprintf(out, "Reports:    %s via %s\n", cfg.LLM.Model, cfg.LLM.BaseURL)
			} else {
				fmt.Fprintln(out, "Reports:    fallback generator (no LLM key)")
			}
			return nil
		},
	})

	return cmd
}
