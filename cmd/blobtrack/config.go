package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var configPath string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective tuning configuration as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		if _, err := cfg.Params(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		data, err := json.MarshalIndent(cfg.Effective(), "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

func init() {
	configCmd.Flags().StringVarP(&configPath, "config", "c", "", "Tuning config JSON to validate and complete with defaults")
	rootCmd.AddCommand(configCmd)
}
