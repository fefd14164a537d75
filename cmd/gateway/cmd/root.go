// Package cmd provides the CLI commands for the acquirer gateway.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/willians06/iso-acquirer-gateway/internal/config"
)

var rootCmd = &cobra.Command{
	Use:           "gateway",
	Short:         "ISO 8583 acquirer gateway",
	Long:          `An HTTP gateway that speaks an ISO 8583-derived protocol for terminal key injection, sale authorization and provisioning tokens.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		if err := config.Initialize(); err != nil {
			return fmt.Errorf("failed to initialize configuration: %w", err)
		}
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
