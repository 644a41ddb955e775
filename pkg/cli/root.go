// Package cli implements the dataprism command-line client for the
// catalog REST API.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		output, _ := rootCmd.PersistentFlags().GetString("output")
		if output == "json" {
			errObj := map[string]interface{}{"error": err.Error()}
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				errObj["httpStatus"] = apiErr.HTTPStatus
			}
			_ = json.NewEncoder(os.Stdout).Encode(errObj)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var (
		host   string
		output string
	)

	rootCmd := &cobra.Command{
		Use:           "dataprism",
		Short:         "Data catalog CLI",
		Long:          "Command-line interface for the versioned data catalog API.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&host, "host", "http://localhost:8080", "API host URL")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "Output format (table, json)")

	client := NewClient(host)
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		// Precedence: flag > env > default.
		if !cmd.Flags().Changed("host") {
			if v := os.Getenv("DATAPRISM_HOST"); v != "" {
				host = v
			}
		}
		client.SetBaseURL(host)
		return validateOutputFormat(getOutputFormat(cmd))
	}

	rootCmd.AddCommand(newTablesCmd(client))
	rootCmd.AddCommand(newTableCmd(client))
	rootCmd.AddCommand(newImportCmd(client))
	rootCmd.AddCommand(newQueryCmd(client))
	rootCmd.AddCommand(newExportCmd(client))
	rootCmd.AddCommand(newHistoryCmd(client))
	rootCmd.AddCommand(newUndoCmd(client))

	return rootCmd
}
