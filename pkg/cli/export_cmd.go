package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newExportCmd(client *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "export <table-id>",
		Short: "Export a table's active version to csv on the server",
		Example: `  dataprism export table-0c6b9a
  dataprism export table-0c6b9a --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := client.ExportTable(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", res.DownloadURL)
			return nil
		},
	}
}
