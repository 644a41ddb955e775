package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newImportCmd(client *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Upload a csv file as a new table",
		Example: `  dataprism import ./people.csv
  dataprism import ./people.csv --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := client.ImportFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %s as table %s (%d rows)\n",
				res.Table.Name, res.Table.ID, res.Table.RowCount)
			return nil
		},
	}
}
