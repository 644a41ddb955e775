package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func newQueryCmd(client *Client) *cobra.Command {
	var (
		limit  int
		offset int
	)

	cmd := &cobra.Command{
		Use:   "query <table-id>",
		Short: "Page through a table's rows",
		Example: `  dataprism query table-0c6b9a
  dataprism query table-0c6b9a --limit 5 --offset 10 --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := client.QueryRows(cmd.Context(), args[0], limit, offset)
			if err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), page)
			}
			if len(page.Rows) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No rows (total %d)\n", page.TotalRows)
				return nil
			}

			// Column order is not carried by JSON objects; sort for a
			// stable rendering.
			header := make([]string, 0, len(page.Rows[0]))
			for name := range page.Rows[0] {
				header = append(header, name)
			}
			sort.Strings(header)

			rows := make([][]string, 0, len(page.Rows))
			for _, r := range page.Rows {
				row := make([]string, len(header))
				for i, name := range header {
					if r[name] == nil {
						row[i] = "NULL"
						continue
					}
					row[i] = fmt.Sprintf("%v", r[name])
				}
				rows = append(rows, row)
			}
			if err := printTable(cmd.OutOrStdout(), header, rows); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d of %d rows\n", len(page.Rows), page.TotalRows)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum rows to fetch")
	cmd.Flags().IntVar(&offset, "offset", 0, "Rows to skip")
	return cmd
}
