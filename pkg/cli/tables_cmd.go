package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newTablesCmd(client *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List all tables in the catalog",
		Example: `  dataprism tables
  dataprism tables --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tables, err := client.ListTables(cmd.Context())
			if err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), tables)
			}
			rows := make([][]string, 0, len(tables))
			for _, t := range tables {
				dirty := ""
				if t.Dirty {
					dirty = "*"
				}
				rows = append(rows, []string{
					t.ID, t.Name, fmt.Sprintf("%d", t.RowCount), t.SourceType, dirty,
				})
			}
			return printTable(cmd.OutOrStdout(), []string{"ID", "NAME", "ROWS", "SOURCE", "DIRTY"}, rows)
		},
	}
}

func newTableCmd(client *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "table <table-id>",
		Short: "Describe one table's fields and inferred metadata",
		Example: `  dataprism table table-0c6b9a
  dataprism table table-0c6b9a --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, err := client.GetTable(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), meta)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s, %d rows)\n\n", meta.Name, meta.SourceType, meta.RowCount)
			rows := make([][]string, 0, len(meta.Fields))
			for _, f := range meta.Fields {
				key := ""
				if f.IsPrimaryKey {
					key = "PK"
				} else if f.IsForeignKey {
					key = "FK"
				}
				rows = append(rows, []string{
					f.Name, f.Type, fmt.Sprintf("%t", f.Nullable), key, fmt.Sprintf("%.1f%%", f.MissingRate*100),
				})
			}
			return printTable(cmd.OutOrStdout(), []string{"FIELD", "TYPE", "NULLABLE", "KEY", "MISSING"}, rows)
		},
	}
}
