package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHistoryCmd(client *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show recent catalog operations, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			entries, err := client.History(cmd.Context())
			if err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), entries)
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				undoable := ""
				if e.Undoable {
					undoable = "yes"
				}
				rows = append(rows, []string{
					e.CreatedAt.Format("2006-01-02 15:04:05"), e.Type, e.TableName, undoable,
				})
			}
			return printTable(cmd.OutOrStdout(), []string{"TIME", "OPERATION", "TABLE", "UNDOABLE"}, rows)
		},
	}
}

func newUndoCmd(client *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "undo",
		Short: "Undo the most recent clean operation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := client.Undo(cmd.Context())
			if err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Undid operation %s on table %s\n",
				res.UndoneOperationID, res.TableID)
			return nil
		},
	}
}
