package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sarchlab/arqsim/datarecording"
	"github.com/sarchlab/arqsim/eventlog"
)

var reportCmd = &cobra.Command{
	Use:   "report <db>",
	Short: "Print the events recorded by a run.",
	Long: "`report` reads the events table of a SQLite file written by " +
		"`run --db` and prints the events, optionally only those of a node.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reader := datarecording.NewReader(args[0])
		defer reader.Close()

		reader.MapTable(eventlog.TableName, eventlog.Row{})

		params := datarecording.QueryParams{OrderBy: "Tick"}
		if node, _ := cmd.Flags().GetString("node"); node != "" {
			params.Where = "Node = ?"
			params.Args = []any{node}
		}

		params.Limit, _ = cmd.Flags().GetInt("limit")

		rows, total, err := reader.Query(
			context.Background(), eventlog.TableName, params)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		for _, r := range rows {
			row := r.(*eventlog.Row)
			fmt.Fprintf(w, "%d\t%s\t%s -> %s\t%s\t%s\n",
				row.Tick, row.Node, row.Source, row.Destination,
				row.Outcome, row.Reason)
		}

		fmt.Fprintf(w, "%d of %d events\n", len(rows), total)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().String("node", "", "Only show the events of this node")
	reportCmd.Flags().Int("limit", 0, "The maximum number of events to show")
}
