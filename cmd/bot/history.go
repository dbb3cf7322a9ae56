package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func historyCmd() *cobra.Command {
	var (
		limit  int
		closed bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show executed trades, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)

			if closed {
				trades, err := db.ClosedTrades(cmd.Context(), limit)
				if err != nil {
					return err
				}
				fmt.Fprintln(w, "CLOSED\tTICKET\tSYMBOL\tSIDE\tVOLUME\tREASON")
				for _, t := range trades {
					fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%.2f\t%s\n",
						t.ClosedAt.Local().Format(time.DateTime), t.Ticket, t.Symbol, t.Side, t.Volume, t.Reason)
				}
				return w.Flush()
			}

			trades, err := db.Trades(cmd.Context(), limit)
			if err != nil {
				return err
			}
			fmt.Fprintln(w, "TIME\tTICKET\tSYMBOL\tSIDE\tVOLUME\tENTRY")
			for _, t := range trades {
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%.2f\t%g\n",
					t.Timestamp.Local().Format(time.DateTime), t.Ticket, t.Symbol, t.Side, t.Volume, t.EntryPrice)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of rows")
	cmd.Flags().BoolVar(&closed, "closed", false, "show master closures seen by the copier")
	return cmd
}
