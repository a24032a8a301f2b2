package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/qstrat/t0ledger/journal"
)

func newReportCmd(rc *rootConfig) *cobra.Command {
	var (
		dbPath    string
		sessionID string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print an archived session from the SQLite journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rc.load()
			if err != nil {
				return err
			}
			if dbPath == "" {
				dbPath = cfg.Journal.DBPath
			}
			if dbPath == "" {
				return fmt.Errorf("no journal database: set --db or journal.db_path")
			}

			j, err := journal.NewSQLite(dbPath)
			if err != nil {
				return err
			}
			defer j.Close()

			var session journal.SessionRow
			if sessionID == "" {
				session, err = j.LatestSession()
			} else {
				session, err = j.GetSession(sessionID)
			}
			if err != nil {
				return err
			}

			positions, err := j.ListPositions(session.SessionID)
			if err != nil {
				return err
			}
			matches, err := j.ListMatches(session.SessionID)
			if err != nil {
				return err
			}
			orders, err := j.ListOrders(session.SessionID)
			if err != nil {
				return err
			}

			printArchived(cmd.OutOrStdout(), session, positions, matches, orders)
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite journal database (defaults to config)")
	cmd.Flags().StringVar(&sessionID, "session", "", "Session ID (defaults to most recent)")
	return cmd
}

func printArchived(w io.Writer, s journal.SessionRow, positions []journal.PositionRow, matches []journal.MatchRow, orders []journal.OrderRow) {
	fmt.Fprintf(w, "session %s ran at %s\n", s.SessionID, s.RunAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "  keys=%d legs=%d matches=%d virtuals=%d orders=%d violations=%d pnl=%.2f\n",
		s.Keys, s.Legs, s.Matches, s.Virtuals, s.Orders, s.Violations, s.RealizedPnL)

	if len(positions) > 0 {
		fmt.Fprintln(w, "positions:")
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "  account\tsymbol\tkind\tside\tqty\tavail\tcost\tamount")
		for _, p := range positions {
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%d\t%d\t%.4f\t%.2f\n",
				p.AccountID, p.Symbol, p.Kind, p.Side, p.Quantity, p.Available, p.CostBasis, p.CostAmount)
		}
		tw.Flush()
	}

	if len(matches) > 0 {
		fmt.Fprintln(w, "matches:")
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "  account\tsymbol\topen\tclose\tqty\topen_px\tclose_px\tpnl")
		for _, m := range matches {
			fmt.Fprintf(tw, "  %s\t%s\t%d\t%d\t%d\t%.4f\t%.4f\t%.2f\n",
				m.AccountID, m.Symbol, m.OpenSeq, m.CloseSeq, m.Quantity, m.OpenPrice, m.ClosePrice, m.RealizedPnL)
		}
		tw.Flush()
	}

	if len(orders) > 0 {
		fmt.Fprintln(w, "orders:")
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "  account\tsymbol\tside\tcap\tlimit")
		for _, o := range orders {
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%d\t%.4f\n",
				o.AccountID, o.Symbol, o.Side, o.QuantityCap, o.LimitPrice)
		}
		tw.Flush()
	}
}
