package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/qstrat/t0ledger/config"
	"github.com/qstrat/t0ledger/engine"
	"github.com/qstrat/t0ledger/feed"
	"github.com/qstrat/t0ledger/journal"
	"github.com/qstrat/t0ledger/market"
	"github.com/qstrat/t0ledger/quota"
)

func newRunCmd(rc *rootConfig) *cobra.Command {
	var (
		positionsPath string
		legsPath      string
		quotasPath    string
		eventsPath    string
		workers       int
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Reconcile one session: match legs, gate risk, derive next-session orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rc.load()
			if err != nil {
				return err
			}
			if workers > 0 {
				cfg.Session.Workers = workers
			}
			log := newLogger(cmd.ErrOrStderr(), cfg.Logging)

			snap, err := feed.ReadSnapshot(positionsPath)
			if err != nil {
				return fmt.Errorf("read positions: %w", err)
			}
			legs, err := feed.ReadLegs(legsPath)
			if err != nil {
				return fmt.Errorf("read legs: %w", err)
			}

			params := cfg.AuthorizeParams()
			if quotasPath != "" {
				params.KeyQuotas, err = rollQuotas(quotasPath, eventsPath)
				if err != nil {
					return err
				}
				log.Info("quotas rolled", "keys", len(params.KeyQuotas))
			}

			session := engine.New(engine.Options{
				Workers:   cfg.Session.Workers,
				Risk:      cfg.RiskLimits(),
				Authorize: params,
				Logger:    log,
			})
			report, err := session.Run(cmd.Context(), snap, legs)
			if err != nil {
				return err
			}

			if cfg.Journal.Type != "" {
				j, err := openJournal(cfg.Journal)
				if err != nil {
					return fmt.Errorf("open journal: %w", err)
				}
				defer j.Close()
				if err := journal.Record(j, report, time.Now().UTC()); err != nil {
					return fmt.Errorf("archive session: %w", err)
				}
			}

			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	}

	cmd.Flags().StringVar(&positionsPath, "positions", "", "Prior end-of-day position snapshot (CSV)")
	cmd.Flags().StringVar(&legsPath, "legs", "", "Same-day trade legs (CSV)")
	cmd.Flags().StringVar(&quotasPath, "quotas", "", "Prior-session per-key quota values (CSV, optional)")
	cmd.Flags().StringVar(&eventsPath, "events", "", "Corporate action events adjusting quotas (CSV, optional)")
	cmd.Flags().IntVar(&workers, "workers", 0, "Matching pool size (overrides config)")
	cmd.MarkFlagRequired("positions")
	cmd.MarkFlagRequired("legs")
	return cmd
}

// rollQuotas loads the prior session's quota values, applies the day's
// corporate actions per symbol and returns the rolled buying-power caps
// for order derivation.
func rollQuotas(quotasPath, eventsPath string) (map[market.Key]market.Money, error) {
	records, err := feed.ReadQuotas(quotasPath)
	if err != nil {
		return nil, fmt.Errorf("read quotas: %w", err)
	}

	bySymbol := make(map[string][]quota.Event)
	if eventsPath != "" {
		events, err := feed.ReadEvents(eventsPath)
		if err != nil {
			return nil, fmt.Errorf("read events: %w", err)
		}
		for _, e := range events {
			bySymbol[e.Symbol] = append(bySymbol[e.Symbol], e)
		}
	}

	today := time.Now().UTC()
	roller := quota.NewRoller()
	for _, r := range records {
		roller.Initialize(r.Key, r.Amount, today.AddDate(0, 0, -1))
		if _, err := roller.Roll(r.Key, today, bySymbol[r.Key.Symbol]); err != nil {
			return nil, fmt.Errorf("roll quota %s: %w", r.Key, err)
		}
	}
	return roller.Quotas(), nil
}

func openJournal(cfg config.JournalConfig) (journal.Journal, error) {
	switch cfg.Type {
	case "sqlite":
		return journal.NewSQLite(cfg.DBPath)
	case "csv":
		return journal.NewCSV(cfg.Dir)
	}
	return nil, fmt.Errorf("unknown journal type %q", cfg.Type)
}

func printReport(w io.Writer, rep *engine.Report) {
	fmt.Fprintf(w, "session %s\n", rep.SessionID)
	fmt.Fprintf(w, "  keys=%d legs=%d matches=%d matched_qty=%d realized_pnl=%s\n",
		rep.Summary.Keys, rep.Summary.Legs, rep.Summary.Matches,
		rep.Summary.MatchedQty, rep.Summary.RealizedPnL)

	if len(rep.Decision.Violations) > 0 {
		fmt.Fprintln(w, "risk violations:")
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, v := range rep.Decision.Violations {
			fmt.Fprintf(tw, "  %s\t%s\t%s\n", v.Key, v.Code, v.Msg)
		}
		tw.Flush()
	}

	if virtuals := rep.Snapshot.Virtuals(); len(virtuals) > 0 {
		fmt.Fprintln(w, "open virtual positions (carried to next session):")
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "  key\tside\tqty\tcost\tcovered\tid")
		for _, v := range virtuals {
			fmt.Fprintf(tw, "  %s\t%s\t%d\t%s\t%v\t%s\n",
				v.Key, v.Side, v.Quantity.Int64(), v.CostBasis, v.Covered, v.ID)
		}
		tw.Flush()
	}

	if len(rep.Excluded) > 0 {
		fmt.Fprintln(w, "keys excluded from authorization:")
		for _, k := range rep.Excluded {
			fmt.Fprintf(w, "  %s\n", k)
		}
	}

	fmt.Fprintf(w, "authorized orders (%d buy, %d sell):\n",
		rep.Summary.BuyOrders, rep.Summary.SellOrders)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "  key\tside\tcap\tlimit")
	for _, o := range rep.Orders {
		fmt.Fprintf(tw, "  %s\t%s\t%d\t%s\n",
			o.Key, o.Side, o.QuantityCap.Int64(), o.LimitPrice)
	}
	tw.Flush()
}
