// Package engine runs one end-of-day reconciliation session: load the
// position snapshot, match each key's same-day legs on a bounded worker
// pool, merge the results back into the ledger in deterministic key
// order, then gate the book and derive next-session authorizations.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/qstrat/t0ledger/authorize"
	"github.com/qstrat/t0ledger/internal/id"
	"github.com/qstrat/t0ledger/ledger"
	"github.com/qstrat/t0ledger/market"
	"github.com/qstrat/t0ledger/risk"
	"github.com/qstrat/t0ledger/t0"
)

// Options configure a session run.
type Options struct {
	// Workers bounds the matching pool. Zero or negative means one.
	Workers int

	Risk      risk.Limits
	Authorize authorize.Params

	// Logger defaults to slog.Default when nil.
	Logger *slog.Logger
}

// Summary is the session's headline counts for logs and reports.
type Summary struct {
	Keys        int
	Legs        int
	Matches     int
	MatchedQty  int64
	Virtuals    int
	Orders      int
	BuyOrders   int
	SellOrders  int
	Excluded    int
	Violations  int
	RealizedPnL market.Money
}

// Report is everything one session produced.
type Report struct {
	SessionID   string
	Snapshot    ledger.Snapshot
	Matches     []market.Match
	RealizedPnL market.Money
	Decision    risk.Decision
	Orders      []authorize.Record
	Excluded    []market.Key
	Summary     Summary
}

// Session is a reusable runner. Each Run is independent; the session
// only carries configuration.
type Session struct {
	opts Options
	log  *slog.Logger
}

func New(opts Options) *Session {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Session{opts: opts, log: log}
}

// Run reconciles one session. Matching errors and conservation breaches
// abort the run; risk violations do not, they come back in the report.
func (s *Session) Run(ctx context.Context, snap []ledger.SnapshotRecord, legs []market.TradeLeg) (*Report, error) {
	sessionID := id.New()
	log := s.log.With("session", sessionID)

	led := ledger.New()
	if err := led.Load(snap); err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	log.Info("snapshot loaded", "positions", len(snap), "legs", len(legs))

	grouped := groupLegs(legs)
	keys := make([]market.Key, 0, len(grouped))
	for k := range grouped {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	results, err := s.matchAll(ctx, led, keys, grouped)
	if err != nil {
		return nil, err
	}

	report := &Report{SessionID: sessionID}
	activity := make(map[market.Key]int, len(keys))
	var matchedQty int64
	for i, key := range keys {
		res := results[i]

		before := market.Qty(0)
		if p, ok := led.Real(key); ok {
			before = p.Quantity
		}

		if res.Real != nil {
			led.SetReal(res.Real)
		}
		for _, v := range res.Virtuals {
			led.AddVirtual(v)
		}
		led.RecordLegs(grouped[key]...)
		led.RecordMatches(res.Matches...)

		if err := conserved(key, before, grouped[key], res); err != nil {
			return nil, err
		}

		report.Matches = append(report.Matches, res.Matches...)
		report.RealizedPnL = report.RealizedPnL.Add(res.RealizedPnL)
		matchedQty += res.Matched.Int64()
		if n := len(res.Matches); n > 0 {
			activity[key] = n
		}
	}
	log.Info("matching complete", "keys", len(keys),
		"matches", len(report.Matches), "pnl", report.RealizedPnL.String())

	report.Snapshot = led.Snapshot()

	report.Decision = risk.Evaluate(report.Snapshot, activity, s.opts.Risk)
	if !report.Decision.Allowed {
		log.Warn("risk gate tripped", "violations", len(report.Decision.Violations))
		for _, v := range report.Decision.Violations {
			log.Warn("violation", "key", v.Key.String(), "code", v.Code, "detail", v.Msg)
		}
	}

	report.Orders, report.Excluded = authorize.Derive(report.Snapshot, s.opts.Authorize)
	for _, key := range report.Excluded {
		log.Info("key excluded from authorization", "key", key.String())
	}

	var buys, sells int
	for _, o := range report.Orders {
		if o.Side == market.Buy {
			buys++
		} else {
			sells++
		}
	}

	report.Summary = Summary{
		Keys:        len(keys),
		Legs:        len(legs),
		Matches:     len(report.Matches),
		MatchedQty:  matchedQty,
		Virtuals:    len(report.Snapshot.Virtuals()),
		Orders:      len(report.Orders),
		BuyOrders:   buys,
		SellOrders:  sells,
		Excluded:    len(report.Excluded),
		Violations:  len(report.Decision.Violations),
		RealizedPnL: report.RealizedPnL,
	}
	log.Info("session complete",
		"orders", report.Summary.Orders,
		"virtuals", report.Summary.Virtuals,
		"violations", report.Summary.Violations)
	return report, nil
}

// matchAll fans the keys out over the worker pool. Results land in a
// slice indexed by key position, so the later merge never depends on
// scheduling order.
func (s *Session) matchAll(ctx context.Context, led *ledger.Ledger, keys []market.Key, grouped map[market.Key][]market.TradeLeg) ([]*t0.Result, error) {
	results := make([]*t0.Result, len(keys))

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	jobs := make(chan int)
	done := make(chan struct{})

	fail := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			close(done)
		})
	}

	for w := 0; w < s.opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				key := keys[i]

				var real *ledger.Position
				if p, ok := led.Real(key); ok {
					real = &p
				}

				res, err := t0.MatchKey(key, real, grouped[key])
				if err != nil {
					fail(fmt.Errorf("match %s: %w", key, err))
					return
				}
				results[i] = res
			}
		}()
	}

feed:
	for i := 0; i < len(keys); i++ {
		if err := ctx.Err(); err != nil {
			fail(err)
			break
		}
		select {
		case jobs <- i:
		case <-done:
			break feed
		case <-ctx.Done():
			fail(ctx.Err())
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}

func groupLegs(legs []market.TradeLeg) map[market.Key][]market.TradeLeg {
	grouped := make(map[market.Key][]market.TradeLeg)
	for _, leg := range legs {
		grouped[leg.Key] = append(grouped[leg.Key], leg)
	}
	return grouped
}

// conserved asserts the holdings balance for one key: quantity before
// plus net bought minus net sold equals the effective quantity after,
// counting covered shorts as zero. A breach is a fatal internal error.
func conserved(key market.Key, before market.Quantity, legs []market.TradeLeg, res *t0.Result) error {
	net := before.Int64()
	for _, leg := range legs {
		if leg.Direction == market.Buy {
			net += leg.Quantity.Int64()
		} else {
			net -= leg.Quantity.Int64()
		}
	}

	var after int64
	if res.Real != nil {
		after += res.Real.SignedQuantity()
	}
	for _, v := range res.Virtuals {
		after += v.SignedQuantity()
	}

	if net != after {
		return &ledger.InvariantError{
			Key: key,
			Msg: fmt.Sprintf("holdings not conserved: expected %d, book shows %d", net, after),
		}
	}
	return nil
}
