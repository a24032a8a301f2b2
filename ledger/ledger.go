package ledger

import (
	"fmt"
	"sort"

	"github.com/qstrat/t0ledger/market"
)

// SnapshotRecord is one row of the external end-of-day position
// snapshot, as handed over by the file-parsing collaborator.
type SnapshotRecord struct {
	AccountID string
	Symbol    string
	Quantity  int64
	Available int64
	CostBasis market.Price
}

// Ledger owns the Real and Virtual positions of one session plus the
// ordered legs and matches recorded against them. Single writer: one
// batch job mutates it sequentially.
type Ledger struct {
	reals    map[market.Key]*Position
	virtuals map[market.Key][]*Position
	legs     []market.TradeLeg
	matches  []market.Match
}

func New() *Ledger {
	return &Ledger{
		reals:    make(map[market.Key]*Position),
		virtuals: make(map[market.Key][]*Position),
	}
}

// Load replaces all Real positions from an external snapshot. The whole
// snapshot is validated before anything is applied: a duplicate key or
// contradictory quantities reject the batch with no partial state.
func (l *Ledger) Load(snap []SnapshotRecord) error {
	seen := make(map[market.Key]bool, len(snap))
	for _, rec := range snap {
		key := market.NewKey(rec.AccountID, rec.Symbol)
		if seen[key] {
			return fmt.Errorf("%w: %s", ErrDuplicateKey, key)
		}
		seen[key] = true

		if rec.Quantity < 0 || rec.Available < 0 || rec.Available > rec.Quantity {
			return fmt.Errorf("%w: %s quantity=%d available=%d",
				ErrNegativeQuantity, key, rec.Quantity, rec.Available)
		}
	}

	reals := make(map[market.Key]*Position, len(snap))
	for _, rec := range snap {
		key := market.NewKey(rec.AccountID, rec.Symbol)
		reals[key] = &Position{
			Key:       key,
			Kind:      Real,
			Side:      Long,
			Quantity:  market.Qty(rec.Quantity),
			Available: market.Qty(rec.Available),
			CostBasis: rec.CostBasis,
		}
	}

	l.reals = reals
	l.virtuals = make(map[market.Key][]*Position)
	l.legs = nil
	l.matches = nil
	return nil
}

// Real returns a copy of the Real position for key.
func (l *Ledger) Real(key market.Key) (Position, bool) {
	p, ok := l.reals[key]
	if !ok {
		return Position{}, false
	}
	return *p, true
}

// Keys returns every key with a Real or Virtual position, sorted.
func (l *Ledger) Keys() []market.Key {
	set := make(map[market.Key]bool, len(l.reals))
	for k := range l.reals {
		set[k] = true
	}
	for k := range l.virtuals {
		set[k] = true
	}
	keys := make([]market.Key, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}

// SetReal installs an updated Real position, replacing any previous one
// for the same key. A nil-quantity position is still kept: a fully sold
// bucket remains visible in the report.
func (l *Ledger) SetReal(p *Position) {
	l.reals[p.Key] = p.Clone()
}

// AddVirtual records an open Virtual position carried out of matching.
func (l *Ledger) AddVirtual(p *Position) {
	l.virtuals[p.Key] = append(l.virtuals[p.Key], p.Clone())
}

// Virtuals returns copies of the open Virtual positions for key.
func (l *Ledger) Virtuals(key market.Key) []Position {
	out := make([]Position, 0, len(l.virtuals[key]))
	for _, p := range l.virtuals[key] {
		out = append(out, *p)
	}
	return out
}

// RecordLegs appends consumed trade legs to the session log.
func (l *Ledger) RecordLegs(legs ...market.TradeLeg) {
	l.legs = append(l.legs, legs...)
}

// RecordMatches appends matcher output to the session log.
func (l *Ledger) RecordMatches(matches ...market.Match) {
	l.matches = append(l.matches, matches...)
}

// Legs returns a copy of the session leg log.
func (l *Ledger) Legs() []market.TradeLeg {
	return append([]market.TradeLeg(nil), l.legs...)
}

// Matches returns a copy of the session match log.
func (l *Ledger) Matches() []market.Match {
	return append([]market.Match(nil), l.matches...)
}

// Snapshot produces an immutable copy of the current position state for
// downstream consumers. Mutating the returned value never touches the
// ledger.
func (l *Ledger) Snapshot() Snapshot {
	var positions []Position
	for _, key := range l.Keys() {
		if p, ok := l.reals[key]; ok {
			positions = append(positions, *p)
		}
		for _, v := range l.virtuals[key] {
			positions = append(positions, *v)
		}
	}
	return Snapshot{Positions: positions}
}

// Snapshot is a read-only view of ledger state in deterministic key
// order, Real before Virtual within each key.
type Snapshot struct {
	Positions []Position
}

// Reals returns the Real positions in the snapshot.
func (s Snapshot) Reals() []Position {
	var out []Position
	for _, p := range s.Positions {
		if p.Kind == Real {
			out = append(out, p)
		}
	}
	return out
}

// Virtuals returns the open Virtual positions in the snapshot.
func (s Snapshot) Virtuals() []Position {
	var out []Position
	for _, p := range s.Positions {
		if p.Kind == Virtual {
			out = append(out, p)
		}
	}
	return out
}

// VirtualKeys returns the set of keys that still carry an open Virtual
// position. Those keys are excluded from order derivation.
func (s Snapshot) VirtualKeys() map[market.Key]bool {
	set := make(map[market.Key]bool)
	for _, p := range s.Virtuals() {
		set[p.Key] = true
	}
	return set
}
