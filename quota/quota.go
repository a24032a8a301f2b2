// Package quota rolls the per-key authorization quota from one session
// to the next: quota_T = quota_{T-1} x AF_T + E_T, where AF_T is the
// composite adjustment factor of the day's corporate actions and E_T
// the cash adjustment amount. The rolled quota caps how much buying
// power a key is granted when next-session orders are derived.
package quota

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/qstrat/t0ledger/market"
)

// EventType classifies a corporate action that adjusts the quota.
type EventType string

const (
	Dividend     EventType = "DIVIDEND"
	RightsIssue  EventType = "RIGHTS_ISSUE"
	BonusShare   EventType = "BONUS_SHARE"
	Split        EventType = "SPLIT"
	ReverseSplit EventType = "REVERSE_SPLIT"
	Special      EventType = "SPECIAL"
)

func ParseEventType(s string) (EventType, error) {
	switch EventType(s) {
	case Dividend, RightsIssue, BonusShare, Split, ReverseSplit, Special:
		return EventType(s), nil
	}
	return "", fmt.Errorf("unknown adjustment event type %q", s)
}

var ErrBadFactor = errors.New("adjustment factor must be positive")

// Event is one corporate action against a symbol. Factor contributes
// multiplicatively to AF_T (1 means no price adjustment, as with a pure
// cash dividend); Amount contributes additively to E_T.
type Event struct {
	Symbol      string
	Type        EventType
	Factor      decimal.Decimal
	Amount      market.Money
	Date        time.Time
	Description string
}

// BonusFactor is the ex-rights factor of a bonus share issue, e.g. a
// 3-for-10 bonus (ratio 0.3) gives 1/1.3.
func BonusFactor(ratio float64) decimal.Decimal {
	return decimal.NewFromInt(1).Div(decimal.NewFromFloat(1 + ratio))
}

// SplitFactor is the factor of a share split, e.g. a 1-into-2 split
// (ratio 2) gives 0.5. Reverse splits pass a ratio below 1.
func SplitFactor(ratio float64) decimal.Decimal {
	return decimal.NewFromInt(1).Div(decimal.NewFromFloat(ratio))
}

// RightsFactor is the theoretical ex-rights factor of a rights issue:
// ((P + P_rights x ratio) / (1 + ratio)) / P.
func RightsFactor(current, rights market.Price, ratio float64) (decimal.Decimal, error) {
	if current.IsZero() {
		return decimal.Decimal{}, fmt.Errorf("rights factor needs a non-zero current price")
	}
	r := decimal.NewFromFloat(ratio)
	exRights := current.Decimal().Add(rights.Decimal().Mul(r)).Div(decimal.NewFromInt(1).Add(r))
	return exRights.Div(current.Decimal()), nil
}

// DividendAmount is the cash adjustment of a per-share dividend over a
// holding.
func DividendAmount(perShare market.Price, shares market.Quantity) market.Money {
	return perShare.Mul(shares)
}

// CompositeFactor multiplies the factors of the day's events into one
// AF_T. No events means 1.
func CompositeFactor(events []Event) decimal.Decimal {
	af := decimal.NewFromInt(1)
	for _, e := range events {
		af = af.Mul(e.Factor)
	}
	return af
}

// State is one key's quota after its latest roll.
type State struct {
	Key          market.Key
	Previous     market.Money
	Current      market.Money
	Factor       decimal.Decimal
	Amount       market.Money
	PreviousDate time.Time
	CurrentDate  time.Time
}

// Roller carries quota states across rolls. Single writer, like the
// session ledger.
type Roller struct {
	states  map[market.Key]*State
	history map[market.Key][]State
}

func NewRoller() *Roller {
	return &Roller{
		states:  make(map[market.Key]*State),
		history: make(map[market.Key][]State),
	}
}

// Initialize seeds a key's quota, replacing any prior state. Used at
// strategy start and when loading the prior session's rolled values.
func (r *Roller) Initialize(key market.Key, initial market.Money, date time.Time) {
	r.states[key] = &State{
		Key:          key,
		Previous:     initial,
		Current:      initial,
		Factor:       decimal.NewFromInt(1),
		PreviousDate: date,
		CurrentDate:  date,
	}
}

// Roll applies the day's events to one key. An unknown key rolls from a
// zero quota. Every event factor must be positive.
func (r *Roller) Roll(key market.Key, date time.Time, events []Event) (State, error) {
	for _, e := range events {
		if !e.Factor.IsPositive() {
			return State{}, fmt.Errorf("%w: %s event for %s has factor %s",
				ErrBadFactor, e.Type, e.Symbol, e.Factor)
		}
	}

	s, ok := r.states[key]
	if !ok {
		s = &State{Key: key, Factor: decimal.NewFromInt(1)}
		r.states[key] = s
	}

	amount := market.Amt(0)
	for _, e := range events {
		amount = amount.Add(e.Amount)
	}

	s.Previous = s.Current
	s.PreviousDate = s.CurrentDate
	s.Factor = CompositeFactor(events)
	s.Amount = amount
	s.CurrentDate = date
	s.Current = market.MoneyFromDecimal(s.Previous.Decimal().Mul(s.Factor)).Add(amount)

	r.history[key] = append(r.history[key], *s)
	return *s, nil
}

// Current returns the key's rolled quota, zero when never seen.
func (r *Roller) Current(key market.Key) market.Money {
	if s, ok := r.states[key]; ok {
		return s.Current
	}
	return market.Amt(0)
}

// Quotas returns every key's current quota for order derivation.
func (r *Roller) Quotas() map[market.Key]market.Money {
	out := make(map[market.Key]market.Money, len(r.states))
	for key, s := range r.states {
		out[key] = s.Current
	}
	return out
}

// States returns all states in key order.
func (r *Roller) States() []State {
	out := make([]State, 0, len(r.states))
	for _, s := range r.states {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.Less(out[j].Key) })
	return out
}

// History returns the roll history of one key, oldest first.
func (r *Roller) History(key market.Key) []State {
	return append([]State(nil), r.history[key]...)
}

// Reset zeroes a key's state without dropping it.
func (r *Roller) Reset(key market.Key) {
	if s, ok := r.states[key]; ok {
		*s = State{Key: key, Factor: decimal.NewFromInt(1)}
	}
}
