package market

import (
	"fmt"
	"sort"
	"time"
)

// Direction is the side of a trade leg.
type Direction string

const (
	Buy  Direction = "BUY"
	Sell Direction = "SELL"
)

func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case Buy, Sell:
		return Direction(s), nil
	}
	return "", fmt.Errorf("unknown direction %q", s)
}

// TradeLeg is one buy or sell execution. Legs are immutable once
// recorded; Seq breaks ties when timestamps collide.
type TradeLeg struct {
	Key       Key
	Direction Direction
	Quantity  Quantity
	Price     Price
	Seq       uint64
	Time      time.Time
}

// Before reports whether l executed before o: by timestamp, then by
// sequence number.
func (l TradeLeg) Before(o TradeLeg) bool {
	if !l.Time.Equal(o.Time) {
		return l.Time.Before(o.Time)
	}
	return l.Seq < o.Seq
}

// SortLegs orders legs into execution order in place.
func SortLegs(legs []TradeLeg) {
	sort.SliceStable(legs, func(i, j int) bool {
		return legs[i].Before(legs[j])
	})
}

// Match pairs an opening leg fragment with a closing leg fragment.
// Created only by the matcher and never mutated afterwards.
type Match struct {
	Key        Key
	OpenSeq    uint64
	CloseSeq   uint64
	Quantity   Quantity
	OpenPrice  Price
	ClosePrice Price
	// Covered marks a sell-first open that was backed by Real inventory
	// rather than borrowed.
	Covered bool
	// RealizedPnL is quantity x (close-open) for long opens and
	// quantity x (open-close) for short opens.
	RealizedPnL Money
}
