// Package feed parses the two external inputs of a session: the prior
// end-of-day position snapshot and the day's trade legs, both CSV with
// a header row. Parse errors carry the line number; one bad row rejects
// the whole file, matching the all-or-nothing load downstream.
package feed

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/qstrat/t0ledger/ledger"
	"github.com/qstrat/t0ledger/market"
)

var ErrBadHeader = errors.New("unexpected csv header")

var snapshotHeader = []string{"account_id", "symbol", "quantity", "available", "cost_basis"}

// ReadSnapshot parses a position snapshot file.
func ReadSnapshot(path string) ([]ledger.SnapshotRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := parseSnapshot(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

func parseSnapshot(r io.Reader) ([]ledger.SnapshotRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(snapshotHeader)

	if err := checkHeader(cr, snapshotHeader); err != nil {
		return nil, err
	}

	var out []ledger.SnapshotRecord
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}

		qty, err := strconv.ParseInt(row[2], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: quantity: %w", line, err)
		}
		avail, err := strconv.ParseInt(row[3], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: available: %w", line, err)
		}
		cost, err := market.ParsePrice(row[4])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		out = append(out, ledger.SnapshotRecord{
			AccountID: row[0],
			Symbol:    row[1],
			Quantity:  qty,
			Available: avail,
			CostBasis: cost,
		})
	}
}

var legHeader = []string{"account_id", "symbol", "direction", "quantity", "price", "seq", "time"}

// ReadLegs parses a trade leg file. Legs come back in file order; the
// matcher re-sorts per key by timestamp and sequence.
func ReadLegs(path string) ([]market.TradeLeg, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	legs, err := parseLegs(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return legs, nil
}

func parseLegs(r io.Reader) ([]market.TradeLeg, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(legHeader)

	if err := checkHeader(cr, legHeader); err != nil {
		return nil, err
	}

	var out []market.TradeLeg
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}

		dir, err := market.ParseDirection(row[2])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		qty, err := strconv.ParseInt(row[3], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: quantity: %w", line, err)
		}
		quantity, err := market.NewQuantity(qty)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		price, err := market.ParsePrice(row[4])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		seq, err := strconv.ParseUint(row[5], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: seq: %w", line, err)
		}
		ts, err := time.Parse(time.RFC3339, row[6])
		if err != nil {
			return nil, fmt.Errorf("line %d: time: %w", line, err)
		}

		out = append(out, market.TradeLeg{
			Key:       market.NewKey(row[0], row[1]),
			Direction: dir,
			Quantity:  quantity,
			Price:     price,
			Seq:       seq,
			Time:      ts,
		})
	}
}

func checkHeader(cr *csv.Reader, want []string) error {
	got, err := cr.Read()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadHeader, err)
	}
	for i := range want {
		if got[i] != want[i] {
			return fmt.Errorf("%w: column %d is %q, want %q", ErrBadHeader, i+1, got[i], want[i])
		}
	}
	return nil
}
