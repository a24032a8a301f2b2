package feed

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/qstrat/t0ledger/market"
	"github.com/qstrat/t0ledger/quota"
)

// QuotaRecord is one row of the prior session's rolled quota file.
type QuotaRecord struct {
	Key    market.Key
	Amount market.Money
}

var quotaHeader = []string{"account_id", "symbol", "quota"}

// ReadQuotas parses the prior-session quota file.
func ReadQuotas(path string) ([]QuotaRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := parseQuotas(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

func parseQuotas(r io.Reader) ([]QuotaRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(quotaHeader)

	if err := checkHeader(cr, quotaHeader); err != nil {
		return nil, err
	}

	var out []QuotaRecord
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}

		amount, err := decimal.NewFromString(row[2])
		if err != nil {
			return nil, fmt.Errorf("line %d: quota: %w", line, err)
		}
		if amount.IsNegative() {
			return nil, fmt.Errorf("line %d: quota must be non-negative, got %s", line, amount)
		}

		out = append(out, QuotaRecord{
			Key:    market.NewKey(row[0], row[1]),
			Amount: market.MoneyFromDecimal(amount),
		})
	}
}

var eventHeader = []string{"symbol", "type", "factor", "amount", "date"}

// ReadEvents parses the day's corporate action events, keyed by symbol:
// an event applies to every account holding the symbol.
func ReadEvents(path string) ([]quota.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	events, err := parseEvents(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return events, nil
}

func parseEvents(r io.Reader) ([]quota.Event, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(eventHeader)

	if err := checkHeader(cr, eventHeader); err != nil {
		return nil, err
	}

	var out []quota.Event
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}

		typ, err := quota.ParseEventType(row[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		factor, err := decimal.NewFromString(row[2])
		if err != nil {
			return nil, fmt.Errorf("line %d: factor: %w", line, err)
		}
		if !factor.IsPositive() {
			return nil, fmt.Errorf("line %d: %w: %s", line, quota.ErrBadFactor, factor)
		}
		amount, err := decimal.NewFromString(row[3])
		if err != nil {
			return nil, fmt.Errorf("line %d: amount: %w", line, err)
		}
		date, err := time.Parse("2006-01-02", row[4])
		if err != nil {
			return nil, fmt.Errorf("line %d: date: %w", line, err)
		}

		out = append(out, quota.Event{
			Symbol: row[0],
			Type:   typ,
			Factor: factor,
			Amount: market.MoneyFromDecimal(amount),
			Date:   date,
		})
	}
}
