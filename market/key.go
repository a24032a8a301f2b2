// Package market holds the shared value types of the position ledger:
// instrument keys, quantities, prices, trade legs, and matches.
package market

import "fmt"

// Key identifies one position bucket: a (account, symbol) pair.
// Immutable once created; usable as a map key.
type Key struct {
	AccountID string
	Symbol    string
}

func NewKey(accountID, symbol string) Key {
	return Key{AccountID: accountID, Symbol: symbol}
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s", k.AccountID, k.Symbol)
}

// Less orders keys by account then symbol. Used for the deterministic
// merge of per-key results.
func (k Key) Less(o Key) bool {
	if k.AccountID != o.AccountID {
		return k.AccountID < o.AccountID
	}
	return k.Symbol < o.Symbol
}
