// Package store defines the string-keyed persistent store the ledger
// writes through, plus the fixed key layout.
package store

import "context"

// Store is the injected persistence capability. Values are strings:
// lists are JSON arrays, scalars decimal strings. A missing key is not
// an error; Get reports presence separately.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Fixed keys of the ledger layout.
const (
	KeyMobileMoney    = "mobileMoney"
	KeyCredits        = "credits"
	KeyBalanceHistory = "soldeHistorique"
	KeyCreditHistory  = "creditHistorique"
)

// BalanceKey is the scalar balance key for a mobile-money service,
// e.g. "solde_mvola".
func BalanceKey(service string) string {
	return "solde_" + service
}

// CreditPoolKey is the scalar airtime pool key for a credit provider,
// e.g. "disponible_yas".
func CreditPoolKey(provider string) string {
	return "disponible_" + provider
}
