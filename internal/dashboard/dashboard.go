// Package dashboard computes the read-side daily figures. It never
// mutates the store and keeps no state between calls.
package dashboard

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"cashpoint/internal/core"
	"cashpoint/internal/store"
)

type (
	Aggregator struct {
		store   store.Store
		timeout time.Duration
	}

	// DayTotals is the daily summary card plus the raw rows it was
	// folded from.
	DayTotals struct {
		Date            core.Date          `json:"date"`
		TotalDeposit    int64              `json:"totalDeposit"`
		TotalWithdrawal int64              `json:"totalWithdrawal"`
		TotalCommission int64              `json:"totalCommission"`
		TotalCreditCost int64              `json:"totalCreditCost"`
		Transactions    []core.Transaction `json:"transactions"`
		Credits         []core.CreditSale  `json:"credits"`
	}
)

func New(st store.Store, timeout time.Duration) *Aggregator {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Aggregator{store: st, timeout: timeout}
}

// DailyTotals folds the date's transactions and credit sales into the
// summary figures. Commission is summed over every row regardless of
// type; credit cost is denomination times count.
func (a *Aggregator) DailyTotals(ctx context.Context, date core.Date) (DayTotals, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	totals := DayTotals{
		Date:         date,
		Transactions: []core.Transaction{},
		Credits:      []core.CreditSale{},
	}

	txs, err := readList[core.Transaction](ctx, a.store, store.KeyMobileMoney)
	if err != nil {
		return DayTotals{}, err
	}
	for _, tx := range txs {
		if !tx.Date.Equal(date) {
			continue
		}
		totals.Transactions = append(totals.Transactions, tx)
		switch tx.Type {
		case core.TypeDeposit:
			totals.TotalDeposit += tx.Amount
		case core.TypeWithdrawal:
			totals.TotalWithdrawal += tx.Amount
		}
		if c, err := core.ParseCommission(tx.Commission); err == nil {
			totals.TotalCommission += c
		}
	}

	sales, err := readList[core.CreditSale](ctx, a.store, store.KeyCredits)
	if err != nil {
		return DayTotals{}, err
	}
	for _, sale := range sales {
		if !sale.Date.Equal(date) {
			continue
		}
		totals.Credits = append(totals.Credits, sale)
		totals.TotalCreditCost += sale.Total()
	}

	return totals, nil
}

// AvailableCredit sums the current provider pools plus the date's
// Recharge entries carrying a known provider title.
func (a *Aggregator) AvailableCredit(ctx context.Context, date core.Date) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	var total int64
	for _, p := range core.CreditProviders {
		v, err := a.readInt(ctx, store.CreditPoolKey(string(p)))
		if err != nil {
			return 0, err
		}
		total += v
	}

	entries, err := readList[core.HistoryEntry](ctx, a.store, store.KeyCreditHistory)
	if err != nil {
		return 0, err
	}
	for _, e := range entries {
		if !e.Date.Equal(date) || e.Type != core.HistoryRecharge {
			continue
		}
		if _, ok := core.ProviderFromLabel(e.Title); !ok {
			continue
		}
		total += e.Amount
	}

	return total, nil
}

// AvailableMobileBalance sums the current service balances adjusted by
// the net of the date's history entries (Dépôt adds, everything else
// subtracts). The scalars already encode all days, so the figure is
// only an exact day snapshot when date is the current day.
func (a *Aggregator) AvailableMobileBalance(ctx context.Context, date core.Date) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	var total int64
	for _, svc := range core.Services {
		v, err := a.readInt(ctx, store.BalanceKey(string(svc)))
		if err != nil {
			return 0, err
		}
		total += v
	}

	entries, err := readList[core.HistoryEntry](ctx, a.store, store.KeyBalanceHistory)
	if err != nil {
		return 0, err
	}
	for _, e := range entries {
		if !e.Date.Equal(date) {
			continue
		}
		if _, ok := core.ServiceFromLabel(e.Title); !ok {
			continue
		}
		if e.Type == string(core.TypeDeposit) {
			total += e.Amount
		} else {
			total -= e.Amount
		}
	}

	return total, nil
}

func (a *Aggregator) readInt(ctx context.Context, key string) (int64, error) {
	raw, ok, err := a.store.Get(ctx, key)
	if err != nil {
		return 0, &core.StorageError{Op: "get", Key: key, Err: err}
	}
	if !ok || raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &core.StorageError{Op: "decode", Key: key, Err: err}
	}
	return v, nil
}

func readList[T any](ctx context.Context, st store.Store, key string) ([]T, error) {
	raw, ok, err := st.Get(ctx, key)
	if err != nil {
		return nil, &core.StorageError{Op: "get", Key: key, Err: err}
	}
	if !ok || raw == "" {
		return nil, nil
	}
	var items []T
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, &core.StorageError{Op: "decode", Key: key, Err: err}
	}
	return items, nil
}
