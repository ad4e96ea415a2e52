// Package ledger enforces the correctness rules of every
// balance-affecting operation: canonical validation before any write,
// rejection (never clamping) when funds are insufficient, and a history
// append paired with every balance mutation.
package ledger

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"cashpoint/internal/core"
	"cashpoint/internal/store"
)

// DefaultStoreTimeout bounds each operation's store access so a stuck
// backend surfaces as a failure instead of a hang.
const DefaultStoreTimeout = 5 * time.Second

type (
	// Ledger validates and applies balance-affecting operations on the
	// injected store. It holds no balances in memory; every operation
	// reloads state from the store under a per-key lock.
	Ledger struct {
		store   store.Store
		locks   *keyLock
		timeout time.Duration
	}

	// Direction of a manual balance correction.
	Direction string

	// TransactionRequest carries the validated-at-the-boundary fields of
	// a mobile-money submission.
	TransactionRequest struct {
		Service    core.Service
		Type       core.TxType
		Name       string
		Phone      string
		Amount     int64
		Commission string
		Reference  string
	}

	// CreditSaleRequest is one airtime sale: Count units of Denomination.
	CreditSaleRequest struct {
		Provider     core.CreditProvider
		Denomination int64
		Count        int
	}
)

const (
	DirectionAdd    Direction = "add"
	DirectionRemove Direction = "remove"
)

func New(st store.Store, timeout time.Duration) *Ledger {
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}
	return &Ledger{
		store:   st,
		locks:   newKeyLock(),
		timeout: timeout,
	}
}

// RecordTransaction appends a mobile-money transaction, moves the
// service balance by ±amount and logs the matching history entry.
// Validation happens before the first write: a rejected request leaves
// every key untouched.
func (l *Ledger) RecordTransaction(ctx context.Context, req TransactionRequest) (int64, error) {
	if !req.Type.Valid() {
		return 0, core.ErrInvalidType
	}
	if req.Amount <= 0 {
		return 0, core.ErrInvalidAmount
	}
	if _, err := core.ParseCommission(req.Commission); err != nil {
		return 0, core.ErrInvalidAmount
	}

	tx := core.Transaction{
		Title:      req.Service.Label(),
		Type:       req.Type,
		Name:       req.Name,
		Phone:      req.Phone,
		Amount:     req.Amount,
		Commission: req.Commission,
		Reference:  req.Reference,
		Date:       core.Today(),
	}
	if err := tx.Validate(); err != nil {
		return 0, err
	}

	balanceKey := store.BalanceKey(string(req.Service))
	release := l.locks.acquire(store.KeyMobileMoney, balanceKey, store.KeyBalanceHistory)
	defer release()

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	balance, err := l.getInt(ctx, balanceKey)
	if err != nil {
		return 0, err
	}
	if req.Type == core.TypeWithdrawal && req.Amount > balance {
		return 0, core.ErrInsufficientFunds
	}

	if err := appendRecord(ctx, l.store, store.KeyMobileMoney, tx); err != nil {
		return 0, err
	}

	newBalance := balance + req.Amount
	if req.Type == core.TypeWithdrawal {
		newBalance = balance - req.Amount
	}
	if err := l.setInt(ctx, balanceKey, newBalance); err != nil {
		return 0, err
	}

	entry := core.HistoryEntry{
		Title:  tx.Title,
		Type:   string(req.Type),
		Amount: req.Amount,
		Date:   tx.Date,
	}
	if err := appendRecord(ctx, l.store, store.KeyBalanceHistory, entry); err != nil {
		return 0, err
	}

	slog.InfoContext(ctx, "Transaction recorded",
		"service", req.Service,
		"type", req.Type,
		"amount", req.Amount,
		"balance", newBalance)

	return newBalance, nil
}

// AdjustBalance applies a manual correction to a service balance,
// outside of any customer transaction. The direction vocabulary maps
// onto the Dépôt/Retrait pair in the history log.
func (l *Ledger) AdjustBalance(ctx context.Context, service core.Service, dir Direction, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, core.ErrInvalidAmount
	}
	var entryType core.TxType
	switch dir {
	case DirectionAdd:
		entryType = core.TypeDeposit
	case DirectionRemove:
		entryType = core.TypeWithdrawal
	default:
		return 0, core.ErrInvalidType
	}

	balanceKey := store.BalanceKey(string(service))
	release := l.locks.acquire(balanceKey, store.KeyBalanceHistory)
	defer release()

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	balance, err := l.getInt(ctx, balanceKey)
	if err != nil {
		return 0, err
	}
	if dir == DirectionRemove && amount > balance {
		return 0, core.ErrInsufficientFunds
	}

	newBalance := balance + amount
	if dir == DirectionRemove {
		newBalance = balance - amount
	}
	if err := l.setInt(ctx, balanceKey, newBalance); err != nil {
		return 0, err
	}

	entry := core.HistoryEntry{
		Title:  service.Label(),
		Type:   string(entryType),
		Amount: amount,
		Date:   core.Today(),
	}
	if err := appendRecord(ctx, l.store, store.KeyBalanceHistory, entry); err != nil {
		return 0, err
	}

	slog.InfoContext(ctx, "Balance adjusted",
		"service", service,
		"direction", dir,
		"amount", amount,
		"balance", newBalance)

	return newBalance, nil
}

// RecordCreditSale sells Count units of the given denomination,
// decrementing the provider pool by the total. A sale that would drive
// the pool negative is refused with no mutation.
func (l *Ledger) RecordCreditSale(ctx context.Context, req CreditSaleRequest) (int64, error) {
	sale := core.CreditSale{
		Title:    req.Provider.Label(),
		Amount:   req.Denomination,
		Duration: req.Count,
		Date:     core.Today(),
	}
	if err := sale.Validate(); err != nil {
		return 0, err
	}
	total := sale.Total()

	poolKey := store.CreditPoolKey(string(req.Provider))
	release := l.locks.acquire(store.KeyCredits, poolKey, store.KeyCreditHistory)
	defer release()

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	pool, err := l.getInt(ctx, poolKey)
	if err != nil {
		return 0, err
	}
	if total > pool {
		return 0, core.ErrInsufficientCredit
	}

	if err := appendRecord(ctx, l.store, store.KeyCredits, sale); err != nil {
		return 0, err
	}

	remaining := pool - total
	if err := l.setInt(ctx, poolKey, remaining); err != nil {
		return 0, err
	}

	entry := core.HistoryEntry{
		Title:  sale.Title,
		Type:   core.HistorySale,
		Amount: total,
		Date:   sale.Date,
	}
	if err := appendRecord(ctx, l.store, store.KeyCreditHistory, entry); err != nil {
		return 0, err
	}

	slog.InfoContext(ctx, "Credit sale recorded",
		"provider", req.Provider,
		"denomination", req.Denomination,
		"count", req.Count,
		"pool", remaining)

	return remaining, nil
}

// RechargeCreditPool tops up a provider pool and logs a Recharge entry.
func (l *Ledger) RechargeCreditPool(ctx context.Context, provider core.CreditProvider, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, core.ErrInvalidAmount
	}

	poolKey := store.CreditPoolKey(string(provider))
	release := l.locks.acquire(poolKey, store.KeyCreditHistory)
	defer release()

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	pool, err := l.getInt(ctx, poolKey)
	if err != nil {
		return 0, err
	}
	newPool := pool + amount
	if err := l.setInt(ctx, poolKey, newPool); err != nil {
		return 0, err
	}

	entry := core.HistoryEntry{
		Title:  provider.Label(),
		Type:   core.HistoryRecharge,
		Amount: amount,
		Date:   core.Today(),
	}
	if err := appendRecord(ctx, l.store, store.KeyCreditHistory, entry); err != nil {
		return 0, err
	}

	slog.InfoContext(ctx, "Credit pool recharged",
		"provider", provider,
		"amount", amount,
		"pool", newPool)

	return newPool, nil
}

// ResetDaily clears the day's books: the raw transaction and credit
// lists, every balance and pool scalar, and the given day's history
// entries. History for other dates stays untouched.
func (l *Ledger) ResetDaily(ctx context.Context, today core.Date) error {
	if today.IsZero() {
		return core.ErrInvalidDate
	}

	keys := []string{
		store.KeyMobileMoney,
		store.KeyCredits,
		store.KeyBalanceHistory,
		store.KeyCreditHistory,
	}
	for _, svc := range core.Services {
		keys = append(keys, store.BalanceKey(string(svc)))
	}
	for _, p := range core.CreditProviders {
		keys = append(keys, store.CreditPoolKey(string(p)))
	}

	release := l.locks.acquire(keys...)
	defer release()

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	for _, key := range []string{store.KeyMobileMoney, store.KeyCredits} {
		if err := l.remove(ctx, key); err != nil {
			return err
		}
	}
	for _, svc := range core.Services {
		if err := l.remove(ctx, store.BalanceKey(string(svc))); err != nil {
			return err
		}
	}
	for _, p := range core.CreditProviders {
		if err := l.remove(ctx, store.CreditPoolKey(string(p))); err != nil {
			return err
		}
	}

	for _, key := range []string{store.KeyBalanceHistory, store.KeyCreditHistory} {
		if err := dropDay(ctx, l.store, key, today); err != nil {
			return err
		}
	}

	slog.InfoContext(ctx, "Daily reset applied", "date", today.String())
	return nil
}

// ServiceBalance reads the current scalar balance of a service.
func (l *Ledger) ServiceBalance(ctx context.Context, service core.Service) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	return l.getInt(ctx, store.BalanceKey(string(service)))
}

// CreditPool reads the current scalar pool of a provider.
func (l *Ledger) CreditPool(ctx context.Context, provider core.CreditProvider) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	return l.getInt(ctx, store.CreditPoolKey(string(provider)))
}

func (l *Ledger) getInt(ctx context.Context, key string) (int64, error) {
	raw, ok, err := l.store.Get(ctx, key)
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

func (l *Ledger) setInt(ctx context.Context, key string, v int64) error {
	if err := l.store.Set(ctx, key, strconv.FormatInt(v, 10)); err != nil {
		return &core.StorageError{Op: "set", Key: key, Err: err}
	}
	return nil
}

func (l *Ledger) remove(ctx context.Context, key string) error {
	if err := l.store.Remove(ctx, key); err != nil {
		return &core.StorageError{Op: "remove", Key: key, Err: err}
	}
	return nil
}

// getList decodes the JSON array under key; a missing key is an empty
// list.
func getList[T any](ctx context.Context, st store.Store, key string) ([]T, error) {
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

func setList[T any](ctx context.Context, st store.Store, key string, items []T) error {
	raw, err := json.Marshal(items)
	if err != nil {
		return &core.StorageError{Op: "encode", Key: key, Err: err}
	}
	if err := st.Set(ctx, key, string(raw)); err != nil {
		return &core.StorageError{Op: "set", Key: key, Err: err}
	}
	return nil
}

func appendRecord[T any](ctx context.Context, st store.Store, key string, item T) error {
	items, err := getList[T](ctx, st, key)
	if err != nil {
		return err
	}
	return setList(ctx, st, key, append(items, item))
}

// dropDay rewrites a history list keeping only entries from other days.
func dropDay(ctx context.Context, st store.Store, key string, day core.Date) error {
	entries, err := getList[core.HistoryEntry](ctx, st, key)
	if err != nil {
		return err
	}
	kept := entries[:0]
	for _, e := range entries {
		if !e.Date.Equal(day) {
			kept = append(kept, e)
		}
	}
	if len(kept) == len(entries) {
		return nil
	}
	return setList(ctx, st, key, kept)
}
