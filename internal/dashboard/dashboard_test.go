package dashboard

import (
	"context"
	"encoding/json"
	"reflect"
	"testing"

	"cashpoint/internal/core"
	"cashpoint/internal/store"
	"cashpoint/internal/store/memory"
)

func seedLists(t *testing.T, st *memory.Store, txs []core.Transaction, sales []core.CreditSale, balHist, credHist []core.HistoryEntry) {
	t.Helper()
	seed := make(map[string]string)
	for key, v := range map[string]any{
		store.KeyMobileMoney:    txs,
		store.KeyCredits:        sales,
		store.KeyBalanceHistory: balHist,
		store.KeyCreditHistory:  credHist,
	} {
		raw, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal %s: %v", key, err)
		}
		seed[key] = string(raw)
	}
	st.Seed(seed)
}

func TestDailyTotals(t *testing.T) {
	st := memory.New()
	day := core.NewDate(2025, 3, 7)
	other := core.NewDate(2025, 3, 6)

	seedLists(t, st,
		[]core.Transaction{
			{Title: core.ServiceAirtel.Label(), Type: core.TypeDeposit, Amount: 1000, Commission: "100", Phone: "033", Reference: "a", Date: day},
			{Title: core.ServiceMVola.Label(), Type: core.TypeWithdrawal, Amount: 400, Commission: "50", Phone: "034", Reference: "b", Date: day},
			{Title: core.ServiceAirtel.Label(), Type: core.TypeDeposit, Amount: 9999, Commission: "1", Phone: "033", Reference: "c", Date: other},
		},
		[]core.CreditSale{
			{Title: core.CreditYAS.Label(), Amount: 2000, Duration: 3, Date: day},
			{Title: core.CreditOrange.Label(), Amount: 1000, Duration: 1, Date: other},
		},
		nil, nil)

	a := New(st, 0)
	got, err := a.DailyTotals(context.Background(), day)
	if err != nil {
		t.Fatalf("daily totals: %v", err)
	}

	if got.TotalDeposit != 1000 {
		t.Fatalf("deposit expected 1000, got %d", got.TotalDeposit)
	}
	if got.TotalWithdrawal != 400 {
		t.Fatalf("withdrawal expected 400, got %d", got.TotalWithdrawal)
	}
	if got.TotalCommission != 150 {
		t.Fatalf("commission expected 150, got %d", got.TotalCommission)
	}
	if got.TotalCreditCost != 6000 {
		t.Fatalf("credit cost expected 6000, got %d", got.TotalCreditCost)
	}
	if len(got.Transactions) != 2 || len(got.Credits) != 1 {
		t.Fatalf("row filtering wrong: %d txs, %d credits", len(got.Transactions), len(got.Credits))
	}
}

func TestDailyTotalsEmptyStore(t *testing.T) {
	a := New(memory.New(), 0)
	got, err := a.DailyTotals(context.Background(), core.NewDate(2025, 1, 1))
	if err != nil {
		t.Fatalf("daily totals: %v", err)
	}
	if got.TotalDeposit != 0 || got.TotalWithdrawal != 0 || got.TotalCommission != 0 || got.TotalCreditCost != 0 {
		t.Fatalf("expected zero totals, got %+v", got)
	}
}

func TestDailyTotalsIsPureRead(t *testing.T) {
	st := memory.New()
	day := core.NewDate(2025, 3, 7)
	seedLists(t, st,
		[]core.Transaction{{Title: core.ServiceAirtel.Label(), Type: core.TypeDeposit, Amount: 500, Commission: "0", Phone: "033", Reference: "r", Date: day}},
		nil, nil, nil)

	a := New(st, 0)
	first, err := a.DailyTotals(context.Background(), day)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := a.DailyTotals(context.Background(), day)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("repeated reads differ:\n%+v\n%+v", first, second)
	}
}

func TestAvailableCredit(t *testing.T) {
	st := memory.New()
	day := core.NewDate(2025, 3, 7)
	other := core.NewDate(2025, 3, 6)
	st.Seed(map[string]string{
		store.CreditPoolKey("airtel"): "1000",
		store.CreditPoolKey("yas"):    "2500",
		store.CreditPoolKey("orange"): "500",
	})
	seedLists(t, st, nil, nil, nil, []core.HistoryEntry{
		{Title: core.CreditYAS.Label(), Type: core.HistoryRecharge, Amount: 2000, Date: day},
		{Title: core.CreditYAS.Label(), Type: core.HistorySale, Amount: 300, Date: day},      // not a recharge
		{Title: core.CreditYAS.Label(), Type: core.HistoryRecharge, Amount: 999, Date: other}, // other day
		{Title: "Crédit - Telma", Type: core.HistoryRecharge, Amount: 50, Date: day},          // unknown provider
	})

	a := New(st, 0)
	got, err := a.AvailableCredit(context.Background(), day)
	if err != nil {
		t.Fatalf("available credit: %v", err)
	}
	if want := int64(1000 + 2500 + 500 + 2000); got != want {
		t.Fatalf("expected %d, got %d", want, got)
	}
}

func TestAvailableMobileBalance(t *testing.T) {
	st := memory.New()
	day := core.NewDate(2025, 3, 7)
	st.Seed(map[string]string{
		store.BalanceKey("airtel"): "1500",
		store.BalanceKey("mvola"):  "2000",
		store.BalanceKey("orange"): "0",
	})
	seedLists(t, st, nil, nil, []core.HistoryEntry{
		{Title: core.ServiceAirtel.Label(), Type: string(core.TypeDeposit), Amount: 500, Date: day},
		{Title: core.ServiceMVola.Label(), Type: string(core.TypeWithdrawal), Amount: 200, Date: day},
		{Title: "Mobile Money - Telma", Type: string(core.TypeDeposit), Amount: 99, Date: day}, // unknown service
		{Title: core.ServiceAirtel.Label(), Type: string(core.TypeDeposit), Amount: 777, Date: core.NewDate(2025, 3, 6)},
	}, nil)

	a := New(st, 0)
	got, err := a.AvailableMobileBalance(context.Background(), day)
	if err != nil {
		t.Fatalf("available balance: %v", err)
	}
	if want := int64(1500 + 2000 + 0 + 500 - 200); got != want {
		t.Fatalf("expected %d, got %d", want, got)
	}
}
