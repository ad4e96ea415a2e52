package http

import (
	"log/slog"
	"net/http"
	"strings"

	"cashpoint/internal/core"
	"cashpoint/internal/ledger"
)

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var payload transactionPayload
	if err := decodeBody(w, r, &payload); err != nil {
		slog.ErrorContext(r.Context(), "Parse body error", "error", err, "url", r.URL.Path)
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	service, err := core.ParseService(payload.Service)
	if err != nil {
		writeOperationError(w, err)
		return
	}
	txType, err := core.ParseTxType(payload.Type)
	if err != nil {
		writeOperationError(w, err)
		return
	}
	amount, err := core.ParseAmount(payload.Amount.String())
	if err != nil {
		writeOperationError(w, err)
		return
	}

	// An omitted commission means none was charged.
	commission := strings.TrimSpace(payload.Commission.String())
	if commission == "" {
		commission = "0"
	}

	balance, err := s.svc.RecordTransaction(r.Context(), ledger.TransactionRequest{
		Service:    service,
		Type:       txType,
		Name:       strings.TrimSpace(payload.Name),
		Phone:      strings.TrimSpace(payload.Phone),
		Amount:     amount,
		Commission: commission,
		Reference:  strings.TrimSpace(payload.Reference),
	})
	if err != nil {
		writeOperationError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"service": service,
		"type":    txType,
		"amount":  amount,
		"balance": balance,
		"date":    core.Today().String(),
	})
}

func (s *Server) handleAdjustBalance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var payload adjustPayload
	if err := decodeBody(w, r, &payload); err != nil {
		slog.ErrorContext(r.Context(), "Parse body error", "error", err, "url", r.URL.Path)
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	service, err := core.ParseService(payload.Service)
	if err != nil {
		writeOperationError(w, err)
		return
	}
	amount, err := core.ParseAmount(payload.Amount.String())
	if err != nil {
		writeOperationError(w, err)
		return
	}

	dir := ledger.Direction(strings.ToLower(strings.TrimSpace(payload.Direction)))
	balance, err := s.svc.AdjustBalance(r.Context(), service, dir, amount)
	if err != nil {
		writeOperationError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"service":   service,
		"direction": dir,
		"amount":    amount,
		"balance":   balance,
	})
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	balances := make(map[string]int64, len(core.Services))
	for _, svc := range core.Services {
		v, err := s.svc.ServiceBalance(r.Context(), svc)
		if err != nil {
			slog.ErrorContext(r.Context(), "Balance read failed", "error", err, "service", svc)
			writeOperationError(w, err)
			return
		}
		balances[string(svc)] = v
	}

	pools := make(map[string]int64, len(core.CreditProviders))
	for _, p := range core.CreditProviders {
		v, err := s.svc.CreditPool(r.Context(), p)
		if err != nil {
			slog.ErrorContext(r.Context(), "Pool read failed", "error", err, "provider", p)
			writeOperationError(w, err)
			return
		}
		pools[string(p)] = v
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"balances": balances,
		"pools":    pools,
	})
}

func (s *Server) handleCreateCreditSale(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var payload creditSalePayload
	if err := decodeBody(w, r, &payload); err != nil {
		slog.ErrorContext(r.Context(), "Parse body error", "error", err, "url", r.URL.Path)
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	provider, err := core.ParseCreditProvider(payload.Provider)
	if err != nil {
		writeOperationError(w, err)
		return
	}
	denomination, err := core.ParseAmount(payload.Amount.String())
	if err != nil {
		writeOperationError(w, err)
		return
	}
	count, err := parseCount(payload.Count)
	if err != nil {
		writeOperationError(w, core.ErrInvalidCount)
		return
	}

	pool, err := s.svc.RecordCreditSale(r.Context(), ledger.CreditSaleRequest{
		Provider:     provider,
		Denomination: denomination,
		Count:        count,
	})
	if err != nil {
		writeOperationError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"provider": provider,
		"amount":   denomination,
		"count":    count,
		"total":    denomination * int64(count),
		"pool":     pool,
	})
}

func (s *Server) handleRecharge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var payload rechargePayload
	if err := decodeBody(w, r, &payload); err != nil {
		slog.ErrorContext(r.Context(), "Parse body error", "error", err, "url", r.URL.Path)
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	provider, err := core.ParseCreditProvider(payload.Provider)
	if err != nil {
		writeOperationError(w, err)
		return
	}
	amount, err := core.ParseAmount(payload.Amount.String())
	if err != nil {
		writeOperationError(w, err)
		return
	}

	pool, err := s.svc.RechargeCreditPool(r.Context(), provider, amount)
	if err != nil {
		writeOperationError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"provider": provider,
		"amount":   amount,
		"pool":     pool,
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	// The date is optional and defaults to today; passing one makes the
	// handler testable without clock control.
	day := core.Today()
	if r.ContentLength != 0 {
		var payload resetPayload
		if err := decodeBody(w, r, &payload); err != nil {
			slog.ErrorContext(r.Context(), "Parse body error", "error", err, "url", r.URL.Path)
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if payload.Date != "" {
			parsed, err := core.ParseDate(payload.Date)
			if err != nil {
				writeOperationError(w, err)
				return
			}
			day = parsed
		}
	}

	if err := s.svc.ResetDaily(r.Context(), day); err != nil {
		writeOperationError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"reset": day.String()})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	day := core.Today()
	if v := strings.TrimSpace(r.URL.Query().Get("date")); v != "" {
		parsed, err := core.ParseDate(v)
		if err != nil {
			writeOperationError(w, err)
			return
		}
		day = parsed
	}

	totals, err := s.svc.DailyTotals(r.Context(), day)
	if err != nil {
		slog.ErrorContext(r.Context(), "Dashboard totals failed", "error", err, "date", day.String())
		writeOperationError(w, err)
		return
	}
	availableCredit, err := s.svc.AvailableCredit(r.Context(), day)
	if err != nil {
		slog.ErrorContext(r.Context(), "Available credit failed", "error", err, "date", day.String())
		writeOperationError(w, err)
		return
	}
	availableBalance, err := s.svc.AvailableMobileBalance(r.Context(), day)
	if err != nil {
		slog.ErrorContext(r.Context(), "Available balance failed", "error", err, "date", day.String())
		writeOperationError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"date":                   day.String(),
		"totalDeposit":           totals.TotalDeposit,
		"totalWithdrawal":        totals.TotalWithdrawal,
		"totalCommission":        totals.TotalCommission,
		"totalCreditCost":        totals.TotalCreditCost,
		"availableCredit":        availableCredit,
		"availableMobileBalance": availableBalance,
		"transactions":           totals.Transactions,
		"credits":                totals.Credits,
	})
}
