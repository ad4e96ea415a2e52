// Package services wires the ledger core to the event pipeline: every
// applied mutation is mirrored onto AMQP for the day-book worker.
// Publish failures are logged and never fail the user operation.
package services

import (
	"context"
	"log/slog"

	"cashpoint/internal/amqp"
	"cashpoint/internal/core"
	"cashpoint/internal/dashboard"
	"cashpoint/internal/ledger"
)

// EventPublisher is the slice of the AMQP client the service needs.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error
}

// LedgerService fronts the ledger operations for the HTTP layer.
// publisher may be nil when eventing is not configured.
type LedgerService struct {
	ledger    *ledger.Ledger
	dash      *dashboard.Aggregator
	publisher EventPublisher
}

func NewLedgerService(l *ledger.Ledger, dash *dashboard.Aggregator, publisher EventPublisher) *LedgerService {
	return &LedgerService{
		ledger:    l,
		dash:      dash,
		publisher: publisher,
	}
}

func (s *LedgerService) RecordTransaction(ctx context.Context, req ledger.TransactionRequest) (int64, error) {
	balance, err := s.ledger.RecordTransaction(ctx, req)
	if err != nil {
		return 0, err
	}
	s.publish(ctx, amqp.NewLedgerEvent(
		amqp.KindTransaction, req.Service.Label(), string(req.Type), req.Amount, core.Today().String()))
	return balance, nil
}

func (s *LedgerService) AdjustBalance(ctx context.Context, service core.Service, dir ledger.Direction, amount int64) (int64, error) {
	balance, err := s.ledger.AdjustBalance(ctx, service, dir, amount)
	if err != nil {
		return 0, err
	}
	s.publish(ctx, amqp.NewLedgerEvent(
		amqp.KindAdjustment, service.Label(), string(dir), amount, core.Today().String()))
	return balance, nil
}

func (s *LedgerService) RecordCreditSale(ctx context.Context, req ledger.CreditSaleRequest) (int64, error) {
	pool, err := s.ledger.RecordCreditSale(ctx, req)
	if err != nil {
		return 0, err
	}
	total := req.Denomination * int64(req.Count)
	s.publish(ctx, amqp.NewLedgerEvent(
		amqp.KindCreditSale, req.Provider.Label(), core.HistorySale, total, core.Today().String()))
	return pool, nil
}

func (s *LedgerService) RechargeCreditPool(ctx context.Context, provider core.CreditProvider, amount int64) (int64, error) {
	pool, err := s.ledger.RechargeCreditPool(ctx, provider, amount)
	if err != nil {
		return 0, err
	}
	s.publish(ctx, amqp.NewLedgerEvent(
		amqp.KindRecharge, provider.Label(), core.HistoryRecharge, amount, core.Today().String()))
	return pool, nil
}

func (s *LedgerService) ResetDaily(ctx context.Context, today core.Date) error {
	if err := s.ledger.ResetDaily(ctx, today); err != nil {
		return err
	}
	s.publish(ctx, amqp.NewLedgerEvent(amqp.KindReset, "", "", 0, today.String()))
	return nil
}

func (s *LedgerService) ServiceBalance(ctx context.Context, service core.Service) (int64, error) {
	return s.ledger.ServiceBalance(ctx, service)
}

func (s *LedgerService) CreditPool(ctx context.Context, provider core.CreditProvider) (int64, error) {
	return s.ledger.CreditPool(ctx, provider)
}

func (s *LedgerService) DailyTotals(ctx context.Context, date core.Date) (dashboard.DayTotals, error) {
	return s.dash.DailyTotals(ctx, date)
}

func (s *LedgerService) AvailableCredit(ctx context.Context, date core.Date) (int64, error) {
	return s.dash.AvailableCredit(ctx, date)
}

func (s *LedgerService) AvailableMobileBalance(ctx context.Context, date core.Date) (int64, error) {
	return s.dash.AvailableMobileBalance(ctx, date)
}

func (s *LedgerService) publish(ctx context.Context, ev *amqp.LedgerEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishLedgerEvent(ctx, ev); err != nil {
		// The books are already written; eventing is best effort.
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"error", err,
			"event_id", ev.EventID,
			"event_kind", ev.Kind)
	}
}
