package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event kinds published by the ledger service.
const (
	KindTransaction = "transaction"
	KindAdjustment  = "adjustment"
	KindCreditSale  = "credit_sale"
	KindRecharge    = "recharge"
	KindReset       = "reset"
)

// LedgerEvent mirrors one applied ledger mutation for the day-book
// worker. The event id exists for log correlation only; the ledger
// itself performs no deduplication.
type LedgerEvent struct {
	EventID   string    `json:"event_id"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title,omitempty"`
	Type      string    `json:"type,omitempty"`
	Amount    int64     `json:"amount,omitempty"`
	Date      string    `json:"date"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLedgerEvent stamps a fresh event with a uuid and the current time.
func NewLedgerEvent(kind, title, typ string, amount int64, date string) *LedgerEvent {
	return &LedgerEvent{
		EventID:   uuid.NewString(),
		Kind:      kind,
		Title:     title,
		Type:      typ,
		Amount:    amount,
		Date:      date,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON creates an event from JSON bytes
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var ev LedgerEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
