package amqp

import "testing"

func TestNewLedgerEvent(t *testing.T) {
	ev := NewLedgerEvent(KindRecharge, "Crédit - YAS", "Recharge", 2000, "07/03/2025")
	if ev.EventID == "" {
		t.Fatalf("expected event id")
	}
	if ev.Timestamp.IsZero() {
		t.Fatalf("expected timestamp")
	}

	raw, err := ev.ToJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	back, err := LedgerEventFromJSON(raw)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.EventID != ev.EventID || back.Kind != KindRecharge || back.Amount != 2000 || back.Date != "07/03/2025" {
		t.Fatalf("round trip mismatch: %+v", back)
	}
}

func TestLedgerEventFromJSONRejectsGarbage(t *testing.T) {
	if _, err := LedgerEventFromJSON([]byte("not json")); err == nil {
		t.Fatalf("expected error")
	}
}
