package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	TypeDeposit    TxType = "Dépôt"
	TypeWithdrawal TxType = "Retrait"

	ServiceAirtel Service = "airtel"
	ServiceMVola  Service = "mvola"
	ServiceOrange Service = "orange"

	CreditAirtel CreditProvider = "airtel"
	CreditYAS    CreditProvider = "yas"
	CreditOrange CreditProvider = "orange"

	// History entry types beyond the Dépôt/Retrait pair.
	HistorySale     = "Vente"
	HistoryRecharge = "Recharge"

	dateLayout = "02/01/2006"
)

type (
	// TxType is the kind of a mobile-money transaction. The French labels
	// are the persisted wire values.
	TxType string

	// Service is a mobile-money provider with a running balance.
	Service string

	// CreditProvider is a telecom whose prepaid airtime is resold.
	CreditProvider string

	// Date is a calendar day, persisted as "jj/mm/aaaa".
	Date struct {
		t time.Time
	}

	// Transaction is one mobile-money deposit or withdrawal. Records are
	// immutable once appended to the mobileMoney list.
	Transaction struct {
		Title      string `json:"title"`
		Type       TxType `json:"type"`
		Name       string `json:"name,omitempty"`
		Phone      string `json:"phone"`
		Amount     int64  `json:"amount"`
		Commission string `json:"commission"`
		Reference  string `json:"reference"`
		Date       Date   `json:"date"`
	}

	// CreditSale is one airtime sale: Duration units of the Amount
	// denomination. Immutable once appended to the credits list.
	CreditSale struct {
		Title    string `json:"title"`
		Amount   int64  `json:"amount"`
		Duration int    `json:"duration"`
		Date     Date   `json:"date"`
	}

	// HistoryEntry is one append-only log record in soldeHistorique or
	// creditHistorique.
	HistoryEntry struct {
		Title  string `json:"title"`
		Type   string `json:"type"`
		Amount int64  `json:"amount"`
		Date   Date   `json:"date"`
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInsufficientFunds  = errors.New("insufficient balance")
	ErrInsufficientCredit = errors.New("insufficient credit")
	ErrInvalidType        = errors.New("invalid transaction type")
	ErrUnknownService     = errors.New("unknown service")
	ErrUnknownProvider    = errors.New("unknown credit provider")
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidCount       = errors.New("invalid count")

	// Services lists every mobile-money provider, in menu order.
	Services = []Service{ServiceAirtel, ServiceMVola, ServiceOrange}

	// CreditProviders lists every airtime provider, in menu order.
	CreditProviders = []CreditProvider{CreditAirtel, CreditYAS, CreditOrange}

	// Denominations is the fixed set of sellable airtime face values.
	Denominations = []int64{1000, 2000, 3000, 5000, 10000}

	serviceLabels = map[Service]string{
		ServiceAirtel: "Mobile Money - Airtel",
		ServiceMVola:  "Mobile Money - MVola",
		ServiceOrange: "Mobile Money - Orange",
	}

	providerLabels = map[CreditProvider]string{
		CreditAirtel: "Crédit - Airtel",
		CreditYAS:    "Crédit - YAS",
		CreditOrange: "Crédit - Orange",
	}
)

// StorageError marks a failed read or write against the ledger store.
// Writes already completed when the failure hit are not rolled back.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (t TxType) Valid() bool {
	return t == TypeDeposit || t == TypeWithdrawal
}

// ParseTxType resolves a wire value to a TxType. The accent-less spelling
// is accepted since not every client keyboard produces "Dépôt".
func ParseTxType(s string) (TxType, error) {
	switch strings.TrimSpace(s) {
	case string(TypeDeposit), "Depot", "depot", "dépôt":
		return TypeDeposit, nil
	case string(TypeWithdrawal), "retrait":
		return TypeWithdrawal, nil
	}
	return "", ErrInvalidType
}

func ParseService(s string) (Service, error) {
	svc := Service(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := serviceLabels[svc]; !ok {
		return "", ErrUnknownService
	}
	return svc, nil
}

// Label returns the display title stored on records, e.g.
// "Mobile Money - MVola".
func (s Service) Label() string { return serviceLabels[s] }

// ServiceFromLabel maps a record title back to its service.
func ServiceFromLabel(title string) (Service, bool) {
	for svc, label := range serviceLabels {
		if label == title {
			return svc, true
		}
	}
	return "", false
}

func ParseCreditProvider(s string) (CreditProvider, error) {
	p := CreditProvider(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := providerLabels[p]; !ok {
		return "", ErrUnknownProvider
	}
	return p, nil
}

// Label returns the display title stored on records, e.g. "Crédit - YAS".
func (p CreditProvider) Label() string { return providerLabels[p] }

// ProviderFromLabel maps a record title back to its credit provider.
func ProviderFromLabel(title string) (CreditProvider, bool) {
	for p, label := range providerLabels {
		if label == title {
			return p, true
		}
	}
	return "", false
}

// ValidDenomination reports whether v is a sellable airtime face value.
func ValidDenomination(v int64) bool {
	for _, d := range Denominations {
		if v == d {
			return true
		}
	}
	return false
}

// Total is the pool cost of the sale: denomination times count.
func (c CreditSale) Total() int64 {
	return c.Amount * int64(c.Duration)
}

func (c CreditSale) Validate() error {
	if !ValidDenomination(c.Amount) {
		return ErrInvalidAmount
	}
	if c.Duration < 1 || c.Duration > 10 {
		return ErrInvalidCount
	}
	if c.Date.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (t Transaction) Validate() error {
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if t.Amount <= 0 {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(t.Phone) == "" {
		return errors.New("empty phone number")
	}
	if strings.TrimSpace(t.Reference) == "" {
		return errors.New("empty reference")
	}
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// NewDate builds a Date from year, month and day.
func NewDate(year, month, day int) Date {
	return Date{t: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Today is the current calendar day.
func Today() Date {
	now := time.Now()
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

// ParseDate parses "jj/mm/aaaa".
func ParseDate(s string) (Date, error) {
	t, err := time.ParseInLocation(dateLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{t: t}, nil
}

func (d Date) String() string {
	if d.t.IsZero() {
		return ""
	}
	return d.t.Format(dateLayout)
}

func (d Date) IsZero() bool { return d.t.IsZero() }

// Format renders the day with an arbitrary time layout, for file names
// and exports that need something other than the wire format.
func (d Date) Format(layout string) string { return d.t.Format(layout) }

func (d Date) Equal(o Date) bool { return d.t.Equal(o.t) }

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
