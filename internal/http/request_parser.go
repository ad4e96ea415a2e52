package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// flexString accepts both JSON strings and bare numbers: amounts arrive
// as "500" from form clients and as 500 from API clients.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*f = flexString(n.String())
	return nil
}

func (f flexString) String() string { return string(f) }

type (
	transactionPayload struct {
		Service    string     `json:"service"`
		Type       string     `json:"type"`
		Name       string     `json:"name"`
		Phone      string     `json:"phone"`
		Amount     flexString `json:"amount"`
		Commission flexString `json:"commission"`
		Reference  string     `json:"reference"`
	}

	adjustPayload struct {
		Service   string     `json:"service"`
		Direction string     `json:"direction"`
		Amount    flexString `json:"amount"`
	}

	creditSalePayload struct {
		Provider string     `json:"provider"`
		Amount   flexString `json:"amount"`
		Count    flexString `json:"count"`
	}

	rechargePayload struct {
		Provider string     `json:"provider"`
		Amount   flexString `json:"amount"`
	}

	resetPayload struct {
		Date string `json:"date"`
	}
)

const maxBodyBytes = 64 << 10 // 64KB, far above any legitimate payload

// decodeBody parses a JSON request body into dst, rejecting unknown
// fields and oversized bodies.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

// parseCount reads the sale count the same way the form did: a small
// positive integer submitted as a string.
func parseCount(s flexString) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s.String()))
	if err != nil {
		return 0, fmt.Errorf("invalid count %q", s)
	}
	return v, nil
}
