package core

import (
	"math"
	"strings"
	"time"
)

// TimestampLayout is the format transactions are stamped with by default.
const TimestampLayout = "2006-01-02 15:04:05"

const (
	Clients  LookupKind = "clients"
	Services LookupKind = "services"
	Sectors  LookupKind = "sectors"
)

const (
	PaymentNone     PaymentMethod = ""
	PaymentCash     PaymentMethod = "Cash"
	PaymentCard     PaymentMethod = "Card"
	PaymentPIX      PaymentMethod = "PIX"
	PaymentBankSlip PaymentMethod = "BankSlip"
	PaymentTransfer PaymentMethod = "Transfer"
)

type (
	// LookupKind names one of the three reference-data relations.
	LookupKind string

	// PaymentMethod is one of a fixed set of labels; the empty value means
	// no payment method was recorded.
	PaymentMethod string

	// Lookup is a uniquely named reference row (client, service or sector).
	Lookup struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}

	// Transaction is an append-only service record as submitted for storage.
	Transaction struct {
		Timestamp     string
		Requester     string
		ClientID      int64
		ServiceID     int64
		Quantity      int64
		UnitValue     float64
		SectorID      *int64
		PaymentMethod PaymentMethod
		Notes         string
	}

	// Row is a stored transaction joined with its lookup names.
	Row struct {
		ID            int64         `json:"id"`
		Timestamp     string        `json:"timestamp"`
		Requester     string        `json:"requester"`
		ClientID      int64         `json:"client_id"`
		Client        string        `json:"client"`
		ServiceID     int64         `json:"service_id"`
		Service       string        `json:"service"`
		Quantity      int64         `json:"quantity"`
		UnitValue     float64       `json:"unit_value"`
		TotalValue    float64       `json:"total_value"`
		SectorID      *int64        `json:"sector_id,omitempty"`
		Sector        *string       `json:"sector,omitempty"`
		PaymentMethod PaymentMethod `json:"payment_method"`
		Notes         string        `json:"notes,omitempty"`
	}
)

// LookupKinds returns every lookup kind in a fixed order.
func LookupKinds() []LookupKind {
	return []LookupKind{Clients, Services, Sectors}
}

// IsValid reports whether k is a known kind.
func (k LookupKind) IsValid() bool {
	switch k {
	case Clients, Services, Sectors:
		return true
	default:
		return false
	}
}

// PaymentMethods returns the recognised payment methods, including the empty one.
func PaymentMethods() []PaymentMethod {
	return []PaymentMethod{PaymentNone, PaymentCash, PaymentCard, PaymentPIX, PaymentBankSlip, PaymentTransfer}
}

func (p PaymentMethod) IsValid() bool {
	for _, m := range PaymentMethods() {
		if p == m {
			return true
		}
	}
	return false
}

// NormalizeName trims a lookup name and rejects it if nothing is left.
func NormalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", NewValidationError("name", "must not be empty")
	}
	return name, nil
}

// Now returns the default timestamp for a new transaction.
func Now() string {
	return time.Now().Format(TimestampLayout)
}

// Validate checks presence and range of the required fields. It never
// rewrites the record; the timestamp is stored as an opaque string.
func (t Transaction) Validate() error {
	if strings.TrimSpace(t.Requester) == "" {
		return NewValidationError("requester", "must not be empty")
	}
	if t.ClientID <= 0 {
		return NewValidationError("client_id", "is required")
	}
	if t.ServiceID <= 0 {
		return NewValidationError("service_id", "is required")
	}
	if t.SectorID != nil && *t.SectorID <= 0 {
		return NewValidationError("sector_id", "must reference a sector when set")
	}
	if t.Quantity < 1 {
		return NewValidationError("quantity", "must be at least 1")
	}
	if math.IsNaN(t.UnitValue) || math.IsInf(t.UnitValue, 0) {
		return NewValidationError("unit_value", "must be a finite number")
	}
	if t.UnitValue < 0 {
		return NewValidationError("unit_value", "must not be negative")
	}
	if !t.PaymentMethod.IsValid() {
		return NewValidationError("payment_method", "unknown payment method "+string(t.PaymentMethod))
	}
	return nil
}

// Total returns quantity times unit value.
func (t Transaction) Total() float64 {
	return float64(t.Quantity) * t.UnitValue
}
