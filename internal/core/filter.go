package core

import "strings"

// Filter narrows a transaction query. Each non-nil field adds one
// conjunctive predicate; the zero Filter matches every transaction.
type Filter struct {
	Start     *string // inclusive lower bound, compared as a datetime
	End       *string // inclusive upper bound, compared as a datetime
	ClientID  *int64
	ServiceID *int64
	SectorID  *int64
	// PaymentMethod set to PaymentNone matches rows without a payment method.
	PaymentMethod *PaymentMethod
}

// IsEmpty reports whether no predicate is set.
func (f Filter) IsEmpty() bool {
	return f.Start == nil && f.End == nil && f.ClientID == nil &&
		f.ServiceID == nil && f.SectorID == nil && f.PaymentMethod == nil
}

// DateRange expands day inputs (YYYY-MM-DD) into whole-day timestamp bounds.
// Blank inputs leave the matching bound unset.
func DateRange(startDay, endDay string) (start, end *string) {
	if s := strings.TrimSpace(startDay); s != "" {
		v := s + " 00:00:00"
		start = &v
	}
	if e := strings.TrimSpace(endDay); e != "" {
		v := e + " 23:59:59"
		end = &v
	}
	return start, end
}
