// Package http provides the JSON transport over the ledger service.
//
// This file implements parsing and validation of request parameters and
// bodies into core types.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"registro/internal/core"
)

const (
	maxBodyBytes = 1 << 20
	dayLayout    = "2006-01-02"
	maxTop       = 100
)

// ParseFilter builds a query filter from URL parameters. start and end
// accept a bare day (YYYY-MM-DD, expanded to the whole day) or a full
// timestamp. A present but empty payment parameter selects rows without
// a payment method.
func ParseFilter(q url.Values) (core.Filter, error) {
	var f core.Filter

	startDay, start, err := parseBound(q.Get("start"), "start")
	if err != nil {
		return core.Filter{}, err
	}
	endDay, end, err := parseBound(q.Get("end"), "end")
	if err != nil {
		return core.Filter{}, err
	}
	f.Start, f.End = core.DateRange(startDay, endDay)
	if start != "" {
		f.Start = &start
	}
	if end != "" {
		f.End = &end
	}

	for _, p := range []struct {
		key string
		dst **int64
	}{
		{"client", &f.ClientID},
		{"service", &f.ServiceID},
		{"sector", &f.SectorID},
	} {
		v := strings.TrimSpace(q.Get(p.key))
		if v == "" {
			continue
		}
		id, ok := parseID(v)
		if !ok {
			return core.Filter{}, core.NewValidationError(p.key, "must be a positive integer")
		}
		*p.dst = &id
	}

	if vals, ok := q["payment"]; ok {
		pm := core.PaymentMethod(strings.TrimSpace(vals[0]))
		if !pm.IsValid() {
			return core.Filter{}, core.NewValidationError("payment", fmt.Sprintf("unknown payment method %q", pm))
		}
		f.PaymentMethod = &pm
	}

	return f, nil
}

// parseBound classifies a date bound as a bare day or a full timestamp.
func parseBound(raw, field string) (day, timestamp string, err error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return "", "", nil
	}
	if _, err := time.Parse(dayLayout, v); err == nil {
		return v, "", nil
	}
	if _, err := time.Parse(core.TimestampLayout, v); err == nil {
		return "", v, nil
	}
	return "", "", core.NewValidationError(field, "must be YYYY-MM-DD or YYYY-MM-DD HH:MM:SS")
}

// ParseTop reads the top-clients limit; blank means the default.
func ParseTop(q url.Values) (int, error) {
	v := strings.TrimSpace(q.Get("top"))
	if v == "" {
		return core.DefaultTopClients, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > maxTop {
		return 0, core.NewValidationError("top", fmt.Sprintf("must be between 1 and %d", maxTop))
	}
	return n, nil
}

// ParseFillGaps reports whether the daily series should be densified.
func ParseFillGaps(q url.Values) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(q.Get("fill")))
	return err == nil && v
}

// lookupRequest is the body of POST /api/lookups/{kind}.
type lookupRequest struct {
	Name string `json:"name"`
}

// transactionRequest is the body of POST /api/transactions.
type transactionRequest struct {
	Timestamp     string  `json:"timestamp"`
	Requester     string  `json:"requester"`
	ClientID      int64   `json:"client_id"`
	ServiceID     int64   `json:"service_id"`
	Quantity      int64   `json:"quantity"`
	UnitValue     float64 `json:"unit_value"`
	SectorID      *int64  `json:"sector_id"`
	PaymentMethod string  `json:"payment_method"`
	Notes         string  `json:"notes"`
}

// toTransaction maps the body onto a record. Text fields are checked for
// control characters but otherwise left for the ledger to normalize.
func (req transactionRequest) toTransaction() (core.Transaction, error) {
	for _, f := range []struct{ name, value string }{
		{"timestamp", req.Timestamp},
		{"requester", req.Requester},
		{"notes", req.Notes},
	} {
		if err := checkText(f.name, f.value); err != nil {
			return core.Transaction{}, err
		}
	}
	return core.Transaction{
		Timestamp:     req.Timestamp,
		Requester:     req.Requester,
		ClientID:      req.ClientID,
		ServiceID:     req.ServiceID,
		Quantity:      req.Quantity,
		UnitValue:     req.UnitValue,
		SectorID:      req.SectorID,
		PaymentMethod: core.PaymentMethod(strings.TrimSpace(req.PaymentMethod)),
		Notes:         req.Notes,
	}, nil
}

// errBadBody marks a malformed request body.
var errBadBody = errors.New("malformed request body")

// decodeJSON reads a single JSON object into dst, rejecting unknown fields
// and bodies larger than maxBodyBytes.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errBadBody, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data", errBadBody)
	}
	return nil
}
