package core

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// NoneLabel buckets rows that lack a sector or payment method so that
// grouped totals still add up to the grand total.
const NoneLabel = "(none)"

// DefaultTopClients is the size of the top-clients ranking.
const DefaultTopClients = 10

const dayLayout = "2006-01-02"

type (
	// KPIs are the headline figures of a filtered set.
	KPIs struct {
		Count         int             `json:"count"`
		QuantitySum   int64           `json:"quantity_sum"`
		ValueSum      decimal.Decimal `json:"value_sum"`
		AverageTicket decimal.Decimal `json:"average_ticket"`
	}

	// SectorPaymentAmount is the value total of one sector and payment method pair.
	SectorPaymentAmount struct {
		Sector  string          `json:"sector"`
		Payment string          `json:"payment"`
		Value   decimal.Decimal `json:"value"`
	}

	// SectorQuantity is the quantity total of one sector.
	SectorQuantity struct {
		Sector   string `json:"sector"`
		Quantity int64  `json:"quantity"`
	}

	// DailyPoint is one calendar-day bucket of the time series.
	DailyPoint struct {
		Day   string          `json:"day"`
		Value decimal.Decimal `json:"value"`
		Count int             `json:"count"`
	}

	// ClientAmount is the value total of one client.
	ClientAmount struct {
		Client string          `json:"client"`
		Value  decimal.Decimal `json:"value"`
	}

	// Dashboard bundles every aggregate of one filtered set.
	Dashboard struct {
		KPIs            KPIs                  `json:"kpis"`
		BySectorPayment []SectorPaymentAmount `json:"by_sector_payment"`
		BySector        []SectorQuantity      `json:"by_sector"`
		Daily           []DailyPoint          `json:"daily"`
		TopClients      []ClientAmount        `json:"top_clients"`
	}
)

func rowValue(r Row) decimal.Decimal {
	return decimal.NewFromFloat(r.TotalValue)
}

func sectorLabel(r Row) string {
	if r.Sector == nil || *r.Sector == "" {
		return NoneLabel
	}
	return *r.Sector
}

func paymentLabel(r Row) string {
	if r.PaymentMethod == PaymentNone {
		return NoneLabel
	}
	return string(r.PaymentMethod)
}

// ComputeKPIs returns count, quantity sum, value sum and average ticket.
// The average is zero for an empty set.
func ComputeKPIs(rows []Row) KPIs {
	k := KPIs{Count: len(rows), ValueSum: decimal.Zero, AverageTicket: decimal.Zero}
	for _, r := range rows {
		k.QuantitySum += r.Quantity
		k.ValueSum = k.ValueSum.Add(rowValue(r))
	}
	if k.Count > 0 {
		k.AverageTicket = k.ValueSum.Div(decimal.NewFromInt(int64(k.Count)))
	}
	return k
}

// GroupBySectorPayment sums value per sector and payment method.
func GroupBySectorPayment(rows []Row) []SectorPaymentAmount {
	type key struct{ sector, payment string }
	sums := make(map[key]decimal.Decimal)
	for _, r := range rows {
		k := key{sectorLabel(r), paymentLabel(r)}
		sums[k] = sums[k].Add(rowValue(r))
	}

	out := make([]SectorPaymentAmount, 0, len(sums))
	for k, v := range sums {
		out = append(out, SectorPaymentAmount{Sector: k.sector, Payment: k.payment, Value: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Sector != out[j].Sector {
			return out[i].Sector < out[j].Sector
		}
		return out[i].Payment < out[j].Payment
	})
	return out
}

// GroupBySectorQuantity sums quantity per sector.
func GroupBySectorQuantity(rows []Row) []SectorQuantity {
	sums := make(map[string]int64)
	for _, r := range rows {
		sums[sectorLabel(r)] += r.Quantity
	}

	out := make([]SectorQuantity, 0, len(sums))
	for s, q := range sums {
		out = append(out, SectorQuantity{Sector: s, Quantity: q})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sector < out[j].Sector })
	return out
}

// dayOf returns the date component of a stored timestamp.
func dayOf(ts string) (string, bool) {
	if len(ts) < len(dayLayout) {
		return "", false
	}
	day := ts[:len(dayLayout)]
	if _, err := time.Parse(dayLayout, day); err != nil {
		return "", false
	}
	return day, true
}

// DailySeries buckets rows by calendar day, ascending. Only observed days
// are returned; rows without a parseable date are skipped.
func DailySeries(rows []Row) []DailyPoint {
	idx := make(map[string]int)
	var out []DailyPoint
	for _, r := range rows {
		day, ok := dayOf(r.Timestamp)
		if !ok {
			continue
		}
		i, seen := idx[day]
		if !seen {
			i = len(out)
			idx[day] = i
			out = append(out, DailyPoint{Day: day, Value: decimal.Zero})
		}
		out[i].Value = out[i].Value.Add(rowValue(r))
		out[i].Count++
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out
}

// FillDailyGaps inserts zero buckets for the days missing between the
// first and last point of an ascending series.
func FillDailyGaps(points []DailyPoint) []DailyPoint {
	if len(points) < 2 {
		return points
	}
	first, err := time.Parse(dayLayout, points[0].Day)
	if err != nil {
		return points
	}
	last, err := time.Parse(dayLayout, points[len(points)-1].Day)
	if err != nil {
		return points
	}

	byDay := make(map[string]DailyPoint, len(points))
	for _, p := range points {
		byDay[p.Day] = p
	}
	out := make([]DailyPoint, 0, int(last.Sub(first).Hours()/24)+1)
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		day := d.Format(dayLayout)
		if p, ok := byDay[day]; ok {
			out = append(out, p)
			continue
		}
		out = append(out, DailyPoint{Day: day, Value: decimal.Zero})
	}
	return out
}

// TopClients ranks clients by value, highest first, keeping at most n.
// Ties keep first-seen order. n <= 0 means DefaultTopClients.
func TopClients(rows []Row, n int) []ClientAmount {
	if n <= 0 {
		n = DefaultTopClients
	}
	idx := make(map[string]int)
	var out []ClientAmount
	for _, r := range rows {
		i, seen := idx[r.Client]
		if !seen {
			i = len(out)
			idx[r.Client] = i
			out = append(out, ClientAmount{Client: r.Client, Value: decimal.Zero})
		}
		out[i].Value = out[i].Value.Add(rowValue(r))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Value.GreaterThan(out[j].Value) })
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// BuildDashboard computes every aggregate over rows.
func BuildDashboard(rows []Row, topN int) Dashboard {
	return Dashboard{
		KPIs:            ComputeKPIs(rows),
		BySectorPayment: GroupBySectorPayment(rows),
		BySector:        GroupBySectorQuantity(rows),
		Daily:           DailySeries(rows),
		TopClients:      TopClients(rows, topN),
	}
}
