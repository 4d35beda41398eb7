package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func strp(s string) *string { return &s }

func row(id int64, ts, client string, qty int64, unit float64, sector *string, pay PaymentMethod) Row {
	return Row{
		ID:            id,
		Timestamp:     ts,
		Client:        client,
		Quantity:      qty,
		UnitValue:     unit,
		TotalValue:    float64(qty) * unit,
		Sector:        sector,
		PaymentMethod: pay,
	}
}

func fixture() []Row {
	return []Row{
		row(4, "2025-01-03 09:00:00", "Beta", 1, 50, strp("Ops"), PaymentCash),
		row(3, "2025-01-03 08:00:00", "Acme", 2, 10.10, nil, PaymentNone),
		row(2, "2025-01-01 12:00:00", "Acme", 3, 100, strp("Ops"), PaymentPIX),
		row(1, "2025-01-01 11:00:00", "Gamma", 1, 0.2, strp("Sales"), PaymentCash),
	}
}

func TestComputeKPIs(t *testing.T) {
	k := ComputeKPIs(fixture())
	if k.Count != 4 || k.QuantitySum != 7 {
		t.Fatalf("unexpected count/quantity: %+v", k)
	}
	if !k.ValueSum.Equal(decimal.RequireFromString("370.4")) {
		t.Fatalf("value sum = %s", k.ValueSum)
	}
	if !k.AverageTicket.Equal(decimal.RequireFromString("92.6")) {
		t.Fatalf("average = %s", k.AverageTicket)
	}
}

func TestComputeKPIsEmpty(t *testing.T) {
	k := ComputeKPIs(nil)
	if k.Count != 0 || !k.ValueSum.IsZero() || !k.AverageTicket.IsZero() {
		t.Fatalf("expected zero KPIs, got %+v", k)
	}
}

func TestGroupBySectorPaymentReconciles(t *testing.T) {
	rows := fixture()
	groups := GroupBySectorPayment(rows)
	sum := decimal.Zero
	for _, g := range groups {
		sum = sum.Add(g.Value)
	}
	if !sum.Equal(ComputeKPIs(rows).ValueSum) {
		t.Fatalf("groups sum %s != value sum %s", sum, ComputeKPIs(rows).ValueSum)
	}

	want := []SectorPaymentAmount{
		{Sector: NoneLabel, Payment: NoneLabel},
		{Sector: "Ops", Payment: "Cash"},
		{Sector: "Ops", Payment: "PIX"},
		{Sector: "Sales", Payment: "Cash"},
	}
	if len(groups) != len(want) {
		t.Fatalf("got %d groups: %+v", len(groups), groups)
	}
	for i, w := range want {
		if groups[i].Sector != w.Sector || groups[i].Payment != w.Payment {
			t.Fatalf("group %d = %+v, want %s/%s", i, groups[i], w.Sector, w.Payment)
		}
	}
}

func TestGroupBySectorPaymentNoPayment(t *testing.T) {
	rows := []Row{
		row(1, "2025-01-01 10:00:00", "Acme", 1, 10, strp("A"), PaymentNone),
		row(2, "2025-01-01 11:00:00", "Acme", 2, 20, strp("B"), PaymentNone),
	}
	groups := GroupBySectorPayment(rows)
	if len(groups) != 2 {
		t.Fatalf("expected two buckets, got %+v", groups)
	}
	total := decimal.Zero
	for _, g := range groups {
		if g.Payment != NoneLabel {
			t.Fatalf("expected payment label %q, got %q", NoneLabel, g.Payment)
		}
		total = total.Add(g.Value)
	}
	if !total.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("total = %s", total)
	}
}

func TestGroupBySectorQuantity(t *testing.T) {
	groups := GroupBySectorQuantity(fixture())
	want := map[string]int64{NoneLabel: 2, "Ops": 4, "Sales": 1}
	if len(groups) != len(want) {
		t.Fatalf("unexpected groups %+v", groups)
	}
	for _, g := range groups {
		if want[g.Sector] != g.Quantity {
			t.Fatalf("sector %s quantity %d, want %d", g.Sector, g.Quantity, want[g.Sector])
		}
	}
}

func TestDailySeries(t *testing.T) {
	rows := append(fixture(), row(5, "garbage", "Acme", 1, 1, nil, PaymentNone))
	series := DailySeries(rows)
	if len(series) != 2 {
		t.Fatalf("expected 2 days, got %+v", series)
	}
	if series[0].Day != "2025-01-01" || series[0].Count != 2 || !series[0].Value.Equal(decimal.RequireFromString("300.2")) {
		t.Fatalf("unexpected first bucket %+v", series[0])
	}
	if series[1].Day != "2025-01-03" || series[1].Count != 2 || !series[1].Value.Equal(decimal.RequireFromString("70.2")) {
		t.Fatalf("unexpected second bucket %+v", series[1])
	}

	filled := FillDailyGaps(series)
	if len(filled) != 3 {
		t.Fatalf("expected 3 days after filling, got %+v", filled)
	}
	if filled[1].Day != "2025-01-02" || filled[1].Count != 0 || !filled[1].Value.IsZero() {
		t.Fatalf("unexpected gap bucket %+v", filled[1])
	}
}

func TestTopClients(t *testing.T) {
	top := TopClients(fixture(), 0)
	if len(top) != 3 {
		t.Fatalf("unexpected ranking %+v", top)
	}
	if top[0].Client != "Acme" || !top[0].Value.Equal(decimal.RequireFromString("320.2")) {
		t.Fatalf("unexpected leader %+v", top[0])
	}
	if top[1].Client != "Beta" || top[2].Client != "Gamma" {
		t.Fatalf("unexpected order %+v", top)
	}

	var many []Row
	for i := 0; i < 15; i++ {
		many = append(many, row(int64(i), "2025-01-01 00:00:00", string(rune('A'+i)), 1, 5, nil, PaymentNone))
	}
	top = TopClients(many, DefaultTopClients)
	if len(top) != DefaultTopClients {
		t.Fatalf("expected truncation to %d, got %d", DefaultTopClients, len(top))
	}
	if top[0].Client != "A" || top[9].Client != "J" {
		t.Fatalf("ties should keep first-seen order: %+v", top)
	}
}
