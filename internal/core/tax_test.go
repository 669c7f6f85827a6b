package core

import "testing"

func TestGrandTotalWithSingleTax(t *testing.T) {
	prices := []float64{12.50, 7.25, 30}
	b := testBill(prices)
	b = b.AddTax("sales tax", 8)

	var raw float64
	for _, p := range prices {
		raw += p
	}
	want := raw * 1.08
	if got := b.GrandTotal(); !approx(got, want) {
		t.Errorf("grand total = %v, want %v", got, want)
	}

	// Zero-percent entries are no-ops however many there are.
	b = b.AddTax("waived fee", 0).AddTax("another", 0)
	if got := b.GrandTotal(); !approx(got, want) {
		t.Errorf("grand total with zero entries = %v, want %v", got, want)
	}
}

func TestEffectiveTaxPercentSumsEntries(t *testing.T) {
	b := NewBill("")
	b = b.AddTax("tax", 8.875).AddTax("service", 10).AddTax("city fee", 1.5)
	if got := b.EffectiveTaxPercent(); !approx(got, 20.375) {
		t.Errorf("effective percent = %v, want 20.375", got)
	}
}

func TestEffectiveItemsKeepNames(t *testing.T) {
	b := NewBill("")
	b = b.AddItem(Item{Name: "coffee", Price: 4})
	b = b.AddTax("tax", 25)

	eff := b.EffectiveItems()
	if len(eff) != 1 {
		t.Fatalf("effective items = %d, want 1", len(eff))
	}
	if eff[0].Name != "coffee" {
		t.Errorf("name = %q, want unchanged", eff[0].Name)
	}
	if !approx(eff[0].Price, 5) {
		t.Errorf("effective price = %v, want 5", eff[0].Price)
	}
	// Raw items stay untouched.
	if !approx(b.Items[0].Price, 4) {
		t.Errorf("raw price mutated to %v", b.Items[0].Price)
	}
}

func TestNoTaxesMeansIdentity(t *testing.T) {
	b := testBill([]float64{9.99})
	if got := b.GrandTotal(); !approx(got, 9.99) {
		t.Errorf("grand total = %v, want 9.99", got)
	}
	if got := b.EffectiveTaxPercent(); got != 0 {
		t.Errorf("effective percent = %v, want 0", got)
	}
}
