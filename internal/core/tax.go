package core

// EffectiveTaxPercent is the cumulative surcharge applied to every item:
// the sum of all tax entry percentages. Entries at 0% contribute nothing.
func (b Bill) EffectiveTaxPercent() float64 {
	var pct float64
	for _, t := range b.Taxes {
		pct += t.Percent
	}
	return pct
}

// EffectiveItems returns the items with the cumulative tax applied to each
// price. Names are unchanged; there is no per-item tax override.
func (b Bill) EffectiveItems() []Item {
	multiplier := 1 + b.EffectiveTaxPercent()/100
	out := make([]Item, len(b.Items))
	for i, item := range b.Items {
		out[i] = Item{Name: item.Name, Price: item.Price * multiplier}
	}
	return out
}

// GrandTotal is the sum of effective (tax-inclusive) item prices.
func (b Bill) GrandTotal() float64 {
	var total float64
	multiplier := 1 + b.EffectiveTaxPercent()/100
	for _, item := range b.Items {
		total += item.Price * multiplier
	}
	return total
}
