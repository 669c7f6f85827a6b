package receipt

import (
	"testing"

	"quicksplit/internal/core"
)

func TestParseLine(t *testing.T) {
	cases := []struct {
		name string
		line string
		want core.Item
		ok   bool
	}{
		{"plain", "Pad Thai 12.99", core.Item{Name: "Pad Thai", Price: 12.99}, true},
		{"dollar sign", "House Salad $8.50", core.Item{Name: "House Salad", Price: 8.5}, true},
		{"integer price", "Soda 3", core.Item{Name: "Soda", Price: 3}, true},
		{"trailing spaces", "  Spring Rolls 6.25  ", core.Item{Name: "Spring Rolls", Price: 6.25}, true},
		{"multiword name", "Iced Green Tea Latte 5.75", core.Item{Name: "Iced Green Tea Latte", Price: 5.75}, true},
		{"empty", "", core.Item{}, false},
		{"no price", "Thank you for visiting", core.Item{}, false},
		{"price only", "12.99", core.Item{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseLine(tc.line)
			if ok != tc.ok {
				t.Fatalf("ParseLine(%q) ok = %v, want %v", tc.line, ok, tc.ok)
			}
			if ok && got != tc.want {
				t.Errorf("ParseLine(%q) = %+v, want %+v", tc.line, got, tc.want)
			}
		})
	}
}

func TestParseTextBestEffort(t *testing.T) {
	text := "ACME DINER\nPad Thai 12.99\n\nService charge included\nSoda $3.00\nTOTAL 15.99"
	items := ParseText(text)

	// "TOTAL 15.99" matches the heuristic too; that is the accepted
	// trade-off of a single-pattern parser and is cleaned up by the user.
	if len(items) != 3 {
		t.Fatalf("items = %d, want 3", len(items))
	}
	if items[0].Name != "Pad Thai" || items[1].Name != "Soda" || items[2].Name != "TOTAL" {
		t.Errorf("unexpected items: %+v", items)
	}
}

func TestParseTextEmptyInput(t *testing.T) {
	if items := ParseText(""); len(items) != 0 {
		t.Errorf("empty text produced %d items", len(items))
	}
	if items := ParseText("garbage\nmore garbage"); len(items) != 0 {
		t.Errorf("unparseable text produced %d items", len(items))
	}
}
