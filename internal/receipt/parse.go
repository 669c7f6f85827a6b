// Package receipt turns raw OCR text into bill items and defines the port
// to the external text-extraction service.
package receipt

import (
	"regexp"
	"strings"

	"quicksplit/internal/core"
)

// linePattern matches "name price" lines such as "Pad Thai 12.99" or
// "House Salad $8.50". One deliberately simple heuristic: the last number
// on the line is the price, everything before it is the name.
var linePattern = regexp.MustCompile(`^(.+?)\s+\$?(\d+\.?\d*)\s*$`)

// ParseLine extracts a single item from one text line. It reports false
// for lines that do not look like a priced item.
func ParseLine(line string) (core.Item, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return core.Item{}, false
	}

	m := linePattern.FindStringSubmatch(trimmed)
	if m == nil {
		return core.Item{}, false
	}

	name := strings.TrimSpace(m[1])
	price, err := core.ParsePrice(m[2])
	if name == "" || err != nil {
		return core.Item{}, false
	}
	return core.Item{Name: name, Price: price}, true
}

// ParseText scans every line of OCR output for items. Best-effort: lines
// that do not match are skipped and the result may be empty.
func ParseText(text string) []core.Item {
	var items []core.Item
	for _, line := range strings.Split(text, "\n") {
		if item, ok := ParseLine(line); ok {
			items = append(items, item)
		}
	}
	return items
}
