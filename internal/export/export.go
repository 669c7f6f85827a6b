// Package export renders bill summaries as plain text for sharing.
package export

import (
	"fmt"
	"strings"

	"quicksplit/internal/core"
)

// Summary renders everyone's share of a bill, one participant per line,
// with a status footer. Amounts are rounded to cents only here.
func Summary(b core.Bill) string {
	var sb strings.Builder

	sb.WriteString(b.Name)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", len(b.Name)))
	sb.WriteString("\n\n")

	totals := b.ParticipantTotals()
	if len(totals) == 0 {
		sb.WriteString("No participants yet\n")
	} else {
		nameWidth := 0
		for _, pt := range totals {
			if len(pt.Name) > nameWidth {
				nameWidth = len(pt.Name)
			}
		}
		for _, pt := range totals {
			fmt.Fprintf(&sb, "%-*s  %s\n", nameWidth, pt.Name,
				core.FormatAmount(core.RoundToCents(pt.Total)))
		}
	}

	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Assigned:    %s\n", core.FormatAmount(core.RoundToCents(b.AssignedTotal())))
	fmt.Fprintf(&sb, "Grand total: %s\n", core.FormatAmount(core.RoundToCents(b.GrandTotal())))
	fmt.Fprintf(&sb, "Status: %s\n", b.Status())

	return sb.String()
}
