package core

import "math"

// Epsilon is the tolerance used when comparing assignment percentages.
const Epsilon = 0.01

type (
	// ItemSplitInfo describes how one item's 100% is divided among the
	// participants claiming it.
	ItemSplitInfo struct {
		ItemIndex                 int     `json:"itemIndex"`
		FixedPercentageTotal      float64 `json:"fixedPercentageTotal"`
		RemainderParticipantCount int     `json:"remainderParticipantCount"`
		RemainderPercentage       float64 `json:"remainderPercentage"`
		TotalAssignedPercentage   float64 `json:"totalAssignedPercentage"`
		IsFullyAssigned           bool    `json:"isFullyAssigned"`
		IsOverAssigned            bool    `json:"isOverAssigned"`
		IsUnassigned              bool    `json:"isUnassigned"`
	}

	// ParticipantTotal is one participant's owed amount, tax included.
	ParticipantTotal struct {
		ID    string  `json:"id"`
		Name  string  `json:"name"`
		Total float64 `json:"total"`
	}

	// SplitResult aggregates the whole bill: per-participant totals, the
	// amount actually distributed, and completeness. AssignedTotal may
	// exceed or fall short of GrandTotal under over/under-allocation; the
	// engine never normalizes contributions to 100%.
	SplitResult struct {
		ParticipantTotals []ParticipantTotal `json:"participantTotals"`
		AssignedTotal     float64            `json:"assignedTotal"`
		GrandTotal        float64            `json:"grandTotal"`
		IsFullyAssigned   bool               `json:"isFullyAssigned"`
		Status            BillStatus         `json:"status"`
	}
)

// ItemSplitInfo computes the allocation model for one item.
//
// When fixed claims exceed 100%, the remainder floors at zero: equal-share
// claimants get nothing while TotalAssignedPercentage keeps reporting the
// full fixed sum. Over-allocation is detected from the fixed total alone,
// never from TotalAssignedPercentage.
func (b Bill) ItemSplitInfo(itemIndex int) ItemSplitInfo {
	var fixedTotal float64
	remainderCount := 0

	for _, p := range b.Participants {
		sel, ok := findSelection(p, itemIndex)
		if !ok {
			continue
		}
		if sel.Percentage != nil {
			fixedTotal += *sel.Percentage
		} else {
			remainderCount++
		}
	}

	remainderPct := math.Max(0, 100-fixedTotal)
	assignedPct := fixedTotal
	if remainderCount > 0 {
		assignedPct += remainderPct
	}

	overAssigned := fixedTotal > 100+Epsilon

	return ItemSplitInfo{
		ItemIndex:                 itemIndex,
		FixedPercentageTotal:      fixedTotal,
		RemainderParticipantCount: remainderCount,
		RemainderPercentage:       remainderPct,
		TotalAssignedPercentage:   assignedPct,
		IsFullyAssigned:           math.Abs(assignedPct-100) < Epsilon && !overAssigned,
		IsOverAssigned:            overAssigned,
		IsUnassigned:              assignedPct < Epsilon,
	}
}

// AllItemSplitInfo returns the split info for every item, in item order.
func (b Bill) AllItemSplitInfo() []ItemSplitInfo {
	out := make([]ItemSplitInfo, len(b.Items))
	for i := range b.Items {
		out[i] = b.ItemSplitInfo(i)
	}
	return out
}

// ParticipantItemContribution is the effective-price share one participant
// owes for one item. Unknown participants, unselected items and
// out-of-range indices contribute zero; nothing errors.
func (b Bill) ParticipantItemContribution(participantID string, itemIndex int) float64 {
	p, ok := b.Participant(participantID)
	if !ok {
		return 0
	}
	sel, ok := findSelection(p, itemIndex)
	if !ok {
		return 0
	}
	if itemIndex < 0 || itemIndex >= len(b.Items) {
		return 0
	}

	price := b.Items[itemIndex].Price * (1 + b.EffectiveTaxPercent()/100)

	if sel.Percentage != nil {
		return price * *sel.Percentage / 100
	}

	info := b.ItemSplitInfo(itemIndex)
	if info.RemainderParticipantCount == 0 {
		// Unreachable with consistent data: holding a remainder claim
		// implies being counted. Guards the division below.
		return 0
	}
	perClaimant := info.RemainderPercentage / float64(info.RemainderParticipantCount)
	return price * perClaimant / 100
}

// ParticipantTotal sums a participant's contributions over all of their
// selections.
func (b Bill) ParticipantTotal(participantID string) float64 {
	p, ok := b.Participant(participantID)
	if !ok {
		return 0
	}
	var total float64
	for _, sel := range p.SelectedItems {
		total += b.ParticipantItemContribution(participantID, sel.ItemIndex)
	}
	return total
}

// ParticipantTotals lists every participant's owed amount in participant
// order.
func (b Bill) ParticipantTotals() []ParticipantTotal {
	out := make([]ParticipantTotal, len(b.Participants))
	for i, p := range b.Participants {
		out[i] = ParticipantTotal{ID: p.ID, Name: p.Name, Total: b.ParticipantTotal(p.ID)}
	}
	return out
}

// AssignedTotal is the sum of all participant totals.
func (b Bill) AssignedTotal() float64 {
	var total float64
	for _, pt := range b.ParticipantTotals() {
		total += pt.Total
	}
	return total
}

// IsFullyAssigned reports whether every item's claims sum to exactly 100%
// within epsilon. A bill with no items or no participants is never fully
// assigned, even though an empty item list would pass the per-item check
// vacuously; the presentation layer gates "ready to finalize" on this.
func (b Bill) IsFullyAssigned() bool {
	if len(b.Items) == 0 || len(b.Participants) == 0 {
		return false
	}
	for i := range b.Items {
		if !b.ItemSplitInfo(i).IsFullyAssigned {
			return false
		}
	}
	return true
}

// Status derives the bill lifecycle state from current data. There are no
// stored transitions: draft while items or participants are missing,
// completed once fully assigned, splitting otherwise.
func (b Bill) Status() BillStatus {
	if len(b.Items) == 0 || len(b.Participants) == 0 {
		return StatusDraft
	}
	if b.IsFullyAssigned() {
		return StatusCompleted
	}
	return StatusSplitting
}

// Split computes the bill-level aggregate in one call.
func (b Bill) Split() SplitResult {
	return SplitResult{
		ParticipantTotals: b.ParticipantTotals(),
		AssignedTotal:     b.AssignedTotal(),
		GrandTotal:        b.GrandTotal(),
		IsFullyAssigned:   b.IsFullyAssigned(),
		Status:            b.Status(),
	}
}

func findSelection(p Participant, itemIndex int) (ItemSelection, bool) {
	for _, sel := range p.SelectedItems {
		if sel.ItemIndex == itemIndex {
			return sel, true
		}
	}
	return ItemSelection{}, false
}
