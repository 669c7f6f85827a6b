package core

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	StatusDraft     BillStatus = "draft"
	StatusSplitting BillStatus = "splitting"
	StatusCompleted BillStatus = "completed"
)

type (
	// BillStatus is derived from the bill contents, never stored.
	BillStatus string

	// Item is a single priced line on a bill. Items carry no identifier:
	// they are addressed by position, so selections held by participants
	// must be renumbered whenever an item is removed.
	Item struct {
		Name  string  `json:"name"`
		Price float64 `json:"price"`
	}

	// TaxEntry is one percentage surcharge (tax, service, fee). The
	// effective rate applied to every item is the sum over all entries.
	TaxEntry struct {
		ID      string  `json:"id"`
		Label   string  `json:"label"`
		Percent float64 `json:"percent"`
	}

	// ItemSelection is one participant's claim on one item. A nil
	// Percentage claims an equal share of whatever percentage of the item
	// remains after fixed-percentage claims.
	ItemSelection struct {
		ItemIndex  int      `json:"itemIndex"`
		Percentage *float64 `json:"percentage,omitempty"`
	}

	Participant struct {
		ID            string          `json:"id"`
		Name          string          `json:"name"`
		SelectedItems []ItemSelection `json:"selectedItems"`
	}

	// Bill is an immutable snapshot of a bill being split. Mutating
	// methods return a new snapshot and never modify the receiver; the
	// owning application replaces its current snapshot wholesale.
	//
	// Only the raw fields below are ever persisted. Effective prices,
	// totals and status are pure computations over them.
	Bill struct {
		ID           string        `json:"id"`
		Name         string        `json:"name"`
		CreatedAt    int64         `json:"createdAt"` // unix milliseconds
		Items        []Item        `json:"items"`
		Taxes        []TaxEntry    `json:"taxes"`
		Participants []Participant `json:"participants"`
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyName          = errors.New("empty name")
	ErrBillNotFound       = errors.New("bill not found")
	ErrReceiptNotFound    = errors.New("receipt not found")
	ErrUnknownParticipant = errors.New("unknown participant")
)

// NewBill creates an empty bill snapshot. An empty name gets a default
// derived from the creation date, e.g. "Bill - Jan 2, 2006".
func NewBill(name string) Bill {
	now := time.Now()
	if strings.TrimSpace(name) == "" {
		name = GenerateBillName(now)
	}
	return Bill{
		ID:           uuid.NewString(),
		Name:         name,
		CreatedAt:    now.UnixMilli(),
		Items:        []Item{},
		Taxes:        []TaxEntry{},
		Participants: []Participant{},
	}
}

// GenerateBillName builds the default display name for a bill created at t.
func GenerateBillName(t time.Time) string {
	return "Bill - " + t.Format("Jan 2, 2006")
}

func (i Item) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return ErrEmptyName
	}
	if i.Price < 0 || i.Price != i.Price { // reject negatives and NaN
		return ErrInvalidAmount
	}
	return nil
}

func (t TaxEntry) Validate() error {
	if strings.TrimSpace(t.Label) == "" {
		return ErrEmptyName
	}
	if t.Percent < 0 || t.Percent != t.Percent {
		return ErrInvalidAmount
	}
	return nil
}

// clone deep-copies the snapshot so mutating methods can edit freely.
func (b Bill) clone() Bill {
	out := b
	out.Items = append([]Item(nil), b.Items...)
	out.Taxes = append([]TaxEntry(nil), b.Taxes...)
	out.Participants = make([]Participant, len(b.Participants))
	for i, p := range b.Participants {
		cp := p
		cp.SelectedItems = append([]ItemSelection(nil), p.SelectedItems...)
		out.Participants[i] = cp
	}
	return out
}

// AddItem returns a new snapshot with item appended.
func (b Bill) AddItem(item Item) Bill {
	out := b.clone()
	out.Items = append(out.Items, item)
	return out
}

// AddItems appends several items at once (receipt import path).
func (b Bill) AddItems(items []Item) Bill {
	out := b.clone()
	out.Items = append(out.Items, items...)
	return out
}

// UpdateItem replaces the item at index. Out-of-range indices leave the
// snapshot unchanged.
func (b Bill) UpdateItem(index int, item Item) Bill {
	if index < 0 || index >= len(b.Items) {
		return b
	}
	out := b.clone()
	out.Items[index] = item
	return out
}

// RemoveItem deletes the item at index. Selections referencing it are
// dropped and selections on higher indices are renumbered down by one, so
// every remaining claim still points at the item it was made for.
func (b Bill) RemoveItem(index int) Bill {
	if index < 0 || index >= len(b.Items) {
		return b
	}
	out := b.clone()
	out.Items = append(out.Items[:index], out.Items[index+1:]...)
	for pi := range out.Participants {
		kept := out.Participants[pi].SelectedItems[:0]
		for _, sel := range out.Participants[pi].SelectedItems {
			switch {
			case sel.ItemIndex == index:
				continue
			case sel.ItemIndex > index:
				sel.ItemIndex--
			}
			kept = append(kept, sel)
		}
		out.Participants[pi].SelectedItems = kept
	}
	return out
}

// SetTaxes replaces the whole tax entry list.
func (b Bill) SetTaxes(taxes []TaxEntry) Bill {
	out := b.clone()
	out.Taxes = append([]TaxEntry(nil), taxes...)
	return out
}

// AddTax appends a tax entry with a fresh ID.
func (b Bill) AddTax(label string, percent float64) Bill {
	out := b.clone()
	out.Taxes = append(out.Taxes, TaxEntry{
		ID:      uuid.NewString(),
		Label:   label,
		Percent: percent,
	})
	return out
}

// UpdateTax replaces label and percent of the entry with the given ID.
func (b Bill) UpdateTax(id, label string, percent float64) Bill {
	out := b.clone()
	for i := range out.Taxes {
		if out.Taxes[i].ID == id {
			out.Taxes[i].Label = label
			out.Taxes[i].Percent = percent
		}
	}
	return out
}

// RemoveTax deletes the entry with the given ID.
func (b Bill) RemoveTax(id string) Bill {
	out := b.clone()
	kept := out.Taxes[:0]
	for _, t := range out.Taxes {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	out.Taxes = kept
	return out
}

// AddParticipant appends a participant with a fresh ID and no selections.
func (b Bill) AddParticipant(name string) Bill {
	out := b.clone()
	out.Participants = append(out.Participants, Participant{
		ID:            uuid.NewString(),
		Name:          name,
		SelectedItems: []ItemSelection{},
	})
	return out
}

// RemoveParticipant deletes the participant with the given ID together
// with all of their selections.
func (b Bill) RemoveParticipant(id string) Bill {
	out := b.clone()
	kept := out.Participants[:0]
	for _, p := range out.Participants {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	out.Participants = kept
	return out
}

// SetItemSelection claims or releases an item for a participant. When
// selected, percentage nil means an equal-share claim on the remainder;
// a non-nil percentage is clamped to [0,100] here at the write boundary.
// An existing selection on the same item is replaced, keeping at most one
// selection per (participant, item) pair.
func (b Bill) SetItemSelection(participantID string, itemIndex int, selected bool, percentage *float64) Bill {
	out := b.clone()
	for pi := range out.Participants {
		p := &out.Participants[pi]
		if p.ID != participantID {
			continue
		}
		if !selected {
			kept := p.SelectedItems[:0]
			for _, sel := range p.SelectedItems {
				if sel.ItemIndex != itemIndex {
					kept = append(kept, sel)
				}
			}
			p.SelectedItems = kept
			return out
		}
		sel := ItemSelection{ItemIndex: itemIndex, Percentage: clampPercentage(percentage)}
		replaced := false
		for si := range p.SelectedItems {
			if p.SelectedItems[si].ItemIndex == itemIndex {
				p.SelectedItems[si] = sel
				replaced = true
				break
			}
		}
		if !replaced {
			p.SelectedItems = append(p.SelectedItems, sel)
		}
		return out
	}
	return out
}

// SetItemPercentage changes the percentage of an existing selection. A nil
// percentage turns the claim back into an equal-share one. Participants
// without a selection on the item are left untouched.
func (b Bill) SetItemPercentage(participantID string, itemIndex int, percentage *float64) Bill {
	out := b.clone()
	for pi := range out.Participants {
		p := &out.Participants[pi]
		if p.ID != participantID {
			continue
		}
		for si := range p.SelectedItems {
			if p.SelectedItems[si].ItemIndex == itemIndex {
				p.SelectedItems[si].Percentage = clampPercentage(percentage)
			}
		}
	}
	return out
}

// Participant returns the participant with the given ID, if present.
func (b Bill) Participant(id string) (Participant, bool) {
	for _, p := range b.Participants {
		if p.ID == id {
			return p, true
		}
	}
	return Participant{}, false
}

func clampPercentage(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	return &v
}
