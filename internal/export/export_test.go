package export

import (
	"strings"
	"testing"

	"quicksplit/internal/core"
)

func TestSummaryListsEveryonesShare(t *testing.T) {
	bill := core.NewBill("Team Dinner").
		AddItem(core.Item{Name: "Pizza", Price: 40}).
		AddItem(core.Item{Name: "Wine", Price: 20}).
		AddParticipant("Alice").
		AddParticipant("Bob")
	alice := bill.Participants[0].ID
	bob := bill.Participants[1].ID
	bill = bill.
		SetItemSelection(alice, 0, true, nil).
		SetItemSelection(bob, 0, true, nil).
		SetItemSelection(alice, 1, true, nil)

	out := Summary(bill)

	if !strings.HasPrefix(out, "Team Dinner\n===========\n") {
		t.Errorf("missing header:\n%s", out)
	}
	if !strings.Contains(out, "Alice  $40.00") {
		t.Errorf("missing Alice line:\n%s", out)
	}
	if !strings.Contains(out, "Bob    $20.00") {
		t.Errorf("missing Bob line:\n%s", out)
	}
	if !strings.Contains(out, "Assigned:    $60.00") {
		t.Errorf("missing assigned line:\n%s", out)
	}
	if !strings.Contains(out, "Grand total: $60.00") {
		t.Errorf("missing grand total line:\n%s", out)
	}
	if !strings.Contains(out, "Status: completed") {
		t.Errorf("missing status footer:\n%s", out)
	}
}

func TestSummaryRoundsToCents(t *testing.T) {
	bill := core.NewBill("Lunch").
		AddItem(core.Item{Name: "Salad", Price: 10}).
		AddParticipant("Alice").
		AddParticipant("Bob").
		AddParticipant("Carol")
	for _, p := range bill.Participants {
		bill = bill.SetItemSelection(p.ID, 0, true, nil)
	}

	out := Summary(bill)

	// 10/3 rounds per participant only in the rendered text.
	if !strings.Contains(out, "$3.33") {
		t.Errorf("share should render as $3.33:\n%s", out)
	}
}

func TestSummaryWithoutParticipants(t *testing.T) {
	bill := core.NewBill("Empty").AddItem(core.Item{Name: "Pizza", Price: 40})

	out := Summary(bill)

	if !strings.Contains(out, "No participants yet") {
		t.Errorf("missing placeholder:\n%s", out)
	}
	if !strings.Contains(out, "Status: draft") {
		t.Errorf("missing status footer:\n%s", out)
	}
}
