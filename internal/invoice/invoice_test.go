package invoice

import (
	"testing"
	"time"

	"billingconsole/internal/allocation"
	"billingconsole/internal/money"
)

func TestCanTransition(t *testing.T) {
	allowed := [][2]Status{
		{StatusDraft, StatusOpen},
		{StatusOpen, StatusPaid},
		{StatusOpen, StatusFailed},
		{StatusFailed, StatusOpen},
		{StatusFailed, StatusPaid},
		{StatusDraft, StatusVoid},
	}
	for _, tr := range allowed {
		if !CanTransition(tr[0], tr[1]) {
			t.Fatalf("expected %s -> %s to be allowed", tr[0], tr[1])
		}
	}

	denied := [][2]Status{
		{StatusPaid, StatusOpen},
		{StatusPaid, StatusVoid},
		{StatusVoid, StatusOpen},
		{StatusDraft, StatusFailed},
	}
	for _, tr := range denied {
		if CanTransition(tr[0], tr[1]) {
			t.Fatalf("expected %s -> %s to be denied", tr[0], tr[1])
		}
	}
}

func TestParseStatus(t *testing.T) {
	if _, err := ParseStatus("failed"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ParseStatus("overdue"); err == nil {
		t.Fatalf("expected error for unknown status")
	}
}

func TestPaymentTargets(t *testing.T) {
	due := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	invoices := []Invoice{
		{ID: "inv-failed", Status: StatusFailed, AmountMinor: 3000, Currency: "USD", DueDate: due},
		{ID: "inv-draft", Status: StatusDraft, AmountMinor: 1000, Currency: "USD", DueDate: due.AddDate(0, 1, 0)},
		{ID: "inv-paid", Status: StatusPaid, AmountMinor: 500, Currency: "USD"},
		{ID: "inv-open", Status: StatusOpen, AmountMinor: 700, Currency: "USD"},
	}

	targets := PaymentTargets(invoices, money.New(2000, "USD"))
	if len(targets) != 3 {
		t.Fatalf("expected 3 targets, got %d", len(targets))
	}

	byID := map[string]allocation.Target{}
	for _, tg := range targets {
		byID[tg.ID] = tg
	}
	if byID["inv-failed"].Kind != allocation.KindFailed {
		t.Fatalf("failed invoice should map to a failed target")
	}
	if byID["inv-draft"].Kind != allocation.KindDraft {
		t.Fatalf("draft invoice should map to a draft target")
	}
	if byID[OutstandingTargetID].Kind != allocation.KindOutstanding {
		t.Fatalf("outstanding balance should map to the synthetic target")
	}
	if byID[OutstandingTargetID].Remaining.Minor != 2000 {
		t.Fatalf("outstanding remaining mismatch")
	}
}

func TestPaymentTargets_NoOutstandingWhenZero(t *testing.T) {
	targets := PaymentTargets(nil, money.New(0, "USD"))
	if len(targets) != 0 {
		t.Fatalf("expected no targets, got %d", len(targets))
	}
}
