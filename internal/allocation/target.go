package allocation

import (
	"sort"
	"time"

	"billingconsole/internal/money"
)

// Kind classifies a payable obligation. The numeric order is the payment
// priority: failed attempts are settled first, then the aggregate outstanding
// balance, then optional draft prepayments.
type Kind int

const (
	KindFailed Kind = iota
	KindOutstanding
	KindDraft
)

func (k Kind) String() string {
	switch k {
	case KindFailed:
		return "failed"
	case KindOutstanding:
		return "outstanding"
	case KindDraft:
		return "draft"
	default:
		return "unknown"
	}
}

// Target is one obligation that can receive payment. Failed and Draft targets
// come from individual invoices; Outstanding is at most one synthetic target
// for the customer's aggregate unbilled balance.
type Target struct {
	ID        string
	Kind      Kind
	Remaining money.Amount
	SortDate  time.Time // due date for invoices, zero for the outstanding balance
	Label     string
}

// Class returns the priority class: 0 Failed, 1 Outstanding, 2 Draft.
func Class(t Target) int {
	return int(t.Kind)
}

// Compare orders first by priority class ascending, then by sort date ascending
// (soonest first). Returns a negative value when a sorts before b, zero on ties;
// ties keep stable input order via SortTargets.
func Compare(a, b Target) int {
	if ca, cb := Class(a), Class(b); ca != cb {
		return ca - cb
	}
	switch {
	case a.SortDate.Before(b.SortDate):
		return -1
	case b.SortDate.Before(a.SortDate):
		return 1
	default:
		return 0
	}
}

// SortTargets returns a copy of targets in payment priority order.
func SortTargets(targets []Target) []Target {
	out := make([]Target, len(targets))
	copy(out, targets)
	sort.SliceStable(out, func(i, j int) bool {
		return Compare(out[i], out[j]) < 0
	})
	return out
}
