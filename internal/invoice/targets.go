package invoice

import (
	"fmt"

	"billingconsole/internal/allocation"
	"billingconsole/internal/money"
)

// OutstandingTargetID identifies the synthetic target for the customer's
// aggregate unbilled balance. At most one such target exists per candidate set.
const OutstandingTargetID = "outstanding-balance"

// PaymentTargets derives the allocation candidate set from the customer's
// current invoices plus the unbilled outstanding balance. Failed invoices
// become retryable failed targets, drafts become optional prepayment targets;
// everything else is not payable. Candidates are always passed to the engine
// explicitly so the engine stays free of ambient state.
func PaymentTargets(invoices []Invoice, outstanding money.Amount) []allocation.Target {
	var out []allocation.Target
	for _, inv := range invoices {
		var kind allocation.Kind
		switch inv.Status {
		case StatusFailed:
			kind = allocation.KindFailed
		case StatusDraft:
			kind = allocation.KindDraft
		default:
			continue
		}
		out = append(out, allocation.Target{
			ID:        inv.ID,
			Kind:      kind,
			Remaining: money.New(inv.AmountMinor, inv.Currency),
			SortDate:  inv.DueDate,
			Label:     fmt.Sprintf("Invoice %s", shortID(inv.ID)),
		})
	}
	if outstanding.IsPositive() {
		out = append(out, allocation.Target{
			ID:        OutstandingTargetID,
			Kind:      allocation.KindOutstanding,
			Remaining: outstanding,
			Label:     "Outstanding balance",
		})
	}
	return out
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
