package payment

import "time"

type Status string

const (
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Payment is one submitted allocation: the total charged, the ordered target
// lines it was applied to, and the leftover recorded as customer credit. The
// processor decides whether the charge succeeds; the outcome lands via
// webhook.
type Payment struct {
	ID          string    `json:"id"`
	CustomerID  string    `json:"customerId"`
	ProcessorID string    `json:"processorId,omitempty"`
	Status      Status    `json:"status"`
	AmountMinor int64     `json:"amountMinor"`
	Currency    string    `json:"currency"`
	CreditMinor int64     `json:"creditMinor"`
	CreatedAt   time.Time `json:"createdAt"`
	Lines       []Line    `json:"lines"`
}

// Line mirrors one allocation line at submission time. TargetID is an invoice
// id or the synthetic outstanding-balance id.
type Line struct {
	Position            int    `json:"position"`
	TargetID            string `json:"targetId"`
	AppliedMinor        int64  `json:"appliedMinor"`
	RemainingAfterMinor int64  `json:"remainingAfterMinor"`
}
