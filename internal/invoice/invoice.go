package invoice

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusDraft  Status = "draft"
	StatusOpen   Status = "open"
	StatusFailed Status = "failed"
	StatusPaid   Status = "paid"
	StatusVoid   Status = "void"
)

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusDraft, StatusOpen, StatusFailed, StatusPaid, StatusVoid:
		return Status(s), nil
	default:
		return "", fmt.Errorf("unknown status: %s", s)
	}
}

var allowedTransitions = map[Status]map[Status]bool{
	StatusDraft:  {StatusOpen: true, StatusPaid: true, StatusVoid: true},
	StatusOpen:   {StatusPaid: true, StatusFailed: true, StatusVoid: true},
	StatusFailed: {StatusOpen: true, StatusPaid: true, StatusVoid: true},
	StatusPaid:   {}, // paid is terminal; corrections go through refunds
	StatusVoid:   {},
}

func CanTransition(from, to Status) bool {
	m, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	return m[to]
}

// Invoice is one obligation tracked by the console. Invoices created from a
// schedule carry the schedule id and their occurrence sequence.
type Invoice struct {
	ID          string     `json:"id"`
	CustomerID  string     `json:"customerId"`
	Status      Status     `json:"status"`
	AmountMinor int64      `json:"amountMinor"`
	Currency    string     `json:"currency"`
	DueDate     time.Time  `json:"dueDate"`
	ScheduleID  string     `json:"scheduleId,omitempty"`
	Sequence    int        `json:"sequence"`
	AutoCollect bool       `json:"autoCollect"`
	ProcessorID string     `json:"processorId,omitempty"`
	PaidAt      *time.Time `json:"paidAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}
