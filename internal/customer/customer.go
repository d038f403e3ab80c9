package customer

import "time"

// Customer is the billing account an operator works against. Outstanding is
// the aggregate unbilled balance (at most one synthetic payment target);
// Credit is the account credit accumulated from payment leftovers.
type Customer struct {
	ID               string
	Name             string
	Email            string
	Currency         string
	OutstandingMinor int64
	CreditMinor      int64
	CreatedAt        time.Time
}
