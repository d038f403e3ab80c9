package processor

import (
	"context"
	"net/http"
	"net/url"
)

// AppliedLine is one invoice's share of a payment, in the order the console
// allocated it.
type AppliedLine struct {
	InvoiceID string `json:"invoice_id"`
	Amount    string `json:"amount"`
}

type PaymentRequest struct {
	CustomerID string        `json:"customer_id"`
	Amount     string        `json:"amount"`
	Currency   string        `json:"currency"`
	Lines      []AppliedLine `json:"lines,omitempty"`

	// Credit is the leftover portion to record on the customer's balance
	// rather than against any invoice.
	Credit string `json:"credit,omitempty"`

	Description string `json:"description,omitempty"`

	// IdempotencyKey dedupes retried submissions.
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

type Payment struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// CreatePayment submits a composed payment: the total to charge, the ordered
// invoice lines to satisfy, and any leftover credit. Whether the charge
// succeeds is the processor's concern; the outcome arrives via webhook.
func (c Client) CreatePayment(ctx context.Context, req PaymentRequest) (*Payment, error) {
	var resp struct {
		Payment Payment `json:"payment"`
	}
	if _, err := c.doJSON(ctx, http.MethodPost, "/v1/payments", nil, map[string]any{"payment": req}, &resp); err != nil {
		return nil, err
	}
	return &resp.Payment, nil
}

type RefundRequest struct {
	PaymentID string `json:"payment_id"`
	Amount    string `json:"amount"`
	Reason    string `json:"reason,omitempty"`
}

type Refund struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (c Client) CreateRefund(ctx context.Context, req RefundRequest) (*Refund, error) {
	var resp struct {
		Refund Refund `json:"refund"`
	}
	if _, err := c.doJSON(ctx, http.MethodPost, "/v1/refunds", nil, map[string]any{"refund": req}, &resp); err != nil {
		return nil, err
	}
	return &resp.Refund, nil
}

func (c Client) GetPayment(ctx context.Context, id string) (*Payment, error) {
	var resp struct {
		Payment Payment `json:"payment"`
	}
	if _, err := c.doJSON(ctx, http.MethodGet, "/v1/payments/"+url.PathEscape(id), nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Payment, nil
}
