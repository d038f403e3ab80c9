package processor

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

type InvoiceRequest struct {
	CustomerID  string            `json:"customer_id"`
	Amount      string            `json:"amount"`
	Currency    string            `json:"currency"`
	DueDate     string            `json:"due_date"` // YYYY-MM-DD
	Draft       bool              `json:"draft"`
	AutoCollect bool              `json:"auto_collect"`
	Description string            `json:"description,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type Invoice struct {
	ID         string `json:"id"`
	CustomerID string `json:"customer_id"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
	Status     string `json:"status"`
	DueDate    string `json:"due_date"`
	HostedURL  string `json:"hosted_url,omitempty"`
}

// CreateInvoice creates one invoice (or draft) on the processor side and
// returns the processor's record, including the hosted payment page URL.
func (c Client) CreateInvoice(ctx context.Context, req InvoiceRequest) (*Invoice, error) {
	var resp struct {
		Invoice Invoice `json:"invoice"`
	}
	if _, err := c.doJSON(ctx, http.MethodPost, "/v1/invoices", nil, map[string]any{"invoice": req}, &resp); err != nil {
		return nil, err
	}
	return &resp.Invoice, nil
}

func (c Client) GetInvoice(ctx context.Context, id string) (*Invoice, error) {
	var resp struct {
		Invoice Invoice `json:"invoice"`
	}
	if _, err := c.doJSON(ctx, http.MethodGet, "/v1/invoices/"+url.PathEscape(id), nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Invoice, nil
}

type InvoicePage struct {
	Invoices []Invoice `json:"invoices"`
	NextPage string    `json:"next_page,omitempty"`
}

// ListInvoices pages through a customer's processor-side invoices. Pass the
// previous page's NextPage token to continue; an empty token starts over.
func (c Client) ListInvoices(ctx context.Context, customerID, pageToken string) (*InvoicePage, error) {
	query := url.Values{}
	if customerID != "" {
		query.Set("customer_id", customerID)
	}
	if pageToken != "" {
		query.Set("page", pageToken)
	}
	page := &InvoicePage{}
	if _, err := c.doJSON(ctx, http.MethodGet, "/v1/invoices", query, nil, page); err != nil {
		return nil, err
	}
	return page, nil
}

// ListAllInvoices drains pagination. The page cap keeps a buggy cursor from
// looping forever.
func (c Client) ListAllInvoices(ctx context.Context, customerID string) ([]Invoice, error) {
	var out []Invoice
	token := ""
	for i := 0; i < 100; i++ {
		page, err := c.ListInvoices(ctx, customerID, token)
		if err != nil {
			return nil, err
		}
		out = append(out, page.Invoices...)
		if page.NextPage == "" {
			return out, nil
		}
		token = page.NextPage
	}
	return out, nil
}

// DateParam renders a date the way the processor expects it.
func DateParam(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
