package money

import "testing"

func TestParse(t *testing.T) {
	a, err := Parse("120.50", "USD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Minor != 12050 || a.Currency != "USD" {
		t.Fatalf("expected 12050 USD, got %d %s", a.Minor, a.Currency)
	}
}

func TestParse_RejectsSubMinorPrecision(t *testing.T) {
	if _, err := Parse("1.005", "USD"); err == nil {
		t.Fatalf("expected error for sub-minor precision")
	}
}

func TestParse_RejectsNegative(t *testing.T) {
	if _, err := Parse("-3.00", "USD"); err == nil {
		t.Fatalf("expected error for negative amount")
	}
}

func TestString_WireForm(t *testing.T) {
	if got := New(12050, "USD").String(); got != "120.50" {
		t.Fatalf("expected 120.50, got %q", got)
	}
	if got := New(5, "USD").String(); got != "0.05" {
		t.Fatalf("expected 0.05, got %q", got)
	}
}

func TestMin(t *testing.T) {
	a := New(300, "USD")
	b := New(200, "USD")
	if got := Min(a, b); got.Minor != 200 {
		t.Fatalf("expected 200, got %d", got.Minor)
	}
	if got := Min(b, a); got.Minor != 200 {
		t.Fatalf("expected 200, got %d", got.Minor)
	}
}

func TestSameCurrency(t *testing.T) {
	if !SameCurrency(New(100, "USD"), New(200, "USD"), Amount{}) {
		t.Fatalf("expected same currency")
	}
	if SameCurrency(New(100, "USD"), New(200, "EUR")) {
		t.Fatalf("expected currency mismatch")
	}
}
