package webhook

import "testing"

func TestParseRef(t *testing.T) {
	desc := "billingconsole: payment_id=abc-123 customer_id=def-456"
	if got := ParseRef(desc, "payment_id"); got != "abc-123" {
		t.Fatalf("expected abc-123, got %q", got)
	}
	if got := ParseRef(desc, "customer_id"); got != "def-456" {
		t.Fatalf("expected def-456, got %q", got)
	}
}

func TestParseRef_ToleratesPunctuation(t *testing.T) {
	desc := "hello,payment_id=zzz;customer_id=yyy other=xxx"
	if got := ParseRef(desc, "payment_id"); got != "zzz" {
		t.Fatalf("expected zzz, got %q", got)
	}
}

func TestParseRef_MissingKey(t *testing.T) {
	if got := ParseRef("no refs here", "payment_id"); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
	if got := ParseRef("payment_id=abc", ""); got != "" {
		t.Fatalf("empty key should yield empty, got %q", got)
	}
}

func TestNormalizeTopic(t *testing.T) {
	cases := map[string]string{
		"payment.succeeded":  "payment_succeeded",
		"Invoice.Voided":     "invoice_voided",
		" payment/failed ":   "payment_failed",
		"payment..succeeded": "payment_succeeded",
	}
	for in, want := range cases {
		if got := NormalizeTopic(in); got != want {
			t.Fatalf("NormalizeTopic(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"id":"evt_1"}`)
	// base64(HMAC_SHA256("secret", body))
	const sig = "FquxCtsz/5z/NPalf8LAuQLBHqGf5z2uhvKUDCNeftU="
	if !VerifySignature(body, sig, "secret") {
		t.Fatalf("expected valid signature")
	}
	if VerifySignature(body, sig, "other") {
		t.Fatalf("expected mismatch with the wrong secret")
	}
	if VerifySignature(body, "", "secret") {
		t.Fatalf("expected missing header to fail")
	}
}
