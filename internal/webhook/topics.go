package webhook

import "strings"

// NormalizeTopic converts processor event types (like "payment.succeeded")
// into a stable internal form.
// Examples:
// - "payment.succeeded" -> "payment_succeeded"
// - "invoice.voided" -> "invoice_voided"
func NormalizeTopic(topic string) string {
	t := strings.TrimSpace(strings.ToLower(topic))
	t = strings.ReplaceAll(t, "/", "_")
	t = strings.ReplaceAll(t, ".", "_")
	t = strings.ReplaceAll(t, "-", "_")
	for strings.Contains(t, "__") {
		t = strings.ReplaceAll(t, "__", "_")
	}
	return strings.Trim(t, "_")
}
