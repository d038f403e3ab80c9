package webhook

import (
	"regexp"
	"strings"
)

var refKVRe = regexp.MustCompile(`(?i)(?:^|[\s,;])([a-zA-Z0-9_]+)=([a-zA-Z0-9-]+)`)

// ParseRef extracts a key=value token from a processor description string.
// Payments the console submits carry a description like
//
//	"billingconsole: payment_id=abc-123 customer_id=def-456"
//
// and events echo it back; the parser is intentionally tolerant because
// descriptions can include prefixes, punctuation, and operator text.
func ParseRef(description string, key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return ""
	}

	matches := refKVRe.FindAllStringSubmatch(description, -1)
	for _, m := range matches {
		if len(m) != 3 {
			continue
		}
		if strings.EqualFold(m[1], key) {
			return m[2]
		}
	}
	return ""
}
