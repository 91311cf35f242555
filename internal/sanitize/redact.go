// Package sanitize redacts sensitive values before they reach a log line
// or a webhook payload.
package sanitize

import (
	"strconv"
	"strings"
)

// sensitiveFieldSubstrings is the case-insensitive substring list checked
// against every JSON field name before a webhook payload is sent.
var sensitiveFieldSubstrings = []string{
	"preimage", "invoice", "secret", "password", "token", "key",
	"private_key", "seed", "mnemonic", "invite_code", "ip_address",
	"client_ip", "user_agent", "x_forwarded_for", "authorization",
}

const redactedPlaceholder = "[REDACTED]"

// IsSensitiveField reports whether name matches one of the sensitive-field
// substrings, case-insensitively. Event payloads carry camelCase field
// names while the substring list is snake_case, so the name is folded to
// snake_case before matching: "inviteCode" must match "invite_code".
func IsSensitiveField(name string) bool {
	folded := toSnakeCase(name)
	for _, substr := range sensitiveFieldSubstrings {
		if strings.Contains(folded, substr) {
			return true
		}
	}
	return false
}

func toSnakeCase(name string) string {
	var b strings.Builder
	b.Grow(len(name) + 4)
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// RedactFields walks a decoded JSON value (the shape produced by
// json.Unmarshal into any: map[string]any, []any, or scalars) and replaces
// every value whose map key matches a sensitive field with
// "[REDACTED]", recursing into nested objects and arrays. The input is
// mutated in place and also returned for convenience.
func RedactFields(value any) any {
	switch v := value.(type) {
	case map[string]any:
		for key, nested := range v {
			if IsSensitiveField(key) {
				v[key] = redactedPlaceholder
				continue
			}
			v[key] = RedactFields(nested)
		}
		return v
	case []any:
		for i, elem := range v {
			v[i] = RedactFields(elem)
		}
		return v
	default:
		return v
	}
}

// Kind labels the class of sensitive data being partially redacted, used
// only to name the marker in PartialRedact's output.
type Kind string

const (
	KindInvoice     Kind = "INVOICE"
	KindPreimage    Kind = "PREIMAGE"
	KindPrivateKey  Kind = "PRIVATE_KEY"
	KindUserToken   Kind = "USER_TOKEN"
	KindPaymentHash Kind = "PAYMENT_HASH"
)

// PartialRedact renders value in the partial-disclosure log form: the
// first and last n characters verbatim with a marker in between, or full
// redaction if value is at most 2n characters long (nothing would be left
// hidden between the two ends). n defaults to 6 when 0 is passed.
func PartialRedact(value string, kind Kind, n int) string {
	if n <= 0 {
		n = 6
	}
	if len(value) <= n*2 {
		return "[REDACTED_" + string(kind) + "]"
	}

	start := value[:n]
	end := value[len(value)-n:]
	middleLen := len(value) - n*2

	return start + "[REDACTED_" + string(kind) + "_" + strconv.Itoa(middleLen) + "_CHARS]" + end
}
