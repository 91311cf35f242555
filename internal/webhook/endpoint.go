// Package webhook implements the outbound HTTP notifier: per-endpoint
// HMAC-signed delivery, retry with exponential backoff, and event-type
// filtering. Receivers verify the signature with the same
// crypto/hmac+sha256 construction fmcd signs with; Verify is exported for
// them.
package webhook

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"unicode"
)

// RetryPolicy governs per-endpoint delivery retry.
type RetryPolicy struct {
	MaxAttempts       int     `toml:"max_attempts" env-default:"3"`
	InitialDelayMs    int     `toml:"initial_delay_ms" env-default:"500"`
	BackoffMultiplier float64 `toml:"backoff_multiplier" env-default:"2.0"`
	MaxDelayMs        int     `toml:"max_delay_ms" env-default:"30000"`
	TimeoutSecs       int     `toml:"timeout_secs" env-default:"30"`
}

// DefaultRetryPolicy mirrors the documented defaults.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, InitialDelayMs: 500, BackoffMultiplier: 2.0, MaxDelayMs: 30000, TimeoutSecs: 30}
}

// Endpoint is one operator-configured webhook target.
type Endpoint struct {
	ID         string       `toml:"id"`
	URL        string       `toml:"url"`
	Secret     string       `toml:"secret"`
	EventTypes []string     `toml:"event_types"`
	Retry      RetryPolicy  `toml:"retry"`
	Enabled    bool         `toml:"enabled" env-default:"true"`
}

// Accepts reports whether eventType should be delivered to this endpoint:
// an empty EventTypes list receives everything, a disabled endpoint
// receives nothing.
func (e Endpoint) Accepts(eventType string) bool {
	if !e.Enabled {
		return false
	}
	if len(e.EventTypes) == 0 {
		return true
	}
	for _, t := range e.EventTypes {
		if t == eventType {
			return true
		}
	}
	return false
}

// deniedPorts blocks ssh/telnet/mail/dns remote-admin ports and common
// database/internal-service ports.
var deniedPorts = map[string]bool{
	"22": true, "23": true, "25": true, "53": true,
	"110": true, "143": true, "993": true, "995": true,
	"3306": true, "5432": true, "6379": true, "27017": true, "9200": true,
	"2375": true, "2376": true, "5900": true, "8500": true, "9092": true,
}

// ValidateURL guards against SSRF: the URL must parse, use
// http/https (https required unless allowInsecure, e.g. a debug build),
// and must not resolve to a private/loopback address or a denied port.
func ValidateURL(rawURL string, allowInsecure bool) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid webhook url: %w", err)
	}

	switch u.Scheme {
	case "https":
	case "http":
		if !allowInsecure {
			return fmt.Errorf("webhook url must use https (got http): %s", rawURL)
		}
	default:
		return fmt.Errorf("webhook url must use http or https, got %q", u.Scheme)
	}

	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("webhook url has no host: %s", rawURL)
	}

	if port := u.Port(); port != "" && deniedPorts[port] {
		return fmt.Errorf("webhook url uses a disallowed port: %s", port)
	}

	if ip := net.ParseIP(host); ip != nil {
		if isDisallowedIP(ip) {
			return fmt.Errorf("webhook url resolves to a private or loopback address: %s", host)
		}
		return nil
	}

	lowerHost := strings.ToLower(host)
	if lowerHost == "localhost" {
		return fmt.Errorf("webhook url resolves to a private or loopback address: %s", host)
	}

	addrs, err := net.LookupIP(host)
	if err != nil {
		return fmt.Errorf("failed to resolve webhook host %s: %w", host, err)
	}
	for _, addr := range addrs {
		if isDisallowedIP(addr) {
			return fmt.Errorf("webhook host %s resolves to a private or loopback address %s", host, addr)
		}
	}
	return nil
}

func isDisallowedIP(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsUnspecified()
}

// ValidateSecret enforces the HMAC secret strength policy: at least 32
// characters, entropy across at least three of {upper, lower, digit,
// special}, and no sequential/repeated run longer than a third of the
// string.
func ValidateSecret(secret string) error {
	if len(secret) < 32 {
		return fmt.Errorf("webhook secret must be at least 32 characters")
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range secret {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSpecial = true
		}
	}
	classes := 0
	for _, ok := range []bool{hasUpper, hasLower, hasDigit, hasSpecial} {
		if ok {
			classes++
		}
	}
	if classes < 3 {
		return fmt.Errorf("webhook secret must mix at least 3 of upper/lower/digit/special characters")
	}

	if longestRun(secret) > len(secret)/3 {
		return fmt.Errorf("webhook secret contains too long a sequential or repeated run")
	}

	return nil
}

// longestRun returns the length of the longest run of either identical
// characters or a strictly ascending/descending character sequence.
func longestRun(s string) int {
	runes := []rune(s)
	if len(runes) == 0 {
		return 0
	}

	longest := 1
	repeatRun := 1
	ascRun := 1
	descRun := 1

	for i := 1; i < len(runes); i++ {
		if runes[i] == runes[i-1] {
			repeatRun++
		} else {
			repeatRun = 1
		}
		if runes[i] == runes[i-1]+1 {
			ascRun++
		} else {
			ascRun = 1
		}
		if runes[i] == runes[i-1]-1 {
			descRun++
		} else {
			descRun = 1
		}

		for _, run := range []int{repeatRun, ascRun, descRun} {
			if run > longest {
				longest = run
			}
		}
	}

	return longest
}
