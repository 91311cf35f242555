package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"fmcd/internal/events"
	"fmcd/internal/metrics"
	"fmcd/internal/sanitize"
	"fmcd/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const userAgent = "fmcd-webhook/1.0"

// Notifier fans events out to every configured, matching, enabled
// endpoint. It is always registered on the bus as a non-critical
// handler: webhook delivery, including all of its retries, must
// never block event publication.
type Notifier struct {
	endpoints []Endpoint
	client    *http.Client
	metrics   *metrics.Metrics
}

// NewNotifier constructs a Notifier for the given endpoints, sharing a
// single http.Client across all deliveries.
func NewNotifier(endpoints []Endpoint) *Notifier {
	return &Notifier{
		endpoints: endpoints,
		client:    &http.Client{},
		metrics:   metrics.Get(),
	}
}

func (*Notifier) Name() string     { return "webhook" }
func (*Notifier) IsCritical() bool { return false }

// Handle starts delivery of event to every matching endpoint, one goroutine
// per endpoint, and returns without waiting for the deliveries or their
// retries; a done context stops pending retries. Per-endpoint failures are
// logged, not returned: a
// single endpoint's outage never affects another's delivery.
func (n *Notifier) Handle(ctx context.Context, event events.FmcdEvent) error {
	if len(n.endpoints) == 0 {
		return nil
	}

	body, err := redactedBody(event)
	if err != nil {
		return fmt.Errorf("failed to render webhook payload: %w", err)
	}

	eventID := uuid.NewString()
	eventType := event.EventType()

	for _, ep := range n.endpoints {
		if !ep.Accepts(eventType) {
			continue
		}
		ep := ep
		go n.deliverWithRetry(ctx, ep, eventType, eventID, body)
	}
	return nil
}

// redactedBody renders event to JSON and redacts every sensitive field
// recursively before it ever reaches an outbound HTTP call.
func redactedBody(event events.FmcdEvent) ([]byte, error) {
	raw, err := events.MarshalJSON(event)
	if err != nil {
		return nil, err
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, err
	}
	sanitize.RedactFields(decoded)

	return json.Marshal(decoded)
}

func (n *Notifier) deliverWithRetry(ctx context.Context, ep Endpoint, eventType, eventID string, body []byte) {
	policy := ep.Retry
	if policy.MaxAttempts <= 0 {
		policy = DefaultRetryPolicy()
	}

	delay := time.Duration(policy.InitialDelayMs) * time.Millisecond
	maxDelay := time.Duration(policy.MaxDelayMs) * time.Millisecond

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		start := time.Now()
		err := n.deliverOnce(ctx, ep, eventType, eventID, body, policy)
		status := "ok"
		if err != nil {
			status = "error"
			lastErr = err
		}
		n.metrics.WebhookDeliveriesTotal.WithLabelValues(ep.ID, eventType, status).Inc()
		n.metrics.WebhookDeliveryDuration.WithLabelValues(ep.ID, eventType, status).Observe(time.Since(start).Seconds())

		if err == nil {
			return
		}

		if attempt == policy.MaxAttempts {
			break
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return
		}
		delay = time.Duration(math.Min(float64(delay)*policy.BackoffMultiplier, float64(maxDelay)))
	}

	logger.Warn("webhook delivery exhausted all retries",
		zap.String("endpoint_id", ep.ID),
		zap.String("event_type", eventType),
		zap.Int("attempts", policy.MaxAttempts),
		zap.Error(lastErr))
}

func (n *Notifier) deliverOnce(ctx context.Context, ep Endpoint, eventType, eventID string, body []byte, policy RetryPolicy) error {
	timeout := time.Duration(policy.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, ep.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Event-Id", eventID)
	if ep.Secret != "" {
		req.Header.Set("X-Signature-SHA256", "sha256="+Sign(ep.Secret, body))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request to %s failed: %w", ep.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook endpoint %s returned status %d", ep.ID, resp.StatusCode)
	}
	return nil
}

// Sign computes the hex HMAC-SHA256 of body under secret; the "sha256="
// prefix is added by the caller when building the X-Signature-SHA256
// header.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature (either "sha256=<hex>" or bare hex)
// matches the HMAC-SHA256 of body under secret. Exposed for any collaborator
// standing up a webhook receiver to validate fmcd's own deliveries.
func Verify(secret string, body []byte, signature string) bool {
	const prefix = "sha256="
	hexPart := signature
	if len(signature) > len(prefix) && signature[:len(prefix)] == prefix {
		hexPart = signature[len(prefix):]
	}

	decoded, err := hex.DecodeString(hexPart)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), decoded)
}
