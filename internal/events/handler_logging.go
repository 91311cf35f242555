package events

import (
	"context"
	"encoding/json"
	"strings"

	"fmcd/internal/sanitize"
	"fmcd/pkg/logger"

	"go.uber.org/zap"
)

// LoggingHandler writes one structured log line per event. It is kept
// critical so an operator debugging a crashed payment is guaranteed
// the log line before the publisher moves on.
type LoggingHandler struct{}

// NewLoggingHandler constructs the shipped logging sink.
func NewLoggingHandler() *LoggingHandler { return &LoggingHandler{} }

func (*LoggingHandler) Name() string     { return "logging" }
func (*LoggingHandler) IsCritical() bool { return true }

// Handle logs event at info level with its JSON encoding partially
// redacted in the log-line form (first/last N chars, full redaction
// below the threshold) rather than the webhook.s full-value redaction:
// an operator reading logs still needs enough of the value to correlate
// across lines.
func (*LoggingHandler) Handle(_ context.Context, event FmcdEvent) error {
	raw, err := MarshalJSON(event)
	if err != nil {
		return err
	}

	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return err
	}
	redactPartial(fields)

	redacted, err := json.Marshal(fields)
	if err != nil {
		return err
	}

	logger.Info("fmcd event",
		zap.String("event_type", event.EventType()),
		zap.String("event", string(redacted)),
	)
	return nil
}

// redactPartial walks the decoded event fields and replaces any
// sensitive-field string value with its partial-disclosure form, instead
// of the webhook path's full "[REDACTED]".
func redactPartial(fields map[string]any) {
	for key, value := range fields {
		str, ok := value.(string)
		if !ok || !sanitize.IsSensitiveField(key) {
			continue
		}
		fields[key] = sanitize.PartialRedact(str, sanitize.Kind(strings.ToUpper(key)), 6)
	}
}
