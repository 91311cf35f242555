// Package events implements the core's typed in-process publish/subscribe
// spine: a fixed-capacity broadcast channel for SSE-style
// subscribers, fan-out to registered handlers (critical awaited,
// non-critical spawned), and the ~20-variant FmcdEvent sum type every
// handler and subscriber receives.
package events

import "time"

// FmcdEvent is the discriminated union every event published on the bus
// satisfies. EventType is the "type" field's snake_case value; every
// variant also carries a timestamp, and most carry a correlation and/or
// federation id.
type FmcdEvent interface {
	EventType() string
	OccurredAt() time.Time
}

// Base is embedded by every concrete event and supplies the fields common
// to all variants: a timestamp on every one, correlation and federation
// ids on most.
type Base struct {
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlationId,omitempty"`
	FederationID  string    `json:"federationId,omitempty"`
}

// NewBase stamps the current time and the caller's correlation/federation
// ids. Either id may be left empty (balance events carry no correlation
// id; they are not request-driven).
func NewBase(correlationID, federationID string) Base {
	return Base{Timestamp: time.Now().UTC(), CorrelationID: correlationID, FederationID: federationID}
}

func (b Base) OccurredAt() time.Time { return b.Timestamp }

// --- Payment lifecycle -------------------------------------------------

type PaymentInitiated struct {
	Base
	OperationID string `json:"operationId"`
	PaymentType string `json:"paymentType"`
	AmountMsat  uint64 `json:"amountMsat,omitempty"`
	GatewayID   string `json:"gatewayId,omitempty"`
}

func (PaymentInitiated) EventType() string { return "payment_initiated" }

type PaymentSucceeded struct {
	Base
	OperationID string `json:"operationId"`
	PaymentHash string `json:"paymentHash,omitempty"`
	Preimage    string `json:"preimage,omitempty"`
	AmountMsat  uint64 `json:"amountMsat"`
	FeeMsat     uint64 `json:"feeMsat"`
}

func (PaymentSucceeded) EventType() string { return "payment_succeeded" }

type PaymentRefunded struct {
	Base
	OperationID string `json:"operationId"`
	Reason      string `json:"reason,omitempty"`
}

func (PaymentRefunded) EventType() string { return "payment_refunded" }

type PaymentFailed struct {
	Base
	OperationID string `json:"operationId"`
	Reason      string `json:"reason"`
}

func (PaymentFailed) EventType() string { return "payment_failed" }

// --- Invoices ------------------------------------------------------------

type InvoiceCreated struct {
	Base
	OperationID string `json:"operationId"`
	InvoiceID   string `json:"invoiceId"`
	Invoice     string `json:"invoice"`
	AmountMsat  uint64 `json:"amountMsat"`
}

func (InvoiceCreated) EventType() string { return "invoice_created" }

// InvoicePaid is the terminal Claimed event for a Lightning receive.
// AmountReceivedMsat is the invoice's requested amount, not a freshly
// observed settlement figure: the federation client does not expose the
// actual settled amount on Claimed.
type InvoicePaid struct {
	Base
	OperationID        string `json:"operationId"`
	InvoiceID          string `json:"invoiceId"`
	AmountReceivedMsat uint64 `json:"amountReceivedMsat"`
}

func (InvoicePaid) EventType() string { return "invoice_paid" }

type InvoiceExpired struct {
	Base
	OperationID string `json:"operationId"`
	InvoiceID   string `json:"invoiceId"`
	Reason      string `json:"reason,omitempty"`
}

func (InvoiceExpired) EventType() string { return "invoice_expired" }

// --- Federation ------------------------------------------------------------

type FederationConnected struct {
	Base
	InviteCode string `json:"inviteCode,omitempty"`
}

func (FederationConnected) EventType() string { return "federation_connected" }

type FederationDisconnected struct {
	Base
	Reason string `json:"reason,omitempty"`
}

func (FederationDisconnected) EventType() string { return "federation_disconnected" }

type FederationBalanceUpdated struct {
	Base
	PreviousMsat uint64 `json:"previousMsat"`
	CurrentMsat  uint64 `json:"currentMsat"`
}

func (FederationBalanceUpdated) EventType() string { return "federation_balance_updated" }

// --- On-chain deposit ------------------------------------------------------

type DepositAddressGenerated struct {
	Base
	OperationID string `json:"operationId"`
	Address     string `json:"address"`
	TweakIdx    uint64 `json:"tweakIdx"`
}

func (DepositAddressGenerated) EventType() string { return "deposit_address_generated" }

type DepositDetected struct {
	Base
	OperationID string `json:"operationId"`
	AmountSat   uint64 `json:"amountSat"`
	Txid        string `json:"txid"`
}

func (DepositDetected) EventType() string { return "deposit_detected" }

type DepositClaimed struct {
	Base
	OperationID string `json:"operationId"`
	AmountSat   uint64 `json:"amountSat"`
	Outpoint    string `json:"outpoint"`
}

func (DepositClaimed) EventType() string { return "deposit_claimed" }

// --- On-chain withdrawal -----------------------------------------------

type WithdrawalInitiated struct {
	Base
	OperationID string `json:"operationId"`
	Address     string `json:"address"`
	AmountSat   uint64 `json:"amountSat"`
}

func (WithdrawalInitiated) EventType() string { return "withdrawal_initiated" }

type WithdrawalSucceeded struct {
	Base
	OperationID string `json:"operationId"`
	Txid        string `json:"txid"`
	FeesSat     uint64 `json:"feesSat"`
}

func (WithdrawalSucceeded) EventType() string { return "withdrawal_succeeded" }

type WithdrawalFailed struct {
	Base
	OperationID string `json:"operationId"`
	Reason      string `json:"reason"`
}

func (WithdrawalFailed) EventType() string { return "withdrawal_failed" }

// --- Gateway ---------------------------------------------------------------

type GatewaySelected struct {
	Base
	GatewayID string `json:"gatewayId"`
}

func (GatewaySelected) EventType() string { return "gateway_selected" }

type GatewayUnavailable struct {
	Base
	GatewayID string `json:"gatewayId"`
	Reason    string `json:"reason,omitempty"`
}

func (GatewayUnavailable) EventType() string { return "gateway_unavailable" }

// --- Observability surface --------------------------------------

type DatabaseQueryExecuted struct {
	Base
	Operation  string  `json:"operation"`
	DurationMs float64 `json:"durationMs"`
	Success    bool    `json:"success"`
}

func (DatabaseQueryExecuted) EventType() string { return "database_query_executed" }

type AuthenticationAttempted struct {
	Base
	Endpoint string `json:"endpoint"`
	Success  bool   `json:"success"`
	IPAddr   string `json:"ipAddress,omitempty"`
}

func (AuthenticationAttempted) EventType() string { return "authentication_attempted" }
