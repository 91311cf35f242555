// Package payment implements the payment lifecycle manager: it
// tracks every in-flight Lightning/on-chain operation from initiation
// through a terminal state, publishing the corresponding FmcdEvent, and
// resurrects operations that crashed mid-flight from the federation
// client's persisted operation log on startup.
package payment

import (
	"time"

	"fmcd/internal/ids"
)

// PaymentType is one of the four kinds of operation the manager tracks.
type PaymentType int

const (
	LightningReceive PaymentType = iota
	LightningPay
	OnchainDeposit
	OnchainWithdraw
)

func (t PaymentType) String() string {
	switch t {
	case LightningReceive:
		return "lightning_receive"
	case LightningPay:
		return "lightning_pay"
	case OnchainDeposit:
		return "onchain_deposit"
	case OnchainWithdraw:
		return "onchain_withdraw"
	default:
		return "unknown"
	}
}

// PaymentOperation is one tracked operation. It is created when the
// operation is submitted, mutated only by the manager's processing loop,
// and removed once it reaches a terminal state or ages past the
// configured operation timeout.
type PaymentOperation struct {
	OperationID   ids.OperationId
	FederationID  ids.FederationId
	PaymentType   PaymentType
	AmountMsat    uint64
	CreatedAt     time.Time
	Metadata      map[string]any
	CorrelationID string

	ClaimAttempted bool
	EcashClaimed   bool
}

func (op *PaymentOperation) metadataString(key string) string {
	if op.Metadata == nil {
		return ""
	}
	if v, ok := op.Metadata[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
