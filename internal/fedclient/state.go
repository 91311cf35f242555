package fedclient

// The four state enums below mirror the "Non-terminal / terminal" table in
// the payment lifecycle manager's component design: each PaymentType has
// its own vocabulary of states as reported by the federation client's
// subscription stream.

// LnReceiveState is the state of a tracked Lightning invoice receive.
type LnReceiveState struct {
	Kind LnReceiveKind

	// AmountReceivedMsat is whatever the stream reports on Claimed.
	// Upstream does not expose the actual settled amount there, so the
	// lifecycle manager reports the invoice's originally requested amount
	// and uses this field only when no requested amount was recorded.
	AmountReceivedMsat uint64

	// CanceledReason is set on Canceled.
	CanceledReason string
}

type LnReceiveKind int

const (
	LnReceiveCreated LnReceiveKind = iota
	LnReceiveWaitingForPayment
	LnReceiveFunded
	LnReceiveClaimed
	LnReceiveCanceled
)

func (k LnReceiveKind) Terminal() bool {
	return k == LnReceiveClaimed || k == LnReceiveCanceled
}

// LnPayState is the state of a tracked Lightning payment.
type LnPayState struct {
	Kind LnPayKind

	// Preimage is set on Success.
	Preimage string
	// FeeMsat is set on Success.
	FeeMsat uint64
	// FailureReason is set on Refunded, Canceled, or UnexpectedError.
	FailureReason string
}

type LnPayKind int

const (
	LnPayCreated LnPayKind = iota
	LnPayFunded
	LnPayAwaitingChange
	LnPaySuccess
	LnPayRefunded
	LnPayCanceled
	LnPayUnexpectedError
)

func (k LnPayKind) Terminal() bool {
	switch k {
	case LnPaySuccess, LnPayRefunded, LnPayCanceled, LnPayUnexpectedError:
		return true
	default:
		return false
	}
}

func (k LnPayKind) Success() bool {
	return k == LnPaySuccess
}

// OnchainDepositState is the state of a tracked on-chain deposit.
type OnchainDepositState struct {
	Kind OnchainDepositKind

	// AmountSat and Outpoint are set on Claimed (and usually already
	// known by Confirmed).
	AmountSat uint64
	Outpoint  string

	// FailureReason is set on Failed.
	FailureReason string
}

type OnchainDepositKind int

const (
	OnchainDepositWaitingForTransaction OnchainDepositKind = iota
	OnchainDepositWaitingForConfirmation
	OnchainDepositConfirmed
	OnchainDepositClaimed
	OnchainDepositFailed
)

func (k OnchainDepositKind) Terminal() bool {
	return k == OnchainDepositClaimed || k == OnchainDepositFailed
}

// OnchainWithdrawState is the state of a tracked on-chain withdrawal.
type OnchainWithdrawState struct {
	Kind OnchainWithdrawKind

	// Txid is set on Succeeded.
	Txid string
	// FailureReason is set on Failed.
	FailureReason string
}

type OnchainWithdrawKind int

const (
	OnchainWithdrawPending OnchainWithdrawKind = iota
	OnchainWithdrawSucceeded
	OnchainWithdrawFailed
)

func (k OnchainWithdrawKind) Terminal() bool {
	return k == OnchainWithdrawSucceeded || k == OnchainWithdrawFailed
}
