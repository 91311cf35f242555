package payment

import "fmcd/internal/fedclient"

// Classify maps a federation client's reported module-kind/variant/op_type
// plus its opaque metadata to a PaymentType. The redundancy across
// metadata keys is deliberate: the upstream library has used different
// keys for the same concept across versions, and relying on only one would risk
// silently losing a user's funds on crash recovery. classifyOK is false
// when op matches none of the four recognized shapes.
func Classify(op fedclient.LoggedOperation) (pt PaymentType, classifyOK bool) {
	_, hasInvoice := op.Metadata["invoice"]
	_, hasPaymentHash := op.Metadata["payment_hash"]
	_, hasAddress := op.Metadata["address"]
	_, hasRecipient := op.Metadata["recipient"]

	switch op.ModuleKind {
	case "ln":
		switch {
		case op.Variant == "receive" || op.OpType == "ln_receive" || hasInvoice:
			return LightningReceive, true
		case op.Variant == "pay" || op.OpType == "ln_pay" || hasPaymentHash:
			return LightningPay, true
		}
	case "wallet":
		switch {
		case op.Variant == "deposit" || op.OpType == "deposit" || hasAddress:
			return OnchainDeposit, true
		case op.Variant == "withdraw" || op.OpType == "withdraw" || hasRecipient:
			return OnchainWithdraw, true
		}
	}

	return 0, false
}
