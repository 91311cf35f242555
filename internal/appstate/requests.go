package appstate

// CreateInvoiceRequest asks one federation to issue a Lightning invoice
// routed through a specific gateway.
type CreateInvoiceRequest struct {
	FederationID string  `json:"federationId"`
	AmountMsat   uint64  `json:"amountMsat"`
	Description  string  `json:"description"`
	ExpirySecs   *uint64 `json:"expirySecs,omitempty"`
	GatewayID    string  `json:"gatewayId"`
}

// InvoiceResponse reports a freshly created invoice and the operation
// tracking its settlement.
type InvoiceResponse struct {
	OperationID string `json:"operationId"`
	InvoiceID   string `json:"invoiceId"`
	Invoice     string `json:"invoice"`
	AmountMsat  uint64 `json:"amountMsat"`
	Status      string `json:"status"`
}

// PayInvoiceRequest asks one federation to pay a Lightning destination.
// PaymentInfo is a raw bolt11 string under the default resolver; a
// transport-supplied resolver may also accept LNURL/Lightning-Address
// forms. AmountMsat is required for amountless invoices and rejected
// otherwise.
type PayInvoiceRequest struct {
	PaymentInfo  string  `json:"paymentInfo"`
	AmountMsat   *uint64 `json:"amountMsat,omitempty"`
	FederationID string  `json:"federationId"`
	GatewayID    string  `json:"gatewayId"`
}

// PayResponse reports an initiated outbound payment. The terminal outcome
// (success with preimage, refund, failure) arrives as an event once the
// lifecycle manager observes it.
type PayResponse struct {
	OperationID string `json:"operationId"`
	PaymentID   string `json:"paymentId"`
	AmountMsat  uint64 `json:"amountMsat"`
	Status      string `json:"status"`
}

// DepositAddressRequest asks one federation's wallet module for a fresh
// on-chain deposit address.
type DepositAddressRequest struct {
	FederationID string `json:"federationId"`
}

// DepositAddressResponse reports the allocated address, the operation
// tracking its on-chain lifecycle, and the address's tweak index within
// the federation's descriptor.
type DepositAddressResponse struct {
	Address     string `json:"address"`
	OperationID string `json:"operationId"`
	TweakIdx    uint64 `json:"tweakIdx"`
}

// WithdrawRequest asks one federation to send an on-chain payment. All
// withdraws the full spendable balance net of fees; AmountSat is ignored
// when All is set.
type WithdrawRequest struct {
	FederationID string `json:"federationId"`
	Address      string `json:"address"`
	AmountSat    uint64 `json:"amountSat"`
	All          bool   `json:"all"`
}

// WithdrawResponse reports an initiated withdrawal. The transaction id
// arrives in the terminal event once the federation broadcasts; FeesSat is
// the federation's fee estimate at initiation time.
type WithdrawResponse struct {
	OperationID string `json:"operationId"`
	AmountSat   uint64 `json:"amountSat"`
	FeesSat     uint64 `json:"feesSat"`
}

// InfoResponse is one federation's entry in the GetInfo map.
type InfoResponse struct {
	FederationID      string            `json:"federationId"`
	Network           string            `json:"network"`
	Meta              map[string]string `json:"meta"`
	TotalAmountMsat   uint64            `json:"totalAmountMsat"`
	TotalNumNotes     int               `json:"totalNumNotes"`
	DenominationsMsat map[uint64]int    `json:"denominationsMsat,omitempty"`
}
