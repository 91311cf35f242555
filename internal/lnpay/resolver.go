// Package lnpay resolves a user-supplied payment destination string down
// to a payable BOLT11 invoice and its decoded amount/expiry/destination.
// It decodes with zpay32 directly instead of dialing a live lnd node: the
// federation client owns all Lightning network I/O, so the core never
// makes its own gRPC connection just to decode an invoice string.
package lnpay

import (
	"encoding/hex"
	"strings"
	"time"

	"fmcd/internal/errors"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/lightningnetwork/lnd/zpay32"
)

// PaymentInfo is the decoded, transport-agnostic shape of a Lightning
// payment destination, independent of whether the caller supplied a raw
// bolt11 string or (in a future resolver) an LNURL/Lightning-Address.
type PaymentInfo struct {
	Bolt11      string
	PaymentHash string
	AmountMsat  uint64 // 0 means the invoice is amountless
	Description string
	Destination string // hex-encoded compressed pubkey
	CreatedAt   time.Time
	Expiry      time.Duration
}

// IsExpired reports whether the invoice's expiry window has elapsed.
func (p PaymentInfo) IsExpired() bool {
	return time.Now().After(p.CreatedAt.Add(p.Expiry))
}

// PaymentInfoResolver resolves a user-supplied destination string to a
// payable invoice. LNURL/Lightning-Address resolution is out of scope here
// and belongs to the transport layer; the default implementation
// below only ever accepts raw bolt11 strings.
type PaymentInfoResolver interface {
	Resolve(destination string) (PaymentInfo, error)
}

// Bolt11Resolver is the default PaymentInfoResolver. It returns a
// ValidationError, not a GatewayError, for any string that fails to decode
// as a bolt11 invoice.
type Bolt11Resolver struct {
	Net *chaincfg.Params
}

// NewBolt11Resolver constructs a resolver for the given network, defaulting
// to mainnet when net is nil.
func NewBolt11Resolver(net *chaincfg.Params) *Bolt11Resolver {
	if net == nil {
		net = &chaincfg.MainNetParams
	}
	return &Bolt11Resolver{Net: net}
}

// Resolve implements PaymentInfoResolver.
func (r *Bolt11Resolver) Resolve(destination string) (PaymentInfo, error) {
	trimmed := strings.TrimSpace(destination)
	if trimmed == "" {
		return PaymentInfo{}, errors.ValidationErrorf("payment destination must not be empty")
	}

	info, err := Decode(trimmed, r.Net)
	if err != nil {
		return PaymentInfo{}, errors.ValidationErrorf("%q is not a valid bolt11 invoice: %v", destination, err)
	}
	return info, nil
}

// Decode parses a raw bolt11 string into a PaymentInfo, independent of any
// resolver. Bolt11Resolver.Resolve delegates to it.
func Decode(bolt11 string, net *chaincfg.Params) (PaymentInfo, error) {
	if net == nil {
		net = &chaincfg.MainNetParams
	}

	inv, err := zpay32.Decode(bolt11, net)
	if err != nil {
		return PaymentInfo{}, err
	}

	info := PaymentInfo{
		Bolt11:    bolt11,
		CreatedAt: inv.Timestamp,
		Expiry:    inv.Expiry(),
	}
	if inv.MilliSat != nil {
		info.AmountMsat = uint64(*inv.MilliSat)
	}
	if inv.PaymentHash != nil {
		info.PaymentHash = hex.EncodeToString(inv.PaymentHash[:])
	}
	if inv.Description != nil {
		info.Description = *inv.Description
	}
	if inv.Destination != nil {
		info.Destination = hex.EncodeToString(inv.Destination.SerializeCompressed())
	}
	return info, nil
}
