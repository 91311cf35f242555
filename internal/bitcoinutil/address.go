// Package bitcoinutil validates on-chain addresses and formats outpoints
// for the deposit/withdraw flows. Validation returns errors from fmcd's
// taxonomy instead of a bare bool, keyed by a federation's reported
// network string rather than a fixed mainnet/testnet choice.
package bitcoinutil

import (
	"fmt"
	"strings"

	"fmcd/internal/errors"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// NetworkParams maps a federation's reported network name to chaincfg
// parameters, the same four networks bitcoind/lnd itself recognizes.
func NetworkParams(network string) (*chaincfg.Params, error) {
	switch strings.ToLower(network) {
	case "mainnet", "bitcoin":
		return &chaincfg.MainNetParams, nil
	case "testnet", "testnet3":
		return &chaincfg.TestNet3Params, nil
	case "signet":
		return &chaincfg.SigNetParams, nil
	case "regtest":
		return &chaincfg.RegressionNetParams, nil
	default:
		return nil, fmt.Errorf("unknown bitcoin network %q", network)
	}
}

// ValidateAddress reports whether address is a well-formed Bitcoin address
// for network, returning a ValidationError (not a bare bool) on any
// failure so callers can surface it directly to a requester.
func ValidateAddress(address string, network string) error {
	params, err := NetworkParams(network)
	if err != nil {
		return errors.InternalErrorf("cannot validate address: %v", err)
	}

	decoded, err := btcutil.DecodeAddress(address, params)
	if err != nil {
		return errors.ValidationErrorf("%q is not a valid bitcoin address", address)
	}

	if !decoded.IsForNet(params) {
		return errors.ValidationErrorf("%q is not a valid %s address", address, network)
	}

	return nil
}

// ParseOutpoint parses a "<txid>:<vout>" string, the wire format used by
// OnchainDepositState.Outpoint and echoed in DepositClaimed events.
func ParseOutpoint(s string) (chainhash.Hash, uint32, error) {
	idx := strings.LastIndexByte(s, ':')
	if idx < 0 {
		return chainhash.Hash{}, 0, fmt.Errorf("outpoint %q is missing a \":vout\" suffix", s)
	}

	hash, err := chainhash.NewHashFromStr(s[:idx])
	if err != nil {
		return chainhash.Hash{}, 0, fmt.Errorf("invalid outpoint txid: %w", err)
	}

	var vout uint32
	if _, err := fmt.Sscanf(s[idx+1:], "%d", &vout); err != nil {
		return chainhash.Hash{}, 0, fmt.Errorf("invalid outpoint vout: %w", err)
	}

	return *hash, vout, nil
}

// FormatOutpoint renders hash:vout in the same "<txid>:<vout>" shape
// ParseOutpoint accepts.
func FormatOutpoint(hash chainhash.Hash, vout uint32) string {
	return fmt.Sprintf("%s:%d", hash.String(), vout)
}
