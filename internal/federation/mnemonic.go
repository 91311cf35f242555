package federation

import (
	"crypto/sha256"
	"fmt"
	"io"

	"fmcd/internal/ids"

	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/hkdf"
)

const mnemonicEntropyBits = 128 // 12-word mnemonic

// LoadOrGenerateMnemonic returns the store's persisted mnemonic, generating
// and persisting a fresh one on first run. Restarting against the same
// data directory always yields the same mnemonic.
func LoadOrGenerateMnemonic(store *Store) (string, error) {
	if mnemonic, found, err := store.LoadMnemonic(); err != nil {
		return "", err
	} else if found {
		return mnemonic, nil
	}

	entropy, err := bip39.NewEntropy(mnemonicEntropyBits)
	if err != nil {
		return "", fmt.Errorf("failed to generate mnemonic entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("failed to generate mnemonic: %w", err)
	}
	if err := store.SaveMnemonic(mnemonic); err != nil {
		return "", err
	}
	return mnemonic, nil
}

// DeriveFederationSecret derives a 32-byte federation-scoped secret from
// the shared mnemonic's seed and federationID, using HKDF-SHA256 for key
// separation. The same (mnemonic, federationID) pair always yields the
// same secret.
func DeriveFederationSecret(mnemonic string, federationID ids.FederationId) ([32]byte, error) {
	seed := bip39.NewSeed(mnemonic, "")

	reader := hkdf.New(sha256.New, seed, federationID[:], []byte("fmcd-federation-secret"))

	var secret [32]byte
	if _, err := io.ReadFull(reader, secret[:]); err != nil {
		return [32]byte{}, fmt.Errorf("failed to derive federation secret: %w", err)
	}
	return secret, nil
}
