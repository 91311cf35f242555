package federation

import (
	"path/filepath"
	"testing"

	"fmcd/internal/ids"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tyler-smith/go-bip39"
)

func TestLoadOrGenerateMnemonic_IdempotentAcrossRestarts(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "multimint.db")

	store1, err := OpenStore(dbPath)
	require.NoError(t, err)
	mnemonic1, err := LoadOrGenerateMnemonic(store1)
	require.NoError(t, err)
	require.NoError(t, store1.Close())
	assert.True(t, bip39.IsMnemonicValid(mnemonic1))

	store2, err := OpenStore(dbPath)
	require.NoError(t, err)
	defer store2.Close()
	mnemonic2, err := LoadOrGenerateMnemonic(store2)
	require.NoError(t, err)

	assert.Equal(t, mnemonic1, mnemonic2)
}

func TestDeriveFederationSecret_DeterministicPerFederation(t *testing.T) {
	entropy, err := bip39.NewEntropy(128)
	require.NoError(t, err)
	mnemonic, err := bip39.NewMnemonic(entropy)
	require.NoError(t, err)

	fid1 := ids.FederationId{0x01}
	fid2 := ids.FederationId{0x02}

	secretA1, err := DeriveFederationSecret(mnemonic, fid1)
	require.NoError(t, err)
	secretA2, err := DeriveFederationSecret(mnemonic, fid1)
	require.NoError(t, err)
	secretB, err := DeriveFederationSecret(mnemonic, fid2)
	require.NoError(t, err)

	assert.Equal(t, secretA1, secretA2)
	assert.NotEqual(t, secretA1, secretB)
}
