package federation

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_InviteCodeRoundTrip(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "multimint.db")
	store, err := OpenStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.SaveInviteCode("aabb", "fed1xyz"))
	require.NoError(t, store.SaveInviteCode("ccdd", "fed2xyz"))

	codes, err := store.InviteCodes()
	require.NoError(t, err)
	assert.Equal(t, "fed1xyz", codes["aabb"])
	assert.Equal(t, "fed2xyz", codes["ccdd"])
}

func TestStore_MnemonicNotFoundInitially(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "multimint.db")
	store, err := OpenStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	_, found, err := store.LoadMnemonic()
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStore_SaveInviteCodeIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "multimint.db")
	store, err := OpenStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.SaveInviteCode("aabb", "fed1xyz"))
	require.NoError(t, store.SaveInviteCode("aabb", "fed1xyz"))

	codes, err := store.InviteCodes()
	require.NoError(t, err)
	assert.Len(t, codes, 1)
}
