package federation

import (
	"context"
	"crypto/sha256"
	"path/filepath"
	"testing"

	"fmcd/internal/fedclient"
	"fmcd/internal/fedclient/memclient"
	"fmcd/internal/ids"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testParseInvite derives a deterministic FederationId from the invite
// code string, standing in for the federation-client library's real
// bech32 invite-code format.
func testParseInvite(inviteCode string) (ids.FederationId, error) {
	sum := sha256.Sum256([]byte(inviteCode))
	return ids.FederationId(sum), nil
}

func testNewClient(constructed *int) ClientFactory {
	return func(_ context.Context, federationID ids.FederationId, _ [32]byte, _ string) (fedclient.Client, error) {
		if constructed != nil {
			*constructed++
		}
		return memclient.New(federationID), nil
	}
}

func newTestRegistry(t *testing.T, constructed *int) *Registry {
	t.Helper()
	store, err := OpenStore(filepath.Join(t.TempDir(), "multimint.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	mnemonic, err := LoadOrGenerateMnemonic(store)
	require.NoError(t, err)

	reg, err := NewRegistry(context.Background(), store, mnemonic, testParseInvite, testNewClient(constructed))
	require.NoError(t, err)
	return reg
}

func TestRegistry_RegisterNewIsIdempotent(t *testing.T) {
	constructed := 0
	reg := newTestRegistry(t, &constructed)

	h1, appErr := reg.RegisterNew(context.Background(), "invite-a")
	require.Nil(t, appErr)
	h2, appErr := reg.RegisterNew(context.Background(), "invite-a")
	require.Nil(t, appErr)

	assert.Same(t, h1, h2)
	assert.Equal(t, 1, constructed)
}

func TestRegistry_GetReturnsSameHandle(t *testing.T) {
	reg := newTestRegistry(t, nil)
	handle, appErr := reg.RegisterNew(context.Background(), "invite-a")
	require.Nil(t, appErr)

	fid := handle.Client.FederationID()
	got, ok := reg.Get(fid)
	require.True(t, ok)
	assert.Same(t, handle, got)
}

func TestRegistry_GetByPrefix_Unambiguous(t *testing.T) {
	reg := newTestRegistry(t, nil)
	handle, appErr := reg.RegisterNew(context.Background(), "invite-a")
	require.Nil(t, appErr)

	fid := handle.Client.FederationID()
	got, appErr := reg.GetByPrefix(fid[:4])
	require.Nil(t, appErr)
	assert.Same(t, handle, got)
}

func TestRegistry_GetByPrefix_NoMatch(t *testing.T) {
	reg := newTestRegistry(t, nil)
	_, appErr := reg.GetByPrefix([]byte{0xff, 0xff, 0xff, 0xff})
	require.NotNil(t, appErr)
	assert.Equal(t, "NOT_FOUND", appErr.Category.Code())
}

func TestRegistry_IDsSnapshot(t *testing.T) {
	reg := newTestRegistry(t, nil)
	h1, _ := reg.RegisterNew(context.Background(), "invite-a")
	h2, _ := reg.RegisterNew(context.Background(), "invite-b")

	fids := reg.IDs()
	assert.Len(t, fids, 2)
	assert.Contains(t, fids, h1.Client.FederationID())
	assert.Contains(t, fids, h2.Client.FederationID())
}

func TestRegistry_RegisterInvalidInvite(t *testing.T) {
	store, err := OpenStore(filepath.Join(t.TempDir(), "multimint.db"))
	require.NoError(t, err)
	defer store.Close()
	mnemonic, err := LoadOrGenerateMnemonic(store)
	require.NoError(t, err)

	badParser := func(string) (ids.FederationId, error) {
		return ids.FederationId{}, assertErr
	}
	reg, err := NewRegistry(context.Background(), store, mnemonic, badParser, testNewClient(nil))
	require.NoError(t, err)

	_, appErr := reg.RegisterNew(context.Background(), "bad-invite")
	require.NotNil(t, appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Category.Code())
}

var assertErr = errAlwaysInvalid{}

type errAlwaysInvalid struct{}

func (errAlwaysInvalid) Error() string { return "invite code could not be parsed" }
