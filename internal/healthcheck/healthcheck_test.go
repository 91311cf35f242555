package healthcheck

import (
	"context"
	"crypto/sha256"
	"path/filepath"
	"testing"

	"fmcd/internal/fedclient"
	"fmcd/internal/fedclient/memclient"
	"fmcd/internal/federation"
	"fmcd/internal/ids"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) (*federation.Registry, *memclient.Client) {
	t.Helper()
	store, err := federation.OpenStore(filepath.Join(t.TempDir(), "multimint.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	mnemonic, err := federation.LoadOrGenerateMnemonic(store)
	require.NoError(t, err)

	var client *memclient.Client
	newClient := func(_ context.Context, federationID ids.FederationId, _ [32]byte, _ string) (fedclient.Client, error) {
		client = memclient.New(federationID)
		return client, nil
	}

	parseInvite := func(inviteCode string) (ids.FederationId, error) {
		sum := sha256.Sum256([]byte(inviteCode))
		return ids.FederationId(sum), nil
	}

	reg, err := federation.NewRegistry(context.Background(), store, mnemonic, parseInvite, newClient)
	require.NoError(t, err)

	_, appErr := reg.RegisterNew(context.Background(), "invite-a")
	require.Nil(t, appErr)

	return reg, client
}

func TestCheck_HealthyWithOneAnsweringFederation(t *testing.T) {
	reg, client := newTestRegistry(t)
	client.SetMintBalanceMsat(5000)

	checker := NewChecker(reg, nil)
	report := checker.Check(context.Background())

	assert.Equal(t, StatusHealthy, report.Status)
	require.Len(t, report.Federations, 1)
	assert.True(t, report.Federations[0].Connected)
	assert.Equal(t, uint64(5000), report.Federations[0].BalanceMsat)
	assert.Equal(t, client.FederationID().String(), report.Federations[0].FederationID)
}

func TestCheck_NoFederationsIsStillHealthy(t *testing.T) {
	store, err := federation.OpenStore(filepath.Join(t.TempDir(), "multimint.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	mnemonic, err := federation.LoadOrGenerateMnemonic(store)
	require.NoError(t, err)

	reg, err := federation.NewRegistry(context.Background(), store, mnemonic,
		func(string) (ids.FederationId, error) { return ids.FederationId{}, nil },
		func(context.Context, ids.FederationId, [32]byte, string) (fedclient.Client, error) { return nil, nil })
	require.NoError(t, err)

	report := NewChecker(reg, nil).Check(context.Background())
	assert.Equal(t, StatusHealthy, report.Status)
	assert.Empty(t, report.Federations)
}
