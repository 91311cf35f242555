package monitor

import (
	"context"
	"crypto/sha256"
	"path/filepath"
	"testing"
	"time"

	"fmcd/internal/events"
	"fmcd/internal/fedclient"
	"fmcd/internal/fedclient/memclient"
	"fmcd/internal/federation"
	"fmcd/internal/ids"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testParseInvite(inviteCode string) (ids.FederationId, error) {
	sum := sha256.Sum256([]byte(inviteCode))
	return ids.FederationId(sum), nil
}

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

	reg, err := federation.NewRegistry(context.Background(), store, mnemonic, testParseInvite, newClient)
	require.NoError(t, err)

	_, appErr := reg.RegisterNew(context.Background(), "invite-a")
	require.Nil(t, appErr)

	return reg, client
}

func fastDepositConfig() DepositConfig {
	cfg := DefaultDepositConfig()
	cfg.PollInterval = 5 * time.Millisecond
	cfg.DrainGrace = 5 * time.Millisecond
	return cfg
}

func TestDepositMonitor_ConfirmedPublishesDepositDetected(t *testing.T) {
	reg, client := newTestRegistry(t)
	fid := client.FederationID()
	bus := events.NewBus(10)
	sub := bus.Subscribe()
	defer sub.Close()

	d := NewDepositMonitor(fastDepositConfig(), reg, bus)
	opID := ids.OperationId("dep-1")
	require.True(t, d.Track(fid, opID))

	client.PushDepositState(opID, fedclient.OnchainDepositState{
		Kind:      fedclient.OnchainDepositConfirmed,
		AmountSat: 123456,
		Outpoint:  "aa00000000000000000000000000000000000000000000000000000000000000:0",
	})

	d.Start(context.Background())
	defer d.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	msg, ok := sub.Recv(ctx)
	require.True(t, ok)

	detected, ok := msg.Event.(events.DepositDetected)
	require.True(t, ok)
	assert.Equal(t, uint64(123456), detected.AmountSat)
	assert.Equal(t, "aa00000000000000000000000000000000000000000000000000000000000000", detected.Txid)

	require.Eventually(t, func() bool { return d.Tracked() == 0 }, time.Second, 5*time.Millisecond)
}

func TestDepositMonitor_FailedRemovesWithoutEvent(t *testing.T) {
	reg, client := newTestRegistry(t)
	fid := client.FederationID()
	bus := events.NewBus(10)
	sub := bus.Subscribe()
	defer sub.Close()

	d := NewDepositMonitor(fastDepositConfig(), reg, bus)
	opID := ids.OperationId("dep-fail")
	require.True(t, d.Track(fid, opID))

	client.PushDepositState(opID, fedclient.OnchainDepositState{
		Kind:          fedclient.OnchainDepositFailed,
		FailureReason: "transaction never appeared",
	})

	d.Start(context.Background())
	defer d.Stop()

	require.Eventually(t, func() bool { return d.Tracked() == 0 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, ok := sub.Recv(ctx)
	assert.False(t, ok)
}

func TestDepositMonitor_PerFederationCap(t *testing.T) {
	reg, client := newTestRegistry(t)
	fid := client.FederationID()

	cfg := fastDepositConfig()
	cfg.PerFederationCap = 1
	d := NewDepositMonitor(cfg, reg, nil)

	assert.True(t, d.Track(fid, "dep-1"))
	assert.False(t, d.Track(fid, "dep-2"))

	// Re-tracking a known operation does not consume a second slot.
	assert.True(t, d.Track(fid, "dep-1"))
}
