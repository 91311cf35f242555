package monitor

import (
	"context"
	"testing"
	"time"

	"fmcd/internal/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastBalanceConfig() BalanceConfig {
	cfg := DefaultBalanceConfig()
	cfg.CheckInterval = 5 * time.Millisecond
	return cfg
}

func TestBalanceMonitor_FirstObservationAlwaysPublishes(t *testing.T) {
	reg, client := newTestRegistry(t)
	client.SetMintBalanceMsat(42000)

	bus := events.NewBus(10)
	sub := bus.Subscribe()
	defer sub.Close()

	b := NewBalanceMonitor(fastBalanceConfig(), reg, bus)
	b.Start(context.Background())
	defer b.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	msg, ok := sub.Recv(ctx)
	require.True(t, ok)

	updated, ok := msg.Event.(events.FederationBalanceUpdated)
	require.True(t, ok)
	assert.Equal(t, uint64(0), updated.PreviousMsat)
	assert.Equal(t, uint64(42000), updated.CurrentMsat)
	assert.Empty(t, updated.CorrelationID)
}

func TestBalanceMonitor_ChangeBelowThresholdIsSilent(t *testing.T) {
	reg, client := newTestRegistry(t)
	client.SetMintBalanceMsat(10000)

	bus := events.NewBus(10)
	b := NewBalanceMonitor(fastBalanceConfig(), reg, bus)

	b.tick(context.Background())

	sub := bus.Subscribe()
	defer sub.Close()

	// 500 msat below the 1000 msat threshold: no event.
	client.SetMintBalanceMsat(10500)
	b.tick(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, ok := sub.Recv(ctx)
	assert.False(t, ok)

	// Crossing the threshold publishes, with the previous value being the
	// last one actually emitted (the sub-threshold drift never updated it).
	client.SetMintBalanceMsat(12000)
	b.tick(context.Background())

	ctx2, cancel2 := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel2()
	msg, ok := sub.Recv(ctx2)
	require.True(t, ok)

	updated, ok := msg.Event.(events.FederationBalanceUpdated)
	require.True(t, ok)
	assert.Equal(t, uint64(10000), updated.PreviousMsat)
	assert.Equal(t, uint64(12000), updated.CurrentMsat)
}
