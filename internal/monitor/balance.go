package monitor

import (
	"context"
	"sync"
	"time"

	"fmcd/internal/events"
	"fmcd/internal/federation"
	"fmcd/internal/ids"

	"go.uber.org/zap"

	"fmcd/pkg/logger"
)

// BalanceConfig governs the balance monitor's poll cadence and the change
// threshold below which no event is emitted.
type BalanceConfig struct {
	CheckInterval time.Duration `toml:"check_interval" env-default:"60s"`
	ThresholdMsat uint64        `toml:"threshold_msat" env-default:"1000"`
}

// DefaultBalanceConfig returns the documented defaults (60 s interval,
// 1 sat threshold).
func DefaultBalanceConfig() BalanceConfig {
	return BalanceConfig{CheckInterval: 60 * time.Second, ThresholdMsat: 1000}
}

// BalanceMonitor polls every registered federation's e-cash balance and
// publishes FederationBalanceUpdated across threshold crossings. The
// first observation for a federation always publishes.
type BalanceMonitor struct {
	cfg      BalanceConfig
	registry *federation.Registry
	bus      *events.Bus

	mu   sync.Mutex
	last map[ids.FederationId]uint64

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewBalanceMonitor constructs a BalanceMonitor. Start must be called to
// begin polling.
func NewBalanceMonitor(cfg BalanceConfig, registry *federation.Registry, bus *events.Bus) *BalanceMonitor {
	return &BalanceMonitor{
		cfg:      cfg,
		registry: registry,
		bus:      bus,
		last:     make(map[ids.FederationId]uint64),
	}
}

// Start launches the check loop.
func (b *BalanceMonitor) Start(ctx context.Context) {
	if b.stopCh != nil {
		return
	}
	b.stopCh = make(chan struct{})
	b.doneCh = make(chan struct{})
	go b.loop(ctx)
}

// Stop signals the check loop to exit and waits for it to finish.
func (b *BalanceMonitor) Stop() {
	if b.stopCh == nil {
		return
	}
	close(b.stopCh)
	<-b.doneCh
	b.stopCh = nil
}

func (b *BalanceMonitor) loop(ctx context.Context) {
	defer close(b.doneCh)

	ticker := time.NewTicker(b.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopCh:
			return
		case <-ticker.C:
			b.tick(ctx)
		}
	}
}

func (b *BalanceMonitor) tick(ctx context.Context) {
	for _, fid := range b.registry.IDs() {
		handle, ok := b.registry.Get(fid)
		if !ok {
			continue
		}

		current, err := handle.Client.Mint().BalanceMsat(ctx)
		if err != nil {
			logger.Warn("balance monitor failed to query federation balance",
				zap.String("federation_id", fid.String()),
				zap.Error(err))
			continue
		}

		b.mu.Lock()
		previous, seen := b.last[fid]
		changed := !seen || absDiff(current, previous) >= b.cfg.ThresholdMsat
		if changed {
			b.last[fid] = current
		}
		b.mu.Unlock()

		if !changed {
			continue
		}

		// Balance events carry no correlation id: they are not
		// request-driven.
		b.bus.Publish(ctx, events.FederationBalanceUpdated{
			Base:         events.NewBase("", fid.String()),
			PreviousMsat: previous,
			CurrentMsat:  current,
		})
	}
}

func absDiff(a, b uint64) uint64 {
	if a > b {
		return a - b
	}
	return b - a
}
