// Package monitor implements the two auxiliary monitors: the deposit
// monitor keeps a persistent subscription open per tracked deposit
// operation so confirmation fires within a bounded latency, and the
// balance monitor polls every registered federation's e-cash balance and
// emits a change event across threshold crossings. Both follow the same
// start/stop/shutdown-channel shape as internal/payment.Manager.
package monitor

import (
	"context"
	"sync"
	"time"

	"fmcd/internal/bitcoinutil"
	"fmcd/internal/events"
	"fmcd/internal/fedclient"
	"fmcd/internal/federation"
	"fmcd/internal/ids"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"fmcd/pkg/logger"
)

// DepositConfig governs the deposit monitor's poll cadence and cap.
type DepositConfig struct {
	PollInterval     time.Duration `toml:"poll_interval" env-default:"30s"`
	PerFederationCap int           `toml:"per_federation_cap" env-default:"1000"`
	DrainGrace       time.Duration `toml:"drain_grace" env-default:"100ms"`
}

// DefaultDepositConfig returns the documented defaults.
func DefaultDepositConfig() DepositConfig {
	return DepositConfig{PollInterval: 30 * time.Second, PerFederationCap: 1000, DrainGrace: 100 * time.Millisecond}
}

type depositSubscription struct {
	federationID ids.FederationId
	stream       fedclient.StateStream[fedclient.OnchainDepositState]
}

// DepositMonitor keeps a persistent subscription per tracked deposit
// operation independent of the payment lifecycle manager, so deposits
// allocated but not yet at the point of a tracked lifecycle-manager
// operation are still observed.
type DepositMonitor struct {
	cfg      DepositConfig
	registry *federation.Registry
	bus      *events.Bus

	mu    sync.Mutex
	subs  map[ids.OperationId]*depositSubscription
	caps  map[ids.FederationId]*semaphore.Weighted

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewDepositMonitor constructs a DepositMonitor. Start must be called to
// begin polling.
func NewDepositMonitor(cfg DepositConfig, registry *federation.Registry, bus *events.Bus) *DepositMonitor {
	return &DepositMonitor{
		cfg:      cfg,
		registry: registry,
		bus:      bus,
		subs:     make(map[ids.OperationId]*depositSubscription),
		caps:     make(map[ids.FederationId]*semaphore.Weighted),
	}
}

// Track registers operationID for monitoring. Exceeding the per-federation
// cap returns false and logs; the caller (create_deposit_address) still
// holds its own lifecycle-manager tracking so the deposit is not lost.
func (d *DepositMonitor) Track(federationID ids.FederationId, operationID ids.OperationId) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.subs[operationID]; ok {
		return true
	}

	sem, ok := d.caps[federationID]
	if !ok {
		sem = semaphore.NewWeighted(int64(d.cfg.PerFederationCap))
		d.caps[federationID] = sem
	}
	if !sem.TryAcquire(1) {
		logger.Warn("deposit monitor per-federation cap reached", zap.String("federation_id", federationID.String()))
		return false
	}

	d.subs[operationID] = &depositSubscription{federationID: federationID}
	return true
}

// Start launches the poll loop.
func (d *DepositMonitor) Start(ctx context.Context) {
	if d.stopCh != nil {
		return
	}
	d.stopCh = make(chan struct{})
	d.doneCh = make(chan struct{})
	go d.loop(ctx)
}

// Stop signals the poll loop to exit and waits for it to finish.
func (d *DepositMonitor) Stop() {
	if d.stopCh == nil {
		return
	}
	close(d.stopCh)
	<-d.doneCh
	d.stopCh = nil
}

func (d *DepositMonitor) loop(ctx context.Context) {
	defer close(d.doneCh)

	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.stopCh:
			return
		case <-ticker.C:
			d.tick(ctx)
		}
	}
}

func (d *DepositMonitor) tick(ctx context.Context) {
	type entry struct {
		operationID ids.OperationId
		sub         *depositSubscription
	}

	d.mu.Lock()
	entries := make([]entry, 0, len(d.subs))
	for opID, sub := range d.subs {
		entries = append(entries, entry{opID, sub})
	}
	d.mu.Unlock()

	for _, e := range entries {
		handle, ok := d.registry.Get(e.sub.federationID)
		if !ok {
			d.remove(e.operationID)
			continue
		}

		if e.sub.stream == nil {
			stream, err := handle.Client.Wallet().SubscribeDeposit(ctx, e.operationID)
			if err != nil {
				logger.Warn("deposit monitor failed to open subscription", zap.String("operation_id", e.operationID.String()), zap.Error(err))
				continue
			}
			e.sub.stream = stream
		}

		d.drainOne(ctx, e.operationID, e.sub)
	}
}

func (d *DepositMonitor) drainOne(ctx context.Context, operationID ids.OperationId, sub *depositSubscription) {
	deadline := time.Now().Add(d.cfg.DrainGrace)
	var last fedclient.OnchainDepositState
	var got bool

	for {
		state, ok, err := sub.stream.Next(ctx)
		if err != nil {
			logger.Warn("deposit monitor subscription disconnected, will re-open next tick", zap.String("operation_id", operationID.String()), zap.Error(err))
			sub.stream.Close()
			sub.stream = nil
			return
		}
		if ok {
			last = state
			got = true
			continue
		}
		if time.Now().After(deadline) {
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(5 * time.Millisecond):
		}
	}

	if !got {
		return
	}

	switch last.Kind {
	case fedclient.OnchainDepositConfirmed, fedclient.OnchainDepositClaimed:
		txid := last.Outpoint
		if hash, _, err := bitcoinutil.ParseOutpoint(last.Outpoint); err == nil {
			txid = hash.String()
		}
		d.publish(sub.federationID, events.DepositDetected{
			Base:        events.NewBase("", sub.federationID.String()),
			OperationID: operationID.String(),
			AmountSat:   last.AmountSat,
			Txid:        txid,
		})
		d.remove(operationID)
	case fedclient.OnchainDepositFailed:
		d.remove(operationID)
	}
}

func (d *DepositMonitor) publish(_ ids.FederationId, event events.FmcdEvent) {
	if d.bus == nil {
		return
	}
	d.bus.Publish(context.Background(), event)
}

func (d *DepositMonitor) remove(operationID ids.OperationId) {
	d.mu.Lock()
	defer d.mu.Unlock()
	sub, ok := d.subs[operationID]
	if !ok {
		return
	}
	if sub.stream != nil {
		sub.stream.Close()
	}
	delete(d.subs, operationID)
	if sem, ok := d.caps[sub.federationID]; ok {
		sem.Release(1)
	}
}

// Tracked reports how many operations are currently monitored, for tests.
func (d *DepositMonitor) Tracked() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.subs)
}
