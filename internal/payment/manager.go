package payment

import (
	"context"
	"sync"
	"time"

	"fmcd/internal/errors"
	"fmcd/internal/events"
	"fmcd/internal/federation"
	"fmcd/internal/fedclient"
	"fmcd/internal/ids"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"fmcd/pkg/logger"
)

// Config governs the manager's processing loop and crash recovery sweep.
type Config struct {
	PollInterval     time.Duration `toml:"poll_interval" env-default:"5s"`
	OperationTimeout time.Duration `toml:"operation_timeout" env-default:"24h"`
	PerFederationCap int           `toml:"per_federation_cap" env-default:"1000"`
	RecoveryLimit    int           `toml:"recovery_limit" env-default:"100"`
	DrainGrace       time.Duration `toml:"drain_grace" env-default:"100ms"`
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		PollInterval:     5 * time.Second,
		OperationTimeout: 24 * time.Hour,
		PerFederationCap: 1000,
		RecoveryLimit:    100,
		DrainGrace:       100 * time.Millisecond,
	}
}

// Manager is the payment lifecycle manager: it owns the active set
// of tracked operations, drives each to a terminal state, and resurrects
// crashed operations from the federation client's operation log on start.
type Manager struct {
	cfg      Config
	registry *federation.Registry
	bus      *events.Bus

	mu   sync.RWMutex
	ops  map[ids.OperationId]*PaymentOperation
	caps map[ids.FederationId]*semaphore.Weighted

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewManager constructs a Manager. Start must be called before it does
// anything; constructing it alone registers no background work.
func NewManager(cfg Config, registry *federation.Registry, bus *events.Bus) *Manager {
	return &Manager{
		cfg:      cfg,
		registry: registry,
		bus:      bus,
		ops:      make(map[ids.OperationId]*PaymentOperation),
		caps:     make(map[ids.FederationId]*semaphore.Weighted),
	}
}

// --- Tracking API ------------------------------------------------

func (m *Manager) TrackLightningReceive(operationID ids.OperationId, federationID ids.FederationId, amountMsat uint64, metadata map[string]any, correlationID string) *errors.AppError {
	return m.track(&PaymentOperation{
		OperationID:   operationID,
		FederationID:  federationID,
		PaymentType:   LightningReceive,
		AmountMsat:    amountMsat,
		CreatedAt:     time.Now(),
		Metadata:      metadata,
		CorrelationID: correlationID,
	})
}

func (m *Manager) TrackLightningPay(operationID ids.OperationId, federationID ids.FederationId, amountMsat uint64, metadata map[string]any, correlationID string) *errors.AppError {
	return m.track(&PaymentOperation{
		OperationID:   operationID,
		FederationID:  federationID,
		PaymentType:   LightningPay,
		AmountMsat:    amountMsat,
		CreatedAt:     time.Now(),
		Metadata:      metadata,
		CorrelationID: correlationID,
	})
}

// TrackOnchainDeposit registers a deposit whose amount is unknown until
// the stream reports its first Confirmed state.
func (m *Manager) TrackOnchainDeposit(operationID ids.OperationId, federationID ids.FederationId, metadata map[string]any, correlationID string) *errors.AppError {
	return m.track(&PaymentOperation{
		OperationID:   operationID,
		FederationID:  federationID,
		PaymentType:   OnchainDeposit,
		CreatedAt:     time.Now(),
		Metadata:      metadata,
		CorrelationID: correlationID,
	})
}

func (m *Manager) TrackOnchainWithdraw(operationID ids.OperationId, federationID ids.FederationId, amountSat uint64, metadata map[string]any, correlationID string) *errors.AppError {
	return m.track(&PaymentOperation{
		OperationID:   operationID,
		FederationID:  federationID,
		PaymentType:   OnchainWithdraw,
		AmountMsat:    amountSat * 1000,
		CreatedAt:     time.Now(),
		Metadata:      metadata,
		CorrelationID: correlationID,
	})
}

// capFor returns the semaphore bounding op.FederationID's concurrent
// tracked-operation count, creating it on first use.
func (m *Manager) capFor(federationID ids.FederationId) *semaphore.Weighted {
	sem, ok := m.caps[federationID]
	if !ok {
		sem = semaphore.NewWeighted(int64(m.cfg.PerFederationCap))
		m.caps[federationID] = sem
	}
	return sem
}

// track inserts op, enforcing the per-federation cap (default 1000) via a
// weighted semaphore, and idempotent re-tracking of an operation id
// already known.
func (m *Manager) track(op *PaymentOperation) *errors.AppError {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.ops[op.OperationID]; exists {
		return nil
	}

	if !m.capFor(op.FederationID).TryAcquire(1) {
		return errors.RateLimitedf("federation %s has reached its per-federation operation cap of %d", op.FederationID, m.cfg.PerFederationCap)
	}

	m.ops[op.OperationID] = op
	return nil
}

func (m *Manager) remove(op *PaymentOperation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.ops[op.OperationID]; !ok {
		return
	}
	delete(m.ops, op.OperationID)
	m.capFor(op.FederationID).Release(1)
}

func (m *Manager) snapshot() []*PaymentOperation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*PaymentOperation, 0, len(m.ops))
	for _, op := range m.ops {
		out = append(out, op)
	}
	return out
}

// Tracked reports how many operations are currently tracked, for tests and
// for the admin info surface.
func (m *Manager) Tracked() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ops)
}

// --- Lifecycle -----------------------------------------------------------

// Start runs the crash-recovery sweep and launches the processing loop
//. Calling Start twice without an intervening Stop is a no-op
// on the second call.
func (m *Manager) Start(ctx context.Context) {
	if m.stopCh != nil {
		return
	}
	m.recoverAll(ctx)

	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	go m.loop(ctx)
}

// Stop signals the processing loop to exit and waits for it to finish.
func (m *Manager) Stop() {
	if m.stopCh == nil {
		return
	}
	close(m.stopCh)
	<-m.doneCh
	m.stopCh = nil
}

func (m *Manager) loop(ctx context.Context) {
	defer close(m.doneCh)

	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

// tick is one pass of the processing loop: evict timed-out entries, group
// the rest by federation, drain each operation's stream, and act on the
// last observed state.
func (m *Manager) tick(ctx context.Context) {
	now := time.Now()
	byFederation := make(map[ids.FederationId][]*PaymentOperation)

	for _, op := range m.snapshot() {
		if now.Sub(op.CreatedAt) > m.cfg.OperationTimeout {
			logger.Warn("evicting timed-out payment operation",
				zap.String("operation_id", op.OperationID.String()),
				zap.String("federation_id", op.FederationID.String()),
				zap.String("payment_type", op.PaymentType.String()))
			m.remove(op)
			continue
		}
		byFederation[op.FederationID] = append(byFederation[op.FederationID], op)
	}

	for fid, ops := range byFederation {
		handle, ok := m.registry.Get(fid)
		if !ok {
			logger.Warn("federation no longer registered, skipping its tracked operations", zap.String("federation_id", fid.String()))
			continue
		}
		for _, op := range ops {
			m.processOperation(ctx, handle.Client, op)
		}
	}
}

func (m *Manager) processOperation(ctx context.Context, client fedclient.Client, op *PaymentOperation) {
	switch op.PaymentType {
	case LightningReceive:
		m.processLightningReceive(ctx, client, op)
	case LightningPay:
		m.processLightningPay(ctx, client, op)
	case OnchainDeposit:
		m.processOnchainDeposit(ctx, client, op)
	case OnchainWithdraw:
		m.processOnchainWithdraw(ctx, client, op)
	}
}

func (m *Manager) processLightningReceive(ctx context.Context, client fedclient.Client, op *PaymentOperation) {
	stream, err := client.Lightning().SubscribeReceive(ctx, op.OperationID)
	if err != nil {
		logger.Warn("failed to subscribe to lightning receive", zap.String("operation_id", op.OperationID.String()), zap.Error(err))
		return
	}
	defer stream.Close()

	state, ok, err := drain(ctx, stream, m.cfg.DrainGrace)
	if err != nil {
		logger.Warn("lightning receive stream error", zap.String("operation_id", op.OperationID.String()), zap.Error(err))
		return
	}
	if !ok {
		return
	}

	switch state.Kind {
	case fedclient.LnReceiveClaimed:
		op.ClaimAttempted = true
		op.EcashClaimed = true
		amount := op.AmountMsat
		if amount == 0 {
			amount = state.AmountReceivedMsat
		}
		m.publish(op, events.InvoicePaid{
			Base:               events.NewBase(op.CorrelationID, op.FederationID.String()),
			OperationID:        op.OperationID.String(),
			InvoiceID:          op.metadataString("invoice_id"),
			AmountReceivedMsat: amount,
		})
		m.remove(op)
	case fedclient.LnReceiveCanceled:
		m.publish(op, events.InvoiceExpired{
			Base:        events.NewBase(op.CorrelationID, op.FederationID.String()),
			OperationID: op.OperationID.String(),
			InvoiceID:   op.metadataString("invoice_id"),
			Reason:      state.CanceledReason,
		})
		m.remove(op)
	}
}

func (m *Manager) processLightningPay(ctx context.Context, client fedclient.Client, op *PaymentOperation) {
	stream, err := client.Lightning().SubscribePay(ctx, op.OperationID)
	if err != nil {
		logger.Warn("failed to subscribe to lightning pay", zap.String("operation_id", op.OperationID.String()), zap.Error(err))
		return
	}
	defer stream.Close()

	state, ok, err := drain(ctx, stream, m.cfg.DrainGrace)
	if err != nil {
		logger.Warn("lightning pay stream error", zap.String("operation_id", op.OperationID.String()), zap.Error(err))
		return
	}
	if !ok {
		return
	}

	switch state.Kind {
	case fedclient.LnPaySuccess:
		op.ClaimAttempted = true
		op.EcashClaimed = true
		m.publish(op, events.PaymentSucceeded{
			Base:        events.NewBase(op.CorrelationID, op.FederationID.String()),
			OperationID: op.OperationID.String(),
			PaymentHash: op.metadataString("payment_hash"),
			Preimage:    state.Preimage,
			AmountMsat:  op.AmountMsat,
			FeeMsat:     state.FeeMsat,
		})
		m.remove(op)
	case fedclient.LnPayRefunded:
		m.publish(op, events.PaymentRefunded{
			Base:        events.NewBase(op.CorrelationID, op.FederationID.String()),
			OperationID: op.OperationID.String(),
			Reason:      state.FailureReason,
		})
		m.remove(op)
	case fedclient.LnPayCanceled, fedclient.LnPayUnexpectedError:
		m.publish(op, events.PaymentFailed{
			Base:        events.NewBase(op.CorrelationID, op.FederationID.String()),
			OperationID: op.OperationID.String(),
			Reason:      state.FailureReason,
		})
		m.remove(op)
	}
}

func (m *Manager) processOnchainDeposit(ctx context.Context, client fedclient.Client, op *PaymentOperation) {
	stream, err := client.Wallet().SubscribeDeposit(ctx, op.OperationID)
	if err != nil {
		logger.Warn("failed to subscribe to onchain deposit", zap.String("operation_id", op.OperationID.String()), zap.Error(err))
		return
	}
	defer stream.Close()

	state, ok, err := drain(ctx, stream, m.cfg.DrainGrace)
	if err != nil {
		logger.Warn("onchain deposit stream error", zap.String("operation_id", op.OperationID.String()), zap.Error(err))
		return
	}
	if !ok {
		return
	}

	if state.Kind == fedclient.OnchainDepositConfirmed || state.Kind == fedclient.OnchainDepositClaimed {
		op.AmountMsat = state.AmountSat * 1000
	}

	switch state.Kind {
	case fedclient.OnchainDepositClaimed:
		op.ClaimAttempted = true
		op.EcashClaimed = true
		m.publish(op, events.DepositClaimed{
			Base:        events.NewBase(op.CorrelationID, op.FederationID.String()),
			OperationID: op.OperationID.String(),
			AmountSat:   state.AmountSat,
			Outpoint:    state.Outpoint,
		})
		m.remove(op)
	case fedclient.OnchainDepositFailed:
		// No dedicated "deposit failed" event is defined; the generic
		// terminal-failure event carries the operation id and reason.
		m.publish(op, events.PaymentFailed{
			Base:        events.NewBase(op.CorrelationID, op.FederationID.String()),
			OperationID: op.OperationID.String(),
			Reason:      state.FailureReason,
		})
		m.remove(op)
	}
}

func (m *Manager) processOnchainWithdraw(ctx context.Context, client fedclient.Client, op *PaymentOperation) {
	stream, err := client.Wallet().SubscribeWithdraw(ctx, op.OperationID)
	if err != nil {
		logger.Warn("failed to subscribe to onchain withdraw", zap.String("operation_id", op.OperationID.String()), zap.Error(err))
		return
	}
	defer stream.Close()

	state, ok, err := drain(ctx, stream, m.cfg.DrainGrace)
	if err != nil {
		logger.Warn("onchain withdraw stream error", zap.String("operation_id", op.OperationID.String()), zap.Error(err))
		return
	}
	if !ok {
		return
	}

	switch state.Kind {
	case fedclient.OnchainWithdrawSucceeded:
		op.ClaimAttempted = true
		op.EcashClaimed = true
		feesSat, _ := op.Metadata["estimated_fee_sat"].(uint64)
		m.publish(op, events.WithdrawalSucceeded{
			Base:        events.NewBase(op.CorrelationID, op.FederationID.String()),
			OperationID: op.OperationID.String(),
			Txid:        state.Txid,
			FeesSat:     feesSat,
		})
		m.remove(op)
	case fedclient.OnchainWithdrawFailed:
		m.publish(op, events.WithdrawalFailed{
			Base:        events.NewBase(op.CorrelationID, op.FederationID.String()),
			OperationID: op.OperationID.String(),
			Reason:      state.FailureReason,
		})
		m.remove(op)
	}
}

func (m *Manager) publish(op *PaymentOperation, event events.FmcdEvent) {
	if m.bus == nil {
		return
	}
	m.bus.Publish(context.Background(), event)
}

// drain reads every immediately-available state update from stream within
// a short grace window and returns the last one observed.
func drain[T any](ctx context.Context, stream fedclient.StateStream[T], grace time.Duration) (T, bool, error) {
	var last T
	var got bool
	deadline := time.Now().Add(grace)

	for {
		state, ok, err := stream.Next(ctx)
		if err != nil {
			return last, got, err
		}
		if ok {
			last = state
			got = true
			continue
		}
		if time.Now().After(deadline) {
			return last, got, nil
		}
		select {
		case <-ctx.Done():
			return last, got, nil
		case <-time.After(5 * time.Millisecond):
		}
	}
}
