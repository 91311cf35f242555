// Package appstate is the facade callers (HTTP/WS transport, CLI) invoke
// the core through: federation lookup and join, invoice create/pay,
// on-chain deposit/withdraw, the per-federation info snapshot, and
// start/stop of the monitoring services. Every request carries a
// correlation.RequestContext that is attached to each resulting event and
// error, and every request passes the per-correlation-id rate limiter
// before touching a federation client.
package appstate

import (
	"context"
	"encoding/hex"

	"fmcd/internal/correlation"
	"fmcd/internal/errors"
	"fmcd/internal/events"
	"fmcd/internal/federation"
	"fmcd/internal/ids"
	"fmcd/internal/lnpay"
	"fmcd/internal/monitor"
	"fmcd/internal/payment"
)

// AppState wires the core's subsystems together behind one call surface.
type AppState struct {
	registry *federation.Registry
	manager  *payment.Manager
	deposits *monitor.DepositMonitor
	balances *monitor.BalanceMonitor
	bus      *events.Bus
	limiter  *correlation.Limiter
	resolver lnpay.PaymentInfoResolver
}

// New constructs an AppState over already-constructed subsystems. The
// resolver is the default destination resolver used when a caller does not
// supply its own (an LNURL-capable transport passes one per request).
func New(
	registry *federation.Registry,
	manager *payment.Manager,
	deposits *monitor.DepositMonitor,
	balances *monitor.BalanceMonitor,
	bus *events.Bus,
	limiter *correlation.Limiter,
	resolver lnpay.PaymentInfoResolver,
) *AppState {
	return &AppState{
		registry: registry,
		manager:  manager,
		deposits: deposits,
		balances: balances,
		bus:      bus,
		limiter:  limiter,
		resolver: resolver,
	}
}

// GetClient looks up a federation client by its full hex id.
func (a *AppState) GetClient(federationIDHex string) (*federation.Handle, *errors.AppError) {
	fid, err := ids.FederationIdFromHex(federationIDHex)
	if err != nil {
		return nil, errors.ValidationErrorf("invalid federation id %q: %v", federationIDHex, err)
	}

	handle, ok := a.registry.Get(fid)
	if !ok {
		return nil, errors.FederationNotFoundf("federation %s is not registered", federationIDHex)
	}
	return handle, nil
}

// GetClientByPrefix looks up a federation client by a hex id prefix. An
// ambiguous prefix is an error, never tie-broken.
func (a *AppState) GetClientByPrefix(prefixHex string) (*federation.Handle, *errors.AppError) {
	prefix, err := hex.DecodeString(prefixHex)
	if err != nil {
		return nil, errors.ValidationErrorf("invalid federation id prefix %q: %v", prefixHex, err)
	}
	return a.registry.GetByPrefix(prefix)
}

// JoinFederationResponse reports the joined federation's id plus the full
// set of registered ids after the join.
type JoinFederationResponse struct {
	ThisFederationID string   `json:"thisFederationId"`
	AllFederationIDs []string `json:"allFederationIds"`
}

// JoinFederation registers a federation from inviteCode. Re-joining an
// already-registered federation returns the existing id without
// constructing a second client.
func (a *AppState) JoinFederation(ctx context.Context, inviteCode string, reqCtx correlation.RequestContext) (JoinFederationResponse, *errors.AppError) {
	if appErr := a.checkRateLimit(reqCtx); appErr != nil {
		return JoinFederationResponse{}, appErr
	}

	handle, appErr := a.registry.RegisterNew(ctx, inviteCode)
	if appErr != nil {
		return JoinFederationResponse{}, appErr.WithCorrelation(reqCtx.CorrelationID, reqCtx.RequestID)
	}

	fid := handle.Client.FederationID()
	a.bus.Publish(ctx, events.FederationConnected{
		Base:       events.NewBase(reqCtx.CorrelationID, fid.String()),
		InviteCode: inviteCode,
	})

	all := a.registry.IDs()
	resp := JoinFederationResponse{
		ThisFederationID: fid.String(),
		AllFederationIDs: make([]string, 0, len(all)),
	}
	for _, id := range all {
		resp.AllFederationIDs = append(resp.AllFederationIDs, id.String())
	}
	return resp, nil
}

// GetInfo returns each registered federation's info snapshot, keyed by
// federation id. A federation whose client cannot answer is skipped rather
// than failing the whole map.
func (a *AppState) GetInfo(ctx context.Context) map[string]InfoResponse {
	out := make(map[string]InfoResponse)
	for _, fid := range a.registry.IDs() {
		handle, ok := a.registry.Get(fid)
		if !ok {
			continue
		}

		summary, err := handle.Client.Mint().Summary(ctx)
		if err != nil {
			continue
		}

		out[fid.String()] = InfoResponse{
			FederationID:      fid.String(),
			Network:           summary.Network,
			Meta:              summary.Meta,
			TotalAmountMsat:   summary.TotalAmountMsat,
			TotalNumNotes:     summary.TotalNumNotes,
			DenominationsMsat: summary.DenominationsMsat,
		}
	}
	return out
}

// StartMonitoringServices starts the lifecycle manager (including its
// crash-recovery sweep), the deposit monitor, and the balance monitor.
func (a *AppState) StartMonitoringServices(ctx context.Context) {
	a.manager.Start(ctx)
	a.deposits.Start(ctx)
	a.balances.Start(ctx)
}

// StopMonitoringServices stops the monitors and the lifecycle manager,
// waiting for each loop to exit.
func (a *AppState) StopMonitoringServices() {
	a.balances.Stop()
	a.deposits.Stop()
	a.manager.Stop()
}

// checkRateLimit applies the per-correlation-id rate limit, stamping the
// request identifiers onto any rejection.
func (a *AppState) checkRateLimit(reqCtx correlation.RequestContext) *errors.AppError {
	if a.limiter == nil {
		return nil
	}
	if appErr := a.limiter.Check(reqCtx.CorrelationID); appErr != nil {
		return appErr.WithCorrelation(reqCtx.CorrelationID, reqCtx.RequestID)
	}
	return nil
}
