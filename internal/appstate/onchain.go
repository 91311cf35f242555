package appstate

import (
	"context"

	"fmcd/internal/bitcoinutil"
	"fmcd/internal/correlation"
	"fmcd/internal/errors"
	"fmcd/internal/events"
)

// CreateDepositAddress allocates a fresh on-chain address, registers the
// deposit with both the lifecycle manager and the deposit monitor, and
// publishes DepositAddressGenerated.
func (a *AppState) CreateDepositAddress(ctx context.Context, req DepositAddressRequest, reqCtx correlation.RequestContext) (DepositAddressResponse, *errors.AppError) {
	if appErr := a.checkRateLimit(reqCtx); appErr != nil {
		return DepositAddressResponse{}, appErr
	}

	handle, appErr := a.GetClient(req.FederationID)
	if appErr != nil {
		return DepositAddressResponse{}, appErr.WithCorrelation(reqCtx.CorrelationID, reqCtx.RequestID)
	}
	fid := handle.Client.FederationID()

	address, opID, tweakIdx, err := handle.Client.Wallet().AllocateDepositAddress(ctx)
	if err != nil {
		return DepositAddressResponse{}, errors.Wrap(errors.FederationUnavailable, err, "federation could not allocate a deposit address").
			WithCorrelation(reqCtx.CorrelationID, reqCtx.RequestID)
	}

	metadata := map[string]any{"address": address}
	if appErr := a.manager.TrackOnchainDeposit(opID, fid, metadata, reqCtx.CorrelationID); appErr != nil {
		return DepositAddressResponse{}, appErr.WithCorrelation(reqCtx.CorrelationID, reqCtx.RequestID)
	}
	a.deposits.Track(fid, opID)

	a.bus.Publish(ctx, events.DepositAddressGenerated{
		Base:        events.NewBase(reqCtx.CorrelationID, fid.String()),
		OperationID: opID.String(),
		Address:     address,
		TweakIdx:    tweakIdx,
	})

	return DepositAddressResponse{
		Address:     address,
		OperationID: opID.String(),
		TweakIdx:    tweakIdx,
	}, nil
}

// Withdraw validates the destination address and the requested amount
// against the federation's spendable balance and fee estimate, initiates
// the withdrawal, registers the operation, and publishes
// WithdrawalInitiated.
func (a *AppState) Withdraw(ctx context.Context, req WithdrawRequest, reqCtx correlation.RequestContext) (WithdrawResponse, *errors.AppError) {
	if appErr := a.checkRateLimit(reqCtx); appErr != nil {
		return WithdrawResponse{}, appErr
	}

	handle, appErr := a.GetClient(req.FederationID)
	if appErr != nil {
		return WithdrawResponse{}, appErr.WithCorrelation(reqCtx.CorrelationID, reqCtx.RequestID)
	}
	fid := handle.Client.FederationID()
	wallet := handle.Client.Wallet()

	summary, err := handle.Client.Mint().Summary(ctx)
	if err != nil {
		return WithdrawResponse{}, errors.Wrap(errors.FederationUnavailable, err, "could not read federation info").
			WithCorrelation(reqCtx.CorrelationID, reqCtx.RequestID)
	}
	if err := bitcoinutil.ValidateAddress(req.Address, summary.Network); err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			return WithdrawResponse{}, appErr.WithCorrelation(reqCtx.CorrelationID, reqCtx.RequestID)
		}
		return WithdrawResponse{}, errors.Wrap(errors.ValidationError, err, "invalid withdrawal address").
			WithCorrelation(reqCtx.CorrelationID, reqCtx.RequestID)
	}

	balanceSat, err := wallet.SpendableBalanceSat(ctx)
	if err != nil {
		return WithdrawResponse{}, errors.Wrap(errors.FederationUnavailable, err, "could not read wallet balance").
			WithCorrelation(reqCtx.CorrelationID, reqCtx.RequestID)
	}

	feeBasis := req.AmountSat
	if req.All {
		feeBasis = balanceSat
	}
	feeSat, err := wallet.EstimateWithdrawFeeSat(ctx, req.Address, feeBasis)
	if err != nil {
		return WithdrawResponse{}, errors.Wrap(errors.FederationUnavailable, err, "could not estimate withdrawal fee").
			WithCorrelation(reqCtx.CorrelationID, reqCtx.RequestID)
	}

	amountSat := req.AmountSat
	if req.All {
		if balanceSat <= feeSat {
			return WithdrawResponse{}, errors.ValidationErrorf(
				"Insufficient balance: %d sat available, %d sat estimated fee", balanceSat, feeSat).
				WithCorrelation(reqCtx.CorrelationID, reqCtx.RequestID)
		}
		amountSat = balanceSat - feeSat
	} else {
		if amountSat == 0 {
			return WithdrawResponse{}, errors.ValidationErrorf("withdrawal amount must be greater than zero").
				WithCorrelation(reqCtx.CorrelationID, reqCtx.RequestID)
		}
		if amountSat+feeSat > balanceSat {
			return WithdrawResponse{}, errors.InsufficientFundsf(
				"withdrawal of %d sat plus %d sat fee exceeds the %d sat balance", amountSat, feeSat, balanceSat).
				WithCorrelation(reqCtx.CorrelationID, reqCtx.RequestID)
		}
	}

	opID, err := wallet.Withdraw(ctx, req.Address, amountSat, req.All)
	if err != nil {
		return WithdrawResponse{}, errors.Wrap(errors.FederationUnavailable, err, "federation could not initiate the withdrawal").
			WithCorrelation(reqCtx.CorrelationID, reqCtx.RequestID)
	}

	metadata := map[string]any{"recipient": req.Address, "estimated_fee_sat": feeSat}
	if appErr := a.manager.TrackOnchainWithdraw(opID, fid, amountSat, metadata, reqCtx.CorrelationID); appErr != nil {
		return WithdrawResponse{}, appErr.WithCorrelation(reqCtx.CorrelationID, reqCtx.RequestID)
	}

	a.bus.Publish(ctx, events.WithdrawalInitiated{
		Base:        events.NewBase(reqCtx.CorrelationID, fid.String()),
		OperationID: opID.String(),
		Address:     req.Address,
		AmountSat:   amountSat,
	})

	return WithdrawResponse{
		OperationID: opID.String(),
		AmountSat:   amountSat,
		FeesSat:     feeSat,
	}, nil
}
