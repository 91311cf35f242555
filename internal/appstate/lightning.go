package appstate

import (
	"context"

	"fmcd/internal/correlation"
	"fmcd/internal/errors"
	"fmcd/internal/events"
	"fmcd/internal/federation"
	"fmcd/internal/ids"
	"fmcd/internal/lnpay"
)

// CreateInvoice asks the target federation to issue an invoice, registers
// the receive operation with the lifecycle manager, and publishes
// InvoiceCreated.
func (a *AppState) CreateInvoice(ctx context.Context, req CreateInvoiceRequest, reqCtx correlation.RequestContext) (InvoiceResponse, *errors.AppError) {
	if appErr := a.checkRateLimit(reqCtx); appErr != nil {
		return InvoiceResponse{}, appErr
	}
	if req.AmountMsat == 0 {
		return InvoiceResponse{}, errors.ValidationErrorf("invoice amount must be greater than zero").
			WithCorrelation(reqCtx.CorrelationID, reqCtx.RequestID)
	}

	handle, appErr := a.GetClient(req.FederationID)
	if appErr != nil {
		return InvoiceResponse{}, appErr.WithCorrelation(reqCtx.CorrelationID, reqCtx.RequestID)
	}
	fid := handle.Client.FederationID()

	if appErr := a.selectGateway(ctx, handle, req.GatewayID, reqCtx); appErr != nil {
		return InvoiceResponse{}, appErr
	}

	opID, bolt11, err := handle.Client.Lightning().CreateInvoice(ctx, req.AmountMsat, req.Description, req.ExpirySecs, req.GatewayID)
	if err != nil {
		return InvoiceResponse{}, errors.Wrap(errors.FederationUnavailable, err, "federation could not create the invoice").
			WithCorrelation(reqCtx.CorrelationID, reqCtx.RequestID)
	}

	invoiceID := ids.DerivePaymentId(bolt11)
	metadata := map[string]any{"invoice": bolt11, "invoice_id": invoiceID}
	if appErr := a.manager.TrackLightningReceive(opID, fid, req.AmountMsat, metadata, reqCtx.CorrelationID); appErr != nil {
		return InvoiceResponse{}, appErr.WithCorrelation(reqCtx.CorrelationID, reqCtx.RequestID)
	}

	a.bus.Publish(ctx, events.InvoiceCreated{
		Base:        events.NewBase(reqCtx.CorrelationID, fid.String()),
		OperationID: opID.String(),
		InvoiceID:   invoiceID,
		Invoice:     bolt11,
		AmountMsat:  req.AmountMsat,
	})

	return InvoiceResponse{
		OperationID: opID.String(),
		InvoiceID:   invoiceID,
		Invoice:     bolt11,
		AmountMsat:  req.AmountMsat,
		Status:      "created",
	}, nil
}

// PayInvoice resolves the destination to a payable invoice, hands it to
// the target federation, registers the pay operation, and publishes
// PaymentInitiated. A nil resolver falls back to the AppState default.
func (a *AppState) PayInvoice(ctx context.Context, req PayInvoiceRequest, reqCtx correlation.RequestContext, resolver lnpay.PaymentInfoResolver) (PayResponse, *errors.AppError) {
	if appErr := a.checkRateLimit(reqCtx); appErr != nil {
		return PayResponse{}, appErr
	}

	if resolver == nil {
		resolver = a.resolver
	}
	info, err := resolver.Resolve(req.PaymentInfo)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			return PayResponse{}, appErr.WithCorrelation(reqCtx.CorrelationID, reqCtx.RequestID)
		}
		return PayResponse{}, errors.Wrap(errors.ValidationError, err, "could not resolve payment destination").
			WithCorrelation(reqCtx.CorrelationID, reqCtx.RequestID)
	}
	if info.IsExpired() {
		return PayResponse{}, errors.Newf(errors.InvoiceExpired, "invoice expired at %s", info.CreatedAt.Add(info.Expiry).UTC()).
			WithCorrelation(reqCtx.CorrelationID, reqCtx.RequestID)
	}

	amountMsat := info.AmountMsat
	var amountOverride *uint64
	if amountMsat == 0 {
		if req.AmountMsat == nil || *req.AmountMsat == 0 {
			return PayResponse{}, errors.ValidationErrorf("invoice has no amount; amountMsat is required").
				WithCorrelation(reqCtx.CorrelationID, reqCtx.RequestID)
		}
		amountMsat = *req.AmountMsat
		amountOverride = req.AmountMsat
	} else if req.AmountMsat != nil && *req.AmountMsat != amountMsat {
		return PayResponse{}, errors.ValidationErrorf("amountMsat %d conflicts with the invoice amount %d", *req.AmountMsat, amountMsat).
			WithCorrelation(reqCtx.CorrelationID, reqCtx.RequestID)
	}

	handle, appErr := a.GetClient(req.FederationID)
	if appErr != nil {
		return PayResponse{}, appErr.WithCorrelation(reqCtx.CorrelationID, reqCtx.RequestID)
	}
	fid := handle.Client.FederationID()

	if appErr := a.selectGateway(ctx, handle, req.GatewayID, reqCtx); appErr != nil {
		return PayResponse{}, appErr
	}

	opID, err := handle.Client.Lightning().Pay(ctx, info.Bolt11, amountOverride, req.GatewayID)
	if err != nil {
		return PayResponse{}, errors.Wrap(errors.FederationUnavailable, err, "federation could not initiate the payment").
			WithCorrelation(reqCtx.CorrelationID, reqCtx.RequestID)
	}

	paymentID := ids.DerivePaymentId(info.Bolt11)
	metadata := map[string]any{"payment_hash": info.PaymentHash, "payment_id": paymentID}
	if appErr := a.manager.TrackLightningPay(opID, fid, amountMsat, metadata, reqCtx.CorrelationID); appErr != nil {
		return PayResponse{}, appErr.WithCorrelation(reqCtx.CorrelationID, reqCtx.RequestID)
	}

	a.bus.Publish(ctx, events.PaymentInitiated{
		Base:        events.NewBase(reqCtx.CorrelationID, fid.String()),
		OperationID: opID.String(),
		PaymentType: "lightning_pay",
		AmountMsat:  amountMsat,
		GatewayID:   req.GatewayID,
	})

	return PayResponse{
		OperationID: opID.String(),
		PaymentID:   paymentID,
		AmountMsat:  amountMsat,
		Status:      "initiated",
	}, nil
}

// selectGateway verifies the requested gateway is known and available to
// the federation client before any operation is handed to it. An
// unavailable gateway is a request failure, not an event: nothing has been
// initiated yet.
func (a *AppState) selectGateway(ctx context.Context, handle *federation.Handle, gatewayID string, reqCtx correlation.RequestContext) *errors.AppError {
	gw, ok, err := handle.Client.Lightning().SelectGateway(ctx, gatewayID)
	if err != nil {
		return errors.Wrap(errors.GatewayError, err, "gateway selection failed").
			WithCorrelation(reqCtx.CorrelationID, reqCtx.RequestID)
	}
	if !ok || !gw.Available {
		return errors.GatewayErrorf("gateway %s is not available", gatewayID).
			WithCorrelation(reqCtx.CorrelationID, reqCtx.RequestID)
	}

	a.bus.Publish(ctx, events.GatewaySelected{
		Base:      events.NewBase(reqCtx.CorrelationID, handle.Client.FederationID().String()),
		GatewayID: gatewayID,
	})
	return nil
}
