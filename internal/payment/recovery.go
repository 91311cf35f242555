package payment

import (
	"context"
	"time"

	"fmcd/internal/fedclient"
	"fmcd/internal/ids"

	"go.uber.org/zap"

	"fmcd/pkg/logger"
)

// recoverAll scans every registered federation's operation log for
// operations that crashed mid-flight and re-registers each unresolved one
// under its classified PaymentType.
func (m *Manager) recoverAll(ctx context.Context) {
	for _, fid := range m.registry.IDs() {
		handle, ok := m.registry.Get(fid)
		if !ok {
			continue
		}
		m.recoverFederation(ctx, fid, fedclient.InstrumentOperationLog(handle.Client.OperationLog()))
	}
}

func (m *Manager) recoverFederation(ctx context.Context, federationID ids.FederationId, log fedclient.OperationLog) {
	recent, err := log.Recent(ctx, m.cfg.RecoveryLimit)
	if err != nil {
		logger.Warn("failed to read operation log during crash recovery", zap.String("federation_id", federationID.String()), zap.Error(err))
		return
	}

	now := time.Now()
	for _, op := range recent {
		if op.OutcomeKnown {
			continue
		}

		createdAt := time.Unix(op.CreatedAt, 0)
		if now.Sub(createdAt) > m.cfg.OperationTimeout {
			continue
		}

		pt, ok := Classify(op)
		if !ok {
			logger.Warn("skipping unclassifiable logged operation during crash recovery",
				zap.String("federation_id", federationID.String()),
				zap.String("operation_id", op.OperationID.String()),
				zap.String("module_kind", op.ModuleKind))
			continue
		}

		record := &PaymentOperation{
			OperationID:  op.OperationID,
			FederationID: federationID,
			PaymentType:  pt,
			CreatedAt:    createdAt,
			Metadata:     op.Metadata,
		}
		if amount, ok := op.Metadata["amount_msat"].(uint64); ok {
			record.AmountMsat = amount
		}

		if appErr := m.track(record); appErr != nil {
			logger.Warn("failed to re-track recovered operation",
				zap.String("federation_id", federationID.String()),
				zap.String("operation_id", op.OperationID.String()),
				zap.String("error", appErr.Message))
			continue
		}

		logger.Info("resurrected in-flight operation from operation log",
			zap.String("federation_id", federationID.String()),
			zap.String("operation_id", op.OperationID.String()),
			zap.String("payment_type", pt.String()))
	}
}
