package worker

import (
	"context"
	"fmt"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/services"
)

// Overviewer computes the dashboard for a user and month.
type Overviewer interface {
	Overview(ctx context.Context, userID string, month core.Date) (*services.Dashboard, error)
	Invalidate(userID string)
}

type SnapshotSaver interface {
	SaveSnapshot(ctx context.Context, s core.MonthSnapshot) error
}

// SnapshotExporter mirrors a snapshot to an external sink.
type SnapshotExporter interface {
	AppendSnapshot(ctx context.Context, s core.MonthSnapshot) error
}

// SnapshotWorker recomputes and stores the monthly metric snapshot whenever
// the ledger of a user changes.
type SnapshotWorker struct {
	dashboard Overviewer
	store     SnapshotSaver
	exporter  SnapshotExporter
	logger    *log.Logger
}

// NewSnapshotWorker builds a worker; exporter may be nil.
func NewSnapshotWorker(dashboard Overviewer, store SnapshotSaver, exporter SnapshotExporter, logger *log.Logger) *SnapshotWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &SnapshotWorker{
		dashboard: dashboard,
		store:     store,
		exporter:  exporter,
		logger:    logger.WithComponent(log.ComponentWorker),
	}
}

// HandleLedgerChanged processes a single ledger change message from AMQP.
func (w *SnapshotWorker) HandleLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error {
	month, err := core.ParseMonth(msg.Month)
	if err != nil {
		return fmt.Errorf("parse month %q: %w", msg.Month, err)
	}

	w.logger.InfoContext(ctx, "Processing ledger change",
		log.FieldUserID, msg.UserID,
		log.FieldMonth, msg.Month,
		"kind", msg.Kind)

	w.dashboard.Invalidate(msg.UserID)
	d, err := w.dashboard.Overview(ctx, msg.UserID, month)
	if err != nil {
		return fmt.Errorf("compute dashboard: %w", err)
	}

	snap := d.Snapshot()
	if err := w.store.SaveSnapshot(ctx, snap); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	if w.exporter != nil {
		if err := w.exporter.AppendSnapshot(ctx, snap); err != nil {
			return fmt.Errorf("export snapshot: %w", err)
		}
	}

	w.logger.InfoContext(ctx, "Snapshot stored",
		log.FieldUserID, snap.UserID,
		log.FieldMonth, snap.Month.MonthKey(),
		"health_score", snap.HealthScore,
		"exported", w.exporter != nil)
	return nil
}
