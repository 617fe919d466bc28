// Package audit archives finalization reports outside the production store.
//
// Archiving happens after the finalization transaction commits; a failing
// sink is logged by the caller and never undoes a finalization.
package audit

import (
	"context"

	"go.uber.org/zap"

	"control-produccion/logger"
	"control-produccion/models"
)

// Sink receives committed finalization reports.
type Sink interface {
	Archive(ctx context.Context, report *models.FinalizationReport) error
}

// LogSink writes each report as one structured log line.
type LogSink struct {
	log *zap.Logger
}

// NewLogSink creates a sink writing to l, or to the global logger when nil.
func NewLogSink(l *zap.Logger) *LogSink {
	if l == nil {
		l = logger.Named("audit")
	}
	return &LogSink{log: l}
}

// Archive logs the report.
func (s *LogSink) Archive(_ context.Context, report *models.FinalizationReport) error {
	s.log.Info("finalization archived",
		zap.String("session_key", report.SessionKey),
		zap.String("operator_id", report.OperatorID),
		zap.String("parent_batch", report.ParentBatchID),
		zap.String("physical_batch", report.PhysicalBatchCode),
		zap.Int("lines", len(report.Lines)),
		zap.Float64("waste_base", report.WasteBase),
		zap.Int64("elapsed_seconds", report.ElapsedSeconds),
	)
	return nil
}
