package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"control-produccion/apperrors"
	"control-produccion/logger"
	"control-produccion/models"
	"control-produccion/quota"
	"control-produccion/repository"
)

// QuotaService reports the production status of parent batches
type QuotaService struct {
	sessions repository.SessionRepositoryInterface
	now      func() time.Time
	log      *zap.Logger
}

// NewQuotaService creates a new QuotaService
func NewQuotaService(sessions repository.SessionRepositoryInterface) *QuotaService {
	return &QuotaService{
		sessions: sessions,
		now:      time.Now,
		log:      logger.Named("svc.quota"),
	}
}

// Status returns the quota of a batch, its progress and who is working on it
func (s *QuotaService) Status(ctx context.Context, parentBatch string) (*models.BatchStatus, error) {
	parentBatch = strings.TrimSpace(parentBatch)
	if parentBatch == "" {
		return nil, apperrors.ErrValidation("parentBatch", "parent batch is required")
	}

	q, err := s.sessions.GetQuota(ctx, parentBatch)
	if err != nil {
		return nil, err
	}

	active, err := s.sessions.ListActiveByParent(ctx, parentBatch)
	if err != nil {
		return nil, fmt.Errorf("list active sessions: %w", err)
	}

	now := s.now()
	workers := make([]models.ActiveWorker, 0, len(active))
	for _, a := range active {
		workers = append(workers, models.ActiveWorker{
			OperatorID:     a.OperatorID,
			OperatorName:   a.OperatorName,
			Machine:        a.Machine,
			SheetCount:     a.SheetCount,
			StartedAt:      a.StartedAt,
			MinutesElapsed: int(a.Elapsed(now).Minutes()),
		})
	}

	s.log.Debug("batch status",
		zap.String("parent_batch", parentBatch),
		zap.Int("remaining", q.Remaining),
		zap.Int("workers", len(workers)),
	)

	return &models.BatchStatus{
		Quota:               q,
		DisplayRemaining:    q.DisplayRemaining(),
		Complete:            q.Complete(),
		ProgressPct:         q.ProgressPct(),
		SuggestedSheetCount: quota.DefaultSheetCount(q),
		Workers:             workers,
	}, nil
}
