package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"control-produccion/apperrors"
	"control-produccion/audit"
	"control-produccion/finalization"
	"control-produccion/lineitems"
	"control-produccion/logger"
	"control-produccion/models"
	"control-produccion/repository"
	"control-produccion/utils"
	"control-produccion/workset"
)

// retiredWorksetTTL keeps a finalized session's sealed working set around
// long enough to reject late edits.
const retiredWorksetTTL = 24 * time.Hour

// SessionService opens and closes production sessions.
//
// It guards the one-active-session-per-operator rule through the repository's
// atomic start, keeps the working set of each session in the workset store,
// and runs the finalization engine on close.
type SessionService struct {
	orders   repository.OrderRepositoryInterface
	sessions repository.SessionRepositoryInterface
	worksets workset.Store
	engine   *finalization.Engine
	sink     audit.Sink
	now      func() time.Time
	log      *zap.Logger
}

// NewSessionService creates a new SessionService
func NewSessionService(
	orders repository.OrderRepositoryInterface,
	sessions repository.SessionRepositoryInterface,
	worksets workset.Store,
	engine *finalization.Engine,
	sink audit.Sink,
) *SessionService {
	if sink == nil {
		sink = audit.NewLogSink(nil)
	}
	return &SessionService{
		orders:   orders,
		sessions: sessions,
		worksets: worksets,
		engine:   engine,
		sink:     sink,
		now:      time.Now,
		log:      logger.Named("svc.session"),
	}
}

// FindActive returns the operator's active session with its working set
func (s *SessionService) FindActive(ctx context.Context, op models.Operator) (*models.ActiveSessionResponse, error) {
	session, err := s.sessions.FindActiveByOperator(ctx, op.ID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return &models.ActiveSessionResponse{}, nil
	}
	ws, err := loadOrSeed(ctx, s.worksets, s.orders, *session)
	if err != nil {
		return nil, err
	}
	return &models.ActiveSessionResponse{Session: session, WorkingSet: ws}, nil
}

// Start opens a session on a parent batch, or resumes the one already open on it
func (s *SessionService) Start(ctx context.Context, op models.Operator, req models.StartSessionRequest) (*models.StartSessionResponse, error) {
	req.ParentBatch = strings.TrimSpace(req.ParentBatch)
	req.Machine = strings.TrimSpace(req.Machine)
	switch {
	case req.ParentBatch == "":
		return nil, apperrors.ErrValidation("parentBatch", "parent batch is required")
	case req.SheetCount <= 0:
		return nil, apperrors.ErrValidation("sheetCount", "sheet count must be positive")
	case req.Machine == "":
		return nil, apperrors.ErrValidation("machine", "machine is required")
	}

	key, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate session key: %w", err)
	}

	res, err := s.sessions.Start(ctx, repository.StartParams{
		OperatorID:   op.ID,
		OperatorName: op.DisplayName,
		ParentBatch:  req.ParentBatch,
		SheetCount:   req.SheetCount,
		Machine:      req.Machine,
		SessionKey:   key.String(),
		StartedAt:    s.now().UTC(),
	})
	if err != nil {
		s.logRejected("start", op, err)
		return nil, err
	}

	var ws *models.WorkingSet
	if res.Resumed {
		ws, err = loadOrSeed(ctx, s.worksets, s.orders, res.Session)
		if err != nil {
			return nil, err
		}
	} else {
		seeded := lineitems.Seed(res.Session, res.Orders)
		if err := s.worksets.Save(ctx, seeded); err != nil {
			// The session is committed; the working set is re-seeded on next access.
			s.log.Error("failed to save working set", zap.String("session_key", res.Session.SessionKey), zap.Error(err))
		}
		ws = &seeded
	}

	s.log.Info("session started",
		zap.String("operator_id", op.ID),
		zap.String("parent_batch", req.ParentBatch),
		zap.String("session_key", res.Session.SessionKey),
		zap.Int("sheet_count", res.Session.SheetCount),
		zap.Bool("resumed", res.Resumed),
	)

	return &models.StartSessionResponse{
		Session:    res.Session,
		Resumed:    res.Resumed,
		Quota:      res.Quota,
		WorkingSet: *ws,
	}, nil
}

// Finalize closes a session with the measured results.
// A session that is already finalized yields a warning result and no change.
func (s *SessionService) Finalize(ctx context.Context, op models.Operator, sessionKey string, req models.FinalizeRequest) (*models.FinalizeResponse, error) {
	if _, err := uuid.Parse(sessionKey); err != nil {
		return nil, apperrors.ErrUnknownSession(sessionKey)
	}
	req.PhysicalBatchCode = strings.TrimSpace(req.PhysicalBatchCode)
	if req.RealWidth < 0 {
		return nil, apperrors.ErrValidation("realWidth", "measured real width must not be negative")
	}
	if _, ok := utils.NormalizeObservation(req.Observation); !ok {
		return nil, apperrors.ErrValidation("observation", fmt.Sprintf("unknown observation %q", req.Observation))
	}

	record, err := s.sessions.GetSession(ctx, sessionKey)
	if err != nil {
		return nil, err
	}
	if record.OperatorID != op.ID {
		return nil, apperrors.ErrSessionNotOwned(sessionKey)
	}
	if record.State == models.SessionStateFinalized {
		return alreadyFinalized(sessionKey), nil
	}

	session := sessionFromRecord(record)
	if _, err := loadOrSeed(ctx, s.worksets, s.orders, session); err != nil {
		return nil, err
	}
	// Edits that land after the seal are rejected, so the report covers
	// exactly the lines of the sealed snapshot.
	ws, err := s.worksets.Update(ctx, sessionKey, func(ws *models.WorkingSet) error {
		ws.Sealed = true
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("seal working set: %w", err)
	}

	catalog, err := s.orders.ListByParent(ctx, session.ParentBatchID)
	if err != nil {
		s.unseal(ctx, sessionKey)
		return nil, fmt.Errorf("list orders: %w", err)
	}
	thickness, length := referenceDimensions(catalog, ws.Lines)

	report, err := s.engine.Compute(finalization.Input{
		Session:           session,
		EndTime:           s.now().UTC(),
		PhysicalBatchCode: req.PhysicalBatchCode,
		MeasuredRealWidth: req.RealWidth,
		Observation:       req.Observation,
		Thickness:         thickness,
		Length:            length,
		Lines:             ws.Lines,
	})
	if err != nil {
		s.unseal(ctx, sessionKey)
		return nil, err
	}

	if err := s.sessions.Finalize(ctx, report); err != nil {
		if apperrors.HasCode(err, apperrors.CodeAlreadyFinalized) {
			return alreadyFinalized(sessionKey), nil
		}
		s.unseal(ctx, sessionKey)
		s.logRejected("finalize", op, err)
		return nil, err
	}

	if err := s.worksets.Retire(ctx, sessionKey, retiredWorksetTTL); err != nil {
		s.log.Error("failed to retire working set", zap.String("session_key", sessionKey), zap.Error(err))
	}
	if err := s.sink.Archive(ctx, report); err != nil {
		s.log.Error("failed to archive finalization", zap.String("session_key", sessionKey), zap.Error(err))
	}

	s.log.Info("session finalized",
		zap.String("operator_id", op.ID),
		zap.String("session_key", sessionKey),
		zap.Int("lines", len(report.Lines)),
		zap.Float64("waste_base", report.WasteBase),
		zap.Int64("elapsed_seconds", report.ElapsedSeconds),
	)

	return &models.FinalizeResponse{
		SessionKey: sessionKey,
		Status:     models.FinalizeStatusFinalized,
		Report:     report,
	}, nil
}

// unseal reopens the working set of a session whose finalization failed.
func (s *SessionService) unseal(ctx context.Context, sessionKey string) {
	_, err := s.worksets.Update(ctx, sessionKey, func(ws *models.WorkingSet) error {
		ws.Sealed = false
		return nil
	})
	if err != nil {
		s.log.Error("failed to unseal working set", zap.String("session_key", sessionKey), zap.Error(err))
	}
}

// ListStale returns active sessions older than threshold
func (s *SessionService) ListStale(ctx context.Context, threshold time.Duration) ([]models.ActiveSession, error) {
	return s.sessions.ListStale(ctx, s.now().Add(-threshold))
}

func (s *SessionService) logRejected(op string, actor models.Operator, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		s.log.Warn(op+" rejected",
			zap.String("operator_id", actor.ID),
			zap.String("code", appErr.Code),
			zap.Any("params", appErr.Params),
		)
		return
	}
	s.log.Error(op+" failed", zap.String("operator_id", actor.ID), zap.Error(err))
}

func alreadyFinalized(sessionKey string) *models.FinalizeResponse {
	appErr := apperrors.ErrAlreadyFinalized(sessionKey)
	return &models.FinalizeResponse{
		SessionKey: sessionKey,
		Status:     models.FinalizeStatusAlreadyFinalized,
		Warning:    &models.Warning{Code: appErr.Code, Message: appErr.Message, Params: appErr.Params},
	}
}

// referenceDimensions returns the batch thickness and length. Every order of
// a parent shares them; lines are the fallback when the catalog is gone.
func referenceDimensions(orders []models.Order, lines []models.LineItem) (thickness, length float64) {
	for _, o := range orders {
		if o.Thickness > 0 && o.Length > 0 {
			return o.Thickness, o.Length
		}
	}
	for _, l := range lines {
		if l.Thickness > 0 && l.Length > 0 {
			return l.Thickness, l.Length
		}
	}
	return 0, 0
}
