package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"control-produccion/apperrors"
	"control-produccion/lineitems"
	"control-produccion/logger"
	"control-produccion/models"
	"control-produccion/repository"
	"control-produccion/workset"
)

// LineItemService edits the working set of the caller's active session
type LineItemService struct {
	orders   repository.OrderRepositoryInterface
	sessions repository.SessionRepositoryInterface
	worksets workset.Store
	editor   *lineitems.Editor
	log      *zap.Logger
}

// NewLineItemService creates a new LineItemService
func NewLineItemService(
	orders repository.OrderRepositoryInterface,
	sessions repository.SessionRepositoryInterface,
	worksets workset.Store,
) *LineItemService {
	return &LineItemService{
		orders:   orders,
		sessions: sessions,
		worksets: worksets,
		editor:   lineitems.NewEditor(orders),
		log:      logger.Named("svc.lines"),
	}
}

// Get returns the working set of the session
func (s *LineItemService) Get(ctx context.Context, op models.Operator, sessionKey string) (*models.WorkingSet, error) {
	session, err := s.ownedActive(ctx, op, sessionKey)
	if err != nil {
		return nil, err
	}
	return loadOrSeed(ctx, s.worksets, s.orders, *session)
}

// Append adds an operator line, optionally with a width
func (s *LineItemService) Append(ctx context.Context, op models.Operator, sessionKey string, req models.AppendLineRequest) (*models.LineEditResponse, error) {
	return s.apply(ctx, op, sessionKey, "append", func(ctx context.Context, ws *models.WorkingSet) ([]models.Warning, error) {
		_, warning, err := s.editor.AppendLine(ctx, ws, req.RealWidth)
		return warnings(warning), err
	})
}

// Edit applies the fields present in req to one line: quantity, then width, then destination
func (s *LineItemService) Edit(ctx context.Context, op models.Operator, sessionKey, lineID string, req models.EditLineRequest) (*models.LineEditResponse, error) {
	if req.CutQty == nil && req.RealWidth == nil && req.Destination == nil {
		return nil, apperrors.ErrValidation("body", "one of cutQty, realWidth or destination is required")
	}
	lineID = strings.TrimSpace(lineID)

	return s.apply(ctx, op, sessionKey, "edit", func(ctx context.Context, ws *models.WorkingSet) ([]models.Warning, error) {
		var out []models.Warning
		if req.CutQty != nil {
			if err := s.editor.EditQuantity(ws, lineID, *req.CutQty); err != nil {
				return nil, err
			}
		}
		if req.RealWidth != nil {
			warning, err := s.editor.EditWidth(ctx, ws, lineID, *req.RealWidth)
			if err != nil {
				return nil, err
			}
			out = append(out, warnings(warning)...)
		}
		if req.Destination != nil {
			if err := s.editor.EditDestination(ws, lineID, *req.Destination); err != nil {
				return nil, err
			}
		}
		return out, nil
	})
}

// Remove drops an appended line
func (s *LineItemService) Remove(ctx context.Context, op models.Operator, sessionKey, lineID string) (*models.LineEditResponse, error) {
	return s.apply(ctx, op, sessionKey, "remove", func(_ context.Context, ws *models.WorkingSet) ([]models.Warning, error) {
		return nil, s.editor.RemoveLine(ws, strings.TrimSpace(lineID))
	})
}

type editFunc func(ctx context.Context, ws *models.WorkingSet) ([]models.Warning, error)

// apply runs fn against the stored working set atomically. A failing fn
// leaves the stored working set untouched.
func (s *LineItemService) apply(ctx context.Context, op models.Operator, sessionKey, action string, fn editFunc) (*models.LineEditResponse, error) {
	session, err := s.ownedActive(ctx, op, sessionKey)
	if err != nil {
		return nil, err
	}
	if _, err := loadOrSeed(ctx, s.worksets, s.orders, *session); err != nil {
		return nil, err
	}

	var out []models.Warning
	ws, err := s.worksets.Update(ctx, sessionKey, func(ws *models.WorkingSet) error {
		if ws.Sealed {
			return apperrors.ErrAlreadyFinalized(sessionKey)
		}
		w, err := fn(ctx, ws)
		out = w
		return err
	})
	if err != nil {
		if errors.Is(err, workset.ErrNotFound) {
			return nil, apperrors.ErrUnknownSession(sessionKey)
		}
		if appErr, ok := apperrors.IsAppError(err); ok {
			s.log.Warn(action+" rejected",
				zap.String("session_key", sessionKey),
				zap.String("code", appErr.Code),
			)
		}
		return nil, err
	}

	s.log.Debug("working set "+action,
		zap.String("session_key", sessionKey),
		zap.Int("lines", len(ws.Lines)),
		zap.Int("warnings", len(out)),
	)
	return &models.LineEditResponse{WorkingSet: *ws, Warnings: out}, nil
}

// ownedActive resolves sessionKey to the caller's active session.
func (s *LineItemService) ownedActive(ctx context.Context, op models.Operator, sessionKey string) (*models.ActiveSession, error) {
	session, err := s.sessions.FindActiveByOperator(ctx, op.ID)
	if err != nil {
		return nil, err
	}
	if session != nil && session.SessionKey == sessionKey {
		return session, nil
	}

	record, err := s.sessions.GetSession(ctx, sessionKey)
	if err != nil {
		return nil, err
	}
	if record.OperatorID != op.ID {
		return nil, apperrors.ErrSessionNotOwned(sessionKey)
	}
	return nil, apperrors.ErrAlreadyFinalized(sessionKey)
}

func warnings(w *models.Warning) []models.Warning {
	if w == nil {
		return nil
	}
	return []models.Warning{*w}
}
