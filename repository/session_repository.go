package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"control-produccion/apperrors"
	"control-produccion/logger"
	"control-produccion/models"
	"control-produccion/quota"
)

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const activeSessionQuery = `
	SELECT a.session_key::text, a.operator_id, a.operator_name, a.parent_batch_id,
	       a.machine, a.sheet_count, a.started_at,
	       COALESCE(array_agg(p.child_order_id ORDER BY p.id)
	                FILTER (WHERE p.child_order_id IS NOT NULL), '{}')
	FROM active_operators a
	LEFT JOIN production_sessions p
	       ON p.session_key = a.session_key AND p.state = 'active'
	WHERE %s
	GROUP BY a.operator_id
	ORDER BY a.started_at ASC`

// SessionRepository handles database operations for production sessions
type SessionRepository struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

// NewSessionRepository creates a new SessionRepository
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool, log: logger.Named("repo.sessions")}
}

// Ensure SessionRepository implements SessionRepositoryInterface
var _ SessionRepositoryInterface = (*SessionRepository)(nil)

// GetQuota derives meta, finalized, in-process and remaining for a parent batch
func (r *SessionRepository) GetQuota(ctx context.Context, parentBatch string) (models.Quota, error) {
	var meta, count int
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(MAX(target_sheet_count), 0), COUNT(*) FROM orders WHERE parent_batch_id = $1`,
		parentBatch,
	).Scan(&meta, &count)
	if err != nil {
		return models.Quota{}, storeError(fmt.Errorf("failed to query meta: %w", err))
	}
	if count == 0 {
		return models.Quota{}, apperrors.ErrNoOrdersFound(parentBatch)
	}

	finalized, inProcess, err := sumSheets(ctx, r.pool, parentBatch)
	if err != nil {
		return models.Quota{}, err
	}
	return quota.Compute(parentBatch, meta, finalized, inProcess), nil
}

// FindActiveByOperator returns the operator's active session or nil
func (r *SessionRepository) FindActiveByOperator(ctx context.Context, operatorID string) (*models.ActiveSession, error) {
	return findActive(ctx, r.pool, operatorID)
}

// GetSession loads every row of a session key
func (r *SessionRepository) GetSession(ctx context.Context, sessionKey string) (*models.SessionRecord, error) {
	query := `
		SELECT id, session_key::text, child_order_id, parent_batch_id, operator_id, operator_name,
		       sheet_count, machine, start_time, end_time, state,
		       COALESCE(physical_batch_code, ''), COALESCE(real_width, 0), COALESCE(observation, ''),
		       COALESCE(total_weight, 0), COALESCE(waste, 0), COALESCE(weighted_elapsed, ''),
		       COALESCE(weighted_seconds, 0), COALESCE(real_cut_qty, 0), COALESCE(real_width_used, 0),
		       COALESCE(real_destination, ''), is_appended
		FROM production_sessions
		WHERE session_key = $1::uuid
		ORDER BY id ASC`

	rows, err := r.pool.Query(ctx, query, sessionKey)
	if err != nil {
		if isInvalidText(err) {
			return nil, apperrors.ErrUnknownSession(sessionKey)
		}
		return nil, storeError(fmt.Errorf("failed to query session: %w", err))
	}
	sessions, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.ProductionSession, error) {
		var s models.ProductionSession
		var state string
		err := row.Scan(
			&s.ID, &s.SessionKey, &s.ChildOrderID, &s.ParentBatchID, &s.OperatorID, &s.OperatorName,
			&s.SheetCount, &s.Machine, &s.StartTime, &s.EndTime, &state,
			&s.PhysicalBatchCode, &s.RealWidth, &s.Observation,
			&s.TotalWeight, &s.Waste, &s.WeightedElapsed,
			&s.WeightedSeconds, &s.RealCutQty, &s.RealWidthUsed,
			&s.RealDestination, &s.IsAppended,
		)
		s.State = models.SessionState(state)
		return s, err
	})
	if err != nil {
		if isInvalidText(err) {
			return nil, apperrors.ErrUnknownSession(sessionKey)
		}
		return nil, storeError(fmt.Errorf("failed to scan session: %w", err))
	}
	if len(sessions) == 0 {
		return nil, apperrors.ErrUnknownSession(sessionKey)
	}

	return &models.SessionRecord{
		SessionKey: sessionKey,
		OperatorID: sessions[0].OperatorID,
		State:      sessions[0].State,
		Rows:       sessions,
	}, nil
}

// Start opens a session for the operator in a single transaction.
//
// The active_operators row is claimed first with a conditional insert, so two
// concurrent starts by one operator serialize on its primary key. When the
// operator already holds a session the same parent resumes it and any other
// parent is a conflict. The parent's order rows are then locked, which
// serializes quota admission between operators on the same batch.
func (r *SessionRepository) Start(ctx context.Context, p StartParams) (*StartResult, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.log.Error("Start: error starting transaction", zap.Error(err))
		return nil, storeError(fmt.Errorf("failed to start transaction: %w", err))
	}
	defer tx.Rollback(ctx)

	var claimed string
	err = tx.QueryRow(ctx, `
		INSERT INTO active_operators
			(operator_id, operator_name, session_key, parent_batch_id, machine, sheet_count, started_at)
		VALUES ($1, $2, $3::uuid, $4, $5, $6, $7)
		ON CONFLICT (operator_id) DO NOTHING
		RETURNING session_key::text`,
		p.OperatorID, p.OperatorName, p.SessionKey, p.ParentBatch, p.Machine, p.SheetCount, p.StartedAt,
	).Scan(&claimed)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		r.log.Error("Start: error claiming operator", zap.String("operator_id", p.OperatorID), zap.Error(err))
		return nil, storeError(fmt.Errorf("failed to claim operator: %w", err))
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return r.resume(ctx, tx, p)
	}

	orders, err := lockOrders(ctx, tx, p.ParentBatch)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, apperrors.ErrNoOrdersFound(p.ParentBatch)
	}

	meta, err := quota.Meta(orders)
	if err != nil {
		return nil, err
	}
	finalized, inProcess, err := sumSheets(ctx, tx, p.ParentBatch)
	if err != nil {
		return nil, err
	}
	q := quota.Compute(p.ParentBatch, meta, finalized, inProcess)
	if err := quota.CheckStart(q, p.SheetCount); err != nil {
		r.log.Warn("Start: admission refused",
			zap.String("operator_id", p.OperatorID),
			zap.String("parent_batch", p.ParentBatch),
			zap.Int("requested", p.SheetCount),
			zap.Int("remaining", q.Remaining),
			zap.Error(err),
		)
		return nil, err
	}

	insert := `
		INSERT INTO production_sessions
			(session_key, child_order_id, parent_batch_id, operator_id, operator_name,
			 sheet_count, machine, start_time, state)
		VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, 'active')`
	childIDs := make([]string, 0, len(orders))
	for _, o := range orders {
		if _, err := tx.Exec(ctx, insert,
			p.SessionKey, o.ChildOrderID, p.ParentBatch, p.OperatorID, p.OperatorName,
			p.SheetCount, p.Machine, p.StartedAt,
		); err != nil {
			r.log.Error("Start: error inserting session row", zap.String("child_order_id", o.ChildOrderID), zap.Error(err))
			return nil, storeError(fmt.Errorf("failed to insert session row: %w", err))
		}
		childIDs = append(childIDs, o.ChildOrderID)
	}

	if err := tx.Commit(ctx); err != nil {
		r.log.Error("Start: error committing transaction", zap.Error(err))
		return nil, storeError(fmt.Errorf("failed to commit transaction: %w", err))
	}

	q = quota.Compute(p.ParentBatch, meta, finalized, inProcess+p.SheetCount)
	return &StartResult{
		Session: models.ActiveSession{
			SessionKey:    p.SessionKey,
			OperatorID:    p.OperatorID,
			OperatorName:  p.OperatorName,
			ParentBatchID: p.ParentBatch,
			Machine:       p.Machine,
			SheetCount:    p.SheetCount,
			StartedAt:     p.StartedAt,
			ChildOrderIDs: childIDs,
		},
		Quota:  q,
		Orders: orders,
	}, nil
}

func (r *SessionRepository) resume(ctx context.Context, tx pgx.Tx, p StartParams) (*StartResult, error) {
	existing, err := findActive(ctx, tx, p.OperatorID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		// The holder finalized between our insert and this read.
		return nil, apperrors.Conflict(apperrors.CodeSessionConflict, "active session changed during start, retry")
	}
	if existing.ParentBatchID != p.ParentBatch {
		return nil, apperrors.ErrSessionConflict(existing.ParentBatchID, existing.SessionKey)
	}

	orders, err := listOrders(ctx, tx, p.ParentBatch)
	if err != nil {
		return nil, err
	}
	meta, err := quota.Meta(orders)
	if err != nil {
		return nil, apperrors.ErrNoOrdersFound(p.ParentBatch)
	}
	finalized, inProcess, err := sumSheets(ctx, tx, p.ParentBatch)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, storeError(fmt.Errorf("failed to commit transaction: %w", err))
	}

	return &StartResult{
		Session: *existing,
		Resumed: true,
		Quota:   quota.Compute(p.ParentBatch, meta, finalized, inProcess),
		Orders:  orders,
	}, nil
}

// Finalize commits the closing figures of a session in a single transaction.
//
// Rows of existing child orders are updated in place, appended lines get new
// rows in state finalized, and one detail record is written per line. The
// operator's active_operators row is released in the same transaction.
func (r *SessionRepository) Finalize(ctx context.Context, report *models.FinalizationReport) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.log.Error("Finalize: error starting transaction", zap.Error(err))
		return storeError(fmt.Errorf("failed to start transaction: %w", err))
	}
	defer tx.Rollback(ctx)

	type lockedRow struct {
		id         int64
		childOrder string
		state      string
		operatorID string
	}
	rows, err := tx.Query(ctx, `
		SELECT id, child_order_id, state, operator_id
		FROM production_sessions
		WHERE session_key = $1::uuid
		ORDER BY id ASC
		FOR UPDATE`, report.SessionKey)
	if err != nil {
		if isInvalidText(err) {
			return apperrors.ErrUnknownSession(report.SessionKey)
		}
		return storeError(fmt.Errorf("failed to lock session rows: %w", err))
	}
	locked, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (lockedRow, error) {
		var l lockedRow
		err := row.Scan(&l.id, &l.childOrder, &l.state, &l.operatorID)
		return l, err
	})
	if err != nil {
		if isInvalidText(err) {
			return apperrors.ErrUnknownSession(report.SessionKey)
		}
		return storeError(fmt.Errorf("failed to scan session rows: %w", err))
	}
	if len(locked) == 0 {
		return apperrors.ErrUnknownSession(report.SessionKey)
	}
	if locked[0].state == string(models.SessionStateFinalized) {
		return apperrors.ErrAlreadyFinalized(report.SessionKey)
	}
	if locked[0].operatorID != report.OperatorID {
		return apperrors.ErrSessionNotOwned(report.SessionKey)
	}

	byChild := make(map[string]int64, len(locked))
	for _, l := range locked {
		byChild[l.childOrder] = l.id
	}

	update := `
		UPDATE production_sessions
		SET end_time = $2, state = 'finalized',
		    physical_batch_code = $3, real_width = $4, observation = $5,
		    total_weight = $6, waste = $7, weighted_elapsed = $8, weighted_seconds = $9,
		    real_cut_qty = $10, real_width_used = $11, real_destination = $12
		WHERE id = $1`
	insert := `
		INSERT INTO production_sessions
			(session_key, child_order_id, parent_batch_id, operator_id, operator_name,
			 sheet_count, machine, start_time, end_time, state,
			 physical_batch_code, real_width, observation,
			 total_weight, waste, weighted_elapsed, weighted_seconds,
			 real_cut_qty, real_width_used, real_destination, is_appended)
		VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9, 'finalized',
		        $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, TRUE)
		RETURNING id`

	sessionIDs := make([]int64, len(report.Lines))
	for i, line := range report.Lines {
		if id, ok := byChild[line.ChildOrderID]; ok && !line.Appended {
			if _, err := tx.Exec(ctx, update, id, report.EndTime,
				report.PhysicalBatchCode, report.MeasuredRealWidth, report.Observation,
				line.TotalWeight, line.Waste, line.WeightedElapsed, line.WeightedSeconds,
				line.CutQty, line.RealWidth, line.Destination,
			); err != nil {
				r.log.Error("Finalize: error updating row", zap.Int64("id", id), zap.Error(err))
				return storeError(fmt.Errorf("failed to update session row %d: %w", id, err))
			}
			sessionIDs[i] = id
			delete(byChild, line.ChildOrderID)
			continue
		}

		var id int64
		if err := tx.QueryRow(ctx, insert,
			report.SessionKey, line.ChildOrderID, report.ParentBatchID, report.OperatorID, report.OperatorName,
			report.SheetCount, report.Machine, report.StartTime, report.EndTime,
			report.PhysicalBatchCode, report.MeasuredRealWidth, report.Observation,
			line.TotalWeight, line.Waste, line.WeightedElapsed, line.WeightedSeconds,
			line.CutQty, line.RealWidth, line.Destination,
		).Scan(&id); err != nil {
			r.log.Error("Finalize: error inserting appended row", zap.String("child_order_id", line.ChildOrderID), zap.Error(err))
			return storeError(fmt.Errorf("failed to insert appended row %s: %w", line.ChildOrderID, err))
		}
		sessionIDs[i] = id
	}

	// Rows with no line left in the working set still close with the session.
	for child, id := range byChild {
		if _, err := tx.Exec(ctx, `
			UPDATE production_sessions
			SET end_time = $2, state = 'finalized',
			    physical_batch_code = $3, real_width = $4, observation = $5,
			    waste = 0, weighted_seconds = 0, weighted_elapsed = '00:00:00', real_cut_qty = 0
			WHERE id = $1`,
			id, report.EndTime, report.PhysicalBatchCode, report.MeasuredRealWidth, report.Observation,
		); err != nil {
			return storeError(fmt.Errorf("failed to close session row %s: %w", child, err))
		}
	}

	batch := &pgx.Batch{}
	for i, line := range report.Lines {
		batch.Queue(`
			INSERT INTO production_details
				(session_id, child_order_id, real_cut_qty, real_width, real_destination, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			sessionIDs[i], line.ChildOrderID, line.CutQty, line.RealWidth, line.Destination, report.EndTime,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		r.log.Error("Finalize: error inserting details", zap.Error(err))
		return storeError(fmt.Errorf("failed to insert detail records: %w", err))
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM active_operators WHERE session_key = $1::uuid`, report.SessionKey,
	); err != nil {
		return storeError(fmt.Errorf("failed to release operator: %w", err))
	}

	if err := tx.Commit(ctx); err != nil {
		r.log.Error("Finalize: error committing transaction", zap.Error(err))
		return storeError(fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

// ListActiveByParent returns the sessions currently open on a parent batch
func (r *SessionRepository) ListActiveByParent(ctx context.Context, parentBatch string) ([]models.ActiveSession, error) {
	return queryActive(ctx, r.pool, "a.parent_batch_id = $1", parentBatch)
}

// ListStale returns active sessions started before the given instant
func (r *SessionRepository) ListStale(ctx context.Context, startedBefore time.Time) ([]models.ActiveSession, error) {
	return queryActive(ctx, r.pool, "a.started_at < $1", startedBefore)
}

func findActive(ctx context.Context, q querier, operatorID string) (*models.ActiveSession, error) {
	sessions, err := queryActive(ctx, q, "a.operator_id = $1", operatorID)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, nil
	}
	return &sessions[0], nil
}

func queryActive(ctx context.Context, q querier, where string, arg any) ([]models.ActiveSession, error) {
	rows, err := q.Query(ctx, fmt.Sprintf(activeSessionQuery, where), arg)
	if err != nil {
		return nil, storeError(fmt.Errorf("failed to query active sessions: %w", err))
	}
	sessions, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.ActiveSession, error) {
		var s models.ActiveSession
		err := row.Scan(
			&s.SessionKey, &s.OperatorID, &s.OperatorName, &s.ParentBatchID,
			&s.Machine, &s.SheetCount, &s.StartedAt, &s.ChildOrderIDs,
		)
		return s, err
	})
	if err != nil {
		return nil, storeError(fmt.Errorf("failed to scan active sessions: %w", err))
	}
	return sessions, nil
}

// sumSheets returns finalized and in-process sheets of a parent batch.
// Rows of one session share sheet_count, so each session key counts once.
func sumSheets(ctx context.Context, q querier, parentBatch string) (finalized, inProcess int, err error) {
	err = q.QueryRow(ctx, `
		SELECT COALESCE(SUM(sheet_count) FILTER (WHERE state = 'finalized'), 0),
		       COALESCE(SUM(sheet_count) FILTER (WHERE state = 'active'), 0)
		FROM (
			SELECT DISTINCT ON (session_key) session_key, sheet_count, state
			FROM production_sessions
			WHERE parent_batch_id = $1
			ORDER BY session_key, id
		) s`, parentBatch,
	).Scan(&finalized, &inProcess)
	if err != nil {
		return 0, 0, storeError(fmt.Errorf("failed to sum sheets: %w", err))
	}
	return finalized, inProcess, nil
}

func lockOrders(ctx context.Context, q querier, parentBatch string) ([]models.Order, error) {
	rows, err := q.Query(ctx, `SELECT `+orderColumns+`
		FROM orders
		WHERE parent_batch_id = $1
		ORDER BY child_order_id ASC
		FOR UPDATE`, parentBatch)
	if err != nil {
		return nil, storeError(fmt.Errorf("failed to lock orders: %w", err))
	}
	return collectOrders(rows)
}

func listOrders(ctx context.Context, q querier, parentBatch string) ([]models.Order, error) {
	rows, err := q.Query(ctx, `SELECT `+orderColumns+`
		FROM orders
		WHERE parent_batch_id = $1
		ORDER BY child_order_id ASC`, parentBatch)
	if err != nil {
		return nil, storeError(fmt.Errorf("failed to query orders: %w", err))
	}
	return collectOrders(rows)
}

// isInvalidText reports a malformed uuid parameter.
func isInvalidText(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "22P02"
}
