package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"control-produccion/logger"
	"control-produccion/models"
)

// orderColumns is the select list scanned by scanOrder.
const orderColumns = `
	child_order_id, parent_batch_id, machine_id, machine_name,
	target_sheet_count, sheet_width_capacity, width, length, thickness,
	quality, cut_count, total_units, pending_units, destination,
	cod_fa, cod_sap, cod_util, cod_ibs,
	reference_unit_weight, total_weight, order_number, description, emitted_at`

// OrderRepository handles database operations for the order catalog
type OrderRepository struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

// NewOrderRepository creates a new OrderRepository
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool, log: logger.Named("repo.orders")}
}

// Ensure OrderRepository implements OrderRepositoryInterface
var _ OrderRepositoryInterface = (*OrderRepository)(nil)

// ListByParent retrieves the child orders of a parent batch ordered by id
func (r *OrderRepository) ListByParent(ctx context.Context, parentBatch string) ([]models.Order, error) {
	query := `SELECT ` + orderColumns + `
		FROM orders
		WHERE parent_batch_id = $1
		ORDER BY child_order_id ASC`

	rows, err := r.pool.Query(ctx, query, parentBatch)
	if err != nil {
		r.log.Error("ListByParent: query failed", zap.String("parent_batch", parentBatch), zap.Error(err))
		return nil, storeError(fmt.Errorf("failed to query orders: %w", err))
	}
	return collectOrders(rows)
}

// FindByWidth returns the reference order for a strip width.
// Orders of the same parent batch win, then the most recent emission.
// Returns nil, nil when no order has that width.
func (r *OrderRepository) FindByWidth(ctx context.Context, parentBatch string, width float64) (*models.Order, error) {
	query := `SELECT ` + orderColumns + `
		FROM orders
		WHERE width = $1
		ORDER BY (parent_batch_id = $2) DESC, emitted_at DESC NULLS LAST, child_order_id DESC
		LIMIT 1`

	rows, err := r.pool.Query(ctx, query, width, parentBatch)
	if err != nil {
		return nil, storeError(fmt.Errorf("failed to query order by width: %w", err))
	}
	order, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.log.Debug("FindByWidth: no reference", zap.Float64("width", width))
			return nil, nil
		}
		return nil, storeError(fmt.Errorf("failed to scan order: %w", err))
	}
	return &order, nil
}

// ListMachines returns the distinct machine names of the catalog
func (r *OrderRepository) ListMachines(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT machine_name
		FROM orders
		WHERE machine_name <> ''
		ORDER BY machine_name ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, storeError(fmt.Errorf("failed to query machines: %w", err))
	}
	machines, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, storeError(fmt.Errorf("failed to scan machines: %w", err))
	}
	return machines, nil
}

// UpsertOrders loads catalog rows. Existing rows only refresh target sheet
// count, unit counts and total weight so active sessions keep their reference.
func (r *OrderRepository) UpsertOrders(ctx context.Context, orders []models.Order) (int, error) {
	if len(orders) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
		ON CONFLICT (child_order_id) DO UPDATE SET
			target_sheet_count = EXCLUDED.target_sheet_count,
			total_units        = EXCLUDED.total_units,
			pending_units      = EXCLUDED.pending_units,
			total_weight       = EXCLUDED.total_weight`

	batch := &pgx.Batch{}
	for _, o := range orders {
		batch.Queue(query,
			o.ChildOrderID, o.ParentBatchID, o.MachineID, o.MachineName,
			o.TargetSheetCount, o.SheetWidthCapacity, o.Width, o.Length, o.Thickness,
			o.Quality, o.CutCount, o.TotalUnits, o.PendingUnits, o.Destination,
			o.Codes.FA, o.Codes.SAP, o.Codes.Util, o.Codes.IBS,
			o.ReferenceUnitWeight, o.TotalWeight, o.OrderNumber, o.Description, o.EmittedAt,
		)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, storeError(fmt.Errorf("failed to start transaction: %w", err))
	}
	defer tx.Rollback(ctx)

	br := tx.SendBatch(ctx, batch)
	for _, o := range orders {
		if _, err := br.Exec(); err != nil {
			br.Close()
			r.log.Error("UpsertOrders: row failed", zap.String("child_order_id", o.ChildOrderID), zap.Error(err))
			return 0, storeError(fmt.Errorf("failed to upsert order %s: %w", o.ChildOrderID, err))
		}
	}
	if err := br.Close(); err != nil {
		return 0, storeError(fmt.Errorf("failed to close batch: %w", err))
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, storeError(fmt.Errorf("failed to commit transaction: %w", err))
	}

	r.log.Info("UpsertOrders: catalog loaded", zap.Int("rows", len(orders)))
	return len(orders), nil
}

func scanOrder(row pgx.CollectableRow) (models.Order, error) {
	var o models.Order
	err := row.Scan(
		&o.ChildOrderID, &o.ParentBatchID, &o.MachineID, &o.MachineName,
		&o.TargetSheetCount, &o.SheetWidthCapacity, &o.Width, &o.Length, &o.Thickness,
		&o.Quality, &o.CutCount, &o.TotalUnits, &o.PendingUnits, &o.Destination,
		&o.Codes.FA, &o.Codes.SAP, &o.Codes.Util, &o.Codes.IBS,
		&o.ReferenceUnitWeight, &o.TotalWeight, &o.OrderNumber, &o.Description, &o.EmittedAt,
	)
	return o, err
}

func collectOrders(rows pgx.Rows) ([]models.Order, error) {
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, storeError(fmt.Errorf("failed to scan orders: %w", err))
	}
	return orders, nil
}
