package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"control-produccion/apperrors"
	"control-produccion/logger"
	"control-produccion/models"
	"control-produccion/repository"
	"control-produccion/utils"
)

// CatalogService exposes the order catalog: child orders per batch, the
// machine lookup list and catalog loads from the upstream ERP export.
type CatalogService struct {
	orders repository.OrderRepositoryInterface
	log    *zap.Logger
}

// NewCatalogService creates a new CatalogService
func NewCatalogService(orders repository.OrderRepositoryInterface) *CatalogService {
	return &CatalogService{
		orders: orders,
		log:    logger.Named("svc.catalog"),
	}
}

// Orders returns the child orders of a parent batch.
func (s *CatalogService) Orders(ctx context.Context, parentBatch string) (*models.BatchOrdersResponse, error) {
	parentBatch = strings.TrimSpace(parentBatch)
	if parentBatch == "" {
		return nil, apperrors.ErrValidation("parentBatch", "parent batch is required")
	}

	orders, err := s.orders.ListByParent(ctx, parentBatch)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, apperrors.ErrNoOrdersFound(parentBatch)
	}
	return &models.BatchOrdersResponse{ParentBatchID: parentBatch, Orders: orders}, nil
}

// Machines returns the distinct machine names of the catalog.
func (s *CatalogService) Machines(ctx context.Context) (*models.MachinesResponse, error) {
	machines, err := s.orders.ListMachines(ctx)
	if err != nil {
		return nil, err
	}
	if machines == nil {
		machines = []string{}
	}
	return &models.MachinesResponse{Machines: machines}, nil
}

// Import loads catalog rows. Rows with a malformed child order id, a parent
// that disagrees with the id, or an unknown destination are skipped and
// reported; the rest are upserted in one transaction.
func (s *CatalogService) Import(ctx context.Context, req models.CatalogImportRequest) (*models.CatalogImportResponse, error) {
	res := &models.CatalogImportResponse{Received: len(req.Orders)}
	if len(req.Orders) == 0 {
		return nil, apperrors.ErrValidation("orders", "at least one order is required")
	}

	valid := make([]models.Order, 0, len(req.Orders))
	seen := make(map[string]struct{}, len(req.Orders))
	for _, o := range req.Orders {
		norm, reason := normalizeOrder(o)
		if reason == "" {
			if _, dup := seen[norm.ChildOrderID]; dup {
				reason = "duplicate child order id"
			}
		}
		if reason != "" {
			s.log.Warn("Import: row skipped",
				zap.String("child_order_id", o.ChildOrderID),
				zap.String("reason", reason))
			res.Skipped++
			res.Rejected = append(res.Rejected, models.RejectedOrder{ChildOrderID: o.ChildOrderID, Reason: reason})
			continue
		}
		seen[norm.ChildOrderID] = struct{}{}
		valid = append(valid, norm)
	}

	if len(valid) > 0 {
		n, err := s.orders.UpsertOrders(ctx, valid)
		if err != nil {
			return nil, err
		}
		res.Upserted = n
	}

	s.log.Info("Import: catalog loaded",
		zap.Int("received", res.Received),
		zap.Int("upserted", res.Upserted),
		zap.Int("skipped", res.Skipped))
	return res, nil
}

// normalizeOrder returns the row ready to store, or the reason it cannot be.
func normalizeOrder(o models.Order) (models.Order, string) {
	o.ChildOrderID = strings.TrimSpace(o.ChildOrderID)
	o.ParentBatchID = strings.TrimSpace(o.ParentBatchID)

	parent, _, ok := utils.SplitChildOrderID(o.ChildOrderID)
	if !ok {
		return o, "child order id must have the form <parent>-<NN>"
	}
	switch {
	case o.ParentBatchID == "":
		o.ParentBatchID = parent
	case o.ParentBatchID != parent:
		return o, fmt.Sprintf("parent batch %q does not match child order id", o.ParentBatchID)
	}

	if o.Destination != "" {
		dest, ok := utils.NormalizeDestination(o.Destination)
		if !ok {
			return o, fmt.Sprintf("unknown destination %q", o.Destination)
		}
		o.Destination = dest
	}

	switch {
	case o.TargetSheetCount < 0, o.CutCount < 0, o.TotalUnits < 0, o.PendingUnits < 0:
		return o, "counts must not be negative"
	case o.Width < 0, o.SheetWidthCapacity < 0, o.Length < 0, o.Thickness < 0:
		return o, "dimensions must not be negative"
	}
	return o, ""
}
