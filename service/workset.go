package service

import (
	"context"
	"fmt"

	"control-produccion/lineitems"
	"control-produccion/models"
	"control-produccion/repository"
	"control-produccion/workset"
)

// loadOrSeed returns the stored working set of a session, seeding and saving
// a fresh one from the catalog when none exists.
func loadOrSeed(ctx context.Context, store workset.Store, orders repository.OrderRepositoryInterface, session models.ActiveSession) (*models.WorkingSet, error) {
	ws, err := store.Get(ctx, session.SessionKey)
	if err != nil {
		return nil, err
	}
	if ws != nil {
		return ws, nil
	}

	catalog, err := orders.ListByParent(ctx, session.ParentBatchID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	seeded := lineitems.Seed(session, onlyChildren(catalog, session.ChildOrderIDs))
	if err := store.Save(ctx, seeded); err != nil {
		return nil, err
	}
	return &seeded, nil
}

// onlyChildren keeps the orders a session was opened on. With no ids every
// order is kept.
func onlyChildren(orders []models.Order, ids []string) []models.Order {
	if len(ids) == 0 {
		return orders
	}
	keep := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		keep[id] = struct{}{}
	}
	out := make([]models.Order, 0, len(ids))
	for _, o := range orders {
		if _, ok := keep[o.ChildOrderID]; ok {
			out = append(out, o)
		}
	}
	return out
}

// sessionFromRecord rebuilds the active view of a session from its rows.
func sessionFromRecord(record *models.SessionRecord) models.ActiveSession {
	first := record.Rows[0]
	s := models.ActiveSession{
		SessionKey:    record.SessionKey,
		OperatorID:    first.OperatorID,
		OperatorName:  first.OperatorName,
		ParentBatchID: first.ParentBatchID,
		Machine:       first.Machine,
		SheetCount:    first.SheetCount,
		StartedAt:     first.StartTime,
	}
	for _, r := range record.Rows {
		if !r.IsAppended {
			s.ChildOrderIDs = append(s.ChildOrderIDs, r.ChildOrderID)
		}
	}
	return s
}
