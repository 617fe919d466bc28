// Package lineitems edits the working set of line items of an active session.
//
// A working set is a plain value owned by the caller. The editor mutates it
// in place and never persists anything; catalog lookups go through Catalog.
package lineitems

import (
	"context"
	"fmt"
	"time"

	"control-produccion/apperrors"
	"control-produccion/models"
	"control-produccion/utils"
)

// widthEpsilon absorbs float noise when comparing summed widths to capacity.
const widthEpsilon = 1e-9

// Catalog resolves reference data for a strip width.
// FindByWidth returns nil, nil when no order matches.
type Catalog interface {
	FindByWidth(ctx context.Context, parentBatch string, width float64) (*models.Order, error)
}

// Editor applies line item edits to a working set.
type Editor struct {
	catalog Catalog
	now     func() time.Time
}

// NewEditor creates an editor backed by catalog.
func NewEditor(catalog Catalog) *Editor {
	return &Editor{catalog: catalog, now: time.Now}
}

// Seed builds the initial working set of a session from the orders of its parent.
// The default cut quantity is the per-sheet cut count times the sheets to process.
func Seed(session models.ActiveSession, orders []models.Order) models.WorkingSet {
	ws := models.WorkingSet{
		SessionKey:    session.SessionKey,
		OperatorID:    session.OperatorID,
		ParentBatchID: session.ParentBatchID,
		SheetCount:    session.SheetCount,
		Capacity:      Capacity(orders),
		Lines:         make([]models.LineItem, 0, len(orders)),
		UpdatedAt:     session.StartedAt,
	}
	for _, o := range orders {
		cut := o.CutCount * session.SheetCount
		ws.Lines = append(ws.Lines, models.LineItem{
			ID:           o.ChildOrderID,
			CutQty:       cut,
			RealWidth:    o.Width,
			Destination:  o.Destination,
			UnitWeight:   o.ReferenceUnitWeight,
			TotalWeight:  o.ReferenceUnitWeight * float64(cut),
			Length:       o.Length,
			Thickness:    o.Thickness,
			Codes:        o.Codes,
			Description:  o.Description,
			PendingUnits: o.PendingUnits,
		})
	}
	return ws
}

// Capacity returns the physical sheet width of a batch, the maximum across its orders.
func Capacity(orders []models.Order) float64 {
	var c float64
	for _, o := range orders {
		if o.SheetWidthCapacity > c {
			c = o.SheetWidthCapacity
		}
	}
	return c
}

// EditQuantity sets the cut quantity of a line and recomputes its total weight.
func (e *Editor) EditQuantity(ws *models.WorkingSet, lineID string, cutQty int) error {
	if cutQty < 0 {
		return apperrors.ErrValidation("cutQty", "cut quantity must not be negative")
	}
	i := ws.Line(lineID)
	if i < 0 {
		return apperrors.ErrLineNotFound(lineID)
	}
	l := &ws.Lines[i]
	l.CutQty = cutQty
	l.TotalWeight = l.UnitWeight * float64(cutQty)
	ws.UpdatedAt = e.now()
	return nil
}

// EditWidth sets the real width of a line and refreshes its reference data.
//
// On a catalog hit unit weight, length, thickness and description are taken
// from the matched order; identity, cut quantity and codes are kept. On a miss
// the width changes, the reference fields stay, and a warning is returned.
func (e *Editor) EditWidth(ctx context.Context, ws *models.WorkingSet, lineID string, width float64) (*models.Warning, error) {
	if width < 0 {
		return nil, apperrors.ErrValidation("realWidth", "width must not be negative")
	}
	i := ws.Line(lineID)
	if i < 0 {
		return nil, apperrors.ErrLineNotFound(lineID)
	}
	if err := checkCapacity(ws, ws.Lines[i].RealWidth, width); err != nil {
		return nil, err
	}

	ref, err := e.lookup(ctx, ws.ParentBatchID, width)
	if err != nil {
		return nil, err
	}

	l := &ws.Lines[i]
	l.RealWidth = width
	ws.UpdatedAt = e.now()
	if ref == nil {
		if width == 0 {
			return nil, nil
		}
		return referenceWarning(width), nil
	}
	applyReference(l, ref)
	return nil, nil
}

// EditDestination sets where the strips of a line go.
func (e *Editor) EditDestination(ws *models.WorkingSet, lineID, destination string) error {
	dest, ok := utils.NormalizeDestination(destination)
	if !ok {
		return apperrors.ErrValidation("destination", fmt.Sprintf("destination must be %s or %s", models.DestinationPlegado, models.DestinationVenta))
	}
	i := ws.Line(lineID)
	if i < 0 {
		return apperrors.ErrLineNotFound(lineID)
	}
	ws.Lines[i].Destination = dest
	ws.UpdatedAt = e.now()
	return nil
}

// AppendLine adds an operator line with the next child order id of the batch.
// Numeric fields start at zero unless width is given, in which case the
// capacity is checked and reference data is looked up as in EditWidth.
func (e *Editor) AppendLine(ctx context.Context, ws *models.WorkingSet, width *float64) (models.LineItem, *models.Warning, error) {
	ids := make([]string, 0, len(ws.Lines))
	for _, l := range ws.Lines {
		ids = append(ids, l.ID)
	}
	line := models.LineItem{
		ID:       utils.NextChildOrderID(ws.ParentBatchID, ids),
		Appended: true,
	}

	var warning *models.Warning
	if width != nil {
		if *width < 0 {
			return models.LineItem{}, nil, apperrors.ErrValidation("realWidth", "width must not be negative")
		}
		if err := checkCapacity(ws, 0, *width); err != nil {
			return models.LineItem{}, nil, err
		}
		ref, err := e.lookup(ctx, ws.ParentBatchID, *width)
		if err != nil {
			return models.LineItem{}, nil, err
		}
		line.RealWidth = *width
		if ref == nil && *width > 0 {
			warning = referenceWarning(*width)
		} else if ref != nil {
			applyReference(&line, ref)
		}
	}

	ws.Lines = append(ws.Lines, line)
	ws.UpdatedAt = e.now()
	return line, warning, nil
}

// RemoveLine drops an appended line. Catalog-seeded lines cannot be removed.
func (e *Editor) RemoveLine(ws *models.WorkingSet, lineID string) error {
	i := ws.Line(lineID)
	if i < 0 {
		return apperrors.ErrLineNotFound(lineID)
	}
	if !ws.Lines[i].Appended {
		return apperrors.ErrImmutableOriginal(lineID)
	}
	ws.Lines = append(ws.Lines[:i], ws.Lines[i+1:]...)
	ws.UpdatedAt = e.now()
	return nil
}

func (e *Editor) lookup(ctx context.Context, parentBatch string, width float64) (*models.Order, error) {
	if e.catalog == nil || width == 0 {
		return nil, nil
	}
	ref, err := e.catalog.FindByWidth(ctx, parentBatch, width)
	if err != nil {
		return nil, fmt.Errorf("lookup width %g: %w", width, err)
	}
	return ref, nil
}

// checkCapacity refuses a width change that grows the total past capacity.
// Narrowing a line is always allowed.
func checkCapacity(ws *models.WorkingSet, oldWidth, newWidth float64) error {
	if ws.Capacity <= 0 || newWidth <= oldWidth {
		return nil
	}
	used := ws.UsedWidth() - oldWidth
	if used+newWidth > ws.Capacity+widthEpsilon {
		return apperrors.ErrCapacityExceeded(ws.Capacity, used, newWidth)
	}
	return nil
}

func applyReference(l *models.LineItem, ref *models.Order) {
	l.UnitWeight = ref.ReferenceUnitWeight
	l.Length = ref.Length
	l.Thickness = ref.Thickness
	l.Description = ref.Description
	l.TotalWeight = l.UnitWeight * float64(l.CutQty)
}

func referenceWarning(width float64) *models.Warning {
	appErr := apperrors.ErrReferenceNotFound(width)
	return &models.Warning{Code: appErr.Code, Message: appErr.Message, Params: appErr.Params}
}
