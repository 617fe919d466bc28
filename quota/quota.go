// Package quota derives the sheet-count budget of a parent batch and decides
// whether a new session may be admitted against it.
package quota

import (
	"control-produccion/apperrors"
	"control-produccion/models"
)

// Compute builds the quota of a parent batch. Remaining is left unclamped.
func Compute(parentBatch string, meta, finalized, inProcess int) models.Quota {
	return models.Quota{
		ParentBatchID: parentBatch,
		Meta:          meta,
		Finalized:     finalized,
		InProcess:     inProcess,
		Remaining:     meta - (finalized + inProcess),
	}
}

// Meta returns the target sheet count of a batch: the maximum across its orders.
func Meta(orders []models.Order) (int, error) {
	if len(orders) == 0 {
		return 0, apperrors.ErrNoOrdersFound("")
	}
	meta := 0
	for _, o := range orders {
		if o.TargetSheetCount > meta {
			meta = o.TargetSheetCount
		}
	}
	return meta, nil
}

// CheckStart reports whether requested sheets may be opened against q.
//
// A complete batch is refused before anything else. Otherwise the request is
// refused when inProcess + requested exceeds the unclamped remaining.
func CheckStart(q models.Quota, requested int) error {
	if requested <= 0 {
		return apperrors.ErrValidation("sheetCount", "sheet count must be positive")
	}
	if q.Complete() {
		return apperrors.ErrBatchComplete(q.ParentBatchID, q.Meta)
	}
	if q.InProcess+requested > q.Remaining {
		return apperrors.ErrQuotaExceeded(requested, q.InProcess, q.Remaining)
	}
	return nil
}

// DefaultSheetCount suggests how many sheets to process next: 10, capped by
// what is left and never below one.
func DefaultSheetCount(q models.Quota) int {
	n := q.DisplayRemaining()
	if n < 1 {
		n = 1
	}
	if n > 10 {
		n = 10
	}
	return n
}
