package models

// StartSessionRequest represents the request body for starting production
// Example: {"parentBatch": "4019635", "sheetCount": 10, "machine": "SLITTER 2"}
type StartSessionRequest struct {
	ParentBatch string `json:"parentBatch"`
	SheetCount  int    `json:"sheetCount"`
	Machine     string `json:"machine"`
}

// StartSessionResponse represents the response of a start (or resume)
type StartSessionResponse struct {
	Session    ActiveSession `json:"session"`
	Resumed    bool          `json:"resumed"`
	Quota      Quota         `json:"quota"`
	WorkingSet WorkingSet    `json:"workingSet"`
}

// ActiveSessionResponse represents the response for the current operator's session
type ActiveSessionResponse struct {
	Session    *ActiveSession `json:"session"`
	WorkingSet *WorkingSet    `json:"workingSet,omitempty"`
}

// FinalizeRequest represents the request body for closing a session
// Example: {"physicalBatchCode": "LP-001", "realWidth": 1219, "observation": "Rebaba"}
type FinalizeRequest struct {
	PhysicalBatchCode string  `json:"physicalBatchCode"`
	RealWidth         float64 `json:"realWidth"`
	Observation       string  `json:"observation"`
}

// Finalize outcome statuses.
const (
	FinalizeStatusFinalized        = "finalized"
	FinalizeStatusAlreadyFinalized = "already_finalized"
)

// FinalizeResponse represents the response of a finalization.
// A repeated finalization returns status already_finalized with a warning.
type FinalizeResponse struct {
	SessionKey string              `json:"sessionKey"`
	Status     string              `json:"status"`
	Warning    *Warning            `json:"warning,omitempty"`
	Report     *FinalizationReport `json:"report,omitempty"`
}

// EditLineRequest represents the request body for editing a line.
// Only the fields present are applied, in the order quantity, width, destination.
// Example: {"cutQty": 40, "realWidth": 120.5}
type EditLineRequest struct {
	CutQty      *int     `json:"cutQty,omitempty"`
	RealWidth   *float64 `json:"realWidth,omitempty"`
	Destination *string  `json:"destination,omitempty"`
}

// AppendLineRequest represents the request body for appending a line
// Example: {"realWidth": 95}
type AppendLineRequest struct {
	RealWidth *float64 `json:"realWidth,omitempty"`
}

// CatalogImportRequest represents the request body for a catalog load.
// Example: {"orders": [{"childOrderId": "4019635-01", "targetSheetCount": 100, ...}]}
type CatalogImportRequest struct {
	Orders []Order `json:"orders"`
}

// RejectedOrder is a catalog row skipped by an import.
type RejectedOrder struct {
	ChildOrderID string `json:"childOrderId"`
	Reason       string `json:"reason"`
}

// CatalogImportResponse reports how many rows an import wrote.
// Example response: {"received": 3, "upserted": 2, "skipped": 1, "rejected": [...]}
type CatalogImportResponse struct {
	Received int             `json:"received"`
	Upserted int             `json:"upserted"`
	Skipped  int             `json:"skipped"`
	Rejected []RejectedOrder `json:"rejected,omitempty"`
}
