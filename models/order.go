package models

import "time"

// CatalogCodes groups the external catalog identifiers of an order.
// A width-driven refresh never overwrites them.
type CatalogCodes struct {
	FA   string `json:"fa,omitempty"`
	SAP  string `json:"sap,omitempty"`
	Util string `json:"util,omitempty"`
	IBS  string `json:"ibs,omitempty"`
}

// Order represents a child order row of the catalog.
// Child order ids have the form <parent>-<NN>.
type Order struct {
	ChildOrderID        string       `json:"childOrderId"`
	ParentBatchID       string       `json:"parentBatchId"`
	MachineID           string       `json:"machineId,omitempty"`
	MachineName         string       `json:"machineName"`
	TargetSheetCount    int          `json:"targetSheetCount"`
	SheetWidthCapacity  float64      `json:"sheetWidthCapacity"`
	Width               float64      `json:"width"`
	Length              float64      `json:"length"`
	Thickness           float64      `json:"thickness"`
	Quality             string       `json:"quality,omitempty"`
	CutCount            int          `json:"cutCount"`
	TotalUnits          int          `json:"totalUnits"`
	PendingUnits        int          `json:"pendingUnits"`
	Destination         string       `json:"destination"`
	Codes               CatalogCodes `json:"codes"`
	ReferenceUnitWeight float64      `json:"referenceUnitWeight"`
	TotalWeight         float64      `json:"totalWeight"`
	OrderNumber         string       `json:"orderNumber,omitempty"`
	Description         string       `json:"description"`
	EmittedAt           *time.Time   `json:"emittedAt,omitempty"`
}

// BatchOrdersResponse represents the response for listing the orders of a parent batch
type BatchOrdersResponse struct {
	ParentBatchID string  `json:"parentBatchId"`
	Orders        []Order `json:"orders"`
}

// MachinesResponse represents the response for the machine lookup list
// Example response: {"machines": ["CORTADORA 1", "SLITTER 2"]}
type MachinesResponse struct {
	Machines []string `json:"machines"`
}
