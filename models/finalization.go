package models

import "time"

// FinalizedLine is the computed outcome of one line at finalization.
type FinalizedLine struct {
	ChildOrderID    string  `json:"childOrderId"`
	CutQty          int     `json:"cutQty"`
	RealWidth       float64 `json:"realWidth"`
	Destination     string  `json:"destination"`
	UnitWeight      float64 `json:"unitWeight"`
	TotalWeight     float64 `json:"totalWeight"`
	Area            float64 `json:"area"`
	SharePct        float64 `json:"sharePct"`
	Waste           float64 `json:"waste"`
	WeightedSeconds int64   `json:"weightedSeconds"`
	WeightedElapsed string  `json:"weightedElapsed"`
	Appended        bool    `json:"appended"`
}

// FinalizationReport is everything committed for one finalized session.
type FinalizationReport struct {
	SessionKey        string          `json:"sessionKey" bson:"session_key"`
	OperatorID        string          `json:"operatorId" bson:"operator_id"`
	OperatorName      string          `json:"operatorName" bson:"operator_name"`
	ParentBatchID     string          `json:"parentBatchId" bson:"parent_batch_id"`
	Machine           string          `json:"machine" bson:"machine"`
	SheetCount        int             `json:"sheetCount" bson:"sheet_count"`
	PhysicalBatchCode string          `json:"physicalBatchCode" bson:"physical_batch_code"`
	MeasuredRealWidth float64         `json:"measuredRealWidth" bson:"measured_real_width"`
	Observation       string          `json:"observation" bson:"observation"`
	Thickness         float64         `json:"thickness" bson:"thickness"`
	Length            float64         `json:"length" bson:"length"`
	Density           float64         `json:"density" bson:"density"`
	StartTime         time.Time       `json:"startTime" bson:"start_time"`
	EndTime           time.Time       `json:"endTime" bson:"end_time"`
	ElapsedSeconds    int64           `json:"elapsedSeconds" bson:"elapsed_seconds"`
	TotalArea         float64         `json:"totalArea" bson:"total_area"`
	SheetArea         float64         `json:"sheetArea" bson:"sheet_area"`
	Diff              float64         `json:"diff" bson:"diff"`
	WasteBase         float64         `json:"wasteBase" bson:"waste_base"`
	Lines             []FinalizedLine `json:"lines" bson:"lines"`
}
