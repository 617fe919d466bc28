package models

import "time"

// SessionState is the lifecycle state of a production session row.
type SessionState string

const (
	SessionStateActive    SessionState = "active"
	SessionStateFinalized SessionState = "finalized"
)

// ProductionSession represents one production_sessions row.
// All rows of one work interval share a SessionKey and StartTime.
type ProductionSession struct {
	ID                int64        `json:"id"`
	SessionKey        string       `json:"sessionKey"`
	ChildOrderID      string       `json:"childOrderId"`
	ParentBatchID     string       `json:"parentBatchId"`
	OperatorID        string       `json:"operatorId"`
	OperatorName      string       `json:"operatorName"`
	SheetCount        int          `json:"sheetCount"`
	Machine           string       `json:"machine"`
	StartTime         time.Time    `json:"startTime"`
	EndTime           *time.Time   `json:"endTime,omitempty"`
	State             SessionState `json:"state"`
	PhysicalBatchCode string       `json:"physicalBatchCode,omitempty"`
	RealWidth         float64      `json:"realWidth,omitempty"`
	Observation       string       `json:"observation,omitempty"`
	// Set only at finalization
	TotalWeight     float64 `json:"totalWeight,omitempty"`
	Waste           float64 `json:"waste"`
	WeightedElapsed string  `json:"weightedElapsed,omitempty"`
	WeightedSeconds int64   `json:"weightedSeconds,omitempty"`
	RealCutQty      int     `json:"realCutQty,omitempty"`
	RealWidthUsed   float64 `json:"realWidthUsed,omitempty"`
	RealDestination string  `json:"realDestination,omitempty"`
	IsAppended      bool    `json:"isAppended"`
}

// ActiveSession is the operator's current work interval.
type ActiveSession struct {
	SessionKey    string    `json:"sessionKey"`
	OperatorID    string    `json:"operatorId"`
	OperatorName  string    `json:"operatorName"`
	ParentBatchID string    `json:"parentBatchId"`
	Machine       string    `json:"machine"`
	SheetCount    int       `json:"sheetCount"`
	StartedAt     time.Time `json:"startedAt"`
	ChildOrderIDs []string  `json:"childOrderIds"`
}

// Elapsed returns the time spent since the session started.
func (s ActiveSession) Elapsed(now time.Time) time.Duration {
	if now.Before(s.StartedAt) {
		return 0
	}
	return now.Sub(s.StartedAt)
}

// SessionRecord is the full persisted view of one session key.
type SessionRecord struct {
	SessionKey string              `json:"sessionKey"`
	OperatorID string              `json:"operatorId"`
	State      SessionState        `json:"state"`
	Rows       []ProductionSession `json:"rows"`
}

// ActiveWorker represents an operator currently producing on a batch
type ActiveWorker struct {
	OperatorID     string    `json:"operatorId"`
	OperatorName   string    `json:"operatorName"`
	Machine        string    `json:"machine"`
	SheetCount     int       `json:"sheetCount"`
	StartedAt      time.Time `json:"startedAt"`
	MinutesElapsed int       `json:"minutesElapsed"`
}
