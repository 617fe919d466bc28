package models

import "time"

// DetailRecord is the append-only historical trail of one finalized line.
type DetailRecord struct {
	ID              int64     `json:"id"`
	SessionID       int64     `json:"sessionId"`
	ChildOrderID    string    `json:"childOrderId"`
	RealCutQty      int       `json:"realCutQty"`
	RealWidth       float64   `json:"realWidth"`
	RealDestination string    `json:"realDestination"`
	CreatedAt       time.Time `json:"createdAt"`
}
