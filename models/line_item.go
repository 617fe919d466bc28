package models

import "time"

// Destinations a cut strip can be sent to.
const (
	DestinationPlegado = "PLEGADO"
	DestinationVenta   = "VENTA"
)

// LineItem is one entry of a session's working set.
// Id is an existing child order id, or a freshly minted one when Appended.
type LineItem struct {
	ID           string       `json:"id"`
	CutQty       int          `json:"cutQty"`
	RealWidth    float64      `json:"realWidth"`
	Destination  string       `json:"destination"`
	UnitWeight   float64      `json:"unitWeight"`
	TotalWeight  float64      `json:"totalWeight"`
	Length       float64      `json:"length"`
	Thickness    float64      `json:"thickness"`
	Codes        CatalogCodes `json:"codes"`
	Description  string       `json:"description"`
	PendingUnits int          `json:"pendingUnits"`
	Appended     bool         `json:"appended"`
}

// WorkingSet holds the editable line items of one active session.
// Capacity is the physical sheet width; zero means unlimited.
// A sealed working set belongs to a session being finalized and takes no edits.
type WorkingSet struct {
	SessionKey    string     `json:"sessionKey"`
	OperatorID    string     `json:"operatorId"`
	ParentBatchID string     `json:"parentBatchId"`
	SheetCount    int        `json:"sheetCount"`
	Capacity      float64    `json:"capacity"`
	Lines         []LineItem `json:"lines"`
	Sealed        bool       `json:"sealed,omitempty"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// Line returns the index of the line with the given id, or -1.
func (ws *WorkingSet) Line(id string) int {
	for i := range ws.Lines {
		if ws.Lines[i].ID == id {
			return i
		}
	}
	return -1
}

// UsedWidth returns the sum of real widths across all lines.
func (ws *WorkingSet) UsedWidth() float64 {
	var sum float64
	for _, l := range ws.Lines {
		sum += l.RealWidth
	}
	return sum
}

// Clone returns a deep copy so edits can be applied without touching the original.
func (ws WorkingSet) Clone() WorkingSet {
	out := ws
	out.Lines = make([]LineItem, len(ws.Lines))
	copy(out.Lines, ws.Lines)
	return out
}

// Warning is a non-fatal condition reported alongside a successful result.
type Warning struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Params  map[string]interface{} `json:"params,omitempty"`
}

// LineEditResponse represents the response of a working set edit
type LineEditResponse struct {
	WorkingSet WorkingSet `json:"workingSet"`
	Warnings   []Warning  `json:"warnings,omitempty"`
}
