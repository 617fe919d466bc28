package models

// Quota is the sheet-count budget of a parent batch.
// Remaining is unclamped and may be negative.
type Quota struct {
	ParentBatchID string `json:"parentBatchId"`
	Meta          int    `json:"meta"`
	Finalized     int    `json:"finalized"`
	InProcess     int    `json:"inProcess"`
	Remaining     int    `json:"remaining"`
}

// DisplayRemaining returns Remaining clamped at zero.
func (q Quota) DisplayRemaining() int {
	if q.Remaining < 0 {
		return 0
	}
	return q.Remaining
}

// Complete reports whether no new session may be opened against the batch.
func (q Quota) Complete() bool {
	return q.Remaining <= 0 && q.InProcess == 0
}

// ProgressPct returns finalized sheets as a percentage of meta.
func (q Quota) ProgressPct() float64 {
	if q.Meta <= 0 {
		return 0
	}
	return float64(q.Finalized) * 100 / float64(q.Meta)
}

// BatchStatus represents the response for the batch status endpoint
// Example response:
// {
//   "quota": {"parentBatchId": "4019635", "meta": 100, "finalized": 40, "inProcess": 10, "remaining": 50},
//   "displayRemaining": 50,
//   "complete": false,
//   "progressPct": 40,
//   "suggestedSheetCount": 10,
//   "workers": [{"operatorId": "op-7", "operatorName": "Luis", "machine": "SLITTER 2", "sheetCount": 10, "minutesElapsed": 35}]
// }
type BatchStatus struct {
	Quota               Quota          `json:"quota"`
	DisplayRemaining    int            `json:"displayRemaining"`
	Complete            bool           `json:"complete"`
	ProgressPct         float64        `json:"progressPct"`
	// SuggestedSheetCount prefills the start form: 10, capped by what is left.
	SuggestedSheetCount int            `json:"suggestedSheetCount"`
	Workers             []ActiveWorker `json:"workers"`
}
