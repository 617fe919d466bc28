// Package finalization computes the closing figures of a production session.
//
// Waste and elapsed time are batch-level quantities. Both are apportioned to
// the line items by cut area (cut quantity times real width) with a largest
// remainder split so the per-line values always add up to the batch total.
package finalization

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"control-produccion/apperrors"
	"control-produccion/models"
	"control-produccion/utils"
)

// DefaultDensity is the density of steel in g/cm3.
const DefaultDensity = 7.85

// wastePlaces is the number of decimals waste is kept to. Waste is split
// across lines in units of 10^-wastePlaces kg.
const wastePlaces = 4

// Input is everything needed to close one session.
type Input struct {
	Session           models.ActiveSession
	EndTime           time.Time
	PhysicalBatchCode string
	MeasuredRealWidth float64
	Observation       string
	// Batch-level reference dimensions, shared by every order of the parent.
	Thickness float64
	Length    float64
	Lines     []models.LineItem
}

// Engine computes finalization reports.
type Engine struct {
	density float64
}

// NewEngine creates an engine for a material of the given density.
// A non-positive density falls back to DefaultDensity.
func NewEngine(density float64) *Engine {
	if density <= 0 {
		density = DefaultDensity
	}
	return &Engine{density: density}
}

// Density returns the material density used in waste calculations.
func (e *Engine) Density() float64 {
	return e.density
}

// Compute derives per-line area share, waste, weighted time and total weight.
func (e *Engine) Compute(in Input) (*models.FinalizationReport, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	observation, _ := utils.NormalizeObservation(in.Observation)

	// Decimal arithmetic keeps the 4-decimal waste exact: inputs are taken at
	// their shortest decimal form and the base is rounded half away from zero.
	areas := make([]decimal.Decimal, len(in.Lines))
	weights := make([]float64, len(in.Lines))
	totalArea := decimal.Zero
	for i, l := range in.Lines {
		areas[i] = decimal.NewFromInt(int64(l.CutQty)).Mul(decimal.NewFromFloat(l.RealWidth))
		weights[i] = areas[i].InexactFloat64()
		totalArea = totalArea.Add(areas[i])
	}

	sheetCount := in.Session.SheetCount
	sheetArea := decimal.NewFromFloat(in.MeasuredRealWidth).Mul(decimal.NewFromInt(int64(sheetCount)))
	diff := sheetArea.Sub(totalArea)
	wasteBase := diff.
		Mul(decimal.NewFromFloat(in.Thickness)).
		Mul(decimal.NewFromFloat(in.Length)).
		Mul(decimal.NewFromFloat(e.density)).
		Shift(-6).
		Round(wastePlaces)

	elapsed := int64(in.EndTime.Sub(in.Session.StartedAt) / time.Second)
	if elapsed < 0 {
		elapsed = 0
	}

	wasteSplit := apportionSigned(wasteBase.Shift(wastePlaces).IntPart(), weights)
	timeSplit := apportion(elapsed, weights)

	report := &models.FinalizationReport{
		SessionKey:        in.Session.SessionKey,
		OperatorID:        in.Session.OperatorID,
		OperatorName:      in.Session.OperatorName,
		ParentBatchID:     in.Session.ParentBatchID,
		Machine:           in.Session.Machine,
		SheetCount:        sheetCount,
		PhysicalBatchCode: in.PhysicalBatchCode,
		MeasuredRealWidth: in.MeasuredRealWidth,
		Observation:       observation,
		Thickness:         in.Thickness,
		Length:            in.Length,
		Density:           e.density,
		StartTime:         in.Session.StartedAt,
		EndTime:           in.EndTime,
		ElapsedSeconds:    elapsed,
		TotalArea:         totalArea.InexactFloat64(),
		SheetArea:         sheetArea.InexactFloat64(),
		Diff:              diff.InexactFloat64(),
		WasteBase:         wasteBase.InexactFloat64(),
		Lines:             make([]models.FinalizedLine, len(in.Lines)),
	}

	hundred := decimal.NewFromInt(100)
	for i, l := range in.Lines {
		share := decimal.Zero
		if !totalArea.IsZero() {
			share = areas[i].Mul(hundred).DivRound(totalArea, wastePlaces)
		}
		report.Lines[i] = models.FinalizedLine{
			ChildOrderID:    l.ID,
			CutQty:          l.CutQty,
			RealWidth:       l.RealWidth,
			Destination:     l.Destination,
			UnitWeight:      l.UnitWeight,
			TotalWeight:     decimal.NewFromFloat(l.UnitWeight).Mul(decimal.NewFromInt(int64(l.CutQty))).Round(wastePlaces).InexactFloat64(),
			Area:            weights[i],
			SharePct:        share.InexactFloat64(),
			Waste:           decimal.New(wasteSplit[i], -wastePlaces).InexactFloat64(),
			WeightedSeconds: timeSplit[i],
			WeightedElapsed: utils.FormatElapsed(timeSplit[i]),
			Appended:        l.Appended,
		}
	}
	return report, nil
}

func validate(in Input) error {
	switch {
	case len(in.Lines) == 0:
		return apperrors.ErrValidation("lines", "working set has no lines")
	case in.MeasuredRealWidth < 0:
		return apperrors.ErrValidation("realWidth", "measured real width must not be negative")
	case in.Session.SheetCount <= 0:
		return apperrors.ErrValidation("sheetCount", "session sheet count must be positive")
	}
	if _, ok := utils.NormalizeObservation(in.Observation); !ok {
		return apperrors.ErrValidation("observation", fmt.Sprintf("unknown observation %q", in.Observation))
	}
	for _, l := range in.Lines {
		if l.CutQty < 0 || l.RealWidth < 0 {
			return apperrors.ErrValidation("lines", fmt.Sprintf("line %s has negative quantity or width", l.ID))
		}
	}
	return nil
}

// apportionSigned splits total integer units across non-negative weights so
// the parts add up to total exactly. A negative total is split by magnitude.
func apportionSigned(total int64, weights []float64) []int64 {
	if total < 0 {
		parts := apportion(-total, weights)
		for i := range parts {
			parts[i] = -parts[i]
		}
		return parts
	}
	return apportion(total, weights)
}

// apportion gives leftover units to the largest fractional parts, ties to
// the earlier index. If all weights are zero every part is zero.
func apportion(total int64, weights []float64) []int64 {
	parts := make([]int64, len(weights))
	var sum float64
	for _, w := range weights {
		sum += w
	}
	if sum <= 0 || total == 0 {
		return parts
	}

	type frac struct {
		idx int
		rem float64
	}
	fracs := make([]frac, len(weights))
	var assigned int64
	for i, w := range weights {
		exact := float64(total) * w / sum
		parts[i] = int64(math.Floor(exact))
		assigned += parts[i]
		fracs[i] = frac{idx: i, rem: exact - float64(parts[i])}
	}

	sort.SliceStable(fracs, func(a, b int) bool {
		return fracs[a].rem > fracs[b].rem
	})
	left := total - assigned
	for i := 0; left > 0 && i < len(fracs); i++ {
		if weights[fracs[i].idx] == 0 {
			continue
		}
		parts[fracs[i].idx]++
		left--
	}
	return parts
}
