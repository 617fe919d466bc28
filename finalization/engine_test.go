package finalization

import (
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"control-produccion/apperrors"
	"control-produccion/models"
)

var start = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

func exampleInput() Input {
	return Input{
		Session: models.ActiveSession{
			SessionKey:    "k-1",
			OperatorID:    "op-1",
			ParentBatchID: "4019635",
			Machine:       "SLITTER 2",
			SheetCount:    10,
			StartedAt:     start,
		},
		EndTime:           start.Add(time.Hour + 40*time.Second),
		PhysicalBatchCode: "LP-001",
		MeasuredRealWidth: 50,
		Observation:       "rebaba",
		Thickness:         1.0,
		Length:            1000,
		Lines: []models.LineItem{
			{ID: "4019635-01", CutQty: 20, RealWidth: 30, UnitWeight: 0.5, Destination: models.DestinationPlegado},
			{ID: "4019635-02", CutQty: 10, RealWidth: 20, UnitWeight: 0.3, Destination: models.DestinationVenta},
		},
	}
}

func TestCompute_Example(t *testing.T) {
	t.Parallel()

	report, err := NewEngine(DefaultDensity).Compute(exampleInput())
	require.NoError(t, err)

	assert.InDelta(t, 800.0, report.TotalArea, 1e-9)
	assert.InDelta(t, 500.0, report.SheetArea, 1e-9)
	assert.InDelta(t, -300.0, report.Diff, 1e-9)
	assert.InDelta(t, -2.355, report.WasteBase, 1e-9)
	assert.Equal(t, "Rebaba", report.Observation)
	assert.Equal(t, int64(3640), report.ElapsedSeconds)

	require.Len(t, report.Lines, 2)
	l1, l2 := report.Lines[0], report.Lines[1]

	assert.InDelta(t, 75.0, l1.SharePct, 1e-9)
	assert.InDelta(t, 25.0, l2.SharePct, 1e-9)
	assert.InDelta(t, -1.76625, l1.Waste, 1e-4)
	assert.InDelta(t, -0.58875, l2.Waste, 1e-4)
	assert.InDelta(t, report.WasteBase, l1.Waste+l2.Waste, 1e-9)

	assert.Equal(t, int64(2730), l1.WeightedSeconds)
	assert.Equal(t, int64(910), l2.WeightedSeconds)
	assert.Equal(t, "00:45:30", l1.WeightedElapsed)
	assert.Equal(t, "00:15:10", l2.WeightedElapsed)

	assert.InDelta(t, 10.0, l1.TotalWeight, 1e-9)
	assert.InDelta(t, 3.0, l2.TotalWeight, 1e-9)
}

func TestCompute_ZeroArea(t *testing.T) {
	t.Parallel()

	in := exampleInput()
	for i := range in.Lines {
		in.Lines[i].CutQty = 0
	}

	report, err := NewEngine(DefaultDensity).Compute(in)
	require.NoError(t, err)

	for _, l := range report.Lines {
		assert.Zero(t, l.SharePct)
		assert.Zero(t, l.Waste)
		assert.Zero(t, l.WeightedSeconds)
		assert.Equal(t, "00:00:00", l.WeightedElapsed)
	}
	assert.Greater(t, report.WasteBase, 0.0)
}

func TestCompute_PositiveWaste(t *testing.T) {
	t.Parallel()

	in := exampleInput()
	in.MeasuredRealWidth = 100

	report, err := NewEngine(DefaultDensity).Compute(in)
	require.NoError(t, err)

	// 1000 - 800 = 200 -> 200 * 1 * 1000 * 7.85 / 1e6
	assert.InDelta(t, 1.57, report.WasteBase, 1e-9)
	assert.InDelta(t, 1.1775, report.Lines[0].Waste, 1e-9)
	assert.InDelta(t, 0.3925, report.Lines[1].Waste, 1e-9)
}

func TestCompute_EndBeforeStart(t *testing.T) {
	t.Parallel()

	in := exampleInput()
	in.EndTime = start.Add(-time.Minute)

	report, err := NewEngine(DefaultDensity).Compute(in)
	require.NoError(t, err)
	assert.Zero(t, report.ElapsedSeconds)
}

func TestCompute_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Input)
	}{
		{"no lines", func(in *Input) { in.Lines = nil }},
		{"negative measured width", func(in *Input) { in.MeasuredRealWidth = -1 }},
		{"unknown observation", func(in *Input) { in.Observation = "mojado" }},
		{"negative cut quantity", func(in *Input) { in.Lines[0].CutQty = -1 }},
		{"zero sheets", func(in *Input) { in.Session.SheetCount = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := exampleInput()
			tt.mutate(&in)
			_, err := NewEngine(DefaultDensity).Compute(in)
			assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
		})
	}
}

func TestNewEngine_DefaultDensity(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, DefaultDensity, NewEngine(0).Density(), 1e-12)
	assert.InDelta(t, 2.7, NewEngine(2.7).Density(), 1e-12)
}

func TestCompute_SumsMatchTotals(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(42))
	engine := NewEngine(DefaultDensity)

	for iter := 0; iter < 200; iter++ {
		in := exampleInput()
		n := 1 + rng.Intn(8)
		in.Lines = make([]models.LineItem, n)
		for i := range in.Lines {
			in.Lines[i] = models.LineItem{
				ID:        "x",
				CutQty:    1 + rng.Intn(200),
				RealWidth: float64(1+rng.Intn(3000)) / 10,
			}
		}
		in.MeasuredRealWidth = float64(rng.Intn(15000)) / 10
		in.Session.SheetCount = 1 + rng.Intn(40)
		in.Thickness = float64(1+rng.Intn(60)) / 10
		in.Length = float64(500 + rng.Intn(6000))
		in.EndTime = start.Add(time.Duration(rng.Intn(36000)) * time.Second)

		report, err := engine.Compute(in)
		require.NoError(t, err)

		var waste float64
		var seconds int64
		for _, l := range report.Lines {
			waste += l.Waste
			seconds += l.WeightedSeconds
		}
		assert.InDelta(t, report.WasteBase, waste, 1e-4)
		assert.Equal(t, report.ElapsedSeconds, seconds)
	}
}

func TestApportion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		total   int64
		weights []float64
		want    []int64
	}{
		{"even split", 10, []float64{1, 1}, []int64{5, 5}},
		{"tie goes to earlier", 3, []float64{1, 1}, []int64{2, 1}},
		{"largest remainder", 10, []float64{1, 1, 1}, []int64{4, 3, 3}},
		{"zero weight excluded", 7, []float64{0, 2, 5}, []int64{0, 2, 5}},
		{"all zero", 7, []float64{0, 0}, []int64{0, 0}},
		{"nothing to split", 0, []float64{3, 1}, []int64{0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, apportion(tt.total, tt.weights))
		})
	}
}

func TestApportionSigned(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []int64{-17663, -5887}, apportionSigned(-23550, []float64{600, 200}))
}

// singleLine gives wasteBase = length * 2e-5 at density 1 (diff 20, thickness 1).
func singleLine(length float64) Input {
	in := exampleInput()
	in.Session.SheetCount = 1
	in.MeasuredRealWidth = 50
	in.Thickness = 1
	in.Length = length
	in.Lines = []models.LineItem{{ID: "4019635-01", CutQty: 1, RealWidth: 30}}
	return in
}

func TestCompute_WasteRoundsHalfAwayFromZero(t *testing.T) {
	t.Parallel()

	engine := NewEngine(1)

	report, err := engine.Compute(singleLine(72.5))
	require.NoError(t, err)
	assert.Equal(t, 0.0015, report.WasteBase)
	assert.Equal(t, 0.0015, report.Lines[0].Waste)

	in := singleLine(72.5)
	in.MeasuredRealWidth = 10
	report, err = engine.Compute(in)
	require.NoError(t, err)
	assert.Equal(t, -0.0015, report.WasteBase)
	assert.Equal(t, -0.0015, report.Lines[0].Waste)

	// Every base of the form x.xxxx5 rounds up to the next 4-decimal step.
	for k := int64(0); k < 2000; k++ {
		length := float64(2*k+1) * 2.5
		report, err := engine.Compute(singleLine(length))
		require.NoError(t, err)
		want := decimal.New(k+1, -4).InexactFloat64()
		require.Equal(t, want, report.WasteBase, "length %v", length)
		require.Equal(t, want, report.Lines[0].Waste, "length %v", length)
	}
}

func TestCompute_TotalWeightAndShareRounding(t *testing.T) {
	t.Parallel()

	in := exampleInput()
	in.Lines = []models.LineItem{
		{ID: "4019635-01", CutQty: 5, RealWidth: 10, UnitWeight: 0.00029},
		{ID: "4019635-02", CutQty: 10, RealWidth: 10, UnitWeight: 0.1},
	}

	report, err := NewEngine(DefaultDensity).Compute(in)
	require.NoError(t, err)

	assert.Equal(t, 0.0015, report.Lines[0].TotalWeight)
	assert.Equal(t, 1.0, report.Lines[1].TotalWeight)
	assert.Equal(t, 33.3333, report.Lines[0].SharePct)
	assert.Equal(t, 66.6667, report.Lines[1].SharePct)
}
