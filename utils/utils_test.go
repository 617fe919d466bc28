package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitChildOrderID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		id         string
		wantParent string
		wantSeq    int
		wantOK     bool
	}{
		{"4019635-01", "4019635", 1, true},
		{"4019635-12", "4019635", 12, true},
		{"A-B-07", "A-B", 7, true},
		{" 4019635-03 ", "4019635", 3, true},
		{"4019635", "", 0, false},
		{"4019635-", "", 0, false},
		{"-01", "", 0, false},
		{"4019635-xx", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			parent, seq, ok := SplitChildOrderID(tt.id)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantParent, parent)
			assert.Equal(t, tt.wantSeq, seq)
		})
	}
}

func TestNextChildOrderID(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "4019635-03", NextChildOrderID("4019635", []string{"4019635-01", "4019635-02"}))
	assert.Equal(t, "4019635-11", NextChildOrderID("4019635", []string{"4019635-10", "4019635-02"}))
	assert.Equal(t, "4019635-01", NextChildOrderID("4019635", nil))
	assert.Equal(t, "4019635-01", NextChildOrderID("4019635", []string{"garbage"}))
	assert.Equal(t, "4019635-100", NextChildOrderID("4019635", []string{"4019635-99"}))
}

func TestFormatElapsed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		seconds int64
		want    string
	}{
		{0, "00:00:00"},
		{59, "00:00:59"},
		{3600, "01:00:00"},
		{3725, "01:02:05"},
		{90061, "25:01:01"},
		{-5, "00:00:00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatElapsed(tt.seconds))
	}
}

func TestNormalizeObservation(t *testing.T) {
	t.Parallel()

	got, ok := NormalizeObservation("  rebaba ")
	assert.True(t, ok)
	assert.Equal(t, "Rebaba", got)

	got, ok = NormalizeObservation("")
	assert.True(t, ok)
	assert.Empty(t, got)

	got, ok = NormalizeObservation("DAÑO DE MÁQUINA")
	assert.True(t, ok)
	assert.Equal(t, "Daño de maquina", got)

	_, ok = NormalizeObservation("mojado")
	assert.False(t, ok)

	for _, o := range Observations() {
		got, ok := NormalizeObservation(o)
		assert.True(t, ok, o)
		assert.Equal(t, o, got)
	}
}

func TestNormalizeDestination(t *testing.T) {
	t.Parallel()

	got, ok := NormalizeDestination("plegado")
	assert.True(t, ok)
	assert.Equal(t, "PLEGADO", got)

	got, ok = NormalizeDestination(" Venta ")
	assert.True(t, ok)
	assert.Equal(t, "VENTA", got)

	_, ok = NormalizeDestination("almacen")
	assert.False(t, ok)
}
