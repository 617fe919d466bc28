package utils

import (
	"strings"

	"control-produccion/models"
)

// observationMap maps normalized observation labels to their canonical form
var observationMap = map[string]string{
	"descuadre":       "Descuadre",
	"ondulado":        "Ondulado",
	"quebrado":        "Quebrado",
	"oxidado":         "Oxidado",
	"rayado":          "Rayado",
	"rebaba":          "Rebaba",
	"bajo espesor":    "Bajo espesor",
	"daño de maquina": "Daño de maquina",
	"daño de máquina": "Daño de maquina",
}

// NormalizeObservation maps an observation to its canonical label.
// Input is trimmed and compared case-insensitively.
// An empty observation means none and is valid.
func NormalizeObservation(observation string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(observation))
	if key == "" {
		return "", true
	}
	canonical, ok := observationMap[key]
	return canonical, ok
}

// Observations returns the selectable observation labels in display order.
func Observations() []string {
	return []string{
		"Descuadre", "Ondulado", "Quebrado",
		"Oxidado", "Rayado", "Rebaba",
		"Bajo espesor", "Daño de maquina",
	}
}

// NormalizeDestination maps a destination to PLEGADO or VENTA.
// Returns false for anything else.
func NormalizeDestination(destination string) (string, bool) {
	switch strings.ToUpper(strings.TrimSpace(destination)) {
	case models.DestinationPlegado:
		return models.DestinationPlegado, true
	case models.DestinationVenta:
		return models.DestinationVenta, true
	}
	return "", false
}
