package entity

import "time"

// Niveles de la alerta de stock bajo.
const (
	AlertLevelLocationManager = 1
	AlertLevelZoneManager     = 2
	AlertLevelAdmin           = 3
)

// Motivos de resolución.
const (
	AlertResolvedRestocked      = "restocked"
	AlertResolvedRequestCreated = "request_created"
)

// LowStockAlert alerta por (ubicación, artículo) con su propio temporizador,
// medido desde DetectedAt. Como máximo una sin resolver por par.
type LowStockAlert struct {
	ID               string
	LocationID       string
	ItemID           string
	Level            int
	DetectedAt       time.Time
	NextEscalationAt time.Time
	LastEscalationAt *time.Time
	IsResolved       bool
	ResolvedAt       *time.Time
	ResolvedReason   string
}
