package dto

import "time"

// CreateReplenishmentRequest body para POST /api/requests.
type CreateReplenishmentRequest struct {
	LocationID   string `json:"location_id" validate:"required"`
	ItemID       string `json:"item_id" validate:"required"`
	QuantityBags int    `json:"quantity_bags" validate:"required,gt=0"`
	Urgency      string `json:"urgency,omitempty" validate:"omitempty,oneof=normal urgent"`
}

// CancelRequestBody body para POST /api/requests/:id/cancel.
type CancelRequestBody struct {
	Reason string `json:"reason" validate:"max=500"`
}

// TripRequestBody body para crear viaje o completar remanente. trip_id vacío = se genera.
type TripRequestBody struct {
	TripID string `json:"trip_id,omitempty" validate:"max=100"`
}

// ConfirmDeliveryBody body para POST /api/requests/:id/confirm.
type ConfirmDeliveryBody struct {
	ConfirmedBags int `json:"confirmed_bags" validate:"required,gt=0"`
}

// ReplenishmentRequestDTO solicitud expuesta por la API.
type ReplenishmentRequestDTO struct {
	ID            string    `json:"id"`
	LocationID    string    `json:"location_id"`
	ItemID        string    `json:"item_id"`
	QuantityBags  int       `json:"quantity_bags"`
	DeliveredBags int       `json:"delivered_bags"`
	Urgency       string    `json:"urgency"`
	Status        string    `json:"status"`
	RequestedBy   string    `json:"requested_by,omitempty"`
	AcceptedBy    string    `json:"accepted_by,omitempty"`
	TripID        string    `json:"trip_id,omitempty"`
	CancelReason  string    `json:"cancel_reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// SweepReportDTO resultado de un barrido manual.
type SweepReportDTO struct {
	StartedAt          time.Time `json:"started_at"`
	FinishedAt         time.Time `json:"finished_at"`
	PoliciesEvaluated  int       `json:"policies_evaluated"`
	RequestsCreated    int       `json:"requests_created"`
	RequestsSuppressed int       `json:"requests_suppressed"`
	AlertsOpened       int       `json:"alerts_opened"`
	AlertsEscalated    int       `json:"alerts_escalated"`
	AlertsRepeated     int       `json:"alerts_repeated"`
	AlertsResolved     int       `json:"alerts_resolved"`
	Reminders          int       `json:"reminders"`
	Escalations        int       `json:"escalations"`
	Expirations        int       `json:"expirations"`
	TimersRepaired     int       `json:"timers_repaired"`
	Errors             []string  `json:"errors"`
}
