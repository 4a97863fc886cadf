package entity

import "time"

// Estados de una solicitud de reposición.
const (
	RequestStatusPending            = "pending"
	RequestStatusAccepted           = "accepted"
	RequestStatusTripCreated        = "trip_created"
	RequestStatusInDelivery         = "in_delivery"
	RequestStatusDelivered          = "delivered"
	RequestStatusPartiallyFulfilled = "partially_fulfilled"
	RequestStatusCancelled          = "cancelled"
	RequestStatusExpired            = "expired"
)

// Urgencia de la solicitud; selecciona los umbrales de escalamiento.
const (
	UrgencyNormal = "normal"
	UrgencyUrgent = "urgent"
)

// ValidRequestTransitions transiciones permitidas de la máquina de estados.
var ValidRequestTransitions = map[string][]string{
	RequestStatusPending:            {RequestStatusAccepted, RequestStatusCancelled, RequestStatusExpired},
	RequestStatusAccepted:           {RequestStatusTripCreated, RequestStatusCancelled},
	RequestStatusTripCreated:        {RequestStatusInDelivery},
	RequestStatusInDelivery:         {RequestStatusDelivered, RequestStatusPartiallyFulfilled},
	RequestStatusPartiallyFulfilled: {RequestStatusTripCreated},
}

// OpenRequestStatuses estados que cuentan para la ventana de supresión de duplicados.
var OpenRequestStatuses = []string{
	RequestStatusPending,
	RequestStatusAccepted,
	RequestStatusTripCreated,
	RequestStatusInDelivery,
}

// CanTransition indica si from -> to está permitido.
func CanTransition(from, to string) bool {
	for _, s := range ValidRequestTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminalRequestStatus estados sin salida.
func IsTerminalRequestStatus(s string) bool {
	return s == RequestStatusDelivered || s == RequestStatusCancelled || s == RequestStatusExpired
}

// ReplenishmentRequest solicitud de reposición de una ubicación, en bolsas.
type ReplenishmentRequest struct {
	ID            string
	LocationID    string
	ItemID        string
	QuantityBags  int
	DeliveredBags int
	Urgency       string
	Status        string
	RequestedBy   string // vacío = creada por el evaluador automático
	AcceptedBy    string
	TripID        string
	CancelReason  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// RemainingBags bolsas aún no entregadas.
func (r *ReplenishmentRequest) RemainingBags() int {
	if r.DeliveredBags >= r.QuantityBags {
		return 0
	}
	return r.QuantityBags - r.DeliveredBags
}

// RequestPatch cambios que acompañan a una transición condicional.
// Los campos vacíos no se modifican.
type RequestPatch struct {
	Status        string
	AcceptedBy    string
	TripID        string
	CancelReason  string
	DeliveredBags *int
	UpdatedAt     time.Time
}
