package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrDuplicate         = errors.New("recurso duplicado")
	ErrUnauthorized      = errors.New("no autorizado")
	ErrForbidden         = errors.New("acceso denegado")
	ErrConflict          = errors.New("conflicto con el estado actual")
	ErrInsufficientStock = errors.New("stock insuficiente")
	ErrSameLocation      = errors.New("origen y destino son la misma ubicación")
	ErrInvalidTransition = errors.New("transición de estado inválida")
	ErrAlreadyTaken      = errors.New("la solicitud ya fue tomada")
	ErrSweepInProgress   = errors.New("ya hay un barrido de escalamiento en curso")
	ErrIntegrity         = errors.New("inconsistencia entre lotes y transacciones")
)

// ValidationError error recuperable que se devuelve al llamador con contexto del estado actual.
type ValidationError struct {
	Err     error
	Message string
	// Available se llena cuando el error es por stock insuficiente.
	Available *decimal.Decimal
	// Status se llena cuando el error es por transición inválida.
	Status string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

// NewInsufficientStock construye el error con el saldo disponible en el mensaje.
func NewInsufficientStock(available, requested decimal.Decimal) *ValidationError {
	a := available
	return &ValidationError{
		Err:       ErrInsufficientStock,
		Message:   fmt.Sprintf("stock insuficiente: saldo actual %s, solicitado %s", available.String(), requested.String()),
		Available: &a,
	}
}

// NewInvalidTransition construye el error de transición con el estado actual.
func NewInvalidTransition(action, current string) *ValidationError {
	return &ValidationError{
		Err:     ErrInvalidTransition,
		Message: fmt.Sprintf("no se puede %s una solicitud en estado %q", action, current),
		Status:  current,
	}
}

// NewValidation envuelve ErrInvalidInput con un mensaje propio.
func NewValidation(msg string) *ValidationError {
	return &ValidationError{Err: ErrInvalidInput, Message: msg}
}

// ConflictError carrera esperada entre actores: la solicitud ya fue aceptada por otro.
type ConflictError struct {
	RequestID  string
	AcceptedBy string
}

func (e *ConflictError) Error() string {
	if e.AcceptedBy != "" {
		return fmt.Sprintf("la solicitud %s ya fue tomada por %s", e.RequestID, e.AcceptedBy)
	}
	return fmt.Sprintf("la solicitud %s ya fue tomada", e.RequestID)
}

func (e *ConflictError) Unwrap() error { return ErrAlreadyTaken }

// IntegrityWarning la escritura de lotes y la de la transacción no quedaron ambas persistidas.
// No se reintenta; se reporta al canal de operaciones.
type IntegrityWarning struct {
	Op         string
	LocationID string
	ItemID     string
	// Applied describe lo que sí quedó escrito (ej. "lotes actualizados: 2").
	Applied string
	Err     error
}

func (e *IntegrityWarning) Error() string {
	return fmt.Sprintf("%s: escritura parcial en %s/%s (%s): %v", e.Op, e.LocationID, e.ItemID, e.Applied, e.Err)
}

func (e *IntegrityWarning) Unwrap() []error { return []error{ErrIntegrity, e.Err} }

// NotificationFailure fallo de entrega de una notificación. Siempre se registra y se descarta.
type NotificationFailure struct {
	Recipient string
	Template  string
	Err       error
}

func (e *NotificationFailure) Error() string {
	return fmt.Sprintf("notificación %s a %s no entregada: %v", e.Template, e.Recipient, e.Err)
}

func (e *NotificationFailure) Unwrap() error { return e.Err }
