package dto

import "github.com/shopspring/decimal"

// ErrorResponse cuerpo de error HTTP.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// Available saldo actual cuando el error es por stock insuficiente.
	Available *decimal.Decimal `json:"available,omitempty"`
	// Status estado actual de la solicitud cuando la transición es inválida.
	Status string            `json:"status,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}
