package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReceiptRequest body para POST /api/ledger/receipts.
type ReceiptRequest struct {
	LocationID string          `json:"location_id" validate:"required"`
	ItemID     string          `json:"item_id" validate:"required"`
	SupplierID string          `json:"supplier_id" validate:"required"`
	Quantity   decimal.Decimal `json:"quantity"` // kg
}

// MovementRequest body para despachos y mermas.
type MovementRequest struct {
	LocationID string          `json:"location_id" validate:"required"`
	ItemID     string          `json:"item_id" validate:"required"`
	Quantity   decimal.Decimal `json:"quantity"`
	Reason     string          `json:"reason,omitempty" validate:"max=500"`
}

// TransferRequest body para POST /api/ledger/transfers.
type TransferRequest struct {
	FromLocationID string          `json:"from_location_id" validate:"required"`
	ToLocationID   string          `json:"to_location_id" validate:"required"`
	ItemID         string          `json:"item_id" validate:"required"`
	Quantity       decimal.Decimal `json:"quantity"`
}

// AdjustmentRequest body para POST /api/ledger/adjustments. Quantity con signo.
type AdjustmentRequest struct {
	LocationID string          `json:"location_id" validate:"required"`
	ItemID     string          `json:"item_id" validate:"required"`
	Quantity   decimal.Decimal `json:"quantity"`
	Reason     string          `json:"reason" validate:"required,max=500"`
}

// ReturnRequest body para POST /api/ledger/returns. Sin batch_id se abre un lote en cuarentena.
type ReturnRequest struct {
	LocationID string          `json:"location_id" validate:"required"`
	ItemID     string          `json:"item_id" validate:"required"`
	Quantity   decimal.Decimal `json:"quantity"`
	BatchID    string          `json:"batch_id,omitempty"`
	Reason     string          `json:"reason,omitempty" validate:"max=500"`
}

// MovementResponse resultado de una mutación del libro.
type MovementResponse struct {
	TransactionID string          `json:"transaction_id"`
	BatchID       string          `json:"batch_id,omitempty"`
	Quantity      decimal.Decimal `json:"quantity"`
}

// BalanceResponse saldo en mano del par.
type BalanceResponse struct {
	LocationID string          `json:"location_id"`
	ItemID     string          `json:"item_id"`
	BalanceKg  decimal.Decimal `json:"balance_kg"`
	Bags       int             `json:"bags"`
}

// BatchDTO lote expuesto por la API.
type BatchDTO struct {
	ID           string          `json:"id"`
	ItemID       string          `json:"item_id"`
	LocationID   string          `json:"location_id"`
	SupplierID   string          `json:"supplier_id,omitempty"`
	InitialQty   decimal.Decimal `json:"initial_qty"`
	RemainingQty decimal.Decimal `json:"remaining_qty"`
	ReceivedAt   time.Time       `json:"received_at"`
	Status       string          `json:"status"`
}

// ConservationResponse verificación de conservación del par.
type ConservationResponse struct {
	LocationID       string          `json:"location_id"`
	ItemID           string          `json:"item_id"`
	BatchTotal       decimal.Decimal `json:"batch_total"`
	TransactionTotal decimal.Decimal `json:"transaction_total"`
	Drift            decimal.Decimal `json:"drift"`
	Consistent       bool            `json:"consistent"`
}
