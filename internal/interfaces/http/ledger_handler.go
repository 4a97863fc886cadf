package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/stockflow-api/internal/application/dto"
	"github.com/jhoicas/stockflow-api/internal/application/ledger"
	"github.com/jhoicas/stockflow-api/internal/domain"
	"github.com/jhoicas/stockflow-api/internal/domain/entity"
	"github.com/jhoicas/stockflow-api/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

// LedgerHandler maneja las peticiones HTTP del libro de inventario (protegido).
type LedgerHandler struct {
	svc      *ledger.Service
	kgPerBag decimal.Decimal
}

// NewLedgerHandler construye el handler.
func NewLedgerHandler(svc *ledger.Service, kgPerBag decimal.Decimal) *LedgerHandler {
	if !kgPerBag.IsPositive() {
		kgPerBag = decimal.NewFromInt(inventory.DefaultKgPerBag)
	}
	return &LedgerHandler{svc: svc, kgPerBag: kgPerBag}
}

// Receive godoc
// @Summary      Registrar recepción de proveedor
// @Tags         ledger
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ReceiptRequest  true  "location_id, item_id, supplier_id, quantity (kg)"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      500   {object}  dto.ErrorResponse
// @Router       /api/ledger/receipts [post]
func (h *LedgerHandler) Receive(c *fiber.Ctx) error {
	var in dto.ReceiptRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	if outOfScope(c, in.LocationID) {
		return respondError(c, domain.ErrForbidden)
	}
	res, err := h.svc.Receive(c.Context(), ledger.ReceiveInput{
		LocationID: in.LocationID,
		ItemID:     in.ItemID,
		SupplierID: in.SupplierID,
		Qty:        in.Quantity,
		Actor:      actor(c),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toMovementResponse(res))
}

// Issue godoc
// @Summary      Despachar stock (más reciente primero)
// @Tags         ledger
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.MovementRequest  true  "location_id, item_id, quantity (kg)"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/ledger/issues [post]
func (h *LedgerHandler) Issue(c *fiber.Ctx) error {
	var in dto.MovementRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	if outOfScope(c, in.LocationID) {
		return respondError(c, domain.ErrForbidden)
	}
	res, err := h.svc.Issue(c.Context(), ledger.MovementInput{
		LocationID: in.LocationID,
		ItemID:     in.ItemID,
		Qty:        in.Quantity,
		Reason:     in.Reason,
		Actor:      actor(c),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toMovementResponse(res))
}

// Waste godoc
// @Summary      Registrar merma
// @Tags         ledger
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.MovementRequest  true  "location_id, item_id, quantity (kg), reason"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/ledger/waste [post]
func (h *LedgerHandler) Waste(c *fiber.Ctx) error {
	var in dto.MovementRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	if outOfScope(c, in.LocationID) {
		return respondError(c, domain.ErrForbidden)
	}
	res, err := h.svc.Waste(c.Context(), ledger.MovementInput{
		LocationID: in.LocationID,
		ItemID:     in.ItemID,
		Qty:        in.Quantity,
		Reason:     in.Reason,
		Actor:      actor(c),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toMovementResponse(res))
}

// Transfer godoc
// @Summary      Trasladar stock entre ubicaciones
// @Tags         ledger
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.TransferRequest  true  "from_location_id, to_location_id, item_id, quantity (kg)"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/ledger/transfers [post]
func (h *LedgerHandler) Transfer(c *fiber.Ctx) error {
	var in dto.TransferRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	if outOfScope(c, in.FromLocationID) {
		return respondError(c, domain.ErrForbidden)
	}
	res, err := h.svc.Transfer(c.Context(), ledger.TransferInput{
		FromLocationID: in.FromLocationID,
		ToLocationID:   in.ToLocationID,
		ItemID:         in.ItemID,
		Qty:            in.Quantity,
		Actor:          actor(c),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toMovementResponse(res))
}

// Adjust godoc
// @Summary      Ajuste manual de inventario
// @Description  quantity con signo: positivo abre un lote, negativo descuenta. Solo gerentes.
// @Tags         ledger
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.AdjustmentRequest  true  "location_id, item_id, quantity (kg, con signo), reason"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/ledger/adjustments [post]
func (h *LedgerHandler) Adjust(c *fiber.Ctx) error {
	var in dto.AdjustmentRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	if outOfScope(c, in.LocationID) {
		return respondError(c, domain.ErrForbidden)
	}
	res, err := h.svc.Adjust(c.Context(), ledger.AdjustInput{
		LocationID: in.LocationID,
		ItemID:     in.ItemID,
		SignedQty:  in.Quantity,
		Reason:     in.Reason,
		Actor:      actor(c),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toMovementResponse(res))
}

// Return godoc
// @Summary      Registrar devolución
// @Description  Con batch_id repone ese lote; sin batch_id abre un lote en cuarentena.
// @Tags         ledger
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ReturnRequest  true  "location_id, item_id, quantity (kg), batch_id opcional"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/ledger/returns [post]
func (h *LedgerHandler) Return(c *fiber.Ctx) error {
	var in dto.ReturnRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	if outOfScope(c, in.LocationID) {
		return respondError(c, domain.ErrForbidden)
	}
	res, err := h.svc.Return(c.Context(), ledger.ReturnInput{
		LocationID: in.LocationID,
		ItemID:     in.ItemID,
		Qty:        in.Quantity,
		BatchID:    in.BatchID,
		Reason:     in.Reason,
		Actor:      actor(c),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toMovementResponse(res))
}

// Balance godoc
// @Summary      Saldo en mano
// @Tags         ledger
// @Security     Bearer
// @Produce      json
// @Param        location_id  query  string  true  "Ubicación"
// @Param        item_id      query  string  true  "Artículo"
// @Success      200  {object}  dto.BalanceResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/ledger/balance [get]
func (h *LedgerHandler) Balance(c *fiber.Ctx) error {
	locationID, itemID := c.Query("location_id"), c.Query("item_id")
	balance, err := h.svc.GetBalance(c.Context(), locationID, itemID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.BalanceResponse{
		LocationID: locationID,
		ItemID:     itemID,
		BalanceKg:  balance,
		Bags:       inventory.KgToBags(balance, h.kgPerBag),
	})
}

// FIFOSuggestion godoc
// @Summary      Lote sugerido para picking (el más antiguo disponible)
// @Description  Solo sugerencia: los despachos descuentan del lote más reciente, no de este.
// @Tags         ledger
// @Security     Bearer
// @Produce      json
// @Param        location_id  query  string  true  "Ubicación"
// @Param        item_id      query  string  true  "Artículo"
// @Success      200  {object}  dto.BatchDTO
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/ledger/fifo-suggestion [get]
func (h *LedgerHandler) FIFOSuggestion(c *fiber.Ctx) error {
	locationID, itemID := c.Query("location_id"), c.Query("item_id")
	if locationID == "" || itemID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "location_id e item_id son requeridos"})
	}
	b, err := h.svc.SuggestFIFO(c.Context(), locationID, itemID)
	if err != nil {
		return respondError(c, err)
	}
	if b == nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "no hay lotes disponibles"})
	}
	return c.JSON(toBatchDTO(b))
}

// Conservation godoc
// @Summary      Verificar conservación lotes vs transacciones (admin)
// @Tags         ledger
// @Security     Bearer
// @Produce      json
// @Param        location_id  query  string  true  "Ubicación"
// @Param        item_id      query  string  true  "Artículo"
// @Success      200  {object}  dto.ConservationResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/ledger/conservation [get]
func (h *LedgerHandler) Conservation(c *fiber.Ctx) error {
	locationID, itemID := c.Query("location_id"), c.Query("item_id")
	if locationID == "" || itemID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "location_id e item_id son requeridos"})
	}
	r, err := h.svc.CheckConservation(c.Context(), locationID, itemID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ConservationResponse{
		LocationID:       r.LocationID,
		ItemID:           r.ItemID,
		BatchTotal:       r.BatchTotal,
		TransactionTotal: r.TransactionTotal,
		Drift:            r.Drift,
		Consistent:       r.Consistent,
	})
}

// outOfScope personal de tienda y gerentes de ubicación solo operan su propia ubicación.
func outOfScope(c *fiber.Ctx, locationID string) bool {
	switch GetRole(c) {
	case entity.RoleStaff, entity.RoleLocationManager:
		own := GetLocationID(c)
		return own != "" && own != locationID
	}
	return false
}

func toMovementResponse(r *ledger.MovementResult) dto.MovementResponse {
	return dto.MovementResponse{TransactionID: r.TransactionID, BatchID: r.BatchID, Quantity: r.Qty}
}

func toBatchDTO(b *entity.Batch) dto.BatchDTO {
	return dto.BatchDTO{
		ID:           b.ID,
		ItemID:       b.ItemID,
		LocationID:   b.LocationID,
		SupplierID:   b.SupplierID,
		InitialQty:   b.InitialQty,
		RemainingQty: b.RemainingQty,
		ReceivedAt:   b.ReceivedAt,
		Status:       b.Status,
	}
}
