package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/stockflow-api/internal/application/dto"
	"github.com/jhoicas/stockflow-api/internal/application/replenishment"
	"github.com/jhoicas/stockflow-api/internal/domain"
	"github.com/jhoicas/stockflow-api/internal/domain/entity"
)

// RequestHandler maneja el ciclo de vida de las solicitudes de reposición (protegido).
type RequestHandler struct {
	svc *replenishment.RequestService
}

// NewRequestHandler construye el handler.
func NewRequestHandler(svc *replenishment.RequestService) *RequestHandler {
	return &RequestHandler{svc: svc}
}

// Create godoc
// @Summary      Crear solicitud de reposición
// @Tags         requests
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateReplenishmentRequest  true  "location_id, item_id, quantity_bags, urgency (normal|urgent)"
// @Success      201   {object}  dto.ReplenishmentRequestDTO
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/requests [post]
func (h *RequestHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateReplenishmentRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	if outOfScope(c, in.LocationID) {
		return respondError(c, domain.ErrForbidden)
	}
	req, err := h.svc.Create(c.Context(), replenishment.CreateRequestInput{
		LocationID:   in.LocationID,
		ItemID:       in.ItemID,
		QuantityBags: in.QuantityBags,
		Urgency:      in.Urgency,
		Actor:        actor(c),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toRequestDTO(req))
}

// GetByID godoc
// @Summary      Obtener solicitud
// @Tags         requests
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la solicitud"
// @Success      200  {object}  dto.ReplenishmentRequestDTO
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/requests/{id} [get]
func (h *RequestHandler) GetByID(c *fiber.Ctx) error {
	req, err := h.svc.Get(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toRequestDTO(req))
}

// Accept godoc
// @Summary      Aceptar solicitud pendiente
// @Description  Solo un actor gana; los demás reciben 409 ALREADY_TAKEN.
// @Tags         requests
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la solicitud"
// @Success      200  {object}  dto.ReplenishmentRequestDTO
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/requests/{id}/accept [post]
func (h *RequestHandler) Accept(c *fiber.Ctx) error {
	req, err := h.svc.Accept(c.Context(), c.Params("id"), actor(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toRequestDTO(req))
}

// Cancel godoc
// @Summary      Cancelar solicitud
// @Tags         requests
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                 true   "ID de la solicitud"
// @Param        body  body  dto.CancelRequestBody  false  "reason"
// @Success      200   {object}  dto.ReplenishmentRequestDTO
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/requests/{id}/cancel [post]
func (h *RequestHandler) Cancel(c *fiber.Ctx) error {
	var in dto.CancelRequestBody
	if len(c.Body()) > 0 {
		if ok, err := parseBody(c, &in); !ok {
			return err
		}
	}
	req, err := h.svc.Cancel(c.Context(), c.Params("id"), in.Reason, actor(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toRequestDTO(req))
}

// CreateTrip godoc
// @Summary      Asignar viaje a una solicitud aceptada
// @Tags         requests
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string               true   "ID de la solicitud"
// @Param        body  body  dto.TripRequestBody  false  "trip_id (vacío = se genera)"
// @Success      200   {object}  dto.ReplenishmentRequestDTO
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/requests/{id}/trip [post]
func (h *RequestHandler) CreateTrip(c *fiber.Ctx) error {
	var in dto.TripRequestBody
	if len(c.Body()) > 0 {
		if ok, err := parseBody(c, &in); !ok {
			return err
		}
	}
	req, err := h.svc.CreateTrip(c.Context(), c.Params("id"), in.TripID, actor(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toRequestDTO(req))
}

// StartDelivery godoc
// @Summary      Iniciar entrega
// @Tags         requests
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la solicitud"
// @Success      200  {object}  dto.ReplenishmentRequestDTO
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/requests/{id}/start [post]
func (h *RequestHandler) StartDelivery(c *fiber.Ctx) error {
	req, err := h.svc.StartDelivery(c.Context(), c.Params("id"), actor(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toRequestDTO(req))
}

// ConfirmDelivery godoc
// @Summary      Confirmar bolsas entregadas
// @Description  Entrega completa = delivered; parcial = partially_fulfilled.
// @Tags         requests
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                   true  "ID de la solicitud"
// @Param        body  body  dto.ConfirmDeliveryBody  true  "confirmed_bags"
// @Success      200   {object}  dto.ReplenishmentRequestDTO
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/requests/{id}/confirm [post]
func (h *RequestHandler) ConfirmDelivery(c *fiber.Ctx) error {
	var in dto.ConfirmDeliveryBody
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	req, err := h.svc.ConfirmDelivery(c.Context(), c.Params("id"), in.ConfirmedBags, actor(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toRequestDTO(req))
}

// FulfillRemaining godoc
// @Summary      Nuevo viaje para las bolsas pendientes
// @Tags         requests
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string               true   "ID de la solicitud"
// @Param        body  body  dto.TripRequestBody  false  "trip_id (vacío = se genera)"
// @Success      200   {object}  dto.ReplenishmentRequestDTO
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/requests/{id}/fulfill-remaining [post]
func (h *RequestHandler) FulfillRemaining(c *fiber.Ctx) error {
	var in dto.TripRequestBody
	if len(c.Body()) > 0 {
		if ok, err := parseBody(c, &in); !ok {
			return err
		}
	}
	req, err := h.svc.FulfillRemaining(c.Context(), c.Params("id"), in.TripID, actor(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toRequestDTO(req))
}

func toRequestDTO(r *entity.ReplenishmentRequest) dto.ReplenishmentRequestDTO {
	return dto.ReplenishmentRequestDTO{
		ID:            r.ID,
		LocationID:    r.LocationID,
		ItemID:        r.ItemID,
		QuantityBags:  r.QuantityBags,
		DeliveredBags: r.DeliveredBags,
		Urgency:       r.Urgency,
		Status:        r.Status,
		RequestedBy:   r.RequestedBy,
		AcceptedBy:    r.AcceptedBy,
		TripID:        r.TripID,
		CancelReason:  r.CancelReason,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}
