package replenishment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/stockflow-api/internal/domain"
	"github.com/jhoicas/stockflow-api/internal/domain/entity"
	rules "github.com/jhoicas/stockflow-api/internal/domain/replenishment"
	"github.com/jhoicas/stockflow-api/internal/domain/repository"
	"github.com/rs/zerolog"
)

// StockReceiver registra en el libro las bolsas confirmadas de una entrega.
type StockReceiver interface {
	ReceiveDelivery(ctx context.Context, req *entity.ReplenishmentRequest, bags int, actor entity.Actor) error
}

// CreateRequestInput entrada para abrir una solicitud.
type CreateRequestInput struct {
	LocationID   string
	ItemID       string
	QuantityBags int
	Urgency      string
	Actor        entity.Actor // ID vacío = creada por el evaluador automático
}

// RequestService máquina de estados de las solicitudes de reposición.
type RequestService struct {
	requests    repository.RequestRepository
	escalations repository.EscalationRepository
	alerts      repository.AlertRepository
	locations   repository.LocationRepository
	receiver    StockReceiver
	log         zerolog.Logger
	now         func() time.Time
}

// NewRequestService construye el servicio de solicitudes.
func NewRequestService(
	requests repository.RequestRepository,
	escalations repository.EscalationRepository,
	alerts repository.AlertRepository,
	locations repository.LocationRepository,
	log zerolog.Logger,
) *RequestService {
	return &RequestService{
		requests:    requests,
		escalations: escalations,
		alerts:      alerts,
		locations:   locations,
		log:         log.With().Str("component", "requests").Logger(),
		now:         time.Now,
	}
}

// WithStockReceiver activa el registro de las entregas confirmadas en el libro.
func (s *RequestService) WithStockReceiver(r StockReceiver) *RequestService {
	s.receiver = r
	return s
}

// WithClock reemplaza el reloj (pruebas).
func (s *RequestService) WithClock(now func() time.Time) *RequestService {
	s.now = now
	return s
}

// Create abre una solicitud pendiente, arma su temporizador y resuelve la alerta abierta del par.
func (s *RequestService) Create(ctx context.Context, in CreateRequestInput) (*entity.ReplenishmentRequest, error) {
	return s.create(ctx, in, s.now())
}

func (s *RequestService) create(ctx context.Context, in CreateRequestInput, now time.Time) (*entity.ReplenishmentRequest, error) {
	if in.LocationID == "" || in.ItemID == "" {
		return nil, domain.NewValidation("location_id e item_id son requeridos")
	}
	if in.QuantityBags <= 0 {
		return nil, domain.NewValidation("quantity_bags debe ser mayor que cero")
	}
	urgency := in.Urgency
	if urgency == "" {
		urgency = entity.UrgencyNormal
	}
	if urgency != entity.UrgencyNormal && urgency != entity.UrgencyUrgent {
		return nil, domain.NewValidation("urgency debe ser normal o urgent")
	}
	loc, err := s.locations.GetByID(ctx, in.LocationID)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		return nil, domain.ErrNotFound
	}

	req := &entity.ReplenishmentRequest{
		ID:           uuid.New().String(),
		LocationID:   in.LocationID,
		ItemID:       in.ItemID,
		QuantityBags: in.QuantityBags,
		Urgency:      urgency,
		Status:       entity.RequestStatusPending,
		RequestedBy:  in.Actor.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("crear solicitud: %w", err)
	}

	st := &entity.EscalationState{
		RequestID:        req.ID,
		Level:            rules.RequestLevelNone,
		NextEscalationAt: rules.RequestNextAt(urgency, rules.RequestLevelNone, now),
		CreatedAt:        now,
	}
	if err := s.escalations.Create(ctx, st); err != nil {
		// La solicitud ya existe; el siguiente barrido del escalador repone el temporizador.
		s.log.Error().Err(err).Str("request_id", req.ID).Msg("no se pudo crear el temporizador de escalamiento")
	}

	if resolved, err := s.alerts.ResolveOpen(ctx, req.LocationID, req.ItemID, entity.AlertResolvedRequestCreated, now); err != nil {
		s.log.Warn().Err(err).Str("request_id", req.ID).Msg("no se pudo resolver la alerta de stock bajo")
	} else if resolved {
		s.log.Info().Str("location_id", req.LocationID).Str("item_id", req.ItemID).Msg("alerta de stock bajo resuelta por solicitud creada")
	}

	s.log.Info().
		Str("request_id", req.ID).Str("location_id", req.LocationID).Str("item_id", req.ItemID).
		Int("quantity_bags", req.QuantityBags).Str("urgency", urgency).
		Msg("solicitud de reposición creada")
	return req, nil
}

// Get devuelve la solicitud o domain.ErrNotFound.
func (s *RequestService) Get(ctx context.Context, id string) (*entity.ReplenishmentRequest, error) {
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, domain.ErrNotFound
	}
	return req, nil
}

// Accept toma una solicitud pendiente. Si otro actor ganó la carrera devuelve *domain.ConflictError.
func (s *RequestService) Accept(ctx context.Context, id string, actor entity.Actor) (*entity.ReplenishmentRequest, error) {
	req, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status != entity.RequestStatusPending {
		return nil, acceptError(req)
	}
	now := s.now()
	ok, err := s.requests.Transition(ctx, id, entity.RequestStatusPending, entity.RequestPatch{
		Status:     entity.RequestStatusAccepted,
		AcceptedBy: actor.ID,
		UpdatedAt:  now,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		current, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, acceptError(current)
	}
	s.dropTimer(ctx, id)
	s.log.Info().Str("request_id", id).Str("actor_id", actor.ID).Msg("solicitud aceptada")
	return s.Get(ctx, id)
}

func acceptError(req *entity.ReplenishmentRequest) error {
	if req.Status == entity.RequestStatusAccepted {
		return &domain.ConflictError{RequestID: req.ID, AcceptedBy: req.AcceptedBy}
	}
	return domain.NewInvalidTransition("aceptar", req.Status)
}

// Cancel solo la puede ejecutar quien la pidió, quien la aceptó o un gerente.
func (s *RequestService) Cancel(ctx context.Context, id, reason string, actor entity.Actor) (*entity.ReplenishmentRequest, error) {
	req, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.ID != req.RequestedBy && actor.ID != req.AcceptedBy && !entity.IsManager(actor.Role) {
		return nil, domain.ErrForbidden
	}
	updated, err := s.transition(ctx, req, "cancelar", entity.RequestStatusCancelled, entity.RequestPatch{CancelReason: reason})
	if err != nil {
		return nil, err
	}
	s.dropTimer(ctx, id)
	return updated, nil
}

// CreateTrip asigna un viaje a una solicitud aceptada. tripID vacío genera uno.
func (s *RequestService) CreateTrip(ctx context.Context, id, tripID string, actor entity.Actor) (*entity.ReplenishmentRequest, error) {
	req, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireHandler(req, actor); err != nil {
		return nil, err
	}
	if tripID == "" {
		tripID = uuid.New().String()
	}
	return s.transition(ctx, req, "crear un viaje para", entity.RequestStatusTripCreated, entity.RequestPatch{TripID: tripID})
}

// StartDelivery marca el viaje en ruta.
func (s *RequestService) StartDelivery(ctx context.Context, id string, actor entity.Actor) (*entity.ReplenishmentRequest, error) {
	req, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireHandler(req, actor); err != nil {
		return nil, err
	}
	return s.transition(ctx, req, "iniciar la entrega de", entity.RequestStatusInDelivery, entity.RequestPatch{})
}

// ConfirmDelivery acumula las bolsas entregadas. Completa queda delivered; si faltan, partially_fulfilled.
func (s *RequestService) ConfirmDelivery(ctx context.Context, id string, bags int, actor entity.Actor) (*entity.ReplenishmentRequest, error) {
	if bags <= 0 {
		return nil, domain.NewValidation("confirmed_bags debe ser mayor que cero")
	}
	req, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	delivered := req.DeliveredBags + bags
	to := entity.RequestStatusPartiallyFulfilled
	if delivered >= req.QuantityBags {
		to = entity.RequestStatusDelivered
	}
	updated, err := s.transition(ctx, req, "confirmar la entrega de", to, entity.RequestPatch{DeliveredBags: &delivered})
	if err != nil {
		return nil, err
	}
	if s.receiver != nil {
		if err := s.receiver.ReceiveDelivery(ctx, updated, bags, actor); err != nil {
			s.log.Error().Err(err).Str("request_id", id).Int("bags", bags).Msg("entrega confirmada pero no registrada en el libro")
		}
	}
	return updated, nil
}

// FulfillRemaining abre un nuevo viaje para las bolsas pendientes de una entrega parcial.
func (s *RequestService) FulfillRemaining(ctx context.Context, id, tripID string, actor entity.Actor) (*entity.ReplenishmentRequest, error) {
	req, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireHandler(req, actor); err != nil {
		return nil, err
	}
	if tripID == "" {
		tripID = uuid.New().String()
	}
	return s.transition(ctx, req, "completar", entity.RequestStatusTripCreated, entity.RequestPatch{TripID: tripID})
}

// transition valida contra el mapa de transiciones y aplica el cambio condicionado al estado leído.
func (s *RequestService) transition(ctx context.Context, req *entity.ReplenishmentRequest, action, to string, patch entity.RequestPatch) (*entity.ReplenishmentRequest, error) {
	if !entity.CanTransition(req.Status, to) {
		return nil, domain.NewInvalidTransition(action, req.Status)
	}
	patch.Status = to
	patch.UpdatedAt = s.now()
	ok, err := s.requests.Transition(ctx, req.ID, req.Status, patch)
	if err != nil {
		return nil, err
	}
	if !ok {
		current, err := s.Get(ctx, req.ID)
		if err != nil {
			return nil, err
		}
		return nil, domain.NewInvalidTransition(action, current.Status)
	}
	s.log.Info().Str("request_id", req.ID).Str("from", req.Status).Str("to", to).Msg("transición de solicitud")
	return s.Get(ctx, req.ID)
}

func (s *RequestService) dropTimer(ctx context.Context, requestID string) {
	if err := s.escalations.Delete(ctx, requestID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.log.Warn().Err(err).Str("request_id", requestID).Msg("no se pudo eliminar el temporizador de escalamiento")
	}
}

// requireHandler el viaje lo gestiona quien aceptó la solicitud o un gerente.
func requireHandler(req *entity.ReplenishmentRequest, actor entity.Actor) error {
	if req.AcceptedBy != "" && actor.ID != req.AcceptedBy && !entity.IsManager(actor.Role) {
		return domain.ErrForbidden
	}
	return nil
}
