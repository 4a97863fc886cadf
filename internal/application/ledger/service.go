// Package ledger implementa el libro de inventario: lotes mutables más transacciones inmutables.
//
// El almacenamiento no ofrece transacciones entre filas, así que cada operación es una secuencia
// explícita de dos fases:
//
//  1. escribir lotes (cada escritura es un compare-and-set de una fila sobre remaining_qty)
//  2. insertar exactamente una Transaction
//
// Si la fase 2 falla después de la 1 (o la 1 queda a medias) el resultado es un
// domain.IntegrityWarning: se registra, se envía al canal de operaciones y se devuelve al llamador.
// No hay rollback ni reintento automático.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/stockflow-api/internal/application/ports"
	"github.com/jhoicas/stockflow-api/internal/domain"
	"github.com/jhoicas/stockflow-api/internal/domain/entity"
	"github.com/jhoicas/stockflow-api/internal/domain/inventory"
	"github.com/jhoicas/stockflow-api/internal/domain/repository"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// DefaultCASRetries reintentos cuando otra escritura modifica un lote entre la lectura y el update.
const DefaultCASRetries = 5

const qtyScale = 3

// maxQty primer valor que no cabe en NUMERIC(14,3).
var maxQty = decimal.New(1, 11)

// Config parámetros del libro.
type Config struct {
	CASRetries int
}

// Service casos de uso del libro de inventario.
type Service struct {
	batches    repository.BatchRepository
	txs        repository.TransactionRepository
	locations  repository.LocationRepository
	items      repository.ItemRepository
	operators  ports.OperatorChannel
	log        zerolog.Logger
	casRetries int
	now        func() time.Time
}

// NewService construye el servicio. operators puede ser nil (solo se registra en el log).
func NewService(
	batches repository.BatchRepository,
	txs repository.TransactionRepository,
	locations repository.LocationRepository,
	items repository.ItemRepository,
	operators ports.OperatorChannel,
	log zerolog.Logger,
	cfg Config,
) *Service {
	retries := cfg.CASRetries
	if retries <= 0 {
		retries = DefaultCASRetries
	}
	return &Service{
		batches:    batches,
		txs:        txs,
		locations:  locations,
		items:      items,
		operators:  operators,
		log:        log.With().Str("component", "ledger").Logger(),
		casRetries: retries,
		now:        time.Now,
	}
}

// WithClock reemplaza el reloj (pruebas).
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// ReceiveInput entrada de una recepción de proveedor.
type ReceiveInput struct {
	LocationID string
	ItemID     string
	SupplierID string
	Qty        decimal.Decimal
	Actor      entity.Actor
}

// MovementInput entrada de despacho, merma o devolución.
type MovementInput struct {
	LocationID string
	ItemID     string
	Qty        decimal.Decimal
	Reason     string
	Actor      entity.Actor
}

// TransferInput entrada de un traslado entre ubicaciones.
type TransferInput struct {
	FromLocationID string
	ToLocationID   string
	ItemID         string
	Qty            decimal.Decimal
	Actor          entity.Actor
}

// AdjustInput ajuste manual; SignedQty negativo descuenta.
type AdjustInput struct {
	LocationID string
	ItemID     string
	SignedQty  decimal.Decimal
	Reason     string
	Actor      entity.Actor
}

// ReturnInput devolución; BatchID vacío abre un lote en cuarentena.
type ReturnInput struct {
	LocationID string
	ItemID     string
	Qty        decimal.Decimal
	BatchID    string
	Reason     string
	Actor      entity.Actor
}

// MovementResult resultado de una mutación del libro.
type MovementResult struct {
	TransactionID string
	BatchID       string
	Qty           decimal.Decimal // cantidad efectivamente aplicada
}

// ConservationReport compara remanentes de lotes contra la suma con signo de transacciones.
type ConservationReport struct {
	LocationID       string
	ItemID           string
	BatchTotal       decimal.Decimal
	TransactionTotal decimal.Decimal
	Drift            decimal.Decimal
	Consistent       bool
}

// Receive abre un lote disponible y registra la transacción receive.
func (s *Service) Receive(ctx context.Context, in ReceiveInput) (*MovementResult, error) {
	if in.SupplierID == "" {
		return nil, domain.NewValidation("supplier_id es requerido")
	}
	if err := s.validatePair(ctx, in.LocationID, in.ItemID, in.Qty); err != nil {
		return nil, err
	}
	now := s.now()
	batch := &entity.Batch{
		ID:           uuid.New().String(),
		ItemID:       in.ItemID,
		LocationID:   in.LocationID,
		SupplierID:   in.SupplierID,
		InitialQty:   in.Qty,
		RemainingQty: in.Qty,
		ReceivedAt:   now,
		Status:       entity.BatchStatusAvailable,
		UpdatedAt:    now,
	}
	if err := s.batches.Create(ctx, batch); err != nil {
		return nil, fmt.Errorf("crear lote: %w", err)
	}
	tx := &entity.Transaction{
		Type:       entity.TransactionReceive,
		ItemID:     in.ItemID,
		Qty:        in.Qty,
		LocationTo: in.LocationID,
		BatchID:    batch.ID,
		ActorID:    in.Actor.ID,
		CreatedAt:  now,
	}
	if err := s.record(ctx, "receive", tx, "lote creado "+batch.ID); err != nil {
		return nil, err
	}
	return &MovementResult{TransactionID: tx.ID, BatchID: batch.ID, Qty: in.Qty}, nil
}

// Issue descuenta del lote recibido más recientemente (luego los anteriores).
// Un actor privilegiado sin stock suficiente descuenta solo lo disponible.
func (s *Service) Issue(ctx context.Context, in MovementInput) (*MovementResult, error) {
	if err := s.validatePair(ctx, in.LocationID, in.ItemID, in.Qty); err != nil {
		return nil, err
	}
	return s.deductAndRecord(ctx, "issue", in.LocationID, in.ItemID, in.Qty, entity.IsPrivileged(in.Actor.Role),
		func(applied decimal.Decimal, batchID string) *entity.Transaction {
			return &entity.Transaction{
				Type:         entity.TransactionIssue,
				ItemID:       in.ItemID,
				Qty:          applied,
				LocationFrom: in.LocationID,
				BatchID:      batchID,
				ActorID:      in.Actor.ID,
				Notes:        in.Reason,
			}
		})
}

// Waste registra merma; siempre exige stock suficiente.
func (s *Service) Waste(ctx context.Context, in MovementInput) (*MovementResult, error) {
	if in.Reason == "" {
		return nil, domain.NewValidation("reason es requerido para registrar merma")
	}
	if err := s.validatePair(ctx, in.LocationID, in.ItemID, in.Qty); err != nil {
		return nil, err
	}
	return s.deductAndRecord(ctx, "waste", in.LocationID, in.ItemID, in.Qty, false,
		func(applied decimal.Decimal, batchID string) *entity.Transaction {
			return &entity.Transaction{
				Type:         entity.TransactionWaste,
				ItemID:       in.ItemID,
				Qty:          applied,
				LocationFrom: in.LocationID,
				BatchID:      batchID,
				ActorID:      in.Actor.ID,
				Notes:        in.Reason,
			}
		})
}

// Adjust corrección manual. Positivo abre un lote nuevo; negativo valida stock y descuenta.
func (s *Service) Adjust(ctx context.Context, in AdjustInput) (*MovementResult, error) {
	if in.Reason == "" {
		return nil, domain.NewValidation("reason es requerido para un ajuste")
	}
	if in.SignedQty.IsZero() {
		return nil, domain.NewValidation("la cantidad del ajuste no puede ser cero")
	}
	if err := s.validatePair(ctx, in.LocationID, in.ItemID, in.SignedQty.Abs()); err != nil {
		return nil, err
	}
	if in.SignedQty.IsNegative() {
		return s.deductAndRecord(ctx, "adjustment", in.LocationID, in.ItemID, in.SignedQty.Neg(), entity.IsPrivileged(in.Actor.Role),
			func(applied decimal.Decimal, batchID string) *entity.Transaction {
				return &entity.Transaction{
					Type:         entity.TransactionAdjustment,
					ItemID:       in.ItemID,
					Qty:          applied,
					LocationFrom: in.LocationID,
					BatchID:      batchID,
					ActorID:      in.Actor.ID,
					Notes:        in.Reason,
				}
			})
	}

	now := s.now()
	batch := &entity.Batch{
		ID:           uuid.New().String(),
		ItemID:       in.ItemID,
		LocationID:   in.LocationID,
		InitialQty:   in.SignedQty,
		RemainingQty: in.SignedQty,
		ReceivedAt:   now,
		Status:       entity.BatchStatusAvailable,
		UpdatedAt:    now,
	}
	if err := s.batches.Create(ctx, batch); err != nil {
		return nil, fmt.Errorf("crear lote de ajuste: %w", err)
	}
	tx := &entity.Transaction{
		Type:       entity.TransactionAdjustment,
		ItemID:     in.ItemID,
		Qty:        in.SignedQty,
		LocationTo: in.LocationID,
		BatchID:    batch.ID,
		ActorID:    in.Actor.ID,
		Notes:      in.Reason,
		CreatedAt:  now,
	}
	if err := s.record(ctx, "adjustment", tx, "lote creado "+batch.ID); err != nil {
		return nil, err
	}
	return &MovementResult{TransactionID: tx.ID, BatchID: batch.ID, Qty: in.SignedQty}, nil
}

// Transfer descuenta en origen (más reciente primero), abre un lote en destino y registra una
// sola transacción con origen y destino.
func (s *Service) Transfer(ctx context.Context, in TransferInput) (*MovementResult, error) {
	if in.FromLocationID != "" && in.FromLocationID == in.ToLocationID {
		return nil, &domain.ValidationError{Err: domain.ErrSameLocation, Message: "no se puede trasladar a la misma ubicación " + in.FromLocationID}
	}
	if err := s.validatePair(ctx, in.FromLocationID, in.ItemID, in.Qty); err != nil {
		return nil, err
	}
	if err := s.validateLocation(ctx, in.ToLocationID); err != nil {
		return nil, err
	}

	plan, err := s.deduct(ctx, in.FromLocationID, in.ItemID, in.Qty, false)
	if err != nil {
		return nil, s.partial(ctx, "transfer", in.FromLocationID, in.ItemID, plan, err)
	}

	now := s.now()
	dest := &entity.Batch{
		ID:           uuid.New().String(),
		ItemID:       in.ItemID,
		LocationID:   in.ToLocationID,
		SupplierID:   plan.supplierID,
		InitialQty:   plan.applied,
		RemainingQty: plan.applied,
		ReceivedAt:   now,
		Status:       entity.BatchStatusAvailable,
		UpdatedAt:    now,
	}
	if err := s.batches.Create(ctx, dest); err != nil {
		return nil, s.warn(ctx, &domain.IntegrityWarning{
			Op: "transfer", LocationID: in.FromLocationID, ItemID: in.ItemID,
			Applied: fmt.Sprintf("descontado en origen %s kg, lote destino no creado", plan.applied),
			Err:     err,
		})
	}
	tx := &entity.Transaction{
		Type:         entity.TransactionTransfer,
		ItemID:       in.ItemID,
		Qty:          plan.applied,
		LocationFrom: in.FromLocationID,
		LocationTo:   in.ToLocationID,
		BatchID:      dest.ID,
		ActorID:      in.Actor.ID,
		CreatedAt:    now,
	}
	if err := s.record(ctx, "transfer", tx, fmt.Sprintf("origen %s kg, lote destino %s", plan.applied, dest.ID)); err != nil {
		return nil, err
	}
	return &MovementResult{TransactionID: tx.ID, BatchID: dest.ID, Qty: plan.applied}, nil
}

// Return repone un lote existente o abre uno nuevo en cuarentena pendiente de inspección.
func (s *Service) Return(ctx context.Context, in ReturnInput) (*MovementResult, error) {
	if err := s.validatePair(ctx, in.LocationID, in.ItemID, in.Qty); err != nil {
		return nil, err
	}
	now := s.now()
	batchID := in.BatchID
	if batchID == "" {
		batch := &entity.Batch{
			ID:           uuid.New().String(),
			ItemID:       in.ItemID,
			LocationID:   in.LocationID,
			InitialQty:   in.Qty,
			RemainingQty: in.Qty,
			ReceivedAt:   now,
			Status:       entity.BatchStatusQuarantine,
			UpdatedAt:    now,
		}
		if err := s.batches.Create(ctx, batch); err != nil {
			return nil, fmt.Errorf("crear lote de devolución: %w", err)
		}
		batchID = batch.ID
	} else if err := s.replenishBatch(ctx, in); err != nil {
		return nil, err
	}

	tx := &entity.Transaction{
		Type:       entity.TransactionReturn,
		ItemID:     in.ItemID,
		Qty:        in.Qty,
		LocationTo: in.LocationID,
		BatchID:    batchID,
		ActorID:    in.Actor.ID,
		Notes:      in.Reason,
		CreatedAt:  now,
	}
	if err := s.record(ctx, "return", tx, "lote "+batchID+" repuesto"); err != nil {
		return nil, err
	}
	return &MovementResult{TransactionID: tx.ID, BatchID: batchID, Qty: in.Qty}, nil
}

func (s *Service) replenishBatch(ctx context.Context, in ReturnInput) error {
	for attempt := 0; attempt <= s.casRetries; attempt++ {
		b, err := s.batches.GetByID(ctx, in.BatchID)
		if err != nil {
			return err
		}
		if b == nil || b.LocationID != in.LocationID || b.ItemID != in.ItemID {
			return domain.ErrNotFound
		}
		remaining := b.RemainingQty.Add(in.Qty)
		if remaining.GreaterThan(b.InitialQty) {
			return domain.NewValidation(fmt.Sprintf("la devolución excede la cantidad inicial del lote (%s kg, remanente %s kg)", b.InitialQty, b.RemainingQty))
		}
		ok, err := s.batches.UpdateRemaining(ctx, b.ID, b.RemainingQty, remaining, b.StatusAfter(remaining))
		if err != nil {
			return fmt.Errorf("reponer lote: %w", err)
		}
		if ok {
			return nil
		}
	}
	return fmt.Errorf("reponer lote %s: %w", in.BatchID, domain.ErrConflict)
}

// GetBalance saldo en mano, recalculado en cada llamada.
func (s *Service) GetBalance(ctx context.Context, locationID, itemID string) (decimal.Decimal, error) {
	if locationID == "" || itemID == "" {
		return decimal.Zero, domain.ErrInvalidInput
	}
	return s.batches.SumRemaining(ctx, locationID, itemID)
}

// SuggestFIFO lote disponible más antiguo para picking. El descuento real (Issue) usa el más reciente;
// la diferencia es intencional y se mantiene.
func (s *Service) SuggestFIFO(ctx context.Context, locationID, itemID string) (*entity.Batch, error) {
	batches, err := s.batches.ListByLocationItem(ctx, locationID, itemID)
	if err != nil {
		return nil, err
	}
	return inventory.OldestAvailable(batches), nil
}

// CheckConservation verifica Σ remanentes = Σ transacciones con signo para el par.
// Un desfase puede ser transitorio si hay una escritura en curso entre sus dos fases.
func (s *Service) CheckConservation(ctx context.Context, locationID, itemID string) (*ConservationReport, error) {
	batches, err := s.batches.ListByLocationItem(ctx, locationID, itemID)
	if err != nil {
		return nil, err
	}
	txTotal, err := s.txs.SumSigned(ctx, locationID, itemID)
	if err != nil {
		return nil, err
	}
	batchTotal := inventory.Balance(batches)
	drift := batchTotal.Sub(txTotal)
	return &ConservationReport{
		LocationID:       locationID,
		ItemID:           itemID,
		BatchTotal:       batchTotal,
		TransactionTotal: txTotal,
		Drift:            drift,
		Consistent:       drift.IsZero(),
	}, nil
}

// deductionPlan lo que efectivamente se descontó.
type deductionPlan struct {
	applied    decimal.Decimal
	touched    int
	firstBatch string
	supplierID string
}

// deduct descuenta qty más reciente primero, con compare-and-set por lote.
// clamp=true limita la cantidad a lo disponible en lugar de rechazar.
// Si devuelve error con plan.touched > 0, hubo escrituras parciales.
func (s *Service) deduct(ctx context.Context, locationID, itemID string, qty decimal.Decimal, clamp bool) (deductionPlan, error) {
	plan := deductionPlan{applied: decimal.Zero}
	pending := qty
	for attempt := 0; attempt <= s.casRetries && pending.IsPositive(); attempt++ {
		batches, err := s.batches.ListByLocationItem(ctx, locationID, itemID)
		if err != nil {
			return plan, err
		}
		want := pending
		available := inventory.IssuableQty(batches)
		if available.LessThan(want) {
			if !clamp || !available.IsPositive() {
				if plan.touched == 0 {
					return plan, domain.NewInsufficientStock(available, qty)
				}
				return plan, domain.NewInsufficientStock(available, pending)
			}
			want = available
		}
		steps, err := inventory.PlanNewestFirst(batches, want)
		if err != nil {
			return plan, err
		}
		raced := false
		for _, d := range steps {
			remaining := d.Batch.RemainingQty.Sub(d.Qty)
			ok, err := s.batches.UpdateRemaining(ctx, d.Batch.ID, d.Batch.RemainingQty, remaining, d.Batch.StatusAfter(remaining))
			if err != nil {
				return plan, fmt.Errorf("actualizar lote %s: %w", d.Batch.ID, err)
			}
			if !ok {
				raced = true
				break
			}
			if plan.touched == 0 {
				plan.firstBatch = d.Batch.ID
				plan.supplierID = d.Batch.SupplierID
			}
			plan.touched++
			plan.applied = plan.applied.Add(d.Qty)
			pending = pending.Sub(d.Qty)
		}
		if !raced && clamp {
			break
		}
	}
	if pending.IsPositive() && !clamp {
		return plan, fmt.Errorf("descontar %s kg: %w", pending, domain.ErrConflict)
	}
	if clamp && plan.applied.IsZero() {
		// Todos los intentos perdieron la carrera antes de tocar un lote.
		return plan, fmt.Errorf("descontar %s kg: %w", qty, domain.ErrConflict)
	}
	return plan, nil
}

// deductAndRecord descuenta y registra la transacción que construye build.
func (s *Service) deductAndRecord(
	ctx context.Context,
	op, locationID, itemID string,
	qty decimal.Decimal,
	clamp bool,
	build func(applied decimal.Decimal, batchID string) *entity.Transaction,
) (*MovementResult, error) {
	plan, err := s.deduct(ctx, locationID, itemID, qty, clamp)
	if err != nil {
		return nil, s.partial(ctx, op, locationID, itemID, plan, err)
	}
	batchID := ""
	if plan.touched == 1 {
		batchID = plan.firstBatch
	}
	tx := build(plan.applied, batchID)
	tx.CreatedAt = s.now()
	if clamp && plan.applied.LessThan(qty) {
		s.log.Warn().
			Str("op", op).Str("location_id", locationID).Str("item_id", itemID).
			Str("solicitado", qty.String()).Str("aplicado", plan.applied.String()).
			Msg("descuento privilegiado limitado al saldo disponible")
	}
	if err := s.record(ctx, op, tx, fmt.Sprintf("lotes actualizados: %d, %s kg", plan.touched, plan.applied)); err != nil {
		return nil, err
	}
	return &MovementResult{TransactionID: tx.ID, BatchID: batchID, Qty: plan.applied}, nil
}

// partial convierte un error de descuento en IntegrityWarning si ya se escribió algún lote.
// Lo ya descontado queda registrado como transacción para no romper la conservación.
func (s *Service) partial(ctx context.Context, op, locationID, itemID string, plan deductionPlan, cause error) error {
	if plan.touched == 0 {
		return cause
	}
	w := &domain.IntegrityWarning{
		Op: op, LocationID: locationID, ItemID: itemID,
		Applied: fmt.Sprintf("lotes actualizados: %d, %s kg", plan.touched, plan.applied),
		Err:     cause,
	}
	tx := &entity.Transaction{
		ID:           uuid.New().String(),
		Type:         entity.TransactionAdjustment,
		ItemID:       itemID,
		Qty:          plan.applied,
		LocationFrom: locationID,
		Notes:        "descuento parcial de " + op + " interrumpido",
		CreatedAt:    s.now(),
	}
	if err := s.txs.Create(ctx, tx); err != nil {
		w.Applied += "; transacción compensatoria no registrada"
	}
	return s.warn(ctx, w)
}

// record inserta la transacción; si falla, los lotes ya quedaron escritos.
func (s *Service) record(ctx context.Context, op string, tx *entity.Transaction, applied string) error {
	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}
	if err := s.txs.Create(ctx, tx); err != nil {
		loc := tx.LocationTo
		if loc == "" {
			loc = tx.LocationFrom
		}
		return s.warn(ctx, &domain.IntegrityWarning{Op: op, LocationID: loc, ItemID: tx.ItemID, Applied: applied, Err: err})
	}
	return nil
}

func (s *Service) warn(ctx context.Context, w *domain.IntegrityWarning) error {
	s.log.Error().Err(w.Err).
		Str("op", w.Op).Str("location_id", w.LocationID).Str("item_id", w.ItemID).Str("aplicado", w.Applied).
		Msg("inconsistencia en el libro: escritura parcial")
	if s.operators != nil {
		s.operators.ReportIntegrity(ctx, w)
	}
	return w
}

func (s *Service) validatePair(ctx context.Context, locationID, itemID string, qty decimal.Decimal) error {
	if locationID == "" || itemID == "" {
		return domain.NewValidation("location_id e item_id son requeridos")
	}
	if !qty.IsPositive() {
		return domain.NewValidation("la cantidad debe ser mayor que cero")
	}
	// Las columnas de cantidad son NUMERIC(14,3).
	if !qty.Equal(qty.Truncate(qtyScale)) {
		return domain.NewValidation("la cantidad admite como máximo 3 decimales")
	}
	if qty.GreaterThanOrEqual(maxQty) {
		return domain.NewValidation("la cantidad excede el máximo admitido")
	}
	if err := s.validateLocation(ctx, locationID); err != nil {
		return err
	}
	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return err
	}
	if item == nil {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Service) validateLocation(ctx context.Context, locationID string) error {
	if locationID == "" {
		return domain.NewValidation("location_id es requerido")
	}
	loc, err := s.locations.GetByID(ctx, locationID)
	if err != nil {
		return err
	}
	if loc == nil {
		return domain.ErrNotFound
	}
	return nil
}
