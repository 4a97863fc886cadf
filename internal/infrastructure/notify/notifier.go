package notify

import (
	"context"

	"github.com/jhoicas/stockflow-api/internal/application/ports"
	"github.com/jhoicas/stockflow-api/internal/domain"
	"github.com/rs/zerolog"
)

// LogNotifier escribe la notificación en el log. Driver por defecto en desarrollo.
type LogNotifier struct {
	log zerolog.Logger
}

// NewLogNotifier construye el notificador de log.
func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log.With().Str("component", "notifier").Logger()}
}

func (n *LogNotifier) Notify(_ context.Context, to ports.Recipient, template string, data map[string]any) bool {
	msg := Render(template, data)
	n.log.Info().
		Str("destinatario", to.UserID).Str("email", to.Email).Str("template", template).
		Str("asunto", msg.Subject).Msg(msg.Body)
	return true
}

// OperatorChannel registra las inconsistencias del libro y avisa a los administradores.
type OperatorChannel struct {
	resolver ports.RoleResolver
	notifier ports.Notifier
	log      zerolog.Logger
}

// NewOperatorChannel construye el canal de operaciones.
func NewOperatorChannel(resolver ports.RoleResolver, notifier ports.Notifier, log zerolog.Logger) *OperatorChannel {
	return &OperatorChannel{resolver: resolver, notifier: notifier, log: log.With().Str("component", "operators").Logger()}
}

func (o *OperatorChannel) ReportIntegrity(ctx context.Context, w *domain.IntegrityWarning) {
	o.log.Error().Err(w.Err).
		Str("op", w.Op).Str("location_id", w.LocationID).Str("item_id", w.ItemID).Str("aplicado", w.Applied).
		Msg("INTEGRITY_WARNING: requiere revisión manual")
	admins, err := o.resolver.Admins(ctx)
	if err != nil {
		o.log.Warn().Err(err).Msg("no se pudieron resolver administradores para el aviso de integridad")
		return
	}
	cause := ""
	if w.Err != nil {
		cause = w.Err.Error()
	}
	data := map[string]any{
		"op":          w.Op,
		"location_id": w.LocationID,
		"item_id":     w.ItemID,
		"applied":     w.Applied,
		"error":       cause,
	}
	for _, a := range admins {
		o.notifier.Notify(ctx, a, ports.TemplateIntegrityWarning, data)
	}
}
