package notify

import (
	"context"
	"encoding/json"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/jhoicas/stockflow-api/internal/application/ports"
	"github.com/jhoicas/stockflow-api/internal/domain"
	"github.com/rs/zerolog"
)

// Envelope mensaje publicado en el tópico de notificaciones; lo consume el servicio de correo.
type Envelope struct {
	Recipient ports.Recipient `json:"recipient"`
	Template  string          `json:"template"`
	Subject   string          `json:"subject"`
	Body      string          `json:"body"`
	Data      map[string]any  `json:"data,omitempty"`
	SentAt    time.Time       `json:"sent_at"`
}

// PubSubNotifier publica cada notificación en un tópico de Google Pub/Sub.
type PubSubNotifier struct {
	topic   *pubsub.Topic
	timeout time.Duration
	log     zerolog.Logger
}

// NewPubSubNotifier construye el notificador sobre un tópico ya existente.
func NewPubSubNotifier(topic *pubsub.Topic, timeout time.Duration, log zerolog.Logger) *PubSubNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &PubSubNotifier{topic: topic, timeout: timeout, log: log.With().Str("component", "notifier").Logger()}
}

func (n *PubSubNotifier) Notify(ctx context.Context, to ports.Recipient, template string, data map[string]any) bool {
	msg := Render(template, data)
	payload, err := json.Marshal(Envelope{
		Recipient: to,
		Template:  template,
		Subject:   msg.Subject,
		Body:      msg.Body,
		Data:      data,
		SentAt:    time.Now().UTC(),
	})
	if err != nil {
		n.fail(to, template, err)
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	result := n.topic.Publish(ctx, &pubsub.Message{
		Data:       payload,
		Attributes: map[string]string{"template": template, "recipient": to.UserID},
	})
	id, err := result.Get(ctx)
	if err != nil {
		n.fail(to, template, err)
		return false
	}
	n.log.Debug().Str("message_id", id).Str("template", template).Str("destinatario", to.UserID).Msg("notificación publicada")
	return true
}

func (n *PubSubNotifier) fail(to ports.Recipient, template string, err error) {
	f := &domain.NotificationFailure{Recipient: to.UserID, Template: template, Err: err}
	n.log.Error().Err(f).Str("template", template).Str("destinatario", to.UserID).Msg("notificación no entregada")
}
