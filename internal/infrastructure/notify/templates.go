// Package notify contiene los adaptadores de salida de notificaciones: registro en log,
// publicación en Pub/Sub, limitación de tasa y el canal de operaciones.
package notify

import (
	"fmt"
	"time"

	"github.com/jhoicas/stockflow-api/internal/application/ports"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Message notificación ya redactada.
type Message struct {
	Subject string
	Body    string
}

var printer = message.NewPrinter(language.Spanish)

// Render redacta la plantilla con los datos del evento. Plantillas desconocidas producen un texto genérico.
func Render(template string, data map[string]any) Message {
	switch template {
	case ports.TemplateRequestReminder:
		return Message{
			Subject: printer.Sprintf("Solicitud %s sin aceptar", str(data, "request_id")),
			Body: printer.Sprintf("La solicitud de %d bolsas para la ubicación %s (urgencia %s) sigue pendiente desde %s.",
				num(data, "quantity_bags"), str(data, "location_id"), str(data, "urgency"), when(data, "created_at")),
		}
	case ports.TemplateRequestEscalated:
		return Message{
			Subject: printer.Sprintf("Solicitud %s escalada", str(data, "request_id")),
			Body: printer.Sprintf("Ningún conductor ha aceptado la solicitud de %d bolsas para la ubicación %s creada el %s.",
				num(data, "quantity_bags"), str(data, "location_id"), when(data, "created_at")),
		}
	case ports.TemplateRequestExpired:
		return Message{
			Subject: printer.Sprintf("Solicitud %s vencida", str(data, "request_id")),
			Body: printer.Sprintf("La solicitud de %d bolsas para la ubicación %s venció sin ser aceptada.",
				num(data, "quantity_bags"), str(data, "location_id")),
		}
	case ports.TemplateLowStockAlert:
		body := printer.Sprintf("El artículo %s está bajo el punto de reorden en la ubicación %s (nivel %d).",
			str(data, "item_id"), str(data, "location_id"), num(data, "level"))
		if bal, ok := data["balance_kg"].(decimal.Decimal); ok {
			body += printer.Sprintf(" Saldo: %.2f kg", bal.InexactFloat64())
			if rp, ok := data["reorder_point_kg"].(decimal.Decimal); ok {
				body += printer.Sprintf(", punto de reorden: %.2f kg", rp.InexactFloat64())
			}
			body += "."
		}
		return Message{
			Subject: printer.Sprintf("Stock bajo en %s", str(data, "location_id")),
			Body:    body,
		}
	case ports.TemplateIntegrityWarning:
		return Message{
			Subject: printer.Sprintf("Inconsistencia en el libro (%s)", str(data, "op")),
			Body: printer.Sprintf("Escritura parcial en %s/%s: %s. Error: %s.",
				str(data, "location_id"), str(data, "item_id"), str(data, "applied"), str(data, "error")),
		}
	}
	return Message{Subject: template, Body: fmt.Sprint(data)}
}

func str(data map[string]any, key string) string {
	if v, ok := data[key]; ok && v != nil {
		return fmt.Sprint(v)
	}
	return "-"
}

func num(data map[string]any, key string) int {
	switch v := data[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func when(data map[string]any, key string) string {
	if t, ok := data[key].(time.Time); ok {
		return t.Format("2006-01-02 15:04")
	}
	return "-"
}
