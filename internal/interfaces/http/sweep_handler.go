package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/stockflow-api/internal/application/dto"
	"github.com/jhoicas/stockflow-api/internal/application/scheduler"
)

// SweepHandler disparo manual del barrido de escalamiento (admin).
type SweepHandler struct {
	sweeper *scheduler.Sweeper
	now     func() time.Time
}

// NewSweepHandler construye el handler.
func NewSweepHandler(sweeper *scheduler.Sweeper) *SweepHandler {
	return &SweepHandler{sweeper: sweeper, now: time.Now}
}

// Run godoc
// @Summary      Ejecutar barrido de escalamiento
// @Description  Evalúa políticas, alertas y temporizadores. 409 si ya hay un barrido en curso.
// @Tags         escalations
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.SweepReportDTO
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/escalations/sweep [post]
func (h *SweepHandler) Run(c *fiber.Ctx) error {
	report, err := h.sweeper.RunEscalationSweep(c.Context(), h.now())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toSweepReportDTO(report))
}

func toSweepReportDTO(r *scheduler.SweepReport) dto.SweepReportDTO {
	errs := r.Errors()
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Error())
	}
	return dto.SweepReportDTO{
		StartedAt:          r.StartedAt,
		FinishedAt:         r.FinishedAt,
		PoliciesEvaluated:  r.Evaluation.Evaluated,
		RequestsCreated:    r.Evaluation.Created,
		RequestsSuppressed: r.Evaluation.Suppressed,
		AlertsOpened:       r.Alerts.Opened,
		AlertsEscalated:    r.Alerts.Escalated,
		AlertsRepeated:     r.Alerts.Repeated,
		AlertsResolved:     r.Alerts.Resolved,
		Reminders:          r.Requests.Reminded,
		Escalations:        r.Requests.Escalated,
		Expirations:        r.Requests.Expired,
		TimersRepaired:     r.Requests.Repaired,
		Errors:             msgs,
	}
}
