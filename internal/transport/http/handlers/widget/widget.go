// Package widget handles the widget-evaluation HTTP endpoint.
package widget

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	widgetDomain "metricore/internal/core/domain/widget"
	widgetServices "metricore/internal/core/services/widget"
	"metricore/pkg/response"
)

// Handler handles widget evaluation endpoints.
type Handler struct {
	logger  *slog.Logger
	service *widgetServices.Service
}

// NewHandler creates a new widget evaluation Handler.
func NewHandler(logger *slog.Logger, service *widgetServices.Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// @Summary Evaluate a widget
// @Description Parses and evaluates a widget's DSL source against its dataset for a given user/anchor/period.
// @Tags Metrics
// @Accept json
// @Produce json
// @Param request body EvaluateWidgetRequest true "Widget evaluation request"
// @Success 200 {array} FieldResultResponse
// @Failure 400 {object} response.ErrorResponse
// @Router /api/v1/widgets/evaluate [post]
func (h *Handler) Evaluate(c *gin.Context) {
	var req EvaluateWidgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "Invalid request body", err.Error())
		return
	}

	period := widgetDomain.Period(req.Period)
	if !period.IsValid() {
		response.ValidationError(c, "Invalid period", req.Period)
		return
	}

	params := widgetDomain.LoadParams{
		User:       req.User,
		AnchorDate: req.AnchorDate,
		Period:     period,
	}

	results, err := h.service.EvaluateWidget(c.Request.Context(), req.Source, params)
	if err != nil {
		response.ValidationError(c, "Could not evaluate widget", err.Error())
		return
	}

	out := make([]FieldResultResponse, len(results))
	for i, r := range results {
		out[i] = FieldResultResponse{Label: r.Label, Type: string(r.Type)}
		if r.Err != nil {
			out[i].Error = r.Err.Error()
		} else {
			out[i].Value = r.Value
		}
	}

	h.logger.Info("widget evaluated", "user", req.User, "period", req.Period)
	response.Success(c, out)
}
