package metrics

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	metricsServices "metricore/internal/core/services/metrics"
	"metricore/pkg/response"
)

// currentSchemaVersion is the fixed cache key EntryHandler hands
// SchemaLoader. Schema-version bumps signaled by the persistence layer
// (spec.md §4.11) would call SchemaLoader.Invalidate with a real
// version stamp; schema evolution itself is an explicit Non-goal, so a
// single perpetually-reused key is all this handler needs today.
const currentSchemaVersion = "current"

// EntryHandler handles metric entry submission over HTTP.
type EntryHandler struct {
	logger       *slog.Logger
	schemaLoader *metricsServices.SchemaLoader
}

// NewEntryHandler creates a new EntryHandler.
func NewEntryHandler(logger *slog.Logger, schemaLoader *metricsServices.SchemaLoader) *EntryHandler {
	return &EntryHandler{logger: logger, schemaLoader: schemaLoader}
}

// @Summary Submit a metric entry
// @Description Runs a MetricEntryInput through the entry creation pipeline and returns the resolved tree.
// @Tags Metrics
// @Accept json
// @Produce json
// @Param request body SubmitEntryRequest true "Metric entry input"
// @Success 201 {object} ResolvedEntryResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse
// @Router /api/v1/metrics/entries [post]
func (h *EntryHandler) Submit(c *gin.Context) {
	runID := uuid.NewString()
	logger := h.logger.With("run_id", runID)

	var req SubmitEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "Invalid request body", err.Error())
		return
	}

	pctx, err := h.schemaLoader.Load(c.Request.Context(), currentSchemaVersion)
	if err != nil {
		logger.Error("schema load failed", "error", err)
		response.Error(c, translatePipelineError(err))
		return
	}

	root, err := metricsServices.RunPipelineInstrumented(c.Request.Context(), req.toDomain(), pctx)
	if err != nil {
		logger.Error("pipeline run failed", "definition_code", req.DefinitionCode, "error", err)
		response.Error(c, translatePipelineError(err))
		return
	}

	logger.Info("metric entry submitted", "definition_code", req.DefinitionCode)
	response.Created(c, toResponse(root))
}
