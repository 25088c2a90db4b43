package metrics

import (
	"errors"

	metricsDomain "metricore/internal/core/domain/metrics"
	appErrors "metricore/pkg/errors"
)

// translatePipelineError maps a metricsDomain.PipelineError to the
// pkg/errors.AppError shape the rest of the HTTP surface already
// returns, following each kind's taxonomy (spec.md §7) rather than
// collapsing every pipeline failure to a generic 500.
func translatePipelineError(err error) *appErrors.AppError {
	var pipelineErr metricsDomain.PipelineError
	if !errors.As(err, &pipelineErr) {
		return appErrors.NewInternalError("pipeline run failed", err)
	}

	switch pipelineErr.Kind() {
	case metricsDomain.KindSubdivision, metricsDomain.KindCardinality, metricsDomain.KindFormula:
		return appErrors.NewValidationError(pipelineErr.Error(), "")
	case metricsDomain.KindInstanceResolution:
		return appErrors.NewConflictError(pipelineErr.Error())
	case metricsDomain.KindParse:
		return appErrors.NewBadRequestError("could not parse input", pipelineErr.Error())
	default:
		return appErrors.NewInternalError("pipeline run failed", pipelineErr)
	}
}
