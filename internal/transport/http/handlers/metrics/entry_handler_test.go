package metrics

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	metricsDomain "metricore/internal/core/domain/metrics"
	metricsServices "metricore/internal/core/services/metrics"
	"metricore/pkg/ulid"
)

type fakeSchemaStore struct {
	definitions []*metricsDomain.Definition
	fields      []*metricsDomain.Field
}

func (s *fakeSchemaStore) LoadSchema(ctx context.Context) ([]*metricsDomain.Definition, []*metricsDomain.Field, error) {
	return s.definitions, s.fields, nil
}

func newTestEntryHandler(t *testing.T) *EntryHandler {
	employeeID := ulid.New()
	store := &fakeSchemaStore{
		definitions: []*metricsDomain.Definition{{
			ID:   employeeID,
			Code: "EMPLOYEE",
			Kind: metricsDomain.DefinitionKindMetric,
		}},
	}
	loader, err := metricsServices.NewSchemaLoader(store, nil, 4)
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewEntryHandler(logger, loader)
}

func createTestGinContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(recorder)
	return ctx, recorder
}

func TestEntryHandler_Submit_Succeeds(t *testing.T) {
	handler := newTestEntryHandler(t)
	ctx, recorder := createTestGinContext()

	body, err := json.Marshal(SubmitEntryRequest{
		DefinitionCode: "EMPLOYEE",
		Timestamp:      time.Now(),
	})
	require.NoError(t, err)
	ctx.Request = httptest.NewRequest("POST", "/api/v1/metrics/entries", bytes.NewBuffer(body))
	ctx.Request.Header.Set("Content-Type", "application/json")

	handler.Submit(ctx)

	assert.Equal(t, 201, recorder.Code)
}

func TestEntryHandler_Submit_InvalidBodyIsBadRequest(t *testing.T) {
	handler := newTestEntryHandler(t)
	ctx, recorder := createTestGinContext()

	ctx.Request = httptest.NewRequest("POST", "/api/v1/metrics/entries", bytes.NewBuffer([]byte("{not json")))
	ctx.Request.Header.Set("Content-Type", "application/json")

	handler.Submit(ctx)

	assert.Equal(t, 400, recorder.Code)
}

func TestEntryHandler_Submit_UnknownDefinitionIsRejected(t *testing.T) {
	handler := newTestEntryHandler(t)
	ctx, recorder := createTestGinContext()

	body, err := json.Marshal(SubmitEntryRequest{
		DefinitionCode: "NOPE",
		Timestamp:      time.Now(),
	})
	require.NoError(t, err)
	ctx.Request = httptest.NewRequest("POST", "/api/v1/metrics/entries", bytes.NewBuffer(body))
	ctx.Request.Header.Set("Content-Type", "application/json")

	handler.Submit(ctx)

	assert.NotEqual(t, 201, recorder.Code)
}
