package instrumented

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"publication-backend/infrastructure/persistence/memory"
	"publication-backend/infrastructure/persistence/store"
	"publication-backend/infrastructure/persistence/store/storetest"
	"publication-backend/pkg/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
)

func TestDecoratorKeepsStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return NewStore(memory.NewStore(zap.NewNop()), observability.NewCollector("test"), nil, zap.NewNop())
	})
}

func TestDecoratorRecordsMetricsAndSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := trace.NewTracerProvider(trace.WithSpanProcessor(recorder))
	metrics := observability.NewCollector("test")
	s := NewStore(memory.NewStore(zap.NewNop()), metrics, provider.Tracer("test"), zap.NewNop())

	ctx := context.Background()
	record := store.Record{PK0: "P", SK0: "S", Type: "Resource", Version: "v1"}
	require.NoError(t, s.TransactWrite(ctx, []store.WriteOp{store.Put(record, store.NotExists())}))
	require.Error(t, s.TransactWrite(ctx, []store.WriteOp{store.Put(record, store.NotExists())}))
	_, ok, err := s.Get(ctx, record.Key())
	require.NoError(t, err)
	require.True(t, ok)

	spans := recorder.Ended()
	require.Len(t, spans, 3)
	assert.Equal(t, "store.TransactWrite", spans[0].Name())
	assert.Equal(t, "store.Get", spans[2].Name())

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `test_store_operations_total{index="primary",operation="transact_write",status="conflict"} 1`)
	assert.Contains(t, body, `test_store_condition_failures_total{type="CONFLICT"} 1`)
}
