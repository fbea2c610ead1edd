package telemetry

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/dshills/todols/internal/logging"
)

func TestInit_None(t *testing.T) {
	tel, err := Init(context.Background(), Config{ServiceName: "todols", TraceExporter: "none"})
	require.NoError(t, err)
	assert.Nil(t, tel.MetricsHandler())
	assert.NoError(t, tel.Shutdown(context.Background()))
}

func TestInit_UnknownExporter(t *testing.T) {
	_, err := Init(context.Background(), Config{TraceExporter: "zipkin"})
	assert.True(t, errors.Is(err, ErrUnknownExporter))
}

func TestInit_StdoutTraces(t *testing.T) {
	var buf bytes.Buffer
	tel, err := Init(context.Background(), Config{
		ServiceName:   "todols",
		TraceExporter: "stdout",
		TraceOutput:   &buf,
	})
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "lsp.documentColor")
	span.End()

	require.NoError(t, tel.Shutdown(context.Background()))
	assert.Contains(t, buf.String(), "lsp.documentColor")
}

func TestServeMetrics(t *testing.T) {
	tel, err := Init(context.Background(), Config{ServiceName: "todols", Metrics: true})
	require.NoError(t, err)
	defer tel.Shutdown(context.Background())

	counter, err := otel.Meter("test").Int64Counter("todols_test_total")
	require.NoError(t, err)
	counter.Add(context.Background(), 2)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addr, err := ServeMetrics(ctx, "127.0.0.1:0", tel.MetricsHandler(), logging.Discard())
	require.NoError(t, err)

	resp, err := http.Get("http://" + addr.String() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "todols_test")
}
