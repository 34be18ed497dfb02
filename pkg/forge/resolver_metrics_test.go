package forge_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/Sumatoshi-tech/relfang/pkg/forge"
	"github.com/Sumatoshi-tech/relfang/pkg/notes"
	"github.com/Sumatoshi-tech/relfang/pkg/observability"
)

func TestResolverRecordsRequestMetrics(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	red, err := observability.NewREDMetrics(provider.Meter("test"))
	require.NoError(t, err)

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"total_count":1,"items":[{"login":"alovelace"}]}`)
	})
	resolver := forge.NewResolver(newTestClient(t, handler), forge.WithMetrics(red))

	resolver.ResolveAll(context.Background(), []notes.Identity{ada})

	var rm metricdata.ResourceMetrics

	require.NoError(t, reader.Collect(context.Background(), &rm))

	var requests *metricdata.Sum[int64]

	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name == "relfang.requests.total" {
				sum, ok := m.Data.(metricdata.Sum[int64])
				require.True(t, ok)

				requests = &sum
			}
		}
	}

	require.NotNil(t, requests, "request counter recorded")
	require.Len(t, requests.DataPoints, 1)
	assert.Equal(t, int64(1), requests.DataPoints[0].Value)

	op, ok := requests.DataPoints[0].Attributes.Value(attribute.Key("op"))
	require.True(t, ok)
	assert.Equal(t, "forge.search", op.AsString())
}
