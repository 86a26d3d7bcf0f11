//go:build integration

package integration_test

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/couchcryptid/graphql-complexity-gateway/complexity"
	"github.com/couchcryptid/graphql-complexity-gateway/estimator"
	"github.com/couchcryptid/graphql-complexity-gateway/internal/gateway"
	"github.com/couchcryptid/graphql-complexity-gateway/internal/observability"
	"github.com/couchcryptid/graphql-complexity-gateway/internal/schema"
	"github.com/go-chi/chi/v5"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	tcKafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

const (
	testKafkaTopic = "graphql-schemas"
	contentJSON    = "application/json"
	queryPath      = "/query"
)

// discardLogger returns a logger that discards all output.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newDirectiveRegistry(m *observability.Metrics) *schema.Registry {
	return schema.NewRegistry(func(sdl string) (complexity.Estimator, error) {
		return estimator.Build(estimator.Settings{Kind: estimator.KindDirective, DefaultComplexity: 1}, sdl)
	}, m, discardLogger())
}

func startGateway(t *testing.T, registry *schema.Registry, m *observability.Metrics, opts gateway.Options) *httptest.Server {
	t.Helper()
	cache, err := complexity.NewDocumentCache(32)
	require.NoError(t, err)
	cache.OnLookup = m.ObserveCacheLookup

	gw, err := gateway.New(registry, complexity.NewAnalyzer(cache), opts, m, discardLogger())
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(observability.MetricsMiddleware(m))
	gw.Routes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func startKafka(ctx context.Context, t *testing.T) (string, *tcKafka.KafkaContainer) {
	t.Helper()
	kc, err := tcKafka.Run(ctx, "confluentinc/confluent-local:7.6.0")
	require.NoError(t, err, "start kafka")

	brokers, err := kc.Brokers(ctx)
	require.NoError(t, err, "get brokers")
	return brokers[0], kc
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err, "dial kafka")
	err = conn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	conn.Close()
	require.NoError(t, err, "create topic")
}
