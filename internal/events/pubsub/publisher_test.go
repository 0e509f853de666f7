package pubsub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/JakeFAU/salary-predictor/internal/events"
)

var _ events.Publisher = (*Publisher)(nil)

func newTestClient(t *testing.T) (*pubsub.Client, *pstest.Server) {
	t.Helper()
	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	client, err := pubsub.NewClient(context.Background(), "salary-test", option.WithGRPCConn(conn))
	require.NoError(t, err)
	_, err = client.CreateTopic(context.Background(), "predictions")
	require.NoError(t, err)
	return client, srv
}

func TestPublishSendsEventWithTraceContext(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	client, srv := newTestClient(t)
	pub := New(client)
	t.Cleanup(func() { _ = pub.Close() })

	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	event := events.PredictionCreated{
		Type:            events.TypePredictionCreated,
		PredictionID:    "0190c3c4-0000-7000-8000-000000000001",
		ModelName:       "Linear Regression",
		PredictedSalary: json.Number("5426.67"),
		Currency:        "USD",
		Period:          "monthly",
		CreatedAt:       time.Unix(1750000000, 0).UTC(),
	}
	id, err := pub.Publish(ctx, "predictions", event)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, events.TypePredictionCreated, msgs[0].Attributes[AttrEventType])
	require.Equal(t, "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01", msgs[0].Attributes["traceparent"])

	var got events.PredictionCreated
	require.NoError(t, json.Unmarshal(msgs[0].Data, &got))
	require.True(t, event.CreatedAt.Equal(got.CreatedAt))
	got.CreatedAt = event.CreatedAt
	require.Equal(t, event, got)
}

func TestPublishToMissingTopicFails(t *testing.T) {
	client, _ := newTestClient(t)
	pub := New(client)
	t.Cleanup(func() { _ = pub.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := pub.Publish(ctx, "missing", map[string]string{"k": "v"})
	require.ErrorContains(t, err, "publish message")
}

func TestPublishWithoutClient(t *testing.T) {
	t.Parallel()

	_, err := New(nil).Publish(context.Background(), "predictions", "x")
	require.ErrorContains(t, err, "not configured")
	require.NoError(t, New(nil).Close())
}
