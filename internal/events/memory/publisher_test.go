package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/salary-predictor/internal/events"
)

var _ events.Publisher = (*Publisher)(nil)

func TestPublisherStoresMessages(t *testing.T) {
	t.Parallel()

	pub := New()
	id1, err := pub.Publish(context.Background(), "predictions", events.PredictionCreated{PredictionID: "a"})
	require.NoError(t, err)
	require.Equal(t, "memory-1", id1)
	id2, err := pub.Publish(context.Background(), "audit", "payload")
	require.NoError(t, err)
	require.Equal(t, "memory-2", id2)

	msgs := pub.Messages()
	require.Len(t, msgs, 2)
	require.Equal(t, "predictions", msgs[0].Topic)
	require.Equal(t, "audit", msgs[1].Topic)
	require.Equal(t, id1, msgs[0].ID)
	require.Equal(t, id2, msgs[1].ID)

	msgs[0].Topic = "modified"
	require.Equal(t, "predictions", pub.Messages()[0].Topic)
}

func TestPublisherRejectsAfterClose(t *testing.T) {
	t.Parallel()

	pub := New()
	require.NoError(t, pub.Close())
	_, err := pub.Publish(context.Background(), "predictions", "late")
	require.ErrorIs(t, err, ErrClosed)
	require.Empty(t, pub.Messages())
}
