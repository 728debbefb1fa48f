package broadcast

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/13jisse-music/ChanteEnScene-sub000/internal/domain"
	"github.com/13jisse-music/ChanteEnScene-sub000/pkg/metrics"
	"github.com/13jisse-music/ChanteEnScene-sub000/pkg/redis"
	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupBroadcaster(t *testing.T) (*miniredis.Miniredis, *redis.Client, *Broadcaster) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := redis.NewClient("redis://"+mr.Addr(), "test", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	b := NewBroadcaster(client, metrics.New(prometheus.NewRegistry()), zap.NewNop())
	return mr, client, b
}

func testSnapshot(eventID string) *domain.Snapshot {
	return &domain.Snapshot{
		Event: domain.LiveEvent{
			ID:        eventID,
			EventType: domain.EventTypeSemifinal,
			Status:    domain.EventStatusLive,
			Version:   3,
		},
	}
}

func TestPublishSnapshot_AssignsIncreasingSeq(t *testing.T) {
	_, _, b := setupBroadcaster(t)
	ctx := context.Background()

	first := testSnapshot("ev-1")
	second := testSnapshot("ev-1")

	b.PublishSnapshot(ctx, first)
	b.PublishSnapshot(ctx, second)

	assert.Equal(t, int64(1), first.Seq)
	assert.Equal(t, int64(2), second.Seq)
	assert.False(t, second.PublishedAt.IsZero())
}

func TestPublishSnapshot_SeqIsPerEvent(t *testing.T) {
	_, _, b := setupBroadcaster(t)
	ctx := context.Background()

	one := testSnapshot("ev-1")
	other := testSnapshot("ev-2")

	b.PublishSnapshot(ctx, one)
	b.PublishSnapshot(ctx, other)

	assert.Equal(t, int64(1), one.Seq)
	assert.Equal(t, int64(1), other.Seq)
}

func TestLatestSnapshot_ReturnsCachedCopy(t *testing.T) {
	_, _, b := setupBroadcaster(t)
	ctx := context.Background()

	published := testSnapshot("ev-1")
	b.PublishSnapshot(ctx, published)

	cached, err := b.LatestSnapshot(ctx, "ev-1")
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, published.Seq, cached.Seq)
	assert.Equal(t, published.Event.ID, cached.Event.ID)
	assert.Equal(t, published.Event.Version, cached.Event.Version)
}

func TestLatestSnapshot_NilWhenNothingPublished(t *testing.T) {
	_, _, b := setupBroadcaster(t)

	cached, err := b.LatestSnapshot(context.Background(), "ev-unknown")
	require.NoError(t, err)
	assert.Nil(t, cached)
}

func TestPublishSnapshot_FansOutToSubscribers(t *testing.T) {
	_, client, b := setupBroadcaster(t)
	ctx := context.Background()

	sub := client.Subscribe(ctx, client.KeyBuilder.ChannelSnapshots("ev-1"))
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	b.PublishSnapshot(ctx, testSnapshot("ev-1"))

	select {
	case msg := <-sub.Channel():
		var got domain.Snapshot
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, "ev-1", got.Event.ID)
		assert.Equal(t, int64(1), got.Seq)
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot received on pub/sub channel")
	}
}

func TestPublishPresence_FansOut(t *testing.T) {
	_, client, b := setupBroadcaster(t)
	ctx := context.Background()

	sub := client.Subscribe(ctx, client.KeyBuilder.ChannelPresence("ev-1"))
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	b.PublishPresence(ctx, PresenceUpdate{
		EventID:  "ev-1",
		ClientID: "jury-3",
		Role:     "jury",
		Live:     true,
		At:       time.Now().UTC(),
	})

	select {
	case msg := <-sub.Channel():
		var got PresenceUpdate
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, "jury-3", got.ClientID)
		assert.True(t, got.Live)
	case <-time.After(2 * time.Second):
		t.Fatal("no presence update received")
	}
}
