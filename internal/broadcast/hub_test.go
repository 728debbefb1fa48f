package broadcast

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/13jisse-music/ChanteEnScene-sub000/internal/domain"
	"github.com/13jisse-music/ChanteEnScene-sub000/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupHub(t *testing.T) (*Broadcaster, *Hub) {
	t.Helper()

	_, client, b := setupBroadcaster(t)
	hub := NewHub(client, metrics.New(prometheus.NewRegistry()), zap.NewNop())
	t.Cleanup(hub.Close)
	return b, hub
}

func waitFor(t *testing.T, ch <-chan StreamMessage, kind string) StreamMessage {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case msg := <-ch:
			if msg.Kind == kind {
				return msg
			}
		case <-deadline:
			t.Fatalf("no %s message received", kind)
		}
	}
}

func TestHub_DeliversSnapshots(t *testing.T) {
	b, hub := setupHub(t)
	ctx := context.Background()

	ch, detach := hub.Subscribe("ev-1")
	defer detach()

	// the pump subscribes asynchronously; give it a moment before publishing
	time.Sleep(50 * time.Millisecond)
	b.PublishSnapshot(ctx, testSnapshot("ev-1"))

	msg := waitFor(t, ch, KindSnapshot)
	var got domain.Snapshot
	require.NoError(t, json.Unmarshal(msg.Data, &got))
	assert.Equal(t, "ev-1", got.Event.ID)
}

func TestHub_DeliversPresenceAndCursor(t *testing.T) {
	b, hub := setupHub(t)
	ctx := context.Background()

	ch, detach := hub.Subscribe("ev-1")
	defer detach()
	time.Sleep(50 * time.Millisecond)

	b.PublishPresence(ctx, PresenceUpdate{EventID: "ev-1", ClientID: "jury-1", Role: "jury", Live: true})
	waitFor(t, ch, KindPresence)

	b.PublishCursor(ctx, CursorUpdate{EventID: "ev-1", View: "candidate", At: time.Now().UTC()})
	msg := waitFor(t, ch, KindCursor)

	var got CursorUpdate
	require.NoError(t, json.Unmarshal(msg.Data, &got))
	assert.Equal(t, "candidate", got.View)
}

func TestHub_LateJoinerGetsLastCursor(t *testing.T) {
	b, hub := setupHub(t)
	ctx := context.Background()

	first, detachFirst := hub.Subscribe("ev-1")
	defer detachFirst()
	time.Sleep(50 * time.Millisecond)

	b.PublishCursor(ctx, CursorUpdate{EventID: "ev-1", View: "ranking", At: time.Now().UTC()})
	waitFor(t, first, KindCursor)

	late, detachLate := hub.Subscribe("ev-1")
	defer detachLate()

	msg := waitFor(t, late, KindCursor)
	var got CursorUpdate
	require.NoError(t, json.Unmarshal(msg.Data, &got))
	assert.Equal(t, "ranking", got.View)
}

func TestHub_DetachStopsDelivery(t *testing.T) {
	b, hub := setupHub(t)
	ctx := context.Background()

	ch, detach := hub.Subscribe("ev-1")
	time.Sleep(50 * time.Millisecond)
	detach()

	b.PublishSnapshot(ctx, testSnapshot("ev-1"))
	time.Sleep(50 * time.Millisecond)

	select {
	case msg, ok := <-ch:
		if ok {
			t.Fatalf("unexpected %s message after detach", msg.Kind)
		}
	default:
	}
}

func TestHub_SubscribersAreIsolatedByEvent(t *testing.T) {
	b, hub := setupHub(t)
	ctx := context.Background()

	other, detach := hub.Subscribe("ev-2")
	defer detach()
	time.Sleep(50 * time.Millisecond)

	b.PublishSnapshot(ctx, testSnapshot("ev-1"))
	time.Sleep(50 * time.Millisecond)

	select {
	case msg := <-other:
		t.Fatalf("event ev-2 subscriber received %s for ev-1", msg.Kind)
	default:
	}
}
