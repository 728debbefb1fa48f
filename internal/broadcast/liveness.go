package broadcast

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Tracker watches connected screens through their heartbeats. A screen is
// live from its first heartbeat until no beat arrives for the timeout
// window; both edges are announced on the presence channel so the control
// desk sees who is connected.
type Tracker struct {
	broadcaster *Broadcaster
	timeout     time.Duration
	logger      *zap.Logger

	mu      sync.Mutex
	clients map[string]*trackedClient
	closed  bool
}

type trackedClient struct {
	eventID  string
	clientID string
	role     string
	lastBeat time.Time
	timer    *time.Timer
}

// NewTracker creates a liveness tracker. timeout is the silence window
// after which a screen is declared gone.
func NewTracker(broadcaster *Broadcaster, timeout time.Duration, logger *zap.Logger) *Tracker {
	return &Tracker{
		broadcaster: broadcaster,
		timeout:     timeout,
		clients:     make(map[string]*trackedClient),
		logger:      logger,
	}
}

func trackKey(eventID, clientID string) string {
	return eventID + "/" + clientID
}

// Heartbeat records a beat from a screen. The first beat announces the
// screen as live; every beat pushes the expiry window forward.
func (t *Tracker) Heartbeat(ctx context.Context, eventID, clientID, role string) {
	key := trackKey(eventID, clientID)
	now := time.Now().UTC()

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}

	if c, ok := t.clients[key]; ok {
		c.lastBeat = now
		c.timer.Reset(t.timeout)
		t.mu.Unlock()
		return
	}

	c := &trackedClient{
		eventID:  eventID,
		clientID: clientID,
		role:     role,
		lastBeat: now,
	}
	c.timer = time.AfterFunc(t.timeout, func() {
		t.expire(key)
	})
	t.clients[key] = c
	t.mu.Unlock()

	t.broadcaster.PublishPresence(ctx, PresenceUpdate{
		EventID:  eventID,
		ClientID: clientID,
		Role:     role,
		Live:     true,
		At:       now,
	})
}

// Disconnect removes a screen explicitly, without waiting for the timeout
func (t *Tracker) Disconnect(ctx context.Context, eventID, clientID string) {
	key := trackKey(eventID, clientID)

	t.mu.Lock()
	c, ok := t.clients[key]
	if ok {
		c.timer.Stop()
		delete(t.clients, key)
	}
	t.mu.Unlock()

	if !ok {
		return
	}

	t.broadcaster.PublishPresence(ctx, PresenceUpdate{
		EventID:  eventID,
		ClientID: clientID,
		Role:     c.role,
		Live:     false,
		At:       time.Now().UTC(),
	})
}

// expire fires when a screen has been silent for the whole timeout window
func (t *Tracker) expire(key string) {
	t.mu.Lock()
	c, ok := t.clients[key]
	if ok {
		delete(t.clients, key)
	}
	t.mu.Unlock()

	if !ok {
		return
	}

	t.logger.Info("screen heartbeat lost",
		zap.String("event_id", c.eventID),
		zap.String("client_id", c.clientID),
		zap.String("role", c.role))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	t.broadcaster.PublishPresence(ctx, PresenceUpdate{
		EventID:  c.eventID,
		ClientID: c.clientID,
		Role:     c.role,
		Live:     false,
		At:       time.Now().UTC(),
	})
}

// IsLive reports whether a screen currently counts as connected
func (t *Tracker) IsLive(eventID, clientID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.clients[trackKey(eventID, clientID)]
	return ok
}

// ListLive returns the screens currently connected to an event
func (t *Tracker) ListLive(eventID string) []PresenceUpdate {
	t.mu.Lock()
	defer t.mu.Unlock()

	var live []PresenceUpdate
	for _, c := range t.clients {
		if c.eventID != eventID {
			continue
		}
		live = append(live, PresenceUpdate{
			EventID:  c.eventID,
			ClientID: c.clientID,
			Role:     c.role,
			Live:     true,
			At:       c.lastBeat,
		})
	}
	return live
}

// Close stops all timers. No presence updates are published; the process
// is going away with its subscribers.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	for key, c := range t.clients {
		c.timer.Stop()
		delete(t.clients, key)
	}
}
