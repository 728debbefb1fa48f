package broadcast

import (
	"context"
	"strings"
	"sync"

	"github.com/13jisse-music/ChanteEnScene-sub000/pkg/metrics"
	"github.com/13jisse-music/ChanteEnScene-sub000/pkg/redis"
	"go.uber.org/zap"
)

// clientBuffer bounds the per-subscriber queue. A client that cannot drain
// fast enough loses messages and resyncs from the cached snapshot.
const clientBuffer = 16

// StreamMessage is one fan-out unit delivered to a stream subscriber
type StreamMessage struct {
	Kind string
	Data []byte
}

// Hub bridges Redis pub/sub to in-process stream subscribers. One Redis
// subscription is shared by all local subscribers of the same event.
type Hub struct {
	redis   *redis.Client
	metrics *metrics.Manager
	logger  *zap.Logger

	mu    sync.Mutex
	rooms map[string]*room
}

type room struct {
	clients    map[chan StreamMessage]struct{}
	cancel     context.CancelFunc
	lastCursor *StreamMessage
}

// NewHub creates a new stream hub
func NewHub(redisClient *redis.Client, m *metrics.Manager, logger *zap.Logger) *Hub {
	return &Hub{
		redis:   redisClient,
		metrics: m,
		logger:  logger,
		rooms:   make(map[string]*room),
	}
}

// Subscribe attaches a new stream subscriber to an event and returns its
// message channel plus a detach function. The first subscriber of an event
// opens the shared Redis subscription; the last one leaving closes it.
func (h *Hub) Subscribe(eventID string) (<-chan StreamMessage, func()) {
	ch := make(chan StreamMessage, clientBuffer)

	h.mu.Lock()
	rm, ok := h.rooms[eventID]
	if !ok {
		ctx, cancel := context.WithCancel(context.Background())
		rm = &room{
			clients: make(map[chan StreamMessage]struct{}),
			cancel:  cancel,
		}
		h.rooms[eventID] = rm
		go h.pump(ctx, eventID, rm)
	}
	rm.clients[ch] = struct{}{}
	// Late joiners in follow mode need the current cursor right away,
	// not at the next control desk move.
	if rm.lastCursor != nil {
		ch <- *rm.lastCursor
	}
	h.mu.Unlock()

	h.metrics.StreamSubscribers.Inc()

	detach := func() {
		h.mu.Lock()
		if rm, ok := h.rooms[eventID]; ok {
			if _, attached := rm.clients[ch]; attached {
				delete(rm.clients, ch)
				h.metrics.StreamSubscribers.Dec()
			}
			if len(rm.clients) == 0 {
				rm.cancel()
				delete(h.rooms, eventID)
			}
		}
		h.mu.Unlock()
	}

	return ch, detach
}

// pump reads the shared Redis subscription and fans messages out to every
// attached subscriber. Sends never block: a full client queue drops the
// message for that client only.
func (h *Hub) pump(ctx context.Context, eventID string, rm *room) {
	kb := h.redis.KeyBuilder
	sub := h.redis.Subscribe(ctx,
		kb.ChannelSnapshots(eventID),
		kb.ChannelPresence(eventID),
		kb.ChannelCursor(eventID),
	)
	defer sub.Close()

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			sm := StreamMessage{
				Kind: kindForChannel(msg.Channel),
				Data: []byte(msg.Payload),
			}

			h.mu.Lock()
			if sm.Kind == KindCursor {
				rm.lastCursor = &sm
			}
			for ch := range rm.clients {
				select {
				case ch <- sm:
				default:
					h.metrics.BroadcastErrors.Inc()
					h.logger.Debug("stream subscriber lagging, message dropped",
						zap.String("event_id", eventID),
						zap.String("kind", sm.Kind))
				}
			}
			h.mu.Unlock()
		}
	}
}

// Close detaches every subscriber and closes all Redis subscriptions
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for eventID, rm := range h.rooms {
		rm.cancel()
		for ch := range rm.clients {
			h.metrics.StreamSubscribers.Dec()
			delete(rm.clients, ch)
		}
		delete(h.rooms, eventID)
	}
}

func kindForChannel(channel string) string {
	switch {
	case strings.HasSuffix(channel, ":presence"):
		return KindPresence
	case strings.HasSuffix(channel, ":cursor"):
		return KindCursor
	default:
		return KindSnapshot
	}
}
