package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/13jisse-music/ChanteEnScene-sub000/internal/domain"
	"github.com/13jisse-music/ChanteEnScene-sub000/pkg/metrics"
	"github.com/13jisse-music/ChanteEnScene-sub000/pkg/redis"
	"go.uber.org/zap"
)

// Kind discriminates the messages multiplexed over one event stream
const (
	KindSnapshot = "snapshot"
	KindPresence = "presence"
	KindCursor   = "cursor"
)

// PresenceUpdate announces a connected screen appearing or dropping off
type PresenceUpdate struct {
	EventID  string    `json:"event_id"`
	ClientID string    `json:"client_id"`
	Role     string    `json:"role"`
	Live     bool      `json:"live"`
	At       time.Time `json:"at"`
}

// CursorUpdate mirrors the control desk's current view so follower screens
// can track it
type CursorUpdate struct {
	EventID     string    `json:"event_id"`
	View        string    `json:"view"`
	CandidateID *int64    `json:"candidate_id,omitempty"`
	At          time.Time `json:"at"`
}

// Broadcaster publishes live event traffic over Redis pub/sub. Delivery is
// at-most-once: a subscriber that misses a message recovers by pulling the
// cached snapshot, never by replay.
type Broadcaster struct {
	redis   *redis.Client
	metrics *metrics.Manager
	logger  *zap.Logger
}

// NewBroadcaster creates a new broadcaster
func NewBroadcaster(redisClient *redis.Client, m *metrics.Manager, logger *zap.Logger) *Broadcaster {
	return &Broadcaster{
		redis:   redisClient,
		metrics: m,
		logger:  logger,
	}
}

// PublishSnapshot assigns the next sequence number, caches the snapshot for
// pull-based resync and fans it out. Failures are logged and counted but
// never propagated: the state transition already committed, and subscribers
// self-heal from the cache.
func (b *Broadcaster) PublishSnapshot(ctx context.Context, snapshot *domain.Snapshot) {
	eventID := snapshot.Event.ID

	seq, err := b.redis.Incr(ctx, b.redis.KeyBuilder.KeySnapshotSeq(eventID))
	if err != nil {
		b.failed(eventID, "snapshot_seq", err)
		return
	}
	snapshot.Seq = seq
	snapshot.PublishedAt = time.Now().UTC()

	payload, err := json.Marshal(snapshot)
	if err != nil {
		b.failed(eventID, "snapshot_marshal", err)
		return
	}

	if err := b.redis.Set(ctx, b.redis.KeyBuilder.KeySnapshot(eventID), payload, redis.TTLSnapshot); err != nil {
		b.failed(eventID, "snapshot_cache", err)
	}

	if err := b.redis.Publish(ctx, b.redis.KeyBuilder.ChannelSnapshots(eventID), payload); err != nil {
		b.failed(eventID, "snapshot_publish", err)
		return
	}

	b.metrics.SnapshotsPublished.Inc()
	b.logger.Debug("snapshot published",
		zap.String("event_id", eventID),
		zap.Int64("seq", seq))
}

// LatestSnapshot returns the cached snapshot for pull-based resync, or nil
// when none has been published within the cache window.
func (b *Broadcaster) LatestSnapshot(ctx context.Context, eventID string) (*domain.Snapshot, error) {
	raw, err := b.redis.Get(ctx, b.redis.KeyBuilder.KeySnapshot(eventID))
	if redis.IsNil(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cached snapshot: %w", err)
	}

	var snapshot domain.Snapshot
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode cached snapshot: %w", err)
	}

	return &snapshot, nil
}

// PublishPresence fans out a presence change. Best effort, like snapshots.
func (b *Broadcaster) PublishPresence(ctx context.Context, update PresenceUpdate) {
	payload, err := json.Marshal(update)
	if err != nil {
		b.failed(update.EventID, "presence_marshal", err)
		return
	}

	if err := b.redis.Publish(ctx, b.redis.KeyBuilder.ChannelPresence(update.EventID), payload); err != nil {
		b.failed(update.EventID, "presence_publish", err)
	}
}

// PublishCursor fans out the control desk cursor. Best effort.
func (b *Broadcaster) PublishCursor(ctx context.Context, update CursorUpdate) {
	payload, err := json.Marshal(update)
	if err != nil {
		b.failed(update.EventID, "cursor_marshal", err)
		return
	}

	if err := b.redis.Publish(ctx, b.redis.KeyBuilder.ChannelCursor(update.EventID), payload); err != nil {
		b.failed(update.EventID, "cursor_publish", err)
	}
}

func (b *Broadcaster) failed(eventID, stage string, err error) {
	b.metrics.BroadcastErrors.Inc()
	b.logger.Warn("broadcast failed",
		zap.String("event_id", eventID),
		zap.String("stage", stage),
		zap.Error(err))
}
