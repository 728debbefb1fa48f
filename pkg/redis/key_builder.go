package redis

import "fmt"

// KeyBuilder provides environment-aware Redis key building functionality
type KeyBuilder struct {
	prefix string // Environment prefix (staging/prod)
}

// NewKeyBuilder creates a new key builder with environment-based prefix
func NewKeyBuilder(environment string) *KeyBuilder {
	prefix := "prod"
	if environment == "development" || environment == "staging" || environment == "test" {
		prefix = "staging"
	}

	return &KeyBuilder{
		prefix: prefix,
	}
}

// BuildKey constructs a Redis key with the environment prefix
func (kb *KeyBuilder) BuildKey(key string) string {
	return fmt.Sprintf("%s:%s", kb.prefix, key)
}

// GetPrefix returns the current environment prefix
func (kb *KeyBuilder) GetPrefix() string {
	return kb.prefix
}

// Ingestion key builders

func (kb *KeyBuilder) KeyDeviceVoted(eventID, fingerprint string, candidateID int64) string {
	return kb.BuildKey(fmt.Sprintf(KeyDeviceVoted, eventID, fingerprint, candidateID))
}

func (kb *KeyBuilder) KeyCandidateCount(eventID string, candidateID int64) string {
	return kb.BuildKey(fmt.Sprintf(KeyCandidateCount, eventID, candidateID))
}

// Aggregation and snapshot key builders

func (kb *KeyBuilder) KeyRanking(eventID, category string) string {
	return kb.BuildKey(fmt.Sprintf(KeyRanking, eventID, category))
}

func (kb *KeyBuilder) KeySnapshot(eventID string) string {
	return kb.BuildKey(fmt.Sprintf(KeySnapshot, eventID))
}

func (kb *KeyBuilder) KeySnapshotSeq(eventID string) string {
	return kb.BuildKey(fmt.Sprintf(KeySnapshotSeq, eventID))
}

// Pub/sub channel builders. Channels carry the same environment prefix so
// staging and production traffic never cross on a shared Redis.

func (kb *KeyBuilder) ChannelSnapshots(eventID string) string {
	return kb.BuildKey(fmt.Sprintf(ChannelSnapshots, eventID))
}

func (kb *KeyBuilder) ChannelPresence(eventID string) string {
	return kb.BuildKey(fmt.Sprintf(ChannelPresence, eventID))
}

func (kb *KeyBuilder) ChannelCursor(eventID string) string {
	return kb.BuildKey(fmt.Sprintf(ChannelCursor, eventID))
}
