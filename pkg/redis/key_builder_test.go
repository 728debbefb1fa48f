package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewKeyBuilder(t *testing.T) {
	tests := []struct {
		name        string
		environment string
		wantPrefix  string
	}{
		{name: "production", environment: "production", wantPrefix: "prod"},
		{name: "development", environment: "development", wantPrefix: "staging"},
		{name: "staging", environment: "staging", wantPrefix: "staging"},
		{name: "test", environment: "test", wantPrefix: "staging"},
		{name: "unknown defaults to prod", environment: "whatever", wantPrefix: "prod"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kb := NewKeyBuilder(tt.environment)
			assert.Equal(t, tt.wantPrefix, kb.GetPrefix())
		})
	}
}

func TestKeyBuilder_Keys(t *testing.T) {
	kb := NewKeyBuilder("production")

	assert.Equal(t, "prod:votes:ev1:device:fp-abc:candidate:7", kb.KeyDeviceVoted("ev1", "fp-abc", 7))
	assert.Equal(t, "prod:votes:ev1:candidate:7:count", kb.KeyCandidateCount("ev1", 7))
	assert.Equal(t, "prod:ranking:ev1:Enfant", kb.KeyRanking("ev1", "Enfant"))
	assert.Equal(t, "prod:live:ev1:snapshot", kb.KeySnapshot("ev1"))
	assert.Equal(t, "prod:live:ev1:seq", kb.KeySnapshotSeq("ev1"))
}

func TestKeyBuilder_Channels(t *testing.T) {
	kb := NewKeyBuilder("staging")

	assert.Equal(t, "staging:live:ev1:snapshots", kb.ChannelSnapshots("ev1"))
	assert.Equal(t, "staging:live:ev1:presence", kb.ChannelPresence("ev1"))
	assert.Equal(t, "staging:live:ev1:cursor", kb.ChannelCursor("ev1"))
}
