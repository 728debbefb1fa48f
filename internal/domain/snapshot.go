package domain

import "time"

// Snapshot is the broadcast unit: the full observable state of a live
// event at one instant. Subscribers render exclusively from snapshots and
// may request one at any time as the pull-based resync fallback; Seq lets
// them detect missed fan-out messages.
type Snapshot struct {
	Event       LiveEvent      `json:"event"`
	Lineup      []LineupItem   `json:"lineup"`
	Ranking     []RankingEntry `json:"ranking,omitempty"`
	Seq         int64          `json:"seq"`
	PublishedAt time.Time      `json:"published_at"`
}
