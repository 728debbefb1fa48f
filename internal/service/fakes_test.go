package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/13jisse-music/ChanteEnScene-sub000/internal/broadcast"
	"github.com/13jisse-music/ChanteEnScene-sub000/internal/config"
	"github.com/13jisse-music/ChanteEnScene-sub000/internal/domain"
	"github.com/13jisse-music/ChanteEnScene-sub000/internal/repository"
	"github.com/13jisse-music/ChanteEnScene-sub000/pkg/metrics"
	"github.com/13jisse-music/ChanteEnScene-sub000/pkg/redis"
	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeStore is a single in-memory backing store shared by all fake
// repositories of one test, so cross-repository reads stay consistent.
type fakeStore struct {
	mu         sync.Mutex
	events     map[string]*domain.LiveEvent
	items      map[int64]*domain.LineupItem
	scores     map[string]*domain.JuryScore
	votes      map[string]*domain.Vote // keyed by receipt
	voteSeen   map[string]bool         // event|fingerprint|candidate
	candidates map[int64]*domain.Candidate
	weights    map[string]*domain.ScoringWeights
	nextID     int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		events:     make(map[string]*domain.LiveEvent),
		items:      make(map[int64]*domain.LineupItem),
		scores:     make(map[string]*domain.JuryScore),
		votes:      make(map[string]*domain.Vote),
		voteSeen:   make(map[string]bool),
		candidates: make(map[int64]*domain.Candidate),
		weights:    make(map[string]*domain.ScoringWeights),
		nextID:     1,
	}
}

func (st *fakeStore) id() int64 {
	id := st.nextID
	st.nextID++
	return id
}

func scoreKey(jurorID string, candidateID int64, et domain.EventType) string {
	return fmt.Sprintf("%s|%d|%s", jurorID, candidateID, et)
}

func voteKey(eventID, fingerprint string, candidateID int64) string {
	return fmt.Sprintf("%s|%s|%d", eventID, fingerprint, candidateID)
}

type fakeEventRepo struct{ st *fakeStore }

func (r *fakeEventRepo) GetByID(_ context.Context, id string) (*domain.LiveEvent, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	e, ok := r.st.events[id]
	if !ok {
		return nil, nil
	}
	copied := *e
	return &copied, nil
}

func (r *fakeEventRepo) GetActive(_ context.Context) (*domain.LiveEvent, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for _, e := range r.st.events {
		if e.IsRunning() {
			copied := *e
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeEventRepo) Create(_ context.Context, event *domain.LiveEvent) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	event.Version = 1
	event.CreatedAt = time.Now().UTC()
	event.UpdatedAt = event.CreatedAt
	copied := *event
	r.st.events[event.ID] = &copied
	return nil
}

func (r *fakeEventRepo) Update(_ context.Context, event *domain.LiveEvent) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	stored, ok := r.st.events[event.ID]
	if !ok || stored.Version != event.Version {
		return fmt.Errorf("%w: live event %s changed since read", domain.ErrConflict, event.ID)
	}
	event.Version++
	event.UpdatedAt = time.Now().UTC()
	copied := *event
	r.st.events[event.ID] = &copied
	return nil
}

type fakeLineupRepo struct{ st *fakeStore }

func (r *fakeLineupRepo) GetByID(_ context.Context, id int64) (*domain.LineupItem, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	it, ok := r.st.items[id]
	if !ok {
		return nil, nil
	}
	copied := *it
	return &copied, nil
}

func (r *fakeLineupRepo) GetByCandidate(_ context.Context, eventID string, candidateID int64) (*domain.LineupItem, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for _, it := range r.st.items {
		if it.EventID == eventID && it.CandidateID == candidateID {
			copied := *it
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeLineupRepo) ListByEvent(_ context.Context, eventID string) ([]domain.LineupItem, error) {
	return r.list(func(it *domain.LineupItem) bool { return it.EventID == eventID }), nil
}

func (r *fakeLineupRepo) ListByCategory(_ context.Context, eventID, category string) ([]domain.LineupItem, error) {
	return r.list(func(it *domain.LineupItem) bool {
		return it.EventID == eventID && it.Category == category
	}), nil
}

func (r *fakeLineupRepo) list(keep func(*domain.LineupItem) bool) []domain.LineupItem {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []domain.LineupItem
	for _, it := range r.st.items {
		if keep(it) {
			out = append(out, *it)
		}
	}
	// map iteration is unordered; the real store sorts by position
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].Position < out[i].Position {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out
}

func (r *fakeLineupRepo) Update(_ context.Context, item *domain.LineupItem) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if _, ok := r.st.items[item.ID]; !ok {
		return fmt.Errorf("%w: lineup item %d", domain.ErrNotFound, item.ID)
	}
	copied := *item
	r.st.items[item.ID] = &copied
	return nil
}

func (r *fakeLineupRepo) Reorder(_ context.Context, eventID, category string, orderedIDs []int64) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	base := 0
	listed := make(map[int64]bool, len(orderedIDs))
	for _, id := range orderedIDs {
		listed[id] = true
	}
	for _, it := range r.st.items {
		if it.EventID == eventID && it.Category == category && !listed[it.ID] && it.Position > base {
			base = it.Position
		}
	}
	for i, id := range orderedIDs {
		it, ok := r.st.items[id]
		if !ok || it.EventID != eventID || it.Category != category {
			return fmt.Errorf("%w: lineup item %d not in category %s", domain.ErrValidation, id, category)
		}
		it.Position = base + i + 1
	}
	return nil
}

type fakeScoreRepo struct{ st *fakeStore }

func (r *fakeScoreRepo) GetByKey(_ context.Context, jurorID string, candidateID int64, et domain.EventType) (*domain.JuryScore, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	sc, ok := r.st.scores[scoreKey(jurorID, candidateID, et)]
	if !ok {
		return nil, nil
	}
	copied := *sc
	return &copied, nil
}

func (r *fakeScoreRepo) Upsert(_ context.Context, score *domain.JuryScore) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	key := scoreKey(score.JurorID, score.CandidateID, score.EventType)
	if existing, ok := r.st.scores[key]; ok {
		score.ID = existing.ID
		score.CreatedAt = existing.CreatedAt
	} else {
		score.ID = r.st.id()
		score.CreatedAt = time.Now().UTC()
	}
	score.UpdatedAt = time.Now().UTC()
	copied := *score
	r.st.scores[key] = &copied
	return nil
}

func (r *fakeScoreRepo) AverageTotalsByCategory(_ context.Context, et domain.EventType, category string) (map[int64]float64, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	sums := make(map[int64]float64)
	counts := make(map[int64]int)
	for _, sc := range r.st.scores {
		c, ok := r.st.candidates[sc.CandidateID]
		if !ok || c.Category != category || sc.EventType != et {
			continue
		}
		sums[sc.CandidateID] += float64(sc.TotalScore)
		counts[sc.CandidateID]++
	}
	avgs := make(map[int64]float64, len(sums))
	for id, sum := range sums {
		avgs[id] = sum / float64(counts[id])
	}
	return avgs, nil
}

func (r *fakeScoreRepo) DeleteForCandidate(_ context.Context, et domain.EventType, candidateID int64) (int64, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var deleted int64
	for key, sc := range r.st.scores {
		if sc.EventType == et && sc.CandidateID == candidateID {
			delete(r.st.scores, key)
			deleted++
		}
	}
	return deleted, nil
}

type fakeVoteRepo struct{ st *fakeStore }

func (r *fakeVoteRepo) Insert(_ context.Context, vote *domain.Vote) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	key := voteKey(vote.EventID, vote.DeviceFingerprint, vote.CandidateID)
	if r.st.voteSeen[key] {
		return fmt.Errorf("%w: device already voted for candidate %d", domain.ErrDuplicateVote, vote.CandidateID)
	}
	r.st.voteSeen[key] = true
	vote.ID = r.st.id()
	vote.CreatedAt = time.Now().UTC()
	copied := *vote
	r.st.votes[vote.VoteID] = &copied
	return nil
}

func (r *fakeVoteRepo) CountsByCategory(_ context.Context, eventID, category string) (map[int64]int, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	counts := make(map[int64]int)
	for _, v := range r.st.votes {
		if v.EventID != eventID {
			continue
		}
		if c, ok := r.st.candidates[v.CandidateID]; !ok || c.Category != category {
			continue
		}
		counts[v.CandidateID]++
	}
	return counts, nil
}

func (r *fakeVoteRepo) CountForCandidate(_ context.Context, eventID string, candidateID int64) (int, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	count := 0
	for _, v := range r.st.votes {
		if v.EventID == eventID && v.CandidateID == candidateID {
			count++
		}
	}
	return count, nil
}

func (r *fakeVoteRepo) GetByVoteID(_ context.Context, voteID string) (*domain.Vote, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	v, ok := r.st.votes[voteID]
	if !ok {
		return nil, nil
	}
	copied := *v
	return &copied, nil
}

type fakeCandidateRepo struct{ st *fakeStore }

func (r *fakeCandidateRepo) GetByID(_ context.Context, id int64) (*domain.Candidate, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	c, ok := r.st.candidates[id]
	if !ok {
		return nil, nil
	}
	copied := *c
	return &copied, nil
}

func (r *fakeCandidateRepo) ListByCategory(_ context.Context, category string) ([]domain.Candidate, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []domain.Candidate
	for _, c := range r.st.candidates {
		if c.Category == category {
			out = append(out, *c)
		}
	}
	return out, nil
}

type fakeSettingsRepo struct{ st *fakeStore }

func (r *fakeSettingsRepo) GetWeights(_ context.Context, eventID string) (*domain.ScoringWeights, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	w, ok := r.st.weights[eventID]
	if !ok {
		return nil, nil
	}
	copied := *w
	return &copied, nil
}

func (r *fakeSettingsRepo) UpdateWeights(_ context.Context, eventID string, weights domain.ScoringWeights) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	copied := weights
	r.st.weights[eventID] = &copied
	return nil
}

// testEnv wires the full service stack over the fake store and a miniredis
type testEnv struct {
	store        *fakeStore
	repos        *repository.Repositories
	redis        *redis.Client
	broadcaster  *broadcast.Broadcaster
	ranking      *RankingService
	ingestion    *IngestionService
	orchestrator *OrchestratorService
	reveal       *RevealService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	redisClient, err := redis.NewClient("redis://"+mr.Addr(), "test", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = redisClient.Close() })

	st := newFakeStore()
	repos := &repository.Repositories{
		LiveEvent: &fakeEventRepo{st: st},
		Lineup:    &fakeLineupRepo{st: st},
		Score:     &fakeScoreRepo{st: st},
		Vote:      &fakeVoteRepo{st: st},
		Candidate: &fakeCandidateRepo{st: st},
		Settings:  &fakeSettingsRepo{st: st},
	}

	cfg := &config.Config{
		DefaultJuryWeight:   50,
		DefaultPublicWeight: 30,
		DefaultSocialWeight: 20,
		RevealCleanupDelay:  80 * time.Millisecond,
	}
	m := metrics.New(prometheus.NewRegistry())
	logger := zap.NewNop()
	broadcaster := broadcast.NewBroadcaster(redisClient, m, logger)

	ranking := NewRankingService(repos, redisClient, m, cfg, logger)
	orchestrator := NewOrchestratorService(repos, ranking, broadcaster, m, logger)
	reveal := NewRevealService(repos, ranking, orchestrator, m, cfg.RevealCleanupDelay, logger)
	t.Cleanup(reveal.Close)

	return &testEnv{
		store:        st,
		repos:        repos,
		redis:        redisClient,
		broadcaster:  broadcaster,
		ranking:      ranking,
		ingestion:    NewIngestionService(repos, ranking, orchestrator, redisClient, m, logger),
		orchestrator: orchestrator,
		reveal:       reveal,
	}
}

// seedCandidate registers a candidate in the directory
func (e *testEnv) seedCandidate(id int64, stageName, category string, likes int) {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	e.store.candidates[id] = &domain.Candidate{
		ID:              id,
		StageName:       stageName,
		Category:        category,
		Status:          domain.CandidateStatusSemifinalist,
		SocialLikeCount: likes,
	}
}

// seedItem schedules a candidate in an event lineup
func (e *testEnv) seedItem(id int64, eventID string, candidateID int64, category string, position int, status domain.LineupStatus) *domain.LineupItem {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	item := &domain.LineupItem{
		ID:          id,
		EventID:     eventID,
		CandidateID: candidateID,
		Category:    category,
		Position:    position,
		Status:      status,
	}
	e.store.items[id] = item
	return item
}

// liveEvent creates and starts an event ready for transitions
func (e *testEnv) liveEvent(t *testing.T, eventType domain.EventType) *domain.LiveEvent {
	t.Helper()
	ctx := context.Background()

	event, err := e.orchestrator.CreateEvent(ctx, eventType)
	require.NoError(t, err)
	event, err = e.orchestrator.StartEvent(ctx, event.ID)
	require.NoError(t, err)
	return event
}
