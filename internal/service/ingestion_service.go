package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/13jisse-music/ChanteEnScene-sub000/internal/domain"
	"github.com/13jisse-music/ChanteEnScene-sub000/internal/repository"
	"github.com/13jisse-music/ChanteEnScene-sub000/pkg/metrics"
	"github.com/13jisse-music/ChanteEnScene-sub000/pkg/redis"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// IngestionService accepts jury scores and public votes during live shows.
// Both paths are idempotent at the edge: a juror resubmitting the same
// score is a no-op, a device repeating a vote is rejected outright.
type IngestionService struct {
	eventRepo     repository.LiveEventRepository
	lineupRepo    repository.LineupRepository
	scoreRepo     repository.ScoreRepository
	voteRepo      repository.VoteRepository
	candidateRepo repository.CandidateRepository
	ranking       *RankingService
	orchestrator  *OrchestratorService
	redis         *redis.Client
	metrics       *metrics.Manager
	logger        *zap.Logger
}

// NewIngestionService creates a new ingestion service
func NewIngestionService(
	repos *repository.Repositories,
	ranking *RankingService,
	orchestrator *OrchestratorService,
	redisClient *redis.Client,
	m *metrics.Manager,
	logger *zap.Logger,
) *IngestionService {
	return &IngestionService{
		eventRepo:     repos.LiveEvent,
		lineupRepo:    repos.Lineup,
		scoreRepo:     repos.Score,
		voteRepo:      repos.Vote,
		candidateRepo: repos.Candidate,
		ranking:       ranking,
		orchestrator:  orchestrator,
		redis:         redisClient,
		metrics:       m,
		logger:        logger,
	}
}

// SubmitJuryScore records one juror's evaluation of one candidate. The
// juror's role pins both the contest phase and the accepted payload shape;
// resubmitting an identical score changes nothing observable.
func (s *IngestionService) SubmitJuryScore(ctx context.Context, jurorID string, role domain.JurorRole, candidateID int64, payload domain.ScorePayload, comment string, watch *domain.WatchInfo) (*domain.JuryScore, error) {
	eventType, err := role.EventType()
	if err != nil {
		return nil, err
	}
	wantKind, err := role.ScoreKind()
	if err != nil {
		return nil, err
	}
	if payload.Kind() != wantKind {
		return nil, fmt.Errorf("%w: role %s submits %s scores, got %s", domain.ErrValidation, role, wantKind, payload.Kind())
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	candidate, err := s.candidateRepo.GetByID(ctx, candidateID)
	if err != nil {
		return nil, fmt.Errorf("%w: load candidate: %v", domain.ErrTransient, err)
	}
	if candidate == nil {
		return nil, fmt.Errorf("%w: candidate %d", domain.ErrNotFound, candidateID)
	}

	// Stage phases score against the running show: a candidate whose vote
	// window already closed takes no further scores. Online screening has
	// no stage window and is accepted at any time.
	event, err := s.stageEventFor(ctx, eventType)
	if err != nil {
		return nil, err
	}
	if event != nil {
		item, err := s.lineupRepo.GetByCandidate(ctx, event.ID, candidateID)
		if err != nil {
			return nil, fmt.Errorf("%w: load lineup item: %v", domain.ErrTransient, err)
		}
		if item == nil {
			return nil, fmt.Errorf("%w: candidate %d is not in the lineup", domain.ErrValidation, candidateID)
		}
		if item.VoteClosedAt != nil {
			return nil, fmt.Errorf("%w: candidate %d", domain.ErrVotingClosed, candidateID)
		}
		if item.Status == domain.LineupStatusPending {
			return nil, fmt.Errorf("%w: candidate %d has not been called to stage", domain.ErrValidation, candidateID)
		}
		if item.Status == domain.LineupStatusAbsent {
			return nil, fmt.Errorf("%w: candidate %d was marked absent", domain.ErrValidation, candidateID)
		}
	}

	score := &domain.JuryScore{
		JurorID:     jurorID,
		CandidateID: candidateID,
		EventType:   eventType,
		Payload:     payload,
		TotalScore:  payload.Total(),
		Comment:     comment,
	}
	if watch != nil {
		score.ViewedAt = watch.ViewedAt
		score.WatchSeconds = watch.WatchSeconds
	}

	existing, err := s.scoreRepo.GetByKey(ctx, jurorID, candidateID, eventType)
	if err != nil {
		return nil, fmt.Errorf("%w: load existing score: %v", domain.ErrTransient, err)
	}
	if existing != nil && samePayload(existing.Payload, payload) && existing.Comment == comment &&
		existing.WatchSeconds == score.WatchSeconds {
		s.metrics.ScoresNoop.Inc()
		return existing, nil
	}

	if err := s.scoreRepo.Upsert(ctx, score); err != nil {
		return nil, fmt.Errorf("%w: store score: %v", domain.ErrTransient, err)
	}
	s.metrics.ScoresUpserts.Inc()

	if event != nil {
		s.ranking.Invalidate(ctx, event.ID, candidate.Category)
		s.orchestrator.Broadcast(ctx, event)
	}

	s.logger.Info("jury score recorded",
		zap.String("juror_id", jurorID),
		zap.Int64("candidate_id", candidateID),
		zap.String("event_type", string(eventType)),
		zap.Int("total", score.TotalScore))

	return score, nil
}

// GetJuryScore returns the juror's own submission for a candidate in the
// phase their role scores, or ErrNotFound when nothing was submitted yet.
func (s *IngestionService) GetJuryScore(ctx context.Context, jurorID string, role domain.JurorRole, candidateID int64) (*domain.JuryScore, error) {
	eventType, err := role.EventType()
	if err != nil {
		return nil, err
	}

	score, err := s.scoreRepo.GetByKey(ctx, jurorID, candidateID, eventType)
	if err != nil {
		return nil, fmt.Errorf("%w: load score: %v", domain.ErrTransient, err)
	}
	if score == nil {
		return nil, fmt.Errorf("%w: no score from juror %s for candidate %d", domain.ErrNotFound, jurorID, candidateID)
	}
	return score, nil
}

// SubmitVote records one public vote from a personal device. The first
// write wins permanently: the Redis reservation is the fast path, the
// unique index in the vote store is the authority.
func (s *IngestionService) SubmitVote(ctx context.Context, fingerprint string, candidateID int64) (*domain.VoteReceipt, error) {
	if fingerprint == "" {
		s.metrics.VotesRejected.WithLabelValues("no_fingerprint").Inc()
		return nil, fmt.Errorf("%w: missing device fingerprint", domain.ErrValidation)
	}

	candidate, err := s.candidateRepo.GetByID(ctx, candidateID)
	if err != nil {
		return nil, fmt.Errorf("%w: load candidate: %v", domain.ErrTransient, err)
	}
	if candidate == nil {
		s.metrics.VotesRejected.WithLabelValues("unknown_candidate").Inc()
		return nil, fmt.Errorf("%w: candidate %d", domain.ErrNotFound, candidateID)
	}

	event, err := s.eventRepo.GetActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: load active event: %v", domain.ErrTransient, err)
	}
	if event == nil {
		s.metrics.VotesRejected.WithLabelValues("no_event").Inc()
		return nil, fmt.Errorf("%w: no live event is running", domain.ErrValidation)
	}

	// A paused event freezes orchestration, not ingestion: as long as the
	// candidate's window is open, votes keep counting.
	item, err := s.lineupRepo.GetByCandidate(ctx, event.ID, candidateID)
	if err != nil {
		return nil, fmt.Errorf("%w: load lineup item: %v", domain.ErrTransient, err)
	}
	if item == nil || !item.HasOpenVoteWindow() {
		s.metrics.VotesRejected.WithLabelValues("closed").Inc()
		return nil, fmt.Errorf("%w: candidate %d", domain.ErrVotingClosed, candidateID)
	}

	// Fast path: reserve the (device, candidate) pair. Losing the SETNX
	// means this device already voted within the reservation window.
	dedupeKey := s.redis.KeyBuilder.KeyDeviceVoted(event.ID, fingerprint, candidateID)
	reserved, err := s.redis.SetNX(ctx, dedupeKey, "1", redis.TTLDeviceVote)
	if err == nil && !reserved {
		s.metrics.VotesRejected.WithLabelValues("duplicate").Inc()
		return nil, fmt.Errorf("%w: candidate %d", domain.ErrDuplicateVote, candidateID)
	}

	vote := &domain.Vote{
		VoteID:            uuid.NewString(),
		EventID:           event.ID,
		DeviceFingerprint: fingerprint,
		CandidateID:       candidateID,
	}

	if err := s.voteRepo.Insert(ctx, vote); err != nil {
		if errors.Is(err, domain.ErrDuplicateVote) {
			s.metrics.VotesRejected.WithLabelValues("duplicate").Inc()
			return nil, err
		}
		// Release the reservation so a retry of this device can succeed.
		_ = s.redis.Delete(ctx, dedupeKey)
		return nil, fmt.Errorf("%w: store vote: %v", domain.ErrTransient, err)
	}

	if count, err := s.redis.Incr(ctx, s.redis.KeyBuilder.KeyCandidateCount(event.ID, candidateID)); err == nil && count == 1 {
		_ = s.redis.Expire(ctx, s.redis.KeyBuilder.KeyCandidateCount(event.ID, candidateID), redis.TTLCounts)
	}
	s.ranking.Invalidate(ctx, event.ID, candidate.Category)
	s.orchestrator.Broadcast(ctx, event)
	s.metrics.VotesAccepted.Inc()

	s.logger.Info("vote counted",
		zap.String("event_id", event.ID),
		zap.Int64("candidate_id", candidateID),
		zap.String("vote_id", vote.VoteID))

	return &domain.VoteReceipt{
		VoteID:      vote.VoteID,
		CandidateID: vote.CandidateID,
		Timestamp:   vote.CreatedAt,
		Message:     "vote counted",
	}, nil
}

// GetReceipt looks a counted vote up by its public receipt
func (s *IngestionService) GetReceipt(ctx context.Context, voteID string) (*domain.VoteReceipt, error) {
	vote, err := s.voteRepo.GetByVoteID(ctx, voteID)
	if err != nil {
		return nil, fmt.Errorf("%w: load vote: %v", domain.ErrTransient, err)
	}
	if vote == nil {
		return nil, fmt.Errorf("%w: vote %s", domain.ErrNotFound, voteID)
	}

	return &domain.VoteReceipt{
		VoteID:      vote.VoteID,
		CandidateID: vote.CandidateID,
		Timestamp:   vote.CreatedAt,
		Message:     "vote counted",
	}, nil
}

// stageEventFor returns the running event of a stage phase, nil for the
// online phase or when no event of that phase is running
func (s *IngestionService) stageEventFor(ctx context.Context, eventType domain.EventType) (*domain.LiveEvent, error) {
	if eventType == domain.EventTypeOnline {
		return nil, nil
	}

	event, err := s.eventRepo.GetActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: load active event: %v", domain.ErrTransient, err)
	}
	if event == nil || event.EventType != eventType {
		return nil, fmt.Errorf("%w: no running %s event", domain.ErrValidation, eventType)
	}
	return event, nil
}

func samePayload(a, b domain.ScorePayload) bool {
	if a == nil || b == nil || a.Kind() != b.Kind() {
		return false
	}
	rawA, errA := domain.MarshalScorePayload(a)
	rawB, errB := domain.MarshalScorePayload(b)
	return errA == nil && errB == nil && bytes.Equal(rawA, rawB)
}
