package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/13jisse-music/ChanteEnScene-sub000/internal/config"
	"github.com/13jisse-music/ChanteEnScene-sub000/internal/domain"
	"github.com/13jisse-music/ChanteEnScene-sub000/internal/repository"
	"github.com/13jisse-music/ChanteEnScene-sub000/pkg/metrics"
	"github.com/13jisse-music/ChanteEnScene-sub000/pkg/redis"
	"go.uber.org/zap"
)

// RankingService recomputes category rankings from raw signals. Rankings
// are derived state: nothing here is stored beyond a short advisory cache,
// so a recompute after crash or replay always reflects the signals as they
// are now.
type RankingService struct {
	candidateRepo repository.CandidateRepository
	scoreRepo     repository.ScoreRepository
	voteRepo      repository.VoteRepository
	settingsRepo  repository.SettingsRepository
	redis         *redis.Client
	metrics       *metrics.Manager
	cfg           *config.Config
	logger        *zap.Logger
}

// NewRankingService creates a new ranking service
func NewRankingService(
	repos *repository.Repositories,
	redisClient *redis.Client,
	m *metrics.Manager,
	cfg *config.Config,
	logger *zap.Logger,
) *RankingService {
	return &RankingService{
		candidateRepo: repos.Candidate,
		scoreRepo:     repos.Score,
		voteRepo:      repos.Vote,
		settingsRepo:  repos.Settings,
		redis:         redisClient,
		metrics:       m,
		cfg:           cfg,
		logger:        logger,
	}
}

// ComputeForCategory returns the current ranking of one category. A short
// Redis cache absorbs bursts during vote windows; callers that must see
// the instant-precise ranking (winner reveal) bypass it with fresh=true.
func (s *RankingService) ComputeForCategory(ctx context.Context, event *domain.LiveEvent, category string, fresh bool) ([]domain.RankingEntry, error) {
	cacheKey := s.redis.KeyBuilder.KeyRanking(event.ID, category)

	if !fresh {
		if cached, err := s.redis.Get(ctx, cacheKey); err == nil {
			var entries []domain.RankingEntry
			if err := json.Unmarshal([]byte(cached), &entries); err == nil {
				return entries, nil
			}
		}
	}

	start := time.Now()

	candidates, err := s.candidateRepo.ListByCategory(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("%w: list candidates: %v", domain.ErrTransient, err)
	}

	juryTotals, err := s.scoreRepo.AverageTotalsByCategory(ctx, event.EventType, category)
	if err != nil {
		return nil, fmt.Errorf("%w: aggregate jury scores: %v", domain.ErrTransient, err)
	}

	voteCounts, err := s.voteRepo.CountsByCategory(ctx, event.ID, category)
	if err != nil {
		return nil, fmt.Errorf("%w: count votes: %v", domain.ErrTransient, err)
	}

	weights, err := s.weightsFor(ctx, event.ID)
	if err != nil {
		return nil, err
	}

	entries := domain.ComputeRanking(domain.RankingInput{
		Candidates: candidates,
		JuryTotals: juryTotals,
		VoteCounts: voteCounts,
		Weights:    weights,
	})

	s.metrics.RankingComputes.Inc()
	s.metrics.RankingComputeDur.Observe(time.Since(start).Seconds())

	if payload, err := json.Marshal(entries); err == nil {
		_ = s.redis.Set(ctx, cacheKey, payload, redis.TTLRanking)
	}

	return entries, nil
}

// Invalidate drops the cached ranking of one category so the next read
// recomputes from raw signals
func (s *RankingService) Invalidate(ctx context.Context, eventID, category string) {
	if err := s.redis.Delete(ctx, s.redis.KeyBuilder.KeyRanking(eventID, category)); err != nil {
		s.logger.Debug("ranking cache invalidation failed",
			zap.String("event_id", eventID),
			zap.String("category", category),
			zap.Error(err))
	}
}

// weightsFor resolves the scoring weights of a session, falling back to
// the deployment defaults when none are configured
func (s *RankingService) weightsFor(ctx context.Context, eventID string) (domain.ScoringWeights, error) {
	stored, err := s.settingsRepo.GetWeights(ctx, eventID)
	if err != nil {
		return domain.ScoringWeights{}, fmt.Errorf("%w: load scoring weights: %v", domain.ErrTransient, err)
	}
	if stored != nil {
		return *stored, nil
	}

	return domain.ScoringWeights{
		JuryWeightPercent:   s.cfg.DefaultJuryWeight,
		PublicWeightPercent: s.cfg.DefaultPublicWeight,
		SocialWeightPercent: s.cfg.DefaultSocialWeight,
	}, nil
}

// UpdateWeights stores new scoring weights for a session and drops any
// cached rankings of the given categories
func (s *RankingService) UpdateWeights(ctx context.Context, eventID string, weights domain.ScoringWeights, categories []string) error {
	if weights.JuryWeightPercent < 0 || weights.PublicWeightPercent < 0 || weights.SocialWeightPercent < 0 {
		return fmt.Errorf("%w: scoring weights must not be negative", domain.ErrValidation)
	}

	if err := s.settingsRepo.UpdateWeights(ctx, eventID, weights); err != nil {
		return fmt.Errorf("%w: store scoring weights: %v", domain.ErrTransient, err)
	}

	for _, category := range categories {
		s.Invalidate(ctx, eventID, category)
	}

	s.logger.Info("scoring weights updated",
		zap.String("event_id", eventID),
		zap.Int("jury", weights.JuryWeightPercent),
		zap.Int("public", weights.PublicWeightPercent),
		zap.Int("social", weights.SocialWeightPercent))

	return nil
}
