package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/13jisse-music/ChanteEnScene-sub000/internal/domain"
	"github.com/13jisse-music/ChanteEnScene-sub000/internal/repository"
	"github.com/13jisse-music/ChanteEnScene-sub000/pkg/metrics"
	"go.uber.org/zap"
)

// RevealService runs the winner ceremony of a category: freeze the
// ranking, stamp the winner on the event, hold the moment on every screen,
// then clear the stage and move the show to the next category. The hold is
// a cancellable timer so the control desk can cut it short or call it off.
type RevealService struct {
	eventRepo    repository.LiveEventRepository
	lineupRepo   repository.LineupRepository
	ranking      *RankingService
	orchestrator *OrchestratorService
	metrics      *metrics.Manager
	logger       *zap.Logger
	cleanupDelay time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer
	closed bool
}

// NewRevealService creates a new reveal service. cleanupDelay is how long
// the winner stays on screen before the show auto-advances.
func NewRevealService(
	repos *repository.Repositories,
	ranking *RankingService,
	orchestrator *OrchestratorService,
	m *metrics.Manager,
	cleanupDelay time.Duration,
	logger *zap.Logger,
) *RevealService {
	return &RevealService{
		eventRepo:    repos.LiveEvent,
		lineupRepo:   repos.Lineup,
		ranking:      ranking,
		orchestrator: orchestrator,
		metrics:      m,
		logger:       logger,
		cleanupDelay: cleanupDelay,
		timers:       make(map[string]*time.Timer),
	}
}

// RevealWinner stamps the category winner on the event and schedules the
// auto-advance. forcedCandidateID overrides the computed top entry, which
// marks the reveal as forced in the record; nil takes the ranking's word.
func (s *RevealService) RevealWinner(ctx context.Context, eventID string, forcedCandidateID *int64) (*domain.LiveEvent, error) {
	event, err := s.orchestrator.loadRunningEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.CurrentCategory == "" {
		return nil, fmt.Errorf("%w: no category is running", domain.ErrValidation)
	}
	if event.WinnerCandidateID != nil {
		return nil, fmt.Errorf("%w: winner already revealed", domain.ErrValidation)
	}

	items, err := s.lineupRepo.ListByCategory(ctx, eventID, event.CurrentCategory)
	if err != nil {
		return nil, fmt.Errorf("%w: load lineup: %v", domain.ErrTransient, err)
	}

	completed := 0
	for _, it := range items {
		if !it.IsDone() {
			return nil, fmt.Errorf("%w: candidate %d has not finished", domain.ErrValidation, it.CandidateID)
		}
		if it.Status == domain.LineupStatusCompleted {
			completed++
		}
	}
	if completed == 0 {
		return nil, fmt.Errorf("%w: no candidate performed in category %q", domain.ErrValidation, event.CurrentCategory)
	}

	// The ceremony ranking bypasses the advisory cache: the winner is
	// decided on the signals as stored this instant.
	entries, err := s.ranking.ComputeForCategory(ctx, event, event.CurrentCategory, true)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: category %q has no ranking", domain.ErrValidation, event.CurrentCategory)
	}

	winnerID := entries[0].CandidateID
	forced := false
	if forcedCandidateID != nil {
		if !performedInCategory(items, *forcedCandidateID) {
			return nil, fmt.Errorf("%w: candidate %d did not perform in category %q", domain.ErrValidation, *forcedCandidateID, event.CurrentCategory)
		}
		forced = *forcedCandidateID != winnerID
		winnerID = *forcedCandidateID
	}

	now := time.Now().UTC()
	event.WinnerCandidateID = &winnerID
	event.WinnerRevealedAt = &now
	event.WinnerForced = forced
	event.IsVotingOpen = false
	if err := s.eventRepo.Update(ctx, event); err != nil {
		return nil, err
	}

	s.metrics.WinnerReveals.Inc()
	s.logger.Info("winner revealed",
		zap.String("event_id", eventID),
		zap.String("category", event.CurrentCategory),
		zap.Int64("candidate_id", winnerID),
		zap.Bool("forced", forced))

	s.orchestrator.committed(ctx, "reveal_winner", event)
	s.scheduleCleanup(eventID)

	return event, nil
}

// CancelReveal calls the ceremony off: the pending auto-advance is dropped
// and the winner mark is cleared so the reveal can be redone
func (s *RevealService) CancelReveal(ctx context.Context, eventID string) (*domain.LiveEvent, error) {
	s.stopTimer(eventID)

	event, err := s.orchestrator.loadEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.WinnerCandidateID == nil {
		return nil, fmt.Errorf("%w: no reveal is pending", domain.ErrValidation)
	}

	event.WinnerCandidateID = nil
	event.WinnerRevealedAt = nil
	event.WinnerForced = false
	if err := s.eventRepo.Update(ctx, event); err != nil {
		return nil, err
	}

	s.logger.Info("winner reveal cancelled", zap.String("event_id", eventID))
	s.orchestrator.committed(ctx, "cancel_reveal", event)
	return event, nil
}

// AdvanceNow skips the remaining hold and moves the show immediately
func (s *RevealService) AdvanceNow(ctx context.Context, eventID string) error {
	s.stopTimer(eventID)
	return s.advance(ctx, eventID)
}

// scheduleCleanup arms the auto-advance timer, replacing any armed one
func (s *RevealService) scheduleCleanup(eventID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if t, ok := s.timers[eventID]; ok {
		t.Stop()
	}
	s.timers[eventID] = time.AfterFunc(s.cleanupDelay, func() {
		s.mu.Lock()
		delete(s.timers, eventID)
		closed := s.closed
		s.mu.Unlock()
		if closed {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.advance(ctx, eventID); err != nil {
			s.logger.Warn("auto-advance after reveal failed",
				zap.String("event_id", eventID),
				zap.Error(err))
		}
	})
}

func (s *RevealService) stopTimer(eventID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[eventID]; ok {
		t.Stop()
		delete(s.timers, eventID)
	}
}

// advance clears the ceremony from the screens and opens the next category
// that still has pending candidates, or archives the event when none is
// left
func (s *RevealService) advance(ctx context.Context, eventID string) error {
	event, err := s.orchestrator.loadEvent(ctx, eventID)
	if err != nil {
		return err
	}
	if !event.IsRunning() {
		return nil
	}

	items, err := s.lineupRepo.ListByEvent(ctx, eventID)
	if err != nil {
		return fmt.Errorf("%w: load lineup: %v", domain.ErrTransient, err)
	}
	next := nextCategory(items, event.CurrentCategory)

	event.WinnerCandidateID = nil
	event.WinnerRevealedAt = nil
	event.WinnerForced = false
	event.CurrentCandidateID = nil
	event.IsVotingOpen = false
	event.CurrentCategory = next
	if next == "" {
		event.Status = domain.EventStatusCompleted
	}
	if err := s.eventRepo.Update(ctx, event); err != nil {
		return err
	}

	op := "advance_category"
	if next == "" {
		op = "end_event"
	}
	s.orchestrator.committed(ctx, op, event)
	return nil
}

// Close drops every armed timer. Pending ceremonies resume manually after
// a restart; the winner mark itself is durable.
func (s *RevealService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}

func performedInCategory(items []domain.LineupItem, candidateID int64) bool {
	for _, it := range items {
		if it.CandidateID == candidateID && it.Status == domain.LineupStatusCompleted {
			return true
		}
	}
	return false
}

// nextCategory picks the first category, in stable name order, that still
// has pending candidates and is not the one just finished
func nextCategory(items []domain.LineupItem, current string) string {
	pendingByCategory := make(map[string]bool)
	for _, it := range items {
		if it.Status == domain.LineupStatusPending {
			pendingByCategory[it.Category] = true
		}
	}

	categories := make([]string, 0, len(pendingByCategory))
	for c := range pendingByCategory {
		if c != current {
			categories = append(categories, c)
		}
	}
	sort.Strings(categories)

	if len(categories) == 0 {
		return ""
	}
	return categories[0]
}
