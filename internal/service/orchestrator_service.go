package service

import (
	"context"
	"fmt"
	"time"

	"github.com/13jisse-music/ChanteEnScene-sub000/internal/broadcast"
	"github.com/13jisse-music/ChanteEnScene-sub000/internal/domain"
	"github.com/13jisse-music/ChanteEnScene-sub000/internal/repository"
	"github.com/13jisse-music/ChanteEnScene-sub000/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrchestratorService drives a live event through the show. Every
// transition follows the same shape: load, validate against current state,
// commit through the event version CAS, then touch lineup rows and
// broadcast. The CAS is the single linearization point - of two concurrent
// admin commands exactly one wins, the other gets domain.ErrConflict and
// must re-read.
type OrchestratorService struct {
	eventRepo   repository.LiveEventRepository
	lineupRepo  repository.LineupRepository
	scoreRepo   repository.ScoreRepository
	ranking     *RankingService
	broadcaster *broadcast.Broadcaster
	metrics     *metrics.Manager
	logger      *zap.Logger
}

// NewOrchestratorService creates a new orchestrator service
func NewOrchestratorService(
	repos *repository.Repositories,
	ranking *RankingService,
	broadcaster *broadcast.Broadcaster,
	m *metrics.Manager,
	logger *zap.Logger,
) *OrchestratorService {
	return &OrchestratorService{
		eventRepo:   repos.LiveEvent,
		lineupRepo:  repos.Lineup,
		scoreRepo:   repos.Score,
		ranking:     ranking,
		broadcaster: broadcaster,
		metrics:     m,
		logger:      logger,
	}
}

// CreateEvent provisions a new live event in the pending state
func (s *OrchestratorService) CreateEvent(ctx context.Context, eventType domain.EventType) (*domain.LiveEvent, error) {
	const op = "create_event"

	if !eventType.Valid() {
		return nil, s.fail(op, fmt.Errorf("%w: unknown event type %q", domain.ErrValidation, eventType))
	}

	active, err := s.eventRepo.GetActive(ctx)
	if err != nil {
		return nil, s.fail(op, fmt.Errorf("%w: load active event: %v", domain.ErrTransient, err))
	}
	if active != nil {
		return nil, s.fail(op, fmt.Errorf("%w: event %s is still running", domain.ErrConflict, active.ID))
	}

	event := &domain.LiveEvent{
		ID:        uuid.NewString(),
		EventType: eventType,
		Status:    domain.EventStatusPending,
	}
	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, s.fail(op, fmt.Errorf("%w: create event: %v", domain.ErrTransient, err))
	}

	s.metrics.Transitions.WithLabelValues(op).Inc()
	s.logger.Info("live event created",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(eventType)))
	return event, nil
}

// StartEvent takes a pending event live
func (s *OrchestratorService) StartEvent(ctx context.Context, eventID string) (*domain.LiveEvent, error) {
	const op = "start_event"

	event, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return nil, s.fail(op, err)
	}
	if event.Status != domain.EventStatusPending {
		return nil, s.fail(op, fmt.Errorf("%w: event is %s, not pending", domain.ErrValidation, event.Status))
	}

	event.Status = domain.EventStatusLive
	if err := s.eventRepo.Update(ctx, event); err != nil {
		return nil, s.fail(op, err)
	}

	s.committed(ctx, op, event)
	return event, nil
}

// StartCategory opens a category block: the lineup of that category is now
// the working set and the stage is empty. Opening a category on a pending
// event starts the show, no separate StartEvent needed.
func (s *OrchestratorService) StartCategory(ctx context.Context, eventID, category string) (*domain.LiveEvent, error) {
	const op = "start_category"

	event, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return nil, s.fail(op, err)
	}
	if event.Status != domain.EventStatusPending && event.Status != domain.EventStatusLive {
		return nil, s.fail(op, fmt.Errorf("%w: event is %s", domain.ErrValidation, event.Status))
	}

	items, err := s.lineupRepo.ListByCategory(ctx, eventID, category)
	if err != nil {
		return nil, s.fail(op, fmt.Errorf("%w: load lineup: %v", domain.ErrTransient, err))
	}
	if len(items) == 0 {
		return nil, s.fail(op, fmt.Errorf("%w: category %q has no lineup", domain.ErrValidation, category))
	}
	if active := activeItem(items); active != nil {
		return nil, s.fail(op, fmt.Errorf("%w: candidate %d is still active", domain.ErrConflict, active.CandidateID))
	}

	event.Status = domain.EventStatusLive
	event.CurrentCategory = category
	event.CurrentCandidateID = nil
	event.IsVotingOpen = false
	if err := s.eventRepo.Update(ctx, event); err != nil {
		return nil, s.fail(op, err)
	}

	s.committed(ctx, op, event)
	return event, nil
}

// CallToStage moves a pending lineup item to the stage. At most one item
// per event is active; calling over an occupied stage is a conflict.
func (s *OrchestratorService) CallToStage(ctx context.Context, eventID string, itemID int64) (*domain.LiveEvent, error) {
	const op = "call_to_stage"

	event, err := s.loadRunningEvent(ctx, eventID)
	if err != nil {
		return nil, s.fail(op, err)
	}

	item, err := s.loadItem(ctx, eventID, itemID)
	if err != nil {
		return nil, s.fail(op, err)
	}
	if item.Status != domain.LineupStatusPending {
		return nil, s.fail(op, fmt.Errorf("%w: lineup item %d is %s, not pending", domain.ErrValidation, itemID, item.Status))
	}
	if item.Category != event.CurrentCategory {
		return nil, s.fail(op, fmt.Errorf("%w: item %d belongs to category %q, current is %q", domain.ErrValidation, itemID, item.Category, event.CurrentCategory))
	}

	items, err := s.lineupRepo.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, s.fail(op, fmt.Errorf("%w: load lineup: %v", domain.ErrTransient, err))
	}
	if active := activeItem(items); active != nil {
		return nil, s.fail(op, fmt.Errorf("%w: candidate %d is still active", domain.ErrConflict, active.CandidateID))
	}

	event.CurrentCandidateID = &item.CandidateID
	event.IsVotingOpen = false
	if err := s.eventRepo.Update(ctx, event); err != nil {
		return nil, s.fail(op, err)
	}

	now := time.Now().UTC()
	item.Status = domain.LineupStatusPerforming
	item.StartedAt = &now
	if err := s.lineupRepo.Update(ctx, item); err != nil {
		return nil, s.fail(op, fmt.Errorf("%w: update lineup item: %v", domain.ErrTransient, err))
	}

	s.committed(ctx, op, event)
	return event, nil
}

// OpenVotes opens the public vote window for the performing candidate
func (s *OrchestratorService) OpenVotes(ctx context.Context, eventID string, itemID int64) (*domain.LiveEvent, error) {
	const op = "open_votes"

	event, err := s.loadRunningEvent(ctx, eventID)
	if err != nil {
		return nil, s.fail(op, err)
	}

	item, err := s.loadItem(ctx, eventID, itemID)
	if err != nil {
		return nil, s.fail(op, err)
	}
	if item.Status != domain.LineupStatusPerforming {
		return nil, s.fail(op, fmt.Errorf("%w: lineup item %d is %s, not performing", domain.ErrValidation, itemID, item.Status))
	}
	if item.VoteOpenedAt != nil {
		return nil, s.fail(op, fmt.Errorf("%w: vote window of item %d was already opened", domain.ErrValidation, itemID))
	}

	event.IsVotingOpen = true
	if err := s.eventRepo.Update(ctx, event); err != nil {
		return nil, s.fail(op, err)
	}

	now := time.Now().UTC()
	item.VoteOpenedAt = &now
	if err := s.lineupRepo.Update(ctx, item); err != nil {
		return nil, s.fail(op, fmt.Errorf("%w: update lineup item: %v", domain.ErrTransient, err))
	}

	s.committed(ctx, op, event)
	return event, nil
}

// CloseVotes closes the public vote window. Votes and jury scores arriving
// after this point are rejected, never silently dropped.
func (s *OrchestratorService) CloseVotes(ctx context.Context, eventID string, itemID int64) (*domain.LiveEvent, error) {
	const op = "close_votes"

	event, err := s.loadRunningEvent(ctx, eventID)
	if err != nil {
		return nil, s.fail(op, err)
	}

	item, err := s.loadItem(ctx, eventID, itemID)
	if err != nil {
		return nil, s.fail(op, err)
	}
	if !item.HasOpenVoteWindow() {
		return nil, s.fail(op, fmt.Errorf("%w: vote window of item %d is not open", domain.ErrValidation, itemID))
	}

	event.IsVotingOpen = false
	if item.Status != domain.LineupStatusPerforming {
		// performance already over, the stage frees up with the window
		event.CurrentCandidateID = nil
	}
	if err := s.eventRepo.Update(ctx, event); err != nil {
		return nil, s.fail(op, err)
	}

	now := time.Now().UTC()
	item.VoteClosedAt = &now
	if err := s.lineupRepo.Update(ctx, item); err != nil {
		return nil, s.fail(op, fmt.Errorf("%w: update lineup item: %v", domain.ErrTransient, err))
	}

	s.committed(ctx, op, event)
	return event, nil
}

// EndPerformance marks the performing candidate as finished. The vote
// window, if open, stays open until CloseVotes.
func (s *OrchestratorService) EndPerformance(ctx context.Context, eventID string, itemID int64) (*domain.LiveEvent, error) {
	const op = "end_performance"

	event, err := s.loadRunningEvent(ctx, eventID)
	if err != nil {
		return nil, s.fail(op, err)
	}

	item, err := s.loadItem(ctx, eventID, itemID)
	if err != nil {
		return nil, s.fail(op, err)
	}
	if item.Status != domain.LineupStatusPerforming {
		return nil, s.fail(op, fmt.Errorf("%w: lineup item %d is not performing", domain.ErrValidation, itemID))
	}

	if !item.HasOpenVoteWindow() {
		event.CurrentCandidateID = nil
	}
	if err := s.eventRepo.Update(ctx, event); err != nil {
		return nil, s.fail(op, err)
	}

	now := time.Now().UTC()
	item.Status = domain.LineupStatusCompleted
	item.EndedAt = &now
	if err := s.lineupRepo.Update(ctx, item); err != nil {
		return nil, s.fail(op, fmt.Errorf("%w: update lineup item: %v", domain.ErrTransient, err))
	}

	s.committed(ctx, op, event)
	return event, nil
}

// MarkAbsent writes a no-show off the lineup without blocking the category
func (s *OrchestratorService) MarkAbsent(ctx context.Context, eventID string, itemID int64) (*domain.LiveEvent, error) {
	const op = "mark_absent"

	event, err := s.loadRunningEvent(ctx, eventID)
	if err != nil {
		return nil, s.fail(op, err)
	}

	item, err := s.loadItem(ctx, eventID, itemID)
	if err != nil {
		return nil, s.fail(op, err)
	}
	if item.Status != domain.LineupStatusPending {
		return nil, s.fail(op, fmt.Errorf("%w: lineup item %d is %s, only pending candidates can be marked absent", domain.ErrValidation, itemID, item.Status))
	}

	if err := s.eventRepo.Update(ctx, event); err != nil {
		return nil, s.fail(op, err)
	}

	item.Status = domain.LineupStatusAbsent
	if err := s.lineupRepo.Update(ctx, item); err != nil {
		return nil, s.fail(op, fmt.Errorf("%w: update lineup item: %v", domain.ErrTransient, err))
	}

	s.committed(ctx, op, event)
	return event, nil
}

// SetReplay puts a finished or absent candidate back into the pending
// lineup for a second passage. With resetScores the candidate's jury
// scores for this phase are wiped; public votes are never retracted.
func (s *OrchestratorService) SetReplay(ctx context.Context, eventID string, itemID int64, resetScores bool) (*domain.LiveEvent, error) {
	const op = "set_replay"

	event, err := s.loadRunningEvent(ctx, eventID)
	if err != nil {
		return nil, s.fail(op, err)
	}

	item, err := s.loadItem(ctx, eventID, itemID)
	if err != nil {
		return nil, s.fail(op, err)
	}
	if !item.IsDone() {
		return nil, s.fail(op, fmt.Errorf("%w: lineup item %d has not finished", domain.ErrValidation, itemID))
	}

	if err := s.eventRepo.Update(ctx, event); err != nil {
		return nil, s.fail(op, err)
	}

	item.Status = domain.LineupStatusPending
	item.StartedAt = nil
	item.EndedAt = nil
	item.VoteOpenedAt = nil
	item.VoteClosedAt = nil
	if err := s.lineupRepo.Update(ctx, item); err != nil {
		return nil, s.fail(op, fmt.Errorf("%w: update lineup item: %v", domain.ErrTransient, err))
	}

	if resetScores {
		deleted, err := s.scoreRepo.DeleteForCandidate(ctx, event.EventType, item.CandidateID)
		if err != nil {
			return nil, s.fail(op, fmt.Errorf("%w: reset scores: %v", domain.ErrTransient, err))
		}
		s.logger.Info("jury scores reset for replay",
			zap.String("event_id", eventID),
			zap.Int64("candidate_id", item.CandidateID),
			zap.Int64("deleted", deleted))
	}

	s.ranking.Invalidate(ctx, eventID, item.Category)
	s.committed(ctx, op, event)
	return event, nil
}

// ReorderLineup rewrites the order of the not-yet-performed block of a
// category. orderedIDs must name exactly the pending items.
func (s *OrchestratorService) ReorderLineup(ctx context.Context, eventID, category string, orderedIDs []int64) (*domain.LiveEvent, error) {
	const op = "reorder_lineup"

	event, err := s.loadRunningEvent(ctx, eventID)
	if err != nil {
		return nil, s.fail(op, err)
	}

	items, err := s.lineupRepo.ListByCategory(ctx, eventID, category)
	if err != nil {
		return nil, s.fail(op, fmt.Errorf("%w: load lineup: %v", domain.ErrTransient, err))
	}

	pending := make(map[int64]bool)
	for _, it := range items {
		if it.Status == domain.LineupStatusPending {
			pending[it.ID] = true
		}
	}
	if len(orderedIDs) != len(pending) {
		return nil, s.fail(op, fmt.Errorf("%w: reorder must list all %d pending items, got %d", domain.ErrValidation, len(pending), len(orderedIDs)))
	}
	seen := make(map[int64]bool, len(orderedIDs))
	for _, id := range orderedIDs {
		if !pending[id] {
			return nil, s.fail(op, fmt.Errorf("%w: lineup item %d is not pending in category %q", domain.ErrValidation, id, category))
		}
		if seen[id] {
			return nil, s.fail(op, fmt.Errorf("%w: lineup item %d listed twice", domain.ErrValidation, id))
		}
		seen[id] = true
	}

	// The reorder itself rides the event CAS like any other transition.
	if err := s.eventRepo.Update(ctx, event); err != nil {
		return nil, s.fail(op, err)
	}

	if err := s.lineupRepo.Reorder(ctx, eventID, category, orderedIDs); err != nil {
		return nil, s.fail(op, err)
	}

	s.committed(ctx, op, event)
	return event, nil
}

// AdvanceToNext is the one-button flow: finish whoever holds the stage,
// close their vote window, and call the next pending candidate.
func (s *OrchestratorService) AdvanceToNext(ctx context.Context, eventID string) (*domain.LiveEvent, error) {
	const op = "advance_to_next"

	event, err := s.loadRunningEvent(ctx, eventID)
	if err != nil {
		return nil, s.fail(op, err)
	}
	if event.CurrentCategory == "" {
		return nil, s.fail(op, fmt.Errorf("%w: no category is running", domain.ErrValidation))
	}

	items, err := s.lineupRepo.ListByCategory(ctx, eventID, event.CurrentCategory)
	if err != nil {
		return nil, s.fail(op, fmt.Errorf("%w: load lineup: %v", domain.ErrTransient, err))
	}

	var next *domain.LineupItem
	for i := range items {
		if items[i].Status == domain.LineupStatusPending {
			next = &items[i]
			break
		}
	}

	if next != nil {
		event.CurrentCandidateID = &next.CandidateID
	} else {
		event.CurrentCandidateID = nil
	}
	event.IsVotingOpen = false
	if err := s.eventRepo.Update(ctx, event); err != nil {
		return nil, s.fail(op, err)
	}

	now := time.Now().UTC()
	if active := activeItem(items); active != nil {
		if active.HasOpenVoteWindow() {
			active.VoteClosedAt = &now
		}
		if active.Status == domain.LineupStatusPerforming {
			active.Status = domain.LineupStatusCompleted
			active.EndedAt = &now
		}
		if err := s.lineupRepo.Update(ctx, active); err != nil {
			return nil, s.fail(op, fmt.Errorf("%w: update lineup item: %v", domain.ErrTransient, err))
		}
	}

	if next != nil {
		next.Status = domain.LineupStatusPerforming
		next.StartedAt = &now
		if err := s.lineupRepo.Update(ctx, next); err != nil {
			return nil, s.fail(op, fmt.Errorf("%w: update lineup item: %v", domain.ErrTransient, err))
		}
	}

	s.committed(ctx, op, event)
	return event, nil
}

// Pause freezes the show: transitions and votes are refused until Resume
func (s *OrchestratorService) Pause(ctx context.Context, eventID string) (*domain.LiveEvent, error) {
	const op = "pause"

	event, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return nil, s.fail(op, err)
	}
	if event.Status != domain.EventStatusLive {
		return nil, s.fail(op, fmt.Errorf("%w: event is %s, not live", domain.ErrValidation, event.Status))
	}

	event.Status = domain.EventStatusPaused
	if err := s.eventRepo.Update(ctx, event); err != nil {
		return nil, s.fail(op, err)
	}

	s.committed(ctx, op, event)
	return event, nil
}

// Resume picks a paused show back up
func (s *OrchestratorService) Resume(ctx context.Context, eventID string) (*domain.LiveEvent, error) {
	const op = "resume"

	event, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return nil, s.fail(op, err)
	}
	if event.Status != domain.EventStatusPaused {
		return nil, s.fail(op, fmt.Errorf("%w: event is %s, not paused", domain.ErrValidation, event.Status))
	}

	event.Status = domain.EventStatusLive
	if err := s.eventRepo.Update(ctx, event); err != nil {
		return nil, s.fail(op, err)
	}

	s.committed(ctx, op, event)
	return event, nil
}

// EndEvent archives a running event. Terminal: a completed event takes no
// further transitions.
func (s *OrchestratorService) EndEvent(ctx context.Context, eventID string) (*domain.LiveEvent, error) {
	const op = "end_event"

	event, err := s.loadRunningEvent(ctx, eventID)
	if err != nil {
		return nil, s.fail(op, err)
	}

	items, err := s.lineupRepo.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, s.fail(op, fmt.Errorf("%w: load lineup: %v", domain.ErrTransient, err))
	}
	if active := activeItem(items); active != nil {
		return nil, s.fail(op, fmt.Errorf("%w: candidate %d is still active", domain.ErrConflict, active.CandidateID))
	}

	event.Status = domain.EventStatusCompleted
	event.CurrentCandidateID = nil
	event.IsVotingOpen = false
	if err := s.eventRepo.Update(ctx, event); err != nil {
		return nil, s.fail(op, err)
	}

	s.committed(ctx, op, event)
	return event, nil
}

// GetEvent returns one event with its full lineup
func (s *OrchestratorService) GetEvent(ctx context.Context, eventID string) (*domain.LiveEvent, []domain.LineupItem, error) {
	event, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return nil, nil, err
	}
	items, err := s.lineupRepo.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: load lineup: %v", domain.ErrTransient, err)
	}
	return event, items, nil
}

// BuildSnapshot assembles the full observable state of an event. Seq and
// PublishedAt are stamped by the broadcaster.
func (s *OrchestratorService) BuildSnapshot(ctx context.Context, event *domain.LiveEvent) (*domain.Snapshot, error) {
	items, err := s.lineupRepo.ListByEvent(ctx, event.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: load lineup: %v", domain.ErrTransient, err)
	}

	snapshot := &domain.Snapshot{
		Event:  *event,
		Lineup: items,
	}

	if event.CurrentCategory != "" {
		entries, err := s.ranking.ComputeForCategory(ctx, event, event.CurrentCategory, false)
		if err != nil {
			// ship the snapshot without ranking rather than not at all
			s.logger.Warn("snapshot ranking unavailable",
				zap.String("event_id", event.ID),
				zap.Error(err))
		} else {
			snapshot.Ranking = entries
		}
	}

	return snapshot, nil
}

// Broadcast builds and publishes a fresh snapshot of the event. Best
// effort: a failed build is logged and swallowed, never surfaced to the
// write that triggered it.
func (s *OrchestratorService) Broadcast(ctx context.Context, event *domain.LiveEvent) {
	snapshot, err := s.BuildSnapshot(ctx, event)
	if err != nil {
		s.logger.Warn("snapshot build failed",
			zap.String("event_id", event.ID),
			zap.Error(err))
		return
	}
	s.broadcaster.PublishSnapshot(ctx, snapshot)
}

// committed records a successful transition and broadcasts the new state
func (s *OrchestratorService) committed(ctx context.Context, op string, event *domain.LiveEvent) {
	s.metrics.Transitions.WithLabelValues(op).Inc()
	s.logger.Info("live event transition",
		zap.String("op", op),
		zap.String("event_id", event.ID),
		zap.Int64("version", event.Version))

	s.Broadcast(ctx, event)
}

func (s *OrchestratorService) fail(op string, err error) error {
	s.metrics.TransitionErrors.WithLabelValues(op).Inc()
	return err
}

func (s *OrchestratorService) loadEvent(ctx context.Context, eventID string) (*domain.LiveEvent, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("%w: load event: %v", domain.ErrTransient, err)
	}
	if event == nil {
		return nil, fmt.Errorf("%w: event %s", domain.ErrNotFound, eventID)
	}
	return event, nil
}

func (s *OrchestratorService) loadRunningEvent(ctx context.Context, eventID string) (*domain.LiveEvent, error) {
	event, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.Status != domain.EventStatusLive {
		return nil, fmt.Errorf("%w: event is %s, not live", domain.ErrValidation, event.Status)
	}
	return event, nil
}

func (s *OrchestratorService) loadItem(ctx context.Context, eventID string, itemID int64) (*domain.LineupItem, error) {
	item, err := s.lineupRepo.GetByID(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("%w: load lineup item: %v", domain.ErrTransient, err)
	}
	if item == nil || item.EventID != eventID {
		return nil, fmt.Errorf("%w: lineup item %d", domain.ErrNotFound, itemID)
	}
	return item, nil
}

func activeItem(items []domain.LineupItem) *domain.LineupItem {
	for i := range items {
		if items[i].IsActive() {
			return &items[i]
		}
	}
	return nil
}
