package service

import (
	"context"
	"testing"
	"time"

	"github.com/13jisse-music/ChanteEnScene-sub000/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// finishedCategory plays the whole "enfant" block: both candidates have
// performed with closed windows, Alice holding more jury points
func finishedCategory(t *testing.T, env *testEnv) *domain.LiveEvent {
	t.Helper()
	ctx := context.Background()

	event := stagedCandidate(t, env)
	_, err := env.ingestion.SubmitJuryScore(ctx, "juror-1", domain.RoleAcademy, 1, domain.StarScore{Stars: 5}, "", nil)
	require.NoError(t, err)

	event, err = env.orchestrator.AdvanceToNext(ctx, event.ID)
	require.NoError(t, err)
	_, err = env.ingestion.SubmitJuryScore(ctx, "juror-1", domain.RoleAcademy, 2, domain.StarScore{Stars: 2}, "", nil)
	require.NoError(t, err)
	event, err = env.orchestrator.AdvanceToNext(ctx, event.ID)
	require.NoError(t, err)
	return event
}

func TestReveal_TopOfRankingWins(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	event := finishedCategory(t, env)

	event, err := env.reveal.RevealWinner(ctx, event.ID, nil)
	require.NoError(t, err)
	require.NotNil(t, event.WinnerCandidateID)
	assert.Equal(t, int64(1), *event.WinnerCandidateID)
	assert.NotNil(t, event.WinnerRevealedAt)
	assert.False(t, event.WinnerForced)
}

func TestReveal_ForcedWinnerIsMarked(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	event := finishedCategory(t, env)

	forced := int64(2)
	event, err := env.reveal.RevealWinner(ctx, event.ID, &forced)
	require.NoError(t, err)
	require.NotNil(t, event.WinnerCandidateID)
	assert.Equal(t, int64(2), *event.WinnerCandidateID)
	assert.True(t, event.WinnerForced)
}

func TestReveal_ForcingTheActualTopIsNotForced(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	event := finishedCategory(t, env)

	forced := int64(1)
	event, err := env.reveal.RevealWinner(ctx, event.ID, &forced)
	require.NoError(t, err)
	assert.False(t, event.WinnerForced)
}

func TestReveal_RequiresFinishedCategory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	event := stagedCandidate(t, env)

	// candidate 1 is still on stage, candidate 2 never performed
	_, err := env.reveal.RevealWinner(ctx, event.ID, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestReveal_RequiresAtLeastOnePerformance(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedCandidate(1, "Alice", "enfant", 0)
	event := env.liveEvent(t, domain.EventTypeSemifinal)
	env.seedItem(10, event.ID, 1, "enfant", 1, domain.LineupStatusPending)
	event, err := env.orchestrator.StartCategory(ctx, event.ID, "enfant")
	require.NoError(t, err)
	event, err = env.orchestrator.MarkAbsent(ctx, event.ID, 10)
	require.NoError(t, err)

	_, err = env.reveal.RevealWinner(ctx, event.ID, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestReveal_ForcedWinnerMustHavePerformed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	event := finishedCategory(t, env)

	forced := int64(999)
	_, err := env.reveal.RevealWinner(ctx, event.ID, &forced)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestReveal_SecondRevealRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	event := finishedCategory(t, env)

	_, err := env.reveal.RevealWinner(ctx, event.ID, nil)
	require.NoError(t, err)

	_, err = env.reveal.RevealWinner(ctx, event.ID, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestReveal_AutoAdvanceArchivesSingleCategoryEvent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	event := finishedCategory(t, env)

	_, err := env.reveal.RevealWinner(ctx, event.ID, nil)
	require.NoError(t, err)

	// the test env holds the winner for 80ms before advancing
	require.Eventually(t, func() bool {
		e, err := env.repos.LiveEvent.GetByID(ctx, event.ID)
		return err == nil && e != nil && e.Status == domain.EventStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	e, err := env.repos.LiveEvent.GetByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Nil(t, e.WinnerCandidateID)
	assert.Empty(t, e.CurrentCategory)
}

func TestReveal_AutoAdvanceOpensNextCategory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	event := finishedCategory(t, env)

	// a second category still waits for its turn
	env.seedCandidate(3, "Chloe", "ado", 0)
	env.seedItem(20, event.ID, 3, "ado", 1, domain.LineupStatusPending)

	_, err := env.reveal.RevealWinner(ctx, event.ID, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		e, err := env.repos.LiveEvent.GetByID(ctx, event.ID)
		return err == nil && e != nil && e.CurrentCategory == "ado"
	}, 2*time.Second, 10*time.Millisecond)

	e, err := env.repos.LiveEvent.GetByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.EventStatusLive, e.Status)
	assert.Nil(t, e.WinnerCandidateID)
}

func TestReveal_CancelStopsTheCeremony(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	event := finishedCategory(t, env)

	_, err := env.reveal.RevealWinner(ctx, event.ID, nil)
	require.NoError(t, err)

	event, err = env.reveal.CancelReveal(ctx, event.ID)
	require.NoError(t, err)
	assert.Nil(t, event.WinnerCandidateID)
	assert.False(t, event.WinnerForced)

	// well past the hold: the cancelled timer must not have advanced
	time.Sleep(200 * time.Millisecond)
	e, err := env.repos.LiveEvent.GetByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.EventStatusLive, e.Status)
	assert.Equal(t, "enfant", e.CurrentCategory)
}

func TestReveal_AdvanceNowSkipsTheHold(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	event := finishedCategory(t, env)

	_, err := env.reveal.RevealWinner(ctx, event.ID, nil)
	require.NoError(t, err)

	require.NoError(t, env.reveal.AdvanceNow(ctx, event.ID))

	e, err := env.repos.LiveEvent.GetByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.EventStatusCompleted, e.Status)
}
