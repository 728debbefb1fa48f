package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecisionScore(t *testing.T) {
	tests := []struct {
		name      string
		decision  Decision
		wantTotal int
		wantErr   bool
	}{
		{name: "favorable", decision: DecisionFavorable, wantTotal: 2},
		{name: "uncertain", decision: DecisionUncertain, wantTotal: 1},
		{name: "unfavorable", decision: DecisionUnfavorable, wantTotal: 0},
		{name: "unknown", decision: Decision("maybe"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DecisionScore{Decision: tt.decision}
			err := s.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, s.Total())
		})
	}
}

func TestStarScore(t *testing.T) {
	for stars := 1; stars <= 5; stars++ {
		s := StarScore{Stars: stars}
		require.NoError(t, s.Validate())
		assert.Equal(t, stars, s.Total())
	}

	assert.ErrorIs(t, StarScore{Stars: 0}.Validate(), ErrValidation)
	assert.ErrorIs(t, StarScore{Stars: 6}.Validate(), ErrValidation)
}

func TestCriteriaScore(t *testing.T) {
	s := CriteriaScore{Criteria: map[string]int{"voice": 5, "presence": 3, "musicality": 4}}
	require.NoError(t, s.Validate())
	assert.Equal(t, 12, s.Total())

	assert.ErrorIs(t, CriteriaScore{}.Validate(), ErrValidation)
	assert.ErrorIs(t, CriteriaScore{Criteria: map[string]int{"voice": 6}}.Validate(), ErrValidation)
	assert.ErrorIs(t, CriteriaScore{Criteria: map[string]int{"voice": 0}}.Validate(), ErrValidation)
}

func TestScorePayloadRoundTrip(t *testing.T) {
	payloads := []ScorePayload{
		DecisionScore{Decision: DecisionFavorable},
		StarScore{Stars: 4},
		CriteriaScore{Criteria: map[string]int{"voice": 2, "presence": 5}},
	}

	for _, p := range payloads {
		data, err := MarshalScorePayload(p)
		require.NoError(t, err)

		decoded, err := UnmarshalScorePayload(data)
		require.NoError(t, err)
		assert.Equal(t, p, decoded)
	}
}

func TestUnmarshalScorePayload_UnknownKind(t *testing.T) {
	_, err := UnmarshalScorePayload([]byte(`{"kind":"applause"}`))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestJurorRole_Mapping(t *testing.T) {
	tests := []struct {
		role      JurorRole
		eventType EventType
		kind      ScoreKind
	}{
		{role: RolePreselection, eventType: EventTypeOnline, kind: ScoreKindCriteria},
		{role: RoleAcademy, eventType: EventTypeSemifinal, kind: ScoreKindStars},
		{role: RoleFinal, eventType: EventTypeFinal, kind: ScoreKindDecision},
	}

	for _, tt := range tests {
		et, err := tt.role.EventType()
		require.NoError(t, err)
		assert.Equal(t, tt.eventType, et)

		kind, err := tt.role.ScoreKind()
		require.NoError(t, err)
		assert.Equal(t, tt.kind, kind)
	}

	_, err := JurorRole("backstage").EventType()
	assert.ErrorIs(t, err, ErrValidation)
}
