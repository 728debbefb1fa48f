package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// ScoreKind discriminates the closed set of jury payload shapes.
type ScoreKind string

const (
	ScoreKindDecision ScoreKind = "decision"
	ScoreKindStars    ScoreKind = "stars"
	ScoreKindCriteria ScoreKind = "criteria"
)

// JurorRole is the assignment a juror carries for the whole contest. Each
// role scores exactly one phase with exactly one payload shape.
type JurorRole string

const (
	// RolePreselection screens online submissions with per-criterion points.
	RolePreselection JurorRole = "preselection"
	// RoleAcademy rates semifinal stage performances with 1-5 stars.
	RoleAcademy JurorRole = "academy"
	// RoleFinal issues the ternary decision during the final.
	RoleFinal JurorRole = "final"
)

// EventType returns the contest phase the role is allowed to score.
func (r JurorRole) EventType() (EventType, error) {
	switch r {
	case RolePreselection:
		return EventTypeOnline, nil
	case RoleAcademy:
		return EventTypeSemifinal, nil
	case RoleFinal:
		return EventTypeFinal, nil
	}
	return "", fmt.Errorf("%w: unknown juror role %q", ErrValidation, r)
}

// ScoreKind returns the payload shape the role submits.
func (r JurorRole) ScoreKind() (ScoreKind, error) {
	switch r {
	case RolePreselection:
		return ScoreKindCriteria, nil
	case RoleAcademy:
		return ScoreKindStars, nil
	case RoleFinal:
		return ScoreKindDecision, nil
	}
	return "", fmt.Errorf("%w: unknown juror role %q", ErrValidation, r)
}

// Decision is the ternary final-jury verdict.
type Decision string

const (
	DecisionFavorable   Decision = "favorable"
	DecisionUncertain   Decision = "uncertain"
	DecisionUnfavorable Decision = "unfavorable"
)

// ScorePayload is the closed tagged variant of jury submissions. Every
// variant validates itself and reduces to a single total.
type ScorePayload interface {
	Kind() ScoreKind
	Validate() error
	Total() int
}

// DecisionScore maps favorable/uncertain/unfavorable to 2/1/0.
type DecisionScore struct {
	Decision Decision `json:"decision"`
}

func (s DecisionScore) Kind() ScoreKind { return ScoreKindDecision }

func (s DecisionScore) Validate() error {
	switch s.Decision {
	case DecisionFavorable, DecisionUncertain, DecisionUnfavorable:
		return nil
	}
	return fmt.Errorf("%w: unknown decision %q", ErrValidation, s.Decision)
}

func (s DecisionScore) Total() int {
	switch s.Decision {
	case DecisionFavorable:
		return 2
	case DecisionUncertain:
		return 1
	default:
		return 0
	}
}

// StarScore is a 1-5 star rating.
type StarScore struct {
	Stars int `json:"stars"`
}

func (s StarScore) Kind() ScoreKind { return ScoreKindStars }

func (s StarScore) Validate() error {
	if s.Stars < 1 || s.Stars > 5 {
		return fmt.Errorf("%w: stars must be between 1 and 5, got %d", ErrValidation, s.Stars)
	}
	return nil
}

func (s StarScore) Total() int { return s.Stars }

// CriteriaScore sums named per-criterion points, each 1-5.
type CriteriaScore struct {
	Criteria map[string]int `json:"criteria"`
}

func (s CriteriaScore) Kind() ScoreKind { return ScoreKindCriteria }

func (s CriteriaScore) Validate() error {
	if len(s.Criteria) == 0 {
		return fmt.Errorf("%w: at least one criterion is required", ErrValidation)
	}
	for name, points := range s.Criteria {
		if points < 1 || points > 5 {
			return fmt.Errorf("%w: criterion %q must be between 1 and 5, got %d", ErrValidation, name, points)
		}
	}
	return nil
}

func (s CriteriaScore) Total() int {
	total := 0
	for _, points := range s.Criteria {
		total += points
	}
	return total
}

// scoreEnvelope is the wire form of a ScorePayload.
type scoreEnvelope struct {
	Kind     ScoreKind      `json:"kind"`
	Decision Decision       `json:"decision,omitempty"`
	Stars    int            `json:"stars,omitempty"`
	Criteria map[string]int `json:"criteria,omitempty"`
}

// MarshalScorePayload encodes a payload with its kind discriminator.
func MarshalScorePayload(p ScorePayload) ([]byte, error) {
	env := scoreEnvelope{Kind: p.Kind()}
	switch v := p.(type) {
	case DecisionScore:
		env.Decision = v.Decision
	case StarScore:
		env.Stars = v.Stars
	case CriteriaScore:
		env.Criteria = v.Criteria
	default:
		return nil, fmt.Errorf("%w: unknown score payload %T", ErrValidation, p)
	}
	return json.Marshal(env)
}

// UnmarshalScorePayload decodes a payload by its kind discriminator.
func UnmarshalScorePayload(data []byte) (ScorePayload, error) {
	var env scoreEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: malformed score payload: %v", ErrValidation, err)
	}
	switch env.Kind {
	case ScoreKindDecision:
		return DecisionScore{Decision: env.Decision}, nil
	case ScoreKindStars:
		return StarScore{Stars: env.Stars}, nil
	case ScoreKindCriteria:
		return CriteriaScore{Criteria: env.Criteria}, nil
	}
	return nil, fmt.Errorf("%w: unknown score kind %q", ErrValidation, env.Kind)
}

// WatchInfo is the viewing telemetry a juror's client attaches to an
// online screening score. Stage phases have no recording to watch.
type WatchInfo struct {
	ViewedAt     *time.Time `json:"viewed_at,omitempty"`
	WatchSeconds int        `json:"watch_seconds,omitempty"`
}

// JuryScore is one juror's evaluation of one candidate in one phase.
// The (JurorID, CandidateID, EventType) triple is unique; a resubmission
// updates the row, never duplicates it.
type JuryScore struct {
	ID           int64        `json:"id"`
	JurorID      string       `json:"juror_id"`
	CandidateID  int64        `json:"candidate_id"`
	EventType    EventType    `json:"event_type"`
	Payload      ScorePayload `json:"payload"`
	TotalScore   int          `json:"total_score"`
	Comment      string       `json:"comment,omitempty"`
	ViewedAt     *time.Time   `json:"viewed_at,omitempty"`
	WatchSeconds int          `json:"watch_seconds,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}
