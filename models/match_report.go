package models

import "time"

// MatchReport is the historical log of reported results. The authoritative
// state lives on Match; a report row is updated in place when a result is
// corrected, so the most recent report always matches the match.
type MatchReport struct {
	ID                  int       `json:"id" db:"id"`
	MatchID             int       `json:"match_id" db:"match_id"`
	ReporterID          int       `json:"reporter_id" db:"reporter_id"`
	WinnerParticipantID int       `json:"winner_participant_id" db:"winner_participant_id"`
	ScoreP1             int       `json:"score_p1" db:"score_p1"`
	ScoreP2             int       `json:"score_p2" db:"score_p2"`
	Notes               *string   `json:"notes,omitempty" db:"notes"`
	Validated           bool      `json:"validated" db:"validated"`
	ValidatedBy         *int      `json:"validated_by,omitempty" db:"validated_by"`
	CreatedAt           time.Time `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time `json:"updated_at" db:"updated_at"`
}
