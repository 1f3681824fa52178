package models

import "time"

// MatchStatus mirrors the match_status ENUM in the database.
type MatchStatus string

const (
	MatchPending    MatchStatus = "pending"
	MatchInProgress MatchStatus = "in_progress"
	MatchCompleted  MatchStatus = "completed"
	MatchDisputed   MatchStatus = "disputed"
	MatchCancelled  MatchStatus = "cancelled"
)

// Match is one scheduled pairing in the bracket. Participant slots may be
// null until the previous round's winners advance into them. NextMatchID
// points at the round+1 match the winner feeds into; null for the final.
type Match struct {
	ID                  int         `json:"id" db:"id"`
	TournamentID        int         `json:"tournament_id" db:"tournament_id"`
	Round               int         `json:"round" db:"round"`
	MatchNumber         int         `json:"match_number" db:"match_number"`
	Participant1ID      *int        `json:"participant1_id,omitempty" db:"participant1_id"`
	Participant2ID      *int        `json:"participant2_id,omitempty" db:"participant2_id"`
	ScoreP1             *int        `json:"score_p1,omitempty" db:"score_p1"`
	ScoreP2             *int        `json:"score_p2,omitempty" db:"score_p2"`
	Status              MatchStatus `json:"status" db:"status"`
	WinnerParticipantID *int        `json:"winner_participant_id,omitempty" db:"winner_participant_id"`
	IsBye               bool        `json:"is_bye" db:"is_bye"`
	NextMatchID         *int        `json:"next_match_id,omitempty" db:"next_match_id"`
	RefereeID           int         `json:"referee_id" db:"referee_id"`
	CompletedAt         *time.Time  `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt           time.Time   `json:"created_at" db:"created_at"`

	Participant1 *Participant `json:"participant1,omitempty" db:"-"`
	Participant2 *Participant `json:"participant2,omitempty" db:"-"`
}

// Valid reports whether s is one of the known match statuses.
func (s MatchStatus) Valid() bool {
	switch s {
	case MatchPending, MatchInProgress, MatchCompleted, MatchDisputed, MatchCancelled:
		return true
	}
	return false
}

// HasParticipant reports whether participantID occupies one of the two slots.
func (m *Match) HasParticipant(participantID int) bool {
	return (m.Participant1ID != nil && *m.Participant1ID == participantID) ||
		(m.Participant2ID != nil && *m.Participant2ID == participantID)
}

// Reportable reports whether a result can be recorded at all: both slots
// filled and not a bye. Byes complete at creation and are never editable.
func (m *Match) Reportable() bool {
	return !m.IsBye && m.Participant1ID != nil && m.Participant2ID != nil
}
