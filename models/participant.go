package models

import "time"

// ParticipantStatus mirrors the participant_status ENUM in the database.
type ParticipantStatus string

const (
	ParticipantRegistered ParticipantStatus = "registered"
	ParticipantCheckedIn  ParticipantStatus = "checked_in"
	ParticipantEliminated ParticipantStatus = "eliminated"
	ParticipantWinner     ParticipantStatus = "winner"
	ParticipantBanned     ParticipantStatus = "banned"
)

type Participant struct {
	ID           int               `json:"id" db:"id"`
	TournamentID int               `json:"tournament_id" db:"tournament_id"`
	UserID       int               `json:"user_id" db:"user_id"`
	Status       ParticipantStatus `json:"status" db:"status"`
	Wins         int               `json:"wins" db:"wins"`
	Losses       int               `json:"losses" db:"losses"`
	CreatedAt    time.Time         `json:"created_at" db:"created_at"`

	User *User `json:"user,omitempty" db:"-"`
}

// Alive reports whether the participant can still appear in new matches.
func (p *Participant) Alive() bool {
	return p.Status == ParticipantRegistered || p.Status == ParticipantCheckedIn
}
