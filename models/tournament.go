package models

import "time"

// TournamentStatus mirrors the tournament_status ENUM in the database.
type TournamentStatus string

const (
	StatusPending            TournamentStatus = "pending"
	StatusRegistrationOpen   TournamentStatus = "registration_open"
	StatusRegistrationClosed TournamentStatus = "registration_closed"
	StatusInProgress         TournamentStatus = "in_progress"
	StatusCompleted          TournamentStatus = "completed"
	StatusCancelled          TournamentStatus = "cancelled"
)

// AllowedCapacities is the set of legal max_participants values.
// Bracket math stays power-of-two friendly.
var AllowedCapacities = map[int]bool{2: true, 4: true, 8: true, 16: true, 32: true}

type Tournament struct {
	ID                  int              `json:"id" db:"id"`
	Name                string           `json:"name" db:"name"`
	Game                string           `json:"game" db:"game"`
	Description         *string          `json:"description,omitempty" db:"description"`
	OwnerID             int              `json:"owner_id" db:"owner_id"`
	MaxParticipants     int              `json:"max_participants" db:"max_participants"`
	CurrentParticipants int              `json:"current_participants" db:"current_participants"`
	Status              TournamentStatus `json:"status" db:"status"`
	RegistrationStart   time.Time        `json:"registration_start" db:"registration_start"`
	RegistrationEnd     time.Time        `json:"registration_end" db:"registration_end"`
	EventStart          time.Time        `json:"event_start" db:"event_start"`
	EventEnd            time.Time        `json:"event_end" db:"event_end"`
	BracketGenerated    bool             `json:"bracket_generated" db:"bracket_generated"`
	WinnerParticipantID *int             `json:"winner_participant_id,omitempty" db:"winner_participant_id"`
	CreatedAt           time.Time        `json:"created_at" db:"created_at"`
	LogoKey             *string          `json:"-" db:"logo_key"`
	LogoURL             *string          `json:"logo_url,omitempty" db:"-"`

	// Related entities, populated by services when requested.
	Owner        *User         `json:"owner,omitempty" db:"-"`
	Participants []Participant `json:"participants,omitempty" db:"-"`
	Matches      []Match       `json:"matches,omitempty" db:"-"`
}

// tournamentTransitions lists the legal forward edges of the lifecycle.
// cancelled is reachable from every pre-completion state.
var tournamentTransitions = map[TournamentStatus][]TournamentStatus{
	StatusPending:            {StatusRegistrationOpen, StatusCancelled},
	StatusRegistrationOpen:   {StatusRegistrationClosed, StatusCancelled},
	StatusRegistrationClosed: {StatusInProgress, StatusCancelled},
	StatusInProgress:         {StatusCompleted, StatusCancelled},
	StatusCompleted:          {},
	StatusCancelled:          {},
}

// CanTransitionTo reports whether moving the tournament to next is a legal
// lifecycle transition.
func (s TournamentStatus) CanTransitionTo(next TournamentStatus) bool {
	for _, allowed := range tournamentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Valid reports whether s is one of the known lifecycle statuses.
func (s TournamentStatus) Valid() bool {
	_, ok := tournamentTransitions[s]
	return ok
}

// IsTerminal reports whether no further transitions are possible.
func (s TournamentStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// InitialStatusForWindow derives the creation-time status from the
// registration window relative to now: open if the window is already
// active, closed if it already elapsed, pending otherwise.
func InitialStatusForWindow(regStart, regEnd, now time.Time) TournamentStatus {
	switch {
	case now.Before(regStart):
		return StatusPending
	case now.Before(regEnd):
		return StatusRegistrationOpen
	default:
		return StatusRegistrationClosed
	}
}
