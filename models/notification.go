package models

import "time"

type NotificationKind string

const (
	NotificationMatchResult      NotificationKind = "match_result"
	NotificationTournamentWinner NotificationKind = "tournament_winner"
	NotificationBanned           NotificationKind = "banned"
)

type Notification struct {
	ID        int              `json:"id" db:"id"`
	UserID    int              `json:"user_id" db:"user_id"`
	Kind      NotificationKind `json:"kind" db:"kind"`
	Message   string           `json:"message" db:"message"`
	Read      bool             `json:"read" db:"read"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}
