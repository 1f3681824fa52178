package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/esportsarena/arena/models"
	"github.com/lib/pq"
)

var (
	ErrMatchNotFound           = errors.New("match not found")
	ErrMatchNumberConflict     = errors.New("match number already exists for this round")
	ErrMatchParticipantInvalid = errors.New("match participant reference invalid")
	ErrMatchTournamentInvalid  = errors.New("match tournament reference invalid")
	ErrMatchSlotInvalid        = errors.New("match participant slot must be 1 or 2")
)

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	CreateBatch(ctx context.Context, exec SQLExecutor, matches []*models.Match) error
	GetByID(ctx context.Context, id int) (*models.Match, error)
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	ListByTournament(ctx context.Context, tournamentID int, roundFilter *int, statusFilter *models.MatchStatus) ([]*models.Match, error)
	CountByRound(ctx context.Context, exec SQLExecutor, tournamentID, round int) (total, completed int, err error)
	CountOpenByParticipant(ctx context.Context, participantID int) (int, error)
	UpdateResult(ctx context.Context, exec SQLExecutor, match *models.Match) error
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.MatchStatus) error
	SetNextMatch(ctx context.Context, exec SQLExecutor, id int, nextMatchID int) error
	SetParticipantSlot(ctx context.Context, exec SQLExecutor, id, slot int, participantID *int) error
	DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) exec(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const matchColumns = `
	id, tournament_id, round, match_number, participant1_id, participant2_id,
	score_p1, score_p2, status, winner_participant_id, is_bye, next_match_id,
	referee_id, completed_at, created_at`

func (r *postgresMatchRepository) scan(row interface{ Scan(...interface{}) error }, m *models.Match) error {
	return row.Scan(
		&m.ID, &m.TournamentID, &m.Round, &m.MatchNumber, &m.Participant1ID,
		&m.Participant2ID, &m.ScoreP1, &m.ScoreP2, &m.Status, &m.WinnerParticipantID,
		&m.IsBye, &m.NextMatchID, &m.RefereeID, &m.CompletedAt, &m.CreatedAt,
	)
}

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	query := `
		INSERT INTO matches (
			tournament_id, round, match_number, participant1_id, participant2_id,
			score_p1, score_p2, status, winner_participant_id, is_bye, next_match_id,
			referee_id, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at`

	err := r.exec(exec).QueryRowContext(ctx, query,
		match.TournamentID, match.Round, match.MatchNumber, match.Participant1ID,
		match.Participant2ID, match.ScoreP1, match.ScoreP2, match.Status,
		match.WinnerParticipantID, match.IsBye, match.NextMatchID,
		match.RefereeID, match.CompletedAt,
	).Scan(&match.ID, &match.CreatedAt)

	return r.handleError(err)
}

// CreateBatch inserts the matches one by one inside the caller's
// transaction so each model gets its generated id back. The unique
// (tournament_id, round, match_number) index turns a concurrent duplicate
// round generation into ErrMatchNumberConflict instead of duplicate rows.
func (r *postgresMatchRepository) CreateBatch(ctx context.Context, exec SQLExecutor, matches []*models.Match) error {
	for _, m := range matches {
		if err := r.Create(ctx, exec, m); err != nil {
			return err
		}
	}
	return nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, id int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`
	m := &models.Match{}
	if err := r.scan(r.db.QueryRowContext(ctx, query, id), m); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match %d: %w", id, err)
	}
	return m, nil
}

// GetByIDForUpdate locks the match row so concurrent reports or edits for
// the same match serialize against each other.
func (r *postgresMatchRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1 FOR UPDATE`
	m := &models.Match{}
	if err := r.scan(r.exec(exec).QueryRowContext(ctx, query, id), m); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to lock match %d: %w", id, err)
	}
	return m, nil
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, tournamentID int, roundFilter *int, statusFilter *models.MatchStatus) ([]*models.Match, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + matchColumns + ` FROM matches WHERE tournament_id = $1`)

	args := []interface{}{tournamentID}
	placeholder := 2

	if roundFilter != nil {
		queryBuilder.WriteString(" AND round = $" + strconv.Itoa(placeholder))
		args = append(args, *roundFilter)
		placeholder++
	}
	if statusFilter != nil {
		queryBuilder.WriteString(" AND status = $" + strconv.Itoa(placeholder))
		args = append(args, *statusFilter)
	}
	queryBuilder.WriteString(" ORDER BY round ASC, match_number ASC")

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		m := &models.Match{}
		if err := r.scan(rows, m); err != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (r *postgresMatchRepository) CountByRound(ctx context.Context, exec SQLExecutor, tournamentID, round int) (int, int, error) {
	query := `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE status = $3)
		FROM matches
		WHERE tournament_id = $1 AND round = $2`

	var total, completed int
	err := r.exec(exec).QueryRowContext(ctx, query, tournamentID, round, models.MatchCompleted).
		Scan(&total, &completed)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count matches for tournament %d round %d: %w", tournamentID, round, err)
	}
	return total, completed, nil
}

// CountOpenByParticipant counts pending/in_progress matches the participant
// occupies. Used by the ban rule: open matches must resolve first.
func (r *postgresMatchRepository) CountOpenByParticipant(ctx context.Context, participantID int) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM matches
		WHERE (participant1_id = $1 OR participant2_id = $1)
		  AND status IN ($2, $3)`

	var count int
	err := r.db.QueryRowContext(ctx, query, participantID, models.MatchPending, models.MatchInProgress).
		Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count open matches for participant %d: %w", participantID, err)
	}
	return count, nil
}

func (r *postgresMatchRepository) UpdateResult(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	query := `
		UPDATE matches
		SET score_p1 = $1, score_p2 = $2, status = $3, winner_participant_id = $4, completed_at = $5
		WHERE id = $6`

	result, err := r.exec(exec).ExecContext(ctx, query,
		match.ScoreP1, match.ScoreP2, match.Status, match.WinnerParticipantID,
		match.CompletedAt, match.ID,
	)
	if err != nil {
		return r.handleError(err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.MatchStatus) error {
	result, err := r.exec(exec).ExecContext(ctx,
		`UPDATE matches SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update match %d status: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) SetNextMatch(ctx context.Context, exec SQLExecutor, id int, nextMatchID int) error {
	result, err := r.exec(exec).ExecContext(ctx,
		`UPDATE matches SET next_match_id = $1 WHERE id = $2`, nextMatchID, id)
	if err != nil {
		return fmt.Errorf("failed to set next match for match %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) SetParticipantSlot(ctx context.Context, exec SQLExecutor, id, slot int, participantID *int) error {
	var column string
	switch slot {
	case 1:
		column = "participant1_id"
	case 2:
		column = "participant2_id"
	default:
		return ErrMatchSlotInvalid
	}

	result, err := r.exec(exec).ExecContext(ctx,
		`UPDATE matches SET `+column+` = $1 WHERE id = $2`, participantID, id)
	if err != nil {
		return r.handleError(err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	_, err := r.exec(exec).ExecContext(ctx,
		`DELETE FROM matches WHERE tournament_id = $1`, tournamentID)
	if err != nil {
		return fmt.Errorf("failed to delete matches for tournament %d: %w", tournamentID, err)
	}
	return nil
}

func (r *postgresMatchRepository) handleError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Constraint {
		case "matches_tournament_id_round_match_number_key":
			return ErrMatchNumberConflict
		case "matches_tournament_id_fkey":
			return ErrMatchTournamentInvalid
		case "matches_participant1_id_fkey", "matches_participant2_id_fkey",
			"matches_winner_participant_id_fkey":
			return ErrMatchParticipantInvalid
		}
	}
	return err
}
