package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/esportsarena/arena/models"
	"github.com/lib/pq"
)

var (
	ErrParticipantNotFound          = errors.New("participant not found")
	ErrParticipantConflict          = errors.New("user is already registered for this tournament")
	ErrParticipantUserInvalid       = errors.New("participant user reference invalid")
	ErrParticipantTournamentInvalid = errors.New("participant tournament reference invalid")
)

type ParticipantRepository interface {
	Create(ctx context.Context, exec SQLExecutor, p *models.Participant) error
	FindByID(ctx context.Context, id int) (*models.Participant, error)
	FindByUserAndTournament(ctx context.Context, userID, tournamentID int) (*models.Participant, error)
	ListByTournament(ctx context.Context, tournamentID int, statusFilter *models.ParticipantStatus, includeUsers bool) ([]*models.Participant, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.ParticipantStatus) error
	AddResult(ctx context.Context, exec SQLExecutor, id int, winsDelta, lossesDelta int) error
	DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error
}

type postgresParticipantRepository struct {
	db *sql.DB
}

func NewPostgresParticipantRepository(db *sql.DB) ParticipantRepository {
	return &postgresParticipantRepository{db: db}
}

func (r *postgresParticipantRepository) exec(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresParticipantRepository) Create(ctx context.Context, exec SQLExecutor, p *models.Participant) error {
	query := `
		INSERT INTO participants (tournament_id, user_id, status)
		VALUES ($1, $2, $3)
		RETURNING id, wins, losses, created_at`

	err := r.exec(exec).QueryRowContext(ctx, query,
		p.TournamentID, p.UserID, p.Status,
	).Scan(&p.ID, &p.Wins, &p.Losses, &p.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505": // unique_violation
				if pqErr.Constraint == "participants_tournament_id_user_id_key" {
					return ErrParticipantConflict
				}
			case "23503": // foreign_key_violation
				switch pqErr.Constraint {
				case "participants_user_id_fkey":
					return ErrParticipantUserInvalid
				case "participants_tournament_id_fkey":
					return ErrParticipantTournamentInvalid
				}
			}
		}
		return fmt.Errorf("failed to create participant: %w", err)
	}
	return nil
}

func (r *postgresParticipantRepository) scan(row interface{ Scan(...interface{}) error }, p *models.Participant) error {
	return row.Scan(&p.ID, &p.TournamentID, &p.UserID, &p.Status, &p.Wins, &p.Losses, &p.CreatedAt)
}

func (r *postgresParticipantRepository) findOne(ctx context.Context, query string, args ...interface{}) (*models.Participant, error) {
	p := &models.Participant{}
	if err := r.scan(r.db.QueryRowContext(ctx, query, args...), p); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrParticipantNotFound
		}
		return nil, fmt.Errorf("failed to find participant: %w", err)
	}
	return p, nil
}

func (r *postgresParticipantRepository) FindByID(ctx context.Context, id int) (*models.Participant, error) {
	query := `SELECT id, tournament_id, user_id, status, wins, losses, created_at FROM participants WHERE id = $1`
	return r.findOne(ctx, query, id)
}

func (r *postgresParticipantRepository) FindByUserAndTournament(ctx context.Context, userID, tournamentID int) (*models.Participant, error) {
	query := `SELECT id, tournament_id, user_id, status, wins, losses, created_at FROM participants WHERE user_id = $1 AND tournament_id = $2`
	return r.findOne(ctx, query, userID, tournamentID)
}

func (r *postgresParticipantRepository) ListByTournament(ctx context.Context, tournamentID int, statusFilter *models.ParticipantStatus, includeUsers bool) ([]*models.Participant, error) {
	query := `
		SELECT p.id, p.tournament_id, p.user_id, p.status, p.wins, p.losses, p.created_at`
	if includeUsers {
		query += `, u.id, u.nickname, u.email, u.role, u.created_at`
	}
	query += ` FROM participants p`
	if includeUsers {
		query += ` JOIN users u ON u.id = p.user_id`
	}
	query += ` WHERE p.tournament_id = $1`

	args := []interface{}{tournamentID}
	if statusFilter != nil {
		query += ` AND p.status = $2`
		args = append(args, *statusFilter)
	}
	// Registration order doubles as seeding order, so the sort matters.
	query += ` ORDER BY p.id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query participants for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	participants := make([]*models.Participant, 0)
	for rows.Next() {
		p := &models.Participant{}
		if includeUsers {
			p.User = &models.User{}
			err = rows.Scan(
				&p.ID, &p.TournamentID, &p.UserID, &p.Status, &p.Wins, &p.Losses, &p.CreatedAt,
				&p.User.ID, &p.User.Nickname, &p.User.Email, &p.User.Role, &p.User.CreatedAt,
			)
		} else {
			err = r.scan(rows, p)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to scan participant row: %w", err)
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

func (r *postgresParticipantRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.ParticipantStatus) error {
	result, err := r.exec(exec).ExecContext(ctx,
		`UPDATE participants SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update participant %d status: %w", id, err)
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}

// AddResult adjusts the win/loss counters. Deltas may be negative when a
// result edit reverses a previously recorded outcome.
func (r *postgresParticipantRepository) AddResult(ctx context.Context, exec SQLExecutor, id int, winsDelta, lossesDelta int) error {
	result, err := r.exec(exec).ExecContext(ctx,
		`UPDATE participants SET wins = wins + $1, losses = losses + $2 WHERE id = $3`,
		winsDelta, lossesDelta, id)
	if err != nil {
		return fmt.Errorf("failed to update participant %d counters: %w", id, err)
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}

func (r *postgresParticipantRepository) DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	_, err := r.exec(exec).ExecContext(ctx,
		`DELETE FROM participants WHERE tournament_id = $1`, tournamentID)
	if err != nil {
		return fmt.Errorf("failed to delete participants for tournament %d: %w", tournamentID, err)
	}
	return nil
}
