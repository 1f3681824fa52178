package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/esportsarena/arena/models"
)

var ErrMatchReportNotFound = errors.New("match report not found")

type MatchReportRepository interface {
	Create(ctx context.Context, exec SQLExecutor, report *models.MatchReport) error
	GetLatestByMatch(ctx context.Context, matchID int) (*models.MatchReport, error)
	UpdateLatestByMatch(ctx context.Context, exec SQLExecutor, report *models.MatchReport) error
	ListByMatch(ctx context.Context, matchID int) ([]*models.MatchReport, error)
	DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error
}

type postgresMatchReportRepository struct {
	db *sql.DB
}

func NewPostgresMatchReportRepository(db *sql.DB) MatchReportRepository {
	return &postgresMatchReportRepository{db: db}
}

func (r *postgresMatchReportRepository) exec(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresMatchReportRepository) Create(ctx context.Context, exec SQLExecutor, report *models.MatchReport) error {
	query := `
		INSERT INTO match_reports (
			match_id, reporter_id, winner_participant_id, score_p1, score_p2,
			notes, validated, validated_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`

	err := r.exec(exec).QueryRowContext(ctx, query,
		report.MatchID, report.ReporterID, report.WinnerParticipantID,
		report.ScoreP1, report.ScoreP2, report.Notes, report.Validated, report.ValidatedBy,
	).Scan(&report.ID, &report.CreatedAt, &report.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create match report: %w", err)
	}
	return nil
}

func (r *postgresMatchReportRepository) scan(row interface{ Scan(...interface{}) error }, report *models.MatchReport) error {
	return row.Scan(
		&report.ID, &report.MatchID, &report.ReporterID, &report.WinnerParticipantID,
		&report.ScoreP1, &report.ScoreP2, &report.Notes, &report.Validated,
		&report.ValidatedBy, &report.CreatedAt, &report.UpdatedAt,
	)
}

const reportColumns = `
	id, match_id, reporter_id, winner_participant_id, score_p1, score_p2,
	notes, validated, validated_by, created_at, updated_at`

func (r *postgresMatchReportRepository) GetLatestByMatch(ctx context.Context, matchID int) (*models.MatchReport, error) {
	query := `SELECT ` + reportColumns + ` FROM match_reports WHERE match_id = $1 ORDER BY created_at DESC, id DESC LIMIT 1`

	report := &models.MatchReport{}
	if err := r.scan(r.db.QueryRowContext(ctx, query, matchID), report); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchReportNotFound
		}
		return nil, fmt.Errorf("failed to scan match report for match %d: %w", matchID, err)
	}
	return report, nil
}

// UpdateLatestByMatch rewrites the most recent report row for the match in
// place. Result edits correct the log instead of appending to it.
func (r *postgresMatchReportRepository) UpdateLatestByMatch(ctx context.Context, exec SQLExecutor, report *models.MatchReport) error {
	query := `
		UPDATE match_reports
		SET reporter_id = $1, winner_participant_id = $2, score_p1 = $3, score_p2 = $4,
		    notes = $5, validated = $6, validated_by = $7, updated_at = NOW()
		WHERE id = (
			SELECT id FROM match_reports WHERE match_id = $8
			ORDER BY created_at DESC, id DESC LIMIT 1
		)`

	result, err := r.exec(exec).ExecContext(ctx, query,
		report.ReporterID, report.WinnerParticipantID, report.ScoreP1, report.ScoreP2,
		report.Notes, report.Validated, report.ValidatedBy, report.MatchID,
	)
	if err != nil {
		return fmt.Errorf("failed to update match report for match %d: %w", report.MatchID, err)
	}
	return checkAffectedRows(result, ErrMatchReportNotFound)
}

func (r *postgresMatchReportRepository) ListByMatch(ctx context.Context, matchID int) ([]*models.MatchReport, error) {
	query := `SELECT ` + reportColumns + ` FROM match_reports WHERE match_id = $1 ORDER BY created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query match reports for match %d: %w", matchID, err)
	}
	defer rows.Close()

	reports := make([]*models.MatchReport, 0)
	for rows.Next() {
		report := &models.MatchReport{}
		if err := r.scan(rows, report); err != nil {
			return nil, fmt.Errorf("failed to scan match report row: %w", err)
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

func (r *postgresMatchReportRepository) DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	query := `
		DELETE FROM match_reports
		WHERE match_id IN (SELECT id FROM matches WHERE tournament_id = $1)`

	_, err := r.exec(exec).ExecContext(ctx, query, tournamentID)
	if err != nil {
		return fmt.Errorf("failed to delete match reports for tournament %d: %w", tournamentID, err)
	}
	return nil
}
