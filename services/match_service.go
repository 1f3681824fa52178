package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/esportsarena/arena/brackets"
	"github.com/esportsarena/arena/models"
	"github.com/esportsarena/arena/repositories"
)

// ResultInput carries a reported (or corrected) match outcome.
type ResultInput struct {
	WinnerParticipantID int     `json:"winner_participant_id"`
	ScoreP1             int     `json:"score_p1"`
	ScoreP2             int     `json:"score_p2"`
	Notes               *string `json:"notes,omitempty"`
}

type MatchService interface {
	GetByID(ctx context.Context, id int) (*models.Match, error)
	ListByTournament(ctx context.Context, tournamentID int, round *int, status *models.MatchStatus) ([]*models.Match, error)
	// ReportResult records the first result for a match and advances the
	// winner into the next round's slot.
	ReportResult(ctx context.Context, matchID, actorID int, actorRole models.UserRole, input ResultInput) (*models.Match, error)
	// EditResult corrects an already reported result while the round is
	// still open. A changed winner is swapped in the next round's slot.
	EditResult(ctx context.Context, matchID, actorID int, actorRole models.UserRole, input ResultInput) (*models.Match, error)
	// SetLive marks a pending match as currently being played.
	SetLive(ctx context.Context, matchID, actorID int, actorRole models.UserRole) (*models.Match, error)
}

type matchService struct {
	tx              repositories.Transactor
	tournamentRepo  repositories.TournamentRepository
	matchRepo       repositories.MatchRepository
	participantRepo repositories.ParticipantRepository
	reportRepo      repositories.MatchReportRepository
	hub             Broadcaster
	notifications   NotificationService
}

func NewMatchService(
	tx repositories.Transactor,
	tournamentRepo repositories.TournamentRepository,
	matchRepo repositories.MatchRepository,
	participantRepo repositories.ParticipantRepository,
	reportRepo repositories.MatchReportRepository,
	hub Broadcaster,
	notifications NotificationService,
) MatchService {
	return &matchService{
		tx:              tx,
		tournamentRepo:  tournamentRepo,
		matchRepo:       matchRepo,
		participantRepo: participantRepo,
		reportRepo:      reportRepo,
		hub:             hub,
		notifications:   notifications,
	}
}

func (s *matchService) GetByID(ctx context.Context, id int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return match, nil
}

func (s *matchService) ListByTournament(ctx context.Context, tournamentID int, round *int, status *models.MatchStatus) ([]*models.Match, error) {
	matches, err := s.matchRepo.ListByTournament(ctx, tournamentID, round, status)
	if err != nil {
		return nil, err
	}
	if matches == nil {
		return []*models.Match{}, nil
	}
	return matches, nil
}

// validateResult is the shared validation core of report and edit: both
// slots must be occupied (byes are categorically non-reportable), the
// winner must be one of the two participants, and the winner's score must
// strictly exceed the loser's. Ties are always rejected.
func validateResult(match *models.Match, input ResultInput) error {
	if match.IsBye {
		return ErrMatchIsBye
	}
	if match.Participant1ID == nil || match.Participant2ID == nil {
		return ErrMatchMissingOpponent
	}
	if !match.HasParticipant(input.WinnerParticipantID) {
		return ErrWinnerNotInMatch
	}
	if input.ScoreP1 == input.ScoreP2 {
		return ErrInvalidScore
	}
	winnerIsP1 := *match.Participant1ID == input.WinnerParticipantID
	if winnerIsP1 && input.ScoreP1 < input.ScoreP2 {
		return ErrInvalidScore
	}
	if !winnerIsP1 && input.ScoreP2 < input.ScoreP1 {
		return ErrInvalidScore
	}
	return nil
}

func (s *matchService) loserOf(match *models.Match, winnerID int) int {
	if *match.Participant1ID == winnerID {
		return *match.Participant2ID
	}
	return *match.Participant1ID
}

// lockTournamentAndMatch acquires the row locks every result mutation runs
// under: tournament first, then match, in that order everywhere, so
// concurrent reports, edits and phase generations serialize instead of
// deadlocking.
func (s *matchService) lockTournamentAndMatch(ctx context.Context, tx repositories.SQLExecutor, matchID, actorID int, actorRole models.UserRole) (*models.Tournament, *models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, nil, ErrMatchNotFound
		}
		return nil, nil, err
	}

	tournament, err := s.tournamentRepo.GetByIDForUpdate(ctx, tx, match.TournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, nil, ErrTournamentNotFound
		}
		return nil, nil, err
	}
	if !canManageTournament(tournament, actorID, actorRole) {
		return nil, nil, ErrForbiddenOperation
	}

	// Re-read under lock: the first read raced anything holding the
	// tournament lock.
	match, err = s.matchRepo.GetByIDForUpdate(ctx, tx, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, nil, ErrMatchNotFound
		}
		return nil, nil, err
	}
	return tournament, match, nil
}

func (s *matchService) ReportResult(ctx context.Context, matchID, actorID int, actorRole models.UserRole, input ResultInput) (*models.Match, error) {
	var match *models.Match
	var tournament *models.Tournament

	txErr := s.tx.WithinTx(ctx, func(tx repositories.SQLExecutor) error {
		var err error
		tournament, match, err = s.lockTournamentAndMatch(ctx, tx, matchID, actorID, actorRole)
		if err != nil {
			return err
		}
		if tournament.Status != models.StatusInProgress {
			return ErrTournamentNotInProgress
		}
		if match.Status == models.MatchCompleted {
			return ErrMatchAlreadyCompleted
		}
		if match.Status != models.MatchPending && match.Status != models.MatchInProgress {
			return ErrMatchNotInProgress
		}
		if err := validateResult(match, input); err != nil {
			return err
		}

		now := time.Now().UTC()
		match.ScoreP1 = &input.ScoreP1
		match.ScoreP2 = &input.ScoreP2
		match.Status = models.MatchCompleted
		match.WinnerParticipantID = &input.WinnerParticipantID
		match.CompletedAt = &now
		if err := s.matchRepo.UpdateResult(ctx, tx, match); err != nil {
			return err
		}

		loserID := s.loserOf(match, input.WinnerParticipantID)
		if err := s.applyOutcome(ctx, tx, input.WinnerParticipantID, loserID); err != nil {
			return err
		}

		if match.NextMatchID != nil {
			if err := s.advanceWinner(ctx, tx, *match.NextMatchID, input.WinnerParticipantID); err != nil {
				return err
			}
		}

		// The acting owner is authoritative, so the report validates itself.
		report := &models.MatchReport{
			MatchID:             match.ID,
			ReporterID:          actorID,
			WinnerParticipantID: input.WinnerParticipantID,
			ScoreP1:             input.ScoreP1,
			ScoreP2:             input.ScoreP2,
			Notes:               input.Notes,
			Validated:           true,
			ValidatedBy:         &actorID,
		}
		return s.reportRepo.Create(ctx, tx, report)
	})
	if txErr != nil {
		return nil, txErr
	}

	s.afterResult(ctx, match)
	return match, nil
}

func (s *matchService) EditResult(ctx context.Context, matchID, actorID int, actorRole models.UserRole, input ResultInput) (*models.Match, error) {
	var match *models.Match

	txErr := s.tx.WithinTx(ctx, func(tx repositories.SQLExecutor) error {
		tournament, locked, err := s.lockTournamentAndMatch(ctx, tx, matchID, actorID, actorRole)
		if err != nil {
			return err
		}
		match = locked
		if tournament.Status.IsTerminal() {
			if tournament.Status == models.StatusCancelled {
				return ErrTournamentCancelled
			}
			return ErrTournamentCompleted
		}
		if match.IsBye {
			return ErrMatchIsBye
		}
		if match.Status != models.MatchInProgress && match.Status != models.MatchCompleted {
			return ErrMatchNotEditable
		}

		// Once every match of this round is completed and the next round
		// exists, the round is frozen and results are immutable.
		total, completed, err := s.matchRepo.CountByRound(ctx, tx, match.TournamentID, match.Round)
		if err != nil {
			return err
		}
		if total > 0 && total == completed {
			nextTotal, _, err := s.matchRepo.CountByRound(ctx, tx, match.TournamentID, match.Round+1)
			if err != nil {
				return err
			}
			if nextTotal > 0 {
				return ErrRoundLocked
			}
		}

		if err := validateResult(match, input); err != nil {
			return err
		}

		previousWinnerID := match.WinnerParticipantID
		winnerChanged := previousWinnerID != nil && *previousWinnerID != input.WinnerParticipantID

		now := time.Now().UTC()
		match.ScoreP1 = &input.ScoreP1
		match.ScoreP2 = &input.ScoreP2
		match.Status = models.MatchCompleted
		match.WinnerParticipantID = &input.WinnerParticipantID
		if match.CompletedAt == nil {
			match.CompletedAt = &now
		}
		if err := s.matchRepo.UpdateResult(ctx, tx, match); err != nil {
			return err
		}

		loserID := s.loserOf(match, input.WinnerParticipantID)
		if previousWinnerID == nil {
			// The match had no recorded result yet; apply as a first report.
			if err := s.applyOutcome(ctx, tx, input.WinnerParticipantID, loserID); err != nil {
				return err
			}
		} else if winnerChanged {
			// Reverse the previous outcome: old winner drops to eliminated,
			// new winner comes back alive, counters swap.
			if err := s.participantRepo.UpdateStatus(ctx, tx, *previousWinnerID, models.ParticipantEliminated); err != nil {
				return err
			}
			if err := s.participantRepo.UpdateStatus(ctx, tx, input.WinnerParticipantID, models.ParticipantCheckedIn); err != nil {
				return err
			}
			if err := s.participantRepo.AddResult(ctx, tx, *previousWinnerID, -1, 1); err != nil {
				return err
			}
			if err := s.participantRepo.AddResult(ctx, tx, input.WinnerParticipantID, 1, -1); err != nil {
				return err
			}
			if match.NextMatchID != nil {
				if err := s.swapAdvancedWinner(ctx, tx, *match.NextMatchID, *previousWinnerID, input.WinnerParticipantID); err != nil {
					return err
				}
			}
		}

		report := &models.MatchReport{
			MatchID:             match.ID,
			ReporterID:          actorID,
			WinnerParticipantID: input.WinnerParticipantID,
			ScoreP1:             input.ScoreP1,
			ScoreP2:             input.ScoreP2,
			Notes:               input.Notes,
			Validated:           true,
			ValidatedBy:         &actorID,
		}
		err = s.reportRepo.UpdateLatestByMatch(ctx, tx, report)
		if errors.Is(err, repositories.ErrMatchReportNotFound) {
			return s.reportRepo.Create(ctx, tx, report)
		}
		return err
	})
	if txErr != nil {
		return nil, txErr
	}

	s.afterResult(ctx, match)
	return match, nil
}

func (s *matchService) SetLive(ctx context.Context, matchID, actorID int, actorRole models.UserRole) (*models.Match, error) {
	var match *models.Match

	txErr := s.tx.WithinTx(ctx, func(tx repositories.SQLExecutor) error {
		tournament, locked, err := s.lockTournamentAndMatch(ctx, tx, matchID, actorID, actorRole)
		if err != nil {
			return err
		}
		match = locked
		if tournament.Status != models.StatusInProgress {
			return ErrTournamentNotInProgress
		}
		if !match.Reportable() {
			if match.IsBye {
				return ErrMatchIsBye
			}
			return ErrMatchMissingOpponent
		}
		if match.Status != models.MatchPending {
			return ErrMatchNotInProgress
		}

		match.Status = models.MatchInProgress
		return s.matchRepo.UpdateStatus(ctx, tx, match.ID, models.MatchInProgress)
	})
	if txErr != nil {
		return nil, txErr
	}

	s.hub.BroadcastToRoom(brackets.RoomForTournament(match.TournamentID), brackets.Message{
		Type:    brackets.EventTournamentUpdated,
		Payload: match,
		RoomID:  brackets.RoomForTournament(match.TournamentID),
	})
	return match, nil
}

// applyOutcome flips the participant statuses for a freshly decided match:
// the winner stays alive, the loser is eliminated, counters move one each.
func (s *matchService) applyOutcome(ctx context.Context, tx repositories.SQLExecutor, winnerID, loserID int) error {
	if err := s.participantRepo.UpdateStatus(ctx, tx, winnerID, models.ParticipantCheckedIn); err != nil {
		return err
	}
	if err := s.participantRepo.UpdateStatus(ctx, tx, loserID, models.ParticipantEliminated); err != nil {
		return err
	}
	if err := s.participantRepo.AddResult(ctx, tx, winnerID, 1, 0); err != nil {
		return err
	}
	return s.participantRepo.AddResult(ctx, tx, loserID, 0, 1)
}

// advanceWinner fills the first empty slot of the next-round match.
func (s *matchService) advanceWinner(ctx context.Context, tx repositories.SQLExecutor, nextMatchID, winnerID int) error {
	next, err := s.matchRepo.GetByIDForUpdate(ctx, tx, nextMatchID)
	if err != nil {
		return fmt.Errorf("failed to load next match %d: %w", nextMatchID, err)
	}
	switch {
	case next.Participant1ID == nil:
		return s.matchRepo.SetParticipantSlot(ctx, tx, next.ID, 1, &winnerID)
	case next.Participant2ID == nil:
		return s.matchRepo.SetParticipantSlot(ctx, tx, next.ID, 2, &winnerID)
	default:
		return fmt.Errorf("next match %d has no empty participant slot", next.ID)
	}
}

// swapAdvancedWinner replaces the previously advanced winner in the
// next-round match with the corrected one, if that slot still holds it.
func (s *matchService) swapAdvancedWinner(ctx context.Context, tx repositories.SQLExecutor, nextMatchID, oldWinnerID, newWinnerID int) error {
	next, err := s.matchRepo.GetByIDForUpdate(ctx, tx, nextMatchID)
	if err != nil {
		return fmt.Errorf("failed to load next match %d: %w", nextMatchID, err)
	}
	switch {
	case next.Participant1ID != nil && *next.Participant1ID == oldWinnerID:
		return s.matchRepo.SetParticipantSlot(ctx, tx, next.ID, 1, &newWinnerID)
	case next.Participant2ID != nil && *next.Participant2ID == oldWinnerID:
		return s.matchRepo.SetParticipantSlot(ctx, tx, next.ID, 2, &newWinnerID)
	default:
		return nil
	}
}

// afterResult runs the fire-and-forget side effects of a report or edit:
// the room broadcast and a notification to each participant. Neither can
// fail the already committed transaction.
func (s *matchService) afterResult(ctx context.Context, match *models.Match) {
	room := brackets.RoomForTournament(match.TournamentID)
	s.hub.BroadcastToRoom(room, brackets.Message{
		Type:    brackets.EventMatchReported,
		Payload: match,
		RoomID:  room,
	})

	for _, pid := range []*int{match.Participant1ID, match.Participant2ID} {
		if pid == nil {
			continue
		}
		participant, err := s.participantRepo.FindByID(ctx, *pid)
		if err != nil {
			continue
		}
		s.notifications.Notify(ctx, participant.UserID, models.NotificationMatchResult,
			fmt.Sprintf("A result was recorded for your round %d match.", match.Round))
	}
}
