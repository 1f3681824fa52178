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

// PhaseService drives the bracket forward round by round: it generates the
// next round from the current round's winners and finalizes the tournament
// after the final resolves.
type PhaseService interface {
	GenerateNextPhase(ctx context.Context, tournamentID, round, actorID int, actorRole models.UserRole) ([]*models.Match, error)
	FinalizeTournament(ctx context.Context, tournamentID, round, actorID int, actorRole models.UserRole) (*models.Tournament, error)
}

type phaseService struct {
	tx              repositories.Transactor
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	matchRepo       repositories.MatchRepository
	hub             Broadcaster
	notifications   NotificationService
}

func NewPhaseService(
	tx repositories.Transactor,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	matchRepo repositories.MatchRepository,
	hub Broadcaster,
	notifications NotificationService,
) PhaseService {
	return &phaseService{
		tx:              tx,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		matchRepo:       matchRepo,
		hub:             hub,
		notifications:   notifications,
	}
}

// GenerateNextPhase pairs the winners of a fully completed round into the
// matches of round+1 and wires the previous round's next-match pointers to
// them. The unique (tournament, round, match_number) index backs the
// "round+1 must not exist yet" precondition against concurrent invocation.
func (s *phaseService) GenerateNextPhase(ctx context.Context, tournamentID, round, actorID int, actorRole models.UserRole) ([]*models.Match, error) {
	var nextMatches []*models.Match

	txErr := s.tx.WithinTx(ctx, func(tx repositories.SQLExecutor) error {
		tournament, err := s.tournamentRepo.GetByIDForUpdate(ctx, tx, tournamentID)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
			return err
		}
		if !canManageTournament(tournament, actorID, actorRole) {
			return ErrForbiddenOperation
		}
		if tournament.Status != models.StatusInProgress {
			return ErrTournamentNotInProgress
		}

		prevMatches, err := s.matchRepo.ListByTournament(ctx, tournamentID, &round, nil)
		if err != nil {
			return fmt.Errorf("failed to list round %d matches: %w", round, err)
		}
		if len(prevMatches) == 0 {
			return ErrRoundEmpty
		}

		winners := make([]int, 0, len(prevMatches))
		for _, m := range prevMatches {
			if m.Status != models.MatchCompleted {
				return ErrRoundNotComplete
			}
			if m.WinnerParticipantID == nil {
				return fmt.Errorf("completed match %d has no winner", m.ID)
			}
			winners = append(winners, *m.WinnerParticipantID)
		}
		if len(winners) < 2 {
			return ErrNotEnoughWinners
		}

		nextRound := round + 1
		existing, _, err := s.matchRepo.CountByRound(ctx, tx, tournamentID, nextRound)
		if err != nil {
			return err
		}
		if existing > 0 {
			return ErrNextPhaseExists
		}

		pairings := brackets.PairSequential(winners)
		nextMatches = matchesFromPairings(tournamentID, nextRound, tournament.OwnerID, pairings, time.Now().UTC())
		if err := s.matchRepo.CreateBatch(ctx, tx, nextMatches); err != nil {
			if errors.Is(err, repositories.ErrMatchNumberConflict) {
				// Lost a race against a concurrent generation of the same round.
				return ErrNextPhaseExists
			}
			return err
		}

		// The winners slice is index-aligned with prevMatches, so the two
		// matches feeding nextMatches[i] are prevMatches[2i] and
		// prevMatches[2i+1].
		for i, next := range nextMatches {
			for _, sourceIdx := range []int{2 * i, 2*i + 1} {
				if sourceIdx >= len(prevMatches) {
					break
				}
				if err := s.matchRepo.SetNextMatch(ctx, tx, prevMatches[sourceIdx].ID, next.ID); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	s.hub.BroadcastToRoom(brackets.RoomForTournament(tournamentID), brackets.Message{
		Type:    brackets.EventTournamentUpdated,
		Payload: nextMatches,
		RoomID:  brackets.RoomForTournament(tournamentID),
	})
	return nextMatches, nil
}

// FinalizeTournament completes the tournament once the true final round (a
// round holding exactly one match) has a completed match with a winner.
func (s *phaseService) FinalizeTournament(ctx context.Context, tournamentID, round, actorID int, actorRole models.UserRole) (*models.Tournament, error) {
	var tournament *models.Tournament
	var winner *models.Participant

	txErr := s.tx.WithinTx(ctx, func(tx repositories.SQLExecutor) error {
		var err error
		tournament, err = s.tournamentRepo.GetByIDForUpdate(ctx, tx, tournamentID)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
			return err
		}
		if !canManageTournament(tournament, actorID, actorRole) {
			return ErrForbiddenOperation
		}
		if tournament.Status == models.StatusCompleted {
			return ErrTournamentCompleted
		}
		if tournament.Status != models.StatusInProgress {
			return ErrTournamentNotInProgress
		}

		finalMatches, err := s.matchRepo.ListByTournament(ctx, tournamentID, &round, nil)
		if err != nil {
			return fmt.Errorf("failed to list round %d matches: %w", round, err)
		}
		if len(finalMatches) == 0 {
			return ErrRoundEmpty
		}
		if len(finalMatches) != 1 {
			return ErrNotFinalRound
		}

		final := finalMatches[0]
		if final.Status != models.MatchCompleted || final.WinnerParticipantID == nil {
			return ErrFinalNotCompleted
		}

		winner, err = s.participantRepo.FindByID(ctx, *final.WinnerParticipantID)
		if err != nil {
			return err
		}

		if err := s.participantRepo.UpdateStatus(ctx, tx, winner.ID, models.ParticipantWinner); err != nil {
			return err
		}
		if err := s.tournamentRepo.SetWinner(ctx, tx, tournamentID, winner.ID); err != nil {
			return err
		}

		tournament.Status = models.StatusCompleted
		tournament.WinnerParticipantID = &winner.ID
		winner.Status = models.ParticipantWinner
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	s.hub.BroadcastToRoom(brackets.RoomForTournament(tournamentID), brackets.Message{
		Type:    brackets.EventTournamentUpdated,
		Payload: tournament,
		RoomID:  brackets.RoomForTournament(tournamentID),
	})
	s.notifications.Notify(ctx, winner.UserID, models.NotificationTournamentWinner,
		fmt.Sprintf("Congratulations, you won tournament %q!", tournament.Name))

	return tournament, nil
}
