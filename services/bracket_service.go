package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/esportsarena/arena/brackets"
	"github.com/esportsarena/arena/models"
	"github.com/esportsarena/arena/repositories"
	"golang.org/x/sync/errgroup"
)

type BracketService interface {
	// GenerateBracket builds the round-1 pairings from the registered
	// participants, locks the bracket and moves the tournament in progress.
	GenerateBracket(ctx context.Context, tournamentID, actorID int, actorRole models.UserRole) ([]*models.Match, error)
	// GetBracket assembles the full bracket view: tournament, participants
	// and every match ordered by round.
	GetBracket(ctx context.Context, tournamentID int) (*models.Tournament, error)
}

type bracketService struct {
	tx              repositories.Transactor
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	matchRepo       repositories.MatchRepository
	hub             Broadcaster
}

func NewBracketService(
	tx repositories.Transactor,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	matchRepo repositories.MatchRepository,
	hub Broadcaster,
) BracketService {
	return &bracketService{
		tx:              tx,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		matchRepo:       matchRepo,
		hub:             hub,
	}
}

// matchesFromPairings turns round pairings into match records. A bye match
// is created already completed with its sole occupant as winner, so the
// round-completion check downstream needs no special case for it.
func matchesFromPairings(tournamentID, round, refereeID int, pairings []brackets.Pairing, now time.Time) []*models.Match {
	matches := make([]*models.Match, 0, len(pairings))
	for _, pairing := range pairings {
		p1 := pairing.Participant1ID
		match := &models.Match{
			TournamentID:   tournamentID,
			Round:          round,
			MatchNumber:    pairing.MatchNumber,
			Participant1ID: &p1,
			Participant2ID: pairing.Participant2ID,
			Status:         models.MatchPending,
			RefereeID:      refereeID,
		}
		if pairing.IsBye() {
			completedAt := now
			match.IsBye = true
			match.Status = models.MatchCompleted
			match.WinnerParticipantID = &p1
			match.CompletedAt = &completedAt
		}
		matches = append(matches, match)
	}
	return matches
}

func (s *bracketService) GenerateBracket(ctx context.Context, tournamentID, actorID int, actorRole models.UserRole) ([]*models.Match, error) {
	registered := models.ParticipantRegistered
	var matches []*models.Match

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
		if tournament.BracketGenerated {
			return ErrBracketAlreadyGenerated
		}
		// Generating the bracket ends registration implicitly; it is legal
		// while the registration window is open or just closed.
		if tournament.Status != models.StatusRegistrationOpen && tournament.Status != models.StatusRegistrationClosed {
			return ErrInvalidStatusTransition
		}

		participants, err := s.participantRepo.ListByTournament(ctx, tournamentID, &registered, false)
		if err != nil {
			return fmt.Errorf("failed to list registered participants: %w", err)
		}
		if len(participants) < 2 {
			return ErrNotEnoughParticipants
		}

		ids := make([]int, len(participants))
		for i, p := range participants {
			ids[i] = p.ID
		}

		pairings := brackets.PairSequential(ids)
		matches = matchesFromPairings(tournamentID, 1, tournament.OwnerID, pairings, time.Now().UTC())

		if err := s.matchRepo.CreateBatch(ctx, tx, matches); err != nil {
			return err
		}
		return s.tournamentRepo.MarkBracketGenerated(ctx, tx, tournamentID, models.StatusInProgress)
	})
	if txErr != nil {
		return nil, txErr
	}

	s.hub.BroadcastToRoom(brackets.RoomForTournament(tournamentID), brackets.Message{
		Type:    brackets.EventTournamentUpdated,
		Payload: matches,
		RoomID:  brackets.RoomForTournament(tournamentID),
	})
	return matches, nil
}

func (s *bracketService) GetBracket(ctx context.Context, tournamentID int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		participants, err := s.participantRepo.ListByTournament(gCtx, tournamentID, nil, true)
		if err != nil {
			return fmt.Errorf("failed to list participants: %w", err)
		}
		tournament.Participants = make([]models.Participant, 0, len(participants))
		for _, p := range participants {
			tournament.Participants = append(tournament.Participants, *p)
		}
		return nil
	})

	g.Go(func() error {
		matches, err := s.matchRepo.ListByTournament(gCtx, tournamentID, nil, nil)
		if err != nil {
			return fmt.Errorf("failed to list matches: %w", err)
		}
		tournament.Matches = make([]models.Match, 0, len(matches))
		for _, m := range matches {
			tournament.Matches = append(tournament.Matches, *m)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tournament, nil
}
