package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/esportsarena/arena/brackets"
	"github.com/esportsarena/arena/models"
	"github.com/esportsarena/arena/repositories"
)

type ParticipantService interface {
	Register(ctx context.Context, tournamentID, userID int) (*models.Participant, error)
	Ban(ctx context.Context, tournamentID, participantID, actorID int, actorRole models.UserRole) (*models.Participant, error)
	GetByID(ctx context.Context, id int) (*models.Participant, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.Participant, error)
}

type participantService struct {
	tx              repositories.Transactor
	participantRepo repositories.ParticipantRepository
	tournamentRepo  repositories.TournamentRepository
	matchRepo       repositories.MatchRepository
	hub             Broadcaster
	notifications   NotificationService
}

func NewParticipantService(
	tx repositories.Transactor,
	participantRepo repositories.ParticipantRepository,
	tournamentRepo repositories.TournamentRepository,
	matchRepo repositories.MatchRepository,
	hub Broadcaster,
	notifications NotificationService,
) ParticipantService {
	return &participantService{
		tx:              tx,
		participantRepo: participantRepo,
		tournamentRepo:  tournamentRepo,
		matchRepo:       matchRepo,
		hub:             hub,
		notifications:   notifications,
	}
}

// Register adds the user to the tournament. The capacity check happens as a
// conditional increment inside the transaction, so two simultaneous
// registrations cannot push the tournament over max_participants.
func (s *participantService) Register(ctx context.Context, tournamentID, userID int) (*models.Participant, error) {
	existing, err := s.participantRepo.FindByUserAndTournament(ctx, userID, tournamentID)
	if err != nil && !errors.Is(err, repositories.ErrParticipantNotFound) {
		return nil, fmt.Errorf("failed to check existing registration: %w", err)
	}
	if existing != nil {
		if existing.Status == models.ParticipantBanned {
			return nil, ErrBannedCannotRegister
		}
		return nil, ErrAlreadyRegistered
	}

	participant := &models.Participant{
		TournamentID: tournamentID,
		UserID:       userID,
		Status:       models.ParticipantRegistered,
	}

	txErr := s.tx.WithinTx(ctx, func(tx repositories.SQLExecutor) error {
		tournament, err := s.tournamentRepo.GetByIDForUpdate(ctx, tx, tournamentID)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
			return err
		}
		if tournament.Status != models.StatusRegistrationOpen {
			return ErrRegistrationNotOpen
		}
		if tournament.OwnerID == userID {
			return ErrOwnerCannotRegister
		}

		if err := s.tournamentRepo.IncrementParticipants(ctx, tx, tournamentID); err != nil {
			if errors.Is(err, repositories.ErrTournamentAtCapacity) {
				return ErrTournamentFull
			}
			return err
		}

		if err := s.participantRepo.Create(ctx, tx, participant); err != nil {
			if errors.Is(err, repositories.ErrParticipantConflict) {
				return ErrAlreadyRegistered
			}
			return err
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	s.hub.BroadcastToRoom(brackets.RoomForTournament(tournamentID), brackets.Message{
		Type:    brackets.EventParticipantJoined,
		Payload: participant,
		RoomID:  brackets.RoomForTournament(tournamentID),
	})
	return participant, nil
}

// Ban excludes a participant from further bracket math. Only the owner (or
// an admin) may ban, only while registration is open or the tournament is
// running, and only once the participant has no unresolved matches.
// Completed match history stays untouched.
func (s *participantService) Ban(ctx context.Context, tournamentID, participantID, actorID int, actorRole models.UserRole) (*models.Participant, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	if !canManageTournament(tournament, actorID, actorRole) {
		return nil, ErrForbiddenOperation
	}
	if tournament.Status != models.StatusRegistrationOpen && tournament.Status != models.StatusInProgress {
		return nil, ErrTournamentNotInProgress
	}

	participant, err := s.participantRepo.FindByID(ctx, participantID)
	if err != nil {
		if errors.Is(err, repositories.ErrParticipantNotFound) {
			return nil, ErrParticipantNotFound
		}
		return nil, err
	}
	if participant.TournamentID != tournamentID {
		return nil, ErrParticipantNotFound
	}
	if participant.Status == models.ParticipantBanned {
		return nil, ErrParticipantAlreadyBanned
	}

	openMatches, err := s.matchRepo.CountOpenByParticipant(ctx, participantID)
	if err != nil {
		return nil, err
	}
	if openMatches > 0 {
		return nil, ErrParticipantBanBlocked
	}

	txErr := s.tx.WithinTx(ctx, func(tx repositories.SQLExecutor) error {
		if err := s.participantRepo.UpdateStatus(ctx, tx, participantID, models.ParticipantBanned); err != nil {
			return err
		}
		return s.tournamentRepo.DecrementParticipants(ctx, tx, tournamentID)
	})
	if txErr != nil {
		return nil, txErr
	}
	participant.Status = models.ParticipantBanned

	s.hub.BroadcastToRoom(brackets.RoomForTournament(tournamentID), brackets.Message{
		Type:    brackets.EventParticipantBanned,
		Payload: participant,
		RoomID:  brackets.RoomForTournament(tournamentID),
	})
	s.notifications.Notify(ctx, participant.UserID, models.NotificationBanned,
		fmt.Sprintf("You have been banned from tournament %q.", tournament.Name))

	return participant, nil
}

func (s *participantService) GetByID(ctx context.Context, id int) (*models.Participant, error) {
	participant, err := s.participantRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrParticipantNotFound) {
			return nil, ErrParticipantNotFound
		}
		return nil, err
	}
	return participant, nil
}

func (s *participantService) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Participant, error) {
	participants, err := s.participantRepo.ListByTournament(ctx, tournamentID, nil, true)
	if err != nil {
		return nil, err
	}
	if participants == nil {
		return []*models.Participant{}, nil
	}
	return participants, nil
}
