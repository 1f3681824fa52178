package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/esportsarena/arena/brackets"
	"github.com/esportsarena/arena/models"
	"github.com/esportsarena/arena/repositories"
	"github.com/esportsarena/arena/storage"
)

type CreateTournamentInput struct {
	Name              string    `json:"name"`
	Game              string    `json:"game"`
	Description       *string   `json:"description"`
	MaxParticipants   int       `json:"max_participants"`
	RegistrationStart time.Time `json:"registration_start"`
	RegistrationEnd   time.Time `json:"registration_end"`
	EventStart        time.Time `json:"event_start"`
	EventEnd          time.Time `json:"event_end"`
}

type UpdateTournamentInput struct {
	Name        *string `json:"name"`
	Game        *string `json:"game"`
	Description *string `json:"description"`
}

type TournamentService interface {
	Create(ctx context.Context, ownerID int, input CreateTournamentInput) (*models.Tournament, error)
	GetByID(ctx context.Context, id int) (*models.Tournament, error)
	List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error)
	UpdateDetails(ctx context.Context, id, actorID int, actorRole models.UserRole, input UpdateTournamentInput) (*models.Tournament, error)
	UpdateStatus(ctx context.Context, id, actorID int, actorRole models.UserRole, status models.TournamentStatus) (*models.Tournament, error)
	Delete(ctx context.Context, id, actorID int, actorRole models.UserRole) error
	UploadLogo(ctx context.Context, id, actorID int, actorRole models.UserRole, contentType string, file io.Reader) (*models.Tournament, error)
	// SyncStatusesByDate advances pending and registration_open tournaments
	// whose date windows have elapsed. Run periodically by the scheduler.
	SyncStatusesByDate(ctx context.Context) error
}

type tournamentService struct {
	tx              repositories.Transactor
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	matchRepo       repositories.MatchRepository
	reportRepo      repositories.MatchReportRepository
	uploader        storage.FileUploader
	hub             Broadcaster
	logger          *slog.Logger
}

func NewTournamentService(
	tx repositories.Transactor,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	matchRepo repositories.MatchRepository,
	reportRepo repositories.MatchReportRepository,
	uploader storage.FileUploader,
	hub Broadcaster,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		tx:              tx,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		matchRepo:       matchRepo,
		reportRepo:      reportRepo,
		uploader:        uploader,
		hub:             hub,
		logger:          logger,
	}
}

func validateTournamentInput(input CreateTournamentInput) error {
	switch {
	case input.Name == "":
		return ErrTournamentNameRequired
	case input.Game == "":
		return ErrTournamentGameRequired
	case !models.AllowedCapacities[input.MaxParticipants]:
		return ErrTournamentInvalidSize
	case !input.RegistrationEnd.After(input.RegistrationStart):
		return ErrTournamentInvalidRegWin
	case !input.EventStart.After(input.RegistrationEnd):
		return ErrTournamentInvalidDates
	case !input.EventEnd.After(input.EventStart):
		return ErrTournamentInvalidDateEnd
	}
	return nil
}

func (s *tournamentService) Create(ctx context.Context, ownerID int, input CreateTournamentInput) (*models.Tournament, error) {
	if err := validateTournamentInput(input); err != nil {
		return nil, err
	}

	tournament := &models.Tournament{
		Name:              input.Name,
		Game:              input.Game,
		Description:       input.Description,
		OwnerID:           ownerID,
		MaxParticipants:   input.MaxParticipants,
		Status:            models.InitialStatusForWindow(input.RegistrationStart, input.RegistrationEnd, time.Now().UTC()),
		RegistrationStart: input.RegistrationStart,
		RegistrationEnd:   input.RegistrationEnd,
		EventStart:        input.EventStart,
		EventEnd:          input.EventEnd,
	}

	if err := s.tournamentRepo.Create(ctx, tournament); err != nil {
		return nil, err
	}
	return tournament, nil
}

func (s *tournamentService) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	s.populateLogoURL(tournament)
	return tournament, nil
}

func (s *tournamentService) List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	tournaments, err := s.tournamentRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	for i := range tournaments {
		s.populateLogoURL(&tournaments[i])
	}
	return tournaments, nil
}

func (s *tournamentService) UpdateDetails(ctx context.Context, id, actorID int, actorRole models.UserRole, input UpdateTournamentInput) (*models.Tournament, error) {
	tournament, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManageTournament(tournament, actorID, actorRole) {
		return nil, ErrForbiddenOperation
	}
	if tournament.Status.IsTerminal() {
		return nil, ErrTournamentCompleted
	}

	if input.Name != nil {
		if *input.Name == "" {
			return nil, ErrTournamentNameRequired
		}
		tournament.Name = *input.Name
	}
	if input.Game != nil {
		if *input.Game == "" {
			return nil, ErrTournamentGameRequired
		}
		tournament.Game = *input.Game
	}
	if input.Description != nil {
		tournament.Description = input.Description
	}

	if err := s.tournamentRepo.Update(ctx, tournament); err != nil {
		return nil, err
	}
	return tournament, nil
}

func (s *tournamentService) UpdateStatus(ctx context.Context, id, actorID int, actorRole models.UserRole, status models.TournamentStatus) (*models.Tournament, error) {
	tournament, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManageTournament(tournament, actorID, actorRole) {
		return nil, ErrForbiddenOperation
	}
	if !tournament.Status.CanTransitionTo(status) {
		return nil, ErrInvalidStatusTransition
	}

	if err := s.tournamentRepo.UpdateStatus(ctx, nil, id, status); err != nil {
		return nil, err
	}
	tournament.Status = status

	s.hub.BroadcastToRoom(brackets.RoomForTournament(id), brackets.Message{
		Type:    brackets.EventTournamentUpdated,
		Payload: tournament,
		RoomID:  brackets.RoomForTournament(id),
	})
	return tournament, nil
}

// Delete removes the tournament together with its matches, reports and
// participants. Blocked while the bracket is running. The stored logo is
// deleted best-effort after the transaction commits.
func (s *tournamentService) Delete(ctx context.Context, id, actorID int, actorRole models.UserRole) error {
	tournament, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !canManageTournament(tournament, actorID, actorRole) {
		return ErrForbiddenOperation
	}
	if tournament.Status == models.StatusInProgress {
		return ErrTournamentDeleteBlocked
	}

	txErr := s.tx.WithinTx(ctx, func(tx repositories.SQLExecutor) error {
		if err := s.reportRepo.DeleteByTournament(ctx, tx, id); err != nil {
			return err
		}
		if err := s.matchRepo.DeleteByTournament(ctx, tx, id); err != nil {
			return err
		}
		if err := s.participantRepo.DeleteByTournament(ctx, tx, id); err != nil {
			return err
		}
		return s.tournamentRepo.Delete(ctx, tx, id)
	})
	if txErr != nil {
		return txErr
	}

	if tournament.LogoKey != nil {
		if err := s.uploader.Delete(ctx, *tournament.LogoKey); err != nil {
			s.logger.Warn("failed to delete tournament logo",
				slog.Int("tournament_id", id), slog.Any("error", err))
		}
	}
	return nil
}

func (s *tournamentService) UploadLogo(ctx context.Context, id, actorID int, actorRole models.UserRole, contentType string, file io.Reader) (*models.Tournament, error) {
	tournament, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManageTournament(tournament, actorID, actorRole) {
		return nil, ErrForbiddenOperation
	}

	key := fmt.Sprintf("tournaments/%d/logo", id)
	result, err := s.uploader.Upload(ctx, key, contentType, file)
	if err != nil {
		return nil, fmt.Errorf("failed to upload tournament logo: %w", err)
	}

	if err := s.tournamentRepo.UpdateLogoKey(ctx, id, &result.Key); err != nil {
		return nil, err
	}
	tournament.LogoKey = &result.Key
	s.populateLogoURL(tournament)
	return tournament, nil
}

func (s *tournamentService) SyncStatusesByDate(ctx context.Context) error {
	now := time.Now().UTC()
	stale, err := s.tournamentRepo.ListForStatusSync(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to list tournaments for status sync: %w", err)
	}

	for _, t := range stale {
		var next models.TournamentStatus
		switch {
		case t.Status == models.StatusPending && !t.RegistrationStart.After(now):
			next = models.StatusRegistrationOpen
		case t.Status == models.StatusRegistrationOpen && !t.RegistrationEnd.After(now):
			next = models.StatusRegistrationClosed
		default:
			continue
		}

		if err := s.tournamentRepo.UpdateStatus(ctx, nil, t.ID, next); err != nil {
			s.logger.Error("failed to sync tournament status",
				slog.Int("tournament_id", t.ID),
				slog.String("next_status", string(next)),
				slog.Any("error", err))
			continue
		}
		s.logger.Info("tournament status advanced by date",
			slog.Int("tournament_id", t.ID),
			slog.String("from", string(t.Status)),
			slog.String("to", string(next)))
	}
	return nil
}

func (s *tournamentService) populateLogoURL(t *models.Tournament) {
	if t.LogoKey != nil && s.uploader != nil {
		url := s.uploader.GetPublicURL(*t.LogoKey)
		t.LogoURL = &url
	}
}
