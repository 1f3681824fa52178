package services

import (
	"context"
	"testing"

	"github.com/esportsarena/arena/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAddsParticipant(t *testing.T) {
	f := newFixture()
	tournament := f.seedTournament(1, models.StatusRegistrationOpen, 4)

	participant, err := f.participantService.Register(context.Background(), tournament.ID, 42)
	require.NoError(t, err)

	assert.Equal(t, models.ParticipantRegistered, participant.Status)
	assert.Equal(t, 42, participant.UserID)
	assert.Equal(t, 1, f.tournaments.tournaments[tournament.ID].CurrentParticipants)
	require.Len(t, f.hub.messages, 1)
}

func TestRegisterRejectedWhenRegistrationNotOpen(t *testing.T) {
	for _, status := range []models.TournamentStatus{
		models.StatusPending,
		models.StatusRegistrationClosed,
		models.StatusInProgress,
		models.StatusCompleted,
		models.StatusCancelled,
	} {
		t.Run(string(status), func(t *testing.T) {
			f := newFixture()
			tournament := f.seedTournament(1, status, 4)

			_, err := f.participantService.Register(context.Background(), tournament.ID, 42)
			assert.ErrorIs(t, err, ErrRegistrationNotOpen)
		})
	}
}

func TestRegisterRejectsOwner(t *testing.T) {
	f := newFixture()
	tournament := f.seedTournament(1, models.StatusRegistrationOpen, 4)

	_, err := f.participantService.Register(context.Background(), tournament.ID, 1)
	assert.ErrorIs(t, err, ErrOwnerCannotRegister)
}

func TestRegisterRejectsDuplicate(t *testing.T) {
	f := newFixture()
	tournament := f.seedTournament(1, models.StatusRegistrationOpen, 4)

	_, err := f.participantService.Register(context.Background(), tournament.ID, 42)
	require.NoError(t, err)

	_, err = f.participantService.Register(context.Background(), tournament.ID, 42)
	assert.ErrorIs(t, err, ErrAlreadyRegistered)
}

func TestRegisterRejectsBannedUser(t *testing.T) {
	f := newFixture()
	tournament := f.seedTournament(1, models.StatusRegistrationOpen, 4)
	f.seedParticipant(tournament.ID, 42, models.ParticipantBanned)

	_, err := f.participantService.Register(context.Background(), tournament.ID, 42)
	assert.ErrorIs(t, err, ErrBannedCannotRegister)
}

func TestRegisterRejectedAtCapacity(t *testing.T) {
	f := newFixture()
	tournament := f.seedTournament(1, models.StatusRegistrationOpen, 2)
	f.seedParticipant(tournament.ID, 10, models.ParticipantRegistered)
	f.seedParticipant(tournament.ID, 11, models.ParticipantRegistered)

	_, err := f.participantService.Register(context.Background(), tournament.ID, 42)
	assert.ErrorIs(t, err, ErrTournamentFull)
}

func TestRegisterUnknownTournament(t *testing.T) {
	f := newFixture()

	_, err := f.participantService.Register(context.Background(), 99, 42)
	assert.ErrorIs(t, err, ErrTournamentNotFound)
}

func TestBanFreesCapacityAndNotifies(t *testing.T) {
	f := newFixture()
	tournament := f.seedTournament(1, models.StatusRegistrationOpen, 4)
	participant := f.seedParticipant(tournament.ID, 42, models.ParticipantRegistered)

	banned, err := f.participantService.Ban(context.Background(), tournament.ID, participant.ID, 1, models.RoleUser)
	require.NoError(t, err)

	assert.Equal(t, models.ParticipantBanned, banned.Status)
	assert.Equal(t, 0, f.tournaments.tournaments[tournament.ID].CurrentParticipants)
	require.Len(t, f.notifications.sent, 1)
	assert.Equal(t, 42, f.notifications.sent[0].UserID)
	assert.Equal(t, models.NotificationBanned, f.notifications.sent[0].Kind)
}

func TestBanRequiresOwnerOrAdmin(t *testing.T) {
	f := newFixture()
	tournament := f.seedTournament(1, models.StatusRegistrationOpen, 4)
	participant := f.seedParticipant(tournament.ID, 42, models.ParticipantRegistered)

	_, err := f.participantService.Ban(context.Background(), tournament.ID, participant.ID, 7, models.RoleUser)
	assert.ErrorIs(t, err, ErrForbiddenOperation)

	// An admin who is not the owner may ban.
	_, err = f.participantService.Ban(context.Background(), tournament.ID, participant.ID, 7, models.RoleAdmin)
	assert.NoError(t, err)
}

func TestBanBlockedByOpenMatches(t *testing.T) {
	f := newFixture()
	tournament := f.seedTournament(1, models.StatusInProgress, 4)
	p1 := f.seedParticipant(tournament.ID, 42, models.ParticipantRegistered)
	p2 := f.seedParticipant(tournament.ID, 43, models.ParticipantRegistered)

	match := &models.Match{
		TournamentID:   tournament.ID,
		Round:          1,
		MatchNumber:    1,
		Participant1ID: &p1.ID,
		Participant2ID: &p2.ID,
		Status:         models.MatchPending,
		RefereeID:      1,
	}
	require.NoError(t, f.matches.Create(context.Background(), nil, match))

	_, err := f.participantService.Ban(context.Background(), tournament.ID, p1.ID, 1, models.RoleUser)
	assert.ErrorIs(t, err, ErrParticipantBanBlocked)
}

func TestBanAlreadyBanned(t *testing.T) {
	f := newFixture()
	tournament := f.seedTournament(1, models.StatusRegistrationOpen, 4)
	participant := f.seedParticipant(tournament.ID, 42, models.ParticipantBanned)

	_, err := f.participantService.Ban(context.Background(), tournament.ID, participant.ID, 1, models.RoleUser)
	assert.ErrorIs(t, err, ErrParticipantAlreadyBanned)
}

func TestBanParticipantFromOtherTournament(t *testing.T) {
	f := newFixture()
	tournament := f.seedTournament(1, models.StatusRegistrationOpen, 4)
	other := f.seedTournament(1, models.StatusRegistrationOpen, 4)
	participant := f.seedParticipant(other.ID, 42, models.ParticipantRegistered)

	_, err := f.participantService.Ban(context.Background(), tournament.ID, participant.ID, 1, models.RoleUser)
	assert.ErrorIs(t, err, ErrParticipantNotFound)
}

func TestListByTournamentOrderedByRegistration(t *testing.T) {
	f := newFixture()
	tournament := f.seedTournament(1, models.StatusRegistrationOpen, 8)
	for userID := 10; userID < 15; userID++ {
		f.seedParticipant(tournament.ID, userID, models.ParticipantRegistered)
	}

	participants, err := f.participantService.ListByTournament(context.Background(), tournament.ID)
	require.NoError(t, err)
	require.Len(t, participants, 5)
	for i := 1; i < len(participants); i++ {
		assert.Less(t, participants[i-1].ID, participants[i].ID)
	}
}
