package services

import (
	"context"
	"testing"

	"github.com/esportsarena/arena/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateNextPhasePairsWinners(t *testing.T) {
	f := newFixture()
	tournament, matches := startTournament(t, f, 4)
	w1 := *matches[0].Participant1ID
	w2 := *matches[1].Participant2ID
	report(t, f, matches[0].ID, w1)
	report(t, f, matches[1].ID, w2)

	next, err := f.phaseService.GenerateNextPhase(context.Background(), tournament.ID, 1, 1, models.RoleUser)
	require.NoError(t, err)

	require.Len(t, next, 1)
	final := next[0]
	assert.Equal(t, 2, final.Round)
	assert.Equal(t, 1, final.MatchNumber)
	assert.Equal(t, w1, *final.Participant1ID)
	assert.Equal(t, w2, *final.Participant2ID)

	// Both round-1 matches feed the final.
	for _, m := range matches {
		stored := f.matches.matches[m.ID]
		require.NotNil(t, stored.NextMatchID)
		assert.Equal(t, final.ID, *stored.NextMatchID)
	}
}

func TestGenerateNextPhaseRequiresCompletedRound(t *testing.T) {
	f := newFixture()
	tournament, matches := startTournament(t, f, 4)
	report(t, f, matches[0].ID, *matches[0].Participant1ID)

	_, err := f.phaseService.GenerateNextPhase(context.Background(), tournament.ID, 1, 1, models.RoleUser)
	assert.ErrorIs(t, err, ErrRoundNotComplete)
}

func TestGenerateNextPhaseTwice(t *testing.T) {
	f := newFixture()
	tournament, matches := startTournament(t, f, 4)
	report(t, f, matches[0].ID, *matches[0].Participant1ID)
	report(t, f, matches[1].ID, *matches[1].Participant1ID)

	_, err := f.phaseService.GenerateNextPhase(context.Background(), tournament.ID, 1, 1, models.RoleUser)
	require.NoError(t, err)

	_, err = f.phaseService.GenerateNextPhase(context.Background(), tournament.ID, 1, 1, models.RoleUser)
	assert.ErrorIs(t, err, ErrNextPhaseExists)
}

func TestGenerateNextPhaseEmptyRound(t *testing.T) {
	f := newFixture()
	tournament, _ := startTournament(t, f, 4)

	_, err := f.phaseService.GenerateNextPhase(context.Background(), tournament.ID, 5, 1, models.RoleUser)
	assert.ErrorIs(t, err, ErrRoundEmpty)
}

func TestGenerateNextPhaseFromFinalRound(t *testing.T) {
	f := newFixture()
	tournament, matches := startTournament(t, f, 2)
	report(t, f, matches[0].ID, *matches[0].Participant1ID)

	// A single winner cannot form another round.
	_, err := f.phaseService.GenerateNextPhase(context.Background(), tournament.ID, 1, 1, models.RoleUser)
	assert.ErrorIs(t, err, ErrNotEnoughWinners)
}

func TestFinalizeRejectsNonFinalRound(t *testing.T) {
	f := newFixture()
	tournament, matches := startTournament(t, f, 4)
	report(t, f, matches[0].ID, *matches[0].Participant1ID)
	report(t, f, matches[1].ID, *matches[1].Participant1ID)

	_, err := f.phaseService.FinalizeTournament(context.Background(), tournament.ID, 1, 1, models.RoleUser)
	assert.ErrorIs(t, err, ErrNotFinalRound)
}

func TestFinalizeRejectsUnfinishedFinal(t *testing.T) {
	f := newFixture()
	tournament, _ := startTournament(t, f, 2)

	_, err := f.phaseService.FinalizeTournament(context.Background(), tournament.ID, 1, 1, models.RoleUser)
	assert.ErrorIs(t, err, ErrFinalNotCompleted)
}

func TestFinalizeCompletesTournament(t *testing.T) {
	f := newFixture()
	tournament, matches := startTournament(t, f, 2)
	winnerID := *matches[0].Participant1ID
	report(t, f, matches[0].ID, winnerID)

	completed, err := f.phaseService.FinalizeTournament(context.Background(), tournament.ID, 1, 1, models.RoleUser)
	require.NoError(t, err)

	assert.Equal(t, models.StatusCompleted, completed.Status)
	require.NotNil(t, completed.WinnerParticipantID)
	assert.Equal(t, winnerID, *completed.WinnerParticipantID)

	champion := f.participants.participants[winnerID]
	assert.Equal(t, models.ParticipantWinner, champion.Status)

	stored := f.tournaments.tournaments[tournament.ID]
	assert.Equal(t, models.StatusCompleted, stored.Status)

	var kinds []models.NotificationKind
	for _, n := range f.notifications.sent {
		kinds = append(kinds, n.Kind)
	}
	assert.Contains(t, kinds, models.NotificationTournamentWinner)
}

func TestFinalizeTwice(t *testing.T) {
	f := newFixture()
	tournament, matches := startTournament(t, f, 2)
	report(t, f, matches[0].ID, *matches[0].Participant1ID)

	_, err := f.phaseService.FinalizeTournament(context.Background(), tournament.ID, 1, 1, models.RoleUser)
	require.NoError(t, err)

	_, err = f.phaseService.FinalizeTournament(context.Background(), tournament.ID, 1, 1, models.RoleUser)
	assert.ErrorIs(t, err, ErrTournamentCompleted)
}

// TestFivePlayerTournamentRunsToCompletion walks a 5-player bracket from
// registration to champion: round 1 is two matches plus a bye, round 2 is
// one match plus a bye, round 3 is the final.
func TestFivePlayerTournamentRunsToCompletion(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	tournament, round1 := startTournament(t, f, 5)

	require.Len(t, round1, 3)
	byeWinner := *round1[2].WinnerParticipantID

	w1 := *round1[0].Participant1ID
	w2 := *round1[1].Participant2ID
	report(t, f, round1[0].ID, w1)
	report(t, f, round1[1].ID, w2)

	round2, err := f.phaseService.GenerateNextPhase(ctx, tournament.ID, 1, 1, models.RoleUser)
	require.NoError(t, err)
	require.Len(t, round2, 2)
	assert.Equal(t, w1, *round2[0].Participant1ID)
	assert.Equal(t, w2, *round2[0].Participant2ID)
	assert.True(t, round2[1].IsBye)
	assert.Equal(t, byeWinner, *round2[1].WinnerParticipantID)

	report(t, f, round2[0].ID, w2)

	round3, err := f.phaseService.GenerateNextPhase(ctx, tournament.ID, 2, 1, models.RoleUser)
	require.NoError(t, err)
	require.Len(t, round3, 1)
	assert.Equal(t, w2, *round3[0].Participant1ID)
	assert.Equal(t, byeWinner, *round3[0].Participant2ID)

	report(t, f, round3[0].ID, byeWinner)

	completed, err := f.phaseService.FinalizeTournament(ctx, tournament.ID, 3, 1, models.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, completed.Status)
	assert.Equal(t, byeWinner, *completed.WinnerParticipantID)

	champion := f.participants.participants[byeWinner]
	assert.Equal(t, models.ParticipantWinner, champion.Status)
	// Byes do not count as played matches, only the final does.
	assert.Equal(t, 1, champion.Wins)
	assert.Equal(t, 0, champion.Losses)
}
