package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/esportsarena/arena/brackets"
	"github.com/esportsarena/arena/models"
	"github.com/esportsarena/arena/repositories"
	"github.com/esportsarena/arena/storage"
)

// fakeTransactor runs the callback directly. The in-memory repositories
// below ignore the executor argument, so no rollback emulation is needed:
// tests assert on observable state, not on partial writes.
type fakeTransactor struct{}

func (fakeTransactor) WithinTx(_ context.Context, fn func(tx repositories.SQLExecutor) error) error {
	return fn(nil)
}

type fakeBroadcaster struct {
	messages []brackets.Message
}

func (b *fakeBroadcaster) BroadcastToRoom(_ string, message interface{}) {
	if m, ok := message.(brackets.Message); ok {
		b.messages = append(b.messages, m)
	}
}

type sentNotification struct {
	UserID  int
	Kind    models.NotificationKind
	Message string
}

type fakeNotifications struct {
	sent []sentNotification
}

func (n *fakeNotifications) Notify(_ context.Context, userID int, kind models.NotificationKind, message string) {
	n.sent = append(n.sent, sentNotification{UserID: userID, Kind: kind, Message: message})
}

func (n *fakeNotifications) ListByUser(context.Context, int, bool) ([]*models.Notification, error) {
	return nil, nil
}

func (n *fakeNotifications) MarkRead(context.Context, int, int) error {
	return nil
}

type fakeUploader struct {
	deleted []string
}

func (u *fakeUploader) Upload(_ context.Context, key, _ string, _ io.Reader) (*storage.UploadResult, error) {
	return &storage.UploadResult{Key: key, Location: "https://cdn.test/" + key}, nil
}

func (u *fakeUploader) Delete(_ context.Context, key string) error {
	u.deleted = append(u.deleted, key)
	return nil
}

func (u *fakeUploader) GetPublicURL(key string) string {
	return "https://cdn.test/" + key
}

type fakeTournamentRepo struct {
	tournaments map[int]*models.Tournament
	nextID      int
}

func newFakeTournamentRepo() *fakeTournamentRepo {
	return &fakeTournamentRepo{tournaments: make(map[int]*models.Tournament), nextID: 1}
}

func (r *fakeTournamentRepo) Create(_ context.Context, t *models.Tournament) error {
	t.ID = r.nextID
	r.nextID++
	t.CreatedAt = time.Now().UTC()
	stored := *t
	r.tournaments[t.ID] = &stored
	return nil
}

func (r *fakeTournamentRepo) GetByID(_ context.Context, id int) (*models.Tournament, error) {
	t, ok := r.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	copied := *t
	return &copied, nil
}

func (r *fakeTournamentRepo) GetByIDForUpdate(ctx context.Context, _ repositories.SQLExecutor, id int) (*models.Tournament, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeTournamentRepo) List(_ context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	ids := make([]int, 0, len(r.tournaments))
	for id := range r.tournaments {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var out []models.Tournament
	for _, id := range ids {
		t := r.tournaments[id]
		if filter.OwnerID != nil && t.OwnerID != *filter.OwnerID {
			continue
		}
		if filter.Game != nil && t.Game != *filter.Game {
			continue
		}
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		out = append(out, *t)
	}
	return out, nil
}

func (r *fakeTournamentRepo) Update(_ context.Context, t *models.Tournament) error {
	if _, ok := r.tournaments[t.ID]; !ok {
		return repositories.ErrTournamentNotFound
	}
	stored := *t
	r.tournaments[t.ID] = &stored
	return nil
}

func (r *fakeTournamentRepo) UpdateStatus(_ context.Context, _ repositories.SQLExecutor, id int, status models.TournamentStatus) error {
	t, ok := r.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.Status = status
	return nil
}

func (r *fakeTournamentRepo) Delete(_ context.Context, _ repositories.SQLExecutor, id int) error {
	if _, ok := r.tournaments[id]; !ok {
		return repositories.ErrTournamentNotFound
	}
	delete(r.tournaments, id)
	return nil
}

func (r *fakeTournamentRepo) UpdateLogoKey(_ context.Context, id int, logoKey *string) error {
	t, ok := r.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.LogoKey = logoKey
	return nil
}

func (r *fakeTournamentRepo) IncrementParticipants(_ context.Context, _ repositories.SQLExecutor, id int) error {
	t, ok := r.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	if t.CurrentParticipants >= t.MaxParticipants {
		return repositories.ErrTournamentAtCapacity
	}
	t.CurrentParticipants++
	return nil
}

func (r *fakeTournamentRepo) DecrementParticipants(_ context.Context, _ repositories.SQLExecutor, id int) error {
	t, ok := r.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	if t.CurrentParticipants > 0 {
		t.CurrentParticipants--
	}
	return nil
}

func (r *fakeTournamentRepo) MarkBracketGenerated(_ context.Context, _ repositories.SQLExecutor, id int, status models.TournamentStatus) error {
	t, ok := r.tournaments[id]
	if !ok || t.BracketGenerated {
		return repositories.ErrTournamentNotFound
	}
	t.BracketGenerated = true
	t.Status = status
	return nil
}

func (r *fakeTournamentRepo) SetWinner(_ context.Context, _ repositories.SQLExecutor, id int, winnerParticipantID int) error {
	t, ok := r.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.WinnerParticipantID = &winnerParticipantID
	t.Status = models.StatusCompleted
	return nil
}

func (r *fakeTournamentRepo) ListForStatusSync(_ context.Context, now time.Time) ([]*models.Tournament, error) {
	var out []*models.Tournament
	for _, t := range r.tournaments {
		switch {
		case t.Status == models.StatusPending && !t.RegistrationStart.After(now),
			t.Status == models.StatusRegistrationOpen && !t.RegistrationEnd.After(now):
			copied := *t
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeParticipantRepo struct {
	participants map[int]*models.Participant
	nextID       int
}

func newFakeParticipantRepo() *fakeParticipantRepo {
	return &fakeParticipantRepo{participants: make(map[int]*models.Participant), nextID: 1}
}

func (r *fakeParticipantRepo) Create(_ context.Context, _ repositories.SQLExecutor, p *models.Participant) error {
	for _, existing := range r.participants {
		if existing.TournamentID == p.TournamentID && existing.UserID == p.UserID {
			return repositories.ErrParticipantConflict
		}
	}
	p.ID = r.nextID
	r.nextID++
	p.CreatedAt = time.Now().UTC()
	stored := *p
	r.participants[p.ID] = &stored
	return nil
}

func (r *fakeParticipantRepo) FindByID(_ context.Context, id int) (*models.Participant, error) {
	p, ok := r.participants[id]
	if !ok {
		return nil, repositories.ErrParticipantNotFound
	}
	copied := *p
	return &copied, nil
}

func (r *fakeParticipantRepo) FindByUserAndTournament(_ context.Context, userID, tournamentID int) (*models.Participant, error) {
	for _, p := range r.participants {
		if p.UserID == userID && p.TournamentID == tournamentID {
			copied := *p
			return &copied, nil
		}
	}
	return nil, repositories.ErrParticipantNotFound
}

func (r *fakeParticipantRepo) ListByTournament(_ context.Context, tournamentID int, statusFilter *models.ParticipantStatus, _ bool) ([]*models.Participant, error) {
	var out []*models.Participant
	for _, p := range r.participants {
		if p.TournamentID != tournamentID {
			continue
		}
		if statusFilter != nil && p.Status != *statusFilter {
			continue
		}
		copied := *p
		out = append(out, &copied)
	}
	// Registration order, same as the id ASC ordering in SQL.
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeParticipantRepo) UpdateStatus(_ context.Context, _ repositories.SQLExecutor, id int, status models.ParticipantStatus) error {
	p, ok := r.participants[id]
	if !ok {
		return repositories.ErrParticipantNotFound
	}
	p.Status = status
	return nil
}

func (r *fakeParticipantRepo) AddResult(_ context.Context, _ repositories.SQLExecutor, id int, winsDelta, lossesDelta int) error {
	p, ok := r.participants[id]
	if !ok {
		return repositories.ErrParticipantNotFound
	}
	p.Wins += winsDelta
	p.Losses += lossesDelta
	return nil
}

func (r *fakeParticipantRepo) DeleteByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int) error {
	for id, p := range r.participants {
		if p.TournamentID == tournamentID {
			delete(r.participants, id)
		}
	}
	return nil
}

type fakeMatchRepo struct {
	matches map[int]*models.Match
	nextID  int
}

func newFakeMatchRepo() *fakeMatchRepo {
	return &fakeMatchRepo{matches: make(map[int]*models.Match), nextID: 1}
}

func (r *fakeMatchRepo) Create(_ context.Context, _ repositories.SQLExecutor, match *models.Match) error {
	for _, existing := range r.matches {
		if existing.TournamentID == match.TournamentID &&
			existing.Round == match.Round &&
			existing.MatchNumber == match.MatchNumber {
			return repositories.ErrMatchNumberConflict
		}
	}
	match.ID = r.nextID
	r.nextID++
	match.CreatedAt = time.Now().UTC()
	stored := *match
	r.matches[match.ID] = &stored
	return nil
}

func (r *fakeMatchRepo) CreateBatch(ctx context.Context, exec repositories.SQLExecutor, matches []*models.Match) error {
	for _, match := range matches {
		if err := r.Create(ctx, exec, match); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeMatchRepo) GetByID(_ context.Context, id int) (*models.Match, error) {
	m, ok := r.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	copied := *m
	return &copied, nil
}

func (r *fakeMatchRepo) GetByIDForUpdate(ctx context.Context, _ repositories.SQLExecutor, id int) (*models.Match, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeMatchRepo) ListByTournament(_ context.Context, tournamentID int, roundFilter *int, statusFilter *models.MatchStatus) ([]*models.Match, error) {
	var out []*models.Match
	for _, m := range r.matches {
		if m.TournamentID != tournamentID {
			continue
		}
		if roundFilter != nil && m.Round != *roundFilter {
			continue
		}
		if statusFilter != nil && m.Status != *statusFilter {
			continue
		}
		copied := *m
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Round != out[j].Round {
			return out[i].Round < out[j].Round
		}
		return out[i].MatchNumber < out[j].MatchNumber
	})
	return out, nil
}

func (r *fakeMatchRepo) CountByRound(_ context.Context, _ repositories.SQLExecutor, tournamentID, round int) (int, int, error) {
	total, completed := 0, 0
	for _, m := range r.matches {
		if m.TournamentID != tournamentID || m.Round != round {
			continue
		}
		total++
		if m.Status == models.MatchCompleted {
			completed++
		}
	}
	return total, completed, nil
}

func (r *fakeMatchRepo) CountOpenByParticipant(_ context.Context, participantID int) (int, error) {
	count := 0
	for _, m := range r.matches {
		if m.Status != models.MatchPending && m.Status != models.MatchInProgress {
			continue
		}
		if m.HasParticipant(participantID) {
			count++
		}
	}
	return count, nil
}

func (r *fakeMatchRepo) UpdateResult(_ context.Context, _ repositories.SQLExecutor, match *models.Match) error {
	stored, ok := r.matches[match.ID]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	stored.ScoreP1 = match.ScoreP1
	stored.ScoreP2 = match.ScoreP2
	stored.Status = match.Status
	stored.WinnerParticipantID = match.WinnerParticipantID
	stored.CompletedAt = match.CompletedAt
	return nil
}

func (r *fakeMatchRepo) UpdateStatus(_ context.Context, _ repositories.SQLExecutor, id int, status models.MatchStatus) error {
	m, ok := r.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	m.Status = status
	return nil
}

func (r *fakeMatchRepo) SetNextMatch(_ context.Context, _ repositories.SQLExecutor, id int, nextMatchID int) error {
	m, ok := r.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	m.NextMatchID = &nextMatchID
	return nil
}

func (r *fakeMatchRepo) SetParticipantSlot(_ context.Context, _ repositories.SQLExecutor, id, slot int, participantID *int) error {
	m, ok := r.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	switch slot {
	case 1:
		m.Participant1ID = participantID
	case 2:
		m.Participant2ID = participantID
	default:
		return repositories.ErrMatchSlotInvalid
	}
	return nil
}

func (r *fakeMatchRepo) DeleteByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int) error {
	for id, m := range r.matches {
		if m.TournamentID == tournamentID {
			delete(r.matches, id)
		}
	}
	return nil
}

type fakeReportRepo struct {
	reports []*models.MatchReport
	nextID  int
}

func newFakeReportRepo() *fakeReportRepo {
	return &fakeReportRepo{nextID: 1}
}

func (r *fakeReportRepo) Create(_ context.Context, _ repositories.SQLExecutor, report *models.MatchReport) error {
	report.ID = r.nextID
	r.nextID++
	report.CreatedAt = time.Now().UTC()
	report.UpdatedAt = report.CreatedAt
	stored := *report
	r.reports = append(r.reports, &stored)
	return nil
}

func (r *fakeReportRepo) latest(matchID int) *models.MatchReport {
	for i := len(r.reports) - 1; i >= 0; i-- {
		if r.reports[i].MatchID == matchID {
			return r.reports[i]
		}
	}
	return nil
}

func (r *fakeReportRepo) GetLatestByMatch(_ context.Context, matchID int) (*models.MatchReport, error) {
	latest := r.latest(matchID)
	if latest == nil {
		return nil, repositories.ErrMatchReportNotFound
	}
	copied := *latest
	return &copied, nil
}

func (r *fakeReportRepo) UpdateLatestByMatch(_ context.Context, _ repositories.SQLExecutor, report *models.MatchReport) error {
	latest := r.latest(report.MatchID)
	if latest == nil {
		return repositories.ErrMatchReportNotFound
	}
	latest.ReporterID = report.ReporterID
	latest.WinnerParticipantID = report.WinnerParticipantID
	latest.ScoreP1 = report.ScoreP1
	latest.ScoreP2 = report.ScoreP2
	latest.Notes = report.Notes
	latest.Validated = report.Validated
	latest.ValidatedBy = report.ValidatedBy
	latest.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *fakeReportRepo) ListByMatch(_ context.Context, matchID int) ([]*models.MatchReport, error) {
	var out []*models.MatchReport
	for _, report := range r.reports {
		if report.MatchID == matchID {
			copied := *report
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeReportRepo) DeleteByTournament(context.Context, repositories.SQLExecutor, int) error {
	return nil
}

// fixture bundles the fakes with fully wired services, mirroring the
// composition in cmd/main.go.
type fixture struct {
	tournaments   *fakeTournamentRepo
	participants  *fakeParticipantRepo
	matches       *fakeMatchRepo
	reports       *fakeReportRepo
	hub           *fakeBroadcaster
	notifications *fakeNotifications
	uploader      *fakeUploader

	tournamentService  TournamentService
	participantService ParticipantService
	bracketService     BracketService
	matchService       MatchService
	phaseService       PhaseService
}

func newFixture() *fixture {
	f := &fixture{
		tournaments:   newFakeTournamentRepo(),
		participants:  newFakeParticipantRepo(),
		matches:       newFakeMatchRepo(),
		reports:       newFakeReportRepo(),
		hub:           &fakeBroadcaster{},
		notifications: &fakeNotifications{},
		uploader:      &fakeUploader{},
	}

	tx := fakeTransactor{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	f.tournamentService = NewTournamentService(
		tx, f.tournaments, f.participants, f.matches, f.reports, f.uploader, f.hub, logger)
	f.participantService = NewParticipantService(
		tx, f.participants, f.tournaments, f.matches, f.hub, f.notifications)
	f.bracketService = NewBracketService(
		tx, f.tournaments, f.participants, f.matches, f.hub)
	f.matchService = NewMatchService(
		tx, f.tournaments, f.matches, f.participants, f.reports, f.hub, f.notifications)
	f.phaseService = NewPhaseService(
		tx, f.tournaments, f.participants, f.matches, f.hub, f.notifications)

	return f
}

func (f *fixture) seedTournament(ownerID int, status models.TournamentStatus, maxParticipants int) *models.Tournament {
	now := time.Now().UTC()
	t := &models.Tournament{
		Name:              fmt.Sprintf("Tournament %d", f.tournaments.nextID),
		Game:              "CS2",
		OwnerID:           ownerID,
		MaxParticipants:   maxParticipants,
		Status:            status,
		RegistrationStart: now.Add(-time.Hour),
		RegistrationEnd:   now.Add(time.Hour),
		EventStart:        now.Add(2 * time.Hour),
		EventEnd:          now.Add(3 * time.Hour),
	}
	if err := f.tournaments.Create(context.Background(), t); err != nil {
		panic(err)
	}
	return t
}

func (f *fixture) seedParticipant(tournamentID, userID int, status models.ParticipantStatus) *models.Participant {
	p := &models.Participant{
		TournamentID: tournamentID,
		UserID:       userID,
		Status:       status,
	}
	if err := f.participants.Create(context.Background(), nil, p); err != nil {
		panic(err)
	}
	f.tournaments.tournaments[tournamentID].CurrentParticipants++
	return p
}
