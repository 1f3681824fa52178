package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/esportsarena/arena/middleware"
	"github.com/esportsarena/arena/models"
	"github.com/esportsarena/arena/repositories"
	"github.com/esportsarena/arena/services"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "handler-test-secret"

type stubTournamentService struct {
	syncCalls int
	syncErr   error
}

func (s *stubTournamentService) Create(context.Context, int, services.CreateTournamentInput) (*models.Tournament, error) {
	return nil, nil
}

func (s *stubTournamentService) GetByID(context.Context, int) (*models.Tournament, error) {
	return nil, nil
}

func (s *stubTournamentService) List(context.Context, repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	return nil, nil
}

func (s *stubTournamentService) UpdateDetails(context.Context, int, int, models.UserRole, services.UpdateTournamentInput) (*models.Tournament, error) {
	return nil, nil
}

func (s *stubTournamentService) UpdateStatus(context.Context, int, int, models.UserRole, models.TournamentStatus) (*models.Tournament, error) {
	return nil, nil
}

func (s *stubTournamentService) Delete(context.Context, int, int, models.UserRole) error {
	return nil
}

func (s *stubTournamentService) UploadLogo(context.Context, int, int, models.UserRole, string, io.Reader) (*models.Tournament, error) {
	return nil, nil
}

func (s *stubTournamentService) SyncStatusesByDate(context.Context) error {
	s.syncCalls++
	return s.syncErr
}

func signTestToken(t *testing.T, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": 1,
		"role":    role,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return signed
}

// adminRouter mounts the sync endpoint the way routes.SetupRoutes does:
// behind Authenticate and an admin-only Authorize.
func adminRouter(handler *TournamentHandler) *chi.Mux {
	router := chi.NewRouter()
	router.Route("/admin", func(r chi.Router) {
		r.Use(middleware.Authenticate(testJWTSecret))
		r.Use(middleware.Authorize(string(models.RoleAdmin)))

		r.Post("/tournaments/sync", handler.SyncStatuses)
	})
	return router
}

func TestSyncStatusesAdminOnly(t *testing.T) {
	stub := &stubTournamentService{}
	router := adminRouter(NewTournamentHandler(stub))

	req := httptest.NewRequest(http.MethodPost, "/admin/tournaments/sync", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, "admin"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, stub.syncCalls)
}

func TestSyncStatusesRejectsNonAdmin(t *testing.T) {
	stub := &stubTournamentService{}
	router := adminRouter(NewTournamentHandler(stub))

	req := httptest.NewRequest(http.MethodPost, "/admin/tournaments/sync", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, "user"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, 0, stub.syncCalls)
}
