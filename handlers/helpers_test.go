package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/esportsarena/arena/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonBody(s string) io.Reader {
	return strings.NewReader(s)
}

func TestMapServiceErrorToHTTP(t *testing.T) {
	cases := []struct {
		err        error
		wantStatus int
	}{
		{services.ErrTournamentNotFound, http.StatusNotFound},
		{services.ErrMatchNotFound, http.StatusNotFound},
		{services.ErrAuthInvalidCredentials, http.StatusUnauthorized},
		{services.ErrForbiddenOperation, http.StatusForbidden},
		{services.ErrTournamentFull, http.StatusConflict},
		{services.ErrAlreadyRegistered, http.StatusConflict},
		{services.ErrBracketAlreadyGenerated, http.StatusConflict},
		{services.ErrNextPhaseExists, http.StatusConflict},
		{services.ErrRegistrationNotOpen, http.StatusUnprocessableEntity},
		{services.ErrRoundLocked, http.StatusUnprocessableEntity},
		{services.ErrTournamentCancelled, http.StatusUnprocessableEntity},
		{services.ErrTournamentDeleteBlocked, http.StatusUnprocessableEntity},
		{services.ErrInvalidStatusTransition, http.StatusUnprocessableEntity},
		{services.ErrInvalidScore, http.StatusBadRequest},
		{services.ErrWinnerNotInMatch, http.StatusBadRequest},
		{services.ErrMatchIsBye, http.StatusBadRequest},
		{errors.New("database exploded"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/test", nil)

			mapServiceErrorToHTTP(rec, req, tc.err)

			assert.Equal(t, tc.wantStatus, rec.Code)

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Contains(t, body, "error")
		})
	}
}

func TestReadJSONRejectsUnknownFields(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/test", jsonBody(`{"name":"x","bogus":1}`))

	var dst struct {
		Name string `json:"name"`
	}
	err := readJSON(rec, req, &dst)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown key")
}

func TestReadJSONRejectsEmptyBody(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/test", jsonBody(""))

	var dst struct{}
	err := readJSON(rec, req, &dst)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must not be empty")
}

func TestReadJSONRejectsTrailingValue(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/test", jsonBody(`{}{}`))

	var dst struct{}
	err := readJSON(rec, req, &dst)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "single JSON value")
}
