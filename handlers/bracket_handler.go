package handlers

import (
	"net/http"

	"github.com/esportsarena/arena/middleware"
	"github.com/esportsarena/arena/models"
	"github.com/esportsarena/arena/services"
)

type BracketHandler struct {
	bracketService services.BracketService
	phaseService   services.PhaseService
}

func NewBracketHandler(bracketService services.BracketService, phaseService services.PhaseService) *BracketHandler {
	return &BracketHandler{
		bracketService: bracketService,
		phaseService:   phaseService,
	}
}

func (h *BracketHandler) identify(w http.ResponseWriter, r *http.Request) (int, models.UserRole, bool) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return 0, "", false
	}
	currentUserRole, err := middleware.GetUserRoleFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user role")
		return 0, "", false
	}
	return currentUserID, currentUserRole, true
}

func (h *BracketHandler) Generate(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	currentUserID, currentUserRole, ok := h.identify(w, r)
	if !ok {
		return
	}

	matches, err := h.bracketService.GenerateBracket(r.Context(), tournamentID, currentUserID, currentUserRole)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *BracketHandler) Get(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.bracketService.GetBracket(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *BracketHandler) GenerateNextPhase(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	round, err := getIDFromURL(r, "round")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	currentUserID, currentUserRole, ok := h.identify(w, r)
	if !ok {
		return
	}

	matches, err := h.phaseService.GenerateNextPhase(r.Context(), tournamentID, round, currentUserID, currentUserRole)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *BracketHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	round, err := getIDFromURL(r, "round")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	currentUserID, currentUserRole, ok := h.identify(w, r)
	if !ok {
		return
	}

	tournament, err := h.phaseService.FinalizeTournament(r.Context(), tournamentID, round, currentUserID, currentUserRole)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
