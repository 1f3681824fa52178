package services

import "github.com/esportsarena/arena/models"

// canManageTournament is the single authorization predicate for every
// owner-gated bracket and result operation: the tournament owner and
// admins pass, everyone else is rejected.
func canManageTournament(t *models.Tournament, userID int, role models.UserRole) bool {
	return t.OwnerID == userID || role == models.RoleAdmin
}
