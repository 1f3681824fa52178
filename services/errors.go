package services

import "errors"

// Sentinel errors shared across services and the HTTP error mapping. They
// fall into five buckets: not found, forbidden, invalid state, invalid
// input, and capacity.
var (
	// Not found
	ErrTournamentNotFound  = errors.New("tournament not found")
	ErrMatchNotFound       = errors.New("match not found")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrUserNotFound        = errors.New("user not found")

	// Authentication / authorization
	ErrAuthInvalidCredentials = errors.New("invalid email or password")
	ErrAuthEmailTaken         = errors.New("email address is already in use")
	ErrForbiddenOperation     = errors.New("operation not allowed for the current user")

	// Invalid state: operation attempted outside its legal lifecycle window
	ErrRegistrationNotOpen      = errors.New("tournament registration is not open")
	ErrBracketAlreadyGenerated  = errors.New("bracket has already been generated for this tournament")
	ErrMatchAlreadyCompleted    = errors.New("match result has already been reported")
	ErrMatchNotInProgress       = errors.New("match is not pending or in progress")
	ErrMatchNotEditable         = errors.New("match result can no longer be edited")
	ErrRoundLocked              = errors.New("round is frozen: the next phase has already been generated")
	ErrRoundNotComplete         = errors.New("round has uncompleted matches")
	ErrRoundEmpty               = errors.New("round has no matches")
	ErrNextPhaseExists          = errors.New("next phase has already been generated")
	ErrNotFinalRound            = errors.New("round is not the final round")
	ErrFinalNotCompleted        = errors.New("final match is not completed")
	ErrTournamentCompleted      = errors.New("tournament is already completed")
	ErrTournamentCancelled      = errors.New("tournament has been cancelled")
	ErrTournamentNotInProgress  = errors.New("tournament is not in progress")
	ErrTournamentDeleteBlocked  = errors.New("tournament cannot be deleted while in progress")
	ErrInvalidStatusTransition  = errors.New("invalid tournament status transition")
	ErrParticipantBanBlocked    = errors.New("participant has unresolved matches and cannot be banned yet")
	ErrParticipantAlreadyBanned = errors.New("participant is already banned")

	// Invalid input
	ErrTournamentNameRequired   = errors.New("tournament name is required")
	ErrTournamentGameRequired   = errors.New("tournament game is required")
	ErrTournamentInvalidRegWin  = errors.New("registration end must be after registration start")
	ErrTournamentInvalidDates   = errors.New("event start must be after registration end")
	ErrTournamentInvalidDateEnd = errors.New("event end must be after event start")
	ErrTournamentInvalidSize    = errors.New("max participants must be one of 2, 4, 8, 16, 32")
	ErrOwnerCannotRegister      = errors.New("the tournament owner cannot register as a participant")
	ErrAlreadyRegistered        = errors.New("user is already registered for this tournament")
	ErrBannedCannotRegister     = errors.New("banned players may not re-register for this tournament")
	ErrNotEnoughParticipants    = errors.New("at least 2 registered participants are required")
	ErrNotEnoughWinners         = errors.New("fewer than 2 winners remain, cannot form a next round")
	ErrWinnerNotInMatch         = errors.New("reported winner is not a participant of this match")
	ErrMatchIsBye               = errors.New("bye matches cannot be reported or edited")
	ErrMatchMissingOpponent     = errors.New("match does not have both participants assigned yet")
	ErrInvalidScore             = errors.New("winner's score must strictly exceed the loser's score")
	ErrPasswordTooShort         = errors.New("password is too short")

	// Capacity
	ErrTournamentFull = errors.New("tournament registration is full")
)
