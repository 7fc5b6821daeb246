package services

import (
	"errors"
	"fmt"
)

// Sentinel errors grouped by how handlers report them. Specific failures wrap
// one of these with a user-facing message via detail().
var (
	ErrNotFound = errors.New("requested resource not found")

	ErrValidationFailed   = errors.New("validation failed")
	ErrForbiddenOperation = errors.New("operation not allowed for the current user")
	ErrConflict           = errors.New("resource already exists")

	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrAccountDisabled      = errors.New("Account is deactivated")
	ErrRegistrationBlocked  = errors.New("registration blocked")

	ErrPaymentRequired    = errors.New("Paid tournaments coming soon. M-Pesa integration pending.")
	ErrTooManyRequests    = errors.New("too many requests")
	ErrServiceUnavailable = errors.New("service not configured")

	ErrPlayerNotFound       = errors.New("Player not found")
	ErrClubNotFound         = errors.New("Club not found")
	ErrTournamentNotFound   = errors.New("Tournament not found")
	ErrPairingNotFound      = errors.New("Pairing not found")
	ErrNotificationNotFound = errors.New("Notification not found")
	ErrNotRegistered        = errors.New("You are not registered for this tournament")

	ErrNotPairingParticipant    = errors.New("You are not a player in this pairing")
	ErrNotTournamentParticipant = errors.New("You are not in this tournament")
	ErrResultAlreadyRecorded    = errors.New("Result already recorded")
	ErrInvalidToken             = errors.New("Could not validate credentials")
)

// detailError carries a message for the client while matching its sentinel
// with errors.Is.
type detailError struct {
	kind error
	msg  string
}

func (e *detailError) Error() string { return e.msg }

func (e *detailError) Unwrap() error { return e.kind }

func detail(kind error, format string, args ...interface{}) error {
	return &detailError{kind: kind, msg: fmt.Sprintf(format, args...)}
}

func invalid(format string, args ...interface{}) error {
	return detail(ErrValidationFailed, format, args...)
}

func forbidden(format string, args ...interface{}) error {
	return detail(ErrForbiddenOperation, format, args...)
}
