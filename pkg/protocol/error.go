// Package protocol defines the error taxonomy shared by the Audi Connect client packages.
package protocol

import (
	"errors"
	"fmt"
)

// Error exposes methods useful for categorizing errors.
type Error interface {
	error

	// MayHaveSucceeded returns true if the Error was triggered by a command that might have been
	// executed. For example, if a client times out while waiting for a response, then the client
	// cannot tell if the vehicle received the command.
	MayHaveSucceeded() bool

	// Temporary returns true if the Error might be the result of a transient condition, such as the
	// backend being unavailable or the vehicle being out of coverage.
	Temporary() bool
}

var (
	// ErrThrottled indicates the account has been rate limited by the backend. Clients should wait
	// before trying again; retrying immediately extends the lockout.
	ErrThrottled = NewError("account is throttled, wait before trying again", false, false)
	// ErrUnauthorized indicates the backend rejected the credentials or the access token.
	ErrUnauthorized = NewError("authentication failed", false, false)
	// ErrVehicleNotFound indicates the account has no vehicle with the requested VIN.
	ErrVehicleNotFound = NewError("vehicle not found", false, false)
	// ErrUnsupported indicates the vehicle or its subscription does not support the requested
	// feature.
	ErrUnsupported = NewError("feature not supported by this vehicle", false, false)
	// ErrRequiresSPIN indicates a security-sensitive command was attempted without an S-PIN.
	ErrRequiresSPIN = NewError("S-PIN is required for this command", false, false)
	// ErrBusy indicates the backend is temporarily unavailable.
	ErrBusy = NewError("service busy or unavailable", false, true)

	ErrBadResponse = errors.New("invalid response")
)

type CommandError struct {
	Err               error
	PossibleSuccess   bool
	PossibleTemporary bool
}

func NewError(message string, mayHaveSucceeded bool, temporary bool) error {
	return &CommandError{Err: errors.New(message), PossibleSuccess: mayHaveSucceeded, PossibleTemporary: temporary}
}

func (e *CommandError) Error() string {
	return e.Err.Error()
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

func (e *CommandError) MayHaveSucceeded() bool {
	return e.PossibleSuccess
}

func (e *CommandError) Temporary() bool {
	return e.PossibleTemporary
}

// MayHaveSucceeded returns true if err is an Error that indicates the command may have been
// executed but the client did not receive a confirmation.
func MayHaveSucceeded(err error) bool {
	var commErr Error
	if errors.As(err, &commErr) && commErr.MayHaveSucceeded() {
		return true
	}
	return false
}

// Temporary returns true if err is an Error that indicates the command failed due to possibly
// transient conditions that do not require user action to resolve.
func Temporary(err error) bool {
	var commErr Error
	if errors.As(err, &commErr) && commErr.Temporary() {
		return true
	}
	return false
}

// ShouldRetry returns true if the client should retry to issue the command that triggered an error.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	var e Error
	if errors.As(err, &e) {
		if e.MayHaveSucceeded() {
			return false
		}
		if e.Temporary() {
			return true
		}
	}
	return false
}

// NominalError indicates the backend received and authenticated a command, but the vehicle could
// not execute it.
type NominalError struct {
	Details error
}

func (e *NominalError) Error() string {
	return e.Details.Error()
}

func (e *NominalError) Unwrap() error {
	return e.Details
}

func (e *NominalError) MayHaveSucceeded() bool {
	return false
}

func (e *NominalError) Temporary() bool {
	return false
}

func IsNominalError(err error) bool {
	if err == nil {
		return false
	}
	var nErr *NominalError
	return errors.As(err, &nErr)
}

// VehicleNotFoundError lists the VINs that are available when a lookup fails.
type VehicleNotFoundError struct {
	VIN       string
	Available []string
}

func (e *VehicleNotFoundError) Error() string {
	return fmt.Sprintf("vehicle with VIN %s not found (available: %v)", e.VIN, e.Available)
}

func (e *VehicleNotFoundError) Unwrap() error {
	return ErrVehicleNotFound
}
