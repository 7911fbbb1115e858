// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

import "net/http"

// CoachError is the single error type returned across stage boundaries
// and rendered by the HTTP layer. It carries a machine-readable code,
// the HTTP status it maps to, a human description, and optional
// structured context.
type CoachError struct {
	Code        string
	Status      int
	Description string
	ExtraInfo   map[string]any
}

func (e *CoachError) Error() string { return e.Description }

// Err constructs a CoachError from a plain string code.
func Err(code string, status int, description string, extra map[string]any) *CoachError {
	return &CoachError{Code: code, Status: status, Description: description, ExtraInfo: extra}
}

// Common, reusable errors independent of session state.
var (
	ErrInvalidSessionID = &CoachError{
		Code:        string(InvalidSessionID),
		Status:      http.StatusBadRequest,
		Description: "session id is not a known, well-formed identifier",
	}
	ErrUnsupportedExercise = &CoachError{
		Code:        string(UnsupportedExercise),
		Status:      http.StatusBadRequest,
		Description: "exercise type is not supported",
	}
	ErrMaxClientReached = &CoachError{
		Code:        string(MaxClientReached),
		Status:      http.StatusInternalServerError,
		Description: "maximum number of concurrent active sessions reached",
	}
	ErrInternalServer = &CoachError{
		Code:        string(InternalServerError),
		Status:      http.StatusInternalServerError,
		Description: "an internal error occurred while processing the request",
	}
)

// SessionStatusToError maps a session's current status to the error
// raised when an operation required a different status.
func SessionStatusToError(status SessionStatus) *CoachError {
	switch status {
	case SessionRegistered:
		return &CoachError{Code: string(ClientIsAlreadyRegistered), Status: http.StatusBadRequest, Description: "client is already registered"}
	case SessionActive:
		return &CoachError{Code: string(ClientIsAlreadyActive), Status: http.StatusBadRequest, Description: "client is already active"}
	case SessionPaused:
		return &CoachError{Code: string(ClientIsAlreadyPaused), Status: http.StatusBadRequest, Description: "client is already paused"}
	case SessionEnded:
		return &CoachError{Code: string(ClientIsAlreadyEnded), Status: http.StatusBadRequest, Description: "client is already ended"}
	default:
		return &CoachError{Code: string(ClientIsNotRegistered), Status: http.StatusBadRequest, Description: "client is not registered"}
	}
}
