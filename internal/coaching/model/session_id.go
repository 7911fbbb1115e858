// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package model holds the shared types of the coaching domain: session
// and analyzing states, exercise/phase/position enums, and the error
// taxonomy. Nothing here mutates shared state; it is pure data.
package model

import "github.com/google/uuid"

// SessionId is an opaque, randomly generated session identifier.
type SessionId struct {
	id uuid.UUID
}

// NewSessionId generates a fresh, collision-improbable session id.
func NewSessionId() SessionId {
	return SessionId{id: uuid.New()}
}

// ParseSessionId parses a session id from its string form.
func ParseSessionId(s string) (SessionId, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return SessionId{}, err
	}
	return SessionId{id: u}, nil
}

func (s SessionId) String() string { return s.id.String() }

// IsZero reports whether the id was never assigned.
func (s SessionId) IsZero() bool { return s.id == uuid.Nil }
