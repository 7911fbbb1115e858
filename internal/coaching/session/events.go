// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package session implements the session manager of spec.md §4.1: the
// session registry, its dual-map index, admission control, the
// REGISTERED/ACTIVE/PAUSED/ENDED lifecycle machine, and the
// background cleanup task.
//
// Grounded on internal/pipeline/worker's lock-ordered registry pattern
// (teacher) and internal/coaching/fsm, generalized from session/job
// bookkeeping in the streaming domain to exercise-session bookkeeping.
package session

import (
	"context"

	"github.com/bodytrack/coachd/internal/coaching/fsm"
	"github.com/bodytrack/coachd/internal/coaching/model"
)

// Event names the lifecycle transitions a session can undergo.
type Event string

const (
	EventStart  Event = "START"
	EventPause  Event = "PAUSE"
	EventResume Event = "RESUME"
	EventEnd    Event = "END"
)

// newMachine builds the fixed REGISTERED/ACTIVE/PAUSED/ENDED machine.
// Guards and actions are intentionally nil: admission control and
// history side-effects are orchestrated by Manager, which already
// holds the session lock for the whole operation — embedding them
// here would just duplicate that serialization.
func newMachine(initial model.SessionStatus) (*fsm.Machine[model.SessionStatus, Event], error) {
	return fsm.New(initial, []fsm.Transition[model.SessionStatus, Event]{
		{From: model.SessionRegistered, Event: EventStart, To: model.SessionActive},
		{From: model.SessionActive, Event: EventPause, To: model.SessionPaused},
		{From: model.SessionPaused, Event: EventResume, To: model.SessionActive},
		{From: model.SessionActive, Event: EventEnd, To: model.SessionEnded},
		{From: model.SessionPaused, Event: EventEnd, To: model.SessionEnded},
	})
}

var backgroundCtx = context.Background()
