// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package session

import (
	"sync"
	"time"

	"github.com/bodytrack/coachd/internal/coaching/fsm"
	"github.com/bodytrack/coachd/internal/coaching/history"
	"github.com/bodytrack/coachd/internal/coaching/model"
)

// ClientInfo identifies the caller a session was registered for.
type ClientInfo struct {
	IP        string
	UserAgent string
}

// Times tracks the optional lifecycle timestamps of spec.md §3.
type Times struct {
	Registered   time.Time
	Started      time.Time
	Paused       time.Time
	Ended        time.Time
	LastActivity time.Time

	HasRegistered   bool
	HasStarted      bool
	HasPaused       bool
	HasEnded        bool
	HasLastActivity bool
}

// Data is one session's full state, per spec.md §3. It is never
// accessed without its lock held.
type Data struct {
	ID       model.SessionId
	Client   ClientInfo
	Exercise model.ExerciseType

	Time               Times
	ExtendedEvaluation bool

	AnalyzingState model.AnalyzingState

	History    *history.Data
	HistoryMgr *history.Manager

	machine *fsm.Machine[model.SessionStatus, Event]

	mu sync.Mutex
}

func newData(id model.SessionId, client ClientInfo, exercise model.ExerciseType, now time.Time) (*Data, error) {
	machine, err := newMachine(model.SessionRegistered)
	if err != nil {
		return nil, err
	}
	histData := history.New()
	d := &Data{
		ID:             id,
		Client:         client,
		Exercise:       exercise,
		AnalyzingState: model.AnalyzingInit,
		History:        histData,
		machine:        machine,
	}
	d.Time.Registered = now
	d.Time.HasRegistered = true
	d.Time.LastActivity = now
	d.Time.HasLastActivity = true
	return d, nil
}

// Status returns the current lifecycle status.
func (d *Data) Status() model.SessionStatus { return d.machine.State() }

// Lock/Unlock expose the per-session lock to Manager; it is the only
// caller, and holds it for the duration of every public operation
// (start, pause, resume, end, analyze_frame, summary); register takes
// it only to read the status of a session already mapped to the IP.
func (d *Data) Lock()   { d.mu.Lock() }
func (d *Data) Unlock() { d.mu.Unlock() }

func (d *Data) touchActivity(now time.Time) {
	d.Time.LastActivity = now
	d.Time.HasLastActivity = true
}
