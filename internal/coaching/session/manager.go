// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package session

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"github.com/bodytrack/coachd/internal/coaching/history"
	"github.com/bodytrack/coachd/internal/coaching/model"
	"github.com/bodytrack/coachd/internal/coaching/pipeline"
	"github.com/bodytrack/coachd/internal/log"
	"github.com/bodytrack/coachd/internal/metrics"
)

// Config holds the thresholds loaded from session.* and tasks.*
// configuration keys.
type Config struct {
	SupportedExercises map[model.ExerciseType]bool
	MaxClients          int

	CleanupInterval            time.Duration
	MaxRegistration            time.Duration
	MaxInactive                time.Duration
	MaxPause                   time.Duration
	MaxEndedRetention          time.Duration
	RetrieveConfigurationEvery time.Duration

	HistoryLimits history.Limits
}

// Manager owns the session registry: the sessions-by-id map and the
// ip-by-session secondary index, per spec.md §4.1. Both maps are
// guarded by Manager's own mutex, acquired in the fixed order
// sessions -> ip_map (a single mutex already enforces that order; it
// exists as two maps, not two locks, because nothing in this server
// ever needs to hold one without the other).
type Manager struct {
	cfg Config

	mu       sync.Mutex
	sessions map[model.SessionId]*Data
	byIP     map[string]model.SessionId

	activeCount int

	orchestrator *pipeline.Orchestrator
	now          func() time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewManager constructs a session registry bound to a single pipeline
// orchestrator (shared read-only across sessions).
func NewManager(cfg Config, orchestrator *pipeline.Orchestrator) *Manager {
	return &Manager{
		cfg:          cfg,
		sessions:     make(map[model.SessionId]*Data),
		byIP:         make(map[string]model.SessionId),
		orchestrator: orchestrator,
		now:          time.Now,
		stopCh:       make(chan struct{}),
	}
}

// Register implements spec.md §4.1's register operation.
func (m *Manager) Register(exerciseName string, client ClientInfo) (model.SessionId, model.ManagementCode, *model.CoachError) {
	exercise, ok := model.ParseExerciseType(exerciseName)
	if !ok || !m.cfg.SupportedExercises[exercise] {
		return model.SessionId{}, "", model.ErrUnsupportedExercise
	}

	m.mu.Lock()
	if existingID, ok := m.byIP[client.IP]; ok {
		if existing, ok := m.sessions[existingID]; ok {
			existing.Lock()
			status := existing.Status()
			existing.Unlock()
			if status != model.SessionEnded {
				m.mu.Unlock()
				return existingID, "", model.SessionStatusToError(status)
			}
		}
	}

	id := model.NewSessionId()
	data, err := newData(id, client, exercise, m.now())
	if err != nil {
		m.mu.Unlock()
		return model.SessionId{}, "", model.ErrInternalServer
	}
	data.HistoryMgr = history.NewManager(data.History, m.cfg.HistoryLimits, m.now)
	m.sessions[id] = data
	m.byIP[client.IP] = id
	m.mu.Unlock()

	log.WithComponent("session").Info().Str("session_id", id.String()).Str("exercise", string(exercise)).Msg("session registered")
	metrics.SessionsTotal.WithLabelValues("registered").Inc()
	return id, model.ClientRegisteredSuccessfully, nil
}

// lookup resolves id to its Data without locking it.
func (m *Manager) lookup(id model.SessionId) (*Data, *model.CoachError) {
	if id.IsZero() {
		return nil, model.ErrInvalidSessionID
	}
	m.mu.Lock()
	d, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return nil, model.ErrInvalidSessionID
	}
	return d, nil
}

// Unregister implements spec.md §4.1's unregister operation.
func (m *Manager) Unregister(id model.SessionId) (model.ManagementCode, *model.CoachError) {
	d, cerr := m.lookup(id)
	if cerr != nil {
		return "", cerr
	}
	d.Lock()
	defer d.Unlock()

	if d.Status() != model.SessionRegistered {
		return "", model.SessionStatusToError(d.Status())
	}

	m.mu.Lock()
	delete(m.sessions, id)
	if m.byIP[d.Client.IP] == id {
		delete(m.byIP, d.Client.IP)
	}
	m.mu.Unlock()

	return model.ClientSessionIsUnregistered, nil
}

// Start implements spec.md §4.1's start operation.
func (m *Manager) Start(id model.SessionId, extendedEvaluation bool) (model.ManagementCode, *model.CoachError) {
	d, cerr := m.lookup(id)
	if cerr != nil {
		return "", cerr
	}
	d.Lock()
	defer d.Unlock()

	if d.Status() != model.SessionRegistered {
		return "", model.SessionStatusToError(d.Status())
	}

	m.mu.Lock()
	if m.activeCount >= m.cfg.MaxClients {
		m.mu.Unlock()
		return "", model.ErrMaxClientReached
	}
	m.activeCount++
	m.mu.Unlock()

	if _, err := d.machine.Fire(backgroundCtx, EventStart); err != nil {
		m.mu.Lock()
		m.activeCount--
		m.mu.Unlock()
		return "", model.ErrInternalServer
	}
	d.ExtendedEvaluation = extendedEvaluation
	d.AnalyzingState = model.AnalyzingInit
	now := m.now()
	d.Time.Started = now
	d.Time.HasStarted = true
	d.touchActivity(now)
	pipeline.Start(d.HistoryMgr)
	metrics.SessionsTotal.WithLabelValues("started").Inc()
	metrics.ActiveSessions.Inc()

	return model.ClientSessionIsActive, nil
}

// Pause implements spec.md §4.1's pause operation.
func (m *Manager) Pause(id model.SessionId) (model.ManagementCode, *model.CoachError) {
	d, cerr := m.lookup(id)
	if cerr != nil {
		return "", cerr
	}
	d.Lock()
	defer d.Unlock()

	if d.Status() != model.SessionActive {
		return "", model.SessionStatusToError(d.Status())
	}
	if _, err := d.machine.Fire(backgroundCtx, EventPause); err != nil {
		return "", model.ErrInternalServer
	}

	m.mu.Lock()
	m.activeCount--
	m.mu.Unlock()

	now := m.now()
	d.Time.Paused = now
	d.Time.HasPaused = true
	d.touchActivity(now)
	d.HistoryMgr.Pause()
	metrics.SessionsTotal.WithLabelValues("paused").Inc()
	metrics.ActiveSessions.Dec()

	return model.ClientSessionIsPaused, nil
}

// Resume implements spec.md §4.1's resume operation.
func (m *Manager) Resume(id model.SessionId) (model.ManagementCode, *model.CoachError) {
	d, cerr := m.lookup(id)
	if cerr != nil {
		return "", cerr
	}
	d.Lock()
	defer d.Unlock()

	if d.Status() != model.SessionPaused {
		return "", model.SessionStatusToError(d.Status())
	}

	m.mu.Lock()
	if m.activeCount >= m.cfg.MaxClients {
		m.mu.Unlock()
		return "", model.ErrMaxClientReached
	}
	m.activeCount++
	m.mu.Unlock()

	if _, err := d.machine.Fire(backgroundCtx, EventResume); err != nil {
		m.mu.Lock()
		m.activeCount--
		m.mu.Unlock()
		return "", model.ErrInternalServer
	}
	d.touchActivity(m.now())
	d.HistoryMgr.Resume()
	metrics.SessionsTotal.WithLabelValues("resumed").Inc()
	metrics.ActiveSessions.Inc()

	return model.ClientSessionIsActive, nil
}

// End implements spec.md §4.1's end operation.
func (m *Manager) End(id model.SessionId) (model.ManagementCode, *model.CoachError) {
	d, cerr := m.lookup(id)
	if cerr != nil {
		return "", cerr
	}
	d.Lock()
	defer d.Unlock()

	wasActive := d.Status() == model.SessionActive
	if d.Status() != model.SessionActive && d.Status() != model.SessionPaused {
		return "", model.SessionStatusToError(d.Status())
	}
	if _, err := d.machine.Fire(backgroundCtx, EventEnd); err != nil {
		return "", model.ErrInternalServer
	}

	if wasActive {
		m.mu.Lock()
		m.activeCount--
		m.mu.Unlock()
		metrics.ActiveSessions.Dec()
	}
	metrics.SessionsTotal.WithLabelValues("ended").Inc()

	m.mu.Lock()
	if m.byIP[d.Client.IP] == id {
		delete(m.byIP, d.Client.IP)
	}
	m.mu.Unlock()

	now := m.now()
	d.Time.Ended = now
	d.Time.HasEnded = true
	d.touchActivity(now)
	d.AnalyzingState = model.AnalyzingDone
	d.HistoryMgr.End()

	return model.ClientSessionIsEnded, nil
}

// GetStatus implements spec.md §4.1's get_status operation.
func (m *Manager) GetStatus(id model.SessionId) (model.ManagementCode, *model.CoachError) {
	d, cerr := m.lookup(id)
	if cerr != nil {
		return "", cerr
	}
	d.Lock()
	defer d.Unlock()

	switch d.Status() {
	case model.SessionRegistered:
		return model.ClientSessionIsRegistered, nil
	case model.SessionActive:
		return model.ClientSessionIsActive, nil
	case model.SessionPaused:
		return model.ClientSessionIsPaused, nil
	case model.SessionEnded:
		return model.ClientSessionIsEnded, nil
	default:
		return "", model.ErrInvalidSessionID
	}
}

// AnalyzeFrame implements spec.md §4.2 dispatch, called with the
// session lock held for the full pipeline invocation. A panic inside
// the pipeline is recovered and logged with its stack, and the frame is
// rejected with INTERNAL_SERVER_ERROR; the session is left as it was.
func (m *Manager) AnalyzeFrame(id model.SessionId, frameID string, image []byte) (result pipeline.Outcome, rejected *model.CoachError) {
	d, cerr := m.lookup(id)
	if cerr != nil {
		return pipeline.Outcome{}, cerr
	}
	d.Lock()
	defer d.Unlock()
	defer func() {
		if rec := recover(); rec != nil {
			logger := log.WithComponent("session")
			logger.Error().Interface("panic", rec).Str("stack", string(debug.Stack())).Str("session_id", id.String()).Msg("frame analysis panicked")
			result, rejected = pipeline.Outcome{}, model.ErrInternalServer
		}
	}()

	if d.Status() != model.SessionActive {
		return pipeline.Outcome{}, model.SessionStatusToError(d.Status())
	}

	d.touchActivity(m.now())
	outcome, err := m.orchestrator.AnalyzeFrame(d.Exercise, d.ExtendedEvaluation, d.AnalyzingState, d.HistoryMgr, frameID, image)
	if err != nil {
		return pipeline.Outcome{}, model.ErrInternalServer
	}
	d.AnalyzingState = outcome.NextState
	metrics.FramesTotal.WithLabelValues(string(d.Exercise), outcome.Code).Inc()

	if outcome.ShouldAbort {
		d.AnalyzingState = model.AnalyzingFailure
	}

	return outcome, nil
}

// Summary returns the session's history and identity for the summary
// builder; callers must only call this once the session is ENDED.
func (m *Manager) Summary(id model.SessionId) (*Data, *model.CoachError) {
	d, cerr := m.lookup(id)
	if cerr != nil {
		return nil, cerr
	}
	d.Lock()
	defer d.Unlock()
	if d.Status() != model.SessionEnded {
		return nil, model.SessionStatusToError(d.Status())
	}
	return d, nil
}

// ActiveCount reports the current number of ACTIVE sessions, used by
// telemetry snapshots.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeCount
}

// SessionCount reports the total number of tracked sessions.
func (m *Manager) SessionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Stop terminates the background cleanup task.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

// StartCleanupTask launches the §4.1 background reaper as a daemon
// goroutine; it terminates when ctx is done or Stop is called.
func (m *Manager) StartCleanupTask(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-m.stopCh:
				return
			case <-ticker.C:
				m.runCleanup()
			}
		}
	}()
}

func (m *Manager) runCleanup() {
	now := m.now()

	m.mu.Lock()
	candidates := make([]*Data, 0, len(m.sessions))
	for _, d := range m.sessions {
		candidates = append(candidates, d)
	}
	m.mu.Unlock()

	for _, d := range candidates {
		m.reapOne(d, now)
	}
}

func (m *Manager) reapOne(d *Data, now time.Time) {
	d.Lock()
	status := d.Status()
	var shouldRemove, shouldForceEnd bool

	reason := ""
	switch status {
	case model.SessionRegistered:
		if now.Sub(d.Time.Registered) >= m.cfg.MaxRegistration {
			shouldRemove, reason = true, "registration_expired"
		}
	case model.SessionActive:
		if now.Sub(d.Time.LastActivity) >= m.cfg.MaxInactive {
			shouldForceEnd, reason = true, "inactive"
		}
	case model.SessionPaused:
		if now.Sub(d.Time.Paused) >= m.cfg.MaxPause {
			shouldForceEnd, reason = true, "pause_expired"
		}
	case model.SessionEnded:
		if now.Sub(d.Time.Ended) >= m.cfg.MaxEndedRetention {
			shouldRemove, reason = true, "retention_expired"
		}
	}

	if shouldForceEnd {
		wasActive := status == model.SessionActive
		if _, err := d.machine.Fire(backgroundCtx, EventEnd); err == nil {
			d.Time.Ended = now
			d.Time.HasEnded = true
			d.AnalyzingState = model.AnalyzingDone
			d.HistoryMgr.End()
			if wasActive {
				m.mu.Lock()
				m.activeCount--
				m.mu.Unlock()
				metrics.ActiveSessions.Dec()
			}
		}
	}
	id, ip := d.ID, d.Client.IP
	d.Unlock()

	// Every eviction reason (registration/inactive/pause/retention
	// expiry) frees the client's IP slot, not just full removal from
	// m.sessions — a force-ended session is no longer reachable by its
	// session ID in any client-facing way, so holding its IP mapping
	// would only ever block that client's next registration.
	if shouldRemove || shouldForceEnd {
		m.mu.Lock()
		if shouldRemove {
			delete(m.sessions, id)
		}
		if m.byIP[ip] == id {
			delete(m.byIP, ip)
		}
		m.mu.Unlock()
	}

	if shouldRemove {
		metrics.SessionsReapedTotal.WithLabelValues(reason).Inc()
		log.WithComponent("session").Info().Str("session_id", id.String()).Str("reason", reason).Msg("session reaped")
	}
}
