// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package session

import (
	"context"
	"testing"
	"time"

	"github.com/bodytrack/coachd/internal/coaching/history"
	"github.com/bodytrack/coachd/internal/coaching/model"
	"github.com/bodytrack/coachd/internal/coaching/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// TestMain verifies the cleanup-task goroutine launched by
// StartCleanupTask/Stop never outlives its test, matching the
// teacher's goleak-guarded TestMain pattern for background tasks.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	orchestrator := pipeline.New(pipeline.Config{}, nil, map[model.ExerciseType]pipeline.ExerciseRuntime{})
	return NewManager(Config{
		SupportedExercises: map[model.ExerciseType]bool{model.ExerciseSquat: true},
		MaxClients:         2,
		CleanupInterval:    10 * time.Millisecond,
		HistoryLimits:      history.Limits{FramesWindow: 4, BadFrameLog: 4},
	}, orchestrator)
}

func TestManager_RegisterUnregister(t *testing.T) {
	m := newTestManager(t)

	id, code, cerr := m.Register("squat", ClientInfo{IP: "10.0.0.1"})
	require.Nil(t, cerr)
	assert.Equal(t, model.ClientRegisteredSuccessfully, code)
	assert.False(t, id.IsZero())

	_, _, cerr = m.Register("pushup", ClientInfo{IP: "10.0.0.2"})
	require.NotNil(t, cerr)
	assert.Equal(t, model.ErrUnsupportedExercise, cerr)

	code, cerr = m.Unregister(id)
	require.Nil(t, cerr)
	assert.Equal(t, model.ClientSessionIsUnregistered, code)

	_, cerr = m.Unregister(id)
	require.NotNil(t, cerr)
}

func TestManager_RegisterSameIPTwiceReturnsExistingSession(t *testing.T) {
	m := newTestManager(t)

	id1, _, cerr := m.Register("squat", ClientInfo{IP: "10.0.0.1"})
	require.Nil(t, cerr)

	id2, _, cerr := m.Register("squat", ClientInfo{IP: "10.0.0.1"})
	require.NotNil(t, cerr)
	assert.Equal(t, id1, id2)
}

func TestManager_StartRespectsMaxClients(t *testing.T) {
	m := newTestManager(t)

	id1, _, _ := m.Register("squat", ClientInfo{IP: "10.0.0.1"})
	id2, _, _ := m.Register("squat", ClientInfo{IP: "10.0.0.2"})
	id3, _, _ := m.Register("squat", ClientInfo{IP: "10.0.0.3"})

	_, cerr := m.Start(id1, false)
	require.Nil(t, cerr)
	_, cerr = m.Start(id2, false)
	require.Nil(t, cerr)

	_, cerr = m.Start(id3, false)
	require.NotNil(t, cerr)
	assert.Equal(t, model.ErrMaxClientReached, cerr)
}

func TestManager_StartCleanupTaskStopsCleanly(t *testing.T) {
	m := newTestManager(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m.StartCleanupTask(ctx)
	time.Sleep(25 * time.Millisecond)
	m.Stop()
}
