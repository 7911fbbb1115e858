// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time         { return f.now }
func (f *fakeClock) Advance(d time.Duration) { f.now = f.now.Add(d) }

func TestCircuitBreaker_StateTransitions(t *testing.T) {
	clk := &fakeClock{now: time.Now()}
	cb := NewCircuitBreaker("test_cb", 2, 2, time.Minute, 100*time.Millisecond, WithClock(clk))

	assert.Equal(t, StateClosed, cb.GetState())

	err := cb.Execute(func() error { return errors.New("fail") })
	assert.Error(t, err)
	assert.Equal(t, StateClosed, cb.GetState())

	err = cb.Execute(func() error { return errors.New("fail") })
	assert.Error(t, err)
	assert.Equal(t, StateOpen, cb.GetState())

	err = cb.Execute(func() error { return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)

	clk.Advance(150 * time.Millisecond)

	err = cb.Execute(func() error { return nil })
	assert.NoError(t, err)
	assert.Equal(t, StateHalfOpen, cb.GetState())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	clk := &fakeClock{now: time.Now()}
	cb := NewCircuitBreaker("test_cb", 1, 1, time.Minute, 100*time.Millisecond, WithClock(clk))

	_ = cb.Execute(func() error { return errors.New("fail") })
	assert.Equal(t, StateOpen, cb.GetState())

	clk.Advance(150 * time.Millisecond)

	err := cb.Execute(func() error { return errors.New("fail") })
	assert.Error(t, err)
	assert.Equal(t, StateOpen, cb.GetState())
}

func TestCircuitBreaker_PanicRecovery(t *testing.T) {
	cb := NewCircuitBreaker("panic_cb", 1, 1, time.Minute, time.Minute, WithPanicRecovery(true))

	assert.Panics(t, func() {
		_ = cb.Execute(func() error {
			panic("oops")
		})
	})

	assert.Equal(t, StateOpen, cb.GetState())
}

func TestCircuitBreaker_ClosesAfterSuccessThreshold(t *testing.T) {
	clk := &fakeClock{now: time.Now()}
	cb := NewCircuitBreaker("test_cb", 1, 1, time.Minute, time.Millisecond, WithClock(clk), WithHalfOpenSuccessThreshold(2))

	_ = cb.Execute(func() error { return errors.New("fail") })
	require := assert.New(t)
	require.Equal(StateOpen, cb.GetState())

	clk.Advance(2 * time.Millisecond)
	_ = cb.Execute(func() error { return nil })
	require.Equal(StateHalfOpen, cb.GetState())

	_ = cb.Execute(func() error { return nil })
	require.Equal(StateClosed, cb.GetState())
}
