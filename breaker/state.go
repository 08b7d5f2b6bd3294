package breaker

import (
	"sync"
	"time"
)

// stateManager state machine for one resource
type stateManager struct {
	state            State
	lastStateChange  time.Time
	failureCount     int // consecutive failures while closed
	successCount     int // successes while half-open
	halfOpenAttempts int
	now              func() time.Time
	mu               sync.Mutex
}

func newStateManager(now func() time.Time) *stateManager {
	return &stateManager{
		state:           StateClosed,
		lastStateChange: now(),
		now:             now,
	}
}

// GetState Get current state
func (sm *stateManager) GetState() State {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.state
}

// Attempt checks whether a call may proceed; an expired Open moves to HalfOpen
func (sm *stateManager) Attempt(cfg Config) (changed bool, from, to State, err error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	switch sm.state {
	case StateClosed:
		return false, sm.state, sm.state, nil

	case StateOpen:
		if sm.now().Sub(sm.lastStateChange) < cfg.Timeout {
			return false, sm.state, sm.state, ErrCircuitOpen
		}
		from = sm.state
		sm.transitionTo(StateHalfOpen)
		sm.halfOpenAttempts = 1
		return true, from, sm.state, nil

	case StateHalfOpen:
		if sm.halfOpenAttempts < cfg.HalfOpenRequests {
			sm.halfOpenAttempts++
			return false, sm.state, sm.state, nil
		}
		return false, sm.state, sm.state, ErrTooManyRequests
	}
	return false, sm.state, sm.state, ErrCircuitOpen
}

// RecordSuccess Recording successful
func (sm *stateManager) RecordSuccess(cfg Config) (changed bool, from, to State) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	switch sm.state {
	case StateClosed:
		sm.failureCount = 0
	case StateHalfOpen:
		sm.successCount++
		if sm.successCount >= cfg.HalfOpenRequests {
			from = sm.state
			sm.transitionTo(StateClosed)
			return true, from, sm.state
		}
	}
	return false, sm.state, sm.state
}

// RecordFailure record failure
func (sm *stateManager) RecordFailure(cfg Config) (changed bool, from, to State) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	switch sm.state {
	case StateClosed:
		sm.failureCount++
		if sm.failureCount >= cfg.ConsecutiveFailures {
			from = sm.state
			sm.transitionTo(StateOpen)
			return true, from, sm.state
		}
	case StateHalfOpen:
		// Half-open failure reopens immediately
		from = sm.state
		sm.transitionTo(StateOpen)
		return true, from, sm.state
	}
	return false, sm.state, sm.state
}

// RecordCancel 调用方取消：不计成败，归还半开试探名额
func (sm *stateManager) RecordCancel() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.state == StateHalfOpen && sm.halfOpenAttempts > 0 {
		sm.halfOpenAttempts--
	}
}

// Reset reset status
func (sm *stateManager) Reset() (changed bool, from, to State) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.state == StateClosed {
		sm.failureCount = 0
		return false, sm.state, sm.state
	}
	from = sm.state
	sm.transitionTo(StateClosed)
	return true, from, sm.state
}

// transitionTo Switch state (lock required)
func (sm *stateManager) transitionTo(newState State) {
	sm.state = newState
	sm.lastStateChange = sm.now()
	sm.failureCount = 0
	sm.successCount = 0
	sm.halfOpenAttempts = 0
}
