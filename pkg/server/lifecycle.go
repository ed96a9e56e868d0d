package server

import "sync"

// State is the server lifecycle state.
type State int32

const (
	StateCreated State = iota
	StateRunning
	StateStopped
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// acceptHandle tracks the accept goroutine. err is written before done closes.
type acceptHandle struct {
	done chan struct{}
	err  error
}

// lifecycle is the shared state record. The mutex is held for a single read or
// write and never across a blocking call.
type lifecycle struct {
	mu     sync.Mutex
	cond   *sync.Cond
	state  State
	handle *acceptHandle
}

func newLifecycle(h *acceptHandle) *lifecycle {
	l := &lifecycle{state: StateCreated, handle: h}
	l.cond = sync.NewCond(&l.mu)
	return l
}

func (l *lifecycle) current() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// start moves Created to Running. It reports false if the server already left
// Created.
func (l *lifecycle) start() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != StateCreated {
		return false
	}
	l.state = StateRunning
	l.cond.Broadcast()
	return true
}

// stop moves to Stopped. It reports whether this call made the transition.
func (l *lifecycle) stop() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == StateStopped {
		return false
	}
	l.state = StateStopped
	l.cond.Broadcast()
	return true
}

// waitUntil blocks until the state is one of states and returns it.
func (l *lifecycle) waitUntil(states ...State) State {
	l.mu.Lock()
	defer l.mu.Unlock()
	for {
		for _, s := range states {
			if l.state == s {
				return s
			}
		}
		l.cond.Wait()
	}
}

// takeHandle hands out the accept handle once.
func (l *lifecycle) takeHandle() *acceptHandle {
	l.mu.Lock()
	defer l.mu.Unlock()
	h := l.handle
	l.handle = nil
	return h
}
