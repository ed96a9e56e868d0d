package server

import (
	"errors"
	"testing"
	"time"

	"github.com/vango-dev/poolserve/pkg/httpwire"
)

func TestDefaultServerConfig(t *testing.T) {
	cfg := DefaultServerConfig()

	if cfg.Address != "127.0.0.1:7878" {
		t.Errorf("Address = %q, want 127.0.0.1:7878", cfg.Address)
	}
	if cfg.Threads != 20 {
		t.Errorf("Threads = %d, want 20", cfg.Threads)
	}
	if cfg.MaxRequestBytes != httpwire.DefaultMaxHeadBytes {
		t.Errorf("MaxRequestBytes = %d", cfg.MaxRequestBytes)
	}
	if cfg.ReadTimeout != 0 || cfg.WriteTimeout != 0 {
		t.Errorf("timeouts = %v/%v, want none", cfg.ReadTimeout, cfg.WriteTimeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
}

func TestServerConfig_WithDoesNotMutate(t *testing.T) {
	base := DefaultServerConfig()
	derived := base.WithAddress(":9000").WithThreads(2).WithTimeouts(time.Second, 2*time.Second)

	if base.Address != DefaultAddress || base.Threads != DefaultThreads || base.ReadTimeout != 0 {
		t.Errorf("base mutated: %+v", base)
	}
	if derived.Address != ":9000" || derived.Threads != 2 {
		t.Errorf("derived = %+v", derived)
	}
	if derived.ReadTimeout != time.Second || derived.WriteTimeout != 2*time.Second {
		t.Errorf("derived timeouts = %v/%v", derived.ReadTimeout, derived.WriteTimeout)
	}
}

func TestServerConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ServerConfig)
	}{
		{"empty address", func(c *ServerConfig) { c.Address = "" }},
		{"zero threads", func(c *ServerConfig) { c.Threads = 0 }},
		{"negative threads", func(c *ServerConfig) { c.Threads = -1 }},
		{"negative head limit", func(c *ServerConfig) { c.MaxRequestBytes = -1 }},
		{"negative timeout", func(c *ServerConfig) { c.ReadTimeout = -time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultServerConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestState_String(t *testing.T) {
	tests := map[State]string{
		StateCreated: "created",
		StateRunning: "running",
		StateStopped: "stopped",
		State(42):    "unknown",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", s, got, want)
		}
	}
}

func TestLifecycle_Transitions(t *testing.T) {
	l := newLifecycle(&acceptHandle{done: make(chan struct{})})

	if l.current() != StateCreated {
		t.Fatalf("initial state = %v", l.current())
	}
	if !l.start() {
		t.Fatal("start() = false from created")
	}
	if l.start() {
		t.Error("start() = true from running")
	}
	if !l.stop() {
		t.Fatal("stop() = false from running")
	}
	if l.stop() {
		t.Error("stop() = true from stopped")
	}

	// A stopped server never returns to running.
	if l.start() {
		t.Error("start() = true from stopped")
	}
}

func TestLifecycle_WaitUntil(t *testing.T) {
	l := newLifecycle(nil)

	got := make(chan State, 1)
	go func() { got <- l.waitUntil(StateRunning, StateStopped) }()

	select {
	case s := <-got:
		t.Fatalf("waitUntil returned %v before any transition", s)
	case <-time.After(20 * time.Millisecond):
	}

	l.stop()
	select {
	case s := <-got:
		if s != StateStopped {
			t.Errorf("waitUntil() = %v, want stopped", s)
		}
	case <-time.After(time.Second):
		t.Fatal("waitUntil did not wake on stop")
	}
}

func TestLifecycle_TakeHandleOnce(t *testing.T) {
	h := &acceptHandle{done: make(chan struct{})}
	l := newLifecycle(h)

	if l.takeHandle() != h {
		t.Error("first takeHandle() did not return the handle")
	}
	if l.takeHandle() != nil {
		t.Error("second takeHandle() != nil")
	}
}

func TestErrors(t *testing.T) {
	inner := errors.New("boom")

	bind := &BindError{Address: "127.0.0.1:1", Err: inner}
	if !errors.Is(bind, inner) {
		t.Error("BindError does not unwrap")
	}
	if bind.Error() != "server: bind 127.0.0.1:1: boom" {
		t.Errorf("BindError.Error() = %q", bind.Error())
	}

	conn := &ConnError{Remote: "10.0.0.1:5", Op: "write", Err: inner}
	if !errors.Is(conn, inner) {
		t.Error("ConnError does not unwrap")
	}
	if (&ConnError{Op: "accept", Err: inner}).Error() != "server: accept: boom" {
		t.Error("ConnError without remote formats wrong")
	}

	h := &HandlerError{Remote: "r", Panic: inner}
	if !errors.Is(h, inner) {
		t.Error("HandlerError does not unwrap an error panic")
	}
	if (&HandlerError{Panic: "str"}).Unwrap() != nil {
		t.Error("HandlerError.Unwrap() != nil for string panic")
	}
}
