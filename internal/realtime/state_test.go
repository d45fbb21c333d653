package realtime

import "testing"

func TestLifecycle_HappyPath(t *testing.T) {
	l := NewLifecycle()

	if got := l.State(); got != StateConnecting {
		t.Errorf("initial state = %v, want CONNECTING", got)
	}

	if err := l.Activate(); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
	if got := l.State(); got != StateActive {
		t.Errorf("state after Activate = %v, want ACTIVE", got)
	}

	if !l.BeginClose() {
		t.Error("BeginClose() = false, want true on first call")
	}
	if got := l.State(); got != StateClosing {
		t.Errorf("state after BeginClose = %v, want CLOSING", got)
	}

	l.Finish()
	if got := l.State(); got != StateClosed {
		t.Errorf("state after Finish = %v, want CLOSED", got)
	}
	if !l.State().IsTerminal() {
		t.Error("CLOSED should be terminal")
	}
}

func TestLifecycle_ActivateTwice(t *testing.T) {
	l := NewLifecycle()
	if err := l.Activate(); err != nil {
		t.Fatalf("first Activate() error = %v", err)
	}
	if err := l.Activate(); err != ErrNotConnecting {
		t.Errorf("second Activate() error = %v, want ErrNotConnecting", err)
	}
}

func TestLifecycle_BeginCloseOnce(t *testing.T) {
	l := NewLifecycle()
	_ = l.Activate()

	if !l.BeginClose() {
		t.Error("first BeginClose() should win")
	}
	if l.BeginClose() {
		t.Error("second BeginClose() should report false")
	}

	l.Finish()
	if l.BeginClose() {
		t.Error("BeginClose() after Finish should report false")
	}
}

func TestLifecycle_CloseBeforeActive(t *testing.T) {
	// Init failure tears down a connection that never went active.
	l := NewLifecycle()
	if !l.BeginClose() {
		t.Error("BeginClose() from CONNECTING should win")
	}
	if err := l.Activate(); err != ErrNotConnecting {
		t.Errorf("Activate() after BeginClose error = %v, want ErrNotConnecting", err)
	}
	l.Finish()
	l.Finish() // idempotent
	if got := l.State(); got != StateClosed {
		t.Errorf("state = %v, want CLOSED", got)
	}
}

func TestState_String(t *testing.T) {
	cases := map[State]string{
		StateConnecting: "CONNECTING",
		StateActive:     "ACTIVE",
		StateClosing:    "CLOSING",
		StateClosed:     "CLOSED",
		State(42):       "UNKNOWN(42)",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", int(state), got, want)
		}
	}
}
