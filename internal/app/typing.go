package app

import "time"

// typingNotifier debounces keystrokes into typing start/stop signals: the
// first keystroke starts, a quiet period of delay stops.
type typingNotifier struct {
	delay     time.Duration
	active    bool
	lastInput time.Time
}

func newTypingNotifier(delay time.Duration) *typingNotifier {
	return &typingNotifier{delay: delay}
}

// Touch records a keystroke and reports whether a start signal is due.
func (n *typingNotifier) Touch(now time.Time) bool {
	n.lastInput = now
	if n.active {
		return false
	}
	n.active = true
	return true
}

// Expired reports whether the quiet period has elapsed, in which case a
// stop signal is due. Keystrokes after the check was scheduled push the
// deadline out.
func (n *typingNotifier) Expired(now time.Time) bool {
	if !n.active || now.Sub(n.lastInput) < n.delay {
		return false
	}
	n.active = false
	return true
}

// Stop force-clears the typing state (message sent) and reports whether a
// stop signal is due.
func (n *typingNotifier) Stop() bool {
	if !n.active {
		return false
	}
	n.active = false
	return true
}
