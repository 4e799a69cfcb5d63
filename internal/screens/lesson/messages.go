package lesson

import "github.com/jay060412/stepcode/internal/session"

// tickMsg drives terminal refreshes while a run is in flight.
type tickMsg struct{}

// tutorMsg carries the tutor's answer back onto the update loop.
type tutorMsg struct {
	text string
}

// feedback is the overlay state after a submission.
type feedback struct {
	visible bool
	result  session.Result
}
