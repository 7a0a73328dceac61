package models

import "time"

// SessionStatus represents the current state of a scenario browser session
type SessionStatus string

const (
	StatusRunning SessionStatus = "RUNNING"
	StatusClosed  SessionStatus = "CLOSED"
	StatusError   SessionStatus = "ERROR"
)

// Session describes the browser resources owned by one in-flight scenario
type Session struct {
	ID        string        `json:"id"`
	Scenario  string        `json:"scenario"`
	Browser   string        `json:"browser"`
	Headless  bool          `json:"headless"`
	Remote    bool          `json:"remote,omitempty"`
	Status    SessionStatus `json:"status"`
	StartedAt time.Time     `json:"startedAt"`
	ClosedAt  time.Time     `json:"closedAt,omitempty"`
	VideoDir  string        `json:"videoDir,omitempty"`
}
