package sessions

import "time"

// EndReason explains why a session ended.
type EndReason string

const (
	// EndDisconnected means the client closed its end of the socket.
	EndDisconnected EndReason = "disconnected"
	// EndError means the connection failed with an unexpected error.
	EndError EndReason = "error"
	// EndShutdown means the daemon closed the connection while stopping.
	EndShutdown EndReason = "shutdown"
	// EndAbandoned marks sessions left open by a daemon that did not stop cleanly.
	EndAbandoned EndReason = "abandoned"
)

// Session is one accepted client connection.
type Session struct {
	ID         string
	SocketPath string
	StartedAt  time.Time
	EndedAt    time.Time
	Frames     int
	EndReason  EndReason
	Error      string
}

// Active reports whether the session has not ended yet.
func (s Session) Active() bool {
	return s.EndedAt.IsZero()
}

// Duration returns the session length, measured to now when still active.
func (s Session) Duration(now time.Time) time.Duration {
	if s.Active() {
		return now.Sub(s.StartedAt)
	}
	return s.EndedAt.Sub(s.StartedAt)
}
