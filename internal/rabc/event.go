package rabc

import (
	"fmt"
	"log/slog"

	"rabc/internal/logging"
)

// Event identifies which registered source became ready. The numeric values
// cross the C boundary and must never change.
type Event uint64

const (
	// EventConnectionReadable reports a frame (or hang-up) pending on the connection.
	EventConnectionReadable Event = 1
	// EventTimerDue reports an unconsumed keepalive tick.
	EventTimerDue Event = 2
)

// ParseEvent decodes a wire ID. Unknown IDs are a producer/consumer mismatch
// and fail with a Bug error carrying the value.
func ParseEvent(id uint64) (Event, error) {
	switch Event(id) {
	case EventConnectionReadable:
		return EventConnectionReadable, nil
	case EventTimerDue:
		return EventTimerDue, nil
	default:
		return 0, newError(KindBug, nil, "got unexpected event ID %d", id)
	}
}

func parseEventLogged(id uint64, logger *slog.Logger) (Event, error) {
	ev, err := ParseEvent(id)
	if err != nil {
		logging.ErrorWithContext(logger, "event decode failed", "event_decode_failed",
			logging.Uint64("event_id", id),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "client and caller disagree on event encoding"))
	}
	return ev, err
}

// ID returns the stable wire encoding.
func (e Event) ID() uint64 { return uint64(e) }

func (e Event) String() string {
	switch e {
	case EventConnectionReadable:
		return "ConnectionReadable"
	case EventTimerDue:
		return "TimerDue"
	default:
		return fmt.Sprintf("Event(%d)", uint64(e))
	}
}
