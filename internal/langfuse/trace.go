package langfuse

import (
	"encoding/json"
	"fmt"
	"time"
)

// Metadata is attached to every trace the hook creates.
type Metadata struct {
	Project      string `json:"project"`
	MessageIndex int    `json:"message_index"`
}

// Trace is the body of POST /api/public/traces.
type Trace struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	SessionID string          `json:"sessionId"`
	Metadata  Metadata        `json:"metadata"`
	Input     json.RawMessage `json:"input"`
	Output    json.RawMessage `json:"output"`
	Timestamp string          `json:"timestamp"`
}

// TraceID joins a session id and a line count into a trace id. The same
// transcript state always yields the same id.
func TraceID(sessionID string, lineCount int) string {
	return fmt.Sprintf("%s_%d", sessionID, lineCount)
}

// TraceName is the display name of a session trace.
func TraceName(sessionID string) string {
	return "claude_session_" + sessionID
}

// Timestamp formats t in UTC as ISO-8601 with a trailing Z. Microseconds are
// included only when non-zero.
func Timestamp(t time.Time) string {
	t = t.UTC()
	if t.Nanosecond()/1000 == 0 {
		return t.Format("2006-01-02T15:04:05") + "Z"
	}
	return t.Format("2006-01-02T15:04:05.000000") + "Z"
}
