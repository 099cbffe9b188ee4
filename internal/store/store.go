package store

import (
	"errors"
	"time"

	"github.com/MikeSquared-Agency/tracehook/internal/langfuse"
)

// ErrNotFound is returned when no trace has the requested id.
var ErrNotFound = errors.New("trace not found")

// Record is a trace as received by the sink.
type Record struct {
	Trace      langfuse.Trace `json:"trace"`
	ReceivedAt time.Time      `json:"received_at"`
}
