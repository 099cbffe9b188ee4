package forwarder

import (
	"errors"
	"log/slog"

	"github.com/MikeSquared-Agency/tracehook/internal/langfuse"
	"github.com/MikeSquared-Agency/tracehook/internal/transcript"
)

// Status is the outcome class of a Forward call.
type Status int

const (
	StatusSent Status = iota + 1
	StatusSkipped
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSent:
		return "sent"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result describes what Forward did. Err is nil only when Status is StatusSent.
type Result struct {
	Status     Status
	TraceID    string
	SessionID  string
	StatusCode int
	Err        error
}

// Reason names the failure class for logging: disabled, no_credentials,
// no_transcript, not_found, empty, malformed, read_error, http_status or network.
func (r Result) Reason() string {
	var se *langfuse.StatusError
	switch {
	case r.Err == nil:
		return ""
	case errors.Is(r.Err, ErrTracingDisabled):
		return "disabled"
	case errors.Is(r.Err, ErrMissingCredentials):
		return "no_credentials"
	case errors.Is(r.Err, ErrNoTranscriptPath):
		return "no_transcript"
	case errors.Is(r.Err, transcript.ErrNotFound):
		return "not_found"
	case errors.Is(r.Err, transcript.ErrEmpty):
		return "empty"
	case errors.Is(r.Err, transcript.ErrMalformed):
		return "malformed"
	case errors.Is(r.Err, transcript.ErrRead):
		return "read_error"
	case errors.As(r.Err, &se):
		return "http_status"
	default:
		return "network"
	}
}

// LogValue lets a Result be logged as a single structured attribute.
func (r Result) LogValue() slog.Value {
	attrs := []slog.Attr{slog.String("status", r.Status.String())}
	if r.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", r.TraceID))
	}
	if r.SessionID != "" {
		attrs = append(attrs, slog.String("session_id", r.SessionID))
	}
	if r.StatusCode != 0 {
		attrs = append(attrs, slog.Int("http_status", r.StatusCode))
	}
	if r.Err != nil {
		attrs = append(attrs, slog.String("reason", r.Reason()), slog.String("error", r.Err.Error()))
	}
	return slog.GroupValue(attrs...)
}

func skipped(err error) Result {
	return Result{Status: StatusSkipped, Err: err}
}

func failed(r Result, err error) Result {
	r.Status = StatusFailed
	r.Err = err
	return r
}
