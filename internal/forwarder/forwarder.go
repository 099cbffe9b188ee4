package forwarder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MikeSquared-Agency/tracehook/internal/config"
	"github.com/MikeSquared-Agency/tracehook/internal/langfuse"
	"github.com/MikeSquared-Agency/tracehook/internal/transcript"
)

var (
	ErrTracingDisabled    = errors.New("tracing disabled (TRACE_TO_LANGFUSE=false)")
	ErrMissingCredentials = errors.New("langfuse keys not configured")
	ErrNoTranscriptPath   = errors.New("no transcript path provided")
)

// Sender delivers a trace and reports the HTTP status it got back.
type Sender interface {
	CreateTrace(ctx context.Context, t langfuse.Trace) (int, error)
}

// Forwarder turns the last line of a transcript into a trace and sends it.
type Forwarder struct {
	cfg    config.Hook
	sender Sender
	logger *slog.Logger
	now    func() time.Time
}

// New returns a Forwarder. A nil sender is replaced by a langfuse.Client
// built from cfg.
func New(cfg config.Hook, sender Sender, logger *slog.Logger) *Forwarder {
	if sender == nil {
		sender = langfuse.NewClient(cfg.Host, cfg.PublicKey, cfg.SecretKey, langfuse.ParseAuthMode(cfg.AuthMode))
	}
	return &Forwarder{
		cfg:    cfg,
		sender: sender,
		logger: logger,
		now:    time.Now,
	}
}

// Forward reads the transcript at path and sends a trace for its final line.
// It never panics and never returns an error; every outcome is described by
// the Result.
func (f *Forwarder) Forward(ctx context.Context, path string) Result {
	if !f.cfg.TracingEnabled() {
		return skipped(ErrTracingDisabled)
	}
	if !f.cfg.HasCredentials() {
		return skipped(ErrMissingCredentials)
	}
	if path == "" {
		return skipped(ErrNoTranscriptPath)
	}

	f.logger.Debug("processing transcript", "path", path)

	entry, err := transcript.ReadLast(path)
	if err != nil {
		return failed(Result{}, fmt.Errorf("read transcript: %w", err))
	}

	trace := Build(entry, f.now())
	res := Result{
		TraceID:   trace.ID,
		SessionID: entry.SessionID,
	}

	status, err := f.sender.CreateTrace(ctx, trace)
	res.StatusCode = status
	if err != nil {
		return failed(res, fmt.Errorf("send trace: %w", err))
	}

	res.Status = StatusSent
	return res
}

// Build assembles the trace for a transcript entry.
func Build(e transcript.Entry, now time.Time) langfuse.Trace {
	output := json.RawMessage(`""`)
	if e.IsAssistant() {
		output = e.Content
	}
	return langfuse.Trace{
		ID:        langfuse.TraceID(e.SessionID, e.LineCount),
		Name:      langfuse.TraceName(e.SessionID),
		SessionID: e.SessionID,
		Metadata: langfuse.Metadata{
			Project:      e.Project,
			MessageIndex: e.LineCount,
		},
		Input:     e.Content,
		Output:    output,
		Timestamp: langfuse.Timestamp(now),
	}
}
