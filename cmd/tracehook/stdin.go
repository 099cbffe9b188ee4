package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"time"
)

const (
	// maxHookStdinBytes caps the hook payload read from stdin.
	maxHookStdinBytes = 1 << 20

	// stdinWait bounds how long we wait for a payload that may never be closed.
	stdinWait = 500 * time.Millisecond
)

// hookInput is the part of the stop-hook payload on stdin that we use.
type hookInput struct {
	SessionID      string `json:"session_id"`
	TranscriptPath string `json:"transcript_path"`
	HookEventName  string `json:"hook_event_name"`
}

type statter interface {
	Stat() (os.FileInfo, error)
}

// transcriptPathFromStdin returns transcript_path from the hook payload, or
// "" when stdin is a terminal, empty, late, or not JSON.
func transcriptPathFromStdin(r io.Reader, logger *slog.Logger) string {
	if r == nil {
		return ""
	}
	if s, ok := r.(statter); ok {
		info, err := s.Stat()
		if err != nil || info.Mode()&os.ModeCharDevice != 0 {
			return ""
		}
	}

	type readResult struct {
		data []byte
		err  error
	}
	done := make(chan readResult, 1)
	go func() {
		data, err := io.ReadAll(io.LimitReader(r, maxHookStdinBytes))
		done <- readResult{data, err}
	}()

	var rr readResult
	select {
	case rr = <-done:
	case <-time.After(stdinWait):
		logger.Debug("timed out waiting for hook payload on stdin")
		return ""
	}
	if rr.err != nil || len(rr.data) == 0 {
		return ""
	}

	var in hookInput
	if err := json.Unmarshal(rr.data, &in); err != nil {
		logger.Debug("hook stdin unmarshal failed", "error", err, "bytes", len(rr.data))
		return ""
	}
	if in.TranscriptPath != "" {
		logger.Debug("transcript path from hook payload", "event", in.HookEventName, "session_id", in.SessionID)
	}
	return in.TranscriptPath
}
