// Command tracehook runs when a coding-assistant session stops and forwards
// the last transcript turn to Langfuse. It always exits 0.
package main

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/MikeSquared-Agency/tracehook/internal/config"
	"github.com/MikeSquared-Agency/tracehook/internal/forwarder"
)

func main() {
	run(context.Background(), os.Stdin, os.Stderr)
}

// run does all the work of main and reports the forwarder result. Nothing in
// here may end the process with a non-zero code.
func run(ctx context.Context, stdin io.Reader, stderr io.Writer) forwarder.Result {
	cfg, err := config.LoadHook(ctx)
	if err != nil {
		// Debug is unknown without config, so stay silent.
		return forwarder.Result{Status: forwarder.StatusFailed, Err: err}
	}
	logger := setupLogging(cfg.DebugEnabled(), stderr)

	path := cfg.TranscriptPath
	if path == "" {
		path = transcriptPathFromStdin(stdin, logger)
	}
	if path == "" {
		logger.Debug("no CLAUDE_TRANSCRIPT_PATH provided")
	}

	res := forwarder.New(cfg, nil, logger).Forward(ctx, path)
	switch res.Status {
	case forwarder.StatusSent:
		logger.Debug("trace sent successfully", "result", res)
	case forwarder.StatusSkipped:
		logger.Debug("trace skipped", "result", res)
	default:
		logger.Debug("failed to send trace", "result", res)
	}
	return res
}

// setupLogging returns a stderr logger when debug is on and a discarding one
// otherwise.
func setupLogging(debug bool, w io.Writer) *slog.Logger {
	if !debug {
		w = io.Discard
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(handler).With("component", "langfuse-hook")
}
