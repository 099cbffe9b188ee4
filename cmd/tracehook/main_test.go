package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/tracehook/internal/forwarder"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func setHookEnv(t *testing.T, host string) {
	t.Helper()
	t.Setenv("TRACE_TO_LANGFUSE", "true")
	t.Setenv("LANGFUSE_HOST", host)
	t.Setenv("LANGFUSE_PUBLIC_KEY", "pk")
	t.Setenv("LANGFUSE_SECRET_KEY", "sk")
	t.Setenv("CC_LANGFUSE_DEBUG", "true")
	t.Setenv("LANGFUSE_AUTH_MODE", "literal")
	t.Setenv("CLAUDE_TRANSCRIPT_PATH", "")
}

func countingServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusCreated)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeTranscript(t *testing.T, line string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "proj", "sess.jsonl")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(line+"\n"), 0o644))
	return path
}

func TestRun_EnvTranscriptPath(t *testing.T) {
	var hits atomic.Int32
	srv := countingServer(t, &hits)
	setHookEnv(t, srv.URL)
	t.Setenv("CLAUDE_TRANSCRIPT_PATH", writeTranscript(t, `{"role":"assistant","content":"hello"}`))

	var stderr bytes.Buffer
	res := run(context.Background(), strings.NewReader(""), &stderr)

	assert.Equal(t, forwarder.StatusSent, res.Status)
	assert.Equal(t, int32(1), hits.Load())
	assert.Contains(t, stderr.String(), "trace sent successfully")
	assert.Contains(t, stderr.String(), "component=langfuse-hook")
}

func TestRun_TranscriptPathFromStdin(t *testing.T) {
	var hits atomic.Int32
	srv := countingServer(t, &hits)
	setHookEnv(t, srv.URL)
	path := writeTranscript(t, `{"role":"user","content":"hi"}`)

	payload := `{"session_id":"sess","transcript_path":"` + path + `","hook_event_name":"Stop"}`
	res := run(context.Background(), strings.NewReader(payload), io.Discard)

	assert.Equal(t, forwarder.StatusSent, res.Status)
	assert.Equal(t, "sess_1", res.TraceID)
	assert.Equal(t, int32(1), hits.Load())
}

func TestRun_NoTranscript(t *testing.T) {
	var hits atomic.Int32
	srv := countingServer(t, &hits)
	setHookEnv(t, srv.URL)

	var stderr bytes.Buffer
	res := run(context.Background(), strings.NewReader(""), &stderr)

	assert.Equal(t, forwarder.StatusSkipped, res.Status)
	assert.Zero(t, hits.Load())
	assert.Contains(t, stderr.String(), "no CLAUDE_TRANSCRIPT_PATH provided")
}

func TestRun_DebugOffIsSilent(t *testing.T) {
	var hits atomic.Int32
	srv := countingServer(t, &hits)
	setHookEnv(t, srv.URL)
	t.Setenv("CC_LANGFUSE_DEBUG", "false")
	t.Setenv("CLAUDE_TRANSCRIPT_PATH", filepath.Join(t.TempDir(), "missing.jsonl"))

	var stderr bytes.Buffer
	res := run(context.Background(), strings.NewReader(""), &stderr)

	assert.Equal(t, forwarder.StatusFailed, res.Status)
	assert.Zero(t, hits.Load())
	assert.Empty(t, stderr.String())
}

func TestRun_Disabled(t *testing.T) {
	var hits atomic.Int32
	srv := countingServer(t, &hits)
	setHookEnv(t, srv.URL)
	t.Setenv("TRACE_TO_LANGFUSE", "false")
	t.Setenv("CLAUDE_TRANSCRIPT_PATH", writeTranscript(t, `{"role":"assistant","content":"hello"}`))

	res := run(context.Background(), strings.NewReader(""), io.Discard)
	assert.Equal(t, forwarder.StatusSkipped, res.Status)
	assert.Zero(t, hits.Load())
}

func TestTranscriptPathFromStdin(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"payload", `{"transcript_path":"/a/b.jsonl"}`, "/a/b.jsonl"},
		{"empty", "", ""},
		{"not json", "garbage", ""},
		{"no field", `{"session_id":"x"}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, transcriptPathFromStdin(strings.NewReader(tt.input), discard))
		})
	}
}

func TestTranscriptPathFromStdin_NilReader(t *testing.T) {
	assert.Empty(t, transcriptPathFromStdin(nil, discard))
}

func TestTranscriptPathFromStdin_NeverClosed(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	start := time.Now()
	assert.Empty(t, transcriptPathFromStdin(pr, discard))
	assert.Less(t, time.Since(start), 2*time.Second)
}
