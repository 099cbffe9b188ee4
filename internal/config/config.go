package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/sethvargo/go-envconfig"
)

// DefaultHost is where the hook sends traces when LANGFUSE_HOST is unset.
const DefaultHost = "http://host.docker.internal:3050"

// Hook is the configuration of a single hook invocation. It is read once at
// process start and passed to the forwarder explicitly.
type Hook struct {
	TraceToLangfuse string `env:"TRACE_TO_LANGFUSE,default=false"`
	Host            string `env:"LANGFUSE_HOST,default=http://host.docker.internal:3050"`
	PublicKey       string `env:"LANGFUSE_PUBLIC_KEY"`
	SecretKey       string `env:"LANGFUSE_SECRET_KEY"`
	Debug           string `env:"CC_LANGFUSE_DEBUG,default=false"`
	TranscriptPath  string `env:"CLAUDE_TRANSCRIPT_PATH"`
	AuthMode        string `env:"LANGFUSE_AUTH_MODE,default=literal"`
}

// TracingEnabled reports whether TRACE_TO_LANGFUSE is "true", ignoring case.
func (h Hook) TracingEnabled() bool {
	return strings.EqualFold(h.TraceToLangfuse, "true")
}

// DebugEnabled reports whether CC_LANGFUSE_DEBUG is "true", ignoring case.
func (h Hook) DebugEnabled() bool {
	return strings.EqualFold(h.Debug, "true")
}

// HasCredentials is false when either key is empty.
func (h Hook) HasCredentials() bool {
	return h.PublicKey != "" && h.SecretKey != ""
}

// Sink configures the local trace sink.
type Sink struct {
	Port        int    `env:"TRACESINK_PORT,default=3050"`
	DatabaseURL string `env:"DATABASE_URL"`
	NatsURL     string `env:"NATS_URL"`
	NatsToken   string `env:"NATS_TOKEN"`
	LogLevel    string `env:"LOG_LEVEL,default=info"`
	PublicKey   string `env:"LANGFUSE_PUBLIC_KEY"`
	SecretKey   string `env:"LANGFUSE_SECRET_KEY"`
}

// LoadHook reads the hook configuration from the process environment.
func LoadHook(ctx context.Context) (Hook, error) {
	return LoadHookWith(ctx, envconfig.OsLookuper())
}

// LoadHookWith reads the hook configuration from l.
func LoadHookWith(ctx context.Context, l envconfig.Lookuper) (Hook, error) {
	var h Hook
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &h, Lookuper: l}); err != nil {
		return Hook{}, fmt.Errorf("process hook config: %w", err)
	}
	return h, nil
}

// LoadSink reads the sink configuration from the process environment.
func LoadSink(ctx context.Context) (Sink, error) {
	return LoadSinkWith(ctx, envconfig.OsLookuper())
}

// LoadSinkWith reads the sink configuration from l.
func LoadSinkWith(ctx context.Context, l envconfig.Lookuper) (Sink, error) {
	var s Sink
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &s, Lookuper: l}); err != nil {
		return Sink{}, fmt.Errorf("process sink config: %w", err)
	}
	return s, nil
}
