package langfuse

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// TracesPath is the public ingestion endpoint for a single trace.
	TracesPath = "/api/public/traces"

	// DefaultTimeout bounds the whole request.
	DefaultTimeout = 2 * time.Second

	maxErrorBody = 512
)

// AuthMode selects how the credentials are written into the Authorization header.
type AuthMode string

const (
	// AuthLiteral sends "Basic {public}:{secret}" without encoding, which is
	// what existing hook deployments send.
	AuthLiteral AuthMode = "literal"
	// AuthBasic sends standard RFC 7617 Basic credentials.
	AuthBasic AuthMode = "basic"
)

// ParseAuthMode maps a config value to an AuthMode. Unknown values fall back
// to AuthLiteral.
func ParseAuthMode(s string) AuthMode {
	if strings.EqualFold(strings.TrimSpace(s), string(AuthBasic)) {
		return AuthBasic
	}
	return AuthLiteral
}

// Header renders the Authorization header value for the given credentials.
func (m AuthMode) Header(publicKey, secretKey string) string {
	creds := publicKey + ":" + secretKey
	if m == AuthBasic {
		creds = base64.StdEncoding.EncodeToString([]byte(creds))
	}
	return "Basic " + creds
}

// requestNamespace scopes the name-based request ids derived from trace ids.
var requestNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("tracehook"+TracesPath))

// RequestID returns a stable UUID for a trace id, so redelivering the same
// turn carries the same X-Request-Id.
func RequestID(traceID string) string {
	return uuid.NewSHA1(requestNamespace, []byte(traceID)).String()
}

// StatusError is returned when the backend answers with anything but 200 or 201.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("langfuse responded %d: %s", e.StatusCode, e.Body)
}

type Client struct {
	baseURL   string
	publicKey string
	secretKey string
	mode      AuthMode
	client    *http.Client
}

func NewClient(baseURL, publicKey, secretKey string, mode AuthMode) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		publicKey: publicKey,
		secretKey: secretKey,
		mode:      mode,
		client:    &http.Client{Timeout: DefaultTimeout},
	}
}

// CreateTrace posts a single trace. It returns the response status code and
// a *StatusError for non-success responses.
func (c *Client) CreateTrace(ctx context.Context, t Trace) (int, error) {
	body, err := json.Marshal(t)
	if err != nil {
		return 0, fmt.Errorf("marshal trace: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+TracesPath, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.mode.Header(c.publicKey, c.secretKey))
	req.Header.Set("X-Request-Id", RequestID(t.ID))

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("post trace: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return resp.StatusCode, &StatusError{
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(respBody)),
	}
}
