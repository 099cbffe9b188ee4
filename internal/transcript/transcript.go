package transcript

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// maxLineSize bounds a single transcript line. Turns carrying inline images
// can run to several megabytes.
const maxLineSize = 64 * 1024 * 1024

var (
	ErrNotFound  = errors.New("transcript not found")
	ErrEmpty     = errors.New("transcript is empty")
	ErrMalformed = errors.New("malformed transcript line")
	ErrRead      = errors.New("read transcript")
)

// emptyString is the JSON encoding of "" and stands in for a missing content field.
var emptyString = json.RawMessage(`""`)

// Entry is the last turn of a transcript plus the identifiers derived from its path.
type Entry struct {
	Path      string
	SessionID string
	Project   string
	LineCount int // 1-based count of lines read
	Role      string
	Content   json.RawMessage
}

// IsAssistant reports whether the turn was written by the assistant.
func (e Entry) IsAssistant() bool {
	return e.Role == "assistant"
}

// ReadLast reads the transcript at path and parses only its final line.
// The file is closed before ReadLast returns.
func ReadLast(path string) (Entry, error) {
	path = ExpandHome(path)

	last, count, err := lastLine(path)
	if err != nil {
		return Entry{}, err
	}
	if count == 0 {
		return Entry{}, fmt.Errorf("%w: %s", ErrEmpty, path)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(last, &fields); err != nil {
		return Entry{}, fmt.Errorf("%w: line %d: %v", ErrMalformed, count, err)
	}
	if fields == nil {
		return Entry{}, fmt.Errorf("%w: line %d: not a JSON object", ErrMalformed, count)
	}

	e := Entry{
		Path:      path,
		SessionID: SessionID(path),
		Project:   ProjectName(path),
		LineCount: count,
		Content:   emptyString,
	}
	if raw, ok := fields["content"]; ok {
		e.Content = raw
	}
	if raw, ok := fields["role"]; ok {
		// A non-string role is treated as absent.
		_ = json.Unmarshal(raw, &e.Role)
	}
	return e, nil
}

func lastLine(path string) ([]byte, int, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, 0, fmt.Errorf("%w: open: %w", ErrRead, err)
	}
	defer f.Close()

	var (
		last  []byte
		count int
	)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		last = append(last[:0], scanner.Bytes()...)
		count++
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: scan: %w", ErrRead, err)
	}
	return last, count, nil
}

// SessionID is the transcript file name without its final extension.
func SessionID(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	if ext == base {
		// Dotfiles like ".jsonl" have no stem to strip.
		return base
	}
	return strings.TrimSuffix(base, ext)
}

// ProjectName is the name of the directory holding the transcript, or ""
// when the path has no parent component.
func ProjectName(path string) string {
	name := filepath.Base(filepath.Dir(path))
	if name == "." || name == string(filepath.Separator) {
		return ""
	}
	return name
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) string {
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
