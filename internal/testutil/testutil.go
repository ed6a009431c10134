// Package testutil provides helpers shared by package tests.
//
// Domain fakes for the research and generation providers live in the
// fake subpackage so that adapter packages can import testutil from their
// own tests without an import cycle.
package testutil

import (
	"bufio"
	"io"
	"log/slog"
	"os"
	"strings"
)

// TestLogger returns a logger that only surfaces warnings and errors.
func TestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// SSEFrame is one decoded server-sent event.
type SSEFrame struct {
	Event string
	Data  string
}

// ReadSSE decodes an event stream of "event:" / "data:" line pairs
// separated by blank lines. Comment lines are skipped.
func ReadSSE(r io.Reader) ([]SSEFrame, error) {
	var (
		frames []SSEFrame
		cur    SSEFrame
	)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if cur.Event != "" || cur.Data != "" {
				frames = append(frames, cur)
			}
			cur = SSEFrame{}
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event:"):
			cur.Event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			cur.Data += strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " ")
		}
	}
	if cur.Event != "" || cur.Data != "" {
		frames = append(frames, cur)
	}
	return frames, scanner.Err()
}
