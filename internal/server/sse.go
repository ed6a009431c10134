package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ashita-ai/quill/internal/model"
)

// sseSink writes generation events as server-sent events. Headers are
// only committed with the first event, so a run rejected up front can
// still answer with a JSON error.
type sseSink struct {
	w       http.ResponseWriter
	flusher http.Flusher
	started bool
}

func newSSESink(w http.ResponseWriter, flusher http.Flusher) *sseSink {
	return &sseSink{w: w, flusher: flusher}
}

func (s *sseSink) Emit(e model.StreamEvent) error {
	data, err := json.Marshal(e.Payload())
	if err != nil {
		return fmt.Errorf("sse: encode %s: %w", e.Type, err)
	}
	if !s.started {
		h := s.w.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		h.Set("X-Accel-Buffering", "no")
		s.w.WriteHeader(http.StatusOK)

		// Generation outlives the server's WriteTimeout.
		rc := http.NewResponseController(s.w)
		_ = rc.SetWriteDeadline(time.Time{})
		s.started = true
	}
	if _, err := s.w.Write(formatSSE(string(e.Type), string(data))); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// formatSSE formats one event as a Server-Sent Events message.
func formatSSE(eventType, data string) []byte {
	// SSE format: "event: <type>\ndata: <payload>\n\n"
	return []byte("event: " + eventType + "\ndata: " + data + "\n\n")
}
