package server

import (
	"fmt"
	"net/http"
	"strings"
)

// sseSink writes server-sent events and flushes after each one. It
// implements app.EventSink.
type sseSink struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// newSSESink prepares w for event streaming. It fails when the
// underlying writer cannot flush, before any header is written.
func newSSESink(w http.ResponseWriter) (*sseSink, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support streaming")
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	return &sseSink{w: w, flusher: flusher}, nil
}

// Send emits a default message event.
func (s *sseSink) Send(data string) error {
	return s.write("", data)
}

// SendEvent emits a named event.
func (s *sseSink) SendEvent(event, data string) error {
	return s.write(event, data)
}

func (s *sseSink) write(event, data string) error {
	var b strings.Builder
	if event != "" {
		fmt.Fprintf(&b, "event: %s\n", event)
	}
	// Multi-line payloads need one data line per line of content.
	for _, line := range strings.Split(data, "\n") {
		fmt.Fprintf(&b, "data: %s\n", line)
	}
	b.WriteString("\n")
	if _, err := fmt.Fprint(s.w, b.String()); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}
