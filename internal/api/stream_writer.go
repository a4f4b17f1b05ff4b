package api

import (
	"fmt"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v5"
)

// SSEStreamWriter emits composition events. Headers are written with the
// first event so that failures before generation starts can still be
// reported as a normal JSON error.
type SSEStreamWriter struct {
	res     http.ResponseWriter
	flusher http.Flusher
	seq     int
	begun   bool
	err     error
}

func NewSSEStreamWriter(c *echo.Context) (*SSEStreamWriter, error) {
	res := c.Response()
	flusher, ok := res.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming unsupported")
	}
	return &SSEStreamWriter{res: res, flusher: flusher, seq: 1}, nil
}

func (s *SSEStreamWriter) Started() bool {
	return s.begun
}

// EmitSymbol sends one generated symbol. Write errors are remembered and
// later events are dropped; generation itself continues.
func (s *SSEStreamWriter) EmitSymbol(r rune) {
	if s.err != nil {
		return
	}
	s.err = s.send(streamEvent{Type: "composition.delta", Delta: string(r)})
}

func (s *SSEStreamWriter) Complete(resp CompositionResponse) error {
	if s.err != nil {
		return s.err
	}
	return s.send(streamEvent{Type: "composition.completed", Composition: &resp})
}

func (s *SSEStreamWriter) Failed(err error) error {
	if s.err != nil {
		return s.err
	}
	errType := "server_error"
	if isClientError(err) {
		errType = "invalid_request_error"
	}
	return s.send(streamEvent{
		Type:  "composition.failed",
		Error: &ResponseError{Message: err.Error(), Type: errType},
	})
}

func (s *SSEStreamWriter) send(ev streamEvent) error {
	if !s.begun {
		h := s.res.Header()
		h.Set(echo.HeaderContentType, "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		s.res.WriteHeader(http.StatusOK)
		s.begun = true
	}
	ev.SequenceNumber = s.seq
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.res, "event: %s\ndata: %s\n\n", ev.Type, b); err != nil {
		return err
	}
	s.flusher.Flush()
	s.seq++
	return nil
}
