package handler

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"

	"github.com/yikao-labs/shenlun-api/internal/dto"
)

// sseSink writes server-sent events to a streaming response body. Each event
// is an `event:` line, one `data:` line per payload line, and a blank-line
// terminator. The first write failure cancels the pipeline context and
// poisons the sink, so a disconnected client stops the call instead of
// wasting a model round trip.
type sseSink struct {
	w      *bufio.Writer
	cancel context.CancelFunc
	failed bool
}

func newSSESink(w *bufio.Writer, cancel context.CancelFunc) *sseSink {
	return &sseSink{w: w, cancel: cancel}
}

// Emit implements service.ProgressSink.
func (s *sseSink) Emit(event dto.ProgressEvent) error {
	return s.WriteEvent("progress", event)
}

// WriteEvent marshals the payload and flushes one complete SSE frame.
func (s *sseSink) WriteEvent(name string, payload any) error {
	if s.failed {
		return context.Canceled
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	if _, err := s.w.WriteString("event: " + name + "\n"); err != nil {
		return s.fail(err)
	}
	for _, line := range bytes.Split(data, []byte("\n")) {
		if _, err := s.w.WriteString("data: " + string(line) + "\n"); err != nil {
			return s.fail(err)
		}
	}
	if _, err := s.w.WriteString("\n"); err != nil {
		return s.fail(err)
	}
	if err := s.w.Flush(); err != nil {
		return s.fail(err)
	}
	return nil
}

func (s *sseSink) fail(err error) error {
	s.failed = true
	if s.cancel != nil {
		s.cancel()
	}
	return err
}
