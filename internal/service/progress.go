package service

import (
	"errors"
	"fmt"

	"github.com/yikao-labs/shenlun-api/internal/dto"
)

// Stage identifies one step of the grading pipeline lifecycle.
type Stage string

// Pipeline stages in emission order. Error is reachable from any
// non-terminal stage; Done and Error are terminal.
const (
	StageReceived       Stage = "received"
	StageValidating     Stage = "validating"
	StageCallingModel   Stage = "calling_model"
	StageModelResponded Stage = "model_responded"
	StageParsing        Stage = "parsing"
	StageDone           Stage = "done"
	StageError          Stage = "error"
)

var stagePercents = map[Stage]int{
	StageReceived:       5,
	StageValidating:     10,
	StageCallingModel:   30,
	StageModelResponded: 80,
	StageParsing:        90,
	StageDone:           100,
	StageError:          100,
}

// StageMessage returns the default human-readable message for a stage.
func StageMessage(stage Stage) string {
	switch stage {
	case StageReceived:
		return "已接收请求"
	case StageValidating:
		return "校验输入中"
	case StageCallingModel:
		return "调用模型中"
	case StageModelResponded:
		return "模型已返回"
	case StageParsing:
		return "整理输出中"
	case StageDone:
		return "批改完成"
	case StageError:
		return "批改失败"
	}
	return string(stage)
}

// ErrAborted indicates the caller stopped consuming progress events; the
// call ends without a terminal done or error event.
var ErrAborted = errors.New("caller aborted grading call")

// ProgressSink receives incremental progress events. Emit returning an error
// means the consumer is gone and the pipeline must stop.
type ProgressSink interface {
	Emit(event dto.ProgressEvent) error
}

// NopSink discards progress events; it backs non-streaming callers whose
// only terminal event is the HTTP response itself.
type NopSink struct{}

// Emit implements ProgressSink.
func (NopSink) Emit(dto.ProgressEvent) error { return nil }

// Reporter drives the progress state machine for one grading call:
// transitions are strictly forward, percent never decreases, and nothing is
// emitted after a terminal stage.
type Reporter struct {
	sink        ProgressSink
	lastPercent int
	terminal    bool
}

// NewReporter wraps a sink in a fresh per-call reporter. A nil sink behaves
// like NopSink.
func NewReporter(sink ProgressSink) *Reporter {
	if sink == nil {
		sink = NopSink{}
	}
	return &Reporter{sink: sink}
}

// Advance emits the event for the given stage with its default message.
func (r *Reporter) Advance(stage Stage) error {
	return r.AdvanceMessage(stage, StageMessage(stage))
}

// AdvanceMessage emits the event for the given stage. After a terminal
// stage it is a no-op. An emit failure marks the call aborted.
func (r *Reporter) AdvanceMessage(stage Stage, message string) error {
	if r.terminal {
		return nil
	}

	percent, ok := stagePercents[stage]
	if !ok || percent < r.lastPercent {
		percent = r.lastPercent
	}

	event := dto.ProgressEvent{Stage: string(stage), Percent: percent, Message: message}
	if err := r.sink.Emit(event); err != nil {
		r.terminal = true
		return fmt.Errorf("%w: %v", ErrAborted, err)
	}

	r.lastPercent = percent
	if stage == StageDone || stage == StageError {
		r.terminal = true
	}
	return nil
}

// Terminated reports whether a terminal stage has been reached.
func (r *Reporter) Terminated() bool { return r.terminal }
