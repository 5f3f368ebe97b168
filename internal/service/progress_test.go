package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yikao-labs/shenlun-api/internal/dto"
)

type collectorSink struct {
	events []dto.ProgressEvent
	err    error
}

func (c *collectorSink) Emit(event dto.ProgressEvent) error {
	if c.err != nil {
		return c.err
	}
	c.events = append(c.events, event)
	return nil
}

func TestReporterSuccessfulLifecycle(t *testing.T) {
	sink := &collectorSink{}
	reporter := NewReporter(sink)

	stages := []Stage{StageReceived, StageValidating, StageCallingModel, StageModelResponded, StageParsing, StageDone}
	for _, stage := range stages {
		require.NoError(t, reporter.Advance(stage))
	}

	require.Len(t, sink.events, len(stages))

	last := 0
	for _, event := range sink.events {
		require.GreaterOrEqual(t, event.Percent, last, "percent must never decrease")
		last = event.Percent
	}

	terminal := sink.events[len(sink.events)-1]
	require.Equal(t, string(StageDone), terminal.Stage)
	require.Equal(t, 100, terminal.Percent)
	require.True(t, reporter.Terminated())
}

func TestReporterSilentAfterTerminalStage(t *testing.T) {
	sink := &collectorSink{}
	reporter := NewReporter(sink)

	require.NoError(t, reporter.Advance(StageReceived))
	require.NoError(t, reporter.Advance(StageDone))
	require.NoError(t, reporter.Advance(StageParsing))

	require.Len(t, sink.events, 2)
}

func TestReporterErrorFromAnyStage(t *testing.T) {
	sink := &collectorSink{}
	reporter := NewReporter(sink)

	require.NoError(t, reporter.Advance(StageReceived))
	require.NoError(t, reporter.Advance(StageValidating))
	require.NoError(t, reporter.Advance(StageError))

	terminal := sink.events[len(sink.events)-1]
	require.Equal(t, string(StageError), terminal.Stage)
	require.Equal(t, 100, terminal.Percent)
	require.True(t, reporter.Terminated())
}

func TestReporterFailingSinkAborts(t *testing.T) {
	sink := &collectorSink{err: errors.New("broken pipe")}
	reporter := NewReporter(sink)

	err := reporter.Advance(StageReceived)
	require.ErrorIs(t, err, ErrAborted)
	require.True(t, reporter.Terminated())

	// Once aborted nothing more is attempted.
	require.NoError(t, reporter.Advance(StageValidating))
	require.Empty(t, sink.events)
}

func TestReporterNilSink(t *testing.T) {
	reporter := NewReporter(nil)
	require.NoError(t, reporter.Advance(StageReceived))
	require.NoError(t, reporter.Advance(StageDone))
}

func TestStageMessages(t *testing.T) {
	require.Equal(t, "已接收请求", StageMessage(StageReceived))
	require.Equal(t, "批改完成", StageMessage(StageDone))
	require.Equal(t, "批改失败", StageMessage(StageError))
}
