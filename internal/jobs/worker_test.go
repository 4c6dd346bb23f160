package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWorker_TracksJobOutcomes(t *testing.T) {
	w := NewWorker(1)
	t.Cleanup(w.Shutdown)

	w.Enqueue(func(ctx context.Context) error { return nil })
	w.Enqueue(func(ctx context.Context) error { return errors.New("sin conexión a la base de datos") })

	assert.Eventually(t, func() bool {
		s := w.GetStats()
		return s.CompletedJobs == 2 && s.FailedJobs == 1
	}, time.Second, 10*time.Millisecond)

	s := w.GetStats()
	assert.Equal(t, "sin conexión a la base de datos", s.LastError)
	assert.NotNil(t, s.LastErrorAt)
	assert.Equal(t, 0, s.ActiveJobs)
}

func TestWorker_CountsScheduledRuns(t *testing.T) {
	w := NewWorker(0)
	t.Cleanup(w.Shutdown)

	// Immediate scheduling runs once at startup, then on the ticker
	w.ScheduleEveryImmediate(time.Hour, func(ctx context.Context) error { return nil })

	assert.Eventually(t, func() bool {
		return w.GetStats().ScheduledRuns == 1
	}, time.Second, 10*time.Millisecond)
}

func TestWorker_AsyncJobPanicIsContained(t *testing.T) {
	w := NewWorker(0)
	t.Cleanup(w.Shutdown)

	w.EnqueueAsync(func(ctx context.Context) error {
		panic("referencia nula")
	})

	assert.Eventually(t, func() bool {
		s := w.GetStats()
		return s.FailedJobs == 1 && s.LastError == "panic: referencia nula"
	}, time.Second, 10*time.Millisecond)
}
