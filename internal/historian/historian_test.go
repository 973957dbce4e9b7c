// internal/historian/historian_test.go
package historian

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/jason-s-yu/caro/internal/cache"
	"github.com/jason-s-yu/caro/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chanSource struct {
	ch chan any // *models.MatchEvent or error
}

func (s *chanSource) Pop(ctx context.Context, timeout time.Duration) (*models.MatchEvent, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(timeout):
		return nil, nil
	case v := <-s.ch:
		if err, ok := v.(error); ok {
			return nil, err
		}
		return v.(*models.MatchEvent), nil
	}
}

type recordingSink struct {
	mu      sync.Mutex
	batches [][]models.MatchEvent
	failN   int
}

func (s *recordingSink) InsertMatchEvents(_ context.Context, events []models.MatchEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failN > 0 {
		s.failN--
		return errors.New("db down")
	}
	s.batches = append(s.batches, append([]models.MatchEvent(nil), events...))
	return nil
}

func (s *recordingSink) seqs() [][]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out [][]int
	for _, b := range s.batches {
		var seqs []int
		for _, ev := range b {
			seqs = append(seqs, ev.Seq)
		}
		out = append(out, seqs)
	}
	return out
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func event(seq int) *models.MatchEvent {
	return &models.MatchEvent{MatchID: "m1", Seq: seq, Kind: models.EventMove}
}

func TestFlushOnBatchSize(t *testing.T) {
	sink := &recordingSink{}
	s := New(&chanSource{}, sink, quietLogger(), 3, time.Hour)

	for i := 1; i <= 7; i++ {
		s.add(*event(i))
	}
	assert.Equal(t, [][]int{{1, 2, 3}, {4, 5, 6}}, sink.seqs())
	assert.Len(t, s.batch, 1)

	s.flush(context.Background())
	assert.Equal(t, [][]int{{1, 2, 3}, {4, 5, 6}, {7}}, sink.seqs())
}

func TestFailedFlushIsRetried(t *testing.T) {
	sink := &recordingSink{failN: 1}
	s := New(&chanSource{}, sink, quietLogger(), 2, time.Hour)

	s.add(*event(1))
	s.add(*event(2))
	assert.Empty(t, sink.seqs())
	assert.Len(t, s.batch, 2)

	s.add(*event(3))
	assert.Equal(t, [][]int{{1, 2, 3}}, sink.seqs())
}

func TestRunFlushesOnIntervalAndShutdown(t *testing.T) {
	src := &chanSource{ch: make(chan any)}
	sink := &recordingSink{}
	s := New(src, sink, quietLogger(), 100, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	src.ch <- event(1)
	src.ch <- cache.ErrBadEvent
	src.ch <- event(2)

	assert.Eventually(t, func() bool {
		return len(flatten(sink.seqs())) == 2
	}, time.Second, 5*time.Millisecond, "the interval flushes a partial batch")

	src.ch <- event(3)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	assert.Equal(t, []int{1, 2, 3}, flatten(sink.seqs()))
}

func flatten(batches [][]int) []int {
	var all []int
	for _, b := range batches {
		all = append(all, b...)
	}
	return all
}
