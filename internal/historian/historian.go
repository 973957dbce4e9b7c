// internal/historian/historian.go
package historian

import (
	"context"
	"errors"
	"time"

	"github.com/jason-s-yu/caro/internal/cache"
	"github.com/jason-s-yu/caro/internal/models"
	"github.com/sirupsen/logrus"
)

// Source yields queued match events. Pop returns (nil, nil) when nothing arrived within timeout.
type Source interface {
	Pop(ctx context.Context, timeout time.Duration) (*models.MatchEvent, error)
}

// Sink persists a batch of events atomically.
type Sink interface {
	InsertMatchEvents(ctx context.Context, events []models.MatchEvent) error
}

const (
	popTimeout   = time.Second
	flushTimeout = 10 * time.Second
	errorBackoff = time.Second
)

// Service drains the match event queue into the match_moves table in batches.
type Service struct {
	source        Source
	sink          Sink
	logger        *logrus.Logger
	batchSize     int
	flushInterval time.Duration

	batch     []models.MatchEvent
	lastFlush time.Time
	now       func() time.Time
}

func New(source Source, sink Sink, logger *logrus.Logger, batchSize int, flushInterval time.Duration) *Service {
	if batchSize <= 0 {
		batchSize = 20
	}
	if flushInterval <= 0 {
		flushInterval = 500 * time.Millisecond
	}
	return &Service{
		source:        source,
		sink:          sink,
		logger:        logger,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		batch:         make([]models.MatchEvent, 0, batchSize),
		now:           time.Now,
	}
}

// Run consumes events until ctx is cancelled, then flushes what is left.
func (s *Service) Run(ctx context.Context) error {
	s.lastFlush = s.now()
	s.logger.Info("Historian started")
	defer s.logger.Info("Historian stopped")

	for {
		if ctx.Err() != nil {
			s.flush(context.Background())
			return nil
		}

		wait := popTimeout
		if wait > s.flushInterval {
			wait = s.flushInterval
		}
		ev, err := s.source.Pop(ctx, wait)
		switch {
		case errors.Is(err, cache.ErrBadEvent):
			s.logger.Warnf("Skipping queue entry: %v", err)
		case err != nil && ctx.Err() == nil:
			s.logger.Errorf("Failed to pop match event: %v", err)
			select {
			case <-ctx.Done():
			case <-time.After(errorBackoff):
			}
		case ev != nil:
			s.add(*ev)
		}

		if len(s.batch) > 0 && s.now().Sub(s.lastFlush) >= s.flushInterval {
			s.flush(ctx)
		}
	}
}

// add appends one event and flushes once the batch is full.
func (s *Service) add(ev models.MatchEvent) {
	s.batch = append(s.batch, ev)
	if len(s.batch) >= s.batchSize {
		s.flush(context.Background())
	}
}

// flush writes the pending batch. A failed batch is kept for the next attempt unless it has grown past
// ten batches, in which case it is dropped.
func (s *Service) flush(ctx context.Context) {
	s.lastFlush = s.now()
	if len(s.batch) == 0 {
		return
	}
	if ctx.Err() != nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, flushTimeout)
	defer cancel()

	if err := s.sink.InsertMatchEvents(ctx, s.batch); err != nil {
		s.logger.Errorf("Failed to flush %d match events: %v", len(s.batch), err)
		if len(s.batch) >= 10*s.batchSize {
			s.logger.Warnf("Dropping %d match events", len(s.batch))
			s.batch = s.batch[:0]
		}
		return
	}
	s.logger.Debugf("Flushed %d match events", len(s.batch))
	s.batch = make([]models.MatchEvent, 0, s.batchSize)
}
