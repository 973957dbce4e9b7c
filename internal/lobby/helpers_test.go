// internal/lobby/helpers_test.go
package lobby

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/caro/internal/game"
	"github.com/jason-s-yu/caro/internal/models"
	"github.com/jason-s-yu/caro/internal/protocol"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// fakeConn records messages instead of sending them over a websocket.
type fakeConn struct {
	mu     sync.Mutex
	msgs   []protocol.Message
	closed bool
	reason string
}

func (c *fakeConn) Send(msg protocol.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
}

func (c *fakeConn) Close(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.reason = reason
}

func (c *fakeConn) all() []protocol.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]protocol.Message(nil), c.msgs...)
}

func (c *fakeConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.msgs)
}

func (c *fakeConn) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// msgsOf returns every recorded message of type T, in order.
func msgsOf[T protocol.Message](c *fakeConn) []T {
	var out []T
	for _, m := range c.all() {
		if v, ok := m.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

// lastOf returns the newest recorded message of type T and fails the test if there is none.
func lastOf[T protocol.Message](t *testing.T, c *fakeConn) T {
	t.Helper()
	found := msgsOf[T](c)
	var zero T
	require.NotEmpty(t, found, "expected a %T message", zero)
	return found[len(found)-1]
}

// manualTimer never fires on its own; tests call fire.
type manualTimer struct {
	d       time.Duration
	f       func()
	stopped bool
}

func (mt *manualTimer) Stop() bool {
	was := !mt.stopped
	mt.stopped = true
	return was
}

// fire runs the callback even if the timer was stopped, the way a timer goroutine that already
// started would.
func (mt *manualTimer) fire() {
	mt.f()
}

type manualScheduler struct {
	mu     sync.Mutex
	timers []*manualTimer
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) CancelHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	mt := &manualTimer{d: d, f: f}
	s.timers = append(s.timers, mt)
	return mt
}

func (s *manualScheduler) last(t *testing.T) *manualTimer {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.timers, "no timer scheduled")
	return s.timers[len(s.timers)-1]
}

// pending counts timers that were armed and never stopped.
func (s *manualScheduler) pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, mt := range s.timers {
		if !mt.stopped {
			n++
		}
	}
	return n
}

type fakeStorage struct {
	mu      sync.Mutex
	results []models.MatchResult
	winLoss [][2]uuid.UUID
	draws   [][2]uuid.UUID
	fail    bool
}

var errStorageDown = errors.New("storage down")

func (s *fakeStorage) RecordMatchResult(_ context.Context, res models.MatchResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errStorageDown
	}
	s.results = append(s.results, res)
	return nil
}

func (s *fakeStorage) UpdateWinLossCounts(_ context.Context, winner, loser uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errStorageDown
	}
	s.winLoss = append(s.winLoss, [2]uuid.UUID{winner, loser})
	return nil
}

func (s *fakeStorage) UpdateDrawCounts(_ context.Context, a, b uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errStorageDown
	}
	s.draws = append(s.draws, [2]uuid.UUID{a, b})
	return nil
}

func (s *fakeStorage) snapshot() ([]models.MatchResult, [][2]uuid.UUID, [][2]uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.MatchResult(nil), s.results...),
		append([][2]uuid.UUID(nil), s.winLoss...),
		append([][2]uuid.UUID(nil), s.draws...)
}

type fakePublisher struct {
	mu     sync.Mutex
	events []models.MatchEvent
}

func (p *fakePublisher) PublishMatchEvent(_ context.Context, ev models.MatchEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *fakePublisher) all() []models.MatchEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.MatchEvent(nil), p.events...)
}

type testEnv struct {
	m     *Manager
	sched *manualScheduler
	store *fakeStorage
}

// newTestEnv builds a manager whose first mover is always slot A unless overridden.
func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	env := &testEnv{sched: &manualScheduler{}, store: &fakeStorage{}}
	base := []Option{
		WithScheduler(env.sched),
		WithStorage(env.store),
		WithFirstMover(func() int { return 0 }),
	}
	env.m = NewManager(logger, append(base, opts...)...)
	return env
}

type player struct {
	id   *Identity
	conn *fakeConn
}

func (env *testEnv) login(name string) player {
	c := &fakeConn{}
	id := NewIdentity(c, uuid.New(), name)
	env.m.Login(id)
	return player{id: id, conn: c}
}

// seatedPair creates a room owned by host and seats guest in it.
func (env *testEnv) seatedPair(t *testing.T, mode game.Mode, timeLimit int) (host, guest player, code string) {
	t.Helper()
	host = env.login("host")
	guest = env.login("guest")
	code, err := env.m.CreateRoom(host.id, "", &protocol.RoomSettings{TimeLimit: timeLimit}, mode)
	require.NoError(t, err)
	_, err = env.m.JoinRoom(guest.id, code, "", game.ModeAny)
	require.NoError(t, err)
	return host, guest, code
}

// startedGame returns a running game where host moves first.
func (env *testEnv) startedGame(t *testing.T, mode game.Mode) (host, guest player, code string) {
	t.Helper()
	host, guest, code = env.seatedPair(t, mode, 30)
	ready := true
	require.NoError(t, env.m.SetReady(host.id, &ready))
	require.NoError(t, env.m.SetReady(guest.id, &ready))
	lastOf[protocol.GameStart](t, host.conn)
	return host, guest, code
}

func (env *testEnv) room(t *testing.T, code string) *Room {
	t.Helper()
	env.m.mu.Lock()
	defer env.m.mu.Unlock()
	r, ok := env.m.rooms.Get(code)
	require.True(t, ok, "room %s should exist", code)
	return r
}
