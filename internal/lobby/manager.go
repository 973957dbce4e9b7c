// internal/lobby/manager.go
package lobby

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/caro/internal/game"
	"github.com/jason-s-yu/caro/internal/models"
	"github.com/jason-s-yu/caro/internal/protocol"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultTimeLimit is the per-turn limit in seconds for rooms created without settings.
	DefaultTimeLimit = 120
	MinTimeLimit     = 5
	MaxTimeLimit     = 3600

	maxChatLength = 500
)

// Manager owns every live room, the quick-join queue and the login registry.
//
// A single mutex serializes all room-mutating operations, so for one room the effects of two
// operations reach both connections in the order the operations were accepted. Methods suffixed
// Unsafe assume mu is held.
type Manager struct {
	mu sync.Mutex

	logger     *logrus.Logger
	rooms      *RoomStore
	queue      *MatchQueue
	identities map[uuid.UUID]*Identity

	storage   Storage
	events    EventPublisher
	scheduler Scheduler

	firstMover       func() int
	now              func() time.Time
	defaultTimeLimit int
	roomSeq          uint64

	// writes tracks in-flight storage and publish goroutines.
	writes sync.WaitGroup
}

// Option configures a Manager.
type Option func(*Manager)

// WithStorage sets the collaborator that persists finished games.
func WithStorage(s Storage) Option {
	return func(m *Manager) { m.storage = s }
}

// WithEventPublisher sets where match events are published.
func WithEventPublisher(p EventPublisher) Option {
	return func(m *Manager) { m.events = p }
}

// WithScheduler replaces the time.AfterFunc based turn clock scheduler.
func WithScheduler(s Scheduler) Option {
	return func(m *Manager) { m.scheduler = s }
}

// WithFirstMover overrides the coin flip deciding who moves first: 0 picks slot A, 1 picks slot B.
func WithFirstMover(f func() int) Option {
	return func(m *Manager) { m.firstMover = f }
}

// WithDefaultTimeLimit sets the per-turn limit in seconds for rooms created without settings.
func WithDefaultTimeLimit(seconds int) Option {
	return func(m *Manager) {
		if seconds >= MinTimeLimit && seconds <= MaxTimeLimit {
			m.defaultTimeLimit = seconds
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates an empty session manager.
func NewManager(logger *logrus.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	m := &Manager{
		logger:           logger,
		rooms:            NewRoomStore(),
		queue:            newMatchQueue(),
		identities:       make(map[uuid.UUID]*Identity),
		scheduler:        timeScheduler{},
		firstMover:       func() int { return rand.Intn(2) },
		now:              time.Now,
		defaultTimeLimit: DefaultTimeLimit,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Drain waits for pending storage writes and event publishes, or for ctx to end.
func (m *Manager) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.writes.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) defaultSettings() protocol.RoomSettings {
	return protocol.RoomSettings{TimeLimit: m.defaultTimeLimit}
}

func validTimeLimit(seconds int) bool {
	return seconds >= MinTimeLimit && seconds <= MaxTimeLimit
}

func (m *Manager) checkCallerUnsafe(caller *Identity) error {
	if caller == nil || caller.evicted {
		return ErrNotLoggedIn
	}
	return nil
}

// roomOfUnsafe returns the room the caller is seated in.
func (m *Manager) roomOfUnsafe(caller *Identity) (*Room, *Slot) {
	if caller.roomCode == "" {
		return nil, nil
	}
	r, ok := m.rooms.Get(caller.roomCode)
	if !ok {
		caller.roomCode = ""
		return nil, nil
	}
	slot := r.slotOfUnsafe(caller)
	if slot == nil {
		caller.roomCode = ""
		return nil, nil
	}
	return r, slot
}

// recoverOp keeps a panic in one operation from escaping the calling goroutine.
// Deferred after the unlock, so it runs first and the lock is still released.
func (m *Manager) recoverOp(op, room string) {
	if rec := recover(); rec != nil {
		m.logger.WithFields(logrus.Fields{"room": room, "op": op}).Errorf("Recovered from panic: %v", rec)
	}
}

// newRoomUnsafe registers a room with host in slot A.
func (m *Manager) newRoomUnsafe(host *Identity, password string, settings protocol.RoomSettings, mode game.Mode) *Room {
	rules, _ := game.RulesFor(mode)
	m.roomSeq++
	r := &Room{
		Code:      m.rooms.UniqueCode(),
		Password:  password,
		Mode:      mode,
		Rules:     rules,
		Settings:  settings,
		Host:      &Slot{Identity: host},
		Score:     make(map[uuid.UUID]int),
		CreatedAt: m.now(),
		seq:       m.roomSeq,
	}
	m.rooms.Add(r)
	host.roomCode = r.Code
	m.logger.WithFields(logrus.Fields{"room": r.Code, "user": host.UserID}).Infof("Room created (mode %d)", mode)
	return r
}

// CreateRoom opens a new room with the caller in slot A and returns its code.
func (m *Manager) CreateRoom(caller *Identity, password string, settings *protocol.RoomSettings, mode game.Mode) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkCallerUnsafe(caller); err != nil {
		return "", err
	}
	if caller.roomCode != "" {
		return "", ErrAlreadyInRoom
	}
	if mode == game.ModeAny {
		mode = game.DefaultMode
	}
	if !mode.Valid() {
		return "", game.ErrInvalidMode
	}
	s := m.defaultSettings()
	if settings != nil && settings.TimeLimit != 0 {
		if !validTimeLimit(settings.TimeLimit) {
			return "", fmt.Errorf("%w: time_limit must be between %d and %d", ErrInvalidSettings, MinTimeLimit, MaxTimeLimit)
		}
		s.TimeLimit = settings.TimeLimit
	}

	m.queue.remove(caller)
	r := m.newRoomUnsafe(caller, password, s, mode)
	caller.send(protocol.NewRoomCreated(r.snapshotUnsafe()))
	return r.Code, nil
}

// JoinRoom seats the caller in slot B of the room with the given code.
func (m *Manager) JoinRoom(caller *Identity, code, password string, filter game.Mode) (protocol.RoomSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkCallerUnsafe(caller); err != nil {
		return protocol.RoomSnapshot{}, err
	}
	if caller.roomCode != "" {
		return protocol.RoomSnapshot{}, ErrAlreadyInRoom
	}

	r, ok := m.rooms.Get(strings.ToUpper(strings.TrimSpace(code)))
	if !ok {
		return protocol.RoomSnapshot{}, ErrRoomNotFound
	}
	if r.Host.Identity.UserID == caller.UserID {
		return protocol.RoomSnapshot{}, ErrAlreadyInRoom
	}
	if r.Guest != nil {
		return protocol.RoomSnapshot{}, ErrRoomFull
	}
	if r.Password != "" && r.Password != password {
		return protocol.RoomSnapshot{}, ErrWrongPassword
	}
	if !r.Mode.Matches(filter) {
		return protocol.RoomSnapshot{}, ErrModeMismatch
	}

	m.queue.remove(caller)
	return m.seatGuestUnsafe(r, caller, "joined room"), nil
}

// seatGuestUnsafe fills slot B and notifies both sides.
func (m *Manager) seatGuestUnsafe(r *Room, caller *Identity, msg string) protocol.RoomSnapshot {
	r.Guest = &Slot{Identity: caller}
	caller.roomCode = r.Code

	snap := r.snapshotUnsafe()
	caller.send(protocol.NewJoinSuccess(snap, msg))
	r.Host.Identity.send(protocol.NewOpponentJoined(*r.Guest.view(), snap))

	m.logger.WithFields(logrus.Fields{"room": r.Code, "user": caller.UserID}).Info("Player joined room")
	return snap
}

// ListWaitingRooms returns rooms with an open slot B and no game, optionally filtered by mode.
func (m *Manager) ListWaitingRooms(filter game.Mode) []protocol.RoomSummary {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []protocol.RoomSummary{}
	for _, r := range m.rooms.Rooms() {
		if r.waitingUnsafe() && r.Mode.Matches(filter) {
			out = append(out, r.summaryUnsafe())
		}
	}
	return out
}

// SetReady sets the caller's ready flag, or flips it when ready is nil. It is a no-op during a game.
// Once both slots are ready the game starts.
func (m *Manager) SetReady(caller *Identity, ready *bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkCallerUnsafe(caller); err != nil {
		return err
	}
	r, slot := m.roomOfUnsafe(caller)
	if r == nil {
		return ErrNotInRoom
	}
	if r.inGameUnsafe() {
		return nil
	}

	if ready == nil {
		slot.Ready = !slot.Ready
	} else {
		slot.Ready = *ready
	}
	if opp := r.opponentOfUnsafe(slot); opp != nil {
		opp.Identity.send(protocol.NewOpponentReady(slot.Ready))
	}

	m.startIfReadyUnsafe(r)
	return nil
}

// RequestRematch marks the caller ready for another game in the same room.
func (m *Manager) RequestRematch(caller *Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkCallerUnsafe(caller); err != nil {
		return err
	}
	r, slot := m.roomOfUnsafe(caller)
	if r == nil {
		return ErrNotInRoom
	}
	if r.inGameUnsafe() {
		return ErrGameInProgress
	}

	slot.Ready = true
	if opp := r.opponentOfUnsafe(slot); opp != nil {
		opp.Identity.send(protocol.NewOpponentRematch(true))
	}

	m.startIfReadyUnsafe(r)
	return nil
}

func (m *Manager) startIfReadyUnsafe(r *Room) {
	if r.Guest != nil && r.Host.Ready && r.Guest.Ready {
		m.startGameUnsafe(r)
	}
}

// startGameUnsafe allocates a fresh board, picks the first mover and arms the turn clock.
func (m *Manager) startGameUnsafe(r *Room) {
	r.cancelClockUnsafe()

	r.Board = game.NewBoard(r.Rules.BoardSize)
	r.resetReadyUnsafe()
	r.ensureScoreUnsafe()

	first, second := r.Host, r.Guest
	if m.firstMover() == 1 {
		first, second = second, first
	}
	r.playerX = first.Identity.UserID
	r.TurnOwner = r.playerX
	r.matchID = NewMatchID()
	r.startedAt = m.now()
	r.moves = 0
	r.eventSeq = 0

	score := r.scoreCopyUnsafe()
	for _, side := range []struct {
		slot, opp  *Slot
		role, turn string
	}{
		{first, second, protocol.RoleX, protocol.TurnYou},
		{second, first, protocol.RoleO, protocol.TurnOpponent},
	} {
		msg := protocol.NewGameStart()
		msg.MatchID = r.matchID
		msg.Role = side.role
		msg.Turn = side.turn
		msg.Opponent = *side.opp.view()
		msg.Board = r.Board.Clone()
		msg.BoardSize = r.Rules.BoardSize
		msg.RunLength = r.Rules.RunLength
		msg.TimeLimit = r.Settings.TimeLimit
		msg.Score = score
		side.slot.Identity.send(msg)
	}

	m.armClockUnsafe(r)
	m.publishUnsafe(r, r.playerX, models.EventGameStart, 0, 0, "")
	m.logger.WithFields(logrus.Fields{"room": r.Code, "match": r.matchID}).Infof("Game started, %s moves first", first.Identity.Username)
}

// ApplyMove places the caller's stone at (row, col) and advances or ends the game.
func (m *Manager) ApplyMove(caller *Identity, row, col int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkCallerUnsafe(caller); err != nil {
		return err
	}
	r, slot := m.roomOfUnsafe(caller)
	if r == nil || !r.inGameUnsafe() {
		return ErrGameNotStarted
	}
	if r.TurnOwner != caller.UserID {
		return ErrNotYourTurn
	}
	if !r.Board.InBounds(row, col) {
		return ErrOutOfBounds
	}
	if !r.Board.Empty(row, col) {
		return ErrCellOccupied
	}

	r.cancelClockUnsafe()

	r.Board[row][col] = caller.UserID
	r.moves++
	opp := r.opponentOfUnsafe(slot)
	opp.Identity.send(protocol.NewOpponentMove(row, col))
	m.publishUnsafe(r, caller.UserID, models.EventMove, row, col, "")

	switch {
	case game.CheckWin(r.Board, row, col, caller.UserID, r.Rules.RunLength):
		m.endGameUnsafe(r, slot, opp, outcomeWin)
	case game.IsFull(r.Board):
		m.endGameUnsafe(r, nil, nil, outcomeDraw)
	default:
		r.TurnOwner = opp.Identity.UserID
		m.armClockUnsafe(r)
	}
	return nil
}

// Surrender ends the caller's game immediately as a loss.
func (m *Manager) Surrender(caller *Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkCallerUnsafe(caller); err != nil {
		return err
	}
	r, slot := m.roomOfUnsafe(caller)
	if r == nil || !r.inGameUnsafe() {
		return ErrNoActiveGame
	}
	m.endGameUnsafe(r, r.opponentOfUnsafe(slot), slot, outcomeSurrender)
	return nil
}

// Chat relays a message to the caller's opponent. Empty messages are ignored.
func (m *Manager) Chat(caller *Identity, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkCallerUnsafe(caller); err != nil {
		return err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len([]rune(text)) > maxChatLength {
		return ErrChatTooLong
	}
	r, slot := m.roomOfUnsafe(caller)
	if r == nil {
		return ErrNotInRoom
	}
	if opp := r.opponentOfUnsafe(slot); opp != nil {
		opp.Identity.send(protocol.NewOpponentChat(caller.Username, text))
	}
	return nil
}

// UpdateSettings lets the host change the password and turn limit between games.
// Nil arguments leave the current value in place.
func (m *Manager) UpdateSettings(caller *Identity, password *string, timeLimit *int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkCallerUnsafe(caller); err != nil {
		return err
	}
	r, slot := m.roomOfUnsafe(caller)
	if r == nil {
		return ErrNotInRoom
	}
	if slot != r.Host {
		return ErrNotHost
	}
	if r.inGameUnsafe() {
		return ErrGameInProgress
	}
	if timeLimit != nil && !validTimeLimit(*timeLimit) {
		return fmt.Errorf("%w: time_limit must be between %d and %d", ErrInvalidSettings, MinTimeLimit, MaxTimeLimit)
	}

	if password != nil {
		r.Password = *password
	}
	if timeLimit != nil {
		r.Settings.TimeLimit = *timeLimit
	}

	snap := r.snapshotUnsafe()
	caller.send(protocol.NewSettingsUpdated(snap))
	if r.Guest != nil {
		r.Guest.Identity.send(protocol.NewSettingsChangedByHost(snap))
	}
	return nil
}

// Room returns the snapshot of a live room.
func (m *Manager) Room(code string) (protocol.RoomSnapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms.Get(code)
	if !ok {
		return protocol.RoomSnapshot{}, false
	}
	return r.snapshotUnsafe(), true
}

// RoomOf returns the code of the room the identity is seated in, or "".
func (m *Manager) RoomOf(id *Identity) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return id.roomCode
}

// RoomCount returns the number of live rooms.
func (m *Manager) RoomCount() int {
	return m.rooms.Len()
}
