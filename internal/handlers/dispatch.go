// internal/handlers/dispatch.go
package handlers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jason-s-yu/caro/internal/database"
	"github.com/jason-s-yu/caro/internal/game"
	"github.com/jason-s-yu/caro/internal/lobby"
	"github.com/jason-s-yu/caro/internal/models"
	"github.com/jason-s-yu/caro/internal/protocol"
	"github.com/sirupsen/logrus"
)

const (
	queryTimeout   = 5 * time.Second
	genericError   = "internal server error"
	maxUsernameLen = 50
	minPasswordLen = 4
)

// session is the per-connection state. identity is nil until LOGIN succeeds.
type session struct {
	client   *wsClient
	identity *lobby.Identity
	logger   *logrus.Entry
}

func (sess *session) send(msg protocol.Message) {
	sess.client.Send(msg)
}

// clientError maps an operation error to the message shown to the client. Precondition errors keep
// their text; anything else is logged and reported generically.
func clientError(sess *session, err error) string {
	switch {
	case errors.Is(err, protocol.ErrMalformed),
		errors.Is(err, protocol.ErrUnknownAction),
		errors.Is(err, game.ErrInvalidMode),
		errors.Is(err, lobby.ErrInvalidSettings):
		return err.Error()
	}
	for _, known := range []error{
		lobby.ErrRoomNotFound, lobby.ErrRoomFull, lobby.ErrWrongPassword, lobby.ErrModeMismatch,
		lobby.ErrNotYourTurn, lobby.ErrOutOfBounds, lobby.ErrCellOccupied, lobby.ErrAlreadyQueued,
		lobby.ErrGameNotStarted, lobby.ErrNoActiveGame, lobby.ErrNotInRoom, lobby.ErrAlreadyInRoom,
		lobby.ErrNotHost, lobby.ErrGameInProgress, lobby.ErrNotLoggedIn, lobby.ErrChatTooLong,
		database.ErrUsernameTaken, database.ErrInvalidCredentials, database.ErrUserNotFound,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	sess.logger.Errorf("Request failed: %v", err)
	return genericError
}

// dispatch handles one inbound frame. A panic is contained to this frame and answered with a generic ERROR.
func (s *Server) dispatch(ctx context.Context, sess *session, data []byte) {
	defer func() {
		if rec := recover(); rec != nil {
			sess.logger.Errorf("Recovered from panic while handling message: %v", rec)
			sess.send(protocol.NewError(genericError))
		}
	}()

	req, err := protocol.Decode(data)
	if err != nil {
		sess.send(protocol.NewError(clientError(sess, err)))
		return
	}

	if err := s.handle(ctx, sess, req); err != nil {
		sess.send(protocol.NewError(clientError(sess, err)))
	}
}

func (s *Server) handle(ctx context.Context, sess *session, req protocol.Request) error {
	switch r := req.(type) {
	case protocol.RegisterRequest:
		return s.register(ctx, sess, r)
	case protocol.LoginRequest:
		return s.login(ctx, sess, r)
	}

	id := sess.identity
	if id == nil {
		return lobby.ErrNotLoggedIn
	}

	m := s.Manager
	switch r := req.(type) {
	case protocol.CreateRoomRequest:
		_, err := m.CreateRoom(id, r.Password, r.Settings, game.Mode(r.GameMode))
		return err

	case protocol.JoinRoomRequest:
		filter, err := game.ParseFilter(r.GameMode)
		if err != nil {
			return err
		}
		if strings.TrimSpace(r.RoomID) == "" {
			return lobby.ErrRoomNotFound
		}
		_, err = m.JoinRoom(id, r.RoomID, r.Password, filter)
		return err

	case protocol.FindRoomRequest:
		filter, err := game.ParseFilter(r.GameMode)
		if err != nil {
			return err
		}
		sess.send(protocol.NewRoomList(m.ListWaitingRooms(filter)))
		return nil

	case protocol.QuickJoinRequest:
		filter, err := game.ParseFilter(r.GameMode)
		if err != nil {
			return err
		}
		return m.QuickJoin(id, filter)

	case protocol.CancelQuickJoinRequest:
		m.CancelQuickJoin(id)
		return nil

	case protocol.ReadyRequest:
		return m.SetReady(id, r.IsReady)

	case protocol.LeaveRoomRequest:
		m.LeaveRoom(id)
		return nil

	case protocol.MoveRequest:
		return m.ApplyMove(id, *r.Row, *r.Col)

	case protocol.SurrenderRequest:
		return m.Surrender(id)

	case protocol.RematchRequest:
		return m.RequestRematch(id)

	case protocol.ChatRequest:
		return m.Chat(id, r.Message)

	case protocol.UpdateSettingsRequest:
		return m.UpdateSettings(id, r.Password, r.TimeLimit)

	case protocol.LeaderboardRequest:
		qctx, cancel := context.WithTimeout(ctx, queryTimeout)
		defer cancel()
		entries, err := s.Stats.Leaderboard(qctx, r.Limit)
		if err != nil {
			return err
		}
		sess.send(protocol.NewLeaderboard(entries))
		return nil

	case protocol.HistoryRequest:
		qctx, cancel := context.WithTimeout(ctx, queryTimeout)
		defer cancel()
		matches, err := s.Stats.History(qctx, id.UserID, r.Limit)
		if err != nil {
			return err
		}
		sess.send(protocol.NewMatchHistory(matches))
		return nil
	}

	return protocol.ErrUnknownAction
}

func validCredentials(username, password string) bool {
	username = strings.TrimSpace(username)
	return username != "" && len([]rune(username)) <= maxUsernameLen && len(password) >= minPasswordLen
}

func (s *Server) register(ctx context.Context, sess *session, r protocol.RegisterRequest) error {
	if !validCredentials(r.Username, r.Password) {
		return database.ErrInvalidCredentials
	}
	qctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	u, err := s.Accounts.CreateUser(qctx, r.Username, r.Password)
	if err != nil {
		return err
	}
	sess.logger.WithField("user", u.ID).Infof("Registered %s", u.Username)
	sess.send(protocol.NewRegisterSuccess(u))
	return nil
}

// login authenticates by token or by username and password, then binds the connection to the account.
// Logging in as a different account first releases the previous one; an older connection of the same
// account is evicted by the manager.
func (s *Server) login(ctx context.Context, sess *session, r protocol.LoginRequest) error {
	qctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var (
		u   *models.User
		err error
	)
	if r.Token != "" {
		userID, verr := s.Tokens.Verify(r.Token)
		if verr != nil {
			return database.ErrInvalidCredentials
		}
		u, err = s.Accounts.GetUserByID(qctx, userID)
	} else {
		u, err = s.Accounts.AuthenticateUser(qctx, r.Username, r.Password)
	}
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return database.ErrInvalidCredentials
		}
		return err
	}

	token, err := s.Tokens.Issue(u.ID)
	if err != nil {
		return err
	}

	if sess.identity == nil || sess.identity.UserID != u.ID {
		if sess.identity != nil {
			s.Manager.Disconnect(sess.identity)
		}
		sess.identity = lobby.NewIdentity(sess.client, u.ID, u.Username)
		sess.logger = sess.logger.WithField("user", u.ID)
		s.Manager.Login(sess.identity)
	}
	sess.send(protocol.NewLoginSuccess(u, token))
	return nil
}
