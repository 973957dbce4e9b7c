// internal/protocol/inbound.go
package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Action is the discriminator of a client -> server message.
type Action string

const (
	ActionLogin           Action = "LOGIN"
	ActionRegister        Action = "REGISTER"
	ActionCreateRoom      Action = "CREATE_ROOM"
	ActionJoinRoom        Action = "JOIN_ROOM"
	ActionFindRoom        Action = "FIND_ROOM"
	ActionQuickJoin       Action = "QUICK_JOIN"
	ActionCancelQuickJoin Action = "CANCEL_QUICK_JOIN"
	ActionPlayerReady     Action = "PLAYER_READY"
	ActionLeaveRoom       Action = "LEAVE_ROOM"
	ActionMakeMove        Action = "MAKE_MOVE"
	ActionSurrender       Action = "SURRENDER"
	ActionRematch         Action = "REMATCH"
	ActionChat            Action = "CHAT"
	ActionUpdateSettings  Action = "UPDATE_SETTINGS"
	ActionLeaderboard     Action = "FETCH_LEADERBOARD"
	ActionHistory         Action = "FETCH_HISTORY"

	// aliases kept for older clients
	actionReady Action = "READY"
	actionMove  Action = "MOVE"
)

var (
	// ErrMalformed is returned when a frame is not a valid envelope or its payload does not fit the action.
	ErrMalformed = errors.New("malformed message")
	// ErrUnknownAction is returned for an action outside the supported set.
	ErrUnknownAction = errors.New("unsupported action")
)

// Envelope is the outer shape of every inbound frame.
type Envelope struct {
	Action  Action          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Request is one decoded inbound action.
type Request interface {
	Action() Action
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Token    string `json:"token"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CreateRoomRequest struct {
	Password string        `json:"password"`
	Settings *RoomSettings `json:"settings"`
	GameMode int           `json:"game_mode"`
}

type JoinRoomRequest struct {
	RoomID   string `json:"room_id"`
	Password string `json:"password"`
	GameMode int    `json:"game_mode"`
}

type FindRoomRequest struct {
	GameMode int `json:"game_mode"`
}

type QuickJoinRequest struct {
	GameMode int `json:"game_mode"`
}

type CancelQuickJoinRequest struct{}

// ReadyRequest sets the ready flag to IsReady, or flips it when IsReady is absent.
type ReadyRequest struct {
	IsReady *bool `json:"is_ready"`
}

type LeaveRoomRequest struct{}

type MoveRequest struct {
	Row *int `json:"row"`
	Col *int `json:"col"`
}

type SurrenderRequest struct{}

type RematchRequest struct{}

type ChatRequest struct {
	Message string `json:"message"`
}

// UpdateSettingsRequest changes only the fields that are present.
type UpdateSettingsRequest struct {
	Password  *string `json:"password"`
	TimeLimit *int    `json:"time_limit"`
}

type LeaderboardRequest struct {
	Limit int `json:"limit"`
}

type HistoryRequest struct {
	Limit int `json:"limit"`
}

func (LoginRequest) Action() Action           { return ActionLogin }
func (RegisterRequest) Action() Action        { return ActionRegister }
func (CreateRoomRequest) Action() Action      { return ActionCreateRoom }
func (JoinRoomRequest) Action() Action        { return ActionJoinRoom }
func (FindRoomRequest) Action() Action        { return ActionFindRoom }
func (QuickJoinRequest) Action() Action       { return ActionQuickJoin }
func (CancelQuickJoinRequest) Action() Action { return ActionCancelQuickJoin }
func (ReadyRequest) Action() Action           { return ActionPlayerReady }
func (LeaveRoomRequest) Action() Action       { return ActionLeaveRoom }
func (MoveRequest) Action() Action            { return ActionMakeMove }
func (SurrenderRequest) Action() Action       { return ActionSurrender }
func (RematchRequest) Action() Action         { return ActionRematch }
func (ChatRequest) Action() Action            { return ActionChat }
func (UpdateSettingsRequest) Action() Action  { return ActionUpdateSettings }
func (LeaderboardRequest) Action() Action     { return ActionLeaderboard }
func (HistoryRequest) Action() Action         { return ActionHistory }

// Decode parses one inbound frame into its typed request.
func Decode(data []byte) (Request, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Action == "" {
		return nil, fmt.Errorf("%w: missing action", ErrMalformed)
	}

	p := env.Payload
	switch env.Action {
	case ActionLogin:
		return decodeAs[LoginRequest](env.Action, p)
	case ActionRegister:
		return decodeAs[RegisterRequest](env.Action, p)
	case ActionCreateRoom:
		return decodeAs[CreateRoomRequest](env.Action, p)
	case ActionJoinRoom:
		return decodeAs[JoinRoomRequest](env.Action, p)
	case ActionFindRoom:
		return decodeAs[FindRoomRequest](env.Action, p)
	case ActionQuickJoin:
		return decodeAs[QuickJoinRequest](env.Action, p)
	case ActionCancelQuickJoin:
		return decodeAs[CancelQuickJoinRequest](env.Action, p)
	case ActionPlayerReady, actionReady:
		return decodeAs[ReadyRequest](env.Action, p)
	case ActionLeaveRoom:
		return decodeAs[LeaveRoomRequest](env.Action, p)
	case ActionMakeMove, actionMove:
		req, err := decodeAs[MoveRequest](env.Action, p)
		if err != nil {
			return nil, err
		}
		if mv := req.(MoveRequest); mv.Row == nil || mv.Col == nil {
			return nil, fmt.Errorf("%w: %s requires row and col", ErrMalformed, env.Action)
		}
		return req, nil
	case ActionSurrender:
		return decodeAs[SurrenderRequest](env.Action, p)
	case ActionRematch:
		return decodeAs[RematchRequest](env.Action, p)
	case ActionChat:
		return decodeAs[ChatRequest](env.Action, p)
	case ActionUpdateSettings:
		return decodeAs[UpdateSettingsRequest](env.Action, p)
	case ActionLeaderboard:
		return decodeAs[LeaderboardRequest](env.Action, p)
	case ActionHistory:
		return decodeAs[HistoryRequest](env.Action, p)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAction, env.Action)
}

// decodeAs unmarshals an optional payload into T. A missing or null payload leaves T zero.
func decodeAs[T Request](action Action, payload json.RawMessage) (Request, error) {
	var req T
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 || bytes.Equal(payload, []byte("null")) {
		return req, nil
	}
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("%w: %s payload: %v", ErrMalformed, action, err)
	}
	return req, nil
}
