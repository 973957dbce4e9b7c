// internal/protocol/outbound.go
package protocol

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/caro/internal/game"
	"github.com/jason-s-yu/caro/internal/models"
)

// Status is the discriminator of a server -> client message.
type Status string

const (
	StatusLoginSuccess          Status = "LOGIN_SUCCESS"
	StatusRegisterSuccess       Status = "REGISTER_SUCCESS"
	StatusRoomCreated           Status = "ROOM_CREATED"
	StatusJoinSuccess           Status = "JOIN_SUCCESS"
	StatusRoomList              Status = "ROOM_LIST"
	StatusWaitingForMatch       Status = "WAITING_FOR_MATCH"
	StatusQuickJoinCancelled    Status = "QUICK_JOIN_CANCELLED"
	StatusOpponentJoined        Status = "OPPONENT_JOINED"
	StatusOpponentLeft          Status = "OPPONENT_LEFT"
	StatusOpponentReady         Status = "OPPONENT_READY"
	StatusGameStart             Status = "GAME_START"
	StatusOpponentMove          Status = "OPPONENT_MOVE"
	StatusGameOver              Status = "GAME_OVER"
	StatusOpponentRematch       Status = "OPPONENT_REMATCH"
	StatusOpponentChat          Status = "OPPONENT_CHAT"
	StatusSettingsUpdated       Status = "SETTINGS_UPDATED"
	StatusSettingsChangedByHost Status = "SETTINGS_CHANGED_BY_HOST"
	StatusLeftRoom              Status = "LEFT_ROOM"
	StatusForceLogout           Status = "FORCE_LOGOUT"
	StatusLeaderboard           Status = "LEADERBOARD"
	StatusMatchHistory          Status = "MATCH_HISTORY"
	StatusError                 Status = "ERROR"
)

// Result is the per-player outcome carried by GAME_OVER.
type Result string

const (
	ResultWin             Result = "WIN"
	ResultLose            Result = "LOSE"
	ResultDraw            Result = "DRAW"
	ResultTimeoutWin      Result = "TIMEOUT_WIN"
	ResultTimeoutLose     Result = "TIMEOUT_LOSE"
	ResultOpponentLeftWin Result = "OPPONENT_LEFT_WIN"
)

// Message is one outbound status frame.
type Message interface {
	Kind() Status
}

// Header carries the status discriminator and is embedded in every outbound message.
type Header struct {
	Status Status `json:"status"`
}

func (h Header) Kind() Status { return h.Status }

// RoomSettings are the host-adjustable settings of a room.
type RoomSettings struct {
	TimeLimit int `json:"time_limit"` // seconds per turn
}

// PlayerView is a slot as shown to clients.
type PlayerView struct {
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
	IsReady  bool      `json:"is_ready"`
}

// RoomSnapshot is the transport-safe view of a room. It never carries connection handles or the password.
type RoomSnapshot struct {
	RoomID      string            `json:"room_id"`
	GameMode    game.Mode         `json:"game_mode"`
	BoardSize   int               `json:"board_size"`
	RunLength   int               `json:"run_length"`
	HasPassword bool              `json:"has_password"`
	Settings    RoomSettings      `json:"settings"`
	Player1     *PlayerView       `json:"player1"`
	Player2     *PlayerView       `json:"player2"`
	InGame      bool              `json:"in_game"`
	Score       map[uuid.UUID]int `json:"score"`
}

// RoomSummary is one entry of ROOM_LIST.
type RoomSummary struct {
	RoomID      string       `json:"room_id"`
	HostName    string       `json:"host_name"`
	HasPassword bool         `json:"has_password"`
	GameMode    game.Mode    `json:"game_mode"`
	Settings    RoomSettings `json:"settings"`
}

// Move is a board coordinate.
type Move struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

type LoginSuccess struct {
	Header
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
	Token    string    `json:"token"`
	Wins     int       `json:"wins"`
	Draws    int       `json:"draws"`
	Losses   int       `json:"losses"`
}

type RegisterSuccess struct {
	Header
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
}

type RoomCreated struct {
	Header
	RoomID   string       `json:"room_id"`
	RoomData RoomSnapshot `json:"room_data"`
}

type JoinSuccess struct {
	Header
	Message  string       `json:"message,omitempty"`
	RoomData RoomSnapshot `json:"room_data"`
}

type RoomList struct {
	Header
	Rooms []RoomSummary `json:"rooms"`
}

type WaitingForMatch struct {
	Header
	GameMode game.Mode `json:"game_mode"`
}

type QuickJoinCancelled struct {
	Header
}

type OpponentJoined struct {
	Header
	Opponent PlayerView   `json:"opponent"`
	RoomData RoomSnapshot `json:"room_data"`
}

type OpponentLeft struct {
	Header
	RoomData RoomSnapshot `json:"room_data"`
}

type OpponentReady struct {
	Header
	IsReady bool `json:"is_ready"`
}

// GameStart is sent to each side with its own Role ("X" moves first) and Turn ("YOU" or "OPPONENT").
type GameStart struct {
	Header
	MatchID   string            `json:"match_id"`
	Role      string            `json:"role"`
	Turn      string            `json:"turn"`
	Opponent  PlayerView        `json:"opponent"`
	Board     game.Board        `json:"board"`
	BoardSize int               `json:"board_size"`
	RunLength int               `json:"run_length"`
	TimeLimit int               `json:"time_limit"`
	Score     map[uuid.UUID]int `json:"score"`
}

type OpponentMove struct {
	Header
	Move Move `json:"move"`
}

type GameOver struct {
	Header
	Result Result            `json:"result"`
	Score  map[uuid.UUID]int `json:"score"`
}

type OpponentRematch struct {
	Header
	IsReady bool `json:"is_ready"`
}

type OpponentChat struct {
	Header
	Sender  string `json:"sender"`
	Message string `json:"message"`
}

type SettingsUpdated struct {
	Header
	RoomData RoomSnapshot `json:"room_data"`
}

type LeftRoom struct {
	Header
	RoomID string `json:"room_id"`
}

type ForceLogout struct {
	Header
	Message string `json:"message"`
}

type Leaderboard struct {
	Header
	Entries []models.LeaderboardEntry `json:"entries"`
}

type MatchHistory struct {
	Header
	Matches []models.MatchHistoryEntry `json:"matches"`
}

type Error struct {
	Header
	Message string `json:"message"`
}

const (
	RoleX        = "X"
	RoleO        = "O"
	TurnYou      = "YOU"
	TurnOpponent = "OPPONENT"
)

func header(s Status) Header { return Header{Status: s} }

func NewLoginSuccess(u *models.User, token string) LoginSuccess {
	return LoginSuccess{Header: header(StatusLoginSuccess), UserID: u.ID, Username: u.Username, Token: token,
		Wins: u.Wins, Draws: u.Draws, Losses: u.Losses}
}

func NewRegisterSuccess(u *models.User) RegisterSuccess {
	return RegisterSuccess{Header: header(StatusRegisterSuccess), UserID: u.ID, Username: u.Username}
}

func NewRoomCreated(snap RoomSnapshot) RoomCreated {
	return RoomCreated{Header: header(StatusRoomCreated), RoomID: snap.RoomID, RoomData: snap}
}

func NewJoinSuccess(snap RoomSnapshot, msg string) JoinSuccess {
	return JoinSuccess{Header: header(StatusJoinSuccess), Message: msg, RoomData: snap}
}

func NewRoomList(rooms []RoomSummary) RoomList {
	if rooms == nil {
		rooms = []RoomSummary{}
	}
	return RoomList{Header: header(StatusRoomList), Rooms: rooms}
}

func NewWaitingForMatch(mode game.Mode) WaitingForMatch {
	return WaitingForMatch{Header: header(StatusWaitingForMatch), GameMode: mode}
}

func NewQuickJoinCancelled() QuickJoinCancelled {
	return QuickJoinCancelled{Header: header(StatusQuickJoinCancelled)}
}

func NewOpponentJoined(opponent PlayerView, snap RoomSnapshot) OpponentJoined {
	return OpponentJoined{Header: header(StatusOpponentJoined), Opponent: opponent, RoomData: snap}
}

func NewOpponentLeft(snap RoomSnapshot) OpponentLeft {
	return OpponentLeft{Header: header(StatusOpponentLeft), RoomData: snap}
}

func NewOpponentReady(ready bool) OpponentReady {
	return OpponentReady{Header: header(StatusOpponentReady), IsReady: ready}
}

func NewGameStart() GameStart {
	return GameStart{Header: header(StatusGameStart)}
}

func NewOpponentMove(row, col int) OpponentMove {
	return OpponentMove{Header: header(StatusOpponentMove), Move: Move{Row: row, Col: col}}
}

func NewGameOver(result Result, score map[uuid.UUID]int) GameOver {
	return GameOver{Header: header(StatusGameOver), Result: result, Score: score}
}

func NewOpponentRematch(ready bool) OpponentRematch {
	return OpponentRematch{Header: header(StatusOpponentRematch), IsReady: ready}
}

func NewOpponentChat(sender, msg string) OpponentChat {
	return OpponentChat{Header: header(StatusOpponentChat), Sender: sender, Message: msg}
}

func NewSettingsUpdated(snap RoomSnapshot) SettingsUpdated {
	return SettingsUpdated{Header: header(StatusSettingsUpdated), RoomData: snap}
}

func NewSettingsChangedByHost(snap RoomSnapshot) SettingsUpdated {
	return SettingsUpdated{Header: header(StatusSettingsChangedByHost), RoomData: snap}
}

func NewLeftRoom(code string) LeftRoom {
	return LeftRoom{Header: header(StatusLeftRoom), RoomID: code}
}

func NewForceLogout(msg string) ForceLogout {
	return ForceLogout{Header: header(StatusForceLogout), Message: msg}
}

func NewLeaderboard(entries []models.LeaderboardEntry) Leaderboard {
	if entries == nil {
		entries = []models.LeaderboardEntry{}
	}
	return Leaderboard{Header: header(StatusLeaderboard), Entries: entries}
}

func NewMatchHistory(matches []models.MatchHistoryEntry) MatchHistory {
	if matches == nil {
		matches = []models.MatchHistoryEntry{}
	}
	return MatchHistory{Header: header(StatusMatchHistory), Matches: matches}
}

func NewError(msg string) Error {
	return Error{Header: header(StatusError), Message: msg}
}
