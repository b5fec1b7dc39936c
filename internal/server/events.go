package server

import (
	"encoding/json"
	"time"

	"github.com/cardarena/arena-server-go/internal/game"
)

// Inbound event names.
const (
	EventWaitingPlayer = "WAITING_PLAYER"
	EventWaitingCards  = "WAITING_CARDS"
	EventSendAction    = "SEND_ACTION"
	EventEndTurn       = "END_TURN"
	EventSendMessage   = "SEND_MESSAGE"
	EventUserSelect    = "ON_USER_SELECT"
)

// Outbound event names.
const (
	EventCardSelection        = "CARD_SELECTION"
	EventGameStarts           = "GAME_STARTS"
	EventStartTurn            = "START_TURN"
	EventActionSuccess        = "ACTION_SUCCESS"
	EventActionFailed         = "ACTION_FAILED"
	EventReceiveAction        = "RECEIVE_ACTION"
	EventGameOver             = "GAME_OVER"
	EventUpdateConnectedUsers = "UPDATE_CONNECTED_USERS"
	EventReceiveMessage       = "RECEIVE_MESSAGE"
	EventUserNotConnected     = "USER_NOT_CONNECTED"
	EventUserSelected         = "ON_USER_SELECTED"
)

// envelope is the wire frame carrying every event in both directions.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// outEnvelope is the outbound counterpart; Data is marshaled as-is.
type outEnvelope struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Inbound payloads. One fixed-shape struct per event name.

type waitingPlayerData struct {
	ID int64 `json:"id"`
}

type waitingCardsData struct {
	ID    int64           `json:"id"`
	Cards []game.CardData `json:"cards"`
}

type actionData struct {
	UserID   int64 `json:"userId"`
	CardID   int64 `json:"cardId"`
	TargetID int64 `json:"targetId"`
}

type endTurnData struct {
	ID int64 `json:"id"`
}

type messageData struct {
	SenderID   int64  `json:"senderId"`
	ReceiverID int64  `json:"receiverId"`
	Message    string `json:"message"`
}

type userSelectData struct {
	SenderID   int64 `json:"senderId"`
	ReceiverID int64 `json:"receiverId"`
}

// Outbound payloads.

type cardSelectionSelf struct {
	EnemyID int64 `json:"enemyId"`
}

type cardSelectionEnemy struct {
	UserID int64 `json:"userId"`
}

type gameStartsData struct {
	CardsIDs []int64 `json:"cardsIds"`
}

type actionResultData struct {
	CardID   int64   `json:"cardId"`
	TargetID int64   `json:"targetId"`
	Damage   float64 `json:"damage"`
}

type actionFailedData struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

type gameOverData struct {
	Result string `json:"result"`
	Award  int    `json:"award"`
}

type receiveMessageData struct {
	SenderID  int64     `json:"senderId"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type userNotConnectedData struct {
	ReceiverID int64  `json:"receiverId"`
	Message    string `json:"message"`
}

type userSelectedData struct {
	Participants [2]int64      `json:"participants"`
	Messages     []chatMessage `json:"messages"`
}

type chatMessage struct {
	Sender    int64     `json:"sender"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Game-over results and awards.
const (
	resultWin       = "win"
	resultLose      = "lose"
	resultForfeited = "forfeited"

	winnerAward = 100
)
