package server

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/cardarena/arena-server-go/internal/chat"
	"github.com/cardarena/arena-server-go/internal/game"
	"github.com/cardarena/arena-server-go/internal/user"
)

// client is one bound connection as the dispatcher sees it: an identity
// plus an outbound endpoint.
type client interface {
	user.Endpoint
	UserID() int64
}

// handleEvent routes one inbound frame to exactly one core operation. Each
// event is handled to completion before the connection reads the next one.
func (s *Server) handleEvent(c client, data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		s.logger.Warn("malformed event frame", zap.Error(err))
		return
	}

	switch env.Event {
	case EventWaitingPlayer:
		s.handleWaitingPlayer(c)
	case EventWaitingCards:
		s.handleWaitingCards(c, env.Data)
	case EventSendAction:
		s.handleSendAction(c, env.Data)
	case EventEndTurn:
		s.handleEndTurn(c)
	case EventSendMessage:
		s.handleSendMessage(c, env.Data)
	case EventUserSelect:
		s.handleUserSelect(c, env.Data)
	default:
		s.logger.Warn("unknown event", zap.String("event", env.Event))
	}
}

// sendTo emits an event to a resolved endpoint, reporting delivery problems
// in the log only. Emission is never retried.
func (s *Server) sendTo(id int64, event string, payload any) {
	ep, ok := s.registry.Resolve(id)
	if !ok {
		s.logger.Warn("endpoint not found",
			zap.Int64("user_id", id),
			zap.String("event", event),
		)
		return
	}
	if err := ep.Send(event, payload); err != nil {
		s.logger.Warn("event dropped",
			zap.Int64("user_id", id),
			zap.String("event", event),
			zap.Error(err),
		)
	}
}

func (s *Server) sendError(c client, code game.ActionCode, message string) {
	if err := c.Send(EventActionFailed, actionFailedData{Message: message, Code: int(code)}); err != nil {
		s.logger.Warn("error event dropped", zap.Error(err))
	}
}

// handleWaitingPlayer enqueues the user or pairs it with the
// longest-waiting opponent. A match prompts both sides for deck submission.
func (s *Server) handleWaitingPlayer(c client) {
	opponent, battle, err := s.games.EnqueueOrMatch(c.UserID())
	if err != nil {
		s.logger.Warn("matchmaking rejected", zap.Error(err))
		s.sendError(c, 0, err.Error())
		return
	}
	if battle == nil {
		return // queued, waiting for an opponent
	}

	s.sendTo(opponent, EventCardSelection, cardSelectionEnemy{UserID: c.UserID()})
	s.sendTo(c.UserID(), EventCardSelection, cardSelectionSelf{EnemyID: opponent})

	s.bus.Publish(context.Background(), "BATTLE_CREATED", map[string]any{
		"battleId": battle.ID(),
		"users":    []int64{c.UserID(), opponent},
	})
}

// handleWaitingCards stores the submitted deck. When the second deck lands
// the battle starts: both sides learn the opposing card ids and the coin
// flip winner receives the first turn.
func (s *Server) handleWaitingCards(c client, raw json.RawMessage) {
	var data waitingCardsData
	if err := json.Unmarshal(raw, &data); err != nil {
		s.logger.Warn("malformed deck submission", zap.Error(err))
		s.sendError(c, 0, "malformed deck submission")
		return
	}

	battle, ok := s.games.Find(c.UserID())
	if !ok {
		s.sendError(c, 0, "no battle to submit a deck for")
		return
	}

	started, err := battle.SubmitDeck(c.UserID(), data.Cards)
	if err != nil {
		s.logger.Warn("deck rejected", zap.Error(err))
		s.sendError(c, 0, err.Error())
		// Re-prompt: no partial deck is ever kept.
		s.sendTo(c.UserID(), EventCardSelection, cardSelectionSelf{EnemyID: battle.Opponent(c.UserID())})
		return
	}
	if !started {
		return // waiting for the opponent's deck
	}

	opponent := battle.Opponent(c.UserID())
	s.sendTo(opponent, EventGameStarts, gameStartsData{CardsIDs: battle.CardIDs(c.UserID())})
	s.sendTo(c.UserID(), EventGameStarts, gameStartsData{CardsIDs: battle.CardIDs(opponent)})
	s.sendTo(battle.TurnHolder(), EventStartTurn, nil)

	s.logger.Info("battle started",
		zap.String("battle_id", battle.ID()),
		zap.Int64("first_turn", battle.TurnHolder()),
	)
}

// handleSendAction resolves an attack and reports the outcome to both
// sides. A terminal outcome ends the battle and releases both participants.
func (s *Server) handleSendAction(c client, raw json.RawMessage) {
	var data actionData
	if err := json.Unmarshal(raw, &data); err != nil {
		s.logger.Warn("malformed action", zap.Error(err))
		s.sendError(c, 0, "malformed action")
		return
	}

	battle, ok := s.games.Find(c.UserID())
	if !ok {
		s.sendError(c, game.CodeActorDeckNotFound, "user deck could not be found")
		return
	}

	damage, actErr := battle.ResolveAction(c.UserID(), data.CardID, data.TargetID)
	if actErr != nil {
		s.logger.Warn("action failed",
			zap.String("battle_id", battle.ID()),
			zap.String("code", actErr.Code.String()),
		)
		s.sendError(c, actErr.Code, actErr.Message)
		return
	}

	result := actionResultData{CardID: data.CardID, TargetID: data.TargetID, Damage: damage}
	s.sendTo(c.UserID(), EventActionSuccess, result)
	opponent := battle.Opponent(c.UserID())
	s.sendTo(opponent, EventReceiveAction, result)

	winner, over := battle.CheckOutcome()
	if !over {
		return
	}

	loser := battle.Opponent(winner)
	s.sendTo(winner, EventGameOver, gameOverData{Result: resultWin, Award: winnerAward})
	s.sendTo(loser, EventGameOver, gameOverData{Result: resultLose, Award: 0})
	s.games.DetachByParticipant(winner)

	s.logger.Info("battle finished",
		zap.String("battle_id", battle.ID()),
		zap.Int64("winner", winner),
	)
	s.bus.Publish(context.Background(), EventGameOver, map[string]any{
		"battleId": battle.ID(),
		"winner":   winner,
	})
}

// handleEndTurn passes the turn to the opponent.
func (s *Server) handleEndTurn(c client) {
	battle, ok := s.games.Find(c.UserID())
	if !ok {
		return
	}
	if actErr := battle.EndTurn(c.UserID()); actErr != nil {
		s.sendError(c, actErr.Code, actErr.Message)
		return
	}
	s.sendTo(battle.Opponent(c.UserID()), EventStartTurn, nil)
}

// handleSendMessage stores and routes a chat message. Receiver 0 broadcasts
// to every connected user except the sender. An unreachable receiver is
// reported to the sender only.
func (s *Server) handleSendMessage(c client, raw json.RawMessage) {
	var data messageData
	if err := json.Unmarshal(raw, &data); err != nil {
		s.logger.Warn("malformed chat message", zap.Error(err))
		return
	}

	msg := chat.Message{
		Sender:    c.UserID(),
		Message:   data.Message,
		Timestamp: time.Now().UTC(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if data.ReceiverID == user.BroadcastID {
		if err := s.chats.Append(ctx, c.UserID(), user.BroadcastID, msg); err != nil {
			s.logger.Error("chat append failed", zap.Error(err))
		}
		out := receiveMessageData{SenderID: c.UserID(), Message: data.Message, Timestamp: msg.Timestamp}
		for _, ep := range s.registry.Endpoints(c.UserID()) {
			if err := ep.Send(EventReceiveMessage, out); err != nil {
				s.logger.Debug("broadcast message dropped", zap.Error(err))
			}
		}
		return
	}

	if _, ok := s.registry.Resolve(data.ReceiverID); !ok {
		c.Send(EventUserNotConnected, userNotConnectedData{
			ReceiverID: data.ReceiverID,
			Message:    "The user you are trying to reach is not online.",
		})
		return
	}

	if err := s.chats.Append(ctx, c.UserID(), data.ReceiverID, msg); err != nil {
		s.logger.Error("chat append failed", zap.Error(err))
	}
	s.sendTo(data.ReceiverID, EventReceiveMessage, receiveMessageData{
		SenderID:  c.UserID(),
		Message:   data.Message,
		Timestamp: msg.Timestamp,
	})
}

// handleUserSelect validates a chat partner selection and returns the
// transcript history.
func (s *Server) handleUserSelect(c client, raw json.RawMessage) {
	var data userSelectData
	if err := json.Unmarshal(raw, &data); err != nil {
		s.logger.Warn("malformed user selection", zap.Error(err))
		return
	}

	if data.ReceiverID == c.UserID() {
		c.Send(EventUserNotConnected, userNotConnectedData{
			ReceiverID: data.ReceiverID,
			Message:    "You cannot select yourself as the receiver.",
		})
		return
	}
	if !s.registry.Known(data.ReceiverID) {
		c.Send(EventUserNotConnected, userNotConnectedData{
			ReceiverID: data.ReceiverID,
			Message:    "The user you are trying to contact is not connected.",
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conv, err := s.chats.History(ctx, c.UserID(), data.ReceiverID)
	if err != nil {
		s.logger.Error("chat history lookup failed", zap.Error(err))
		return
	}

	messages := make([]chatMessage, 0, len(conv.Messages))
	for _, m := range conv.Messages {
		messages = append(messages, chatMessage{Sender: m.Sender, Message: m.Message, Timestamp: m.Timestamp})
	}
	c.Send(EventUserSelected, userSelectedData{
		Participants: conv.Participants,
		Messages:     messages,
	})
}

// handleDisconnect tears down one connection: chat transcripts first, then
// forfeit of any active battle, then registry removal, then a presence
// broadcast to everyone left.
func (s *Server) handleDisconnect(c client) {
	// A reconnect replaces the endpoint wholesale; only the connection that
	// still owns the registry entry may tear the identity down.
	if ep, ok := s.registry.Resolve(c.UserID()); ok {
		if ep != user.Endpoint(c) {
			s.logger.Debug("stale connection closed after reconnect")
			return
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.chats.RemoveByParticipant(ctx, c.UserID()); err != nil {
		s.logger.Error("chat cleanup failed", zap.Error(err))
	}

	if battle, ok := s.games.DetachByParticipant(c.UserID()); ok {
		opponent := battle.Opponent(c.UserID())
		s.sendTo(opponent, EventGameOver, gameOverData{Result: resultForfeited, Award: 0})
		s.logger.Info("battle forfeited",
			zap.String("battle_id", battle.ID()),
			zap.Int64("user_id", c.UserID()),
			zap.Int64("opponent_id", opponent),
		)
		s.bus.Publish(context.Background(), EventGameOver, map[string]any{
			"battleId":  battle.ID(),
			"winner":    opponent,
			"forfeited": true,
		})
	}
	s.games.CancelWait(c.UserID())

	s.registry.Unregister(c.UserID())
	s.logger.Info("user disconnected", zap.Int64("user_id", c.UserID()))
	s.broadcastPresence()
}
