package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/xoxo-backend/internal/entity"
	"github.com/rocketscienceinc/xoxo-backend/internal/session"
)

const (
	actionGameNew    = "game:new"
	actionGameJoin   = "game:join"
	actionGameTurn   = "game:turn"
	actionGameLeave  = "game:leave"
	actionGameState  = "game:state"
	actionGameUpdate = "game:update"
)

var ErrUnknownAction = errors.New("unknown action")

// dispatch - routes one client message to its handler. Only transport
// failures propagate; protocol errors go back to the client in-band.
func (that *Server) dispatch(ctx context.Context, client *client, engine *session.Engine, msg *Message) error {
	switch msg.Action {
	case actionGameNew:
		return that.handleNewGame(ctx, client, engine, msg)
	case actionGameJoin:
		return that.handleJoinGame(ctx, client, engine, msg)
	case actionGameTurn:
		return that.handleGameTurn(ctx, client, engine, msg)
	case actionGameLeave:
		return that.handleGameLeave(ctx, client, engine, msg)
	case actionGameState:
		return client.send(&Response{Action: msg.Action, Payload: statePayload(engine)})
	default:
		return client.send(&Response{Action: msg.Action, Error: fmt.Sprintf("%v: %s", ErrUnknownAction, msg.Action)})
	}
}

func (that *Server) handleNewGame(ctx context.Context, client *client, engine *session.Engine, msg *Message) error {
	if _, err := engine.CreateRoom(ctx); err != nil {
		return client.send(&Response{Action: msg.Action, Error: err.Error()})
	}

	return client.send(&Response{Action: msg.Action, Payload: statePayload(engine)})
}

func (that *Server) handleJoinGame(ctx context.Context, client *client, engine *session.Engine, msg *Message) error {
	var payload JoinPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return client.send(&Response{Action: msg.Action, Error: "room code is required"})
	}

	if err := engine.JoinRoom(ctx, payload.Room.Code); err != nil {
		return client.send(&Response{Action: msg.Action, Error: err.Error()})
	}

	return client.send(&Response{Action: msg.Action, Payload: statePayload(engine)})
}

func (that *Server) handleGameTurn(ctx context.Context, client *client, engine *session.Engine, msg *Message) error {
	var payload TurnPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return client.send(&Response{Action: msg.Action, Error: "cell is required"})
	}

	if err := engine.MakeMove(ctx, payload.Cell); err != nil {
		return client.send(&Response{Action: msg.Action, Error: err.Error()})
	}

	return client.send(&Response{Action: msg.Action, Payload: statePayload(engine)})
}

func (that *Server) handleGameLeave(ctx context.Context, client *client, engine *session.Engine, msg *Message) error {
	engine.LeaveRoom(ctx)

	return client.send(&Response{Action: msg.Action, Payload: statePayload(engine)})
}

// statePayload - the current session snapshot plus the winning triple once
// the board has one.
func statePayload(engine *session.Engine) *StatePayload {
	state := engine.CurrentGame()
	payload := &StatePayload{State: state}

	if pattern, ok := entity.WinningPattern(state.GameState.Board); ok {
		payload.WinningPattern = &pattern
	}

	return payload
}
