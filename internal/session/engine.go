package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/rocketscienceinc/xoxo-backend/internal/apperror"
	"github.com/rocketscienceinc/xoxo-backend/internal/entity"
	"github.com/rocketscienceinc/xoxo-backend/internal/repository"
)

const maxCodeAttempts = 10

type roomRepo interface {
	Create(ctx context.Context, room *entity.Room) error
	GetByCode(ctx context.Context, code string) (*entity.Room, error)
	Update(ctx context.Context, code string, mutate func(room *entity.Room) error) (*entity.Room, error)
	DeleteByCode(ctx context.Context, code string) error
	Subscribe(ctx context.Context, code string) (<-chan *entity.Room, func(), error)
}

type userService interface {
	GetProfile(ctx context.Context, uid string) (*entity.UserProfile, error)
	ApplyOutcome(ctx context.Context, uid string, outcome entity.Outcome) (*entity.UserProfile, error)
}

// GameState - the board-level view derived from the last room snapshot,
// with absent fields defaulted.
type GameState struct {
	Board       entity.Board `json:"board"`
	CurrentTurn string       `json:"currentTurn"`
	Winner      string       `json:"winner,omitempty"`
	Status      string       `json:"status"`
}

// State - what the presentation layer sees of the session.
type State struct {
	RoomCode     string       `json:"roomCode,omitempty"`
	PlayerSymbol string       `json:"playerSymbol,omitempty"`
	IsMyTurn     bool         `json:"isMyTurn"`
	GameState    GameState    `json:"gameState"`
	Room         *entity.Room `json:"room,omitempty"`
}

// Engine owns one client's relationship to at most one room at a time:
// room allocation, join/leave transitions, move validation and the room
// change subscription. All cross-client coordination goes through the room
// store; the engine itself only guards its local session state.
type Engine struct {
	logger *slog.Logger
	rooms  roomRepo
	users  userService
	uid    string

	mu        sync.Mutex
	roomCode  string
	symbol    string
	isMyTurn  bool
	room      *entity.Room
	scored    bool
	cancelSub func()
	callbacks []func(*entity.Room)
}

func NewEngine(logger *slog.Logger, rooms roomRepo, users userService, uid string) *Engine {
	return &Engine{
		logger: logger.With("component", "session", "uid", uid),
		rooms:  rooms,
		users:  users,
		uid:    uid,
	}
}

// OnRoomUpdate - registers a callback invoked on every room snapshot the
// subscription delivers. Callbacks run outside the engine lock.
func (that *Engine) OnRoomUpdate(fn func(room *entity.Room)) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.callbacks = append(that.callbacks, fn)
}

// CreateRoom - allocates a free 5-digit code, writes a waiting room with the
// caller as playerX and subscribes to it. Requires a registered profile.
func (that *Engine) CreateRoom(ctx context.Context) (string, error) {
	profile, err := that.requireProfile(ctx)
	if err != nil {
		return "", err
	}

	that.mu.Lock()
	inRoom := that.roomCode != ""
	that.mu.Unlock()
	if inRoom {
		return "", apperror.ErrAlreadyInRoom
	}

	room, err := that.allocateRoom(ctx, playerRefFrom(profile))
	if err != nil {
		return "", err
	}

	if err = that.enterRoom(ctx, room, entity.SymbolX); err != nil {
		if delErr := that.rooms.DeleteByCode(ctx, room.Code); delErr != nil {
			that.logger.Error("failed to delete unentered room", "room", room.Code, "error", delErr)
		}
		return "", err
	}

	return room.Code, nil
}

// JoinRoom - claims the O slot of a waiting room. Validation happens twice:
// once against a plain read so the caller gets a precise error without
// racing, and again inside the checked write that actually claims the slot.
func (that *Engine) JoinRoom(ctx context.Context, code string) error {
	profile, err := that.requireProfile(ctx)
	if err != nil {
		return err
	}

	that.mu.Lock()
	inRoom := that.roomCode != ""
	that.mu.Unlock()
	if inRoom {
		return apperror.ErrAlreadyInRoom
	}

	existing, err := that.rooms.GetByCode(ctx, code)
	if err != nil {
		return err
	}
	if err = that.validateJoin(existing); err != nil {
		return err
	}

	joined, err := that.rooms.Update(ctx, code, func(room *entity.Room) error {
		if err := that.validateJoin(room); err != nil {
			return err
		}

		room.PlayerO = playerRefFrom(profile)
		room.Status = entity.StatusPlaying

		return nil
	})
	if err != nil {
		return err
	}

	return that.enterRoom(ctx, joined, entity.SymbolO)
}

// MakeMove - places the caller's symbol at cell. Preconditions are checked
// locally first, then re-checked against the fresh document inside the
// store transaction that commits the move.
func (that *Engine) MakeMove(ctx context.Context, cell int) error {
	that.mu.Lock()

	if that.roomCode == "" {
		that.mu.Unlock()
		return apperror.ErrNotInRoom
	}

	code := that.roomCode
	symbol := that.symbol
	state := that.deriveStateLocked()

	that.mu.Unlock()

	if !state.IsMyTurn {
		return apperror.ErrNotYourTurn
	}
	if cell < 0 || cell >= len(state.GameState.Board) {
		return fmt.Errorf("%w: cell %d", entity.ErrInvalidCell, cell)
	}
	if state.GameState.Board[cell] != entity.EmptyCell {
		return apperror.ErrCellOccupied
	}
	if state.GameState.Status != entity.StatusPlaying {
		return apperror.ErrGameNotInProgress
	}

	updated, err := that.rooms.Update(ctx, code, func(room *entity.Room) error {
		return room.ApplyMove(symbol, cell)
	})
	if err != nil {
		return err
	}

	that.mu.Lock()
	that.room = updated
	that.isMyTurn = updated.CurrentTurn == that.symbol
	that.mu.Unlock()

	if updated.IsFinished() {
		that.scoreOwnOutcome(ctx, updated)
	}

	return nil
}

// LeaveRoom - abandons a live game (forfeiting it) or deletes a waiting
// room. Local session state is cleared unconditionally, even when the
// remote update fails: the client always comes back to idle.
func (that *Engine) LeaveRoom(ctx context.Context) {
	log := that.logger.With("method", "LeaveRoom")

	that.mu.Lock()
	code := that.roomCode
	symbol := that.symbol
	room := that.room
	scored := that.scored
	cancelSub := that.cancelSub
	that.clearSessionLocked()
	that.mu.Unlock()

	if cancelSub != nil {
		cancelSub()
	}

	if code == "" {
		return
	}

	switch {
	case room != nil && room.IsPlaying():
		_, err := that.rooms.Update(ctx, code, func(r *entity.Room) error {
			if !r.IsPlaying() {
				return apperror.ErrGameNotInProgress
			}

			r.Status = entity.StatusAbandoned
			r.Winner = entity.OtherSymbol(symbol)

			return nil
		})
		if errors.Is(err, apperror.ErrGameNotInProgress) {
			// the game ended before the forfeit landed; score the terminal
			// room this session never got to see
			if scored {
				return
			}

			fresh, readErr := that.rooms.GetByCode(ctx, code)
			if readErr != nil {
				log.Error("failed to read finished room", "room", code, "error", readErr)
				return
			}
			if !fresh.IsFinished() {
				return
			}

			if _, applyErr := that.users.ApplyOutcome(ctx, that.uid, outcomeFor(fresh, symbol)); applyErr != nil {
				log.Error("failed to apply game outcome", "error", applyErr)
			}
			return
		}
		if err != nil {
			log.Error("failed to abandon room", "room", code, "error", err)
			return
		}

		if _, err = that.users.ApplyOutcome(ctx, that.uid, entity.OutcomeForfeit); err != nil {
			log.Error("failed to apply forfeit penalty", "error", err)
		}
	case room != nil && room.IsWaiting():
		if err := that.rooms.DeleteByCode(ctx, code); err != nil {
			log.Error("failed to delete waiting room", "room", code, "error", err)
		}
	}
}

// CurrentGame - a snapshot of the session for the presentation layer.
func (that *Engine) CurrentGame() State {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.deriveStateLocked()
}

// Close - tears down the subscription without touching the room. A client
// that vanishes mid-game leaves the room to the sweep.
func (that *Engine) Close() {
	that.mu.Lock()
	cancelSub := that.cancelSub
	that.cancelSub = nil
	that.mu.Unlock()

	if cancelSub != nil {
		cancelSub()
	}
}

// allocateRoom - generate a candidate code, write with create-if-absent,
// retry on collision up to the attempt bound.
func (that *Engine) allocateRoom(ctx context.Context, creator *entity.PlayerRef) (*entity.Room, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code := generateRoomCode()
		room := entity.NewRoom(code, creator, time.Now().UnixMilli())

		err := that.rooms.Create(ctx, room)
		if errors.Is(err, repository.ErrRoomExists) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create room: %w", err)
		}

		return room, nil
	}

	return nil, apperror.ErrRoomCodeExhausted
}

func (that *Engine) validateJoin(room *entity.Room) error {
	if !room.IsWaiting() {
		return apperror.ErrRoomUnavailable
	}
	if room.PlayerO != nil {
		return apperror.ErrRoomFull
	}
	if room.PlayerX != nil && room.PlayerX.UID == that.uid {
		return apperror.ErrAlreadyInRoom
	}
	return nil
}

func (that *Engine) enterRoom(ctx context.Context, room *entity.Room, symbol string) error {
	// the subscription outlives the request that opened it
	subCtx, subCancel := context.WithCancel(context.Background())

	updates, cancel, err := that.rooms.Subscribe(subCtx, room.Code)
	if err != nil {
		subCancel()
		return fmt.Errorf("failed to subscribe to room: %w", err)
	}

	// the write that put us in the room landed before the subscription
	// existed; re-read so a move published in that gap is not lost
	if fresh, readErr := that.rooms.GetByCode(ctx, room.Code); readErr == nil {
		room = fresh
	}

	that.mu.Lock()
	that.roomCode = room.Code
	that.symbol = symbol
	that.room = room
	that.isMyTurn = room.CurrentTurn == symbol
	that.scored = false
	that.cancelSub = func() {
		cancel()
		subCancel()
	}
	that.mu.Unlock()

	go func() {
		for snapshot := range updates {
			that.handleUpdate(subCtx, snapshot)
		}
	}()

	return nil
}

// handleUpdate - replaces the cached room wholesale and recomputes derived
// state, then fans out to the registered callbacks.
func (that *Engine) handleUpdate(ctx context.Context, room *entity.Room) {
	that.mu.Lock()

	if that.roomCode != room.Code {
		// stale delivery from a subscription being torn down
		that.mu.Unlock()
		return
	}

	that.room = room
	that.isMyTurn = room.CurrentTurn == that.symbol

	callbacks := make([]func(*entity.Room), len(that.callbacks))
	copy(callbacks, that.callbacks)

	that.mu.Unlock()

	if room.IsFinished() {
		that.scoreOwnOutcome(ctx, room)
	}

	for _, fn := range callbacks {
		fn(room)
	}
}

// scoreOwnOutcome - applies this player's XP delta for a terminal room,
// at most once per game. A failed XP write never blocks the game outcome;
// it is logged and swallowed.
func (that *Engine) scoreOwnOutcome(ctx context.Context, room *entity.Room) {
	that.mu.Lock()
	if that.scored || that.symbol == "" {
		that.mu.Unlock()
		return
	}
	that.scored = true
	symbol := that.symbol
	that.mu.Unlock()

	outcome := outcomeFor(room, symbol)

	if _, err := that.users.ApplyOutcome(ctx, that.uid, outcome); err != nil {
		that.logger.Error("failed to apply game outcome", "outcome", outcome, "error", err)
	}
}

// outcomeFor - this player's outcome for a terminal room.
func outcomeFor(room *entity.Room, symbol string) entity.Outcome {
	switch {
	case room.Status == entity.StatusAbandoned:
		// only the leaver is penalized, and it penalizes itself
		return entity.OutcomeOpponentLeft
	case room.IsDraw():
		return entity.OutcomeDraw
	case room.Winner == symbol:
		return entity.OutcomeWin
	default:
		return entity.OutcomeLoss
	}
}

func (that *Engine) requireProfile(ctx context.Context) (*entity.UserProfile, error) {
	if that.uid == "" {
		return nil, apperror.ErrNotAuthenticated
	}

	profile, err := that.users.GetProfile(ctx, that.uid)
	if errors.Is(err, apperror.ErrUserNotFound) {
		return nil, apperror.ErrNotAuthenticated
	}
	if err != nil {
		return nil, err
	}

	if profile.Username == "" {
		return nil, apperror.ErrNotAuthenticated
	}

	return profile, nil
}

func (that *Engine) deriveStateLocked() State {
	state := State{
		RoomCode:     that.roomCode,
		PlayerSymbol: that.symbol,
		IsMyTurn:     that.isMyTurn,
		Room:         that.room,
		GameState: GameState{
			CurrentTurn: entity.SymbolX,
			Status:      entity.StatusWaiting,
		},
	}

	if that.room != nil {
		state.GameState.Board = that.room.Board
		state.GameState.Winner = that.room.Winner
		if that.room.CurrentTurn != "" {
			state.GameState.CurrentTurn = that.room.CurrentTurn
		}
		if that.room.Status != "" {
			state.GameState.Status = that.room.Status
		}
	}

	return state
}

func (that *Engine) clearSessionLocked() {
	that.roomCode = ""
	that.symbol = ""
	that.isMyTurn = false
	that.room = nil
	that.scored = false
	that.cancelSub = nil
}

func playerRefFrom(profile *entity.UserProfile) *entity.PlayerRef {
	return &entity.PlayerRef{
		UID:      profile.UID,
		Username: profile.Username,
		XP:       profile.XP,
		Rank:     profile.Rank,
	}
}

// generateRoomCode - a random 5-digit numeric code, 10000-99999.
func generateRoomCode() string {
	return strconv.Itoa(10000 + rand.Intn(90000)) //nolint:gosec // room codes are not secrets
}
