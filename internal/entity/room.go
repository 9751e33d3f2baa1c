package entity

import (
	"errors"
	"fmt"

	"github.com/rocketscienceinc/xoxo-backend/internal/apperror"
)

var ErrInvalidCell = errors.New("invalid cell index")

const (
	StatusWaiting   = "waiting"
	StatusPlaying   = "playing"
	StatusEnded     = "ended"
	StatusAbandoned = "abandoned"

	SymbolX = "X"
	SymbolO = "O"

	EmptyCell = ""
)

// WinCombos - the canonical triples, rows first, then columns, then diagonals.
var WinCombos = [8][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// Board is the 3x3 grid in row-major order, cells are "", "X" or "O".
type Board [9]string

// PlayerRef - a snapshot of a player's identity and stats, copied into the
// room at join time. It is not live-linked to the user profile.
type PlayerRef struct {
	UID      string `json:"uid"`
	Username string `json:"username"`
	XP       int    `json:"xp"`
	Rank     string `json:"rank"`
}

// Room is the shared document representing one match between two players.
// The first occupant is always PlayerX.
type Room struct {
	Code        string     `json:"code"`
	Status      string     `json:"status"`
	PlayerX     *PlayerRef `json:"playerX"`
	PlayerO     *PlayerRef `json:"playerO"`
	Board       Board      `json:"board"`
	CurrentTurn string     `json:"currentTurn"`
	Winner      string     `json:"winner,omitempty"`
	CreatedAt   int64      `json:"createdAt"`
}

// NewRoom - creates a waiting room with the creator installed as PlayerX.
func NewRoom(code string, creator *PlayerRef, createdAt int64) *Room {
	return &Room{
		Code:        code,
		Status:      StatusWaiting,
		PlayerX:     creator,
		Board:       Board{},
		CurrentTurn: SymbolX,
		CreatedAt:   createdAt,
	}
}

func (that *Room) IsWaiting() bool {
	return that.Status == StatusWaiting
}

func (that *Room) IsPlaying() bool {
	return that.Status == StatusPlaying
}

// IsFinished - reports whether the room reached a terminal state.
func (that *Room) IsFinished() bool {
	return that.Status == StatusEnded || that.Status == StatusAbandoned
}

// PlayerSymbol - returns the symbol the given user occupies in the room,
// or "" if the user is not in it.
func (that *Room) PlayerSymbol(uid string) string {
	if that.PlayerX != nil && that.PlayerX.UID == uid {
		return SymbolX
	}
	if that.PlayerO != nil && that.PlayerO.UID == uid {
		return SymbolO
	}
	return ""
}

// ApplyMove - places symbol at cell and advances the game state.
// The turn alternates only while the game continues; once the move wins or
// draws the game, CurrentTurn keeps the mover's symbol and the room ends.
func (that *Room) ApplyMove(symbol string, cell int) error {
	if cell < 0 || cell >= len(that.Board) {
		return fmt.Errorf("%w: cell %d", ErrInvalidCell, cell)
	}

	if that.CurrentTurn != symbol {
		return apperror.ErrNotYourTurn
	}

	if that.Board[cell] != EmptyCell {
		return apperror.ErrCellOccupied
	}

	if !that.IsPlaying() {
		return apperror.ErrGameNotInProgress
	}

	that.Board[cell] = symbol

	winner := CheckWinner(that.Board)
	switch {
	case winner != "":
		that.Winner = winner
		that.Status = StatusEnded
	case that.Board.IsFull():
		that.Status = StatusEnded
	default:
		that.CurrentTurn = OtherSymbol(symbol)
	}

	return nil
}

// IsDraw - true when the game ended with a full board and no winner.
func (that *Room) IsDraw() bool {
	return that.Status == StatusEnded && that.Winner == ""
}

func (that *Board) IsFull() bool {
	for _, cell := range that {
		if cell == EmptyCell {
			return false
		}
	}
	return true
}

// CheckWinner - returns the symbol holding a uniform non-empty triple, or "".
func CheckWinner(board Board) string {
	for _, combo := range WinCombos {
		a, b, c := board[combo[0]], board[combo[1]], board[combo[2]]
		if a != EmptyCell && a == b && b == c {
			return a
		}
	}
	return ""
}

// WinningPattern - returns the first matching triple in enumeration order.
func WinningPattern(board Board) ([3]int, bool) {
	for _, combo := range WinCombos {
		a, b, c := board[combo[0]], board[combo[1]], board[combo[2]]
		if a != EmptyCell && a == b && b == c {
			return combo, true
		}
	}
	return [3]int{}, false
}

func OtherSymbol(symbol string) string {
	if symbol == SymbolX {
		return SymbolO
	}
	return SymbolX
}
