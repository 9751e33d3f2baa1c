package entity

import (
	"testing"

	"github.com/rocketscienceinc/xoxo-backend/internal/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRoom(t *testing.T) {
	// Given: a creator snapshot
	creator := &PlayerRef{UID: "uid-1", Username: "alice", XP: 42, Rank: RankNewbie}

	// When: creating a room
	room := NewRoom("12345", creator, 1700000000000)

	// Then: the room waits for an opponent with the creator as playerX
	assert.Equal(t, "12345", room.Code)
	assert.Equal(t, StatusWaiting, room.Status)
	assert.Equal(t, creator, room.PlayerX)
	assert.Nil(t, room.PlayerO)
	assert.Equal(t, SymbolX, room.CurrentTurn)
	assert.Equal(t, Board{}, room.Board)
	assert.Empty(t, room.Winner)
}

func TestCheckWinner(t *testing.T) {
	t.Run("Returns X for a winning row", func(t *testing.T) {
		// Given: X holds the top row
		board := Board{
			SymbolX, SymbolX, SymbolX,
			SymbolO, SymbolO, EmptyCell,
			EmptyCell, EmptyCell, EmptyCell,
		}

		// When: checking the winner
		winner := CheckWinner(board)

		// Then: X wins
		assert.Equal(t, SymbolX, winner)
	})

	t.Run("Returns O for a winning column", func(t *testing.T) {
		// Given: O holds the first column
		board := Board{
			SymbolO, SymbolX, SymbolX,
			SymbolO, SymbolX, EmptyCell,
			SymbolO, EmptyCell, EmptyCell,
		}

		// When: checking the winner
		winner := CheckWinner(board)

		// Then: O wins
		assert.Equal(t, SymbolO, winner)
	})

	t.Run("Returns X for a winning diagonal", func(t *testing.T) {
		// Given: X holds the main diagonal
		board := Board{
			SymbolX, SymbolO, EmptyCell,
			SymbolO, SymbolX, EmptyCell,
			EmptyCell, EmptyCell, SymbolX,
		}

		// When: checking the winner
		winner := CheckWinner(board)

		// Then: X wins
		assert.Equal(t, SymbolX, winner)
	})

	t.Run("Returns empty when no triple matches", func(t *testing.T) {
		// Given: a full board without any uniform triple
		board := Board{
			SymbolX, SymbolO, SymbolX,
			SymbolO, SymbolX, SymbolO,
			SymbolO, SymbolX, SymbolO,
		}

		// When: checking the winner
		winner := CheckWinner(board)

		// Then: there is no winner
		assert.Equal(t, EmptyCell, winner)
	})

	t.Run("Returns empty for an empty board", func(t *testing.T) {
		assert.Equal(t, EmptyCell, CheckWinner(Board{}))
	})
}

func TestWinningPattern(t *testing.T) {
	t.Run("Returns the first matching triple in enumeration order", func(t *testing.T) {
		// Given: X holds the top row
		board := Board{
			SymbolX, SymbolX, SymbolX,
			SymbolO, SymbolO, EmptyCell,
			EmptyCell, EmptyCell, EmptyCell,
		}

		// When: looking up the winning pattern
		pattern, ok := WinningPattern(board)

		// Then: the top row triple is returned
		require.True(t, ok)
		assert.Equal(t, [3]int{0, 1, 2}, pattern)
	})

	t.Run("Returns no pattern for a drawn board", func(t *testing.T) {
		// Given: a full board without a winner
		board := Board{
			SymbolX, SymbolO, SymbolX,
			SymbolO, SymbolX, SymbolO,
			SymbolO, SymbolX, SymbolO,
		}

		// When: looking up the winning pattern
		_, ok := WinningPattern(board)

		// Then: there is none
		assert.False(t, ok)
	})
}

func TestRoom_ApplyMove(t *testing.T) {
	newPlayingRoom := func() *Room {
		room := NewRoom("12345", &PlayerRef{UID: "uid-x"}, 0)
		room.PlayerO = &PlayerRef{UID: "uid-o"}
		room.Status = StatusPlaying
		return room
	}

	t.Run("Alternates the turn after a non-terminal move", func(t *testing.T) {
		// Given: a playing room on X's turn
		room := newPlayingRoom()

		// When: X moves
		err := room.ApplyMove(SymbolX, 4)

		// Then: the cell is taken and it is O's turn
		require.NoError(t, err)
		assert.Equal(t, SymbolX, room.Board[4])
		assert.Equal(t, SymbolO, room.CurrentTurn)
		assert.Equal(t, StatusPlaying, room.Status)
	})

	t.Run("Rejects a move out of turn", func(t *testing.T) {
		// Given: a playing room on X's turn
		room := newPlayingRoom()

		// When: O moves
		err := room.ApplyMove(SymbolO, 0)

		// Then: the move is rejected and the board unchanged
		require.ErrorIs(t, err, apperror.ErrNotYourTurn)
		assert.Equal(t, Board{}, room.Board)
	})

	t.Run("Rejects a move to an occupied cell", func(t *testing.T) {
		// Given: cell 0 already taken by X
		room := newPlayingRoom()
		require.NoError(t, room.ApplyMove(SymbolX, 0))

		// When: O moves to the same cell
		err := room.ApplyMove(SymbolO, 0)

		// Then: the move is rejected
		require.ErrorIs(t, err, apperror.ErrCellOccupied)
	})

	t.Run("Rejects a move in a waiting room", func(t *testing.T) {
		// Given: a room still waiting for an opponent
		room := NewRoom("12345", &PlayerRef{UID: "uid-x"}, 0)

		// When: X moves
		err := room.ApplyMove(SymbolX, 0)

		// Then: the game is not in progress
		require.ErrorIs(t, err, apperror.ErrGameNotInProgress)
	})

	t.Run("Rejects an out-of-range cell", func(t *testing.T) {
		room := newPlayingRoom()

		require.ErrorIs(t, room.ApplyMove(SymbolX, 9), ErrInvalidCell)
		require.ErrorIs(t, room.ApplyMove(SymbolX, -1), ErrInvalidCell)
	})

	t.Run("Keeps the mover's turn on a winning move", func(t *testing.T) {
		// Given: X about to complete the top row
		room := newPlayingRoom()
		room.Board = Board{
			SymbolX, SymbolX, EmptyCell,
			SymbolO, SymbolO, EmptyCell,
			EmptyCell, EmptyCell, EmptyCell,
		}

		// When: X completes the row
		err := room.ApplyMove(SymbolX, 2)

		// Then: the room ends with X as winner and the turn unchanged
		require.NoError(t, err)
		assert.Equal(t, StatusEnded, room.Status)
		assert.Equal(t, SymbolX, room.Winner)
		assert.Equal(t, SymbolX, room.CurrentTurn)
		assert.False(t, room.IsDraw())
	})

	t.Run("Ends in a draw when the last cell fills without a winner", func(t *testing.T) {
		// Given: one empty cell left and no winning triple possible
		room := newPlayingRoom()
		room.Board = Board{
			SymbolX, SymbolO, SymbolX,
			SymbolO, SymbolX, SymbolO,
			SymbolO, SymbolX, EmptyCell,
		}
		room.CurrentTurn = SymbolO

		// When: O fills the last cell
		err := room.ApplyMove(SymbolO, 8)

		// Then: the room ends drawn with the turn unchanged
		require.NoError(t, err)
		assert.Equal(t, StatusEnded, room.Status)
		assert.Empty(t, room.Winner)
		assert.Equal(t, SymbolO, room.CurrentTurn)
		assert.True(t, room.IsDraw())
	})
}

func TestRoom_PlayerSymbol(t *testing.T) {
	// Given: a room with both slots taken
	room := NewRoom("12345", &PlayerRef{UID: "uid-x"}, 0)
	room.PlayerO = &PlayerRef{UID: "uid-o"}

	// Then: each uid maps to its slot, strangers to none
	assert.Equal(t, SymbolX, room.PlayerSymbol("uid-x"))
	assert.Equal(t, SymbolO, room.PlayerSymbol("uid-o"))
	assert.Empty(t, room.PlayerSymbol("uid-stranger"))
}

func TestRoom_StatusPredicates(t *testing.T) {
	assert.True(t, (&Room{Status: StatusWaiting}).IsWaiting())
	assert.True(t, (&Room{Status: StatusPlaying}).IsPlaying())
	assert.True(t, (&Room{Status: StatusEnded}).IsFinished())
	assert.True(t, (&Room{Status: StatusAbandoned}).IsFinished())
	assert.False(t, (&Room{Status: StatusPlaying}).IsFinished())
}

func TestOtherSymbol(t *testing.T) {
	assert.Equal(t, SymbolO, OtherSymbol(SymbolX))
	assert.Equal(t, SymbolX, OtherSymbol(SymbolO))
}
