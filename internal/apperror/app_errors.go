package apperror

import "errors"

var (
	ErrNotAuthenticated = errors.New("user is not authenticated")
	ErrUserNotFound     = errors.New("user not found")
	ErrUsernameInvalid  = errors.New("username must be 3-20 characters of letters, numbers and underscores")
	ErrUsernameTaken    = errors.New("username is already taken")

	ErrRoomCodeExhausted = errors.New("unable to allocate a free room code")
	ErrRoomNotFound      = errors.New("room not found")
	ErrRoomUnavailable   = errors.New("room is not available")
	ErrRoomFull          = errors.New("room is full")
	ErrAlreadyInRoom     = errors.New("you are already in this room")

	ErrNotInRoom         = errors.New("no active room")
	ErrNotYourTurn       = errors.New("it's not your turn")
	ErrCellOccupied      = errors.New("cell is already occupied")
	ErrGameNotInProgress = errors.New("game is not in progress")
)
