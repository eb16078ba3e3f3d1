package session

import (
	"errors"

	"github.com/mcoot/gridarena/internal/model"
)

// Error codes sent to the originating connection
const (
	CodeUnauthenticated      = "UNAUTHENTICATED"
	CodeAlreadyAuthenticated = "ALREADY_AUTHENTICATED"
	CodePlayerNotFound       = "PLAYER_NOT_FOUND"
	CodeRoomNotFound         = "ROOM_NOT_FOUND"
	CodeRoomFull             = "ROOM_FULL"
	CodeNotInRoom            = "NOT_IN_ROOM"
	CodeOutOfBounds          = "OUT_OF_BOUNDS"
	CodeInvalidIntent        = "INVALID_INTENT"
	CodePersistence          = "PERSISTENCE_FAILURE"
	CodeInternal             = "INTERNAL_ERROR"
)

// ErrorCode maps an intent error to its client code. Soft rejections
// report soft=true and are not sent to the client at all.
func ErrorCode(err error) (code string, soft bool) {
	switch {
	case errors.Is(err, model.ErrCellOccupied),
		errors.Is(err, model.ErrTargetNotInRoom),
		errors.Is(err, model.ErrSuperseded):
		return "", true
	case errors.Is(err, model.ErrUnauthenticated):
		return CodeUnauthenticated, false
	case errors.Is(err, model.ErrAlreadyAuthenticated):
		return CodeAlreadyAuthenticated, false
	case errors.Is(err, model.ErrPlayerNotFound):
		return CodePlayerNotFound, false
	case errors.Is(err, model.ErrRoomNotFound):
		return CodeRoomNotFound, false
	case errors.Is(err, model.ErrRoomFull):
		return CodeRoomFull, false
	case errors.Is(err, model.ErrNotInRoom):
		return CodeNotInRoom, false
	case errors.Is(err, model.ErrOutOfBounds):
		return CodeOutOfBounds, false
	case errors.Is(err, model.ErrInvalidIntent),
		errors.Is(err, model.ErrUnknownIntent):
		return CodeInvalidIntent, false
	case errors.Is(err, model.ErrPersistence):
		return CodePersistence, false
	default:
		return CodeInternal, false
	}
}

// errorMessage returns the client-facing text for err. Storage and
// internal failures get a fixed message.
func errorMessage(code string, err error) string {
	switch code {
	case CodePersistence:
		return "the change could not be saved"
	case CodeInternal:
		return "internal error"
	default:
		return err.Error()
	}
}
