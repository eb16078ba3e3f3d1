package model

import "errors"

// Common errors used across the application
var (
	// Player errors
	ErrPlayerNotFound       = errors.New("player not found")
	ErrUnauthenticated      = errors.New("not authenticated")
	ErrAlreadyAuthenticated = errors.New("connection is already authenticated")
	ErrSuperseded           = errors.New("connection was superseded")

	// Room errors
	ErrRoomNotFound    = errors.New("room not found")
	ErrRoomFull        = errors.New("room is full")
	ErrNotInRoom       = errors.New("player is not in a room")
	ErrInvalidRoomName = errors.New("room name is required")

	// Arena errors
	ErrOutOfBounds     = errors.New("position is outside the arena")
	ErrCellOccupied    = errors.New("cell is already occupied")
	ErrTargetNotInRoom = errors.New("target is not in the room")

	// Achievement errors
	ErrAchievementNotFound = errors.New("achievement not found")
	ErrInvalidRequirement  = errors.New("invalid achievement requirement")

	// Storage errors
	ErrPersistence = errors.New("persistence failure")

	// Protocol errors
	ErrUnknownIntent = errors.New("unknown intent")
	ErrInvalidIntent = errors.New("invalid intent payload")
)
