package request

// CreateGuestRequest is the request body for creating a guest player
type CreateGuestRequest struct {
	Username string `json:"username"`
}

// RegisterRequest is the request body for registering a player
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginRequest is the request body for logging in
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// CreateRoomRequest is the request body for creating a room.
// MaxPlayers of zero selects the default capacity.
type CreateRoomRequest struct {
	Name       string `json:"name"`
	MaxPlayers int    `json:"max_players,omitempty"`
}
