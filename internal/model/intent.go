package model

// IntentType identifies an inbound client request
type IntentType string

const (
	IntentAuthenticate IntentType = "authenticate"
	IntentJoinRoom     IntentType = "join_room"
	IntentLeaveRoom    IntentType = "leave_room"
	IntentMove         IntentType = "move"
	IntentAttack       IntentType = "attack"
	IntentPlayerHit    IntentType = "player_hit"
)

// Intent is a decoded client request. Each variant carries its own payload.
type Intent interface {
	IntentType() IntentType
}

// AuthenticateIntent binds a session token to the connection
type AuthenticateIntent struct {
	Token string `json:"token"`
}

// JoinRoomIntent moves the player into a room, leaving any previous one
type JoinRoomIntent struct {
	RoomID RoomID `json:"room_id"`
}

// LeaveRoomIntent removes the player from their current room
type LeaveRoomIntent struct{}

// MoveIntent requests a move to an arena cell
type MoveIntent struct {
	Position Position `json:"position"`
}

// AttackIntent launches a melee attack from the player's position
type AttackIntent struct{}

// PlayerHitIntent applies direct damage to a chosen target.
// A Damage of zero uses the default direct-hit damage.
type PlayerHitIntent struct {
	TargetID PlayerID `json:"target_id"`
	Damage   int      `json:"damage,omitempty"`
}

func (AuthenticateIntent) IntentType() IntentType { return IntentAuthenticate }
func (JoinRoomIntent) IntentType() IntentType     { return IntentJoinRoom }
func (LeaveRoomIntent) IntentType() IntentType    { return IntentLeaveRoom }
func (MoveIntent) IntentType() IntentType         { return IntentMove }
func (AttackIntent) IntentType() IntentType       { return IntentAttack }
func (PlayerHitIntent) IntentType() IntentType    { return IntentPlayerHit }
