// Package codec translates between wire frames and model intents and events.
package codec

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mcoot/gridarena/internal/model"
)

// Websocket subprotocols understood by the server
const (
	SubprotocolJSON    = "arena.json"
	SubprotocolMsgpack = "arena.msgpack"
)

// Subprotocols lists the supported subprotocols in server preference order
var Subprotocols = []string{SubprotocolMsgpack, SubprotocolJSON}

// Codec encodes outbound events and decodes inbound intents for one connection
type Codec interface {
	// Name returns the subprotocol name
	Name() string

	// Binary reports whether frames are binary rather than text
	Binary() bool

	EncodeEvent(event *model.Event) ([]byte, error)
	DecodeIntent(data []byte) (model.Intent, error)

	// Client side of the protocol
	EncodeIntent(intent model.Intent) ([]byte, error)
	DecodeEvent(data []byte) (*model.Event, error)
}

// ForSubprotocol returns the codec negotiated for a subprotocol.
// Unknown or empty names fall back to JSON.
func ForSubprotocol(name string) Codec {
	if name == SubprotocolMsgpack {
		return NewMsgpack()
	}
	return JSON{}
}

// decodeIntent builds the intent variant for a type, letting unmarshal fill
// its payload. unmarshal must be a no-op for an absent payload.
func decodeIntent(t model.IntentType, unmarshal func(v any) error) (model.Intent, error) {
	var intent model.Intent
	var err error

	switch t {
	case model.IntentAuthenticate:
		var in model.AuthenticateIntent
		err = unmarshal(&in)
		in.Token = strings.TrimSpace(in.Token)
		if err == nil && in.Token == "" {
			err = fmt.Errorf("%w: token is required", model.ErrInvalidIntent)
		}
		intent = in
	case model.IntentJoinRoom:
		var in model.JoinRoomIntent
		err = unmarshal(&in)
		if err == nil && in.RoomID == "" {
			err = fmt.Errorf("%w: room_id is required", model.ErrInvalidIntent)
		}
		intent = in
	case model.IntentLeaveRoom:
		var in model.LeaveRoomIntent
		err = unmarshal(&in)
		intent = in
	case model.IntentMove:
		var in model.MoveIntent
		err = unmarshal(&in)
		intent = in
	case model.IntentAttack:
		var in model.AttackIntent
		err = unmarshal(&in)
		intent = in
	case model.IntentPlayerHit:
		var in model.PlayerHitIntent
		err = unmarshal(&in)
		if err == nil && in.TargetID == "" {
			err = fmt.Errorf("%w: target_id is required", model.ErrInvalidIntent)
		}
		if err == nil && in.Damage < 0 {
			err = fmt.Errorf("%w: damage must not be negative", model.ErrInvalidIntent)
		}
		intent = in
	default:
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownIntent, t)
	}

	if err != nil {
		if !errors.Is(err, model.ErrInvalidIntent) {
			err = fmt.Errorf("%w: %v", model.ErrInvalidIntent, err)
		}
		return nil, err
	}
	return intent, nil
}
