package codec

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/mcoot/gridarena/internal/model"
)

// Msgpack is the binary codec negotiated with the arena.msgpack subprotocol.
// Field names follow the json struct tags so both codecs share one schema.
type Msgpack struct{}

// NewMsgpack creates a MessagePack codec
func NewMsgpack() Msgpack {
	return Msgpack{}
}

type msgpackEnvelope struct {
	Type    model.IntentType   `json:"type"`
	Payload msgpack.RawMessage `json:"payload,omitempty"`
}

func (Msgpack) Name() string { return SubprotocolMsgpack }

func (Msgpack) Binary() bool { return true }

func (Msgpack) marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (Msgpack) unmarshal(data []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	return dec.Decode(v)
}

func (m Msgpack) EncodeEvent(event *model.Event) ([]byte, error) {
	return m.marshal(event)
}

func (m Msgpack) DecodeIntent(data []byte) (model.Intent, error) {
	var env msgpackEnvelope
	if err := m.unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidIntent, err)
	}
	return decodeIntent(env.Type, func(v any) error {
		if len(env.Payload) == 0 {
			return nil
		}
		return m.unmarshal(env.Payload, v)
	})
}

func (m Msgpack) EncodeIntent(intent model.Intent) ([]byte, error) {
	payload, err := m.marshal(intent)
	if err != nil {
		return nil, err
	}
	return m.marshal(msgpackEnvelope{Type: intent.IntentType(), Payload: payload})
}

func (m Msgpack) DecodeEvent(data []byte) (*model.Event, error) {
	var event model.Event
	if err := m.unmarshal(data, &event); err != nil {
		return nil, err
	}
	return &event, nil
}
