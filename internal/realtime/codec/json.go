package codec

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/mcoot/gridarena/internal/model"
)

// JSON is the default text codec
type JSON struct{}

type jsonEnvelope struct {
	Type    model.IntentType `json:"type"`
	Payload json.RawMessage  `json:"payload,omitempty"`
}

func (JSON) Name() string { return SubprotocolJSON }

func (JSON) Binary() bool { return false }

func (JSON) EncodeEvent(event *model.Event) ([]byte, error) {
	return json.Marshal(event)
}

func (JSON) DecodeIntent(data []byte) (model.Intent, error) {
	var env jsonEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidIntent, err)
	}
	return decodeIntent(env.Type, func(v any) error {
		if len(env.Payload) == 0 || bytes.Equal(env.Payload, []byte("null")) {
			return nil
		}
		return json.Unmarshal(env.Payload, v)
	})
}

func (JSON) EncodeIntent(intent model.Intent) ([]byte, error) {
	payload, err := json.Marshal(intent)
	if err != nil {
		return nil, err
	}
	return json.Marshal(jsonEnvelope{Type: intent.IntentType(), Payload: payload})
}

func (JSON) DecodeEvent(data []byte) (*model.Event, error) {
	var event model.Event
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err
	}
	return &event, nil
}
