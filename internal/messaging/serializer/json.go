package serializer

import (
	"encoding/json"

	"github.com/allisson/relay/internal/errors"
	"github.com/allisson/relay/internal/messaging/domain"
	"github.com/allisson/relay/internal/messaging/registry"
)

type jsonSerializer struct{}

// NewJSON returns the application/json serializer.
func NewJSON() Serializer {
	return jsonSerializer{}
}

func (jsonSerializer) ContentType() string { return domain.ContentTypeJSON }

func (jsonSerializer) Serialize(messageType string, payload any) ([]byte, error) {
	var raw []byte
	switch p := payload.(type) {
	case registry.RawPayload:
		raw = p.Data
	case *registry.RawPayload:
		raw = p.Data
	case json.RawMessage:
		raw = p
	default:
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, errors.Wrapf(ErrSerialization, "%s: %v", messageType, err)
		}
		return data, nil
	}

	if !json.Valid(raw) {
		return nil, errors.Wrapf(ErrSerialization, "%s: raw payload is not valid json", messageType)
	}
	return raw, nil
}

func (jsonSerializer) Deserialize(messageType string, data []byte, target any) error {
	if err := json.Unmarshal(data, target); err != nil {
		return errors.Wrapf(ErrSerialization, "%s: %v", messageType, err)
	}
	return nil
}
