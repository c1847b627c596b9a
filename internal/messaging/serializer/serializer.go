// Package serializer converts typed payloads to message bodies and back.
package serializer

import (
	"github.com/allisson/relay/internal/errors"
	"github.com/allisson/relay/internal/messaging/registry"
)

// Serializer errors.
var (
	// ErrUnsupportedContentType indicates no serializer handles a content type.
	ErrUnsupportedContentType = errors.Wrap(errors.ErrInvalidInput, "unsupported content type")

	// ErrSerialization indicates a payload could not be encoded or decoded.
	ErrSerialization = errors.Wrap(errors.ErrInvalidInput, "serialization failed")
)

// Serializer encodes payloads of registered message types.
type Serializer interface {
	// ContentType is stored with every message this serializer produced.
	ContentType() string
	// Serialize encodes payload, whose registered name is messageType.
	Serialize(messageType string, payload any) ([]byte, error)
	// Deserialize decodes data into target, a pointer from the type registry.
	Deserialize(messageType string, data []byte, target any) error
}

// Set selects a serializer by content type.
type Set struct {
	fallback Serializer
	byType   map[string]Serializer
}

// NewSet builds a Set. The first serializer also handles rows without a content type.
func NewSet(primary Serializer, others ...Serializer) *Set {
	s := &Set{fallback: primary, byType: map[string]Serializer{primary.ContentType(): primary}}
	for _, other := range others {
		s.byType[other.ContentType()] = other
	}
	return s
}

// Default returns the serializer used by producers.
func (s *Set) Default() Serializer { return s.fallback }

// Get returns the serializer for contentType.
func (s *Set) Get(contentType string) (Serializer, error) {
	if contentType == "" {
		return s.fallback, nil
	}
	if ser, ok := s.byType[contentType]; ok {
		return ser, nil
	}
	return nil, errors.Wrapf(ErrUnsupportedContentType, "%q", contentType)
}

// Decode resolves messageType in the registry and decodes data into a new
// instance of it using the serializer for contentType.
func (s *Set) Decode(types *registry.Registry, messageType, contentType string, data []byte) (any, error) {
	target, err := types.New(messageType)
	if err != nil {
		return nil, err
	}
	ser, err := s.Get(contentType)
	if err != nil {
		return nil, err
	}
	if err := ser.Deserialize(messageType, data, target); err != nil {
		return nil, err
	}
	return target, nil
}
