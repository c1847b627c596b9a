package serializer

import (
	"sync"

	"github.com/hamba/avro/v2"

	"github.com/allisson/relay/internal/errors"
)

// ContentTypeAvro is the content type of Avro binary bodies.
const ContentTypeAvro = "application/avro"

// ErrSchemaNotFound indicates no Avro schema was registered for a message type.
var ErrSchemaNotFound = errors.Wrap(errors.ErrNotFound, "avro schema not found")

// Avro encodes payloads as Avro binary using one schema per message type.
type Avro struct {
	mu      sync.RWMutex
	schemas map[string]avro.Schema
}

// NewAvro returns an Avro serializer without schemas.
func NewAvro() *Avro {
	return &Avro{schemas: make(map[string]avro.Schema)}
}

// RegisterSchema parses schemaJSON and binds it to messageType.
func (a *Avro) RegisterSchema(messageType, schemaJSON string) error {
	schema, err := avro.Parse(schemaJSON)
	if err != nil {
		return errors.Wrapf(errors.ErrInvalidInput, "parse avro schema for %s: %v", messageType, err)
	}

	a.mu.Lock()
	a.schemas[messageType] = schema
	a.mu.Unlock()
	return nil
}

// ContentType implements Serializer.
func (a *Avro) ContentType() string { return ContentTypeAvro }

// Serialize implements Serializer.
func (a *Avro) Serialize(messageType string, payload any) ([]byte, error) {
	schema, err := a.schema(messageType)
	if err != nil {
		return nil, err
	}
	data, err := avro.Marshal(schema, payload)
	if err != nil {
		return nil, errors.Wrapf(ErrSerialization, "%s: %v", messageType, err)
	}
	return data, nil
}

// Deserialize implements Serializer.
func (a *Avro) Deserialize(messageType string, data []byte, target any) error {
	schema, err := a.schema(messageType)
	if err != nil {
		return err
	}
	if err := avro.Unmarshal(schema, data, target); err != nil {
		return errors.Wrapf(ErrSerialization, "%s: %v", messageType, err)
	}
	return nil
}

func (a *Avro) schema(messageType string) (avro.Schema, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	schema, ok := a.schemas[messageType]
	if !ok {
		return nil, errors.Wrapf(ErrSchemaNotFound, "%q", messageType)
	}
	return schema, nil
}
