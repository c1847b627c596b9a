package registry

import "encoding/json"

// RawPayload is an already encoded JSON payload tagged with its type name.
// Serializers pass Data through unchanged.
type RawPayload struct {
	Type string
	Data json.RawMessage
}

// MessageTypeName implements Named.
func (p RawPayload) MessageTypeName() string { return p.Type }
