package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddress(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantErr    bool
		wantScheme string
		wantName   string
	}{
		{name: "kafka topic", raw: "kafka://orders", wantScheme: "kafka", wantName: "orders"},
		{name: "mem topic", raw: "mem://dead-letters", wantScheme: "mem", wantName: "dead-letters"},
		{name: "opaque", raw: "queue:billing", wantScheme: "queue", wantName: "billing"},
		{name: "path form", raw: "mem:///a/b", wantScheme: "mem", wantName: "a/b"},
		{name: "upper scheme", raw: "KAFKA://orders", wantScheme: "kafka", wantName: "orders"},
		{name: "empty", raw: "", wantErr: true},
		{name: "no scheme", raw: "orders", wantErr: true},
		{name: "spaces", raw: "not an address", wantErr: true},
		{name: "scheme only", raw: "kafka://", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, err := ParseAddress(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidAddress)
				assert.True(t, addr.IsZero())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantScheme, addr.Scheme())
			assert.Equal(t, tt.wantName, addr.Name())
			assert.Equal(t, tt.raw, addr.String())
		})
	}
}

func TestMustParseAddress(t *testing.T) {
	assert.NotPanics(t, func() { MustParseAddress("mem://ok") })
	assert.Panics(t, func() { MustParseAddress("bad") })
}

func TestNewID(t *testing.T) {
	first := NewID()
	second := NewID()

	assert.Len(t, first.String(), 36)
	assert.Equal(t, 7, int(first.Version()))
	assert.NotEqual(t, first, second)
}
