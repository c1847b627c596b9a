package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type addressError struct {
	Address string
}

func (e *addressError) Error() string { return "bad address " + e.Address }

func TestWrap(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wrap     func(error) error
		expected string
	}{
		{
			name:     "wrap",
			err:      ErrUnavailable,
			wrap:     func(err error) error { return Wrap(err, "send to mem://orders") },
			expected: "send to mem://orders: unavailable",
		},
		{
			name:     "wrapf",
			err:      ErrNotFound,
			wrap:     func(err error) error { return Wrapf(err, "scheduled message %d", 7) },
			expected: "scheduled message 7: not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := tt.wrap(tt.err)
			require.Error(t, wrapped)
			assert.Equal(t, tt.expected, wrapped.Error())
			assert.True(t, Is(wrapped, tt.err))
		})
	}

	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, Wrap(nil, "context"))
		assert.NoError(t, Wrapf(nil, "context %s", "x"))
	})
}

func TestTaxonomyIsDistinct(t *testing.T) {
	sentinels := []error{ErrNotFound, ErrConflict, ErrInvalidInput, ErrUnavailable}

	for i, a := range sentinels {
		for j, b := range sentinels {
			assert.Equal(t, i == j, Is(a, b), "%v vs %v", a, b)
		}
	}
}

func TestAs(t *testing.T) {
	wrapped := Wrap(&addressError{Address: "nope"}, "parse destination")

	var target *addressError
	require.True(t, As(wrapped, &target))
	assert.Equal(t, "nope", target.Address)
}

func TestJoin(t *testing.T) {
	joined := Join(nil, Wrap(ErrUnavailable, "kafka"), New("close failed"))
	require.Error(t, joined)
	assert.True(t, Is(joined, ErrUnavailable))
	assert.Contains(t, joined.Error(), "close failed")

	assert.NoError(t, Join(nil, nil))
	assert.NoError(t, Join())
	assert.False(t, errors.Is(Join(New("x")), ErrNotFound))
}
