package oneid

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_RoundTrip(t *testing.T) {
	state, err := NewState()
	require.NoError(t, err)

	p, err := DecodeState(state, time.Minute, time.Now())
	require.NoError(t, err)
	assert.NotEmpty(t, p.Nonce)

	other, err := NewState()
	require.NoError(t, err)
	assert.NotEqual(t, state, other)
}

func TestDecodeState_Rejects(t *testing.T) {
	issued := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	expired, err := EncodeState(StatePayload{Nonce: "n", IssuedAt: issued.Unix()})
	require.NoError(t, err)
	incomplete, err := EncodeState(StatePayload{Nonce: "n"})
	require.NoError(t, err)

	tests := map[string]string{
		"bad encoding": "%%%",
		"bad payload":  "bm90LWpzb24",
		"incomplete":   incomplete,
		"expired":      expired,
	}
	for name, state := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeState(state, 10*time.Minute, issued.Add(time.Hour))
			assert.Error(t, err)
		})
	}

	_, err = DecodeState(expired, 0, issued.Add(time.Hour))
	assert.NoError(t, err)
}
