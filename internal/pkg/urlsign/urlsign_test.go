package urlsign

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSigner_Roundtrip(t *testing.T) {
	s := NewSigner("test-key")

	raw, err := s.Encode(Next{Next: "/dashboard", Close: "1"})
	require.NoError(t, err)

	payload, err := s.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "/dashboard", payload.Next)
	assert.Equal(t, "1", payload.Close)
}

func TestSigner_TamperedBodyRejected(t *testing.T) {
	s := NewSigner("test-key")

	raw, err := s.Encode(Next{Next: "/dashboard"})
	require.NoError(t, err)

	body, sig, _ := strings.Cut(raw, ".")
	tampered := body + "x." + sig

	_, err = s.Decode(tampered)
	assert.ErrorIs(t, err, ErrInvalidNext)
}

func TestSigner_WrongKeyRejected(t *testing.T) {
	raw, err := NewSigner("key-a").Encode(Next{Next: "/dashboard"})
	require.NoError(t, err)

	_, err = NewSigner("key-b").Decode(raw)
	assert.ErrorIs(t, err, ErrInvalidNext)
}

func TestSigner_MalformedInputRejected(t *testing.T) {
	s := NewSigner("test-key")

	for _, raw := range []string{"", "no-dot", "not-base64!.sig"} {
		_, err := s.Decode(raw)
		assert.ErrorIs(t, err, ErrInvalidNext, "input %q", raw)
	}
}
