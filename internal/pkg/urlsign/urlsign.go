package urlsign

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"

	"github.com/pozytywnie/facebook-auth/internal/pkg/env"
)

// salt namespaces the signature so signed payloads from other parts of the
// app can never be replayed as redirect targets.
const salt = "facebook-auth.urlsign.Next"

// ErrInvalidNext means a next payload failed signature or format checks.
var ErrInvalidNext = errors.New("invalid next payload")

// Next is the redirect target carried through the OAuth dance. It is signed
// so the callback only follows destinations this app produced itself.
type Next struct {
	Next  string `json:"next"`
	Close string `json:"close"`
}

// Signer signs and verifies next payloads.
type Signer struct {
	key []byte
}

// NewSigner builds a signer with an explicit key.
func NewSigner(key string) *Signer {
	return &Signer{key: []byte(key)}
}

// NewSignerFromEnv reads NEXT_SIGNING_KEY.
func NewSignerFromEnv() *Signer {
	return NewSigner(env.GetEnv("NEXT_SIGNING_KEY", ""))
}

// Encode serializes and signs the payload into a URL-safe string.
func (s *Signer) Encode(payload Next) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	body := base64.RawURLEncoding.EncodeToString(data)
	return body + "." + s.signature(body), nil
}

// Decode verifies the signature and deserializes the payload.
func (s *Signer) Decode(raw string) (Next, error) {
	body, sig, found := strings.Cut(raw, ".")
	if !found {
		return Next{}, ErrInvalidNext
	}
	if !hmac.Equal([]byte(sig), []byte(s.signature(body))) {
		return Next{}, ErrInvalidNext
	}
	data, err := base64.RawURLEncoding.DecodeString(body)
	if err != nil {
		return Next{}, ErrInvalidNext
	}
	var payload Next
	if err := json.Unmarshal(data, &payload); err != nil {
		return Next{}, ErrInvalidNext
	}
	return payload, nil
}

func (s *Signer) signature(body string) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(salt))
	mac.Write([]byte(body))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
