package oneid

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// StatePayload is encoded into the state parameter of the authorization URL.
type StatePayload struct {
	Nonce    string `json:"nonce"`
	IssuedAt int64  `json:"iat"`
}

// NewState returns a fresh anti-forgery state value.
func NewState() (string, error) {
	return EncodeState(StatePayload{Nonce: uuid.NewString(), IssuedAt: time.Now().Unix()})
}

// EncodeState encodes a StatePayload as a base64 JSON string.
func EncodeState(p StatePayload) (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// DecodeState parses a state value and rejects it once older than maxAge.
func DecodeState(state string, maxAge time.Duration, now time.Time) (*StatePayload, error) {
	b, err := base64.RawURLEncoding.DecodeString(state)
	if err != nil {
		return nil, errors.New("invalid state encoding")
	}
	var p StatePayload
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, errors.New("invalid state payload")
	}
	if p.Nonce == "" || p.IssuedAt == 0 {
		return nil, errors.New("incomplete state payload")
	}
	if maxAge > 0 && now.Sub(time.Unix(p.IssuedAt, 0)) > maxAge {
		return nil, errors.New("state expired")
	}
	return &p, nil
}
