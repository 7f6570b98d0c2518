package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"io"
)

// ErrInvalidSeal is returned when a sealed value was tampered with, was
// sealed under a different key, or is not a sealed value at all.
var ErrInvalidSeal = errors.New("invalid sealed value")

// Sealer authenticates and encrypts short values such as the OAuth state
// cookie using AES-256-GCM.
type Sealer struct {
	key []byte
}

// NewSealer creates a Sealer from a 32-byte hex-encoded key.
func NewSealer(keyHex string) (*Sealer, error) {
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, errors.New("ONEID_STATE_KEY must be hex-encoded")
	}
	if len(key) != 32 {
		return nil, errors.New("ONEID_STATE_KEY must be 32 bytes (64 hex chars)")
	}
	return &Sealer{key: key}, nil
}

// GenerateKey returns a random hex-encoded 32-byte key.
func GenerateKey() (string, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return "", err
	}
	return hex.EncodeToString(key), nil
}

// Seal encrypts plaintext and returns it as URL-safe base64, suitable for a
// cookie value.
func (s *Sealer) Seal(plaintext []byte) (string, error) {
	out, err := encrypt(s.key, plaintext)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(out), nil
}

// Open reverses Seal.
func (s *Sealer) Open(sealed string) ([]byte, error) {
	data, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil {
		return nil, ErrInvalidSeal
	}
	plaintext, err := decrypt(s.key, data)
	if err != nil {
		return nil, ErrInvalidSeal
	}
	return plaintext, nil
}

// encrypt performs AES-256-GCM encryption. Output format: [nonce(12) | ciphertext+tag].
func encrypt(key, plaintext []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err = io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// decrypt expects [nonce(12) | ciphertext+tag].
func decrypt(key, data []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return nil, errors.New("ciphertext too short")
	}
	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	return gcm.Open(nil, nonce, ciphertext, nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
