package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"

	"github.com/google/uuid"
)

const (
	refreshTokenRawSize = 48
	refreshSecretSize   = 32
)

func NewRefreshSecret() ([refreshSecretSize]byte, error) {
	var secret [refreshSecretSize]byte
	_, err := rand.Read(secret[:])
	return secret, err
}

// HashRefreshToken is a deterministic lookup hash over the raw token bytes.
// sha256 is deliberate here: the secret is 32 random bytes, so a slow
// password hash would add latency without adding security.
func HashRefreshToken(raw []byte) [32]byte {
	return sha256.Sum256(raw)
}

// EncodeRefreshToken packs credential id and secret into the opaque token
// handed to callers: base64url(id[16] || secret[32]), no padding.
func EncodeRefreshToken(id uuid.UUID, secret [refreshSecretSize]byte) string {
	var raw [refreshTokenRawSize]byte
	copy(raw[:len(id)], id[:])
	copy(raw[len(id):], secret[:])
	return base64.RawURLEncoding.EncodeToString(raw[:])
}

// DecodeRefreshToken recovers the credential id and raw token bytes. The raw
// bytes feed [HashRefreshToken]; the id is carried only for audit context.
func DecodeRefreshToken(token string) (uuid.UUID, []byte, error) {
	var id uuid.UUID

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return id, nil, err
	}
	if len(raw) != refreshTokenRawSize {
		return id, nil, errors.New("invalid refresh token size")
	}

	copy(id[:], raw[:len(id)])
	return id, raw, nil
}

// NewRefreshToken mints a fresh credential: opaque token string, credential
// id, and the lookup hash to persist.
func NewRefreshToken() (string, uuid.UUID, [32]byte, error) {
	id := uuid.New()

	secret, err := NewRefreshSecret()
	if err != nil {
		return "", id, [32]byte{}, err
	}

	token := EncodeRefreshToken(id, secret)

	var raw [refreshTokenRawSize]byte
	copy(raw[:len(id)], id[:])
	copy(raw[len(id):], secret[:])

	return token, id, HashRefreshToken(raw[:]), nil
}
