package utils

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

var ErrSealBroken = errors.New("sealed value cannot be opened")

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Vault seals small JSON values (e.g. a Strava token set) for storage on the client side.
type Vault struct {
	key [32]byte
}

// NewVault accepts a 32 byte key given raw or hex encoded.
func NewVault(key string) (*Vault, error) {
	raw := []byte(key)
	if len(key) == 64 {
		decoded, err := hex.DecodeString(key)
		if err == nil {
			raw = decoded
		}
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("session key must be 32 bytes, got %d", len(raw))
	}
	v := &Vault{}
	copy(v.key[:], raw)
	return v, nil
}

func (v *Vault) Seal(value any) (string, error) {
	plain, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", err
	}
	sealed := secretbox.Seal(nonce[:], plain, &nonce, &v.key)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

func (v *Vault) Open(sealed string, out any) error {
	raw, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil || len(raw) < nonceSize {
		return ErrSealBroken
	}
	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	plain, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &v.key)
	if !ok {
		return ErrSealBroken
	}
	return json.Unmarshal(plain, out)
}
