package session

import (
	"crypto/rand"
	"errors"
	"os"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// Session-at-rest sealing: a random machine-local secret lives next to the
// session file; each seal derives a fresh key from (secret, salt) with
// Argon2id and encrypts with XChaCha20-Poly1305.
// Blob layout: salt(16) || nonce(24) || ciphertext.
const (
	secretLen = 32
	saltLen   = 16

	argonTime    uint32 = 3
	argonMemory  uint32 = 64 * 1024
	argonThreads uint8  = 1
)

func randBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

// loadOrCreateSecret returns the machine-local sealing secret, generating
// it with 0600 permissions on first use.
func loadOrCreateSecret(path string) ([]byte, error) {
	if b, err := os.ReadFile(path); err == nil && len(b) == secretLen {
		return b, nil
	}
	b, err := randBytes(secretLen)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return nil, err
	}
	return b, nil
}

func deriveKey(secret, salt []byte) []byte {
	return argon2.IDKey(secret, salt, argonTime, argonMemory, argonThreads, chacha20poly1305.KeySize)
}

func seal(secret, plaintext []byte) ([]byte, error) {
	salt, err := randBytes(saltLen)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(deriveKey(secret, salt))
	if err != nil {
		return nil, err
	}
	nonce, err := randBytes(chacha20poly1305.NonceSizeX)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, saltLen+len(nonce)+len(plaintext)+aead.Overhead())
	out = append(out, salt...)
	out = append(out, nonce...)
	out = append(out, aead.Seal(nil, nonce, plaintext, nil)...)
	return out, nil
}

func open(secret, sealed []byte) ([]byte, error) {
	if len(sealed) < saltLen+chacha20poly1305.NonceSizeX {
		return nil, errors.New("sealed record too short")
	}
	salt := sealed[:saltLen]
	nonce := sealed[saltLen : saltLen+chacha20poly1305.NonceSizeX]
	ct := sealed[saltLen+chacha20poly1305.NonceSizeX:]
	aead, err := chacha20poly1305.NewX(deriveKey(secret, salt))
	if err != nil {
		return nil, err
	}
	return aead.Open(nil, nonce, ct, nil)
}
