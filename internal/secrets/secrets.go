// Package secrets encrypts material the bank keeps at rest outside the
// Ledger — LND macaroons, TLS client certs, hedging-venue API secrets —
// with AES-256-GCM, deriving the key from an operator passphrase via
// Argon2id when the material isn't already keyed by a random 32-byte key.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	KeySize   = 32 // AES-256 requires 32 bytes
	NonceSize = 12 // GCM standard nonce size
	SaltSize  = 16 // salt for Argon2id key derivation
)

// Argon2id parameters for passphrase-derived keys. Tuned for a one-off
// unwrap at process startup, not a high-throughput login path.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024 // KiB
	argonThreads = 4
)

// Encrypt encrypts plaintext using AES-256-GCM. Returns base64-encoded:
// nonce + ciphertext.
func Encrypt(plaintext string, key []byte) (string, error) {
	if len(key) != KeySize {
		return "", errors.New("secrets: key must be 32 bytes long")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := gcm.Seal(nil, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(append(nonce, ciphertext...)), nil
}

// Decrypt reverses Encrypt.
func Decrypt(ciphertext string, key []byte) (string, error) {
	if len(key) != KeySize {
		return "", errors.New("secrets: key must be 32 bytes long")
	}

	decoded, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", err
	}
	if len(decoded) < NonceSize {
		return "", errors.New("secrets: ciphertext too short")
	}

	nonce, cipherData := decoded[:NonceSize], decoded[NonceSize:]

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	plaintext, err := gcm.Open(nil, nonce, cipherData, nil)
	if err != nil {
		return "", errors.New("secrets: decryption failed: invalid key or corrupted data")
	}
	return string(plaintext), nil
}

// GenerateKey generates a random 32-byte encryption key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, err
	}
	return key, nil
}

// DeriveKey derives a 32-byte AES key from password and salt via Argon2id.
func DeriveKey(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, KeySize)
}

// EncryptWithPassword encrypts plaintext under a key derived from password,
// generating a fresh random salt and embedding it in the returned envelope
// (base64(salt) + "." + Encrypt's output) so DecryptWithPassword needs only
// the password to reverse it.
func EncryptWithPassword(plaintext, password string) (string, error) {
	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}
	key := DeriveKey(password, salt)
	ciphertext, err := Encrypt(plaintext, key)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(salt) + "." + ciphertext, nil
}

// DecryptWithPassword reverses EncryptWithPassword.
func DecryptWithPassword(envelope, password string) (string, error) {
	saltB64, ciphertext, ok := strings.Cut(envelope, ".")
	if !ok {
		return "", errors.New("secrets: malformed password envelope")
	}
	salt, err := base64.StdEncoding.DecodeString(saltB64)
	if err != nil {
		return "", errors.New("secrets: malformed password envelope salt")
	}
	key := DeriveKey(password, salt)
	return Decrypt(ciphertext, key)
}
