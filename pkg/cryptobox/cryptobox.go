package cryptobox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
)

// ErrIntegrity is returned when a ciphertext fails authentication: the
// data was tampered with or decrypted with the wrong key. Callers must
// treat it as fatal for the enclosing operation.
var ErrIntegrity = errors.New("cryptobox: ciphertext integrity check failed")

const (
	keySize   = 32 // AES-256
	nonceSize = 12
)

// GenerateKey returns a fresh 32-byte AES-256 key. Each user gets one
// at registration; keys are never shared or rotated.
func GenerateKey() ([]byte, error) {
	key := make([]byte, keySize)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return key, nil
}

// Encrypt seals plaintext under key with AES-GCM. The random nonce is
// prefixed to the returned ciphertext.
func Encrypt(plaintext string, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return aesgcm.Seal(nonce, nonce, []byte(plaintext), nil), nil
}

// Decrypt opens a nonce-prefixed AES-GCM ciphertext. Any authentication
// failure (tampered data, mismatched key, truncated input) yields
// ErrIntegrity, never garbage plaintext.
func Decrypt(ciphertext []byte, key []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}
	if len(ciphertext) < nonceSize {
		return "", ErrIntegrity
	}
	nonce, sealed := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := aesgcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrIntegrity
	}
	return string(plaintext), nil
}
