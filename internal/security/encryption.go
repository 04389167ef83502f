package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"sync"
)

var (
	sealKey        []byte
	keyMutex       sync.RWMutex
	keyInitialized bool

	ErrNoKey         = errors.New("encryption key not initialized")
	ErrDecryptFailed = errors.New("decryption failed")
)

// InitializeKey derives the 32-byte sealing key from the configured secret
// with SHA-256. Device and SIP credentials at rest go through this key.
func InitializeKey(key string) error {
	if key == "" {
		return ErrNoKey
	}
	keyMutex.Lock()
	defer keyMutex.Unlock()

	hash := sha256.Sum256([]byte(key))
	sealKey = hash[:]
	keyInitialized = true
	return nil
}

// IsKeyValid reports whether a key has been initialized.
func IsKeyValid() bool {
	keyMutex.RLock()
	defer keyMutex.RUnlock()
	return keyInitialized
}

func currentKey() ([]byte, error) {
	keyMutex.RLock()
	defer keyMutex.RUnlock()
	if !keyInitialized {
		return nil, ErrNoKey
	}
	key := make([]byte, len(sealKey))
	copy(key, sealKey)
	return key, nil
}

// Encrypt seals plaintext with AES-256-GCM. The empty string stays empty so
// optional credential columns round-trip.
func Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	key, err := currentKey()
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt opens a sealed credential.
func Decrypt(encoded string) (string, error) {
	if encoded == "" {
		return "", nil
	}
	key, err := currentKey()
	if err != nil {
		return "", err
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrDecryptFailed
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}
	if len(data) < gcm.NonceSize() {
		return "", ErrDecryptFailed
	}

	nonce, ciphertext := data[:gcm.NonceSize()], data[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrDecryptFailed
	}
	return string(plaintext), nil
}
