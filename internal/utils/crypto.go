// internal/utils/crypto.go
package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
)

// SecretPrefix marks a value produced by EncryptSecret.
const SecretPrefix = "enc:"

// secretKey pads or truncates key to 32 bytes for AES-256
func secretKey(key string) []byte {
	keyBytes := make([]byte, 32)
	copy(keyBytes, key)
	return keyBytes
}

func newGCM(key string) (cipher.AEAD, error) {
	block, err := aes.NewCipher(secretKey(key))
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Encrypt encrypts the plaintext using AES-GCM encryption
func Encrypt(plaintext, key string) (string, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err = io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt decrypts the ciphertext using AES-GCM decryption
func Decrypt(ciphertext, key string) (string, error) {
	ciphertextBytes, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", err
	}

	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertextBytes) < nonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}

	nonce, sealed := ciphertextBytes[:nonceSize], ciphertextBytes[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// EncryptSecret encrypts value for storage in a config file. Empty values
// stay empty.
func EncryptSecret(value, key string) (string, error) {
	if value == "" || IsEncryptedSecret(value) {
		return value, nil
	}
	sealed, err := Encrypt(value, key)
	if err != nil {
		return "", err
	}
	return SecretPrefix + sealed, nil
}

// DecryptSecret reverses EncryptSecret. Values without the prefix are
// returned unchanged so plaintext files keep loading.
func DecryptSecret(value, key string) (string, error) {
	if !IsEncryptedSecret(value) {
		return value, nil
	}
	return Decrypt(strings.TrimPrefix(value, SecretPrefix), key)
}

// IsEncryptedSecret reports whether value carries the secret prefix.
func IsEncryptedSecret(value string) bool {
	return strings.HasPrefix(value, SecretPrefix)
}
