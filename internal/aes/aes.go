/*
Copyright (c) Tobias Schäfer. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package aes

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
)

// Encrypt seals the plaintext with AES-256-GCM under a key derived from
// the shared secret. The nonce is prepended to the ciphertext and the
// result is base64 encoded for storage in text columns.
func Encrypt(secret string, plaintext []byte) (string, error) {
	slog.Debug("Encrypting data with AES-256-GCM")

	sealer, err := newSealer(secret)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, sealer.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := sealer.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a sealed value produced by Encrypt. Tampered or
// truncated input fails authentication and returns an error.
func Decrypt(secret string, encoded string) ([]byte, error) {
	slog.Debug("Decrypting data with AES-256-GCM")

	sealer, err := newSealer(secret)
	if err != nil {
		return nil, err
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, err
	}

	if len(data) < sealer.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce := data[:sealer.NonceSize()]
	ciphertext := data[sealer.NonceSize():]

	return sealer.Open(nil, nonce, ciphertext, nil)
}

func newSealer(secret string) (cipher.AEAD, error) {
	if secret == "" {
		return nil, errors.New("encryption secret must not be empty")
	}

	key := sha256.Sum256([]byte(secret))

	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}

	return cipher.NewGCM(block)
}
