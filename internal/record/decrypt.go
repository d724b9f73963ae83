package record

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// AESDecrypter decrypts account identifiers sealed with AES-256-GCM.
// Ciphertexts are base64-encoded with the nonce prefixed to the sealed data.
type AESDecrypter struct {
	aead cipher.AEAD
}

// NewAESDecrypter derives a 256-bit key from the configured secret.
func NewAESDecrypter(secret string) (*AESDecrypter, error) {
	key := sha256.Sum256([]byte(secret))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("record: failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("record: failed to create GCM: %w", err)
	}
	return &AESDecrypter{aead: aead}, nil
}

// Decrypt opens a sealed account identifier.
func (d *AESDecrypter) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("record: ciphertext is not valid base64: %w", err)
	}
	if len(raw) < d.aead.NonceSize() {
		return "", fmt.Errorf("record: ciphertext shorter than nonce")
	}
	nonce, sealed := raw[:d.aead.NonceSize()], raw[d.aead.NonceSize():]
	plain, err := d.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("record: failed to decrypt account identifier: %w", err)
	}
	return string(plain), nil
}

// Seal encrypts an account identifier. Used by tests and tooling; the
// ingest path only ever decrypts.
func (d *AESDecrypter) Seal(plaintext string, nonce []byte) (string, error) {
	if len(nonce) != d.aead.NonceSize() {
		return "", fmt.Errorf("record: nonce must be %d bytes", d.aead.NonceSize())
	}
	sealed := d.aead.Seal(nil, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(append(append([]byte{}, nonce...), sealed...)), nil
}
