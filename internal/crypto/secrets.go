// Package crypto seals backup payloads with AES-256-GCM. The wire layout is
// [16-byte IV][16-byte auth tag][ciphertext], so the decoder can strip the
// prefixes without knowing the payload length up front.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	KeySize = 32
	ivSize  = 16
	tagSize = 16
)

// GenerateKey returns a fresh random AES-256 key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return key, nil
}

// ResolveKey turns operator-supplied key material into an AES-256 key.
// A base64 encoding of exactly 32 bytes is used as-is; any other non-empty
// string is treated as a passphrase and stretched with HKDF-SHA256.
func ResolveKey(material string) ([]byte, error) {
	if material == "" {
		return nil, fmt.Errorf("resolve key: empty key material")
	}
	if raw, err := base64.StdEncoding.DecodeString(material); err == nil && len(raw) == KeySize {
		return raw, nil
	}
	key := make([]byte, KeySize)
	r := hkdf.New(sha256.New, []byte(material), []byte("drengine-backup-key"), nil)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return key, nil
}

// EncodeKey renders a key in the form ResolveKey accepts verbatim.
func EncodeKey(key []byte) string {
	return base64.StdEncoding.EncodeToString(key)
}

// Seal encrypts plaintext and prepends the IV and auth tag.
func Seal(plaintext, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("generate iv: %w", err)
	}

	// Seal appends the tag after the ciphertext; the wire layout wants it
	// between the IV and the ciphertext.
	sealed := gcm.Seal(nil, iv, plaintext, nil)
	ct, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]

	out := make([]byte, 0, ivSize+tagSize+len(ct))
	out = append(out, iv...)
	out = append(out, tag...)
	out = append(out, ct...)
	return out, nil
}

// Open decrypts data produced by Seal, authenticating it in the process.
func Open(data, key []byte) ([]byte, error) {
	if len(data) < ivSize+tagSize {
		return nil, fmt.Errorf("open: payload too short (%d bytes)", len(data))
	}
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	iv := data[:ivSize]
	tag := data[ivSize : ivSize+tagSize]
	ct := data[ivSize+tagSize:]

	sealed := make([]byte, 0, len(ct)+tagSize)
	sealed = append(sealed, ct...)
	sealed = append(sealed, tag...)

	plaintext, err := gcm.Open(nil, iv, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("key must be %d bytes, got %d", KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, ivSize)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	return gcm, nil
}
