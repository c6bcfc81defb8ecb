// Facilium - Facility & Asset Condition Assessment Platform
// Copyright 2026 Facilium Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/facilium/facilium

package backup

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"golang.org/x/crypto/hkdf"
)

// AlgorithmAESGCM is the algorithm identifier stored in encryption metadata.
const AlgorithmAESGCM = "AES-256-GCM"

const (
	// HKDF parameters. Changing either invalidates every existing backup,
	// so they are fixed for the lifetime of the payload format version.
	hkdfSalt = "facilium-backup-keys"
	hkdfInfo = "backup-encryption-v1"

	gcmTagSize = 16
)

var (
	// ErrEncryptionUnavailable is returned when a schedule requests
	// encryption but no encryption secret is configured. The run fails
	// rather than falling back to plaintext.
	ErrEncryptionUnavailable = errors.New("encryption requested but no encryption secret is configured")

	// ErrChecksumMismatch is returned when stored bytes do not hash to the
	// recorded checksum.
	ErrChecksumMismatch = errors.New("backup payload checksum mismatch")

	// ErrDecryptionFailed is returned when authenticated decryption fails,
	// indicating tampering or a wrong key.
	ErrDecryptionFailed = errors.New("backup payload decryption failed")
)

// Envelope is the encrypted on-disk form of a backup payload. The envelope
// itself is plain JSON so a payload can be inspected and verified without
// the key; only Ciphertext is opaque.
type Envelope struct {
	Version   string `json:"version"`
	Algorithm string `json:"algorithm"`
	KeyID     string `json:"key_id"`

	// Base64-encoded GCM nonce.
	IV string `json:"iv"`

	// Base64-encoded GCM authentication tag, stored separately from the
	// ciphertext it authenticates.
	AuthTag string `json:"auth_tag"`

	// Hex SHA-256 of the raw ciphertext bytes, for integrity checks that
	// do not require the key.
	Checksum string `json:"checksum"`

	// Base64-encoded ciphertext without the tag.
	Ciphertext string `json:"ciphertext"`
}

// Engine encrypts and decrypts backup payloads with AES-256-GCM. The data
// key is derived from the configured secret via HKDF-SHA256 so the raw
// secret never touches a payload. A nil *Engine is valid and means
// encryption is not configured.
type Engine struct {
	key   []byte
	keyID string
}

// NewEngine derives the data key from secret. keyID is recorded alongside
// every payload to support future key rotation.
func NewEngine(secret, keyID string) (*Engine, error) {
	if secret == "" {
		return nil, errors.New("encryption secret must not be empty")
	}
	if keyID == "" {
		return nil, errors.New("encryption key ID must not be empty")
	}

	reader := hkdf.New(sha256.New, []byte(secret), []byte(hkdfSalt), []byte(hkdfInfo))
	key := make([]byte, 32)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("failed to derive encryption key: %w", err)
	}

	return &Engine{key: key, keyID: keyID}, nil
}

// KeyID returns the identifier of the active key.
func (e *Engine) KeyID() string {
	return e.keyID
}

// Encrypt seals plaintext and returns the serialized envelope together with
// the metadata to record on the ledger entry. A fresh random nonce is drawn
// for every call.
func (e *Engine) Encrypt(plaintext []byte) ([]byte, *EncryptionMetadata, error) {
	if e == nil {
		return nil, nil, ErrEncryptionUnavailable
	}

	block, err := aes.NewCipher(e.key)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, plaintext, nil)
	ciphertext := sealed[:len(sealed)-gcmTagSize]
	tag := sealed[len(sealed)-gcmTagSize:]

	env := &Envelope{
		Version:    PayloadVersion,
		Algorithm:  AlgorithmAESGCM,
		KeyID:      e.keyID,
		IV:         base64.StdEncoding.EncodeToString(nonce),
		AuthTag:    base64.StdEncoding.EncodeToString(tag),
		Checksum:   ChecksumHex(ciphertext),
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
	}

	data, err := json.Marshal(env)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode envelope: %w", err)
	}

	meta := &EncryptionMetadata{
		Algorithm: AlgorithmAESGCM,
		IV:        env.IV,
		AuthTag:   env.AuthTag,
		KeyID:     e.keyID,
	}
	return data, meta, nil
}

// Decrypt opens a serialized envelope. The ciphertext checksum is verified
// before decryption so corruption and tampering are distinguishable.
func (e *Engine) Decrypt(data []byte) ([]byte, error) {
	if e == nil {
		return nil, ErrEncryptionUnavailable
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to decode envelope: %w", err)
	}
	if env.Algorithm != AlgorithmAESGCM {
		return nil, fmt.Errorf("unsupported algorithm %q", env.Algorithm)
	}

	nonce, err := base64.StdEncoding.DecodeString(env.IV)
	if err != nil {
		return nil, fmt.Errorf("failed to decode IV: %w", err)
	}
	tag, err := base64.StdEncoding.DecodeString(env.AuthTag)
	if err != nil {
		return nil, fmt.Errorf("failed to decode auth tag: %w", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(env.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	if env.Checksum != "" && env.Checksum != ChecksumHex(ciphertext) {
		return nil, ErrChecksumMismatch
	}

	block, err := aes.NewCipher(e.key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	sealed := append(ciphertext, tag...)
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

// ChecksumHex returns the hex-encoded SHA-256 of data. It is applied to the
// exact bytes handed to the object store, so verification never needs the
// encryption key.
func ChecksumHex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
