// Facilium - Facility & Asset Condition Assessment Platform
// Copyright 2026 Facilium Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/facilium/facilium

package backup

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

func TestNewEngineValidation(t *testing.T) {
	if _, err := NewEngine("", "primary"); err == nil {
		t.Error("expected error for empty secret")
	}
	if _, err := NewEngine("super-secret", ""); err == nil {
		t.Error("expected error for empty key ID")
	}
	engine, err := NewEngine("super-secret", "primary")
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	if engine.KeyID() != "primary" {
		t.Errorf("KeyID() = %q, want %q", engine.KeyID(), "primary")
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	engine, err := NewEngine("super-secret", "primary")
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	plaintext := []byte(`{"version":"1","records":{"facilities":[{"id":"f1"}]}}`)
	sealed, meta, err := engine.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	if meta.Algorithm != AlgorithmAESGCM {
		t.Errorf("algorithm = %q, want %q", meta.Algorithm, AlgorithmAESGCM)
	}
	if meta.KeyID != "primary" {
		t.Errorf("key ID = %q, want %q", meta.KeyID, "primary")
	}
	if meta.IV == "" || meta.AuthTag == "" {
		t.Error("IV and auth tag must both be populated")
	}
	if strings.Contains(string(sealed), "facilities") {
		t.Error("sealed output leaks plaintext content")
	}

	recovered, err := engine.Decrypt(sealed)
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	if string(recovered) != string(plaintext) {
		t.Errorf("round trip mismatch: got %q", recovered)
	}
}

func TestEncryptUsesFreshNonce(t *testing.T) {
	engine, err := NewEngine("super-secret", "primary")
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	_, first, err := engine.Encrypt([]byte("payload"))
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	_, second, err := engine.Encrypt([]byte("payload"))
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if first.IV == second.IV {
		t.Error("two encryptions reused the same nonce")
	}
}

func TestDecryptRejectsTamperedCiphertext(t *testing.T) {
	engine, err := NewEngine("super-secret", "primary")
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	sealed, _, err := engine.Encrypt([]byte("sensitive payload"))
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	var env Envelope
	if err := json.Unmarshal(sealed, &env); err != nil {
		t.Fatalf("failed to decode envelope: %v", err)
	}
	raw, err := base64.StdEncoding.DecodeString(env.Ciphertext)
	if err != nil {
		t.Fatalf("failed to decode ciphertext: %v", err)
	}
	raw[0] ^= 0xFF
	env.Ciphertext = base64.StdEncoding.EncodeToString(raw)

	tampered, err := json.Marshal(&env)
	if err != nil {
		t.Fatalf("failed to encode envelope: %v", err)
	}

	// The checksum is over the original ciphertext, so the flip is caught
	// before GCM even runs.
	if _, err := engine.Decrypt(tampered); !errors.Is(err, ErrChecksumMismatch) {
		t.Errorf("expected ErrChecksumMismatch, got: %v", err)
	}

	// With the checksum recomputed, GCM authentication must still reject.
	env.Checksum = ChecksumHex(raw)
	tampered, err = json.Marshal(&env)
	if err != nil {
		t.Fatalf("failed to encode envelope: %v", err)
	}
	if _, err := engine.Decrypt(tampered); !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("expected ErrDecryptionFailed, got: %v", err)
	}
}

func TestDecryptRejectsWrongKey(t *testing.T) {
	encryptor, err := NewEngine("secret-one", "primary")
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	decryptor, err := NewEngine("secret-two", "primary")
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	sealed, _, err := encryptor.Encrypt([]byte("payload"))
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if _, err := decryptor.Decrypt(sealed); !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("expected ErrDecryptionFailed, got: %v", err)
	}
}

func TestNilEngineRefusesToEncrypt(t *testing.T) {
	var engine *Engine
	if _, _, err := engine.Encrypt([]byte("payload")); !errors.Is(err, ErrEncryptionUnavailable) {
		t.Errorf("expected ErrEncryptionUnavailable, got: %v", err)
	}
	if _, err := engine.Decrypt([]byte("{}")); !errors.Is(err, ErrEncryptionUnavailable) {
		t.Errorf("expected ErrEncryptionUnavailable, got: %v", err)
	}
}

func TestChecksumHexIsStable(t *testing.T) {
	a := ChecksumHex([]byte("hello"))
	b := ChecksumHex([]byte("hello"))
	if a != b {
		t.Error("checksum of identical input differs")
	}
	if len(a) != 64 {
		t.Errorf("checksum length = %d, want 64 hex chars", len(a))
	}
	if ChecksumHex([]byte("hello")) == ChecksumHex([]byte("world")) {
		t.Error("distinct inputs produced identical checksums")
	}
}
