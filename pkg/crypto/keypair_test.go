// Copyright 2025 Certen Protocol

package crypto

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGenerateKeypair_SignVerify(t *testing.T) {
	kp, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}

	msg := []byte("hello round")
	sig := kp.Sign(msg)
	if len(sig) != SignatureSize {
		t.Fatalf("signature length = %d, want %d", len(sig), SignatureSize)
	}
	if !Verify(kp.Public, msg, sig) {
		t.Fatal("valid signature failed to verify")
	}
	if Verify(kp.Public, []byte("tampered"), sig) {
		t.Fatal("verify accepted a signature over the wrong message")
	}
}

func TestLoadOrGenerateKeypair_PersistsAndReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "node.key")

	first, err := LoadOrGenerateKeypair(path)
	if err != nil {
		t.Fatalf("first LoadOrGenerateKeypair: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("key file was not created: %v", err)
	}

	second, err := LoadOrGenerateKeypair(path)
	if err != nil {
		t.Fatalf("second LoadOrGenerateKeypair: %v", err)
	}

	if !first.Public.Equal(second.Public) {
		t.Fatal("reloaded keypair has a different public key")
	}
}

func TestHash_DeterministicAndSized(t *testing.T) {
	h1 := Hash([]byte("a"), []byte("b"))
	h2 := Hash([]byte("a"), []byte("b"))
	if len(h1) != DigestSize {
		t.Fatalf("hash length = %d, want %d", len(h1), DigestSize)
	}
	if string(h1) != string(h2) {
		t.Fatal("hash is not deterministic")
	}

	h3 := Hash([]byte("ab"))
	if string(h1) == string(h3) {
		t.Fatal("concatenation boundary is not part of the hash input")
	}
}
