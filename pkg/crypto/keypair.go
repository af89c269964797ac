// Copyright 2025 Certen Protocol
//
// Node keypair generation, loading, and Ed25519 signing. Seeds are derived
// from OS entropy folded through a 512-bit digest with a thread-local
// source, mirroring how the original validator prototype combined
// rand::thread_rng with OsRng before handing the result to ed25519_dalek.

package crypto

import (
	"crypto/ed25519"
	cryptorand "crypto/rand"
	"encoding/hex"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"golang.org/x/crypto/sha3"
)

// SignatureSize is the width of every signature this package produces:
// Ed25519 signatures are always 64 bytes.
const SignatureSize = ed25519.SignatureSize

// Keypair is a node's identity: an Ed25519 signing key plus its public
// counterpart.
type Keypair struct {
	Public  ed25519.PublicKey
	Private ed25519.PrivateKey
}

// GenerateSeed derives a 32-byte Ed25519 seed from OS entropy combined with
// a non-cryptographic thread-local generator, folded through sha3-512 (the
// first 32 bytes of the digest form the seed) so neither source alone
// determines the result.
func GenerateSeed() ([]byte, error) {
	osEntropy := make([]byte, 32)
	if _, err := cryptorand.Read(osEntropy); err != nil {
		return nil, fmt.Errorf("read OS entropy: %w", err)
	}

	threadEntropy := make([]byte, 32)
	rand.New(rand.NewSource(int64(os.Getpid()))).Read(threadEntropy) //nolint:gosec

	h := sha3.New512()
	h.Write(osEntropy)
	h.Write(threadEntropy)
	return h.Sum(nil)[:ed25519.SeedSize], nil
}

// GenerateKeypair creates a fresh Ed25519 keypair from a freshly generated
// seed.
func GenerateKeypair() (*Keypair, error) {
	seed, err := GenerateSeed()
	if err != nil {
		return nil, err
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return &Keypair{Public: priv.Public().(ed25519.PublicKey), Private: priv}, nil
}

// LoadOrGenerateKeypair loads the hex-encoded seed at path, or generates
// and persists a new one if the file does not exist.
func LoadOrGenerateKeypair(path string) (*Keypair, error) {
	if path == "" {
		return GenerateKeypair()
	}
	if _, err := os.Stat(path); err == nil {
		return LoadKeypair(path)
	}

	kp, err := GenerateKeypair()
	if err != nil {
		return nil, err
	}
	if err := kp.Save(path); err != nil {
		return nil, err
	}
	return kp, nil
}

// LoadKeypair reads a hex-encoded Ed25519 seed from path.
func LoadKeypair(path string) (*Keypair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	seed, err := hex.DecodeString(string(data))
	if err != nil {
		return nil, fmt.Errorf("decode key hex: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("key file has %d-byte seed, want %d", len(seed), ed25519.SeedSize)
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return &Keypair{Public: priv.Public().(ed25519.PublicKey), Private: priv}, nil
}

// Save writes the keypair's seed to path as hex, creating parent
// directories as needed.
func (k *Keypair) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create key directory: %w", err)
	}
	seed := k.Private.Seed()
	if err := os.WriteFile(path, []byte(hex.EncodeToString(seed)), 0o600); err != nil {
		return fmt.Errorf("write key file: %w", err)
	}
	return nil
}

// Sign signs message with the keypair's private key, always producing a
// 64-byte signature.
func (k *Keypair) Sign(message []byte) []byte {
	return ed25519.Sign(k.Private, message)
}

// Verify reports whether sig is message signed by pubKey.
func Verify(pubKey ed25519.PublicKey, message, sig []byte) bool {
	if len(pubKey) != ed25519.PublicKeySize || len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(pubKey, message, sig)
}

// PublicKeyFromBytes validates and wraps raw public-key bytes.
func PublicKeyFromBytes(b []byte) (ed25519.PublicKey, error) {
	if len(b) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("public key must be %d bytes, got %d", ed25519.PublicKeySize, len(b))
	}
	return ed25519.PublicKey(b), nil
}
