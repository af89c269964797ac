// Copyright 2025 Certen Protocol

package crypto

import "golang.org/x/crypto/sha3"

// DigestSize is the width of every hash produced by this module: a
// 512-bit sha3 digest.
const DigestSize = 64

// Hash returns the sha3-512 digest of data.
func Hash(data ...[]byte) []byte {
	h := sha3.New512()
	for _, d := range data {
		h.Write(d)
	}
	return h.Sum(nil)
}
