// Copyright 2025 Certen Protocol
//
// Header and Block, and the header hash that a leader signs to finalize a
// block: sha3-512 over version, height, previous hash, Merkle root, and
// timestamp, each field in big-endian form so the digest is unambiguous
// regardless of platform.

package block

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/vectorchain/validator/pkg/crypto"
	"github.com/vectorchain/validator/pkg/merkle"
	"github.com/vectorchain/validator/pkg/transaction"
)

// Header is the fixed-size commitment to a block's contents.
type Header struct {
	Version      uint32 `json:"version"`
	Height       uint64 `json:"height"`
	PreviousHash []byte `json:"previous_hash"`
	RootHash     []byte `json:"root_hash"`
	Timestamp    int64  `json:"timestamp"`
}

// Block pairs a header with the transactions it commits to via RootHash.
type Block struct {
	Header       Header                     `json:"header"`
	Transactions []transaction.Transaction  `json:"transactions"`
	Signature    []byte                     `json:"signature,omitempty"`
	ProposerKey  []byte                     `json:"proposer_key,omitempty"`
}

// HashHeader returns the sha3-512 digest a leader signs and every
// validator re-derives to agree on a proposed block.
func HashHeader(h Header) []byte {
	buf := make([]byte, 4+8+8)
	binary.BigEndian.PutUint32(buf[0:4], h.Version)
	binary.BigEndian.PutUint64(buf[4:12], h.Height)
	binary.BigEndian.PutUint64(buf[12:20], uint64(h.Timestamp))

	return crypto.Hash(buf[0:4], buf[4:12], h.PreviousHash, h.RootHash, buf[12:20])
}

// HashHeaderHex returns HashHeader hex-encoded.
func HashHeaderHex(h Header) string {
	return hex.EncodeToString(HashHeader(h))
}

// MerkleRoot computes the Merkle root of a transaction set using each
// transaction's identity hash as a leaf. An empty set roots to the
// all-zero digest.
func MerkleRoot(txs []transaction.Transaction) ([]byte, error) {
	if len(txs) == 0 {
		return make([]byte, merkle.DigestSize), nil
	}

	leaves := make([][]byte, len(txs))
	for i := range txs {
		h, err := txs[i].Hash()
		if err != nil {
			return nil, fmt.Errorf("hash transaction %d: %w", i, err)
		}
		leaves[i] = h
	}

	tree, err := merkle.BuildTree(leaves)
	if err != nil {
		return nil, fmt.Errorf("build merkle tree: %w", err)
	}
	return tree.Root(), nil
}

// Sign computes the header hash and signs it with kp, recording both the
// signature and the signer's public key on the block.
func (b *Block) Sign(kp *crypto.Keypair) {
	digest := HashHeader(b.Header)
	b.Signature = kp.Sign(digest)
	b.ProposerKey = append([]byte(nil), kp.Public...)
}

// VerifySignature checks the block's signature against its header hash and
// recorded proposer key.
func (b *Block) VerifySignature() error {
	pub, err := crypto.PublicKeyFromBytes(b.ProposerKey)
	if err != nil {
		return fmt.Errorf("proposer key: %w", err)
	}
	digest := HashHeader(b.Header)
	if !crypto.Verify(pub, digest, b.Signature) {
		return fmt.Errorf("block signature verification failed")
	}
	return nil
}

// VerifyMerkleRoot recomputes the Merkle root over b.Transactions and
// compares it to b.Header.RootHash.
func (b *Block) VerifyMerkleRoot() error {
	root, err := MerkleRoot(b.Transactions)
	if err != nil {
		return err
	}
	if hex.EncodeToString(root) != hex.EncodeToString(b.Header.RootHash) {
		return fmt.Errorf("merkle root mismatch: header has %x, computed %x", b.Header.RootHash, root)
	}
	return nil
}
