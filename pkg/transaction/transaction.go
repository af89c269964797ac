// Copyright 2025 Certen Protocol
//
// Transaction, TransactionInput, and TransactionOutput, plus the two
// hashes every transaction needs: an identity hash (used as a Merkle leaf
// and as the key future inputs reference) and a signing hash that excludes
// input signatures so each input can commit to the whole transaction
// without signing itself.

package transaction

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"

	"github.com/vectorchain/validator/pkg/commitment"
	"github.com/vectorchain/validator/pkg/crypto"
)

// TransactionInput references a prior transaction's output by (hash, index)
// and authorizes spending it.
type TransactionInput struct {
	PrevTxHash  string `json:"prev_tx_hash"`
	OutputIndex uint32 `json:"output_index"`
	PublicKey   []byte `json:"public_key"`
	Signature   []byte `json:"signature,omitempty"`
}

// TransactionOutput credits amount to Owner, becoming a spendable UTXO once
// the enclosing transaction is included in a block.
type TransactionOutput struct {
	Amount int64  `json:"amount"`
	Owner  []byte `json:"owner"`
}

// Transaction moves value from the UTXOs its inputs reference to new UTXOs
// described by its outputs. Version and RelativeTimestamp are part of the
// transaction's identity and signing encodings, not mere metadata.
type Transaction struct {
	Version           int32               `json:"version"`
	Inputs            []TransactionInput  `json:"inputs"`
	Outputs           []TransactionOutput `json:"outputs"`
	RelativeTimestamp int64               `json:"relative_timestamp"`
}

// Hash returns the transaction's identity hash: a sha3-512 digest of its
// canonical encoding including input signatures. This is what a
// transaction is known by once it has been signed — the value that a
// future input's PrevTxHash points back to, and the value used as a
// Merkle leaf when a block includes it.
func (t *Transaction) Hash() ([]byte, error) {
	canon, err := commitment.MarshalCanonical(t)
	if err != nil {
		return nil, fmt.Errorf("marshal transaction: %w", err)
	}
	return crypto.Hash(canon), nil
}

// HashHex returns Hash hex-encoded.
func (t *Transaction) HashHex() (string, error) {
	h, err := t.Hash()
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(h), nil
}

// SigningHash returns the digest each input's signature must cover: the
// transaction's canonical encoding with every input signature cleared, so
// a signature never has to commit to its own bytes.
func (t *Transaction) SigningHash() ([]byte, error) {
	stripped := Transaction{
		Version:           t.Version,
		Inputs:            make([]TransactionInput, len(t.Inputs)),
		Outputs:           t.Outputs,
		RelativeTimestamp: t.RelativeTimestamp,
	}
	for i, in := range t.Inputs {
		stripped.Inputs[i] = TransactionInput{
			PrevTxHash:  in.PrevTxHash,
			OutputIndex: in.OutputIndex,
			PublicKey:   in.PublicKey,
		}
	}
	canon, err := commitment.MarshalCanonical(&stripped)
	if err != nil {
		return nil, fmt.Errorf("marshal signing hash: %w", err)
	}
	return crypto.Hash(canon), nil
}

// SignInput computes the transaction's signing hash and signs it with kp,
// filling in Inputs[index].Signature. The caller is responsible for
// Inputs[index].PublicKey already matching kp.
func (t *Transaction) SignInput(index int, kp *crypto.Keypair) error {
	if index < 0 || index >= len(t.Inputs) {
		return fmt.Errorf("input index %d out of range [0, %d)", index, len(t.Inputs))
	}
	digest, err := t.SigningHash()
	if err != nil {
		return err
	}
	t.Inputs[index].Signature = kp.Sign(digest)
	return nil
}

// VerifyInputSignatures checks that every input's signature covers the
// transaction's current signing hash and was produced by that input's
// claimed public key.
func (t *Transaction) VerifyInputSignatures() error {
	digest, err := t.SigningHash()
	if err != nil {
		return err
	}
	for i, in := range t.Inputs {
		pub, err := crypto.PublicKeyFromBytes(in.PublicKey)
		if err != nil {
			return fmt.Errorf("input %d: %w", i, err)
		}
		if len(in.Signature) != ed25519.SignatureSize {
			return fmt.Errorf("input %d: signature must be %d bytes, got %d", i, ed25519.SignatureSize, len(in.Signature))
		}
		if !crypto.Verify(pub, digest, in.Signature) {
			return fmt.Errorf("input %d: signature verification failed", i)
		}
	}
	return nil
}

// TotalOutput sums every output amount.
func (t *Transaction) TotalOutput() int64 {
	var total int64
	for _, o := range t.Outputs {
		total += o.Amount
	}
	return total
}
