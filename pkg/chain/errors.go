// Copyright 2025 Certen Protocol

package chain

import (
	"errors"
	"fmt"
)

// Sentinel and typed errors surfaced at the Chain's component boundary, per
// the ValidationError/StoreError families.
var (
	ErrMissingHeader              = errors.New("chain: block has no header")
	ErrInvalidSignature           = errors.New("chain: invalid block signature")
	ErrInvalidTransactionSignature = errors.New("chain: invalid transaction signature")
	ErrInvalidPublicKey            = errors.New("chain: invalid public key")
	ErrUTXOMissing                 = errors.New("chain: referenced utxo does not exist")
	ErrInsufficientBalance          = errors.New("chain: inputs do not cover outputs")
	ErrChainIsEmpty                = errors.New("chain: chain is empty")
	ErrBlockNotFound                = errors.New("chain: block not found")
)

// InvalidPreviousHashError reports a previous-hash linkage mismatch,
// carrying both the expected and actual values for diagnostics.
type InvalidPreviousHashError struct {
	Expected string
	Got      string
}

func (e *InvalidPreviousHashError) Error() string {
	return "chain: invalid previous hash: expected " + e.Expected + ", got " + e.Got
}

// HeightTooHighError reports a height request beyond the chain's tip.
type HeightTooHighError struct {
	Height    uint64
	MaxHeight uint64
}

func (e *HeightTooHighError) Error() string {
	return fmt.Sprintf("chain: height %d exceeds chain height %d", e.Height, e.MaxHeight)
}
