// Copyright 2025 Certen Protocol
//
// MakeTx implements the wallet-side transaction construction the
// prototype's node carries (original_source/vec_node/src/node.rs,
// make_tx): select owned UTXOs by descending amount until the target is
// covered, sign every input, add a change output if the inputs
// overshoot, remove the spent UTXOs from the local store optimistically,
// then broadcast.

package node

import (
	"context"
	"fmt"

	"github.com/vectorchain/validator/pkg/chain"
	"github.com/vectorchain/validator/pkg/store"
	"github.com/vectorchain/validator/pkg/transaction"
)

// TransactionVersion is the wire version MakeTx stamps onto every
// transaction it builds.
const TransactionVersion = 1

// MakeTx builds, signs, and broadcasts a transaction paying amount to to.
func (s *Service) MakeTx(ctx context.Context, to []byte, amount int64) (transaction.Transaction, error) {
	if amount <= 0 {
		return transaction.Transaction{}, fmt.Errorf("make_tx: amount must be positive, got %d", amount)
	}

	spendable, err := s.utxoStore.FindSpendable(s.keypair.Public, amount)
	if err != nil {
		return transaction.Transaction{}, fmt.Errorf("make_tx: %w", err)
	}

	var total int64
	tx := transaction.Transaction{
		Version:           TransactionVersion,
		Inputs:            make([]transaction.TransactionInput, len(spendable)),
		Outputs:           []transaction.TransactionOutput{{Amount: amount, Owner: to}},
		RelativeTimestamp: chain.Now(),
	}
	for i, u := range spendable {
		tx.Inputs[i] = transaction.TransactionInput{
			PrevTxHash:  u.TxHash,
			OutputIndex: u.OutputIndex,
			PublicKey:   append([]byte(nil), s.keypair.Public...),
		}
		total += u.Amount
	}

	if change := total - amount; change > 0 {
		tx.Outputs = append(tx.Outputs, transaction.TransactionOutput{
			Amount: change,
			Owner:  append([]byte(nil), s.keypair.Public...),
		})
	}

	for i := range tx.Inputs {
		if err := tx.SignInput(i, s.keypair); err != nil {
			return transaction.Transaction{}, fmt.Errorf("make_tx: sign input %d: %w", i, err)
		}
	}

	// Optimistically remove the spent UTXOs locally; the chain will
	// re-derive the authoritative UTXO set once this transaction lands in
	// a block.
	for _, u := range spendable {
		if err := s.utxoStore.Remove(u.TxHash, u.OutputIndex); err != nil && err != store.ErrUTXONotFound {
			s.logger.Printf("make_tx: failed to locally remove spent utxo %s:%d: %v", u.TxHash, u.OutputIndex, err)
		}
	}

	hash, err := tx.HashHex()
	if err != nil {
		return transaction.Transaction{}, fmt.Errorf("make_tx: hash transaction: %w", err)
	}
	if _, err := s.mempool.Add(tx); err != nil {
		return transaction.Transaction{}, fmt.Errorf("make_tx: add to mempool: %w", err)
	}

	if err := s.BroadcastTransactionHash(ctx, hash); err != nil {
		s.logger.Printf("make_tx: broadcast failed: %v", err)
	}
	return tx, nil
}
