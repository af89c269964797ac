// Copyright 2025 Certen Protocol

package chain

import (
	"io"
	"log"
	"strings"
	"testing"

	"github.com/vectorchain/validator/pkg/block"
	"github.com/vectorchain/validator/pkg/crypto"
	"github.com/vectorchain/validator/pkg/store"
	"github.com/vectorchain/validator/pkg/transaction"
)

func newDiscardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func newTestChain(t *testing.T) *Chain {
	t.Helper()
	c, err := NewChain(store.NewMemoryBlockStore(), store.NewMemoryUTXOStore())
	if err != nil {
		t.Fatalf("NewChain: %v", err)
	}
	return c
}

func TestChain_Genesis(t *testing.T) {
	c := newTestChain(t)

	if c.Len() != 1 {
		t.Fatalf("Len = %d, want 1", c.Len())
	}
	if c.Height() != 0 {
		t.Fatalf("Height = %d, want 0", c.Height())
	}

	genesis, err := c.GetBlockByHeight(0)
	if err != nil {
		t.Fatalf("GetBlockByHeight(0): %v", err)
	}
	if len(genesis.Transactions) != 1 || len(genesis.Transactions[0].Outputs) != 1 {
		t.Fatalf("genesis transaction shape: %+v", genesis.Transactions)
	}
	if genesis.Transactions[0].Outputs[0].Amount != 1000 {
		t.Fatalf("genesis output amount = %d, want 1000", genesis.Transactions[0].Outputs[0].Amount)
	}
}

// spendGenesis builds a signed transaction that spends the whole genesis
// output to recipient and returns that transaction.
func spendGenesis(t *testing.T, c *Chain, genesisKp *crypto.Keypair, recipient []byte) transaction.Transaction {
	t.Helper()
	genesis, err := c.GetBlockByHeight(0)
	if err != nil {
		t.Fatalf("GetBlockByHeight(0): %v", err)
	}
	genesisTxHash, err := genesis.Transactions[0].HashHex()
	if err != nil {
		t.Fatalf("HashHex: %v", err)
	}

	tx := transaction.Transaction{
		Inputs: []transaction.TransactionInput{
			{PrevTxHash: genesisTxHash, OutputIndex: 0, PublicKey: append([]byte(nil), genesisKp.Public...)},
		},
		Outputs: []transaction.TransactionOutput{
			{Amount: 1000, Owner: recipient},
		},
	}
	if err := tx.SignInput(0, genesisKp); err != nil {
		t.Fatalf("SignInput: %v", err)
	}
	return tx
}

func TestChain_AddBlock_SpendsGenesisOutput(t *testing.T) {
	// Build a fresh chain and pull the genesis keypair back out by
	// constructing our own genesis-like setup: since NewChain generates an
	// ephemeral keypair internally, we instead build a whole chain by hand
	// here to keep control of the genesis keypair.
	genesisKp, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	genesisTx := transaction.Transaction{
		Outputs: []transaction.TransactionOutput{{Amount: 1000, Owner: append([]byte(nil), genesisKp.Public...)}},
	}
	root, err := block.MerkleRoot([]transaction.Transaction{genesisTx})
	if err != nil {
		t.Fatalf("MerkleRoot: %v", err)
	}
	genesisBlock := &block.Block{
		Header:       block.Header{Version: 1, Height: 0, RootHash: root},
		Transactions: []transaction.Transaction{genesisTx},
	}
	genesisBlock.Sign(genesisKp)

	bs := store.NewMemoryBlockStore()
	us := store.NewMemoryUTXOStore()
	c := &Chain{
		headers:    NewHeaderList(),
		blockStore: bs,
		utxoStore:  us,
		logger:     newDiscardLogger(),
	}
	if err := c.addLeaderBlock(genesisBlock); err != nil {
		t.Fatalf("addLeaderBlock(genesis): %v", err)
	}

	recipientKp, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	spendTx := spendGenesis(t, c, genesisKp, append([]byte(nil), recipientKp.Public...))

	tipHash, err := c.TipHash()
	if err != nil {
		t.Fatalf("TipHash: %v", err)
	}
	spendRoot, err := block.MerkleRoot([]transaction.Transaction{spendTx})
	if err != nil {
		t.Fatalf("MerkleRoot: %v", err)
	}
	nextBlock := &block.Block{
		Header: block.Header{
			Version:      1,
			Height:       1,
			PreviousHash: tipHash,
			RootHash:     spendRoot,
		},
		Transactions: []transaction.Transaction{spendTx},
	}
	leaderKp, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	nextBlock.Sign(leaderKp)

	if err := c.AddBlock(nextBlock); err != nil {
		t.Fatalf("AddBlock: %v", err)
	}
	if c.Height() != 1 {
		t.Fatalf("Height = %d, want 1", c.Height())
	}

	genesisTxHash, err := genesisTx.HashHex()
	if err != nil {
		t.Fatalf("HashHex: %v", err)
	}
	if _, err := us.Get(genesisTxHash, 0); err != store.ErrUTXONotFound {
		t.Fatalf("spent genesis utxo should be gone, got err=%v", err)
	}

	spendTxHash, err := spendTx.HashHex()
	if err != nil {
		t.Fatalf("HashHex: %v", err)
	}
	newUTXO, err := us.Get(spendTxHash, 0)
	if err != nil {
		t.Fatalf("new utxo should exist: %v", err)
	}
	if newUTXO.Amount != 1000 {
		t.Fatalf("new utxo amount = %d, want 1000", newUTXO.Amount)
	}
}

func TestChain_AddBlock_MultiTxBlock_RejectsOnLaterBadInput(t *testing.T) {
	genesisKp, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	genesisTx := transaction.Transaction{
		Outputs: []transaction.TransactionOutput{{Amount: 1000, Owner: append([]byte(nil), genesisKp.Public...)}},
	}
	genesisRoot, err := block.MerkleRoot([]transaction.Transaction{genesisTx})
	if err != nil {
		t.Fatalf("MerkleRoot: %v", err)
	}
	genesisBlock := &block.Block{
		Header:       block.Header{Version: 1, Height: 0, RootHash: genesisRoot},
		Transactions: []transaction.Transaction{genesisTx},
	}
	genesisBlock.Sign(genesisKp)

	bs := store.NewMemoryBlockStore()
	us := store.NewMemoryUTXOStore()
	c := &Chain{
		headers:    NewHeaderList(),
		blockStore: bs,
		utxoStore:  us,
		logger:     newDiscardLogger(),
	}
	if err := c.addLeaderBlock(genesisBlock); err != nil {
		t.Fatalf("addLeaderBlock(genesis): %v", err)
	}

	recipientKp, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	// First transaction is perfectly valid and spends the real genesis
	// output. Second transaction references a UTXO that was never created.
	validTx := spendGenesis(t, c, genesisKp, append([]byte(nil), recipientKp.Public...))
	badTx := transaction.Transaction{
		Inputs: []transaction.TransactionInput{
			{PrevTxHash: strings.Repeat("00", 64), OutputIndex: 0, PublicKey: append([]byte(nil), recipientKp.Public...)},
		},
		Outputs: []transaction.TransactionOutput{{Amount: 1, Owner: append([]byte(nil), recipientKp.Public...)}},
	}
	if err := badTx.SignInput(0, recipientKp); err != nil {
		t.Fatalf("SignInput: %v", err)
	}

	tipHash, err := c.TipHash()
	if err != nil {
		t.Fatalf("TipHash: %v", err)
	}
	txs := []transaction.Transaction{validTx, badTx}
	root, err := block.MerkleRoot(txs)
	if err != nil {
		t.Fatalf("MerkleRoot: %v", err)
	}
	nextBlock := &block.Block{
		Header: block.Header{
			Version:      1,
			Height:       1,
			PreviousHash: tipHash,
			RootHash:     root,
		},
		Transactions: txs,
	}
	leaderKp, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	nextBlock.Sign(leaderKp)

	heightBefore := c.Height()
	if err := c.AddBlock(nextBlock); err == nil {
		t.Fatal("expected AddBlock to reject a block whose later transaction spends a missing UTXO")
	}
	if c.Height() != heightBefore {
		t.Fatalf("chain height changed after rejected block: %d -> %d", heightBefore, c.Height())
	}

	genesisTxHash, err := genesisTx.HashHex()
	if err != nil {
		t.Fatalf("HashHex: %v", err)
	}
	genesisUTXO, err := us.Get(genesisTxHash, 0)
	if err != nil {
		t.Fatalf("genesis utxo should still exist after rejected block: %v", err)
	}
	if genesisUTXO.Amount != 1000 {
		t.Fatalf("genesis utxo amount changed: got %d, want 1000", genesisUTXO.Amount)
	}

	validTxHash, err := validTx.HashHex()
	if err != nil {
		t.Fatalf("HashHex: %v", err)
	}
	if _, err := us.Get(validTxHash, 0); err != store.ErrUTXONotFound {
		t.Fatalf("valid transaction's output must not be observable after the block was rejected, got err=%v", err)
	}

	nextHash := block.HashHeader(nextBlock.Header)
	if _, ok, err := bs.Get(nextHash); err != nil {
		t.Fatalf("blockStore.Get: %v", err)
	} else if ok {
		t.Fatal("rejected block must not be persisted to the block store")
	}
}

func TestChain_AddBlock_RejectsBadPreviousHash(t *testing.T) {
	c := newTestChain(t)

	kp, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	tx := transaction.Transaction{Outputs: []transaction.TransactionOutput{{Amount: 1, Owner: kp.Public}}}
	root, err := block.MerkleRoot([]transaction.Transaction{tx})
	if err != nil {
		t.Fatalf("MerkleRoot: %v", err)
	}
	b := &block.Block{
		Header: block.Header{
			Version:      1,
			Height:       1,
			PreviousHash: make([]byte, 64),
			RootHash:     root,
		},
		Transactions: []transaction.Transaction{tx},
	}
	b.Sign(kp)

	heightBefore := c.Height()
	err = c.AddBlock(b)
	if err == nil {
		t.Fatal("expected AddBlock to reject a bad previous hash")
	}
	if _, ok := err.(*InvalidPreviousHashError); !ok {
		t.Fatalf("error type = %T, want *InvalidPreviousHashError", err)
	}
	if c.Height() != heightBefore {
		t.Fatalf("chain height changed after rejected block: %d -> %d", heightBefore, c.Height())
	}
}

func TestChain_GetBlockByHeight_TooHigh(t *testing.T) {
	c := newTestChain(t)
	if _, err := c.GetBlockByHeight(100); err == nil {
		t.Fatal("expected error for out-of-range height")
	}
}

func TestChain_BlocksSince_EmptyAtTip(t *testing.T) {
	c := newTestChain(t)
	blocks, err := c.BlocksSince(c.Height())
	if err != nil {
		t.Fatalf("BlocksSince: %v", err)
	}
	if len(blocks) != 0 {
		t.Fatalf("expected no blocks when already at tip, got %d", len(blocks))
	}
}
