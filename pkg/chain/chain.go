// Copyright 2025 Certen Protocol
//
// Chain owns the ordered header list and the block/UTXO stores behind it.
// Grounded on original_source/vec_chain/src/chain.rs: HeaderList is an
// append-only Vec<Header> with height = len-1; add_block validates before
// ever touching the UTXO set, so a rejected block leaves stores untouched.
//
// Redesigned per the spec's Design Notes: stores are passed in explicitly
// (no process-wide singletons), and add_block credits every output as a
// new UTXO regardless of owner — the prototype only self-credited, which
// would strand every payment to a third party.

package chain

import (
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/vectorchain/validator/pkg/block"
	"github.com/vectorchain/validator/pkg/crypto"
	"github.com/vectorchain/validator/pkg/store"
	"github.com/vectorchain/validator/pkg/transaction"
)

// HeaderList is an ordered, append-only sequence of block headers. Index
// equals block height.
type HeaderList struct {
	headers []block.Header
}

// NewHeaderList returns an empty HeaderList.
func NewHeaderList() *HeaderList {
	return &HeaderList{}
}

// Add appends h as the new tip.
func (l *HeaderList) Add(h block.Header) {
	l.headers = append(l.headers, h)
}

// Len returns the number of headers (the chain length).
func (l *HeaderList) Len() int {
	return len(l.headers)
}

// Height returns the chain height: Len()-1, or 0 for an empty list.
func (l *HeaderList) Height() int {
	if len(l.headers) == 0 {
		return 0
	}
	return len(l.headers) - 1
}

// At returns the header at index, or ErrHeightTooHigh-style error if out of
// range.
func (l *HeaderList) At(index int) (block.Header, error) {
	if index < 0 || index >= len(l.headers) {
		return block.Header{}, &HeightTooHighError{Height: uint64(index), MaxHeight: uint64(l.Height())}
	}
	return l.headers[index], nil
}

// Chain validates and applies blocks, keeping the header list, block
// store, and UTXO store in lockstep.
type Chain struct {
	mu         sync.RWMutex
	headers    *HeaderList
	blockStore *store.BlockStore
	utxoStore  *store.UTXOStore
	logger     *log.Logger
}

// NewChain constructs an empty chain backed by blockStore/utxoStore and
// appends a genesis block: zero height, empty previous hash, one output of
// 1000 units to an ephemeral keypair, self-signed.
func NewChain(blockStore *store.BlockStore, utxoStore *store.UTXOStore) (*Chain, error) {
	c := &Chain{
		headers:    NewHeaderList(),
		blockStore: blockStore,
		utxoStore:  utxoStore,
		logger:     log.New(os.Stderr, "[Chain] ", log.LstdFlags),
	}

	genesis, err := createGenesisBlock()
	if err != nil {
		return nil, fmt.Errorf("create genesis block: %w", err)
	}
	if err := c.addLeaderBlock(genesis); err != nil {
		return nil, fmt.Errorf("append genesis block: %w", err)
	}
	return c, nil
}

func createGenesisBlock() (*block.Block, error) {
	kp, err := crypto.GenerateKeypair()
	if err != nil {
		return nil, fmt.Errorf("generate genesis keypair: %w", err)
	}

	tx := transaction.Transaction{
		Version: 1,
		Inputs:  nil,
		Outputs: []transaction.TransactionOutput{
			{Amount: 1000, Owner: append([]byte(nil), kp.Public...)},
		},
	}

	root, err := block.MerkleRoot([]transaction.Transaction{tx})
	if err != nil {
		return nil, fmt.Errorf("genesis merkle root: %w", err)
	}

	b := &block.Block{
		Header: block.Header{
			Version:      1,
			Height:       0,
			PreviousHash: nil,
			RootHash:     root,
			Timestamp:    0,
		},
		Transactions: []transaction.Transaction{tx},
	}
	b.Sign(kp)
	return b, nil
}

// Height returns the chain's current height.
func (c *Chain) Height() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.headers.Height()
}

// Len returns the chain's length (number of blocks, including genesis).
func (c *Chain) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.headers.Len()
}

// TipHash returns the header hash of the current tip.
func (c *Chain) TipHash() ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tipHashLocked()
}

func (c *Chain) tipHashLocked() ([]byte, error) {
	h, err := c.headers.At(c.headers.Height())
	if err != nil {
		return nil, err
	}
	return block.HashHeader(h), nil
}

// GetBlockByHash returns the block stored under hash.
func (c *Chain) GetBlockByHash(hash []byte) (*block.Block, error) {
	b, ok, err := c.blockStore.Get(hash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBlockNotFound, hex.EncodeToString(hash))
	}
	return b, nil
}

// GetBlockByHeight returns the block at the given height.
func (c *Chain) GetBlockByHeight(height int) (*block.Block, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.getBlockByHeightLocked(height)
}

func (c *Chain) getBlockByHeightLocked(height int) (*block.Block, error) {
	if c.headers.Len() == 0 {
		return nil, ErrChainIsEmpty
	}
	h, err := c.headers.At(height)
	if err != nil {
		return nil, err
	}
	return c.GetBlockByHash(block.HashHeader(h))
}

// ValidateBlock checks a candidate/incoming block's signature, previous
// hash linkage, transaction signatures, and Merkle root, in that order. It
// performs no mutation.
func (c *Chain) ValidateBlock(b *block.Block) error {
	if b.Header.RootHash == nil {
		return ErrMissingHeader
	}
	if err := b.VerifySignature(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	c.mu.RLock()
	chainLen := c.headers.Len()
	var tipHash []byte
	var tipErr error
	if chainLen > 0 {
		tipHash, tipErr = c.tipHashLocked()
	}
	c.mu.RUnlock()

	if chainLen > 0 {
		if tipErr != nil {
			return tipErr
		}
		if hex.EncodeToString(tipHash) != hex.EncodeToString(b.Header.PreviousHash) {
			return &InvalidPreviousHashError{
				Expected: hex.EncodeToString(tipHash),
				Got:      hex.EncodeToString(b.Header.PreviousHash),
			}
		}
	}

	for i := range b.Transactions {
		if err := b.Transactions[i].VerifyInputSignatures(); err != nil {
			return fmt.Errorf("%w: transaction %d: %v", ErrInvalidTransactionSignature, i, err)
		}
	}

	if err := b.VerifyMerkleRoot(); err != nil {
		return err
	}
	return nil
}

// AddBlock validates b and, only on success, appends its header, persists
// the block, and mutates the UTXO set: every output becomes a new UTXO,
// every input's referenced UTXO is removed. No partial UTXO mutation is
// ever observable — validation happens entirely before the first write.
func (c *Chain) AddBlock(b *block.Block) error {
	if err := c.ValidateBlock(b); err != nil {
		return err
	}
	return c.addLeaderBlock(b)
}

// addLeaderBlock appends b without validation — used for the genesis block
// and by AddBlock once validation has already passed. The UTXO mutations
// for every transaction are planned in memory first; the block is only
// persisted, and the plan only committed to the UTXO store, once every
// transaction in the block has been confirmed spendable. A later
// transaction referencing a missing or already-spent UTXO aborts before
// any store write, so a rejected block never leaves a partial mutation
// behind.
func (c *Chain) addLeaderBlock(b *block.Block) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	removals, additions, err := c.planApplyLocked(b.Transactions)
	if err != nil {
		return fmt.Errorf("apply transaction: %w", err)
	}

	hash := block.HashHeader(b.Header)
	if err := c.blockStore.Put(hash, b); err != nil {
		return fmt.Errorf("persist block: %w", err)
	}
	if err := c.commitPlanLocked(removals, additions); err != nil {
		return fmt.Errorf("commit utxo mutations: %w", err)
	}

	c.headers.Add(b.Header)
	c.logger.Printf("block applied at height %d, hash %s", b.Header.Height, hex.EncodeToString(hash))
	return nil
}

// utxoKey identifies a UTXO by the (transaction hash, output index) pair
// the UTXO store is keyed by.
type utxoKey struct {
	txHash      string
	outputIndex uint32
}

// planApplyLocked walks every transaction in a candidate block and
// determines the UTXO mutations it would require, without writing
// anything. An output produced earlier in the same block may be spent by
// a later transaction in the block; spending the same UTXO twice within
// the block, or referencing one that doesn't exist in the store, fails
// the whole plan.
func (c *Chain) planApplyLocked(txs []transaction.Transaction) ([]utxoKey, []store.UTXO, error) {
	removedSet := make(map[utxoKey]bool)
	pendingAdded := make(map[utxoKey]store.UTXO)
	var removals []utxoKey

	for ti := range txs {
		tx := &txs[ti]
		txHash, err := tx.HashHex()
		if err != nil {
			return nil, nil, err
		}

		for _, in := range tx.Inputs {
			key := utxoKey{txHash: in.PrevTxHash, outputIndex: in.OutputIndex}
			if _, ok := pendingAdded[key]; ok {
				delete(pendingAdded, key)
				continue
			}
			if removedSet[key] {
				return nil, nil, fmt.Errorf("%w: %s:%d already spent earlier in this block", ErrUTXOMissing, in.PrevTxHash, in.OutputIndex)
			}
			if _, err := c.utxoStore.Get(in.PrevTxHash, in.OutputIndex); err != nil {
				return nil, nil, fmt.Errorf("%w: %s:%d", ErrUTXOMissing, in.PrevTxHash, in.OutputIndex)
			}
			removedSet[key] = true
			removals = append(removals, key)
		}

		for i, out := range tx.Outputs {
			key := utxoKey{txHash: txHash, outputIndex: uint32(i)}
			pendingAdded[key] = store.UTXO{
				TxHash:      txHash,
				OutputIndex: uint32(i),
				Amount:      out.Amount,
				Owner:       out.Owner,
			}
		}
	}

	additions := make([]store.UTXO, 0, len(pendingAdded))
	for _, u := range pendingAdded {
		additions = append(additions, u)
	}
	return removals, additions, nil
}

// commitPlanLocked writes a plan produced by planApplyLocked. Called only
// after every transaction in the block has already been confirmed
// spendable, so a failure here reflects a storage fault, not a validation
// rejection.
func (c *Chain) commitPlanLocked(removals []utxoKey, additions []store.UTXO) error {
	for _, key := range removals {
		if err := c.utxoStore.Remove(key.txHash, key.outputIndex); err != nil {
			return fmt.Errorf("remove utxo %s:%d: %w", key.txHash, key.outputIndex, err)
		}
	}
	for _, u := range additions {
		if err := c.utxoStore.Put(u); err != nil {
			return fmt.Errorf("put utxo %s:%d: %w", u.TxHash, u.OutputIndex, err)
		}
	}
	return nil
}

// ValidateTransaction checks input signatures, UTXO existence, and that
// inputs cover outputs.
func (c *Chain) ValidateTransaction(tx *transaction.Transaction) error {
	if err := tx.VerifyInputSignatures(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTransactionSignature, err)
	}

	var inputTotal int64
	for _, in := range tx.Inputs {
		utxo, err := c.utxoStore.Get(in.PrevTxHash, in.OutputIndex)
		if err != nil {
			return fmt.Errorf("%w: %s:%d", ErrUTXOMissing, in.PrevTxHash, in.OutputIndex)
		}
		if utxo.Amount < 0 {
			return ErrInsufficientBalance
		}
		inputTotal += utxo.Amount
	}

	outputTotal := tx.TotalOutput()
	if outputTotal < 0 || inputTotal < outputTotal {
		return ErrInsufficientBalance
	}
	return nil
}

// BlocksSince returns every block from height lastHeight+1 through the
// chain's tip, inclusive. It validates the requested range is contiguous
// and fails rather than returning a truncated batch if any block in the
// range is missing, per vec_node::validator::push_state.
func (c *Chain) BlocksSince(lastHeight int) ([]*block.Block, error) {
	c.mu.RLock()
	tip := c.headers.Height()
	c.mu.RUnlock()

	if lastHeight >= tip {
		return nil, nil
	}

	blocks := make([]*block.Block, 0, tip-lastHeight)
	for h := lastHeight + 1; h <= tip; h++ {
		b, err := c.GetBlockByHeight(h)
		if err != nil {
			return nil, fmt.Errorf("block batch missing height %d: %w", h, err)
		}
		blocks = append(blocks, b)
	}
	return blocks, nil
}

// Now returns the current unix timestamp, used by the validator service to
// stamp a block at finalization rather than during hash-agreement.
func Now() int64 {
	return time.Now().Unix()
}
