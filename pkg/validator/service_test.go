// Copyright 2025 Certen Protocol

package validator

import (
	"context"
	"testing"

	"github.com/vectorchain/validator/pkg/chain"
	"github.com/vectorchain/validator/pkg/crypto"
	"github.com/vectorchain/validator/pkg/mempool"
	nodepkg "github.com/vectorchain/validator/pkg/node"
	"github.com/vectorchain/validator/pkg/store"
	"github.com/vectorchain/validator/pkg/transaction"
)

func TestService_SoleValidator_FinalizesAutocratically(t *testing.T) {
	c, err := chain.NewChain(store.NewMemoryBlockStore(), store.NewMemoryUTXOStore())
	if err != nil {
		t.Fatalf("NewChain: %v", err)
	}
	kp, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	mp := mempool.New()

	n := nodepkg.New(nodepkg.Config{
		SelfID:        "solo",
		ListenAddress: "solo",
		PublicKey:     kp.Public,
	}, c, mp, store.NewMemoryUTXOStore(), kp)

	heightBefore := c.Height()

	owner, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	tx := transaction.Transaction{
		Outputs: []transaction.TransactionOutput{{Amount: 1, Owner: owner.Public}},
	}
	if _, err := mp.Add(tx); err != nil {
		t.Fatalf("mempool.Add: %v", err)
	}

	svc := New(1, 1, n, mp, c, kp)

	if err := svc.runRound(context.Background()); err != nil {
		t.Fatalf("runRound: %v", err)
	}

	if c.Height() != heightBefore+1 {
		t.Fatalf("Height = %d, want %d (sole validator should finalize without network exchange)", c.Height(), heightBefore+1)
	}
	if mp.Len() != 0 {
		t.Fatalf("mempool should be drained after finalize, len = %d", mp.Len())
	}

	var phase Phase
	svc.round.WithLock(func(rs *RoundState) { phase = rs.Phase })
	if phase != PhaseIdle {
		t.Fatalf("round phase after finalize = %v, want IDLE", phase)
	}
}
