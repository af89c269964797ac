// Copyright 2025 Certen Protocol

package node

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vectorchain/validator/pkg/chain"
	"github.com/vectorchain/validator/pkg/crypto"
	"github.com/vectorchain/validator/pkg/mempool"
	"github.com/vectorchain/validator/pkg/store"
	"github.com/vectorchain/validator/pkg/transaction"
)

func newTestService(t *testing.T, listenAddr string) (*Service, *httptest.Server) {
	t.Helper()
	c, err := chain.NewChain(store.NewMemoryBlockStore(), store.NewMemoryUTXOStore())
	if err != nil {
		t.Fatalf("NewChain: %v", err)
	}
	kp, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}

	svc := New(Config{
		SelfID:           listenAddr,
		ListenAddress:    listenAddr,
		ProtocolVersion:  "1",
		PublicKey:        kp.Public,
		HandshakeTimeout: 2 * time.Second,
	}, c, mempool.New(), store.NewMemoryUTXOStore(), kp)

	mux := http.NewServeMux()
	svc.RegisterHandlers(mux)
	ts := httptest.NewServer(mux)

	// Override ListenAddress/transport target to the httptest server's URL
	// so Dial actually reaches it, while keeping the logical address for
	// self-identification in peer tables.
	svc.cfg.ListenAddress = ts.URL
	svc.transport = NewTransport(listenAddr, ts.URL, 2*time.Second, nil)
	return svc, ts
}

func TestService_DialAndHandshake(t *testing.T) {
	a, tsA := newTestService(t, "node-a")
	defer tsA.Close()
	b, tsB := newTestService(t, "node-b")
	defer tsB.Close()

	ctx := context.Background()
	if err := a.Dial(ctx, tsB.URL); err != nil {
		t.Fatalf("Dial: %v", err)
	}

	peersA := a.Peers()
	if len(peersA) != 1 || peersA[0].ListenAddress != tsB.URL {
		t.Fatalf("peers of A = %+v, want one entry for %s", peersA, tsB.URL)
	}

	// B should have dialed back during handshake.
	peersB := b.Peers()
	if len(peersB) != 1 {
		t.Fatalf("peers of B = %+v, want one entry (dial-back)", peersB)
	}
}

func TestService_BootstrapNetwork_SkipsSelfAndUnreachable(t *testing.T) {
	a, tsA := newTestService(t, "node-a")
	defer tsA.Close()

	ctx := context.Background()
	a.BootstrapNetwork(ctx, []string{tsA.URL, "http://unreachable.invalid:1"})

	if len(a.Peers()) != 0 {
		t.Fatalf("expected no peers: self and unreachable address should both be skipped/fail, got %+v", a.Peers())
	}
}

func TestService_HandleTransaction_AddsAndDeduplicates(t *testing.T) {
	a, tsA := newTestService(t, "node-a")
	defer tsA.Close()

	kp, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	tx := transaction.Transaction{
		Outputs: []transaction.TransactionOutput{{Amount: 42, Owner: kp.Public}},
	}
	env := transactionEnvelope{Transaction: tx}

	ctx := context.Background()
	if _, err := a.HandleTransaction(ctx, env, ""); err != nil {
		t.Fatalf("HandleTransaction: %v", err)
	}
	if a.mempool.Len() != 1 {
		t.Fatalf("mempool len = %d, want 1", a.mempool.Len())
	}
	if _, err := a.HandleTransaction(ctx, env, ""); err != nil {
		t.Fatalf("HandleTransaction (dup): %v", err)
	}
	if a.mempool.Len() != 1 {
		t.Fatalf("mempool len after dup = %d, want 1", a.mempool.Len())
	}
}
