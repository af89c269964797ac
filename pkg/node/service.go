// Copyright 2025 Certen Protocol
//
// Service is the gossip layer: peer table, handshake, transaction
// broadcast, block ingress, state sync, and peer-list exchange. Grounded
// on original_source/vec_node/src/node.rs, with the teacher's HTTP+JSON
// transport (pkg/batch/peer_manager.go) standing in for the prototype's
// TLS duplex RPC.

package node

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"math/rand"
	"os"
	"sync"
	"time"

	"github.com/vectorchain/validator/pkg/chain"
	"github.com/vectorchain/validator/pkg/crypto"
	"github.com/vectorchain/validator/pkg/mempool"
	"github.com/vectorchain/validator/pkg/metrics"
	"github.com/vectorchain/validator/pkg/store"
)

// TransactionGossip is the single method a validator round needs from the
// node service to fan a freshly-observed transaction back out to peers.
// Modeled as an interface (per the spec's Design Notes) to avoid a strong
// compile-time cycle between node and validator packages.
type TransactionGossip interface {
	BroadcastTransactionHash(ctx context.Context, hash string) error
}

// Peer is a known remote validator/node.
type Peer struct {
	ListenAddress string
	PublicKey     []byte
	LastVersion   Version
	LastSeen      time.Time
}

// Config configures a Service.
type Config struct {
	SelfID          string
	ListenAddress   string
	ProtocolVersion string
	PublicKey       []byte
	HandshakeTimeout time.Duration
	HeartbeatInterval time.Duration
	TLSConfig       *tls.Config
}

// Service is the node's gossip layer.
type Service struct {
	cfg       Config
	transport *Transport

	mu    sync.RWMutex
	peers map[string]*Peer

	chain     *chain.Chain
	mempool   *mempool.Mempool
	utxoStore *store.UTXOStore
	keypair   *crypto.Keypair

	logger  *log.Logger
	metrics *metrics.Registry

	stopHeartbeat chan struct{}
}

// SetMetrics attaches a metrics registry the service updates on peer and
// mempool changes. Optional; a nil registry is a no-op.
func (s *Service) SetMetrics(m *metrics.Registry) {
	s.metrics = m
}

// New constructs a Service bound to chain, mempool, and the local UTXO
// store/keypair make_tx signs with.
func New(cfg Config, c *chain.Chain, mp *mempool.Mempool, utxoStore *store.UTXOStore, kp *crypto.Keypair) *Service {
	if cfg.HandshakeTimeout == 0 {
		cfg.HandshakeTimeout = 5 * time.Second
	}
	if cfg.HeartbeatInterval == 0 {
		cfg.HeartbeatInterval = 30 * time.Second
	}
	return &Service{
		cfg:       cfg,
		transport: NewTransport(cfg.SelfID, cfg.ListenAddress, cfg.HandshakeTimeout, cfg.TLSConfig),
		peers:     make(map[string]*Peer),
		chain:     c,
		mempool:   mp,
		utxoStore: utxoStore,
		keypair:   kp,
		logger:    log.New(os.Stderr, "[NodeService] ", log.LstdFlags),
	}
}

// Transport exposes the node's HTTP transport for other local components
// (the validator service) that need to speak the same wire protocol to
// peers without duplicating connection handling.
func (s *Service) Transport() *Transport {
	return s.transport
}

// ListenAddress returns this node's own advertised listen address.
func (s *Service) ListenAddress() string {
	return s.cfg.ListenAddress
}

func (s *Service) selfVersion() Version {
	return Version{
		ProtocolVersion: s.cfg.ProtocolVersion,
		PublicKey:       s.cfg.PublicKey,
		Height:          s.chain.Height(),
		ListenAddress:   s.cfg.ListenAddress,
		PeerList:        s.PeerAddresses(),
	}
}

// PeerAddresses returns a snapshot of every known peer's listen address.
func (s *Service) PeerAddresses() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	addrs := make([]string, 0, len(s.peers))
	for addr := range s.peers {
		addrs = append(addrs, addr)
	}
	return addrs
}

// Peers returns a snapshot of the peer table.
func (s *Service) Peers() []*Peer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Peer, 0, len(s.peers))
	for _, p := range s.peers {
		out = append(out, p)
	}
	return out
}

// RandomPeerID picks a uniformly random known peer's address, used by
// VOTE to choose a target validator. ok is false if there are no peers.
func (s *Service) RandomPeerID() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.peers) == 0 {
		return "", false
	}
	addrs := make([]string, 0, len(s.peers))
	for addr := range s.peers {
		addrs = append(addrs, addr)
	}
	return addrs[rand.Intn(len(addrs))], true
}

func (s *Service) isSelf(addr string) bool {
	return addr == s.cfg.ListenAddress
}

func (s *Service) hasPeer(addr string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.peers[addr]
	return ok
}

func (s *Service) addPeer(p *Peer) {
	s.mu.Lock()
	s.peers[p.ListenAddress] = p
	count := len(s.peers)
	s.mu.Unlock()
	if s.metrics != nil {
		s.metrics.PeersConnected.Set(float64(count))
	}
}

func (s *Service) evictPeer(addr string) {
	s.mu.Lock()
	delete(s.peers, addr)
	count := len(s.peers)
	s.mu.Unlock()
	if s.metrics != nil {
		s.metrics.PeersConnected.Set(float64(count))
	}
}

// Dial performs an outbound handshake with addr, adding it to the peer
// table on success.
func (s *Service) Dial(ctx context.Context, addr string) error {
	if s.isSelf(addr) {
		return ErrSelfDial
	}

	var remote Version
	if err := s.transport.Post(ctx, addr, "/rpc/handshake", s.selfVersion(), &remote); err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}

	s.addPeer(&Peer{
		ListenAddress: addr,
		PublicKey:     remote.PublicKey,
		LastVersion:   remote,
		LastSeen:      time.Now(),
	})
	return nil
}

// Handshake handles an inbound Version from a remote peer. If the remote
// is not already known and is not self, it is added to the peer table and
// dialed back before this node returns its own Version. The remote is added
// before the dial-back so the nested handshake sees it as known; a failed
// dial-back is logged and the peer entry kept.
func (s *Service) Handshake(ctx context.Context, remote Version) (Version, error) {
	if !s.isSelf(remote.ListenAddress) && !s.hasPeer(remote.ListenAddress) {
		s.addPeer(&Peer{
			ListenAddress: remote.ListenAddress,
			PublicKey:     remote.PublicKey,
			LastVersion:   remote,
			LastSeen:      time.Now(),
		})
		if err := s.Dial(ctx, remote.ListenAddress); err != nil {
			s.logger.Printf("handshake dial-back to %s failed: %v", remote.ListenAddress, err)
		}
	}
	return s.selfVersion(), nil
}

// BootstrapNetwork dials every address not already a peer and not self,
// concurrently. Per-peer failures are logged, never aborting the rest.
func (s *Service) BootstrapNetwork(ctx context.Context, addresses []string) {
	var wg sync.WaitGroup
	for _, addr := range addresses {
		if s.isSelf(addr) || s.hasPeer(addr) {
			continue
		}
		wg.Add(1)
		go func(addr string) {
			defer wg.Done()
			if err := s.Dial(ctx, addr); err != nil {
				s.logger.Printf("bootstrap dial %s failed: %v", addr, err)
			}
		}(addr)
	}
	wg.Wait()
}

// BroadcastTransactionHash implements TransactionGossip: fan out
// handle_transaction to every known peer, fire-and-forget.
func (s *Service) BroadcastTransactionHash(ctx context.Context, hash string) error {
	tx, ok := s.mempool.GetByHash(hash)
	if !ok {
		return fmt.Errorf("broadcast transaction %s: not in mempool", hash)
	}
	s.broadcast(ctx, "/rpc/transaction", transactionEnvelope{Transaction: tx}, "")
	return nil
}

// HandleTransaction ingests an inbound transaction from senderAddr,
// broadcasting it onward to every other peer if it's new to the mempool.
func (s *Service) HandleTransaction(ctx context.Context, tx transactionEnvelope, senderAddr string) (Confirmed, error) {
	added, err := s.mempool.Add(tx.Transaction)
	if err != nil {
		return Confirmed{}, err
	}
	if added {
		s.broadcast(ctx, "/rpc/transaction", tx, senderAddr)
	}
	if s.metrics != nil {
		s.metrics.MempoolSize.Set(float64(s.mempool.Len()))
	}
	return Confirmed{}, nil
}

// broadcast fans body out to every peer except exclude, fire-and-forget.
func (s *Service) broadcast(ctx context.Context, path string, body interface{}, exclude string) {
	for _, p := range s.Peers() {
		if p.ListenAddress == exclude {
			continue
		}
		go func(addr string) {
			if err := s.transport.Post(ctx, addr, path, body, nil); err != nil {
				s.logger.Printf("broadcast to %s failed: %v", addr, err)
			}
		}(p.ListenAddress)
	}
}

// HandleBlock implements the three-way height branch: apply if contiguous,
// pull missing state if ahead, reject otherwise.
func (s *Service) HandleBlock(ctx context.Context, lb LeaderBlock) (Confirmed, error) {
	localHeight := s.chain.Height()
	incomingHeight := int(lb.Block.Header.Height)

	switch {
	case incomingHeight == localHeight+1:
		if err := s.chain.AddBlock(&lb.Block); err != nil {
			return Confirmed{}, fmt.Errorf("apply block at height %d: %w", incomingHeight, err)
		}
		if err := s.mempool.RemoveBatch(lb.Block.Transactions); err != nil {
			s.logger.Printf("mempool cleanup after block %d failed: %v", incomingHeight, err)
		}
		if s.metrics != nil {
			s.metrics.BlocksApplied.Inc()
			s.metrics.MempoolSize.Set(float64(s.mempool.Len()))
		}
		return Confirmed{}, nil

	case incomingHeight > localHeight+1:
		if err := s.PullStateFrom(ctx, lb.LeaderAddress); err != nil {
			return Confirmed{}, fmt.Errorf("pull state from %s: %w", lb.LeaderAddress, err)
		}
		return Confirmed{}, nil

	default:
		return Confirmed{}, fmt.Errorf("reject block at height %d: local tip is %d", incomingHeight, localHeight)
	}
}

// PushState answers a LocalState request with every block since the
// requested height through the local tip, inclusive.
func (s *Service) PushState(ctx context.Context, req LocalState) (BlockBatch, error) {
	blocks, err := s.chain.BlocksSince(req.LastBlockHeight)
	if err != nil {
		return BlockBatch{}, err
	}
	return BlockBatch{Blocks: blocks}, nil
}

// PullStateFrom requests and applies the block batch leaderAddr holds
// beyond the local tip.
func (s *Service) PullStateFrom(ctx context.Context, leaderAddr string) error {
	var batch BlockBatch
	req := LocalState{LastBlockHeight: s.chain.Height()}
	if err := s.transport.Post(ctx, leaderAddr, "/rpc/push_state", req, &batch); err != nil {
		return fmt.Errorf("push_state request to %s: %w", leaderAddr, err)
	}
	for _, b := range batch.Blocks {
		if err := s.chain.AddBlock(b); err != nil {
			return fmt.Errorf("apply pulled block at height %d: %w", b.Header.Height, err)
		}
	}
	return nil
}

// BroadcastPeerList sends the current peer set to all peers once per call,
// appending the sender's own address so a fresh peer bootstraps
// transitively.
func (s *Service) BroadcastPeerList(ctx context.Context) {
	list := PeerList{PeerAddresses: append(s.PeerAddresses(), s.cfg.ListenAddress)}
	s.broadcast(ctx, "/rpc/peer_exchange", list, "")
}

// HandlePeerExchange merges addresses the caller doesn't already know via
// BootstrapNetwork.
func (s *Service) HandlePeerExchange(ctx context.Context, list PeerList) (Confirmed, error) {
	s.BootstrapNetwork(ctx, list.PeerAddresses)
	return Confirmed{}, nil
}

// HandleHeartbeat answers a liveness ping.
func (s *Service) HandleHeartbeat(ctx context.Context, _ Confirmed) (Confirmed, error) {
	return Confirmed{}, nil
}

// StartHeartbeat launches the background heartbeat loop: every
// HeartbeatInterval, ping each peer and evict those that fail.
func (s *Service) StartHeartbeat(ctx context.Context) {
	s.stopHeartbeat = make(chan struct{})
	ticker := time.NewTicker(s.cfg.HeartbeatInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopHeartbeat:
				return
			case <-ticker.C:
				s.heartbeatOnce(ctx)
			}
		}
	}()
}

// StopHeartbeat stops the background heartbeat loop started by StartHeartbeat.
func (s *Service) StopHeartbeat() {
	if s.stopHeartbeat != nil {
		close(s.stopHeartbeat)
	}
}

func (s *Service) heartbeatOnce(ctx context.Context) {
	for _, p := range s.Peers() {
		if err := s.transport.Post(ctx, p.ListenAddress, "/rpc/heartbeat", Confirmed{}, nil); err != nil {
			s.logger.Printf("heartbeat to %s failed, evicting: %v", p.ListenAddress, err)
			s.evictPeer(p.ListenAddress)
		}
	}
}
