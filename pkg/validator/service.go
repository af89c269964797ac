// Copyright 2025 Certen Protocol
//
// Service drives the consensus round: snapshot the mempool, propose a
// candidate block, agree on its hash with peers, vote for a random
// leader, and finalize if the winner is self. Grounded on
// original_source/vec_node/src/validator.rs, redesigned per spec.md §9:
// round fields live in one locked RoundState, quorum guards n<4, and
// ties break on lowest validator id.

package validator

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/vectorchain/validator/pkg/block"
	"github.com/vectorchain/validator/pkg/chain"
	"github.com/vectorchain/validator/pkg/crypto"
	"github.com/vectorchain/validator/pkg/mempool"
	"github.com/vectorchain/validator/pkg/metrics"
	"github.com/vectorchain/validator/pkg/node"
	"github.com/vectorchain/validator/pkg/transaction"
)

// Service is the per-node consensus round driver.
type Service struct {
	validatorID int32
	threshold   int

	node    *node.Service
	mempool *mempool.Mempool
	chain   *chain.Chain
	keypair *crypto.Keypair

	round *RoundState
	// roundMu serializes phase transitions so the poller never starts a
	// second round while one is in flight.
	roundMu sync.Mutex

	logger  *log.Logger
	metrics *metrics.Registry

	stopPoll chan struct{}
}

// SetMetrics attaches a metrics registry the service updates on round
// transitions. Optional; a nil registry is a no-op.
func (s *Service) SetMetrics(m *metrics.Registry) {
	s.metrics = m
}

// New constructs a validator Service.
func New(validatorID int32, threshold int, n *node.Service, mp *mempool.Mempool, c *chain.Chain, kp *crypto.Keypair) *Service {
	return &Service{
		validatorID: validatorID,
		threshold:   threshold,
		node:        n,
		mempool:     mp,
		chain:       c,
		keypair:     kp,
		round:       newRoundState(),
		logger:      log.New(os.Stderr, "[ValidatorService] ", log.LstdFlags),
	}
}

// validatorCount returns the total number of validators, including self.
func (s *Service) validatorCount() int {
	return len(s.node.Peers()) + 1
}

// StartRoundPoller launches a background loop that begins a round whenever
// the mempool crosses the configured threshold while idle.
func (s *Service) StartRoundPoller(ctx context.Context, pollInterval time.Duration) {
	s.stopPoll = make(chan struct{})
	ticker := time.NewTicker(pollInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopPoll:
				return
			case <-ticker.C:
				s.maybeStartRound(ctx)
			}
		}
	}()
}

// StopRoundPoller stops the background loop started by StartRoundPoller.
func (s *Service) StopRoundPoller() {
	if s.stopPoll != nil {
		close(s.stopPoll)
	}
}

func (s *Service) maybeStartRound(ctx context.Context) {
	if s.mempool.Len() < s.threshold {
		return
	}
	if !s.roundMu.TryLock() {
		return
	}
	defer s.roundMu.Unlock()

	var idle bool
	s.round.WithLock(func(rs *RoundState) { idle = rs.Phase == PhaseIdle })
	if !idle {
		return
	}

	if err := s.runRound(ctx); err != nil {
		s.logger.Printf("round failed: %v", err)
		s.round.Reset()
	}
}

// runRound drives SNAPSHOT through HASH_AGREE (broadcast); the rest of the
// machine (TALLY_AGREE, VOTE, TALLY_VOTE, FINALIZE_IF_WINNER) is driven by
// incoming RPCs via handleAgreement/handleVote.
func (s *Service) runRound(ctx context.Context) error {
	s.snapshot()
	if err := s.propose(); err != nil {
		return fmt.Errorf("propose: %w", err)
	}

	n := s.validatorCount()
	if isAutocratic(n) {
		s.logger.Printf("round %s: n=%d validators, finalizing autocratically", s.round.RoundID, n)
		return s.finalize(ctx)
	}

	return s.beginHashAgree(ctx)
}

// snapshot atomically drains the mempool into the round's transaction set.
func (s *Service) snapshot() {
	txs := s.mempool.Drain()
	s.round.WithLock(func(rs *RoundState) {
		rs.Phase = PhaseSnapshot
		rs.Transactions = txs
	})
}

// propose assembles the candidate block. Timestamp is left at zero: the
// agreement phase must operate over a timestamp-free candidate so that
// distinct validators' clocks can never diverge the candidate hash.
func (s *Service) propose() error {
	tipHash, err := s.chain.TipHash()
	if err != nil {
		return err
	}

	var txs []transaction.Transaction
	s.round.WithLock(func(rs *RoundState) { txs = rs.Transactions })

	root, err := block.MerkleRoot(txs)
	if err != nil {
		return fmt.Errorf("merkle root: %w", err)
	}

	candidate := &block.Block{
		Header: block.Header{
			Version:      1,
			Height:       uint64(s.chain.Height() + 1),
			PreviousHash: tipHash,
			RootHash:     root,
			Timestamp:    0,
		},
		Transactions: txs,
	}
	hash := block.HashHeader(candidate.Header)

	s.round.WithLock(func(rs *RoundState) {
		rs.Phase = PhasePropose
		rs.CandidateBlock = candidate
		rs.CandidateHash = hash
	})
	return nil
}

// beginHashAgree broadcasts the candidate hash to every peer and counts
// self as the implicit first agreement.
func (s *Service) beginHashAgree(ctx context.Context) error {
	var hash []byte
	s.round.WithLock(func(rs *RoundState) {
		rs.Phase = PhaseHashAgree
		rs.AgreementCount = 1 // implicit self-agreement
	})
	s.round.WithLock(func(rs *RoundState) { hash = rs.CandidateHash })

	msg := HashAgreement{
		ValidatorID: s.validatorID,
		BlockHash:   hash,
		Agreement:   true,
		IsResponse:  false,
		SenderAddr:  s.node.ListenAddress(),
	}
	for _, p := range s.node.Peers() {
		go func(addr string) {
			if err := s.node.Transport().Post(ctx, addr, "/rpc/agreement", msg, nil); err != nil {
				s.logger.Printf("hash agreement broadcast to %s failed: %v", addr, err)
			}
		}(p.ListenAddress)
	}

	s.round.WithLock(func(rs *RoundState) { rs.Phase = PhaseTallyAgree })
	return nil
}

// HandleAgreement processes an inbound HashAgreement, either replying to a
// comparison request or tallying a response.
func (s *Service) HandleAgreement(ctx context.Context, msg HashAgreement) (Confirmed, error) {
	if !msg.IsResponse {
		return s.respondToAgreement(ctx, msg)
	}
	s.tallyAgreementResponse(ctx, msg)
	return Confirmed{}, nil
}

func (s *Service) respondToAgreement(ctx context.Context, msg HashAgreement) (Confirmed, error) {
	var localHash []byte
	s.round.WithLock(func(rs *RoundState) { localHash = rs.CandidateHash })

	agrees := localHash != nil && string(localHash) == string(msg.BlockHash)
	reply := HashAgreement{
		ValidatorID: s.validatorID,
		BlockHash:   msg.BlockHash,
		Agreement:   agrees,
		IsResponse:  true,
		SenderAddr:  s.node.ListenAddress(),
	}
	if err := s.node.Transport().Post(ctx, msg.SenderAddr, "/rpc/agreement", reply, nil); err != nil {
		return Confirmed{}, fmt.Errorf("reply to %s: %w", msg.SenderAddr, err)
	}
	return Confirmed{}, nil
}

func (s *Service) tallyAgreementResponse(ctx context.Context, msg HashAgreement) {
	n := s.validatorCount()

	var decide bool
	var agreementCount int
	s.round.WithLock(func(rs *RoundState) {
		if msg.Agreement {
			rs.AgreementCount++
		}
		rs.ReceivedResponses++
		agreementCount = rs.AgreementCount
		decide = rs.ReceivedResponses == n-1
	})
	if !decide {
		return
	}

	if agreementCount >= requiredAgreement(n) {
		s.beginVote(ctx)
	} else {
		s.logger.Printf("round %s: agreement failed (%d/%d), restarting", s.round.RoundID, agreementCount, n)
		if s.metrics != nil {
			s.metrics.AgreementFailures.Inc()
		}
		s.round.Reset()
	}
}

// beginVote picks a uniformly random peer to nominate and broadcasts the vote.
func (s *Service) beginVote(ctx context.Context) {
	s.round.WithLock(func(rs *RoundState) { rs.Phase = PhaseVote })

	target := s.validatorID
	if addr, ok := s.node.RandomPeerID(); ok {
		for _, p := range s.node.Peers() {
			if p.ListenAddress == addr {
				target = peerValidatorID(p)
				break
			}
		}
	}

	s.round.WithLock(func(rs *RoundState) {
		rs.VoteCount[target]++
		rs.Phase = PhaseTallyVote
	})

	msg := Vote{
		ValidatorID:       s.validatorID,
		VoterAddr:         s.node.ListenAddress(),
		TargetValidatorID: target,
	}
	for _, p := range s.node.Peers() {
		go func(addr string) {
			if err := s.node.Transport().Post(ctx, addr, "/rpc/vote", msg, nil); err != nil {
				s.logger.Printf("vote broadcast to %s failed: %v", addr, err)
			}
		}(p.ListenAddress)
	}
}

// peerValidatorID derives a stable per-peer validator id from its public
// key: the first four key bytes, read big-endian.
func peerValidatorID(p *node.Peer) int32 {
	if len(p.PublicKey) < 4 {
		return 0
	}
	return int32(p.PublicKey[0])<<24 | int32(p.PublicKey[1])<<16 | int32(p.PublicKey[2])<<8 | int32(p.PublicKey[3])
}

// HandleVote tallies an inbound vote and checks whether tallying is complete.
func (s *Service) HandleVote(ctx context.Context, msg Vote) (Confirmed, error) {
	n := s.validatorCount()

	var totalVotes int
	s.round.WithLock(func(rs *RoundState) {
		rs.VoteCount[msg.TargetValidatorID]++
		for _, c := range rs.VoteCount {
			totalVotes += c
		}
	})

	if totalVotes >= n-1 {
		if err := s.finalize(ctx); err != nil {
			s.logger.Printf("round %s: finalize failed: %v", s.round.RoundID, err)
			s.round.Reset()
		}
	}
	return Confirmed{}, nil
}

// finalize checks whether this validator won the round and, if so, stamps
// the timestamp, signs, applies, and broadcasts the block.
func (s *Service) finalize(ctx context.Context) error {
	var candidate *block.Block
	var isWinner bool

	s.round.WithLock(func(rs *RoundState) {
		rs.Phase = PhaseFinalizeIfWinner
		candidate = rs.CandidateBlock
		if len(rs.VoteCount) == 0 {
			isWinner = true // autocratic path: no votes were ever cast
			return
		}
		winner, _ := winningValidator(rs.VoteCount)
		isWinner = winner == s.validatorID
	})

	if candidate == nil {
		return ErrNoCandidateBlock
	}
	if !isWinner {
		s.round.Reset()
		return nil
	}

	candidate.Header.Timestamp = chain.Now()
	candidate.Sign(s.keypair)

	if err := s.chain.AddBlock(candidate); err != nil {
		s.round.Reset()
		return fmt.Errorf("add finalized block: %w", err)
	}
	if err := s.mempool.RemoveBatch(candidate.Transactions); err != nil {
		s.logger.Printf("mempool cleanup after finalize failed: %v", err)
	}
	if s.metrics != nil {
		s.metrics.RoundsFinalized.Inc()
		s.metrics.BlocksApplied.Inc()
	}

	s.broadcastLeaderBlock(ctx, candidate)
	s.round.Reset()
	return nil
}

func (s *Service) broadcastLeaderBlock(ctx context.Context, b *block.Block) {
	msg := node.LeaderBlock{Block: *b, LeaderAddress: s.node.ListenAddress()}
	for _, p := range s.node.Peers() {
		go func(addr string) {
			if err := s.node.Transport().Post(ctx, addr, "/rpc/block", msg, nil); err != nil {
				s.logger.Printf("leader block broadcast to %s failed: %v", addr, err)
			}
		}(p.ListenAddress)
	}
}
