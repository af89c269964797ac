// Copyright 2025 Certen Protocol

// Command validator runs a single Certen validator node: gossip transport,
// mempool, UTXO chain, and the hash-agreement/random-vote consensus round.
package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	dbm "github.com/cometbft/cometbft-db"

	"github.com/vectorchain/validator/pkg/chain"
	"github.com/vectorchain/validator/pkg/config"
	"github.com/vectorchain/validator/pkg/crypto"
	"github.com/vectorchain/validator/pkg/kvdb"
	"github.com/vectorchain/validator/pkg/mempool"
	"github.com/vectorchain/validator/pkg/metrics"
	"github.com/vectorchain/validator/pkg/node"
	"github.com/vectorchain/validator/pkg/store"
	"github.com/vectorchain/validator/pkg/validator"
)

// HealthStatus reports the liveness of this node's major subsystems on
// /health. Every /health request refreshes the fields from the chain, node
// and mempool; read by anything polling the node externally.
type HealthStatus struct {
	mu sync.RWMutex

	Status        string `json:"status"` // "starting" until the first /health request, then "ok"
	Phase         string `json:"phase"`
	ChainHeight   int    `json:"chain_height"`
	PeersKnown    int    `json:"peers_known"`
	MempoolSize   int    `json:"mempool_size"`
	UptimeSeconds int64  `json:"uptime_seconds"`

	startTime time.Time
}

func newHealthStatus() *HealthStatus {
	return &HealthStatus{Status: "starting", Phase: "boot", startTime: time.Now()}
}

func (h *HealthStatus) snapshot(c *chain.Chain, n *node.Service, mp *mempool.Mempool) HealthStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Status = "ok"
	h.Phase = "running"
	h.ChainHeight = c.Height()
	h.PeersKnown = len(n.Peers())
	h.MempoolSize = mp.Len()
	h.UptimeSeconds = int64(time.Since(h.startTime).Seconds())
	return *h
}

func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	var (
		validatorID = flag.String("validator-id", "", "Validator ID (overrides VALIDATOR_ID env var)")
		configFile  = flag.String("config", "", "Path to a YAML config file (overrides env defaults)")
		showHelp    = flag.Bool("help", false, "Show help message")
	)
	flag.Parse()

	if *showHelp {
		printHelp()
		return
	}

	var cfg *config.Config
	if *configFile != "" {
		var err error
		cfg, err = config.LoadFile(*configFile)
		if err != nil {
			log.Fatalf("load config file: %v", err)
		}
	} else {
		cfg = config.Load()
	}

	if *validatorID != "" {
		var id int
		if _, err := fmt.Sscanf(*validatorID, "%d", &id); err != nil {
			log.Fatalf("invalid --validator-id %q: %v", *validatorID, err)
		}
		cfg.ValidatorID = int32(id)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	log.Printf("starting validator %d, listen=%s, network=%s", cfg.ValidatorID, cfg.ListenAddr, cfg.NetworkID)

	keyPath := cfg.Ed25519KeyPath
	if keyPath == "" {
		keyPath = filepath.Join(cfg.DataDir, "ed25519_key.hex")
	}
	kp, err := crypto.LoadOrGenerateKeypair(keyPath)
	if err != nil {
		log.Fatalf("load keypair: %v", err)
	}
	log.Printf("node public key: %s", hex.EncodeToString(kp.Public))

	blockDB, err := dbm.NewGoLevelDB("blocks", cfg.DataDir)
	if err != nil {
		log.Fatalf("open block store: %v", err)
	}
	utxoDB, err := dbm.NewGoLevelDB("utxos", cfg.DataDir)
	if err != nil {
		log.Fatalf("open utxo store: %v", err)
	}
	blockStore := store.NewBlockStore(kvdb.NewAdapter(blockDB))
	utxoStore := store.NewUTXOStore(kvdb.NewAdapter(utxoDB))

	c, err := chain.NewChain(blockStore, utxoStore)
	if err != nil {
		log.Fatalf("initialize chain: %v", err)
	}
	tipHash, err := c.TipHash()
	if err != nil {
		log.Fatalf("read chain tip: %v", err)
	}
	log.Printf("chain at height %d, tip %x", c.Height(), tipHash)

	mp := mempool.New()

	metricsReg := metrics.NewRegistry()

	n := node.New(node.Config{
		SelfID:            fmt.Sprintf("%d", cfg.ValidatorID),
		ListenAddress:     cfg.ListenAddr,
		ProtocolVersion:   cfg.ProtocolVersion,
		PublicKey:         kp.Public,
		HandshakeTimeout:  cfg.HandshakeTimeout,
		HeartbeatInterval: cfg.HeartbeatInterval,
	}, c, mp, utxoStore, kp)
	n.SetMetrics(metricsReg)

	v := validator.New(cfg.ValidatorID, cfg.RoundTransactionThreshold, n, mp, c, kp)
	v.SetMetrics(metricsReg)

	mux := http.NewServeMux()
	n.RegisterHandlers(mux)
	v.RegisterHandlers(mux)
	mux.Handle("/metrics", metricsReg.Handler())

	health := newHealthStatus()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(health.snapshot(c, n, mp))
	})

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: mux,
	}

	ctx, cancel := context.WithCancel(context.Background())

	if len(cfg.PeerBootstrap) > 0 {
		go n.BootstrapNetwork(ctx, cfg.PeerBootstrap)
	}
	n.StartHeartbeat(ctx)
	v.StartRoundPoller(ctx, time.Second)

	go func() {
		log.Printf("validator HTTP API listening on %s", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Printf("shutting down validator %d...", cfg.ValidatorID)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Printf("validator %d stopped", cfg.ValidatorID)
}

func printHelp() {
	fmt.Println("Certen Validator")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  validator [OPTIONS]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --validator-id=ID   Validator ID (overrides VALIDATOR_ID env var)")
	fmt.Println("  --config=PATH       YAML config file")
	fmt.Println("  --help              Show this help message")
}
