// Command node starts a clearing-sequencer node: it opens durable storage,
// recovers the sequencer to tip, and serves the wire (JSON-RPC) surface
// and any configured chain watchers until signaled to stop.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/clearsync/sequencer/config"
	"github.com/clearsync/sequencer/events"
	"github.com/clearsync/sequencer/proof/snark"
	"github.com/clearsync/sequencer/sequencer"
	"github.com/clearsync/sequencer/storage"
	"github.com/clearsync/sequencer/types"
	"github.com/clearsync/sequencer/wallet"
	"github.com/clearsync/sequencer/watcher"
	"github.com/clearsync/sequencer/wire"
)

func main() {
	cfgPath := flag.String("config", "config.json", "path to config file")
	keyPath := flag.String("key", "operator.key", "path to the encrypted operator keystore file")
	keyPass := flag.String("keypass", "", "password protecting the operator keystore file")
	genKey := flag.Bool("genkey", false, "generate a new secp256k1 key pair and exit; with -keypass it is written encrypted to -key, otherwise the raw key is printed")
	memOnly := flag.Bool("memdb", false, "use an in-memory store instead of LevelDB (development only, no durability)")
	flag.Parse()

	if *genKey {
		w, err := wallet.Generate()
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("Address: %s\n", w.Address().Hex())
		if *keyPass == "" {
			fmt.Printf("Private key: %s\n", w.PrivKey().Hex())
			fmt.Println("No -keypass given: printed the raw key instead of writing an encrypted keystore.")
		} else {
			if err := wallet.SaveKey(*keyPath, *keyPass, w.PrivKey()); err != nil {
				log.Fatalf("save keystore: %v", err)
			}
			fmt.Printf("Encrypted keystore written to %s\n", *keyPath)
		}
		return
	}

	var operatorWallet *wallet.Wallet
	if *keyPass != "" {
		var loadErr error
		operatorWallet, loadErr = wallet.LoadKey(*keyPath, *keyPass)
		if loadErr != nil {
			log.Fatalf("load operator keystore: %v", loadErr)
		}
		log.Printf("Operator key loaded: address=%s", operatorWallet.Address().Hex())
	}
	_ = operatorWallet // reserved for future CLI-signed operator actions

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		log.Fatalf("mkdir data dir: %v", err)
	}

	var db storage.DB
	if *memOnly {
		db = storage.NewMemDB()
		log.Println("WARNING: using in-memory store — no durability across restarts")
	} else {
		ldb, err := storage.NewLevelDB(cfg.DataDir + "/chain")
		if err != nil {
			log.Fatalf("open leveldb: %v", err)
		}
		db = ldb
	}
	defer db.Close()

	store := storage.New(db)
	defer store.Flush()

	emitter := events.NewEmitter()
	emitter.Subscribe(events.EventBlockCommitted, logEvent)
	emitter.Subscribe(events.EventDealSettled, logEvent)
	emitter.Subscribe(events.EventDealCancelled, logEvent)
	emitter.Subscribe(events.EventProofProduced, logEvent)
	emitter.Subscribe(events.EventProofDegraded, logEvent)

	var snarkProver *snark.Prover
	if cfg.SnarkEnabled {
		snarkProver, err = snark.NewProver(cfg.ProverKeyDir)
		if err != nil {
			log.Fatalf("snark prover setup: %v", err)
		}
	}

	seq, err := sequencer.Recover(sequencer.Config{
		MaxQueueSize:     cfg.MaxQueueSize,
		MaxTxsPerBlock:   cfg.MaxTxsPerBlock,
		SnapshotInterval: cfg.SnapshotInterval,
		Prove:            cfg.Prove,
		Strict:           cfg.ProveStrict,
		SnarkProver:      snarkProver,
		Emitter:          emitter,
	}, store)
	if err != nil {
		log.Fatalf("sequencer recovery: %v", err)
	}
	log.Printf("Sequencer recovered: current_block_id=%d", seq.CurrentBlockID())

	// ---- wire (JSON-RPC query/submit surface) ----
	tlsCfg, err := config.LoadTLSConfig(cfg.TLS)
	if err != nil {
		log.Fatalf("tls: %v", err)
	}

	wireHandler := wire.NewHandler(seq, store)
	wireAddr := fmt.Sprintf(":%d", cfg.RPCPort)
	wireServer := wire.NewServer(wireAddr, wireHandler, cfg.RPCAuthToken, tlsCfg)
	if err := wireServer.Start(); err != nil {
		log.Fatalf("wire server start: %v", err)
	}
	defer wireServer.Stop()
	if tlsCfg != nil {
		log.Printf("Wire (JSON-RPC) listening on %s (mTLS)", wireAddr)
	} else {
		log.Printf("Wire (JSON-RPC) listening on %s", wireAddr)
	}
	if cfg.RPCAuthToken != "" {
		log.Println("Wire bearer-token authentication enabled")
	}

	// ---- watchers, one per configured chain ----
	var nextTxID uint64 = uint64(time.Now().UTC().Unix()) << 20 // coarse collision-avoidance seed; real deployments should persist a counter
	allocTxID := func() uint64 { return atomic.AddUint64(&nextTxID, 1) }

	ctx, cancelWatchers := context.WithCancel(context.Background())
	watcherDone := make(chan struct{})
	var wg sync.WaitGroup
	for _, ch := range cfg.Chains {
		client, err := watcher.NewEVMClient(ch.RPCURL, depositContractAddr(ch))
		if err != nil {
			log.Printf("watcher %s: %v (skipping)", ch.Name, err)
			continue
		}
		w := watcher.New(watcher.Config{
			ChainID:               types.ChainID(ch.ChainID),
			Name:                  ch.Name,
			PollInterval:          time.Duration(ch.PollIntervalSeconds) * time.Second,
			RequiredConfirmations: uint64(ch.RequiredConfirmations),
		}, client, seq, store, allocTxID)
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Run(ctx, watcherDone)
		}()
		log.Printf("Watching chain %q (id=%d) at %s", ch.Name, ch.ChainID, ch.RPCURL)
	}

	// ---- graceful shutdown ----
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Println("Shutting down...")

	close(watcherDone)
	cancelWatchers()
	wg.Wait()

	log.Println("Shutdown complete.")
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("Config file not found at %s, using defaults.", path)
			return config.DefaultConfig(), nil
		}
		return nil, err
	}
	return cfg, nil
}

func logEvent(ev events.Event) {
	log.Printf("[event] %s block=%d tx=%d data=%v", ev.Type, ev.BlockID, ev.TxID, ev.Data)
}

func depositContractAddr(ch config.ChainConfig) common.Address {
	return common.HexToAddress(ch.DepositContract)
}
