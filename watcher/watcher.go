// Package watcher polls external chains for deposit events and submits
// them into the sequencer's admission queue as unsigned Deposit
// transactions. Chains themselves are treated as external collaborators;
// this package exists only to the extent its contract touches the core
// (Submitter, dedup via storage.Store's seen-deposit set).
//
// Uses a time.NewTicker + done channel poll loop, with
// validate-or-skip-and-continue reorg tolerance generalized from block
// sync to deposit-event scanning.
package watcher

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/clearsync/sequencer/types"
)

// rescanDepth is how many confirmed blocks are re-scanned every poll to
// tolerate reorgs near the confirmation boundary.
const rescanDepth = 10

// DepositEvent is one observed on-chain deposit, emitted as
// Deposit(user, asset_id, amount) by the deposit contract.
type DepositEvent struct {
	TxHash string
	User   types.Address
	Asset  types.AssetID
	Amount *types.Amount
}

// ChainClient is the minimal read surface the watcher needs from an
// external chain RPC endpoint. Implementations wrap go-ethereum's
// ethclient for EVM chains.
type ChainClient interface {
	// LatestBlock returns the chain's current tip height.
	LatestBlock(ctx context.Context) (uint64, error)
	// DepositsInRange returns every Deposit event observed in
	// [from, to] inclusive.
	DepositsInRange(ctx context.Context, from, to uint64) ([]DepositEvent, error)
}

// Submitter is the sequencer capability the watcher needs: admitting a
// pre-built Deposit transaction. Deposits bypass signature verification
// inside validation.Validate but still undergo size/nonce checks.
type Submitter interface {
	Submit(tx *types.Tx) error
}

// DedupStore persists the set of on-chain deposit tx hashes already
// submitted, so a restart-triggered re-scan does not re-emit them.
type DedupStore interface {
	IsSeenDeposit(depositID string) (bool, error)
	SaveSeenDeposit(depositID string) error
}

// Config parameterizes one chain's poller.
type Config struct {
	ChainID               types.ChainID
	Name                  string
	PollInterval          time.Duration
	RequiredConfirmations uint64
}

// Watcher polls a single chain for deposit events and submits them.
type Watcher struct {
	cfg       Config
	client    ChainClient
	submitter Submitter
	dedup     DedupStore
	nextTxID  func() uint64

	lastScanned uint64 // highest block height already scanned past the confirmation window
}

// New creates a Watcher for one configured chain. nextTxID allocates the
// Tx.ID for submitted deposits (the sequencer itself is id-agnostic; a
// monotonic counter shared across the node is the simplest safe source).
func New(cfg Config, client ChainClient, submitter Submitter, dedup DedupStore, nextTxID func() uint64) *Watcher {
	return &Watcher{cfg: cfg, client: client, submitter: submitter, dedup: dedup, nextTxID: nextTxID}
}

// Run polls on cfg.PollInterval until done is closed.
func (w *Watcher) Run(ctx context.Context, done <-chan struct{}) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := w.poll(ctx); err != nil {
				log.Printf("[watcher:%s] poll error: %v", w.cfg.Name, err)
			}
		}
	}
}

// poll scans for new deposits, tolerating reorgs by re-scanning the last
// rescanDepth confirmed blocks every time.
func (w *Watcher) poll(ctx context.Context) error {
	tip, err := w.client.LatestBlock(ctx)
	if err != nil {
		return fmt.Errorf("latest block: %w", err)
	}
	if tip < w.cfg.RequiredConfirmations {
		return nil // chain too young, nothing confirmed yet
	}
	confirmedTip := tip - w.cfg.RequiredConfirmations

	from := w.lastScanned
	if from == 0 {
		from = confirmedTip
	} else if from > rescanDepth {
		from -= rescanDepth
	} else {
		from = 0
	}
	if from > confirmedTip {
		return nil // nothing new past the confirmation window
	}

	events, err := w.client.DepositsInRange(ctx, from, confirmedTip)
	if err != nil {
		return fmt.Errorf("deposits in range [%d,%d]: %w", from, confirmedTip, err)
	}

	for _, ev := range events {
		if err := w.submitDeposit(ev); err != nil {
			log.Printf("[watcher:%s] submit deposit %s: %v", w.cfg.Name, ev.TxHash, err)
		}
	}

	w.lastScanned = confirmedTip
	return nil
}

// submitDeposit dedups by on-chain tx hash, then builds and submits an
// unsigned Deposit transaction with nonce 0.
func (w *Watcher) submitDeposit(ev DepositEvent) error {
	seen, err := w.dedup.IsSeenDeposit(ev.TxHash)
	if err != nil {
		return fmt.Errorf("dedup lookup: %w", err)
	}
	if seen {
		return nil
	}

	tx := &types.Tx{
		ID:    w.nextTxID(),
		From:  ev.User,
		Nonce: 0,
		Kind:  types.TxDeposit,
		Payload: types.DepositPayload{
			Asset:  ev.Asset,
			Amount: ev.Amount,
			Chain:  w.cfg.ChainID,
		},
	}

	if err := w.submitter.Submit(tx); err != nil {
		// Queue-full is tolerated as back-pressure: retry next poll,
		// do not mark seen.
		return err
	}

	return w.dedup.SaveSeenDeposit(ev.TxHash)
}
