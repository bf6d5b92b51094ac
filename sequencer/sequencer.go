// Package sequencer owns the single writable copy of state, the admission
// queue, the block counter, and the persistence/proof-generation driver.
// It is a single-authority component: there is no validator rotation,
// no multi-node consensus, just one sequencer advancing the chain.
package sequencer

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/clearsync/sequencer/events"
	"github.com/clearsync/sequencer/merkle"
	"github.com/clearsync/sequencer/proof/snark"
	"github.com/clearsync/sequencer/proof/stark"
	"github.com/clearsync/sequencer/state"
	"github.com/clearsync/sequencer/stf"
	"github.com/clearsync/sequencer/storage"
	"github.com/clearsync/sequencer/types"
	"github.com/clearsync/sequencer/validation"
)

// DefaultMaxTxsPerBlock bounds how many transactions BuildBlock drains from
// the queue per block.
const DefaultMaxTxsPerBlock = 1000

// DefaultSnapshotInterval is how many blocks elapse between full state
// snapshots.
const DefaultSnapshotInterval = 100

// Config parameterizes a Sequencer.
type Config struct {
	MaxQueueSize     int
	MaxTxsPerBlock   int
	SnapshotInterval uint64
	// Prove enables stark proof generation for every block. When
	// SnarkProver is also non-nil, BlockProof holds a Groth16 envelope over
	// the block's three roots instead of the serialized stark proof; the
	// stark proof is still built but is not an input to the Groth16 proof.
	// Strict controls whether a proof failure is fatal (true) or degrades
	// gracefully to an unproven block.
	Prove       bool
	SnarkProver *snark.Prover
	Strict      bool
	// Now returns the wall-clock seconds used as a block's timestamp.
	// Defaults to time.Now().Unix(); overridable for deterministic tests.
	Now func() uint64
	// Emitter, if non-nil, receives block/deal/proof lifecycle events
	// (events.EventBlockCommitted, EventDealSettled, EventDealCancelled,
	// EventProofProduced, EventProofDegraded). Nil is a valid no-op.
	Emitter *events.Emitter
}

// emit is a nil-safe wrapper so call sites don't need to guard every call.
func (s *Sequencer) emit(ev events.Event) {
	if s.cfg.Emitter != nil {
		s.cfg.Emitter.Emit(ev)
	}
}

func (c *Config) withDefaults() Config {
	cp := *c
	if cp.MaxQueueSize == 0 {
		cp.MaxQueueSize = DefaultMaxQueueSize
	}
	if cp.MaxTxsPerBlock == 0 {
		cp.MaxTxsPerBlock = DefaultMaxTxsPerBlock
	}
	if cp.SnapshotInterval == 0 {
		cp.SnapshotInterval = DefaultSnapshotInterval
	}
	if cp.Now == nil {
		cp.Now = func() uint64 { return uint64(time.Now().Unix()) }
	}
	return cp
}

// Sequencer is the node's single writer: one embedded state, one bounded
// queue, one storage.Store, and optional provers.
type Sequencer struct {
	cfg Config

	stateMu sync.RWMutex
	state   *state.State

	queue *queue
	store *storage.Store

	currentBlockID uint64
	lastSnapshotID uint64
}

// New constructs a Sequencer over an already-recovered state (see Recover
// for loading one from storage) starting at currentBlockID.
func New(cfg Config, store *storage.Store, st *state.State, currentBlockID, lastSnapshotID uint64) *Sequencer {
	c := cfg.withDefaults()
	return &Sequencer{
		cfg:            c,
		state:          st,
		queue:          newQueue(c.MaxQueueSize),
		store:          store,
		currentBlockID: currentBlockID,
		lastSnapshotID: lastSnapshotID,
	}
}

// Recover implements the startup recovery algorithm: load the
// latest snapshot (if any), replay committed blocks after it to tip, and
// construct a ready-to-run Sequencer. Blocks ids are contiguous starting
// at 1, so a snapshot-less recovery with blocks
// present replays from block 1.
func Recover(cfg Config, store *storage.Store) (*Sequencer, error) {
	snapshotState, snapshotBlockID, hasSnapshot, err := store.GetLatestStateSnapshot()
	if err != nil {
		return nil, newErr(ErrRecoveryFailed, "load snapshot", err)
	}

	latestBlockID, hasBlocks, err := store.GetLatestBlockID()
	if err != nil {
		return nil, newErr(ErrRecoveryFailed, "load latest block id", err)
	}

	var st *state.State
	lastSnapshotID := uint64(0)
	startBlockID := uint64(1)
	if hasSnapshot {
		st = snapshotState
		lastSnapshotID = snapshotBlockID
		startBlockID = snapshotBlockID + 1
	} else {
		st = state.New()
	}

	if !hasBlocks || startBlockID > latestBlockID {
		// Replay range is empty or inverted: a no-op, not an error
		//.
		return New(cfg, store, st, latestBlockIDPlusOne(hasBlocks, latestBlockID), lastSnapshotID), nil
	}

	for id := startBlockID; id <= latestBlockID; id++ {
		block, err := store.GetBlock(id)
		if err != nil {
			return nil, newErr(ErrRecoveryFailed, fmt.Sprintf("load block %d", id), err)
		}
		// Signatures are NOT re-checked during replay: blocks are
		// trusted as their ingestion already validated them.
		if err := stf.ApplyBlock(st, block.Transactions, block.Timestamp); err != nil {
			return nil, newErr(ErrRecoveryFailed, fmt.Sprintf("replay block %d", id), err)
		}
	}

	return New(cfg, store, st, latestBlockID+1, lastSnapshotID), nil
}

func latestBlockIDPlusOne(hasBlocks bool, latestBlockID uint64) uint64 {
	if !hasBlocks {
		return 1
	}
	return latestBlockID + 1
}

// Submit validates tx and, on success, enqueues it. Deposits
// bypass signature verification inside Validate but still undergo
// size/nonce checks.
func (s *Sequencer) Submit(tx *types.Tx) error {
	s.stateMu.RLock()
	err := validation.Validate(tx, s.state)
	s.stateMu.RUnlock()
	if err != nil {
		return err
	}
	return s.queue.push(tx)
}

// QueueSize returns the current admission queue length.
func (s *Sequencer) QueueSize() int { return s.queue.size() }

// candidateBlock is the output of BuildBlock: a fully-applied block plus
// the resulting state, not yet committed to the live Sequencer or to
// storage.
type candidateBlock struct {
	block    *types.Block
	newState *state.State
}

// BuildBlock pops up to MaxTxsPerBlock transactions, clones the live state,
// applies them, and computes the resulting roots (and optional proof)
// without mutating the live Sequencer. On STF failure the popped
// transactions are dropped, not re-queued. Building against an empty
// queue fails with ErrNoTransactions rather than producing an empty
// block.
func (s *Sequencer) BuildBlock() (*types.Block, *state.State, error) {
	if s.queue.size() == 0 {
		return nil, nil, newErr(ErrNoTransactions, "build requested on empty queue", nil)
	}

	txs := s.queue.popUpTo(s.cfg.MaxTxsPerBlock)

	s.stateMu.RLock()
	clone := s.state.Clone()
	prevRoot := clone.ComputeRoot()
	blockID := s.currentBlockID
	s.stateMu.RUnlock()

	timestamp := s.cfg.Now()

	if err := stf.ApplyBlock(clone, txs, timestamp); err != nil {
		return nil, nil, newErr(ErrSTFFailed, fmt.Sprintf("block %d", blockID), err)
	}

	newRoot := clone.ComputeRoot()
	withdrawalsRoot := computeWithdrawalsRoot(txs)

	block := &types.Block{
		ID:              blockID,
		Timestamp:       timestamp,
		Transactions:    txs,
		StateRoot:       newRoot,
		WithdrawalsRoot: withdrawalsRoot,
	}

	if s.cfg.Prove {
		proofBytes, err := s.generateProof(prevRoot, block)
		if err != nil {
			if s.cfg.Strict {
				return nil, nil, err
			}
			// Graceful degradation: the block is produced without a
			// proof.
			s.emit(events.Event{Type: events.EventProofDegraded, BlockID: block.ID,
				Data: map[string]any{"error": err.Error()}})
		} else {
			block.BlockProof = proofBytes
			s.emit(events.Event{Type: events.EventProofProduced, BlockID: block.ID,
				Data: map[string]any{"bytes": len(proofBytes)}})
		}
	}

	return block, clone, nil
}

func computeWithdrawalsRoot(txs []*types.Tx) types.Hash {
	var leaves [][32]byte
	for _, tx := range txs {
		if tx.Kind != types.TxWithdraw {
			continue
		}
		p := tx.Payload.(types.WithdrawPayload)
		leaves = append(leaves, merkle.WithdrawalLeaf(tx.From, p.Asset, p.Amount, p.Chain))
	}
	return types.Hash(merkle.Build(merkle.Keccak256Hash, leaves).Root())
}

// generateProof builds a stark trace-commitment proof and, with no
// SnarkProver configured, returns it JSON-encoded. With a SnarkProver it
// instead returns the Groth16 envelope over prevRoot, the new state root
// and the withdrawals root; the stark proof is not fed into it. The result
// is what gets embedded in block.BlockProof.
func (s *Sequencer) generateProof(prevRoot types.Hash, block *types.Block) ([]byte, error) {
	pub := stark.PublicInputs{
		PrevStateRoot:   prevRoot,
		NewStateRoot:    block.StateRoot,
		WithdrawalsRoot: block.WithdrawalsRoot,
		BlockID:         block.ID,
		Timestamp:       block.Timestamp,
	}
	starkProof, err := stark.Prove(pub, block)
	if err != nil {
		return nil, newErr(ErrPersistence, "stark prove", err)
	}

	if s.cfg.SnarkProver == nil {
		data, err := json.Marshal(starkProof)
		if err != nil {
			return nil, newErr(ErrPersistence, "marshal stark proof", err)
		}
		return data, nil
	}

	env, err := s.cfg.SnarkProver.Prove(prevRoot, block.StateRoot, block.WithdrawalsRoot)
	if err != nil {
		return nil, newErr(ErrPersistence, "snark prove", err)
	}
	return env.Bytes()
}

// ExecuteBlock verifies block.ID matches the live block counter, installs
// newState as the live state, persists the block and its constituent
// transactions and touched deals, and snapshots if the interval has
// elapsed.
func (s *Sequencer) ExecuteBlock(block *types.Block, newState *state.State) error {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	if block.ID != s.currentBlockID {
		return newErr(ErrBlockIDMismatch, fmt.Sprintf("block id %d does not match current %d", block.ID, s.currentBlockID), nil)
	}

	s.state = newState

	if err := s.store.SaveBlock(block); err != nil {
		return newErr(ErrPersistence, "save block", err)
	}
	for i, tx := range block.Transactions {
		if err := s.store.SaveTransaction(block.ID, uint32(i), tx); err != nil {
			return newErr(ErrPersistence, "save transaction", err)
		}
		if dealID, ok := dealIDOf(tx); ok {
			if d, found := s.state.Deal(dealID); found {
				if err := s.store.SaveDeal(d); err != nil {
					return newErr(ErrPersistence, "save deal", err)
				}
				switch tx.Kind {
				case types.TxAcceptDeal:
					s.emit(events.Event{Type: events.EventDealSettled, TxID: tx.ID, BlockID: block.ID,
						Data: map[string]any{"deal_id": dealID}})
				case types.TxCancelDeal:
					s.emit(events.Event{Type: events.EventDealCancelled, TxID: tx.ID, BlockID: block.ID,
						Data: map[string]any{"deal_id": dealID}})
				}
			}
		}
	}

	if s.currentBlockID-s.lastSnapshotID >= s.cfg.SnapshotInterval {
		if err := s.store.SaveStateSnapshot(s.currentBlockID, s.state); err != nil {
			return newErr(ErrPersistence, "save snapshot", err)
		}
		s.lastSnapshotID = s.currentBlockID
	}

	s.currentBlockID++
	s.emit(events.Event{Type: events.EventBlockCommitted, BlockID: block.ID,
		Data: map[string]any{"tx_count": len(block.Transactions)}})
	return nil
}

func dealIDOf(tx *types.Tx) (uint64, bool) {
	switch p := tx.Payload.(type) {
	case types.CreateDealPayload:
		return p.DealID, true
	case types.AcceptDealPayload:
		return p.DealID, true
	case types.CancelDealPayload:
		return p.DealID, true
	default:
		return 0, false
	}
}

// BuildAndExecute composes BuildBlock and ExecuteBlock.
func (s *Sequencer) BuildAndExecute() (*types.Block, error) {
	block, newState, err := s.BuildBlock()
	if err != nil {
		return nil, err
	}
	if err := s.ExecuteBlock(block, newState); err != nil {
		return nil, err
	}
	return block, nil
}

// CurrentBlockID returns the block id the next BuildBlock will produce.
func (s *Sequencer) CurrentBlockID() uint64 {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.currentBlockID
}

// Account exposes a read-only account lookup for the wire layer.
func (s *Sequencer) Account(addr types.Address) (*types.Account, bool) {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	acc, ok := s.state.AccountByAddress(addr)
	if !ok {
		return nil, false
	}
	return acc.Clone(), true
}

// Deal exposes a read-only deal lookup for the wire layer.
func (s *Sequencer) Deal(id uint64) (*types.Deal, bool) {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	d, ok := s.state.Deal(id)
	if !ok {
		return nil, false
	}
	return d.Clone(), true
}
