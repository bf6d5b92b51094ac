// Package storage persists blocks, transactions, deals, state snapshots and
// the watcher's seen-deposit set. Store is a generic implementation
// over the DB interface: it knows nothing about LevelDB or memory, only key
// layout and JSON encoding, so any DB backend gets the same contract.
package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/clearsync/sequencer/state"
	"github.com/clearsync/sequencer/types"
)

const (
	prefixBlock       = "block:"
	prefixTx          = "tx:"
	prefixDeal        = "deal:"
	prefixSeenDeposit = "seen_deposit:"
	keyLatestBlockID  = "meta:latest_block_id"
	keySnapshot       = "meta:snapshot:latest"
)

// Store is the node's single persistence facade: blocks, their
// transactions, deals, periodic state snapshots, and the cross-chain
// deposit dedup set.
type Store struct {
	db DB
}

// New wraps db as a Store.
func New(db DB) *Store {
	return &Store{db: db}
}

func blockKey(id uint64) []byte {
	var b [len(prefixBlock) + 8]byte
	copy(b[:], prefixBlock)
	binary.LittleEndian.PutUint64(b[len(prefixBlock):], id)
	return b[:]
}

// txKey encodes (block_id, index) as an 8+8 little-endian key so that all
// of a block's transactions sort contiguously under its prefix.
func txKey(blockID uint64, index uint32) []byte {
	b := make([]byte, len(prefixTx)+16)
	copy(b, prefixTx)
	binary.LittleEndian.PutUint64(b[len(prefixTx):], blockID)
	binary.LittleEndian.PutUint64(b[len(prefixTx)+8:], uint64(index))
	return b
}

func txPrefix(blockID uint64) []byte {
	b := make([]byte, len(prefixTx)+8)
	copy(b, prefixTx)
	binary.LittleEndian.PutUint64(b[len(prefixTx):], blockID)
	return b
}

func dealKey(id uint64) []byte {
	var b [len(prefixDeal) + 8]byte
	copy(b[:], prefixDeal)
	binary.LittleEndian.PutUint64(b[len(prefixDeal):], id)
	return b[:]
}

func seenDepositKey(id string) []byte {
	return append([]byte(prefixSeenDeposit), []byte(id)...)
}

// SaveBlock persists a block and advances the latest-block-id pointer. It
// does not persist the block's transactions; call SaveTransaction for each.
func (s *Store) SaveBlock(b *types.Block) error {
	data, err := json.Marshal(b)
	if err != nil {
		return newErr(ErrSerializationFailed, "marshal block", err)
	}
	batch := s.db.NewBatch()
	batch.Set(blockKey(b.ID), data)
	var idBuf [8]byte
	binary.LittleEndian.PutUint64(idBuf[:], b.ID)
	batch.Set([]byte(keyLatestBlockID), idBuf[:])
	if err := batch.Write(); err != nil {
		return err
	}
	return nil
}

// GetBlock loads the block with the given id.
func (s *Store) GetBlock(id uint64) (*types.Block, error) {
	data, err := s.db.Get(blockKey(id))
	if err != nil {
		return nil, err
	}
	var b types.Block
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, newErr(ErrDeserializationFailed, fmt.Sprintf("block %d", id), err)
	}
	return &b, nil
}

// GetLatestBlockID returns the highest committed block id, or (0, false) if
// no block has been committed yet.
func (s *Store) GetLatestBlockID() (uint64, bool, error) {
	data, err := s.db.Get([]byte(keyLatestBlockID))
	if IsNotFound(err) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return binary.LittleEndian.Uint64(data), true, nil
}

// SaveTransaction persists tx at its position within block blockID.
func (s *Store) SaveTransaction(blockID uint64, index uint32, tx *types.Tx) error {
	data, err := json.Marshal(tx)
	if err != nil {
		return newErr(ErrSerializationFailed, "marshal tx", err)
	}
	return s.db.Set(txKey(blockID, index), data)
}

// GetTransaction loads the transaction at (blockID, index).
func (s *Store) GetTransaction(blockID uint64, index uint32) (*types.Tx, error) {
	data, err := s.db.Get(txKey(blockID, index))
	if err != nil {
		return nil, err
	}
	var tx types.Tx
	if err := json.Unmarshal(data, &tx); err != nil {
		return nil, newErr(ErrDeserializationFailed, "tx", err)
	}
	return &tx, nil
}

// GetTransactionsByBlock returns every persisted transaction for blockID in
// index order (the little-endian index in the key does not sort
// numerically past 255, so results are sorted by the decoded index).
func (s *Store) GetTransactionsByBlock(blockID uint64) ([]*types.Tx, error) {
	it := s.db.NewIterator(txPrefix(blockID))
	defer it.Release()

	type indexedTx struct {
		index uint64
		tx    *types.Tx
	}
	var items []indexedTx
	for it.Next() {
		var tx types.Tx
		if err := json.Unmarshal(it.Value(), &tx); err != nil {
			return nil, newErr(ErrDeserializationFailed, "tx", err)
		}
		key := it.Key()
		items = append(items, indexedTx{index: binary.LittleEndian.Uint64(key[len(key)-8:]), tx: &tx})
	}
	if err := it.Error(); err != nil {
		return nil, newErr(ErrIO, "iterate transactions", err)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].index < items[j].index })
	var out []*types.Tx
	for _, item := range items {
		out = append(out, item.tx)
	}
	return out, nil
}

// SaveDeal persists a deal keyed by its numeric id.
func (s *Store) SaveDeal(d *types.Deal) error {
	data, err := json.Marshal(d)
	if err != nil {
		return newErr(ErrSerializationFailed, "marshal deal", err)
	}
	return s.db.Set(dealKey(d.ID), data)
}

// GetDeal loads the deal with the given id.
func (s *Store) GetDeal(id uint64) (*types.Deal, error) {
	data, err := s.db.Get(dealKey(id))
	if err != nil {
		return nil, err
	}
	var d types.Deal
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, newErr(ErrDeserializationFailed, fmt.Sprintf("deal %d", id), err)
	}
	return &d, nil
}

// GetAllDeals returns every persisted deal, in ascending id order (the
// little-endian key encoding does not sort numerically across byte
// boundaries for large ids, so deals are collected then sorted by id).
func (s *Store) GetAllDeals() ([]*types.Deal, error) {
	it := s.db.NewIterator([]byte(prefixDeal))
	defer it.Release()

	var out []*types.Deal
	for it.Next() {
		var d types.Deal
		if err := json.Unmarshal(it.Value(), &d); err != nil {
			return nil, newErr(ErrDeserializationFailed, "deal", err)
		}
		out = append(out, &d)
	}
	if err := it.Error(); err != nil {
		return nil, newErr(ErrIO, "iterate deals", err)
	}
	sortDealsByID(out)
	return out, nil
}

func sortDealsByID(deals []*types.Deal) {
	for i := 1; i < len(deals); i++ {
		for j := i; j > 0 && deals[j-1].ID > deals[j].ID; j-- {
			deals[j-1], deals[j] = deals[j], deals[j-1]
		}
	}
}

// stateSnapshot is the durable encoding of a state.State: enough to
// reconstruct it exactly, including allocation counters.
type stateSnapshot struct {
	BlockID       uint64          `json:"block_id"`
	Accounts      []*types.Account `json:"accounts"`
	Deals         []*types.Deal    `json:"deals"`
	NextAccountID uint64          `json:"next_account_id"`
	NextDealID    uint64          `json:"next_deal_id"`
}

// SaveStateSnapshot persists st as the snapshot taken after committing
// block blockID, replacing any previous snapshot.
func (s *Store) SaveStateSnapshot(blockID uint64, st *state.State) error {
	snap := stateSnapshot{
		BlockID:       blockID,
		Accounts:      st.Accounts(),
		Deals:         st.Deals(),
		NextAccountID: st.NextAccountID(),
		NextDealID:    st.NextDealID(),
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return newErr(ErrSerializationFailed, "marshal snapshot", err)
	}
	return s.db.Set([]byte(keySnapshot), data)
}

// GetLatestStateSnapshot loads the most recently saved snapshot and
// reconstructs a state.State plus the block id it was taken after. Returns
// (nil, 0, false, nil) if no snapshot has ever been saved (fresh node,
// recovery replays from genesis).
func (s *Store) GetLatestStateSnapshot() (*state.State, uint64, bool, error) {
	data, err := s.db.Get([]byte(keySnapshot))
	if IsNotFound(err) {
		return nil, 0, false, nil
	}
	if err != nil {
		return nil, 0, false, err
	}
	var snap stateSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, 0, false, newErr(ErrDeserializationFailed, "snapshot", err)
	}

	st := state.New()
	for _, acc := range snap.Accounts {
		st.PutAccount(acc)
	}
	for _, d := range snap.Deals {
		st.PutDeal(d)
	}
	st.SetCounters(snap.NextAccountID, snap.NextDealID)
	return st, snap.BlockID, true, nil
}

// SaveSeenDeposit marks a source-chain deposit (identified by depositID;
// the watcher passes the deposit's on-chain tx hash) as ingested, so the
// watcher will not resubmit it after a restart.
func (s *Store) SaveSeenDeposit(depositID string) error {
	return s.db.Set(seenDepositKey(depositID), []byte{1})
}

// IsSeenDeposit reports whether depositID has already been ingested.
func (s *Store) IsSeenDeposit(depositID string) (bool, error) {
	_, err := s.db.Get(seenDepositKey(depositID))
	if IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Flush is a no-op for backends without internal write buffering; kept so
// callers have one lifecycle method regardless of backend.
func (s *Store) Flush() error { return nil }

// Close releases the underlying DB's resources.
func (s *Store) Close() error { return s.db.Close() }
