// Package state holds the sequencer's in-memory catalogue of accounts and
// deals, keyed by numeric identifiers with a secondary index from
// address to account. It carries no persistence or business-rule logic —
// that is storage's and stf's job respectively.
package state

import (
	"sort"

	"github.com/clearsync/sequencer/merkle"
	"github.com/clearsync/sequencer/types"
)

// State is the live catalogue of accounts and deals. It is deliberately a
// plain struct, not an interface: the STF operates on a single concrete
// in-memory shape, and the sequencer clones it wholesale before each
// block build instead of snapshotting a KV write-buffer.
type State struct {
	accounts  map[uint64]*types.Account
	deals     map[uint64]*types.Deal
	addrIndex map[types.Address]uint64

	nextAccountID uint64
	nextDealID    uint64
}

// New returns an empty State.
func New() *State {
	return &State{
		accounts:      make(map[uint64]*types.Account),
		deals:         make(map[uint64]*types.Deal),
		addrIndex:     make(map[types.Address]uint64),
		nextAccountID: 1,
		nextDealID:    1,
	}
}

// Clone deep-copies the entire state. Used by the sequencer to build a
// working copy before applying a candidate block.
func (s *State) Clone() *State {
	cp := &State{
		accounts:      make(map[uint64]*types.Account, len(s.accounts)),
		deals:         make(map[uint64]*types.Deal, len(s.deals)),
		addrIndex:     make(map[types.Address]uint64, len(s.addrIndex)),
		nextAccountID: s.nextAccountID,
		nextDealID:    s.nextDealID,
	}
	for id, acc := range s.accounts {
		cp.accounts[id] = acc.Clone()
	}
	for addr, id := range s.addrIndex {
		cp.addrIndex[addr] = id
	}
	for id, d := range s.deals {
		cp.deals[id] = d.Clone()
	}
	return cp
}

// AccountByAddress returns the account owned by addr, or (nil, false) if
// none exists yet.
func (s *State) AccountByAddress(addr types.Address) (*types.Account, bool) {
	id, ok := s.addrIndex[addr]
	if !ok {
		return nil, false
	}
	return s.accounts[id], true
}

// AccountByID returns the account with the given numeric id.
func (s *State) AccountByID(id uint64) (*types.Account, bool) {
	acc, ok := s.accounts[id]
	return acc, ok
}

// GetOrCreateAccount returns the account owned by addr, creating it (with
// a fresh numeric id, nonce 0) if absent.
func (s *State) GetOrCreateAccount(addr types.Address, timestamp uint64) *types.Account {
	if acc, ok := s.AccountByAddress(addr); ok {
		return acc
	}
	id := s.nextAccountID
	s.nextAccountID++
	acc := types.NewAccount(id, addr, timestamp)
	s.accounts[id] = acc
	s.addrIndex[addr] = id
	return acc
}

// PutAccount stores acc, keeping the address index consistent.
func (s *State) PutAccount(acc *types.Account) {
	s.accounts[acc.ID] = acc
	s.addrIndex[acc.Owner] = acc.ID
}

// NonceOf implements validation.NonceSource: fresh accounts have nonce 0.
func (s *State) NonceOf(addr types.Address) uint64 {
	if acc, ok := s.AccountByAddress(addr); ok {
		return acc.Nonce
	}
	return 0
}

// Deal returns the deal with the given id.
func (s *State) Deal(id uint64) (*types.Deal, bool) {
	d, ok := s.deals[id]
	return d, ok
}

// DealExists reports whether a deal with this id has ever been created.
func (s *State) DealExists(id uint64) bool {
	_, ok := s.deals[id]
	return ok
}

// PutDeal inserts or updates a deal.
func (s *State) PutDeal(d *types.Deal) {
	s.deals[d.ID] = d
}

// AllocateDealID returns the next value of the free-running deal counter
// and advances it. The STF does not call it: CreateDealPayload.DealID is
// chosen by the maker, and deals created that way do not move the counter.
func (s *State) AllocateDealID() uint64 {
	id := s.nextDealID
	s.nextDealID++
	return id
}

// ComputeRoot serializes accounts in ascending account_id order followed by
// deals in ascending deal_id order, hashes each into a state leaf, and
// Merkle-combines them. Deterministic iff the sort order is.
func (s *State) ComputeRoot() types.Hash {
	accIDs := make([]uint64, 0, len(s.accounts))
	for id := range s.accounts {
		accIDs = append(accIDs, id)
	}
	sort.Slice(accIDs, func(i, j int) bool { return accIDs[i] < accIDs[j] })

	dealIDs := make([]uint64, 0, len(s.deals))
	for id := range s.deals {
		dealIDs = append(dealIDs, id)
	}
	sort.Slice(dealIDs, func(i, j int) bool { return dealIDs[i] < dealIDs[j] })

	leaves := make([][32]byte, 0, len(accIDs)+len(dealIDs))
	for _, id := range accIDs {
		leaves = append(leaves, merkle.AccountLeaf(s.accounts[id]))
	}
	for _, id := range dealIDs {
		leaves = append(leaves, merkle.DealLeaf(s.deals[id]))
	}
	return types.Hash(merkle.Build(merkle.SHA256Hash, leaves).Root())
}

// Accounts returns all accounts sorted by id, used by snapshot encoding.
func (s *State) Accounts() []*types.Account {
	ids := make([]uint64, 0, len(s.accounts))
	for id := range s.accounts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]*types.Account, len(ids))
	for i, id := range ids {
		out[i] = s.accounts[id]
	}
	return out
}

// Deals returns all deals sorted by id, used by snapshot encoding.
func (s *State) Deals() []*types.Deal {
	ids := make([]uint64, 0, len(s.deals))
	for id := range s.deals {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]*types.Deal, len(ids))
	for i, id := range ids {
		out[i] = s.deals[id]
	}
	return out
}

// NextAccountID and NextDealID expose the allocation counters for snapshot
// persistence so a restored State resumes numbering correctly.
func (s *State) NextAccountID() uint64 { return s.nextAccountID }
func (s *State) NextDealID() uint64    { return s.nextDealID }

// SetCounters restores the allocation counters (used when loading a
// snapshot).
func (s *State) SetCounters(nextAccountID, nextDealID uint64) {
	s.nextAccountID = nextAccountID
	s.nextDealID = nextDealID
}
