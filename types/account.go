package types

import "sort"

// AssetID identifies a fungible asset class.
type AssetID uint16

// Account holds one participant's balances and replay-protection nonce.
// Balances is sparse: an asset with no entry is implicitly zero.
type Account struct {
	ID        uint64
	Owner     Address
	Balances  map[AssetID]*Amount
	Nonce     uint64
	CreatedAt uint64
}

// NewAccount creates an empty account owned by addr.
func NewAccount(id uint64, addr Address, createdAt uint64) *Account {
	return &Account{
		ID:        id,
		Owner:     addr,
		Balances:  make(map[AssetID]*Amount),
		CreatedAt: createdAt,
	}
}

// Balance returns the balance of asset, or zero if absent.
func (a *Account) Balance(asset AssetID) *Amount {
	if b, ok := a.Balances[asset]; ok {
		return b
	}
	return ZeroAmount()
}

// SetBalance stores amt for asset, removing the entry if amt is zero to
// keep the sparse-list invariant exact.
func (a *Account) SetBalance(asset AssetID, amt *Amount) {
	if amt == nil || amt.IsZero() {
		delete(a.Balances, asset)
		return
	}
	a.Balances[asset] = amt
}

// SortedAssetIDs returns the account's populated asset ids in ascending
// order, used by the state-leaf encoder for deterministic hashing.
func (a *Account) SortedAssetIDs() []AssetID {
	ids := make([]AssetID, 0, len(a.Balances))
	for id := range a.Balances {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Clone deep-copies the account, including its balance map.
func (a *Account) Clone() *Account {
	cp := &Account{
		ID:        a.ID,
		Owner:     a.Owner,
		Nonce:     a.Nonce,
		CreatedAt: a.CreatedAt,
		Balances:  make(map[AssetID]*Amount, len(a.Balances)),
	}
	for k, v := range a.Balances {
		amt := *v
		cp.Balances[k] = &amt
	}
	return cp
}
