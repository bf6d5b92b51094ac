// Package stf implements the deterministic, side-effect-free state
// transition function: ApplyTx/ApplyBlock. Validation
// (signatures, nonce admission checks, size/address sanity) happens
// upstream in the validation package and is never re-run here — ApplyTx
// trusts that tx.Nonce already equals the account's current nonce and
// simply advances it: validation occurs at queue admission, never
// inside the STF.
package stf

import (
	"fmt"

	"github.com/clearsync/sequencer/state"
	"github.com/clearsync/sequencer/types"
)

// ApplyTx applies one transaction to st, advancing the account's nonce on
// success. It is pure: no I/O, no clock reads beyond timestamp.
func ApplyTx(st *state.State, tx *types.Tx, timestamp uint64) error {
	if err := globalRegistry.Execute(tx.Kind, &Context{State: st, Tx: tx, Timestamp: timestamp}); err != nil {
		return err
	}
	acc := st.GetOrCreateAccount(tx.From, timestamp)
	acc.Nonce++
	st.PutAccount(acc)
	return nil
}

// ApplyBlock applies txs to st in order. A failing transaction aborts the
// whole block and returns its error immediately — all-or-nothing is not
// required at the block level: the caller (sequencer.BuildBlock)
// is responsible for discarding the partially-mutated clone on error.
func ApplyBlock(st *state.State, txs []*types.Tx, timestamp uint64) error {
	for i, tx := range txs {
		if err := ApplyTx(st, tx, timestamp); err != nil {
			return fmt.Errorf("stf: tx at index %d (id=%d): %w", i, tx.ID, err)
		}
	}
	return nil
}
