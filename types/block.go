package types

// Block is an ordered batch of transactions plus commitment roots and an
// optional proof envelope, persisted atomically.
type Block struct {
	ID              uint64
	Timestamp       uint64 // seconds
	Transactions    []*Tx
	StateRoot       Hash
	WithdrawalsRoot Hash
	BlockProof      []byte // serialized proof/snark.Envelope, nil if unproven
}

// WithdrawTxs returns the ordered subsequence of withdraw transactions in
// the block, in their original appearance order.
func (b *Block) WithdrawTxs() []*Tx {
	out := make([]*Tx, 0)
	for _, tx := range b.Transactions {
		if tx.Kind == TxWithdraw {
			out = append(out, tx)
		}
	}
	return out
}
