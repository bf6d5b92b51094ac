package sequencer

import (
	"sync"

	"github.com/clearsync/sequencer/types"
)

// DefaultMaxQueueSize is the admission queue's default capacity.
const DefaultMaxQueueSize = 10_000

// queue is a bounded FIFO admission queue, insertion-ordered: a map plus
// an ordered-id slice under one mutex, keyed by the sequencer's
// monotonic uint64 tx ids.
type queue struct {
	mu      sync.Mutex
	maxSize int
	txs     map[uint64]*types.Tx
	order   []uint64
}

func newQueue(maxSize int) *queue {
	return &queue{
		maxSize: maxSize,
		txs:     make(map[uint64]*types.Tx),
	}
}

// push appends tx to the tail. Returns ErrQueueFull if the queue is at
// capacity.
func (q *queue) push(tx *types.Tx) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.order) >= q.maxSize {
		return newErr(ErrQueueFull, "queue at capacity", nil)
	}
	q.txs[tx.ID] = tx
	q.order = append(q.order, tx.ID)
	return nil
}

// popUpTo removes and returns up to n transactions from the head, in
// insertion order.
func (q *queue) popUpTo(n int) []*types.Tx {
	q.mu.Lock()
	defer q.mu.Unlock()
	if n > len(q.order) {
		n = len(q.order)
	}
	out := make([]*types.Tx, 0, n)
	for _, id := range q.order[:n] {
		out = append(out, q.txs[id])
		delete(q.txs, id)
	}
	q.order = q.order[n:]
	return out
}

// size returns the current queue length.
func (q *queue) size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.order)
}
