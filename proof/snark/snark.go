// Package snark produces a Groth16/BN254 proof over a block's three roots
// (previous state, new state, withdrawals) via consensys/gnark, in the
// fixed-size on-chain envelope format the external verifier consumes. The
// STARK-layer proof is not an input to it.
package snark

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math/big"
	"os"
	"path/filepath"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"

	"github.com/clearsync/sequencer/types"
)

const (
	// EnvelopeVersion is the current on-chain envelope format version.
	EnvelopeVersion uint8 = 3
	// proofSize is the fixed compressed Groth16/BN254 proof size: G1(32) +
	// G2(64) + G1(32) = 128 bytes.
	proofSize = 128
	// publicInputsSize is three 32-byte roots concatenated.
	publicInputsSize = 96
)

// ErrKind enumerates snark failure kinds.
type ErrKind string

const (
	ErrSetup         ErrKind = "setup"
	ErrProve         ErrKind = "prove"
	ErrVerify        ErrKind = "verify"
	ErrSerialization ErrKind = "serialization"
	ErrInternal      ErrKind = "internal"
)

// Error is snark's single error type.
type Error struct {
	Kind  ErrKind
	msg   string
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("snark: %s: %s: %v", e.Kind, e.msg, e.cause)
	}
	return fmt.Sprintf("snark: %s: %s", e.Kind, e.msg)
}

func (e *Error) Unwrap() error { return e.cause }

func newErr(kind ErrKind, msg string, cause error) *Error {
	return &Error{Kind: kind, msg: msg, cause: cause}
}

// Envelope is the versioned, fixed-size proof object published alongside a
// block.
type Envelope struct {
	Version      uint8
	Proof        []byte   // proofSize bytes, compressed Groth16
	PublicInputs [96]byte // three roots concatenated
}

// Bytes encodes the envelope in its bit-exact on-chain layout:
// version(1) ‖ proof(128) ‖ public_inputs(96).
func (e *Envelope) Bytes() ([]byte, error) {
	if len(e.Proof) != proofSize {
		return nil, newErr(ErrSerialization, fmt.Sprintf("proof is %d bytes, want %d", len(e.Proof), proofSize), nil)
	}
	out := make([]byte, 0, 1+proofSize+publicInputsSize)
	out = append(out, e.Version)
	out = append(out, e.Proof...)
	out = append(out, e.PublicInputs[:]...)
	return out, nil
}

// EnvelopeFromBytes decodes the bit-exact on-chain layout back into an
// Envelope.
func EnvelopeFromBytes(b []byte) (*Envelope, error) {
	want := 1 + proofSize + publicInputsSize
	if len(b) != want {
		return nil, newErr(ErrSerialization, fmt.Sprintf("envelope is %d bytes, want %d", len(b), want), nil)
	}
	env := &Envelope{Version: b[0], Proof: append([]byte(nil), b[1:1+proofSize]...)}
	copy(env.PublicInputs[:], b[1+proofSize:])
	return env, nil
}

// Prover holds the compiled circuit and proving/verifying keys, generated
// once and reused across blocks.
type Prover struct {
	ccs constraint.ConstraintSystem
	pk  groth16.ProvingKey
	vk  groth16.VerifyingKey
}

const (
	provingKeyFile   = "proving_key.bin"
	verifyingKeyFile = "verifying_key.bin"
)

// NewProver loads the proving/verifying keys from keyDir, generating and
// persisting them on first use.
// gnark's groth16.Setup draws its randomness from crypto/rand rather than
// exposing a caller-supplied seed, so "deterministic from a fixed seed" is
// honored at the level of "compiled once, persisted, never regenerated
// implicitly" rather than bit-reproducible setup randomness; see
// DESIGN.md.
func NewProver(keyDir string) (*Prover, error) {
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &Circuit{})
	if err != nil {
		return nil, newErr(ErrSetup, "compile circuit", err)
	}

	pkPath := filepath.Join(keyDir, provingKeyFile)
	vkPath := filepath.Join(keyDir, verifyingKeyFile)

	if _, err := os.Stat(pkPath); err == nil {
		return loadProver(ccs, pkPath, vkPath)
	}

	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, newErr(ErrSetup, "groth16 setup", err)
	}
	if err := os.MkdirAll(keyDir, 0o755); err != nil {
		return nil, newErr(ErrInternal, "create key dir", err)
	}
	if err := writeKey(pk, pkPath); err != nil {
		return nil, err
	}
	if err := writeKey(vk, vkPath); err != nil {
		return nil, err
	}
	return &Prover{ccs: ccs, pk: pk, vk: vk}, nil
}

func loadProver(ccs constraint.ConstraintSystem, pkPath, vkPath string) (*Prover, error) {
	pk := groth16.NewProvingKey(ecc.BN254)
	vk := groth16.NewVerifyingKey(ecc.BN254)
	if err := readKey(pk, pkPath); err != nil {
		return nil, err
	}
	if err := readKey(vk, vkPath); err != nil {
		return nil, err
	}
	return &Prover{ccs: ccs, pk: pk, vk: vk}, nil
}

func writeKey(w io.WriterTo, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return newErr(ErrInternal, "create key file", err)
	}
	defer f.Close()
	if _, err := w.WriteTo(f); err != nil {
		return newErr(ErrInternal, "write key", err)
	}
	return nil
}

func readKey(r io.ReaderFrom, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return newErr(ErrInternal, "open key file", err)
	}
	defer f.Close()
	if _, err := r.ReadFrom(f); err != nil {
		return newErr(ErrInternal, "read key", err)
	}
	return nil
}

// Prove wraps the three 32-byte roots in a Groth16 proof and returns the
// published envelope.
func (p *Prover) Prove(prevRoot, newRoot, withdrawalsRoot types.Hash) (*Envelope, error) {
	prevWords := splitWords(prevRoot)
	newWords := splitWords(newRoot)
	withdrawalWords := splitWords(withdrawalsRoot)

	diff := new(big.Int).Sub(wordSum(newWords), wordSum(prevWords))

	assignment := &Circuit{Diff: diff}
	for i := 0; i < 8; i++ {
		assignment.PrevWords[i] = prevWords[i]
		assignment.NewWords[i] = newWords[i]
		assignment.WithdrawalWords[i] = withdrawalWords[i]
	}

	witness, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		return nil, newErr(ErrProve, "build witness", err)
	}
	proof, err := groth16.Prove(p.ccs, p.pk, witness)
	if err != nil {
		return nil, newErr(ErrProve, "groth16 prove", err)
	}

	var buf bytes.Buffer
	if _, err := proof.WriteTo(&buf); err != nil {
		return nil, newErr(ErrSerialization, "serialize proof", err)
	}

	env := &Envelope{Version: EnvelopeVersion, Proof: buf.Bytes()}
	copy(env.PublicInputs[0:32], prevRoot[:])
	copy(env.PublicInputs[32:64], newRoot[:])
	copy(env.PublicInputs[64:96], withdrawalsRoot[:])
	return env, nil
}

// Verify checks a published envelope against this Prover's verifying key.
func (p *Prover) Verify(env *Envelope) (bool, error) {
	if env.Version != EnvelopeVersion {
		return false, newErr(ErrVerify, fmt.Sprintf("unsupported envelope version %d", env.Version), nil)
	}
	proof := groth16.NewProof(ecc.BN254)
	if _, err := proof.ReadFrom(bytes.NewReader(env.Proof)); err != nil {
		return false, newErr(ErrSerialization, "deserialize proof", err)
	}

	prevWords := beWordsAsBigInt(env.PublicInputs[0:32])
	newWords := beWordsAsBigInt(env.PublicInputs[32:64])
	withdrawalWords := beWordsAsBigInt(env.PublicInputs[64:96])

	assignment := &Circuit{}
	for i := 0; i < 8; i++ {
		assignment.PrevWords[i] = prevWords[i]
		assignment.NewWords[i] = newWords[i]
		assignment.WithdrawalWords[i] = withdrawalWords[i]
	}
	witness, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return false, newErr(ErrVerify, "build public witness", err)
	}
	if err := groth16.Verify(proof, p.vk, witness); err != nil {
		return false, nil
	}
	return true, nil
}

// splitWords splits a 32-byte root into eight little-endian 32-bit words,
// each injected as a field element.
func splitWords(root types.Hash) [8]*big.Int {
	var words [8]*big.Int
	for i := 0; i < 8; i++ {
		v := binary.LittleEndian.Uint32(root[i*4 : i*4+4])
		words[i] = new(big.Int).SetUint64(uint64(v))
	}
	return words
}

func wordSum(words [8]*big.Int) *big.Int {
	sum := new(big.Int)
	for _, w := range words {
		sum.Add(sum, w)
	}
	return sum
}

// beWordsAsBigInt re-derives the eight little-endian 32-bit words from a
// 32-byte root slice as big.Ints, for the verify path which starts from
// raw envelope bytes rather than a types.Hash.
func beWordsAsBigInt(root []byte) [8]*big.Int {
	var out [8]*big.Int
	for i := 0; i < 8; i++ {
		v := binary.LittleEndian.Uint32(root[i*4 : i*4+4])
		out[i] = new(big.Int).SetUint64(uint64(v))
	}
	return out
}
