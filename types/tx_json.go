package types

import (
	"encoding/json"
	"fmt"
)

// txWire is Tx's on-the-wire (and on-disk) shape: Payload is a
// kind-tagged json.RawMessage, decoded into the right payload struct
// once Kind is known.
type txWire struct {
	ID        uint64          `json:"id"`
	From      Address         `json:"from"`
	Nonce     uint64          `json:"nonce"`
	Kind      TxKind          `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
	Signature Signature       `json:"signature"`
}

// MarshalJSON encodes tx with its payload tagged by Kind.
func (tx *Tx) MarshalJSON() ([]byte, error) {
	raw, err := json.Marshal(tx.Payload)
	if err != nil {
		return nil, fmt.Errorf("tx: marshal payload: %w", err)
	}
	return json.Marshal(txWire{
		ID:        tx.ID,
		From:      tx.From,
		Nonce:     tx.Nonce,
		Kind:      tx.Kind,
		Payload:   raw,
		Signature: tx.Signature,
	})
}

// UnmarshalJSON decodes tx, dispatching Payload to the concrete type named
// by Kind.
func (tx *Tx) UnmarshalJSON(data []byte) error {
	var w txWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("tx: %w", err)
	}
	tx.ID = w.ID
	tx.From = w.From
	tx.Nonce = w.Nonce
	tx.Kind = w.Kind
	tx.Signature = w.Signature

	var err error
	switch w.Kind {
	case TxDeposit:
		var p DepositPayload
		err = json.Unmarshal(w.Payload, &p)
		tx.Payload = p
	case TxWithdraw:
		var p WithdrawPayload
		err = json.Unmarshal(w.Payload, &p)
		tx.Payload = p
	case TxCreateDeal:
		var p CreateDealPayload
		err = json.Unmarshal(w.Payload, &p)
		tx.Payload = p
	case TxAcceptDeal:
		var p AcceptDealPayload
		err = json.Unmarshal(w.Payload, &p)
		tx.Payload = p
	case TxCancelDeal:
		var p CancelDealPayload
		err = json.Unmarshal(w.Payload, &p)
		tx.Payload = p
	default:
		return fmt.Errorf("tx: unknown kind %d", w.Kind)
	}
	if err != nil {
		return fmt.Errorf("tx: unmarshal payload for kind %s: %w", w.Kind, err)
	}
	return nil
}
