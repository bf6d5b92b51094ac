package wire

import (
	"encoding/json"
	"fmt"

	"github.com/clearsync/sequencer/sequencer"
	"github.com/clearsync/sequencer/storage"
	"github.com/clearsync/sequencer/types"
)

// Handler holds every dependency needed to serve wire methods: the
// sequencer for live queries and submission, storage for historical block
// lookups the sequencer itself doesn't cache.
type Handler struct {
	seq   *sequencer.Sequencer
	store *storage.Store
}

// NewHandler creates a wire Handler.
func NewHandler(seq *sequencer.Sequencer, store *storage.Store) *Handler {
	return &Handler{seq: seq, store: store}
}

// Dispatch routes an RPC request to the correct method.
func (h *Handler) Dispatch(req Request) Response {
	switch req.Method {
	case "getBlockHeight":
		return okResponse(req.ID, h.seq.CurrentBlockID()-1)
	case "getBlock":
		return h.getBlock(req)
	case "getAccount":
		return h.getAccount(req)
	case "getDeal":
		return h.getDeal(req)
	case "getAllDeals":
		return h.getAllDeals(req)
	case "submitTx":
		return h.submitTx(req)
	default:
		return errResponse(req.ID, CodeMethodNotFound, fmt.Sprintf("unknown method %q", req.Method))
	}
}

type getBlockParams struct {
	ID uint64 `json:"id"`
}

func (h *Handler) getBlock(req Request) Response {
	var p getBlockParams
	if err := json.Unmarshal(req.Params, &p); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	block, err := h.store.GetBlock(p.ID)
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	return okResponse(req.ID, block)
}

type getAccountParams struct {
	Address types.Address `json:"address"`
}

func (h *Handler) getAccount(req Request) Response {
	var p getAccountParams
	if err := json.Unmarshal(req.Params, &p); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	acc, ok := h.seq.Account(p.Address)
	if !ok {
		return errResponse(req.ID, CodeInternalError, "account not found")
	}
	return okResponse(req.ID, acc)
}

type getDealParams struct {
	ID uint64 `json:"id"`
}

func (h *Handler) getDeal(req Request) Response {
	var p getDealParams
	if err := json.Unmarshal(req.Params, &p); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	d, ok := h.seq.Deal(p.ID)
	if !ok {
		return errResponse(req.ID, CodeInternalError, "deal not found")
	}
	return okResponse(req.ID, d)
}

func (h *Handler) getAllDeals(req Request) Response {
	deals, err := h.store.GetAllDeals()
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	return okResponse(req.ID, deals)
}

func (h *Handler) submitTx(req Request) Response {
	var tx types.Tx
	if err := json.Unmarshal(req.Params, &tx); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	if err := h.seq.Submit(&tx); err != nil {
		return errResponse(req.ID, CodeRejected, err.Error())
	}
	return okResponse(req.ID, map[string]uint64{"tx_id": tx.ID})
}
