package stf

import (
	"github.com/clearsync/sequencer/types"
)

// init self-registers the five settlement handlers via Register, here
// collapsed into one file instead of several, since there is only one
// domain module here rather than many.
func init() {
	globalRegistry.Register(types.TxDeposit, handleDeposit)
	globalRegistry.Register(types.TxWithdraw, handleWithdraw)
	globalRegistry.Register(types.TxCreateDeal, handleCreateDeal)
	globalRegistry.Register(types.TxAcceptDeal, handleAcceptDeal)
	globalRegistry.Register(types.TxCancelDeal, handleCancelDeal)
}

// handleDeposit credits amount into (asset_id), saturating at u128::MAX.
// The account may or may not already exist.
func handleDeposit(ctx *Context) error {
	p := ctx.Tx.Payload.(types.DepositPayload)
	acc := ctx.State.GetOrCreateAccount(ctx.Tx.From, ctx.Timestamp)
	acc.SetBalance(p.Asset, types.SaturatingAdd(acc.Balance(p.Asset), p.Amount))
	ctx.State.PutAccount(acc)
	return nil
}

// handleWithdraw subtracts amount from the sender's balance.
func handleWithdraw(ctx *Context) error {
	p := ctx.Tx.Payload.(types.WithdrawPayload)
	acc := ctx.State.GetOrCreateAccount(ctx.Tx.From, ctx.Timestamp)
	remaining, ok := types.CheckedSub(acc.Balance(p.Asset), p.Amount)
	if !ok {
		return newErr(ErrBalanceTooLow, "account %s asset %d: have %s need %s",
			ctx.Tx.From, p.Asset, acc.Balance(p.Asset).String(), p.Amount.String())
	}
	acc.SetBalance(p.Asset, remaining)
	ctx.State.PutAccount(acc)
	return nil
}

// handleCreateDeal inserts a new Pending deal. The maker's base asset is
// reserved only in the sense that a later AcceptDeal will re-check the
// balance at settlement time — CreateDeal itself does not debit anything.
func handleCreateDeal(ctx *Context) error {
	p := ctx.Tx.Payload.(types.CreateDealPayload)
	if ctx.State.DealExists(p.DealID) {
		return newErr(ErrDealAlreadyExists, "deal %d already exists", p.DealID)
	}
	d := &types.Deal{
		ID:          p.DealID,
		Maker:       ctx.Tx.From,
		Taker:       p.Taker,
		Visibility:  p.Visibility,
		AssetBase:   p.AssetBase,
		AssetQuote:  p.AssetQuote,
		AmountBase:  p.AmountBase,
		PriceQuote:  p.PriceQuote,
		Status:      types.DealPending,
		CreatedAt:   ctx.Timestamp,
		ExpiresAt:   p.ExpiresAt,
		ExternalRef: p.ExternalRef,
	}
	ctx.State.PutDeal(d)
	return nil
}

// handleAcceptDeal atomically swaps amount_base of base from maker to
// taker against amount_base×price of quote from taker to maker, then marks
// the deal Settled.
func handleAcceptDeal(ctx *Context) error {
	p := ctx.Tx.Payload.(types.AcceptDealPayload)
	d, ok := ctx.State.Deal(p.DealID)
	if !ok {
		return newErr(ErrDealNotFound, "deal %d not found", p.DealID)
	}
	if d.Status != types.DealPending {
		return newErr(ErrDealAlreadyClosed, "deal %d is %s", d.ID, d.Status)
	}
	if d.Expired(ctx.Timestamp) {
		return newErr(ErrDealAlreadyClosed, "deal %d expired at %d", d.ID, *d.ExpiresAt)
	}
	taker := ctx.Tx.From
	if taker == d.Maker {
		return newErr(ErrUnauthorized, "maker cannot accept its own deal %d", d.ID)
	}
	if d.Visibility == types.VisibilityDirect {
		if d.Taker == nil || *d.Taker != taker {
			return newErr(ErrUnauthorized, "deal %d is direct and caller is not the named taker", d.ID)
		}
	}

	amountQuote, ok := types.CheckedMul(d.AmountBase, d.PriceQuote)
	if !ok {
		return newErr(ErrOverflow, "amount_base * price_quote overflows for deal %d", d.ID)
	}

	makerAcc := ctx.State.GetOrCreateAccount(d.Maker, ctx.Timestamp)
	takerAcc := ctx.State.GetOrCreateAccount(taker, ctx.Timestamp)

	makerBase, ok := types.CheckedSub(makerAcc.Balance(d.AssetBase), d.AmountBase)
	if !ok {
		return newErr(ErrBalanceTooLow, "maker %s lacks %s of asset %d", d.Maker, d.AmountBase, d.AssetBase)
	}
	takerQuote, ok := types.CheckedSub(takerAcc.Balance(d.AssetQuote), amountQuote)
	if !ok {
		return newErr(ErrBalanceTooLow, "taker %s lacks %s of asset %d", taker, amountQuote, d.AssetQuote)
	}

	makerAcc.SetBalance(d.AssetBase, makerBase)
	makerAcc.SetBalance(d.AssetQuote, types.SaturatingAdd(makerAcc.Balance(d.AssetQuote), amountQuote))
	takerAcc.SetBalance(d.AssetQuote, takerQuote)
	takerAcc.SetBalance(d.AssetBase, types.SaturatingAdd(takerAcc.Balance(d.AssetBase), d.AmountBase))

	ctx.State.PutAccount(makerAcc)
	ctx.State.PutAccount(takerAcc)

	d.Status = types.DealSettled
	d.Taker = &taker
	ctx.State.PutDeal(d)
	return nil
}

// handleCancelDeal marks a Pending deal Cancelled. Only the maker may
// cancel.
func handleCancelDeal(ctx *Context) error {
	p := ctx.Tx.Payload.(types.CancelDealPayload)
	d, ok := ctx.State.Deal(p.DealID)
	if !ok {
		return newErr(ErrDealNotFound, "deal %d not found", p.DealID)
	}
	if d.Status != types.DealPending {
		return newErr(ErrDealAlreadyClosed, "deal %d is %s", d.ID, d.Status)
	}
	if ctx.Tx.From != d.Maker {
		return newErr(ErrUnauthorized, "only the maker may cancel deal %d", d.ID)
	}
	d.Status = types.DealCancelled
	ctx.State.PutDeal(d)
	return nil
}
