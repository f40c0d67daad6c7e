package netsrv

import (
	"context"
	"fmt"

	"github.com/liquify/liquify-engine/internal/engine"
	"github.com/liquify/liquify-engine/internal/fillledger"
	"github.com/liquify/liquify-engine/internal/key"
	"github.com/liquify/liquify-engine/internal/wire"
)

// adminTypes are the message types dispatch refuses without a matching
// AuthToken (spec.md §1's owner-badge model, enforced here rather than in
// internal/engine; see engine.ErrAdminRequired's doc comment).
var adminTypes = map[wire.MessageType]bool{
	wire.MsgSetComponentStatus:    true,
	wire.MsgSetDecimalParam:       true,
	wire.MsgSetStringParam:       true,
	wire.MsgCollectPlatformFees:  true,
}

// dispatch decodes req's body per its message type, calls the matching
// engine.Engine method, and encodes a response frame. It never panics on a
// malformed body; decode errors become MsgError responses like any other
// engine error. authenticated reflects whether this connection has already
// presented a valid MsgAuthenticate token (tracked per-connection by the
// caller, not per-frame).
func dispatch(ctx context.Context, eng *engine.Engine, req wire.Frame, authenticated bool) wire.Frame {
	if adminTypes[req.Header.Type] && !authenticated {
		return errorReply(req, engine.ErrAdminRequired)
	}

	switch req.Header.Type {
	case wire.MsgAddLiquidity:
		r, err := wire.DecodeAddLiquidityRequest(req.Body)
		if err != nil {
			return errorReply(req, err)
		}
		id, err := eng.AddLiquidity(
			engine.Deposit{Resource: r.Resource, Amount: r.Amount},
			r.Discount, r.AutoUnstake, r.AutoRefill, r.RefillThreshold,
		)
		if err != nil {
			return errorReply(req, err)
		}
		return wire.Reply(req, wire.MsgUint64, wire.EncodeUint64(id))

	case wire.MsgIncreaseLiquidity:
		r, err := wire.DecodeIncreaseLiquidityRequest(req.Body)
		if err != nil {
			return errorReply(req, err)
		}
		if err := eng.IncreaseLiquidity(r.ID, engine.Deposit{Resource: r.Resource, Amount: r.Amount}); err != nil {
			return errorReply(req, err)
		}
		return wire.Reply(req, wire.MsgOK, nil)

	case wire.MsgUpdateAutomation:
		r, err := wire.DecodeUpdateAutomationRequest(req.Body)
		if err != nil {
			return errorReply(req, err)
		}
		if err := eng.UpdateAutomation(r.ID, r.AutoRefill, r.RefillThreshold); err != nil {
			return errorReply(req, err)
		}
		return wire.Reply(req, wire.MsgOK, nil)

	case wire.MsgRemoveLiquidity:
		r, err := wire.DecodeIDListRequest(req.Body)
		if err != nil {
			return errorReply(req, err)
		}
		total, err := eng.RemoveLiquidity(r.IDs)
		if err != nil {
			return errorReply(req, err)
		}
		return wire.Reply(req, wire.MsgAmount, wire.EncodeAmount(total))

	case wire.MsgCycleLiquidity:
		r, err := wire.DecodeIDRequest(req.Body)
		if err != nil {
			return errorReply(req, err)
		}
		remainder, err := eng.CycleLiquidity(ctx, r.ID)
		if err != nil {
			return errorReply(req, err)
		}
		return wire.Reply(req, wire.MsgAmount, wire.EncodeAmount(remainder))

	case wire.MsgUnstake:
		r, err := wire.DecodeUnstakeRequest(req.Body)
		if err != nil {
			return errorReply(req, err)
		}
		res, err := eng.Unstake(ctx, engine.Deposit{Resource: r.Resource, Amount: r.Amount}, r.MaxIterations)
		if err != nil {
			return errorReply(req, err)
		}
		return wire.Reply(req, wire.MsgMatchResult, wire.MatchResultResponse{BasePaid: res.BasePaid, LSURemain: res.LSURemain}.Encode())

	case wire.MsgUnstakeOffLedger:
		r, err := wire.DecodeUnstakeOffLedgerRequest(req.Body)
		if err != nil {
			return errorReply(req, err)
		}
		keys := make([]key.Packed, len(r.Keys))
		for i, k := range r.Keys {
			keys[i] = key.Pack(k.Dunits, k.Epoch, k.ID)
		}
		res, err := eng.UnstakeOffLedger(ctx, engine.Deposit{Resource: r.Resource, Amount: r.Amount}, keys)
		if err != nil {
			return errorReply(req, err)
		}
		return wire.Reply(req, wire.MsgMatchResult, wire.MatchResultResponse{BasePaid: res.BasePaid, LSURemain: res.LSURemain}.Encode())

	case wire.MsgCollectFills:
		r, err := wire.DecodeIDListRequest(req.Body)
		if err != nil {
			return errorReply(req, err)
		}
		fills, err := eng.CollectFills(r.IDs, r.MaxFills)
		if err != nil {
			return errorReply(req, err)
		}
		return wire.Reply(req, wire.MsgFills, wire.EncodeFills(toWireFills(fills)))

	case wire.MsgBurnClosedReceipts:
		r, err := wire.DecodeIDListRequest(req.Body)
		if err != nil {
			return errorReply(req, err)
		}
		closed, err := eng.BurnClosedReceipts(r.IDs)
		if err != nil {
			return errorReply(req, err)
		}
		return wire.Reply(req, wire.MsgIDList, wire.EncodeIDList(closed))

	case wire.MsgGetClaimableXRD:
		r, err := wire.DecodeIDRequest(req.Body)
		if err != nil {
			return errorReply(req, err)
		}
		amt, err := eng.GetClaimableXRD(ctx, r.ID)
		if err != nil {
			return errorReply(req, err)
		}
		return wire.Reply(req, wire.MsgAmount, wire.EncodeAmount(amt))

	case wire.MsgGetLiquidityData:
		r, err := wire.DecodeIDRequest(req.Body)
		if err != nil {
			return errorReply(req, err)
		}
		body, err := eng.GetLiquidityData(r.ID)
		if err != nil {
			return errorReply(req, err)
		}
		resp := wire.LiquidityDataResponse{
			Available:      body.Available,
			Filled:         body.Filled,
			FillsToCollect: body.FillsToCollect,
			LastAddedEpoch: body.LastAddedEpoch,
		}
		return wire.Reply(req, wire.MsgLiquidityData, resp.Encode())

	case wire.MsgGetBookDepth:
		r, err := wire.DecodeAmount(req.Body)
		if err != nil {
			return errorReply(req, err)
		}
		depth, err := eng.GetBookDepth(r)
		if err != nil {
			return errorReply(req, err)
		}
		return wire.Reply(req, wire.MsgAmount, wire.EncodeAmount(depth))

	case wire.MsgSetComponentStatus:
		r, err := wire.DecodeSetComponentStatusRequest(req.Body)
		if err != nil {
			return errorReply(req, err)
		}
		eng.SetComponentStatus(r.Status)
		return wire.Reply(req, wire.MsgOK, nil)

	case wire.MsgSetDecimalParam:
		r, err := wire.DecodeSetDecimalParamRequest(req.Body)
		if err != nil {
			return errorReply(req, err)
		}
		if err := applyDecimalParam(eng, r); err != nil {
			return errorReply(req, err)
		}
		return wire.Reply(req, wire.MsgOK, nil)

	case wire.MsgSetStringParam:
		r, err := wire.DecodeSetStringParamRequest(req.Body)
		if err != nil {
			return errorReply(req, err)
		}
		if r.Param != wire.ParamReceiptImageURL {
			return errorReply(req, fmt.Errorf("netsrv: unsupported string param %d", r.Param))
		}
		eng.SetReceiptImageURL(r.Value)
		return wire.Reply(req, wire.MsgOK, nil)

	case wire.MsgCollectPlatformFees:
		amt := eng.CollectPlatformFees()
		return wire.Reply(req, wire.MsgAmount, wire.EncodeAmount(amt))

	default:
		// MsgAuthenticate is handled by the connection loop before reaching
		// here, not by this switch; anything else unrecognised is a
		// protocol error.
		return errorReply(req, fmt.Errorf("%w: %d", wire.ErrUnknownMessageType, req.Header.Type))
	}
}

func applyDecimalParam(eng *engine.Engine, r wire.SetDecimalParamRequest) error {
	switch r.Param {
	case wire.ParamPlatformFee:
		eng.SetPlatformFee(r.Value)
	case wire.ParamCycleFee:
		eng.SetCycleFee(r.Value)
	case wire.ParamMinLiquidity:
		eng.SetMinLiquidity(r.Value)
	case wire.ParamMinRefillThreshold:
		eng.SetMinRefillThreshold(r.Value)
	case wire.ParamSmallOrderThreshold:
		eng.SetSmallOrderThreshold(r.Value)
	default:
		return fmt.Errorf("netsrv: unsupported decimal param %d", r.Param)
	}
	return nil
}

func toWireFills(fills []fillledger.Fill) []wire.FillResponse {
	out := make([]wire.FillResponse, len(fills))
	for i, f := range fills {
		out[i] = wire.FillResponse{
			Kind:      uint8(f.Kind),
			Resource:  f.Resource,
			Amount:    f.Amount,
			ReceiptID: f.ReceiptID,
		}
	}
	return out
}

func errorReply(req wire.Frame, err error) wire.Frame {
	return wire.Reply(req, wire.MsgError, wire.EncodeError(err))
}
