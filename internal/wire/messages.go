package wire

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Frame is a fully decoded request or response: its type tag, correlation
// id, and raw body, ready for a per-type Decode call.
type Frame struct {
	Header Header
	Body   []byte
}

// NewFrame builds a Frame from an encoded body, minting a fresh correlation
// id (teacher's messages.go tags each NewOrderMessage with a UUID; requests
// here reuse that idiom for request/response matching over one connection).
func NewFrame(t MessageType, body []byte) Frame {
	return Frame{Header: Header{Type: t, RequestID: uuid.New(), BodyLen: uint32(len(body))}, Body: body}
}

// Reply builds a response Frame correlated to req's RequestID.
func Reply(req Frame, t MessageType, body []byte) Frame {
	return Frame{Header: Header{Type: t, RequestID: req.Header.RequestID, BodyLen: uint32(len(body))}, Body: body}
}

// Bytes serialises f as a wire-ready buffer.
func (f Frame) Bytes() []byte { return EncodeHeader(f.Header, f.Body) }

// --- AddLiquidity -----------------------------------------------------------

type AddLiquidityRequest struct {
	Resource        string
	Amount          decimal.Decimal
	Discount        decimal.Decimal
	AutoUnstake     bool
	AutoRefill      bool
	RefillThreshold decimal.Decimal
}

func (r AddLiquidityRequest) Encode() []byte {
	var e encoder
	e.str(r.Resource)
	e.decimal(r.Amount)
	e.decimal(r.Discount)
	e.bool(r.AutoUnstake)
	e.bool(r.AutoRefill)
	e.decimal(r.RefillThreshold)
	return e.bytes()
}

func DecodeAddLiquidityRequest(body []byte) (AddLiquidityRequest, error) {
	d := newDecoder(body)
	var r AddLiquidityRequest
	var err error
	if r.Resource, err = d.str(); err != nil {
		return r, err
	}
	if r.Amount, err = d.decimalField(); err != nil {
		return r, err
	}
	if r.Discount, err = d.decimalField(); err != nil {
		return r, err
	}
	if r.AutoUnstake, err = d.boolean(); err != nil {
		return r, err
	}
	if r.AutoRefill, err = d.boolean(); err != nil {
		return r, err
	}
	if r.RefillThreshold, err = d.decimalField(); err != nil {
		return r, err
	}
	return r, nil
}

// --- IncreaseLiquidity -------------------------------------------------------

type IncreaseLiquidityRequest struct {
	ID       uint64
	Resource string
	Amount   decimal.Decimal
}

func (r IncreaseLiquidityRequest) Encode() []byte {
	var e encoder
	e.uint64(r.ID)
	e.str(r.Resource)
	e.decimal(r.Amount)
	return e.bytes()
}

func DecodeIncreaseLiquidityRequest(body []byte) (IncreaseLiquidityRequest, error) {
	d := newDecoder(body)
	var r IncreaseLiquidityRequest
	var err error
	if r.ID, err = d.uint64(); err != nil {
		return r, err
	}
	if r.Resource, err = d.str(); err != nil {
		return r, err
	}
	if r.Amount, err = d.decimalField(); err != nil {
		return r, err
	}
	return r, nil
}

// --- UpdateAutomation ---------------------------------------------------------

type UpdateAutomationRequest struct {
	ID              uint64
	AutoRefill      bool
	RefillThreshold decimal.Decimal
}

func (r UpdateAutomationRequest) Encode() []byte {
	var e encoder
	e.uint64(r.ID)
	e.bool(r.AutoRefill)
	e.decimal(r.RefillThreshold)
	return e.bytes()
}

func DecodeUpdateAutomationRequest(body []byte) (UpdateAutomationRequest, error) {
	d := newDecoder(body)
	var r UpdateAutomationRequest
	var err error
	if r.ID, err = d.uint64(); err != nil {
		return r, err
	}
	if r.AutoRefill, err = d.boolean(); err != nil {
		return r, err
	}
	if r.RefillThreshold, err = d.decimalField(); err != nil {
		return r, err
	}
	return r, nil
}

// --- RemoveLiquidity / CollectFills / BurnClosedReceipts (bucket ops) -------

// IDListRequest carries a bucket of receipt ids, shared by RemoveLiquidity,
// BurnClosedReceipts, and (with MaxFills) CollectFills.
type IDListRequest struct {
	IDs      []uint64
	MaxFills uint64 // only meaningful for CollectFills
}

func (r IDListRequest) Encode() []byte {
	var e encoder
	e.u64slice(r.IDs)
	e.uint64(r.MaxFills)
	return e.bytes()
}

func DecodeIDListRequest(body []byte) (IDListRequest, error) {
	d := newDecoder(body)
	var r IDListRequest
	var err error
	if r.IDs, err = d.u64slice(); err != nil {
		return r, err
	}
	if r.MaxFills, err = d.uint64(); err != nil {
		return r, err
	}
	return r, nil
}

// --- CycleLiquidity / GetClaimableXRD / GetLiquidityData (single id) -------

type IDRequest struct {
	ID uint64
}

func (r IDRequest) Encode() []byte {
	var e encoder
	e.uint64(r.ID)
	return e.bytes()
}

func DecodeIDRequest(body []byte) (IDRequest, error) {
	d := newDecoder(body)
	var r IDRequest
	var err error
	if r.ID, err = d.uint64(); err != nil {
		return r, err
	}
	return r, nil
}

// --- Unstake / UnstakeOffLedger ---------------------------------------------

type UnstakeRequest struct {
	Resource      string
	Amount        decimal.Decimal
	MaxIterations uint8
}

func (r UnstakeRequest) Encode() []byte {
	var e encoder
	e.str(r.Resource)
	e.decimal(r.Amount)
	e.uint8(r.MaxIterations)
	return e.bytes()
}

func DecodeUnstakeRequest(body []byte) (UnstakeRequest, error) {
	d := newDecoder(body)
	var r UnstakeRequest
	var err error
	if r.Resource, err = d.str(); err != nil {
		return r, err
	}
	if r.Amount, err = d.decimalField(); err != nil {
		return r, err
	}
	if r.MaxIterations, err = d.uint8(); err != nil {
		return r, err
	}
	return r, nil
}

// CandidateKey is the (dunits, epoch, id) triple an off-ledger index hands
// back for a book entry it observed; the server reconstructs the actual
// 128-bit key.Packed value via key.Pack rather than trusting a raw packed
// integer off the wire.
type CandidateKey struct {
	Dunits uint32
	Epoch  uint32
	ID     uint64
}

type UnstakeOffLedgerRequest struct {
	Resource string
	Amount   decimal.Decimal
	Keys     []CandidateKey
}

func (r UnstakeOffLedgerRequest) Encode() []byte {
	var e encoder
	e.str(r.Resource)
	e.decimal(r.Amount)
	e.uint32(uint32(len(r.Keys)))
	for _, k := range r.Keys {
		e.uint32(k.Dunits)
		e.uint32(k.Epoch)
		e.uint64(k.ID)
	}
	return e.bytes()
}

func DecodeUnstakeOffLedgerRequest(body []byte) (UnstakeOffLedgerRequest, error) {
	d := newDecoder(body)
	var r UnstakeOffLedgerRequest
	var err error
	if r.Resource, err = d.str(); err != nil {
		return r, err
	}
	if r.Amount, err = d.decimalField(); err != nil {
		return r, err
	}
	n, err := d.uint32()
	if err != nil {
		return r, err
	}
	r.Keys = make([]CandidateKey, 0, n)
	for i := uint32(0); i < n; i++ {
		var k CandidateKey
		if k.Dunits, err = d.uint32(); err != nil {
			return r, err
		}
		if k.Epoch, err = d.uint32(); err != nil {
			return r, err
		}
		if k.ID, err = d.uint64(); err != nil {
			return r, err
		}
		r.Keys = append(r.Keys, k)
	}
	return r, nil
}

// --- Admin setters -----------------------------------------------------------

type SetComponentStatusRequest struct {
	Status bool
}

func (r SetComponentStatusRequest) Encode() []byte {
	var e encoder
	e.bool(r.Status)
	return e.bytes()
}

func DecodeSetComponentStatusRequest(body []byte) (SetComponentStatusRequest, error) {
	d := newDecoder(body)
	var r SetComponentStatusRequest
	var err error
	if r.Status, err = d.boolean(); err != nil {
		return r, err
	}
	return r, nil
}

// SetDecimalParamRequest covers PlatformFee/CycleFee/MinLiquidity/
// MinRefillThreshold/SmallOrderThreshold — one frame shape for the whole
// family instead of five near-identical ones.
type SetDecimalParamRequest struct {
	Param ParamKind
	Value decimal.Decimal
}

func (r SetDecimalParamRequest) Encode() []byte {
	var e encoder
	e.uint8(uint8(r.Param))
	e.decimal(r.Value)
	return e.bytes()
}

func DecodeSetDecimalParamRequest(body []byte) (SetDecimalParamRequest, error) {
	d := newDecoder(body)
	var r SetDecimalParamRequest
	var err error
	var kind uint8
	if kind, err = d.uint8(); err != nil {
		return r, err
	}
	r.Param = ParamKind(kind)
	if r.Value, err = d.decimalField(); err != nil {
		return r, err
	}
	return r, nil
}

type SetStringParamRequest struct {
	Param ParamKind
	Value string
}

func (r SetStringParamRequest) Encode() []byte {
	var e encoder
	e.uint8(uint8(r.Param))
	e.str(r.Value)
	return e.bytes()
}

func DecodeSetStringParamRequest(body []byte) (SetStringParamRequest, error) {
	d := newDecoder(body)
	var r SetStringParamRequest
	var err error
	var kind uint8
	if kind, err = d.uint8(); err != nil {
		return r, err
	}
	r.Param = ParamKind(kind)
	if r.Value, err = d.str(); err != nil {
		return r, err
	}
	return r, nil
}

// --- Authenticate ------------------------------------------------------------

// AuthenticateRequest carries the owner-badge stand-in token a connection
// presents once, up front, to unlock admin message types for its lifetime
// (spec.md §1 treats owner-badge auth as external; this is netsrv's
// in-process substitute).
type AuthenticateRequest struct {
	Token string
}

func (r AuthenticateRequest) Encode() []byte {
	var e encoder
	e.str(r.Token)
	return e.bytes()
}

func DecodeAuthenticateRequest(body []byte) (AuthenticateRequest, error) {
	d := newDecoder(body)
	var r AuthenticateRequest
	var err error
	if r.Token, err = d.str(); err != nil {
		return r, err
	}
	return r, nil
}

// --- Responses ---------------------------------------------------------------

func EncodeError(err error) []byte {
	var e encoder
	e.str(err.Error())
	return e.bytes()
}

func DecodeError(body []byte) (string, error) {
	d := newDecoder(body)
	return d.str()
}

func EncodeUint64(v uint64) []byte {
	var e encoder
	e.uint64(v)
	return e.bytes()
}

func DecodeUint64(body []byte) (uint64, error) {
	d := newDecoder(body)
	return d.uint64()
}

func EncodeAmount(v decimal.Decimal) []byte {
	var e encoder
	e.decimal(v)
	return e.bytes()
}

func DecodeAmount(body []byte) (decimal.Decimal, error) {
	d := newDecoder(body)
	return d.decimalField()
}

// LiquidityDataResponse mirrors internal/store.Body over the wire.
type LiquidityDataResponse struct {
	Available      decimal.Decimal
	Filled         decimal.Decimal
	FillsToCollect uint64
	LastAddedEpoch uint32
}

func (r LiquidityDataResponse) Encode() []byte {
	var e encoder
	e.decimal(r.Available)
	e.decimal(r.Filled)
	e.uint64(r.FillsToCollect)
	e.uint32(r.LastAddedEpoch)
	return e.bytes()
}

func DecodeLiquidityDataResponse(body []byte) (LiquidityDataResponse, error) {
	d := newDecoder(body)
	var r LiquidityDataResponse
	var err error
	if r.Available, err = d.decimalField(); err != nil {
		return r, err
	}
	if r.Filled, err = d.decimalField(); err != nil {
		return r, err
	}
	if r.FillsToCollect, err = d.uint64(); err != nil {
		return r, err
	}
	if r.LastAddedEpoch, err = d.uint32(); err != nil {
		return r, err
	}
	return r, nil
}

// MatchResultResponse mirrors internal/engine.MatchResult.
type MatchResultResponse struct {
	BasePaid  decimal.Decimal
	LSURemain decimal.Decimal
}

func (r MatchResultResponse) Encode() []byte {
	var e encoder
	e.decimal(r.BasePaid)
	e.decimal(r.LSURemain)
	return e.bytes()
}

func DecodeMatchResultResponse(body []byte) (MatchResultResponse, error) {
	d := newDecoder(body)
	var r MatchResultResponse
	var err error
	if r.BasePaid, err = d.decimalField(); err != nil {
		return r, err
	}
	if r.LSURemain, err = d.decimalField(); err != nil {
		return r, err
	}
	return r, nil
}

// FillResponse mirrors internal/fillledger.Fill for one collected fill.
type FillResponse struct {
	Kind      uint8
	Resource  string
	Amount    decimal.Decimal
	ReceiptID uint64
}

func EncodeFills(fills []FillResponse) []byte {
	var e encoder
	e.uint32(uint32(len(fills)))
	for _, f := range fills {
		e.uint8(f.Kind)
		e.str(f.Resource)
		e.decimal(f.Amount)
		e.uint64(f.ReceiptID)
	}
	return e.bytes()
}

func DecodeFills(body []byte) ([]FillResponse, error) {
	d := newDecoder(body)
	n, err := d.uint32()
	if err != nil {
		return nil, err
	}
	out := make([]FillResponse, 0, n)
	for i := uint32(0); i < n; i++ {
		var f FillResponse
		if f.Kind, err = d.uint8(); err != nil {
			return nil, err
		}
		if f.Resource, err = d.str(); err != nil {
			return nil, err
		}
		if f.Amount, err = d.decimalField(); err != nil {
			return nil, err
		}
		if f.ReceiptID, err = d.uint64(); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func EncodeIDList(ids []uint64) []byte {
	var e encoder
	e.u64slice(ids)
	return e.bytes()
}

func DecodeIDList(body []byte) ([]uint64, error) {
	d := newDecoder(body)
	return d.u64slice()
}

// errBodyTooLarge guards against a malicious/corrupt BodyLen claiming far
// more than any real request would ever carry (teacher's messages.go has no
// analogue since its messages are fixed-size; this protocol's variable
// trailers need the check before allocating a read buffer).
var errBodyTooLarge = fmt.Errorf("wire: body exceeds maximum frame size")

// MaxBodyLen bounds a single frame's body (16 MiB is far beyond any bucket
// of receipt ids or fill list this engine would ever produce).
const MaxBodyLen = 16 << 20

// CheckBodyLen validates a decoded header's claimed length before the
// caller reads that many bytes off the connection.
func CheckBodyLen(n uint32) error {
	if n > MaxBodyLen {
		return errBodyTooLarge
	}
	return nil
}
