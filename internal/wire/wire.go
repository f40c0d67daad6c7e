// Package wire implements the binary request/response framing the daemon
// speaks over TCP, grounded on the teacher's internal/net/messages.go
// (2-byte type tag, BigEndian fixed fields, explicit length-prefixed
// variable fields) generalised to this domain's decimal amounts and
// variable-length key lists.
//
// Every frame is: [2-byte MessageType][16-byte UUID correlation id][4-byte
// body length][body]. Decimal amounts and strings are length-prefixed
// (4-byte big-endian length + UTF-8 bytes); there is no native fixed-point wire type,
// so amounts travel as their canonical decimal string form.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrShortFrame is returned when a buffer ends before a length-prefixed
// field or fixed header is fully present.
var ErrShortFrame = errors.New("wire: frame too short")

// ErrUnknownMessageType is returned when a frame's type tag is not
// recognised by this version of the protocol.
var ErrUnknownMessageType = errors.New("wire: unknown message type")

// MessageType tags a request or response frame's payload shape.
type MessageType uint16

const (
	_ MessageType = iota

	MsgAddLiquidity
	MsgIncreaseLiquidity
	MsgUpdateAutomation
	MsgRemoveLiquidity
	MsgCycleLiquidity
	MsgUnstake
	MsgUnstakeOffLedger
	MsgCollectFills
	MsgBurnClosedReceipts
	MsgGetClaimableXRD
	MsgGetLiquidityData
	MsgGetBookDepth
	MsgSetComponentStatus
	MsgSetDecimalParam
	MsgSetStringParam
	MsgCollectPlatformFees
	MsgAuthenticate

	MsgOK
	MsgError
	MsgUint64
	MsgAmount
	MsgLiquidityData
	MsgMatchResult
	MsgFills
	MsgIDList
)

// ParamKind selects which admin parameter a SetDecimalParam/SetStringParam
// frame targets (spec.md §4.8's setter family, generalised onto two frame
// shapes instead of one per parameter).
type ParamKind uint8

const (
	ParamPlatformFee ParamKind = iota
	ParamCycleFee
	ParamMinLiquidity
	ParamMinRefillThreshold
	ParamSmallOrderThreshold
	ParamReceiptImageURL
)

// Header is the fixed 22-byte frame prefix: type tag, correlation id, body
// length.
type Header struct {
	Type      MessageType
	RequestID uuid.UUID
	BodyLen   uint32
}

const headerLen = 2 + 16 + 4

// EncodeHeader writes h's fixed fields; body must already be sized.
func EncodeHeader(h Header, body []byte) []byte {
	buf := make([]byte, headerLen+len(body))
	binary.BigEndian.PutUint16(buf[0:2], uint16(h.Type))
	copy(buf[2:18], h.RequestID[:])
	binary.BigEndian.PutUint32(buf[18:22], uint32(len(body)))
	copy(buf[22:], body)
	return buf
}

// DecodeHeader reads the fixed prefix and returns it along with the
// remaining, unconsumed buffer tail (which may be shorter than BodyLen if
// the caller hasn't read the rest of the frame off the wire yet).
func DecodeHeader(buf []byte) (Header, []byte, error) {
	if len(buf) < headerLen {
		return Header{}, nil, ErrShortFrame
	}
	var h Header
	h.Type = MessageType(binary.BigEndian.Uint16(buf[0:2]))
	copy(h.RequestID[:], buf[2:18])
	h.BodyLen = binary.BigEndian.Uint32(buf[18:22])
	return h, buf[headerLen:], nil
}

// --- primitive field encoders/decoders --------------------------------------

type encoder struct {
	buf []byte
}

func (e *encoder) uint8(v uint8)   { e.buf = append(e.buf, v) }
func (e *encoder) bool(v bool) {
	if v {
		e.uint8(1)
	} else {
		e.uint8(0)
	}
}
func (e *encoder) uint32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	e.buf = append(e.buf, b[:]...)
}
func (e *encoder) uint64(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	e.buf = append(e.buf, b[:]...)
}
func (e *encoder) str(s string) {
	e.uint32(uint32(len(s)))
	e.buf = append(e.buf, s...)
}
func (e *encoder) decimal(d decimal.Decimal) { e.str(d.String()) }
func (e *encoder) u64slice(vs []uint64) {
	e.uint32(uint32(len(vs)))
	for _, v := range vs {
		e.uint64(v)
	}
}
func (e *encoder) bytes() []byte { return e.buf }

type decoder struct {
	buf []byte
	off int
}

func newDecoder(buf []byte) *decoder { return &decoder{buf: buf} }

func (d *decoder) need(n int) error {
	if d.off+n > len(d.buf) {
		return ErrShortFrame
	}
	return nil
}

func (d *decoder) uint8() (uint8, error) {
	if err := d.need(1); err != nil {
		return 0, err
	}
	v := d.buf[d.off]
	d.off++
	return v, nil
}

func (d *decoder) boolean() (bool, error) {
	v, err := d.uint8()
	return v != 0, err
}

func (d *decoder) uint32() (uint32, error) {
	if err := d.need(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(d.buf[d.off : d.off+4])
	d.off += 4
	return v, nil
}

func (d *decoder) uint64() (uint64, error) {
	if err := d.need(8); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint64(d.buf[d.off : d.off+8])
	d.off += 8
	return v, nil
}

func (d *decoder) str() (string, error) {
	n, err := d.uint32()
	if err != nil {
		return "", err
	}
	if err := d.need(int(n)); err != nil {
		return "", err
	}
	s := string(d.buf[d.off : d.off+int(n)])
	d.off += int(n)
	return s, nil
}

func (d *decoder) decimalField() (decimal.Decimal, error) {
	s, err := d.str()
	if err != nil {
		return decimal.Decimal{}, err
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("wire: malformed decimal %q: %w", s, err)
	}
	return v, nil
}

func (d *decoder) u64slice() ([]uint64, error) {
	n, err := d.uint32()
	if err != nil {
		return nil, err
	}
	out := make([]uint64, 0, n)
	for i := uint32(0); i < n; i++ {
		v, err := d.uint64()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
