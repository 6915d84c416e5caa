package bitstream

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Protocol decides how the end of the payload is marked inside the carrier.
type Protocol int

const (
	// SentinelProtocol appends Sentinel after the payload. A payload whose
	// own bits contain Sentinel is cut short on extraction.
	SentinelProtocol Protocol = iota
	// LengthPrefixProtocol writes a magic word and the payload byte length
	// ahead of the payload.
	LengthPrefixProtocol
)

const (
	SentinelLen = 16

	// LengthMagic spells "LSBH".
	LengthMagic     uint32 = 0x4C534248
	LengthHeaderLen        = 64
)

// Sentinel is 1111111111111110.
var Sentinel = Bits{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 0}

var (
	ErrNoHiddenData    = errors.New("no hidden data found")
	ErrUnknownProtocol = errors.New("unknown protocol")
	ErrPayloadTooLarge = errors.New("payload too large for length prefix")
)

func (p Protocol) String() string {
	switch p {
	case SentinelProtocol:
		return "sentinel"
	case LengthPrefixProtocol:
		return "length-prefix"
	default:
		return fmt.Sprintf("protocol(%d)", int(p))
	}
}

// Overhead is the number of bits the protocol adds to a payload.
func (p Protocol) Overhead() int {
	if p == LengthPrefixProtocol {
		return LengthHeaderLen
	}
	return SentinelLen
}

// Terminate frames payload for embedding under the given protocol.
func Terminate(payload Bits, p Protocol) (Bits, error) {
	switch p {
	case SentinelProtocol:
		out := make(Bits, 0, len(payload)+SentinelLen)
		out = append(out, payload...)
		return append(out, Sentinel...), nil
	case LengthPrefixProtocol:
		n := len(payload) / 8
		if uint64(n) > uint64(^uint32(0)) {
			return nil, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, n)
		}
		var hdr [8]byte
		binary.BigEndian.PutUint32(hdr[:4], LengthMagic)
		binary.BigEndian.PutUint32(hdr[4:], uint32(n))
		out := make(Bits, 0, LengthHeaderLen+n*8)
		out = append(out, FromBytes(hdr[:])...)
		return append(out, payload[:n*8]...), nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownProtocol, p)
	}
}

// Payload returns the payload bits of an extracted stream.
func Payload(stream Bits, p Protocol) (Bits, error) {
	switch p {
	case SentinelProtocol:
		idx, err := LocateSentinel(stream)
		if err != nil {
			return nil, err
		}
		return stream[:idx], nil
	case LengthPrefixProtocol:
		if len(stream) < LengthHeaderLen {
			return nil, ErrNoHiddenData
		}
		hdr := stream[:LengthHeaderLen].Bytes()
		if binary.BigEndian.Uint32(hdr[:4]) != LengthMagic {
			return nil, ErrNoHiddenData
		}
		n := uint64(binary.BigEndian.Uint32(hdr[4:])) * 8
		if n > uint64(len(stream)-LengthHeaderLen) {
			return nil, fmt.Errorf("%w: header claims %d bits, %d available",
				ErrNoHiddenData, n, len(stream)-LengthHeaderLen)
		}
		return stream[LengthHeaderLen : LengthHeaderLen+int(n)], nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownProtocol, p)
	}
}

// LocateSentinel returns the index of the first occurrence of Sentinel in
// stream.
func LocateSentinel(stream Bits) (int, error) {
	ones := 0
	for i, bit := range stream {
		if bit&1 == 1 {
			ones++
			continue
		}
		if ones >= SentinelLen-1 {
			return i - (SentinelLen - 1), nil
		}
		ones = 0
	}
	return -1, ErrNoHiddenData
}
