package bitstream

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// Bits is an ordered sequence of bits, one bit per element (0 or 1).
type Bits []uint8

// Charset selects how text is turned into bytes before bit encoding.
type Charset int

const (
	// Latin1 writes every character as its 8-bit ordinal. Only code points
	// 0-255 can be represented.
	Latin1 Charset = iota
	// UTF8 writes the UTF-8 bytes of the text.
	UTF8
)

var (
	ErrUnsupportedRune = errors.New("character outside the 8-bit range")
	ErrUnknownCharset  = errors.New("unknown charset")
)

func (c Charset) String() string {
	switch c {
	case Latin1:
		return "latin1"
	case UTF8:
		return "utf8"
	default:
		return fmt.Sprintf("charset(%d)", int(c))
	}
}

// FromBytes expands every byte into 8 bits, most significant bit first.
func FromBytes(data []byte) Bits {
	bits := make(Bits, 0, len(data)*8)
	for _, b := range data {
		for i := 7; i >= 0; i-- {
			bits = append(bits, (b>>uint(i))&1)
		}
	}
	return bits
}

// Bytes packs the bits back into bytes. Trailing bits that do not fill a
// whole byte are dropped.
func (b Bits) Bytes() []byte {
	out := make([]byte, len(b)/8)
	for i := range out {
		var v byte
		for _, bit := range b[i*8 : i*8+8] {
			v = v<<1 | bit&1
		}
		out[i] = v
	}
	return out
}

// EncodeText converts text into bits using the given charset.
func EncodeText(text string, cs Charset) (Bits, error) {
	switch cs {
	case Latin1:
		data := make([]byte, 0, len(text))
		for i, r := range text {
			if r > 0xFF {
				return nil, fmt.Errorf("%w: %q at byte %d", ErrUnsupportedRune, r, i)
			}
			data = append(data, byte(r))
		}
		return FromBytes(data), nil
	case UTF8:
		return FromBytes([]byte(text)), nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownCharset, cs)
	}
}

// DecodeText is the inverse of EncodeText. Under UTF8, invalid sequences
// are replaced with utf8.RuneError.
func DecodeText(bits Bits, cs Charset) (string, error) {
	data := bits.Bytes()
	switch cs {
	case Latin1:
		runes := make([]rune, len(data))
		for i, b := range data {
			runes[i] = rune(b)
		}
		return string(runes), nil
	case UTF8:
		if utf8.Valid(data) {
			return string(data), nil
		}
		return string([]rune(string(data))), nil
	default:
		return "", fmt.Errorf("%w: %v", ErrUnknownCharset, cs)
	}
}
