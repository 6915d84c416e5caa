// Package framer packs a file name and its contents into a single text
// token that can travel through the text bit encoding.
//
// A token has the form
//
//	<name>:::<base64(data)>
//	<name>:::zstd:<base64(data)>
//
// where the second form marks data that was zstd-compressed before
// framing. The standard base64 alphabet has no ':' so the marker cannot be
// confused with encoded data.
package framer

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

const (
	Delimiter        = ":::"
	CompressedMarker = "zstd:"
)

var (
	ErrInvalidFrame    = errors.New("invalid file format in hidden data")
	ErrInvalidFilename = errors.New("invalid file name for framing")
)

// Frame is a file carried inside a token.
type Frame struct {
	Name       string
	Data       []byte
	Compressed bool
}

// Wrap frames name and data as an uncompressed token.
func Wrap(name string, data []byte) (string, error) {
	return WrapFrame(Frame{Name: name, Data: data})
}

// WrapFrame frames f. Names that are empty or contain Delimiter are
// rejected, since Unwrap splits on the first delimiter.
func WrapFrame(f Frame) (string, error) {
	if f.Name == "" {
		return "", fmt.Errorf("%w: empty name", ErrInvalidFilename)
	}
	if strings.Contains(f.Name, Delimiter) {
		return "", fmt.Errorf("%w: %q contains %q", ErrInvalidFilename, f.Name, Delimiter)
	}

	var sb strings.Builder
	sb.Grow(len(f.Name) + len(Delimiter) + len(CompressedMarker) + base64.StdEncoding.EncodedLen(len(f.Data)))
	sb.WriteString(f.Name)
	sb.WriteString(Delimiter)
	if f.Compressed {
		sb.WriteString(CompressedMarker)
	}
	sb.WriteString(base64.StdEncoding.EncodeToString(f.Data))
	return sb.String(), nil
}

// Unwrap splits token on the first Delimiter and decodes the data.
func Unwrap(token string) (Frame, error) {
	name, body, ok := strings.Cut(token, Delimiter)
	if !ok {
		return Frame{}, ErrInvalidFrame
	}

	f := Frame{Name: name}
	if rest, ok := strings.CutPrefix(body, CompressedMarker); ok {
		f.Compressed = true
		body = rest
	}

	data, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
	}
	f.Data = data
	return f, nil
}
