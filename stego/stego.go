package stego

import (
	"fmt"
	"image"
	"unicode/utf8"

	"github.com/JustinTimperio/lsbhide/bitstream"
	"github.com/JustinTimperio/lsbhide/common"
	"github.com/JustinTimperio/lsbhide/encryption"
	"github.com/JustinTimperio/lsbhide/framer"
)

// Errors surfaced by the pipelines, re-exported from the packages that
// produce them.
var (
	ErrNoHiddenData = bitstream.ErrNoHiddenData
	ErrEncryption   = encryption.ErrEncryption
	ErrDecryption   = encryption.ErrDecryption
	ErrInvalidFrame = framer.ErrInvalidFrame
)

// Options controls a single hide or reveal call. The zero value gives the
// classic image format: Latin-1 text, sentinel termination, no
// encryption.
type Options struct {
	// Password enables encryption when non-empty.
	Password string
	// KDF picks the key derivation for new tokens. Reveal reads it from
	// the token.
	KDF      encryption.KDF
	Charset  bitstream.Charset
	Protocol bitstream.Protocol
	// Compress zstd-compresses file contents before they are framed.
	// Ignored for text.
	Compress bool
}

// Overhead is the number of carrier bits the termination takes.
func (o Options) Overhead() int {
	return o.Protocol.Overhead()
}

// HideMessage embeds message in a normalised copy of img.
func HideMessage(img image.Image, message string, opts Options) (*image.NRGBA, error) {
	text := message
	if opts.Password != "" {
		tok, err := encryption.Encrypt([]byte(message), opts.Password, opts.KDF)
		if err != nil {
			return nil, err
		}
		text = tok
	}
	return embedText(img, text, opts)
}

// RevealMessage recovers a message hidden by HideMessage with the same
// options.
func RevealMessage(img image.Image, opts Options) (string, error) {
	text, err := extractText(img, opts)
	if err != nil {
		return "", err
	}
	if opts.Password == "" {
		return text, nil
	}

	plain, err := encryption.Decrypt(text, opts.Password)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(plain) {
		return "", ErrDecryption
	}
	return string(plain), nil
}

// HideFile embeds a file's name and contents in a normalised copy of img.
// The name is stored in clear even when a password is set.
func HideFile(img image.Image, name string, data []byte, opts Options) (*image.NRGBA, error) {
	f := framer.Frame{Name: name, Data: data}

	if opts.Compress {
		compressed, err := common.ZstdCompress(data)
		if err != nil {
			return nil, fmt.Errorf("compress %s: %w", name, err)
		}
		f.Data = compressed
		f.Compressed = true
	}

	if opts.Password != "" {
		tok, err := encryption.Encrypt(f.Data, opts.Password, opts.KDF)
		if err != nil {
			return nil, err
		}
		f.Data = []byte(tok)
	}

	token, err := framer.WrapFrame(f)
	if err != nil {
		return nil, err
	}
	return embedText(img, token, opts)
}

// RevealFile recovers the name and contents of a file hidden by HideFile.
func RevealFile(img image.Image, opts Options) (string, []byte, error) {
	text, err := extractText(img, opts)
	if err != nil {
		return "", nil, err
	}

	f, err := framer.Unwrap(text)
	if err != nil {
		return "", nil, err
	}

	data := f.Data
	if opts.Password != "" {
		data, err = encryption.Decrypt(string(data), opts.Password)
		if err != nil {
			return "", nil, err
		}
	}

	if f.Compressed {
		data, err = common.ZstdDecompress(data)
		if err != nil {
			return "", nil, fmt.Errorf("%w: decompress: %v", ErrInvalidFrame, err)
		}
	}

	return f.Name, data, nil
}

func embedText(img image.Image, text string, opts Options) (*image.NRGBA, error) {
	bits, err := bitstream.EncodeText(text, opts.Charset)
	if err != nil {
		return nil, err
	}
	framed, err := bitstream.Terminate(bits, opts.Protocol)
	if err != nil {
		return nil, err
	}
	return Embed(img, framed)
}

func extractText(img image.Image, opts Options) (string, error) {
	payload, err := bitstream.Payload(Extract(img), opts.Protocol)
	if err != nil {
		return "", err
	}
	return bitstream.DecodeText(payload, opts.Charset)
}
