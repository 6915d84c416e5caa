package stego

import (
	"errors"
	"fmt"
	"image"

	"github.com/JustinTimperio/lsbhide/bitstream"

	"github.com/disintegration/imaging"
)

// Channels is the number of colour channels that carry data per pixel.
const Channels = 3

var ErrCapacityExceeded = errors.New("payload is too large to hide in this image")

// MaxCapacity returns how many whole bytes fit in an image of the given
// geometry at one bit per channel. Non-positive dimensions yield 0.
func MaxCapacity(width, height, channels int) int {
	if width <= 0 || height <= 0 || channels <= 0 {
		return 0
	}
	return width * height * channels / 8
}

// Capacity is MaxCapacity for img with three channels.
func Capacity(img image.Image) int {
	b := img.Bounds()
	return MaxCapacity(b.Dx(), b.Dy(), Channels)
}

// Normalize returns a copy of img as opaque 8-bit RGB stored in an
// *image.NRGBA with origin (0,0). Alpha is discarded, not composited.
func Normalize(img image.Image) *image.NRGBA {
	dst := imaging.Clone(img)
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xFF
	}
	return dst
}

// Embed writes bits into the channel LSBs of a normalised copy of img.
// Channels past the last bit keep their source values. img is never
// modified, and nothing is written when the bits do not fit.
func Embed(img image.Image, bits bitstream.Bits) (*image.NRGBA, error) {
	b := img.Bounds()
	if avail := b.Dx() * b.Dy() * Channels; len(bits) > avail {
		return nil, fmt.Errorf("%w: need %d bits, image holds %d", ErrCapacityExceeded, len(bits), avail)
	}

	dst := Normalize(img)
	w, h := dst.Rect.Dx(), dst.Rect.Dy()

	cursor := 0
	for y := 0; y < h && cursor < len(bits); y++ {
		row := dst.Pix[y*dst.Stride : y*dst.Stride+w*4]
		for x := 0; x < w && cursor < len(bits); x++ {
			px := row[x*4 : x*4+Channels]
			for c := range px {
				if cursor == len(bits) {
					break
				}
				px[c] = px[c]&^1 | bits[cursor]&1
				cursor++
			}
		}
	}

	return dst, nil
}

// Extract reads one bit from every channel of img in embedding order.
func Extract(img image.Image) bitstream.Bits {
	src := Normalize(img)
	w, h := src.Rect.Dx(), src.Rect.Dy()

	bits := make(bitstream.Bits, 0, w*h*Channels)
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+w*4]
		for x := 0; x < w; x++ {
			for _, v := range row[x*4 : x*4+Channels] {
				bits = append(bits, v&1)
			}
		}
	}
	return bits
}
