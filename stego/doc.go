// Package stego hides text and files in the least significant bits of an
// image's colour channels and recovers them again.
//
// # Layout
//
// Bits are written one per channel in raster order: pixel (0,0) red, green,
// blue, then pixel (1,0) and so on, row by row. Every carrier is first
// normalised to opaque 8-bit RGB, so alpha, palette and grayscale images are
// converted before embedding and the saved image is RGB.
//
// The bit stream is produced by package bitstream:
//
//	[payload bits][1111111111111110]            SentinelProtocol (default)
//	[magic "LSBH"][uint32 length][payload bits] LengthPrefixProtocol
//
// # Pipelines
//
// Hiding text:  message -> encrypt (if password) -> encode -> terminate -> embed
// Hiding files: bytes -> compress (if asked) -> encrypt (if password) -> frame -> encode -> terminate -> embed
//
// Extraction runs the same steps backwards. Carriers must be stored in a
// lossless format (PNG, BMP, TIFF); Save refuses JPEG and GIF.
//
// # Concurrency
//
// All functions are synchronous and keep no shared state, so calls on
// different images may run concurrently.
package stego
