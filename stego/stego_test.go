package stego

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/JustinTimperio/lsbhide/bitstream"
	"github.com/JustinTimperio/lsbhide/encryption"
	"github.com/JustinTimperio/lsbhide/framer"
)

func TestHideRevealMessageWhiteCarrier(t *testing.T) {
	src := SampleCarrier(SampleWidth, SampleHeight)

	out, err := HideMessage(src, "Test123", Options{})
	if err != nil {
		t.Fatalf("HideMessage failed: %v", err)
	}
	if out.Bounds() != src.Bounds() {
		t.Errorf("bounds changed: %v -> %v", src.Bounds(), out.Bounds())
	}

	got, err := RevealMessage(out, Options{})
	if err != nil {
		t.Fatalf("RevealMessage failed: %v", err)
	}
	if got != "Test123" {
		t.Errorf("RevealMessage() = %q, want %q", got, "Test123")
	}
}

func TestHideRevealMessageOptions(t *testing.T) {
	tests := []struct {
		name    string
		message string
		opts    Options
	}{
		{"plain", "hello world", Options{}},
		{"empty", "", Options{}},
		{"latin1 accents", "naïve café", Options{}},
		{"utf8", "こんにちは 🌍", Options{Charset: bitstream.UTF8}},
		{"length prefix", "prefixed", Options{Protocol: bitstream.LengthPrefixProtocol}},
		{"sentinel-like bytes with length prefix", "aÿþb", Options{Protocol: bitstream.LengthPrefixProtocol}},
		{"password", "secret message", Options{Password: "pw"}},
		{"password unicode", "grüße 日本", Options{Password: "pw"}},
		{"password argon2", "salted", Options{Password: "pw", KDF: encryption.KDFArgon2id}},
		{"password length prefix utf8", "всё", Options{Password: "pw", Charset: bitstream.UTF8, Protocol: bitstream.LengthPrefixProtocol}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newNoiseImage(t, 120, 120, 7)

			out, err := HideMessage(src, tt.message, tt.opts)
			if err != nil {
				t.Fatalf("HideMessage failed: %v", err)
			}
			got, err := RevealMessage(out, tt.opts)
			if err != nil {
				t.Fatalf("RevealMessage failed: %v", err)
			}
			if got != tt.message {
				t.Errorf("RevealMessage() = %q, want %q", got, tt.message)
			}
		})
	}
}

func TestRevealMessageWrongPassword(t *testing.T) {
	for _, kdf := range []encryption.KDF{encryption.KDFSHA256, encryption.KDFArgon2id} {
		t.Run(kdf.String(), func(t *testing.T) {
			out, err := HideMessage(newNoiseImage(t, 100, 100, 3), "top secret", Options{Password: "right", KDF: kdf})
			if err != nil {
				t.Fatal(err)
			}
			if _, err := RevealMessage(out, Options{Password: "wrong"}); !errors.Is(err, ErrDecryption) {
				t.Errorf("err = %v, want ErrDecryption", err)
			}
		})
	}
}

func TestRevealPlainTokenLikeMessageWithPassword(t *testing.T) {
	// Base64 text that starts with the Fernet version byte but is too short
	// to be a token.
	for _, message := range []string{"gAAAAABsecret", "gAAAAAAAAAABAgM="} {
		t.Run(message, func(t *testing.T) {
			out, err := HideMessage(SampleCarrier(50, 50), message, Options{})
			if err != nil {
				t.Fatal(err)
			}
			if _, err := RevealMessage(out, Options{Password: "pw"}); !errors.Is(err, ErrDecryption) {
				t.Errorf("err = %v, want ErrDecryption", err)
			}
		})
	}
}

func TestRevealFileTruncatedToken(t *testing.T) {
	frame, err := framer.Wrap("a.txt", []byte("gAAAAAAAAAABAgM="))
	if err != nil {
		t.Fatal(err)
	}
	img, err := HideMessage(newNoiseImage(t, 60, 60, 4), frame, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := RevealFile(img, Options{Password: "pw"}); !errors.Is(err, ErrDecryption) {
		t.Errorf("err = %v, want ErrDecryption", err)
	}
}

func TestRevealWithoutPasswordReturnsToken(t *testing.T) {
	out, err := HideMessage(newNoiseImage(t, 100, 100, 3), "top secret", Options{Password: "pw"})
	if err != nil {
		t.Fatal(err)
	}
	got, err := RevealMessage(out, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(got, "top secret") || !strings.HasPrefix(got, "gAAAAA") {
		t.Errorf("RevealMessage() = %q, want an opaque token", got)
	}
}

func TestHideMessageCapacityExceeded(t *testing.T) {
	src := newSolidImage(t, 10, 10, color.White) // 300 bits

	// 35 bytes + sentinel = 296 bits fits, 36 bytes does not.
	if _, err := HideMessage(src, strings.Repeat("x", 35), Options{}); err != nil {
		t.Errorf("35 bytes should fit: %v", err)
	}
	if _, err := HideMessage(src, strings.Repeat("x", 36), Options{}); !errors.Is(err, ErrCapacityExceeded) {
		t.Errorf("err = %v, want ErrCapacityExceeded", err)
	}
}

func TestHideMessageUnsupportedRune(t *testing.T) {
	_, err := HideMessage(newSolidImage(t, 50, 50, color.White), "price: 5€", Options{})
	if !errors.Is(err, bitstream.ErrUnsupportedRune) {
		t.Errorf("err = %v, want ErrUnsupportedRune", err)
	}
}

func TestRevealNoHiddenData(t *testing.T) {
	tests := []struct {
		name string
		img  image.Image
		opts Options
	}{
		// All LSBs are 1: the sentinel's trailing 0 never appears.
		{"white", newSolidImage(t, 64, 64, color.White), Options{}},
		// All LSBs are 0: no run of ones.
		{"black", newSolidImage(t, 64, 64, color.Black), Options{}},
		{"black length prefix", newSolidImage(t, 64, 64, color.Black), Options{Protocol: bitstream.LengthPrefixProtocol}},
		{"tiny", newSolidImage(t, 1, 1, color.White), Options{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := RevealMessage(tt.img, tt.opts); !errors.Is(err, ErrNoHiddenData) {
				t.Errorf("RevealMessage err = %v, want ErrNoHiddenData", err)
			}
			if _, _, err := RevealFile(tt.img, tt.opts); !errors.Is(err, ErrNoHiddenData) {
				t.Errorf("RevealFile err = %v, want ErrNoHiddenData", err)
			}
		})
	}
}

func TestHideRevealFile(t *testing.T) {
	big := bytes.Repeat([]byte("log line with some repetition\n"), 200)

	tests := []struct {
		name string
		file string
		data []byte
		opts Options
	}{
		{"note", "note.txt", []byte("hello"), Options{}},
		{"binary", "blob.bin", []byte{0, 1, 2, 0xFF, 0xFE, 0xFF}, Options{}},
		{"empty", "empty", []byte{}, Options{}},
		{"compressed", "app.log", big, Options{Compress: true}},
		{"encrypted", "secret.txt", []byte("classified"), Options{Password: "pw"}},
		{"compressed encrypted", "app.log", big, Options{Compress: true, Password: "pw", KDF: encryption.KDFArgon2id}},
		{"length prefix", "note.txt", []byte("hello"), Options{Protocol: bitstream.LengthPrefixProtocol}},
		{"utf8 name", "résumé-日本.txt", []byte("cv"), Options{Charset: bitstream.UTF8}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newNoiseImage(t, 100, 100, 11)

			out, err := HideFile(src, tt.file, tt.data, tt.opts)
			if err != nil {
				t.Fatalf("HideFile failed: %v", err)
			}
			name, data, err := RevealFile(out, tt.opts)
			if err != nil {
				t.Fatalf("RevealFile failed: %v", err)
			}
			if name != tt.file {
				t.Errorf("name = %q, want %q", name, tt.file)
			}
			if !bytes.Equal(data, tt.data) {
				t.Errorf("data = %q, want %q", data, tt.data)
			}
		})
	}
}

func TestRevealFileWrongPassword(t *testing.T) {
	out, err := HideFile(newNoiseImage(t, 100, 100, 5), "a.txt", []byte("data"), Options{Password: "right"})
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := RevealFile(out, Options{Password: "wrong"}); !errors.Is(err, ErrDecryption) {
		t.Errorf("err = %v, want ErrDecryption", err)
	}
}

func TestRevealFileFromTextMessage(t *testing.T) {
	out, err := HideMessage(newNoiseImage(t, 60, 60, 9), "just words", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := RevealFile(out, Options{}); !errors.Is(err, ErrInvalidFrame) {
		t.Errorf("err = %v, want ErrInvalidFrame", err)
	}
}

func TestRevealFileCompressedWithoutPassword(t *testing.T) {
	out, err := HideFile(newNoiseImage(t, 100, 100, 5), "a.txt", []byte("data data data"), Options{Compress: true, Password: "pw"})
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := RevealFile(out, Options{}); !errors.Is(err, ErrInvalidFrame) {
		t.Errorf("err = %v, want ErrInvalidFrame", err)
	}
}

func TestHideFileRejectsDelimiterInName(t *testing.T) {
	if _, err := HideFile(newNoiseImage(t, 40, 40, 1), "a:::b", []byte("x"), Options{}); err == nil {
		t.Error("HideFile should reject a name containing the delimiter")
	}
}
