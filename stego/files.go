package stego

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

var ErrLossyFormat = errors.New("output format is not lossless")

// Default size of the sample carrier.
const (
	SampleWidth  = 500
	SampleHeight = 500
)

// Load decodes the image at path. Decoder errors are returned unchanged.
func Load(path string) (image.Image, error) {
	return imaging.Open(path)
}

// Save encodes img to path in the format implied by the extension. Only
// lossless formats (PNG, BMP, TIFF) are accepted. The image is written to
// a temporary file next to path and renamed into place, so a failed save
// never leaves a partial file behind.
func Save(img image.Image, path string) error {
	format, err := losslessFormat(path)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".lsbhide-*"+filepath.Ext(path))
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if err := imaging.Encode(tmp, img, format); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func losslessFormat(path string) (imaging.Format, error) {
	format, err := imaging.FormatFromFilename(path)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	switch format {
	case imaging.PNG, imaging.BMP, imaging.TIFF:
		return format, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrLossyFormat, format)
	}
}

// CapacityOf returns the byte capacity of the image at path. Only the
// image header is decoded.
func CapacityOf(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, fmt.Errorf("decode %s: %w", path, err)
	}
	return MaxCapacity(cfg.Width, cfg.Height, Channels), nil
}

// HideMessageInImage hides message in the image at inputPath and writes
// the result to outputPath.
func HideMessageInImage(inputPath, message, outputPath string, opts Options) error {
	if _, err := losslessFormat(outputPath); err != nil {
		return err
	}

	img, err := Load(inputPath)
	if err != nil {
		return err
	}

	out, err := HideMessage(img, message, opts)
	if err != nil {
		return err
	}
	return Save(out, outputPath)
}

// RevealMessageFromImage recovers the message hidden in the image at path.
func RevealMessageFromImage(path string, opts Options) (string, error) {
	img, err := Load(path)
	if err != nil {
		return "", err
	}
	return RevealMessage(img, opts)
}

// HideFileInImage hides the file at filePath, under its base name, in the
// image at inputPath and writes the result to outputPath.
func HideFileInImage(inputPath, filePath, outputPath string, opts Options) error {
	if _, err := losslessFormat(outputPath); err != nil {
		return err
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}

	img, err := Load(inputPath)
	if err != nil {
		return err
	}

	out, err := HideFile(img, filepath.Base(filePath), data, opts)
	if err != nil {
		return err
	}
	return Save(out, outputPath)
}

// ExtractFileTo recovers a hidden file from the image at path and writes it
// into outputDir. Only the base of the stored name is used. It returns the
// path of the written file.
func ExtractFileTo(path, outputDir string, opts Options) (string, error) {
	img, err := Load(path)
	if err != nil {
		return "", err
	}

	name, data, err := RevealFile(img, opts)
	if err != nil {
		return "", err
	}

	base := filepath.Base(filepath.Clean("/" + name))
	if base == "/" || base == "." || base == ".." {
		return "", fmt.Errorf("%w: unusable file name %q", ErrInvalidFrame, name)
	}

	outPath := filepath.Join(outputDir, base)
	if err := os.WriteFile(outPath, data, 0644); err != nil {
		return "", err
	}
	return outPath, nil
}

// SampleCarrier returns a white opaque RGB image.
func SampleCarrier(width, height int) *image.NRGBA {
	return imaging.New(width, height, color.White)
}

// EnsureSampleCarrier writes a white width x height image to path unless a
// file already exists there.
func EnsureSampleCarrier(path string, width, height int) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return Save(SampleCarrier(width, height), path)
}

// CarrierPath validates a user supplied carrier path, such as one dropped
// on the tool. It accepts existing .png and .bmp files and returns the
// absolute path.
func CarrierPath(path string) (string, bool) {
	path = strings.TrimSpace(path)

	fi, err := os.Stat(path)
	if err != nil || !fi.Mode().IsRegular() {
		return "", false
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".bmp":
	default:
		return "", false
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	return abs, true
}
