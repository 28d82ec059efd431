package pixel

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"path/filepath"
	"strings"

	"github.com/ftrvxmtrx/tga"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrDecode marks corrupt or unreadable image data. Callers match it with
// errors.Is to distinguish decode failures from I/O or pipeline errors.
var ErrDecode = errors.New("image decode failed")

// Decode converts encoded image bytes to a 4-channel buffer and reports the
// source format. TGA carries no magic bytes, so it is dispatched by file
// extension; every other format goes through the registered stdlib/x-image
// decoders.
func Decode(name string, data []byte) (*Buffer, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: %s: empty input", ErrDecode, name)
	}

	if strings.EqualFold(filepath.Ext(name), ".tga") {
		img, err := tga.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, "", fmt.Errorf("%w: %s: %v", ErrDecode, name, err)
		}
		return FromImage(img), "tga", nil
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s: %v", ErrDecode, name, err)
	}
	return FromImage(img), format, nil
}

// DecodeConfig reports dimensions and format without decoding pixel data.
func DecodeConfig(name string, data []byte) (w, h int, format string, err error) {
	if strings.EqualFold(filepath.Ext(name), ".tga") {
		cfg, derr := tga.DecodeConfig(bytes.NewReader(data))
		if derr != nil {
			return 0, 0, "", fmt.Errorf("%w: %s: %v", ErrDecode, name, derr)
		}
		return cfg.Width, cfg.Height, "tga", nil
	}
	cfg, format, derr := image.DecodeConfig(bytes.NewReader(data))
	if derr != nil {
		return 0, 0, "", fmt.Errorf("%w: %s: %v", ErrDecode, name, derr)
	}
	return cfg.Width, cfg.Height, format, nil
}

// EncodePNG serializes the buffer as PNG, the canonical LabPBR container.
func (b *Buffer) EncodePNG() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(b.W * b.H) // rough pre-alloc; PNG of packed maps compresses well

	enc := &png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, b.ToNRGBA()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
