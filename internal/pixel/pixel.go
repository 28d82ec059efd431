// Package pixel provides the decoded raster buffer shared by every
// processing stage: a width×height×channels byte plane produced once by a
// decode and treated as read-only by all consumers.
package pixel

import (
	"image"
	"image/color"
)

// Buffer is a decoded raster. Invariant: len(Pix) == W*H*Channels.
// Buffers are not mutated after creation; stages that derive a new raster
// allocate a new Buffer.
type Buffer struct {
	W        int
	H        int
	Channels int
	Pix      []uint8
}

// New allocates a zeroed buffer.
func New(w, h, channels int) *Buffer {
	return &Buffer{W: w, H: h, Channels: channels, Pix: make([]uint8, w*h*channels)}
}

// FromImage converts any image to a 4-channel RGBA buffer.
// NRGBA, RGBA and Gray sources are copied without per-pixel interface calls.
func FromImage(img image.Image) *Buffer {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	b := New(w, h, 4)

	switch src := img.(type) {
	case *image.NRGBA:
		for y := 0; y < h; y++ {
			row := src.Pix[(y+bounds.Min.Y-src.Rect.Min.Y)*src.Stride+(bounds.Min.X-src.Rect.Min.X)*4:]
			copy(b.Pix[y*w*4:(y+1)*w*4], row[:w*4])
		}
	case *image.RGBA:
		di := 0
		for y := 0; y < h; y++ {
			off := (y+bounds.Min.Y-src.Rect.Min.Y)*src.Stride + (bounds.Min.X-src.Rect.Min.X)*4
			for x := 0; x < w; x++ {
				r, g, bl, a := src.Pix[off], src.Pix[off+1], src.Pix[off+2], src.Pix[off+3]
				// Un-premultiply so channel values carry their encoded meaning.
				if a > 0 && a < 255 {
					r = uint8(uint32(r) * 255 / uint32(a))
					g = uint8(uint32(g) * 255 / uint32(a))
					bl = uint8(uint32(bl) * 255 / uint32(a))
				}
				b.Pix[di] = r
				b.Pix[di+1] = g
				b.Pix[di+2] = bl
				b.Pix[di+3] = a
				off += 4
				di += 4
			}
		}
	case *image.Gray:
		di := 0
		for y := 0; y < h; y++ {
			off := (y+bounds.Min.Y-src.Rect.Min.Y)*src.Stride + (bounds.Min.X - src.Rect.Min.X)
			for x := 0; x < w; x++ {
				v := src.Pix[off]
				b.Pix[di] = v
				b.Pix[di+1] = v
				b.Pix[di+2] = v
				b.Pix[di+3] = 255
				off++
				di += 4
			}
		}
	default:
		di := 0
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
				b.Pix[di] = c.R
				b.Pix[di+1] = c.G
				b.Pix[di+2] = c.B
				b.Pix[di+3] = c.A
				di += 4
			}
		}
	}
	return b
}

// FromGray converts a grayscale image to a single-channel buffer.
func FromGray(img *image.Gray) *Buffer {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	b := New(w, h, 1)
	for y := 0; y < h; y++ {
		off := (y+bounds.Min.Y-img.Rect.Min.Y)*img.Stride + (bounds.Min.X - img.Rect.Min.X)
		copy(b.Pix[y*w:(y+1)*w], img.Pix[off:off+w])
	}
	return b
}

// At returns channel c of pixel (x,y). Callers are expected to stay in
// bounds; hot loops index Pix directly instead.
func (b *Buffer) At(x, y, c int) uint8 {
	return b.Pix[(y*b.W+x)*b.Channels+c]
}

// Clamped samples channel c with coordinates clamped to the nearest valid
// pixel. Out-of-range reads never wrap around.
func (b *Buffer) Clamped(x, y, c int) uint8 {
	if x < 0 {
		x = 0
	} else if x >= b.W {
		x = b.W - 1
	}
	if y < 0 {
		y = 0
	} else if y >= b.H {
		y = b.H - 1
	}
	return b.Pix[(y*b.W+x)*b.Channels+c]
}

// ToNRGBA expands the buffer to an NRGBA image. Single-channel buffers
// replicate their value across R/G/B with opaque alpha; 3-channel buffers
// get opaque alpha.
func (b *Buffer) ToNRGBA() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, b.W, b.H))
	switch b.Channels {
	case 4:
		copy(img.Pix, b.Pix)
	case 3:
		si, di := 0, 0
		for i := 0; i < b.W*b.H; i++ {
			img.Pix[di] = b.Pix[si]
			img.Pix[di+1] = b.Pix[si+1]
			img.Pix[di+2] = b.Pix[si+2]
			img.Pix[di+3] = 255
			si += 3
			di += 4
		}
	case 1:
		di := 0
		for _, v := range b.Pix {
			img.Pix[di] = v
			img.Pix[di+1] = v
			img.Pix[di+2] = v
			img.Pix[di+3] = 255
			di += 4
		}
	}
	return img
}

// ToGray collapses the buffer to a grayscale image using the first channel
// for single-channel buffers and Rec. 601 luma otherwise.
func (b *Buffer) ToGray() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, b.W, b.H))
	if b.Channels == 1 {
		copy(img.Pix, b.Pix)
		return img
	}
	si := 0
	for i := 0; i < b.W*b.H; i++ {
		r := uint32(b.Pix[si])
		g := uint32(b.Pix[si+1])
		bl := uint32(b.Pix[si+2])
		img.Pix[i] = uint8((299*r + 587*g + 114*bl) / 1000)
		si += b.Channels
	}
	return img
}
