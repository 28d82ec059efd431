// Package normalmap derives tangent-space normal maps from depth/height
// rasters.
//
// Axis convention: the green channel is OpenGL-style ("Y+ up"). A surface
// sloping upward toward the bottom of the image encodes G > 128. Pass
// Convention: DirectX to negate the green axis for DirectX-style consumers.
// The convention applies to synthesis only; unit-length validation of a
// normal map is unaffected by the green sign.
//
// Red/green encode nx/ny as round((n+1)*127.5); blue encodes
// nz = sqrt(max(0, 1-nx²-ny²)) as round(nz*255). A perfectly flat input
// therefore yields (128,128,255) everywhere.
package normalmap

import (
	"errors"
	"fmt"
	"math"

	"github.com/SteakTheStake/bonemeal/internal/pixel"
)

// Kernel selects the gradient estimator.
type Kernel int

const (
	// KernelCross is the 4-neighbor central difference (default).
	KernelCross Kernel = iota
	// KernelSobel is the 8-neighbor Sobel operator.
	KernelSobel
)

// Convention selects the green-channel sign.
type Convention int

const (
	// OpenGL keeps ny as derived (green up). Default.
	OpenGL Convention = iota
	// DirectX negates ny.
	DirectX
)

// Options tunes the synthesis. The zero value means strength 1, cross
// kernel, OpenGL green.
type Options struct {
	Strength   float64 // 0 → 1.0; floor-clamped to 0.1
	Kernel     Kernel
	Convention Convention
}

const minStrength = 0.1

var errEmpty = errors.New("normalmap: empty input buffer")

// FromDepth converts a single-channel depth buffer into a 3-channel normal
// map. Sampling is edge-clamped: out-of-range coordinates read the nearest
// valid pixel, never wrapping.
func FromDepth(depth *pixel.Buffer, opts Options) (*pixel.Buffer, error) {
	if depth == nil || depth.W <= 0 || depth.H <= 0 {
		return nil, errEmpty
	}
	if depth.Channels != 1 {
		return nil, fmt.Errorf("normalmap: want single-channel depth, got %d channels", depth.Channels)
	}

	s := opts.Strength
	if s == 0 {
		s = 1
	}
	if s < minStrength {
		s = minStrength
	}

	w, h := depth.W, depth.H
	out := pixel.New(w, h, 3)

	di := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var gx, gy float64
			switch opts.Kernel {
			case KernelSobel:
				tl := float64(depth.Clamped(x-1, y-1, 0))
				tc := float64(depth.Clamped(x, y-1, 0))
				tr := float64(depth.Clamped(x+1, y-1, 0))
				ml := float64(depth.Clamped(x-1, y, 0))
				mr := float64(depth.Clamped(x+1, y, 0))
				bl := float64(depth.Clamped(x-1, y+1, 0))
				bc := float64(depth.Clamped(x, y+1, 0))
				br := float64(depth.Clamped(x+1, y+1, 0))
				// Weight sum per side is 4; divide so the range stays [-255,255].
				gx = (tr + 2*mr + br - tl - 2*ml - bl) / 4
				gy = (bl + 2*bc + br - tl - 2*tc - tr) / 4
			default:
				gx = float64(depth.Clamped(x+1, y, 0)) - float64(depth.Clamped(x-1, y, 0))
				gy = float64(depth.Clamped(x, y+1, 0)) - float64(depth.Clamped(x, y-1, 0))
			}

			nx := clampUnit(-gx / 255 * s)
			ny := clampUnit(gy / 255 * s)
			if opts.Convention == DirectX {
				ny = -ny
			}
			nz := math.Sqrt(math.Max(0, 1-nx*nx-ny*ny))

			out.Pix[di] = uint8(math.Round((nx + 1) * 127.5))
			out.Pix[di+1] = uint8(math.Round((ny + 1) * 127.5))
			out.Pix[di+2] = uint8(math.Round(nz * 255))
			di += 3
		}
	}
	return out, nil
}

// FromImage derives a normal map directly from a color source using its
// luma as a height proxy. Used when no depth buffer is available.
func FromImage(src *pixel.Buffer, opts Options) (*pixel.Buffer, error) {
	if src == nil || src.W <= 0 || src.H <= 0 {
		return nil, errEmpty
	}
	return FromDepth(pixel.FromGray(src.ToGray()), opts)
}

func clampUnit(v float64) float64 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}
