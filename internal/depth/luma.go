package depth

import (
	"context"
	"fmt"

	"github.com/disintegration/imaging"

	"github.com/SteakTheStake/bonemeal/internal/pixel"
)

// Luma approximates depth from blurred luminance: bright texels read as
// near, dark as far. It never leaves the process and is the fallback
// when no estimation endpoint is configured.
type Luma struct {
	// Sigma is the gaussian blur radius; zero means 2.
	Sigma float64
}

// Estimate implements Estimator.
func (l Luma) Estimate(_ context.Context, src *pixel.Buffer) (*pixel.Buffer, error) {
	if src == nil || src.W == 0 || src.H == 0 {
		return nil, fmt.Errorf("%w: empty source image", ErrUnavailable)
	}
	sigma := l.Sigma
	if sigma <= 0 {
		sigma = 2
	}
	gray := imaging.Blur(imaging.Grayscale(src.ToNRGBA()), sigma)

	// Grayscale leaves R=G=B, so the red plane is the luminance.
	out := pixel.New(src.W, src.H, 1)
	for y := 0; y < src.H; y++ {
		row := gray.Pix[y*gray.Stride:]
		for x := 0; x < src.W; x++ {
			out.Pix[y*src.W+x] = row[x*4]
		}
	}
	return out, nil
}
