// Package depth obtains single-channel depth maps for source textures,
// either from a remote estimation service or from a local luminance
// approximation.
package depth

import (
	"context"
	"errors"

	"github.com/SteakTheStake/bonemeal/internal/pixel"
)

// ErrUnavailable marks a depth source that could not produce a usable
// buffer: exhausted retries, a non-image payload or a size mismatch.
// Callers fail the current map generation step when they see it.
var ErrUnavailable = errors.New("depth estimation unavailable")

// Estimator produces a depth buffer for a decoded source image. The
// result has one channel and the source's dimensions; 255 is nearest.
type Estimator interface {
	Estimate(ctx context.Context, src *pixel.Buffer) (*pixel.Buffer, error)
}
