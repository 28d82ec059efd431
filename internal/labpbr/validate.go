package labpbr

import (
	"fmt"
	"math"

	"github.com/SteakTheStake/bonemeal/internal/pixel"
)

// maxNormalSamples caps how many pixels the normal-map checks visit so
// validation stays cheap on large atlases.
const maxNormalSamples = 4096

// lengthTolerance is the allowed deviation of a reconstructed normal
// from unit length.
const lengthTolerance = 0.1

// Validate checks one decoded texture against the channel contract for
// its declared kind. format is the decoder-reported source format
// ("png", "jpeg", ...); pass "" to skip the format rule. Results never
// carry more than one issue per rule: repeated offenders are counted
// into a single finding.
func Validate(buf *pixel.Buffer, kind Kind, format string) Result {
	res := Result{SpecVersion: SpecVersion}
	if buf == nil || buf.W == 0 || buf.H == 0 || len(buf.Pix) == 0 {
		res.Issues = append(res.Issues, Issue{
			Level:   LevelError,
			Message: "texture contains no pixel data",
			Value:   -1,
		})
		return res
	}

	if !powerOfTwo(buf.W) || !powerOfTwo(buf.H) {
		res.Issues = append(res.Issues, Issue{
			Level:      LevelWarning,
			Message:    fmt.Sprintf("resolution %dx%d is not a power of two", buf.W, buf.H),
			Value:      -1,
			Suggestion: "resize to a power-of-two size (16, 32, 64, ...) so mipmapping behaves",
		})
	}
	if format != "" && format != "png" {
		res.Issues = append(res.Issues, Issue{
			Level:      LevelWarning,
			Message:    fmt.Sprintf("source format %q is lossy or nonstandard for resource packs", format),
			Value:      -1,
			Suggestion: "re-export as PNG to keep packed channel values exact",
		})
	}

	switch kind {
	case KindSpecular:
		res.Issues = append(res.Issues, specularIssues(buf)...)
	case KindNormal:
		res.Issues = append(res.Issues, normalIssues(buf)...)
	}
	return res
}

// ValidateBytes decodes raw file bytes and validates them. A decode
// failure is reported as a single error-level issue instead of an
// error so batch runs keep going.
func ValidateBytes(name string, data []byte, kind Kind) Result {
	buf, format, err := pixel.Decode(name, data)
	if err != nil {
		return Result{
			SpecVersion: SpecVersion,
			Issues: []Issue{{
				Level:   LevelError,
				Message: fmt.Sprintf("could not decode texture: %v", err),
				Value:   -1,
			}},
		}
	}
	return Validate(buf, kind, format)
}

func specularIssues(buf *pixel.Buffer) []Issue {
	if buf.Channels < 3 {
		return []Issue{{
			Level:   LevelWarning,
			Message: fmt.Sprintf("specular map has %d channels, expected RGBA", buf.Channels),
			Value:   -1,
		}}
	}

	var (
		reservedCount  int
		reservedFirst  = -1
		metalBlueCount int
		metalBlueFirst = -1
		alphaCount     int
	)
	ch := buf.Channels
	pix := buf.Pix
	for i := 0; i+ch <= len(pix); i += ch {
		g := pix[i+1]
		if g > MaxDielectricF0 && g != AlbedoF0 {
			if g >= 238 { // 238..254 reserved
				reservedCount++
				if reservedFirst < 0 {
					reservedFirst = int(g)
				}
			} else if b := pix[i+2]; b != 0 {
				// hardcoded metal: blue carries no data
				metalBlueCount++
				if metalBlueFirst < 0 {
					metalBlueFirst = int(b)
				}
			}
		} else if g == AlbedoF0 {
			if b := pix[i+2]; b != 0 {
				metalBlueCount++
				if metalBlueFirst < 0 {
					metalBlueFirst = int(b)
				}
			}
		}
		if ch == 4 && pix[i+3] == 255 {
			alphaCount++
		}
	}

	var issues []Issue
	if reservedCount > 0 {
		issues = append(issues, Issue{
			Level:      LevelError,
			Channel:    "green",
			Value:      reservedFirst,
			Message:    fmt.Sprintf("reserved F0 values 238-254 on %d pixel(s)", reservedCount),
			Suggestion: "use 0-229 for dielectric F0, 230-237 for predefined metals or 255 for albedo-as-F0",
		})
	}
	if metalBlueCount > 0 {
		issues = append(issues, Issue{
			Level:      LevelWarning,
			Channel:    "blue",
			Value:      metalBlueFirst,
			Message:    fmt.Sprintf("nonzero blue on %d metal pixel(s); porosity and subsurface data only apply to dielectrics", metalBlueCount),
			Suggestion: "zero the blue channel wherever green encodes a metal",
		})
	}
	if alphaCount > 0 {
		issues = append(issues, Issue{
			Level:      LevelError,
			Channel:    "alpha",
			Value:      255,
			Message:    fmt.Sprintf("emission value 255 on %d pixel(s) is ignored by shaders", alphaCount),
			Suggestion: "use 254 for fully emissive pixels",
		})
	}
	return issues
}

func normalIssues(buf *pixel.Buffer) []Issue {
	if buf.Channels < 2 {
		return []Issue{{
			Level:   LevelWarning,
			Message: fmt.Sprintf("normal map has %d channel(s), expected at least RG", buf.Channels),
			Value:   -1,
		}}
	}

	total := buf.W * buf.H
	step := 1
	if total > maxNormalSamples {
		step = total / maxNormalSamples
	}

	var (
		issues           []Issue
		lengthFlagged    bool
		alphaFlagged     bool
		blueMin, blueMax = 255, 0
		sampled          int
	)
	ch := buf.Channels
	for p := 0; p < total; p += step {
		i := p * ch
		sampled++

		if !lengthFlagged {
			nx := float64(buf.Pix[i])/127.5 - 1
			ny := float64(buf.Pix[i+1])/127.5 - 1
			sq := nx*nx + ny*ny
			nz := 0.0
			if sq < 1 {
				nz = math.Sqrt(1 - sq)
			}
			if l := math.Sqrt(sq + nz*nz); math.Abs(l-1) > lengthTolerance {
				issues = append(issues, Issue{
					Level:      LevelWarning,
					Message:    fmt.Sprintf("reconstructed normal length %.2f deviates from 1.0", l),
					Value:      -1,
					Suggestion: "renormalize the XY channels; the shader derives Z",
				})
				lengthFlagged = true
			}
		}
		if ch >= 3 {
			b := int(buf.Pix[i+2])
			if b < blueMin {
				blueMin = b
			}
			if b > blueMax {
				blueMax = b
			}
		}
		if ch == 4 && !alphaFlagged && buf.Pix[i+3] == 0 {
			issues = append(issues, Issue{
				Level:      LevelWarning,
				Channel:    "alpha",
				Value:      0,
				Message:    "height value 0 found; parallax occlusion renders such texels as holes",
				Suggestion: "keep heights at 1 or above unless a hole is intended",
			})
			alphaFlagged = true
		}
	}

	if ch >= 3 && sampled > 1 && blueMin == blueMax {
		issues = append(issues, Issue{
			Level:   LevelInfo,
			Channel: "blue",
			Value:   blueMin,
			Message: "blue channel is constant; ambient occlusion appears unused",
		})
	}
	return issues
}

func powerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
