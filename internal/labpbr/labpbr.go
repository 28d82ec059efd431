// Package labpbr implements the LabPBR material standard's packed-channel
// contract: pixel-level validation of specular and normal textures and
// aggregate material analysis.
//
// Specular channel semantics (LabPBR 1.3):
//
//	R — perceptual smoothness, full 0..255 range
//	G — F0: 0..229 dielectric, 230..237 hardcoded metals,
//	    255 "use albedo as F0", 238..254 reserved (invalid)
//	B — dielectrics only: 0..64 porosity, 65..255 subsurface scattering
//	A — emission 0..254 (254 = 100%); 255 is ignored by the standard
//
// Normal textures carry nx/ny in R/G ((v/127.5)-1), a reconstructed nz, an
// optional ambient-occlusion term in blue and an optional height value in
// alpha (0 produces parallax-occlusion artifacts).
package labpbr

import (
	"path/filepath"
	"strings"
)

// SpecVersion is the LabPBR revision this package validates against.
const SpecVersion = "1.3"

// Green-channel bands.
const (
	MaxDielectricF0 = 229 // highest encoded dielectric F0
	MetalCodeMin    = 230 // Iron
	MetalCodeMax    = 237 // Silver
	AlbedoF0        = 255 // custom metal: base color is used as F0
)

// Blue-channel split for dielectrics.
const (
	MaxPorosity = 64  // 0..64 → porosity v/64
	sssOffset   = 65  // 65..255 → subsurface scattering (v-65)/190
	sssRange    = 190 // width of the SSS band
)

// MaxEmission is the largest meaningful alpha value (100% emissive).
// Alpha 255 is reserved and ignored by shader pipelines.
const MaxEmission = 254

// metalNames maps codes 230..237 in the order the standard fixes them.
var metalNames = [8]string{
	"Iron", "Gold", "Aluminum", "Chrome", "Copper", "Lead", "Platinum", "Silver",
}

// MetalName returns the predefined metal for a green-channel code.
// Code 255 ("use albedo") is a valid metal without a name.
func MetalName(code int) (string, bool) {
	if code < MetalCodeMin || code > MetalCodeMax {
		return "", false
	}
	return metalNames[code-MetalCodeMin], true
}

// Kind declares what a texture claims to be, usually derived from its
// filename suffix.
type Kind string

const (
	KindSpecular Kind = "specular"
	KindNormal   Kind = "normal"
	KindUnknown  Kind = "unknown"
)

// KindForPath infers the declared kind from the LabPBR filename suffix
// convention (foo_s.png → specular, foo_n.png → normal).
func KindForPath(path string) Kind {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	switch {
	case strings.HasSuffix(base, "_s"):
		return KindSpecular
	case strings.HasSuffix(base, "_n"):
		return KindNormal
	}
	return KindUnknown
}

// Level grades a validation issue.
type Level string

const (
	LevelError   Level = "error"
	LevelWarning Level = "warning"
	LevelInfo    Level = "info"
)

// Issue is one finding against the channel contract.
type Issue struct {
	Level      Level
	Message    string
	Channel    string // "red", "green", "blue", "alpha"; empty when not channel-specific
	Value      int    // first offending sample value; -1 when not applicable
	Suggestion string
}

// Result collects the issues found in one texture.
type Result struct {
	Issues      []Issue
	SpecVersion string
}

// Valid reports whether no error-level issue was found.
func (r Result) Valid() bool {
	for _, is := range r.Issues {
		if is.Level == LevelError {
			return false
		}
	}
	return true
}

// Worst returns the most severe level present, or "" for a clean result.
func (r Result) Worst() Level {
	worst := Level("")
	for _, is := range r.Issues {
		switch is.Level {
		case LevelError:
			return LevelError
		case LevelWarning:
			worst = LevelWarning
		case LevelInfo:
			if worst == "" {
				worst = LevelInfo
			}
		}
	}
	return worst
}
