package processor

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrBadSettings marks a settings record that failed validation.
// Submissions carrying one are rejected before a job is created.
var ErrBadSettings = errors.New("invalid processing settings")

// InputType declares what the uploaded file contains.
type InputType string

const (
	InputSingle       InputType = "single"
	InputSequence     InputType = "sequence"
	InputResourcePack InputType = "resourcepack"
)

// Settings select which material maps are generated and how.
type Settings struct {
	GenerateBaseColor bool
	GenerateRoughness bool
	GenerateNormal    bool
	GenerateHeight    bool
	GenerateAO        bool

	BaseColorContrast  float64 // 0..2, 1 leaves the source unchanged
	RoughnessIntensity float64 // 0..1 smoothness scale
	RoughnessInvert    bool    // treat dark texels as smooth
	NormalStrength     float64 // 0..3 gradient deflection
	HeightDepth        float64 // 0..1 depth scale
	AORadius           float64 // 0..1, blur radius is AORadius*10

	InputType InputType
}

// Validate normalizes an empty InputType to single and rejects
// out-of-range numeric fields and unknown enum values.
func (s *Settings) Validate() error {
	if s.InputType == "" {
		s.InputType = InputSingle
	}
	switch s.InputType {
	case InputSingle, InputSequence, InputResourcePack:
	default:
		return fmt.Errorf("%w: unknown input type %q", ErrBadSettings, s.InputType)
	}

	ranges := []struct {
		name   string
		v      float64
		lo, hi float64
	}{
		{"baseColorContrast", s.BaseColorContrast, 0, 2},
		{"roughnessIntensity", s.RoughnessIntensity, 0, 1},
		{"normalStrength", s.NormalStrength, 0, 3},
		{"heightDepth", s.HeightDepth, 0, 1},
		{"aoRadius", s.AORadius, 0, 1},
	}
	for _, r := range ranges {
		if math.IsNaN(r.v) || r.v < r.lo || r.v > r.hi {
			return fmt.Errorf("%w: %s %v outside [%v, %v]", ErrBadSettings, r.name, r.v, r.lo, r.hi)
		}
	}
	return nil
}

// Built-in presets tuned per material family.
var presets = map[string]Settings{
	"default": {
		GenerateBaseColor: true, GenerateRoughness: true, GenerateNormal: true,
		GenerateHeight: true, GenerateAO: true,
		BaseColorContrast: 1, RoughnessIntensity: 0.5, NormalStrength: 1,
		HeightDepth: 0.5, AORadius: 0.5,
	},
	"stone": {
		GenerateBaseColor: true, GenerateRoughness: true, GenerateNormal: true,
		GenerateHeight: true, GenerateAO: true,
		BaseColorContrast: 1.1, RoughnessIntensity: 0.8, NormalStrength: 1.6,
		HeightDepth: 0.7, AORadius: 0.7,
	},
	"metal": {
		GenerateBaseColor: true, GenerateRoughness: true, GenerateNormal: true,
		GenerateHeight: true, GenerateAO: true,
		BaseColorContrast: 1.05, RoughnessIntensity: 0.25, RoughnessInvert: true,
		NormalStrength: 0.8, HeightDepth: 0.3, AORadius: 0.4,
	},
	"wood": {
		GenerateBaseColor: true, GenerateRoughness: true, GenerateNormal: true,
		GenerateHeight: true, GenerateAO: true,
		BaseColorContrast: 1, RoughnessIntensity: 0.65, NormalStrength: 1.2,
		HeightDepth: 0.5, AORadius: 0.55,
	},
	"flat": {
		GenerateBaseColor: true, GenerateRoughness: true,
		BaseColorContrast: 1, RoughnessIntensity: 0.5,
	},
}

// Preset returns a named preset. Unknown names fall back to default.
func Preset(name string) Settings {
	if s, ok := presets[name]; ok {
		return s
	}
	return presets["default"]
}

// PresetNames lists the built-in presets for CLI help.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
