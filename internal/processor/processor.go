// Package processor turns one decoded source image into a set of
// LabPBR material maps: adjusted base color, packed specular, normal,
// height and ambient occlusion.
package processor

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"math"

	"github.com/disintegration/imaging"

	"github.com/SteakTheStake/bonemeal/internal/depth"
	"github.com/SteakTheStake/bonemeal/internal/logging"
	"github.com/SteakTheStake/bonemeal/internal/normalmap"
	"github.com/SteakTheStake/bonemeal/internal/pixel"
)

// ErrInvalidDimensions marks a source image without a usable size.
var ErrInvalidDimensions = errors.New("source image has no valid dimensions")

// dielectricF0 is the green value written into generated specular maps,
// a 4% reflectance typical for non-metals.
const dielectricF0 = 10

// aoAttenuation darkens the blurred occlusion estimate.
const aoAttenuation = 0.7

// MapKind names one slot of a MapSet.
type MapKind string

const (
	MapBaseColor MapKind = "basecolor"
	MapNormal    MapKind = "normal"
	MapSpecular  MapKind = "specular"
	MapHeight    MapKind = "height"
	MapAO        MapKind = "ao"
)

// MapSet holds the generated maps as encoded PNG bytes. A map whose
// generation flag was off is an empty slice, never nil, so downstream
// writers can treat every slot uniformly.
type MapSet struct {
	BaseColor []byte
	Normal    []byte
	Specular  []byte
	Height    []byte
	AO        []byte
}

// Entry is one populated MapSet slot.
type Entry struct {
	Kind MapKind
	Data []byte
}

// Entries returns the non-empty maps in stable order.
func (m *MapSet) Entries() []Entry {
	all := []Entry{
		{MapBaseColor, m.BaseColor},
		{MapNormal, m.Normal},
		{MapSpecular, m.Specular},
		{MapHeight, m.Height},
		{MapAO, m.AO},
	}
	out := make([]Entry, 0, len(all))
	for _, e := range all {
		if len(e.Data) > 0 {
			out = append(out, e)
		}
	}
	return out
}

// Empty reports whether no map was generated.
func (m *MapSet) Empty() bool { return len(m.Entries()) == 0 }

// Config wires a Processor.
type Config struct {
	// Estimator supplies depth buffers for normal and height maps.
	// Nil falls back to the local luminance estimator.
	Estimator depth.Estimator

	// Kernel and Convention tune normal synthesis; zero values keep
	// the cross kernel and OpenGL green channel.
	Kernel     normalmap.Kernel
	Convention normalmap.Convention

	Logger *slog.Logger
}

// Processor derives material maps from source images. Safe for
// concurrent use; all state is read-only after construction.
type Processor struct {
	estimator  depth.Estimator
	kernel     normalmap.Kernel
	convention normalmap.Convention
	log        *slog.Logger
}

// New builds a Processor from cfg, filling defaults.
func New(cfg Config) *Processor {
	est := cfg.Estimator
	if est == nil {
		est = depth.Luma{}
	}
	log := cfg.Logger
	if log == nil {
		log = logging.Nop()
	}
	return &Processor{
		estimator:  est,
		kernel:     cfg.Kernel,
		convention: cfg.Convention,
		log:        log,
	}
}

// Process generates the maps requested by s from one decoded source.
// Steps are independent: each consumes only the source (and the depth
// buffer, fetched at most once per call) and fails the whole call on
// error. The returned set contains empty slices for unrequested maps.
func (p *Processor) Process(ctx context.Context, src *pixel.Buffer, s Settings) (*MapSet, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if src == nil || src.W <= 0 || src.H <= 0 {
		return nil, ErrInvalidDimensions
	}
	p.log.Debug("processing texture", "width", src.W, "height", src.H)

	set := &MapSet{
		BaseColor: []byte{},
		Normal:    []byte{},
		Specular:  []byte{},
		Height:    []byte{},
		AO:        []byte{},
	}

	if s.GenerateBaseColor {
		data, err := p.baseColor(src, s)
		if err != nil {
			return nil, fmt.Errorf("base color: %w", err)
		}
		set.BaseColor = data
	}
	if s.GenerateRoughness {
		data, err := p.specular(src, s)
		if err != nil {
			return nil, fmt.Errorf("specular: %w", err)
		}
		set.Specular = data
	}

	if s.GenerateHeight || s.GenerateNormal {
		depthBuf, err := p.estimator.Estimate(ctx, src)
		if err != nil {
			return nil, fmt.Errorf("estimate depth: %w", err)
		}
		if s.GenerateHeight {
			data, err := heightMap(depthBuf, s.HeightDepth)
			if err != nil {
				return nil, fmt.Errorf("height: %w", err)
			}
			set.Height = data
		}
		if s.GenerateNormal {
			data, err := p.normal(depthBuf, s)
			if err != nil {
				return nil, fmt.Errorf("normal: %w", err)
			}
			set.Normal = data
		}
	}

	if s.GenerateAO {
		data, err := p.ambientOcclusion(src, s)
		if err != nil {
			return nil, fmt.Errorf("ambient occlusion: %w", err)
		}
		set.AO = data
	}

	for _, e := range set.Entries() {
		p.log.Debug("generated map", "kind", string(e.Kind), "bytes", len(e.Data))
	}
	return set, nil
}

// baseColor applies a linear contrast adjustment around the midpoint.
// Contrast 1 passes the image through; imaging expects a percentage
// offset, so the setting maps to (contrast-1)*100.
func (p *Processor) baseColor(src *pixel.Buffer, s Settings) ([]byte, error) {
	adjusted := imaging.AdjustContrast(src.ToNRGBA(), (s.BaseColorContrast-1)*100)
	return pixel.FromImage(adjusted).EncodePNG()
}

// specular packs a LabPBR specular map: red carries smoothness derived
// from luminance, green a fixed dielectric F0, blue and alpha stay
// zero (no porosity, no emission).
func (p *Processor) specular(src *pixel.Buffer, s Settings) ([]byte, error) {
	gray := src.ToGray()
	out := pixel.New(src.W, src.H, 4)
	di := 0
	for _, v := range gray.Pix {
		sm := float64(v) / 255
		if s.RoughnessInvert {
			sm = 1 - sm
		}
		out.Pix[di] = uint8(math.Round(sm * s.RoughnessIntensity * 255))
		out.Pix[di+1] = dielectricF0
		di += 4
	}
	return out.EncodePNG()
}

// heightMap scales the estimated depth into the height channel range.
func heightMap(depthBuf *pixel.Buffer, heightDepth float64) ([]byte, error) {
	out := pixel.New(depthBuf.W, depthBuf.H, 1)
	for i, v := range depthBuf.Pix {
		out.Pix[i] = uint8(math.Round(float64(v) * heightDepth))
	}
	return out.EncodePNG()
}

func (p *Processor) normal(depthBuf *pixel.Buffer, s Settings) ([]byte, error) {
	nm, err := normalmap.FromDepth(depthBuf, normalmap.Options{
		Strength:   s.NormalStrength,
		Kernel:     p.kernel,
		Convention: p.convention,
	})
	if err != nil {
		return nil, err
	}
	return nm.EncodePNG()
}

// ambientOcclusion approximates occlusion as darkened blurred
// luminance. The blur radius grows with the setting and never drops
// below one pixel.
func (p *Processor) ambientOcclusion(src *pixel.Buffer, s Settings) ([]byte, error) {
	radius := s.AORadius * 10
	if radius < 1 {
		radius = 1
	}
	blurred := imaging.Blur(imaging.Grayscale(src.ToNRGBA()), radius)
	ao := imaging.AdjustFunc(blurred, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{
			R: uint8(float64(c.R) * aoAttenuation),
			G: uint8(float64(c.G) * aoAttenuation),
			B: uint8(float64(c.B) * aoAttenuation),
			A: c.A,
		}
	})
	return pixel.FromImage(ao).EncodePNG()
}
