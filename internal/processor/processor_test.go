package processor

import (
	"context"
	"errors"
	"testing"

	"github.com/SteakTheStake/bonemeal/internal/depth"
	"github.com/SteakTheStake/bonemeal/internal/pixel"
)

type stubEstimator struct {
	buf   *pixel.Buffer
	err   error
	calls int
}

func (s *stubEstimator) Estimate(_ context.Context, _ *pixel.Buffer) (*pixel.Buffer, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.buf, nil
}

func solid(w, h int, r, g, b, a uint8) *pixel.Buffer {
	buf := pixel.New(w, h, 4)
	for i := 0; i < len(buf.Pix); i += 4 {
		buf.Pix[i] = r
		buf.Pix[i+1] = g
		buf.Pix[i+2] = b
		buf.Pix[i+3] = a
	}
	return buf
}

func flatDepth(w, h int, v uint8) *pixel.Buffer {
	buf := pixel.New(w, h, 1)
	for i := range buf.Pix {
		buf.Pix[i] = v
	}
	return buf
}

func decodePNG(t *testing.T, data []byte) *pixel.Buffer {
	t.Helper()
	buf, format, err := pixel.Decode("map.png", data)
	if err != nil {
		t.Fatalf("decode generated map: %v", err)
	}
	if format != "png" {
		t.Fatalf("generated map format = %q, want png", format)
	}
	return buf
}

func allSettings() Settings {
	return Preset("default")
}

func TestProcessInvalidDimensions(t *testing.T) {
	p := New(Config{})
	for _, src := range []*pixel.Buffer{nil, {}, pixel.New(0, 8, 4)} {
		_, err := p.Process(context.Background(), src, allSettings())
		if !errors.Is(err, ErrInvalidDimensions) {
			t.Errorf("src %+v: err = %v, want ErrInvalidDimensions", src, err)
		}
	}
}

func TestProcessBadSettings(t *testing.T) {
	p := New(Config{})
	s := allSettings()
	s.NormalStrength = 5
	if _, err := p.Process(context.Background(), solid(4, 4, 0, 0, 0, 255), s); !errors.Is(err, ErrBadSettings) {
		t.Errorf("err = %v, want ErrBadSettings", err)
	}
}

func TestProcessRequestedMapsOnly(t *testing.T) {
	// a failing estimator proves depth is never fetched for these maps
	est := &stubEstimator{err: depth.ErrUnavailable}
	p := New(Config{Estimator: est})

	s := Settings{GenerateBaseColor: true, BaseColorContrast: 1}
	set, err := p.Process(context.Background(), solid(8, 8, 50, 60, 70, 255), s)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(set.BaseColor) == 0 {
		t.Error("base color missing")
	}
	for name, m := range map[string][]byte{
		"normal": set.Normal, "specular": set.Specular,
		"height": set.Height, "ao": set.AO,
	} {
		if m == nil {
			t.Errorf("%s map is nil, want empty slice", name)
		}
		if len(m) != 0 {
			t.Errorf("%s map generated without its flag", name)
		}
	}
	if est.calls != 0 {
		t.Errorf("estimator called %d times without depth-dependent maps", est.calls)
	}
	if got := set.Entries(); len(got) != 1 || got[0].Kind != MapBaseColor {
		t.Errorf("Entries() = %+v, want single basecolor entry", got)
	}
}

func TestProcessDepthFailureFailsCall(t *testing.T) {
	est := &stubEstimator{err: depth.ErrUnavailable}
	p := New(Config{Estimator: est})

	s := Settings{GenerateNormal: true, NormalStrength: 1}
	_, err := p.Process(context.Background(), solid(4, 4, 0, 0, 0, 255), s)
	if !errors.Is(err, depth.ErrUnavailable) {
		t.Fatalf("err = %v, want depth.ErrUnavailable in chain", err)
	}
}

func TestProcessDepthFetchedOnce(t *testing.T) {
	est := &stubEstimator{buf: flatDepth(4, 4, 128)}
	p := New(Config{Estimator: est})

	s := Settings{GenerateNormal: true, GenerateHeight: true, NormalStrength: 1, HeightDepth: 1}
	set, err := p.Process(context.Background(), solid(4, 4, 0, 0, 0, 255), s)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if est.calls != 1 {
		t.Errorf("estimator calls = %d, want 1 shared fetch", est.calls)
	}
	if len(set.Normal) == 0 || len(set.Height) == 0 {
		t.Error("normal or height map missing")
	}
}

func TestProcessNormalFromFlatDepth(t *testing.T) {
	est := &stubEstimator{buf: flatDepth(8, 8, 90)}
	p := New(Config{Estimator: est})

	s := Settings{GenerateNormal: true, NormalStrength: 1}
	set, err := p.Process(context.Background(), solid(8, 8, 10, 20, 30, 255), s)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	nm := decodePNG(t, set.Normal)
	if nm.W != 8 || nm.H != 8 {
		t.Fatalf("normal map = %dx%d, want 8x8", nm.W, nm.H)
	}
	for i := 0; i < len(nm.Pix); i += 4 {
		r, g, b := nm.Pix[i], nm.Pix[i+1], nm.Pix[i+2]
		if r != 128 || g != 128 || b != 255 {
			t.Fatalf("pixel %d = (%d,%d,%d), want flat normal (128,128,255)", i/4, r, g, b)
		}
	}
}

func TestProcessHeightScaling(t *testing.T) {
	est := &stubEstimator{buf: flatDepth(4, 4, 200)}
	p := New(Config{Estimator: est})

	s := Settings{GenerateHeight: true, HeightDepth: 0.5}
	set, err := p.Process(context.Background(), solid(4, 4, 0, 0, 0, 255), s)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	hm := decodePNG(t, set.Height)
	if got := hm.Pix[0]; got != 100 {
		t.Errorf("height value = %d, want 200*0.5 = 100", got)
	}
}

func TestProcessBaseColorPassthrough(t *testing.T) {
	src := solid(4, 4, 40, 80, 120, 255)
	p := New(Config{})

	s := Settings{GenerateBaseColor: true, BaseColorContrast: 1}
	set, err := p.Process(context.Background(), src, s)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	bc := decodePNG(t, set.BaseColor)
	for i := 0; i < len(bc.Pix); i += 4 {
		if bc.Pix[i] != 40 || bc.Pix[i+1] != 80 || bc.Pix[i+2] != 120 {
			t.Fatalf("contrast 1 altered pixels: got (%d,%d,%d)", bc.Pix[i], bc.Pix[i+1], bc.Pix[i+2])
		}
	}
}

func TestProcessBaseColorContrast(t *testing.T) {
	src := solid(4, 4, 100, 100, 100, 255)
	p := New(Config{})

	s := Settings{GenerateBaseColor: true, BaseColorContrast: 2}
	set, err := p.Process(context.Background(), src, s)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	bc := decodePNG(t, set.BaseColor)
	// max contrast pushes values below the midpoint toward black
	if got := bc.Pix[0]; got >= 100 {
		t.Errorf("contrast 2 on dark gray = %d, want pushed below 100", got)
	}

	s.BaseColorContrast = 0
	set, err = p.Process(context.Background(), src, s)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	bc = decodePNG(t, set.BaseColor)
	// zero contrast collapses everything onto the midpoint
	if got := bc.Pix[0]; got < 126 || got > 129 {
		t.Errorf("contrast 0 = %d, want the midpoint", got)
	}
}

func TestProcessSpecularPacking(t *testing.T) {
	p := New(Config{})

	cases := []struct {
		name  string
		src   *pixel.Buffer
		s     Settings
		wantR uint8
	}{
		{
			name:  "white full intensity",
			src:   solid(4, 4, 255, 255, 255, 255),
			s:     Settings{GenerateRoughness: true, RoughnessIntensity: 1},
			wantR: 255,
		},
		{
			name:  "white half intensity",
			src:   solid(4, 4, 255, 255, 255, 255),
			s:     Settings{GenerateRoughness: true, RoughnessIntensity: 0.5},
			wantR: 128,
		},
		{
			name:  "black inverted",
			src:   solid(4, 4, 0, 0, 0, 255),
			s:     Settings{GenerateRoughness: true, RoughnessIntensity: 1, RoughnessInvert: true},
			wantR: 255,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			set, err := p.Process(context.Background(), tc.src, tc.s)
			if err != nil {
				t.Fatalf("Process: %v", err)
			}
			sp := decodePNG(t, set.Specular)
			r, g, b, a := sp.Pix[0], sp.Pix[1], sp.Pix[2], sp.Pix[3]
			if r != tc.wantR {
				t.Errorf("R = %d, want %d", r, tc.wantR)
			}
			if g != dielectricF0 {
				t.Errorf("G = %d, want dielectric F0 %d", g, dielectricF0)
			}
			if b != 0 || a != 0 {
				t.Errorf("B/A = %d/%d, want 0/0 (no porosity, no emission)", b, a)
			}
		})
	}
}

func TestProcessAO(t *testing.T) {
	p := New(Config{})

	s := Settings{GenerateAO: true, AORadius: 0} // radius floors at 1
	set, err := p.Process(context.Background(), solid(8, 8, 255, 255, 255, 255), s)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	ao := decodePNG(t, set.AO)
	// white source: blur keeps 255, attenuation scales by 0.7
	wantF := float64(255) * aoAttenuation
	want := uint8(wantF)
	for i := 0; i < len(ao.Pix); i += 4 {
		if ao.Pix[i] != want {
			t.Fatalf("AO value = %d, want %d", ao.Pix[i], want)
		}
		if ao.Pix[i] != ao.Pix[i+1] || ao.Pix[i+1] != ao.Pix[i+2] {
			t.Fatalf("AO not grayscale: (%d,%d,%d)", ao.Pix[i], ao.Pix[i+1], ao.Pix[i+2])
		}
	}
}

func TestMapSetEmpty(t *testing.T) {
	set := &MapSet{BaseColor: []byte{}, Normal: []byte{}, Specular: []byte{}, Height: []byte{}, AO: []byte{}}
	if !set.Empty() {
		t.Error("all-empty set not reported empty")
	}
	set.Normal = []byte{1}
	if set.Empty() {
		t.Error("set with a normal map reported empty")
	}
	if e := set.Entries(); len(e) != 1 || e[0].Kind != MapNormal {
		t.Errorf("Entries() = %+v", e)
	}
}
