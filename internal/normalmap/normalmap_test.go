package normalmap

import (
	"testing"

	"github.com/SteakTheStake/bonemeal/internal/pixel"
)

func flatDepth(w, h int, v uint8) *pixel.Buffer {
	b := pixel.New(w, h, 1)
	for i := range b.Pix {
		b.Pix[i] = v
	}
	return b
}

// rampX builds a depth buffer increasing by step per pixel along x.
func rampX(w, h int, step uint8) *pixel.Buffer {
	b := pixel.New(w, h, 1)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			b.Pix[y*w+x] = uint8(x) * step
		}
	}
	return b
}

func TestFromDepthFlat(t *testing.T) {
	for _, kernel := range []Kernel{KernelCross, KernelSobel} {
		for _, v := range []uint8{0, 77, 255} {
			out, err := FromDepth(flatDepth(5, 4, v), Options{Kernel: kernel})
			if err != nil {
				t.Fatalf("kernel %d value %d: %v", kernel, v, err)
			}
			for i := 0; i < len(out.Pix); i += 3 {
				r, g, b := out.Pix[i], out.Pix[i+1], out.Pix[i+2]
				if r < 127 || r > 129 || g < 127 || g > 129 || b != 255 {
					t.Fatalf("kernel %d value %d pixel %d: got (%d,%d,%d), want (~128,~128,255)",
						kernel, v, i/3, r, g, b)
				}
			}
		}
	}
}

func TestFromDepthRampX(t *testing.T) {
	out, err := FromDepth(rampX(6, 3, 10), Options{})
	if err != nil {
		t.Fatal(err)
	}

	// Interior: central difference = 20, nx = -20/255, R = 127.5 - 10 → 118.
	i := (1*6 + 2) * 3
	if out.Pix[i] != 118 {
		t.Errorf("interior R: got %d, want 118", out.Pix[i])
	}
	if out.Pix[i+1] != 128 {
		t.Errorf("interior G: got %d, want 128", out.Pix[i+1])
	}
	if out.Pix[i+2] != 254 {
		t.Errorf("interior B: got %d, want 254", out.Pix[i+2])
	}

	// Left edge: clamped sampling halves the difference, R = 127.5 - 5 → 123.
	if got := out.Pix[(1*6+0)*3]; got != 123 {
		t.Errorf("edge R: got %d, want 123", got)
	}
}

func TestStrengthScalesGradient(t *testing.T) {
	weak, err := FromDepth(rampX(6, 3, 10), Options{Strength: 1})
	if err != nil {
		t.Fatal(err)
	}
	strong, err := FromDepth(rampX(6, 3, 10), Options{Strength: 3})
	if err != nil {
		t.Fatal(err)
	}

	i := (1*6 + 2) * 3
	dWeak := 128 - int(weak.Pix[i])
	dStrong := 128 - int(strong.Pix[i])
	if dStrong <= dWeak {
		t.Errorf("strength 3 should deflect more than strength 1: %d vs %d", dStrong, dWeak)
	}
}

func TestStrengthFloor(t *testing.T) {
	tiny, err := FromDepth(rampX(6, 3, 10), Options{Strength: 0.0001})
	if err != nil {
		t.Fatal(err)
	}
	floor, err := FromDepth(rampX(6, 3, 10), Options{Strength: minStrength})
	if err != nil {
		t.Fatal(err)
	}
	for i := range tiny.Pix {
		if tiny.Pix[i] != floor.Pix[i] {
			t.Fatalf("strength below floor not clamped: byte %d differs", i)
		}
	}
}

func TestConventionFlipsGreen(t *testing.T) {
	// Ramp along y so the green channel carries the slope.
	depth := pixel.New(3, 6, 1)
	for y := 0; y < 6; y++ {
		for x := 0; x < 3; x++ {
			depth.Pix[y*3+x] = uint8(y) * 10
		}
	}

	gl, err := FromDepth(depth, Options{Convention: OpenGL})
	if err != nil {
		t.Fatal(err)
	}
	dx, err := FromDepth(depth, Options{Convention: DirectX})
	if err != nil {
		t.Fatal(err)
	}

	i := (2*3 + 1) * 3
	if gl.Pix[i+1] != 138 {
		t.Errorf("OpenGL G: got %d, want 138", gl.Pix[i+1])
	}
	if dx.Pix[i+1] != 118 {
		t.Errorf("DirectX G: got %d, want 118", dx.Pix[i+1])
	}
	// Red and blue are unaffected by the green sign.
	if gl.Pix[i] != dx.Pix[i] || gl.Pix[i+2] != dx.Pix[i+2] {
		t.Error("convention changed a non-green channel")
	}
}

func TestFromDepthRejectsMultiChannel(t *testing.T) {
	if _, err := FromDepth(pixel.New(2, 2, 4), Options{}); err == nil {
		t.Error("expected error for 4-channel input")
	}
	if _, err := FromDepth(nil, Options{}); err == nil {
		t.Error("expected error for nil input")
	}
	if _, err := FromDepth(pixel.New(0, 0, 1), Options{}); err == nil {
		t.Error("expected error for empty input")
	}
}

func TestFromImageMatchesLumaDepth(t *testing.T) {
	src := pixel.New(4, 4, 4)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			i := (y*4 + x) * 4
			v := uint8(x * 40)
			src.Pix[i], src.Pix[i+1], src.Pix[i+2], src.Pix[i+3] = v, v, v, 255
		}
	}

	fromImg, err := FromImage(src, Options{})
	if err != nil {
		t.Fatal(err)
	}
	fromDepth, err := FromDepth(pixel.FromGray(src.ToGray()), Options{})
	if err != nil {
		t.Fatal(err)
	}
	for i := range fromImg.Pix {
		if fromImg.Pix[i] != fromDepth.Pix[i] {
			t.Fatalf("byte %d: FromImage %d != FromDepth %d", i, fromImg.Pix[i], fromDepth.Pix[i])
		}
	}
}

func BenchmarkFromDepth(b *testing.B) {
	depth := rampX(256, 256, 1)
	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := FromDepth(depth, Options{}); err != nil {
			b.Fatal(err)
		}
	}
}
