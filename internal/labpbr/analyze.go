package labpbr

import (
	"fmt"

	"github.com/SteakTheStake/bonemeal/internal/pixel"
)

// Report aggregates the material content of one specular texture.
// Percentages are relative to the total pixel count; averages over an
// empty population are zero, never NaN.
type Report struct {
	TotalPixels int

	AvgRed   float64
	AvgGreen float64
	AvgBlue  float64
	AvgAlpha float64

	// Dielectric population: green 1..229.
	AvgF0Encoded  float64
	AvgF0Percent  float64
	DielectricPct float64

	// Metal population: green 230..255.
	MetalPct     float64
	MetalCodes   map[int]int
	TopMetalCode int    // -1 when no metal pixels
	TopMetalName string // empty for 255 and reserved codes

	// Blue-channel split of the dielectric population.
	PorosityPct float64
	SSSPct      float64
	AvgPorosity float64 // normalized 0..1
	AvgSSS      float64 // normalized 0..1

	RedHistogram [256]int

	Match    *Match // nil when no dielectric pixels exist
	Warnings []string
}

// Analyze walks a specular buffer once and reports channel statistics,
// metal/dielectric coverage and the closest catalog material.
func Analyze(buf *pixel.Buffer) *Report {
	rep := &Report{TopMetalCode: -1, MetalCodes: map[int]int{}}

	if buf == nil || buf.W*buf.H == 0 || len(buf.Pix) == 0 {
		rep.Warnings = append(rep.Warnings, "no pixel data found in image")
		return rep
	}
	if buf.Channels < 3 {
		rep.Warnings = append(rep.Warnings,
			fmt.Sprintf("texture has %d channel(s); specular analysis needs RGB(A)", buf.Channels))
		return rep
	}

	var (
		sumR, sumG, sumB, sumA uint64
		dielectricCount        int
		sumF0                  uint64
		metalCount             int
		porosityCount          int
		sssCount               int
		sumPorosity            float64
		sumSSS                 float64
		nearEmissive           int
	)

	ch := buf.Channels
	pix := buf.Pix
	total := buf.W * buf.H
	for i := 0; i+ch <= len(pix); i += ch {
		r, g, b := pix[i], pix[i+1], pix[i+2]
		sumR += uint64(r)
		sumG += uint64(g)
		sumB += uint64(b)
		rep.RedHistogram[r]++

		switch {
		case g >= MetalCodeMin:
			metalCount++
			rep.MetalCodes[int(g)]++
		case g > 0:
			dielectricCount++
			sumF0 += uint64(g)
			if b <= MaxPorosity {
				porosityCount++
				sumPorosity += float64(b) / float64(MaxPorosity)
			} else {
				sssCount++
				sumSSS += float64(b-sssOffset) / float64(sssRange)
			}
		}

		if ch == 4 {
			a := pix[i+3]
			sumA += uint64(a)
			if a >= 250 && a < 255 {
				nearEmissive++
			}
		}
	}

	rep.TotalPixels = total
	ft := float64(total)
	rep.AvgRed = float64(sumR) / ft
	rep.AvgGreen = float64(sumG) / ft
	rep.AvgBlue = float64(sumB) / ft
	if ch == 4 {
		rep.AvgAlpha = float64(sumA) / ft
	}
	rep.DielectricPct = float64(dielectricCount) / ft * 100
	rep.MetalPct = float64(metalCount) / ft * 100
	rep.PorosityPct = float64(porosityCount) / ft * 100
	rep.SSSPct = float64(sssCount) / ft * 100

	if dielectricCount > 0 {
		rep.AvgF0Encoded = float64(sumF0) / float64(dielectricCount)
		rep.AvgF0Percent = rep.AvgF0Encoded / 255 * 100
		m := NearestMaterial(rep.AvgF0Encoded)
		rep.Match = &m
	}
	if porosityCount > 0 {
		rep.AvgPorosity = sumPorosity / float64(porosityCount)
	}
	if sssCount > 0 {
		rep.AvgSSS = sumSSS / float64(sssCount)
	}
	if metalCount > 0 {
		best, bestCount := -1, 0
		for code := MetalCodeMin; code <= 255; code++ {
			if c := rep.MetalCodes[code]; c > bestCount {
				best, bestCount = code, c
			}
		}
		rep.TopMetalCode = best
		rep.TopMetalName, _ = MetalName(best)
	}

	rep.Warnings = warningsFor(rep, dielectricCount, metalCount, porosityCount, sssCount, nearEmissive)
	return rep
}

// warningsFor applies the independent quality heuristics; any number of
// them may fire on the same texture.
func warningsFor(rep *Report, dielectric, metal, porosity, sss, nearEmissive int) []string {
	var w []string
	if dielectric == 0 && metal == 0 {
		w = append(w, "no LabPBR content found (green channel carries no F0 or metal data)")
	}
	if dielectric > 0 && metal > 0 {
		w = append(w, fmt.Sprintf("texture mixes dielectric (%.1f%%) and metal (%.1f%%) pixels",
			rep.DielectricPct, rep.MetalPct))
	}
	if metal > 0 && (rep.TopMetalCode < MetalCodeMin || rep.TopMetalCode > MetalCodeMax) {
		w = append(w, fmt.Sprintf("metal codes outside standard 230-237 range (top code %d)", rep.TopMetalCode))
	}
	if rep.AvgF0Encoded > MaxDielectricF0 {
		w = append(w, fmt.Sprintf("average F0 %.0f drifted into the metal range", rep.AvgF0Encoded))
	}
	if nearEmissive > 0 {
		w = append(w, fmt.Sprintf("%d pixel(s) carry near-emissive alpha 250-254; 254 already means 100%%", nearEmissive))
	}
	if porosity > 0 && sss > 0 {
		w = append(w, fmt.Sprintf("texture mixes porosity (%.1f%%) and subsurface scattering (%.1f%%)",
			rep.PorosityPct, rep.SSSPct))
	}
	return w
}
