package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/SteakTheStake/bonemeal/internal/labpbr"
	"github.com/SteakTheStake/bonemeal/internal/pixel"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <specular_texture>",
	Short: "Report material statistics for a packed specular texture",
	Long: `Walks a packed specular texture and reports channel averages,
dielectric and metal coverage, porosity and subsurface scattering
populations, and the nearest reference material by average F0.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(_ *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	buf, format, err := pixel.Decode(filepath.Base(args[0]), data)
	if err != nil {
		return fmt.Errorf("decode %s: %w", args[0], err)
	}

	printMaterialReport(filepath.Base(args[0]), format, buf, labpbr.Analyze(buf))
	return nil
}

func printMaterialReport(name, format string, buf *pixel.Buffer, r *labpbr.Report) {
	fmt.Println()
	fmt.Printf("  Texture:          %s (%s, %dx%d)\n", name, format, buf.W, buf.H)
	fmt.Printf("  Pixels:           %d\n", r.TotalPixels)
	fmt.Printf("  Avg channels:     R=%.1f G=%.1f B=%.1f A=%.1f\n",
		r.AvgRed, r.AvgGreen, r.AvgBlue, r.AvgAlpha)
	fmt.Println()

	fmt.Printf("  Dielectric:       %.1f%%\n", r.DielectricPct)
	fmt.Printf("  Metal:            %.1f%%\n", r.MetalPct)
	if r.DielectricPct > 0 {
		fmt.Printf("  Avg F0:           %.1f encoded (%.1f%%)\n", r.AvgF0Encoded, r.AvgF0Percent)
	}
	if r.TopMetalCode >= 0 {
		metalName := r.TopMetalName
		if metalName == "" {
			metalName = "non-standard"
		}
		fmt.Printf("  Top metal:        %d (%s)\n", r.TopMetalCode, metalName)
	}
	fmt.Println()

	if len(r.MetalCodes) > 0 {
		fmt.Println("  Metal breakdown:")
		var codes []int
		for c := range r.MetalCodes {
			codes = append(codes, c)
		}
		sort.Ints(codes)
		for _, c := range codes {
			metalName, _ := labpbr.MetalName(c)
			if metalName == "" {
				metalName = "-"
			}
			fmt.Printf("    %3d  %-10s %6d px\n", c, metalName, r.MetalCodes[c])
		}
		fmt.Println()
	}

	if r.PorosityPct > 0 || r.SSSPct > 0 {
		fmt.Printf("  Porosity:         %.1f%% of pixels (avg %.2f)\n", r.PorosityPct, r.AvgPorosity)
		fmt.Printf("  Subsurface:       %.1f%% of pixels (avg %.2f)\n", r.SSSPct, r.AvgSSS)
		fmt.Println()
	}

	if r.TotalPixels > 0 {
		fmt.Println("  Smoothness distribution:")
		var bands [4]int
		for v, n := range r.RedHistogram {
			bands[v/64] += n
		}
		labels := [4]string{"  0-63", " 64-127", "128-191", "192-255"}
		for i, n := range bands {
			pct := float64(n) / float64(r.TotalPixels) * 100
			fmt.Printf("    %s  %5.1f%%\n", labels[i], pct)
		}
		fmt.Println()
	}

	if r.Match != nil {
		fmt.Printf("  Nearest material: %s %s\n",
			pathStyle.Render(r.Match.Name), faintStyle.Render("("+r.Match.Category+")"))
		fmt.Printf("    encoded F0 %d, reflectance %.2f%%, Δ%.1f\n",
			r.Match.F0, r.Match.ReflectancePercent(), r.Match.Difference)
		if r.Match.Notes != "" {
			fmt.Printf("    %s\n", faintStyle.Render(r.Match.Notes))
		}
		fmt.Println()
	}

	if len(r.Warnings) > 0 {
		fmt.Printf("  Warnings (%d):\n", len(r.Warnings))
		for _, w := range r.Warnings {
			fmt.Printf("    %s\n", warnStyle.Render("⚠ "+w))
		}
		fmt.Println()
	}
}
