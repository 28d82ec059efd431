package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/SteakTheStake/bonemeal/internal/depth"
	"github.com/SteakTheStake/bonemeal/internal/jobs"
	"github.com/SteakTheStake/bonemeal/internal/logging"
	"github.com/SteakTheStake/bonemeal/internal/processor"
	"github.com/SteakTheStake/bonemeal/internal/respack"
)

var (
	convertOut       string
	convertPreset    string
	convertUnpack    bool
	convertInputType string

	convertBaseColor  bool
	convertRoughness  bool
	convertNormal     bool
	convertHeight     bool
	convertAO         bool
	convertContrast   float64
	convertIntensity  float64
	convertInvert     bool
	convertStrength   float64
	convertDepthScale float64
	convertAORadius   float64
)

var convertCmd = &cobra.Command{
	Use:   "convert <input>",
	Short: "Convert an image or resource pack into LabPBR material maps",
	Long: `Converts a single texture or a whole resource pack archive into LabPBR
material maps: base color, packed specular (_s), normal (_n), height (_h)
and ambient occlusion (_ao).

Depth comes from a remote estimation endpoint when configured, with a
local luminance fallback. Generated packed maps are validated against
the LabPBR channel contract and the result is written as a resource
pack archive with a conversion manifest.`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	f := convertCmd.Flags()
	f.StringVarP(&convertOut, "out", "o", "", "output archive path (default <input>_labpbr.zip)")
	f.StringVarP(&convertPreset, "preset", "p", "default", "settings preset: "+strings.Join(processor.PresetNames(), "|"))
	f.BoolVar(&convertUnpack, "unpack", false, "unpack the output into a directory instead of writing a zip")
	f.StringVar(&convertInputType, "input-type", "", "single|sequence|resourcepack (default: detect)")

	f.BoolVar(&convertBaseColor, "base-color", true, "generate the base color map")
	f.BoolVar(&convertRoughness, "roughness", true, "generate the packed specular map")
	f.BoolVar(&convertNormal, "normal", true, "generate the normal map")
	f.BoolVar(&convertHeight, "height", true, "generate the height map")
	f.BoolVar(&convertAO, "ao", true, "generate the ambient occlusion map")
	f.Float64Var(&convertContrast, "contrast", 1, "base color contrast (0..2)")
	f.Float64Var(&convertIntensity, "intensity", 0.5, "roughness intensity (0..1)")
	f.BoolVar(&convertInvert, "invert", false, "treat dark texels as smooth")
	f.Float64Var(&convertStrength, "strength", 1, "normal strength (0..3)")
	f.Float64Var(&convertDepthScale, "depth-scale", 0.5, "height depth scale (0..1)")
	f.Float64Var(&convertAORadius, "ao-radius", 0.5, "ambient occlusion radius (0..1)")

	f.IntP("workers", "w", 0, "concurrent conversion jobs (0 = NumCPU)")
	f.String("depth-endpoint", "", "remote depth estimation endpoint (empty = local estimator)")
	f.String("depth-api-key", "", "bearer token for the depth endpoint")
	f.Duration("depth-timeout", time.Minute, "remote depth request timeout")
	f.Int("depth-retries", 3, "remote depth retry budget")
	f.Int("pack-format", respack.DefaultPackFormat, "pack_format for a generated pack.mcmeta")

	binds := []struct {
		key  string
		flag string
	}{
		{"convert.workers", "workers"},
		{"depth.endpoint", "depth-endpoint"},
		{"depth.api-key", "depth-api-key"},
		{"depth.timeout", "depth-timeout"},
		{"depth.retries", "depth-retries"},
		{"pack.format", "pack-format"},
	}
	for _, b := range binds {
		if err := viper.BindPFlag(b.key, f.Lookup(b.flag)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", b.flag, err))
		}
	}

	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	input := args[0]
	start := time.Now()

	data, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	set := settingsFromFlags(cmd)

	logger := logging.Nop()
	if verbose {
		logger = logging.New(os.Stderr, true)
	}

	var est depth.Estimator
	if endpoint := viper.GetString("depth.endpoint"); endpoint != "" {
		dcfg := depth.Config{
			Endpoint:    endpoint,
			APIKey:      viper.GetString("depth.api-key"),
			MaxAttempts: viper.GetInt("depth.retries"),
			Logger:      logger,
		}
		if d := viper.GetDuration("depth.timeout"); d > 0 {
			dcfg.HTTPClient = &http.Client{Timeout: d}
		}
		est = depth.NewClient(dcfg)
		logVerbose("depth endpoint: %s", endpoint)
	}

	svc := jobs.NewService(jobs.Config{
		Processor:  processor.New(processor.Config{Estimator: est, Logger: logger}),
		Workers:    viper.GetInt("convert.workers"),
		Generator:  "bonemeal " + version,
		PackFormat: viper.GetInt("pack.format"),
		Logger:     logger,
	})

	id, err := svc.Submit(cmd.Context(), filepath.Base(input), data, set)
	if err != nil {
		return err
	}
	logVerbose("job: %s", id)

	job, err := watchJob(cmd.Context(), svc, id)
	if err != nil {
		return err
	}
	if job.State != jobs.StateCompleted {
		for _, msg := range job.Errors {
			fmt.Fprintf(os.Stderr, "  ✗ %s\n", msg)
		}
		return fmt.Errorf("conversion failed")
	}

	blob, err := svc.Download(id)
	if err != nil {
		return err
	}

	outPath := convertOut
	if outPath == "" {
		outPath = strings.TrimSuffix(input, filepath.Ext(input)) + "_labpbr.zip"
	}

	if convertUnpack {
		dir := strings.TrimSuffix(outPath, ".zip")
		if err := unpackArchive(blob, dir); err != nil {
			return fmt.Errorf("unpack output: %w", err)
		}
		printConvertReport(job, dir, int64(len(blob)), time.Since(start))
		return nil
	}

	if err := os.WriteFile(outPath, blob, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	printConvertReport(job, outPath, int64(len(blob)), time.Since(start))
	return nil
}

// settingsFromFlags starts from the chosen preset and applies only the
// tuning flags the user actually set.
func settingsFromFlags(cmd *cobra.Command) processor.Settings {
	set := processor.Preset(convertPreset)
	f := cmd.Flags()

	if f.Changed("base-color") {
		set.GenerateBaseColor = convertBaseColor
	}
	if f.Changed("roughness") {
		set.GenerateRoughness = convertRoughness
	}
	if f.Changed("normal") {
		set.GenerateNormal = convertNormal
	}
	if f.Changed("height") {
		set.GenerateHeight = convertHeight
	}
	if f.Changed("ao") {
		set.GenerateAO = convertAO
	}
	if f.Changed("contrast") {
		set.BaseColorContrast = convertContrast
	}
	if f.Changed("intensity") {
		set.RoughnessIntensity = convertIntensity
	}
	if f.Changed("invert") {
		set.RoughnessInvert = convertInvert
	}
	if f.Changed("strength") {
		set.NormalStrength = convertStrength
	}
	if f.Changed("depth-scale") {
		set.HeightDepth = convertDepthScale
	}
	if f.Changed("ao-radius") {
		set.AORadius = convertAORadius
	}
	if convertInputType != "" {
		set.InputType = processor.InputType(convertInputType)
	}
	return set
}

// watchJob renders a progress bar from status polls until the job
// reaches a terminal state.
func watchJob(ctx context.Context, svc *jobs.Service, id string) (*jobs.Job, error) {
	bar := progressbar.Default(100, "queued")

	type outcome struct {
		job *jobs.Job
		err error
	}
	finished := make(chan outcome, 1)
	go func() {
		j, err := svc.Wait(ctx, id)
		finished <- outcome{j, err}
	}()

	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case o := <-finished:
			if o.err == nil && o.job.State == jobs.StateCompleted {
				_ = bar.Set(100)
			}
			fmt.Fprintln(os.Stderr)
			return o.job, o.err
		case <-tick.C:
			st, err := svc.Status(id)
			if err != nil {
				continue
			}
			_ = bar.Set(st.Progress)
			bar.Describe(st.CurrentTask)
		}
	}
}

func unpackArchive(data []byte, dir string) error {
	entries, err := respack.Extract(data)
	if err != nil {
		return err
	}
	for _, e := range entries {
		dst := filepath.Join(dir, filepath.FromSlash(e.Path))
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(dst, e.Data, 0o644); err != nil {
			return err
		}
	}
	return nil
}

func printConvertReport(job *jobs.Job, outPath string, outSize int64, elapsed time.Duration) {
	fmt.Println()
	fmt.Println("╔══════════════════════════════════════════════════╗")
	fmt.Println("║            bonemeal convert complete             ║")
	fmt.Println("╚══════════════════════════════════════════════════╝")
	fmt.Println()

	valid, warned, failed := 0, 0, 0
	for _, f := range job.Files {
		switch f.ValidationStatus {
		case jobs.StatusValid:
			valid++
		case jobs.StatusWarning:
			warned++
		case jobs.StatusError:
			failed++
		}
	}

	fmt.Printf("  Textures:    %d processed\n", job.Status.ImagesProcessed)
	fmt.Printf("  Maps:        %d generated\n", job.Status.TexturesGenerated)
	fmt.Printf("  Validation:  %d valid", valid)
	if warned > 0 {
		fmt.Printf(", %d with warnings", warned)
	}
	if failed > 0 {
		fmt.Printf(", %d with errors", failed)
	}
	fmt.Println()
	fmt.Printf("  Output:      %s (%s)\n", outPath, formatBytes(outSize))
	fmt.Printf("  Time:        %s\n", elapsed.Round(time.Millisecond))
	fmt.Println()

	if verbose && len(job.Files) > 0 {
		fmt.Println("  Files:")
		for _, f := range job.Files {
			mark := "✓"
			switch f.ValidationStatus {
			case jobs.StatusWarning:
				mark = "⚠"
			case jobs.StatusError:
				mark = "✗"
			}
			fmt.Printf("    %s %-44s %s\n", mark, truncKey(f.OriginalPath, 44), f.ValidationStatus)
		}
		fmt.Println()
	}
}

func formatBytes(b int64) string {
	switch {
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

func truncKey(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return "..." + s[len(s)-max+3:]
}
