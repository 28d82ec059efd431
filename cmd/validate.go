package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/SteakTheStake/bonemeal/internal/jobs"
	"github.com/SteakTheStake/bonemeal/internal/labpbr"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check textures against the LabPBR channel contract",
	Long: `Validates a single texture or every texture entry of a resource pack
archive against the LabPBR specification: packed specular channel
ranges, normal vector length, resolution and format recommendations.

Exits non-zero when any error-level issue is found.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

var (
	pathStyle  = lipgloss.NewStyle().Bold(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	infoStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	faintStyle = lipgloss.NewStyle().Faint(true)
)

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(_ *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	svc := jobs.NewService(jobs.Config{})
	rep, err := svc.ValidateUpload(filepath.Base(args[0]), data)
	if err != nil {
		return err
	}
	if len(rep.Files) == 0 {
		fmt.Println("  no texture entries found")
		return nil
	}

	errorCount := 0
	for _, f := range rep.Files {
		fmt.Printf("%s %s\n", pathStyle.Render(f.Path), faintStyle.Render("("+string(f.Kind)+")"))
		if len(f.Result.Issues) == 0 {
			fmt.Printf("  %s\n", okStyle.Render("✓ no issues"))
			continue
		}
		for _, is := range f.Result.Issues {
			errorCount += printIssue(is)
		}
	}

	fmt.Println()
	if !rep.Valid {
		fmt.Printf("  %s\n", errStyle.Render(fmt.Sprintf("✗ %d error(s) across %d file(s)", errorCount, len(rep.Files))))
		return fmt.Errorf("validation failed")
	}
	fmt.Printf("  %s\n", okStyle.Render(fmt.Sprintf("✓ %d file(s) pass LabPBR %s validation", len(rep.Files), labpbr.SpecVersion)))
	return nil
}

// printIssue renders one finding and reports 1 for error-level issues.
func printIssue(is labpbr.Issue) int {
	var style lipgloss.Style
	mark := "•"
	count := 0
	switch is.Level {
	case labpbr.LevelError:
		style, mark, count = errStyle, "✗", 1
	case labpbr.LevelWarning:
		style, mark = warnStyle, "⚠"
	default:
		style = infoStyle
	}

	loc := ""
	if is.Channel != "" {
		loc = faintStyle.Render(" [" + is.Channel + "]")
	}
	fmt.Printf("  %s %s%s\n", style.Render(mark+" "+string(is.Level)), is.Message, loc)
	if is.Suggestion != "" {
		fmt.Printf("      %s\n", faintStyle.Render(is.Suggestion))
	}
	return count
}
