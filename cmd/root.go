package cmd

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	version = "0.1.0"
	verbose bool
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "bonemeal",
	Short: "Grow LabPBR material maps from plain textures",
	Long: `bonemeal — grows complete LabPBR material sets out of plain textures.

Derives normal, height, ambient-occlusion and packed specular maps from
single images or whole resource packs, validates textures against the
LabPBR channel contract, and reports material statistics.`,
	Version: version,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.bonemeal.yaml)")
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"bonemeal %s (%s/%s, %s)\n",
		version, runtime.GOOS, runtime.GOARCH, runtime.Version(),
	))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home)
		viper.SetConfigName(".bonemeal")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("BONEMEAL")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		logVerbose("config: %s", viper.ConfigFileUsed())
	}
}

// logVerbose prints a message only when --verbose is set.
func logVerbose(format string, args ...any) {
	if verbose {
		fmt.Fprintf(os.Stderr, "[bonemeal] "+format+"\n", args...)
	}
}
