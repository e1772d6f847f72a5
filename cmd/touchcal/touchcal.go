package touchcal

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/dkovalev/touchcal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var cmdCtx = logging.PackageCtx("cmd")

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "touchcal",
	Short: "Calibrate and track touchscreens, tablets and pointing devices",
	Long: `Touchcal reads raw touch, pen and mouse input straight from the kernel,
applies a calibration transform, recognises gestures, and can re-inject
the calibrated stream through a synthetic device. It also maps devices
onto monitors through the display server's transformation matrix.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		bindFlags(cmd, args)
		logging.Setup(verbose)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.touchcal.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug output")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".touchcal" (without extension).
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("toml")
		viper.SetConfigName(".touchcal")
	}

	viper.SetEnvPrefix("touchcal")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			createExampleConfig()
		} else {
			slog.ErrorContext(cmdCtx, "reading config file", "error", err)
			os.Exit(1)
		}
	}
}

func createExampleConfig() {
	exampleConfig := `
screenwidth = 800
screenheight = 480
`

	configPath := "./.touchcal.toml"

	err := os.WriteFile(configPath, []byte(exampleConfig), 0o644)
	if err != nil {
		slog.ErrorContext(cmdCtx, "creating example config file", "error", err)
		os.Exit(1)
	}

	slog.InfoContext(cmdCtx, "example config file created", "path", configPath)
}

// set values to the PFlag variables from config, if they are set. Priority is still given to explicitly provided CLI flags.
func bindFlags(cmd *cobra.Command, _ []string) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		// Viper compares case-insensitively, so hyphen removal is enough to
		// match camelCased config keys.
		configName := strings.ReplaceAll(f.Name, "-", "")

		if !f.Changed && viper.IsSet(configName) {
			val := viper.Get(configName)

			err := cmd.Flags().Set(f.Name, fmt.Sprintf("%v", val))
			if err != nil {
				slog.ErrorContext(cmdCtx, "setting flag from config", "flag", f.Name, "error", err)
				panic(err)
			}
		}
	})
}
