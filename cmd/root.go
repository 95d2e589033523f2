package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/sw33tLie/baseline-lite/internal/utils"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

var cfgFile string

const (
	LOGO = `	 _                 _ _                 _ _ _
	| |__   __ _ ___  ___| (_)_ __   ___    | (_) |_ ___
	| '_ \ / _' / __|/ _ \ | | '_ \ / _ \___| | | __/ _ \
	| |_) | (_| \__ \  __/ | | | | |  __/___| | | ||  __/
	|_.__/ \__,_|___/\___|_|_|_| |_|\___|   |_|_|\__\___|

`

	defaultFeaturesURL = "https://unpkg.com/web-features/data.json"
	defaultCompatURL   = "https://unpkg.com/@mdn/browser-compat-data/data.json"
)

// exitCodeFindings is the exit status when findings reach --fail-on.
const exitCodeFindings = 2

// errFindings is returned by scan when findings reach --fail-on.
var errFindings = errors.New("findings reached the --fail-on threshold")

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "baseline-lite",
	Short: "Flag web platform features that are not widely available yet.",
	Long: LOGO + `baseline-lite scans CSS, HTML, JavaScript and TypeScript for features whose Baseline
status is "newly available" or "limited availability", using the web-features dataset.

Run "baseline-lite fetch" once to download the dataset.`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, errFindings) {
			os.Exit(exitCodeFindings)
		}
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.baseline-lite.yaml)")

	// Global flags
	rootCmd.PersistentFlags().StringP("proxy", "", "", "HTTP Proxy used by fetch (Example: http://127.0.0.1:8080)")
	rootCmd.PersistentFlags().StringP("loglevel", "l", "info", "Set log level. Available: debug, info, warn, error, fatal")
}

func setDefaults() {
	dataDir, err := utils.DataDir()
	if err != nil {
		dataDir = "."
	}
	viper.SetDefault("coreProperties", []string{})
	viper.SetDefault("severityForLimited", "information")
	viper.SetDefault("dataset.features", filepath.Join(dataDir, "features.json"))
	viper.SetDefault("dataset.compat", filepath.Join(dataDir, "compat.json"))
	viper.SetDefault("dataset.featuresUrl", defaultFeaturesURL)
	viper.SetDefault("dataset.compatUrl", defaultCompatURL)
	viper.SetDefault("scan.concurrency", 4)
	viper.SetDefault("server.username", "")
	viper.SetDefault("server.password", "")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	// Init log library first so config problems are reported at the right level
	levelString, _ := rootCmd.PersistentFlags().GetString("loglevel")
	utils.SetLogLevel(levelString)

	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".baseline-lite")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("BASELINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; create it with defaults.
			home, _ := homedir.Dir()
			configPath := filepath.Join(home, ".baseline-lite.yaml")
			if err := viper.SafeWriteConfigAs(configPath); err != nil {
				utils.Log.Warnf("Error creating config file: %s", err)
			}
		} else {
			utils.Log.Warnf("Error reading config file: %s", err)
		}
	}
}
