package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"pexelscraper/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile    string
	logLevel      string
	noColor       bool
	notifications bool
	quiet         bool
	verbose       bool

	console *ui.Console
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pexelscraper",
	Short: "Download stock photos from Pexels with photographer credits",
	Long: `Pexels Scraper searches the Pexels photo API and downloads a target number
of images into a per-query directory, then writes a CSV crediting every
photographer whose photo was downloaded.

Features:
  - API key storage in the system keychain or an encrypted file
  - Retrying or single-attempt downloads
  - Hourly request quota tracking
  - Re-runs skip files that already exist
  - Optional JSON manifest, EXIF credits and Prometheus textfile metrics`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		color := !noColor && term.IsTerminal(int(os.Stdout.Fd()))
		console = ui.NewConsole(os.Stdout, color)

		if quiet {
			console.SetQuiet(true)
			logLevel = "error"
		} else if verbose {
			logLevel = "debug"
		}

		// Don't show logo for certain commands
		if cmd.Name() != "version" && cmd.Name() != "help" && cmd.Name() != "completion" {
			console.PrintLogo()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./pexelscraper.yaml or ~/.config/pexelscraper/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVar(&notifications, "notifications", false, "send a desktop notification when a run ends")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "suppress all output except errors and the final summary")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "show debug logs")

	// Version template
	rootCmd.SetVersionTemplate(`Pexels Scraper {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	// Disable default completion command
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// fail prints msg and err and exits non-zero
func fail(msg string, err error) {
	if console == nil {
		console = ui.NewConsole(os.Stderr, false)
	}
	if err != nil {
		console.PrintError(msg, err)
	} else {
		console.PrintError(msg)
	}
	os.Exit(1)
}
