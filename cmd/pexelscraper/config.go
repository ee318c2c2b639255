package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"pexelscraper/pkg/auth"
	"pexelscraper/pkg/config"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage Pexels Scraper configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (PEXELS_API_KEY, PEXELSCRAPER_*)
  - Local override file (<name>.local.yaml)
  - Configuration file
  - Default values (lowest priority)`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a configuration file with the default values",
	Long: `Create a configuration file holding every option at its default value.

The file will be created in the current directory as 'pexelscraper.yaml'
unless a different path is specified with the --config flag. The API key is
left empty; store it with 'pexelscraper auth login' or set PEXELS_API_KEY.`,
	Run: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Show the configuration after merging every source.

The API key is masked.`,
	Run: runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long: `Validate the merged configuration and report every problem found.

This command checks:
  - YAML syntax
  - Required fields
  - Value ranges and allowed values
  - Output and log directory accessibility`,
	Run: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) {
	configPath := configFile
	if configPath == "" {
		configPath = "pexelscraper.yaml"
	}

	// Check if file already exists
	if _, err := os.Stat(configPath); err == nil {
		console.PrintError("Configuration file already exists", configPath)
		fmt.Println("\nTo overwrite, first remove the existing file:")
		fmt.Printf("  rm %s\n", configPath)
		os.Exit(1)
	}

	if err := config.DefaultConfig().Save(configPath); err != nil {
		fail("Failed to create configuration file", err)
	}

	console.PrintSuccess("Configuration file created: " + configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Store your API key with 'pexelscraper auth login'")
	fmt.Println("2. Run 'pexelscraper config validate' to check the configuration")
	fmt.Println("3. Start downloading with 'pexelscraper scrape --query <terms>'")
}

// maskedConfig returns a copy of cfg that is safe to print
func maskedConfig(cfg *config.Config) config.Config {
	display := *cfg
	if display.Pexels.APIKey != "" {
		display.Pexels.APIKey = auth.MaskString(display.Pexels.APIKey)
	}
	return display
}

func runConfigShow(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(configFile)
	if err != nil {
		fail("Failed to load configuration", err)
	}

	display := maskedConfig(cfg)
	data, err := yaml.Marshal(&display)
	if err != nil {
		fail("Failed to format configuration", err)
	}

	console.PrintHighlight("Current Configuration")
	fmt.Println()
	fmt.Print(string(data))

	fmt.Println("\nConfiguration sources (in order of priority):")
	fmt.Println("1. Command line flags")
	fmt.Println("2. Environment variables (PEXELS_API_KEY, PEXELSCRAPER_*)")
	if configFile != "" {
		fmt.Printf("3. Configuration file: %s\n", configFile)
	} else {
		fmt.Println("3. Configuration file: (searched in standard locations)")
	}
	fmt.Println("4. Default values")
}

func runConfigValidate(cmd *cobra.Command, args []string) {
	if configFile != "" {
		console.PrintInfo("Validating configuration", configFile)
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		fail("Configuration validation failed", err)
	}

	warnings := []string{}
	problems := []string{}

	if err := cfg.RequireAPIKey(); err != nil {
		warnings = append(warnings, "No API key in configuration or environment (a stored key may still be used)")
	}

	outputDir, err := cfg.OutputDir()
	if err != nil {
		problems = append(problems, err.Error())
	} else if err := os.MkdirAll(filepath.Dir(outputDir), 0755); err != nil {
		problems = append(problems, fmt.Sprintf("Cannot create output directory: %v", err))
	}

	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
			problems = append(problems, fmt.Sprintf("Cannot create log directory: %v", err))
		}
	}

	if cfg.RateLimit.RequestsPerHour == 0 {
		warnings = append(warnings, "requests_per_hour is 0, so the hourly quota is not tracked")
	}

	if len(problems) > 0 {
		console.PrintError("Configuration has errors:")
		for _, p := range problems {
			fmt.Printf("  - %s\n", p)
		}
		os.Exit(1)
	}

	if len(warnings) > 0 {
		console.PrintWarning("Configuration warnings:")
		for _, w := range warnings {
			fmt.Printf("  - %s\n", w)
		}
		fmt.Println()
	}

	console.PrintSuccess("Configuration is valid")

	fmt.Println("\nConfiguration summary:")
	fmt.Printf("  Query: %s (%d images, %s)\n", cfg.Search.Query, cfg.Search.NumImages, cfg.Search.Resolution)
	fmt.Printf("  Output directory: %s\n", outputDir)
	fmt.Printf("  Download mode: %s (%d attempts, %s delay)\n", cfg.Download.Mode, cfg.Download.MaxAttempts, cfg.Download.RetryDelay)
	fmt.Printf("  Rate limit: %d requests/hour, %s between pages\n", cfg.RateLimit.RequestsPerHour, cfg.RateLimit.PageDelay)
	fmt.Printf("  Log level: %s\n", cfg.Logging.Level)
}
