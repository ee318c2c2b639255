package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"pexelscraper/pkg/auth"
	"pexelscraper/pkg/config"
	errs "pexelscraper/pkg/errors"
	"pexelscraper/pkg/logger"
	"pexelscraper/pkg/scraper"
	"pexelscraper/pkg/ui"
)

var (
	// Scrape command flags
	query        string
	numImages    int
	resolution   string
	downloadMode string
	accountName  string
	saveMetadata bool
	embedCredits bool
)

// scrapeCmd represents the scrape command
var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Search Pexels and download photos",
	Long: `Search Pexels for a query and download images until the target count of new
files is reached or the results run out.

Images are saved to <output.base_directory>/<query> as
<photo id>_<photographer>.jpg. Files that already exist are skipped, so a run
can be repeated to top up a directory. A <query>_photographers.csv file credits
every photographer whose photo was downloaded in the run.

An API key is required. It is read from:
  - the PEXELS_API_KEY environment variable
  - pexels.api_key in the configuration file
  - a key stored with 'pexelscraper auth login'`,
	Example: `  # Download 1000 original-size face photos into ~/Downloads/face
  pexelscraper scrape

  # Best-effort run: one attempt per image
  pexelscraper scrape --query "african face" --num-images 100 --mode single

  # Smaller images, with a JSON manifest
  pexelscraper scrape -q mountains -n 50 -r large --save-metadata`,
	Args: cobra.NoArgs,
	Run:  runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	defaults := config.DefaultConfig()
	scrapeCmd.Flags().StringVarP(&query, "query", "q", defaults.Search.Query, "search query")
	scrapeCmd.Flags().IntVarP(&numImages, "num-images", "n", defaults.Search.NumImages, "number of new images to download")
	scrapeCmd.Flags().StringVarP(&resolution, "resolution", "r", defaults.Search.Resolution, "image size to download (original, large2x, large, medium, small, portrait, landscape, tiny)")
	scrapeCmd.Flags().StringVar(&downloadMode, "mode", defaults.Download.Mode, "download mode: retrying or single")
	scrapeCmd.Flags().StringVarP(&accountName, "account", "a", "", "use a specific stored API key")
	scrapeCmd.Flags().BoolVar(&saveMetadata, "save-metadata", false, "write a JSON manifest next to the images")
	scrapeCmd.Flags().BoolVar(&embedCredits, "embed-credits", false, "write the photographer credit into each image's EXIF")
}

// scrapeOverrides applies the flags the user set on top of the loaded
// configuration. Flags left at their defaults do not touch it.
func scrapeOverrides(cmd *cobra.Command) config.Override {
	flags := cmd.Flags()

	return func(cfg *config.Config) {
		if flags.Changed("query") {
			cfg.Search.Query = query
		}
		if flags.Changed("num-images") {
			cfg.Search.NumImages = numImages
		}
		if flags.Changed("resolution") {
			cfg.Search.Resolution = resolution
		}
		if flags.Changed("mode") {
			cfg.Download.Mode = downloadMode
		}
		if flags.Changed("save-metadata") {
			cfg.Output.SaveMetadata = saveMetadata
		}
		if flags.Changed("embed-credits") {
			cfg.Download.EmbedCredits = embedCredits
		}
		if flags.Changed("notifications") {
			cfg.Notifications.Enabled = notifications
		}
		if flags.Changed("log-level") || quiet || verbose {
			cfg.Logging.Level = logLevel
		}
	}
}

// resolveAPIKey fills cfg.Pexels.APIKey from the credential stores when the
// configuration and environment did not provide one
func resolveAPIKey(cfg *config.Config, manager *auth.Manager, name string) (string, error) {
	if name != "" {
		account, err := manager.Retrieve(name)
		if err != nil {
			return "", err
		}
		cfg.Pexels.APIKey = account.APIKey
		return account.Name, nil
	}

	if cfg.RequireAPIKey() == nil {
		return "configuration", nil
	}

	account, err := manager.RetrieveDefault()
	if err != nil {
		if errors.Is(err, auth.ErrCredentialsNotFound) {
			return "", config.ErrMissingAPIKey
		}
		return "", err
	}
	cfg.Pexels.APIKey = account.APIKey
	return account.Name, nil
}

// failureHint tells the user whether running the same command again can help
func failureHint(err error) string {
	if errs.IsFatal(err) {
		return "Pexels rejected the request. Check the query and API key before running again."
	}
	return "Pexels did not answer after retries. Files already saved are kept, so run the same command later to continue."
}

func runScrape(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(configFile, scrapeOverrides(cmd))
	if err != nil {
		fail("Failed to load configuration", err)
	}

	// Initialize logger
	if err := logger.Initialize(&cfg.Logging); err != nil {
		fail("Failed to initialize logger", err)
	}
	log := logger.GetLogger()
	log.WithField("version", version).Info("Pexels Scraper starting")

	manager, err := auth.NewManager()
	if err != nil {
		fail("Failed to initialize credential manager", err)
	}

	source, err := resolveAPIKey(cfg, manager, accountName)
	if err != nil {
		log.WithError(err).Error("No API key available")
		console.PrintError("No Pexels API key found", err)
		auth.ShowQuickGuide(os.Stdout)
		os.Exit(1)
	}
	log.WithField("source", source).Debug("Using API key")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := scraper.New(cfg,
		scraper.WithLogger(log),
		scraper.WithReporter(ui.NewProgress(console)),
	)
	if err != nil {
		fail("Failed to initialize scraper", err)
	}

	summary, err := s.Run(ctx)
	ui.PrintSummary(console, summary)

	notifier := ui.NewNotifier(cfg.Notifications.Enabled)
	if err != nil {
		log.WithError(err).WithField("query", cfg.Search.Query).Error("Scrape failed")
		if nerr := notifier.Notify("Pexels scrape failed", err.Error()); nerr != nil {
			log.WithError(nerr).Debug("Notification not sent")
		}
		stop()
		if errs.TypeOf(err) == errs.ErrorTypeAuth {
			auth.ShowQuickGuide(os.Stdout)
		} else {
			console.PrintDim(failureHint(err))
		}
		fail("SCRAPE FAILED", err)
	}

	message := fmt.Sprintf("%d new images for %q", summary.Downloaded, summary.Query)
	if nerr := notifier.Notify("Pexels scrape complete", message); nerr != nil {
		log.WithError(nerr).Debug("Notification not sent")
	}
	log.WithField("query", cfg.Search.Query).Info("Scrape completed")
}
