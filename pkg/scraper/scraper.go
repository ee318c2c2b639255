package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"pexelscraper/internal/downloader"
	"pexelscraper/pkg/config"
	"pexelscraper/pkg/credits"
	errs "pexelscraper/pkg/errors"
	"pexelscraper/pkg/logger"
	"pexelscraper/pkg/metadata"
	"pexelscraper/pkg/metrics"
	"pexelscraper/pkg/pexels"
	"pexelscraper/pkg/ratelimit"
	"pexelscraper/pkg/retry"
	"pexelscraper/pkg/storage"
)

// StopReason says why a run ended
type StopReason string

const (
	ReasonTargetReached StopReason = "target_reached"
	ReasonExhausted     StopReason = "exhausted"
	ReasonCancelled     StopReason = "cancelled"
	ReasonSearchFailed  StopReason = "search_failed"
)

// Summary describes a finished run
type Summary struct {
	RunID             string
	Query             string
	Target            int
	Downloaded        int
	Skipped           int
	Failed            int
	MissingResolution int
	Pages             int
	Bytes             int64
	Reason            StopReason
	OutputDir         string
	CSVPath           string
	MetadataPath      string
	Duration          time.Duration
	Credits           []credits.Entry
}

// Scraper runs one search query to completion
type Scraper struct {
	config     *config.Config
	searcher   PhotoSearcher
	downloader ImageDownloader
	storage    *storage.Manager
	limiter    ratelimit.Limiter
	metrics    *metrics.Recorder
	reporter   Reporter
	logger     logger.Logger
	runID      string
}

// Option customizes a Scraper
type Option func(*Scraper)

// WithSearcher replaces the Pexels API client
func WithSearcher(searcher PhotoSearcher) Option {
	return func(s *Scraper) { s.searcher = searcher }
}

// WithDownloader replaces the image downloader
func WithDownloader(d ImageDownloader) Option {
	return func(s *Scraper) { s.downloader = d }
}

// WithReporter sets where progress lines go
func WithReporter(r Reporter) Option {
	return func(s *Scraper) { s.reporter = r }
}

// WithLimiter replaces the search request limiter
func WithLimiter(l ratelimit.Limiter) Option {
	return func(s *Scraper) { s.limiter = l }
}

// WithLogger sets the logger
func WithLogger(log logger.Logger) Option {
	return func(s *Scraper) { s.logger = log }
}

// WithMetrics sets the metrics recorder
func WithMetrics(m *metrics.Recorder) Option {
	return func(s *Scraper) { s.metrics = m }
}

// New creates a Scraper for cfg. Collaborators not supplied as options are
// built from the configuration: a resty-backed Pexels client, a downloader
// sharing its transport, and an hourly sliding window limiter.
func New(cfg *config.Config, opts ...Option) (*Scraper, error) {
	s := &Scraper{
		config: cfg,
		runID:  uuid.NewString(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.GetLogger()
	}
	s.logger = s.logger.WithField("run_id", s.runID)

	if s.reporter == nil {
		s.reporter = nopReporter{}
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}
	if s.limiter == nil {
		s.limiter = ratelimit.NewHourly(cfg.RateLimit.RequestsPerHour)
	}

	outputDir, err := cfg.OutputDir()
	if err != nil {
		return nil, err
	}
	s.storage, err = storage.NewManager(outputDir)
	if err != nil {
		return nil, err
	}

	transport := http.DefaultTransport
	if s.searcher == nil {
		if err := cfg.RequireAPIKey(); err != nil {
			return nil, err
		}

		apiCfg := cfg.Pexels
		if cfg.Download.Mode == config.ModeSingle {
			// Best-effort mode makes exactly one request per call
			apiCfg.MaxRetries = 0
		}
		var clientOpts []pexels.Option
		if apiCfg.UserAgent != "" {
			clientOpts = append(clientOpts, pexels.WithUserAgent(apiCfg.UserAgent))
		}
		client, err := pexels.NewClient(apiCfg, s.logger, clientOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create Pexels client: %w", err)
		}
		s.searcher = client
		transport = client.Transport()
	}

	if s.downloader == nil {
		dlOpts := downloader.OptionsFromConfig(cfg.Download, s.logger)
		dlOpts.UserAgent = cfg.Pexels.UserAgent
		s.downloader = downloader.New(&http.Client{Transport: transport}, s.storage, dlOpts, s.logger)
	}

	return s, nil
}

// RunID identifies this run in logs
func (s *Scraper) RunID() string {
	return s.runID
}

// Storage returns the output directory manager
func (s *Scraper) Storage() *storage.Manager {
	return s.storage
}

// runState is the mutable state of one Run
type runState struct {
	summary   *Summary
	attempted map[string]struct{}
	credits   *credits.Table
	manifest  *metadata.Manifest
}

// Run pages through search results until the target count of new images is
// downloaded, the results run out, or ctx is cancelled. The credits CSV is
// written in every case except a failed search request, which is returned
// as an error.
func (s *Scraper) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	query := s.config.Search.Query
	target := s.config.Search.NumImages

	state := &runState{
		summary: &Summary{
			RunID:     s.runID,
			Query:     query,
			Target:    target,
			OutputDir: s.storage.GetOutputDir(),
		},
		attempted: make(map[string]struct{}),
		credits:   credits.NewTable(),
	}
	if s.config.Output.SaveMetadata {
		state.manifest = s.loadManifest()
	}

	s.logger.InfoWithFields("Starting scrape", map[string]interface{}{
		"query":      query,
		"target":     target,
		"resolution": s.config.Search.Resolution,
		"mode":       s.config.Download.Mode,
		"output_dir": state.summary.OutputDir,
	})
	s.reporter.Start(query, target, state.summary.OutputDir)

	reason, err := s.loop(ctx, state)
	state.summary.Reason = reason
	state.summary.Duration = time.Since(start)

	if err != nil {
		s.writeMetrics()
		return state.summary, err
	}

	if err := s.finish(state); err != nil {
		return state.summary, err
	}

	s.logger.InfoWithFields("Scrape finished", map[string]interface{}{
		"downloaded":         state.summary.Downloaded,
		"skipped":            state.summary.Skipped,
		"failed":             state.summary.Failed,
		"missing_resolution": state.summary.MissingResolution,
		"pages":              state.summary.Pages,
		"reason":             string(reason),
		"duration_ms":        state.summary.Duration.Milliseconds(),
	})
	return state.summary, nil
}

func (s *Scraper) loop(ctx context.Context, state *runState) (StopReason, error) {
	summary := state.summary
	query := s.config.Search.Query
	page := 1

	for summary.Downloaded < summary.Target {
		if err := s.waitForQuota(ctx); err != nil {
			return ReasonCancelled, nil
		}

		perPage := pexels.ClampPerPage(summary.Target - summary.Downloaded)
		resp, err := s.searcher.Search(ctx, query, page, perPage)
		s.metrics.ObserveSearch(err)
		if err != nil {
			if ctx.Err() != nil {
				return ReasonCancelled, nil
			}
			s.logger.WithError(err).ErrorWithFields("Search request failed", map[string]interface{}{
				"query":      query,
				"page":       page,
				"error_type": string(errs.TypeOf(err)),
			})
			return ReasonSearchFailed, fmt.Errorf("search request for page %d failed: %w", page, err)
		}
		summary.Pages++

		if len(resp.Photos) == 0 {
			s.logger.InfoWithFields("No more photos available", map[string]interface{}{
				"query": query,
				"page":  page,
			})
			s.reporter.Exhausted()
			return ReasonExhausted, nil
		}

		for _, photo := range resp.Photos {
			if summary.Downloaded >= summary.Target {
				break
			}
			if ctx.Err() != nil {
				return ReasonCancelled, nil
			}
			if cancelled := s.processPhoto(ctx, photo, state); cancelled {
				return ReasonCancelled, nil
			}
		}

		page++
		if summary.Downloaded >= summary.Target {
			break
		}
		if err := retry.Wait(ctx, s.config.RateLimit.PageDelay); err != nil {
			return ReasonCancelled, nil
		}
	}

	return ReasonTargetReached, nil
}

// waitForQuota blocks while the hourly search quota is used up
func (s *Scraper) waitForQuota(ctx context.Context) error {
	if s.limiter.Allow() {
		return nil
	}

	if sw, ok := s.limiter.(*ratelimit.SlidingWindow); ok {
		delay := sw.Delay()
		s.logger.WarnWithFields("Hourly request quota reached, waiting", map[string]interface{}{
			"wait_ms": delay.Milliseconds(),
		})
		s.reporter.Waiting(delay, "Request quota reached")
	}
	return s.limiter.Wait(ctx)
}

// processPhoto handles one search result. It reports true when the run was
// cancelled during the download.
func (s *Scraper) processPhoto(ctx context.Context, photo pexels.Photo, state *runState) bool {
	summary := state.summary
	resolution := s.config.Search.Resolution

	url, ok := photo.SourceURL(resolution)
	if !ok {
		summary.MissingResolution++
		s.metrics.ObservePhoto(metrics.ResultMissingResolution)
		s.reporter.MissingResolution(photo.ID, resolution)
		s.logger.DebugWithFields("Photo has no image at requested resolution", map[string]interface{}{
			"photo_id":   photo.ID,
			"resolution": resolution,
		})
		return false
	}

	filename := storage.PhotoFilename(photo.ID, photo.Photographer)
	if _, seen := state.attempted[filename]; seen {
		s.logger.DebugWithFields("Photo already handled in this run", map[string]interface{}{
			"photo_id": photo.ID,
			"filename": filename,
		})
		return false
	}
	state.attempted[filename] = struct{}{}

	if s.storage.Exists(filename) {
		summary.Skipped++
		s.metrics.ObservePhoto(metrics.ResultSkipped)
		s.reporter.Skipped(filename)
		return false
	}

	result := s.downloader.Download(ctx, url, filename)
	logger.LogDownload(s.logger, photo.ID, filename, result.Bytes, result.Attempts, result.Err)

	if !result.OK() {
		s.metrics.ObserveDownload(0, result.Attempts, result.Duration)
		if ctx.Err() != nil || errors.Is(result.Err, context.Canceled) {
			return true
		}
		summary.Failed++
		s.metrics.ObservePhoto(metrics.ResultFailed)
		s.reporter.Failed(filename, result.Err)
		return false
	}
	s.metrics.ObserveDownload(result.Bytes, result.Attempts, result.Duration)

	size := result.Bytes
	if s.config.Download.EmbedCredits {
		credit := metadata.Credit{Photographer: photo.Photographer, ProfileURL: photo.PhotographerURL}
		if embedded, err := metadata.EmbedCredit(s.storage, filename, credit); err != nil {
			s.logger.WithError(err).WarnWithFields("Failed to embed credit", map[string]interface{}{
				"filename": filename,
			})
		} else {
			size = embedded
		}
	}

	summary.Downloaded++
	summary.Bytes += size
	s.metrics.ObservePhoto(metrics.ResultDownloaded)
	state.credits.Add(photo.Photographer, photo.PhotographerURL)
	s.reporter.Downloaded(summary.Downloaded, summary.Target, filename, size)

	if state.manifest != nil {
		if err := state.manifest.Add(metadata.FromPhoto(photo, resolution, filename, size)); err != nil {
			s.logger.WithError(err).WarnWithFields("Failed to record photo metadata", map[string]interface{}{
				"filename": filename,
			})
		}
	}

	return false
}

func (s *Scraper) loadManifest() *metadata.Manifest {
	path := s.storage.Path(s.config.MetadataFileName())
	manifest, err := metadata.LoadManifest(path, s.config.Search.Query)
	if err != nil {
		s.logger.WithError(err).WarnWithFields("Existing manifest unreadable, starting a new one", map[string]interface{}{
			"path": path,
		})
		return metadata.NewManifest(s.config.Search.Query)
	}
	return manifest
}

// finish writes the credits CSV, the manifest and the metrics textfile
func (s *Scraper) finish(state *runState) error {
	summary := state.summary
	summary.Credits = state.credits.Entries()
	summary.CSVPath = s.storage.Path(s.config.CreditsFileName())

	if err := credits.WriteCSV(summary.CSVPath, state.credits); err != nil {
		s.logger.WithError(err).Error("Failed to write credits file")
		return err
	}

	if state.manifest != nil {
		if err := state.manifest.Save(s.storage, s.config.MetadataFileName()); err != nil {
			s.logger.WithError(err).Warn("Failed to save metadata manifest")
		} else {
			summary.MetadataPath = s.storage.Path(s.config.MetadataFileName())
		}
	}

	s.writeMetrics()
	return nil
}

func (s *Scraper) writeMetrics() {
	path := s.config.Metrics.Textfile
	if path == "" {
		return
	}
	if err := s.metrics.WriteTextfile(path); err != nil {
		s.logger.WithError(err).WarnWithFields("Failed to write metrics", map[string]interface{}{
			"path": path,
		})
	}
}
