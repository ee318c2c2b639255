package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"pexelscraper/pkg/config"
	errs "pexelscraper/pkg/errors"
	"pexelscraper/pkg/logger"
	"pexelscraper/pkg/retry"
	"pexelscraper/pkg/storage"
)

// HTTPDoer sends HTTP requests; *http.Client satisfies it
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// PhotoStorage writes downloaded files atomically
type PhotoStorage interface {
	Save(filename string, fill storage.FillFunc) (int64, error)
}

// Options configures a Downloader
type Options struct {
	// Mode is config.ModeRetrying or config.ModeSingle
	Mode string
	// Retry is the policy used in retrying mode
	Retry *retry.Config
	// Timeout bounds each attempt, including reading the body
	Timeout time.Duration
	// ChunkSize is the read buffer size when streaming to disk
	ChunkSize int
	// UserAgent is sent with every image request when set
	UserAgent string
}

// OptionsFromConfig builds downloader options from the download section
func OptionsFromConfig(cfg config.DownloadConfig, log logger.Logger) Options {
	return Options{
		Mode:      cfg.Mode,
		Retry:     retry.NewConfig(cfg.MaxAttempts, cfg.RetryDelay, cfg.BackoffMultiplier, log),
		Timeout:   cfg.Timeout,
		ChunkSize: cfg.ChunkSize,
	}
}

// Result is the outcome of one Download call
type Result struct {
	URL      string
	Filename string
	Bytes    int64
	Attempts int
	Duration time.Duration
	Err      error
}

// OK reports whether the file was written
func (r Result) OK() bool {
	return r.Err == nil
}

// Downloader fetches one image at a time into storage
type Downloader struct {
	client  HTTPDoer
	storage PhotoStorage
	opts    Options
	logger  logger.Logger
}

// New creates a Downloader
func New(client HTTPDoer, store PhotoStorage, opts Options, log logger.Logger) *Downloader {
	if log == nil {
		log = logger.GetLogger()
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 8192
	}
	if opts.Mode == "" {
		opts.Mode = config.ModeRetrying
	}
	if opts.Retry == nil {
		opts.Retry = retry.DefaultConfig()
	}

	return &Downloader{
		client:  client,
		storage: store,
		opts:    opts,
		logger:  log,
	}
}

// Download fetches url into filename. In retrying mode transient failures
// (connection errors, timeouts, broken streams, 429 and 5xx) are retried
// according to the retry policy; any other non-2xx status fails at once.
// In single mode exactly one request is made and only HTTP 200 succeeds.
// A failed download never leaves a file behind.
func (d *Downloader) Download(ctx context.Context, url, filename string) Result {
	start := time.Now()
	result := Result{URL: url, Filename: filename}

	switch d.opts.Mode {
	case config.ModeSingle:
		result.Attempts = 1
		result.Bytes, result.Err = d.attempt(ctx, url, filename, true)
	default:
		result.Bytes, result.Err = retry.DoWithResult(ctx, func(ctx context.Context) (int64, error) {
			result.Attempts++
			return d.attempt(ctx, url, filename, false)
		}, d.opts.Retry)
	}

	result.Duration = time.Since(start)
	return result
}

// attempt makes a single request and streams the body into storage
func (d *Downloader) attempt(ctx context.Context, url, filename string, requireOK bool) (int64, error) {
	if d.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.opts.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, &errs.Error{Type: errs.ErrorTypeUnknown, Message: "invalid image URL", Err: err}
	}
	if d.opts.UserAgent != "" {
		req.Header.Set("User-Agent", d.opts.UserAgent)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, errs.NewNetworkError("image request failed", err)
	}
	defer resp.Body.Close()

	if requireOK && resp.StatusCode != http.StatusOK {
		return 0, errs.FromStatusCode(resp.StatusCode, fmt.Sprintf("image request returned status %d", resp.StatusCode))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, errs.FromStatusCode(resp.StatusCode, fmt.Sprintf("image request returned status %d", resp.StatusCode))
	}

	return d.storage.Save(filename, func(w io.Writer) (int64, error) {
		return copyChunks(w, resp.Body, d.opts.ChunkSize)
	})
}

// copyChunks streams src into dst through a fixed-size buffer. Read failures
// are network errors and write failures are storage errors, so only the
// former are retried.
func copyChunks(dst io.Writer, src io.Reader, chunkSize int) (int64, error) {
	buf := make([]byte, chunkSize)
	var written int64

	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			w, writeErr := dst.Write(buf[:n])
			written += int64(w)
			if writeErr != nil {
				return written, errs.NewStorageError("failed to write image data", writeErr)
			}
			if w != n {
				return written, errs.NewStorageError("failed to write image data", io.ErrShortWrite)
			}
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, errs.NewNetworkError("image stream interrupted", readErr)
		}
	}
}
