package scraper

import (
	"context"
	"time"

	"pexelscraper/internal/downloader"
	"pexelscraper/pkg/pexels"
)

// PhotoSearcher fetches one page of search results
type PhotoSearcher interface {
	Search(ctx context.Context, query string, page, perPage int) (*pexels.SearchResponse, error)
}

// ImageDownloader fetches one image into the output directory
type ImageDownloader interface {
	Download(ctx context.Context, url, filename string) downloader.Result
}

// Reporter receives user-facing progress events
type Reporter interface {
	Start(query string, target int, outputDir string)
	Downloaded(n, target int, filename string, size int64)
	Skipped(filename string)
	Failed(filename string, err error)
	MissingResolution(photoID int64, resolution string)
	Exhausted()
	Waiting(d time.Duration, reason string)
}

type nopReporter struct{}

func (nopReporter) Start(string, int, string) {}
func (nopReporter) Downloaded(int, int, string, int64) {}
func (nopReporter) Skipped(string) {}
func (nopReporter) Failed(string, error) {}
func (nopReporter) MissingResolution(int64, string) {}
func (nopReporter) Exhausted() {}
func (nopReporter) Waiting(time.Duration, string) {}
