package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pexelscraper/pkg/config"
	"pexelscraper/pkg/credits"
	errs "pexelscraper/pkg/errors"
	"pexelscraper/pkg/logger"
	"pexelscraper/pkg/metadata"
	"pexelscraper/pkg/pexels"
	"pexelscraper/pkg/ratelimit"
)

// fakePexels serves a scripted search API and an image CDN
type fakePexels struct {
	server *httptest.Server

	mu           sync.Mutex
	pages        [][]int64
	missing      map[int64]bool
	failing      map[int64]bool
	truncated    map[int64]bool
	jpegBody     []byte
	searchStatus int
	perPages     []int
	imageHits    map[int64]int
	authHeaders  []string
	userAgents   []string
}

func newFakePexels(t *testing.T, pages ...[]int64) *fakePexels {
	t.Helper()

	f := &fakePexels{
		pages:     pages,
		missing:   map[int64]bool{},
		failing:   map[int64]bool{},
		truncated: map[int64]bool{},
		imageHits: map[int64]int{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/search", f.handleSearch)
	mux.HandleFunc("/img/", f.handleImage)
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)

	return f
}

func photographerFor(id int64) string {
	return fmt.Sprintf("Photographer %d", id%3)
}

func (f *fakePexels) handleSearch(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.authHeaders = append(f.authHeaders, r.Header.Get("Authorization"))
	f.userAgents = append(f.userAgents, r.Header.Get("User-Agent"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	f.perPages = append(f.perPages, perPage)

	if f.searchStatus != 0 {
		w.WriteHeader(f.searchStatus)
		w.Write([]byte(`{"error":"denied"}`))
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	resp := pexels.SearchResponse{Page: page, PerPage: perPage, Photos: []pexels.Photo{}}
	if page >= 1 && page <= len(f.pages) {
		for _, id := range f.pages[page-1] {
			src := map[string]string{
				"original": fmt.Sprintf("%s/img/%d.jpeg", f.server.URL, id),
				"tiny":     fmt.Sprintf("%s/img/%d-tiny.jpeg", f.server.URL, id),
			}
			if f.missing[id] {
				delete(src, "original")
			}
			resp.Photos = append(resp.Photos, pexels.Photo{
				ID:              id,
				Photographer:    photographerFor(id),
				PhotographerURL: fmt.Sprintf("https://www.pexels.com/@p%d", id%3),
				Src:             src,
			})
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (f *fakePexels) handleImage(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/img/"), ".jpeg")
	id, _ := strconv.ParseInt(strings.TrimSuffix(name, "-tiny"), 10, 64)

	f.mu.Lock()
	f.imageHits[id]++
	f.userAgents = append(f.userAgents, r.Header.Get("User-Agent"))
	failing, truncated, body := f.failing[id], f.truncated[id], f.jpegBody
	f.mu.Unlock()

	if failing {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if body != nil {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(body)
		return
	}
	data := fmt.Sprintf("jpegdata-%d", id)
	if truncated {
		// The connection closes before the declared length arrives
		w.Header().Set("Content-Length", strconv.Itoa(len(data)*10))
	}
	fmt.Fprint(w, data)
}

func sampleJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func (f *fakePexels) hits(id int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.imageHits[id]
}

func (f *fakePexels) agents() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.userAgents...)
}

func (f *fakePexels) searches() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.perPages...)
}

func testConfig(t *testing.T, baseURL string, target int) *config.Config {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Pexels.APIKey = "test-key"
	cfg.Pexels.BaseURL = baseURL
	cfg.Pexels.MaxRetries = 0
	cfg.Search.Query = "face"
	cfg.Search.NumImages = target
	cfg.Output.BaseDirectory = t.TempDir()
	cfg.Download.RetryDelay = time.Millisecond
	cfg.Download.Timeout = 5 * time.Second
	cfg.RateLimit.PageDelay = 0
	cfg.RateLimit.RequestsPerHour = 0
	return cfg
}

func newTestScraper(t *testing.T, cfg *config.Config, opts ...Option) *Scraper {
	t.Helper()

	opts = append([]Option{WithLogger(logger.NewNopLogger())}, opts...)
	s, err := New(cfg, opts...)
	require.NoError(t, err)
	return s
}

func jpgFiles(t *testing.T, dir string) []string {
	t.Helper()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".jpg") {
			names = append(names, e.Name())
		}
	}
	return names
}

// recordingReporter keeps every event for assertions
type recordingReporter struct {
	nopReporter
	downloaded []string
	skipped    []string
	failed     []string
	missing    []int64
	exhausted  bool
	waited     bool

	onDownloaded func()
}

func (r *recordingReporter) Downloaded(n, target int, filename string, size int64) {
	r.downloaded = append(r.downloaded, filename)
	if r.onDownloaded != nil {
		r.onDownloaded()
	}
}

func (r *recordingReporter) Skipped(filename string) { r.skipped = append(r.skipped, filename) }

func (r *recordingReporter) Failed(filename string, err error) {
	r.failed = append(r.failed, filename)
}

func (r *recordingReporter) MissingResolution(id int64, _ string) { r.missing = append(r.missing, id) }

func (r *recordingReporter) Exhausted() { r.exhausted = true }

func (r *recordingReporter) Waiting(time.Duration, string) { r.waited = true }

func TestRunDownloadsTargetCount(t *testing.T) {
	api := newFakePexels(t, []int64{1, 2, 3, 4, 5})
	cfg := testConfig(t, api.server.URL, 5)
	s := newTestScraper(t, cfg)

	summary, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, summary.Downloaded)
	assert.Equal(t, ReasonTargetReached, summary.Reason)
	assert.Equal(t, 1, summary.Pages)
	assert.Equal(t, []int{5}, api.searches())
	assert.Equal(t, filepath.Join(cfg.Output.BaseDirectory, "face"), summary.OutputDir)
	assert.Len(t, jpgFiles(t, summary.OutputDir), 5)

	content, err := os.ReadFile(filepath.Join(summary.OutputDir, "1_Photographer 1.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "jpegdata-1", string(content))
	assert.Equal(t, int64(len("jpegdata-1")*5), summary.Bytes)

	assert.Equal(t, filepath.Join(summary.OutputDir, "face_photographers.csv"), summary.CSVPath)
	table, err := credits.ReadCSV(summary.CSVPath)
	require.NoError(t, err)
	want := []credits.Entry{
		{Photographer: "Photographer 1", ProfileURL: "https://www.pexels.com/@p1"},
		{Photographer: "Photographer 2", ProfileURL: "https://www.pexels.com/@p2"},
		{Photographer: "Photographer 0", ProfileURL: "https://www.pexels.com/@p0"},
	}
	if diff := cmp.Diff(want, table.Entries()); diff != "" {
		t.Errorf("credits mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, summary.Credits); diff != "" {
		t.Errorf("summary credits mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, "test-key", api.authHeaders[0])
}

func TestRunSearchFailureIsFatal(t *testing.T) {
	api := newFakePexels(t, []int64{1, 2})
	api.searchStatus = http.StatusForbidden
	cfg := testConfig(t, api.server.URL, 5)
	s := newTestScraper(t, cfg)

	summary, err := s.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypeAuth, errs.TypeOf(err))
	assert.Equal(t, ReasonSearchFailed, summary.Reason)
	assert.Equal(t, 0, summary.Downloaded)

	assert.Empty(t, jpgFiles(t, summary.OutputDir))
	_, statErr := os.Stat(filepath.Join(summary.OutputDir, "face_photographers.csv"))
	assert.True(t, os.IsNotExist(statErr), "no credits file after a failed search")
}

func TestRunSkipsPhotosWithoutResolution(t *testing.T) {
	api := newFakePexels(t, []int64{1, 2, 3})
	api.missing[2] = true
	cfg := testConfig(t, api.server.URL, 3)
	reporter := &recordingReporter{}
	s := newTestScraper(t, cfg, WithReporter(reporter))

	summary, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Downloaded)
	assert.Equal(t, 1, summary.MissingResolution)
	assert.Equal(t, []int64{2}, reporter.missing)
	assert.Equal(t, ReasonExhausted, summary.Reason)
	assert.True(t, reporter.exhausted)
	assert.Equal(t, 0, api.hits(2))
	assert.ElementsMatch(t, []string{"1_Photographer 1.jpg", "3_Photographer 0.jpg"}, jpgFiles(t, summary.OutputDir))
}

func TestRunUsesConfiguredResolution(t *testing.T) {
	api := newFakePexels(t, []int64{7})
	cfg := testConfig(t, api.server.URL, 1)
	cfg.Search.Resolution = "tiny"
	s := newTestScraper(t, cfg)

	summary, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Downloaded)
	assert.Equal(t, 1, api.hits(7))
}

func TestRunContinuesAfterFailedDownload(t *testing.T) {
	api := newFakePexels(t, []int64{1, 2})
	api.failing[1] = true
	cfg := testConfig(t, api.server.URL, 2)
	reporter := &recordingReporter{}
	s := newTestScraper(t, cfg, WithReporter(reporter))

	summary, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Downloaded)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 3, api.hits(1), "retrying mode makes three attempts")
	assert.Equal(t, []string{"1_Photographer 1.jpg"}, reporter.failed)
	assert.Equal(t, []string{"2_Photographer 2.jpg"}, jpgFiles(t, summary.OutputDir))

	entries, err := os.ReadDir(summary.OutputDir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".part"), "leftover temp file %s", e.Name())
	}

	table, err := credits.ReadCSV(summary.CSVPath)
	require.NoError(t, err)
	assert.Equal(t, []credits.Entry{{Photographer: "Photographer 2", ProfileURL: "https://www.pexels.com/@p2"}}, table.Entries())
}

func TestRunSingleModeMakesOneAttempt(t *testing.T) {
	api := newFakePexels(t, []int64{1, 2})
	api.failing[1] = true
	cfg := testConfig(t, api.server.URL, 2)
	cfg.Download.Mode = config.ModeSingle
	s := newTestScraper(t, cfg)

	summary, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, api.hits(1))
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Downloaded)
}

func TestRunIsIdempotent(t *testing.T) {
	api := newFakePexels(t, []int64{1, 2, 3})
	cfg := testConfig(t, api.server.URL, 3)

	first, err := newTestScraper(t, cfg).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, first.Downloaded)

	reporter := &recordingReporter{}
	second, err := newTestScraper(t, cfg, WithReporter(reporter)).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, second.Downloaded)
	assert.Equal(t, 3, second.Skipped)
	assert.Len(t, reporter.skipped, 3)
	assert.Equal(t, ReasonExhausted, second.Reason)
	for _, id := range []int64{1, 2, 3} {
		assert.Equal(t, 1, api.hits(id), "photo %d fetched again", id)
	}

	// Skipped photos earn no credit, so the second CSV has only the header
	table, err := credits.ReadCSV(second.CSVPath)
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())
}

func TestRunNeverExceedsTarget(t *testing.T) {
	api := newFakePexels(t,
		[]int64{1, 2, 3, 4},
		[]int64{5, 6, 7, 8},
		[]int64{9, 10, 11, 12},
	)
	cfg := testConfig(t, api.server.URL, 6)
	s := newTestScraper(t, cfg)

	summary, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 6, summary.Downloaded)
	assert.Equal(t, ReasonTargetReached, summary.Reason)
	assert.Equal(t, []int{6, 2}, api.searches(), "per_page shrinks to what is still missing")
	assert.Len(t, jpgFiles(t, summary.OutputDir), 6)
	assert.Equal(t, 0, api.hits(7))
}

func TestRunClampsPerPage(t *testing.T) {
	api := newFakePexels(t)
	cfg := testConfig(t, api.server.URL, 1000)
	s := newTestScraper(t, cfg)

	summary, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, ReasonExhausted, summary.Reason)
	assert.Equal(t, []int{pexels.MaxPerPage}, api.searches())
}

func TestRunIgnoresRepeatedPhotoInResults(t *testing.T) {
	api := newFakePexels(t, []int64{4, 4, 5})
	cfg := testConfig(t, api.server.URL, 3)
	s := newTestScraper(t, cfg)

	summary, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Downloaded)
	assert.Equal(t, 0, summary.Skipped)
	assert.Equal(t, 1, api.hits(4))
}

func TestRunWritesCreditsOnCancellation(t *testing.T) {
	api := newFakePexels(t, []int64{1, 2, 3}, []int64{4, 5, 6})
	cfg := testConfig(t, api.server.URL, 6)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reporter := &recordingReporter{}
	reporter.onDownloaded = func() {
		if len(reporter.downloaded) == 2 {
			cancel()
		}
	}
	s := newTestScraper(t, cfg, WithReporter(reporter))

	summary, err := s.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, ReasonCancelled, summary.Reason)
	assert.Equal(t, 2, summary.Downloaded)
	assert.Equal(t, 0, api.hits(3))

	table, err := credits.ReadCSV(summary.CSVPath)
	require.NoError(t, err)
	assert.Equal(t, 2, table.Len())
}

func TestRunWaitsForRequestQuota(t *testing.T) {
	api := newFakePexels(t, []int64{1}, []int64{2})
	cfg := testConfig(t, api.server.URL, 2)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	reporter := &recordingReporter{}
	s := newTestScraper(t, cfg,
		WithReporter(reporter),
		WithLimiter(ratelimit.NewSlidingWindow(1, time.Hour)),
	)

	summary, err := s.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, ReasonCancelled, summary.Reason)
	assert.Equal(t, 1, summary.Downloaded)
	assert.True(t, reporter.waited)
	assert.Len(t, api.searches(), 1)
}

func TestRunWritesManifestAndMetrics(t *testing.T) {
	api := newFakePexels(t, []int64{1, 2})
	cfg := testConfig(t, api.server.URL, 2)
	cfg.Output.SaveMetadata = true
	cfg.Metrics.Textfile = filepath.Join(t.TempDir(), "pexelscraper.prom")
	s := newTestScraper(t, cfg)

	summary, err := s.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, filepath.Join(summary.OutputDir, "face_metadata.json"), summary.MetadataPath)
	manifest, err := metadata.LoadManifest(summary.MetadataPath, "face")
	require.NoError(t, err)
	assert.Equal(t, 2, manifest.Len())
	entry, ok := manifest.Get("2_Photographer 2.jpg")
	require.True(t, ok)
	assert.Equal(t, int64(2), entry.ID)
	assert.Equal(t, "original", entry.Resolution)

	prom, err := os.ReadFile(cfg.Metrics.Textfile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `pexelscraper_photos_total{result="downloaded"} 2`)
	assert.Contains(t, string(prom), `pexelscraper_search_requests_total{status="ok"} 1`)
}

func TestRunCountsOnlyCompletedDownloadBytes(t *testing.T) {
	api := newFakePexels(t, []int64{1, 2})
	api.truncated[2] = true
	cfg := testConfig(t, api.server.URL, 2)
	cfg.Download.Mode = config.ModeSingle
	cfg.Metrics.Textfile = filepath.Join(t.TempDir(), "pexelscraper.prom")
	s := newTestScraper(t, cfg)

	summary, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Downloaded)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, int64(len("jpegdata-1")), summary.Bytes)

	prom, err := os.ReadFile(cfg.Metrics.Textfile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), fmt.Sprintf("pexelscraper_bytes_downloaded_total %d\n", len("jpegdata-1")))
	assert.Contains(t, string(prom), `pexelscraper_photos_total{result="failed"} 1`)
}

func TestRunReportsSizeAfterEmbeddingCredits(t *testing.T) {
	api := newFakePexels(t, []int64{1, 2})
	api.jpegBody = sampleJPEG(t)
	cfg := testConfig(t, api.server.URL, 2)
	cfg.Download.EmbedCredits = true
	cfg.Output.SaveMetadata = true
	s := newTestScraper(t, cfg)

	summary, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, summary.Downloaded)

	manifest, err := metadata.LoadManifest(summary.MetadataPath, "face")
	require.NoError(t, err)

	var onDisk int64
	for _, name := range jpgFiles(t, summary.OutputDir) {
		info, err := os.Stat(filepath.Join(summary.OutputDir, name))
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(len(api.jpegBody)), "%s has no embedded credit", name)
		onDisk += info.Size()

		entry, ok := manifest.Get(name)
		require.True(t, ok)
		assert.Equal(t, info.Size(), entry.Size)
	}
	assert.Equal(t, onDisk, summary.Bytes)
}

func TestRunSendsUserAgent(t *testing.T) {
	api := newFakePexels(t, []int64{1})
	cfg := testConfig(t, api.server.URL, 1)
	cfg.Pexels.UserAgent = "pexelscraper-test/2.0"
	s := newTestScraper(t, cfg)

	_, err := s.Run(context.Background())
	require.NoError(t, err)

	agents := api.agents()
	require.Len(t, agents, 2, "one search and one image request")
	for _, agent := range agents {
		assert.Equal(t, "pexelscraper-test/2.0", agent)
	}
}

func TestRunLogsSearchFailure(t *testing.T) {
	api := newFakePexels(t, []int64{1})
	api.searchStatus = http.StatusServiceUnavailable
	cfg := testConfig(t, api.server.URL, 1)
	log := logger.NewTestLogger()
	s := newTestScraper(t, cfg, WithLogger(log))

	_, err := s.Run(context.Background())
	require.Error(t, err)

	assert.True(t, log.HasMessageContaining("Search request failed"))
	entry := log.FindEntry("Search request failed")
	require.NotNil(t, entry)
	assert.Equal(t, string(errs.ErrorTypeServerError), entry.Fields["error_type"])
}

func TestNewRequiresAPIKey(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:0", 1)
	cfg.Pexels.APIKey = ""

	_, err := New(cfg, WithLogger(logger.NewNopLogger()))
	assert.ErrorIs(t, err, config.ErrMissingAPIKey)
}

func TestNewAssignsRunID(t *testing.T) {
	api := newFakePexels(t)
	cfg := testConfig(t, api.server.URL, 1)

	a := newTestScraper(t, cfg)
	b := newTestScraper(t, cfg)
	assert.NotEmpty(t, a.RunID())
	assert.NotEqual(t, a.RunID(), b.RunID())
}
