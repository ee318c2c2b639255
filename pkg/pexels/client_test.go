package pexels

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pexelscraper/pkg/config"
	errs "pexelscraper/pkg/errors"
	"pexelscraper/pkg/logger"
)

func testConfig(baseURL string) config.PexelsConfig {
	return config.PexelsConfig{
		APIKey:     "test-key",
		BaseURL:    baseURL,
		Timeout:    5 * time.Second,
		MaxRetries: 3,
	}
}

func newTestClient(t *testing.T, cfg config.PexelsConfig, log logger.Logger) *Client {
	t.Helper()
	client, err := NewClient(cfg, log, WithRetryWait(time.Millisecond, 5*time.Millisecond))
	require.NoError(t, err)
	return client
}

func samplePage() SearchResponse {
	return SearchResponse{
		TotalResults: 2,
		Page:         1,
		PerPage:      2,
		Photos: []Photo{
			{
				ID:              101,
				Photographer:    "Jane Doe",
				PhotographerURL: "https://www.pexels.com/@jane",
				Src:             map[string]string{"original": "https://images.pexels.com/101.jpeg", "large": "https://images.pexels.com/101-l.jpeg"},
			},
			{
				ID:           102,
				Photographer: "Joe",
				Src:          map[string]string{"large": "https://images.pexels.com/102-l.jpeg"},
			},
		},
	}
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient(config.PexelsConfig{}, logger.NewNopLogger())
	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypeAuth, errs.TypeOf(err))
}

func TestSearch(t *testing.T) {
	var gotQuery, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/search", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.RawQuery

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Ratelimit-Remaining", "199")
		w.Header().Set("X-Ratelimit-Limit", "200")
		json.NewEncoder(w).Encode(samplePage())
	}))
	defer server.Close()

	log := logger.NewTestLogger()
	client := newTestClient(t, testConfig(server.URL+"/v1"), log)

	res, err := client.Search(context.Background(), "african face", 3, 50)
	require.NoError(t, err)

	assert.Equal(t, "test-key", gotAuth, "the key is sent verbatim")
	assert.Contains(t, gotQuery, "query=african+face")
	assert.Contains(t, gotQuery, "per_page=50")
	assert.Contains(t, gotQuery, "page=3")

	require.Len(t, res.Photos, 2)
	assert.Equal(t, int64(101), res.Photos[0].ID)
	assert.Equal(t, "Jane Doe", res.Photos[0].Photographer)
	assert.Equal(t, 2, res.TotalResults)

	assert.True(t, log.HasMessage("API quota"))
	assert.True(t, log.HasMessage("Search page fetched"))
}

func TestSearchClampsPerPage(t *testing.T) {
	var perPage string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		perPage = r.URL.Query().Get("per_page")
		w.Write([]byte(`{"photos":[]}`))
	}))
	defer server.Close()

	client := newTestClient(t, testConfig(server.URL), logger.NewNopLogger())

	_, err := client.Search(context.Background(), "face", 1, 1000)
	require.NoError(t, err)
	assert.Equal(t, "80", perPage)
}

func TestSearchEmptyPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"page":9,"per_page":80,"photos":[],"total_results":640}`))
	}))
	defer server.Close()

	client := newTestClient(t, testConfig(server.URL), logger.NewNopLogger())

	res, err := client.Search(context.Background(), "face", 9, 80)
	require.NoError(t, err)
	assert.Empty(t, res.Photos)
}

func TestSearchNullPhotographerURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"photos":[{"id":7,"photographer":"Anon","photographer_url":null,"src":{"original":"https://x/7.jpg"}}]}`))
	}))
	defer server.Close()

	client := newTestClient(t, testConfig(server.URL), logger.NewNopLogger())

	res, err := client.Search(context.Background(), "face", 1, 1)
	require.NoError(t, err)
	require.Len(t, res.Photos, 1)
	assert.Equal(t, "", res.Photos[0].PhotographerURL)
}

func TestSearchStatusErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantType errs.ErrorType
		wantMsg  string
		wantHits int32
	}{
		{"forbidden is not retried", http.StatusForbidden, `{"error":"Forbidden"}`, errs.ErrorTypeAuth, "Forbidden", 1},
		{"unauthorized", http.StatusUnauthorized, ``, errs.ErrorTypeAuth, "search returned status 401", 1},
		{"bad request", http.StatusBadRequest, `{"error":"bad"}`, errs.ErrorTypeUnknown, "bad", 1},
		{"server error retried then fatal", http.StatusServiceUnavailable, ``, errs.ErrorTypeServerError, "503", 4},
		{"rate limited retried then fatal", http.StatusTooManyRequests, ``, errs.ErrorTypeRateLimit, "429", 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&hits, 1)
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := newTestClient(t, testConfig(server.URL), logger.NewNopLogger())

			res, err := client.Search(context.Background(), "face", 1, 10)
			assert.Nil(t, res)
			require.Error(t, err)

			var apiErr *errs.Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.wantType, apiErr.Type)
			assert.Equal(t, tt.status, apiErr.Code)
			assert.Contains(t, apiErr.Error(), tt.wantMsg)
			assert.Equal(t, tt.wantHits, atomic.LoadInt32(&hits))
		})
	}
}

func TestSearchRecoversAfterTransientFailure(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(samplePage())
	}))
	defer server.Close()

	client := newTestClient(t, testConfig(server.URL), logger.NewNopLogger())

	res, err := client.Search(context.Background(), "face", 1, 2)
	require.NoError(t, err)
	assert.Len(t, res.Photos, 2)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestSearchWithoutRetries(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.MaxRetries = 0
	client := newTestClient(t, cfg, logger.NewNopLogger())

	_, err := client.Search(context.Background(), "face", 1, 2)
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestSearchMalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"photos": [`))
	}))
	defer server.Close()

	client := newTestClient(t, testConfig(server.URL), logger.NewNopLogger())

	_, err := client.Search(context.Background(), "face", 1, 2)
	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypeParsing, errs.TypeOf(err))
}

func TestSearchCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"photos":[]}`))
	}))
	defer server.Close()

	client := newTestClient(t, testConfig(server.URL), logger.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Search(ctx, "face", 1, 2)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTransportIsShared(t *testing.T) {
	client := newTestClient(t, testConfig("http://example.invalid"), logger.NewNopLogger())
	assert.NotNil(t, client.Transport())
}

func TestPhotoSourceURL(t *testing.T) {
	photo := samplePage().Photos[0]

	url, ok := photo.SourceURL("original")
	assert.True(t, ok)
	assert.Equal(t, "https://images.pexels.com/101.jpeg", url)

	_, ok = photo.SourceURL("tiny")
	assert.False(t, ok)

	photo.Src["tiny"] = ""
	_, ok = photo.SourceURL("tiny")
	assert.False(t, ok, "empty URLs count as missing")
}

func TestClampPerPage(t *testing.T) {
	assert.Equal(t, 1, ClampPerPage(0))
	assert.Equal(t, 1, ClampPerPage(-5))
	assert.Equal(t, 37, ClampPerPage(37))
	assert.Equal(t, 80, ClampPerPage(80))
	assert.Equal(t, 80, ClampPerPage(81))
}
