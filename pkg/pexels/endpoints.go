package pexels

const (
	// DefaultBaseURL is the base URL of the Pexels v1 API
	DefaultBaseURL = "https://api.pexels.com/v1"

	// SearchEndpoint is the photo search path, relative to the base URL
	SearchEndpoint = "/search"

	// MaxPerPage is the largest page size the search endpoint accepts
	MaxPerPage = 80

	// Rate limit headers reported on every response
	headerRateLimitRemaining = "X-Ratelimit-Remaining"
	headerRateLimitLimit     = "X-Ratelimit-Limit"
)

// ClampPerPage bounds a requested page size to [1, MaxPerPage]
func ClampPerPage(perPage int) int {
	if perPage < 1 {
		return 1
	}
	if perPage > MaxPerPage {
		return MaxPerPage
	}
	return perPage
}
