package pexels

// SearchResponse is one page of results from the photo search endpoint
type SearchResponse struct {
	TotalResults int     `json:"total_results"`
	Page         int     `json:"page"`
	PerPage      int     `json:"per_page"`
	Photos       []Photo `json:"photos"`
	NextPage     string  `json:"next_page"`
}

// Photo is a single search result. PhotographerURL is empty when the API
// returns null.
type Photo struct {
	ID              int64             `json:"id"`
	Width           int               `json:"width"`
	Height          int               `json:"height"`
	URL             string            `json:"url"`
	Photographer    string            `json:"photographer"`
	PhotographerURL string            `json:"photographer_url"`
	PhotographerID  int64             `json:"photographer_id"`
	Alt             string            `json:"alt"`
	Src             map[string]string `json:"src"`
}

// SourceURL returns the image URL for the given resolution key
func (p Photo) SourceURL(resolution string) (string, bool) {
	url, ok := p.Src[resolution]
	if !ok || url == "" {
		return "", false
	}
	return url, true
}

// errorResponse is the body Pexels sends with most failures
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
