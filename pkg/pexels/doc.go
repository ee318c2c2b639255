// Package pexels is a small client for the Pexels photo search API.
//
// It is built on resty: the API key travels in the Authorization header,
// responses with status 429 or 5xx are retried with backoff, and every
// response is logged together with the quota headers Pexels returns.
//
//	client, err := pexels.NewClient(cfg.Pexels, log)
//	page, err := client.Search(ctx, "mountains", 1, 80)
//	for _, photo := range page.Photos {
//	    url, ok := photo.SourceURL("original")
//	    ...
//	}
package pexels
