// Package scraper runs a Pexels search and downloads the results.
//
// A run is a sequential loop. Each iteration asks the API for the next page,
// sized to what is still missing from the target, and walks its photos:
//
//   - photos without the requested resolution are counted and passed over
//   - photos whose file is already on disk are skipped and not credited
//   - everything else is downloaded; each success is counted and its
//     photographer credited
//
// An empty page ends the run early. A failed search request ends it with an
// error and no credits file. Otherwise, including on cancellation, the
// credits CSV is written to the output directory before Run returns.
//
// Usage:
//
//	cfg, _ := config.Load("", config.Config{})
//	s, err := scraper.New(cfg, scraper.WithReporter(progress))
//	if err != nil {
//	    return err
//	}
//	summary, err := s.Run(ctx)
package scraper
