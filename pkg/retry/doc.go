// Package retry provides a bounded retry policy for transient failures,
// used by the image downloader.
//
// A policy has three parts: the maximum number of attempts, a Backoff
// (FixedDelay, or GrowingDelay when the multiplier is above 1), and a predicate deciding which errors
// deserve another attempt. It knows nothing about HTTP.
//
// Basic usage:
//
//	cfg := retry.NewConfig(3, 2*time.Second, 1, logger.GetLogger())
//	err := retry.Do(ctx, func(ctx context.Context) error {
//		return fetch(ctx, url)
//	}, cfg)
//
// The default predicate retries network, rate limit and server errors and
// never retries context cancellation.
package retry
