// Package ratelimit keeps the scraper under the Pexels API quota.
//
// Pexels allows 200 requests per hour by default. NewHourly returns a
// SlidingWindow over one hour, or Unlimited when the quota is set to zero.
// Only search requests count; image downloads go to the CDN and are not
// metered.
//
// Usage:
//
//	limiter := ratelimit.NewHourly(200)
//
//	// Block until allowed
//	if err := limiter.Wait(ctx); err != nil {
//	    return err
//	}
//	// Proceed with request
package ratelimit
