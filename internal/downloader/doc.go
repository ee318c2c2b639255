// Package downloader fetches images one at a time into a storage.Manager.
//
// One Downloader covers both download behaviours: "retrying" streams each
// image under a bounded retry policy, "single" makes one request and accepts
// only HTTP 200. Either way bytes go to a temporary file that is renamed on
// success, so a failed download leaves nothing behind.
package downloader
