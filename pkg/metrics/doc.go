// Package metrics counts what a scrape run did.
//
// Each run gets its own registry. A short-lived CLI has nothing to scrape
// it, so the counters are written once at the end in the Prometheus text
// format for the node_exporter textfile collector.
package metrics
