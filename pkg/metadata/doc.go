// Package metadata records what was downloaded.
//
// The manifest is a JSON file next to the photos, keyed by filename and
// merged across runs. EmbedCredit writes the photographer credit into the
// EXIF block of the JPEG itself.
package metadata
