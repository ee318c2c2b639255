package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"dario.cat/mergo"

	"pexelscraper/pkg/pexels"
)

// PhotoMetadata describes one downloaded photo
type PhotoMetadata struct {
	ID              int64     `json:"id"`
	Photographer    string    `json:"photographer"`
	PhotographerURL string    `json:"photographer_url,omitempty"`
	URL             string    `json:"url"`
	Resolution      string    `json:"resolution"`
	Filename        string    `json:"filename"`
	Size            int64     `json:"size"`
	Width           int       `json:"width,omitempty"`
	Height          int       `json:"height,omitempty"`
	Alt             string    `json:"alt,omitempty"`
	DownloadedAt    time.Time `json:"downloaded_at"`
}

// FromPhoto converts a search result into PhotoMetadata
func FromPhoto(photo pexels.Photo, resolution, filename string, size int64) PhotoMetadata {
	url, _ := photo.SourceURL(resolution)
	return PhotoMetadata{
		ID:              photo.ID,
		Photographer:    photo.Photographer,
		PhotographerURL: photo.PhotographerURL,
		URL:             url,
		Resolution:      resolution,
		Filename:        filename,
		Size:            size,
		Width:           photo.Width,
		Height:          photo.Height,
		Alt:             photo.Alt,
		DownloadedAt:    time.Now().UTC(),
	}
}

// FileWriter replaces a file in the output directory
type FileWriter interface {
	WriteFile(filename string, data []byte) error
}

// Manifest lists every photo downloaded for a query, across runs
type Manifest struct {
	Query     string          `json:"query"`
	UpdatedAt time.Time       `json:"updated_at"`
	Photos    []PhotoMetadata `json:"photos"`

	index map[string]int
}

// NewManifest creates an empty manifest for query
func NewManifest(query string) *Manifest {
	return &Manifest{Query: query, Photos: []PhotoMetadata{}, index: make(map[string]int)}
}

// LoadManifest reads the manifest at path. A missing file yields an
// empty manifest for query.
func LoadManifest(path, query string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewManifest(query), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	m := NewManifest(query)
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest: %w", err)
	}
	if m.Photos == nil {
		m.Photos = []PhotoMetadata{}
	}

	m.index = make(map[string]int, len(m.Photos))
	for i, p := range m.Photos {
		m.index[p.Filename] = i
	}
	return m, nil
}

// Add records meta. An entry with the same filename is updated in place:
// fields set in meta win, fields it leaves empty keep their earlier values.
func (m *Manifest) Add(meta PhotoMetadata) error {
	if m.index == nil {
		m.index = make(map[string]int)
	}
	if i, ok := m.index[meta.Filename]; ok {
		merged := m.Photos[i]
		if err := mergo.Merge(&merged, meta, mergo.WithOverride); err != nil {
			return fmt.Errorf("failed to merge manifest entry %s: %w", meta.Filename, err)
		}
		m.Photos[i] = merged
		return nil
	}
	m.index[meta.Filename] = len(m.Photos)
	m.Photos = append(m.Photos, meta)
	return nil
}

// Get returns the entry for filename
func (m *Manifest) Get(filename string) (PhotoMetadata, bool) {
	i, ok := m.index[filename]
	if !ok {
		return PhotoMetadata{}, false
	}
	return m.Photos[i], true
}

// Len returns the number of photos in the manifest
func (m *Manifest) Len() int {
	return len(m.Photos)
}

// Save writes the manifest as indented JSON
func (m *Manifest) Save(w FileWriter, filename string) error {
	m.UpdatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := w.WriteFile(filename, data); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}
