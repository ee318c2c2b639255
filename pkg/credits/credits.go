package credits

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
)

// Header is the first row of every credits file
var Header = []string{"Photographer", "Profile URL"}

// Entry is one photographer credit
type Entry struct {
	Photographer string
	ProfileURL   string
}

// Table maps photographer names to profile URLs in first-seen order.
// Adding a name that is already present keeps its position but replaces
// the URL with the latest one.
type Table struct {
	order []string
	urls  map[string]string
}

// NewTable creates an empty credits table
func NewTable() *Table {
	return &Table{urls: make(map[string]string)}
}

// Add records a credit for photographer
func (t *Table) Add(photographer, profileURL string) {
	if _, ok := t.urls[photographer]; !ok {
		t.order = append(t.order, photographer)
	}
	t.urls[photographer] = profileURL
}

// Len returns the number of distinct photographers
func (t *Table) Len() int {
	return len(t.order)
}

// Entries returns the credits in insertion order
func (t *Table) Entries() []Entry {
	entries := make([]Entry, 0, len(t.order))
	for _, name := range t.order {
		entries = append(entries, Entry{Photographer: name, ProfileURL: t.urls[name]})
	}
	return entries
}

// WriteCSV writes the table to path, replacing any existing file. The file
// always has the header row, even when the table is empty.
func WriteCSV(path string, t *Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create credits directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create credits file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(Header); err != nil {
		return fmt.Errorf("failed to write credits header: %w", err)
	}
	for _, e := range t.Entries() {
		if err := w.Write([]string{e.Photographer, e.ProfileURL}); err != nil {
			return fmt.Errorf("failed to write credit for %q: %w", e.Photographer, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush credits file: %w", err)
	}

	return f.Close()
}

// ReadCSV loads a credits file written by WriteCSV
func ReadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open credits file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(Header)

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse credits file: %w", err)
	}

	t := NewTable()
	for i, record := range records {
		if i == 0 && record[0] == Header[0] && record[1] == Header[1] {
			continue
		}
		t.Add(record[0], record[1])
	}
	return t, nil
}
