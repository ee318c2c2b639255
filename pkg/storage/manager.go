package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	errs "pexelscraper/pkg/errors"
)

// FillFunc writes the content of a file and reports how many bytes it wrote
type FillFunc func(w io.Writer) (int64, error)

// Manager owns the output directory for one query
type Manager struct {
	outputDir string
}

// NewManager creates a new storage manager, creating outputDir if needed
func NewManager(outputDir string) (*Manager, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &Manager{outputDir: outputDir}, nil
}

// Path returns the absolute location of filename inside the output directory
func (m *Manager) Path(filename string) string {
	return filepath.Join(m.outputDir, filename)
}

// Exists reports whether a file with this name is already present.
// Presence is the only duplicate signal; content is never compared.
func (m *Manager) Exists(filename string) bool {
	info, err := os.Stat(m.Path(filename))
	return err == nil && !info.IsDir()
}

// Save writes a file atomically. fill writes into a temporary file in the
// output directory which is renamed to filename only when fill succeeds.
// On any failure the temporary file is removed, so a partial download can
// never satisfy Exists. Errors returned by fill are passed through unchanged.
func (m *Manager) Save(filename string, fill FillFunc) (int64, error) {
	out, err := os.CreateTemp(m.outputDir, "."+filename+".*.part")
	if err != nil {
		return 0, errs.NewStorageError("failed to create temporary file", err)
	}
	tempFile := out.Name()

	written, err := fill(out)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return written, err
	}

	if closeErr != nil {
		os.Remove(tempFile)
		return written, errs.NewStorageError("failed to close file", closeErr)
	}

	if err := os.Chmod(tempFile, 0644); err != nil {
		os.Remove(tempFile)
		return written, errs.NewStorageError("failed to set file mode", err)
	}

	if err := os.Rename(tempFile, m.Path(filename)); err != nil {
		os.Remove(tempFile)
		return written, errs.NewStorageError("failed to rename temporary file", err)
	}

	return written, nil
}

// WriteFile replaces filename with data atomically
func (m *Manager) WriteFile(filename string, data []byte) error {
	_, err := m.Save(filename, func(w io.Writer) (int64, error) {
		n, err := w.Write(data)
		if err != nil {
			return int64(n), errs.NewStorageError("failed to write file", err)
		}
		return int64(n), nil
	})
	return err
}

// GetOutputDir returns the output directory path
func (m *Manager) GetOutputDir() string {
	return m.outputDir
}
