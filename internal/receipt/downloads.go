package receipt

import (
	"fmt"
	"os"
	"path/filepath"
)

// Downloads writes export files into a local directory. It is the only side
// effect of an export; ToCSV and ToXLSX stay pure.
type Downloads struct {
	basePath string
}

// NewDownloads creates a Downloads writing into basePath
func NewDownloads(basePath string) (*Downloads, error) {
	// Create directory if it doesn't exist
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating download directory: %w", err)
	}

	return &Downloads{
		basePath: basePath,
	}, nil
}

// Save writes data to filename and returns the full path
func (d *Downloads) Save(filename string, data []byte) (string, error) {
	path := filepath.Join(d.basePath, filepath.Base(filename))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing file: %w", err)
	}
	return path, nil
}
