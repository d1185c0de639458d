package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pterm/pterm"
)

// OpenAudit opens path for appending and returns a JSON logger over it, one
// line per executed statement batch. The caller closes the returned file.
func OpenAudit(path string) (*pterm.Logger, *os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, nil, fmt.Errorf("failed to create audit log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	return New("info", "json", f), f, nil
}
