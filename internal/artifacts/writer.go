// Package artifacts persists screenshot evidence with a deterministic
// naming scheme: ordinal plus step key, e.g. 03_search.png.
package artifacts

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Writer writes screenshots into a single output directory.
type Writer struct {
	dir    string
	logger *zap.Logger
}

// NewWriter creates the output directory if absent.
func NewWriter(dir string, logger *zap.Logger) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create screenshot directory %q: %w", dir, err)
	}
	return &Writer{dir: dir, logger: logger.Named("artifacts")}, nil
}

// Dir returns the output directory.
func (w *Writer) Dir() string { return w.dir }

// SaveStepShot writes a step screenshot named by its 1-based ordinal and key.
func (w *Writer) SaveStepShot(ordinal int, key string, png []byte) (string, error) {
	name := fmt.Sprintf("%02d_%s.png", ordinal, key)
	return w.save(name, png)
}

// SaveErrorShot writes the best-effort screenshot captured on a fatal abort.
func (w *Writer) SaveErrorShot(png []byte) (string, error) {
	return w.save("error.png", png)
}

func (w *Writer) save(name string, png []byte) (string, error) {
	path := filepath.Join(w.dir, name)
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return "", fmt.Errorf("failed to write screenshot %q: %w", path, err)
	}
	w.logger.Debug("Screenshot saved", zap.String("path", path), zap.Int("bytes", len(png)))
	return path, nil
}
