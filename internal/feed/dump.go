package feed

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/andybalholm/brotli"
)

// PageDumper keeps brotli-compressed copies of snapshots that failed to align
// so selector drift can be diagnosed after a run.
type PageDumper struct {
	dir string
	now func() time.Time
}

// NewPageDumper creates a dumper writing into dir.
func NewPageDumper(dir string) *PageDumper {
	return &PageDumper{dir: dir, now: time.Now}
}

// Dump writes html to <dir>/<symbol>-<iteration>-<unix>.html.br and returns the path.
func (d *PageDumper) Dump(symbol string, iteration int, html string) (string, error) {
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return "", fmt.Errorf("create dump dir: %w", err)
	}
	name := fmt.Sprintf("%s-%04d-%d.html.br", symbol, iteration, d.now().Unix())
	path := filepath.Join(d.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create dump: %w", err)
	}
	defer f.Close()

	w := brotli.NewWriterLevel(f, brotli.DefaultCompression)
	if _, err := io.WriteString(w, html); err != nil {
		return "", fmt.Errorf("write dump: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("flush dump: %w", err)
	}
	return path, nil
}

// ReadDump decompresses a dump written by Dump.
func ReadDump(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	data, err := io.ReadAll(brotli.NewReader(f))
	if err != nil {
		return "", fmt.Errorf("decompress dump: %w", err)
	}
	return string(data), nil
}
