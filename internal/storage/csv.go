package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/IshaanNene/stockpulse/internal/types"
)

// CSVStore appends comments to one CSV file per symbol.
type CSVStore struct {
	dir    string
	mu     sync.Mutex
	count  int
	logger *slog.Logger
}

// NewCSVStore creates a store writing into dir.
func NewCSVStore(dir string, logger *slog.Logger) (*CSVStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &CSVStore{
		dir:    dir,
		logger: logger.With("component", "csv_store"),
	}, nil
}

func (s *CSVStore) Name() string { return "csv" }

// Path returns the CSV file for symbol. Symbols that are empty, contain a
// path separator or would leave dir are rejected with types.ErrInvalidSymbol.
func (s *CSVStore) Path(symbol string) (string, error) {
	name := symbol + ".csv"
	if symbol == "" || symbol == "." || symbol == ".." || strings.ContainsAny(symbol, `/\`+"\x00") || !filepath.IsLocal(name) {
		return "", fmt.Errorf("%w: %q", types.ErrInvalidSymbol, symbol)
	}
	return filepath.Join(s.dir, name), nil
}

// Append writes comments to <dir>/<symbol>.csv. The header row is written
// only when the file is created.
func (s *CSVStore) Append(symbol string, comments []types.Comment) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.Path(symbol)
	if err != nil {
		return err
	}
	_, statErr := os.Stat(path)
	writeHeader := errors.Is(statErr, fs.ErrNotExist)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(types.CommentColumns); err != nil {
			return fmt.Errorf("write CSV header: %w", err)
		}
	}
	for _, c := range comments {
		if err := w.Write(c.Row()); err != nil {
			return fmt.Errorf("write CSV row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	s.count += len(comments)
	s.logger.Debug("CSV rows appended", "path", path, "rows", len(comments), "total", s.count)
	return nil
}

// ReadCSV loads a file written by Append. An empty sentiment_tag column reads
// back as nil.
func ReadCSV(path string) ([]types.Comment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(types.CommentColumns)

	var out []types.Comment
	for line := 0; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if line == 0 && strings.EqualFold(rec[0], types.CommentColumns[0]) {
			continue
		}

		date, err := time.Parse(types.DateLayout, rec[1])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: comment_time: %w", path, line+1, err)
		}
		influence, err := strconv.Atoi(rec[4])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: influence: %w", path, line+1, err)
		}
		c := types.Comment{
			Stock:       rec[0],
			CommentTime: date,
			Comments:    rec[2],
			Influence:   influence,
		}
		if rec[3] != "" {
			c.SentimentTag = types.StringPtr(rec[3])
		}
		out = append(out, c)
	}
	return out, nil
}
