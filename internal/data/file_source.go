package data

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mohamedkhairy/market-indicators/internal/models"
	"github.com/mohamedkhairy/market-indicators/pkg/logger"
)

// FileSource loads candles from a JSON or CSV file, picked by extension.
// The file holds one symbol; the symbol argument is only logged.
type FileSource struct {
	path string
}

// NewFileSource creates a file source
func NewFileSource(path string) (*FileSource, error) {
	if path == "" {
		return nil, fmt.Errorf("file source requires a path")
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".csv":
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	return &FileSource{path: path}, nil
}

// Name returns the source kind
func (f *FileSource) Name() string { return "file" }

// LoadCandles reads and normalizes the file on every call, so edits are
// picked up by a reload
func (f *FileSource) LoadCandles(ctx context.Context, symbol string, limit int) ([]models.Candle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read candles: %w", err)
	}

	var candles []models.Candle
	if strings.EqualFold(filepath.Ext(f.path), ".csv") {
		candles, err = decodeCSV(bytes.NewReader(raw))
	} else {
		candles, err = decodeJSON(raw)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.path, err)
	}

	out, err := finish(candles, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.path, err)
	}

	logger.Info("Loaded candles from file",
		logger.String("path", f.path),
		logger.String("symbol", symbol),
		logger.Int("count", len(out)),
	)
	return out, nil
}

// decodeCSV reads a header row naming the columns (same aliases as JSON)
// followed by one candle per row
func decodeCSV(r io.Reader) ([]models.Candle, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(header[i]))
	}

	var candles []models.Candle
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}

		rec := make(map[string]interface{}, len(header))
		for i, col := range header {
			if i < len(row) && row[i] != "" {
				rec[col] = row[i]
			}
		}
		c, err := candleFromRecord(rec)
		if err != nil {
			logger.Debug("Skipping csv row", logger.Int("line", line), logger.ErrorField(err))
			continue
		}
		candles = append(candles, c)
	}
	return candles, nil
}
