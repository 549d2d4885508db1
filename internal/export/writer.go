package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/wonny/kassandra/internal/contracts"
	"github.com/wonny/kassandra/pkg/logger"
)

// ErrOutsideOutputDir is returned for download paths that escape the output directory
var ErrOutsideOutputDir = errors.New("path is outside the output directory")

// PredictionRow is one line of the prediction CSV
type PredictionRow struct {
	Date      string  `csv:"Date"`
	Actual    float64 `csv:"Actual_Closing_Price"`
	Predicted float64 `csv:"Predicted_Closing_Price"`
}

// Writer writes feature tables and prediction logs as CSV under one directory
// ⭐ SSOT: 파일 출력 경로는 이 디렉터리로 제한
type Writer struct {
	dir    string
	logger *logger.Logger
}

// NewWriter creates a writer rooted at dir (created on first write)
func NewWriter(dir string, log *logger.Logger) *Writer {
	return &Writer{dir: dir, logger: log}
}

// Dir returns the output directory
func (w *Writer) Dir() string {
	return w.dir
}

// FeaturesFileName returns features_{SYMBOL}_{start}_to_{end}.csv
func FeaturesFileName(symbol, start, end string) string {
	return fmt.Sprintf("features_%s_%s_to_%s.csv", strings.ToUpper(symbol), start, end)
}

// PredictionsFileName returns predictions_{SYMBOL}_{start}_to_{end}.csv
func PredictionsFileName(symbol, start, end string) string {
	return fmt.Sprintf("predictions_%s_%s_to_%s.csv", strings.ToUpper(symbol), start, end)
}

// WriteFeatures writes the aligned table: Date, OHLCV, technical columns, sentiment columns
func (w *Writer) WriteFeatures(symbol, start, end string, table *contracts.AlignedTable) (string, error) {
	path := filepath.Join(w.dir, FeaturesFileName(symbol, start, end))
	err := w.writeAtomic(path, func(out io.Writer) error {
		return writeFeatures(out, table)
	})
	if err != nil {
		return "", fmt.Errorf("write features: %w", err)
	}

	w.logger.WithFields(map[string]interface{}{
		"path": path,
		"rows": table.Len(),
	}).Info("Feature table exported")
	return path, nil
}

// WritePredictions writes the walk-forward log
func (w *Writer) WritePredictions(symbol, start, end string, log []contracts.PredictionLogEntry) (string, error) {
	rows := make([]*PredictionRow, 0, len(log))
	for _, entry := range log {
		rows = append(rows, &PredictionRow{
			Date:      contracts.DateKey(entry.Date),
			Actual:    entry.Actual,
			Predicted: entry.Predicted,
		})
	}

	path := filepath.Join(w.dir, PredictionsFileName(symbol, start, end))
	err := w.writeAtomic(path, func(out io.Writer) error {
		return gocsv.Marshal(&rows, out)
	})
	if err != nil {
		return "", fmt.Errorf("write predictions: %w", err)
	}

	w.logger.WithFields(map[string]interface{}{
		"path": path,
		"rows": len(rows),
	}).Info("Prediction log exported")
	return path, nil
}

// ReadPredictions loads a prediction CSV written by WritePredictions
func ReadPredictions(path string) ([]*PredictionRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rows []*PredictionRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("decode predictions %s: %w", path, err)
	}
	return rows, nil
}

// Resolve maps a requested download path to a file inside the output directory.
// Bare file names are looked up in the directory.
func (w *Writer) Resolve(requested string) (string, error) {
	if strings.TrimSpace(requested) == "" {
		return "", fmt.Errorf("empty path: %w", ErrOutsideOutputDir)
	}

	root, err := filepath.Abs(w.dir)
	if err != nil {
		return "", fmt.Errorf("resolve output dir: %w", err)
	}

	candidate := requested
	if !filepath.IsAbs(candidate) && filepath.Dir(filepath.Clean(candidate)) == "." {
		candidate = filepath.Join(root, candidate)
	}
	abs, err := filepath.Abs(candidate)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", requested, err)
	}

	if !within(root, abs) {
		return "", ErrOutsideOutputDir
	}

	// 심볼릭 링크는 실제 경로 기준으로 다시 확인
	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return "", fmt.Errorf("resolve output dir: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", err
	}
	if !within(realRoot, resolved) {
		return "", ErrOutsideOutputDir
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory: %w", requested, os.ErrNotExist)
	}
	return abs, nil
}

// within reports whether path lies strictly below root
func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	return true
}

// Prune removes exported CSV files last modified before cutoff and returns how many were removed.
// A missing output directory is not an error.
func (w *Writer) Prune(cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("read output dir: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".csv" {
			continue
		}
		if !strings.HasPrefix(name, "features_") && !strings.HasPrefix(name, "predictions_") {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(w.dir, name)); err != nil {
			w.logger.WithError(err).WithField("file", name).Warn("Failed to remove expired export")
			continue
		}
		removed++
	}
	return removed, nil
}

// writeAtomic writes to a temp file in the same directory and renames it over path
func (w *Writer) writeAtomic(path string, fill func(io.Writer) error) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(w.dir, ".tmp-*.csv")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := fill(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func writeFeatures(out io.Writer, table *contracts.AlignedTable) error {
	cw := csv.NewWriter(out)

	header := []string{"Date", "Open", "High", "Low", "Close", "Volume"}
	header = append(header, table.TechnicalColumns...)
	header = append(header, table.SentimentColumns...)
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, row := range table.Rows {
		record := make([]string, 0, len(header))
		record = append(record,
			contracts.DateKey(row.Date),
			formatFloat(row.Bar.Open),
			formatFloat(row.Bar.High),
			formatFloat(row.Bar.Low),
			formatFloat(row.Bar.Close),
			strconv.FormatInt(row.Bar.Volume, 10),
		)
		for _, v := range row.Technical {
			record = append(record, formatFloat(v))
		}
		if len(table.SentimentColumns) > 0 {
			for _, v := range row.Sentiment.Vector() {
				record = append(record, formatFloat(v))
			}
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
