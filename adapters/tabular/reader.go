// Package tabular reads CSV and XLSX files into frames.
package tabular

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gotrubric/domain/core"
	"gotrubric/domain/frame"
	"gotrubric/internal/logging"

	"github.com/xuri/excelize/v2"
)

// DataReader reads one CSV or XLSX file
type DataReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
	sheet    string
	logger   *slog.Logger
}

// Option configures a DataReader
type Option func(*DataReader)

// WithSheet reads the named worksheet instead of the first one
func WithSheet(name string) Option {
	return func(r *DataReader) { r.sheet = name }
}

// NewDataReader picks the format from the file extension
func NewDataReader(filePath string, opts ...Option) (*DataReader, error) {
	var fileType string
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".csv":
		fileType = "csv"
	case ".xlsx", ".xlsm":
		fileType = "xlsx"
	default:
		return nil, fmt.Errorf("%w: unsupported data file %s", core.ErrConfiguration, filePath)
	}
	r := &DataReader{filePath: filePath, fileType: fileType, logger: logging.New("tabular")}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Read loads the file: the first row is the header, and every cell is
// coerced to a number when it parses as one
func Read(filePath string, opts ...Option) (*frame.Frame, error) {
	r, err := NewDataReader(filePath, opts...)
	if err != nil {
		return nil, err
	}
	return r.ReadFrame()
}

// ReadFrame reads the file into a frame
func (r *DataReader) ReadFrame() (*frame.Frame, error) {
	start := time.Now()

	var rows [][]string
	var err error
	switch r.fileType {
	case "csv":
		rows, err = r.readCSVRows()
	default:
		rows, err = r.readExcelRows()
	}
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("%w: %s must have a header row and at least one data row", core.ErrEmptyData, r.filePath)
	}

	f, err := processRows(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r.filePath, err)
	}
	r.logger.Debug("data file read",
		slog.String("path", r.filePath),
		slog.String("type", r.fileType),
		slog.Int("rows", f.Len()),
		slog.Int("columns", len(f.Columns())),
		slog.Duration("elapsed", time.Since(start)))
	return f, nil
}

func (r *DataReader) readExcelRows() ([][]string, error) {
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet := r.sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("%w: %s has no worksheets", core.ErrEmptyData, r.filePath)
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func (r *DataReader) readCSVRows() ([][]string, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	return rows, nil
}

// processRows converts raw string rows into a frame. Short rows (excelize
// drops trailing empty cells) are padded with missing values.
func processRows(rows [][]string) (*frame.Frame, error) {
	headers := make([]string, len(rows[0]))
	for i, header := range rows[0] {
		headers[i] = strings.TrimSpace(header)
	}

	data := make([][]any, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if blank(row) {
			continue
		}
		if len(row) > len(headers) {
			return nil, fmt.Errorf("%w: row has %d cells for %d columns", core.ErrType, len(row), len(headers))
		}
		values := make([]any, len(headers))
		for j := range headers {
			if j < len(row) {
				values[j] = coerce(row[j])
			}
		}
		data = append(data, values)
	}
	return frame.New(headers, data)
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// coerce turns a cell into float64 when numeric, nil when empty, and
// leaves other text as a string
func coerce(cell string) any {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(cell, 64); err == nil {
		return f
	}
	return cell
}
