package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"kbase/internal/domain"
)

const TypeCSV = "csv_data"

// CSVLoader turns each row of a CSV file with a header into one document.
// Cells become metadata fields; numeric cells are stored as numbers.
type CSVLoader struct{}

func (CSVLoader) Kind() string         { return "csv" }
func (CSVLoader) Extensions() []string { return []string{".csv"} }

func (CSVLoader) Load(_ context.Context, path string) ([]domain.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s: %w", path, domain.ErrEmptyInput)
	}
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}
	for i, col := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))
	}
	columns := strings.Join(header, ", ")
	source := SourceKey(path)

	var docs []domain.Document
	for row := 0; ; row++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		var b strings.Builder
		fmt.Fprintf(&b, "Record %d:\n", row+1)
		md := map[string]any{
			domain.KeySource: source,
			domain.KeyType:   TypeCSV,
			"row_index":      row,
			"columns":        columns,
		}
		for i, col := range header {
			if i >= len(rec) || col == "" {
				continue
			}
			cell := strings.TrimSpace(rec[i])
			if cell == "" {
				continue
			}
			fmt.Fprintf(&b, "%s: %s\n", col, cell)
			md[cellKey(col)] = cellValue(cell)
		}
		docs = append(docs, domain.Document{Text: b.String(), Metadata: md})
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%s: %w", path, domain.ErrEmptyInput)
	}
	return docs, nil
}

// cellKey keeps columns from overwriting the keys the store relies on.
func cellKey(col string) string {
	switch col {
	case domain.KeySource, domain.KeyType, "row_index", "columns":
		return "col_" + col
	}
	return col
}

func cellValue(cell string) any {
	if n, err := strconv.ParseInt(cell, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(cell, 64); err == nil {
		return f
	}
	return cell
}
