package trainer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/churnlab/retrainer/internal/core"
)

// TargetColumn is the header of the churn label column in exported datasets.
const TargetColumn = "TARGET"

// WriteDatasetCSV exports the dataset with the columns customer_id, the
// sorted feature names, and TARGET (1 churned, 0 retained). A feature
// missing from a record is written as an empty cell.
func WriteDatasetCSV(path string, ds *core.Dataset) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600) //nolint:gosec
	if err != nil {
		return fmt.Errorf("failed to create dataset file: %w", err)
	}

	columns := ds.Columns()
	w := csv.NewWriter(f)

	header := make([]string, 0, len(columns)+2)
	header = append(header, "customer_id")
	header = append(header, columns...)
	header = append(header, TargetColumn)
	if err := w.Write(header); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write dataset header: %w", err)
	}

	row := make([]string, len(header))
	for _, rec := range ds.Records {
		row[0] = rec.CustomerID
		for i, col := range columns {
			if v, ok := rec.Features[col]; ok {
				row[i+1] = strconv.FormatFloat(v, 'g', -1, 64)
			} else {
				row[i+1] = ""
			}
		}
		row[len(row)-1] = "0"
		if rec.Target {
			row[len(row)-1] = "1"
		}
		if err := w.Write(row); err != nil {
			_ = f.Close()
			return fmt.Errorf("failed to write dataset row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to flush dataset: %w", err)
	}
	return f.Close()
}

// ReadDatasetCSV parses a dataset in the layout written by WriteDatasetCSV.
// The customer_id and TARGET columns are located by name; every other
// column is a feature. TARGET accepts 1/0 and true/false.
func ReadDatasetCSV(r io.Reader) (*core.Dataset, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("dataset has no header")
		}
		return nil, fmt.Errorf("failed to read dataset header: %w", err)
	}

	idCol, targetCol := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case "customer_id":
			idCol = i
		case TargetColumn:
			targetCol = i
		}
	}
	if idCol < 0 || targetCol < 0 {
		return nil, fmt.Errorf("dataset header must contain customer_id and %s", TargetColumn)
	}

	ds := &core.Dataset{}
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read dataset: %w", err)
		}

		rec := core.LabeledCustomer{
			CustomerID: strings.TrimSpace(row[idCol]),
			Features:   make(map[string]float64),
		}
		if rec.CustomerID == "" {
			return nil, fmt.Errorf("line %d: empty customer_id", line)
		}
		if rec.Target, err = parseTarget(row[targetCol]); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		for i, cell := range row {
			cell = strings.TrimSpace(cell)
			if i == idCol || i == targetCol || cell == "" {
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: column %s: %w", line, header[i], err)
			}
			rec.Features[strings.TrimSpace(header[i])] = v
		}
		ds.Records = append(ds.Records, rec)
	}
	return ds, nil
}

func parseTarget(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true":
		return true, nil
	case "0", "false":
		return false, nil
	default:
		return false, fmt.Errorf("invalid %s value %q", TargetColumn, raw)
	}
}
