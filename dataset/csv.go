package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/studentperf/pkg/errors"
)

// ReadCSV parses records from r. The header must name every feature
// column, and the target column when withTarget is set; column order is
// free and unknown columns are ignored. Empty cells become missing values.
func ReadCSV(r io.Reader, schema Schema, withTarget bool) ([]Record, error) {
	const op = "dataset.ReadCSV"
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, errors.NewSchemaMismatchError(op, "empty input", Header, nil)
		}
		return nil, err
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}
	if err := schema.CheckHeader(op, header, withTarget); err != nil {
		return nil, err
	}

	var records []Record
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		var rec Record
		rec.MathScore = math.NaN()
		rec.ReadingScore = math.NaN()
		rec.WritingScore = math.NaN()
		for j, name := range header {
			cell := strings.TrimSpace(row[j])
			if isNumericColumn(name) {
				if cell == "" {
					continue
				}
				v, err := strconv.ParseFloat(cell, 64)
				if err != nil {
					return nil, errors.NewValueError(op,
						fmt.Sprintf("line %d: column %s: invalid number %q", line, name, cell))
				}
				rec.setNumeric(name, v)
				continue
			}
			rec.setCategorical(name, cell)
		}
		records = append(records, rec)
	}
	return records, nil
}

// ReadCSVFile reads records from path. Every failure is an IOFailure
// wrapping the cause, except a header without the schema columns, which is
// a SchemaMismatch.
func ReadCSVFile(path string, schema Schema, withTarget bool) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewIOFailureError("dataset.ReadCSVFile", path, err)
	}
	defer f.Close()

	records, err := ReadCSV(f, schema, withTarget)
	if err != nil {
		if errors.IsSchemaMismatch(err) {
			return nil, err
		}
		return nil, errors.NewIOFailureError("dataset.ReadCSVFile", path, err)
	}
	return records, nil
}

func formatScore(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteCSV writes records to w in Header order.
func WriteCSV(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	row := make([]string, len(Header))
	for i := range records {
		for j, name := range Header {
			if isNumericColumn(name) {
				v, _ := records[i].Numeric(name)
				row[j] = formatScore(v)
			} else {
				row[j], _ = records[i].Categorical(name)
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes records to path, creating its directory.
func WriteCSVFile(path string, records []Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.NewIOFailureError("dataset.WriteCSVFile", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.NewIOFailureError("dataset.WriteCSVFile", path, err)
	}
	if err := WriteCSV(f, records); err != nil {
		_ = f.Close()
		return errors.NewIOFailureError("dataset.WriteCSVFile", path, err)
	}
	if err := f.Close(); err != nil {
		return errors.NewIOFailureError("dataset.WriteCSVFile", path, err)
	}
	return nil
}

// Subset returns the records at idx, in idx order.
func Subset(records []Record, idx []int) []Record {
	out := make([]Record, len(idx))
	for i, j := range idx {
		out[i] = records[j]
	}
	return out
}
