package dataset

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/studentperf/pkg/errors"
)

// Frame is a column-oriented view of records. It implements
// compose.Table.
type Frame struct {
	rows        int
	names       []string
	numeric     map[string][]float64
	categorical map[string][]string
}

// NewFrame converts records into columns named by Header.
func NewFrame(records []Record) *Frame {
	f := &Frame{
		rows:        len(records),
		names:       append([]string(nil), Header...),
		numeric:     make(map[string][]float64),
		categorical: make(map[string][]string),
	}
	for _, name := range Header {
		if isNumericColumn(name) {
			col := make([]float64, len(records))
			for i := range records {
				col[i], _ = records[i].Numeric(name)
			}
			f.numeric[name] = col
			continue
		}
		col := make([]string, len(records))
		for i := range records {
			col[i], _ = records[i].Categorical(name)
		}
		f.categorical[name] = col
	}
	return f
}

// NumRows returns the number of records.
func (f *Frame) NumRows() int { return f.rows }

// Columns returns the column names.
func (f *Frame) Columns() []string { return append([]string(nil), f.names...) }

// Numeric returns a numeric column.
func (f *Frame) Numeric(name string) ([]float64, bool) {
	col, ok := f.numeric[name]
	return col, ok
}

// Categorical returns a categorical column.
func (f *Frame) Categorical(name string) ([]string, bool) {
	col, ok := f.categorical[name]
	return col, ok
}

// Drop returns a frame without the named columns, sharing column data.
func (f *Frame) Drop(names ...string) *Frame {
	skip := make(map[string]bool, len(names))
	for _, n := range names {
		skip[n] = true
	}
	out := &Frame{
		rows:        f.rows,
		numeric:     make(map[string][]float64),
		categorical: make(map[string][]string),
	}
	for _, n := range f.names {
		if skip[n] {
			continue
		}
		out.names = append(out.names, n)
		if col, ok := f.numeric[n]; ok {
			out.numeric[n] = col
		} else {
			out.categorical[n] = f.categorical[n]
		}
	}
	return out
}

// TargetVector returns the target column as an n×1 matrix. NaN targets
// are rejected since no estimator can learn from them.
func (f *Frame) TargetVector(s Schema) (*mat.Dense, error) {
	col, ok := f.numeric[s.Target]
	if !ok {
		return nil, errors.NewSchemaMismatchError("dataset.TargetVector",
			"target column missing", []string{s.Target}, f.names)
	}
	for i, v := range col {
		if math.IsNaN(v) {
			return nil, errors.NewValueError("dataset.TargetVector",
				fmt.Sprintf("missing %s in row %d", s.Target, i))
		}
	}
	return mat.NewDense(len(col), 1, append([]float64(nil), col...)), nil
}
