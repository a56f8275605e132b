package compose

import (
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/studentperf/core/model"
	"github.com/YuminosukeSato/studentperf/pkg/errors"
	"github.com/YuminosukeSato/studentperf/pkg/log"
)

// Table is the column-oriented input of a ColumnTransformer.
type Table interface {
	NumRows() int
	// Columns lists the available column names.
	Columns() []string
	// Numeric returns the named column if it exists and is numeric.
	Numeric(name string) ([]float64, bool)
	// Categorical returns the named column if it exists and is categorical.
	Categorical(name string) ([]string, bool)
}

// ColumnKind selects how a block reads its columns from a Table.
type ColumnKind int

const (
	// NumericColumns feeds the block a float matrix (NaN = missing).
	NumericColumns ColumnKind = iota
	// CategoricalColumns feeds the block row-major strings ("" = missing).
	CategoricalColumns
)

func (k ColumnKind) String() string {
	if k == CategoricalColumns {
		return "categorical"
	}
	return "numeric"
}

// ColumnBlock applies Pipeline to Columns.
type ColumnBlock struct {
	Name     string
	Kind     ColumnKind
	Columns  []string
	Pipeline *Pipeline
}

// ColumnTransformer applies one pipeline per column block and stacks the
// outputs horizontally, in block order. Columns not named by any block are
// dropped (sklearn remainder="drop").
type ColumnTransformer struct {
	Blocks []ColumnBlock
	State  *model.StateManager

	// BlockWidths is the fitted output width of each block.
	BlockWidths []int
	// OutputNames names every output column, in order.
	OutputNames []string
}

// NewColumnTransformer validates the blocks and returns an unfitted transformer.
func NewColumnTransformer(blocks ...ColumnBlock) (*ColumnTransformer, error) {
	if len(blocks) == 0 {
		return nil, errors.NewValidationError("transformers", "at least one column block is required", 0)
	}
	seen := make(map[string]bool, len(blocks))
	for _, b := range blocks {
		switch {
		case b.Name == "":
			return nil, errors.NewValidationError("transformers", "column block needs a name", b.Name)
		case seen[b.Name]:
			return nil, errors.NewValidationError("transformers", "duplicate column block name", b.Name)
		case len(b.Columns) == 0:
			return nil, errors.NewValidationError("transformers", "column block selects no columns", b.Name)
		case b.Pipeline == nil:
			return nil, errors.NewValidationError("transformers", "column block has no pipeline", b.Name)
		}
		seen[b.Name] = true
		if b.Kind == CategoricalColumns {
			if _, err := b.Pipeline.split(); err != nil {
				return nil, errors.Wrapf(err, "column block '%s'", b.Name)
			}
		}
		b.Pipeline.SetInputNames(b.Columns)
	}
	return &ColumnTransformer{Blocks: blocks, State: model.NewStateManager()}, nil
}

// Fit fits every block on t.
func (ct *ColumnTransformer) Fit(t Table) error {
	_, err := ct.FitTransform(t)
	return err
}

// FitTransform fits every block on t and returns the stacked output.
func (ct *ColumnTransformer) FitTransform(t Table) (*mat.Dense, error) {
	start := time.Now()
	ct.state().Reset()

	outputs := make([]mat.Matrix, len(ct.Blocks))
	widths := make([]int, len(ct.Blocks))
	var names []string
	for i, b := range ct.Blocks {
		out, err := ct.runBlock(b, t, true)
		if err != nil {
			return nil, err
		}
		_, widths[i] = out.Dims()
		outputs[i] = out
		names = append(names, blockNames(b, widths[i])...)
	}

	ct.BlockWidths = widths
	ct.OutputNames = names
	result := hstack(t.NumRows(), outputs)
	_, c := result.Dims()
	ct.state().SetDimensions(c, t.NumRows())
	ct.state().SetFitted()

	log.GetLoggerWithName("ColumnTransformer").Debug("column transformer fitted",
		log.OperationKey, log.OperationFitTransform,
		log.SamplesKey, t.NumRows(),
		log.FeaturesKey, c,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return result, nil
}

// Transform applies the fitted blocks to t without refitting anything.
func (ct *ColumnTransformer) Transform(t Table) (*mat.Dense, error) {
	if err := ct.state().RequireFitted("ColumnTransformer", "Transform"); err != nil {
		return nil, err
	}

	outputs := make([]mat.Matrix, len(ct.Blocks))
	for i, b := range ct.Blocks {
		out, err := ct.runBlock(b, t, false)
		if err != nil {
			return nil, err
		}
		if _, w := out.Dims(); i < len(ct.BlockWidths) && w != ct.BlockWidths[i] {
			return nil, errors.NewDimensionError("ColumnTransformer.Transform", ct.BlockWidths[i], w, 1)
		}
		outputs[i] = out
	}
	return hstack(t.NumRows(), outputs), nil
}

// FeatureNames returns the fitted output column names.
func (ct *ColumnTransformer) FeatureNames() []string {
	return append([]string(nil), ct.OutputNames...)
}

// NOutputs returns the fitted number of output columns.
func (ct *ColumnTransformer) NOutputs() int {
	return len(ct.OutputNames)
}

// IsFitted reports whether the transformer has been fitted.
func (ct *ColumnTransformer) IsFitted() bool {
	return ct.state().IsFitted()
}

// InputColumns returns every column the transformer reads, in block order.
func (ct *ColumnTransformer) InputColumns() []string {
	var cols []string
	for _, b := range ct.Blocks {
		cols = append(cols, b.Columns...)
	}
	return cols
}

func (ct *ColumnTransformer) runBlock(b ColumnBlock, t Table, fit bool) (mat.Matrix, error) {
	if t.NumRows() == 0 {
		return nil, errors.NewModelError("ColumnTransformer", "empty data", errors.ErrEmptyData)
	}
	switch b.Kind {
	case CategoricalColumns:
		X, err := categoricalRows(b, t)
		if err != nil {
			return nil, err
		}
		if fit {
			out, err := b.Pipeline.FitEncode(X)
			return out, errors.Wrapf(err, "column block '%s'", b.Name)
		}
		out, err := b.Pipeline.Encode(X)
		return out, errors.Wrapf(err, "column block '%s'", b.Name)
	default:
		X, err := numericMatrix(b, t)
		if err != nil {
			return nil, err
		}
		if fit {
			out, err := b.Pipeline.FitTransform(X)
			return out, errors.Wrapf(err, "column block '%s'", b.Name)
		}
		out, err := b.Pipeline.Transform(X)
		return out, errors.Wrapf(err, "column block '%s'", b.Name)
	}
}

func numericMatrix(b ColumnBlock, t Table) (*mat.Dense, error) {
	n := t.NumRows()
	X := mat.NewDense(n, len(b.Columns), nil)
	for j, name := range b.Columns {
		col, ok := t.Numeric(name)
		if !ok || len(col) != n {
			return nil, missingColumn(b, t, name)
		}
		X.SetCol(j, col)
	}
	return X, nil
}

func categoricalRows(b ColumnBlock, t Table) ([][]string, error) {
	n := t.NumRows()
	rows := make([][]string, n)
	for i := range rows {
		rows[i] = make([]string, len(b.Columns))
	}
	for j, name := range b.Columns {
		col, ok := t.Categorical(name)
		if !ok || len(col) != n {
			return nil, missingColumn(b, t, name)
		}
		for i, v := range col {
			rows[i][j] = v
		}
	}
	return rows, nil
}

func missingColumn(b ColumnBlock, t Table, name string) error {
	return errors.NewSchemaMismatchError("ColumnTransformer",
		"missing "+b.Kind.String()+" column "+name+" for block "+b.Name,
		b.Columns, t.Columns())
}

func blockNames(b ColumnBlock, width int) []string {
	if names := b.Pipeline.FeatureNames(); len(names) == width {
		out := make([]string, width)
		for i, n := range names {
			out[i] = b.Name + "__" + n
		}
		return out
	}
	out := make([]string, width)
	for i := range out {
		if i < len(b.Columns) {
			out[i] = b.Name + "__" + b.Columns[i]
		} else {
			out[i] = b.Name + "__" + "x"
		}
	}
	return out
}

// hstack concatenates matrices with the same number of rows.
func hstack(rows int, blocks []mat.Matrix) *mat.Dense {
	total := 0
	for _, m := range blocks {
		_, c := m.Dims()
		total += c
	}
	out := mat.NewDense(rows, total, nil)
	offset := 0
	for _, m := range blocks {
		_, c := m.Dims()
		out.Slice(0, rows, offset, offset+c).(*mat.Dense).Copy(m)
		offset += c
	}
	return out
}

func (ct *ColumnTransformer) state() *model.StateManager {
	if ct.State == nil {
		ct.State = model.NewStateManager()
	}
	return ct.State
}
