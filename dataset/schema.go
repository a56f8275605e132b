// Package dataset holds the student-performance records: the fixed column
// schema, a column-oriented Frame for transformers, CSV input/output and a
// synthetic data generator.
package dataset

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/YuminosukeSato/studentperf/pkg/errors"
)

// Column names of the student-performance dataset.
const (
	ColGender            = "gender"
	ColRaceEthnicity     = "race_ethnicity"
	ColParentalEducation = "parental_level_of_education"
	ColLunch             = "lunch"
	ColTestPreparation   = "test_preparation_course"
	ColMathScore         = "math_score"
	ColReadingScore      = "reading_score"
	ColWritingScore      = "writing_score"
)

// Header is the column order of the source CSV and of every CSV this
// package writes.
var Header = []string{
	ColGender, ColRaceEthnicity, ColParentalEducation, ColLunch, ColTestPreparation,
	ColMathScore, ColReadingScore, ColWritingScore,
}

// Schema names the feature columns by kind and the target column.
type Schema struct {
	Numeric     []string
	Categorical []string
	Target      string
}

// DefaultSchema returns the schema the model is trained on.
func DefaultSchema() Schema {
	return Schema{
		Numeric: []string{ColWritingScore, ColReadingScore},
		Categorical: []string{
			ColGender, ColRaceEthnicity, ColParentalEducation, ColLunch, ColTestPreparation,
		},
		Target: ColMathScore,
	}
}

// Features returns the feature columns, numeric first.
func (s Schema) Features() []string {
	out := make([]string, 0, len(s.Numeric)+len(s.Categorical))
	out = append(out, s.Numeric...)
	return append(out, s.Categorical...)
}

// Fingerprint is a stable SHA-256 over the ordered column names and kinds.
// Artifacts record it so a model is never applied to a preprocessor built
// for a different schema.
func (s Schema) Fingerprint() string {
	var b strings.Builder
	for _, c := range s.Numeric {
		b.WriteString("num:" + c + "\n")
	}
	for _, c := range s.Categorical {
		b.WriteString("cat:" + c + "\n")
	}
	b.WriteString("target:" + s.Target + "\n")
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// CheckHeader verifies that header contains every feature column and, when
// withTarget is set, the target column.
func (s Schema) CheckHeader(op string, header []string, withTarget bool) error {
	have := make(map[string]bool, len(header))
	for _, h := range header {
		have[h] = true
	}
	want := s.Features()
	if withTarget {
		want = append(want, s.Target)
	}
	var missing []string
	for _, c := range want {
		if !have[c] {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return errors.NewSchemaMismatchError(op, "missing columns "+strings.Join(missing, ", "), want, header)
	}
	return nil
}
