package dataset

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/YuminosukeSato/studentperf/pkg/errors"
)

const sampleCSV = `gender,race_ethnicity,parental_level_of_education,lunch,test_preparation_course,math_score,reading_score,writing_score
female,group B,bachelor's degree,standard,none,72,72,74
male,group A,associate's degree,free/reduced,none,47,57,44
female,,some college,standard,completed,90,,88
`

func TestReadCSV(t *testing.T) {
	recs, err := ReadCSV(strings.NewReader(sampleCSV), DefaultSchema(), true)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 3 {
		t.Fatalf("got %d records, want 3", len(recs))
	}
	want := Record{
		Gender: "female", RaceEthnicity: "group B", ParentalLevelOfEducation: "bachelor's degree",
		Lunch: "standard", TestPreparationCourse: "none",
		MathScore: 72, ReadingScore: 72, WritingScore: 74,
	}
	if recs[0] != want {
		t.Errorf("record 0 = %+v, want %+v", recs[0], want)
	}
	if recs[2].RaceEthnicity != "" {
		t.Errorf("empty categorical cell = %q, want empty", recs[2].RaceEthnicity)
	}
	if !math.IsNaN(recs[2].ReadingScore) {
		t.Errorf("empty numeric cell = %v, want NaN", recs[2].ReadingScore)
	}
}

func TestReadCSV_ColumnOrderIsFree(t *testing.T) {
	in := "writing_score,reading_score,lunch,gender,extra,test_preparation_course,race_ethnicity,parental_level_of_education\n" +
		"80,70,standard,male,x,none,group C,high school\n"
	recs, err := ReadCSV(strings.NewReader(in), DefaultSchema(), false)
	if err != nil {
		t.Fatal(err)
	}
	r := recs[0]
	if r.WritingScore != 80 || r.ReadingScore != 70 || r.Gender != "male" || r.ParentalLevelOfEducation != "high school" {
		t.Errorf("unexpected record %+v", r)
	}
	if !math.IsNaN(r.MathScore) {
		t.Errorf("absent target = %v, want NaN", r.MathScore)
	}
}

func TestReadCSV_Errors(t *testing.T) {
	tests := []struct {
		name       string
		in         string
		withTarget bool
		schema     bool
	}{
		{"empty", "", true, true},
		{"missing feature column", "gender,lunch\nmale,standard\n", false, true},
		{"missing target", strings.Replace(sampleCSV, "math_score", "maths", 1), true, true},
		{"bad number", strings.Replace(sampleCSV, ",72,72,74", ",seventy,72,74", 1), true, false},
		{"ragged row", sampleCSV + "male,group A\n", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.in), DefaultSchema(), tt.withTarget)
			if err == nil {
				t.Fatal("expected an error")
			}
			if got := errors.IsSchemaMismatch(err); got != tt.schema {
				t.Errorf("IsSchemaMismatch = %v, want %v (%v)", got, tt.schema, err)
			}
		})
	}
}

func TestCSVFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "data.csv")
	recs := Synthesize(SynthOptions{Rows: 50, Seed: 1, MissingRate: 0.1})

	if err := WriteCSVFile(path, recs); err != nil {
		t.Fatal(err)
	}
	got, err := ReadCSVFile(path, DefaultSchema(), true)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(recs) {
		t.Fatalf("got %d records, want %d", len(got), len(recs))
	}
	for i := range recs {
		a, b := recs[i], got[i]
		if a.Gender != b.Gender || a.Lunch != b.Lunch || a.RaceEthnicity != b.RaceEthnicity {
			t.Fatalf("row %d categorical mismatch: %+v vs %+v", i, a, b)
		}
		for _, col := range []string{ColMathScore, ColReadingScore, ColWritingScore} {
			x, _ := a.Numeric(col)
			y, _ := b.Numeric(col)
			if !(x == y || math.IsNaN(x) && math.IsNaN(y)) {
				t.Fatalf("row %d %s: %v vs %v", i, col, x, y)
			}
		}
	}
}

func TestReadCSVFile_Missing(t *testing.T) {
	_, err := ReadCSVFile(filepath.Join(t.TempDir(), "nope.csv"), DefaultSchema(), true)
	if !errors.IsIOFailure(err) || !errors.Is(err, os.ErrNotExist) {
		t.Errorf("got %v, want IOFailure wrapping ErrNotExist", err)
	}
}

func TestWriteCSV_Header(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, nil); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(buf.String()); got != strings.Join(Header, ",") {
		t.Errorf("header = %q", got)
	}
}

func TestSchema(t *testing.T) {
	s := DefaultSchema()
	wantFeatures := []string{
		ColWritingScore, ColReadingScore,
		ColGender, ColRaceEthnicity, ColParentalEducation, ColLunch, ColTestPreparation,
	}
	if !reflect.DeepEqual(s.Features(), wantFeatures) {
		t.Errorf("Features = %v", s.Features())
	}

	fp := s.Fingerprint()
	if len(fp) != 64 || fp != DefaultSchema().Fingerprint() {
		t.Errorf("fingerprint not stable: %q", fp)
	}
	swapped := DefaultSchema()
	swapped.Numeric = []string{ColReadingScore, ColWritingScore}
	if swapped.Fingerprint() == fp {
		t.Error("column order must change the fingerprint")
	}
}

func TestFrame(t *testing.T) {
	recs, err := ReadCSV(strings.NewReader(sampleCSV), DefaultSchema(), true)
	if err != nil {
		t.Fatal(err)
	}
	f := NewFrame(recs)
	if f.NumRows() != 3 {
		t.Fatalf("NumRows = %d", f.NumRows())
	}
	if col, ok := f.Numeric(ColWritingScore); !ok || col[1] != 44 {
		t.Errorf("writing_score = %v", col)
	}
	if _, ok := f.Numeric(ColGender); ok {
		t.Error("gender is not numeric")
	}
	if col, ok := f.Categorical(ColLunch); !ok || col[1] != "free/reduced" {
		t.Errorf("lunch = %v", col)
	}

	features := f.Drop(ColMathScore)
	if _, ok := features.Numeric(ColMathScore); ok {
		t.Error("Drop kept the target")
	}
	if len(features.Columns()) != len(Header)-1 {
		t.Errorf("Columns = %v", features.Columns())
	}

	y, err := f.TargetVector(DefaultSchema())
	if err != nil {
		t.Fatal(err)
	}
	if r, _ := y.Dims(); r != 3 || y.At(2, 0) != 90 {
		t.Errorf("target = %v", y)
	}
	if _, err := features.TargetVector(DefaultSchema()); !errors.IsSchemaMismatch(err) {
		t.Errorf("target of a feature frame: got %v", err)
	}
}

func TestSynthesize(t *testing.T) {
	a := Synthesize(SynthOptions{Rows: 200, Seed: 42})
	b := Synthesize(SynthOptions{Rows: 200, Seed: 42})
	if !reflect.DeepEqual(a, b) {
		t.Error("same seed produced different data")
	}
	for i, r := range a {
		for _, v := range []float64{r.MathScore, r.ReadingScore, r.WritingScore} {
			if v < 0 || v > 100 || v != math.Round(v) {
				t.Fatalf("row %d: score %v out of range", i, v)
			}
		}
		if r.Gender == "" || r.Lunch == "" {
			t.Fatalf("row %d has missing values without MissingRate", i)
		}
	}

	withMissing := Synthesize(SynthOptions{Rows: 200, Seed: 42, MissingRate: 0.2})
	var blanks int
	for _, r := range withMissing {
		if math.IsNaN(r.MathScore) {
			t.Fatal("target must never be blanked")
		}
		if r.Gender == "" {
			blanks++
		}
	}
	if blanks == 0 {
		t.Error("expected some blank cells with MissingRate=0.2")
	}
}
