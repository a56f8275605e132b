package dataset

import "math"

// Record is one student. Missing categorical values are empty strings and
// missing scores are NaN.
type Record struct {
	Gender                   string
	RaceEthnicity            string
	ParentalLevelOfEducation string
	Lunch                    string
	TestPreparationCourse    string
	MathScore                float64
	ReadingScore             float64
	WritingScore             float64
}

// Numeric returns the named score column.
func (r *Record) Numeric(name string) (float64, bool) {
	switch name {
	case ColMathScore:
		return r.MathScore, true
	case ColReadingScore:
		return r.ReadingScore, true
	case ColWritingScore:
		return r.WritingScore, true
	}
	return math.NaN(), false
}

// Categorical returns the named categorical column.
func (r *Record) Categorical(name string) (string, bool) {
	switch name {
	case ColGender:
		return r.Gender, true
	case ColRaceEthnicity:
		return r.RaceEthnicity, true
	case ColParentalEducation:
		return r.ParentalLevelOfEducation, true
	case ColLunch:
		return r.Lunch, true
	case ColTestPreparation:
		return r.TestPreparationCourse, true
	}
	return "", false
}

func (r *Record) setNumeric(name string, v float64) {
	switch name {
	case ColMathScore:
		r.MathScore = v
	case ColReadingScore:
		r.ReadingScore = v
	case ColWritingScore:
		r.WritingScore = v
	}
}

func (r *Record) setCategorical(name, v string) {
	switch name {
	case ColGender:
		r.Gender = v
	case ColRaceEthnicity:
		r.RaceEthnicity = v
	case ColParentalEducation:
		r.ParentalLevelOfEducation = v
	case ColLunch:
		r.Lunch = v
	case ColTestPreparation:
		r.TestPreparationCourse = v
	}
}

// isNumericColumn reports whether name is one of the score columns.
func isNumericColumn(name string) bool {
	return name == ColMathScore || name == ColReadingScore || name == ColWritingScore
}
