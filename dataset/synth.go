package dataset

import (
	"math"
	"math/rand/v2"
)

// Category levels of the public student-performance dataset.
var (
	Genders            = []string{"female", "male"}
	RaceEthnicities    = []string{"group A", "group B", "group C", "group D", "group E"}
	ParentalEducations = []string{
		"associate's degree", "bachelor's degree", "high school",
		"master's degree", "some college", "some high school",
	}
	Lunches          = []string{"free/reduced", "standard"}
	TestPreparations = []string{"completed", "none"}
)

// SynthOptions controls Synthesize.
type SynthOptions struct {
	Rows int
	Seed uint64
	// MissingRate is the probability of blanking each feature cell.
	MissingRate float64
}

// Synthesize generates records whose score structure resembles the public
// dataset: the three scores share a latent ability, math favors male
// students and a standard lunch, reading and writing favor female students
// and completed test preparation. Scores are integers in [0, 100].
func Synthesize(opts SynthOptions) []Record {
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed))
	pick := func(levels []string) string { return levels[rng.IntN(len(levels))] }
	clamp := func(v float64) float64 { return math.Max(0, math.Min(100, math.Round(v))) }

	records := make([]Record, opts.Rows)
	for i := range records {
		r := Record{
			Gender:                   pick(Genders),
			RaceEthnicity:            pick(RaceEthnicities),
			ParentalLevelOfEducation: pick(ParentalEducations),
			Lunch:                    pick(Lunches),
			TestPreparationCourse:    pick(TestPreparations),
		}
		ability := rng.NormFloat64()
		female := r.Gender == "female"
		prepared := r.TestPreparationCourse == "completed"

		mathScore := 63 + 13*ability + 2*rng.NormFloat64()
		reading := 66 + 13*ability + 4*rng.NormFloat64()
		if !female {
			mathScore += 5
		} else {
			reading += 4
		}
		if r.Lunch == "standard" {
			mathScore += 6
			reading += 3
		}
		if prepared {
			reading += 5
		}
		writing := reading - 2 + 4*rng.NormFloat64()
		if female {
			writing += 3
		}
		if prepared {
			writing += 4
		}
		r.MathScore = clamp(mathScore)
		r.ReadingScore = clamp(reading)
		r.WritingScore = clamp(writing)

		if opts.MissingRate > 0 {
			for _, name := range Header {
				if name == ColMathScore || rng.Float64() >= opts.MissingRate {
					continue
				}
				if isNumericColumn(name) {
					r.setNumeric(name, math.NaN())
				} else {
					r.setCategorical(name, "")
				}
			}
		}
		records[i] = r
	}
	return records
}
