package preprocessing

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/studentperf/core/model"
	"github.com/YuminosukeSato/studentperf/pkg/errors"
)

// Imputation strategies understood by SimpleImputer.
const (
	StrategyMean         = "mean"
	StrategyMedian       = "median"
	StrategyMostFrequent = "most_frequent"
	StrategyConstant     = "constant"
)

// SimpleImputer はscikit-learn互換の欠損値補完器
//
// 数値データ（mat.Matrix）では NaN を、文字列データ（[][]string）では空文字列を
// 欠損値として扱う。どちらのデータで学習したかは Fit / FitStrings のどちらを
// 呼んだかで決まり、同じ種類の Transform でのみ使える。
type SimpleImputer struct {
	model.BaseEstimator

	// Strategy は mean / median / most_frequent / constant のいずれか
	Strategy string

	// FillValue は数値データで Strategy=constant のときの補完値
	FillValue float64

	// FillString は文字列データで Strategy=constant のときの補完値
	FillString string

	// Statistics は数値列ごとの補完値
	Statistics []float64

	// StringStatistics は文字列列ごとの補完値
	StringStatistics []string

	// NFeatures は特徴量の数
	NFeatures int
}

// NewSimpleImputer は指定した戦略でSimpleImputerを作成する
//
//	num := preprocessing.NewSimpleImputer(preprocessing.StrategyMedian)
//	cat := preprocessing.NewSimpleImputer(preprocessing.StrategyMostFrequent)
func NewSimpleImputer(strategy string) *SimpleImputer {
	return &SimpleImputer{Strategy: strategy, FillString: "missing_value"}
}

func (s *SimpleImputer) validateStrategy(numeric bool) error {
	switch s.Strategy {
	case StrategyMostFrequent, StrategyConstant:
		return nil
	case StrategyMean, StrategyMedian:
		if numeric {
			return nil
		}
		return errors.NewValidationError("strategy",
			fmt.Sprintf("%q can only be used with numeric data", s.Strategy), s.Strategy)
	}
	return errors.NewValidationError("strategy",
		"must be one of mean, median, most_frequent, constant", s.Strategy)
}

// Fit は数値データの列ごとの補完値を計算する
func (s *SimpleImputer) Fit(X mat.Matrix) error {
	if err := s.validateStrategy(true); err != nil {
		return err
	}
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("SimpleImputer.Fit", "empty data", errors.ErrEmptyData)
	}

	if err := checkNoInf("SimpleImputer.Fit", X); err != nil {
		return err
	}

	s.NFeatures = c
	s.Statistics = make([]float64, c)
	s.StringStatistics = nil

	observed := make([]float64, 0, r)
	for j := 0; j < c; j++ {
		observed = observed[:0]
		for i := 0; i < r; i++ {
			if v := X.At(i, j); !math.IsNaN(v) {
				observed = append(observed, v)
			}
		}
		if s.Strategy == StrategyConstant {
			s.Statistics[j] = s.FillValue
			continue
		}
		if len(observed) == 0 {
			return errors.NewValueError("SimpleImputer.Fit",
				fmt.Sprintf("column %d has no observed values to compute the %s", j, s.Strategy))
		}
		switch s.Strategy {
		case StrategyMean:
			s.Statistics[j] = mean(observed)
		case StrategyMedian:
			s.Statistics[j] = median(observed)
		case StrategyMostFrequent:
			s.Statistics[j] = mostFrequentFloat(observed)
		}
	}

	s.SetFitted()
	return nil
}

// Transform は NaN を学習済みの補完値で置き換える
func (s *SimpleImputer) Transform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.RequireFitted("SimpleImputer", "Transform"); err != nil {
		return nil, err
	}
	if s.Statistics == nil {
		return nil, errors.NewValueError("SimpleImputer.Transform", "imputer was fitted on string data")
	}
	r, c := X.Dims()
	if c != s.NFeatures {
		return nil, errors.NewDimensionError("SimpleImputer.Transform", s.NFeatures, c, 1)
	}
	if err := checkNoInf("SimpleImputer.Transform", X); err != nil {
		return nil, err
	}

	result := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := X.At(i, j)
			if math.IsNaN(v) {
				v = s.Statistics[j]
			}
			result.Set(i, j, v)
		}
	}
	return result, nil
}

// FitTransform は学習と変換を続けて行う
func (s *SimpleImputer) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// FitStrings は文字列データの列ごとの補完値を計算する
func (s *SimpleImputer) FitStrings(X [][]string) error {
	if err := s.validateStrategy(false); err != nil {
		return err
	}
	c, err := stringDims("SimpleImputer.FitStrings", X)
	if err != nil {
		return err
	}

	s.NFeatures = c
	s.StringStatistics = make([]string, c)
	s.Statistics = nil

	for j := 0; j < c; j++ {
		if s.Strategy == StrategyConstant {
			s.StringStatistics[j] = s.FillString
			continue
		}
		counts := make(map[string]int)
		for _, row := range X {
			if row[j] != "" {
				counts[row[j]]++
			}
		}
		if len(counts) == 0 {
			return errors.NewValueError("SimpleImputer.FitStrings",
				fmt.Sprintf("column %d has no observed values to compute the %s", j, s.Strategy))
		}
		s.StringStatistics[j] = mostFrequentString(counts)
	}

	s.SetFitted()
	return nil
}

// TransformStrings は空文字列を学習済みの補完値で置き換える
func (s *SimpleImputer) TransformStrings(X [][]string) ([][]string, error) {
	if err := s.RequireFitted("SimpleImputer", "TransformStrings"); err != nil {
		return nil, err
	}
	if s.StringStatistics == nil {
		return nil, errors.NewValueError("SimpleImputer.TransformStrings", "imputer was fitted on numeric data")
	}
	out := make([][]string, len(X))
	for i, row := range X {
		if len(row) != s.NFeatures {
			return nil, errors.NewDimensionError("SimpleImputer.TransformStrings", s.NFeatures, len(row), 1)
		}
		out[i] = make([]string, len(row))
		for j, v := range row {
			if v == "" {
				v = s.StringStatistics[j]
			}
			out[i][j] = v
		}
	}
	return out, nil
}

// GetParams はパラメータを取得する
func (s *SimpleImputer) GetParams() model.Params {
	return model.Params{
		"strategy":    s.Strategy,
		"fill_value":  s.FillValue,
		"fill_string": s.FillString,
	}
}

// SetParams はパラメータを設定する
func (s *SimpleImputer) SetParams(params model.Params) error {
	for _, key := range params.Keys() {
		var err error
		switch key {
		case "strategy":
			s.Strategy, err = params.Str(key)
		case "fill_value":
			s.FillValue, err = params.Float(key)
		case "fill_string":
			s.FillString, err = params.Str(key)
		default:
			err = model.UnknownParam("SimpleImputer", key, params[key])
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// String は文字列表現を返す
func (s *SimpleImputer) String() string {
	return fmt.Sprintf("SimpleImputer(strategy=%s)", s.Strategy)
}

func stringDims(op string, X [][]string) (int, error) {
	if len(X) == 0 || len(X[0]) == 0 {
		return 0, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	c := len(X[0])
	for _, row := range X {
		if len(row) != c {
			return 0, errors.NewDimensionError(op, c, len(row), 1)
		}
	}
	return c, nil
}

func mean(x []float64) float64 {
	var sum float64
	for _, v := range x {
		sum += v
	}
	return sum / float64(len(x))
}

// median は偶数個のとき中央2値の平均を返す（numpy.median と同じ）
func median(x []float64) float64 {
	sorted := append([]float64(nil), x...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// mostFrequentFloat は最頻値を返す。同数のときは最小値。
func mostFrequentFloat(x []float64) float64 {
	counts := make(map[float64]int, len(x))
	for _, v := range x {
		counts[v]++
	}
	best, bestCount := 0.0, -1
	for v, n := range counts {
		if n > bestCount || (n == bestCount && v < best) {
			best, bestCount = v, n
		}
	}
	return best
}

// mostFrequentString は最頻値を返す。同数のときは辞書順で最小の値。
func mostFrequentString(counts map[string]int) string {
	best, bestCount := "", -1
	for v, n := range counts {
		if n > bestCount || (n == bestCount && v < best) {
			best, bestCount = v, n
		}
	}
	return best
}

// checkNoInf rejects ±Inf. NaN is the missing-value marker and passes.
func checkNoInf(op string, X mat.Matrix) error {
	r, c := X.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := X.At(i, j); math.IsInf(v, 0) {
				return errors.NewValueError(op,
					fmt.Sprintf("input contains infinity at row %d, column %d", i, j))
			}
		}
	}
	return nil
}
