package preprocessing

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/studentperf/core/model"
	"github.com/YuminosukeSato/studentperf/pkg/errors"
)

// StandardScaler はscikit-learn互換の標準化スケーラー
// データを平均0、標準偏差1に変換する
//
// WithMean=false のときも分散は列平均の周りで計算し、中心化だけを省く。
// スパースなone-hot列をスケールするときの scikit-learn の挙動と同じ。
type StandardScaler struct {
	model.BaseEstimator

	// Mean は各特徴量の平均値
	Mean []float64

	// Scale は各特徴量の標準偏差（ほぼ0の列は1）
	Scale []float64

	// NFeatures は特徴量の数
	NFeatures int

	// WithMean は平均を引くかどうか (デフォルト: true)
	WithMean bool

	// WithStd は標準偏差で割るかどうか (デフォルト: true)
	WithStd bool
}

// NewStandardScaler は新しいStandardScalerを作成する
//
// 使用例:
//
//	scaler := preprocessing.NewStandardScaler(true, true)
//	err := scaler.Fit(X)
//	XScaled, err := scaler.Transform(X)
func NewStandardScaler(withMean, withStd bool) *StandardScaler {
	return &StandardScaler{
		WithMean: withMean,
		WithStd:  withStd,
	}
}

// NewStandardScalerDefault はデフォルト設定でStandardScalerを作成する
func NewStandardScalerDefault() *StandardScaler {
	return NewStandardScaler(true, true)
}

// Fit は訓練データから統計情報（平均、標準偏差）を計算する
func (s *StandardScaler) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("StandardScaler.Fit", "empty data", errors.ErrEmptyData)
	}
	if err := errors.CheckMatrix("StandardScaler.Fit", X); err != nil {
		return err
	}

	s.NFeatures = c
	s.Mean = make([]float64, c)
	s.Scale = make([]float64, c)

	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, X)
		mean, variance := stat.PopMeanVariance(col, nil)
		s.Mean[j] = mean
		s.Scale[j] = 1.0
		if s.WithStd {
			std := math.Sqrt(variance)
			// 標準偏差が0に近い場合は1に設定（ゼロ除算を避ける）
			if std >= 1e-8 {
				s.Scale[j] = std
			}
		}
	}

	s.SetFitted()
	return nil
}

// Transform は学習済みの統計情報を使ってデータを標準化する
func (s *StandardScaler) Transform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.RequireFitted("StandardScaler", "Transform"); err != nil {
		return nil, err
	}

	r, c := X.Dims()
	if c != s.NFeatures {
		return nil, errors.NewDimensionError("StandardScaler.Transform", s.NFeatures, c, 1)
	}
	if err := errors.CheckMatrix("StandardScaler.Transform", X); err != nil {
		return nil, err
	}

	result := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			value := X.At(i, j)
			if s.WithMean {
				value -= s.Mean[j]
			}
			result.Set(i, j, value/s.Scale[j])
		}
	}

	return result, nil
}

// FitTransform は訓練データで学習し、同じデータを変換する
func (s *StandardScaler) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// GetParams はスケーラーのパラメータを取得する
func (s *StandardScaler) GetParams() model.Params {
	return model.Params{
		"with_mean": s.WithMean,
		"with_std":  s.WithStd,
	}
}

// SetParams はスケーラーのパラメータを設定する
func (s *StandardScaler) SetParams(params model.Params) error {
	for _, key := range params.Keys() {
		var err error
		switch key {
		case "with_mean":
			s.WithMean, err = params.Bool(key)
		case "with_std":
			s.WithStd, err = params.Bool(key)
		default:
			err = model.UnknownParam("StandardScaler", key, params[key])
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// String はスケーラーの文字列表現を返す
func (s *StandardScaler) String() string {
	if !s.IsFitted() {
		return fmt.Sprintf("StandardScaler(with_mean=%t, with_std=%t)", s.WithMean, s.WithStd)
	}
	return fmt.Sprintf("StandardScaler(with_mean=%t, with_std=%t, n_features=%d)",
		s.WithMean, s.WithStd, s.NFeatures)
}
