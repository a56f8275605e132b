package preprocessing

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/studentperf/core/model"
	"github.com/YuminosukeSato/studentperf/pkg/errors"
)

// Unknown category handling modes.
const (
	HandleUnknownError  = "error"
	HandleUnknownIgnore = "ignore"
)

// OneHotEncoder はscikit-learn互換のone-hotエンコーダ
//
// 各列のカテゴリは学習時に辞書順でソートされ、出力列はその順に並ぶ。
// HandleUnknown=error（デフォルト）のとき、学習時に無かったカテゴリは
// エラーになる。ignore のときはその列の出力がすべて0になる。
type OneHotEncoder struct {
	model.BaseEstimator

	// Categories は列ごとのソート済みカテゴリ
	Categories [][]string

	// InputNames は出力特徴量名の接頭辞に使う入力列名
	InputNames []string

	// HandleUnknown は error または ignore
	HandleUnknown string

	// NFeatures は入力列の数
	NFeatures int
}

// NewOneHotEncoder はデフォルト設定（handle_unknown=error）で作成する
func NewOneHotEncoder() *OneHotEncoder {
	return &OneHotEncoder{HandleUnknown: HandleUnknownError}
}

// SetInputNames は出力特徴量名に使う入力列名を設定する
func (o *OneHotEncoder) SetInputNames(names []string) {
	o.InputNames = append([]string(nil), names...)
}

// FitStrings は列ごとのカテゴリ集合を学習する
func (o *OneHotEncoder) FitStrings(X [][]string) error {
	if o.HandleUnknown != HandleUnknownError && o.HandleUnknown != HandleUnknownIgnore {
		return errors.NewValidationError("handle_unknown", "must be error or ignore", o.HandleUnknown)
	}
	c, err := stringDims("OneHotEncoder.FitStrings", X)
	if err != nil {
		return err
	}

	o.NFeatures = c
	o.Categories = make([][]string, c)
	for j := 0; j < c; j++ {
		seen := make(map[string]struct{})
		for _, row := range X {
			seen[row[j]] = struct{}{}
		}
		cats := make([]string, 0, len(seen))
		for v := range seen {
			cats = append(cats, v)
		}
		sort.Strings(cats)
		o.Categories[j] = cats
	}

	o.SetFitted()
	return nil
}

// NOutputs は出力列の数（全カテゴリ数の合計）を返す
func (o *OneHotEncoder) NOutputs() int {
	n := 0
	for _, cats := range o.Categories {
		n += len(cats)
	}
	return n
}

// Encode は文字列データをone-hot行列に変換する
func (o *OneHotEncoder) Encode(X [][]string) (mat.Matrix, error) {
	if err := o.RequireFitted("OneHotEncoder", "Encode"); err != nil {
		return nil, err
	}
	if len(X) == 0 {
		return nil, errors.NewModelError("OneHotEncoder.Encode", "empty data", errors.ErrEmptyData)
	}

	index := o.lookup()
	offsets := make([]int, o.NFeatures)
	total := 0
	for j, cats := range o.Categories {
		offsets[j] = total
		total += len(cats)
	}

	result := mat.NewDense(len(X), total, nil)
	for i, row := range X {
		if len(row) != o.NFeatures {
			return nil, errors.NewDimensionError("OneHotEncoder.Encode", o.NFeatures, len(row), 1)
		}
		for j, v := range row {
			k, ok := index[j][v]
			if !ok {
				if o.HandleUnknown == HandleUnknownIgnore {
					continue
				}
				return nil, errors.NewValueError("OneHotEncoder.Encode",
					fmt.Sprintf("found unknown category %q in column %s during transform", v, o.inputName(j)))
			}
			result.Set(i, offsets[j]+k, 1)
		}
	}
	return result, nil
}

// FeatureNames は "<入力列名>_<カテゴリ>" 形式の出力列名を返す
func (o *OneHotEncoder) FeatureNames() []string {
	names := make([]string, 0, o.NOutputs())
	for j, cats := range o.Categories {
		for _, c := range cats {
			names = append(names, o.inputName(j)+"_"+c)
		}
	}
	return names
}

func (o *OneHotEncoder) inputName(j int) string {
	if j < len(o.InputNames) {
		return o.InputNames[j]
	}
	return fmt.Sprintf("x%d", j)
}

// lookup maps each category to its position within its column.
func (o *OneHotEncoder) lookup() []map[string]int {
	index := make([]map[string]int, len(o.Categories))
	for j, cats := range o.Categories {
		index[j] = make(map[string]int, len(cats))
		for k, c := range cats {
			index[j][c] = k
		}
	}
	return index
}

// GetParams はパラメータを取得する
func (o *OneHotEncoder) GetParams() model.Params {
	return model.Params{"handle_unknown": o.HandleUnknown}
}

// SetParams はパラメータを設定する
func (o *OneHotEncoder) SetParams(params model.Params) error {
	for _, key := range params.Keys() {
		var err error
		switch key {
		case "handle_unknown":
			o.HandleUnknown, err = params.Str(key)
		default:
			err = model.UnknownParam("OneHotEncoder", key, params[key])
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// String は文字列表現を返す
func (o *OneHotEncoder) String() string {
	if !o.IsFitted() {
		return fmt.Sprintf("OneHotEncoder(handle_unknown=%s)", o.HandleUnknown)
	}
	return fmt.Sprintf("OneHotEncoder(handle_unknown=%s, n_outputs=%d)", o.HandleUnknown, o.NOutputs())
}
