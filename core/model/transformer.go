package model

import "gonum.org/v1/gonum/mat"

// Transformer はデータ変換のインターフェース
type Transformer interface {
	// Fit は変換に必要なパラメータを学習する
	Fit(X mat.Matrix) error

	// Transform はデータを変換する
	Transform(X mat.Matrix) (mat.Matrix, error)

	// FitTransform はFitとTransformを同時に実行する
	FitTransform(X mat.Matrix) (mat.Matrix, error)
}

// StringTransformer は文字列（カテゴリ）データを同じ形の文字列データに変換する
//
// X is row-major: X[i][j] is the value of column j in sample i.
type StringTransformer interface {
	FitStrings(X [][]string) error
	TransformStrings(X [][]string) ([][]string, error)
}

// Encoder maps categorical string data into a numeric feature matrix.
type Encoder interface {
	FitStrings(X [][]string) error
	Encode(X [][]string) (mat.Matrix, error)
	// FeatureNames returns the output column names in matrix order.
	FeatureNames() []string
}
