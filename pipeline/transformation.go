package pipeline

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/studentperf/dataset"
	"github.com/YuminosukeSato/studentperf/pkg/errors"
	"github.com/YuminosukeSato/studentperf/pkg/log"
	"github.com/YuminosukeSato/studentperf/preprocessing"
	"github.com/YuminosukeSato/studentperf/sklearn/compose"
)

// Block names of the preprocessing ColumnTransformer.
const (
	NumBlock = "num_pipeline"
	CatBlock = "cat_pipelines"
)

// NewPreprocessor returns the unfitted ColumnTransformer for schema:
// numeric columns are median-imputed and standardized, categorical columns
// are imputed with the most frequent value, one-hot encoded and scaled
// without centering.
func NewPreprocessor(schema dataset.Schema) (*compose.ColumnTransformer, error) {
	ct, err := compose.NewColumnTransformer(
		compose.ColumnBlock{
			Name:    NumBlock,
			Kind:    compose.NumericColumns,
			Columns: append([]string(nil), schema.Numeric...),
			Pipeline: compose.New(
				compose.Step{Name: "imputer", Estimator: preprocessing.NewSimpleImputer(preprocessing.StrategyMedian)},
				compose.Step{Name: "scaler", Estimator: preprocessing.NewStandardScalerDefault()},
			),
		},
		compose.ColumnBlock{
			Name:    CatBlock,
			Kind:    compose.CategoricalColumns,
			Columns: append([]string(nil), schema.Categorical...),
			Pipeline: compose.New(
				compose.Step{Name: "imputer", Estimator: preprocessing.NewSimpleImputer(preprocessing.StrategyMostFrequent)},
				compose.Step{Name: "one_hot_encoder", Estimator: preprocessing.NewOneHotEncoder()},
				compose.Step{Name: "scaler", Estimator: preprocessing.NewStandardScaler(false, true)},
			),
		},
	)
	if err != nil {
		return nil, errors.NewModelFitFailureError("pipeline.NewPreprocessor", "preprocessor", err)
	}
	return ct, nil
}

// TransformResult holds the transformed arrays, features followed by the
// target in the last column, and the preprocessor fitted on the train set.
type TransformResult struct {
	TrainArr     *mat.Dense
	TestArr      *mat.Dense
	Preprocessor *compose.ColumnTransformer
}

// DataTransformation fits the preprocessor on the train split and applies
// it to both splits.
type DataTransformation struct {
	Schema dataset.Schema
	logger log.Logger
}

// NewDataTransformation returns a DataTransformation for the default schema.
func NewDataTransformation(logger log.Logger) *DataTransformation {
	return &DataTransformation{
		Schema: dataset.DefaultSchema(),
		logger: log.OrNop(logger).With(log.ComponentKey, "DataTransformation"),
	}
}

// Initiate reads both split files and returns the transformed arrays.
func (d *DataTransformation) Initiate(trainPath, testPath string) (*TransformResult, error) {
	train, err := dataset.ReadCSVFile(trainPath, d.Schema, true)
	if err != nil {
		return nil, err
	}
	test, err := dataset.ReadCSVFile(testPath, d.Schema, true)
	if err != nil {
		return nil, err
	}
	d.logger.Info("Read train and test data completed",
		"train_rows", len(train), "test_rows", len(test))
	return d.Transform(train, test)
}

// Transform fits a fresh preprocessor on train and transforms both sets.
func (d *DataTransformation) Transform(train, test []dataset.Record) (*TransformResult, error) {
	ct, err := NewPreprocessor(d.Schema)
	if err != nil {
		return nil, err
	}

	trainFrame, testFrame := dataset.NewFrame(train), dataset.NewFrame(test)
	yTrain, err := trainFrame.TargetVector(d.Schema)
	if err != nil {
		return nil, err
	}
	yTest, err := testFrame.TargetVector(d.Schema)
	if err != nil {
		return nil, err
	}

	d.logger.Info("Applying preprocessing object on training dataframe and testing dataframe")
	XTrain, err := ct.FitTransform(trainFrame.Drop(d.Schema.Target))
	if err != nil {
		return nil, errors.NewModelFitFailureError("pipeline.DataTransformation", "preprocessor", err)
	}
	XTest, err := ct.Transform(testFrame.Drop(d.Schema.Target))
	if err != nil {
		return nil, errors.NewModelFitFailureError("pipeline.DataTransformation", "preprocessor", err)
	}
	d.logger.Debug("preprocessor fitted", log.FeaturesKey, ct.NOutputs())

	return &TransformResult{
		TrainArr:     withTarget(XTrain, yTrain),
		TestArr:      withTarget(XTest, yTest),
		Preprocessor: ct,
	}, nil
}

// withTarget appends y as the last column of X.
func withTarget(X, y mat.Matrix) *mat.Dense {
	var out mat.Dense
	out.Augment(X, y)
	return &out
}

// SplitXY separates a transformed array into features and the target
// column.
func SplitXY(arr *mat.Dense) (X, y *mat.Dense) {
	r, c := arr.Dims()
	X = mat.DenseCopyOf(arr.Slice(0, r, 0, c-1))
	y = mat.DenseCopyOf(arr.Slice(0, r, c-1, c))
	return X, y
}
