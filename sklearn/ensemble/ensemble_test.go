package ensemble

import (
	"math"
	"reflect"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/studentperf/core/model"
	"github.com/YuminosukeSato/studentperf/pkg/errors"
	"github.com/YuminosukeSato/studentperf/sklearn/tree"
)

// smooth returns 200 rows of y = 2*x0 + x1²/4 over a 20x10 grid.
func smooth() (*mat.Dense, *mat.Dense) {
	n := 200
	X := mat.NewDense(n, 2, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		x0 := float64(i%20) / 2
		x1 := float64(i / 20)
		X.Set(i, 0, x0)
		X.Set(i, 1, x1)
		y.Set(i, 0, 2*x0+x1*x1/4)
	}
	return X, y
}

func fastCat() *CatBoostRegressor {
	c := NewCatBoostRegressor()
	c.Iterations = 200
	c.LearningRate = 0.1
	return c
}

func TestEnsembles_FitTrainingData(t *testing.T) {
	tests := []struct {
		name  string
		model model.Regressor
		minR2 float64
	}{
		{"RandomForest", NewRandomForestRegressor(), 0.95},
		{"GradientBoosting", NewGradientBoostingRegressor(), 0.98},
		{"XGB", NewXGBRegressor(), 0.98},
		{"CatBoost", fastCat(), 0.98},
		{"AdaBoost", NewAdaBoostRegressor(), 0.8},
	}

	X, y := smooth()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.model.Fit(X, y); err != nil {
				t.Fatalf("Fit: %v", err)
			}
			if !tt.model.IsFitted() {
				t.Fatal("IsFitted = false after Fit")
			}
			r2, err := tt.model.Score(X, y)
			if err != nil {
				t.Fatalf("Score: %v", err)
			}
			if r2 < tt.minR2 {
				t.Errorf("train R² = %.4f, want >= %.2f", r2, tt.minR2)
			}
		})
	}
}

func TestEnsembles_Deterministic(t *testing.T) {
	tests := []struct {
		name string
		make func() model.Regressor
	}{
		{"RandomForest", func() model.Regressor { return NewRandomForestRegressor() }},
		{"GradientBoostingSubsample", func() model.Regressor {
			g := NewGradientBoostingRegressor()
			g.Subsample = 0.7
			return g
		}},
		{"XGBSubsample", func() model.Regressor {
			x := NewXGBRegressor()
			x.Subsample = 0.8
			return x
		}},
		{"AdaBoost", func() model.Regressor { return NewAdaBoostRegressor() }},
	}

	X, y := smooth()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b := tt.make(), tt.make()
			if err := a.Fit(X, y); err != nil {
				t.Fatal(err)
			}
			if err := b.Fit(X, y); err != nil {
				t.Fatal(err)
			}
			pa, _ := a.Predict(X)
			pb, _ := b.Predict(X)
			if !mat.Equal(pa, pb) {
				t.Error("two fits with the same random_state differ")
			}
		})
	}
}

func TestRandomForest_IndependentOfWorkers(t *testing.T) {
	X, y := smooth()
	serial := NewRandomForestRegressor()
	serial.NEstimators = 16
	serial.NJobs = 1
	par := NewRandomForestRegressor()
	par.NEstimators = 16
	par.NJobs = 4

	if err := serial.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	if err := par.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	p1, _ := serial.Predict(X)
	p2, _ := par.Predict(X)
	if !mat.Equal(p1, p2) {
		t.Error("forest depends on n_jobs")
	}
}

func TestRandomForest_LargeBatchPredictMatchesRowByRow(t *testing.T) {
	X, y := smooth()
	rf := NewRandomForestRegressor()
	rf.NEstimators = 8
	if err := rf.Fit(X, y); err != nil {
		t.Fatal(err)
	}

	r, c := X.Dims()
	n := predictParallelThreshold + 500
	big := mat.NewDense(n, c, nil)
	for i := 0; i < n; i++ {
		big.SetRow(i, X.RawRowView(i%r))
	}
	batch, err := rf.Predict(big)
	if err != nil {
		t.Fatal(err)
	}
	for _, i := range []int{0, 1, r - 1, n - 1} {
		one, err := rf.Predict(big.Slice(i, i+1, 0, c))
		if err != nil {
			t.Fatal(err)
		}
		if batch.At(i, 0) != one.At(0, 0) {
			t.Errorf("row %d: batch %v, single %v", i, batch.At(i, 0), one.At(0, 0))
		}
	}
}

func TestEnsembles_ConstantTarget(t *testing.T) {
	models := map[string]model.Regressor{
		"RandomForest":     NewRandomForestRegressor(),
		"GradientBoosting": NewGradientBoostingRegressor(),
		"XGB":              NewXGBRegressor(),
		"CatBoost":         fastCat(),
		"AdaBoost":         NewAdaBoostRegressor(),
	}
	X, _ := smooth()
	y := mat.NewDense(200, 1, nil)
	for i := 0; i < 200; i++ {
		y.Set(i, 0, 7)
	}
	for name, m := range models {
		t.Run(name, func(t *testing.T) {
			if err := m.Fit(X, y); err != nil {
				t.Fatal(err)
			}
			pred, err := m.Predict(X)
			if err != nil {
				t.Fatal(err)
			}
			for i := 0; i < 200; i++ {
				if math.Abs(pred.At(i, 0)-7) > 1e-9 {
					t.Fatalf("row %d: got %v, want 7", i, pred.At(i, 0))
				}
			}
		})
	}
}

func TestEnsembles_ParamsAndClone(t *testing.T) {
	tests := []struct {
		name   string
		model  model.Regressor
		params model.Params
	}{
		{"RandomForest", NewRandomForestRegressor(), model.Params{"n_estimators": 8}},
		{"GradientBoosting", NewGradientBoostingRegressor(), model.Params{"learning_rate": 0.01, "subsample": 0.6, "n_estimators": 16}},
		{"XGB", NewXGBRegressor(), model.Params{"learning_rate": 0.05, "n_estimators": 32}},
		{"CatBoost", NewCatBoostRegressor(), model.Params{"depth": 8, "learning_rate": 0.05, "iterations": 30, "verbose": false}},
		{"AdaBoost", NewAdaBoostRegressor(), model.Params{"learning_rate": 0.5, "n_estimators": 64}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.model.SetParams(tt.params); err != nil {
				t.Fatalf("SetParams: %v", err)
			}
			got := tt.model.GetParams()
			for k, v := range tt.params {
				if got[k] != v {
					t.Errorf("%s = %v, want %v", k, got[k], v)
				}
			}

			clone := tt.model.Clone()
			if clone.IsFitted() {
				t.Error("clone must be unfitted")
			}
			if !reflect.DeepEqual(clone.GetParams(), got) {
				t.Errorf("clone params = %v, want %v", clone.GetParams(), got)
			}

			err := tt.model.SetParams(model.Params{"no_such_param": 1})
			var vErr *errors.ValidationError
			if !errors.As(err, &vErr) {
				t.Errorf("unknown parameter: got %v, want ValidationError", err)
			}
		})
	}
}

func TestEnsembles_Errors(t *testing.T) {
	X, y := smooth()
	tests := []struct {
		name  string
		model model.Regressor
	}{
		{"RandomForest", NewRandomForestRegressor()},
		{"GradientBoosting", NewGradientBoostingRegressor()},
		{"XGB", NewXGBRegressor()},
		{"CatBoost", fastCat()},
		{"AdaBoost", NewAdaBoostRegressor()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.model.Predict(X); err == nil {
				t.Error("Predict before Fit should fail")
			}
			if err := tt.model.Fit(X, mat.NewDense(3, 1, nil)); err == nil {
				t.Error("row mismatch should fail")
			}
			if err := tt.model.Fit(X, y); err != nil {
				t.Fatal(err)
			}
			if _, err := tt.model.Predict(mat.NewDense(2, 3, nil)); err == nil {
				t.Error("feature count mismatch should fail")
			}
		})
	}
}

func TestEnsembles_InvalidHyperparameters(t *testing.T) {
	X, y := smooth()
	gb := NewGradientBoostingRegressor()
	gb.Subsample = 1.5
	xgb := NewXGBRegressor()
	xgb.RegLambda = -1
	cat := NewCatBoostRegressor()
	cat.Depth = 0
	ada := NewAdaBoostRegressor()
	ada.Loss = "huber"
	rf := NewRandomForestRegressor()
	rf.NEstimators = 0

	for name, m := range map[string]model.Regressor{
		"GradientBoosting": gb, "XGB": xgb, "CatBoost": cat, "AdaBoost": ada, "RandomForest": rf,
	} {
		var vErr *errors.ValidationError
		if err := m.Fit(X, y); !errors.As(err, &vErr) {
			t.Errorf("%s: got %v, want ValidationError", name, err)
		}
	}
}

func TestEnsembles_Gob(t *testing.T) {
	X, y := smooth()
	tests := []struct {
		name    string
		model   model.Regressor
		decoded model.Regressor
	}{
		{"RandomForest", NewRandomForestRegressor(), &RandomForestRegressor{}},
		{"GradientBoosting", NewGradientBoostingRegressor(), &GradientBoostingRegressor{}},
		{"XGB", NewXGBRegressor(), &XGBRegressor{}},
		{"CatBoost", fastCat(), &CatBoostRegressor{}},
		{"AdaBoost", NewAdaBoostRegressor(), &AdaBoostRegressor{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.model.Fit(X, y); err != nil {
				t.Fatal(err)
			}
			data, err := model.MarshalGob(tt.model)
			if err != nil {
				t.Fatal(err)
			}
			if err := model.UnmarshalGob(data, tt.decoded); err != nil {
				t.Fatal(err)
			}
			p1, _ := tt.model.Predict(X)
			p2, err := tt.decoded.Predict(X)
			if err != nil {
				t.Fatal(err)
			}
			if !mat.EqualApprox(p1, p2, 1e-12) {
				t.Error("decoded model predicts differently")
			}
		})
	}
}

func TestBorders(t *testing.T) {
	tests := []struct {
		name string
		col  []float64
		max  int
		want []float64
	}{
		{"constant", []float64{1, 1, 1}, 254, nil},
		{"midpoints", []float64{3, 1, 1, 2}, 254, []float64{1.5, 2.5}},
		{"binary", []float64{0, 1, 0, 1}, 254, []float64{0.5}},
		{"quantized", []float64{1, 2, 3, 4, 5, 6, 7, 8}, 1, []float64{4.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := borders(tt.col, tt.max)
			if len(got) != len(tt.want) {
				t.Fatalf("borders = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("borders = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestCatBoost_TreesAreOblivious(t *testing.T) {
	X, y := smooth()
	c := fastCat()
	c.Depth = 4
	c.Iterations = 10
	if err := c.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	for _, tr := range c.Trees {
		if len(tr.Values) != 1<<len(tr.Features) {
			t.Fatalf("tree with %d levels has %d leaves", len(tr.Features), len(tr.Values))
		}
		if len(tr.Features) > 4 {
			t.Fatalf("tree deeper than depth=4: %d", len(tr.Features))
		}
	}
}

func leafTree(v float64) *tree.Tree {
	return &tree.Tree{Nodes: []tree.Node{{Feature: -1, Left: -1, Right: -1, Value: v}}, NFeatures: 1}
}

func TestAdaBoost_WeightedMedian(t *testing.T) {
	tests := []struct {
		name    string
		values  []float64
		weights []float64
		want    float64
	}{
		{"heavy top", []float64{1, 2, 3}, []float64{1, 1, 3}, 3},
		{"heavy bottom", []float64{1, 2, 3}, []float64{3, 1, 1}, 1},
		{"equal", []float64{5, 1, 3}, []float64{1, 1, 1}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAdaBoostRegressor()
			for _, v := range tt.values {
				a.Trees = append(a.Trees, leafTree(v))
			}
			a.EstimatorWeights = tt.weights
			a.NFeatures = 1
			a.SetFitted()

			pred, err := a.Predict(mat.NewDense(1, 1, []float64{0}))
			if err != nil {
				t.Fatal(err)
			}
			if got := pred.At(0, 0); got != tt.want {
				t.Errorf("weighted median = %v, want %v", got, tt.want)
			}
		})
	}
}
