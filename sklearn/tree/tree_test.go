package tree

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/studentperf/core/model"
	"github.com/YuminosukeSato/studentperf/pkg/errors"
)

// step data: y jumps from 10 to 30 at x=5
func stepData() (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(10, 2, nil)
	y := mat.NewDense(10, 1, nil)
	for i := 0; i < 10; i++ {
		X.Set(i, 0, float64(i))
		X.Set(i, 1, float64(i%2))
		if i < 5 {
			y.Set(i, 0, 10)
		} else {
			y.Set(i, 0, 30)
		}
	}
	return X, y
}

func TestDecisionTreeRegressor_Criteria(t *testing.T) {
	tests := []struct {
		criterion string
	}{
		{CriterionSquaredError},
		{CriterionFriedmanMSE},
		{CriterionAbsoluteError},
		{CriterionPoisson},
	}

	X, y := stepData()
	for _, tt := range tests {
		t.Run(tt.criterion, func(t *testing.T) {
			dt := NewDecisionTreeRegressor(WithCriterion(tt.criterion))
			if err := dt.Fit(X, y); err != nil {
				t.Fatalf("Fit failed: %v", err)
			}
			root := dt.Tree.Nodes[0]
			if root.Feature != 0 || root.Threshold != 4.5 {
				t.Errorf("root split = (x%d <= %v), want (x0 <= 4.5)", root.Feature, root.Threshold)
			}
			if dt.Tree.NLeaves() != 2 {
				t.Errorf("pure children must not be split further, got %d leaves", dt.Tree.NLeaves())
			}
			score, err := dt.Score(X, y)
			if err != nil {
				t.Fatal(err)
			}
			if math.Abs(score-1) > 1e-12 {
				t.Errorf("Score = %v, want 1", score)
			}
		})
	}
}

func TestDecisionTreeRegressor_MaxDepth(t *testing.T) {
	X := mat.NewDense(8, 1, []float64{0, 1, 2, 3, 4, 5, 6, 7})
	y := mat.NewDense(8, 1, []float64{0, 1, 2, 3, 4, 5, 6, 7})

	tests := []struct {
		depth      int
		wantLeaves int
	}{
		{0, 1},
		{1, 2},
		{2, 4},
		{-1, 8},
	}
	for _, tt := range tests {
		dt := NewDecisionTreeRegressor(WithMaxDepth(tt.depth))
		if err := dt.Fit(X, y); err != nil {
			t.Fatal(err)
		}
		if got := dt.Tree.NLeaves(); got != tt.wantLeaves {
			t.Errorf("max_depth=%d: leaves = %d, want %d", tt.depth, got, tt.wantLeaves)
		}
	}

	stump := NewDecisionTreeRegressor(WithMaxDepth(0))
	_ = stump.Fit(X, y)
	pred, _ := stump.Predict(X)
	if pred.At(0, 0) != 3.5 {
		t.Errorf("single leaf should predict the mean, got %v", pred.At(0, 0))
	}
}

func TestDecisionTreeRegressor_MinSamplesLeaf(t *testing.T) {
	X := mat.NewDense(6, 1, []float64{0, 1, 2, 3, 4, 5})
	y := mat.NewDense(6, 1, []float64{0, 0, 0, 0, 0, 100})

	dt := NewDecisionTreeRegressor(WithMinSamplesLeaf(2))
	if err := dt.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	for _, n := range dt.Tree.Nodes {
		if n.Feature < 0 && n.NSamples < 2 {
			t.Errorf("leaf with %d samples violates min_samples_leaf=2", n.NSamples)
		}
	}
}

func TestDecisionTreeRegressor_AbsoluteErrorMedian(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{1, 1, 1, 1})
	y := mat.NewDense(4, 1, []float64{1, 2, 3, 100})

	dt := NewDecisionTreeRegressor(WithCriterion(CriterionAbsoluteError))
	if err := dt.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	// constant feature: single leaf predicting the median
	if v := dt.Tree.Nodes[0].Value; v != 2.5 {
		t.Errorf("median leaf = %v, want 2.5", v)
	}
}

func TestDecisionTreeRegressor_Weighted(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{0, 1, 2, 3})
	y := mat.NewDense(4, 1, []float64{1, 1, 5, 5})

	dt := NewDecisionTreeRegressor(WithMaxDepth(0))
	if err := dt.FitWeighted(X, y, []float64{3, 0, 1, 0}); err != nil {
		t.Fatal(err)
	}
	if v := dt.Tree.Nodes[0].Value; v != 2 {
		t.Errorf("weighted mean = %v, want 2", v)
	}
	if n := dt.Tree.Nodes[0].NSamples; n != 2 {
		t.Errorf("zero-weight samples must be ignored, node has %d", n)
	}
}

func TestDecisionTreeRegressor_Errors(t *testing.T) {
	dt := NewDecisionTreeRegressor()
	if _, err := dt.Predict(mat.NewDense(1, 2, nil)); err == nil {
		t.Error("Predict before Fit should fail")
	}

	err := dt.SetParams(model.Params{"criterion": "gini"})
	var vErr *errors.ValidationError
	if !errors.As(err, &vErr) {
		t.Errorf("invalid criterion should be a ValidationError, got %v", err)
	}
	if err := dt.SetParams(model.Params{"splitter": "random"}); err == nil {
		t.Error("unknown parameter should be rejected")
	}

	poisson := NewDecisionTreeRegressor(WithCriterion(CriterionPoisson))
	if err := poisson.Fit(mat.NewDense(2, 1, []float64{0, 1}), mat.NewDense(2, 1, []float64{-1, 2})); err == nil {
		t.Error("negative targets should be rejected for poisson")
	}
}

func TestDecisionTreeRegressor_ParamsRoundTrip(t *testing.T) {
	dt := NewDecisionTreeRegressor()
	if err := dt.SetParams(model.Params{"criterion": CriterionFriedmanMSE, "max_depth": 3}); err != nil {
		t.Fatal(err)
	}
	p := dt.GetParams()
	if p["criterion"] != CriterionFriedmanMSE || p["max_depth"] != 3 {
		t.Errorf("GetParams = %v", p)
	}
	if err := dt.SetParams(model.Params{"max_depth": nil}); err != nil {
		t.Fatal(err)
	}
	if dt.MaxDepth != -1 || dt.GetParams()["max_depth"] != nil {
		t.Error("max_depth=None should mean unlimited")
	}

	clone := dt.Clone()
	if clone.GetParams()["criterion"] != CriterionFriedmanMSE {
		t.Error("Clone lost hyperparameters")
	}
}

func TestDecisionTreeRegressor_Gob(t *testing.T) {
	X, y := stepData()
	dt := NewDecisionTreeRegressor()
	if err := dt.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	data, err := model.MarshalGob(dt)
	if err != nil {
		t.Fatal(err)
	}
	var decoded DecisionTreeRegressor
	if err := model.UnmarshalGob(data, &decoded); err != nil {
		t.Fatal(err)
	}
	p1, _ := dt.Predict(X)
	p2, err := decoded.Predict(X)
	if err != nil {
		t.Fatal(err)
	}
	if !mat.Equal(p1, p2) {
		t.Error("decoded tree predicts differently")
	}
}
