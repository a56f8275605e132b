package linear_model

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/studentperf/core/model"
	"github.com/YuminosukeSato/studentperf/pkg/errors"
)

func makeLinearData(n int) (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(n, 3, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, math.Sin(float64(i)/10.0))
		X.Set(i, 1, math.Cos(float64(i)/10.0))
		X.Set(i, 2, float64(i)/50.0)
		// y = 2*x1 + 3*x2 - x3 + 5
		y.Set(i, 0, 2*X.At(i, 0)+3*X.At(i, 1)-X.At(i, 2)+5)
	}
	return X, y
}

func TestLinearRegression_RecoversCoefficients(t *testing.T) {
	X, y := makeLinearData(100)

	tests := []struct {
		name          string
		fitIntercept  bool
		wantIntercept float64
	}{
		{"with intercept", true, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lr := NewLinearRegression(WithFitIntercept(tt.fitIntercept))
			if err := lr.Fit(X, y); err != nil {
				t.Fatalf("Fit failed: %v", err)
			}
			want := []float64{2, 3, -1}
			for j, w := range want {
				if math.Abs(lr.Coef[j]-w) > 1e-8 {
					t.Errorf("Coef[%d] = %v, want %v", j, lr.Coef[j], w)
				}
			}
			if math.Abs(lr.Intercept-tt.wantIntercept) > 1e-8 {
				t.Errorf("Intercept = %v, want %v", lr.Intercept, tt.wantIntercept)
			}
			score, err := lr.Score(X, y)
			if err != nil {
				t.Fatal(err)
			}
			if math.Abs(score-1) > 1e-10 {
				t.Errorf("Score = %v, want 1", score)
			}
		})
	}
}

func TestLinearRegression_NoIntercept(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	y := mat.NewDense(4, 1, []float64{2, 4, 6, 8})

	lr := NewLinearRegression(WithFitIntercept(false))
	if err := lr.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	if math.Abs(lr.Coef[0]-2) > 1e-10 || lr.Intercept != 0 {
		t.Errorf("got coef=%v intercept=%v, want 2 and 0", lr.Coef, lr.Intercept)
	}
}

func TestLinearRegression_RankDeficient(t *testing.T) {
	// Two one-hot columns always sum to one, so together with the intercept
	// the design is rank deficient. The minimum-norm solution splits the
	// effect evenly between them.
	X := mat.NewDense(4, 2, []float64{
		1, 0,
		0, 1,
		1, 0,
		0, 1,
	})
	y := mat.NewDense(4, 1, []float64{10, 20, 10, 20})

	lr := NewLinearRegression()
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	if lr.Rank != 1 {
		t.Errorf("Rank = %d, want 1", lr.Rank)
	}
	if math.Abs(lr.Coef[0]+lr.Coef[1]) > 1e-10 {
		t.Errorf("minimum-norm coefficients should be opposite, got %v", lr.Coef)
	}
	pred, err := lr.Predict(X)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 4; i++ {
		if math.Abs(pred.At(i, 0)-y.At(i, 0)) > 1e-9 {
			t.Errorf("pred[%d] = %v, want %v", i, pred.At(i, 0), y.At(i, 0))
		}
	}
}

func TestLinearRegression_Errors(t *testing.T) {
	lr := NewLinearRegression()
	if _, err := lr.Predict(mat.NewDense(1, 3, nil)); err == nil {
		t.Error("Predict before Fit should fail")
	}

	X, y := makeLinearData(10)
	if err := lr.Fit(X, mat.NewDense(9, 1, nil)); err == nil {
		t.Error("row mismatch should fail")
	}
	if err := lr.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	if _, err := lr.Predict(mat.NewDense(1, 2, nil)); err == nil {
		t.Error("feature mismatch should fail")
	}

	err := lr.SetParams(model.Params{"alpha": 1.0})
	var vErr *errors.ValidationError
	if !errors.As(err, &vErr) {
		t.Errorf("unknown parameter should be a ValidationError, got %v", err)
	}
}

func TestLinearRegression_CloneAndGob(t *testing.T) {
	X, y := makeLinearData(50)
	lr := NewLinearRegression(WithFitIntercept(false))
	if err := lr.Fit(X, y); err != nil {
		t.Fatal(err)
	}

	clone := lr.Clone()
	if clone.IsFitted() {
		t.Error("Clone must return an unfitted estimator")
	}
	if clone.GetParams()["fit_intercept"] != false {
		t.Error("Clone must keep hyperparameters")
	}

	data, err := model.MarshalGob(lr)
	if err != nil {
		t.Fatal(err)
	}
	var decoded LinearRegression
	if err := model.UnmarshalGob(data, &decoded); err != nil {
		t.Fatal(err)
	}
	p1, _ := lr.Predict(X)
	p2, err := decoded.Predict(X)
	if err != nil {
		t.Fatalf("decoded Predict failed: %v", err)
	}
	if !mat.Equal(p1, p2) {
		t.Error("decoded model predicts differently")
	}
}
