package ensemble

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/studentperf/core/model"
	"github.com/YuminosukeSato/studentperf/pkg/errors"
	"github.com/YuminosukeSato/studentperf/pkg/log"
)

// ObliviousTree uses the same split at every node of a level, so a sample's
// leaf index is the bit pattern of its Depth split decisions.
type ObliviousTree struct {
	Features   []int
	Thresholds []float64
	Values     []float64 // len 1<<len(Features)
}

// LeafIndex returns the leaf of row i of X.
func (t *ObliviousTree) LeafIndex(X mat.Matrix, i int) int {
	idx := 0
	for d, f := range t.Features {
		if X.At(i, f) > t.Thresholds[d] {
			idx |= 1 << d
		}
	}
	return idx
}

// CatBoostRegressor is an RMSE gradient booster over oblivious trees with
// quantized feature borders, modeled on CatBoost's plain boosting mode.
type CatBoostRegressor struct {
	model.BaseEstimator

	Iterations   int
	LearningRate float64
	Depth        int
	L2LeafReg    float64
	BorderCount  int
	Verbose      bool

	BaseScore float64
	Trees     []*ObliviousTree
	NFeatures int
}

// NewCatBoostRegressor returns a booster with CatBoost defaults. CatBoost
// tunes the learning rate automatically; 0.03 is its value for 1000
// iterations on small data.
func NewCatBoostRegressor() *CatBoostRegressor {
	return &CatBoostRegressor{
		Iterations:   1000,
		LearningRate: 0.03,
		Depth:        6,
		L2LeafReg:    3,
		BorderCount:  254,
	}
}

func (c *CatBoostRegressor) validate() error {
	switch {
	case c.Iterations < 1:
		return errors.NewValidationError("iterations", "must be at least 1", c.Iterations)
	case c.LearningRate <= 0:
		return errors.NewValidationError("learning_rate", "must be positive", c.LearningRate)
	case c.Depth < 1 || c.Depth > 16:
		return errors.NewValidationError("depth", "must be in [1, 16]", c.Depth)
	case c.L2LeafReg < 0:
		return errors.NewValidationError("l2_leaf_reg", "must be non-negative", c.L2LeafReg)
	case c.BorderCount < 1:
		return errors.NewValidationError("border_count", "must be at least 1", c.BorderCount)
	}
	return nil
}

// borders returns at most maxBorders split candidates for one feature:
// midpoints between distinct values, or quantile midpoints when there are
// too many distinct values.
func borders(col []float64, maxBorders int) []float64 {
	vals := append([]float64(nil), col...)
	sort.Float64s(vals)
	uniq := vals[:0:0]
	for i, v := range vals {
		if i == 0 || v-uniq[len(uniq)-1] > 1e-7 {
			uniq = append(uniq, v)
		}
	}
	if len(uniq) < 2 {
		return nil
	}
	out := make([]float64, 0, min(len(uniq)-1, maxBorders))
	if len(uniq)-1 <= maxBorders {
		for i := 1; i < len(uniq); i++ {
			out = append(out, (uniq[i-1]+uniq[i])/2)
		}
		return out
	}
	n := len(vals)
	for k := 1; k <= maxBorders; k++ {
		p := k * n / (maxBorders + 1)
		if p <= 0 || p >= n || vals[p-1] == vals[p] {
			continue
		}
		b := (vals[p-1] + vals[p]) / 2
		if len(out) == 0 || b > out[len(out)-1] {
			out = append(out, b)
		}
	}
	return out
}

// Fit quantizes the features once and then grows Iterations oblivious
// trees on the residuals.
func (c *CatBoostRegressor) Fit(X, y mat.Matrix) error {
	cols, target, err := prepare("CatBoostRegressor.Fit", X, y)
	if err != nil {
		return err
	}
	if err := c.validate(); err != nil {
		return err
	}
	c.Reset()
	logger := log.GetLoggerWithName("CatBoostRegressor")

	n := len(target)
	d := len(cols)
	bords := make([][]float64, d)
	bins := make([][]int, d)
	for j, col := range cols {
		bords[j] = borders(col, c.BorderCount)
		bins[j] = make([]int, n)
		for i, v := range col {
			// number of borders strictly below v
			bins[j][i] = sort.SearchFloat64s(bords[j], v)
		}
	}

	c.BaseScore = meanOf(target)
	pred := make([]float64, n)
	for i := range pred {
		pred[i] = c.BaseScore
	}
	resid := make([]float64, n)
	leaf := make([]int, n)
	c.Trees = make([]*ObliviousTree, 0, c.Iterations)

	for it := 0; it < c.Iterations; it++ {
		for i := range resid {
			resid[i] = target[i] - pred[i]
		}
		t := c.growTree(resid, bords, bins, leaf)
		c.Trees = append(c.Trees, t)

		var loss float64
		for i := range pred {
			pred[i] += c.LearningRate * t.Values[leaf[i]]
			r := target[i] - pred[i]
			loss += r * r
		}
		if c.Verbose {
			logger.Debug("iteration", "iteration", it, "train_mse", loss/float64(n))
		}
	}

	c.NFeatures = d
	c.SetFitted()
	return nil
}

// growTree chooses one (feature, border) per level maximizing
// sum S²/(W+λ) over the resulting leaves. On return leaf holds each
// sample's leaf index.
func (c *CatBoostRegressor) growTree(resid []float64, bords [][]float64, bins [][]int, leaf []int) *ObliviousTree {
	for i := range leaf {
		leaf[i] = 0
	}
	t := &ObliviousTree{}
	lambda := c.L2LeafReg

	for level := 0; level < c.Depth; level++ {
		nLeaves := 1 << level
		bestScore := -1.0
		bestFeature, bestBorder := -1, -1

		for j := range bords {
			nb := len(bords[j])
			if nb == 0 {
				continue
			}
			// histogram over (leaf, bin); bin nb holds values above every border
			sumS := make([]float64, nLeaves*(nb+1))
			sumW := make([]float64, nLeaves*(nb+1))
			for i, r := range resid {
				k := leaf[i]*(nb+1) + bins[j][i]
				sumS[k] += r
				sumW[k]++
			}
			totS := make([]float64, nLeaves)
			totW := make([]float64, nLeaves)
			for l := 0; l < nLeaves; l++ {
				for k := 0; k <= nb; k++ {
					totS[l] += sumS[l*(nb+1)+k]
					totW[l] += sumW[l*(nb+1)+k]
				}
			}
			leftS := make([]float64, nLeaves)
			leftW := make([]float64, nLeaves)
			for b := 0; b < nb; b++ {
				var s float64
				for l := 0; l < nLeaves; l++ {
					leftS[l] += sumS[l*(nb+1)+b]
					leftW[l] += sumW[l*(nb+1)+b]
					rs, rw := totS[l]-leftS[l], totW[l]-leftW[l]
					s += leftS[l]*leftS[l]/(leftW[l]+lambda) + rs*rs/(rw+lambda)
				}
				if s > bestScore {
					bestScore, bestFeature, bestBorder = s, j, b
				}
			}
		}
		if bestFeature < 0 {
			break
		}

		t.Features = append(t.Features, bestFeature)
		t.Thresholds = append(t.Thresholds, bords[bestFeature][bestBorder])
		for i := range leaf {
			if bins[bestFeature][i] > bestBorder {
				leaf[i] |= 1 << level
			}
		}
	}

	nLeaves := 1 << len(t.Features)
	s := make([]float64, nLeaves)
	w := make([]float64, nLeaves)
	for i, r := range resid {
		s[leaf[i]] += r
		w[leaf[i]]++
	}
	t.Values = make([]float64, nLeaves)
	for l := range t.Values {
		t.Values[l] = s[l] / (w[l] + lambda)
	}
	return t
}

// Predict returns BaseScore plus the shrunken leaf values of every tree.
func (c *CatBoostRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := c.RequireFitted("CatBoostRegressor", "Predict"); err != nil {
		return nil, err
	}
	rows, err := model.CheckX("CatBoostRegressor.Predict", X, c.NFeatures)
	if err != nil {
		return nil, err
	}
	out := make([]float64, rows)
	for i := range out {
		out[i] = c.BaseScore
		for _, t := range c.Trees {
			out[i] += c.LearningRate * t.Values[t.LeafIndex(X, i)]
		}
	}
	return mat.NewDense(rows, 1, out), nil
}

// Score returns the R² of the prediction.
func (c *CatBoostRegressor) Score(X, y mat.Matrix) (float64, error) {
	return score(c, X, y)
}

// GetParams returns the hyperparameters.
func (c *CatBoostRegressor) GetParams() model.Params {
	return model.Params{
		"iterations":    c.Iterations,
		"learning_rate": c.LearningRate,
		"depth":         c.Depth,
		"l2_leaf_reg":   c.L2LeafReg,
		"border_count":  c.BorderCount,
		"verbose":       c.Verbose,
	}
}

// SetParams updates the hyperparameters.
func (c *CatBoostRegressor) SetParams(params model.Params) error {
	for _, key := range params.Keys() {
		var err error
		switch key {
		case "iterations":
			c.Iterations, err = params.Int(key)
		case "learning_rate":
			c.LearningRate, err = params.Float(key)
		case "depth":
			c.Depth, err = params.Int(key)
		case "l2_leaf_reg":
			c.L2LeafReg, err = params.Float(key)
		case "border_count":
			c.BorderCount, err = params.Int(key)
		case "verbose":
			c.Verbose, err = params.Bool(key)
		default:
			err = model.UnknownParam("CatBoostRegressor", key, params[key])
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Clone returns an unfitted booster with the same hyperparameters.
func (c *CatBoostRegressor) Clone() model.Regressor {
	cl := NewCatBoostRegressor()
	_ = cl.SetParams(c.GetParams())
	return cl
}

func (c *CatBoostRegressor) String() string {
	return fmt.Sprintf("CatBoostRegressor(iterations=%d, depth=%d, learning_rate=%g)",
		c.Iterations, c.Depth, c.LearningRate)
}
