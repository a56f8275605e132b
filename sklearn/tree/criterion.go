package tree

import (
	"math"
	"sort"
)

// Split criteria understood by DecisionTreeRegressor.
const (
	CriterionSquaredError  = "squared_error"
	CriterionFriedmanMSE   = "friedman_mse"
	CriterionAbsoluteError = "absolute_error"
	CriterionPoisson       = "poisson"
	// CriterionL2 is the second-order criterion used by the XGBoost-style
	// booster: leaf value S/(W+λ), score S²/(W+λ).
	CriterionL2 = "l2_regularized"
)

// criterion evaluates candidate splits of one node. Samples are moved from
// the right child to the left child one at a time, in feature order.
type criterion interface {
	init(y, w []float64, samples []int)
	nodeValue() float64
	nodeImpurity() float64
	// nodeProxy is the proxy score of the unsplit node, comparable with
	// proxyImprovement for criteria that report split gain.
	nodeProxy() float64
	reset()
	update(i int)
	// proxyImprovement ranks splits of the same node; higher is better.
	// -Inf marks an invalid split.
	proxyImprovement() float64
}

func newCriterion(name string, lambda float64) (criterion, bool) {
	switch name {
	case CriterionSquaredError:
		return &mseCriterion{}, true
	case CriterionFriedmanMSE:
		return &mseCriterion{friedman: true}, true
	case CriterionL2:
		return &mseCriterion{lambda: lambda, regularized: true}, true
	case CriterionAbsoluteError:
		return &maeCriterion{}, true
	case CriterionPoisson:
		return &poissonCriterion{}, true
	}
	return nil, false
}

// mseCriterion covers squared_error, friedman_mse and the L2-regularized
// variant; all three only need weighted sums.
type mseCriterion struct {
	friedman    bool
	regularized bool
	lambda      float64

	y, w     []float64
	impurity float64
	sumW     float64
	sumY     float64
	leftW    float64
	leftY    float64
}

func (c *mseCriterion) init(y, w []float64, samples []int) {
	c.y, c.w = y, w
	c.sumW, c.sumY = 0, 0
	for _, i := range samples {
		c.sumW += w[i]
		c.sumY += w[i] * y[i]
	}
	mean := c.sumY / c.sumW
	var sq float64
	for _, i := range samples {
		d := y[i] - mean
		sq += w[i] * d * d
	}
	c.impurity = sq / c.sumW
	c.reset()
}

func (c *mseCriterion) nodeValue() float64 {
	if c.regularized {
		return c.sumY / (c.sumW + c.lambda)
	}
	return c.sumY / c.sumW
}

func (c *mseCriterion) nodeImpurity() float64 { return c.impurity }

func (c *mseCriterion) nodeProxy() float64 {
	return c.sumY * c.sumY / (c.sumW + c.lambda)
}

func (c *mseCriterion) reset() {
	c.leftW, c.leftY = 0, 0
}

func (c *mseCriterion) update(i int) {
	c.leftW += c.w[i]
	c.leftY += c.w[i] * c.y[i]
}

func (c *mseCriterion) proxyImprovement() float64 {
	rightW := c.sumW - c.leftW
	rightY := c.sumY - c.leftY
	if c.leftW <= 0 || rightW <= 0 {
		return math.Inf(-1)
	}
	switch {
	case c.friedman:
		diff := rightW*c.leftY - c.leftW*rightY
		return diff * diff / (c.leftW * rightW)
	case c.regularized:
		return c.leftY*c.leftY/(c.leftW+c.lambda) + rightY*rightY/(rightW+c.lambda)
	default:
		return c.leftY*c.leftY/c.leftW + rightY*rightY/rightW
	}
}

// poissonCriterion uses the half Poisson deviance. Children whose mean is
// not positive are invalid, as in scikit-learn.
type poissonCriterion struct {
	y, w     []float64
	sumW     float64
	sumY     float64
	leftW    float64
	leftY    float64
	impurity float64
}

const poissonEps = 1e-12

func (c *poissonCriterion) init(y, w []float64, samples []int) {
	c.y, c.w = y, w
	c.sumW, c.sumY = 0, 0
	for _, i := range samples {
		c.sumW += w[i]
		c.sumY += w[i] * y[i]
	}
	mean := c.sumY / c.sumW
	var dev float64
	for _, i := range samples {
		dev += w[i] * (xlogy(y[i], y[i]/mean) - y[i] + mean)
	}
	c.impurity = dev / c.sumW
	c.reset()
}

func (c *poissonCriterion) nodeValue() float64    { return c.sumY / c.sumW }
func (c *poissonCriterion) nodeImpurity() float64 { return c.impurity }
func (c *poissonCriterion) nodeProxy() float64    { return xlogy(c.sumY, c.sumY/c.sumW) }

func (c *poissonCriterion) reset() {
	c.leftW, c.leftY = 0, 0
}

func (c *poissonCriterion) update(i int) {
	c.leftW += c.w[i]
	c.leftY += c.w[i] * c.y[i]
}

func (c *poissonCriterion) proxyImprovement() float64 {
	rightW := c.sumW - c.leftW
	rightY := c.sumY - c.leftY
	if c.leftW <= 0 || rightW <= 0 || c.leftY <= poissonEps || rightY <= poissonEps {
		return math.Inf(-1)
	}
	return xlogy(c.leftY, c.leftY/c.leftW) + xlogy(rightY, rightY/rightW)
}

func xlogy(x, y float64) float64 {
	if x == 0 {
		return 0
	}
	return x * math.Log(y)
}

// maeCriterion keeps both children sorted by target so weighted medians
// and absolute deviations can be recomputed after every move. Each update
// is linear in the node size.
type maeCriterion struct {
	y, w     []float64
	samples  []int
	impurity float64
	median   float64
	left     []int
	right    []int
}

func (c *maeCriterion) init(y, w []float64, samples []int) {
	c.y, c.w = y, w
	c.samples = samples
	all := c.sortedByTarget(samples)
	c.median = weightedMedian(all, y, w)
	c.impurity = absDeviation(all, y, w, c.median) / sumWeights(all, w)
	c.reset()
}

func (c *maeCriterion) sortedByTarget(samples []int) []int {
	out := append([]int(nil), samples...)
	sort.SliceStable(out, func(a, b int) bool { return c.y[out[a]] < c.y[out[b]] })
	return out
}

func (c *maeCriterion) nodeValue() float64    { return c.median }
func (c *maeCriterion) nodeImpurity() float64 { return c.impurity }
func (c *maeCriterion) nodeProxy() float64    { return math.Inf(-1) }

func (c *maeCriterion) reset() {
	c.left = c.left[:0]
	c.right = c.sortedByTarget(c.samples)
}

func (c *maeCriterion) update(i int) {
	pos := sort.Search(len(c.left), func(k int) bool { return c.y[c.left[k]] > c.y[i] })
	c.left = append(c.left, 0)
	copy(c.left[pos+1:], c.left[pos:])
	c.left[pos] = i

	for k, s := range c.right {
		if s == i {
			c.right = append(c.right[:k], c.right[k+1:]...)
			break
		}
	}
}

func (c *maeCriterion) proxyImprovement() float64 {
	if len(c.left) == 0 || len(c.right) == 0 {
		return math.Inf(-1)
	}
	l := absDeviation(c.left, c.y, c.w, weightedMedian(c.left, c.y, c.w))
	r := absDeviation(c.right, c.y, c.w, weightedMedian(c.right, c.y, c.w))
	return -(l + r)
}

// weightedMedian expects idx sorted by y. When the cumulative weight hits
// exactly half, the two middle values are averaged.
func weightedMedian(idx []int, y, w []float64) float64 {
	half := sumWeights(idx, w) / 2
	var cum float64
	for k, i := range idx {
		cum += w[i]
		if cum >= half {
			if cum == half && k+1 < len(idx) {
				return (y[i] + y[idx[k+1]]) / 2
			}
			return y[i]
		}
	}
	return y[idx[len(idx)-1]]
}

func absDeviation(idx []int, y, w []float64, m float64) float64 {
	var s float64
	for _, i := range idx {
		s += w[i] * math.Abs(y[i]-m)
	}
	return s
}

func sumWeights(idx []int, w []float64) float64 {
	var s float64
	for _, i := range idx {
		s += w[i]
	}
	return s
}
