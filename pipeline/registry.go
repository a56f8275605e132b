package pipeline

import (
	"encoding/gob"
	"sort"

	"github.com/YuminosukeSato/studentperf/core/model"
	"github.com/YuminosukeSato/studentperf/pkg/errors"
	"github.com/YuminosukeSato/studentperf/preprocessing"
	"github.com/YuminosukeSato/studentperf/sklearn/ensemble"
	"github.com/YuminosukeSato/studentperf/sklearn/linear_model"
	"github.com/YuminosukeSato/studentperf/sklearn/model_selection"
	"github.com/YuminosukeSato/studentperf/sklearn/tree"
)

// Registry entry names. They appear in reports, logs, artifact headers and
// as keys of the training.grids configuration section.
const (
	RandomForest     = "Random Forest"
	DecisionTree     = "Decision Tree"
	GradientBoosting = "Gradient Boosting"
	LinearRegression = "Linear Regression"
	XGBRegressor     = "XGBRegressor"
	CatBoosting      = "CatBoosting Regressor"
	AdaBoost         = "AdaBoost Regressor"
)

func init() {
	// Artifacts hold estimators behind interfaces.
	gob.Register(&preprocessing.SimpleImputer{})
	gob.Register(&preprocessing.StandardScaler{})
	gob.Register(&preprocessing.OneHotEncoder{})
	gob.Register(&ensemble.RandomForestRegressor{})
	gob.Register(&tree.DecisionTreeRegressor{})
	gob.Register(&ensemble.GradientBoostingRegressor{})
	gob.Register(&linear_model.LinearRegression{})
	gob.Register(&ensemble.XGBRegressor{})
	gob.Register(&ensemble.CatBoostRegressor{})
	gob.Register(&ensemble.AdaBoostRegressor{})
}

// Entry is one candidate model: a constructor for an unfitted estimator and
// the grid searched over it.
type Entry struct {
	Name string
	New  func() model.Regressor
	Grid model_selection.Grid
}

// Registry is evaluated in order; on equal test scores the earlier entry
// wins.
type Registry []Entry

var estimatorCounts = []interface{}{8, 16, 32, 64, 128, 256}

// DefaultRegistry returns the seven regressors and their grids.
func DefaultRegistry() Registry {
	return Registry{
		{
			Name: RandomForest,
			New:  func() model.Regressor { return ensemble.NewRandomForestRegressor() },
			Grid: model_selection.Grid{"n_estimators": estimatorCounts},
		},
		{
			Name: DecisionTree,
			New:  func() model.Regressor { return tree.NewDecisionTreeRegressor() },
			Grid: model_selection.Grid{
				"criterion": {
					tree.CriterionSquaredError, tree.CriterionFriedmanMSE,
					tree.CriterionAbsoluteError, tree.CriterionPoisson,
				},
			},
		},
		{
			Name: GradientBoosting,
			New:  func() model.Regressor { return ensemble.NewGradientBoostingRegressor() },
			Grid: model_selection.Grid{
				"learning_rate": {0.1, 0.01, 0.05, 0.001},
				"subsample":     {0.6, 0.7, 0.75, 0.8, 0.85, 0.9},
				"n_estimators":  estimatorCounts,
			},
		},
		{
			Name: LinearRegression,
			New:  func() model.Regressor { return linear_model.NewLinearRegression() },
			Grid: model_selection.Grid{},
		},
		{
			Name: XGBRegressor,
			New:  func() model.Regressor { return ensemble.NewXGBRegressor() },
			Grid: model_selection.Grid{
				"learning_rate": {0.1, 0.01, 0.05, 0.001},
				"n_estimators":  estimatorCounts,
			},
		},
		{
			Name: CatBoosting,
			New: func() model.Regressor {
				c := ensemble.NewCatBoostRegressor()
				c.Verbose = false
				return c
			},
			Grid: model_selection.Grid{
				"depth":         {6, 8, 10},
				"learning_rate": {0.01, 0.05, 0.1},
				"iterations":    {30, 50, 100},
			},
		},
		{
			Name: AdaBoost,
			New:  func() model.Regressor { return ensemble.NewAdaBoostRegressor() },
			Grid: model_selection.Grid{
				"learning_rate": {0.1, 0.01, 0.5, 0.001},
				"n_estimators":  estimatorCounts,
			},
		},
	}
}

// Names returns the entry names in order.
func (r Registry) Names() []string {
	names := make([]string, len(r))
	for i, e := range r {
		names[i] = e.Name
	}
	return names
}

// WithGrids returns a copy of r whose grids are replaced by overrides,
// keyed by entry name. Naming an entry that does not exist is an error so
// that typos in the configuration do not go unnoticed.
func (r Registry) WithGrids(overrides map[string]map[string][]interface{}) (Registry, error) {
	out := make(Registry, len(r))
	index := make(map[string]int, len(r))
	for i, e := range r {
		e.Grid = e.Grid.Copy()
		out[i] = e
		index[e.Name] = i
	}

	names := make([]string, 0, len(overrides))
	for name := range overrides {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		i, ok := index[name]
		if !ok {
			return nil, errors.NewValidationError("training.grids", "unknown model", name)
		}
		out[i].Grid = model_selection.Grid(overrides[name]).Copy()
	}
	return out, nil
}
