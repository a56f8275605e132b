// Package studentperf predicts a student's math score from their background
// and their reading and writing scores.
//
// The module is organised like a small scikit-learn: estimators and
// transformers live under sklearn/ and preprocessing/, and the application
// code that wires them into a training and serving flow lives in pipeline/,
// server/ and cmd/studentperf.
//
// # Training
//
// Training reads the raw CSV, splits it 80/20 with a fixed seed and fits a
// ColumnTransformer: numeric columns are median-imputed and standardized,
// categorical columns are imputed with the most frequent level, one-hot
// encoded and scaled without centering. Seven regressors are then tuned with
// a 3-fold grid search:
//
//   - Random Forest
//   - Decision Tree
//   - Gradient Boosting
//   - Linear Regression
//   - XGBRegressor
//   - CatBoosting Regressor
//   - AdaBoost Regressor
//
// The best model by test r2 is saved with the fitted preprocessor, unless it
// scores below the configured minimum (0.6 by default), in which case nothing
// is written.
//
//	$ studentperf synth -rows 1000
//	$ studentperf train
//
// # Serving
//
// The web front-end renders a form at /predictdata and reloads both
// artifacts on every prediction.
//
//	$ studentperf serve -addr 0.0.0.0:5000
//
// # Packages
//
//   - core/model: estimator contracts, hyperparameters and gob helpers
//   - core/parallel: bounded worker pool used by grid search and forests
//   - preprocessing: imputers, scalers and the one-hot encoder
//   - sklearn/compose: Pipeline and ColumnTransformer
//   - sklearn/tree, sklearn/ensemble, sklearn/linear_model: regressors
//   - sklearn/model_selection: KFold, train/test split and GridSearchCV
//   - metrics: regression metrics
//   - dataset: schema, CSV codec and the synthetic data generator
//   - pipeline: ingestion, transformation, training and prediction
//   - server: gorilla/mux web front-end
//   - pkg/config, pkg/log, pkg/errors, pkg/artifact: ambient infrastructure
package studentperf
