// Package pipeline wires the student-performance workflow together:
// ingestion of the raw CSV, the preprocessing ColumnTransformer, grid
// search over the model registry, the minimum-score gate, artifact
// persistence and inference from the persisted artifacts.
//
// Training is a one-shot batch run:
//
//	ing := pipeline.NewDataIngestion(cfg, logger)
//	trainPath, testPath, err := ing.Initiate()
//	...
//	tp, err := pipeline.NewTrainingPipeline(cfg, logger)
//	res, err := tp.Run(ctx, trainPath, testPath)
//
// Inference reloads both artifacts on every call so that a newer training
// run is picked up without restarting the server.
package pipeline
