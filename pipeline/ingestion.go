package pipeline

import (
	"github.com/YuminosukeSato/studentperf/dataset"
	"github.com/YuminosukeSato/studentperf/pkg/config"
	"github.com/YuminosukeSato/studentperf/pkg/log"
	"github.com/YuminosukeSato/studentperf/sklearn/model_selection"
)

// DataIngestion copies the source dataset into the artifacts directory and
// splits it into train and test files.
type DataIngestion struct {
	SourcePath    string
	RawDataPath   string
	TrainDataPath string
	TestDataPath  string
	TestSize      float64
	RandomState   int
	Schema        dataset.Schema

	logger log.Logger
}

// NewDataIngestion reads its paths and split settings from cfg.
func NewDataIngestion(cfg config.Config, logger log.Logger) *DataIngestion {
	return &DataIngestion{
		SourcePath:    cfg.Data.SourcePath,
		RawDataPath:   cfg.RawDataPath(),
		TrainDataPath: cfg.TrainDataPath(),
		TestDataPath:  cfg.TestDataPath(),
		TestSize:      cfg.Data.TestSize,
		RandomState:   cfg.Data.RandomState,
		Schema:        dataset.DefaultSchema(),
		logger:        log.OrNop(logger).With(log.ComponentKey, "DataIngestion"),
	}
}

// Initiate writes the raw copy and the train/test split and returns the
// paths of the two split files.
func (d *DataIngestion) Initiate() (trainPath, testPath string, err error) {
	d.logger.Info("Entered the data ingestion method or component", log.PathKey, d.SourcePath)

	records, err := dataset.ReadCSVFile(d.SourcePath, d.Schema, true)
	if err != nil {
		return "", "", err
	}
	d.logger.Info("Read the dataset", log.SamplesKey, len(records))

	if err := dataset.WriteCSVFile(d.RawDataPath, records); err != nil {
		return "", "", err
	}

	trainIdx, testIdx, err := model_selection.TrainTestSplit(len(records), d.TestSize, uint64(d.RandomState))
	if err != nil {
		return "", "", err
	}
	if err := dataset.WriteCSVFile(d.TrainDataPath, dataset.Subset(records, trainIdx)); err != nil {
		return "", "", err
	}
	if err := dataset.WriteCSVFile(d.TestDataPath, dataset.Subset(records, testIdx)); err != nil {
		return "", "", err
	}

	d.logger.Info("Ingestion of the data is completed",
		"train_rows", len(trainIdx), "test_rows", len(testIdx))
	return d.TrainDataPath, d.TestDataPath, nil
}
