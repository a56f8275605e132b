package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/gonuts/commander"
	"github.com/gonuts/flag"

	"github.com/YuminosukeSato/studentperf/dataset"
	"github.com/YuminosukeSato/studentperf/pipeline"
	"github.com/YuminosukeSato/studentperf/pkg/config"
	"github.com/YuminosukeSato/studentperf/pkg/errors"
	"github.com/YuminosukeSato/studentperf/pkg/log"
	"github.com/YuminosukeSato/studentperf/server"
)

// env is what every subcommand needs after flag parsing.
type env struct {
	cfg      config.Config
	provider log.LoggerProvider
	close    func() error
}

func (e *env) logger(name string) log.Logger { return e.provider.GetLoggerWithName(name) }

// setup loads the configuration and installs the process-wide log provider.
func setup(configPath string, stderr io.Writer) (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	level, err := log.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}

	e := &env{cfg: cfg, close: func() error { return nil }}
	switch cfg.Logging.Format {
	case "slog":
		e.provider = log.NewSlogProvider(stderr, level)
	default:
		zp, err := log.NewZerologProvider(log.Options{
			Level:   level,
			Writer:  stderr,
			Console: cfg.Logging.Format == "console",
			Dir:     cfg.Logging.Dir,
		})
		if err != nil {
			return nil, err
		}
		e.provider = zp
		e.close = zp.Close
	}
	log.SetProvider(e.provider)
	return e, nil
}

// withEnv adapts a subcommand body to commander's Run signature.
func withEnv(configPath *string, body func(e *env, args []string) error) func(*commander.Command, []string) error {
	return func(_ *commander.Command, args []string) (err error) {
		e, err := setup(*configPath, os.Stderr)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := e.close(); cerr != nil && err == nil {
				err = cerr
			}
			log.SetProvider(nil)
		}()
		return body(e, args)
	}
}

func ingestCmd(ctx context.Context) *commander.Command {
	var configPath string
	cmd := &commander.Command{
		UsageLine: "ingest [-config file]",
		Short:     "copy the source dataset and write the train/test split",
		Long: `
ingest reads data.source_path, validates its header and writes data.csv,
train.csv and test.csv into the artifacts directory.

	$ studentperf ingest -config studentperf.yaml
`,
		Flag: *flag.NewFlagSet("ingest", flag.ExitOnError),
	}
	cmd.Flag.StringVar(&configPath, "config", "", "YAML configuration file")
	cmd.Run = withEnv(&configPath, func(e *env, _ []string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		trainPath, testPath, err := pipeline.NewDataIngestion(e.cfg, e.logger("DataIngestion")).Initiate()
		if err != nil {
			return err
		}
		fmt.Printf("train: %s\ntest:  %s\n", trainPath, testPath)
		return nil
	})
	return cmd
}

func trainCmd(ctx context.Context) *commander.Command {
	var (
		configPath string
		skipIngest bool
	)
	cmd := &commander.Command{
		UsageLine: "train [-config file] [-skip-ingest]",
		Short:     "ingest, transform, grid-search every regressor and persist the best",
		Long: `
train runs the whole training pipeline. The best model by test r2 is saved
with the fitted preprocessor unless it scores below training.min_score, in
which case nothing is written and the command exits with status 2.

	$ studentperf train -config studentperf.yaml
`,
		Flag: *flag.NewFlagSet("train", flag.ExitOnError),
	}
	cmd.Flag.StringVar(&configPath, "config", "", "YAML configuration file")
	cmd.Flag.BoolVar(&skipIngest, "skip-ingest", false, "reuse the existing train.csv and test.csv")
	cmd.Run = withEnv(&configPath, func(e *env, _ []string) error {
		trainPath, testPath := e.cfg.TrainDataPath(), e.cfg.TestDataPath()
		if !skipIngest {
			var err error
			trainPath, testPath, err = pipeline.NewDataIngestion(e.cfg, e.logger("DataIngestion")).Initiate()
			if err != nil {
				return err
			}
		}
		tp, err := pipeline.NewTrainingPipeline(e.cfg, e.logger("ModelTrainer"))
		if err != nil {
			return err
		}
		res, err := tp.Run(ctx, trainPath, testPath)
		if res != nil {
			printReport(os.Stdout, res, e.cfg.Training.MinScore)
		}
		return err
	})
	return cmd
}

func serveCmd(ctx context.Context) *commander.Command {
	var (
		configPath string
		addr       string
	)
	cmd := &commander.Command{
		UsageLine: "serve [-config file] [-addr host:port]",
		Short:     "serve the prediction form",
		Long: `
serve starts the web front-end. Artifacts are loaded on every prediction,
so a new training run is picked up without a restart.

	$ studentperf serve -addr 0.0.0.0:5000
`,
		Flag: *flag.NewFlagSet("serve", flag.ExitOnError),
	}
	cmd.Flag.StringVar(&configPath, "config", "", "YAML configuration file")
	cmd.Flag.StringVar(&addr, "addr", "", "listen address, overrides server.addr")
	cmd.Run = withEnv(&configPath, func(e *env, _ []string) error {
		if addr != "" {
			e.cfg.Server.Addr = addr
		}
		pp := pipeline.NewPredictPipeline(e.cfg, e.logger("PredictPipeline"))
		srv := server.New(pp, server.Options{
			Addr:              e.cfg.Server.Addr,
			ReadTimeout:       time.Duration(e.cfg.Server.ReadTimeoutSeconds) * time.Second,
			WriteTimeout:      time.Duration(e.cfg.Server.WriteTimeoutSeconds) * time.Second,
			PreserveScoreSwap: e.cfg.Server.PreserveScoreSwap,
			Logger:            e.logger("server"),
		})
		return srv.ListenAndServe(ctx)
	})
	return cmd
}

func predictCmd(ctx context.Context) *commander.Command {
	var (
		configPath string
		one        pipeline.CustomData
	)
	cmd := &commander.Command{
		UsageLine: "predict [-config file] [record flags] [features.csv]",
		Short:     "predict math scores for one student or a CSV of feature rows",
		Long: `
predict prints one predicted math score per input row. With a CSV argument
it reads the seven feature columns (math_score may be present and is
ignored); without one it predicts the single record given by the flags.

	$ studentperf predict -gender female -ethnicity "group B" \
	    -parental "bachelor's degree" -lunch standard -test-prep none \
	    -reading 72 -writing 74
	$ studentperf predict new_students.csv
`,
		Flag: *flag.NewFlagSet("predict", flag.ExitOnError),
	}
	cmd.Flag.StringVar(&configPath, "config", "", "YAML configuration file")
	cmd.Flag.StringVar(&one.Gender, "gender", "", "gender")
	cmd.Flag.StringVar(&one.RaceEthnicity, "ethnicity", "", "race/ethnicity group")
	cmd.Flag.StringVar(&one.ParentalLevelOfEducation, "parental", "", "parental level of education")
	cmd.Flag.StringVar(&one.Lunch, "lunch", "", "lunch type")
	cmd.Flag.StringVar(&one.TestPreparationCourse, "test-prep", "", "test preparation course")
	cmd.Flag.Float64Var(&one.ReadingScore, "reading", 0, "reading score")
	cmd.Flag.Float64Var(&one.WritingScore, "writing", 0, "writing score")
	cmd.Run = withEnv(&configPath, func(e *env, args []string) error {
		pp := pipeline.NewPredictPipeline(e.cfg, e.logger("PredictPipeline"))

		var records []dataset.Record
		switch len(args) {
		case 0:
			records = []dataset.Record{one.Record()}
		case 1:
			var err error
			if records, err = dataset.ReadCSVFile(args[0], pp.Schema, false); err != nil {
				return err
			}
		default:
			return errors.Newf("predict: expected at most one CSV file, got %d arguments", len(args))
		}

		preds, err := pp.Predict(ctx, records)
		if err != nil {
			return err
		}
		for _, p := range preds {
			fmt.Println(strconv.FormatFloat(p, 'f', -1, 64))
		}
		return nil
	})
	return cmd
}

func synthCmd() *commander.Command {
	var (
		out     string
		rows    int
		seed    int
		missing float64
	)
	cmd := &commander.Command{
		UsageLine: "synth [-out file] [-rows n] [-seed n] [-missing rate]",
		Short:     "write a synthetic student performance dataset",
		Long: `
synth generates a dataset with the same columns and levels as the real one,
for local runs and tests.

	$ studentperf synth -rows 1000 -out notebook/data/stud.csv
`,
		Flag: *flag.NewFlagSet("synth", flag.ExitOnError),
	}
	cmd.Flag.StringVar(&out, "out", config.Default().Data.SourcePath, "output CSV path")
	cmd.Flag.IntVar(&rows, "rows", 1000, "number of rows")
	cmd.Flag.IntVar(&seed, "seed", 42, "random seed")
	cmd.Flag.Float64Var(&missing, "missing", 0, "fraction of feature cells left empty")
	cmd.Run = func(_ *commander.Command, _ []string) error {
		if rows <= 0 || seed < 0 {
			return errors.New("synth: rows must be positive and seed non-negative")
		}
		records := dataset.Synthesize(dataset.SynthOptions{Rows: rows, Seed: uint64(seed), MissingRate: missing})
		if err := dataset.WriteCSVFile(out, records); err != nil {
			return err
		}
		fmt.Printf("wrote %d rows to %s\n", len(records), out)
		return nil
	}
	return cmd
}
