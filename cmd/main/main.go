package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/OpenJarbas/simple-char-rbm/pkg/rbm"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `simple-char-rbm %s (%s, built %s)

Usage:
  %s [-config path] init
        Create a fresh model file from the configured alphabet.
  %s [-config path] ingest <file>
        Store training lines from <file> in the example database.
  %s [-config path] sample [flags]
        Sample sequences from the trained model.

Sample flags:
  -n N           batch size
  -iters N       Gibbs iterations
  -init method   visible init method (zeros, biases, uniform, spaces,
                 padding, train, silhouettes, chunks, uniform_chars)
  -min N         minimum sequence length
  -max N         maximum sequence length
  -energy        print each sample's free energy
`, Version, Commit, BuildDate, os.Args[0], os.Args[0], os.Args[0])
}

func main() {
	configPath := flag.String("config", "./sampler_config.json", "Path to the JSON config file")
	flag.Usage = usage
	flag.Parse()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	ctx := context.Background()
	switch args[0] {
	case "init":
		err = runInit(cfg, logger)
	case "ingest":
		if len(args) < 2 {
			usage()
			os.Exit(2)
		}
		err = runIngest(ctx, cfg, logger, args[1])
	case "sample":
		err = runSample(ctx, cfg, logger, args[1:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Error("Command failed", "command", args[0], "error", err)
		os.Exit(1)
	}
}

// runInit writes a fresh, untrained model built from the configured
// alphabet. Training happens elsewhere; this gives other tooling a model
// file with the right shapes to fill in.
func runInit(cfg *Config, logger *slog.Logger) error {
	fillers := []rune(cfg.Model.Filler)
	if len(fillers) != 1 {
		return fmt.Errorf("config filler must be a single symbol, got %q", cfg.Model.Filler)
	}
	codec, err := rbm.NewCodec(cfg.Model.Alphabet, cfg.Model.MaxLen, fillers[0])
	if err != nil {
		return err
	}
	model, err := rbm.NewModel(codec, cfg.Model.NumHidden)
	if err != nil {
		return err
	}
	if err := model.Save(cfg.ModelPath); err != nil {
		return err
	}
	logger.Info("Model file created",
		"path", cfg.ModelPath,
		"maxlen", cfg.Model.MaxLen,
		"nchars", codec.NChars(),
		"num_hidden", cfg.Model.NumHidden,
	)
	return nil
}

func runIngest(ctx context.Context, cfg *Config, logger *slog.Logger, inputPath string) error {
	model, err := rbm.LoadModel(cfg.ModelPath)
	if err != nil {
		return err
	}

	db, err := initDB(cfg.ExampleDatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open example database: %w", err)
	}
	defer func() { _ = db.Close() }()
	if err := rbm.SetupSchema(db); err != nil {
		return err
	}

	store, err := rbm.NewStore(db, model.Codec())
	if err != nil {
		return err
	}
	defer store.Close()
	store.SetLogger(logger)

	f, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return store.Ingest(ctx, f)
}

func runSample(ctx context.Context, cfg *Config, logger *slog.Logger, args []string) error {
	sc := cfg.Sampling

	fs := flag.NewFlagSet("sample", flag.ExitOnError)
	n := fs.Int("n", sc.BatchSize, "batch size")
	iters := fs.Int("iters", sc.Iterations, "number of Gibbs iterations")
	initName := fs.String("init", sc.InitMethod, "visible init method")
	minLength := fs.Int("min", sc.MinLength, "minimum sequence length")
	maxLength := fs.Int("max", sc.MaxLength, "maximum sequence length")
	energy := fs.Bool("energy", sc.SampleEnergy, "record free energy per sample")
	if err := fs.Parse(args); err != nil {
		return err
	}

	model, err := rbm.LoadModel(cfg.ModelPath)
	if err != nil {
		return err
	}

	initMethod, err := rbm.ParseInitMethod(*initName)
	if err != nil {
		return err
	}
	policy, err := rbm.ParseAnnealPolicy(sc.AnnealPolicy)
	if err != nil {
		return err
	}

	opts := []rbm.SampleOption{
		rbm.WithTemperatureRange(sc.StartTemp, sc.FinalTemp),
		rbm.WithAnnealPolicy(policy),
		rbm.WithInitMethod(initMethod),
		rbm.WithEnergy(*energy),
		rbm.WithLengthRange(*minLength, *maxLength),
		rbm.WithCallback(func(samples []rbm.Sample, iter int, text string) {
			fmt.Printf("--- iteration %d ---\n%s", iter, text)
		}),
	}

	// The train and silhouettes inits draw their chains from the corpus.
	if initMethod == rbm.InitTrain || initMethod == rbm.InitSilhouettes {
		db, err := initDB(cfg.ExampleDatabasePath)
		if err != nil {
			return fmt.Errorf("failed to open example database: %w", err)
		}
		defer func() { _ = db.Close() }()
		if err := rbm.SetupSchema(db); err != nil {
			return err
		}
		store, err := rbm.NewStore(db, model.Codec())
		if err != nil {
			return err
		}
		defer store.Close()
		store.SetLogger(logger)
		opts = append(opts, rbm.WithExampleSource(store))
	}

	sampler := rbm.NewSampler(model)
	sampler.SetLogger(logger)

	_, last, err := sampler.Sample(ctx, *n, *iters, sc.Checkpoints, opts...)
	if err != nil {
		return err
	}
	logger.Info("Sampling run finished",
		"batch_size", *n,
		"iterations", *iters,
		"final_samples", len(last),
	)
	return nil
}
