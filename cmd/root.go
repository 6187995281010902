package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/andresmejia3/facedetector/internal/config"
	"github.com/andresmejia3/facedetector/internal/engine"
	"github.com/andresmejia3/facedetector/internal/logging"
	"github.com/andresmejia3/facedetector/internal/pipeline"
	"github.com/andresmejia3/facedetector/internal/store"
	"github.com/andresmejia3/facedetector/internal/types"
	"github.com/andresmejia3/facedetector/internal/utils"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Options holds the mode flags of the root command.
type Options struct {
	Train     bool
	Validate  bool
	Test      bool
	File      string
	Stream    bool
	SaveDir   string
	NoDisplay bool
}

var (
	opts Options

	// cfgPath is the --config flag
	cfgPath string

	// cfg and logger are resolved in PersistentPreRunE and shared by subcommands
	cfg    *config.Config
	logger *slog.Logger

	// stdout receives per-image results and summaries
	stdout io.Writer = os.Stdout
)

// Version is the application version.
const Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:     "facedetector",
	Short:   "Train a face database from labeled images and recognize faces in pictures or a live camera",
	Version: Version,
	Long: `Put pictures of each person in training/<name>/ and run --train.
Then recognize faces with --test -f <image>, every file under validation/ with --validate,
or the webcam with --stream. Modes can be combined and run in that order.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Args: func(cmd *cobra.Command, args []string) error {
		if err := cobra.NoArgs(cmd, args); err != nil {
			return err
		}
		return validateModeFlags(&opts)
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = resolveConfig(cmd)
		if err != nil {
			return err
		}
		logger, err = logging.New(cfg.LogLevel, cfg.LogFormat)
		if err != nil {
			return err
		}
		slog.SetDefault(logger)

		// Directories are created here rather than at startup so --help and --version
		// leave the working directory alone.
		return utils.EnsureLayout(cfg.Dirs()...)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if !opts.any() {
			return cmd.Help()
		}
		return runModes(cmd.Context(), opts)
	},
}

func Execute() {
	// Create a context that listens for Ctrl+C (SIGINT) or Kill (SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		var worker *utils.SafeCommand
		var werr *workerError
		if errors.As(err, &werr) {
			worker = werr.cmd
		}
		stop()
		utils.Die("Command failed", err, worker)
	}
}

func init() {
	cobra.OnInitialize(loadDotEnv)

	flags := rootCmd.Flags()
	flags.BoolVar(&opts.Train, "train", false, "Encode every face under training/<label>/ and overwrite the store")
	flags.BoolVar(&opts.Validate, "validate", false, "Recognize every image under validation/")
	flags.BoolVar(&opts.Test, "test", false, "Recognize a single image (requires -f)")
	flags.StringVarP(&opts.File, "file", "f", "", "Image to use with --test")
	flags.BoolVar(&opts.Stream, "stream", false, "Recognize faces from the camera until 'q' is pressed")
	flags.StringP("model", "m", string(types.ModelHOG), "Face detection model: hog (CPU) or cnn (GPU)")
	flags.String("engine", config.EngineDlib, "Face engine: dlib (in-process) or python (face_recognition worker)")
	flags.String("models", "", "Directory with the dlib model files")
	flags.Float64("tolerance", 0, "Maximum face distance counted as a match (default 0.6)")
	flags.Int("device", 0, "Camera index for --stream")
	flags.StringVar(&opts.SaveDir, "save", "", "Also write annotated images to this directory")
	flags.BoolVar(&opts.NoDisplay, "no-display", false, "Do not open a window for --test and --validate")

	pflags := rootCmd.PersistentFlags()
	pflags.StringVar(&cfgPath, "config", "", "YAML config file (default: "+config.DefaultFile+" if present)")
	pflags.String("db", "", "PostgreSQL connection string; the file store is used when empty")
	pflags.String("log-level", "", "Log level: debug, info, warn, error")
	pflags.String("log-format", "", "Log format: console or json")
}

func (o Options) any() bool {
	return o.Train || o.Validate || o.Test || o.Stream
}

// validateModeFlags rejects flag combinations before any work starts.
func validateModeFlags(o *Options) error {
	if o.Test && o.File == "" {
		return errors.New("--test requires an image path: --test -f <path>")
	}
	return nil
}

// loadDotEnv reads .env from the working directory when it exists.
func loadDotEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "⚠️  Failed to load .env: %v\n", err)
	}
}

// resolveConfig layers command-line flags over the file and environment settings.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	c, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("model") {
		c.Model, _ = flags.GetString("model")
	}
	if flags.Changed("engine") {
		c.Engine, _ = flags.GetString("engine")
	}
	if flags.Changed("models") {
		c.ModelsDir, _ = flags.GetString("models")
	}
	if flags.Changed("tolerance") {
		c.Tolerance, _ = flags.GetFloat64("tolerance")
	}
	if flags.Changed("device") {
		c.CameraDevice, _ = flags.GetInt("device")
	}
	if flags.Changed("db") {
		c.DatabaseURL, _ = flags.GetString("db")
	}
	if flags.Changed("log-level") {
		c.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-format") {
		c.LogFormat, _ = flags.GetString("log-format")
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// workerError carries the python worker so its captured stderr can be shown.
type workerError struct {
	err error
	cmd *utils.SafeCommand
}

func (e *workerError) Error() string { return e.err.Error() }
func (e *workerError) Unwrap() error { return e.err }

func openEngine(ctx context.Context) (engine.Engine, error) {
	eng, err := engine.Open(ctx, engine.Options{
		Name:         cfg.Engine,
		ModelsDir:    cfg.ModelsDir,
		PythonBin:    cfg.PythonBin,
		WorkerScript: cfg.PythonWorker,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start %s engine: %w", cfg.Engine, err)
	}
	return eng, nil
}

// wrapEngineErr attaches the python worker's stderr to err when that engine is in use.
func wrapEngineErr(eng engine.Engine, err error) error {
	if err == nil {
		return nil
	}
	if w, ok := eng.(*engine.PythonWorker); ok && w.Cmd != nil {
		return &workerError{err: err, cmd: w.Cmd}
	}
	return err
}

func openStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.EncodingsPath, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return st, nil
}

// runModes opens the engine and the store, then runs the selected modes.
func runModes(ctx context.Context, o Options) error {
	model, err := types.ParseModel(cfg.Model)
	if err != nil {
		return err
	}

	eng, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.Close()

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	// Background: ctx may already be cancelled by Ctrl+C and the store still needs closing
	defer st.Close(context.Background())

	return wrapEngineErr(eng, runPipeline(ctx, eng, st, model, o))
}

// runPipeline runs the selected modes in order: train, validate, test, stream.
func runPipeline(ctx context.Context, eng pipeline.Engine, st store.Store, model types.Model, o Options) error {
	if o.Train {
		if err := runTrain(ctx, eng, st, model); err != nil {
			return err
		}
	}

	if !o.Validate && !o.Test && !o.Stream {
		return nil
	}

	rec, err := newRecognizer(ctx, eng, st)
	if err != nil {
		return err
	}

	if o.Validate {
		if err := runValidate(ctx, rec, model, o); err != nil {
			return err
		}
	}
	if o.Test {
		if err := runTest(ctx, rec, model, o); err != nil {
			return err
		}
	}
	if o.Stream {
		if err := runStream(ctx, rec, model); err != nil {
			return err
		}
	}
	return nil
}
