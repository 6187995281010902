// Package config resolves runtime settings from defaults, an optional YAML file and the
// environment. Command-line flags are applied on top by the cmd package.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/andresmejia3/facedetector/internal/types"
	"gopkg.in/yaml.v3"
)

// DefaultFile is read when present and no --config was given.
const DefaultFile = "detector.yaml"

// Engine names accepted in Config.Engine.
const (
	EngineDlib   = "dlib"
	EnginePython = "python"
)

type Config struct {
	TrainingDir   string  `yaml:"training_dir"`
	ValidationDir string  `yaml:"validation_dir"`
	OutputDir     string  `yaml:"output_dir"`
	EncodingsPath string  `yaml:"encodings_path"`
	ModelsDir     string  `yaml:"models_dir"`
	Engine        string  `yaml:"engine"`
	PythonBin     string  `yaml:"python_bin"`
	PythonWorker  string  `yaml:"python_worker"`
	Model         string  `yaml:"model"`
	Tolerance     float64 `yaml:"tolerance"`
	CameraDevice  int     `yaml:"camera_device"`
	DatabaseURL   string  `yaml:"database_url"`
	LogLevel      string  `yaml:"log_level"`
	LogFormat     string  `yaml:"log_format"`
}

// Default returns the built-in settings: the training/, validation/ and output/
// directories under the working directory and the dlib engine.
func Default() *Config {
	return &Config{
		TrainingDir:   "training",
		ValidationDir: "validation",
		OutputDir:     "output",
		EncodingsPath: filepath.Join("output", "encodings.gob"),
		ModelsDir:     "models",
		Engine:        EngineDlib,
		PythonBin:     "python3",
		PythonWorker:  filepath.Join("python", "worker.py"),
		Model:         string(types.ModelHOG),
		Tolerance:     0.6,
		CameraDevice:  0,
		LogLevel:      "info",
		LogFormat:     "console",
	}
}

// Load builds the configuration. An explicit path must exist; with an empty path
// DefaultFile is used only if present. Environment variables override the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	envString("DETECTOR_TRAINING_DIR", &c.TrainingDir)
	envString("DETECTOR_VALIDATION_DIR", &c.ValidationDir)
	envString("DETECTOR_OUTPUT_DIR", &c.OutputDir)
	envString("DETECTOR_ENCODINGS", &c.EncodingsPath)
	envString("DETECTOR_MODELS_DIR", &c.ModelsDir)
	envString("DETECTOR_ENGINE", &c.Engine)
	envString("DETECTOR_PYTHON", &c.PythonBin)
	envString("DETECTOR_PYTHON_WORKER", &c.PythonWorker)
	envString("DETECTOR_MODEL", &c.Model)
	envString("DETECTOR_LOG_LEVEL", &c.LogLevel)
	envString("DETECTOR_LOG_FORMAT", &c.LogFormat)

	if s := os.Getenv("DETECTOR_TOLERANCE"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("DETECTOR_TOLERANCE: %w", err)
		}
		c.Tolerance = v
	}
	if s := os.Getenv("DETECTOR_CAMERA"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("DETECTOR_CAMERA: %w", err)
		}
		c.CameraDevice = v
	}

	if c.DatabaseURL == "" {
		c.DatabaseURL = databaseURLFromEnv()
	}
	return nil
}

func envString(key string, dst *string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

// databaseURLFromEnv prefers DATABASE_URL and otherwise assembles a URL from the
// POSTGRES_* variables. Without either the file store is used.
func databaseURLFromEnv() string {
	if u := os.Getenv("DATABASE_URL"); u != "" {
		return u
	}
	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		return ""
	}
	port := os.Getenv("POSTGRES_PORT")
	if port == "" {
		port = "5432"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
		os.Getenv("POSTGRES_USER"), os.Getenv("POSTGRES_PASSWORD"), host, port, os.Getenv("POSTGRES_DB"))
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	if _, err := types.ParseModel(c.Model); err != nil {
		return err
	}
	switch c.Engine {
	case EngineDlib, EnginePython:
	default:
		return fmt.Errorf("engine must be %q or %q, got %q", EngineDlib, EnginePython, c.Engine)
	}
	if c.Tolerance <= 0 || c.Tolerance > 1 {
		return fmt.Errorf("tolerance must be in (0, 1], got %g", c.Tolerance)
	}
	if c.CameraDevice < 0 {
		return fmt.Errorf("camera device must be >= 0, got %d", c.CameraDevice)
	}
	if c.EncodingsPath == "" {
		return errors.New("encodings path must not be empty")
	}
	return nil
}

// Dirs lists the directories created on startup.
func (c *Config) Dirs() []string {
	return []string{c.TrainingDir, c.ValidationDir, c.OutputDir}
}
