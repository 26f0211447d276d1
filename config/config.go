// Package config loads the service configuration from YAML, .env files and the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/nvr-ai/roi-detect/detector"
	"github.com/nvr-ai/roi-detect/inference"
	"github.com/nvr-ai/roi-detect/inference/providers"
	"github.com/nvr-ai/roi-detect/logging"
	"github.com/nvr-ai/roi-detect/models"
	"github.com/nvr-ai/roi-detect/models/model"
	"github.com/nvr-ai/roi-detect/models/preprocess"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ROIDETECT_"

// ResponseMode selects the body of a successful /predict response.
type ResponseMode string

const (
	// ResponseImage returns the annotated region as image/jpeg.
	ResponseImage ResponseMode = "image"
	// ResponseJSON returns counts, detections and a base64 JPEG.
	ResponseJSON ResponseMode = "json"
)

// StoreDriver selects the records backend.
type StoreDriver string

const (
	StoreDisabled StoreDriver = ""
	StorePostgres StoreDriver = "postgres"
	StoreSQLite   StoreDriver = "sqlite"
)

// Server configures the HTTP surface.
type Server struct {
	Addr            string        `yaml:"addr"`
	ResponseMode    ResponseMode  `yaml:"response_mode"`
	MaxUploadMB     int           `yaml:"max_upload_mb"`
	JPEGQuality     int           `yaml:"jpeg_quality"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Model configures the model file, the engine running it and the input transform.
type Model struct {
	model.Config `yaml:",inline"`

	Backend       inference.EngineType  `yaml:"backend"`
	Provider      providers.Config      `yaml:"provider"`
	Policy        preprocess.Policy     `yaml:"policy"`
	ColorOrder    preprocess.ColorOrder `yaml:"color_order"`
	SharedLibrary string                `yaml:"shared_library"`
}

// Store configures the records backend.
type Store struct {
	Driver StoreDriver `yaml:"driver"`
	DSN    string      `yaml:"dsn"`
	// Channel is the Postgres LISTEN channel.
	Channel string `yaml:"channel"`
}

// Config is the complete service configuration.
type Config struct {
	Server     Server          `yaml:"server"`
	Model      Model           `yaml:"model"`
	Thresholds detector.Config `yaml:"thresholds"`
	Store      Store           `yaml:"store"`
	Log        logging.Config  `yaml:"log"`
}

// Default returns the configuration of the deployed service.
func Default() Config {
	pre := preprocess.DefaultConfig()
	return Config{
		Server: Server{
			Addr:            ":5000",
			ResponseMode:    ResponseImage,
			MaxUploadMB:     32,
			JPEGQuality:     90,
			ShutdownTimeout: 10 * time.Second,
		},
		Model: Model{
			Config:     model.DefaultConfig(),
			Backend:    inference.EngineONNXRuntime,
			Provider:   providers.DefaultConfig(),
			Policy:     pre.Policy,
			ColorOrder: pre.ColorOrder,
		},
		Thresholds: detector.DefaultConfig(),
		Store:      Store{Channel: "emails_channel"},
		Log:        logging.DefaultConfig(),
	}
}

// Load builds the configuration.
//
// Defaults are overlaid with the YAML file at path (skipped when path is empty), then with
// environment variables. A .env file in the working directory is loaded first when present;
// variables already set in the process win over it.
//
// Arguments:
//   - path: The YAML file, may be empty.
//
// Returns:
//   - Config: The validated configuration.
//   - error: An error if a file cannot be read or the result is invalid.
func Load(path string) (Config, error) {
	cfg := Default()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return cfg, errors.Wrap(err, "loading .env")
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, errors.Wrapf(err, "reading config %s", path)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, errors.Wrapf(err, "parsing config %s", path)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}

	return cfg, cfg.Validate()
}

// applyEnv overrides fields from ROIDETECT_* variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	var err error

	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(EnvPrefix + key); ok {
			n, perr := strconv.Atoi(v)
			if perr != nil {
				err = multierr.Append(err, errors.Errorf("%s%s: %q is not an integer", EnvPrefix, key, v))
				return
			}
			*dst = n
		}
	}
	float := func(key string, dst *float32) {
		if v, ok := lookup(EnvPrefix + key); ok {
			f, perr := strconv.ParseFloat(v, 32)
			if perr != nil {
				err = multierr.Append(err, errors.Errorf("%s%s: %q is not a number", EnvPrefix, key, v))
				return
			}
			*dst = float32(f)
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(EnvPrefix + key); ok {
			b, perr := strconv.ParseBool(v)
			if perr != nil {
				err = multierr.Append(err, errors.Errorf("%s%s: %q is not a boolean", EnvPrefix, key, v))
				return
			}
			*dst = b
		}
	}

	str("SERVER_ADDR", &c.Server.Addr)
	str("SERVER_RESPONSE_MODE", (*string)(&c.Server.ResponseMode))
	integer("SERVER_MAX_UPLOAD_MB", &c.Server.MaxUploadMB)
	integer("SERVER_JPEG_QUALITY", &c.Server.JPEGQuality)

	str("MODEL_PATH", &c.Model.Path)
	str("MODEL_BACKEND", (*string)(&c.Model.Backend))
	str("MODEL_PROVIDER", (*string)(&c.Model.Provider.Backend))
	str("MODEL_POLICY", (*string)(&c.Model.Policy))
	str("MODEL_SHARED_LIBRARY", &c.Model.SharedLibrary)
	size := 0
	integer("MODEL_INPUT_SIZE", &size)
	if size > 0 {
		c.Model.InputWidth, c.Model.InputHeight = size, size
	}
	if v, ok := lookup(EnvPrefix + "MODEL_CLASSES"); ok {
		c.Model.Classes = splitList(v)
	}

	float("THRESHOLDS_PREFILTER", &c.Thresholds.Prefilter)
	float("THRESHOLDS_SCORE", &c.Thresholds.NMS.ScoreThreshold)
	float("THRESHOLDS_IOU", &c.Thresholds.NMS.IoUThreshold)
	boolean("THRESHOLDS_CLASS_AWARE", &c.Thresholds.NMS.ClassAware)

	str("STORE_DRIVER", (*string)(&c.Store.Driver))
	str("STORE_DSN", &c.Store.DSN)
	str("STORE_CHANNEL", &c.Store.Channel)

	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	str("LOG_FILE", &c.Log.File)

	return err
}

// Validate checks every section and reports all problems at once.
func (c Config) Validate() error {
	var err error

	switch c.Server.ResponseMode {
	case ResponseImage, ResponseJSON:
	default:
		err = multierr.Append(err, errors.Errorf("unknown response mode %q", c.Server.ResponseMode))
	}
	if c.Server.MaxUploadMB <= 0 {
		err = multierr.Append(err, errors.New("server.max_upload_mb must be positive"))
	}

	if _, perr := inference.ParseEngineType(string(c.Model.Backend)); perr != nil {
		err = multierr.Append(err, perr)
	}
	err = multierr.Append(err, c.Model.Config.Validate())
	err = multierr.Append(err, c.Model.Provider.Validate())
	err = multierr.Append(err, c.Preprocess().Validate())
	if _, cerr := c.Classes(); cerr != nil {
		err = multierr.Append(err, cerr)
	}

	err = multierr.Append(err, c.Thresholds.Validate())

	switch c.Store.Driver {
	case StoreDisabled:
	case StorePostgres, StoreSQLite:
		if c.Store.DSN == "" {
			err = multierr.Append(err, errors.Errorf("store.dsn is required for driver %q", c.Store.Driver))
		}
	default:
		err = multierr.Append(err, errors.Errorf("unknown store driver %q", c.Store.Driver))
	}

	return err
}

// Preprocess returns the transform configuration derived from the model section.
func (c Config) Preprocess() preprocess.Config {
	pre := preprocess.DefaultConfig()
	pre.InputWidth = c.Model.InputWidth
	pre.InputHeight = c.Model.InputHeight
	if c.Model.Policy != "" {
		pre.Policy = c.Model.Policy
	}
	if c.Model.ColorOrder != "" {
		pre.ColorOrder = c.Model.ColorOrder
	}
	return pre
}

// Engine returns the inference engine configuration.
func (c Config) Engine() inference.Config {
	return inference.Config{
		Backend:       c.Model.Backend,
		Model:         c.Model.Config,
		Provider:      c.Model.Provider,
		SharedLibrary: c.Model.SharedLibrary,
	}
}

// Classes resolves the class list of the model.
func (c Config) Classes() (*models.OutputClassSet, error) {
	return c.Model.ClassNames()
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
