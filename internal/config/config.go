// Package config assembles the service configuration from defaults, an
// optional JSON or YAML file, environment variables and command line flags,
// in increasing order of priority, and validates the result.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// MemoryStorage as DBFileName keeps the dataset in process memory only.
const MemoryStorage = ":memory:"

// Config holds every setting of the service.
type Config struct {
	RunAddr             string        `env:"SERVER_ADDRESS" validate:"hostname_port"`
	LogLevel            string        `env:"LOG_LEVEL" validate:"loglevel"`
	DBFileName          string        `env:"FILE_STORAGE_PATH" validate:"filepath"`
	DatabaseDSN         string        `env:"DATABASE_DSN"`
	DBConnectionTimeout time.Duration `env:"DB_CONNECTION_TIMEOUT" validate:"gte=0"`
	DisableGzip         bool          `env:"DISABLE_GZIP"`
	ConfigFile          string        `env:"CONFIG"`
}

// fileConfig mirrors Config for the config file, where durations are written as strings like "5s".
type fileConfig struct {
	RunAddr             string `json:"server_address" yaml:"server_address"`
	LogLevel            string `json:"log_level" yaml:"log_level"`
	DBFileName          string `json:"file_storage_path" yaml:"file_storage_path"`
	DatabaseDSN         string `json:"database_dsn" yaml:"database_dsn"`
	DBConnectionTimeout string `json:"db_connection_timeout" yaml:"db_connection_timeout"`
	DisableGzip         bool   `json:"disable_gzip" yaml:"disable_gzip"`
}

var defaultConfig = Config{
	RunAddr:             ":3000",
	LogLevel:            "info",
	DBFileName:          "data.json",
	DatabaseDSN:         "",
	DBConnectionTimeout: 10 * time.Second,
	DisableGzip:         false,
}

var allowedLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
	"fatal": true,
}

func validateFilePath(fieldLevel validator.FieldLevel) bool {
	path := fieldLevel.Field().String()
	info, err := os.Stat(path)
	if err != nil {
		return os.IsNotExist(err)
	}

	return !info.IsDir()
}

func validateLogLevel(fieldLevel validator.FieldLevel) bool {
	return allowedLogLevels[fieldLevel.Field().String()]
}

func (c *Config) validate() error {
	validate := validator.New()

	err := validate.RegisterValidation("loglevel", validateLogLevel)
	if err != nil {
		return err
	}

	err = validate.RegisterValidation("filepath", validateFilePath)
	if err != nil {
		return err
	}

	return validate.Struct(c)
}

// applyDefaults fills zero-valued fields of values from defaults.
func applyDefaults(values *Config, defaults Config) {
	if values.RunAddr == "" {
		values.RunAddr = defaults.RunAddr
	}
	if values.LogLevel == "" {
		values.LogLevel = defaults.LogLevel
	}
	if values.DBFileName == "" {
		values.DBFileName = defaults.DBFileName
	}
	if values.DatabaseDSN == "" {
		values.DatabaseDSN = defaults.DatabaseDSN
	}
	if values.DBConnectionTimeout == 0 {
		values.DBConnectionTimeout = defaults.DBConnectionTimeout
	}
}

// override copies the non-zero fields of src over dst.
func override(dst *Config, src Config) {
	if src.RunAddr != "" {
		dst.RunAddr = src.RunAddr
	}
	if src.LogLevel != "" {
		dst.LogLevel = src.LogLevel
	}
	if src.DBFileName != "" {
		dst.DBFileName = src.DBFileName
	}
	if src.DatabaseDSN != "" {
		dst.DatabaseDSN = src.DatabaseDSN
	}
	if src.DBConnectionTimeout != 0 {
		dst.DBConnectionTimeout = src.DBConnectionTimeout
	}
	if src.DisableGzip {
		dst.DisableGzip = true
	}
	if src.ConfigFile != "" {
		dst.ConfigFile = src.ConfigFile
	}
}

func loadConfigFile(fileName string) (Config, error) {
	raw, err := os.ReadFile(fileName)
	if err != nil {
		return Config{}, err
	}

	var fromFile fileConfig
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &fromFile)
	default:
		err = json.Unmarshal(raw, &fromFile)
	}
	if err != nil {
		return Config{}, fmt.Errorf("in internal/config/config.go/loadConfigFile(): error while parsing %s: %w", fileName, err)
	}

	result := Config{
		RunAddr:     fromFile.RunAddr,
		LogLevel:    fromFile.LogLevel,
		DBFileName:  fromFile.DBFileName,
		DatabaseDSN: fromFile.DatabaseDSN,
		DisableGzip: fromFile.DisableGzip,
	}
	if fromFile.DBConnectionTimeout != "" {
		result.DBConnectionTimeout, err = time.ParseDuration(fromFile.DBConnectionTimeout)
		if err != nil {
			return Config{}, fmt.Errorf("in internal/config/config.go/loadConfigFile(): bad db_connection_timeout: %w", err)
		}
	}

	return result, nil
}

// parseFlags reads command line flags. Only flags that were actually passed
// end up non-zero in the result, so they can override the other sources.
func parseFlags(args []string) (Config, error) {
	var (
		fromFlags Config
		parsed    Config
	)
	flagSet := flag.NewFlagSet(filepath.Base(os.Args[0]), flag.ContinueOnError)
	flagSet.StringVar(&parsed.RunAddr, "a", defaultConfig.RunAddr, "address and port to run server")
	flagSet.StringVar(&parsed.LogLevel, "l", defaultConfig.LogLevel, "logger level")
	flagSet.StringVar(&parsed.DBFileName, "f", defaultConfig.DBFileName, "JSON file name with the dataset")
	flagSet.StringVar(&parsed.DatabaseDSN, "d", defaultConfig.DatabaseDSN, "PostgreSQL connection string; takes precedence over -f")
	flagSet.DurationVar(&parsed.DBConnectionTimeout, "t", defaultConfig.DBConnectionTimeout, "database connection timeout")
	flagSet.BoolVar(&parsed.DisableGzip, "no-gzip", false, "disable gzip compression of requests and responses")
	flagSet.StringVar(&parsed.ConfigFile, "c", "", "JSON or YAML configuration file")
	if err := flagSet.Parse(args); err != nil {
		return Config{}, err
	}

	flagSet.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "a":
			fromFlags.RunAddr = parsed.RunAddr
		case "l":
			fromFlags.LogLevel = parsed.LogLevel
		case "f":
			fromFlags.DBFileName = parsed.DBFileName
		case "d":
			fromFlags.DatabaseDSN = parsed.DatabaseDSN
		case "t":
			fromFlags.DBConnectionTimeout = parsed.DBConnectionTimeout
		case "no-gzip":
			fromFlags.DisableGzip = parsed.DisableGzip
		case "c":
			fromFlags.ConfigFile = parsed.ConfigFile
		}
	})

	return fromFlags, nil
}

type InitOption func(*initOptions)

type initOptions struct {
	disableFlagsParsing bool
}

func WithDisableFlagsParsing(disableFlagsParsing bool) InitOption {
	return func(options *initOptions) {
		options.disableFlagsParsing = disableFlagsParsing
	}
}

// New builds the configuration. Priority, lowest first: defaults, the file
// named by CONFIG or -c, environment (including a .env file), flags.
func New(optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{
		disableFlagsParsing: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("in internal/config/config.go/New(): error while `godotenv.Load()` calling: %w", err)
	}

	var fromFlags Config
	if !options.disableFlagsParsing {
		var err error
		fromFlags, err = parseFlags(os.Args[1:])
		if err != nil {
			return nil, err
		}
	}

	var fromEnv Config
	if err := env.Parse(&fromEnv); err != nil {
		return nil, err
	}

	configFile := fromEnv.ConfigFile
	if fromFlags.ConfigFile != "" {
		configFile = fromFlags.ConfigFile
	}

	values := &Config{}
	if configFile != "" {
		fromFile, err := loadConfigFile(configFile)
		if err != nil {
			return nil, err
		}
		override(values, fromFile)
	}
	override(values, fromEnv)
	override(values, fromFlags)
	applyDefaults(values, defaultConfig)
	values.ConfigFile = configFile

	if err := values.validate(); err != nil {
		return nil, err
	}

	return values, nil
}
