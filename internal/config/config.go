package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "ANIMAL"

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// DefaultAllowedOrigins are the development and deployment frontends allowed
// to call the API from a browser.
var DefaultAllowedOrigins = []string{
	"http://localhost:3000",
	"http://localhost:3001",
	"https://*.vercel.app",
	"https://localhost:3000",
}

// Config holds all service configuration.
type Config struct {
	Root            string   `mapstructure:"root"`
	Host            string   `mapstructure:"host"`
	Port            int      `mapstructure:"port"`
	Environment     string   `mapstructure:"environment"`
	ModelPath       string   `mapstructure:"model_path"`
	LabelsPath      string   `mapstructure:"labels_path"`
	ONNXLibraryPath string   `mapstructure:"onnx_library_path"`
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	MaxUploadBytes  int64    `mapstructure:"max_upload_bytes"`
	LogLevel        string   `mapstructure:"log_level"`
	LogFile         string   `mapstructure:"log_file"`
	MetricsEnabled  bool     `mapstructure:"metrics_enabled"`
}

// New returns a viper instance carrying the defaults and environment
// bindings. Callers bind command flags into it before calling Load.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault("root", "")
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 8000)
	v.SetDefault("environment", EnvDevelopment)
	v.SetDefault("model_path", filepath.Join("models", "animal_model.onnx"))
	v.SetDefault("labels_path", filepath.Join("utils", "labels.json"))
	v.SetDefault("onnx_library_path", "")
	v.SetDefault("allowed_origins", DefaultAllowedOrigins)
	v.SetDefault("max_upload_bytes", 10<<20)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("metrics_enabled", true)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(`-`, `_`, `.`, `_`))
	v.AutomaticEnv()

	// PORT is the conventional name used by hosting platforms.
	_ = v.BindEnv("port", "PORT", envPrefix+"_PORT")

	return v
}

// Load reads the optional .env and config files and unmarshals the result.
// Relative model and label paths are resolved against Root, which defaults
// to the working directory.
func Load(v *viper.Viper) (*Config, error) {
	envFile := v.GetString("env_file")
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	}

	root := v.GetString("root")
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		root = wd
	}

	if configFile := v.GetString("config_file"); configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigType("yaml")
		v.SetConfigName("config")
		v.AddConfigPath(root)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	cfg.Root = root
	cfg.ModelPath = resolve(root, cfg.ModelPath)
	cfg.LabelsPath = resolve(root, cfg.LabelsPath)
	if cfg.ONNXLibraryPath != "" {
		cfg.ONNXLibraryPath = resolve(root, cfg.ONNXLibraryPath)
	}

	return cfg, nil
}

// Validate checks value ranges. Missing model or label files are not
// validation errors: they put the service into mock mode instead.
func (c *Config) Validate() error {
	var errs []error

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port must be in 1..65535, got %d", c.Port))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, fmt.Errorf("max_upload_bytes must be positive, got %d", c.MaxUploadBytes))
	}
	switch c.Environment {
	case EnvDevelopment, EnvProduction, EnvTest:
	default:
		errs = append(errs, fmt.Errorf("environment must be one of development, production, test, got %q", c.Environment))
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level must be one of debug, info, warn, error, got %q", c.LogLevel))
	}

	return errors.Join(errs...)
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func resolve(root, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}
