package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// BaseConfig contains relay's server configuration.
// Applications can embed this in their own config structs to inherit relay's settings.
type BaseConfig struct {
	HTTPPort        int           `toml:"http_port" yaml:"http_port" env:"HTTP_PORT"`
	HealthPort      int           `toml:"health_port" yaml:"health_port" env:"HEALTH_PORT"`
	MetricsPort     int           `toml:"metrics_port" yaml:"metrics_port" env:"METRICS_PORT"`
	LogLevel        string        `toml:"log_level" yaml:"log_level" env:"LOG_LEVEL"`
	LogFormat       string        `toml:"log_format" yaml:"log_format" env:"LOG_FORMAT"`
	Environment     string        `toml:"environment" yaml:"environment" env:"ENVIRONMENT"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout" yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// ApplyDefaults fills zero-valued fields with relay's defaults.
func (b *BaseConfig) ApplyDefaults() {
	if b.HTTPPort == 0 {
		b.HTTPPort = 8080
	}
	if b.HealthPort == 0 {
		b.HealthPort = 9090
	}
	if b.LogLevel == "" {
		b.LogLevel = "info"
	}
	if b.LogFormat == "" {
		b.LogFormat = "json"
	}
	if b.ShutdownTimeout == 0 {
		b.ShutdownTimeout = 30 * time.Second
	}
}

// GetHTTPPort returns the HTTP port to use, checking Nomad dynamic port allocation first.
// If NOMAD_PORT_http is set and valid, it returns that value.
// Otherwise, it falls back to the configured HTTPPort value.
func (b *BaseConfig) GetHTTPPort() int {
	return resolvePort("http", b.HTTPPort)
}

// GetHealthPort returns the health port to use, checking Nomad dynamic port allocation first.
// If NOMAD_PORT_health is set and valid, it returns that value.
// Otherwise, it falls back to the configured HealthPort value.
func (b *BaseConfig) GetHealthPort() int {
	return resolvePort("health", b.HealthPort)
}

// GetMetricsPort returns the metrics port to use, checking Nomad dynamic port allocation first.
// If NOMAD_PORT_metrics is set and valid, it returns that value.
// Otherwise, it falls back to the configured MetricsPort value.
func (b *BaseConfig) GetMetricsPort() int {
	return resolvePort("metrics", b.MetricsPort)
}

// resolvePort checks for Nomad dynamic port allocation and falls back to configured value.
// label is the port label (e.g., "http", "health", "metrics")
// fallback is the value from the config to use if Nomad env var is not set
func resolvePort(label string, fallback int) int {
	envVar := "NOMAD_PORT_" + label
	nomadPort := os.Getenv(envVar)

	if nomadPort == "" {
		// No Nomad env var, use config value
		return fallback
	}

	// An unparsable Nomad port falls back to the configured one
	port, err := strconv.Atoi(nomadPort)
	if err != nil || port <= 0 {
		return fallback
	}

	return port
}

// Loader handles loading configuration from TOML or YAML files and environment variables.
type Loader struct {
	configPath string
}

// NewLoader creates a new config loader for the specified file path.
// Paths ending in .yaml or .yml are read as YAML, anything else as TOML.
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath: configPath,
	}
}

// Load reads the configuration file and unmarshals it into the provided config struct.
// A missing file is not an error.
// It then applies environment variable overrides for any fields with an `env` tag.
// The config parameter must be a pointer to a struct.
func (l *Loader) Load(config interface{}) error {
	if config == nil {
		return fmt.Errorf("config cannot be nil")
	}

	// Ensure config is a pointer to a struct
	rv := reflect.ValueOf(config)
	if rv.Kind() != reflect.Ptr {
		return fmt.Errorf("config must be a pointer to a struct, got %T", config)
	}
	if rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("config must be a pointer to a struct, got pointer to %v", rv.Elem().Kind())
	}

	if err := l.decodeFile(config); err != nil {
		// File doesn't exist, continue with zero values and env overrides
		if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	// Apply environment variable overrides
	if err := l.applyEnvOverrides(config); err != nil {
		return fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	return nil
}

func (l *Loader) decodeFile(config interface{}) error {
	switch strings.ToLower(filepath.Ext(l.configPath)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(l.configPath)
		if err != nil {
			return err
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return fmt.Errorf("failed to decode YAML file %s: %w", l.configPath, err)
		}
		return nil
	default:
		if _, err := toml.DecodeFile(l.configPath, config); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return err
			}
			return fmt.Errorf("failed to decode TOML file %s: %w", l.configPath, err)
		}
		return nil
	}
}

// applyEnvOverrides walks through the config struct using reflection and applies
// environment variable overrides for any field with an `env` tag.
func (l *Loader) applyEnvOverrides(config interface{}) error {
	return applyEnvOverridesRecursive(reflect.ValueOf(config).Elem())
}

// applyEnvOverridesRecursive recursively walks through struct fields and applies env overrides.
func applyEnvOverridesRecursive(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		// Skip unexported fields
		if !field.CanSet() {
			continue
		}

		// If the field is a struct, recurse into it
		if field.Kind() == reflect.Struct {
			if err := applyEnvOverridesRecursive(field); err != nil {
				return err
			}
			continue
		}

		// Check for env tag
		envTag := fieldType.Tag.Get("env")
		if envTag == "" {
			continue
		}

		// Get environment variable
		envValue := os.Getenv(envTag)
		if envValue == "" {
			continue
		}

		// Apply the environment variable based on field type
		if err := setFieldFromString(field, envValue, fieldType.Name); err != nil {
			return fmt.Errorf("failed to set field %s from env %s: %w", fieldType.Name, envTag, err)
		}
	}

	return nil
}

var durationType = reflect.TypeOf(time.Duration(0))

// setFieldFromString sets a struct field value from a string based on the field's type.
// time.Duration fields accept Go duration strings such as "15s".
func setFieldFromString(field reflect.Value, value string, fieldName string) error {
	if field.Type() == durationType {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("cannot parse %q as duration for field %s: %w", value, fieldName, err)
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
		return nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		intVal, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("cannot parse %q as int for field %s: %w", value, fieldName, err)
		}
		field.SetInt(intVal)
		return nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		uintVal, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return fmt.Errorf("cannot parse %q as uint for field %s: %w", value, fieldName, err)
		}
		field.SetUint(uintVal)
		return nil

	case reflect.Bool:
		boolVal, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("cannot parse %q as bool for field %s: %w", value, fieldName, err)
		}
		field.SetBool(boolVal)
		return nil

	case reflect.Float32, reflect.Float64:
		floatVal, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("cannot parse %q as float for field %s: %w", value, fieldName, err)
		}
		field.SetFloat(floatVal)
		return nil

	default:
		return fmt.Errorf("unsupported field type %v for field %s", field.Kind(), fieldName)
	}
}
