// Package config loads the host process configuration. Values come from,
// in increasing priority: built-in defaults, an optional config.yaml, .env
// files, environment variables (VOZFLOW_ prefix), and explicit overrides
// from command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DefaultBaseURL     = "https://api.groq.com/openai/v1/"
	DefaultSTTModel    = "whisper-large-v3"
	DefaultRefineModel = "llama-3.3-70b-versatile"
	DefaultBridgeAddr  = "127.0.0.1:47813"

	CaptureOwnerHost    = "host"
	CaptureOwnerSurface = "surface"
)

type Overlay struct {
	Width     int `mapstructure:"width" validate:"min=1"`
	Height    int `mapstructure:"height" validate:"min=1"`
	TopOffset int `mapstructure:"top_offset" validate:"min=0"`
}

type Config struct {
	APIKey       string        `mapstructure:"api_key"`
	BaseURL      string        `mapstructure:"base_url" validate:"required,url"`
	STTModel     string        `mapstructure:"stt_model" validate:"required"`
	RefineModel  string        `mapstructure:"refine_model" validate:"required"`
	Temperature  float64       `mapstructure:"temperature" validate:"gte=0,lte=2"`
	Language     string        `mapstructure:"language" validate:"omitempty,len=2"`
	Timeout      time.Duration `mapstructure:"timeout" validate:"min=1s"`
	Format       string        `mapstructure:"format" validate:"oneof=flac wav"`
	BridgeAddr   string        `mapstructure:"bridge_addr" validate:"required,hostname_port"`
	CaptureOwner string        `mapstructure:"capture_owner" validate:"oneof=host surface"`
	HistoryURL   string        `mapstructure:"history_url" validate:"omitempty,url"`
	Paste        bool          `mapstructure:"paste"`
	Overlay      Overlay       `mapstructure:"overlay"`
}

type Options struct {
	// Dir holds config.yaml and an optional .env. Empty means DefaultDir.
	Dir string
	// File overrides <Dir>/config.yaml.
	File string
	// Overrides are applied last, keyed like the yaml file ("format",
	// "overlay.width", ...).
	Overrides map[string]any
}

func DefaultDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "vozflow"), nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_key", "")
	v.SetDefault("base_url", DefaultBaseURL)
	v.SetDefault("stt_model", DefaultSTTModel)
	v.SetDefault("refine_model", DefaultRefineModel)
	v.SetDefault("temperature", 0.1)
	v.SetDefault("language", "")
	v.SetDefault("timeout", 60*time.Second)
	v.SetDefault("format", "flac")
	v.SetDefault("bridge_addr", DefaultBridgeAddr)
	v.SetDefault("capture_owner", CaptureOwnerHost)
	v.SetDefault("history_url", "")
	v.SetDefault("paste", true)
	v.SetDefault("overlay.width", 320)
	v.SetDefault("overlay.height", 70)
	v.SetDefault("overlay.top_offset", 40)
}

func Load(opts Options) (*Config, error) {
	dir := opts.Dir
	if dir == "" {
		d, err := DefaultDir()
		if err != nil {
			return nil, fmt.Errorf("resolve config dir: %w", err)
		}
		dir = d
	}

	loadEnvFiles(".env", filepath.Join(dir, ".env"))

	v := viper.New()
	setDefaults(v)

	file := opts.File
	if file == "" {
		file = filepath.Join(dir, "config.yaml")
	}
	v.SetConfigFile(file)
	if err := v.ReadInConfig(); err != nil && !isNotExist(err) {
		return nil, fmt.Errorf("read config %s: %w", file, err)
	}

	v.SetEnvPrefix("VOZFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if v.GetString("api_key") == "" {
		if key := os.Getenv("GROQ_API_KEY"); key != "" {
			v.Set("api_key", key)
		}
	}

	for k, val := range opts.Overrides {
		v.Set(k, val)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// loadEnvFiles never overrides variables already present in the process
// environment. Missing files are skipped.
func loadEnvFiles(paths ...string) {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		_ = godotenv.Load(p)
	}
}

func isNotExist(err error) bool {
	var nf viper.ConfigFileNotFoundError
	return errors.As(err, &nf) || errors.Is(err, os.ErrNotExist)
}
