package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Database   DatabaseConfig
	Server     ServerConfig
	Storage    StorageConfig
	Processing ProcessingConfig
	Tuning     TuningConfig
}

// DatabaseConfig holds database configuration; an empty URL disables reading history
type DatabaseConfig struct {
	URL string
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           string
	Env            string
	AllowedOrigins []string
	MaxUploadBytes int64
}

// StorageConfig holds clip archive configuration; an empty backend disables archival
type StorageConfig struct {
	Backend         string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Endpoint        string
	UseSSL          bool
}

// ProcessingConfig holds decoder and pitch estimator configuration
type ProcessingConfig struct {
	Estimator        string
	Reducer          string
	MinConfidence    float64
	PythonCmd        string
	CrepeScript      string
	FFmpegBin        string
	TargetSampleRate int
	EstimatorTimeout time.Duration
}

// TuningConfig holds note matcher configuration
type TuningConfig struct {
	ToleranceCents float64
	ReferenceA4    float64
}

var keys = []string{
	"DATABASE_URL",
	"PORT",
	"ENVIRONMENT",
	"ALLOWED_ORIGINS",
	"MAX_UPLOAD_BYTES",
	"STORAGE_BACKEND",
	"AWS_REGION",
	"AWS_ACCESS_KEY_ID",
	"AWS_SECRET_ACCESS_KEY",
	"S3_BUCKET",
	"S3_ENDPOINT",
	"S3_USE_SSL",
	"ESTIMATOR",
	"REDUCER",
	"MIN_CONFIDENCE",
	"PYTHON_CMD",
	"CREPE_SCRIPT",
	"FFMPEG_BIN",
	"TARGET_SAMPLE_RATE",
	"ESTIMATOR_TIMEOUT",
	"TUNING_TOLERANCE_CENTS",
	"REFERENCE_A4",
}

// Load loads configuration from environment variables and .env files
func Load() (*Config, error) {
	return load(viper.New(), ".")
}

func load(v *viper.Viper, configPath string) (*Config, error) {
	// Set defaults
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENVIRONMENT", "dev")
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000")
	v.SetDefault("MAX_UPLOAD_BYTES", 10<<20)
	v.SetDefault("STORAGE_BACKEND", "")
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("AWS_ACCESS_KEY_ID", "")
	v.SetDefault("AWS_SECRET_ACCESS_KEY", "")
	v.SetDefault("S3_BUCKET", "tunecheck-clips")
	v.SetDefault("S3_ENDPOINT", "")
	v.SetDefault("S3_USE_SSL", false)
	v.SetDefault("ESTIMATOR", "yin")
	v.SetDefault("REDUCER", "voiced")
	v.SetDefault("MIN_CONFIDENCE", 0.5)
	v.SetDefault("PYTHON_CMD", "python3")
	v.SetDefault("CREPE_SCRIPT", "scripts/crepe_predict.py")
	v.SetDefault("FFMPEG_BIN", "ffmpeg")
	v.SetDefault("TARGET_SAMPLE_RATE", 16000)
	v.SetDefault("ESTIMATOR_TIMEOUT", "30s")
	v.SetDefault("TUNING_TOLERANCE_CENTS", 10.0)
	v.SetDefault("REFERENCE_A4", 0.0)

	// Environment variables override .env file values
	v.AutomaticEnv()
	for _, key := range keys {
		_ = v.BindEnv(key)
	}

	// Read .env file for the current environment (ignore error if file doesn't exist)
	env := v.GetString("ENVIRONMENT")
	if env == "" {
		env = "dev"
	}
	v.SetConfigName(".env." + env)
	v.SetConfigType("env")
	v.AddConfigPath(configPath)
	_ = v.ReadInConfig()

	var config Config
	config.Database.URL = v.GetString("DATABASE_URL")
	config.Server.Port = v.GetString("PORT")
	config.Server.Env = env
	config.Server.AllowedOrigins = splitList(v.GetString("ALLOWED_ORIGINS"))
	config.Server.MaxUploadBytes = v.GetInt64("MAX_UPLOAD_BYTES")
	config.Storage.Backend = strings.ToLower(v.GetString("STORAGE_BACKEND"))
	config.Storage.Region = v.GetString("AWS_REGION")
	config.Storage.AccessKeyID = v.GetString("AWS_ACCESS_KEY_ID")
	config.Storage.SecretAccessKey = v.GetString("AWS_SECRET_ACCESS_KEY")
	config.Storage.Bucket = v.GetString("S3_BUCKET")
	config.Storage.Endpoint = v.GetString("S3_ENDPOINT")
	config.Storage.UseSSL = v.GetBool("S3_USE_SSL")
	config.Processing.Estimator = strings.ToLower(v.GetString("ESTIMATOR"))
	config.Processing.Reducer = strings.ToLower(v.GetString("REDUCER"))
	config.Processing.MinConfidence = v.GetFloat64("MIN_CONFIDENCE")
	config.Processing.PythonCmd = v.GetString("PYTHON_CMD")
	config.Processing.CrepeScript = v.GetString("CREPE_SCRIPT")
	config.Processing.FFmpegBin = v.GetString("FFMPEG_BIN")
	config.Processing.TargetSampleRate = v.GetInt("TARGET_SAMPLE_RATE")
	config.Processing.EstimatorTimeout = v.GetDuration("ESTIMATOR_TIMEOUT")
	config.Tuning.ToleranceCents = v.GetFloat64("TUNING_TOLERANCE_CENTS")
	config.Tuning.ReferenceA4 = v.GetFloat64("REFERENCE_A4")

	if err := config.validate(); err != nil {
		return nil, err
	}

	log.Debug().
		Str("environment", config.Server.Env).
		Strs("allowed_origins", config.Server.AllowedOrigins).
		Str("storage_backend", config.Storage.Backend).
		Str("estimator", config.Processing.Estimator).
		Bool("history", config.Database.URL != "").
		Msg("Configuration loaded")

	return &config, nil
}

func (c *Config) validate() error {
	switch c.Processing.Estimator {
	case "yin", "crepe":
	default:
		return fmt.Errorf("ESTIMATOR must be yin or crepe, got %q", c.Processing.Estimator)
	}
	switch c.Processing.Reducer {
	case "voiced", "mean":
	default:
		return fmt.Errorf("REDUCER must be voiced or mean, got %q", c.Processing.Reducer)
	}
	switch c.Storage.Backend {
	case "", "s3", "minio":
	default:
		return fmt.Errorf("STORAGE_BACKEND must be s3, minio or empty, got %q", c.Storage.Backend)
	}
	if c.Processing.TargetSampleRate <= 0 {
		return fmt.Errorf("TARGET_SAMPLE_RATE must be positive, got %d", c.Processing.TargetSampleRate)
	}
	if c.Processing.EstimatorTimeout <= 0 {
		return fmt.Errorf("ESTIMATOR_TIMEOUT must be positive, got %s", c.Processing.EstimatorTimeout)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", c.Server.MaxUploadBytes)
	}
	if c.Tuning.ToleranceCents <= 0 {
		return fmt.Errorf("TUNING_TOLERANCE_CENTS must be positive, got %g", c.Tuning.ToleranceCents)
	}
	if c.Tuning.ReferenceA4 < 0 {
		return fmt.Errorf("REFERENCE_A4 must not be negative, got %g", c.Tuning.ReferenceA4)
	}
	return nil
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
