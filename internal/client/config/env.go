package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"time"

	"github.com/joeshaw/envdecode"
)

// EnvConfig mirrors the settings that may come from the environment.
// Empty values leave the previously loaded setting untouched.
type EnvConfig struct {
	APIBaseURL      string        `env:"MEDIAX_API_BASE_URL"`
	StorageProvider string        `env:"MEDIAX_STORAGE_PROVIDER"`
	StorageBaseURL  string        `env:"MEDIAX_STORAGE_BASE_URL"`
	CloudName       string        `env:"MEDIAX_CLOUD_NAME"`
	UploadPreset    string        `env:"MEDIAX_UPLOAD_PRESET"`
	UploadFolder    string        `env:"MEDIAX_UPLOAD_FOLDER"`
	S3Bucket        string        `env:"MEDIAX_S3_BUCKET"`
	S3Region        string        `env:"MEDIAX_S3_REGION"`
	S3Endpoint      string        `env:"MEDIAX_S3_ENDPOINT"`
	S3AccessKey     string        `env:"MEDIAX_S3_ACCESS_KEY"`
	S3SecretKey     string        `env:"MEDIAX_S3_SECRET_KEY"`
	DBPath          string        `env:"MEDIAX_DB_PATH"`
	RequestTimeout  time.Duration `env:"MEDIAX_REQUEST_TIMEOUT"`
	TransferTimeout time.Duration `env:"MEDIAX_TRANSFER_TIMEOUT"`
	MetricsAddr     string        `env:"MEDIAX_METRICS_ADDR"`
	LogLevel        string        `env:"MEDIAX_LOG_LEVEL"`
	LogFormat       string        `env:"MEDIAX_LOG_FORMAT"`
}

// parseEnv overlays cfg with MEDIAX_* environment variables.
// Panics on malformed values (e.g. an unparsable duration).
func parseEnv(cfg *Config) {
	if err := checkDurations(); err != nil {
		panic(err)
	}

	var ec EnvConfig
	if err := envdecode.Decode(&ec); err != nil {
		if errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
			return
		}
		panic(err)
	}

	overlay := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	overlay(&cfg.APIBaseURL, ec.APIBaseURL)
	overlay(&cfg.StorageProvider, ec.StorageProvider)
	overlay(&cfg.StorageBaseURL, ec.StorageBaseURL)
	overlay(&cfg.CloudName, ec.CloudName)
	overlay(&cfg.UploadPreset, ec.UploadPreset)
	overlay(&cfg.UploadFolder, ec.UploadFolder)
	overlay(&cfg.S3Bucket, ec.S3Bucket)
	overlay(&cfg.S3Region, ec.S3Region)
	overlay(&cfg.S3Endpoint, ec.S3Endpoint)
	overlay(&cfg.S3AccessKey, ec.S3AccessKey)
	overlay(&cfg.S3SecretKey, ec.S3SecretKey)
	overlay(&cfg.DBPath, ec.DBPath)
	overlay(&cfg.MetricsAddr, ec.MetricsAddr)
	overlay(&cfg.LogLevel, ec.LogLevel)
	overlay(&cfg.LogFormat, ec.LogFormat)

	if ec.RequestTimeout > 0 {
		cfg.RequestTimeout = ec.RequestTimeout
	}
	if ec.TransferTimeout > 0 {
		cfg.TransferTimeout = ec.TransferTimeout
	}
}

// checkDurations rejects unparsable duration variables, which envdecode
// would otherwise skip without an error.
func checkDurations() error {
	durationType := reflect.TypeOf(time.Duration(0))
	t := reflect.TypeOf(EnvConfig{})
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Type != durationType {
			continue
		}
		name := f.Tag.Get("env")
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}
