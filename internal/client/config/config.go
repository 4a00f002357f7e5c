package config

import (
	"os"
	"time"
)

// Storage providers understood by the upload pipeline.
const (
	StorageCloudinary = "cloudinary"
	StorageS3         = "s3"
)

// Credential store backends.
const (
	CredentialBackendSQLite = "sqlite"
	CredentialBackendFile   = "file"
)

// Config holds runtime settings for the mediax client.
//
// Timeouts bound each network phase separately: RequestTimeout applies to
// every backend call, TransferTimeout to the direct storage upload,
// CommitTimeout to the metadata registration that follows it and
// StreamConnectTimeout to establishing the live sync stream (the stream
// itself stays open without a deadline).
type Config struct {
	APIBaseURL string

	StorageProvider string
	StorageBaseURL  string
	CloudName       string
	UploadPreset    string
	UploadFolder    string

	S3Bucket   string
	S3Region   string
	S3Endpoint string

	// Static S3 keys; only read from the environment. When empty the AWS
	// default credential chain is used.
	S3AccessKey string
	S3SecretKey string

	DBPath            string
	CredentialBackend string
	CredentialFile    string

	RequestTimeout       time.Duration
	TransferTimeout      time.Duration
	CommitTimeout        time.Duration
	StreamConnectTimeout time.Duration

	UploadConcurrency    int
	RevertOnLoginFailure bool
	Tracing              bool
	// MetricsAddr, when set, serves Prometheus metrics on that address.
	MetricsAddr string

	LogLevel  string
	LogFormat string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "http://localhost:5001/api"

	c.StorageProvider = StorageCloudinary
	c.StorageBaseURL = "https://api.cloudinary.com/v1_1"
	c.UploadFolder = "mediax/videos"
	c.S3Region = "us-east-1"

	c.DBPath = "mediax.db"
	c.CredentialBackend = CredentialBackendSQLite
	c.CredentialFile = "mediax-credential.json"

	c.RequestTimeout = 30 * time.Second
	c.TransferTimeout = 30 * time.Minute
	c.CommitTimeout = 30 * time.Second
	c.StreamConnectTimeout = 15 * time.Second

	c.UploadConcurrency = 2

	c.LogLevel = "info"
	c.LogFormat = "text"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if requested), the environment and command-line flags. Later sources
// take precedence over earlier ones.
func LoadConfig() *Config {
	return load(os.Args[1:])
}

func load(args []string) *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg, args)
	parseEnv(cfg)
	parseFlags(cfg, args)
	return cfg
}
