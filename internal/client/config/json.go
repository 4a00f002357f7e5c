package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/mediax/internal/flagx"
	"github.com/dmitrijs2005/mediax/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Only fields
// present in the file are copied over; absent ones keep their prior value.
type JsonConfig struct {
	APIBaseURL *string `json:"api_base_url"`

	StorageProvider *string `json:"storage_provider"`
	StorageBaseURL  *string `json:"storage_base_url"`
	CloudName       *string `json:"cloud_name"`
	UploadPreset    *string `json:"upload_preset"`
	UploadFolder    *string `json:"upload_folder"`

	S3Bucket   *string `json:"s3_bucket"`
	S3Region   *string `json:"s3_region"`
	S3Endpoint *string `json:"s3_endpoint"`

	DBPath            *string `json:"db_path"`
	CredentialBackend *string `json:"credential_backend"`
	CredentialFile    *string `json:"credential_file"`

	RequestTimeout       *timex.Duration `json:"request_timeout"`
	TransferTimeout      *timex.Duration `json:"transfer_timeout"`
	CommitTimeout        *timex.Duration `json:"commit_timeout"`
	StreamConnectTimeout *timex.Duration `json:"stream_connect_timeout"`

	UploadConcurrency    *int  `json:"upload_concurrency"`
	RevertOnLoginFailure *bool `json:"revert_on_login_failure"`
	Tracing              *bool `json:"tracing"`

	MetricsAddr *string `json:"metrics_addr"`

	LogLevel  *string `json:"log_level"`
	LogFormat *string `json:"log_format"`
}

// parseJson overlays cfg with the JSON file named by -c/-config in args.
// Panics on read or unmarshal errors, the same way flag parsing does.
func parseJson(cfg *Config, args []string) {
	path := flagx.ConfigFilePath(args)
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setString(&cfg.APIBaseURL, jc.APIBaseURL)
	setString(&cfg.StorageProvider, jc.StorageProvider)
	setString(&cfg.StorageBaseURL, jc.StorageBaseURL)
	setString(&cfg.CloudName, jc.CloudName)
	setString(&cfg.UploadPreset, jc.UploadPreset)
	setString(&cfg.UploadFolder, jc.UploadFolder)
	setString(&cfg.S3Bucket, jc.S3Bucket)
	setString(&cfg.S3Region, jc.S3Region)
	setString(&cfg.S3Endpoint, jc.S3Endpoint)
	setString(&cfg.DBPath, jc.DBPath)
	setString(&cfg.CredentialBackend, jc.CredentialBackend)
	setString(&cfg.CredentialFile, jc.CredentialFile)
	setString(&cfg.MetricsAddr, jc.MetricsAddr)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.LogFormat, jc.LogFormat)

	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.TransferTimeout != nil {
		cfg.TransferTimeout = jc.TransferTimeout.Duration
	}
	if jc.CommitTimeout != nil {
		cfg.CommitTimeout = jc.CommitTimeout.Duration
	}
	if jc.StreamConnectTimeout != nil {
		cfg.StreamConnectTimeout = jc.StreamConnectTimeout.Duration
	}
	if jc.UploadConcurrency != nil {
		cfg.UploadConcurrency = *jc.UploadConcurrency
	}
	if jc.RevertOnLoginFailure != nil {
		cfg.RevertOnLoginFailure = *jc.RevertOnLoginFailure
	}
	if jc.Tracing != nil {
		cfg.Tracing = *jc.Tracing
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
