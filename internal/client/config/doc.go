// Package config loads runtime configuration for the mediax client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via flags: -c or -config.
//  3. MEDIAX_* environment variables (see EnvConfig).
//  4. Command-line flags (see parseFlags), which override earlier values.
//
// # JSON schema
//
// Durations accept Go duration strings or integer nanoseconds:
//
//	{
//	  "api_base_url": "https://media.example.com/api",
//	  "cloud_name": "demo",
//	  "upload_preset": "unsigned_videos",
//	  "transfer_timeout": "45m",
//	  "log_format": "zerolog"
//	}
package config
