package config

import (
	"flag"

	"github.com/dmitrijs2005/mediax/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-u string   backend API base URL
//	-n string   storage cloud name
//	-p string   storage upload preset
//	-s string   storage provider (cloudinary, s3)
//	-d string   path of the local SQLite database
//	-l string   log level
//	-j int      parallel uploads for batch upload
//
// Arguments owned by other loaders are filtered out with flagx.FilterArgs.
func parseFlags(cfg *Config, args []string) {
	args = flagx.FilterArgs(args, []string{"-u", "-n", "-p", "-s", "-d", "-l", "-j"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.APIBaseURL, "u", cfg.APIBaseURL, "backend API base URL")
	fs.StringVar(&cfg.CloudName, "n", cfg.CloudName, "storage cloud name")
	fs.StringVar(&cfg.UploadPreset, "p", cfg.UploadPreset, "storage upload preset")
	fs.StringVar(&cfg.StorageProvider, "s", cfg.StorageProvider, "storage provider (cloudinary, s3)")
	fs.StringVar(&cfg.DBPath, "d", cfg.DBPath, "local database path")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level (debug, info, warn, error)")
	fs.IntVar(&cfg.UploadConcurrency, "j", cfg.UploadConcurrency, "parallel uploads for batch upload")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
