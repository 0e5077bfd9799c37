// Package config provides configuration management for the protein updater.
//
// It loads an optional .env file with godotenv and then lets Viper read
// environment variables, with defaults taken from the `default` struct tags.
//
// # Configuration Structure
//
// The Config struct is divided into subsections:
//   - Server: HTTP port, API key and metrics path
//   - Database: MySQL or SQLite connection details
//   - Storage: S3/MinIO credentials and bucket settings
//   - Uniprot: snapshot and report prefixes in the bucket
//   - Reconcile: engine policy (transcript sweep, deprecated copies, workers)
//   - Log: logging level and format
//
// Environment keys are the upper-cased section and key joined by an underscore,
// e.g. RECONCILE_WORKERS or DATABASE_DRIVER. LoadConfig validates the result and
// lists every invalid setting in one error.
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Server.Port)
package config
