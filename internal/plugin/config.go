package plugin

import "time"

// DefaultConfigFile is read for manifest references when no other file is given.
const DefaultConfigFile = "dbt_loom.config.yml"

// Config plugin-specific parameters and secrets.
type Config struct {
	// ConfigFile lists manifest references in YAML, in addition to Manifests.
	// A missing file is skipped.
	ConfigFile string
	Manifests  []Reference

	ArchiveFormat    string
	CompressionLevel int
	OutputDir        string
	MetricsFile      string

	// Secret shared by every reference. Empty means the ambient credential chain.
	ConnectionString string

	StorageOperationTimeout time.Duration
	MaxRetryRequests        int
}
