package main

import (
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/urfave/cli/v2"

	"github.com/meltwater/drone-manifest/archive"
	"github.com/meltwater/drone-manifest/internal"
	"github.com/meltwater/drone-manifest/internal/plugin"
	"github.com/meltwater/drone-manifest/storage/backend/azure"
)

var version = "0.0.0"

func main() {
	app := &cli.App{
		Name:    "drone-manifest",
		Usage:   "fetch JSON manifests from Azure Blob Storage",
		Version: version,
		Action:  run,
		Flags: []cli.Flag{
			// Logger args
			&cli.StringFlag{
				Name:    "log.level",
				Aliases: []string{"ll"},
				Usage:   "log filtering level. ('error', 'warn', 'info', 'debug')",
				Value:   internal.LogLevelInfo,
				EnvVars: []string{"PLUGIN_LOG_LEVEL", "LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "log.format",
				Aliases: []string{"lf"},
				Usage:   "log format to use. ('logfmt', 'json')",
				Value:   internal.LogFormatLogfmt,
				EnvVars: []string{"PLUGIN_LOG_FORMAT", "LOG_FORMAT"},
			},
			&cli.BoolFlag{
				Name:    "debug",
				Aliases: []string{"d"},
				Usage:   "debug mode, overrides log.level",
				EnvVars: []string{"PLUGIN_DEBUG", "DEBUG"},
			},

			// Manifest args
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML file listing manifest references, skipped when missing",
				Value:   plugin.DefaultConfigFile,
				EnvVars: []string{"PLUGIN_CONFIG", "DBT_LOOM_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "name",
				Usage:   "name of the manifest given by flags, defaults to the object base name",
				EnvVars: []string{"PLUGIN_NAME"},
			},
			&cli.StringFlag{
				Name:    "account-url",
				Usage:   "blob service URL of the storage account",
				EnvVars: []string{"PLUGIN_ACCOUNT_URL", "AZURE_STORAGE_ACCOUNT_URL"},
			},
			&cli.StringFlag{
				Name:    "container",
				Usage:   "container holding the manifest",
				EnvVars: []string{"PLUGIN_CONTAINER", "AZURE_CONTAINER_NAME"},
			},
			&cli.StringFlag{
				Name:    "object",
				Usage:   "name of the manifest object in the container",
				EnvVars: []string{"PLUGIN_OBJECT"},
			},
			&cli.StringFlag{
				Name:    "connection-string",
				Usage:   "storage connection string, the default credential chain is used when empty",
				EnvVars: []string{"AZURE_STORAGE_CONNECTION_STRING"},
			},
			&cli.IntFlag{
				Name:    "max-retry-requests",
				Usage:   "maximum retries of a storage request with exponential backoff, negative disables retries (an unreachable endpoint takes about 20s to fail with the default)",
				Value:   azure.DefaultBlobMaxRetryRequests,
				EnvVars: []string{"PLUGIN_MAX_RETRY_REQUESTS"},
			},
			&cli.DurationFlag{
				Name:    "storage-operation-timeout",
				Aliases: []string{"sot"},
				Usage:   "timeout of a single manifest fetch, zero means none",
				EnvVars: []string{"PLUGIN_STORAGE_OPERATION_TIMEOUT"},
			},

			// Output args
			&cli.StringFlag{
				Name:    "output-dir",
				Aliases: []string{"o"},
				Usage:   "directory to store fetched manifests in, stdout when empty",
				EnvVars: []string{"PLUGIN_OUTPUT_DIR"},
			},
			&cli.StringFlag{
				Name:    "archive-format",
				Aliases: []string{"arcfmt"},
				Usage:   "compression of stored manifests ('none', 'gzip', 'zstd')",
				Value:   archive.DefaultArchiveFormat,
				EnvVars: []string{"PLUGIN_ARCHIVE_FORMAT"},
			},
			&cli.IntFlag{
				Name:    "compression-level",
				Aliases: []string{"cpl"},
				Usage:   "compression level of stored manifests",
				Value:   archive.DefaultCompressionLevel,
				EnvVars: []string{"PLUGIN_COMPRESSION_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "metrics-file",
				Usage:   "file to write fetch metrics to in Prometheus text format",
				EnvVars: []string{"PLUGIN_METRICS_FILE"},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	logLevel := c.String("log.level")
	if c.Bool("debug") {
		logLevel = internal.LogLevelDebug
	}

	logger, err := internal.NewLogger(os.Stderr, logLevel, c.String("log.format"), "drone-manifest")
	if err != nil {
		return err
	}

	cfg := plugin.Config{
		ConfigFile:              c.String("config"),
		ArchiveFormat:           c.String("archive-format"),
		CompressionLevel:        c.Int("compression-level"),
		OutputDir:               c.String("output-dir"),
		MetricsFile:             c.String("metrics-file"),
		ConnectionString:        c.String("connection-string"),
		StorageOperationTimeout: c.Duration("storage-operation-timeout"),
		MaxRetryRequests:        c.Int("max-retry-requests"),
	}

	if object := c.String("object"); object != "" {
		name := c.String("name")
		if name == "" {
			name = strings.TrimSuffix(path.Base(object), path.Ext(object))
		}

		cfg.Manifests = append(cfg.Manifests, plugin.Reference{
			Name: name,
			Type: plugin.ReferenceTypeAzure,
			Config: plugin.ReferenceConfig{
				AccountURL:    c.String("account-url"),
				ContainerName: c.String("container"),
				ObjectName:    object,
			},
		})
	}

	if err := plugin.New(log.With(logger, "component", "plugin"), cfg, os.Stdout).Exec(c.Context); err != nil {
		level.Error(logger).Log("msg", "manifest fetch failed", "err", err)
		return err
	}

	return nil
}
