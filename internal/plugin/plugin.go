// Package plugin fetches the configured manifests and stores local copies of them.
package plugin

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"

	"github.com/meltwater/drone-manifest/archive"
	"github.com/meltwater/drone-manifest/internal"
	"github.com/meltwater/drone-manifest/internal/metrics"
	"github.com/meltwater/drone-manifest/manifest"
	"github.com/meltwater/drone-manifest/storage/backend/azure"
)

// ErrNoManifests means neither flags nor the config file named a manifest.
var ErrNoManifests = errors.New("no manifest references configured")

// Plugin for fetching manifests.
type Plugin struct {
	logger log.Logger
	stdout io.Writer
	opts   []azure.Option

	Config Config
}

// New creates a new plugin. Fetched manifests without an output directory go to stdout.
func New(logger log.Logger, c Config, stdout io.Writer, opts ...azure.Option) *Plugin {
	return &Plugin{logger: logger, stdout: stdout, opts: opts, Config: c}
}

// Exec fetches every configured manifest in order and stops at the first failure.
func (p *Plugin) Exec(ctx context.Context) error {
	cfg := p.Config

	refs := append([]Reference{}, cfg.Manifests...)

	if cfg.ConfigFile != "" {
		loaded, err := LoadReferences(cfg.ConfigFile, os.Getenv)

		switch {
		case errors.Is(err, fs.ErrNotExist):
			level.Info(p.logger).Log("msg", "config file not found, skipping", "file", cfg.ConfigFile)
		case err != nil:
			return fmt.Errorf("load manifest references, %w", err)
		default:
			refs = append(refs, loaded...)
		}
	}

	if len(refs) == 0 {
		return ErrNoManifests
	}

	a, err := archive.FromFormat(p.logger, cfg.ArchiveFormat, archive.WithCompressionLevel(cfg.CompressionLevel))
	if err != nil {
		return fmt.Errorf("select archive format, %w", err)
	}

	m := metrics.New()

	err = p.fetchAll(ctx, a, m, refs)

	if cfg.MetricsFile != "" {
		if mErr := m.WriteToTextfile(cfg.MetricsFile); mErr != nil {
			level.Warn(p.logger).Log("msg", "could not write metrics", "file", cfg.MetricsFile, "err", mErr)
		}
	}

	return err
}

func (p *Plugin) fetchAll(ctx context.Context, a archive.Archive, m *metrics.Metrics, refs []Reference) error {
	for _, ref := range refs {
		level.Info(p.logger).Log("msg", "loading manifest", "name", ref.Name, "type", ref.Type)

		now := time.Now()

		doc, b, err := p.fetch(ctx, ref)
		m.Observe(ref.Name, time.Since(now), len(b), err)

		if err != nil {
			return fmt.Errorf("fetch manifest %s, %w", ref.Name, err)
		}

		level.Info(p.logger).Log(
			"msg", "manifest loaded",
			"name", ref.Name,
			"keys", len(doc),
			"size", humanize.Bytes(uint64(len(b))),
			"took", time.Since(now),
		)

		if err := p.store(ref.Name, a, b); err != nil {
			return fmt.Errorf("store manifest %s, %w", ref.Name, err)
		}
	}

	return nil
}

// fetch returns the parsed manifest and the object content as downloaded.
func (p *Plugin) fetch(ctx context.Context, ref Reference) (manifest.Manifest, []byte, error) {
	if p.Config.StorageOperationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Config.StorageOperationTimeout)

		defer cancel()
	}

	f := manifest.New(log.With(p.logger, "name", ref.Name), manifest.Config{
		AccountURL:       ref.Config.Endpoint(),
		ContainerName:    ref.Config.ContainerName,
		ObjectName:       ref.Config.ObjectName,
		ConnectionString: p.Config.ConnectionString,
		MaxRetryRequests: p.Config.MaxRetryRequests,
	}, p.opts...)

	return f.FetchRaw(ctx)
}

func (p *Plugin) store(name string, a archive.Archive, b []byte) error {
	if p.Config.OutputDir == "" {
		_, err := a.Create(bytes.NewReader(b), p.stdout)
		return err
	}

	if err := os.MkdirAll(p.Config.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory, %w", err)
	}

	dst := filepath.Join(p.Config.OutputDir, name+".json"+a.Ext())

	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create output file, %w", err)
	}

	defer internal.CloseWithErrLogf(p.logger, f, "output file <%s>", dst)

	written, err := a.Create(bytes.NewReader(b), f)
	if err != nil {
		return fmt.Errorf("write output file, %w", err)
	}

	level.Debug(p.logger).Log("msg", "manifest stored", "path", dst, "size", humanize.Bytes(uint64(written)))

	return nil
}
