package plugin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-kit/kit/log"

	"github.com/meltwater/drone-manifest/archive"
	"github.com/meltwater/drone-manifest/manifest"
	"github.com/meltwater/drone-manifest/test"
)

func reference(name, object string) Reference {
	return Reference{
		Name: name,
		Type: ReferenceTypeAzure,
		Config: ReferenceConfig{
			AccountURL:    "https://acct.blob.core.windows.net",
			ContainerName: "data",
			ObjectName:    object,
		},
	}
}

func TestExecWritesToStdout(t *testing.T) {
	srv := test.NewBlobServer(false)
	defer srv.Close()

	srv.Put("data", "manifest.json", []byte(`{"nodes": {}, "sources": {}}`))

	var stdout bytes.Buffer
	p := New(log.NewNopLogger(), Config{
		Manifests:        []Reference{reference("revenue", "manifest.json")},
		ConnectionString: srv.ConnectionString(),
	}, &stdout)

	test.Ok(t, p.Exec(context.Background()))
	test.Equals(t, `{"nodes": {}, "sources": {}}`, stdout.String())
}

func TestExecKeepsDownloadedContent(t *testing.T) {
	content := `{"id": 9007199254740993, "q": "a<b&c", "ratio": 1.50}`

	srv := test.NewBlobServer(false)
	defer srv.Close()

	srv.Put("data", "manifest.json", []byte(content))

	dir := t.TempDir()
	metricsFile := filepath.Join(dir, "metrics.prom")

	var stdout bytes.Buffer
	p := New(log.NewNopLogger(), Config{
		Manifests:        []Reference{reference("revenue", "manifest.json")},
		ConnectionString: srv.ConnectionString(),
		MetricsFile:      metricsFile,
	}, &stdout)

	test.Ok(t, p.Exec(context.Background()))
	test.Equals(t, content, stdout.String())

	p.Config.OutputDir = filepath.Join(dir, "out")
	test.Ok(t, p.Exec(context.Background()))

	b, err := os.ReadFile(filepath.Join(dir, "out", "revenue.json"))
	test.Ok(t, err)
	test.Equals(t, content, string(b))

	b, err = os.ReadFile(metricsFile)
	test.Ok(t, err)
	test.Assert(t, strings.Contains(string(b), fmt.Sprintf(`drone_manifest_size_bytes{name="revenue"} %d`, len(content))), "unexpected metrics:\n%s", b)
}

func TestExecWritesCompressedFiles(t *testing.T) {
	srv := test.NewBlobServer(false)
	defer srv.Close()

	srv.Put("data", "revenue/manifest.json", []byte(`{"nodes": {"model.revenue.orders": {"access": "public"}}}`))
	srv.Put("data", "finance/manifest.json", []byte(`{"nodes": {}}`))

	dir := t.TempDir()
	metricsFile := filepath.Join(dir, "metrics.prom")

	p := New(log.NewNopLogger(), Config{
		Manifests: []Reference{
			reference("revenue", "revenue/manifest.json"),
			reference("finance", "finance/manifest.json"),
		},
		ConnectionString: srv.ConnectionString(),
		ArchiveFormat:    archive.Gzip,
		CompressionLevel: archive.DefaultCompressionLevel,
		OutputDir:        filepath.Join(dir, "out"),
		MetricsFile:      metricsFile,
	}, &bytes.Buffer{})

	test.Ok(t, p.Exec(context.Background()))

	a, err := archive.FromFormat(log.NewNopLogger(), archive.Gzip)
	test.Ok(t, err)

	f, err := os.Open(filepath.Join(dir, "out", "revenue.json.gz"))
	test.Ok(t, err)
	defer f.Close()

	var out bytes.Buffer
	_, err = a.Extract(f, &out)
	test.Ok(t, err)

	var got map[string]interface{}
	test.Ok(t, json.Unmarshal(out.Bytes(), &got))
	test.Equals(t, map[string]interface{}{
		"nodes": map[string]interface{}{"model.revenue.orders": map[string]interface{}{"access": "public"}},
	}, got)

	_, err = os.Stat(filepath.Join(dir, "out", "finance.json.gz"))
	test.Ok(t, err)

	b, err := os.ReadFile(metricsFile)
	test.Ok(t, err)
	test.Assert(t, strings.Contains(string(b), `drone_manifest_fetches_total{outcome="success"} 2`), "unexpected metrics:\n%s", b)
}

func TestExecStopsAtFirstFailure(t *testing.T) {
	srv := test.NewBlobServer(false)
	defer srv.Close()

	srv.Put("data", "bad.json", []byte("not json"))
	srv.Put("data", "good.json", []byte(`{}`))

	var stdout bytes.Buffer
	dir := t.TempDir()
	metricsFile := filepath.Join(dir, "metrics.prom")

	p := New(log.NewNopLogger(), Config{
		Manifests:        []Reference{reference("bad", "bad.json"), reference("good", "good.json")},
		ConnectionString: srv.ConnectionString(),
		MetricsFile:      metricsFile,
	}, &stdout)

	err := p.Exec(context.Background())
	test.NotOk(t, err)
	test.Assert(t, errors.Is(err, manifest.ErrFormat), "expected format error, got %v", err)
	test.Assert(t, strings.HasSuffix(err.Error(), "The object `bad.json` does not contain valid JSON."), "unexpected message: %s", err)
	test.Equals(t, "", stdout.String())
	test.Equals(t, 1, srv.Requests())

	b, rErr := os.ReadFile(metricsFile)
	test.Ok(t, rErr)
	test.Assert(t, strings.Contains(string(b), `drone_manifest_fetches_total{outcome="format"} 1`), "unexpected metrics:\n%s", b)
}

func TestExecLoadsConfigFile(t *testing.T) {
	srv := test.NewBlobServer(false)
	defer srv.Close()

	srv.Put("artifacts", "manifest.json", []byte(`{"metadata": {"project_name": "revenue"}}`))

	path := filepath.Join(t.TempDir(), "manifests.yml")
	test.Ok(t, os.WriteFile(path, []byte(`
manifests:
  - name: revenue
    type: azure
    config:
      account_url: https://acct.blob.core.windows.net
      container_name: artifacts
      object_name: manifest.json
`), 0o600))

	var stdout bytes.Buffer
	p := New(log.NewNopLogger(), Config{
		ConfigFile:       path,
		ConnectionString: srv.ConnectionString(),
	}, &stdout)

	test.Ok(t, p.Exec(context.Background()))
	test.Equals(t, `{"metadata": {"project_name": "revenue"}}`, stdout.String())
}

func TestExecSkipsMissingConfigFile(t *testing.T) {
	srv := test.NewBlobServer(false)
	defer srv.Close()

	srv.Put("data", "manifest.json", []byte(`{}`))

	var stdout bytes.Buffer
	p := New(log.NewNopLogger(), Config{
		ConfigFile:       filepath.Join(t.TempDir(), "dbt_loom.config.yml"),
		Manifests:        []Reference{reference("revenue", "manifest.json")},
		ConnectionString: srv.ConnectionString(),
	}, &stdout)

	test.Ok(t, p.Exec(context.Background()))
	test.Equals(t, `{}`, stdout.String())

	p.Config.Manifests = nil
	err := p.Exec(context.Background())
	test.Assert(t, errors.Is(err, ErrNoManifests), "expected ErrNoManifests, got %v", err)
}

func TestExecRejectsInvalidConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dbt_loom.config.yml")
	test.Ok(t, os.WriteFile(path, []byte("manifests:\n  - name: revenue\n    type: gcs\n"), 0o600))

	err := New(log.NewNopLogger(), Config{ConfigFile: path}, &bytes.Buffer{}).Exec(context.Background())
	test.Assert(t, errors.Is(err, ErrConfiguration), "expected configuration error, got %v", err)
}

func TestExecWithoutManifests(t *testing.T) {
	err := New(log.NewNopLogger(), Config{}, &bytes.Buffer{}).Exec(context.Background())
	test.Assert(t, errors.Is(err, ErrNoManifests), "expected ErrNoManifests, got %v", err)
}

func TestExecUnknownArchiveFormat(t *testing.T) {
	err := New(log.NewNopLogger(), Config{
		Manifests:     []Reference{reference("revenue", "manifest.json")},
		ArchiveFormat: "rar",
	}, &bytes.Buffer{}).Exec(context.Background())
	test.NotOk(t, err)
}
