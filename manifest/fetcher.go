// Package manifest fetches a JSON manifest object from Azure Blob Storage.
package manifest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"unicode/utf8"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"

	"github.com/meltwater/drone-manifest/storage/backend/azure"
)

var (
	errInvalidUTF8 = errors.New("content is not valid UTF-8")
	errNotObject   = errors.New("top-level value is not a JSON object")
)

// Manifest is an untyped JSON document. Its structure is left to the caller.
type Manifest map[string]interface{}

// Fetcher downloads and decodes a single manifest object.
type Fetcher struct {
	logger log.Logger
	cfg    Config
	opts   []azure.Option
}

// New creates a Fetcher. No I/O happens until Fetch is called.
func New(l log.Logger, c Config, opts ...azure.Option) *Fetcher {
	return &Fetcher{logger: l, cfg: c, opts: opts}
}

// Fetch authenticates, downloads the object and parses it as JSON.
// Any failure is returned as an *Error and no partial manifest is returned.
func (f *Fetcher) Fetch(ctx context.Context) (Manifest, error) {
	m, _, err := f.FetchRaw(ctx)
	return m, err
}

// FetchRaw is Fetch that also returns the object content exactly as downloaded.
func (f *Fetcher) FetchRaw(ctx context.Context) (Manifest, []byte, error) {
	logger := log.With(f.logger, "container", f.cfg.ContainerName, "object", f.cfg.ObjectName)

	b, err := azure.New(logger, azure.Config{
		ConnectionString: f.cfg.ConnectionString,
		AccountURL:       f.cfg.AccountURL,
		ContainerName:    f.cfg.ContainerName,
		MaxRetryRequests: f.cfg.MaxRetryRequests,
	}, f.opts...)
	if err != nil {
		if azure.IsAuthError(err) {
			return nil, nil, f.fail(logger, KindAuthentication, err)
		}

		return nil, nil, f.fail(logger, KindConnection, err)
	}

	var buf bytes.Buffer
	if err := b.Get(ctx, f.cfg.ObjectName, &buf); err != nil {
		switch {
		case azure.IsAuthError(err):
			return nil, nil, f.fail(logger, KindAuthentication, err)
		case azure.IsConnectionError(err):
			return nil, nil, f.fail(logger, KindConnection, err)
		default:
			return nil, nil, f.fail(logger, KindRead, err)
		}
	}

	if !utf8.Valid(buf.Bytes()) {
		return nil, nil, f.fail(logger, KindRead, errInvalidUTF8)
	}

	var m Manifest
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		return nil, nil, f.fail(logger, KindFormat, err)
	}

	// "null" decodes into a nil map without error.
	if m == nil {
		return nil, nil, f.fail(logger, KindFormat, errNotObject)
	}

	level.Debug(logger).Log("msg", "manifest fetched", "keys", len(m))

	return m, buf.Bytes(), nil
}

func (f *Fetcher) fail(logger log.Logger, k Kind, cause error) error {
	level.Debug(logger).Log("msg", "manifest fetch failed", "kind", k, "err", cause)

	return &Error{Kind: k, Object: f.cfg.ObjectName, Err: cause}
}
