package archive

import (
	"fmt"
	"io"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"

	"github.com/meltwater/drone-manifest/archive/gzip"
	"github.com/meltwater/drone-manifest/archive/zstd"
)

const (
	// Plain writes content as is.
	Plain = "none"
	// Gzip is the gzip compression format.
	Gzip = "gzip"
	// Zstd is the zstd compression format.
	Zstd = "zstd"

	// DefaultCompressionLevel lets each format pick its own default.
	DefaultCompressionLevel = -1
	// DefaultArchiveFormat is the format used when none is configured.
	DefaultArchiveFormat = Plain
)

// Archive is an interface that defines exposed behavior of archive formats.
type Archive interface {
	// Create writes the compressed content of r to w, returns read bytes.
	Create(r io.Reader, w io.Writer) (int64, error)

	// Extract writes the decompressed content of r to w, returns written bytes.
	Extract(r io.Reader, w io.Writer) (int64, error)

	// Ext returns the file name suffix of the format.
	Ext() string
}

// FromFormat determines which archive to use from given archive format.
func FromFormat(logger log.Logger, format string, opts ...Option) (Archive, error) {
	options := options{compressionLevel: DefaultCompressionLevel}

	for _, o := range opts {
		o.apply(&options)
	}

	switch format {
	case Plain, "":
		return plain{}, nil
	case Gzip:
		return gzip.New(logger, options.compressionLevel), nil
	case Zstd:
		return zstd.New(logger, options.compressionLevel), nil
	default:
		level.Error(logger).Log("msg", "unknown archive format", "format", format)
		return nil, fmt.Errorf("unknown archive format <%s>", format)
	}
}

type plain struct{}

func (plain) Create(r io.Reader, w io.Writer) (int64, error) { return io.Copy(w, r) }

func (plain) Extract(r io.Reader, w io.Writer) (int64, error) { return io.Copy(w, r) }

func (plain) Ext() string { return "" }
