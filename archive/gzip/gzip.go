package gzip

import (
	"fmt"
	"io"

	"github.com/go-kit/kit/log"
	"github.com/klauspost/compress/gzip"

	"github.com/meltwater/drone-manifest/internal"
)

// Archive implements archive for gzip.
type Archive struct {
	logger           log.Logger
	compressionLevel int
}

// New creates an archive that uses the gzip compression format.
func New(logger log.Logger, compressionLevel int) *Archive {
	return &Archive{logger, compressionLevel}
}

// Create writes the compressed content of r to w, returns read bytes.
func (a *Archive) Create(r io.Reader, w io.Writer) (int64, error) {
	gw, err := gzip.NewWriterLevel(w, a.compressionLevel)
	if err != nil {
		return 0, fmt.Errorf("create archive writer, %w", err)
	}

	n, err := io.Copy(gw, r)
	if err != nil {
		internal.CloseWithErrLogf(a.logger, gw, "gzip writer")
		return n, fmt.Errorf("write to archive, %w", err)
	}

	if err := gw.Close(); err != nil {
		return n, fmt.Errorf("flush archive, %w", err)
	}

	return n, nil
}

// Extract writes the decompressed content of r to w, returns written bytes.
func (a *Archive) Extract(r io.Reader, w io.Writer) (int64, error) {
	gr, err := gzip.NewReader(r)
	if err != nil {
		return 0, fmt.Errorf("gzip reader, %w", err)
	}

	defer internal.CloseWithErrLogf(a.logger, gr, "gzip reader")

	n, err := io.Copy(w, gr)
	if err != nil {
		return n, fmt.Errorf("extract archive, %w", err)
	}

	return n, nil
}

// Ext returns the file name suffix.
func (a *Archive) Ext() string { return ".gz" }
