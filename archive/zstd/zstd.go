package zstd

import (
	"fmt"
	"io"

	"github.com/go-kit/kit/log"
	"github.com/klauspost/compress/zstd"

	"github.com/meltwater/drone-manifest/internal"
)

// Archive implements archive for zstd.
type Archive struct {
	logger           log.Logger
	compressionLevel int
}

// New creates an archive that uses the zstd compression format.
// A non-positive level selects the encoder default.
func New(logger log.Logger, compressionLevel int) *Archive {
	return &Archive{logger, compressionLevel}
}

// Create writes the compressed content of r to w, returns read bytes.
func (a *Archive) Create(r io.Reader, w io.Writer) (int64, error) {
	var opts []zstd.EOption
	if a.compressionLevel > 0 {
		opts = append(opts, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(a.compressionLevel)))
	}

	zw, err := zstd.NewWriter(w, opts...)
	if err != nil {
		return 0, fmt.Errorf("zstd writer, %w", err)
	}

	n, err := io.Copy(zw, r)
	if err != nil {
		internal.CloseWithErrLogf(a.logger, zw, "zstd writer")
		return n, fmt.Errorf("write to archive, %w", err)
	}

	if err := zw.Close(); err != nil {
		return n, fmt.Errorf("flush archive, %w", err)
	}

	return n, nil
}

// Extract writes the decompressed content of r to w, returns written bytes.
func (a *Archive) Extract(r io.Reader, w io.Writer) (int64, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return 0, fmt.Errorf("zstd reader, %w", err)
	}

	defer zr.Close()

	n, err := io.Copy(w, zr)
	if err != nil {
		return n, fmt.Errorf("extract archive, %w", err)
	}

	return n, nil
}

// Ext returns the file name suffix.
func (a *Archive) Ext() string { return ".zst" }
