package encoding

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"strings"
)

// GzipSuffix marks compressed reference tables
const GzipSuffix = ".gz"

// IsGzip reports whether a table name denotes gzip content
func IsGzip(name string) bool {
	return strings.HasSuffix(name, GzipSuffix)
}

// DecompressReader returns rc unchanged unless name denotes gzip content, in
// which case reads are decompressed. Closing the result closes rc.
func DecompressReader(name string, rc io.ReadCloser) (io.ReadCloser, error) {
	if !IsGzip(name) {
		return rc, nil
	}
	gz, err := gzip.NewReader(rc)
	if err != nil {
		rc.Close()
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	return &gzipReadCloser{Reader: gz, source: rc}, nil
}

type gzipReadCloser struct {
	*gzip.Reader
	source io.Closer
}

func (g *gzipReadCloser) Close() error {
	gzErr := g.Reader.Close()
	if err := g.source.Close(); err != nil {
		return err
	}
	return gzErr
}

// CompressGZIP compresses data using GZIP
func CompressGZIP(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := gzip.NewWriter(&buf)

	if _, err := writer.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close gzip writer: %w", err)
	}
	return buf.Bytes(), nil
}
