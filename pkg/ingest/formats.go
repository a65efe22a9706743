package ingest

import (
	"compress/bzip2"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// FileFormat is the encoding of a data file.
type FileFormat int

const (
	FormatUnknown FileFormat = iota
	FormatJSON               // JSON array of records
	FormatMsgpack            // MessagePack array of records
)

// Compression wraps a FileFormat.
type Compression int

const (
	CompressionNone Compression = iota
	CompressionGzip
	CompressionBzip2
	CompressionZstd
)

var (
	ErrUnknownFormat = errors.New("unknown data file format")
	ErrNoFiles       = errors.New("no data files")
)

// FormatInfo contains metadata about a data file format
type FormatInfo struct {
	Format      FileFormat
	Description string
	Extensions  []string
	MinSize     int64 // smallest valid file: an empty array
}

var supportedFormats = map[FileFormat]FormatInfo{
	FormatJSON: {
		Format:      FormatJSON,
		Description: "JSON place list",
		Extensions:  []string{".json"},
		MinSize:     2,
	},
	FormatMsgpack: {
		Format:      FormatMsgpack,
		Description: "MessagePack place list",
		Extensions:  []string{".msgpack", ".mp"},
		MinSize:     1,
	},
}

var compressionExtensions = map[string]Compression{
	".gz":  CompressionGzip,
	".bz2": CompressionBzip2,
	".zst": CompressionZstd,
}

func (f FileFormat) String() string {
	if info, ok := supportedFormats[f]; ok {
		return info.Description
	}
	return "unknown"
}

// DetectFormat derives format and compression from the file name, e.g.
// "cities.json.gz" is gzip compressed JSON.
func DetectFormat(path string) (FileFormat, Compression, error) {
	name := strings.ToLower(filepath.Base(path))

	compression := CompressionNone
	if c, ok := compressionExtensions[filepath.Ext(name)]; ok {
		compression = c
		name = strings.TrimSuffix(name, filepath.Ext(name))
	}

	ext := filepath.Ext(name)
	for _, info := range supportedFormats {
		for _, e := range info.Extensions {
			if ext == e {
				return info.Format, compression, nil
			}
		}
	}
	return FormatUnknown, compression, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
}

// ValidateFile checks that path exists, has a known format and is large enough to
// hold one.
func ValidateFile(path string) error {
	fileInfo, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if fileInfo.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}

	format, compression, err := DetectFormat(path)
	if err != nil {
		return err
	}
	formatInfo := supportedFormats[format]

	if compression == CompressionNone && fileInfo.Size() < formatInfo.MinSize {
		return fmt.Errorf("file %s is too small (%d bytes) for format %s (minimum: %d bytes)",
			path, fileInfo.Size(), formatInfo.Description, formatInfo.MinSize)
	}

	log.Debugf("Data file %s validated: %s, %d bytes", path, formatInfo.Description, fileInfo.Size())
	return nil
}

// decompress wraps r for the given compression. The returned closer releases the
// decoder, not r.
func decompress(r io.Reader, c Compression) (io.Reader, func(), error) {
	switch c {
	case CompressionGzip:
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		return gz, func() { gz.Close() }, nil
	case CompressionBzip2:
		return bzip2.NewReader(r), func() {}, nil
	case CompressionZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open zstd stream: %w", err)
		}
		return zr, zr.Close, nil
	default:
		return r, func() {}, nil
	}
}

// compress is the writing side of decompress.
func compress(w io.Writer, c Compression) (io.Writer, func() error, error) {
	switch c {
	case CompressionGzip:
		gz := gzip.NewWriter(w)
		return gz, gz.Close, nil
	case CompressionZstd:
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open zstd stream: %w", err)
		}
		return zw, zw.Close, nil
	case CompressionNone:
		return w, func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("writing compression %d is not supported", c)
	}
}
