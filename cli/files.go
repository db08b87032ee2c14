package cli

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"go.viam.com/ulog/parser"
)

// closers closes a stack of streams, outermost first.
type closers []func() error

func (cs closers) Close() error {
	var err error
	for _, c := range cs {
		err = multierr.Combine(err, c())
	}
	return err
}

type layeredReader struct {
	io.Reader
	closers
}

type layeredWriter struct {
	io.Writer
	closers
}

// openInput opens a log for reading. Files ending in .zst and .gz are decompressed.
func openInput(path string) (io.ReadCloser, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	switch filepath.Ext(path) {
	case ".zst":
		dec, err := zstd.NewReader(f)
		if err != nil {
			utils.UncheckedError(f.Close())
			return nil, errors.Wrapf(err, "reading zstd stream %q", path)
		}
		return &layeredReader{dec, closers{func() error { dec.Close(); return nil }, f.Close}}, nil
	case ".gz":
		gz, err := gzip.NewReader(f)
		if err != nil {
			utils.UncheckedError(f.Close())
			return nil, errors.Wrapf(err, "reading gzip stream %q", path)
		}
		return &layeredReader{gz, closers{gz.Close, f.Close}}, nil
	default:
		return f, nil
	}
}

// createOutput creates a file for writing a log. Files ending in .zst and .gz are compressed.
// The returned writer must be closed to flush the compressed stream.
func createOutput(path string) (io.WriteCloser, error) {
	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	switch filepath.Ext(path) {
	case ".zst":
		enc, err := zstd.NewWriter(f)
		if err != nil {
			utils.UncheckedError(f.Close())
			return nil, errors.Wrapf(err, "writing zstd stream %q", path)
		}
		return &layeredWriter{enc, closers{enc.Close, f.Close}}, nil
	case ".gz":
		gz := gzip.NewWriter(f)
		return &layeredWriter{gz, closers{gz.Close, f.Close}}, nil
	default:
		return f, nil
	}
}

// loadConfig reads the parser configuration named by the --config flag. Without the flag the
// default configuration is returned.
func loadConfig(path string) (parser.Config, error) {
	if path == "" {
		return parser.Config{}, nil
	}
	//nolint:gosec
	raw, err := os.ReadFile(path)
	if err != nil {
		return parser.Config{}, err
	}
	var attributes map[string]interface{}
	if err := json.Unmarshal(raw, &attributes); err != nil {
		return parser.Config{}, errors.Wrapf(err, "cannot parse config %q", path)
	}
	return parser.ConfigFromMap(attributes)
}
