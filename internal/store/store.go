// Package store persists baked assets under the output directory.
package store

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
)

// Extension is appended to every stored asset name.
const Extension = ".bin.gz"

// ErrInvalidName is returned for asset names that would escape the region
// directory.
var ErrInvalidName = errors.New("invalid asset name")

// Store writes gzip-compressed assets for one region.
type Store struct {
	dir string
}

// New returns a store rooted at <outputDir>/<region>.
func New(outputDir, region string) (*Store, error) {
	if region == "" || filepath.Base(region) != region {
		return nil, fmt.Errorf("%w: region %q", ErrInvalidName, region)
	}
	return &Store{dir: filepath.Join(outputDir, region)}, nil
}

// Dir returns the region output directory.
func (s *Store) Dir() string {
	return s.dir
}

// EnsureDir creates the region output directory if needed.
func (s *Store) EnsureDir() error {
	return os.MkdirAll(s.dir, 0755)
}

// Path returns the file path an asset is stored at.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name+Extension)
}

// SaveCompressed gzips data to <dir>/<name>.bin.gz, replacing any previous
// file. The write goes through a temporary file so readers never observe a
// partial asset.
func (s *Store) SaveCompressed(name string, data []byte) error {
	if name == "" || filepath.Base(name) != name {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if err := s.EnsureDir(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	zw, err := gzip.NewWriterLevel(tmp, gzip.DefaultCompression)
	if err != nil {
		tmp.Close()
		return err
	}
	if _, err := zw.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("compressing %s: %w", name, err)
	}
	if err := zw.Close(); err != nil {
		tmp.Close()
		return fmt.Errorf("compressing %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.Path(name))
}

// Load reads and decompresses a stored asset.
func (s *Store) Load(name string) ([]byte, error) {
	return ReadFile(s.Path(name))
}

// ReadFile decompresses the gzip file at path.
func ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decompress(data)
}

// Decompress returns the contents of a gzip stream.
func Decompress(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}
