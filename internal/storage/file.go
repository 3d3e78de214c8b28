package storage

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
)

const (
	// DirPermission is used for the data directory
	DirPermission = 0700
	// FilePermission is used for value files
	FilePermission = 0600

	valueExt = ".val"

	// compressThreshold is the size above which values are considered for compression
	compressThreshold = 1024

	headerPlain byte = 'p'
	headerZstd  byte = 'z'
)

// FileBackend stores one file per key under a directory. Values larger than
// 1 KiB are zstd-compressed when that makes them smaller.
type FileBackend struct {
	dir string

	compressionLevel int
	encoder          *zstd.Encoder
	decoder          *zstd.Decoder

	mu sync.RWMutex
}

// NewFileBackend creates the directory if needed. A compression level of 0
// disables compression; existing compressed files are still readable.
func NewFileBackend(dir string, compressionLevel int) (*FileBackend, error) {
	if err := os.MkdirAll(dir, DirPermission); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	fb := &FileBackend{
		dir:              dir,
		compressionLevel: compressionLevel,
	}

	var err error
	if compressionLevel > 0 {
		fb.encoder, err = zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(compressionLevel)))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
	}
	fb.decoder, err = zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	return fb, nil
}

// Dir returns the directory holding the value files
func (f *FileBackend) Dir() string {
	return f.dir
}

func (f *FileBackend) Get(key string) (string, bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	data, err := os.ReadFile(f.pathFor(key))
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %q: %w", key, err)
	}
	if len(data) == 0 {
		return "", false, fmt.Errorf("failed to read %q: empty value file", key)
	}

	switch data[0] {
	case headerPlain:
		return string(data[1:]), true, nil
	case headerZstd:
		decompressed, err := f.decoder.DecodeAll(data[1:], nil)
		if err != nil {
			return "", false, fmt.Errorf("failed to decompress %q: %w", key, err)
		}
		return string(decompressed), true, nil
	default:
		return "", false, fmt.Errorf("failed to read %q: unknown value header %q", key, data[0])
	}
}

func (f *FileBackend) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	payload := []byte(value)
	header := headerPlain
	if f.encoder != nil && len(payload) > compressThreshold {
		compressed := f.encoder.EncodeAll(payload, nil)
		if len(compressed) < len(payload) {
			payload = compressed
			header = headerZstd
		}
	}

	buf := make([]byte, 0, len(payload)+1)
	buf = append(buf, header)
	buf = append(buf, payload...)

	if err := writeFileAtomic(f.pathFor(key), buf); err != nil {
		return fmt.Errorf("failed to write %q: %w", key, err)
	}
	return nil
}

func (f *FileBackend) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	err := os.Remove(f.pathFor(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete %q: %w", key, err)
	}
	return nil
}

func (f *FileBackend) Keys() ([]string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list data directory: %w", err)
	}

	var keys []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, valueExt) {
			continue
		}
		key, err := url.PathUnescape(strings.TrimSuffix(name, valueExt))
		if err != nil {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

// Close releases the zstd encoder and decoder
func (f *FileBackend) Close() error {
	if f.encoder != nil {
		f.encoder.Close()
	}
	f.decoder.Close()
	return nil
}

func (f *FileBackend) pathFor(key string) string {
	return filepath.Join(f.dir, url.PathEscape(key)+valueExt)
}

// writeFileAtomic writes to a temp file in the same directory and renames it
// over path.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	_, err = tmp.Write(data)
	closeErr := tmp.Close()
	if err != nil {
		os.Remove(tmpPath)
		return err
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return closeErr
	}
	if err := os.Chmod(tmpPath, FilePermission); err != nil {
		os.Remove(tmpPath)
		return err
	}

	return os.Rename(tmpPath, path)
}
