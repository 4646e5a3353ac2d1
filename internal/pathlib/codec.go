// internal/pathlib/codec.go
package pathlib

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/andybalholm/brotli"
	json "github.com/json-iterator/go"
	"github.com/mitchellh/go-homedir"
)

// FormatVersion is written into every serialized library.
const FormatVersion = 1

// BrotliSuffix selects brotli compression when saving or loading a file.
const BrotliSuffix = ".br"

// codec is lossless for float64, so summary angles round-trip bit for bit.
var codec = json.ConfigCompatibleWithStandardLibrary

type document struct {
	Version int     `json:"version"`
	Entries []Entry `json:"entries"`
}

// Encode writes lib to w.
func Encode(w io.Writer, lib *Library) error {
	doc := document{Version: FormatVersion, Entries: lib.entries}
	if doc.Entries == nil {
		doc.Entries = []Entry{}
	}
	if err := codec.NewEncoder(w).Encode(doc); err != nil {
		return fmt.Errorf("failed to encode path library: %w", err)
	}
	return nil
}

// Decode reads a library written by Encode and validates it.
func Decode(r io.Reader) (*Library, error) {
	var doc document
	if err := codec.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode path library: %w", err)
	}
	if doc.Version != FormatVersion {
		return nil, fmt.Errorf("%w: unsupported format version %d (want %d)", ErrInvalidLibrary, doc.Version, FormatVersion)
	}
	return FromEntries(doc.Entries)
}

// SaveFile writes lib to path, creating parent directories as needed. A path
// ending in ".br" is brotli compressed.
func SaveFile(path string, lib *Library) (err error) {
	path, err = homedir.Expand(path)
	if err != nil {
		return fmt.Errorf("failed to expand library path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create library directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create library file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close library file: %w", cerr)
		}
	}()

	bw := bufio.NewWriter(f)
	if isCompressed(path) {
		zw := brotli.NewWriterLevel(bw, brotli.DefaultCompression)
		if err := Encode(zw, lib); err != nil {
			return err
		}
		if err := zw.Close(); err != nil {
			return fmt.Errorf("failed to finish brotli stream: %w", err)
		}
	} else if err := Encode(bw, lib); err != nil {
		return err
	}
	return bw.Flush()
}

// LoadFile reads and validates a library saved with SaveFile.
func LoadFile(path string) (*Library, error) {
	path, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("failed to expand library path: %w", err)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open library file: %w", err)
	}
	defer f.Close()

	var r io.Reader = bufio.NewReader(f)
	if isCompressed(path) {
		r = brotli.NewReader(r)
	}
	lib, err := Decode(r)
	if err != nil {
		return nil, fmt.Errorf("library %s: %w", path, err)
	}
	return lib, nil
}

func isCompressed(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), BrotliSuffix)
}
