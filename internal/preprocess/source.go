package preprocess

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/blake2b"
)

// Source is an opaque, immutable reference to a user-supplied photo.
// Open may be called more than once; each call returns a fresh reader
// positioned at the start of the image.
type Source interface {
	// Name identifies the source in logs and reports.
	Name() string

	// Open returns a reader over the encoded image bytes.
	Open() (io.ReadCloser, error)
}

// FileSource reads an image from the filesystem.
type FileSource struct {
	Path string
}

// NewFileSource returns a Source for the file at path.
func NewFileSource(path string) FileSource {
	return FileSource{Path: path}
}

// Name returns the file path.
func (s FileSource) Name() string {
	return s.Path
}

// Open opens the file for reading.
func (s FileSource) Open() (io.ReadCloser, error) {
	f, err := os.Open(s.Path) //nolint:gosec // Path is supplied by the user on purpose
	if err != nil {
		return nil, err
	}
	return f, nil
}

// BytesSource is an in-memory encoded image.
type BytesSource struct {
	Label string
	Data  []byte
}

// NewBytesSource returns a Source over data. The slice must not be
// modified afterwards.
func NewBytesSource(label string, data []byte) BytesSource {
	return BytesSource{Label: label, Data: data}
}

// Name returns the label, or "memory" when no label was given.
func (s BytesSource) Name() string {
	if s.Label == "" {
		return "memory"
	}
	return s.Label
}

// Open returns a reader over the bytes.
func (s BytesSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s.Data)), nil
}

// readSource reads the whole source, failing once more than maxBytes have
// been read. maxBytes <= 0 disables the limit.
func readSource(src Source, maxBytes int64) ([]byte, error) {
	if src == nil {
		return nil, errors.New("nil source")
	}
	rc, err := src.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var r io.Reader = rc
	if maxBytes > 0 {
		r = io.LimitReader(rc, maxBytes+1)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrSourceTooLarge, maxBytes)
	}
	if len(data) == 0 {
		return nil, ErrEmptySource
	}
	return data, nil
}

// Fingerprint returns the BLAKE2b-256 hex digest of the source bytes.
// It identifies the photo in reports without storing the photo itself.
func Fingerprint(src Source) (string, error) {
	if src == nil {
		return "", errors.New("nil source")
	}
	rc, err := src.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	h, err := blake2b.New256(nil)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, rc); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// fingerprintBytes is Fingerprint for data already in memory.
func fingerprintBytes(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}
