// Package cvstore keeps vendor résumés on the local filesystem.
package cvstore

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/atinyakov/venditori/internal/models"
	"github.com/google/uuid"
)

// MaxSize is the largest résumé accepted, in bytes.
const MaxSize = 10 << 20

var (
	// ErrNotPDF is returned when an upload is not a PDF document.
	ErrNotPDF = fmt.Errorf("%w: cv must be a PDF document", models.ErrInvalid)
	// ErrTooLarge is returned when an upload exceeds MaxSize.
	ErrTooLarge = fmt.Errorf("%w: cv exceeds %d bytes", models.ErrInvalid, MaxSize)
)

// Store saves and serves résumé files below Dir.
type Store struct {
	Dir string
}

// New creates a Store rooted at dir.
func New(dir string) *Store {
	return &Store{Dir: dir}
}

// Save writes the PDF read from r as <vendorID>_<uuid>.pdf and returns its path.
func (s *Store) Save(vendorID int64, r io.Reader) (string, error) {
	br := bufio.NewReaderSize(r, 512)
	head, err := br.Peek(512)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return "", fmt.Errorf("read cv: %w", err)
	}
	if http.DetectContentType(head) != "application/pdf" {
		return "", ErrNotPDF
	}

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create cv dir: %w", err)
	}
	path := filepath.Join(s.Dir, fmt.Sprintf("%d_%s.pdf", vendorID, uuid.NewString()))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", fmt.Errorf("create cv file: %w", err)
	}
	n, err := io.Copy(f, io.LimitReader(br, MaxSize+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > MaxSize {
		err = ErrTooLarge
	}
	if err != nil {
		_ = os.Remove(path)
		if errors.Is(err, ErrTooLarge) {
			return "", err
		}
		return "", fmt.Errorf("write cv file: %w", err)
	}
	return path, nil
}

// IsURL reports whether ref points to a remote document rather than a stored file.
func IsURL(ref string) bool {
	u, err := url.Parse(ref)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Open opens a stored résumé. Only files inside Dir are served; anything
// else yields models.ErrNotFound.
func (s *Store) Open(ref string) (*os.File, error) {
	path, err := s.local(ref)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("open cv: %w", err)
	}
	return f, nil
}

// Remove deletes a stored résumé. URLs, refs outside Dir and missing files are ignored.
func (s *Store) Remove(ref string) error {
	if ref == "" || IsURL(ref) {
		return nil
	}
	path, err := s.local(ref)
	if err != nil {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove cv: %w", err)
	}
	return nil
}

func (s *Store) local(ref string) (string, error) {
	if ref == "" || IsURL(ref) {
		return "", models.ErrNotFound
	}
	root, err := filepath.Abs(s.Dir)
	if err != nil {
		return "", fmt.Errorf("resolve cv dir: %w", err)
	}
	path, err := filepath.Abs(ref)
	if err != nil {
		return "", fmt.Errorf("resolve cv: %w", err)
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", models.ErrNotFound
	}
	return path, nil
}
