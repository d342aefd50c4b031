package cvstore

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/atinyakov/venditori/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pdf = []byte("%PDF-1.4\n1 0 obj << /Type /Catalog >> endobj\ntrailer\n%%EOF\n")

func TestStore_Save(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cv")
	s := New(dir)

	path, err := s.Save(42, bytes.NewReader(pdf))
	require.NoError(t, err)

	assert.Equal(t, dir, filepath.Dir(path))
	assert.Regexp(t, regexp.MustCompile(`^42_[0-9a-f-]{36}\.pdf$`), filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, pdf, data)
}

func TestStore_SaveUniqueNames(t *testing.T) {
	s := New(t.TempDir())

	a, err := s.Save(1, bytes.NewReader(pdf))
	require.NoError(t, err)
	b, err := s.Save(1, bytes.NewReader(pdf))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestStore_SaveRejects(t *testing.T) {
	tests := []struct {
		name string
		body io.Reader
		want error
	}{
		{name: "text", body: strings.NewReader("just some notes"), want: ErrNotPDF},
		{name: "empty", body: strings.NewReader(""), want: ErrNotPDF},
		{name: "png", body: bytes.NewReader([]byte("\x89PNG\r\n\x1a\n0000")), want: ErrNotPDF},
		{
			name: "too large",
			body: io.MultiReader(bytes.NewReader(pdf), bytes.NewReader(make([]byte, MaxSize))),
			want: ErrTooLarge,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			_, err := New(dir).Save(7, tt.body)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, models.ErrInvalid)

			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}

func TestIsURL(t *testing.T) {
	assert.True(t, IsURL("https://example.com/cv.pdf"))
	assert.True(t, IsURL("http://host/cv"))
	assert.False(t, IsURL("/var/cv/1.pdf"))
	assert.False(t, IsURL("ftp://host/cv.pdf"))
	assert.False(t, IsURL("https://"))
	assert.False(t, IsURL(""))
}

func TestStore_Open(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	path, err := s.Save(3, bytes.NewReader(pdf))
	require.NoError(t, err)

	f, err := s.Open(path)
	require.NoError(t, err)
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	f.Close()
	assert.Equal(t, pdf, data)

	outside := filepath.Join(t.TempDir(), "secret.pdf")
	require.NoError(t, os.WriteFile(outside, pdf, 0o600))

	for _, ref := range []string{
		"",
		"https://example.com/cv.pdf",
		filepath.Join(dir, "missing.pdf"),
		filepath.Join(dir, "..", filepath.Base(filepath.Dir(outside)), "secret.pdf"),
		outside,
		dir,
	} {
		_, err := s.Open(ref)
		assert.ErrorIs(t, err, models.ErrNotFound, "ref %q", ref)
	}
}

func TestStore_Remove(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	path, err := s.Save(3, bytes.NewReader(pdf))
	require.NoError(t, err)

	require.NoError(t, s.Remove(path))
	assert.NoFileExists(t, path)

	assert.NoError(t, s.Remove(path))
	assert.NoError(t, s.Remove("https://example.com/cv.pdf"))
	assert.NoError(t, s.Remove(""))
}
