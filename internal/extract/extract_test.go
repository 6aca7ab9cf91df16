package extract_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"

	"docrag/internal/domain"
	"docrag/internal/extract"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	gt.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestFromFile(t *testing.T) {
	path := writeFile(t, "doc.txt", []byte("hello document\nwith two lines\n"))

	doc, err := extract.FromFile(path)
	gt.NoError(t, err)
	gt.Equal(t, doc.Path, path)
	gt.Equal(t, doc.Content, "hello document\nwith two lines\n")
	gt.True(t, doc.ID != "")
}

func TestFromFileStableID(t *testing.T) {
	path := writeFile(t, "doc.txt", []byte("content"))

	a, err := extract.FromFile(path)
	gt.NoError(t, err)
	b, err := extract.FromFile(path)
	gt.NoError(t, err)
	gt.Equal(t, a.ID, b.ID)
}

func TestFromFileMissing(t *testing.T) {
	_, err := extract.FromFile(filepath.Join(t.TempDir(), "nope.txt"))
	gt.Error(t, err)
	gt.True(t, errors.Is(err, domain.ErrExtract))
}

func TestFromFileEmpty(t *testing.T) {
	path := writeFile(t, "empty.txt", []byte("  \n\t\n"))

	_, err := extract.FromFile(path)
	gt.Error(t, err)
	gt.True(t, errors.Is(err, domain.ErrExtract))
}

func TestFromFileInvalidUTF8(t *testing.T) {
	path := writeFile(t, "bin.dat", []byte{0xff, 0xfe, 0x00, 0x41})

	_, err := extract.FromFile(path)
	gt.Error(t, err)
	gt.True(t, errors.Is(err, domain.ErrExtract))
}
