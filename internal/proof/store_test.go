package proof

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"marketstall/internal/apperror"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)

func newStore(t *testing.T, max int64) *DiskStore {
	t.Helper()
	s, err := NewDiskStore(t.TempDir(), "uploads/", max)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	s.now = func() time.Time { return time.Date(2024, 1, 10, 8, 30, 15, 0, time.UTC) }
	return s
}

func TestSave_NamesAndStoresImage(t *testing.T) {
	s := newStore(t, 1<<20)

	ref, err := s.Save("b-1", "receipt.PNG", bytes.NewReader(pngBytes))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !strings.HasPrefix(ref, "/uploads/payment_b-1_20240110083015_") || !strings.HasSuffix(ref, ".png") {
		t.Fatalf("unexpected ref %q", ref)
	}

	got, err := os.ReadFile(filepath.Join(s.dir, filepath.Base(ref)))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if !bytes.Equal(got, pngBytes) {
		t.Fatalf("stored bytes differ")
	}

	if err := s.Remove(ref); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := os.Stat(filepath.Join(s.dir, filepath.Base(ref))); !os.IsNotExist(err) {
		t.Fatalf("expected file removed, stat err=%v", err)
	}
}

func TestSave_RejectsExtensionAndContent(t *testing.T) {
	s := newStore(t, 1<<20)

	cases := map[string][]byte{
		"invoice.pdf": []byte("%PDF-1.4"),
		"photo.png":   []byte("just some text, not an image"),
		"empty.gif":   nil,
	}
	for name, body := range cases {
		_, err := s.Save("b-1", name, bytes.NewReader(body))
		var ve *apperror.ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
	assertEmptyDir(t, s.dir)
}

func TestSave_EnforcesSizeLimit(t *testing.T) {
	s := newStore(t, int64(len(pngBytes)-1))

	_, err := s.Save("b-1", "big.png", bytes.NewReader(pngBytes))
	var ve *apperror.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
	assertEmptyDir(t, s.dir)
}

func TestRemove_RefusesForeignPaths(t *testing.T) {
	s := newStore(t, 1<<20)
	if err := s.Remove("/etc/passwd"); err == nil {
		t.Fatalf("expected refusal")
	}
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no stored files, found %d", len(entries))
	}
}
