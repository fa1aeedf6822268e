package proof

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"marketstall/internal/apperror"
)

var allowedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
}

// DiskStore keeps payment proof images in a local directory and hands out
// references under a public URL path.
type DiskStore struct {
	dir        string
	publicPath string
	maxBytes   int64
	now        func() time.Time
}

func NewDiskStore(dir, publicPath string, maxBytes int64) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	if publicPath == "" {
		publicPath = "/uploads"
	}
	return &DiskStore{
		dir:        dir,
		publicPath: "/" + strings.Trim(publicPath, "/"),
		maxBytes:   maxBytes,
		now:        time.Now,
	}, nil
}

func (s *DiskStore) MaxBytes() int64 { return s.maxBytes }

func (s *DiskStore) PublicPath() string { return s.publicPath }

// Save writes the upload as payment_{bookingID}_{timestamp}_{suffix}{ext}
// and returns its public reference. Only png, jpg, jpeg and gif images up to
// maxBytes are accepted.
func (s *DiskStore) Save(bookingID, filename string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		return "", apperror.Validation("VALIDATION_FAILED", "payment proof must be a png, jpg, jpeg or gif image")
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.ErrUnexpectedEOF {
		if err == io.EOF {
			return "", apperror.Validation("VALIDATION_FAILED", "payment proof is empty")
		}
		return "", fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]
	if !strings.HasPrefix(http.DetectContentType(head), "image/") {
		return "", apperror.Validation("VALIDATION_FAILED", "payment proof is not an image")
	}

	name := fmt.Sprintf("payment_%s_%s_%s%s",
		bookingID, s.now().UTC().Format("20060102150405"), uuid.NewString()[:8], ext)
	full := filepath.Join(s.dir, name)

	f, err := os.OpenFile(full, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create proof file: %w", err)
	}
	written, err := io.Copy(f, io.LimitReader(io.MultiReader(bytes.NewReader(head), r), s.maxBytes+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(full)
		return "", fmt.Errorf("write proof file: %w", err)
	}
	if written > s.maxBytes {
		_ = os.Remove(full)
		return "", apperror.Validation("VALIDATION_FAILED", "payment proof exceeds %d bytes", s.maxBytes)
	}
	return path.Join(s.publicPath, name), nil
}

// Remove deletes the file behind a reference returned by Save.
func (s *DiskStore) Remove(ref string) error {
	name := path.Base(ref)
	if name == "." || name == "/" || !strings.HasPrefix(name, "payment_") {
		return fmt.Errorf("not a proof reference: %q", ref)
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Handler serves stored proofs read-only under the public path.
func (s *DiskStore) Handler() http.Handler {
	return http.StripPrefix(s.publicPath, http.FileServer(http.Dir(s.dir)))
}
