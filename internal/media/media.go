// Package media validates and stores images attached to posts.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"inkwell/internal/models"

	"github.com/google/uuid"
	_ "golang.org/x/image/webp" // register WebP decoder
)

// UploadDir is the subdirectory of the media root that holds post images.
const UploadDir = "posts"

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// Store keeps uploaded images on the local filesystem under Root.
type Store struct {
	Root     string
	MaxBytes int64
}

// NewStore returns a store rooted at root accepting images up to maxBytes.
func NewStore(root string, maxBytes int64) *Store {
	return &Store{Root: root, MaxBytes: maxBytes}
}

// Validate checks that content is a decodable image of an accepted type and size.
func (s *Store) Validate(content []byte) error {
	if len(content) == 0 {
		return models.NewValidationError("The submitted file is empty.")
	}
	if s.MaxBytes > 0 && int64(len(content)) > s.MaxBytes {
		return models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.MaxBytes>>20))
	}
	if !allowedTypes[http.DetectContentType(content)] {
		return models.NewValidationError("Upload a valid image. The file you uploaded was either not an image or a corrupted image.")
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(content)); err != nil {
		return models.NewValidationError("Upload a valid image. The file you uploaded was either not an image or a corrupted image.")
	}
	return nil
}

// Save validates content and writes it as posts/<filename>. When the name is
// taken a short random suffix is added. It returns the path relative to Root.
func (s *Store) Save(ctx context.Context, filename string, content []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := s.Validate(content); err != nil {
		return "", err
	}

	dir := filepath.Join(s.Root, UploadDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", models.NewInternalError(fmt.Errorf("create media dir: %w", err))
	}

	name := CleanName(filename)
	for attempt := 0; attempt < 5; attempt++ {
		candidate := name
		if attempt > 0 {
			ext := path.Ext(name)
			candidate = fmt.Sprintf("%s_%s%s", strings.TrimSuffix(name, ext), uuid.NewString()[:7], ext)
		}

		f, err := os.OpenFile(filepath.Join(dir, candidate), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", models.NewInternalError(fmt.Errorf("open %s: %w", candidate, err))
		}
		if _, err := f.Write(content); err != nil {
			_ = f.Close()
			_ = os.Remove(f.Name())
			return "", models.NewInternalError(fmt.Errorf("write %s: %w", candidate, err))
		}
		if err := f.Close(); err != nil {
			return "", models.NewInternalError(err)
		}
		return path.Join(UploadDir, candidate), nil
	}
	return "", models.NewInternalError(fmt.Errorf("no free file name for %s", name))
}

// Delete removes a stored image. Missing files are ignored.
func (s *Store) Delete(rel string) error {
	if rel == "" {
		return nil
	}
	full, err := s.resolve(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *Store) resolve(rel string) (string, error) {
	clean := path.Clean("/" + rel)
	if !strings.HasPrefix(clean, "/"+UploadDir+"/") {
		return "", fmt.Errorf("media path %q outside upload dir", rel)
	}
	return filepath.Join(s.Root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

// URL is the public address of a stored image.
func URL(rel string) string {
	if rel == "" {
		return ""
	}
	return "/media/" + rel
}

// CleanName reduces a client-supplied file name to a safe base name.
func CleanName(filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if base == "." || base == ".." || base == "/" {
		return "upload"
	}
	base = strings.ReplaceAll(strings.TrimSpace(base), " ", "_")
	base = unsafeChars.ReplaceAllString(base, "")
	if base == "" {
		return "upload"
	}
	if strings.HasPrefix(base, ".") {
		return "upload" + base
	}
	return base
}
