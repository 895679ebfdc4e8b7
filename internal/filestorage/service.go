// Package filestorage stores user uploaded images (avatars) on local disk and
// maps them to public URLs served by the API.
package filestorage

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"arc_community_backend/internal/config"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxImageBytes caps a single upload.
const MaxImageBytes = 2 << 20

var (
	ErrNoFile           = errors.New("no file provided")
	ErrUnsupportedImage = errors.New("unsupported image type")
	ErrTooLarge         = errors.New("file too large")
	ErrInvalidPath      = errors.New("invalid file path")
)

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Store saves files under root and exposes them below publicURL.
type Store struct {
	root      string
	publicURL string
	logger    *zap.Logger
}

// NewStore creates the root directory if needed.
func NewStore(root, publicURL string, logger *zap.Logger) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("storage path cannot be empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage path %s: %w", root, err)
	}
	return &Store{root: root, publicURL: strings.TrimRight(publicURL, "/"), logger: logger.Named("FileStore")}, nil
}

// ProvideStore is the wire provider.
func ProvideStore(cfg *config.Config, logger *zap.Logger) (*Store, error) {
	return NewStore(cfg.UploadStoragePath, cfg.UploadPublicURL, logger)
}

// Root is the directory served as static files.
func (s *Store) Root() string { return s.root }

// SaveImage sniffs the content type, rejects non images and writes the file
// as subDir/<uuid><ext>. It returns the slash separated relative path.
func (s *Store) SaveImage(fh *multipart.FileHeader, subDir string) (string, error) {
	if fh == nil {
		return "", ErrNoFile
	}
	if fh.Size > MaxImageBytes {
		return "", ErrTooLarge
	}
	cleanSubDir := filepath.Clean(subDir)
	if cleanSubDir == "." || strings.HasPrefix(cleanSubDir, "..") || filepath.IsAbs(cleanSubDir) {
		return "", ErrInvalidPath
	}

	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(src, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read uploaded file: %w", err)
	}
	ext, ok := imageExtensions[http.DetectContentType(head[:n])]
	if !ok {
		return "", ErrUnsupportedImage
	}

	dir := filepath.Join(s.root, cleanSubDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	name := uuid.NewString() + ext
	dstPath := filepath.Join(dir, name)

	dst, err := os.Create(dstPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file %s: %w", dstPath, err)
	}
	defer dst.Close()

	written, err := io.Copy(dst, io.MultiReader(strings.NewReader(string(head[:n])), io.LimitReader(src, MaxImageBytes)))
	if err == nil && written > MaxImageBytes {
		err = ErrTooLarge
	}
	if err != nil {
		os.Remove(dstPath)
		return "", err
	}

	s.logger.Debug("File saved", zap.String("path", dstPath))
	return path.Join(filepath.ToSlash(cleanSubDir), name), nil
}

// PublicURL maps a relative path returned by SaveImage to its URL.
func (s *Store) PublicURL(relativePath string) string {
	return s.publicURL + "/" + relativePath
}

// RelativePath is the inverse of PublicURL. ok is false for foreign URLs.
func (s *Store) RelativePath(publicURL string) (string, bool) {
	prefix := s.publicURL + "/"
	if !strings.HasPrefix(publicURL, prefix) {
		return "", false
	}
	return strings.TrimPrefix(publicURL, prefix), true
}

// Delete removes a stored file. Missing files are not an error.
func (s *Store) Delete(relativePath string) error {
	if relativePath == "" {
		return ErrInvalidPath
	}
	clean := filepath.Clean(relativePath)
	if strings.Contains(clean, "..") || filepath.IsAbs(clean) {
		s.logger.Warn("Rejected delete with path traversal", zap.String("relativePath", relativePath))
		return ErrInvalidPath
	}
	err := os.Remove(filepath.Join(s.root, clean))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
