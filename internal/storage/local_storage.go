package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"crosspost/internal/config"
	"crosspost/internal/posttypes"

	"github.com/google/uuid"
)

// ErrInvalidName is returned for folder or file names that would leave the
// storage root.
var ErrInvalidName = errors.New("invalid storage name")

// LocalStorageService implements posttypes.StorageService on the local disk.
type LocalStorageService struct {
	basePath string // root directory, e.g. "./uploads"
	baseURL  string // URL prefix the root is served under, e.g. "http://host/uploads"
}

// NewLocalStorageService creates the root directory if needed.
func NewLocalStorageService(cfg config.StorageConfig, baseURL string) (posttypes.StorageService, error) {
	if err := os.MkdirAll(cfg.LocalPath, 0755); err != nil {
		return nil, fmt.Errorf("create storage directory '%s': %w", cfg.LocalPath, err)
	}
	return &LocalStorageService{
		basePath: cfg.LocalPath,
		baseURL:  baseURL,
	}, nil
}

func checkName(name string) error {
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// SaveAttachment writes the attachment to <base>/<folder>/<fileName>.
func (s *LocalStorageService) SaveAttachment(ctx context.Context, folder, fileName, ext string, reader io.Reader, fileSize int64, mimeType string) (*posttypes.FileInfo, error) {
	if err := checkName(folder); err != nil {
		return nil, err
	}
	if fileName == "" {
		if ext == "" {
			// 从 MIME 类型推断扩展名
			if extensions, _ := mime.ExtensionsByType(mimeType); len(extensions) > 0 {
				ext = strings.TrimPrefix(extensions[0], ".")
			}
		}
		fileName = uuid.New().String()
		if ext != "" {
			fileName += "." + ext
		}
	}
	if err := checkName(fileName); err != nil {
		return nil, err
	}

	dir := filepath.Join(s.basePath, folder)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create folder '%s': %w", dir, err)
	}
	dstPath := filepath.Join(dir, fileName)

	dst, err := os.Create(dstPath)
	if err != nil {
		return nil, fmt.Errorf("create file '%s': %w", dstPath, err)
	}
	defer dst.Close()

	written, err := io.Copy(dst, reader)
	if err != nil {
		os.Remove(dstPath)
		return nil, fmt.Errorf("write file: %w", err)
	}
	if fileSize >= 0 && written != fileSize {
		os.Remove(dstPath)
		return nil, fmt.Errorf("size mismatch: expected %d, wrote %d", fileSize, written)
	}

	fileURL := strings.TrimSuffix(s.baseURL, "/") + "/" + url.PathEscape(folder) + "/" + url.PathEscape(fileName)

	return &posttypes.FileInfo{
		URL:      fileURL,
		Path:     dstPath,
		Size:     written,
		MimeType: mimeType,
		FileName: fileName,
	}, nil
}

// RemoveFolder deletes a post folder.
func (s *LocalStorageService) RemoveFolder(ctx context.Context, folder string) error {
	if err := checkName(folder); err != nil {
		return err
	}
	if err := os.RemoveAll(filepath.Join(s.basePath, folder)); err != nil {
		return fmt.Errorf("remove folder '%s': %w", folder, err)
	}
	return nil
}
