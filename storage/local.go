package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

type LocalUploaderConfig struct {
	Dirs          Dirs
	PublicBaseURL string
}

type localUploader struct {
	dirs          Dirs
	publicBaseURL string
}

func NewLocalUploader(cfg LocalUploaderConfig) (FileUploader, error) {
	if cfg.Dirs.ImagesDir == "" || cfg.Dirs.DocumentsDir == "" {
		return nil, errors.New("invalid local storage configuration: images and documents directories are required")
	}
	for _, dir := range []string{cfg.Dirs.ImagesDir, cfg.Dirs.DocumentsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory %s: %w", dir, err)
		}
	}
	return &localUploader{
		dirs:          cfg.Dirs,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
	}, nil
}

func (u *localUploader) filePath(key string) (string, error) {
	prefix, name, err := splitKey(key)
	if err != nil {
		return "", err
	}
	if prefix == ImagesPrefix {
		return filepath.Join(u.dirs.ImagesDir, name), nil
	}
	return filepath.Join(u.dirs.DocumentsDir, name), nil
}

func (u *localUploader) Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error) {
	dst, err := u.filePath(key)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file for key %s: %w", key, err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, reader); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return nil, fmt.Errorf("failed to write file for key %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return nil, fmt.Errorf("failed to close file for key %s: %w", key, err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		os.Remove(tmpName)
		return nil, fmt.Errorf("failed to store file for key %s: %w", key, err)
	}

	return &UploadResult{
		Key:      key,
		Location: u.GetPublicURL(key),
	}, nil
}

func (u *localUploader) Delete(ctx context.Context, key string) error {
	dst, err := u.filePath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(dst); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete file for key %s: %w", key, err)
	}
	return nil
}

func (u *localUploader) GetPublicURL(key string) string {
	if key == "" {
		return ""
	}
	return u.publicBaseURL + "/" + key
}
