package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

const (
	ImagesPrefix    = "images/"
	DocumentsPrefix = "documents/"
)

var ErrInvalidKey = errors.New("storage key must start with images/ or documents/ and name a single file")

type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

// FileUploader stores assets under keys like "images/banner.png". The key is
// what gets recorded on entities; Location is the public URL.
type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)

	Delete(ctx context.Context, key string) error

	GetPublicURL(key string) string
}

// Dirs are the local target directories for images and documents.
type Dirs struct {
	ImagesDir    string
	DocumentsDir string
}

func ImageKey(name string) string {
	return ImagesPrefix + sanitizeName(name)
}

func DocumentKey(name string) string {
	return DocumentsPrefix + sanitizeName(name)
}

var teamLogoReplacer = strings.NewReplacer(" ", "_", "/", "_", "\\", "_")

// TeamLogoKey names a team logo after the invitation code and the team name.
// The code keeps teams with equal names apart.
func TeamLogoKey(code, teamName string) string {
	return ImageKey(code + "_" + teamLogoReplacer.Replace(strings.TrimSpace(teamName)) + ".jpg")
}

// UniqueDocumentKey returns a collision-free document key keeping ext.
func UniqueDocumentKey(prefix, ext string) string {
	return DocumentKey(prefix + "_" + uuid.NewString() + strings.ToLower(ext))
}

func sanitizeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	return path.Base("/" + name)
}

// splitKey returns the key's prefix and file name, rejecting anything that
// could escape the target directory.
func splitKey(key string) (string, string, error) {
	for _, prefix := range []string{ImagesPrefix, DocumentsPrefix} {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		name := strings.TrimPrefix(key, prefix)
		if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
			return "", "", ErrInvalidKey
		}
		return prefix, name, nil
	}
	return "", "", ErrInvalidKey
}
