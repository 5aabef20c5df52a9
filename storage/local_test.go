package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestUploader(t *testing.T) (FileUploader, Dirs) {
	t.Helper()
	root := t.TempDir()
	dirs := Dirs{
		ImagesDir:    filepath.Join(root, "images"),
		DocumentsDir: filepath.Join(root, "documents"),
	}
	u, err := NewLocalUploader(LocalUploaderConfig{Dirs: dirs, PublicBaseURL: "/public/"})
	require.NoError(t, err)
	return u, dirs
}

func TestLocalUploader_UploadRoutesByPrefix(t *testing.T) {
	u, dirs := newTestUploader(t)
	ctx := context.Background()

	res, err := u.Upload(ctx, "images/banner.png", "image/png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "images/banner.png", res.Key)
	assert.Equal(t, "/public/images/banner.png", res.Location)

	data, err := os.ReadFile(filepath.Join(dirs.ImagesDir, "banner.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	_, err = u.Upload(ctx, "documents/rules_1.pdf", "application/pdf", strings.NewReader("%PDF"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dirs.DocumentsDir, "rules_1.pdf"))
	assert.NoError(t, err)
}

func TestLocalUploader_UploadOverwrites(t *testing.T) {
	u, dirs := newTestUploader(t)
	ctx := context.Background()

	_, err := u.Upload(ctx, "images/a.jpg", "image/jpeg", strings.NewReader("first"))
	require.NoError(t, err)
	_, err = u.Upload(ctx, "images/a.jpg", "image/jpeg", strings.NewReader("second"))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dirs.ImagesDir, "a.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestLocalUploader_RejectsInvalidKeys(t *testing.T) {
	u, _ := newTestUploader(t)
	ctx := context.Background()

	for _, key := range []string{"other/a.jpg", "images/../escape.jpg", "images/", "documents/sub/a.pdf"} {
		_, err := u.Upload(ctx, key, "image/jpeg", strings.NewReader("x"))
		assert.ErrorIs(t, err, ErrInvalidKey, key)
	}
}

func TestLocalUploader_DeleteMissingIsNoop(t *testing.T) {
	u, dirs := newTestUploader(t)
	ctx := context.Background()

	require.NoError(t, u.Delete(ctx, "images/missing.png"))

	_, err := u.Upload(ctx, "images/present.png", "image/png", strings.NewReader("x"))
	require.NoError(t, err)
	require.NoError(t, u.Delete(ctx, "images/present.png"))

	_, err = os.Stat(filepath.Join(dirs.ImagesDir, "present.png"))
	assert.True(t, os.IsNotExist(err))
}

func TestKeyHelpers(t *testing.T) {
	assert.Equal(t, "images/ABCD-2345_Red_Dragons.jpg", TeamLogoKey("ABCD-2345", " Red Dragons "))
	assert.Equal(t, "images/ABCD-2345_AC_DC.jpg", TeamLogoKey("ABCD-2345", "AC/DC"))
	assert.NotEqual(t, TeamLogoKey("ABCD-2345", "Red Dragons"), TeamLogoKey("WXYZ-6789", "Red Dragons"))
	assert.NotEqual(t, TeamLogoKey("ABCD-2345", "Red/Dragons"), TeamLogoKey("WXYZ-6789", "Red Dragons"))
	assert.Equal(t, "images/evil.png", ImageKey("../../evil.png"))
	assert.Equal(t, "documents/rules_7.pdf", DocumentKey("rules_7.pdf"))

	key := UniqueDocumentKey("consent", ".PDF")
	assert.True(t, strings.HasPrefix(key, "documents/consent_"))
	assert.True(t, strings.HasSuffix(key, ".pdf"))
	assert.NotEqual(t, key, UniqueDocumentKey("consent", ".pdf"))
}
