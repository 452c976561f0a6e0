package media

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sadwiik06/SocialFlow/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		base, path, expected string
	}{
		{"http://localhost:8080", "uploads/a.jpg", "http://localhost:8080/uploads/a.jpg"},
		{"http://localhost:8080/", "/uploads/a.jpg", "http://localhost:8080/uploads/a.jpg"},
		{"http://localhost:8080", "https://cdn.example.com/a.jpg", "https://cdn.example.com/a.jpg"},
		{"", "uploads/a.jpg", "uploads/a.jpg"},
		{"http://localhost:8080", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, Resolve(tt.base, tt.path))
		})
	}
}

func TestGetContentType(t *testing.T) {
	tests := []struct {
		extension string
		expected  string
	}{
		{".jpg", "image/jpeg"},
		{".JPEG", "image/jpeg"},
		{".png", "image/png"},
		{".webp", "image/webp"},
		{".mp4", "video/mp4"},
		{".MOV", "video/quicktime"},
		{".exe", "application/octet-stream"},
		{"", "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.extension, func(t *testing.T) {
			assert.Equal(t, tt.expected, getContentType(tt.extension))
		})
	}
}

func TestObjectKeyRejectsWrongType(t *testing.T) {
	_, _, err := objectKey(FolderReels, "u1", "photo.jpg")
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, _, err = objectKey(FolderPosts, "u1", "clip.mp4")
	assert.ErrorIs(t, err, ErrUnsupportedType)

	key, contentType, err := objectKey(FolderProfiles, "u1", "me.PNG")
	require.NoError(t, err)
	assert.Equal(t, "image/png", contentType)
	assert.True(t, strings.HasPrefix(key, "profiles/"))
	assert.True(t, strings.HasSuffix(key, ".png"))
	assert.Contains(t, key, "/u1/")
}

func TestLocalUploader(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	u, err := NewLocalUploader(dir)
	require.NoError(t, err)

	res, err := u.Upload(context.Background(), strings.NewReader("video-bytes"), "clip.mp4", FolderReels, "u1")
	require.NoError(t, err)

	assert.Equal(t, int64(len("video-bytes")), res.Size)
	assert.Equal(t, "video/mp4", res.ContentType)
	assert.True(t, strings.HasPrefix(res.URL, "uploads/reels/"), res.URL)
	assert.False(t, IsAbsolute(res.URL))

	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(res.Key)))
	require.NoError(t, err)
	assert.Equal(t, "video-bytes", string(data))
}

func TestLocalUploaderHonoursContext(t *testing.T) {
	u, err := NewLocalUploader(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = u.Upload(ctx, strings.NewReader("x"), "a.jpg", FolderPosts, "u1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewSelectsDriver(t *testing.T) {
	up, err := New(context.Background(), config.StorageConfig{Driver: "local", UploadDir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &LocalUploader{}, up)

	_, err = New(context.Background(), config.StorageConfig{Driver: "ftp"})
	assert.Error(t, err)

	_, err = New(context.Background(), config.StorageConfig{Driver: "s3"})
	assert.Error(t, err)
}
