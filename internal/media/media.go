// Package media stores uploaded images and videos, on local disk or in S3.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sadwiik06/SocialFlow/internal/config"
)

// Folders group uploads by what they belong to
const (
	FolderPosts    = "posts"
	FolderReels    = "reels"
	FolderProfiles = "profiles"
)

var ErrUnsupportedType = errors.New("unsupported media type")

// UploadResult describes a stored object. URL is what gets persisted: a
// relative path for local storage, an absolute URL for S3.
type UploadResult struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// Uploader persists one uploaded file
type Uploader interface {
	Upload(ctx context.Context, r io.Reader, filename, folder, ownerID string) (*UploadResult, error)
}

// New builds the uploader selected by cfg.Driver
func New(ctx context.Context, cfg config.StorageConfig) (Uploader, error) {
	switch cfg.Driver {
	case "", "local":
		return NewLocalUploader(cfg.UploadDir)
	case "s3":
		return NewS3Uploader(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.MediaBaseURL)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// Resolve turns a stored media path into a fetchable URL. Absolute URLs are
// returned unchanged; relative paths are joined onto base.
func Resolve(base, p string) string {
	if p == "" || base == "" || IsAbsolute(p) {
		return p
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(p, "/")
}

// IsAbsolute reports whether p already carries a scheme
func IsAbsolute(p string) bool {
	return strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://")
}

// objectKey builds folder/yyyy/mm/owner/uuid.ext, rejecting types the folder
// does not accept.
func objectKey(folder, ownerID, filename string) (string, string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	contentType := getContentType(ext)
	if !accepts(folder, contentType) {
		return "", "", fmt.Errorf("%w: %s", ErrUnsupportedType, ext)
	}

	now := time.Now().UTC()
	key := path.Join(folder, fmt.Sprintf("%d/%02d", now.Year(), now.Month()), ownerID, uuid.NewString()+ext)
	return key, contentType, nil
}

func accepts(folder, contentType string) bool {
	switch folder {
	case FolderReels:
		return strings.HasPrefix(contentType, "video/")
	case FolderPosts, FolderProfiles:
		return strings.HasPrefix(contentType, "image/")
	default:
		return false
	}
}

func getContentType(extension string) string {
	switch strings.ToLower(extension) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".mp4":
		return "video/mp4"
	case ".mov":
		return "video/quicktime"
	case ".webm":
		return "video/webm"
	default:
		return "application/octet-stream"
	}
}
