package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/sadwiik06/SocialFlow/internal/logger"
	"go.uber.org/zap"
)

// DefaultUploadDir is served at /uploads
const DefaultUploadDir = "uploads"

// LocalUploader writes files under dir and returns paths relative to the
// server root, e.g. "uploads/reels/2024/05/<owner>/<id>.mp4".
type LocalUploader struct {
	dir string
}

var _ Uploader = (*LocalUploader)(nil)

func NewLocalUploader(dir string) (*LocalUploader, error) {
	if dir == "" {
		dir = DefaultUploadDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &LocalUploader{dir: dir}, nil
}

// Dir is the directory to serve statically
func (u *LocalUploader) Dir() string {
	return u.dir
}

func (u *LocalUploader) Upload(ctx context.Context, r io.Reader, filename, folder, ownerID string) (*UploadResult, error) {
	key, contentType, err := objectKey(folder, ownerID, filename)
	if err != nil {
		return nil, err
	}

	dst := filepath.Join(u.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}

	f, err := os.Create(dst)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload file: %w", err)
	}
	defer f.Close()

	size, err := io.Copy(f, readerWithContext(ctx, r))
	if err != nil {
		_ = os.Remove(dst)
		return nil, fmt.Errorf("failed to write upload: %w", err)
	}

	logger.Log.Debug("Stored upload", zap.String("key", key), zap.Int64("size", size))
	return &UploadResult{
		Key:         key,
		URL:         path.Join(filepath.ToSlash(filepath.Base(u.dir)), key),
		ContentType: contentType,
		Size:        size,
	}, nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// readerWithContext stops a copy once ctx is done
func readerWithContext(ctx context.Context, r io.Reader) io.Reader {
	return ctxReader{ctx: ctx, r: r}
}
