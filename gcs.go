package idfm2bq

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"

	"cloud.google.com/go/storage"
	"golang.org/x/sync/errgroup"
)

var ErrBucketNotExist = errors.New("bucket does not exist")

// bronzeRoot is the top-level folder of the raw layer inside the bucket.
const bronzeRoot = "bronze"

// uploadConcurrency bounds parallel object writes during folder uploads.
const uploadConcurrency = 8

// Bronze wraps the GCS client for the raw object layer.
type Bronze struct {
	client *storage.Client
	bucket string
}

func OpenBronze(ctx context.Context, cfg Config) (*Bronze, error) {
	client, err := storage.NewClient(ctx, cfg.ClientOptions()...)
	if err != nil {
		return nil, fmt.Errorf("storage client: %w", err)
	}
	return &Bronze{client: client, bucket: cfg.Bucket}, nil
}

func (b *Bronze) Close() error {
	return b.client.Close()
}

// Check confirms the bucket exists and is visible to the caller.
func (b *Bronze) Check(ctx context.Context) error {
	_, err := b.client.Bucket(b.bucket).Attrs(ctx)
	if errors.Is(err, storage.ErrBucketNotExist) {
		return ErrBucketNotExist
	}
	if err != nil {
		return fmt.Errorf("bucket %s: %w", b.bucket, err)
	}
	return nil
}

// URI returns the gs:// URI of an object in the bucket.
func (b *Bronze) URI(object string) string {
	return fmt.Sprintf("gs://%s/%s", b.bucket, object)
}

// objectPath builds "bronze/<prefix>/<name>", skipping empty segments.
func objectPath(prefix, name string) string {
	if prefix == "" {
		return path.Join(bronzeRoot, name)
	}
	return path.Join(bronzeRoot, prefix, name)
}

// UploadFile writes one local file under bronze/<prefix>/ and returns its
// gs:// URI.
func (b *Bronze) UploadFile(ctx context.Context, localPath, prefix string) (string, error) {
	if localPath == "" {
		panic("Missing localPath")
	}

	object := objectPath(prefix, filepath.Base(localPath))
	size, err := b.writeObject(ctx, localPath, object)
	if err != nil {
		return "", err
	}

	slog.Info(fmt.Sprintf("Uploaded %s (%.2f MB)", b.URI(object), float64(size)/(1024*1024)))
	return b.URI(object), nil
}

// UploadDir uploads every file under dir to bronze/<prefix>/, preserving the
// relative structure. When extensions is non-empty only matching files are
// uploaded. Returns the number of files written.
func (b *Bronze) UploadDir(ctx context.Context, dir, prefix string, extensions []string) (int, error) {
	if dir == "" {
		panic("Missing dir")
	}

	for i, ext := range extensions {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		extensions[i] = ext
	}

	var uploaded atomic.Int64
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(uploadConcurrency)

	err := filepath.WalkDir(dir, func(localPath string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if len(extensions) > 0 && !slices.Contains(extensions, strings.ToLower(filepath.Ext(localPath))) {
			return nil
		}

		rel, err := filepath.Rel(dir, localPath)
		if err != nil {
			return err
		}
		object := objectPath(prefix, filepath.ToSlash(rel))

		eg.Go(func() error {
			if _, err := b.writeObject(egCtx, localPath, object); err != nil {
				return err
			}
			uploaded.Add(1)
			return nil
		})
		return nil
	})
	if err != nil {
		_ = eg.Wait()
		return 0, err
	}
	if err := eg.Wait(); err != nil {
		return int(uploaded.Load()), err
	}

	slog.Info(fmt.Sprintf("Uploaded %d file(s) to %s", uploaded.Load(), b.URI(objectPath(prefix, ""))))
	return int(uploaded.Load()), nil
}

func (b *Bronze) writeObject(ctx context.Context, localPath, object string) (int64, error) {
	src, err := os.Open(localPath)
	if err != nil {
		return 0, err
	}
	defer func() { _ = src.Close() }()

	w := b.client.Bucket(b.bucket).Object(object).NewWriter(ctx)
	written, err := io.Copy(w, src)
	if err != nil {
		_ = w.Close()
		return written, fmt.Errorf("upload %s: %w", object, err)
	}
	if err := w.Close(); err != nil {
		return written, fmt.Errorf("upload %s: %w", object, err)
	}
	return written, nil
}

// ParseURI splits a gs:// URI into bucket and object.
func ParseURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("gs uri must begin with 'gs://', got %q", uri)
	}
	u, err := url.Parse(uri)
	if err != nil {
		return "", "", fmt.Errorf("parse gs uri: %w", err)
	}
	return u.Host, strings.TrimPrefix(u.Path, "/"), nil
}
