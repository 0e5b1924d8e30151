package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	gcs "cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
)

const (
	metaFileID       = "file_id"
	metaOriginalName = "original_name"
)

// GCSStorage implements Storage on a Google Cloud Storage bucket. Object
// names are <namespace>/<short id>_<file name>; the full id and original
// name travel as object metadata.
type GCSStorage struct {
	client *gcs.Client
	bucket string
}

// NewGCSStorage creates a client with application default credentials.
func NewGCSStorage(ctx context.Context, bucket string) (*GCSStorage, error) {
	if bucket == "" {
		return nil, errors.New("GCS bucket is required")
	}
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCSStorage{client: client, bucket: bucket}, nil
}

// Close releases the client.
func (s *GCSStorage) Close() error {
	return s.client.Close()
}

// Upload streams r into a new object.
func (s *GCSStorage) Upload(ctx context.Context, namespace, filename, contentType string, r io.Reader) (*FileInfo, error) {
	fileID := uuid.New()
	object := objectName(namespace, fileID, filename)

	w := s.client.Bucket(s.bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType
	w.Metadata = map[string]string{
		metaFileID:       fileID.String(),
		metaOriginalName: filename,
	}

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to write object: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to close object writer: %w", err)
	}
	return infoFromAttrs(w.Attrs()), nil
}

// Download opens the object for fileID.
func (s *GCSStorage) Download(ctx context.Context, namespace string, fileID uuid.UUID) (io.ReadCloser, *FileInfo, error) {
	attrs, err := s.find(ctx, namespace, fileID)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.client.Bucket(s.bucket).Object(attrs.Name).NewReader(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open object: %w", err)
	}
	return rc, infoFromAttrs(attrs), nil
}

// Delete removes the object for fileID.
func (s *GCSStorage) Delete(ctx context.Context, namespace string, fileID uuid.UUID) error {
	attrs, err := s.find(ctx, namespace, fileID)
	if err != nil {
		return err
	}
	if err := s.client.Bucket(s.bucket).Object(attrs.Name).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// List returns the objects of a namespace.
func (s *GCSStorage) List(ctx context.Context, namespace string) ([]*FileInfo, error) {
	files := []*FileInfo{}
	it := s.client.Bucket(s.bucket).Objects(ctx, &gcs.Query{Prefix: Namespace(namespace) + "/"})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		files = append(files, infoFromAttrs(attrs))
	}
	return files, nil
}

func (s *GCSStorage) find(ctx context.Context, namespace string, fileID uuid.UUID) (*gcs.ObjectAttrs, error) {
	prefix := path.Join(Namespace(namespace), fileID.String()[:8]+"_")
	it := s.client.Bucket(s.bucket).Objects(ctx, &gcs.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, fileID)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to look up object: %w", err)
		}
		if attrs.Metadata[metaFileID] == fileID.String() {
			return attrs, nil
		}
	}
}

func objectName(namespace string, fileID uuid.UUID, filename string) string {
	return path.Join(Namespace(namespace), storedName(fileID, filename))
}

func infoFromAttrs(attrs *gcs.ObjectAttrs) *FileInfo {
	if attrs == nil {
		return &FileInfo{}
	}
	info := &FileInfo{
		Name:        attrs.Metadata[metaOriginalName],
		Size:        attrs.Size,
		ContentType: attrs.ContentType,
		Path:        attrs.Name,
		CreatedAt:   attrs.Created,
	}
	if id, err := uuid.Parse(attrs.Metadata[metaFileID]); err == nil {
		info.ID = id
	}
	if info.Name == "" {
		info.Name = path.Base(attrs.Name)
	}
	return info
}
