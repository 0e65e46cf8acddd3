package s3

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/inkwell/portfolio/internal/models"
)

// ObjectStorageClient lists gallery photos kept in a bucket.
type ObjectStorageClient interface {
	Connect(endpoint, accessKeyID, secretAccessKey string, useSSL bool) error
	ListPhotos(ctx context.Context, bucket, prefix string) ([]models.Photo, error)
}

// ObjectStorage holds the object storage client instance
type ObjectStorage struct {
	Conn       *minio.Client
	publicURL  string
	extensions map[string]struct{}
}

// NewObjectStorage returns a client whose photo URLs are rooted at publicURL. Only
// objects with one of extensions are listed.
func NewObjectStorage(publicURL string, extensions map[string]struct{}) *ObjectStorage {
	return &ObjectStorage{publicURL: publicURL, extensions: extensions}
}

// Connect creates the minio client. No request is made, so a storage outage does not
// block startup; failures surface on the first listing instead.
func (o *ObjectStorage) Connect(endpoint string, accessKeyID string, secretAccessKey string, useSSL bool) error {
	var err error
	o.Conn, err = minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKeyID, secretAccessKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return fmt.Errorf("failed to create minio client: %w", err)
	}
	if o.publicURL == "" {
		o.publicURL = o.Conn.EndpointURL().String()
	}
	return nil
}

// ListPhotos lists the images under prefix in bucket. The listing stops early when ctx
// is cancelled.
func (o *ObjectStorage) ListPhotos(ctx context.Context, bucket, prefix string) ([]models.Photo, error) {
	if o.Conn == nil {
		return nil, errors.New("object storage is not connected")
	}

	var objects []minio.ObjectInfo
	for obj := range o.Conn.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list bucket %s: %w", bucket, obj.Err)
		}
		objects = append(objects, obj)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return photosFromObjects(objects, o.publicURL, bucket, o.extensions), nil
}

func photosFromObjects(objects []minio.ObjectInfo, publicURL, bucket string, extensions map[string]struct{}) []models.Photo {
	base := strings.TrimRight(publicURL, "/")
	photos := make([]models.Photo, 0, len(objects))
	for _, obj := range objects {
		if strings.HasSuffix(obj.Key, "/") {
			continue
		}
		if extensions != nil {
			if _, ok := extensions[strings.ToLower(path.Ext(obj.Key))]; !ok {
				continue
			}
		}
		photos = append(photos, models.Photo{
			Src:          base + "/" + bucket + "/" + obj.Key,
			Alt:          "Photo " + path.Base(obj.Key),
			OriginalPath: obj.Key,
		})
	}
	return photos
}
