package s3

import (
	"context"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhotosFromObjects(t *testing.T) {
	objects := []minio.ObjectInfo{
		{Key: "gallery/"},
		{Key: "gallery/3.webp"},
		{Key: "gallery/notes.txt"},
		{Key: "gallery/12.JPG"},
	}

	photos := photosFromObjects(objects, "https://cdn.example.com/", "photos", map[string]struct{}{".webp": {}, ".jpg": {}})

	require.Len(t, photos, 2)
	assert.Equal(t, "https://cdn.example.com/photos/gallery/3.webp", photos[0].Src)
	assert.Equal(t, "Photo 3.webp", photos[0].Alt)
	assert.Equal(t, "gallery/12.JPG", photos[1].OriginalPath)
}

func TestObjectStorage_ListPhotos_NotConnected(t *testing.T) {
	_, err := NewObjectStorage("", nil).ListPhotos(context.Background(), "photos", "")
	assert.Error(t, err)
}

func TestObjectStorage_Connect(t *testing.T) {
	o := NewObjectStorage("", nil)

	require.NoError(t, o.Connect("localhost:9000", "key", "secret", false))
	assert.Equal(t, "http://localhost:9000", o.publicURL)

	assert.Error(t, NewObjectStorage("", nil).Connect("bad endpoint/with/path", "k", "s", false))
}
