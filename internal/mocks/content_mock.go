package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/inkwell/portfolio/internal/models"
)

// PostSource is a mock implementation of loaders.PostSource
type PostSource struct {
	mock.Mock
}

func (m *PostSource) ListPosts(ctx context.Context) ([]models.PostMetadata, error) {
	args := m.Called(ctx)
	if posts, ok := args.Get(0).([]models.PostMetadata); ok {
		return posts, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *PostSource) ReadPost(ctx context.Context, slug string) (*models.Post, error) {
	args := m.Called(ctx, slug)
	if post, ok := args.Get(0).(*models.Post); ok {
		return post, args.Error(1)
	}
	return nil, args.Error(1)
}

// PageStore is a mock implementation of loaders.PageStore
type PageStore struct {
	mock.Mock
}

func (m *PageStore) ReadPage(ctx context.Context, name string) (string, error) {
	args := m.Called(ctx, name)
	return args.String(0), args.Error(1)
}

func (m *PageStore) WritePage(name, content string) error {
	args := m.Called(name, content)
	return args.Error(0)
}

// PhotoSource is a mock implementation of loaders.PhotoSource
type PhotoSource struct {
	mock.Mock
}

func (m *PhotoSource) ListPhotos(ctx context.Context) ([]models.Photo, error) {
	args := m.Called(ctx)
	if photos, ok := args.Get(0).([]models.Photo); ok {
		return photos, args.Error(1)
	}
	return nil, args.Error(1)
}

// BucketPhotoSource is a mock implementation of loaders.BucketPhotoSource
type BucketPhotoSource struct {
	mock.Mock
}

func (m *BucketPhotoSource) ListPhotos(ctx context.Context, bucket, prefix string) ([]models.Photo, error) {
	args := m.Called(ctx, bucket, prefix)
	if photos, ok := args.Get(0).([]models.Photo); ok {
		return photos, args.Error(1)
	}
	return nil, args.Error(1)
}

// Notifier is a mock implementation of loaders.Notifier
type Notifier struct {
	mock.Mock
}

func (m *Notifier) Notify(event models.ContentEvent) {
	m.Called(event)
}
