package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/inkwell/portfolio/internal/models"
)

// BlogAPI is a mock implementation of backend.BlogAPI
type BlogAPI struct {
	mock.Mock
}

func (m *BlogAPI) FetchBlogs(ctx context.Context, query models.BlogQuery, timeout time.Duration) ([]models.BlogDetail, error) {
	args := m.Called(ctx, query, timeout)
	if blogs, ok := args.Get(0).([]models.BlogDetail); ok {
		return blogs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *BlogAPI) FetchBlogBySlug(ctx context.Context, slug string, timeout time.Duration) (*models.BlogDetail, error) {
	args := m.Called(ctx, slug, timeout)
	if blog, ok := args.Get(0).(*models.BlogDetail); ok {
		return blog, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *BlogAPI) FetchPageByName(ctx context.Context, name string, timeout time.Duration) (*models.PageData, error) {
	args := m.Called(ctx, name, timeout)
	if page, ok := args.Get(0).(*models.PageData); ok {
		return page, args.Error(1)
	}
	return nil, args.Error(1)
}

// BlogSyncAPI is a mock implementation of devtools.BlogSyncAPI
type BlogSyncAPI struct {
	mock.Mock
}

func (m *BlogSyncAPI) SyncBlogs(ctx context.Context, blogs []models.CreateBlogRequest, token string) (*models.SyncResponse, error) {
	args := m.Called(ctx, blogs, token)
	if resp, ok := args.Get(0).(*models.SyncResponse); ok {
		return resp, args.Error(1)
	}
	return nil, args.Error(1)
}
