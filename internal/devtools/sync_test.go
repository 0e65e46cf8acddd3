package devtools

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/inkwell/portfolio/internal/mocks"
	"github.com/inkwell/portfolio/internal/models"
	"github.com/inkwell/portfolio/pkg/file"
	httpUtils "github.com/inkwell/portfolio/pkg/httpUtils"
	"github.com/inkwell/portfolio/pkg/jwt"
)

func writePost(t *testing.T, dir, name, doc string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(doc), 0o644))
}

func signToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.MapClaims{
		"sub": "author",
		"exp": exp.Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	return token
}

func newTestSyncer(api BlogSyncAPI) (*BlogSyncer, *[]time.Duration) {
	fileClient := file.NewFileService()
	s := NewBlogSyncer(api, fileClient, jwt.NewJWTManager(fileClient, nil), zerolog.Nop())
	s.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	var sleeps []time.Duration
	s.sleep = func(_ context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}
	return s, &sleeps
}

// TestCollectPosts verifies defaults for missing frontmatter fields and skipped files.
func TestCollectPosts(t *testing.T) {
	dir := t.TempDir()
	writePost(t, dir, "full.md", "---\ntitle: Full\nslug: full-post\ndate: 2024-01-02\nlang: zh-tw\nduration: 2min\ntags: [Go]\ndescription: d\n---\nbody\n")
	writePost(t, dir, "bare.md", "---\ntitle: \"\"\n---\nbody\n")
	writePost(t, dir, "broken.md", "no frontmatter here")
	writePost(t, dir, "ignored.txt", "---\ntitle: x\n---\n")

	s, _ := newTestSyncer(new(mocks.BlogSyncAPI))

	blogs, fileBySlug, fileErrors, err := s.CollectPosts(dir)

	require.NoError(t, err)
	require.Len(t, blogs, 2)
	assert.Len(t, fileErrors, 1)
	assert.Equal(t, models.CreateBlogRequest{
		Title: "bare", Slug: "bare", Date: "2024-06-01", Lang: "en", Duration: "5min",
		Tags: []string{}, IsPublished: true,
	}, blogs[0])
	assert.Equal(t, "full-post", blogs[1].Slug)
	assert.Equal(t, []string{"Go"}, blogs[1].Tags)
	assert.Equal(t, "full.md", fileBySlug["full-post"])
}

// TestCollectPostsMissingDir verifies a missing directory is an error.
func TestCollectPostsMissingDir(t *testing.T) {
	s, _ := newTestSyncer(new(mocks.BlogSyncAPI))

	_, _, _, err := s.CollectPosts(filepath.Join(t.TempDir(), "missing"))

	assert.ErrorContains(t, err, "not found")
}

// TestSyncSuccess verifies the batch is sent once with the token and summarized.
func TestSyncSuccess(t *testing.T) {
	dir := t.TempDir()
	writePost(t, dir, "a.md", "---\ntitle: A\nslug: a\ndate: 2024-01-01\n---\nbody\n")
	token := signToken(t, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))

	api := new(mocks.BlogSyncAPI)
	api.On("SyncBlogs", mock.Anything, mock.MatchedBy(func(b []models.CreateBlogRequest) bool {
		return len(b) == 1 && b[0].Slug == "a"
	}), token).Return(&models.SyncResponse{
		Summary: models.SyncSummary{Total: 1, Success: 1},
		Results: []models.SyncResult{{Action: "created", Blog: &models.BlogDetail{Slug: "a", Title: "A"}}},
	}, nil).Once()

	s, sleeps := newTestSyncer(api)
	report, err := s.Sync(context.Background(), SyncOptions{Dir: dir, Token: token, RetryAttempts: 2})

	require.NoError(t, err)
	assert.Equal(t, 1, report.Attempts)
	assert.Empty(t, report.Warnings)
	assert.Empty(t, *sleeps)

	var out bytes.Buffer
	report.Print(&out)
	assert.Contains(t, out.String(), "Total: 1\nSuccess: 1\nFailed: 0")
	assert.Contains(t, out.String(), "a.md (created): A")
	api.AssertExpectations(t)
}

// TestSyncRetriesWithBackoff verifies transient errors are retried with growing delays.
func TestSyncRetriesWithBackoff(t *testing.T) {
	dir := t.TempDir()
	writePost(t, dir, "a.md", "---\ntitle: A\n---\nbody\n")

	api := new(mocks.BlogSyncAPI)
	api.On("SyncBlogs", mock.Anything, mock.Anything, "").
		Return(nil, &httpUtils.StatusError{StatusCode: 503}).Twice()
	api.On("SyncBlogs", mock.Anything, mock.Anything, "").
		Return(&models.SyncResponse{Summary: models.SyncSummary{Total: 1, Success: 1}}, nil).Once()

	s, sleeps := newTestSyncer(api)
	report, err := s.Sync(context.Background(), SyncOptions{Dir: dir, RetryAttempts: 2, BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second})

	require.NoError(t, err)
	assert.Equal(t, 3, report.Attempts)
	require.Len(t, *sleeps, 2)
	assert.GreaterOrEqual(t, (*sleeps)[0], 125*time.Millisecond)
	assert.LessOrEqual(t, (*sleeps)[0], 175*time.Millisecond)
	assert.GreaterOrEqual(t, (*sleeps)[1], 250*time.Millisecond)
	assert.Contains(t, report.Warnings[0], "no authentication token")
}

// TestSyncGivesUp verifies the final error after all retries.
func TestSyncGivesUp(t *testing.T) {
	dir := t.TempDir()
	writePost(t, dir, "a.md", "---\ntitle: A\n---\nbody\n")

	api := new(mocks.BlogSyncAPI)
	api.On("SyncBlogs", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

	s, sleeps := newTestSyncer(api)
	report, err := s.Sync(context.Background(), SyncOptions{Dir: dir, RetryAttempts: 1})

	require.Error(t, err)
	assert.Equal(t, 2, report.Attempts)
	assert.Len(t, *sleeps, 1)
	api.AssertNumberOfCalls(t, "SyncBlogs", 2)
}

// TestSyncClientErrorNotRetried verifies 4xx responses stop immediately.
func TestSyncClientErrorNotRetried(t *testing.T) {
	dir := t.TempDir()
	writePost(t, dir, "a.md", "---\ntitle: A\n---\nbody\n")

	api := new(mocks.BlogSyncAPI)
	api.On("SyncBlogs", mock.Anything, mock.Anything, mock.Anything).Return(nil, &httpUtils.StatusError{StatusCode: 401})

	s, _ := newTestSyncer(api)
	report, err := s.Sync(context.Background(), SyncOptions{Dir: dir, RetryAttempts: 3})

	require.Error(t, err)
	assert.Equal(t, 1, report.Attempts)
}

// TestSyncExpiredTokenWarning verifies an expired token is reported but still sent.
func TestSyncExpiredTokenWarning(t *testing.T) {
	dir := t.TempDir()
	writePost(t, dir, "a.md", "---\ntitle: A\n---\nbody\n")
	token := signToken(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC))

	api := new(mocks.BlogSyncAPI)
	api.On("SyncBlogs", mock.Anything, mock.Anything, token).Return(&models.SyncResponse{}, nil)

	s, _ := newTestSyncer(api)
	report, err := s.Sync(context.Background(), SyncOptions{Dir: dir, Token: token})

	require.NoError(t, err)
	require.Len(t, report.Warnings, 1)
	assert.Contains(t, report.Warnings[0], "token expired at 2020-01-01")
}
