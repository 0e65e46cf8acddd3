package loaders

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/inkwell/portfolio/internal/constants"
	"github.com/inkwell/portfolio/internal/fallback"
	"github.com/inkwell/portfolio/internal/models"
	"github.com/inkwell/portfolio/pkg/backend"
	"github.com/inkwell/portfolio/pkg/content"
)

// EventPageUpdated is broadcast when a page's local copy was refreshed from the API.
const EventPageUpdated = "page-updated"

// PageStore is the local page tier.
type PageStore interface {
	ReadPage(ctx context.Context, name string) (string, error)
	WritePage(name, content string) error
}

// Notifier receives content change events.
type Notifier interface {
	Notify(event models.ContentEvent)
}

// PageLoader serves editable pages client-first: the local file answers immediately and
// a newer API version replaces it in the background.
type PageLoader struct {
	fb       *fallback.Fallback
	api      backend.BlogAPI
	store    PageStore
	notifier Notifier
	timeout  time.Duration
	defaults map[string]string
	logger   zerolog.Logger
	now      func() time.Time
}

// NewPageLoader creates a new PageLoader. notifier may be nil.
func NewPageLoader(fb *fallback.Fallback, api backend.BlogAPI, store PageStore, notifier Notifier, timeout time.Duration, logger zerolog.Logger) *PageLoader {
	if timeout <= 0 {
		timeout = constants.DefaultBackgroundSyncTimeout
	}
	return &PageLoader{
		fb:       fb,
		api:      api,
		store:    store,
		notifier: notifier,
		timeout:  timeout,
		defaults: map[string]string{
			constants.PageHome:    "",
			constants.PageProject: constants.DefaultProjectContent,
		},
		logger: logger,
		now:    time.Now,
	}
}

// LoadPage returns the markdown of page name.
func (l *PageLoader) LoadPage(ctx context.Context, name string) (fallback.Result[string], error) {
	remote := func(ctx context.Context) (string, error) {
		page, err := l.api.FetchPageByName(ctx, name, l.timeout)
		if err != nil {
			return "", err
		}
		return page.Content, nil
	}
	local := func(ctx context.Context) (string, error) {
		text, err := l.store.ReadPage(ctx, name)
		if errors.Is(err, content.ErrNotFound) {
			if def, ok := l.defaults[name]; ok {
				return def, nil
			}
		}
		return text, err
	}

	return fallback.ClientFirst(ctx, l.fb, remote, local, func(text string) {
		l.refresh(name, text)
	})
}

// refresh writes newer remote content through to the local tier and announces it.
func (l *PageLoader) refresh(name, text string) {
	if err := l.store.WritePage(name, text); err != nil {
		l.logger.Error().Err(err).Str("page", name).Msg("Failed to update local page copy")
		return
	}
	l.logger.Info().Str("page", name).Msg("Local page copy updated from backend")

	if l.notifier != nil {
		l.notifier.Notify(models.ContentEvent{Type: EventPageUpdated, Name: name, At: l.now()})
	}
}
