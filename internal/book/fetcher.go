package book

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openshelf/openshelf/internal/importer"
	"github.com/openshelf/openshelf/internal/openlibrary"
)

// maxAuthorLookups caps the per-work author name resolution so a work with
// a long contributor list cannot fan out into dozens of upstream calls.
const maxAuthorLookups = 5

// WorkFetcher builds unsaved Book records from the OpenLibrary works API.
type WorkFetcher struct {
	client *openlibrary.Client
	logger *slog.Logger
}

func NewWorkFetcher(client *openlibrary.Client, logger *slog.Logger) *WorkFetcher {
	return &WorkFetcher{client: client, logger: logger}
}

func (f *WorkFetcher) Fetch(ctx context.Context, key string) (importer.Record, error) {
	work, err := f.client.GetWork(ctx, key)
	if err != nil {
		if errors.Is(err, openlibrary.ErrNotFound) {
			return nil, fmt.Errorf("work %s: %w", key, err)
		}
		return nil, err
	}

	b := &Book{
		Title:       work.Title,
		Description: work.Description,
		AuthorNames: f.resolveAuthorNames(ctx, work.AuthorKeys),
	}
	if work.CoverURL != "" {
		cover := work.CoverURL
		b.CoverURL = &cover
	}
	olKey := work.Key
	if olKey == "" {
		olKey = key
	}
	b.OpenLibraryKey = &olKey

	return b, nil
}

// resolveAuthorNames is best effort; a failed author lookup degrades the
// imported record rather than failing the whole import.
func (f *WorkFetcher) resolveAuthorNames(ctx context.Context, keys []string) string {
	if len(keys) > maxAuthorLookups {
		keys = keys[:maxAuthorLookups]
	}

	names := make([]string, 0, len(keys))
	for _, key := range keys {
		author, err := f.client.GetAuthor(ctx, key)
		if err != nil {
			f.logger.Warn("author name resolution failed during work import",
				"author_key", key, "error", err)
			continue
		}
		names = append(names, author.Name)
	}
	return strings.Join(names, ", ")
}
