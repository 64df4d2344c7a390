package author

import (
	"context"
	"errors"
	"fmt"

	"github.com/openshelf/openshelf/internal/importer"
	"github.com/openshelf/openshelf/internal/openlibrary"
)

// AuthorFetcher builds unsaved Author records from the OpenLibrary
// authors API.
type AuthorFetcher struct {
	client *openlibrary.Client
}

func NewAuthorFetcher(client *openlibrary.Client) *AuthorFetcher {
	return &AuthorFetcher{client: client}
}

func (f *AuthorFetcher) Fetch(ctx context.Context, key string) (importer.Record, error) {
	olAuthor, err := f.client.GetAuthor(ctx, key)
	if err != nil {
		if errors.Is(err, openlibrary.ErrNotFound) {
			return nil, fmt.Errorf("author %s: %w", key, err)
		}
		return nil, err
	}

	olKey := olAuthor.Key
	if olKey == "" {
		olKey = key
	}

	return &Author{
		Name:           olAuthor.Name,
		Bio:            olAuthor.Bio,
		OpenLibraryKey: &olKey,
	}, nil
}
