package rate

import "errors"

// CreateRateDTO targets a book either by local id or by OpenLibrary key,
// never both. The key path triggers the speculative import workflow when
// the book is not in the catalog yet.
type CreateRateDTO struct {
	BookID         *int64  `json:"book_id,omitempty"`
	OpenLibraryKey *string `json:"open_library_key,omitempty"`
	Score          int     `json:"score"`
	Review         string  `json:"review"`
}

func (dto CreateRateDTO) Validate() error {
	if dto.BookID == nil && dto.OpenLibraryKey == nil {
		return errors.New("either book_id or open_library_key is required")
	}
	if dto.BookID != nil && dto.OpenLibraryKey != nil {
		return errors.New("book_id and open_library_key are mutually exclusive")
	}
	if dto.OpenLibraryKey != nil && *dto.OpenLibraryKey == "" {
		return errors.New("open_library_key cannot be empty")
	}
	if dto.Score < 1 || dto.Score > 5 {
		return errors.New("score must be between 1 and 5")
	}
	return nil
}

type UpdateRateDTO struct {
	Score  *int    `json:"score,omitempty"`
	Review *string `json:"review,omitempty"`
}

func (dto UpdateRateDTO) Validate() error {
	if dto.Score != nil && (*dto.Score < 1 || *dto.Score > 5) {
		return errors.New("score must be between 1 and 5")
	}
	return nil
}
