package library

import "errors"

// AddEntryDTO shelves a book by local id or OpenLibrary key. The key path
// imports the book speculatively when it is not in the catalog.
type AddEntryDTO struct {
	BookID         *int64  `json:"book_id,omitempty"`
	OpenLibraryKey *string `json:"open_library_key,omitempty"`
	Shelf          string  `json:"shelf"`
}

func (dto AddEntryDTO) Validate() error {
	if dto.BookID == nil && dto.OpenLibraryKey == nil {
		return errors.New("either book_id or open_library_key is required")
	}
	if dto.BookID != nil && dto.OpenLibraryKey != nil {
		return errors.New("book_id and open_library_key are mutually exclusive")
	}
	if dto.OpenLibraryKey != nil && *dto.OpenLibraryKey == "" {
		return errors.New("open_library_key cannot be empty")
	}
	if !ValidShelf(dto.Shelf) {
		return errors.New("shelf must be one of want_to_read, reading, finished")
	}
	return nil
}

type MoveEntryDTO struct {
	Shelf string `json:"shelf"`
}

func (dto MoveEntryDTO) Validate() error {
	if !ValidShelf(dto.Shelf) {
		return errors.New("shelf must be one of want_to_read, reading, finished")
	}
	return nil
}
