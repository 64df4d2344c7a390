package book

import "errors"

// CreateBookDTO is the request payload for creating a book directly.
type CreateBookDTO struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	AuthorNames string  `json:"author_names"`
	CoverURL    *string `json:"cover_url,omitempty"`
}

func (dto CreateBookDTO) Validate() error {
	if dto.Title == "" {
		return errors.New("title is required")
	}
	if len(dto.Title) > 500 {
		return errors.New("title must be less than 500 characters")
	}
	return nil
}

// UpdateBookDTO carries the mutable fields of a book.
type UpdateBookDTO struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	AuthorNames *string `json:"author_names,omitempty"`
	CoverURL    *string `json:"cover_url,omitempty"`
}

func (dto UpdateBookDTO) Validate() error {
	if dto.Title != nil && *dto.Title == "" {
		return errors.New("title cannot be empty")
	}
	return nil
}
