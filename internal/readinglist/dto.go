package readinglist

import "errors"

type CreateListDTO struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (dto CreateListDTO) Validate() error {
	if dto.Name == "" {
		return errors.New("name is required")
	}
	if len(dto.Name) > 200 {
		return errors.New("name must be less than 200 characters")
	}
	return nil
}

type UpdateListDTO struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

func (dto UpdateListDTO) Validate() error {
	if dto.Name != nil && *dto.Name == "" {
		return errors.New("name cannot be empty")
	}
	return nil
}

type AddItemDTO struct {
	BookID   int64  `json:"book_id"`
	Position int    `json:"position"`
	Note     string `json:"note"`
}

func (dto AddItemDTO) Validate() error {
	if dto.BookID <= 0 {
		return errors.New("book_id is required")
	}
	if dto.Position < 0 {
		return errors.New("position cannot be negative")
	}
	return nil
}
