package genre

import "errors"

type CreateGenreDTO struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (dto CreateGenreDTO) Validate() error {
	if dto.Name == "" {
		return errors.New("name is required")
	}
	if len(dto.Name) > 100 {
		return errors.New("name must be less than 100 characters")
	}
	return nil
}

type UpdateGenreDTO struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

func (dto UpdateGenreDTO) Validate() error {
	if dto.Name != nil && *dto.Name == "" {
		return errors.New("name cannot be empty")
	}
	return nil
}
