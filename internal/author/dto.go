package author

import "errors"

type CreateAuthorDTO struct {
	Name string `json:"name"`
	Bio  string `json:"bio"`
}

func (dto CreateAuthorDTO) Validate() error {
	if dto.Name == "" {
		return errors.New("name is required")
	}
	if len(dto.Name) > 255 {
		return errors.New("name must be less than 255 characters")
	}
	return nil
}

type UpdateAuthorDTO struct {
	Name *string `json:"name,omitempty"`
	Bio  *string `json:"bio,omitempty"`
}

func (dto UpdateAuthorDTO) Validate() error {
	if dto.Name != nil && *dto.Name == "" {
		return errors.New("name cannot be empty")
	}
	return nil
}

// ImportAuthorDTO requests an import from the external catalog.
type ImportAuthorDTO struct {
	OpenLibraryKey string `json:"open_library_key"`
}

func (dto ImportAuthorDTO) Validate() error {
	if dto.OpenLibraryKey == "" {
		return errors.New("open_library_key is required")
	}
	return nil
}
