package user

import "errors"

type UpdateProfileDTO struct {
	Name *string `json:"name,omitempty"`
}

func (dto UpdateProfileDTO) Validate() error {
	if dto.Name != nil && len(*dto.Name) > 255 {
		return errors.New("name must be less than 255 characters")
	}
	return nil
}

type ChangePasswordDTO struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (dto ChangePasswordDTO) Validate() error {
	if dto.CurrentPassword == "" {
		return errors.New("current_password is required")
	}
	if len(dto.NewPassword) < 8 {
		return errors.New("new_password must be at least 8 characters")
	}
	return nil
}
