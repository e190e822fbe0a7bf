package dto

import "time"

type FormCreateDTO struct {
	Name        string `json:"name" minLength:"1" maxLength:"200"`
	Description string `json:"description,omitempty" maxLength:"2000"`
}

// FormUpdateDTO is a partial update; absent fields are left unchanged.
type FormUpdateDTO struct {
	Name        *string `json:"name,omitempty" minLength:"1" maxLength:"200"`
	Description *string `json:"description,omitempty" maxLength:"2000"`
	Status      *string `json:"status,omitempty" enum:"active,completed"`
}

type FormResponseDTO struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	Status           string    `json:"status"`
	SubmissionsCount int64     `json:"submissions_count"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
