package operation

import "intakeflow/internal/api/v1/dto"

// Form CRUD Operations

type CreateFormInput struct {
	Body dto.FormCreateDTO `json:"body"`
}

type CreateFormOutput struct {
	Body dto.FormResponseDTO `json:"body"`
}

type ListFormsInput struct {
	Limit  int `query:"limit" default:"50" minimum:"1" maximum:"200" doc:"Number of forms"`
	Offset int `query:"offset" default:"0" minimum:"0" doc:"Offset for pagination"`
}

type ListFormsOutput struct {
	Body []dto.FormResponseDTO `json:"body"`
}

type GetFormInput struct {
	FormID string `path:"formId" doc:"Form ID"`
}

type GetFormOutput struct {
	Body dto.FormResponseDTO `json:"body"`
}

type UpdateFormInput struct {
	FormID string            `path:"formId" doc:"Form ID"`
	Body   dto.FormUpdateDTO `json:"body"`
}

type UpdateFormOutput struct {
	Body dto.FormResponseDTO `json:"body"`
}

type DeleteFormInput struct {
	FormID string `path:"formId" doc:"Form ID"`
}

type DeleteFormOutput struct {
	// 204 No Content
}
