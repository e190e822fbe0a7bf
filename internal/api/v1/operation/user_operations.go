package operation

import "intakeflow/internal/api/v1/dto"

// User Operations

type CreateUserInput struct {
	Body dto.UserCreateDTO `json:"body"`
}

type CreateUserOutput struct {
	Body dto.UserResponseDTO `json:"body"`
}

type GetUserInput struct{}

type GetUserOutput struct {
	Body dto.UserResponseDTO `json:"body"`
}

type GetUsageInput struct{}

type GetUsageOutput struct {
	Body dto.UsageOverviewDTO `json:"body"`
}
