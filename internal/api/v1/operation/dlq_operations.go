package operation

import "intakeflow/internal/api/v1/dto"

// Dead Letter Queue Operations

type RecordDLQInput struct {
	Body dto.PubSubPushRequest `json:"body"`
}

type RecordDLQOutput struct {
	// 204 No Content
}
