package service

import "errors"

var (
	ErrUserNotProvisioned  = errors.New("user has no usage row")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidResource     = errors.New("unknown resource")
	ErrUnknownPlan         = errors.New("unknown plan")
	ErrUserNotFound        = errors.New("user not found")
	ErrFormNotFound        = errors.New("form not found")
	ErrFormClosed          = errors.New("form no longer accepts submissions")
	ErrSubmissionNotFound  = errors.New("submission not found")
	ErrForbidden           = errors.New("forbidden")
	ErrObjectNotFound      = errors.New("object not found in storage")
	ErrWorkflowUnavailable = errors.New("workflow endpoint unavailable")
)
