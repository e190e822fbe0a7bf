package handler

import (
	"intakeflow/internal/api/v1/dto"
	"intakeflow/internal/model"
	"intakeflow/internal/service"
)

func toUserDTO(u *model.User) dto.UserResponseDTO {
	return dto.UserResponseDTO{
		UserID:    u.UserID,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func toFormDTO(f *model.Form) dto.FormResponseDTO {
	return dto.FormResponseDTO{
		ID:               f.ID,
		Name:             f.Name,
		Description:      f.Description,
		Status:           string(f.Status),
		SubmissionsCount: f.SubmissionsCount,
		CreatedAt:        f.CreatedAt,
		UpdatedAt:        f.UpdatedAt,
	}
}

func toSubmissionDTO(s *model.Submission) dto.SubmissionResponseDTO {
	return dto.SubmissionResponseDTO{
		ID:                s.ID,
		FormID:            s.FormID,
		FileSubmissionID:  s.FileSubmissionID,
		Data:              s.Data,
		VideoURL:          s.VideoURL,
		Status:            string(s.Status),
		Transcript:        s.Transcript,
		Summary:           s.Summary,
		VideoSummary:      s.VideoSummary,
		JSONResultURL:     s.JSONResultURL,
		MarkdownResultURL: s.MarkdownResultURL,
		FilesSize:         s.FilesSize,
		ErrorMessage:      s.ErrorMessage,
		ProcessedAt:       s.ProcessedAt,
		CreatedAt:         s.CreatedAt,
	}
}

func toSubmissionDTOs(subs []model.Submission) []dto.SubmissionResponseDTO {
	out := make([]dto.SubmissionResponseDTO, 0, len(subs))
	for i := range subs {
		out = append(out, toSubmissionDTO(&subs[i]))
	}
	return out
}

func toSubscriptionDTO(s *model.Subscription) dto.SubscriptionDTO {
	return dto.SubscriptionDTO{
		Plan:               string(s.Plan),
		Status:             string(s.Status),
		CurrentPeriodStart: s.CurrentPeriodStart,
		CurrentPeriodEnd:   s.CurrentPeriodEnd,
		LastBilledAt:       s.LastBilledAt,
	}
}

func toLimitsDTO(c service.Ceilings, source service.LimitSource) dto.LimitsDTO {
	return dto.LimitsDTO{
		Source:                   string(source),
		StorageLimitBytes:        c.StorageBytes,
		FormsLimit:               c.Forms,
		SubmissionsLimit:         c.Submissions,
		AudioMinutesLimit:        c.AudioMinutes,
		VideoMinutesLimit:        c.VideoMinutes,
		VideoIntelligenceEnabled: c.VideoIntelligence,
	}
}

func toUsageDTO(u *model.Usage) *dto.UsageDTO {
	if u == nil {
		return nil
	}
	return &dto.UsageDTO{
		StorageUsedBytes:        u.StorageUsedBytes,
		AudioMinutesTranscribed: u.AudioMinutesTranscribed,
		VideoMinutesUsed:        u.VideoMinutesUsed,
		FormsCreatedCount:       u.FormsCreatedCount,
		SubmissionsCount:        u.SubmissionsCount,
	}
}
