package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"intakeflow/internal/model"
	"intakeflow/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrInvalidUpload is returned when an intake references an object outside the form's upload area.
var ErrInvalidUpload = errors.New("invalid upload path")

const (
	uploadURLExpiry  = 15 * time.Minute
	deletePageSize   = 100
	defaultVideoName = "video.mp4"
)

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// UploadTarget is where an end-user's browser PUTs the video before submitting the form.
type UploadTarget struct {
	UploadURL        string    `json:"upload_url"`
	UploadPath       string    `json:"upload_path"`
	FileSubmissionID string    `json:"file_submission_id"`
	ExpiresAt        time.Time `json:"expires_at"`
}

// IntakeRequest is one anonymous form submission referencing an already uploaded video.
type IntakeRequest struct {
	FormID           string
	FileSubmissionID string
	UploadPath       string
	Data             json.RawMessage
}

type SubmissionService interface {
	CreateUploadURL(ctx context.Context, formID, filename string) (*UploadTarget, *QuotaResult, error)
	// Intake returns a non-nil QuotaResult and no submission when the owner's quota denies it.
	Intake(ctx context.Context, req IntakeRequest) (*model.Submission, *QuotaResult, error)
	GetSubmission(ctx context.Context, userID, submissionID string) (*model.Submission, error)
	ListByForm(ctx context.Context, userID, formID string, limit, offset int) ([]model.Submission, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Submission, error)
	Delete(ctx context.Context, userID, submissionID string) error
	// DeleteMany skips ids that no longer exist and returns how many rows it removed.
	DeleteMany(ctx context.Context, userID string, submissionIDs []string) (int, error)
	DeleteAllForForm(ctx context.Context, userID, formID string) (int, error)
	RecordResult(ctx context.Context, submissionID string, res *model.SubmissionResult) (*model.Submission, error)
}

type submissionService struct {
	repo     repository.SubmissionRepository
	formRepo repository.FormRepository
	quotaSvc QuotaService
	usageSvc UsageService
	storage  ObjectStorage
	cleanup  CleanupQueue
	workflow WorkflowClient
	logger   zerolog.Logger
}

func NewSubmissionService(
	repo repository.SubmissionRepository,
	formRepo repository.FormRepository,
	quotaSvc QuotaService,
	usageSvc UsageService,
	storage ObjectStorage,
	cleanup CleanupQueue,
	workflow WorkflowClient,
	logger zerolog.Logger,
) SubmissionService {
	return &submissionService{
		repo:     repo,
		formRepo: formRepo,
		quotaSvc: quotaSvc,
		usageSvc: usageSvc,
		storage:  storage,
		cleanup:  cleanup,
		workflow: workflow,
		logger:   logger.With().Str("service", "SubmissionService").Logger(),
	}
}

func sanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return defaultVideoName
	}
	return name
}

// openForm loads a form that is still taking submissions.
func (s *submissionService) openForm(ctx context.Context, formID string) (*model.Form, error) {
	form, err := s.formRepo.GetFormByID(ctx, formID)
	if err != nil {
		s.logger.Error().Err(err).Str("form_id", formID).Msg("Failed to get form for intake")
		return nil, err
	}
	if form == nil {
		return nil, ErrFormNotFound
	}
	if !form.AcceptsSubmissions() {
		return nil, ErrFormClosed
	}
	return form, nil
}

func (s *submissionService) CreateUploadURL(ctx context.Context, formID, filename string) (*UploadTarget, *QuotaResult, error) {
	form, err := s.openForm(ctx, formID)
	if err != nil {
		return nil, nil, err
	}
	quota, err := s.quotaSvc.CheckQuota(ctx, form.UserID, model.ResourceSubmissionsCreated)
	if err != nil {
		return nil, nil, err
	}
	if !quota.Allowed {
		return nil, quota, nil
	}

	fileSubmissionID := uuid.NewString()
	uploadPath := fmt.Sprintf("%s%s/%s/%s", TempUploadPrefix, formID, fileSubmissionID, sanitizeFilename(filename))
	url, err := s.storage.PresignUpload(ctx, uploadPath, uploadURLExpiry)
	if err != nil {
		return nil, nil, err
	}
	return &UploadTarget{
		UploadURL:        url,
		UploadPath:       uploadPath,
		FileSubmissionID: fileSubmissionID,
		ExpiresAt:        time.Now().Add(uploadURLExpiry),
	}, nil, nil
}

func (s *submissionService) Intake(ctx context.Context, req IntakeRequest) (*model.Submission, *QuotaResult, error) {
	form, err := s.openForm(ctx, req.FormID)
	if err != nil {
		return nil, nil, err
	}
	ownerID := form.UserID
	log := s.logger.With().Str("form_id", form.ID).Str("user_id", ownerID).Logger()

	expectedPrefix := TempUploadPrefix + form.ID + "/"
	if !strings.HasPrefix(req.UploadPath, expectedPrefix) || strings.Contains(req.UploadPath, "..") {
		return nil, nil, ErrInvalidUpload
	}
	fileSubmissionID := req.FileSubmissionID
	if fileSubmissionID == "" {
		rest := strings.TrimPrefix(req.UploadPath, expectedPrefix)
		if i := strings.Index(rest, "/"); i > 0 {
			fileSubmissionID = rest[:i]
		} else {
			fileSubmissionID = uuid.NewString()
		}
	}

	// 1. Quota gates, all before any side effect
	quota, err := s.quotaSvc.CheckQuota(ctx, ownerID, model.ResourceSubmissionsCreated)
	if err != nil {
		return nil, nil, err
	}
	if !quota.Allowed {
		return nil, quota, nil
	}
	size, err := s.storage.Size(ctx, req.UploadPath)
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			return nil, nil, ErrInvalidUpload
		}
		return nil, nil, err
	}
	storageQuota, err := s.quotaSvc.CheckStorageQuota(ctx, ownerID, size)
	if err != nil {
		return nil, nil, err
	}
	if !storageQuota.Allowed {
		return nil, storageQuota, nil
	}

	// 2. Move the upload out of the temp area
	finalPath := fmt.Sprintf("submissions/%s/%s/%s/%s", ownerID, form.ID, fileSubmissionID, path.Base(req.UploadPath))
	if err := s.storage.Move(ctx, req.UploadPath, finalPath); err != nil {
		log.Error().Err(err).Str("source", req.UploadPath).Str("target", finalPath).Msg("Failed to move uploaded video")
		return nil, nil, fmt.Errorf("moving uploaded video: %w", err)
	}

	// 3. Record the submission
	sub := &model.Submission{
		FormID:           form.ID,
		UserID:           ownerID,
		FileSubmissionID: fileSubmissionID,
		Data:             req.Data,
		VideoURL:         s.storage.PublicURL(finalPath),
		VideoPath:        finalPath,
		FilesSize:        size,
		Status:           model.SubmissionStatusPending,
	}
	if err := s.repo.CreateSubmission(ctx, sub); err != nil {
		log.Error().Err(err).Msg("Failed to create submission; removing moved video")
		s.removeObjects(ctx, ownerID, []string{finalPath}, "intake_rollback")
		return nil, nil, err
	}

	// 4. Ledger. The submission is committed, so failures here are logged, not returned.
	// Storage is charged when the workflow reports the stored bytes.
	if err := s.usageSvc.Increment(ctx, ownerID, model.ResourceSubmissionsCreated, 1); err != nil {
		log.Error().Err(err).Str("submission_id", sub.ID).Msg("Failed to increment submissions usage")
	}
	if err := s.formRepo.AdjustSubmissionsCount(ctx, form.ID, 1); err != nil {
		log.Error().Err(err).Str("submission_id", sub.ID).Msg("Failed to increment form submissions count")
	}

	// 5. Kick off transcription. Don't return error, but log it; the workflow can be re-triggered.
	trigger := WorkflowTrigger{
		SubmissionID:     sub.ID,
		UserID:           ownerID,
		FormID:           form.ID,
		VideoURL:         sub.VideoURL,
		FileSubmissionID: fileSubmissionID,
	}
	if err := s.workflow.TriggerTranscription(ctx, trigger); err != nil {
		log.Error().Err(err).Str("submission_id", sub.ID).Msg("Failed to trigger transcription workflow")
	}

	log.Info().Str("submission_id", sub.ID).Int64("bytes", size).Msg("Submission received")
	return sub, nil, nil
}

func (s *submissionService) GetSubmission(ctx context.Context, userID, submissionID string) (*model.Submission, error) {
	sub, err := s.repo.GetSubmissionByID(ctx, submissionID)
	if err != nil {
		s.logger.Error().Err(err).Str("submission_id", submissionID).Msg("Failed to get submission")
		return nil, err
	}
	if sub == nil {
		return nil, ErrSubmissionNotFound
	}
	if sub.UserID != userID {
		return nil, ErrForbidden
	}
	return sub, nil
}

func (s *submissionService) ListByForm(ctx context.Context, userID, formID string, limit, offset int) ([]model.Submission, error) {
	form, err := s.formRepo.GetFormByID(ctx, formID)
	if err != nil {
		return nil, err
	}
	if form == nil {
		return nil, ErrFormNotFound
	}
	if form.UserID != userID {
		return nil, ErrForbidden
	}
	return s.repo.GetSubmissionsByFormID(ctx, formID, limit, offset)
}

func (s *submissionService) ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Submission, error) {
	return s.repo.GetSubmissionsByUserID(ctx, userID, limit, offset)
}

func (s *submissionService) Delete(ctx context.Context, userID, submissionID string) error {
	sub, err := s.GetSubmission(ctx, userID, submissionID)
	if err != nil {
		return err
	}
	if _, err := s.deleteRows(ctx, userID, []model.Submission{*sub}); err != nil {
		return err
	}
	return nil
}

func (s *submissionService) DeleteMany(ctx context.Context, userID string, submissionIDs []string) (int, error) {
	if len(submissionIDs) == 0 {
		return 0, nil
	}
	subs, err := s.repo.GetSubmissionsByIDs(ctx, submissionIDs)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to look up submissions for deletion")
		return 0, err
	}
	for _, sub := range subs {
		if sub.UserID != userID {
			return 0, ErrForbidden
		}
	}
	return s.deleteRows(ctx, userID, subs)
}

func (s *submissionService) DeleteAllForForm(ctx context.Context, userID, formID string) (int, error) {
	total := 0
	for {
		subs, err := s.repo.GetSubmissionsByFormID(ctx, formID, deletePageSize, 0)
		if err != nil {
			return total, err
		}
		if len(subs) == 0 {
			return total, nil
		}
		n, err := s.deleteRows(ctx, userID, subs)
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, nil
		}
	}
}

// artifactPaths returns every bucket object that belongs to a submission.
func (s *submissionService) artifactPaths(sub *model.Submission) []string {
	var paths []string
	if sub.VideoPath != "" {
		paths = append(paths, sub.VideoPath)
	}
	for _, u := range sub.ResultURLs() {
		if p, ok := s.storage.PathFromURL(u); ok {
			paths = append(paths, p)
		}
	}
	return paths
}

// deleteRows removes storage objects, then rows, and refunds storage for the rows this call actually deleted.
func (s *submissionService) deleteRows(ctx context.Context, userID string, subs []model.Submission) (int, error) {
	if len(subs) == 0 {
		return 0, nil
	}
	ids := make([]string, 0, len(subs))
	var paths []string
	for i := range subs {
		ids = append(ids, subs[i].ID)
		paths = append(paths, s.artifactPaths(&subs[i])...)
	}

	s.removeObjects(ctx, userID, paths, "submission_delete")

	deleted, err := s.repo.DeleteSubmissions(ctx, ids)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Int("count", len(ids)).Msg("Failed to delete submissions")
		return 0, err
	}

	var freed int64
	for _, d := range deleted {
		freed += d.FilesSize
	}
	if freed > 0 {
		if err := s.usageSvc.Decrement(ctx, userID, model.ResourceStorageBytes, float64(freed)); err != nil {
			s.logger.Error().Err(err).Str("user_id", userID).Int64("bytes", freed).Msg("Failed to refund storage usage")
		}
	}

	s.logger.Info().Str("user_id", userID).Int("deleted", len(deleted)).Int64("bytes_freed", freed).Msg("Submissions deleted")
	return len(deleted), nil
}

// removeObjects deletes best-effort and hands failures to the cleanup queue.
func (s *submissionService) removeObjects(ctx context.Context, userID string, paths []string, reason string) {
	if len(paths) == 0 {
		return
	}
	err := s.storage.Delete(ctx, paths)
	if err == nil {
		return
	}
	s.logger.Warn().Err(err).Strs("paths", paths).Msg("Failed to delete storage objects; queueing cleanup")
	if s.cleanup == nil {
		return
	}
	if err := s.cleanup.Enqueue(ctx, CleanupJob{Paths: paths, UserID: userID, Reason: reason}); err != nil {
		s.logger.Error().Err(err).Strs("paths", paths).Msg("Failed to queue storage cleanup")
	}
}

func (s *submissionService) RecordResult(ctx context.Context, submissionID string, res *model.SubmissionResult) (*model.Submission, error) {
	if res.Status != model.SubmissionStatusCompleted && res.Status != model.SubmissionStatusFailed {
		return nil, fmt.Errorf("invalid result status %q", res.Status)
	}
	sub, err := s.repo.UpdateResult(ctx, submissionID, res)
	if err != nil {
		if errors.Is(err, repository.ErrNoRows) {
			return nil, ErrSubmissionNotFound
		}
		s.logger.Error().Err(err).Str("submission_id", submissionID).Msg("Failed to record workflow result")
		return nil, err
	}
	s.logger.Info().Str("submission_id", submissionID).Str("status", string(res.Status)).Msg("Workflow result recorded")
	return sub, nil
}
