package service

import (
	"context"
	"errors"
	"io"
	"math"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"intakeflow/internal/model"
	"intakeflow/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testLogger = zerolog.New(io.Discard)

// ---- usage ----

type memUsageRepo struct {
	mu        sync.Mutex
	rows      map[string]*model.Usage
	adjustErr map[model.Resource]error
}

func newMemUsageRepo() *memUsageRepo {
	return &memUsageRepo{rows: map[string]*model.Usage{}, adjustErr: map[model.Resource]error{}}
}

func (r *memUsageRepo) Adjust(_ context.Context, userID string, resource model.Resource, delta float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.adjustErr[resource]; err != nil {
		return err
	}
	u, ok := r.rows[userID]
	if !ok {
		return repository.ErrNoRows
	}
	switch resource {
	case model.ResourceStorageBytes:
		u.StorageUsedBytes = int64(math.Max(0, float64(u.StorageUsedBytes)+delta))
	case model.ResourceAudioMinutes:
		u.AudioMinutesTranscribed = math.Max(0, u.AudioMinutesTranscribed+delta)
	case model.ResourceVideoMinutes:
		u.VideoMinutesUsed = math.Max(0, u.VideoMinutesUsed+delta)
	case model.ResourceFormsCreated:
		u.FormsCreatedCount = int64(math.Max(0, float64(u.FormsCreatedCount)+delta))
	case model.ResourceSubmissionsCreated:
		u.SubmissionsCount = int64(math.Max(0, float64(u.SubmissionsCount)+delta))
	}
	u.UpdatedAt = time.Now()
	return nil
}

func (r *memUsageRepo) GetByUserID(_ context.Context, userID string) (*model.Usage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.rows[userID]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *memUsageRepo) Ensure(_ context.Context, userID string, subscriptionID *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[userID]; !ok {
		r.rows[userID] = &model.Usage{UserID: userID, SubscriptionID: subscriptionID, CreatedAt: time.Now()}
	}
	return nil
}

func (r *memUsageRepo) get(userID string) model.Usage {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.rows[userID]; ok {
		return *u
	}
	return model.Usage{}
}

func (r *memUsageRepo) set(u model.Usage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[u.UserID] = &u
}

// ---- limits ----

type memLimitRepo struct {
	mu      sync.Mutex
	rows    map[string]*model.Limit
	upserts int
}

func newMemLimitRepo() *memLimitRepo {
	return &memLimitRepo{rows: map[string]*model.Limit{}}
}

func (r *memLimitRepo) GetByUserID(_ context.Context, userID string) (*model.Limit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.rows[userID]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

func (r *memLimitRepo) Upsert(_ context.Context, l *model.Limit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *l
	r.rows[l.UserID] = &cp
	r.upserts++
	return nil
}

// ---- subscriptions ----

type memSubscriptionRepo struct {
	mu   sync.Mutex
	rows map[string]*model.Subscription
}

func newMemSubscriptionRepo() *memSubscriptionRepo {
	return &memSubscriptionRepo{rows: map[string]*model.Subscription{}}
}

func (r *memSubscriptionRepo) find(match func(*model.Subscription) bool) *model.Subscription {
	for _, s := range r.rows {
		if match(s) {
			cp := *s
			return &cp
		}
	}
	return nil
}

func (r *memSubscriptionRepo) GetByUserID(_ context.Context, userID string) (*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.find(func(s *model.Subscription) bool { return s.UserID == userID }), nil
}

func (r *memSubscriptionRepo) GetByStripeSubscriptionID(_ context.Context, id string) (*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.find(func(s *model.Subscription) bool {
		return s.StripeSubscriptionID != nil && *s.StripeSubscriptionID == id
	}), nil
}

func (r *memSubscriptionRepo) GetByStripeCustomerID(_ context.Context, id string) (*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.find(func(s *model.Subscription) bool {
		return s.StripeCustomerID != nil && *s.StripeCustomerID == id
	}), nil
}

func (r *memSubscriptionRepo) EnsureFree(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[userID]; ok {
		return nil
	}
	r.rows[userID] = &model.Subscription{
		ID:      uuid.NewString(),
		UserID:  userID,
		Plan:    model.PlanFree,
		PlanKey: string(model.PlanFree),
		Status:  model.SubscriptionStatusActive,
	}
	return nil
}

func (r *memSubscriptionRepo) UpsertStripeSubscription(_ context.Context, s *model.Subscription) (*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	if existing, ok := r.rows[s.UserID]; ok {
		cp.ID = existing.ID
		cp.LastBilledAt = existing.LastBilledAt
	} else {
		cp.ID = uuid.NewString()
	}
	r.rows[s.UserID] = &cp
	out := cp
	return &out, nil
}

func (r *memSubscriptionRepo) byStripeID(id string) *model.Subscription {
	for _, s := range r.rows {
		if s.StripeSubscriptionID != nil && *s.StripeSubscriptionID == id {
			return s
		}
	}
	return nil
}

func (r *memSubscriptionRepo) UpdateStatus(_ context.Context, id string, status model.SubscriptionStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.byStripeID(id)
	if s == nil {
		return repository.ErrNoRows
	}
	s.Status = status
	return nil
}

func (r *memSubscriptionRepo) SetLastBilledAt(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.byStripeID(id)
	if s == nil {
		return repository.ErrNoRows
	}
	s.LastBilledAt = &at
	return nil
}

func (r *memSubscriptionRepo) set(s model.Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	r.rows[s.UserID] = &s
}

// ---- users ----

type memUserRepo struct {
	mu   sync.Mutex
	rows map[string]*model.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{rows: map[string]*model.User{}}
}

func (r *memUserRepo) CreateUser(_ context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *u
	r.rows[u.UserID] = &cp
	return nil
}

func (r *memUserRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.rows {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

// ---- forms ----

type memFormRepo struct {
	mu   sync.Mutex
	rows map[string]*model.Form
}

func newMemFormRepo() *memFormRepo {
	return &memFormRepo{rows: map[string]*model.Form{}}
}

func (r *memFormRepo) CreateForm(_ context.Context, f *model.Form) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f.ID = uuid.NewString()
	f.CreatedAt = time.Now()
	cp := *f
	r.rows[f.ID] = &cp
	return nil
}

func (r *memFormRepo) GetFormByID(_ context.Context, formID string) (*model.Form, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.rows[formID]
	if !ok {
		return nil, nil
	}
	cp := *f
	return &cp, nil
}

func (r *memFormRepo) GetFormsByUserID(_ context.Context, userID string, limit, offset int) ([]model.Form, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Form
	for _, f := range r.rows {
		if f.UserID == userID {
			out = append(out, *f)
		}
	}
	return page(out, limit, offset), nil
}

func (r *memFormRepo) UpdateForm(_ context.Context, f *model.Form) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[f.ID]; !ok {
		return repository.ErrNoRows
	}
	cp := *f
	r.rows[f.ID] = &cp
	return nil
}

func (r *memFormRepo) AdjustSubmissionsCount(_ context.Context, formID string, delta int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.rows[formID]; ok {
		f.SubmissionsCount = max(0, f.SubmissionsCount+delta)
	}
	return nil
}

func (r *memFormRepo) DeleteForm(_ context.Context, formID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[formID]; !ok {
		return false, nil
	}
	delete(r.rows, formID)
	return true, nil
}

func (r *memFormRepo) count(formID string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.rows[formID]; ok {
		return f.SubmissionsCount
	}
	return -1
}

// ---- submissions ----

type memSubmissionRepo struct {
	mu        sync.Mutex
	rows      map[string]*model.Submission
	seq       int
	createErr error
}

func newMemSubmissionRepo() *memSubmissionRepo {
	return &memSubmissionRepo{rows: map[string]*model.Submission{}}
}

func (r *memSubmissionRepo) CreateSubmission(_ context.Context, s *model.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.seq++
	s.ID = uuid.NewString()
	s.CreatedAt = time.Now().Add(time.Duration(r.seq) * time.Millisecond)
	cp := *s
	r.rows[s.ID] = &cp
	return nil
}

func (r *memSubmissionRepo) GetSubmissionByID(_ context.Context, id string) (*model.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *memSubmissionRepo) GetSubmissionsByIDs(_ context.Context, ids []string) ([]model.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Submission
	for _, id := range ids {
		if s, ok := r.rows[id]; ok {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *memSubmissionRepo) filter(match func(*model.Submission) bool, limit, offset int) []model.Submission {
	var out []model.Submission
	for _, s := range r.rows {
		if match(s) {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, limit, offset)
}

func (r *memSubmissionRepo) GetSubmissionsByFormID(_ context.Context, formID string, limit, offset int) ([]model.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filter(func(s *model.Submission) bool { return s.FormID == formID }, limit, offset), nil
}

func (r *memSubmissionRepo) GetSubmissionsByUserID(_ context.Context, userID string, limit, offset int) ([]model.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filter(func(s *model.Submission) bool { return s.UserID == userID }, limit, offset), nil
}

func (r *memSubmissionRepo) DeleteSubmissions(_ context.Context, ids []string) ([]repository.DeletedSubmission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []repository.DeletedSubmission
	for _, id := range ids {
		s, ok := r.rows[id]
		if !ok {
			continue
		}
		out = append(out, repository.DeletedSubmission{ID: s.ID, FormID: s.FormID, UserID: s.UserID, FilesSize: s.FilesSize})
		delete(r.rows, id)
	}
	return out, nil
}

func (r *memSubmissionRepo) UpdateResult(_ context.Context, id string, res *model.SubmissionResult) (*model.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.rows[id]
	if !ok {
		return nil, repository.ErrNoRows
	}
	s.Status = res.Status
	s.Transcript = res.Transcript
	s.Summary = res.Summary
	s.VideoSummary = res.VideoSummary
	s.JSONResultURL = res.JSONResultURL
	s.MarkdownResultURL = res.MarkdownResultURL
	s.ErrorMessage = res.ErrorMessage
	now := time.Now()
	s.ProcessedAt = &now
	cp := *s
	return &cp, nil
}

func (r *memSubmissionRepo) put(s model.Submission) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[s.ID] = &s
}

func (r *memSubmissionRepo) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// ---- dead letters ----

type memDLQRepo struct {
	mu       sync.Mutex
	messages []model.DeadLetterMessage
	err      error
}

func (r *memDLQRepo) Create(_ context.Context, m *model.DeadLetterMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.messages = append(r.messages, *m)
	return nil
}

// ---- storage ----

const testPublicBase = "https://cdn.test/storage/v1/object/public/videos"

type memStorage struct {
	mu        sync.Mutex
	objects   map[string]int64
	deleteErr error
	moveErr   error
	deleted   [][]string
}

func newMemStorage() *memStorage {
	return &memStorage{objects: map[string]int64{}}
}

func (s *memStorage) Size(_ context.Context, path string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	size, ok := s.objects[path]
	if !ok {
		return 0, ErrObjectNotFound
	}
	return size, nil
}

func (s *memStorage) Move(_ context.Context, src, dst string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.moveErr != nil {
		return s.moveErr
	}
	size, ok := s.objects[src]
	if !ok {
		return ErrObjectNotFound
	}
	s.objects[dst] = size
	delete(s.objects, src)
	return nil
}

func (s *memStorage) Delete(_ context.Context, paths []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, paths)
	if s.deleteErr != nil {
		return s.deleteErr
	}
	for _, p := range paths {
		delete(s.objects, p)
	}
	return nil
}

func (s *memStorage) PublicURL(path string) string {
	return testPublicBase + "/" + path
}

func (s *memStorage) PathFromURL(rawURL string) (string, bool) {
	p, ok := strings.CutPrefix(rawURL, testPublicBase+"/")
	return p, ok && p != ""
}

func (s *memStorage) PresignUpload(_ context.Context, path string, expires time.Duration) (string, error) {
	return "https://signed.test/" + path + "?expires=" + expires.String(), nil
}

func (s *memStorage) put(path string, size int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[path] = size
}

func (s *memStorage) has(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[path]
	return ok
}

type memCleanupQueue struct {
	mu   sync.Mutex
	jobs []CleanupJob
}

func (q *memCleanupQueue) Enqueue(_ context.Context, job CleanupJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return nil
}

// ---- workflow ----

type mockWorkflow struct {
	mock.Mock
}

func (m *mockWorkflow) TriggerTranscription(ctx context.Context, t WorkflowTrigger) error {
	return m.Called(ctx, t).Error(0)
}

func (m *mockWorkflow) TriggerVideoIntelligence(ctx context.Context, t WorkflowTrigger) error {
	return m.Called(ctx, t).Error(0)
}

// ---- assembled services ----

type testEnv struct {
	usageRepo   *memUsageRepo
	limitRepo   *memLimitRepo
	subRepo     *memSubscriptionRepo
	userRepo    *memUserRepo
	formRepo    *memFormRepo
	subsRepo    *memSubmissionRepo
	storage     *memStorage
	cleanup     *memCleanupQueue
	workflow    *mockWorkflow
	usage       UsageService
	limits      LimitService
	quota       QuotaService
	provision   ProvisioningService
	subs        SubscriptionService
	submissions SubmissionService
	forms       FormService
	processing  ProcessingService
	users       UserService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	e := &testEnv{
		usageRepo: newMemUsageRepo(),
		limitRepo: newMemLimitRepo(),
		subRepo:   newMemSubscriptionRepo(),
		userRepo:  newMemUserRepo(),
		formRepo:  newMemFormRepo(),
		subsRepo:  newMemSubmissionRepo(),
		storage:   newMemStorage(),
		cleanup:   &memCleanupQueue{},
		workflow:  &mockWorkflow{},
	}
	e.usage = NewUsageService(e.usageRepo, testLogger)
	e.limits = NewLimitService(e.limitRepo, e.subRepo, testLogger)
	e.quota = NewQuotaService(e.subRepo, e.limits, e.usage, testLogger)
	e.provision = NewProvisioningService(e.limitRepo, e.usage, testLogger)
	e.subs = NewSubscriptionService(e.subRepo, e.provision, testLogger)
	e.submissions = NewSubmissionService(e.subsRepo, e.formRepo, e.quota, e.usage, e.storage, e.cleanup, e.workflow, testLogger)
	e.forms = NewFormService(e.formRepo, e.quota, e.usage, e.submissions, testLogger)
	e.processing = NewProcessingService(e.subRepo, e.limitRepo, e.subsRepo, e.usage, e.workflow, testLogger)
	e.users = NewUserService(e.userRepo, e.subRepo, e.limits, e.usage)
	return e
}

// activate gives the user an active paid subscription with provisioned limits and a zeroed ledger.
func (e *testEnv) activate(t *testing.T, userID string, plan model.Plan) {
	t.Helper()
	e.subRepo.set(model.Subscription{
		UserID:  userID,
		Plan:    plan,
		PlanKey: string(plan),
		Status:  model.SubscriptionStatusActive,
	})
	_, err := e.provision.ProvisionLimits(context.Background(), userID, string(plan), nil)
	require.NoError(t, err)
}

var errBoom = errors.New("boom")
