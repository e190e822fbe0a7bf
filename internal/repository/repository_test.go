package repository

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"intakeflow/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB connects to TEST_DATABASE_URL and applies the schema. The pgmq part of the
// migration is skipped so a plain Postgres is enough.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL is not set, skip repository integration tests")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, file, _, _ := runtime.Caller(0)
	raw, err := os.ReadFile(filepath.Join(filepath.Dir(file), "..", "..", "db", "migrations", "0001_init.sql"))
	require.NoError(t, err)
	schema, _, _ := strings.Cut(string(raw), "CREATE EXTENSION IF NOT EXISTS pgmq")
	_, err = pool.Exec(ctx, schema)
	require.NoError(t, err)
	return pool
}

func createTestUser(t *testing.T, pool *pgxpool.Pool) string {
	t.Helper()
	id := "user-" + uuid.NewString()
	require.NoError(t, NewUserRepo(pool).CreateUser(context.Background(), &model.User{UserID: id, Name: "Test", Email: id + "@example.com"}))
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), "DELETE FROM users WHERE user_id = $1", id)
	})
	return id
}

func TestUsageRepo_AdjustClampsAtZero(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewUsageRepo(pool)
	userID := createTestUser(t, pool)

	assert.ErrorIs(t, repo.Adjust(ctx, userID, model.ResourceStorageBytes, 10), ErrNoRows)

	require.NoError(t, repo.Ensure(ctx, userID, nil))
	require.NoError(t, repo.Adjust(ctx, userID, model.ResourceStorageBytes, 100))
	require.NoError(t, repo.Adjust(ctx, userID, model.ResourceStorageBytes, -250))
	require.NoError(t, repo.Adjust(ctx, userID, model.ResourceAudioMinutes, 1.5))
	require.NoError(t, repo.Adjust(ctx, userID, model.ResourceAudioMinutes, 2.25))
	require.NoError(t, repo.Adjust(ctx, userID, model.ResourceSubmissionsCreated, 1))

	u, err := repo.GetByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), u.StorageUsedBytes)
	assert.InDelta(t, 3.75, u.AudioMinutesTranscribed, 0.001)
	assert.Equal(t, int64(1), u.SubmissionsCount)

	require.NoError(t, repo.Ensure(ctx, userID, nil))
	u, err = repo.GetByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), u.SubmissionsCount, "ensure never resets counters")
}

func TestUsageRepo_ConcurrentIncrements(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewUsageRepo(pool)
	userID := createTestUser(t, pool)
	require.NoError(t, repo.Ensure(ctx, userID, nil))

	const n = 20
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() { errs <- repo.Adjust(ctx, userID, model.ResourceSubmissionsCreated, 1) }()
	}
	for i := 0; i < n; i++ {
		require.NoError(t, <-errs)
	}
	u, err := repo.GetByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(n), u.SubmissionsCount)
}

func TestLimitRepo_UpsertReplaces(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewLimitRepo(pool)
	userID := createTestUser(t, pool)

	l, err := repo.GetByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Nil(t, l)

	require.NoError(t, repo.Upsert(ctx, &model.Limit{UserID: userID, FormsLimit: 5, StorageLimitBytes: 10, VideoIntelligenceEnabled: true}))
	require.NoError(t, repo.Upsert(ctx, &model.Limit{UserID: userID, FormsLimit: model.Unlimited, StorageLimitBytes: 20}))

	l, err = repo.GetByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, model.Unlimited, l.FormsLimit)
	assert.Equal(t, int64(20), l.StorageLimitBytes)
	assert.False(t, l.VideoIntelligenceEnabled)
}

func TestSubscriptionRepo_Lifecycle(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewSubscriptionRepo(pool)
	userID := createTestUser(t, pool)

	require.NoError(t, repo.EnsureFree(ctx, userID))
	require.NoError(t, repo.EnsureFree(ctx, userID))
	sub, err := repo.GetByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, model.PlanFree, sub.Plan)

	stripeSub, customer := "sub_"+uuid.NewString(), "cus_"+uuid.NewString()
	start := time.Now().UTC().Truncate(time.Second)
	end := start.AddDate(0, 1, 0)
	stored, err := repo.UpsertStripeSubscription(ctx, &model.Subscription{
		UserID:               userID,
		Plan:                 model.PlanPro,
		PlanKey:              "pro",
		Status:               model.SubscriptionStatusActive,
		StripeCustomerID:     &customer,
		StripeSubscriptionID: &stripeSub,
		CurrentPeriodStart:   &start,
		CurrentPeriodEnd:     &end,
	})
	require.NoError(t, err)
	assert.Equal(t, sub.ID, stored.ID, "one subscription row per user")

	byCustomer, err := repo.GetByStripeCustomerID(ctx, customer)
	require.NoError(t, err)
	require.NotNil(t, byCustomer)
	assert.Equal(t, userID, byCustomer.UserID)

	require.NoError(t, repo.UpdateStatus(ctx, stripeSub, model.SubscriptionStatusPastDue))
	require.NoError(t, repo.SetLastBilledAt(ctx, stripeSub, end))
	got, err := repo.GetByStripeSubscriptionID(ctx, stripeSub)
	require.NoError(t, err)
	assert.Equal(t, model.SubscriptionStatusPastDue, got.Status)
	require.NotNil(t, got.LastBilledAt)
	assert.True(t, end.Equal(*got.LastBilledAt))

	assert.ErrorIs(t, repo.UpdateStatus(ctx, "sub_missing", model.SubscriptionStatusActive), ErrNoRows)
	assert.ErrorIs(t, repo.SetLastBilledAt(ctx, "sub_missing", end), ErrNoRows)
}

func TestSubmissionRepo_DeleteReturnsOnlyDeletedRows(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	userID := createTestUser(t, pool)
	forms := NewFormRepository(pool)
	subs := NewSubmissionRepository(pool)

	f := &model.Form{UserID: userID, Name: "Intake", Status: model.FormStatusActive}
	require.NoError(t, forms.CreateForm(ctx, f))
	s := &model.Submission{
		FormID:           f.ID,
		UserID:           userID,
		FileSubmissionID: "file-1",
		Data:             []byte(`{"name":"Grace"}`),
		FilesSize:        4096,
		Status:           model.SubmissionStatusPending,
	}
	require.NoError(t, subs.CreateSubmission(ctx, s))
	require.NoError(t, forms.AdjustSubmissionsCount(ctx, f.ID, 1))

	first, err := subs.DeleteSubmissions(ctx, []string{s.ID, uuid.NewString()})
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, int64(4096), first[0].FilesSize)
	assert.Equal(t, f.ID, first[0].FormID)

	second, err := subs.DeleteSubmissions(ctx, []string{s.ID})
	require.NoError(t, err)
	assert.Empty(t, second, "a repeated delete frees nothing")

	require.NoError(t, forms.AdjustSubmissionsCount(ctx, f.ID, -5))
	got, err := forms.GetFormByID(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.SubmissionsCount)
}

func TestSubmissionRepo_UpdateResult(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	userID := createTestUser(t, pool)
	forms := NewFormRepository(pool)
	subs := NewSubmissionRepository(pool)

	f := &model.Form{UserID: userID, Name: "Intake", Status: model.FormStatusActive}
	require.NoError(t, forms.CreateForm(ctx, f))
	s := &model.Submission{FormID: f.ID, UserID: userID, FileSubmissionID: "file-1", Data: []byte(`{}`), Status: model.SubmissionStatusPending}
	require.NoError(t, subs.CreateSubmission(ctx, s))

	summary := "Wants a callback."
	updated, err := subs.UpdateResult(ctx, s.ID, &model.SubmissionResult{Status: model.SubmissionStatusCompleted, Summary: &summary})
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionStatusCompleted, updated.Status)
	require.NotNil(t, updated.Summary)
	assert.Equal(t, summary, *updated.Summary)
	assert.NotNil(t, updated.ProcessedAt)

	_, err = subs.UpdateResult(ctx, uuid.NewString(), &model.SubmissionResult{Status: model.SubmissionStatusFailed})
	assert.ErrorIs(t, err, ErrNoRows)
}

func TestDLQRepo_IgnoresRedelivery(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewDLQRepository(pool)
	msgID := "m-" + uuid.NewString()
	msg := &model.DeadLetterMessage{SubscriptionName: "transcription-dlq-sub", MessageID: msgID, Payload: `{"raw":"x"}`, Status: "unprocessed"}

	require.NoError(t, repo.Create(ctx, msg))
	require.NoError(t, repo.Create(ctx, msg))

	var n int
	require.NoError(t, pool.QueryRow(ctx, "SELECT COUNT(*) FROM dead_letter_messages WHERE message_id = $1", msgID).Scan(&n))
	assert.Equal(t, 1, n)
	_, _ = pool.Exec(ctx, "DELETE FROM dead_letter_messages WHERE message_id = $1", msgID)
}
