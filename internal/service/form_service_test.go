package service

import (
	"context"
	"testing"

	"intakeflow/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormService_CreateCountsTowardQuota(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.activate(t, "u1", model.PlanGo)

	goPlan, _ := PlanConfig("go")
	for i := int64(0); i < goPlan.Forms; i++ {
		f, denied, err := e.forms.CreateForm(ctx, "u1", "Intake", "")
		require.NoError(t, err)
		require.Nil(t, denied)
		assert.Equal(t, model.FormStatusActive, f.Status)
	}
	assert.Equal(t, goPlan.Forms, e.usageRepo.get("u1").FormsCreatedCount)

	f, denied, err := e.forms.CreateForm(ctx, "u1", "One too many", "")
	require.NoError(t, err)
	assert.Nil(t, f)
	require.NotNil(t, denied)
	assert.Equal(t, ReasonLimitReached, denied.Reason)
	assert.Equal(t, goPlan.Forms, e.usageRepo.get("u1").FormsCreatedCount)
}

func TestFormService_DeleteDoesNotRefundFormsCounter(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.activate(t, "u1", model.PlanGo)

	f, _, err := e.forms.CreateForm(ctx, "u1", "Intake", "")
	require.NoError(t, err)
	require.NoError(t, e.forms.DeleteForm(ctx, "u1", f.ID))

	assert.Equal(t, int64(1), e.usageRepo.get("u1").FormsCreatedCount, "forms_created is a lifetime counter")
	_, err = e.forms.GetForm(ctx, "u1", f.ID)
	assert.ErrorIs(t, err, ErrFormNotFound)
}

func TestFormService_DeleteRefundsSubmissionStorage(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.activate(t, "u1", model.PlanGo)

	f, _, err := e.forms.CreateForm(ctx, "u1", "Intake", "")
	require.NoError(t, err)
	for i, size := range []int64{100, 250} {
		e.subsRepo.put(model.Submission{
			ID:        "s" + string(rune('a'+i)),
			FormID:    f.ID,
			UserID:    "u1",
			VideoPath: "submissions/u1/" + f.ID + "/x/video.mp4",
			FilesSize: size,
		})
	}
	require.NoError(t, e.usage.Increment(ctx, "u1", model.ResourceStorageBytes, 350))

	require.NoError(t, e.forms.DeleteForm(ctx, "u1", f.ID))
	assert.Equal(t, int64(0), e.usageRepo.get("u1").StorageUsedBytes)
	assert.Zero(t, e.subsRepo.size())
}

func TestFormService_Ownership(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.activate(t, "owner", model.PlanGo)

	f, _, err := e.forms.CreateForm(ctx, "owner", "Intake", "")
	require.NoError(t, err)

	_, err = e.forms.GetForm(ctx, "intruder", f.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	name := "renamed"
	_, err = e.forms.UpdateForm(ctx, "intruder", f.ID, FormUpdate{Name: &name})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, e.forms.DeleteForm(ctx, "intruder", f.ID), ErrForbidden)

	closed := model.FormStatusCompleted
	updated, err := e.forms.UpdateForm(ctx, "owner", f.ID, FormUpdate{Name: &name, Status: &closed})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Name)
	assert.False(t, updated.AcceptsSubmissions())
}
