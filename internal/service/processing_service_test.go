package service

import (
	"context"
	"testing"

	"intakeflow/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func videoFixture(t *testing.T, plan model.Plan) *testEnv {
	t.Helper()
	e := newTestEnv(t)
	e.activate(t, "owner", plan)
	e.subsRepo.put(model.Submission{
		ID:               "s1",
		FormID:           "f1",
		UserID:           "owner",
		FileSubmissionID: "file-1",
		VideoURL:         testPublicBase + "/submissions/owner/f1/file-1/clip.mp4",
	})
	return e
}

func TestTriggerVideoIntelligence_Allowed(t *testing.T) {
	e := videoFixture(t, model.PlanPro)
	e.workflow.On("TriggerVideoIntelligence", mock.Anything, mock.MatchedBy(func(tr WorkflowTrigger) bool {
		return tr.SubmissionID == "s1" && tr.FileSubmissionID == "file-1" && tr.UserID == "owner"
	})).Return(nil).Once()

	res, err := e.processing.TriggerVideoIntelligence(context.Background(), "owner", "s1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	pro, _ := PlanConfig("pro")
	assert.Equal(t, pro.VideoMinutes, res.Limit)
	e.workflow.AssertExpectations(t)
	assert.Zero(t, e.usageRepo.get("owner").VideoMinutesUsed, "minutes are charged when the workflow reports them")
}

func TestTriggerVideoIntelligence_DenialOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("inactive subscription first", func(t *testing.T) {
		e := videoFixture(t, model.PlanGo)
		e.subRepo.set(model.Subscription{UserID: "owner", Plan: model.PlanGo, Status: model.SubscriptionStatusPastDue})

		res, err := e.processing.TriggerVideoIntelligence(ctx, "owner", "s1")
		require.NoError(t, err)
		assert.False(t, res.Allowed)
		assert.Equal(t, ReasonSubscriptionInactive, res.Reason)
		assert.Empty(t, res.Feature)
	})

	t.Run("active free plan is not entitled", func(t *testing.T) {
		e := videoFixture(t, model.PlanGo)
		e.subRepo.set(model.Subscription{UserID: "owner", Plan: model.PlanFree, Status: model.SubscriptionStatusActive})

		res, err := e.processing.TriggerVideoIntelligence(ctx, "owner", "s1")
		require.NoError(t, err)
		assert.False(t, res.Allowed)
		assert.True(t, res.RequiresUpgrade)
		assert.Equal(t, ReasonSubscriptionInactive, res.Reason)
	})

	t.Run("feature disabled on go", func(t *testing.T) {
		e := videoFixture(t, model.PlanGo)

		res, err := e.processing.TriggerVideoIntelligence(ctx, "owner", "s1")
		require.NoError(t, err)
		assert.False(t, res.Allowed)
		assert.Equal(t, ReasonFeatureDisabled, res.Reason)
		assert.Equal(t, FeatureVideoIntelligence, res.Feature)
		assert.True(t, res.RequiresUpgrade)
	})

	t.Run("minutes exhausted", func(t *testing.T) {
		e := videoFixture(t, model.PlanPro)
		pro, _ := PlanConfig("pro")
		e.usageRepo.set(model.Usage{UserID: "owner", VideoMinutesUsed: float64(pro.VideoMinutes)})

		res, err := e.processing.TriggerVideoIntelligence(ctx, "owner", "s1")
		require.NoError(t, err)
		assert.False(t, res.Allowed)
		assert.Equal(t, ReasonLimitReached, res.Reason)
		assert.Equal(t, float64(pro.VideoMinutes), res.Current)
	})

	t.Run("no usage row", func(t *testing.T) {
		e := videoFixture(t, model.PlanPro)
		e.usageRepo.mu.Lock()
		delete(e.usageRepo.rows, "owner")
		e.usageRepo.mu.Unlock()

		res, err := e.processing.TriggerVideoIntelligence(ctx, "owner", "s1")
		require.NoError(t, err)
		assert.False(t, res.Allowed)
		assert.Equal(t, ReasonNotProvisioned, res.Reason)
	})
}

func TestTriggerVideoIntelligence_Errors(t *testing.T) {
	ctx := context.Background()
	e := videoFixture(t, model.PlanPro)

	_, err := e.processing.TriggerVideoIntelligence(ctx, "owner", "missing")
	assert.ErrorIs(t, err, ErrSubmissionNotFound)

	_, err = e.processing.TriggerVideoIntelligence(ctx, "intruder", "s1")
	assert.ErrorIs(t, err, ErrForbidden)

	e.workflow.On("TriggerVideoIntelligence", mock.Anything, mock.Anything).Return(ErrWorkflowUnavailable)
	res, err := e.processing.TriggerVideoIntelligence(ctx, "owner", "s1")
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrWorkflowUnavailable)
}
