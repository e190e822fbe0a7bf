package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var sampleTrigger = WorkflowTrigger{
	SubmissionID:     "s1",
	UserID:           "owner",
	FormID:           "f1",
	VideoURL:         "https://cdn.test/video.mp4",
	FileSubmissionID: "file-1",
}

func TestWebhookWorkflowClient_PostsTrigger(t *testing.T) {
	var got WorkflowTrigger
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := NewWebhookWorkflowClient(srv.URL, srv.URL, time.Second, testLogger)
	require.NoError(t, c.TriggerTranscription(context.Background(), sampleTrigger))
	assert.Equal(t, sampleTrigger, got)
}

func TestWebhookWorkflowClient_Failures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "workflow down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewWebhookWorkflowClient(srv.URL, "", time.Second, testLogger)
	err := c.TriggerTranscription(context.Background(), sampleTrigger)
	assert.ErrorIs(t, err, ErrWorkflowUnavailable)
	assert.Contains(t, err.Error(), "500")

	err = c.TriggerVideoIntelligence(context.Background(), sampleTrigger)
	assert.ErrorIs(t, err, ErrWorkflowUnavailable, "unconfigured endpoint")

	srv.Close()
	err = c.TriggerTranscription(context.Background(), sampleTrigger)
	assert.ErrorIs(t, err, ErrWorkflowUnavailable, "unreachable endpoint")
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, topic string, payload []byte) (string, error) {
	args := m.Called(ctx, topic, payload)
	return args.String(0), args.Error(1)
}

func TestPubSubWorkflowClient(t *testing.T) {
	pub := &mockPublisher{}
	pub.On("Publish", mock.Anything, "transcription", mock.MatchedBy(func(b []byte) bool {
		var tr WorkflowTrigger
		return json.Unmarshal(b, &tr) == nil && tr == sampleTrigger
	})).Return("msg-1", nil).Once()
	pub.On("Publish", mock.Anything, "video", mock.Anything).Return("", errBoom).Once()

	c := NewPubSubWorkflowClient(pub, "transcription", "video", testLogger)
	require.NoError(t, c.TriggerTranscription(context.Background(), sampleTrigger))
	assert.ErrorIs(t, c.TriggerVideoIntelligence(context.Background(), sampleTrigger), ErrWorkflowUnavailable)
	pub.AssertExpectations(t)

	empty := NewPubSubWorkflowClient(pub, "", "", testLogger)
	assert.ErrorIs(t, empty.TriggerTranscription(context.Background(), sampleTrigger), ErrWorkflowUnavailable)
}
