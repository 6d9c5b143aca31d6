package language

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	serrors "github.com/carlosalonso99-tajamar/qna-conversational/internal/errors"
	"github.com/carlosalonso99-tajamar/qna-conversational/internal/retry"
)

func noRetry() retry.Config {
	return retry.Config{MaxAttempts: 1, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}
}

func fastRetry(attempts int) retry.Config {
	return retry.Config{MaxAttempts: attempts, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestClassify_ShapesPrediction(t *testing.T) {
	var gotBody analyzeConversationRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/language/:analyze-conversations", r.URL.Path)
		assert.Equal(t, conversationsAPIVersion, r.URL.Query().Get("api-version"))
		assert.Equal(t, "test-key", r.Header.Get("Ocp-Apim-Subscription-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		_, _ = w.Write([]byte(`{
			"kind": "ConversationResult",
			"result": {
				"query": "What is LangGraph?",
				"prediction": {
					"topIntent": "AskCapability",
					"entities": [
						{"category": "Framework", "text": "LangGraph stuff", "confidenceScore": 0.91},
						{"category": "Tool", "confidenceScore": 0.44}
					]
				}
			}
		}`))
	}))
	defer srv.Close()

	cl := NewClient(srv.URL, "test-key", WithRetry(noRetry()))
	res, err := cl.Classify(context.Background(), ClassifyRequest{
		Question:   "What is LangGraph?",
		Language:   "en-us",
		Project:    "Clock",
		Deployment: "production",
	})
	require.NoError(t, err)

	assert.Equal(t, "Conversation", gotBody.Kind)
	assert.Equal(t, "What is LangGraph?", gotBody.AnalysisInput.ConversationItem.Text)
	assert.Equal(t, "Clock", gotBody.Parameters.ProjectName)
	assert.True(t, gotBody.Parameters.Verbose)

	assert.Equal(t, "AskCapability", res.TopIntent)
	require.Len(t, res.Entities, 2)
	assert.Equal(t, "Framework", res.Entities[0].Category)
	assert.Equal(t, "LangGraph stuff", res.Entities[0].Text)
	// Absent entity text becomes the empty string.
	assert.Equal(t, "", res.Entities[1].Text)
}

func TestClassify_MissingPredictionIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"kind": "ConversationResult", "result": {}}`))
	}))
	defer srv.Close()

	cl := NewClient(srv.URL, "k", WithRetry(noRetry()))
	_, err := cl.Classify(context.Background(), ClassifyRequest{Question: "hi"})
	assert.ErrorIs(t, err, serrors.ErrUnavailable)
}

func TestClassify_MalformedJSONIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result": `))
	}))
	defer srv.Close()

	cl := NewClient(srv.URL, "k", WithRetry(noRetry()))
	_, err := cl.Classify(context.Background(), ClassifyRequest{Question: "hi"})
	assert.ErrorIs(t, err, serrors.ErrUnavailable)
}

func TestClassify_AuthRejectionNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"code": "Unauthorized", "message": "invalid subscription key"}}`))
	}))
	defer srv.Close()

	cl := NewClient(srv.URL, "bad-key", WithRetry(fastRetry(3)))
	_, err := cl.Classify(context.Background(), ClassifyRequest{Question: "hi"})
	assert.ErrorIs(t, err, serrors.ErrAuthFailure)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClassify_ServerErrorRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"result": {"prediction": {"topIntent": "None", "entities": []}}}`))
	}))
	defer srv.Close()

	cl := NewClient(srv.URL, "k", WithRetry(fastRetry(3)))
	res, err := cl.Classify(context.Background(), ClassifyRequest{Question: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "None", res.TopIntent)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetrieve_TopAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/language/:query-knowledgebases", r.URL.Path)
		assert.Equal(t, "CrewAi", r.URL.Query().Get("projectName"))
		assert.Equal(t, "production", r.URL.Query().Get("deploymentName"))

		var req getAnswersRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "What is CrewAi?", req.Question)

		_, _ = w.Write([]byte(`{"answers": [
			{"id": 7, "answer": "CrewAi is an agent framework.", "confidenceScore": 0.87},
			{"id": 8, "answer": "Second best.", "confidenceScore": 0.41}
		]}`))
	}))
	defer srv.Close()

	cl := NewClient(srv.URL, "k", WithRetry(noRetry()))
	res, err := cl.Retrieve(context.Background(), RetrieveRequest{
		Question:   "What is CrewAi?",
		Project:    "CrewAi",
		Deployment: "production",
	})
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Equal(t, "CrewAi is an agent framework.", res.Answer)
	assert.InDelta(t, 0.87, res.Confidence, 1e-9)
}

func TestRetrieve_NoCandidatesIsNotAnError(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty answers", `{"answers": []}`},
		{"no-match placeholder", `{"answers": [{"id": -1, "answer": "No good match found in KB.", "confidenceScore": 0}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			cl := NewClient(srv.URL, "k", WithRetry(noRetry()))
			res, err := cl.Retrieve(context.Background(), RetrieveRequest{Question: "q", Project: "CrewAi", Deployment: "production"})
			require.NoError(t, err)
			assert.False(t, res.Found)
			assert.Empty(t, res.Answer)
		})
	}
}

func TestRetrieve_AnswerCache(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"answers": [{"id": 1, "answer": "cached answer", "confidenceScore": 0.9}]}`))
	}))
	defer srv.Close()

	cl := NewClient(srv.URL, "k", WithRetry(noRetry()), WithAnswerCache(16, time.Minute))
	req := RetrieveRequest{Question: "q", Project: "CrewAi", Deployment: "production"}

	first, err := cl.Retrieve(context.Background(), req)
	require.NoError(t, err)
	second, err := cl.Retrieve(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), calls.Load())

	// A different project misses the cache.
	_, err = cl.Retrieve(context.Background(), RetrieveRequest{Question: "q", Project: "LangGraph", Deployment: "production"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestRetrieve_UpstreamDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	cl := NewClient(srv.URL, "k", WithRetry(fastRetry(2)))
	_, err := cl.Retrieve(context.Background(), RetrieveRequest{Question: "q", Project: "CrewAi", Deployment: "production"})
	assert.ErrorIs(t, err, serrors.ErrUnavailable)
}
