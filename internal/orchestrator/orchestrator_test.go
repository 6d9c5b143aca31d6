package orchestrator

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	serrors "github.com/carlosalonso99-tajamar/qna-conversational/internal/errors"
	"github.com/carlosalonso99-tajamar/qna-conversational/internal/language"
	"github.com/carlosalonso99-tajamar/qna-conversational/internal/routing"
	"github.com/carlosalonso99-tajamar/qna-conversational/internal/session"
)

// mockClassifier returns a canned result or error.
type mockClassifier struct {
	result language.IntentResult
	err    error
	calls  int
}

func (m *mockClassifier) Classify(_ context.Context, _ language.ClassifyRequest) (language.IntentResult, error) {
	m.calls++
	return m.result, m.err
}

// mockRetriever captures the project it was asked for.
type mockRetriever struct {
	result      language.AnswerResult
	err         error
	calls       int
	lastProject string
}

func (m *mockRetriever) Retrieve(_ context.Context, req language.RetrieveRequest) (language.AnswerResult, error) {
	m.calls++
	m.lastProject = req.Project
	return m.result, m.err
}

func testConfig() Config {
	return Config{NLUProject: "Clock", NLUDeployment: "production", QADeployment: "production", Language: "en-us"}
}

func testTable() *routing.Table {
	return routing.NewTable(
		[]routing.ProjectKeywords{
			{Project: "CrewAi", Keywords: []string{"crewai"}},
			{Project: "LangGraph", Keywords: []string{"langgraph"}},
		},
		[]string{"agent", "framework", "tool"},
	)
}

func newOrchestrator(c *mockClassifier, r *mockRetriever) *Orchestrator {
	return New(c, r, testTable(), testConfig(), nil, zerolog.Nop())
}

func TestProcessQuestion_RoundTrip(t *testing.T) {
	c := &mockClassifier{result: language.IntentResult{TopIntent: "AskCapability"}}
	r := &mockRetriever{result: language.AnswerResult{Found: true, Answer: "CrewAi is an agent framework.", Confidence: 0.9}}
	o := newOrchestrator(c, r)
	sess := session.New("CrewAi")

	res, err := o.ProcessQuestion(context.Background(), sess, "What is CrewAi?")
	require.NoError(t, err)

	assert.False(t, res.Skipped)
	assert.Equal(t, "CrewAi", res.Project)
	assert.Equal(t, "CrewAi is an agent framework.", res.Answer)
	assert.True(t, res.Found)

	snap := sess.Snapshot()
	require.Len(t, snap.History, 2)
	assert.Equal(t, session.RoleUser, snap.History[0].Role)
	assert.Equal(t, "What is CrewAi?", snap.History[0].Content)
	assert.Equal(t, session.RoleAssistant, snap.History[1].Role)
	assert.NotEmpty(t, snap.History[1].Content)
	assert.Equal(t, "CrewAi is an agent framework.", snap.LastAnswer)
	assert.Equal(t, "AskCapability", snap.LastIntent.TopIntent)
}

func TestProcessQuestion_RoutesByEntity(t *testing.T) {
	c := &mockClassifier{result: language.IntentResult{
		TopIntent: "AskCapability",
		Entities: []language.Entity{
			{Category: "tool", Text: "LangGraph stuff"},
			{Category: "agent", Text: "CrewAi thing"},
		},
	}}
	r := &mockRetriever{result: language.AnswerResult{Found: true, Answer: "graphs"}}
	o := newOrchestrator(c, r)
	sess := session.New("CrewAi")

	res, err := o.ProcessQuestion(context.Background(), sess, "Tell me about LangGraph")
	require.NoError(t, err)

	assert.Equal(t, "LangGraph", res.Project)
	assert.Equal(t, "LangGraph", r.lastProject, "retrieval must query the routed project")
	assert.Equal(t, "LangGraph", sess.Snapshot().SelectedProject, "routing persists across turns")
}

func TestProcessQuestion_EmptyInputIsNoOp(t *testing.T) {
	c := &mockClassifier{}
	r := &mockRetriever{}
	o := newOrchestrator(c, r)
	sess := session.New("CrewAi")
	before := sess.Snapshot()

	for _, q := range []string{"", "   ", "\n\t"} {
		res, err := o.ProcessQuestion(context.Background(), sess, q)
		require.NoError(t, err)
		assert.True(t, res.Skipped)
		assert.Equal(t, "CrewAi", res.Project)
	}

	assert.Equal(t, before, sess.Snapshot())
	assert.Zero(t, c.calls)
	assert.Zero(t, r.calls)
}

func TestProcessQuestion_ClassifyFailureLeavesSessionUntouched(t *testing.T) {
	c := &mockClassifier{err: serrors.Unavailable("conversation-analysis", context.DeadlineExceeded)}
	r := &mockRetriever{}
	o := newOrchestrator(c, r)
	sess := session.New("CrewAi")
	before := sess.Snapshot()

	_, err := o.ProcessQuestion(context.Background(), sess, "What is CrewAi?")
	assert.ErrorIs(t, err, serrors.ErrUnavailable)
	assert.Equal(t, before, sess.Snapshot())
	assert.Zero(t, r.calls, "retrieval must not run after a classification failure")
}

func TestProcessQuestion_RetrieveFailureKeepsRoutingButNotHistory(t *testing.T) {
	c := &mockClassifier{result: language.IntentResult{
		TopIntent: "AskCapability",
		Entities:  []language.Entity{{Category: "framework", Text: "langgraph"}},
	}}
	r := &mockRetriever{err: serrors.NewAPIError("question-answering", 503, "down")}
	o := newOrchestrator(c, r)
	sess := session.New("CrewAi")

	_, err := o.ProcessQuestion(context.Background(), sess, "What is LangGraph?")
	assert.ErrorIs(t, err, serrors.ErrUnavailable)

	snap := sess.Snapshot()
	assert.Empty(t, snap.History, "failed turns never pollute history")
	assert.Empty(t, snap.LastAnswer)
	assert.Equal(t, "LangGraph", snap.SelectedProject, "routing decision survives retrieval failure")
	assert.Equal(t, "AskCapability", snap.LastIntent.TopIntent)
}

func TestProcessQuestion_AuthFailureSurfaced(t *testing.T) {
	c := &mockClassifier{err: serrors.NewAPIError("conversation-analysis", 401, "bad key")}
	o := newOrchestrator(c, &mockRetriever{})
	sess := session.New("CrewAi")

	_, err := o.ProcessQuestion(context.Background(), sess, "What is CrewAi?")
	assert.ErrorIs(t, err, serrors.ErrAuthFailure)
}

func TestProcessQuestion_NoAnswerUsesFallback(t *testing.T) {
	c := &mockClassifier{result: language.IntentResult{TopIntent: "None"}}
	r := &mockRetriever{result: language.AnswerResult{Found: false}}
	o := newOrchestrator(c, r)
	sess := session.New("CrewAi")

	res, err := o.ProcessQuestion(context.Background(), sess, "Something unanswerable")
	require.NoError(t, err, "no answer is a normal outcome, not an upstream failure")

	assert.False(t, res.Found)
	assert.Equal(t, FallbackAnswer, res.Answer)

	snap := sess.Snapshot()
	assert.Equal(t, FallbackAnswer, snap.LastAnswer)
	require.Len(t, snap.History, 2)
	assert.Equal(t, FallbackAnswer, snap.History[1].Content)
}

func TestProcessQuestion_StickyAcrossTurns(t *testing.T) {
	c := &mockClassifier{result: language.IntentResult{
		Entities: []language.Entity{{Category: "framework", Text: "langgraph"}},
	}}
	r := &mockRetriever{result: language.AnswerResult{Found: true, Answer: "a"}}
	o := newOrchestrator(c, r)
	sess := session.New("CrewAi")

	_, err := o.ProcessQuestion(context.Background(), sess, "What is LangGraph?")
	require.NoError(t, err)
	require.Equal(t, "LangGraph", sess.Snapshot().SelectedProject)

	// Next turn has no routing signal: the session stays on LangGraph.
	c.result = language.IntentResult{TopIntent: "AskCapability"}
	_, err = o.ProcessQuestion(context.Background(), sess, "How does it scale?")
	require.NoError(t, err)
	assert.Equal(t, "LangGraph", r.lastProject)
	assert.Equal(t, "LangGraph", sess.Snapshot().SelectedProject)
}

func TestSelectProject(t *testing.T) {
	o := newOrchestrator(&mockClassifier{}, &mockRetriever{})
	sess := session.New("CrewAi")

	require.NoError(t, o.SelectProject(sess, "LangGraph"))
	assert.Equal(t, "LangGraph", sess.Snapshot().SelectedProject)

	err := o.SelectProject(sess, "Unknown")
	assert.ErrorIs(t, err, serrors.ErrInvalidInput)
	assert.Equal(t, "LangGraph", sess.Snapshot().SelectedProject)
}
