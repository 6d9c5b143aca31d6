// Package orchestrator sequences one conversational turn: classify the
// question, route it to a knowledge base project, retrieve the answer, and
// record the exchange on the session.
package orchestrator

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	serrors "github.com/carlosalonso99-tajamar/qna-conversational/internal/errors"
	"github.com/carlosalonso99-tajamar/qna-conversational/internal/language"
	"github.com/carlosalonso99-tajamar/qna-conversational/internal/metrics"
	"github.com/carlosalonso99-tajamar/qna-conversational/internal/routing"
	"github.com/carlosalonso99-tajamar/qna-conversational/internal/session"
)

// FallbackAnswer is recorded when the knowledge base has no relevant answer.
// An unanswered question is a normal outcome, never surfaced as an error.
const FallbackAnswer = "No relevant answer was found."

// IntentClassifier is the NLU collaborator contract.
type IntentClassifier interface {
	Classify(ctx context.Context, req language.ClassifyRequest) (language.IntentResult, error)
}

// AnswerRetriever is the question answering collaborator contract.
type AnswerRetriever interface {
	Retrieve(ctx context.Context, req language.RetrieveRequest) (language.AnswerResult, error)
}

// Config names the NLU and QnA deployments used for every turn.
type Config struct {
	NLUProject    string
	NLUDeployment string
	QADeployment  string
	Language      string
}

// TurnResult summarizes one processed turn for the caller.
type TurnResult struct {
	Skipped bool                  `json:"skipped,omitempty"`
	Project string                `json:"project"`
	Intent  language.IntentResult `json:"intent"`
	Answer  string                `json:"answer,omitempty"`
	Found   bool                  `json:"found"`
}

// Orchestrator drives single turns against a session. The collaborator
// adapters are stateless; all turn state lives on the session.
type Orchestrator struct {
	classifier IntentClassifier
	retriever  AnswerRetriever
	table      *routing.Table
	cfg        Config
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

// New creates an orchestrator. metrics may be nil.
func New(classifier IntentClassifier, retriever AnswerRetriever, table *routing.Table, cfg Config, m *metrics.Metrics, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		classifier: classifier,
		retriever:  retriever,
		table:      table,
		cfg:        cfg,
		metrics:    m,
		logger:     logger.With().Str("component", "orchestrator").Logger(),
	}
}

// SelectProject pins the session to a project, as when the user picks one of
// a project's example questions. The project must be a configured routing
// target.
func (o *Orchestrator) SelectProject(sess *session.Session, project string) error {
	if !o.table.Contains(project) {
		return serrors.ErrInvalidInput
	}
	sess.Lock()
	sess.SelectedProject = project
	sess.Unlock()
	return nil
}

// ProcessQuestion runs one turn against the session. Empty or whitespace-only
// input is a no-op, not an error. On a classification failure the session is
// untouched. On a retrieval failure the routed project and last intent stay
// updated but no history is appended, so the active project still reflects
// the user's apparent topic.
func (o *Orchestrator) ProcessQuestion(ctx context.Context, sess *session.Session, question string) (TurnResult, error) {
	if strings.TrimSpace(question) == "" {
		return TurnResult{Skipped: true, Project: sess.Snapshot().SelectedProject}, nil
	}

	sess.Lock()
	defer sess.Unlock()

	start := time.Now()

	intent, err := o.classifier.Classify(ctx, language.ClassifyRequest{
		Question:   question,
		Language:   o.cfg.Language,
		Project:    o.cfg.NLUProject,
		Deployment: o.cfg.NLUDeployment,
	})
	if err != nil {
		o.recordFailure(sess.SelectedProject, err)
		o.logger.Error().Err(err).Str("session_id", sess.ID).Msg("classification failed")
		return TurnResult{}, err
	}
	sess.LastIntent = intent

	// Routing. The routed project is authoritative context for the session
	// regardless of whether retrieval below succeeds.
	project := o.table.Route(sess.SelectedProject, intent.Entities)
	sess.SelectedProject = project

	answer, err := o.retriever.Retrieve(ctx, language.RetrieveRequest{
		Question:   question,
		Project:    project,
		Deployment: o.cfg.QADeployment,
	})
	if err != nil {
		o.recordFailure(project, err)
		o.logger.Error().Err(err).
			Str("session_id", sess.ID).
			Str("project", project).
			Msg("answer retrieval failed")
		return TurnResult{}, err
	}

	reply := FallbackAnswer
	if answer.Found {
		reply = answer.Answer
	}
	sess.LastAnswer = reply
	sess.AppendExchange(question, reply)

	if o.metrics != nil {
		o.metrics.RecordTurn(project, "ok")
		o.metrics.ObserveTurn(project, time.Since(start).Seconds())
	}

	o.logger.Info().
		Str("session_id", sess.ID).
		Str("project", project).
		Str("top_intent", intent.TopIntent).
		Bool("found", answer.Found).
		Int("history_len", len(sess.History)).
		Msg("turn recorded")

	return TurnResult{
		Project: project,
		Intent:  intent,
		Answer:  reply,
		Found:   answer.Found,
	}, nil
}

func (o *Orchestrator) recordFailure(project string, err error) {
	if o.metrics == nil {
		return
	}
	o.metrics.RecordTurn(project, "error")

	service := "language"
	var apiErr *serrors.APIError
	if errors.As(err, &apiErr) && apiErr.Service != "" {
		service = apiErr.Service
	}
	kind := "unavailable"
	if errors.Is(err, serrors.ErrAuthFailure) {
		kind = "auth"
	}
	o.metrics.RecordUpstreamError(service, kind)
}
