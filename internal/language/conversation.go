package language

import (
	"context"
	"errors"
	"net/url"

	serrors "github.com/carlosalonso99-tajamar/qna-conversational/internal/errors"
)

const conversationService = "conversation-analysis"

var errMissingPrediction = errors.New("response missing prediction")

// ---- conversation analysis wire types ----

type conversationItem struct {
	ParticipantID string `json:"participantId"`
	ID            string `json:"id"`
	Modality      string `json:"modality"`
	Language      string `json:"language"`
	Text          string `json:"text"`
}

type analysisInput struct {
	ConversationItem conversationItem `json:"conversationItem"`
	IsLoggingEnabled bool             `json:"isLoggingEnabled"`
}

type analysisParameters struct {
	ProjectName    string `json:"projectName"`
	DeploymentName string `json:"deploymentName"`
	Verbose        bool   `json:"verbose"`
}

type analyzeConversationRequest struct {
	Kind          string             `json:"kind"`
	AnalysisInput analysisInput      `json:"analysisInput"`
	Parameters    analysisParameters `json:"parameters"`
}

type wireEntity struct {
	Category        string  `json:"category"`
	Text            *string `json:"text,omitempty"`
	Offset          int     `json:"offset"`
	Length          int     `json:"length"`
	ConfidenceScore float64 `json:"confidenceScore"`
}

type analyzeConversationResponse struct {
	Kind   string `json:"kind"`
	Result *struct {
		Query      string `json:"query"`
		Prediction *struct {
			TopIntent string       `json:"topIntent"`
			Entities  []wireEntity `json:"entities"`
		} `json:"prediction"`
	} `json:"result"`
}

// ClassifyRequest names the NLU project and deployment a question is
// classified against.
type ClassifyRequest struct {
	Question   string
	Language   string
	Project    string
	Deployment string
}

// Classify sends the question to the conversation analysis collaborator and
// shapes the prediction into an IntentResult. Entity order is preserved; the
// adapter does not interpret entities.
func (cl *Client) Classify(ctx context.Context, req ClassifyRequest) (IntentResult, error) {
	body := analyzeConversationRequest{
		Kind: "Conversation",
		AnalysisInput: analysisInput{
			ConversationItem: conversationItem{
				ParticipantID: "1",
				ID:            "1",
				Modality:      "text",
				Language:      req.Language,
				Text:          req.Question,
			},
			IsLoggingEnabled: false,
		},
		Parameters: analysisParameters{
			ProjectName:    req.Project,
			DeploymentName: req.Deployment,
			Verbose:        true,
		},
	}

	query := url.Values{"api-version": {conversationsAPIVersion}}

	var resp analyzeConversationResponse
	if err := cl.post(ctx, conversationService, "/language/:analyze-conversations", query, body, &resp); err != nil {
		return IntentResult{}, err
	}

	// A 200 without a prediction is a malformed collaborator response.
	if resp.Result == nil || resp.Result.Prediction == nil {
		return IntentResult{}, serrors.Unavailable(conversationService, errMissingPrediction)
	}

	pred := resp.Result.Prediction
	out := IntentResult{
		TopIntent: pred.TopIntent,
		Entities:  make([]Entity, 0, len(pred.Entities)),
	}
	for _, e := range pred.Entities {
		text := ""
		if e.Text != nil {
			text = *e.Text
		}
		out.Entities = append(out.Entities, Entity{
			Category:   e.Category,
			Text:       text,
			Confidence: e.ConfidenceScore,
		})
	}

	cl.logger.Debug().
		Str("top_intent", out.TopIntent).
		Int("entities", len(out.Entities)).
		Msg("conversation analyzed")
	return out, nil
}
