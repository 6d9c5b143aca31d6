package language

import (
	"context"
	"net/url"
)

const answeringService = "question-answering"

// ---- question answering wire types ----

type getAnswersRequest struct {
	Question string `json:"question"`
	Top      int    `json:"top"`
}

type wireAnswer struct {
	ID              int     `json:"id"`
	Answer          string  `json:"answer"`
	ConfidenceScore float64 `json:"confidenceScore"`
}

type getAnswersResponse struct {
	Answers []wireAnswer `json:"answers"`
}

// RetrieveRequest names the knowledge base a question is answered from.
type RetrieveRequest struct {
	Question   string
	Project    string
	Deployment string
}

// Retrieve queries the question answering collaborator for the best answer
// in the given project. Zero candidates (or only the knowledge base's
// "no match" placeholder, id -1) yields Found=false with a nil error.
// An unanswered question is a normal outcome, not a fault.
func (cl *Client) Retrieve(ctx context.Context, req RetrieveRequest) (AnswerResult, error) {
	key := answerKey{project: req.Project, deployment: req.Deployment, question: req.Question}
	if cl.answerCache != nil {
		if res, ok := cl.answerCache.Get(key); ok {
			cl.logger.Debug().Str("project", req.Project).Msg("answer cache hit")
			return res, nil
		}
	}

	query := url.Values{
		"api-version":    {questionAnswerAPIVersion},
		"projectName":    {req.Project},
		"deploymentName": {req.Deployment},
	}
	body := getAnswersRequest{Question: req.Question, Top: cl.topAnswers}

	var resp getAnswersResponse
	if err := cl.post(ctx, answeringService, "/language/:query-knowledgebases", query, body, &resp); err != nil {
		return AnswerResult{}, err
	}

	res := AnswerResult{}
	if len(resp.Answers) > 0 {
		top := resp.Answers[0]
		if top.ID != -1 && top.Answer != "" {
			res = AnswerResult{Found: true, Answer: top.Answer, Confidence: top.ConfidenceScore}
		}
	}

	if cl.answerCache != nil {
		cl.answerCache.Put(key, res)
	}

	cl.logger.Debug().
		Str("project", req.Project).
		Bool("found", res.Found).
		Float64("confidence", res.Confidence).
		Msg("knowledge base queried")
	return res, nil
}
