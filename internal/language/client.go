package language

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/carlosalonso99-tajamar/qna-conversational/internal/cache"
	serrors "github.com/carlosalonso99-tajamar/qna-conversational/internal/errors"
	"github.com/carlosalonso99-tajamar/qna-conversational/internal/retry"
)

const (
	conversationsAPIVersion  = "2023-04-01"
	questionAnswerAPIVersion = "2021-10-01"
	defaultTimeout           = 15 * time.Second
	defaultTopAnswers        = 3
)

// answerKey identifies a cached answer lookup.
type answerKey struct {
	project    string
	deployment string
	question   string
}

// Client talks to an Azure Language resource. Both the conversation
// analysis and the question answering projects live behind the same
// endpoint and key.
type Client struct {
	endpoint    string
	key         string
	client      *http.Client
	logger      zerolog.Logger
	retryCfg    retry.Config
	topAnswers  int
	answerCache *cache.LRU[answerKey, AnswerResult]
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.client = c }
}

// WithLogger sets the client logger.
func WithLogger(l zerolog.Logger) Option {
	return func(cl *Client) { cl.logger = l.With().Str("component", "language").Logger() }
}

// WithRetry overrides the backoff configuration for collaborator calls.
func WithRetry(cfg retry.Config) Option {
	return func(cl *Client) { cl.retryCfg = cfg }
}

// WithAnswerCache fronts Retrieve with an LRU cache.
func WithAnswerCache(capacity int, ttl time.Duration) Option {
	return func(cl *Client) { cl.answerCache = cache.New[answerKey, AnswerResult](capacity, ttl) }
}

// WithTopAnswers sets how many candidate answers to request. Only the
// top-ranked candidate is used.
func WithTopAnswers(n int) Option {
	return func(cl *Client) {
		if n > 0 {
			cl.topAnswers = n
		}
	}
}

// NewClient constructs a client for the given Azure Language endpoint.
func NewClient(endpoint, key string, opts ...Option) *Client {
	cl := &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		key:        key,
		client:     &http.Client{Timeout: defaultTimeout},
		logger:     zerolog.Nop(),
		retryCfg:   retry.DefaultConfig(),
		topAnswers: defaultTopAnswers,
	}
	for _, o := range opts {
		o(cl)
	}
	return cl
}

// apiError is the error envelope Azure Language returns on failures.
type apiError struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// post sends one JSON request to the collaborator and decodes the response
// into out. Transient failures are retried; auth rejections are not.
func (cl *Client) post(ctx context.Context, service, path string, query url.Values, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", service, err)
	}

	endpoint := cl.endpoint + path + "?" + query.Encode()

	return retry.Do(ctx, cl.retryCfg, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("create %s request: %w", service, err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Ocp-Apim-Subscription-Key", cl.key)

		resp, err := cl.client.Do(req)
		if err != nil {
			return serrors.Unavailable(service, err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return serrors.Unavailable(service, err)
		}

		if resp.StatusCode != http.StatusOK {
			msg := httpErrorMessage(raw)
			cl.logger.Warn().
				Str("service", service).
				Int("status", resp.StatusCode).
				Str("message", msg).
				Msg("collaborator call failed")
			return serrors.NewAPIError(service, resp.StatusCode, msg)
		}

		if err := json.Unmarshal(raw, out); err != nil {
			return serrors.Unavailable(service, fmt.Errorf("malformed response: %w", err))
		}
		return nil
	})
}

// httpErrorMessage extracts the collaborator's error message, falling back
// to the raw body when the envelope does not parse.
func httpErrorMessage(raw []byte) string {
	var env apiError
	if err := json.Unmarshal(raw, &env); err == nil && env.Error != nil {
		return fmt.Sprintf("%s: %s", env.Error.Code, env.Error.Message)
	}
	msg := string(raw)
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}
