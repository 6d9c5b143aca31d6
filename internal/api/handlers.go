package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/carlosalonso99-tajamar/qna-conversational/internal/config"
	serrors "github.com/carlosalonso99-tajamar/qna-conversational/internal/errors"
	"github.com/carlosalonso99-tajamar/qna-conversational/internal/health"
	"github.com/carlosalonso99-tajamar/qna-conversational/internal/metrics"
	"github.com/carlosalonso99-tajamar/qna-conversational/internal/orchestrator"
	"github.com/carlosalonso99-tajamar/qna-conversational/internal/session"
)

// Handlers holds dependencies for the HTTP handlers.
type Handlers struct {
	store   *session.Store
	orch    *orchestrator.Orchestrator
	catalog *config.Catalog
	checker *health.Checker
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewHandlers creates a Handlers instance. metrics may be nil.
func NewHandlers(store *session.Store, orch *orchestrator.Orchestrator, catalog *config.Catalog, checker *health.Checker, m *metrics.Metrics, logger zerolog.Logger) *Handlers {
	return &Handlers{
		store:   store,
		orch:    orch,
		catalog: catalog,
		checker: checker,
		metrics: m,
		logger:  logger.With().Str("component", "handlers").Logger(),
	}
}

func (h *Handlers) syncSessionGauge() {
	if h.metrics != nil {
		h.metrics.SetActiveSessions(float64(h.store.Len()))
	}
}

// CreateSession handles POST /api/v1/sessions.
func (h *Handlers) CreateSession(c *fiber.Ctx) error {
	sess, err := h.store.Create(h.catalog.DefaultProject())
	if err != nil {
		if errors.Is(err, session.ErrLimitExceeded) {
			return problemResponse(c, fiber.StatusServiceUnavailable,
				"session_limit", "Service Unavailable",
				"Session limit reached, try again later")
		}
		return problemResponse(c, fiber.StatusInternalServerError,
			"session_create_failed", "Internal Server Error", err.Error())
	}
	h.syncSessionGauge()

	return c.Status(fiber.StatusCreated).JSON(SessionResponse{Session: sess.Snapshot()})
}

// GetSession handles GET /api/v1/sessions/:id.
func (h *Handlers) GetSession(c *fiber.Ctx) error {
	sess, err := h.store.Get(c.Params("id"))
	if err != nil {
		return problemResponse(c, fiber.StatusNotFound,
			"session_not_found", "Not Found",
			"No session with that ID")
	}
	return c.JSON(SessionResponse{Session: sess.Snapshot()})
}

// DeleteSession handles DELETE /api/v1/sessions/:id.
func (h *Handlers) DeleteSession(c *fiber.Ctx) error {
	if err := h.store.Delete(c.Params("id")); err != nil {
		return problemResponse(c, fiber.StatusNotFound,
			"session_not_found", "Not Found",
			"No session with that ID")
	}
	h.syncSessionGauge()
	return c.SendStatus(fiber.StatusNoContent)
}

// Ask handles POST /api/v1/sessions/:id/ask, one conversational turn.
func (h *Handlers) Ask(c *fiber.Ctx) error {
	sess, err := h.store.Get(c.Params("id"))
	if err != nil {
		return problemResponse(c, fiber.StatusNotFound,
			"session_not_found", "Not Found",
			"No session with that ID")
	}

	var req AskRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}

	question := req.Question
	if req.ExampleProject != "" {
		proj, ok := h.catalog.Lookup(req.ExampleProject)
		if !ok {
			return problemResponse(c, fiber.StatusBadRequest,
				"unknown_project", "Bad Request",
				"Project is not in the catalog: "+req.ExampleProject)
		}
		idx := 0
		if req.ExampleIndex != nil {
			idx = *req.ExampleIndex
		}
		if idx < 0 || idx >= len(proj.Examples) {
			return problemResponse(c, fiber.StatusBadRequest,
				"unknown_example", "Bad Request",
				"Example index out of range")
		}
		question = proj.Examples[idx]

		// Picking an example question pins the session to that project.
		if err := h.orch.SelectProject(sess, proj.Name); err != nil {
			return problemResponse(c, fiber.StatusBadRequest,
				"unroutable_project", "Bad Request",
				"Project is not a routing target: "+proj.Name)
		}
	}

	res, err := h.orch.ProcessQuestion(c.Context(), sess, question)
	if err != nil {
		return h.turnProblem(c, err)
	}

	snap := sess.Snapshot()
	return c.JSON(AskResponse{
		SessionID:  snap.ID,
		Skipped:    res.Skipped,
		Project:    res.Project,
		Intent:     res.Intent,
		Answer:     res.Answer,
		Found:      res.Found,
		HistoryLen: len(snap.History),
	})
}

// turnProblem maps a turn failure onto a problem response. Upstream faults
// are the collaborator's, not the caller's, so both map to 502.
func (h *Handlers) turnProblem(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, serrors.ErrAuthFailure):
		return problemResponse(c, fiber.StatusBadGateway,
			"upstream_auth_rejected", "Bad Gateway",
			"The language service rejected the configured credentials")
	case errors.Is(err, serrors.ErrInvalidInput):
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_input", "Bad Request", err.Error())
	default:
		return problemResponse(c, fiber.StatusBadGateway,
			"upstream_unavailable", "Bad Gateway",
			"A language collaborator is unavailable: "+err.Error())
	}
}

// Examples handles GET /api/v1/examples.
func (h *Handlers) Examples(c *fiber.Ctx) error {
	resp := ExamplesResponse{Default: h.catalog.DefaultProject()}
	for _, p := range h.catalog.Projects {
		resp.Projects = append(resp.Projects, ProjectExamples{
			Project:   p.Name,
			Questions: p.Examples,
		})
	}
	return c.JSON(resp)
}

// Liveness handles GET /healthz.
func (h *Handlers) Liveness(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Readiness handles GET /readyz.
func (h *Handlers) Readiness(c *fiber.Ctx) error {
	results := h.checker.RunAll(c.Context())

	allOK := true
	for _, s := range results {
		if s == health.StatusDown {
			allOK = false
			break
		}
	}

	resp := fiber.Map{"checks": results}
	if allOK {
		resp["status"] = "ready"
		return c.JSON(resp)
	}
	resp["status"] = "not_ready"
	return c.Status(fiber.StatusServiceUnavailable).JSON(resp)
}
