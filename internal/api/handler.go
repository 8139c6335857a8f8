package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/suryadaiv/playground-server/internal/judge"
	"github.com/suryadaiv/playground-server/internal/language"
)

// Runner executes a submission against the judge. Satisfied by *judge.Client;
// tests substitute a stub.
type Runner interface {
	SubmitAndWait(ctx context.Context, sub judge.SubmissionRequest, opts judge.Options) (*judge.Result, error)
}

// Handler serves the public HTTP API.
type Handler struct {
	runner Runner
	opts   judge.Options
	log    *zap.Logger
}

// NewHandler wires the run endpoint to a judge client.
func NewHandler(runner Runner, opts judge.Options, log *zap.Logger) *Handler {
	return &Handler{runner: runner, opts: opts, log: log}
}

// runRequest is the POST /api/run body. Source is a pointer so a missing
// field is distinguishable from an empty program. Clients may send either a
// raw Judge0 languageId or a friendly language name.
type runRequest struct {
	Language   string  `json:"language"`
	LanguageID *int    `json:"languageId"`
	Source     *string `json:"source"`
	Stdin      string  `json:"stdin"`
}

// Run executes source code via the judge and returns the normalized result.
// The HTTP status is 200 whenever the gateway itself succeeded; compile and
// runtime failures of the user's program live inside the JSON body.
func (h *Handler) Run(c *gin.Context) {
	var body runRequest
	if err := c.ShouldBindJSON(&body); err != nil || body.Source == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload: missing source"})
		return
	}

	langID, ok := resolveLanguage(body)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or missing language"})
		return
	}

	result, err := h.runner.SubmitAndWait(c.Request.Context(), judge.SubmissionRequest{
		SourceCode: *body.Source,
		LanguageID: langID,
		Stdin:      body.Stdin,
	}, h.opts)
	if err != nil {
		h.log.Error("execution failed", zap.Int("language_id", langID), zap.Error(err))
		status := http.StatusInternalServerError
		detail := err.Error()
		var se *judge.StatusError
		if errors.As(err, &se) {
			status = se.Code
			detail = se.Detail
		}
		c.JSON(status, gin.H{"error": "Execution failed", "detail": detail})
		return
	}

	c.JSON(http.StatusOK, result)
}

// resolveLanguage prefers an explicit numeric ID, passed through unchanged,
// over the friendly name. Judge language IDs are positive; anything else is
// rejected here instead of bouncing off the judge as a 5xx.
func resolveLanguage(body runRequest) (int, bool) {
	if body.LanguageID != nil {
		if *body.LanguageID <= 0 {
			return 0, false
		}
		return *body.LanguageID, true
	}
	if body.Language == "" {
		return 0, false
	}
	return language.Resolve(body.Language)
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
