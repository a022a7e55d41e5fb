package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dshills/styletwin/internal/engine"
	"github.com/dshills/styletwin/internal/logger"
	"github.com/dshills/styletwin/internal/schema"
)

// DefaultHistoryLimit applies when the history request has no limit.
const DefaultHistoryLimit = 20

// Engine is the subset of *engine.Service the handlers call.
type Engine interface {
	AddSample(ctx context.Context, userID, rawText string) (engine.SampleResult, error)
	CheckDrift(ctx context.Context, userID, text string) (schema.DriftResult, error)
	Generate(ctx context.Context, userID, prompt string, opts engine.GenerateOptions) (engine.GenerateResult, error)
	Chat(ctx context.Context, userID, message string, history []schema.Message) (engine.ChatResult, error)
	Profile(ctx context.Context, userID string) (schema.StyleProfile, error)
	History(ctx context.Context, userID string, limit int) ([]schema.GenerationRecord, error)
}

type StyleHandler struct {
	engine Engine
	log    *logger.Logger
}

func NewStyleHandler(e Engine, log *logger.Logger) *StyleHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &StyleHandler{engine: e, log: log}
}

type processSampleRequest struct {
	UserID  string `json:"userId"`
	RawText string `json:"rawText"`
}

type processSampleResponse struct {
	Success  bool                `json:"success"`
	SampleID string              `json:"sampleId"`
	Count    int                 `json:"count"`
	Metrics  schema.StyleMetrics `json:"metrics"`
}

type driftRequest struct {
	UserID        string `json:"userId"`
	GeneratedText string `json:"generatedText"`
}

type driftResponse struct {
	Success              bool             `json:"success"`
	DriftScore           float64          `json:"driftScore"`
	DriftLevel           schema.DriftTier `json:"driftLevel"`
	SimilarityPercentage int              `json:"similarityPercentage"`
}

type styleTwinRequest struct {
	UserID     string `json:"userId"`
	Prompt     string `json:"prompt"`
	CheckDrift bool   `json:"checkDrift"`
}

type styleTwinResponse struct {
	Success       bool                `json:"success"`
	GeneratedText string              `json:"generatedText"`
	StyleVector   []float64           `json:"styleVector"`
	Drift         *schema.DriftResult `json:"drift,omitempty"`
}

type chatRequest struct {
	UserID              string           `json:"userId"`
	Message             string           `json:"message"`
	ConversationHistory []schema.Message `json:"conversationHistory"`
}

type chatResponse struct {
	Success     bool      `json:"success"`
	Response    string    `json:"response"`
	StyleVector []float64 `json:"styleVector"`
}

func (h *StyleHandler) ProcessSample(c *gin.Context) {
	var req processSampleRequest
	if !h.bind(c, &req) {
		return
	}
	res, err := h.engine.AddSample(c.Request.Context(), req.UserID, req.RawText)
	if err != nil {
		h.fail(c, err)
		return
	}
	RespondOK(c, processSampleResponse{
		Success:  true,
		SampleID: res.SampleID,
		Count:    res.Chunks,
		Metrics:  res.Metrics,
	})
}

func (h *StyleHandler) DriftDetect(c *gin.Context) {
	var req driftRequest
	if !h.bind(c, &req) {
		return
	}
	res, err := h.engine.CheckDrift(c.Request.Context(), req.UserID, req.GeneratedText)
	if err != nil {
		h.fail(c, err)
		return
	}
	RespondOK(c, driftResponse{
		Success:              true,
		DriftScore:           res.Score,
		DriftLevel:           res.Tier,
		SimilarityPercentage: res.Percentage,
	})
}

func (h *StyleHandler) StyleTwin(c *gin.Context) {
	var req styleTwinRequest
	if !h.bind(c, &req) {
		return
	}
	res, err := h.engine.Generate(c.Request.Context(), req.UserID, req.Prompt, engine.GenerateOptions{CheckDrift: req.CheckDrift})
	if err != nil {
		h.fail(c, err)
		return
	}
	RespondOK(c, styleTwinResponse{
		Success:       true,
		GeneratedText: res.Text,
		StyleVector:   res.StyleVector,
		Drift:         res.Record.Drift,
	})
}

func (h *StyleHandler) Chat(c *gin.Context) {
	var req chatRequest
	if !h.bind(c, &req) {
		return
	}
	res, err := h.engine.Chat(c.Request.Context(), req.UserID, req.Message, req.ConversationHistory)
	if err != nil {
		h.fail(c, err)
		return
	}
	RespondOK(c, chatResponse{
		Success:     true,
		Response:    res.Response,
		StyleVector: res.StyleVector,
	})
}

func (h *StyleHandler) GetProfile(c *gin.Context) {
	p, err := h.engine.Profile(c.Request.Context(), c.Param("userId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	RespondOK(c, gin.H{"success": true, "profile": p})
}

func (h *StyleHandler) ListHistory(c *gin.Context) {
	limit := DefaultHistoryLimit
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			RespondError(c, http.StatusBadRequest, "invalid_limit", errors.New("limit must be a positive integer"))
			return
		}
		limit = n
	}
	recs, err := h.engine.History(c.Request.Context(), c.Param("userId"), limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	if recs == nil {
		recs = []schema.GenerationRecord{}
	}
	RespondOK(c, gin.H{"success": true, "history": recs})
}

func (h *StyleHandler) HealthCheck(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

func (h *StyleHandler) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		status, code := classify(err)
		if code == "internal" {
			status, code = http.StatusBadRequest, "invalid_body"
		}
		RespondError(c, status, code, err)
		return false
	}
	return true
}

// fail writes the error response for err. Server-side failures are logged
// and their details withheld from the client.
func (h *StyleHandler) fail(c *gin.Context, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", "path", c.FullPath(), "status", status, "error", err)
		if status == http.StatusInternalServerError {
			err = errors.New("internal server error")
		}
	}
	RespondError(c, status, code, err)
}
