package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/velohub/audio-qa-server/internal/repository/models"
	"github.com/velohub/audio-qa-server/internal/service"
)

const (
	defaultStatusTTL  = 10 * time.Second
	defaultAverageTTL = 5 * time.Minute
	dateParamLayout   = "2006-01-02"
)

type cacheKeyType string

const (
	cacheKeyStatus       cacheKeyType = "api:audio_status"
	cacheKeyAgentAverage cacheKeyType = "api:agent_average"
)

// StatusCacheKey names the cached status entry for one evaluation, so the
// completion broadcaster can drop it the moment processing finishes.
func StatusCacheKey(evaluationID string) string {
	return fmt.Sprintf("%s:%s", cacheKeyStatus, evaluationID)
}

type Handlers struct {
	status   StatusService
	analysis AnalysisService
	cache    Cacher
	logger   *zap.Logger
	sfGroup  singleflight.Group

	bucket     string
	statusTTL  time.Duration
	averageTTL time.Duration
}

type HandlersOption func(*Handlers)

func WithCache(c Cacher) HandlersOption {
	return func(h *Handlers) { h.cache = c }
}

func WithStatusTTL(ttl time.Duration) HandlersOption {
	return func(h *Handlers) {
		if ttl > 0 {
			h.statusTTL = ttl
		}
	}
}

func WithAverageTTL(ttl time.Duration) HandlersOption {
	return func(h *Handlers) {
		if ttl > 0 {
			h.averageTTL = ttl
		}
	}
}

func NewHandlers(status StatusService, analysis AnalysisService, bucket string, logger *zap.Logger, opts ...HandlersOption) *Handlers {
	if status == nil || analysis == nil {
		panic("nil service provided to NewHandlers")
	}
	h := &Handlers{
		status:     status,
		analysis:   analysis,
		bucket:     bucket,
		logger:     logger.Named("api"),
		statusTTL:  defaultStatusTTL,
		averageTTL: defaultAverageTTL,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts all routes on the engine.
func (h *Handlers) Register(router gin.IRouter) {
	v1 := router.Group("/api/v1")
	{
		v1.POST("/evaluations", h.CreateEvaluation)
		v1.GET("/evaluations/:id", h.GetEvaluation)

		audio := v1.Group("/audio")
		{
			audio.POST("/upload-url", h.RequestUploadURL)
			audio.POST("/confirm-upload", h.ConfirmUpload)
			audio.GET("/status/:evaluationId", h.AudioStatus)
			audio.GET("/result/:evaluationId", h.AnalysisResult)
			audio.POST("/reprocess/:evaluationId", h.Reprocess)
			audio.GET("/agent-average/:agentName", h.AgentAverage)
			audio.GET("/list", h.ListByAgent)
			audio.PATCH("/result/:evaluationId/analysis-text", h.UpdateAnalysisText)
		}
	}

	router.POST("/internal/notify-completed", h.NotifyCompleted)
}

// respondError maps service sentinels to HTTP statuses and hides provider
// detail from clients.
func (h *Handlers) respondError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrConflict), errors.Is(err, service.ErrMismatch):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.logger.Error("request failed", zap.String("op", op), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

type createEvaluationRequest struct {
	EvaluatorName string                 `json:"evaluatorName"`
	AgentName     string                 `json:"agentName"`
	Month         string                 `json:"month"`
	Year          int                    `json:"year"`
	CallDate      time.Time              `json:"callDate"`
	Criteria      models.QualityCriteria `json:"criteria"`
	Notes         string                 `json:"notes"`
	TotalScore    float64                `json:"totalScore"`
}

type evaluationResponse struct {
	ID            string                 `json:"id"`
	EvaluatorName string                 `json:"evaluatorName"`
	AgentName     string                 `json:"agentName"`
	Month         string                 `json:"month"`
	Year          int                    `json:"year"`
	CallDate      time.Time              `json:"callDate"`
	Criteria      models.QualityCriteria `json:"criteria"`
	Notes         string                 `json:"notes"`
	TotalScore    float64                `json:"totalScore"`
	AudioFileName string                 `json:"audioFileName,omitempty"`
	AudioStatus   service.AudioStatus    `json:"audioStatus"`
	CreatedAt     time.Time              `json:"createdAt"`
	UpdatedAt     time.Time              `json:"updatedAt"`
}

func toEvaluationResponse(eval models.Evaluation) evaluationResponse {
	return evaluationResponse{
		ID:            eval.ID,
		EvaluatorName: eval.EvaluatorName,
		AgentName:     eval.AgentName,
		Month:         eval.Month,
		Year:          eval.Year,
		CallDate:      eval.CallDate,
		Criteria:      eval.Criteria,
		Notes:         eval.Notes,
		TotalScore:    eval.TotalScore,
		AudioFileName: eval.AudioFileName,
		AudioStatus:   service.DeriveAudioStatus(eval.AudioSent, eval.AudioTreated),
		CreatedAt:     eval.CreatedAt,
		UpdatedAt:     eval.UpdatedAt,
	}
}

func (h *Handlers) CreateEvaluation(c *gin.Context) {
	var req createEvaluationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	eval, err := h.status.CreateEvaluation(c.Request.Context(), service.NewEvaluation{
		EvaluatorName: req.EvaluatorName,
		AgentName:     req.AgentName,
		Month:         req.Month,
		Year:          req.Year,
		CallDate:      req.CallDate,
		Criteria:      req.Criteria,
		Notes:         req.Notes,
		TotalScore:    req.TotalScore,
	})
	if err != nil {
		h.respondError(c, "CreateEvaluation", err)
		return
	}

	c.JSON(http.StatusCreated, toEvaluationResponse(eval))
}

func (h *Handlers) GetEvaluation(c *gin.Context) {
	eval, err := h.status.GetEvaluation(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, "GetEvaluation", err)
		return
	}
	c.JSON(http.StatusOK, toEvaluationResponse(eval))
}

type uploadURLRequest struct {
	EvaluationID string `json:"evaluationId"`
	FileName     string `json:"fileName"`
	MimeType     string `json:"mimeType"`
	FileSize     int64  `json:"fileSize"`
}

func (h *Handlers) RequestUploadURL(c *gin.Context) {
	var req uploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	ticket, err := h.status.RequestUploadURL(c.Request.Context(), req.EvaluationID, req.FileName, req.MimeType, req.FileSize)
	if err != nil {
		h.respondError(c, "RequestUploadURL", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"uploadUrl":        ticket.UploadURL,
		"objectKey":        ticket.ObjectKey,
		"bucket":           ticket.Bucket,
		"expiresInSeconds": ticket.ExpiresInSeconds,
	})
}

type confirmUploadRequest struct {
	EvaluationID string `json:"evaluationId"`
	ObjectKey    string `json:"objectKey"`
}

func (h *Handlers) ConfirmUpload(c *gin.Context) {
	var req confirmUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.status.ConfirmUpload(c.Request.Context(), req.EvaluationID, req.ObjectKey); err != nil {
		h.respondError(c, "ConfirmUpload", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"evaluationId": req.EvaluationID,
		"status":       service.StatusProcessing,
	})
}

type statusResponse struct {
	EvaluationID   string              `json:"evaluationId"`
	Status         service.AudioStatus `json:"status"`
	AudioFileName  string              `json:"audioFileName,omitempty"`
	Sent           bool                `json:"sent"`
	Treated        bool                `json:"treated"`
	AudioCreatedAt *time.Time          `json:"audioCreatedAt,omitempty"`
	AudioUpdatedAt *time.Time          `json:"audioUpdatedAt,omitempty"`
}

func (h *Handlers) AudioStatus(c *gin.Context) {
	evaluationID := c.Param("evaluationId")
	cacheKey := StatusCacheKey(evaluationID)

	info, err := FindAndCache(c.Request.Context(), h.cache, &h.sfGroup, cacheKey, h.statusTTL, h.logger,
		func(ctx context.Context) (service.AudioStatusInfo, error) {
			return h.status.Status(ctx, evaluationID)
		})
	if err != nil {
		h.respondError(c, "AudioStatus", err)
		return
	}

	c.JSON(http.StatusOK, statusResponse{
		EvaluationID:   info.EvaluationID,
		Status:         info.Status,
		AudioFileName:  info.AudioFileName,
		Sent:           info.Sent,
		Treated:        info.Treated,
		AudioCreatedAt: info.AudioCreatedAt,
		AudioUpdatedAt: info.AudioUpdatedAt,
	})
}

type analysisResponse struct {
	ID                string                 `json:"id"`
	EvaluationID      string                 `json:"evaluationId"`
	FileName          string                 `json:"fileName"`
	Transcript        string                 `json:"transcript"`
	WordTimestamps    []models.WordTimestamp `json:"wordTimestamps,omitempty"`
	Emotion           models.Emotion         `json:"emotion"`
	Nuance            models.Nuance          `json:"nuance"`
	QualityAnalysis   models.ScoringPass     `json:"qualityAnalysis"`
	GPTAnalysis       *models.ScoringPass    `json:"gptAnalysis,omitempty"`
	ConsensusScore    *float64               `json:"consensusScore,omitempty"`
	Score             float64                `json:"score"`
	CriticalWords     []string               `json:"criticalWords,omitempty"`
	ProcessingSeconds float64                `json:"processingSeconds"`
	CreatedAt         time.Time              `json:"createdAt"`
}

func toAnalysisResponse(result models.AnalysisResult) analysisResponse {
	return analysisResponse{
		ID:                result.ID,
		EvaluationID:      result.EvaluationID,
		FileName:          result.FileName,
		Transcript:        result.Transcript,
		WordTimestamps:    result.WordTimestamps,
		Emotion:           result.Emotion,
		Nuance:            result.Nuance,
		QualityAnalysis:   result.QualityAnalysis,
		GPTAnalysis:       result.GPTAnalysis,
		ConsensusScore:    result.ConsensusScore,
		Score:             result.EffectiveScore(),
		CriticalWords:     result.CriticalWords,
		ProcessingSeconds: result.ProcessingSeconds,
		CreatedAt:         result.CreatedAt,
	}
}

func (h *Handlers) AnalysisResult(c *gin.Context) {
	result, err := h.analysis.GetResult(c.Request.Context(), c.Param("evaluationId"))
	if err != nil {
		h.respondError(c, "AnalysisResult", err)
		return
	}
	c.JSON(http.StatusOK, toAnalysisResponse(result))
}

func (h *Handlers) Reprocess(c *gin.Context) {
	messageID, err := h.status.Reprocess(c.Request.Context(), c.Param("evaluationId"), h.bucket)
	if err != nil {
		h.respondError(c, "Reprocess", err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"messageId": messageID})
}

func (h *Handlers) AgentAverage(c *gin.Context) {
	agentName := c.Param("agentName")

	window, err := parseDateRange(c.Query("dateStart"), c.Query("dateEnd"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cacheKey := fmt.Sprintf("%s:%s:%s:%s", cacheKeyAgentAverage, agentName, c.Query("dateStart"), c.Query("dateEnd"))
	avg, err := FindAndCache(c.Request.Context(), h.cache, &h.sfGroup, cacheKey, h.averageTTL, h.logger,
		func(ctx context.Context) (service.AgentAverage, error) {
			return h.analysis.AgentAverage(ctx, agentName, window)
		})
	if err != nil {
		h.respondError(c, "AgentAverage", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"agentName":   agentName,
		"average":     avg.Average,
		"sampleCount": avg.SampleCount,
	})
}

type listItemResponse struct {
	AgentName string `json:"agentName"`
	analysisResponse
}

func (h *Handlers) ListByAgent(c *gin.Context) {
	year := 0
	if raw := c.Query("year"); raw != "" {
		if _, err := fmt.Sscanf(raw, "%d", &year); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "year must be numeric"})
			return
		}
	}

	results, err := h.analysis.ListByAgent(c.Request.Context(), c.Query("agentName"), c.Query("month"), year)
	if err != nil {
		h.respondError(c, "ListByAgent", err)
		return
	}

	items := make([]listItemResponse, 0, len(results))
	for _, r := range results {
		items = append(items, listItemResponse{
			AgentName:        r.AgentName,
			analysisResponse: toAnalysisResponse(r.Result),
		})
	}

	c.JSON(http.StatusOK, gin.H{"results": items, "count": len(items)})
}

type updateAnalysisTextRequest struct {
	AnalysisText string `json:"analysisText"`
}

func (h *Handlers) UpdateAnalysisText(c *gin.Context) {
	var req updateAnalysisTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	evaluationID := c.Param("evaluationId")
	if err := h.analysis.UpdateAnalysisText(c.Request.Context(), evaluationID, req.AnalysisText); err != nil {
		h.respondError(c, "UpdateAnalysisText", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"evaluationId": evaluationID})
}

type notifyCompletedRequest struct {
	EvaluationID string `json:"evaluationId"`
}

func (h *Handlers) NotifyCompleted(c *gin.Context) {
	var req notifyCompletedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.status.NotifyCompleted(c.Request.Context(), req.EvaluationID); err != nil {
		h.respondError(c, "NotifyCompleted", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"evaluationId": req.EvaluationID})
}

func parseDateRange(start, end string) (service.DateRange, error) {
	var window service.DateRange
	if start != "" {
		t, err := time.Parse(dateParamLayout, start)
		if err != nil {
			return window, fmt.Errorf("dateStart must be YYYY-MM-DD")
		}
		window.Start = &t
	}
	if end != "" {
		t, err := time.Parse(dateParamLayout, end)
		if err != nil {
			return window, fmt.Errorf("dateEnd must be YYYY-MM-DD")
		}
		window.End = &t
	}
	return window, nil
}
