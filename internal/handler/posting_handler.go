package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"accounting-engine/internal/apperrors"
	"accounting-engine/internal/models"
	"accounting-engine/internal/service"
)

// PostingHandler exposes the posting and reversal commands.
type PostingHandler struct {
	postings *service.PostingService
	logger   *zap.Logger
}

// NewPostingHandler creates a PostingHandler.
func NewPostingHandler(postings *service.PostingService, logger *zap.Logger) *PostingHandler {
	return &PostingHandler{postings: postings, logger: logger}
}

// respond writes the uniform envelope with the matching HTTP status.
func respond(c *gin.Context, env models.Envelope) {
	c.JSON(env.StatusCode, env)
}

func respondErr(c *gin.Context, err error) {
	respond(c, models.Fail(apperrors.StatusCode(err), err.Error()))
}

func (h *PostingHandler) Post(c *gin.Context) {
	var req models.PostingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, models.Fail(http.StatusBadRequest, err.Error()))
		return
	}

	result, err := h.postings.Post(c.Request.Context(), req)
	if err != nil {
		respondErr(c, err)
		return
	}
	respond(c, models.OK(http.StatusCreated, result))
}

func (h *PostingHandler) Reverse(c *gin.Context) {
	var req struct {
		Reference string `json:"reference" binding:"required"`
		Actor     string `json:"actor"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, models.Fail(http.StatusBadRequest, err.Error()))
		return
	}

	result, err := h.postings.Reverse(c.Request.Context(), req.Reference, req.Actor)
	if err != nil {
		respondErr(c, err)
		return
	}
	respond(c, models.OK(http.StatusCreated, result))
}
