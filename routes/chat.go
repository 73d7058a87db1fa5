package routes

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/SwarupSG/SOP-AI-Chatbot-sub000/internal/logger"
	"github.com/SwarupSG/SOP-AI-Chatbot-sub000/middleware"
	"github.com/SwarupSG/SOP-AI-Chatbot-sub000/services"
	"github.com/SwarupSG/SOP-AI-Chatbot-sub000/utils"
)

type ChatHandler struct {
	rag       *services.RAGService
	audit     *services.AuditService
	questions *services.QuestionStore
}

func NewChatHandler(rag *services.RAGService, audit *services.AuditService, questions *services.QuestionStore) *ChatHandler {
	return &ChatHandler{rag: rag, audit: audit, questions: questions}
}

// RegisterChatRoutes mounts the question-answering endpoints.
func RegisterChatRoutes(rg *gin.RouterGroup, h *ChatHandler) {
	rg.POST("/ask", h.Ask)
	rg.GET("/recent", h.Recent)
	rg.GET("/questions", h.SuggestedQuestions)
}

type askRequest struct {
	Question string `json:"question" binding:"required"`
}

// Ask answers one question through the full pipeline.
func (h *ChatHandler) Ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithBadRequest(c, "question is required", nil)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		utils.RespondWithBadRequest(c, "question must not be empty", nil)
		return
	}

	userID := middleware.GetUserID(c)
	result, err := h.rag.Answer(c.Request.Context(), req.Question, userID)
	if err != nil {
		logger.Error("Answer pipeline failed", "error", err, "request_id", middleware.GetRequestID(c))
		utils.RespondWithInternalError(c, "Failed to answer question", nil)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Recent returns the caller's latest answered questions.
func (h *ChatHandler) Recent(c *gin.Context) {
	userID := middleware.GetUserID(c)

	questions, err := h.audit.RecentQuestions(c.Request.Context(), userID, 20)
	if err != nil {
		logger.Error("Failed to load recent questions", "error", err)
		utils.RespondWithInternalError(c, "Failed to load recent questions", nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{"questions": questions})
}

// SuggestedQuestions returns the curated questions for a source file.
func (h *ChatHandler) SuggestedQuestions(c *gin.Context) {
	source := c.Query("source")
	if source == "" {
		utils.RespondWithBadRequest(c, "source query parameter is required", nil)
		return
	}

	questions, err := h.questions.ListBySource(c.Request.Context(), source)
	if err != nil {
		logger.Error("Failed to load suggested questions", "error", err)
		utils.RespondWithInternalError(c, "Failed to load suggested questions", nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{"questions": questions})
}
