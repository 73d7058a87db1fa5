package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"github.com/SwarupSG/SOP-AI-Chatbot-sub000/internal/logger"
	"github.com/SwarupSG/SOP-AI-Chatbot-sub000/internal/queue"
	"github.com/SwarupSG/SOP-AI-Chatbot-sub000/middleware"
	"github.com/SwarupSG/SOP-AI-Chatbot-sub000/services"
	"github.com/SwarupSG/SOP-AI-Chatbot-sub000/utils"
)

type AdminHandler struct {
	tasks    *asynq.Client
	acronyms *services.AcronymService
	audit    *services.AuditService
}

func NewAdminHandler(tasks *asynq.Client, acronyms *services.AcronymService, audit *services.AuditService) *AdminHandler {
	return &AdminHandler{tasks: tasks, acronyms: acronyms, audit: audit}
}

// RegisterAdminRoutes mounts the administrative endpoints.
func RegisterAdminRoutes(rg *gin.RouterGroup, h *AdminHandler) {
	rg.POST("/reindex", h.Reindex)
	rg.POST("/acronyms/reload", h.ReloadAcronyms)
	rg.GET("/questions/pending", h.PendingQuestions)
	rg.GET("/indexed-files", h.IndexedFiles)
}

// Reindex enqueues a full index rebuild. The rebuild itself runs on the
// worker; the request returns as soon as the task is queued.
func (h *AdminHandler) Reindex(c *gin.Context) {
	task, err := queue.NewRebuildIndexTask(middleware.GetUserID(c))
	if err != nil {
		utils.RespondWithInternalError(c, "Failed to build reindex task", nil)
		return
	}

	info, err := h.tasks.EnqueueContext(c.Request.Context(), task)
	if err != nil {
		logger.Error("Failed to enqueue reindex", "error", err)
		utils.RespondWithInternalError(c, "Failed to enqueue reindex", nil)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message": "Reindex queued",
		"task_id": info.ID,
		"queue":   info.Queue,
	})
}

// ReloadAcronyms re-reads the acronym reference table immediately.
func (h *AdminHandler) ReloadAcronyms(c *gin.Context) {
	if err := h.acronyms.Reload(); err != nil {
		logger.Error("Acronym reload failed", "error", err)
		utils.RespondWithInternalError(c, "Failed to reload acronym table", nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Acronym table reloaded",
		"count":   len(h.acronyms.All()),
	})
}

// PendingQuestions lists low-confidence questions awaiting review.
func (h *AdminHandler) PendingQuestions(c *gin.Context) {
	questions, err := h.audit.ListPending(c.Request.Context(), 100)
	if err != nil {
		logger.Error("Failed to list pending questions", "error", err)
		utils.RespondWithInternalError(c, "Failed to list pending questions", nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{"questions": questions})
}

// IndexedFiles reports what the last rebuild indexed.
func (h *AdminHandler) IndexedFiles(c *gin.Context) {
	files, err := h.audit.IndexedFiles(c.Request.Context())
	if err != nil {
		logger.Error("Failed to list indexed files", "error", err)
		utils.RespondWithInternalError(c, "Failed to list indexed files", nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{"files": files})
}
