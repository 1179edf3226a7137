package handlers

import (
	"dsatracker/internal/middlewares"
	"dsatracker/internal/models"
	"dsatracker/internal/tracker"
	"net/http"

	"github.com/gin-gonic/gin"
)

type TopicHandler struct {
	catalog  *tracker.CatalogService
	progress *tracker.ProgressService
}

func NewTopicHandler(catalog *tracker.CatalogService, progress *tracker.ProgressService) *TopicHandler {
	return &TopicHandler{
		catalog:  catalog,
		progress: progress,
	}
}

// Dashboard returns the admin or the student view depending on the caller.
func (h *TopicHandler) Dashboard(c *gin.Context) {
	id, _ := middlewares.IdentityFrom(c)

	dashboard, err := h.progress.BuildDashboard(c.Request.Context(), id)
	if err != nil {
		writeError(c, "load dashboard", err)
		return
	}

	c.JSON(http.StatusOK, dashboard)
}

func (h *TopicHandler) Toggle(c *gin.Context) {
	var req models.ToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c)
		return
	}

	id, _ := middlewares.IdentityFrom(c)
	progress, err := h.progress.ToggleCompletion(c.Request.Context(), id, req)
	if err != nil {
		writeError(c, "toggle progress", err)
		return
	}

	c.JSON(http.StatusOK, progress)
}

func (h *TopicHandler) CreateTopic(c *gin.Context) {
	var req models.CreateTopicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c)
		return
	}

	id, _ := middlewares.IdentityFrom(c)
	topic, err := h.catalog.CreateTopic(c.Request.Context(), id, &req)
	if err != nil {
		writeError(c, "create topic", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Topic added successfully", "data": topic})
}

func (h *TopicHandler) DeleteTopic(c *gin.Context) {
	id, _ := middlewares.IdentityFrom(c)
	if err := h.catalog.DeleteTopic(c.Request.Context(), id, c.Param("topicId")); err != nil {
		writeError(c, "delete topic", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Topic and all its problems deleted successfully"})
}

func (h *TopicHandler) AddProblem(c *gin.Context) {
	var req models.AddProblemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c)
		return
	}

	id, _ := middlewares.IdentityFrom(c)
	topic, err := h.catalog.AddProblem(c.Request.Context(), id, c.Param("topicId"), &req)
	if err != nil {
		writeError(c, "add problem", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Problem added successfully", "data": topic})
}

func (h *TopicHandler) DeleteProblem(c *gin.Context) {
	id, _ := middlewares.IdentityFrom(c)
	topic, err := h.catalog.DeleteProblem(c.Request.Context(), id, c.Param("topicId"), c.Param("problemId"))
	if err != nil {
		writeError(c, "delete problem", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Problem deleted successfully", "data": topic})
}

// RegisterRoutes mounts the topic endpoints behind auth. Catalog mutations
// additionally pass through admin.
func (h *TopicHandler) RegisterRoutes(router gin.IRouter, auth, admin gin.HandlerFunc) {
	topicGroup := router.Group("/topic", auth)
	{
		topicGroup.GET("/all", h.Dashboard)
		topicGroup.POST("/toggle", h.Toggle)
	}

	adminGroup := topicGroup.Group("", admin)
	{
		adminGroup.POST("", h.CreateTopic)
		adminGroup.DELETE("/:topicId", h.DeleteTopic)
		adminGroup.POST("/:topicId/problem", h.AddProblem)
		adminGroup.DELETE("/:topicId/problem/:problemId", h.DeleteProblem)
	}
}
