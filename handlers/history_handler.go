package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"policyassist-backend/models"
	"policyassist-backend/repository"
)

// HistoryReader lists past questions and their answers by department
type HistoryReader interface {
	ListQuestions(ctx context.Context, department string, limit int) ([]models.QuestionSummary, error)
	Thread(ctx context.Context, userMessageID int64, department string) (*models.Thread, error)
}

type HistoryHandler struct {
	history HistoryReader
	limit   int
}

func NewHistoryHandler(history HistoryReader) *HistoryHandler {
	return &HistoryHandler{history: history, limit: 100}
}

// department falls back to the requester's own department; only HR may
// read another department's history
func (h *HistoryHandler) department(c *gin.Context) (string, bool) {
	requester := requesterFrom(c)
	dept := strings.ToLower(strings.TrimSpace(c.Query("department")))
	if dept == "" {
		return requester.Department, true
	}
	if dept != requester.Department && !requester.IsHR() {
		return "", false
	}
	return dept, true
}

// ListQuestions handles GET /api/history
func (h *HistoryHandler) ListQuestions(c *gin.Context) {
	dept, ok := h.department(c)
	if !ok {
		c.JSON(http.StatusForbidden, errorBody("FORBIDDEN", "Cannot read another department's history"))
		return
	}

	limit := h.limit
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n < limit {
			limit = n
		}
	}

	questions, err := h.history.ListQuestions(c.Request.Context(), dept, limit)
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "failed to list history", "error", err)
		c.JSON(http.StatusServiceUnavailable, errorBody("HISTORY_UNAVAILABLE", "History is temporarily unavailable"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    questions,
	})
}

// GetThread handles GET /api/history/thread/:id
func (h *HistoryHandler) GetThread(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody("INVALID_ID", "Invalid message ID format"))
		return
	}
	dept, ok := h.department(c)
	if !ok {
		c.JSON(http.StatusForbidden, errorBody("FORBIDDEN", "Cannot read another department's history"))
		return
	}

	thread, err := h.history.Thread(c.Request.Context(), id, dept)
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, errorBody("NOT_FOUND", "Question not found"))
		return
	}
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "failed to load thread", "error", err)
		c.JSON(http.StatusServiceUnavailable, errorBody("HISTORY_UNAVAILABLE", "History is temporarily unavailable"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    thread,
	})
}
