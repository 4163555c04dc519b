package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"policyassist-backend/models"
	"policyassist-backend/service"
)

// QueryAnswerer answers a question for a resolved requester
type QueryAnswerer interface {
	AnswerQuery(ctx context.Context, req service.QueryRequest) (*models.StructuredAnswer, error)
}

type QueryHandler struct {
	assistant QueryAnswerer
}

func NewQueryHandler(assistant QueryAnswerer) *QueryHandler {
	return &QueryHandler{assistant: assistant}
}

// QueryRequest is the body of POST /api/query. PolicyCountry (or its
// aliases policy_type and country) narrows answers to india or foreign
// policies.
type QueryRequest struct {
	Question      string `json:"question"`
	PolicyCountry string `json:"policy_country"`
	PolicyType    string `json:"policy_type"`
	Country       string `json:"country"`
}

// Query handles POST /api/query
func (h *QueryHandler) Query(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("INVALID_REQUEST", err.Error()))
		return
	}

	requester := requesterFrom(c)
	answer, err := h.assistant.AnswerQuery(c.Request.Context(), service.QueryRequest{
		Question:   req.Question,
		Department: requester.Department,
		Role:       requester.Role,
		Username:   requester.Username,
		Country:    models.ResolveCountry(firstSet(req.PolicyCountry, req.PolicyType, req.Country), requester.Country),
	})
	if err != nil {
		status, code := queryErrorStatus(err)
		if status >= http.StatusInternalServerError {
			slog.ErrorContext(c.Request.Context(), "query failed", "error", err)
		}
		body := errorBody(code, err.Error())
		body["data"] = gin.H{"answer": "", "documents": []string{}}
		c.JSON(status, body)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    answer,
	})
}

func queryErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrEmptyQuestion):
		return http.StatusBadRequest, "QUESTION_REQUIRED"
	case errors.Is(err, service.ErrRetrievalUnavailable):
		return http.StatusServiceUnavailable, "RETRIEVAL_UNAVAILABLE"
	case errors.Is(err, service.ErrGenerationFailed):
		return http.StatusBadGateway, "GENERATION_FAILED"
	case errors.Is(err, service.ErrHistoryUnavailable):
		return http.StatusServiceUnavailable, "HISTORY_UNAVAILABLE"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}
