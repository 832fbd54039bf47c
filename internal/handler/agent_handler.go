package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/Addisu87/bank-support-agent/internal/agent"
	"github.com/Addisu87/bank-support-agent/internal/middleware"
	"github.com/gin-gonic/gin"
)

// Chatter answers one customer message.
type Chatter interface {
	Chat(context.Context, agent.ChatInput) (*agent.Reply, error)
}

type AgentHandler struct {
	agent Chatter
}

type ChatRequest struct {
	Message  string `json:"message" validate:"required,min=1,max=2000"`
	UseCache *bool  `json:"use_cache"`
}

func NewAgentHandler(a Chatter) *AgentHandler {
	return &AgentHandler{agent: a}
}

func (h *AgentHandler) Chat(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req ChatRequest
	if !bindAndValidate(c, &req) {
		return
	}
	useCache := req.UseCache == nil || *req.UseCache

	reply, err := h.agent.Chat(c.Request.Context(), agent.ChatInput{
		UserID:    userID,
		Message:   req.Message,
		UseCache:  useCache,
		RequestID: c.GetHeader("X-Request-ID"),
	})
	if err != nil {
		switch {
		case errors.Is(err, agent.ErrUnavailable):
			middleware.RespondWithError(c, http.StatusServiceUnavailable, "Support agent is temporarily unavailable")
		case errors.Is(err, agent.ErrTimeout):
			middleware.RespondWithError(c, http.StatusGatewayTimeout, "Support agent timed out")
		case errors.Is(err, agent.ErrTooManySteps):
			middleware.RespondWithError(c, http.StatusBadGateway, "Support agent could not complete the request")
		default:
			middleware.RespondWithDomainError(c, err, "Failed to process chat request")
		}
		return
	}

	c.JSON(http.StatusOK, reply)
}
