package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/CyberTrace-Intelligence/internal/application/advisory"
)

// ChatHandler serves the guidance chat endpoints.
type ChatHandler struct {
	svc advisory.Service
}

// NewChatHandler builds the handler.
func NewChatHandler(svc advisory.Service) *ChatHandler {
	return &ChatHandler{svc: svc}
}

// Chat answers a question grounded on the knowledge corpus.
func (h *ChatHandler) Chat(c *gin.Context) {
	var q advisory.Question
	if !bindJSON(c, &q) {
		return
	}
	ans, err := h.svc.Ask(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ans)
}

// ChatEnhanced answers with caller context and conversation history.
func (h *ChatHandler) ChatEnhanced(c *gin.Context) {
	var q advisory.Question
	if !bindJSON(c, &q) {
		return
	}
	ans, err := h.svc.AskEnhanced(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ans)
}
