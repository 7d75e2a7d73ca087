package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edumesh/edumesh-api/internal/service"
	appErrors "github.com/edumesh/edumesh-api/pkg/errors"
	"github.com/edumesh/edumesh-api/pkg/response"
)

// ChatHandler exposes anchor-chat session endpoints.
type ChatHandler struct {
	chats *service.ChatService
}

// NewChatHandler constructs ChatHandler.
func NewChatHandler(chats *service.ChatService) *ChatHandler {
	return &ChatHandler{chats: chats}
}

// Start godoc
// @Summary Start a chat session anchored to a bibliography item
// @Tags Chat
// @Accept json
// @Produce json
// @Param payload body service.StartSessionRequest true "Session payload"
// @Success 201 {object} response.Envelope
// @Router /chat/sessions [post]
func (h *ChatHandler) Start(c *gin.Context) {
	var req service.StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if req.SchoolID == "" {
		req.SchoolID = schoolScope(c)
	}
	detail, err := h.chats.StartSession(c.Request.Context(), currentUser(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, detail)
}

// Get godoc
// @Summary Fetch a session with its messages
// @Tags Chat
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /chat/sessions/{id} [get]
func (h *ChatHandler) Get(c *gin.Context) {
	detail, err := h.chats.GetSession(c.Request.Context(), currentUser(c), schoolScope(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Send godoc
// @Summary Send a student message and receive the assistant reply
// @Tags Chat
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body service.SendMessageRequest true "Message payload"
// @Success 200 {object} response.Envelope
// @Router /chat/sessions/{id}/messages [post]
func (h *ChatHandler) Send(c *gin.Context) {
	var req service.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if req.SchoolID == "" {
		req.SchoolID = schoolScope(c)
	}
	reply, err := h.chats.SendMessage(c.Request.Context(), currentUser(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reply, nil)
}

// Complete godoc
// @Summary Complete an active session
// @Tags Chat
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /chat/sessions/{id}/complete [put]
func (h *ChatHandler) Complete(c *gin.Context) {
	session, err := h.chats.CompleteSession(c.Request.Context(), currentUser(c), schoolScope(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// Cancel godoc
// @Summary Cancel an active session
// @Tags Chat
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /chat/sessions/{id}/cancel [put]
func (h *ChatHandler) Cancel(c *gin.Context) {
	session, err := h.chats.CancelSession(c.Request.Context(), currentUser(c), schoolScope(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}
