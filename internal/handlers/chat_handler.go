package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "quicksell/internal/errors"
	"quicksell/internal/services"
)

// ChatHandler handles buyer-seller chats
type ChatHandler struct {
	chatService services.ChatServicer
	pageSize    int
	baseURL     string
}

// NewChatHandler creates a new ChatHandler
func NewChatHandler(chatService services.ChatServicer, pageSize int, baseURL string) *ChatHandler {
	if pageSize < 1 {
		pageSize = 10
	}
	return &ChatHandler{chatService: chatService, pageSize: pageSize, baseURL: baseURL}
}

// StartChatRequest represents the request payload for starting a chat
type StartChatRequest struct {
	Listing string `json:"listing" binding:"required"`
	Text    string `json:"text" binding:"required,max=2000"`
}

// SendMessageRequest represents the request payload for a chat message
type SendMessageRequest struct {
	Text string `json:"text" binding:"required,max=2000"`
}

// StartChat opens a chat about a listing
// @Summary     Start a chat
// @Description Message the seller of a listing; an existing chat about the same listing is reused
// @Tags        chats
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body StartChatRequest true "Listing and first message"
// @Success     201 {object} services.ChatView "Chat"
// @Failure     400 {object} ErrorResponse "Invalid input or own listing"
// @Failure     404 {object} ErrorResponse "Listing not found"
// @Router      /chats [post]
func (h *ChatHandler) StartChat(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req StartChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	chat, err := h.chatService.StartChat(userID, req.Listing, req.Text)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, chat)
}

// GetChats lists the caller's chats
// @Summary     List chats
// @Description Chats the caller takes part in, most recently active last
// @Tags        chats
// @Produce     json
// @Security    BearerAuth
// @Param       page query int false "Page number, starting at 1"
// @Success     200 {object} pagination.Page[services.ChatView] "Page of chats"
// @Failure     400 {object} ErrorResponse "Invalid page"
// @Router      /chats [get]
func (h *ChatHandler) GetChats(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	page, err := pageRequest(c, h.pageSize, h.baseURL)
	if err != nil {
		respondWithError(c, err)
		return
	}

	chats, err := h.chatService.GetUserChats(userID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, chats)
}

// GetMessages lists the messages of a chat
// @Summary     List messages
// @Description Messages of a chat, newest first; marks the other participant's messages read
// @Tags        chats
// @Produce     json
// @Security    BearerAuth
// @Param       id   path  string true  "Chat id"
// @Param       page query int    false "Page number, starting at 1"
// @Success     200 {object} pagination.Page[services.MessageView] "Page of messages"
// @Failure     403 {object} ErrorResponse "Not a participant"
// @Failure     404 {object} ErrorResponse "Chat not found"
// @Router      /chats/{id}/messages [get]
func (h *ChatHandler) GetMessages(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	page, err := pageRequest(c, h.pageSize, h.baseURL)
	if err != nil {
		respondWithError(c, err)
		return
	}

	messages, err := h.chatService.GetMessages(userID, c.Param("id"), page)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

// SendMessage posts a message to a chat
// @Summary     Send a message
// @Tags        chats
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string             true "Chat id"
// @Param       request body SendMessageRequest true "Message"
// @Success     201 {object} services.MessageView "Message"
// @Failure     403 {object} ErrorResponse "Not a participant"
// @Failure     404 {object} ErrorResponse "Chat not found"
// @Router      /chats/{id}/messages [post]
func (h *ChatHandler) SendMessage(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	message, err := h.chatService.SendMessage(userID, c.Param("id"), req.Text)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, message)
}
