package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"messagely/internal/archive"
	"messagely/internal/auth"
	"messagely/internal/domain"
	"messagely/internal/service"
)

const exportURLTTL = 15 * time.Minute

// Handler wires HTTP routes to domain services.
type Handler struct {
	users       service.UserService
	messages    service.MessageService
	guard       *auth.Guard
	tokens      *auth.TokenIssuer
	archive     archive.Service
	archiveOpts archive.UploadOptions
}

func NewHandler(
	users service.UserService,
	messages service.MessageService,
	guard *auth.Guard,
	tokens *auth.TokenIssuer,
	archiveSvc archive.Service,
	archiveOpts archive.UploadOptions,
) *Handler {
	return &Handler{
		users:       users,
		messages:    messages,
		guard:       guard,
		tokens:      tokens,
		archive:     archiveSvc,
		archiveOpts: archiveOpts,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware())
	router.Use(identityMiddleware(h.tokens))

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", h.login)
		authGroup.POST("/register", h.register)
	}

	users := router.Group("/users")
	{
		users.GET("", h.requireLoggedIn(), h.listUsers)
		users.GET("/:username", h.requireSelf(), h.getUser)
		users.GET("/:username/to", h.requireSelf(), h.listReceived)
		users.GET("/:username/from", h.requireSelf(), h.listSent)
		users.POST("/:username/export", h.requireSelf(), h.exportMessages)
	}

	messages := router.Group("/messages")
	{
		messages.GET("/:id", h.requireLoggedIn(), h.requireParticipant(), h.getMessage)
		messages.POST("", h.requireLoggedIn(), h.sendMessage)
		messages.POST("/:id/read", h.requireRecipient(), h.markRead)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": "ok"})
	})
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ok, err := h.users.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if !ok {
		abortWithError(c, domain.ErrInvalidCredentials)
		return
	}

	if _, err := h.users.TouchLogin(c.Request.Context(), req.Username); err != nil {
		abortWithError(c, err)
		return
	}

	token, err := h.tokens.Issue(req.Username)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

type registerRequest struct {
	Username  string `json:"username" binding:"required"`
	Password  string `json:"password" binding:"required"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Phone     string `json:"phone" binding:"required"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.Register(c.Request.Context(), service.RegisterParams{
		Username:  req.Username,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	// registration counts as the first login
	if _, err := h.users.TouchLogin(c.Request.Context(), user.Username); err != nil {
		abortWithError(c, err)
		return
	}

	token, err := h.tokens.Issue(user.Username)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"token": token})
}

func (h *Handler) listUsers(c *gin.Context) {
	profiles, err := h.users.ListAll(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}

	resp := make([]ProfileResponse, len(profiles))
	for i := range profiles {
		resp[i] = profileToResponse(profiles[i])
	}
	c.JSON(http.StatusOK, gin.H{"users": resp})
}

func (h *Handler) getUser(c *gin.Context) {
	user, err := h.users.Get(c.Request.Context(), c.Param("username"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": userToResponse(user)})
}

func (h *Handler) listReceived(c *gin.Context) {
	messages, err := h.messages.ListReceivedWithSenders(c.Request.Context(), c.Param("username"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	resp := make([]ReceivedMessageResponse, len(messages))
	for i := range messages {
		resp[i] = receivedToResponse(messages[i])
	}
	c.JSON(http.StatusOK, gin.H{"messages": resp})
}

func (h *Handler) listSent(c *gin.Context) {
	messages, err := h.messages.ListSentWithRecipients(c.Request.Context(), c.Param("username"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	resp := make([]SentMessageResponse, len(messages))
	for i := range messages {
		resp[i] = sentToResponse(messages[i])
	}
	c.JSON(http.StatusOK, gin.H{"messages": resp})
}

func (h *Handler) getMessage(c *gin.Context) {
	id, ok := messageID(c)
	if !ok {
		return
	}

	msg, err := h.messages.GetWithParties(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": messageWithPartiesToResponse(msg)})
}

type sendMessageRequest struct {
	ToUsername string `json:"to_username" binding:"required"`
	Body       string `json:"body" binding:"required"`
}

func (h *Handler) sendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// the sender is always the verified identity, never a request field
	identity := currentIdentity(c)
	msg, err := h.messages.Send(c.Request.Context(), identity.Username, req.ToUsername, req.Body)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": MessageResponse{
		ID:           msg.ID,
		FromUsername: msg.FromUsername,
		ToUsername:   msg.ToUsername,
		Body:         msg.Body,
		SentAt:       msg.SentAt.Format(time.RFC3339),
	}})
}

func (h *Handler) markRead(c *gin.Context) {
	id, ok := messageID(c)
	if !ok {
		return
	}

	msg, err := h.messages.MarkRead(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}

	resp := gin.H{"id": msg.ID}
	if msg.ReadAt != nil {
		resp["read_at"] = msg.ReadAt.Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, gin.H{"message": resp})
}

func (h *Handler) exportMessages(c *gin.Context) {
	if h.archive == nil || h.archiveOpts.Bucket == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "archive storage not configured"})
		return
	}

	username := c.Param("username")
	sent, err := h.messages.ListSentWithRecipients(c.Request.Context(), username)
	if err != nil {
		abortWithError(c, err)
		return
	}
	received, err := h.messages.ListReceivedWithSenders(c.Request.Context(), username)
	if err != nil {
		abortWithError(c, err)
		return
	}

	sentResp := make([]SentMessageResponse, len(sent))
	for i := range sent {
		sentResp[i] = sentToResponse(sent[i])
	}
	receivedResp := make([]ReceivedMessageResponse, len(received))
	for i := range received {
		receivedResp[i] = receivedToResponse(received[i])
	}

	payload, err := json.Marshal(gin.H{
		"username":    username,
		"exported_at": time.Now().UTC().Format(time.RFC3339),
		"sent":        sentResp,
		"received":    receivedResp,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	key := fmt.Sprintf("%s/export-%s.json", username, uuid.NewString())
	export, err := h.archive.UploadExport(c.Request.Context(), key, payload, h.archiveOpts)
	if err != nil {
		abortWithError(c, err)
		return
	}

	url, err := h.archive.GetObjectURL(c.Request.Context(), h.archiveOpts.Bucket, export.Key, exportURLTTL)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"export": gin.H{
		"location": export.Location,
		"url":      url,
	}})
}

// abortWithError maps a domain error kind to a transport status. Internal
// detail never crosses the boundary: unknown errors get a generic body.
func abortWithError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, domain.ErrInvalidCredentials):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrUserNotFound), errors.Is(err, domain.ErrMessageNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrUserExists):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

type ProfileResponse struct {
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

type UserResponse struct {
	Username    string  `json:"username"`
	FirstName   string  `json:"first_name"`
	LastName    string  `json:"last_name"`
	Phone       string  `json:"phone"`
	JoinAt      string  `json:"join_at"`
	LastLoginAt *string `json:"last_login_at"`
}

type MessageResponse struct {
	ID           int64  `json:"id"`
	FromUsername string `json:"from_username"`
	ToUsername   string `json:"to_username"`
	Body         string `json:"body"`
	SentAt       string `json:"sent_at"`
}

type MessageWithPartiesResponse struct {
	ID       int64           `json:"id"`
	Body     string          `json:"body"`
	SentAt   string          `json:"sent_at"`
	ReadAt   *string         `json:"read_at"`
	FromUser ProfileResponse `json:"from_user"`
	ToUser   ProfileResponse `json:"to_user"`
}

type SentMessageResponse struct {
	ID     int64           `json:"id"`
	Body   string          `json:"body"`
	SentAt string          `json:"sent_at"`
	ReadAt *string         `json:"read_at"`
	ToUser ProfileResponse `json:"to_user"`
}

type ReceivedMessageResponse struct {
	ID       int64           `json:"id"`
	Body     string          `json:"body"`
	SentAt   string          `json:"sent_at"`
	ReadAt   *string         `json:"read_at"`
	FromUser ProfileResponse `json:"from_user"`
}

func profileToResponse(p domain.Profile) ProfileResponse {
	return ProfileResponse{
		Username:  p.Username,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Phone:     p.Phone,
	}
}

func userToResponse(u *domain.User) UserResponse {
	resp := UserResponse{
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Phone:     u.Phone,
		JoinAt:    u.JoinAt.Format(time.RFC3339),
	}
	resp.LastLoginAt = formatOptionalTime(u.LastLoginAt)
	return resp
}

func messageWithPartiesToResponse(m *domain.MessageWithParties) MessageWithPartiesResponse {
	return MessageWithPartiesResponse{
		ID:       m.ID,
		Body:     m.Body,
		SentAt:   m.SentAt.Format(time.RFC3339),
		ReadAt:   formatOptionalTime(m.ReadAt),
		FromUser: profileToResponse(m.FromUser),
		ToUser:   profileToResponse(m.ToUser),
	}
}

func sentToResponse(m domain.SentMessage) SentMessageResponse {
	return SentMessageResponse{
		ID:     m.ID,
		Body:   m.Body,
		SentAt: m.SentAt.Format(time.RFC3339),
		ReadAt: formatOptionalTime(m.ReadAt),
		ToUser: profileToResponse(m.ToUser),
	}
}

func receivedToResponse(m domain.ReceivedMessage) ReceivedMessageResponse {
	return ReceivedMessageResponse{
		ID:       m.ID,
		Body:     m.Body,
		SentAt:   m.SentAt.Format(time.RFC3339),
		ReadAt:   formatOptionalTime(m.ReadAt),
		FromUser: profileToResponse(m.FromUser),
	}
}

func formatOptionalTime(t *time.Time) *string {
	if t == nil || t.IsZero() {
		return nil
	}
	v := t.Format(time.RFC3339)
	return &v
}
