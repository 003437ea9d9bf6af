package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"messagely/internal/auth"
)

const identityKey = "identity"

// identityMiddleware resolves the request identity from a bearer token, with
// the legacy `_token` JSON body field accepted as a fallback. Verification
// failure is indistinguishable from a missing token: the request simply
// proceeds as anonymous.
func identityMiddleware(tokens *auth.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.Request)
		if token == "" {
			token = bodyToken(c.Request)
		}
		if token != "" {
			c.Set(identityKey, tokens.Verify(token))
		}
		c.Next()
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// bodyToken peeks at a JSON body for a `_token` field and restores the body
// for downstream binding.
func bodyToken(r *http.Request) string {
	if r.Body == nil {
		return ""
	}
	contentType := r.Header.Get("Content-Type")
	if !strings.Contains(contentType, "application/json") {
		return ""
	}

	raw, err := io.ReadAll(r.Body)
	r.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil {
		return ""
	}

	var payload struct {
		Token string `json:"_token"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ""
	}
	return payload.Token
}

func currentIdentity(c *gin.Context) auth.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return auth.Identity{}
	}
	identity, ok := v.(auth.Identity)
	if !ok {
		return auth.Identity{}
	}
	return identity
}

func (h *Handler) requireLoggedIn() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := h.guard.RequireLoggedIn(currentIdentity(c)); err != nil {
			abortWithError(c, err)
			return
		}
		c.Next()
	}
}

func (h *Handler) requireSelf() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := h.guard.RequireSelf(currentIdentity(c), c.Param("username")); err != nil {
			abortWithError(c, err)
			return
		}
		c.Next()
	}
}

func (h *Handler) requireRecipient() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := messageID(c)
		if !ok {
			return
		}
		if err := h.guard.RequireRecipient(c.Request.Context(), currentIdentity(c), id); err != nil {
			abortWithError(c, err)
			return
		}
		c.Next()
	}
}

func (h *Handler) requireParticipant() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := messageID(c)
		if !ok {
			return
		}
		if err := h.guard.RequireParticipant(c.Request.Context(), currentIdentity(c), id); err != nil {
			abortWithError(c, err)
			return
		}
		c.Next()
	}
}

func messageID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return 0, false
	}
	return id, true
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
