package httpapi

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"voice-journal/internal/domain"
	"voice-journal/internal/infra/supabase"
)

const identityKey = "identity"

// TokenVerifier validates bearer access tokens.
type TokenVerifier interface {
	Verify(token string) (*supabase.Identity, error)
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency", time.Since(start),
			"ip", c.ClientIP(),
		}
		switch {
		case status >= 500:
			logger.Error("request", attrs...)
		case status >= 400:
			logger.Warn("request", attrs...)
		case c.Request.URL.Path == "/api/health":
			logger.Debug("request", attrs...)
		default:
			logger.Info("request", attrs...)
		}
	}
}

func (s *Server) requireAuth(c *gin.Context) {
	s.authenticate(c, supabase.BearerToken(c.GetHeader("Authorization")))
}

// requireAuthQuery also accepts an access_token query parameter,
// since browsers cannot set headers on websocket handshakes.
func (s *Server) requireAuthQuery(c *gin.Context) {
	token := supabase.BearerToken(c.GetHeader("Authorization"))
	if token == "" {
		token = c.Query("access_token")
	}
	s.authenticate(c, token)
}

// optionalAuth attaches the caller when a token is sent. A bad token is still rejected.
func (s *Server) optionalAuth(c *gin.Context) {
	token := supabase.BearerToken(c.GetHeader("Authorization"))
	if token == "" {
		c.Next()
		return
	}
	s.authenticate(c, token)
}

func (s *Server) authenticate(c *gin.Context, token string) {
	if s.auth == nil {
		s.abort(c, fmt.Errorf("auth: %w", domain.ErrNotConfigured))
		return
	}
	identity, err := s.auth.Verify(token)
	if err != nil {
		s.abort(c, err)
		return
	}
	c.Set(identityKey, identity)
	c.Next()
}

func identityFrom(c *gin.Context) (*supabase.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil, false
	}
	identity, ok := v.(*supabase.Identity)
	return identity, ok
}

// profile loads the caller's profile, creating it on first use.
func (s *Server) profile(c *gin.Context) (*domain.Profile, bool) {
	identity, ok := identityFrom(c)
	if !ok {
		s.abort(c, fmt.Errorf("missing identity: %w", domain.ErrUnauthorized))
		return nil, false
	}
	profile, err := s.journal.Profile(c.Request.Context(), identity.UserID, identity.Email)
	if err != nil {
		s.abort(c, err)
		return nil, false
	}
	return profile, true
}
