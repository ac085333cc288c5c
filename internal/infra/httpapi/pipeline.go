package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"voice-journal/internal/domain"
)

// multipartOverhead is allowed on top of the audio cap for form boundaries and fields.
const multipartOverhead = 1 << 20

type textRequest struct {
	Text string `json:"text"`
}

func (s *Server) transcribe(c *gin.Context) {
	audio, filename, err := s.readAudio(c)
	if err != nil {
		s.abort(c, err)
		return
	}

	var user *domain.Profile
	if _, ok := identityFrom(c); ok {
		if user, ok = s.profile(c); !ok {
			return
		}
	}

	result, err := s.journal.Transcribe(c.Request.Context(), audio, filename, user)
	if err != nil {
		s.abort(c, err)
		return
	}

	resp := gin.H{"text": result.Text, "duration_seconds": nil}
	if result.DurationKnown {
		resp["duration_seconds"] = result.Duration.Seconds()
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) clean(c *gin.Context) {
	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "text is required")
		return
	}

	result, err := s.journal.Clean(c.Request.Context(), req.Text)
	if err != nil {
		s.abort(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"cleanedText": result.Text,
		"cleaned":     result.Cleaned,
	})
}

func (s *Server) tags(c *gin.Context) {
	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "text is required")
		return
	}

	result, err := s.journal.Tag(c.Request.Context(), req.Text)
	if err != nil {
		s.abort(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tags":     result.Tags,
		"category": result.Category,
		"tagged":   result.Tagged,
	})
}

// readAudio extracts the uploaded audio from the "audio" or "file" form field.
func (s *Server) readAudio(c *gin.Context) ([]byte, string, error) {
	limit := s.journal.MaxUploadBytes()
	tooLarge := fmt.Errorf("audio exceeds %d MB: %w", limit>>20, domain.ErrTooLarge)

	if c.Request.ContentLength > limit+multipartOverhead {
		return nil, "", tooLarge
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+multipartOverhead)

	header, err := c.FormFile("audio")
	if errors.Is(err, http.ErrMissingFile) {
		header, err = c.FormFile("file")
	}
	if err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return nil, "", tooLarge
		case errors.Is(err, http.ErrMissingFile):
			return nil, "", fmt.Errorf("audio file is required: %w", domain.ErrInvalidInput)
		case errors.Is(err, http.ErrNotMultipart):
			return nil, "", fmt.Errorf("expected multipart/form-data: %w", domain.ErrInvalidInput)
		default:
			return nil, "", fmt.Errorf("reading upload: %w", errors.Join(domain.ErrInvalidInput, err))
		}
	}

	if header.Size > limit {
		return nil, "", tooLarge
	}
	if header.Size == 0 {
		return nil, "", fmt.Errorf("audio file is empty: %w", domain.ErrInvalidInput)
	}

	f, err := header.Open()
	if err != nil {
		return nil, "", fmt.Errorf("opening upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", fmt.Errorf("reading upload: %w", err)
	}
	return data, header.Filename, nil
}
