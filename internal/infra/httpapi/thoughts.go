package httpapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"voice-journal/internal/application"
	"voice-journal/internal/infra/export"
)

type createThoughtRequest struct {
	RawTranscript   string   `json:"raw_transcript"`
	CleanedText     string   `json:"cleaned_text"`
	Tags            []string `json:"tags"`
	Category        string   `json:"category"`
	DurationSeconds float64  `json:"duration_seconds"`
}

func (s *Server) createThought(c *gin.Context) {
	identity, _ := identityFrom(c)

	var req createThoughtRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON body")
		return
	}

	thought, err := s.journal.CreateThought(c.Request.Context(), identity.UserID, application.NewThought{
		RawTranscript: req.RawTranscript,
		CleanedText:   req.CleanedText,
		Tags:          req.Tags,
		Category:      req.Category,
		DurationSecs:  req.DurationSeconds,
	})
	if err != nil {
		s.abort(c, err)
		return
	}

	c.JSON(http.StatusCreated, thought)
}

// recordThought runs an uploaded recording through the whole pipeline.
func (s *Server) recordThought(c *gin.Context) {
	audio, filename, err := s.readAudio(c)
	if err != nil {
		s.abort(c, err)
		return
	}
	user, ok := s.profile(c)
	if !ok {
		return
	}

	thought, err := s.journal.Process(c.Request.Context(), user, audio, filename)
	if err != nil {
		s.abort(c, err)
		return
	}

	c.JSON(http.StatusCreated, thought)
}

func (s *Server) listThoughts(c *gin.Context) {
	identity, _ := identityFrom(c)

	limit, err := queryInt(c, "limit")
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	opts := application.ListOptions{
		Limit:  limit,
		Offset: offset,
		Tag:    c.Query("tag"),
		Query:  c.Query("q"),
	}.Normalize()

	thoughts, total, err := s.journal.ListThoughts(c.Request.Context(), identity.UserID, opts)
	if err != nil {
		s.abort(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"thoughts": thoughts,
		"total":    total,
		"limit":    opts.Limit,
		"offset":   opts.Offset,
	})
}

func (s *Server) getThought(c *gin.Context) {
	identity, _ := identityFrom(c)

	thought, err := s.journal.GetThought(c.Request.Context(), identity.UserID, c.Param("id"))
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, thought)
}

func (s *Server) deleteThought(c *gin.Context) {
	identity, _ := identityFrom(c)

	if err := s.journal.DeleteThought(c.Request.Context(), identity.UserID, c.Param("id")); err != nil {
		s.abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) exportThoughts(c *gin.Context) {
	identity, _ := identityFrom(c)

	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		s.abort(c, err)
		return
	}

	thoughts, err := s.journal.AllThoughts(c.Request.Context(), identity.UserID)
	if err != nil {
		s.abort(c, err)
		return
	}

	generated := s.now()
	body, err := export.Render(format, export.Metadata{
		Title:     s.cfg.ExportTitle,
		Email:     identity.Email,
		Generated: generated,
	}, thoughts)
	if err != nil {
		s.abort(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", format.Filename(generated)))
	c.Data(http.StatusOK, format.ContentType(), body)
}

func queryInt(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return n, nil
}
