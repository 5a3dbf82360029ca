// Package server exposes the HTTP API: the pipeline trigger, transcript
// edits, and the recording library surface the client app consumes.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"voicemind/pkg/domain"
	"voicemind/pkg/objectstore"
	"voicemind/pkg/repo"
)

// Pipeline is the processing surface the API triggers.
type Pipeline interface {
	Dispatch(recordingID string)
	UpdateTranscript(ctx context.Context, recordingID, fullText string) error
}

// Library is the recording library surface (list, search, manage).
type Library interface {
	Create(ctx context.Context, userID, title string, durationSeconds int) (*domain.Recording, error)
	FinishUpload(ctx context.Context, recordingID, audioPath string, sizeBytes int64) error
	List(ctx context.Context, userID string, opts repo.ListOptions) ([]domain.Recording, error)
	Search(ctx context.Context, userID, query string, limit int) ([]domain.Recording, error)
	Rename(ctx context.Context, recordingID, title string) error
	SetHidden(ctx context.Context, recordingID string, hidden bool) error
	Delete(ctx context.Context, recordingID string) error
	PlaybackURL(ctx context.Context, recordingID string) (string, error)
}

// RecordingReader serves the detail screen reads and the existence check the
// trigger endpoint performs before accepting work.
type RecordingReader interface {
	GetRecording(ctx context.Context, id string) (*domain.Recording, error)
	GetFinalTranscript(ctx context.Context, recordingID string) (*domain.Transcript, error)
	GetSummary(ctx context.Context, recordingID string) (*domain.Summary, error)
	DeleteSummary(ctx context.Context, recordingID string) error
}

// Server wraps the echo instance and its dependencies.
type Server struct {
	Echo     *echo.Echo
	reader   RecordingReader
	pipeline Pipeline
	library  Library
}

// New builds the server and registers all routes.
func New(reader RecordingReader, pipeline Pipeline, library Library) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	s := &Server{
		Echo:     e,
		reader:   reader,
		pipeline: pipeline,
		library:  library,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	v1 := s.Echo.Group("/api/v1")

	v1.GET("/healthz", s.healthz)
	v1.POST("/process", s.triggerProcess)
	v1.POST("/transcripts/:recordingId", s.updateTranscript)

	v1.POST("/recordings", s.createRecording)
	v1.GET("/recordings", s.listRecordings)
	v1.GET("/recordings/search", s.searchRecordings)
	v1.POST("/recordings/:id/upload-complete", s.uploadComplete)
	v1.PATCH("/recordings/:id", s.patchRecording)
	v1.DELETE("/recordings/:id", s.deleteRecording)
	v1.GET("/recordings/:id/playback-url", s.playbackURL)
	v1.GET("/recordings/:id/transcript", s.getTranscript)
	v1.GET("/recordings/:id/summary", s.getSummary)
	v1.DELETE("/recordings/:id/summary", s.deleteSummary)
}

// Start runs the server on addr, blocking until it stops.
func (s *Server) Start(addr string) error {
	return s.Echo.Start(addr)
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.Echo.Shutdown(ctx)
}

func (s *Server) healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type processRequest struct {
	RecordingID string `json:"recordingId"`
}

// triggerProcess accepts a pipeline run for a recording. The run happens in
// the background; the response only confirms the recording exists and the
// work was queued.
func (s *Server) triggerProcess(c echo.Context) error {
	var req processRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.RecordingID == "" {
		return badRequest(c, "recordingId is required")
	}

	if _, err := s.reader.GetRecording(c.Request().Context(), req.RecordingID); err != nil {
		return mapError(c, err)
	}

	s.pipeline.Dispatch(req.RecordingID)
	return c.JSON(http.StatusAccepted, map[string]bool{"accepted": true})
}

type transcriptUpdateRequest struct {
	FullText string `json:"full_text"`
}

func (s *Server) updateTranscript(c echo.Context) error {
	recordingID := c.Param("recordingId")
	var req transcriptUpdateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.FullText == "" {
		return badRequest(c, "full_text is required")
	}

	if err := s.pipeline.UpdateTranscript(c.Request().Context(), recordingID, req.FullText); err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"updated": true})
}

type createRecordingRequest struct {
	UserID          string `json:"userId"`
	Title           string `json:"title"`
	DurationSeconds int    `json:"durationSeconds"`
}

func (s *Server) createRecording(c echo.Context) error {
	var req createRecordingRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.UserID == "" {
		return badRequest(c, "userId is required")
	}

	rec, err := s.library.Create(c.Request().Context(), req.UserID, req.Title, req.DurationSeconds)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusCreated, rec)
}

func (s *Server) listRecordings(c echo.Context) error {
	userID := c.QueryParam("userId")
	if userID == "" {
		return badRequest(c, "userId is required")
	}
	opts := repo.ListOptions{
		IncludeHidden: c.QueryParam("includeHidden") == "true",
		Limit:         intQueryParam(c, "limit"),
		Offset:        intQueryParam(c, "offset"),
	}

	recs, err := s.library.List(c.Request().Context(), userID, opts)
	if err != nil {
		return mapError(c, err)
	}
	if recs == nil {
		recs = []domain.Recording{}
	}
	return c.JSON(http.StatusOK, recs)
}

func (s *Server) searchRecordings(c echo.Context) error {
	userID := c.QueryParam("userId")
	if userID == "" {
		return badRequest(c, "userId is required")
	}

	recs, err := s.library.Search(c.Request().Context(), userID, c.QueryParam("q"), intQueryParam(c, "limit"))
	if err != nil {
		return mapError(c, err)
	}
	if recs == nil {
		recs = []domain.Recording{}
	}
	return c.JSON(http.StatusOK, recs)
}

type uploadCompleteRequest struct {
	AudioPath string `json:"audioPath"`
	SizeBytes int64  `json:"sizeBytes"`
}

func (s *Server) uploadComplete(c echo.Context) error {
	var req uploadCompleteRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.AudioPath == "" {
		return badRequest(c, "audioPath is required")
	}

	if err := s.library.FinishUpload(c.Request().Context(), c.Param("id"), req.AudioPath, req.SizeBytes); err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusAccepted, map[string]bool{"accepted": true})
}

type patchRecordingRequest struct {
	Title  *string `json:"title"`
	Hidden *bool   `json:"hidden"`
}

// patchRecording applies partial updates: rename, hide, or both.
func (s *Server) patchRecording(c echo.Context) error {
	var req patchRecordingRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Title == nil && req.Hidden == nil {
		return badRequest(c, "nothing to update")
	}

	ctx := c.Request().Context()
	id := c.Param("id")
	if req.Title != nil {
		if err := s.library.Rename(ctx, id, *req.Title); err != nil {
			return mapError(c, err)
		}
	}
	if req.Hidden != nil {
		if err := s.library.SetHidden(ctx, id, *req.Hidden); err != nil {
			return mapError(c, err)
		}
	}
	return c.JSON(http.StatusOK, map[string]bool{"updated": true})
}

func (s *Server) deleteRecording(c echo.Context) error {
	if err := s.library.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return mapError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) playbackURL(c echo.Context) error {
	url, err := s.library.PlaybackURL(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"url": url})
}

func (s *Server) getTranscript(c echo.Context) error {
	t, err := s.reader.GetFinalTranscript(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, t)
}

func (s *Server) getSummary(c echo.Context) error {
	sum, err := s.reader.GetSummary(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, sum)
}

func (s *Server) deleteSummary(c echo.Context) error {
	if err := s.reader.DeleteSummary(c.Request().Context(), c.Param("id")); err != nil {
		return mapError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, map[string]string{"error": msg})
}

// mapError translates service errors to HTTP statuses. Not-found sentinels
// from any layer become 404; everything else is a 500 without leaking the
// internal error text.
func mapError(c echo.Context, err error) error {
	if errors.Is(err, repo.ErrNotFound) || errors.Is(err, objectstore.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "not found"})
	}
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func intQueryParam(c echo.Context, name string) int {
	v := c.QueryParam(name)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
