package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lehigh-university-libraries/sroie/internal/session"
	"github.com/lehigh-university-libraries/sroie/pkg/export"
	"github.com/lehigh-university-libraries/sroie/pkg/imageproc"
	"github.com/lehigh-university-libraries/sroie/pkg/providers"
	"github.com/lehigh-university-libraries/sroie/pkg/region"
	"github.com/lehigh-university-libraries/sroie/pkg/textdiff"
)

const sessionKey = "session"

type regionRequest struct {
	Points [][]float64      `json:"points"`
	Canvas *json.RawMessage `json:"canvas"`
}

type regionResponse struct {
	Box         region.BoundingBox `json:"box"`
	Engine      providers.Engine   `json:"engine"`
	Text        string             `json:"text"`
	Unavailable bool               `json:"unavailable"`
	Warning     string             `json:"warning,omitempty"`
}

type engineRequest struct {
	Engine string `json:"engine"`
}

type categoryRequest struct {
	Name string `json:"name"`
}

type annotationRequest struct {
	Category string `json:"category"`
	Text     string `json:"text"`
	Box      []int  `json:"box"`
}

type annotationResponse struct {
	Category string            `json:"category"`
	Text     string            `json:"text"`
	Metrics  *textdiff.Metrics `json:"metrics,omitempty"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleCreateSession(c *gin.Context) {
	sess := s.sessions.Create()
	c.JSON(http.StatusCreated, sess.State())
}

// loadSession resolves :id for every session route
func (s *Server) loadSession(c *gin.Context) {
	sess, err := s.sessions.Get(c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.Set(sessionKey, sess)
	c.Next()
}

func current(c *gin.Context) *session.Session {
	return c.MustGet(sessionKey).(*session.Session)
}

func (s *Server) handleGetSession(c *gin.Context) {
	c.JSON(http.StatusOK, current(c).State())
}

func (s *Server) handleDeleteSession(c *gin.Context) {
	if err := s.sessions.Delete(current(c).ID); err != nil {
		respondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleUploadImage(c *gin.Context) {
	filename, data, err := s.readUpload(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	sess := current(c)
	if _, err := sess.LoadImage(filename, data); err != nil {
		respondWithError(c, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}
	c.JSON(http.StatusOK, sess.State())
}

func (s *Server) handleUploadCredentials(c *gin.Context) {
	_, data, err := s.readUpload(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	sess := current(c)
	if err := sess.SetCredentials(data); err != nil {
		respondWithError(c, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}
	c.JSON(http.StatusOK, sess.State())
}

func (s *Server) handleSetEngine(c *gin.Context) {
	var req engineRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}
	engine, err := providers.ParseEngine(req.Engine)
	if err != nil {
		respondWithError(c, err)
		return
	}
	sess := current(c)
	sess.SetEngine(engine)
	c.JSON(http.StatusOK, sess.State())
}

func (s *Server) handleSelectRegion(c *gin.Context) {
	var req regionRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}
	points, err := req.polygon()
	if err != nil {
		respondWithError(c, err)
		return
	}

	r, err := current(c).SelectRegion(c.Request.Context(), points)
	resp := regionResponse{
		Box:         r.Box,
		Engine:      r.Result.Engine,
		Text:        r.Result.Text,
		Unavailable: r.Result.Unavailable,
	}
	switch {
	case errors.Is(err, providers.ErrCredentialsMissing):
		// the region is usable; the text has to be entered by hand
		resp.Warning = fmt.Sprintf("%s is unavailable: upload a service account key or enter the text manually", r.Result.Engine.Label())
	case err != nil:
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleCropPreview(c *gin.Context) {
	r, ok := current(c).CurrentRegion()
	if !ok {
		respondWithError(c, session.ErrNoRegion)
		return
	}
	data, err := imageproc.EncodePNG(r.Crop)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", data)
}

func (s *Server) handleAddCategory(c *gin.Context) {
	var req categoryRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}
	sess := current(c)
	if err := sess.AddCategory(req.Name); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sess.State())
}

func (s *Server) handleAddAnnotation(c *gin.Context) {
	var req annotationRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}
	metrics, err := current(c).AddAnnotation(req.Category, req.Box, req.Text)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, annotationResponse{
		Category: req.Category,
		Text:     req.Text,
		Metrics:  metrics,
	})
}

func (s *Server) handleExportText(c *gin.Context) {
	text, filename := current(c).ExportText()
	attachment(c, filename)
	c.Data(http.StatusOK, export.TextContentType, []byte(text))
}

func (s *Server) handleExportJSON(c *gin.Context) {
	data, filename, err := current(c).ExportJSON()
	if err != nil {
		respondWithError(c, err)
		return
	}
	attachment(c, filename)
	c.Data(http.StatusOK, export.JSONContentType, data)
}

func (s *Server) handleExportImage(c *gin.Context) {
	data, filename, err := current(c).ExportImage()
	if err != nil {
		respondWithError(c, err)
		return
	}
	attachment(c, filename)
	c.Data(http.StatusOK, export.ImageContentType, data)
}

// polygon returns the points of the request, preferring an explicit point list
func (r regionRequest) polygon() ([]region.Point, error) {
	if r.Points == nil && r.Canvas != nil {
		return region.ParseCanvas(*r.Canvas)
	}
	points := make([]region.Point, 0, len(r.Points))
	for i, p := range r.Points {
		if len(p) < 2 {
			return nil, fmt.Errorf("%w: point %d has %d coordinates", region.ErrInvalidRegion, i, len(p))
		}
		points = append(points, region.Point{X: int(p[0]), Y: int(p[1])})
	}
	return points, nil
}

// readUpload reads the multipart "file" field within the upload limit
func (s *Server) readUpload(c *gin.Context) (string, []byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUploadBytes)
	header, err := c.FormFile("file")
	if err != nil {
		return "", nil, fmt.Errorf("%w: failed to read file: %v", errBadRequest, err)
	}
	file, err := header.Open()
	if err != nil {
		return "", nil, fmt.Errorf("%w: failed to open file: %v", errBadRequest, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return "", nil, fmt.Errorf("%w: failed to read file: %v", errBadRequest, err)
	}
	return header.Filename, data, nil
}

func bindJSON(c *gin.Context, v any) error {
	if err := c.ShouldBindJSON(v); err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", errBadRequest, err)
	}
	return nil
}

func attachment(c *gin.Context, filename string) {
	filename = strings.ReplaceAll(filename, "/", "_")
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
}
