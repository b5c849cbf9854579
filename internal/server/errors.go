package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lehigh-university-libraries/sroie/internal/session"
	"github.com/lehigh-university-libraries/sroie/internal/utils"
	"github.com/lehigh-university-libraries/sroie/pkg/annotation"
	"github.com/lehigh-university-libraries/sroie/pkg/providers"
	"github.com/lehigh-university-libraries/sroie/pkg/region"
)

var errBadRequest = errors.New("bad request")

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// the first matching entry wins, so narrower errors come first
var errorTable = []struct {
	target error
	status int
	code   string
}{
	{session.ErrNotFound, http.StatusNotFound, "SessionNotFound"},
	{session.ErrNoImage, http.StatusConflict, "NoImage"},
	{session.ErrNoRegion, http.StatusConflict, "NoRegion"},
	{region.ErrInvalidRegion, http.StatusBadRequest, "InvalidRegion"},
	{annotation.ErrEmptyName, http.StatusBadRequest, "EmptyName"},
	{annotation.ErrUnknownCategory, http.StatusNotFound, "UnknownCategory"},
	{annotation.ErrCategoryExists, http.StatusConflict, "CategoryExists"},
	{providers.ErrUnknownEngine, http.StatusBadRequest, "UnknownEngine"},
	{providers.ErrCredentialsMissing, http.StatusBadRequest, "CredentialsMissing"},
	{providers.ErrEngine, http.StatusBadGateway, "OcrEngineError"},
	{errBadRequest, http.StatusBadRequest, "BadRequest"},
}

func classify(err error) (int, string) {
	for _, e := range errorTable {
		if errors.Is(err, e.target) {
			return e.status, e.code
		}
	}
	return http.StatusInternalServerError, "Internal"
}

// respondWithError logs err and writes it as an ErrorResponse
func respondWithError(c *gin.Context, err error) {
	status, code := classify(err)
	masked := utils.MaskSensitiveError(err)

	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	slog.Log(c.Request.Context(), level, "Request failed", "method", c.Request.Method, "path", c.FullPath(), "status", status, "code", code, "err", masked)

	c.AbortWithStatusJSON(status, ErrorResponse{Error: masked.Error(), Code: code})
}
