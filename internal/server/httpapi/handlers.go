package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/morlov/photofeed/internal/common"
	"github.com/morlov/photofeed/internal/server/models"
	"github.com/morlov/photofeed/internal/server/services"
)

var errMissingIdentity = fmt.Errorf("%w: missing bearer token", common.ErrUnauthorized)

// maxUploadBodyBytes caps the POST /upload request body. The payload is a
// small JSON document; anything near this limit is not a legitimate request.
const maxUploadBodyBytes = 10 << 20

// errorBody is the uniform error payload: a stable machine-readable code
// plus a short human-readable message. Internal detail stays in the log.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type uploadRequest struct {
	Filename    string            `json:"filename"`
	ContentType string            `json:"contentType"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type uploadResponse struct {
	UploadURL string `json:"uploadUrl"`
	PhotoID   string `json:"photoId"`
}

type photosResponse struct {
	Items   []models.BrowseItem `json:"items"`
	LastKey *string             `json:"lastKey"`
}

// statusAndCode maps the service error taxonomy onto HTTP. Anything
// unmapped is an internal failure and stays opaque to the client.
func statusAndCode(err error) (int, errorBody) {
	switch {
	case errors.Is(err, common.ErrValidation):
		return http.StatusBadRequest, errorBody{Code: "validation_error", Message: "invalid request"}
	case errors.Is(err, common.ErrInvalidContentType):
		return http.StatusBadRequest, errorBody{Code: "invalid_content_type", Message: "content type is not an allowed image type"}
	case errors.Is(err, common.ErrInvalidCursor):
		return http.StatusBadRequest, errorBody{Code: "invalid_cursor", Message: "lastKey is malformed or expired"}
	case errors.Is(err, common.ErrUnauthorized):
		return http.StatusUnauthorized, errorBody{Code: "unauthorized", Message: "missing or invalid identity"}
	default:
		return http.StatusInternalServerError, errorBody{Code: "internal_error", Message: "internal error"}
	}
}

func abortWithError(c *gin.Context, err error) {
	status, body := statusAndCode(err)
	c.AbortWithStatusJSON(status, body)
}

func (s *HTTPServer) writeError(c *gin.Context, err error) {
	status, body := statusAndCode(err)
	if status == http.StatusInternalServerError {
		s.logger.Error(c.Request.Context(), "request failed", "error", err.Error(), "path", c.Request.URL.Path)
	}
	c.JSON(status, body)
}

// uploadHandler implements POST /upload: mint a write capability and record
// the catalog entry. The response carries the presigned URL only when the
// metadata write committed; on any failure the body has no uploadUrl field.
func (s *HTTPServer) uploadHandler(c *gin.Context) {
	ownerID := c.GetString(ownerIDKey)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBodyBytes)

	var req uploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, errorBody{Code: "request_too_large", Message: "request body exceeds the size limit"})
			return
		}
		s.writeError(c, fmt.Errorf("%w: %v", common.ErrValidation, err))
		return
	}

	photo, capability, err := s.upload.RequestUpload(c.Request.Context(), ownerID, req.Filename, req.ContentType, req.Metadata)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, uploadResponse{
		UploadURL: capability.URL,
		PhotoID:   photo.ID,
	})
}

// photosHandler implements GET /photos: randomized first page without a
// lastKey, stable sorted continuation with one.
func (s *HTTPServer) photosHandler(c *gin.Context) {
	limit, err := parseLimit(c)
	if err != nil {
		s.writeError(c, err)
		return
	}

	page, err := s.catalog.Browse(c.Request.Context(), c.Query("lastKey"), limit)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toPhotosResponse(page))
}

// myPhotosHandler implements GET /my/photos: the authenticated owner's
// records in stable order, via the owner index.
func (s *HTTPServer) myPhotosHandler(c *gin.Context) {
	ownerID := c.GetString(ownerIDKey)

	limit, err := parseLimit(c)
	if err != nil {
		s.writeError(c, err)
		return
	}

	page, err := s.catalog.ListByOwner(c.Request.Context(), ownerID, c.Query("lastKey"), limit)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toPhotosResponse(page))
}

func (s *HTTPServer) healthcheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "healthcheck", "status": "healthy"})
}

func parseLimit(c *gin.Context) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: limit must be an integer", common.ErrValidation)
	}
	if limit == 0 {
		// An explicit zero is a real value, not "absent": clamp it to the
		// smallest page instead of falling back to the default.
		return 1, nil
	}
	return limit, nil
}

func toPhotosResponse(page *services.BrowsePage) photosResponse {
	resp := photosResponse{Items: page.Items}
	if page.NextCursor != "" {
		resp.LastKey = &page.NextCursor
	}
	return resp
}
