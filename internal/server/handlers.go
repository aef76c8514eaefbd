package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	pdfservice "github.com/alnah/go-pdfservice"
)

const (
	contentTypePDF  = "application/pdf"
	contentTypeText = "text/plain; charset=utf-8"
)

const infoText = `go-pdfservice

POST /generate   multipart (index.html or index.md plus attachments) or raw HTML body
                 query: isAllowExternalResources, baseUrl, rotation, password
                 header: X-Password
POST /encrypt    raw PDF body, password from X-Password or ?password=
POST /rotate     raw PDF body, ?rotation=90|180|270
GET  /health     liveness probe
`

func (s *Server) handleInfo(c *gin.Context) {
	c.Data(http.StatusOK, contentTypeText, []byte(infoText))
}

func (s *Server) handleHealth(c *gin.Context) {
	c.Data(http.StatusOK, contentTypeText, []byte("Healthy"))
}

func (s *Server) handleGenerate(c *gin.Context) {
	result, err := s.proc.Run(c.Request.Context(), c.Request)
	if err != nil {
		writeFailure(c, err)
		return
	}
	writePDF(c, result)
}

func (s *Server) handleEncrypt(c *gin.Context) {
	password := c.GetHeader(pdfservice.HeaderPassword)
	if password == "" {
		password = c.Query(pdfservice.ParamPassword)
	}

	pdf, ok := s.readBody(c)
	if !ok {
		return
	}
	result, err := s.proc.EncryptDocument(c.Request.Context(), pdf, password)
	if err != nil {
		writeFailure(c, err)
		return
	}
	writePDF(c, result)
}

func (s *Server) handleRotate(c *gin.Context) {
	angle, err := pdfservice.ParseRotation(c.Query(pdfservice.ParamRotation))
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	if angle == 0 {
		writeError(c, http.StatusBadRequest, fmt.Sprintf("missing %s parameter", pdfservice.ParamRotation))
		return
	}

	pdf, ok := s.readBody(c)
	if !ok {
		return
	}
	result, err := s.proc.RotateDocument(c.Request.Context(), pdf, angle)
	if err != nil {
		writeFailure(c, err)
		return
	}
	writePDF(c, result)
}

// readBody reads a raw document body within the size limit. It writes the
// error response itself and reports false on failure.
func (s *Server) readBody(c *gin.Context) ([]byte, bool) {
	body := http.MaxBytesReader(c.Writer, c.Request.Body, s.maxBodyBytes)
	data, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(c, http.StatusRequestEntityTooLarge, err.Error())
		} else {
			writeError(c, http.StatusBadRequest, fmt.Sprintf("reading body: %v", err))
		}
		return nil, false
	}
	return data, true
}

func writePDF(c *gin.Context, result *pdfservice.Result) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, contentTypePDF, result.PDF)
}

func writeFailure(c *gin.Context, err error) {
	var se *pdfservice.StageError
	if errors.As(err, &se) {
		writeError(c, se.Status, se.Error())
		return
	}
	loggerOf(c).Error("unclassified failure", "error", err)
	writeError(c, http.StatusInternalServerError, "internal error")
}

func writeError(c *gin.Context, status int, msg string) {
	c.Data(status, contentTypeText, []byte(msg))
}
