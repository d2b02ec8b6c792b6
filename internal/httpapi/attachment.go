package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/otabek-dev/taskhub/internal/apperr"
	"github.com/otabek-dev/taskhub/internal/models"
)

type attachmentResponse struct {
	ID           string    `json:"id"`
	FileURL      string    `json:"fileUrl"`
	FileName     string    `json:"fileName"`
	MimeType     string    `json:"mimeType"`
	TaskID       string    `json:"taskId"`
	UploadedByID string    `json:"uploadedById"`
	CreatedAt    time.Time `json:"createdAt"`
}

func toAttachmentResponse(a *models.Attachment) attachmentResponse {
	return attachmentResponse{
		ID:           a.ID,
		FileURL:      a.FileURL,
		FileName:     a.FileName,
		MimeType:     a.MimeType,
		TaskID:       a.TaskID,
		UploadedByID: a.UploadedByID,
		CreatedAt:    a.CreatedAt,
	}
}

func (s *Server) handleUploadAttachment(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		s.writeError(c, apperr.ErrValidation)
		return
	}
	upload, err := readUpload(fh)
	if err != nil {
		s.writeError(c, apperr.ErrValidation)
		return
	}

	att, err := s.attachments.Upload(c.Request.Context(), c.Param("taskID"),
		sessionClaims(c).UserID, upload)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toAttachmentResponse(att))
}

func (s *Server) handleListAttachments(c *gin.Context) {
	list, err := s.attachments.ListByTask(c.Request.Context(), c.Param("taskID"), sessionClaims(c).UserID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	out := make([]attachmentResponse, 0, len(list))
	for _, a := range list {
		out = append(out, toAttachmentResponse(a))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleDeleteAttachment(c *gin.Context) {
	err := s.attachments.Delete(c.Request.Context(), c.Param("attachmentID"), sessionClaims(c).UserID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, messageResponse{Message: "attachment deleted"})
}
