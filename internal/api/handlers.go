package api

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/medreport-server/internal/domain"
	"github.com/medreport-server/internal/feedback"
)

type consultationBody struct {
	PatientNotes string `json:"patient_notes"`
	LanguageHint string `json:"language_hint"`
}

// handleConsultation runs one consultation through the pipeline. The request
// is either JSON with the typed notes, or multipart form data carrying a
// "notes" field, an "audio" file and any number of "documents" files.
func (s *Server) handleConsultation(c *gin.Context) {
	req, err := s.buildConsultationRequest(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := s.pipeline.Process(c.Request.Context(), req)
	if err != nil {
		var apiErr *domain.ExternalAPIError
		if errors.As(err, &apiErr) {
			s.logger.WithError(err).WithField("service", apiErr.Service).
				Warn("Consultation rejected by external service failure")
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}

		s.logger.WithError(err).Error("Consultation processing failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "consultation processing failed"})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) buildConsultationRequest(c *gin.Context) (*domain.ConsultationRequest, error) {
	contentType := c.ContentType()

	if !strings.HasPrefix(contentType, "multipart/form-data") {
		var body consultationBody
		if err := c.ShouldBindJSON(&body); err != nil && err != io.EOF {
			return nil, err
		}
		return &domain.ConsultationRequest{
			PatientNotes: body.PatientNotes,
			LanguageHint: body.LanguageHint,
		}, nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		return nil, err
	}

	req := &domain.ConsultationRequest{
		PatientNotes: c.PostForm("notes"),
		LanguageHint: c.PostForm("language_hint"),
	}

	if files := form.File["audio"]; len(files) > 0 {
		data, err := readUpload(files[0])
		if err != nil {
			return nil, err
		}
		req.Audio = data
	}

	for _, file := range form.File["documents"] {
		data, err := readUpload(file)
		if err != nil {
			return nil, err
		}
		req.Documents = append(req.Documents, data)
	}

	return req, nil
}

func readUpload(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

type feedbackBody struct {
	ConsultationText  string   `json:"consultation_text,omitempty"`
	InputDigest       string   `json:"input_digest,omitempty"`
	PredictedCategory string   `json:"predicted_category" binding:"required"`
	CorrectedCategory string   `json:"corrected_category" binding:"required"`
	ReviewerAgreed    bool     `json:"reviewer_agreed"`
	MatchedKeywords   []string `json:"matched_keywords,omitempty"`
	RulesVersion      string   `json:"rules_version,omitempty"`
	Notes             string   `json:"notes,omitempty"`
}

// handleSaveFeedback records a reviewer verdict. Callers may send the raw
// consultation text, which is digested server side and discarded, or the
// digest directly.
func (s *Server) handleSaveFeedback(c *gin.Context) {
	var body feedbackBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	digest := body.InputDigest
	if digest == "" {
		if body.ConsultationText == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "either input_digest or consultation_text is required"})
			return
		}
		digest = feedback.Digest(body.ConsultationText)
	}

	predicted, err := domain.ParseCategory(body.PredictedCategory)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	corrected, err := domain.ParseCategory(body.CorrectedCategory)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rulesVersion := body.RulesVersion
	if rulesVersion == "" {
		rulesVersion = s.version
	}

	fb := &feedback.Feedback{
		InputDigest:       digest,
		PredictedCategory: predicted,
		CorrectedCategory: corrected,
		ReviewerAgreed:    body.ReviewerAgreed,
		MatchedKeywords:   body.MatchedKeywords,
		RulesVersion:      rulesVersion,
		Notes:             body.Notes,
	}

	if err := s.store.Save(c.Request.Context(), fb); err != nil {
		s.logger.WithError(err).Error("Failed to save feedback")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save feedback"})
		return
	}

	s.logger.WithFields(logrus.Fields{
		"predicted": predicted.String(),
		"corrected": corrected.String(),
		"agreed":    body.ReviewerAgreed,
	}).Info("Feedback recorded")

	c.JSON(http.StatusCreated, fb)
}

func (s *Server) handleListFeedback(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 || limit > 1000 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 1000"})
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "offset must not be negative"})
		return
	}

	entries, err := s.store.List(c.Request.Context(), limit, offset)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list feedback")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list feedback"})
		return
	}

	total, err := s.store.Count(c.Request.Context())
	if err != nil {
		s.logger.WithError(err).Error("Failed to count feedback")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count feedback"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"feedback": entries,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}

func (s *Server) handleFeedbackStats(c *gin.Context) {
	stats, err := s.store.Stats(c.Request.Context())
	if err != nil {
		s.logger.WithError(err).Error("Failed to aggregate feedback stats")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to aggregate feedback stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleExportFeedback(c *gin.Context) {
	c.Header("Content-Type", "application/json")
	c.Header("Content-Disposition", `attachment; filename="feedback-export.json"`)
	if err := s.store.ExportJSON(c.Request.Context(), c.Writer); err != nil {
		s.logger.WithError(err).Error("Failed to export feedback")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to export feedback"})
	}
}

func (s *Server) handleImportFeedback(c *gin.Context) {
	imported, skipped, err := s.store.ImportJSON(c.Request.Context(), c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"imported": imported, "skipped": skipped})
}

func (s *Server) handleDeleteFeedback(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid feedback id"})
		return
	}

	if err := s.store.Delete(c.Request.Context(), id); err != nil {
		s.logger.WithError(err).Error("Failed to delete feedback")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete feedback"})
		return
	}

	c.Status(http.StatusNoContent)
}
