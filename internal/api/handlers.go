package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pharmaco-risk-server/internal/domain"
	"github.com/pharmaco-risk-server/internal/middleware"
	"github.com/pharmaco-risk-server/internal/repository"
	"github.com/pharmaco-risk-server/internal/service"
)

// AssessmentRequest is the JSON body of POST /api/v1/assessments.
type AssessmentRequest struct {
	DrugName   string `json:"drug_name"`
	VCFContent string `json:"vcf_content"`
	UploadID   string `json:"upload_id,omitempty"`
}

// AssessmentResponse is returned for a completed assessment.
type AssessmentResponse struct {
	ID               string                             `json:"id,omitempty"`
	UploadID         string                             `json:"upload_id"`
	Stored           bool                               `json:"stored"`
	Assessment       *domain.RiskAssessment             `json:"assessment"`
	Alternatives     []domain.AlternativeRecommendation `json:"alternatives"`
	Parse            *service.ParseResult               `json:"parse"`
	RelevantVariants []*domain.VariantRecord            `json:"relevant_variants"`
}

// AssessmentListResponse is one page of stored assessments.
type AssessmentListResponse struct {
	Assessments []*repository.AssessmentRecord `json:"assessments"`
	Total       int64                          `json:"total"`
	Limit       int                            `json:"limit"`
	Offset      int                            `json:"offset"`
}

// DrugReference describes one supported drug.
type DrugReference struct {
	Drug        string   `json:"drug"`
	Genes       []string `json:"genes"`
	Alternative string   `json:"alternative,omitempty"`
}

// handleCreateAssessment runs the pipeline over an uploaded variant file.
func (s *Server) handleCreateAssessment(c *gin.Context) {
	req, err := readAssessmentRequest(c)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(c, http.StatusRequestEntityTooLarge, domain.ErrPayloadTooBig, "Request body too large", err.Error())
			return
		}
		s.respondError(c, http.StatusBadRequest, domain.ErrInvalidInput, "Invalid assessment request", err.Error())
		return
	}

	req.DrugName = strings.TrimSpace(req.DrugName)
	if req.DrugName == "" {
		s.respondValidation(c, domain.NewValidationError("drug_name", "drug name is required", req.DrugName))
		return
	}
	if req.UploadID == "" {
		req.UploadID = uuid.NewString()
	}

	report := s.service.AssessWithReport(c.Request.Context(), req.VCFContent, req.DrugName)

	resp := AssessmentResponse{
		UploadID:         req.UploadID,
		Assessment:       report.Assessment,
		Alternatives:     report.Alternatives,
		Parse:            report.Parse,
		RelevantVariants: report.RelevantVariants,
	}

	if s.store != nil {
		record := repository.NewAssessmentRecord(report.Assessment, report.Alternatives, req.UploadID)
		if err := s.store.Save(c.Request.Context(), record); err != nil {
			s.logger.WithFields(logrus.Fields{
				"correlation_id": middleware.GetCorrelationID(c),
				"drug_name":      req.DrugName,
				"upload_id":      req.UploadID,
			}).WithError(err).Error("Failed to store assessment")
		} else {
			resp.ID = record.ID
			resp.Stored = true
		}
	}

	c.JSON(http.StatusOK, resp)
}

// readAssessmentRequest accepts either a JSON body or a multipart form with
// drug_name and file fields.
func readAssessmentRequest(c *gin.Context) (*AssessmentRequest, error) {
	if !strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		var req AssessmentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return nil, err
		}
		return &req, nil
	}

	req := &AssessmentRequest{
		DrugName: c.PostForm("drug_name"),
		UploadID: c.PostForm("upload_id"),
	}

	header, err := c.FormFile("file")
	if err != nil {
		return nil, err
	}
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	req.VCFContent = string(content)
	return req, nil
}

// handleListAssessments returns stored assessments, newest first.
func (s *Server) handleListAssessments(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	limit, offset = repository.ClampPage(limit, offset)

	resp := AssessmentListResponse{
		Assessments: []*repository.AssessmentRecord{},
		Limit:       limit,
		Offset:      offset,
	}
	if s.store == nil {
		c.JSON(http.StatusOK, resp)
		return
	}

	records, err := s.store.List(c.Request.Context(), limit, offset)
	if err != nil {
		s.storageError(c, err)
		return
	}
	total, err := s.store.Count(c.Request.Context())
	if err != nil {
		s.storageError(c, err)
		return
	}

	resp.Assessments = records
	resp.Total = total
	c.JSON(http.StatusOK, resp)
}

// handleGetAssessment returns one stored assessment.
func (s *Server) handleGetAssessment(c *gin.Context) {
	id, ok := s.assessmentID(c)
	if !ok {
		return
	}

	record, err := s.store.Get(c.Request.Context(), id)
	if err != nil {
		s.storageError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// handleDeleteAssessment removes one stored assessment.
func (s *Server) handleDeleteAssessment(c *gin.Context) {
	id, ok := s.assessmentID(c)
	if !ok {
		return
	}

	if err := s.store.Delete(c.Request.Context(), id); err != nil {
		s.storageError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// assessmentID validates the :id parameter. Without a store every ID is unknown.
func (s *Server) assessmentID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if s.store == nil {
		s.respondError(c, http.StatusNotFound, domain.ErrNotFoundCode, "Assessment not found", "storage is disabled")
		return "", false
	}
	if _, err := uuid.Parse(id); err != nil {
		s.respondError(c, http.StatusNotFound, domain.ErrNotFoundCode, "Assessment not found", id)
		return "", false
	}
	return id, true
}

func (s *Server) storageError(c *gin.Context, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		s.respondError(c, http.StatusNotFound, domain.ErrNotFoundCode, "Assessment not found", c.Param("id"))
		return
	}
	s.logger.WithField("correlation_id", middleware.GetCorrelationID(c)).WithError(err).Error("Storage operation failed")
	s.respondError(c, http.StatusInternalServerError, domain.ErrStorage, "Storage operation failed", "")
}

// handleReferenceDrugs lists the supported drugs with their genes.
func (s *Server) handleReferenceDrugs(c *gin.Context) {
	table := s.service.ReferenceTable()
	substitutes := s.service.SubstituteTable()

	drugs := []DrugReference{}
	for _, drug := range table.Drugs() {
		ref := DrugReference{Drug: drug, Genes: table.GenesFor(drug)}
		if g, ok := substitutes.Lookup(drug); ok {
			ref.Alternative = g.Alternative
		}
		drugs = append(drugs, ref)
	}

	c.JSON(http.StatusOK, gin.H{
		"drugs": drugs,
		"count": len(drugs),
	})
}
