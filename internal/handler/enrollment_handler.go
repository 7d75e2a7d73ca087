package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/edumesh/edumesh-api/internal/models"
	"github.com/edumesh/edumesh-api/internal/service"
	appErrors "github.com/edumesh/edumesh-api/pkg/errors"
	"github.com/edumesh/edumesh-api/pkg/response"
)

// EnrollmentHandler exposes enrollment endpoints.
type EnrollmentHandler struct {
	enrollments *service.EnrollmentService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments *service.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// EnrollBatch godoc
// @Summary Enroll one student into many modules
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param X-School-ID header string false "School scope (required for operators)"
// @Param payload body service.BatchEnrollRequest true "Batch payload"
// @Success 200 {object} response.Envelope
// @Router /enrollments/batch [post]
func (h *EnrollmentHandler) EnrollBatch(c *gin.Context) {
	var req service.BatchEnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if req.SchoolID == "" {
		req.SchoolID = schoolScope(c)
	}
	result, err := h.enrollments.EnrollBatch(c.Request.Context(), currentUser(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// EnrollStudentsBatch godoc
// @Summary Enroll many students into one module
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param X-School-ID header string false "School scope (required for operators)"
// @Param payload body service.BatchEnrollStudentsRequest true "Batch payload"
// @Success 200 {object} response.Envelope
// @Router /enrollments/batch-students [post]
func (h *EnrollmentHandler) EnrollStudentsBatch(c *gin.Context) {
	var req service.BatchEnrollStudentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if req.SchoolID == "" {
		req.SchoolID = schoolScope(c)
	}
	result, err := h.enrollments.EnrollStudentsBatch(c.Request.Context(), currentUser(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Withdraw godoc
// @Summary Withdraw an enrollment
// @Tags Enrollments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/withdraw [put]
func (h *EnrollmentHandler) Withdraw(c *gin.Context) {
	enrollment, err := h.enrollments.Withdraw(c.Request.Context(), currentUser(c), schoolScope(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// Complete godoc
// @Summary Complete an enrollment
// @Tags Enrollments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/complete [put]
func (h *EnrollmentHandler) Complete(c *gin.Context) {
	enrollment, err := h.enrollments.Complete(c.Request.Context(), currentUser(c), schoolScope(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// List godoc
// @Summary List enrollments
// @Tags Enrollments
// @Produce json
// @Param studentId query string false "Filter by student"
// @Param moduleId query string false "Filter by module"
// @Param status query string false "Filter by status"
// @Param batchId query string false "Filter by batch"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /enrollments [get]
func (h *EnrollmentHandler) List(c *gin.Context) {
	var filter models.EnrollmentFilter
	filter.StudentID = c.Query("studentId")
	filter.ModuleID = c.Query("moduleId")
	filter.Status = models.EnrollmentStatus(strings.ToUpper(c.Query("status")))
	filter.BatchID = c.Query("batchId")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	enrollments, pagination, err := h.enrollments.List(c.Request.Context(), currentUser(c), schoolScope(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, pagination)
}
