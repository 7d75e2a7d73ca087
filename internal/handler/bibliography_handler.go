package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edumesh/edumesh-api/internal/service"
	appErrors "github.com/edumesh/edumesh-api/pkg/errors"
	"github.com/edumesh/edumesh-api/pkg/response"
)

// BibliographyHandler exposes chapter bibliography endpoints.
type BibliographyHandler struct {
	bibliographies *service.BibliographyService
}

// NewBibliographyHandler constructs BibliographyHandler.
func NewBibliographyHandler(bibliographies *service.BibliographyService) *BibliographyHandler {
	return &BibliographyHandler{bibliographies: bibliographies}
}

// List godoc
// @Summary List a chapter's bibliography in sequence order
// @Tags Bibliography
// @Produce json
// @Param chapterId path string true "Chapter ID"
// @Success 200 {object} response.Envelope
// @Router /chapters/{chapterId}/bibliography [get]
func (h *BibliographyHandler) List(c *gin.Context) {
	items, err := h.bibliographies.List(c.Request.Context(), currentUser(c), schoolScope(c), c.Param("chapterId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Create godoc
// @Summary Add a bibliography item at the end of a chapter
// @Tags Bibliography
// @Accept json
// @Produce json
// @Param chapterId path string true "Chapter ID"
// @Param payload body service.CreateBibliographyRequest true "Item payload"
// @Success 201 {object} response.Envelope
// @Router /chapters/{chapterId}/bibliography [post]
func (h *BibliographyHandler) Create(c *gin.Context) {
	var req service.CreateBibliographyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.ChapterID = c.Param("chapterId")
	if req.SchoolID == "" {
		req.SchoolID = schoolScope(c)
	}
	item, err := h.bibliographies.Create(c.Request.Context(), currentUser(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Reorder godoc
// @Summary Atomically move chapter items to new sequence slots
// @Tags Bibliography
// @Accept json
// @Produce json
// @Param chapterId path string true "Chapter ID"
// @Param payload body service.ReorderRequest true "Sequence moves"
// @Success 200 {object} response.Envelope
// @Router /chapters/{chapterId}/bibliography/reorder [put]
func (h *BibliographyHandler) Reorder(c *gin.Context) {
	var req service.ReorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if req.SchoolID == "" {
		req.SchoolID = schoolScope(c)
	}
	items, err := h.bibliographies.Reorder(c.Request.Context(), currentUser(c), req.SchoolID, c.Param("chapterId"), req.Moves)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Delete godoc
// @Summary Soft-delete a bibliography item
// @Tags Bibliography
// @Produce json
// @Param id path string true "Item ID"
// @Success 204
// @Router /bibliography/{id} [delete]
func (h *BibliographyHandler) Delete(c *gin.Context) {
	if err := h.bibliographies.Delete(c.Request.Context(), currentUser(c), schoolScope(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Export godoc
// @Summary Export a chapter's bibliography as CSV or PDF
// @Tags Bibliography
// @Produce text/csv
// @Produce application/pdf
// @Param chapterId path string true "Chapter ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} byte
// @Router /chapters/{chapterId}/bibliography/export [get]
func (h *BibliographyHandler) Export(c *gin.Context) {
	payload, contentType, err := h.bibliographies.Export(c.Request.Context(), currentUser(c), schoolScope(c), c.Param("chapterId"), c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Data(http.StatusOK, contentType, payload)
}
