package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SDARS-2025/discipline-service/internal/models"
	"github.com/SDARS-2025/discipline-service/internal/repositories"
	"github.com/SDARS-2025/discipline-service/internal/services"
	"github.com/SDARS-2025/discipline-service/internal/utils"
)

type RecordHandler struct {
	BaseHandler
	recordService services.RecordService
	exportService services.ExportService
}

func NewRecordHandler(
	recordService services.RecordService,
	exportService services.ExportService,
	logger utils.Logger,
) *RecordHandler {
	return &RecordHandler{
		BaseHandler:   NewBaseHandler(logger),
		recordService: recordService,
		exportService: exportService,
	}
}

// CreateRecord opens a new disciplinary case
// @Summary Create record
// @Tags records
// @Accept json
// @Produce json
// @Param record body services.CreateRecordRequest true "Record data"
// @Success 201 {object} models.Record
// @Failure 400 {object} ErrorResponse
// @Router /records [post]
func (h *RecordHandler) CreateRecord(c *gin.Context) {
	var req services.CreateRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	record, err := h.recordService.Create(c.Request.Context(), h.actorID(c), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, record)
}

// GetRecord retrieves one active record
func (h *RecordHandler) GetRecord(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	record, err := h.recordService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

// ListRecords lists active records with optional filters
func (h *RecordHandler) ListRecords(c *gin.Context) {
	filters, ok := h.parseRecordFilters(c)
	if !ok {
		return
	}

	records, total, err := h.recordService.ListActive(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, ListResponse{Data: records, Total: total})
}

// ListDeletedRecords lists soft-deleted records, most recently deleted first
func (h *RecordHandler) ListDeletedRecords(c *gin.Context) {
	filters, ok := h.parseRecordFilters(c)
	if !ok {
		return
	}

	records, total, err := h.recordService.ListDeleted(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, ListResponse{Data: records, Total: total})
}

// UpdateRecord applies a partial update to an active record
func (h *RecordHandler) UpdateRecord(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.UpdateRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	record, err := h.recordService.Update(c.Request.Context(), h.actorID(c), id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

// DeleteRecord soft-deletes a record
// @Summary Delete record
// @Tags records
// @Produce json
// @Param id path uint true "Record ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /records/{id} [delete]
func (h *RecordHandler) DeleteRecord(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	record, err := h.recordService.Delete(c.Request.Context(), h.actorID(c), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Record deleted",
		Data:    record,
	})
}

// RestoreRecord brings a soft-deleted record back into the active set
func (h *RecordHandler) RestoreRecord(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	record, err := h.recordService.Restore(c.Request.Context(), h.actorID(c), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Record restored",
		Data:    record,
	})
}

// ExportRecords streams the active record set as an .xlsx attachment
func (h *RecordHandler) ExportRecords(c *gin.Context) {
	filters, ok := h.parseRecordFilters(c)
	if !ok {
		return
	}

	result, err := h.exportService.ExportActiveRecords(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+result.FileName+`"`)
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		result.Content)
}

// ===== HELPERS =====

func (h *RecordHandler) actorID(c *gin.Context) uint {
	if userID, exists := c.Get("user_id"); exists {
		if id, ok := userID.(uint); ok {
			return id
		}
	}
	return 0
}

func (h *RecordHandler) parseRecordFilters(c *gin.Context) (repositories.RecordFilters, bool) {
	var filters repositories.RecordFilters

	if raw := c.Query("matric_number"); raw != "" {
		value, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Message: "Invalid matric_number",
				Details: "must be a number",
			})
			return filters, false
		}
		matric := models.MatricNumber(value)
		filters.MatricNumber = &matric
	}

	if status := c.Query("status"); status != "" {
		filters.Status = &status
	}
	if department := c.Query("department"); department != "" {
		filters.Department = &department
	}

	for name, dest := range map[string]**time.Time{
		"date_from": &filters.DateFrom,
		"date_to":   &filters.DateTo,
	} {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			parsed, err = time.Parse("2006-01-02", raw)
		}
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Message: "Invalid " + name,
				Details: "use RFC3339 or YYYY-MM-DD",
			})
			return filters, false
		}
		*dest = &parsed
	}

	filters.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "0"))
	filters.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	return filters, true
}
