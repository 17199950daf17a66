package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/finops-api/internal/middleware"
	"github.com/sjperalta/finops-api/internal/models"
	"github.com/sjperalta/finops-api/internal/repository"
	"github.com/sjperalta/finops-api/internal/services"
)

type AuditHandler struct {
	auditService  *services.AuditService
	exportService *services.ExportService
}

func NewAuditHandler(auditService *services.AuditService, exportService *services.ExportService) *AuditHandler {
	return &AuditHandler{auditService: auditService, exportService: exportService}
}

func auditQueryFrom(c *gin.Context) (*repository.AuditQuery, error) {
	query := &repository.AuditQuery{
		ListQuery: listQueryFrom(c, 50),
		Entity:    c.Query("table_name"),
		RecordID:  c.Query("record_id"),
		From:      dateParam(c, "start_date"),
		To:        endOfDay(dateParam(c, "end_date")),
	}
	if raw := c.Query("action"); raw != "" {
		action := models.AuditAction(strings.ToUpper(raw))
		if !action.Valid() {
			return nil, fmt.Errorf("%w: unknown action %q", services.ErrValidation, raw)
		}
		query.Action = action
	}
	if raw := c.Query("user_id"); raw != "" {
		userID, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid user_id", services.ErrValidation)
		}
		query.UserID = uint(userID)
	}
	if raw := c.Query("business_unit_id"); raw != "" {
		buID, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid business_unit_id", services.ErrValidation)
		}
		query.BusinessUnitID = uint(buID)
	}
	return query, nil
}

// @Summary List Audit Logs
// @Description Get a paginated, filtered list of audit log entries
// @Tags Audit
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(50)
// @Param table_name query string false "Audited table"
// @Param record_id query string false "Audited record"
// @Param action query string false "CREATE, UPDATE, DELETE, APPROVE, REJECT, CANCEL, LOGIN, LOGOUT"
// @Param user_id query int false "Acting user"
// @Param business_unit_id query int false "Business unit"
// @Param start_date query string false "From date (YYYY-MM-DD)"
// @Param end_date query string false "To date (YYYY-MM-DD)"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /audits [get]
func (h *AuditHandler) Index(c *gin.Context) {
	query, err := auditQueryFrom(c)
	if err != nil {
		respondError(c, err)
		return
	}

	logs, total, err := h.auditService.List(c.Request.Context(), query, middleware.GetActor(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"audits": logs, "pagination": paginationFor(query.ListQuery, total)})
}

// @Summary Export Audit Logs
// @Description Download the filtered audit trail as XLSX (default) or CSV
// @Tags Audit
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param format query string false "xlsx or csv" default(xlsx)
// @Success 200 {file} file "audit_trail.xlsx"
// @Security BearerAuth
// @Router /audits/export [get]
func (h *AuditHandler) Export(c *gin.Context) {
	query, err := auditQueryFrom(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var (
		data        []byte
		filename    string
		contentType string
	)
	switch strings.ToLower(c.DefaultQuery("format", "xlsx")) {
	case "csv":
		data, filename, err = h.exportService.ExportAuditCSV(c.Request.Context(), query, middleware.GetActor(c))
		contentType = "text/csv"
	case "xlsx":
		data, filename, err = h.exportService.ExportAuditXLSX(c.Request.Context(), query, middleware.GetActor(c))
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "format debe ser xlsx o csv"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, contentType, data)
}
