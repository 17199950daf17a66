package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/finops-api/internal/middleware"
	"github.com/sjperalta/finops-api/internal/models"
	"github.com/sjperalta/finops-api/internal/repository"
	"github.com/sjperalta/finops-api/internal/services"
)

type TransactionHandler struct {
	transactionService *services.TransactionService
	exportService      *services.ExportService
}

func NewTransactionHandler(transactionService *services.TransactionService, exportService *services.ExportService) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService, exportService: exportService}
}

// ReasonRequest carries the reason for a rejection or cancellation
type ReasonRequest struct {
	Reason string `json:"reason"`
}

// @Summary List Transactions
// @Description Get a paginated list of transactions visible to the caller
// @Tags Transactions
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Param search_term query string false "Code or description"
// @Param business_unit_id query int false "Business unit"
// @Param transaction_type query string false "INCOME, EXPENSE or LOAN"
// @Param approval_status query string false "Approval status"
// @Param start_date query string false "From date (YYYY-MM-DD)"
// @Param end_date query string false "To date (YYYY-MM-DD)"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /transactions [get]
func (h *TransactionHandler) Index(c *gin.Context) {
	query := &repository.TransactionQuery{
		ListQuery:      listQueryFrom(c, 20),
		ApprovalStatus: models.ApprovalStatus(c.Query("approval_status")),
		From:           dateParam(c, "start_date"),
		To:             dateParam(c, "end_date"),
	}
	if raw := c.Query("transaction_type"); raw != "" {
		txType, ok := models.ParseTransactionType(raw)
		if !ok {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": fmt.Sprintf("unknown transaction type %q", raw)})
			return
		}
		query.TransactionType = txType
	}
	if raw := c.Query("business_unit_id"); raw != "" {
		buID, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "business_unit_id inválido"})
			return
		}
		query.BusinessUnitID = uint(buID)
	}

	transactions, total, err := h.transactionService.List(c.Request.Context(), query, middleware.GetActor(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transactions": transactions, "pagination": paginationFor(query.ListQuery, total)})
}

// @Summary Get Transaction
// @Tags Transactions
// @Produce json
// @Param transaction_id path int true "Transaction ID"
// @Success 200 {object} models.Transaction
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /transactions/{transaction_id} [get]
func (h *TransactionHandler) Show(c *gin.Context) {
	id, ok := idParam(c, "transaction_id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID de transacción inválido"})
		return
	}
	tx, err := h.transactionService.FindByID(c.Request.Context(), id, middleware.GetActor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction": tx})
}

// @Summary Create Transaction
// @Description Creates a transaction and assigns its code
// @Tags Transactions
// @Accept json
// @Produce json
// @Param request body services.CreateTransactionInput true "Transaction Data"
// @Success 201 {object} models.Transaction
// @Failure 422 {object} map[string]string
// @Security BearerAuth
// @Router /transactions [post]
func (h *TransactionHandler) Create(c *gin.Context) {
	var input services.CreateTransactionInput
	if err := BindNestedOrFlat(c, "transaction", &input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Datos inválidos: " + err.Error()})
		return
	}

	tx, err := h.transactionService.Create(c.Request.Context(), input, middleware.GetActor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"transaction": tx})
}

// @Summary Update Transaction
// @Tags Transactions
// @Accept json
// @Produce json
// @Param transaction_id path int true "Transaction ID"
// @Param request body services.UpdateTransactionInput true "Fields to change"
// @Success 200 {object} models.Transaction
// @Security BearerAuth
// @Router /transactions/{transaction_id} [put]
func (h *TransactionHandler) Update(c *gin.Context) {
	id, ok := idParam(c, "transaction_id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID de transacción inválido"})
		return
	}
	var input services.UpdateTransactionInput
	if err := BindNestedOrFlat(c, "transaction", &input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Datos inválidos: " + err.Error()})
		return
	}

	tx, err := h.transactionService.Update(c.Request.Context(), id, input, middleware.GetActor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction": tx})
}

// @Summary Delete Transaction
// @Tags Transactions
// @Produce json
// @Param transaction_id path int true "Transaction ID"
// @Success 200 {object} map[string]string
// @Security BearerAuth
// @Router /transactions/{transaction_id} [delete]
func (h *TransactionHandler) Delete(c *gin.Context) {
	id, ok := idParam(c, "transaction_id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID de transacción inválido"})
		return
	}
	if err := h.transactionService.Delete(c.Request.Context(), id, middleware.GetActor(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Transacción eliminada"})
}

// @Summary Submit Transaction
// @Description Sends a draft transaction for approval
// @Tags Transactions
// @Produce json
// @Param transaction_id path int true "Transaction ID"
// @Success 200 {object} models.Transaction
// @Security BearerAuth
// @Router /transactions/{transaction_id}/submit [post]
func (h *TransactionHandler) Submit(c *gin.Context) {
	h.transition(c, func(id uint) (*models.Transaction, error) {
		return h.transactionService.Submit(c.Request.Context(), id, middleware.GetActor(c))
	})
}

// @Summary Approve Transaction
// @Tags Transactions
// @Produce json
// @Param transaction_id path int true "Transaction ID"
// @Success 200 {object} models.Transaction
// @Failure 409 {object} map[string]string
// @Security BearerAuth
// @Router /transactions/{transaction_id}/approve [post]
func (h *TransactionHandler) Approve(c *gin.Context) {
	h.transition(c, func(id uint) (*models.Transaction, error) {
		return h.transactionService.Approve(c.Request.Context(), id, middleware.GetActor(c))
	})
}

// @Summary Reject Transaction
// @Tags Transactions
// @Accept json
// @Produce json
// @Param transaction_id path int true "Transaction ID"
// @Param request body ReasonRequest true "Rejection reason"
// @Success 200 {object} models.Transaction
// @Failure 422 {object} map[string]string
// @Security BearerAuth
// @Router /transactions/{transaction_id}/reject [post]
func (h *TransactionHandler) Reject(c *gin.Context) {
	var req ReasonRequest
	if !bindReason(c, &req) {
		return
	}
	h.transition(c, func(id uint) (*models.Transaction, error) {
		return h.transactionService.Reject(c.Request.Context(), id, middleware.GetActor(c), req.Reason)
	})
}

// @Summary Cancel Transaction
// @Tags Transactions
// @Accept json
// @Produce json
// @Param transaction_id path int true "Transaction ID"
// @Param request body ReasonRequest false "Cancellation reason"
// @Success 200 {object} models.Transaction
// @Security BearerAuth
// @Router /transactions/{transaction_id}/cancel [post]
func (h *TransactionHandler) Cancel(c *gin.Context) {
	var req ReasonRequest
	if !bindReason(c, &req) {
		return
	}
	h.transition(c, func(id uint) (*models.Transaction, error) {
		return h.transactionService.Cancel(c.Request.Context(), id, middleware.GetActor(c), req.Reason)
	})
}

// @Summary Transaction Voucher
// @Description Download a PDF voucher for a transaction
// @Tags Transactions
// @Produce application/pdf
// @Param transaction_id path int true "Transaction ID"
// @Success 200 {file} file "voucher.pdf"
// @Security BearerAuth
// @Router /transactions/{transaction_id}/voucher [get]
func (h *TransactionHandler) Voucher(c *gin.Context) {
	id, ok := idParam(c, "transaction_id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID de transacción inválido"})
		return
	}
	data, filename, err := h.exportService.TransactionVoucherPDF(c.Request.Context(), id, middleware.GetActor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, "application/pdf", data)
}

// bindReason reads an optional reason body. An empty body leaves req blank so the
// service decides whether a reason is required.
func bindReason(c *gin.Context, req *ReasonRequest) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := BindNestedOrFlat(c, "transaction", req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Datos inválidos: " + err.Error()})
		return false
	}
	return true
}

func (h *TransactionHandler) transition(c *gin.Context, apply func(id uint) (*models.Transaction, error)) {
	id, ok := idParam(c, "transaction_id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID de transacción inválido"})
		return
	}
	tx, err := apply(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction": tx})
}
