package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"bankrec-engine/internal/domain"
	"bankrec-engine/internal/service"
	"bankrec-engine/pkg/response"
)

type TransactionHandler struct {
	service service.TransactionService
}

func NewTransactionHandler(service service.TransactionService) *TransactionHandler {
	return &TransactionHandler{service: service}
}

type ListTransactionsRequest struct {
	VenueID  string `form:"venue_id" binding:"required"`
	Status   string `form:"status"`
	From     string `form:"from"`
	To       string `form:"to"`
	Search   string `form:"q"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

type ManualMatchRequest struct {
	EntryID   string `json:"entry_id" binding:"required"`
	AccountID string `json:"account_id"`
	Actor     string `json:"actor"`
}

type IgnoreRequest struct {
	Actor string `json:"actor"`
}

// ListTransactions godoc
// @Summary List bank transactions
// @Description Filter a venue's transactions by status, date range and free text, with per-status counts
// @Tags transactions
// @Produce json
// @Param venue_id query string true "Venue ID"
// @Param status query string false "Status" Enums(PENDING, MATCHED, TO_REVIEW, UNMATCHED, MANUAL, IGNORED)
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Param q query string false "Search in description and bank reference"
// @Param page query int false "Page (1-based)"
// @Param page_size query int false "Page size (max 500)"
// @Success 200 {object} response.Response{data=domain.TransactionPage}
// @Failure 400 {object} response.Response
// @Failure 500 {object} response.Response
// @Router /api/v1/transactions [get]
func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	var req ListTransactionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	filter := domain.TransactionFilter{
		VenueID:  req.VenueID,
		Status:   domain.Status(req.Status),
		Search:   req.Search,
		Page:     req.Page,
		PageSize: req.PageSize,
	}

	var err error
	if filter.From, err = parseDay(req.From); err != nil {
		response.BadRequest(c, "Invalid from date", "Use YYYY-MM-DD format")
		return
	}
	if filter.To, err = parseDay(req.To); err != nil {
		response.BadRequest(c, "Invalid to date", "Use YYYY-MM-DD format")
		return
	}

	page, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "Failed to list transactions")
		return
	}
	response.Success(c, http.StatusOK, "Transactions retrieved successfully", page)
}

// GetTransaction godoc
// @Summary Get a bank transaction
// @Tags transactions
// @Produce json
// @Param id path string true "Transaction ID"
// @Success 200 {object} response.Response{data=domain.BankTransaction}
// @Failure 404 {object} response.Response
// @Router /api/v1/transactions/{id} [get]
func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	tx, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to get transaction")
		return
	}
	response.Success(c, http.StatusOK, "Transaction retrieved successfully", tx)
}

// ManualMatch godoc
// @Summary Match a transaction manually
// @Description Settle a PENDING, TO_REVIEW or UNMATCHED transaction against a ledger entry
// @Tags transactions
// @Accept json
// @Produce json
// @Param id path string true "Transaction ID"
// @Param request body ManualMatchRequest true "Ledger entry and account"
// @Success 200 {object} response.Response{data=domain.BankTransaction}
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/transactions/{id}/match [post]
func (h *TransactionHandler) ManualMatch(c *gin.Context) {
	var req ManualMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	tx, err := h.service.ManualMatch(c.Request.Context(), c.Param("id"), req.EntryID, req.AccountID, req.Actor)
	if err != nil {
		respondError(c, err, "Failed to match transaction")
		return
	}
	response.Success(c, http.StatusOK, "Transaction matched successfully", tx)
}

// Ignore godoc
// @Summary Ignore a transaction
// @Tags transactions
// @Accept json
// @Produce json
// @Param id path string true "Transaction ID"
// @Param request body IgnoreRequest false "Actor"
// @Success 200 {object} response.Response{data=domain.BankTransaction}
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/transactions/{id}/ignore [post]
func (h *TransactionHandler) Ignore(c *gin.Context) {
	var req IgnoreRequest
	// the body is optional
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.ValidationError(c, err.Error())
			return
		}
	}

	tx, err := h.service.Ignore(c.Request.Context(), c.Param("id"), req.Actor)
	if err != nil {
		respondError(c, err, "Failed to ignore transaction")
		return
	}
	response.Success(c, http.StatusOK, "Transaction ignored successfully", tx)
}

func parseDay(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
