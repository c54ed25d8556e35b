package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bankrec-engine/internal/service"
	"bankrec-engine/pkg/logger"
	"bankrec-engine/pkg/response"
)

type ReconciliationHandler struct {
	service service.ReconciliationService
}

func NewReconciliationHandler(service service.ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{service: service}
}

// ReconcileRequest selects either a whole venue or explicit transactions
type ReconcileRequest struct {
	VenueID        string   `json:"venue_id"`
	TransactionIDs []string `json:"transaction_ids"`
}

// Reconcile godoc
// @Summary Run reconciliation
// @Description Classify the PENDING, TO_REVIEW and UNMATCHED transactions of a venue, or the listed transactions
// @Tags reconciliation
// @Accept json
// @Produce json
// @Param request body ReconcileRequest true "Reconciliation request"
// @Success 200 {object} response.Response{data=service.RunSummary}
// @Failure 400 {object} response.Response
// @Failure 500 {object} response.Response
// @Router /api/v1/reconcile [post]
func (h *ReconciliationHandler) Reconcile(c *gin.Context) {
	var req ReconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}
	if req.VenueID == "" && len(req.TransactionIDs) == 0 {
		response.ValidationError(c, "venue_id or transaction_ids is required")
		return
	}

	logger.GetLogger().WithFields(map[string]interface{}{
		"venue_id":     req.VenueID,
		"transactions": len(req.TransactionIDs),
	}).Info("Starting reconciliation")

	var (
		summary *service.RunSummary
		err     error
	)
	if len(req.TransactionIDs) > 0 {
		summary, err = h.service.ReconcileIDs(c.Request.Context(), req.TransactionIDs)
	} else {
		summary, err = h.service.ReconcileVenue(c.Request.Context(), req.VenueID)
	}
	if err != nil {
		respondError(c, err, "Reconciliation failed")
		return
	}

	response.Success(c, http.StatusOK, "Reconciliation completed successfully", summary)
}

// ClassifyTransaction godoc
// @Summary Classify one transaction
// @Tags reconciliation
// @Produce json
// @Param id path string true "Transaction ID"
// @Success 200 {object} response.Response{data=domain.BankTransaction}
// @Failure 404 {object} response.Response
// @Router /api/v1/transactions/{id}/classify [post]
func (h *ReconciliationHandler) ClassifyTransaction(c *gin.Context) {
	tx, err := h.service.ClassifyTransaction(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Classification failed")
		return
	}
	response.Success(c, http.StatusOK, "Transaction classified successfully", tx)
}
