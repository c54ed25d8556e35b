package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bankrec-engine/internal/domain"
	"bankrec-engine/internal/service"
	"bankrec-engine/pkg/response"
)

type RuleHandler struct {
	service service.RuleService
}

func NewRuleHandler(service service.RuleService) *RuleHandler {
	return &RuleHandler{service: service}
}

type ReorderRulesRequest struct {
	Direction domain.Direction `json:"direction" binding:"required"`
	RuleIDs   []string         `json:"rule_ids" binding:"required"`
}

// ListRules godoc
// @Summary List reconciliation rules
// @Tags rules
// @Produce json
// @Param direction query string false "Direction" Enums(emessi, ricevuti)
// @Success 200 {object} response.Response{data=[]domain.ReconciliationRule}
// @Failure 400 {object} response.Response
// @Router /api/v1/rules [get]
func (h *RuleHandler) ListRules(c *gin.Context) {
	rules, err := h.service.List(c.Request.Context(), domain.Direction(c.Query("direction")))
	if err != nil {
		respondError(c, err, "Failed to list rules")
		return
	}
	response.Success(c, http.StatusOK, "Rules retrieved successfully", rules)
}

// CreateRule godoc
// @Summary Create a reconciliation rule
// @Description The rule is appended at the end of its direction's list
// @Tags rules
// @Accept json
// @Produce json
// @Param rule body service.RuleInput true "Rule"
// @Success 201 {object} response.Response{data=domain.ReconciliationRule}
// @Failure 400 {object} response.Response
// @Router /api/v1/rules [post]
func (h *RuleHandler) CreateRule(c *gin.Context) {
	var input service.RuleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	rule, err := h.service.Create(c.Request.Context(), input)
	if err != nil {
		respondError(c, err, "Failed to create rule")
		return
	}
	response.Created(c, "Rule created successfully", rule)
}

// UpdateRule godoc
// @Summary Update a reconciliation rule
// @Tags rules
// @Accept json
// @Produce json
// @Param id path string true "Rule ID"
// @Param rule body service.RuleInput true "Rule"
// @Success 200 {object} response.Response{data=domain.ReconciliationRule}
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/rules/{id} [put]
func (h *RuleHandler) UpdateRule(c *gin.Context) {
	var input service.RuleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	rule, err := h.service.Update(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		respondError(c, err, "Failed to update rule")
		return
	}
	response.Success(c, http.StatusOK, "Rule updated successfully", rule)
}

// DeleteRule godoc
// @Summary Delete a reconciliation rule
// @Tags rules
// @Produce json
// @Param id path string true "Rule ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/rules/{id} [delete]
func (h *RuleHandler) DeleteRule(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err, "Failed to delete rule")
		return
	}
	response.Success(c, http.StatusOK, "Rule deleted successfully", nil)
}

// ReorderRules godoc
// @Summary Reorder the rules of a direction
// @Description rule_ids must list every rule of the direction exactly once
// @Tags rules
// @Accept json
// @Produce json
// @Param request body ReorderRulesRequest true "New order"
// @Success 200 {object} response.Response{data=[]domain.ReconciliationRule}
// @Failure 400 {object} response.Response
// @Router /api/v1/rules/order [put]
func (h *RuleHandler) ReorderRules(c *gin.Context) {
	var req ReorderRulesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	rules, err := h.service.Reorder(c.Request.Context(), req.Direction, req.RuleIDs)
	if err != nil {
		respondError(c, err, "Failed to reorder rules")
		return
	}
	response.Success(c, http.StatusOK, "Rules reordered successfully", rules)
}

// MoveRuleToTop godoc
// @Summary Move a rule to the top of its direction
// @Tags rules
// @Produce json
// @Param id path string true "Rule ID"
// @Success 200 {object} response.Response{data=[]domain.ReconciliationRule}
// @Failure 404 {object} response.Response
// @Router /api/v1/rules/{id}/move-top [post]
func (h *RuleHandler) MoveRuleToTop(c *gin.Context) {
	rules, err := h.service.MoveToTop(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to move rule")
		return
	}
	response.Success(c, http.StatusOK, "Rule moved successfully", rules)
}

// MoveRuleToBottom godoc
// @Summary Move a rule to the bottom of its direction
// @Tags rules
// @Produce json
// @Param id path string true "Rule ID"
// @Success 200 {object} response.Response{data=[]domain.ReconciliationRule}
// @Failure 404 {object} response.Response
// @Router /api/v1/rules/{id}/move-bottom [post]
func (h *RuleHandler) MoveRuleToBottom(c *gin.Context) {
	rules, err := h.service.MoveToBottom(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to move rule")
		return
	}
	response.Success(c, http.StatusOK, "Rule moved successfully", rules)
}
