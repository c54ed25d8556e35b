package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"bankrec-engine/internal/parser"
	"bankrec-engine/internal/service"
	"bankrec-engine/pkg/logger"
	"bankrec-engine/pkg/response"
)

type ImportHandler struct {
	service service.ImportService
}

func NewImportHandler(service service.ImportService) *ImportHandler {
	return &ImportHandler{service: service}
}

// Import godoc
// @Summary Import a bank statement
// @Description Upload a CSV, XLSX, camt.053 XML or CBI fixed-width statement for a venue
// @Tags imports
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Statement file"
// @Param venue_id formData string true "Venue ID"
// @Param profile formData string false "Delimited profile name"
// @Param layout formData string false "Fixed-width layout name"
// @Param config formData string false "Inline parser configuration (JSON)"
// @Param imported_by formData string false "Operator name"
// @Success 201 {object} response.Response{data=domain.ImportResult}
// @Failure 400 {object} response.Response
// @Failure 413 {object} response.Response
// @Failure 500 {object} response.Response
// @Router /api/v1/imports [post]
func (h *ImportHandler) Import(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondError(c, badForm(err, "file"), "Invalid upload")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.BadRequest(c, "Failed to open uploaded file", err.Error())
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		respondError(c, err, "Failed to read uploaded file")
		return
	}

	req := service.ImportRequest{
		Filename:   fileHeader.Filename,
		Content:    content,
		VenueID:    c.PostForm("venue_id"),
		Profile:    c.PostForm("profile"),
		Layout:     c.PostForm("layout"),
		ImportedBy: c.PostForm("imported_by"),
	}

	if raw := c.PostForm("config"); raw != "" {
		// inline settings override the built-in profiles field by field
		cfg := parser.DefaultConfig()
		if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
			response.ValidationError(c, "config: "+err.Error())
			return
		}
		req.Config = &cfg
	}

	result, err := h.service.Import(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Import failed")
		return
	}

	logger.GetLogger().WithFields(map[string]interface{}{
		"batch_id": result.BatchID,
		"filename": fileHeader.Filename,
	}).Info("Statement upload processed")

	response.Created(c, "Statement imported successfully", result)
}

// GetBatch godoc
// @Summary Get an import batch
// @Tags imports
// @Produce json
// @Param batch_id path string true "Batch ID"
// @Success 200 {object} response.Response{data=domain.ImportBatch}
// @Failure 404 {object} response.Response
// @Router /api/v1/imports/{batch_id} [get]
func (h *ImportHandler) GetBatch(c *gin.Context) {
	batch, err := h.service.GetBatch(c.Request.Context(), c.Param("batch_id"))
	if err != nil {
		respondError(c, err, "Failed to get import batch")
		return
	}
	response.Success(c, http.StatusOK, "Import batch retrieved successfully", batch)
}

// ListBatches godoc
// @Summary List recent import batches of a venue
// @Tags imports
// @Produce json
// @Param venue_id query string true "Venue ID"
// @Param limit query int false "Maximum number of batches"
// @Success 200 {object} response.Response{data=[]domain.ImportBatch}
// @Failure 400 {object} response.Response
// @Router /api/v1/imports [get]
func (h *ImportHandler) ListBatches(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	batches, err := h.service.ListBatches(c.Request.Context(), c.Query("venue_id"), limit)
	if err != nil {
		respondError(c, err, "Failed to list import batches")
		return
	}
	response.Success(c, http.StatusOK, "Import batches retrieved successfully", batches)
}
